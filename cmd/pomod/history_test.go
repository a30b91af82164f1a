package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Thiht/transactor"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjamonnguyen/pomod"
)

// mockHistoryRepo is a mock implementation of pomod.HistoryRepo
type mockHistoryRepo struct {
	insertHistoryFunc       func(context.Context, pomod.HistoryRecord) (pomod.ExistingHistoryRecord, error)
	deleteHistoryBeforeFunc func(context.Context, time.Time) (int64, error)
	countCompletedSinceFunc func(context.Context, time.Time) (pomod.SessionStats, error)
}

func (m *mockHistoryRepo) InsertHistory(ctx context.Context, rec pomod.HistoryRecord) (pomod.ExistingHistoryRecord, error) {
	if m.insertHistoryFunc != nil {
		return m.insertHistoryFunc(ctx, rec)
	}
	return pomod.ExistingHistoryRecord{HistoryRecord: rec}, nil
}

func (m *mockHistoryRepo) DeleteHistoryBefore(ctx context.Context, t time.Time) (int64, error) {
	if m.deleteHistoryBeforeFunc != nil {
		return m.deleteHistoryBeforeFunc(ctx, t)
	}
	return 0, nil
}

func (m *mockHistoryRepo) CountCompletedSince(ctx context.Context, t time.Time) (pomod.SessionStats, error) {
	if m.countCompletedSinceFunc != nil {
		return m.countCompletedSinceFunc(ctx, t)
	}
	return pomod.SessionStats{}, nil
}

func (m *mockHistoryRepo) ListHistory(ctx context.Context, limit int) ([]pomod.ExistingHistoryRecord, error) {
	return nil, nil
}

// mockTransactor is a mock implementation of transactor.Transactor
type mockTransactor struct {
	calls int
}

func (m *mockTransactor) WithinTransaction(ctx context.Context, fn func(context.Context) error) error {
	m.calls++
	return fn(ctx)
}

var _ transactor.Transactor = (*mockTransactor)(nil)

func TestHistoryRecorder_Record(t *testing.T) {
	at := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	var inserted pomod.HistoryRecord
	var prunedBefore time.Time
	repo := &mockHistoryRepo{
		insertHistoryFunc: func(_ context.Context, rec pomod.HistoryRecord) (pomod.ExistingHistoryRecord, error) {
			inserted = rec
			return pomod.ExistingHistoryRecord{HistoryRecord: rec}, nil
		},
		deleteHistoryBeforeFunc: func(_ context.Context, t time.Time) (int64, error) {
			prunedBefore = t
			return 3, nil
		},
	}
	tx := &mockTransactor{}
	r := newHistoryRecorder(repo, tx, 24*time.Hour, *log.Default())

	err := r.Record(context.Background(), pomod.Transition{
		From:    pomod.FocusSession,
		To:      pomod.ShortBreakSession,
		Rounds:  1,
		Planned: 25 * time.Minute,
	}, at)
	require.NoError(t, err)

	assert.Equal(t, 1, tx.calls)
	assert.Equal(t, pomod.HistoryRecord{
		Session: pomod.FocusSession,
		Planned: 25 * time.Minute,
		Rounds:  1,
		EndedAt: at,
	}, inserted)
	assert.Equal(t, at.Add(-24*time.Hour), prunedBefore)
}

func TestHistoryRecorder_NoRetentionSkipsPrune(t *testing.T) {
	repo := &mockHistoryRepo{
		deleteHistoryBeforeFunc: func(context.Context, time.Time) (int64, error) {
			t.Fatal("unexpected prune")
			return 0, nil
		},
	}
	r := newHistoryRecorder(repo, &mockTransactor{}, 0, *log.Default())

	require.NoError(t, r.Record(context.Background(), pomod.Transition{From: pomod.FocusSession}, time.Now()))
}

func TestHistoryRecorder_Errors(t *testing.T) {
	errDB := errors.New("disk full")

	t.Run("insert", func(t *testing.T) {
		repo := &mockHistoryRepo{
			insertHistoryFunc: func(context.Context, pomod.HistoryRecord) (pomod.ExistingHistoryRecord, error) {
				return pomod.ExistingHistoryRecord{}, errDB
			},
		}
		r := newHistoryRecorder(repo, &mockTransactor{}, time.Hour, *log.Default())
		assert.ErrorIs(t, r.Record(context.Background(), pomod.Transition{From: pomod.FocusSession}, time.Now()), errDB)
	})

	t.Run("prune", func(t *testing.T) {
		repo := &mockHistoryRepo{
			deleteHistoryBeforeFunc: func(context.Context, time.Time) (int64, error) {
				return 0, errDB
			},
		}
		r := newHistoryRecorder(repo, &mockTransactor{}, time.Hour, *log.Default())
		assert.ErrorIs(t, r.Record(context.Background(), pomod.Transition{From: pomod.FocusSession}, time.Now()), errDB)
	})
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("test", -7*60*60)
	got := startOfDay(time.Date(2026, 10, 18, 23, 59, 59, 5, loc))
	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, loc), got)
}
