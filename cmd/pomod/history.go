package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Thiht/transactor"
	"github.com/charmbracelet/log"

	"github.com/benjamonnguyen/pomod"
)

type historyRecorder struct {
	repo      pomod.HistoryRepo
	tx        transactor.Transactor
	retention time.Duration
	l         log.Logger
}

func newHistoryRecorder(repo pomod.HistoryRepo, tx transactor.Transactor, retention time.Duration, logger log.Logger) *historyRecorder {
	return &historyRecorder{
		repo:      repo,
		tx:        tx,
		retention: retention,
		l:         logger,
	}
}

// Record journals t and prunes entries older than the retention window in
// the same transaction.
func (r *historyRecorder) Record(ctx context.Context, t pomod.Transition, at time.Time) error {
	return r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		rec, err := r.repo.InsertHistory(ctx, pomod.HistoryRecordFromTransition(t, at))
		if err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
		r.l.Debug("recorded session", "id", rec.ID, "session", rec.Session, "skipped", rec.Skipped)

		if r.retention <= 0 {
			return nil
		}
		pruned, err := r.repo.DeleteHistoryBefore(ctx, at.Add(-r.retention))
		if err != nil {
			return fmt.Errorf("prune history: %w", err)
		}
		if pruned > 0 {
			r.l.Debug("pruned session history", "count", pruned)
		}
		return nil
	})
}

func (r *historyRecorder) StatsSince(ctx context.Context, since time.Time) (pomod.SessionStats, error) {
	return r.repo.CountCompletedSince(ctx, since)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
