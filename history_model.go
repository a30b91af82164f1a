package pomod

import (
	"context"
	"time"
)

type HistoryID string

// HistoryRecord is one finished or skipped session.
type HistoryRecord struct {
	Session Session
	Planned time.Duration
	// Rounds is the completed-round count after the session ended.
	Rounds  uint
	Skipped bool
	EndedAt time.Time
}

type ExistingHistoryRecord struct {
	ExistingRecord[HistoryID]
	HistoryRecord
}

func HistoryRecordFromTransition(t Transition, at time.Time) HistoryRecord {
	return HistoryRecord{
		Session: t.From,
		Planned: t.Planned,
		Rounds:  t.Rounds,
		Skipped: t.Manual,
		EndedAt: at,
	}
}

type HistoryRepo interface {
	InsertHistory(context.Context, HistoryRecord) (ExistingHistoryRecord, error)
	DeleteHistoryBefore(ctx context.Context, t time.Time) (int64, error)
	CountCompletedSince(ctx context.Context, t time.Time) (SessionStats, error)
	ListHistory(ctx context.Context, limit int) ([]ExistingHistoryRecord, error)
}
