package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/benjamonnguyen/pomod"
)

const (
	SelectAllHistory = "SELECT id, session, planned_seconds, rounds, skipped, ended_at, created_at FROM session_history"
)

type historyEntity struct {
	ID             string
	Session        uint8
	PlannedSeconds int64
	Rounds         int64
	Skipped        bool
	EndedAt        int64
	CreatedAt      int64
}

type historyRepo struct {
	dbGetter txStdLib.DBGetter
	l        log.Logger
	now      func() time.Time
}

func NewHistoryRepo(dbGetter txStdLib.DBGetter, logger log.Logger) *historyRepo {
	return &historyRepo{
		dbGetter: dbGetter,
		l:        logger,
		now:      time.Now,
	}
}

var _ pomod.HistoryRepo = (*historyRepo)(nil)

func (r *historyRepo) InsertHistory(ctx context.Context, rec pomod.HistoryRecord) (pomod.ExistingHistoryRecord, error) {
	if !rec.Session.Valid() {
		return pomod.ExistingHistoryRecord{}, fmt.Errorf("provide valid session, got %d", rec.Session)
	}
	if rec.EndedAt.IsZero() {
		return pomod.ExistingHistoryRecord{}, fmt.Errorf("provide required field 'EndedAt'")
	}

	existingRecord := pomod.ExistingHistoryRecord{
		HistoryRecord:  rec,
		ExistingRecord: pomod.NewExistingRecord[pomod.HistoryID](uuid.NewString(), r.now()),
	}
	e := mapToHistoryEntity(existingRecord)

	args := []any{
		e.ID,
		e.Session,
		e.PlannedSeconds,
		e.Rounds,
		e.Skipped,
		e.EndedAt,
		e.CreatedAt,
	}
	query := "INSERT INTO session_history (id, session, planned_seconds, rounds, skipped, ended_at, created_at) VALUES " + generateParameters(len(args))
	r.l.Debug("inserting history", "query", query, "args", args)
	if _, err := r.dbGetter(ctx).ExecContext(ctx, query, args...); err != nil {
		return pomod.ExistingHistoryRecord{}, err
	}

	return existingRecord, nil
}

func (r *historyRepo) getHistory(ctx context.Context, id pomod.HistoryID) (pomod.ExistingHistoryRecord, error) {
	if id == "" {
		return pomod.ExistingHistoryRecord{}, fmt.Errorf("provide id")
	}

	row := r.dbGetter(ctx).QueryRowContext(
		ctx,
		fmt.Sprintf("%s WHERE id=?", SelectAllHistory), id,
	)
	return extractHistory(row)
}

// DeleteHistoryBefore removes entries that ended strictly before t.
func (r *historyRepo) DeleteHistoryBefore(ctx context.Context, t time.Time) (int64, error) {
	query := "DELETE FROM session_history WHERE ended_at < ?"
	r.l.Debug("pruning history", "query", query, "before", t)
	res, err := r.dbGetter(ctx).ExecContext(ctx, query, t.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountCompletedSince counts sessions that ran to zero at or after t.
// Skipped sessions are not counted.
func (r *historyRepo) CountCompletedSince(ctx context.Context, t time.Time) (pomod.SessionStats, error) {
	query := "SELECT session, COUNT(*) FROM session_history WHERE skipped = 0 AND ended_at >= ? GROUP BY session"
	r.l.Debug("counting history", "query", query, "since", t)
	rows, err := r.dbGetter(ctx).QueryContext(ctx, query, t.Unix())
	if err != nil {
		return pomod.SessionStats{}, err
	}
	defer rows.Close() //nolint

	var stats pomod.SessionStats
	for rows.Next() {
		var session uint8
		var cnt int
		if err := rows.Scan(&session, &cnt); err != nil {
			return pomod.SessionStats{}, err
		}
		switch pomod.Session(session) {
		case pomod.FocusSession:
			stats.Focus = cnt
		case pomod.ShortBreakSession:
			stats.ShortBreak = cnt
		case pomod.LongBreakSession:
			stats.LongBreak = cnt
		}
	}
	if err := rows.Err(); err != nil {
		return pomod.SessionStats{}, err
	}
	return stats, nil
}

// ListHistory returns up to limit entries, most recent first.
func (r *historyRepo) ListHistory(ctx context.Context, limit int) ([]pomod.ExistingHistoryRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf("%s ORDER BY ended_at DESC, created_at DESC LIMIT ?", SelectAllHistory)
	r.l.Debug("listing history", "query", query, "limit", limit)
	rows, err := r.dbGetter(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint

	var records []pomod.ExistingHistoryRecord
	for rows.Next() {
		rec, err := extractHistory(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func extractHistory(s scannable) (pomod.ExistingHistoryRecord, error) {
	var e historyEntity
	if err := s.Scan(&e.ID, &e.Session, &e.PlannedSeconds, &e.Rounds, &e.Skipped, &e.EndedAt, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pomod.ExistingHistoryRecord{}, ErrNotFound
		}
		return pomod.ExistingHistoryRecord{}, err
	}

	return mapToExistingHistoryRecord(e), nil
}

func mapToHistoryEntity(rec pomod.ExistingHistoryRecord) historyEntity {
	return historyEntity{
		ID:             string(rec.ID),
		Session:        uint8(rec.Session),
		PlannedSeconds: int64(rec.Planned / time.Second),
		Rounds:         int64(rec.Rounds),
		Skipped:        rec.Skipped,
		EndedAt:        rec.EndedAt.Unix(),
		CreatedAt:      rec.CreatedAt.Unix(),
	}
}

func mapToExistingHistoryRecord(e historyEntity) pomod.ExistingHistoryRecord {
	return pomod.ExistingHistoryRecord{
		ExistingRecord: pomod.ExistingRecord[pomod.HistoryID]{
			ID:        pomod.HistoryID(e.ID),
			CreatedAt: time.Unix(e.CreatedAt, 0),
		},
		HistoryRecord: pomod.HistoryRecord{
			Session: pomod.Session(e.Session),
			Planned: time.Duration(e.PlannedSeconds) * time.Second,
			Rounds:  uint(e.Rounds),
			Skipped: e.Skipped,
			EndedAt: time.Unix(e.EndedAt, 0),
		},
	}
}
