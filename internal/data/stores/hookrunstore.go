// Package stores implements persistence backed by the SQLite database.
package stores

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/colonyops/comb/internal/core/hooks"
	"github.com/colonyops/comb/internal/data/db"
)

const (
	defaultHistoryLimit = 50
	busyRetries         = 3
)

// HookRun is a journaled hook execution.
type HookRun struct {
	ID int64 `json:"id"`
	hooks.Result
}

// HistoryFilter narrows List. Zero values match everything.
type HistoryFilter struct {
	Hook   string
	Status hooks.Status
	Limit  int
}

// HookRunStore implements hooks.Journal using SQLite.
type HookRunStore struct {
	db *db.DB
}

var _ hooks.Journal = (*HookRunStore)(nil)

// NewHookRunStore creates a new SQLite-backed hook run journal.
func NewHookRunStore(db *db.DB) *HookRunStore {
	return &HookRunStore{db: db}
}

// Record appends one hook execution, retrying briefly on SQLITE_BUSY.
func (s *HookRunStore) Record(ctx context.Context, r hooks.Result) error {
	var err error
	for attempt := range busyRetries {
		_, err = s.db.Conn().ExecContext(ctx, `
			INSERT INTO hook_runs (hook, event, action, agent, status, output, error, started_at, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.Hook, string(r.Event), string(r.Action), r.Agent, string(r.Status),
			r.Output, r.Error, r.StartedAt.UnixNano(), r.Duration.Milliseconds(),
		)
		if err == nil || !IsBusy(err) {
			break
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	if err != nil {
		return fmt.Errorf("insert hook run: %w", err)
	}
	return nil
}

// List returns journaled runs, newest first.
func (s *HookRunStore) List(ctx context.Context, f HistoryFilter) ([]HookRun, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT id, hook, event, action, agent, status, output, error, started_at, duration_ms
		FROM hook_runs
		WHERE (? = '' OR hook = ?) AND (? = '' OR status = ?)
		ORDER BY started_at DESC, id DESC
		LIMIT ?`,
		f.Hook, f.Hook, string(f.Status), string(f.Status), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list hook runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []HookRun
	for rows.Next() {
		run, err := scanHookRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hook run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// Prune deletes runs that started before cutoff and returns how many were removed.
func (s *HookRunStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.Conn().ExecContext(ctx, "DELETE FROM hook_runs WHERE started_at < ?", cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune hook runs: %w", err)
	}
	return res.RowsAffected()
}

func scanHookRun(rows *sql.Rows) (HookRun, error) {
	var (
		run                   HookRun
		event, action, status string
		startedAt, durationMs int64
	)
	err := rows.Scan(&run.ID, &run.Hook, &event, &action, &run.Agent, &status,
		&run.Output, &run.Error, &startedAt, &durationMs)
	if err != nil {
		return HookRun{}, err
	}
	run.Event = hooks.EventType(event)
	run.Action = hooks.ActionType(action)
	run.Status = hooks.Status(status)
	run.StartedAt = time.Unix(0, startedAt)
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return run, nil
}
