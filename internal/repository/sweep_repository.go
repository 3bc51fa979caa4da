package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SweepRepository persists the last-run watermark for each scheduled sweep
// action, so a restarted process can tell which scheduled points it missed.
type SweepRepository struct {
	db *sql.DB
}

func NewSweepRepository(db *sql.DB) *SweepRepository {
	return &SweepRepository{db: db}
}

// LastRun returns the watermark for the named action, or the zero time when
// the action has never run.
func (r *SweepRepository) LastRun(ctx context.Context, name string) (time.Time, error) {
	const query = `SELECT last_run_ts FROM sweep_runs WHERE name = ?`
	var ts int64
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("get sweep watermark: %w", err)
	}
	return time.Unix(ts, 0), nil
}

func (r *SweepRepository) SetLastRun(ctx context.Context, name string, at time.Time) error {
	const query = `
INSERT INTO sweep_runs (name, last_run_ts) VALUES (?, ?)
ON DUPLICATE KEY UPDATE last_run_ts = VALUES(last_run_ts)`
	if _, err := r.db.ExecContext(ctx, query, name, at.Unix()); err != nil {
		return fmt.Errorf("set sweep watermark: %w", err)
	}
	return nil
}
