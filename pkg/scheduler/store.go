package scheduler

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aquactl/aquactl/pkg/model"
)

// StoredJob is one ScheduledJob row plus the scheduler-computed fields
// the store is the durable source of truth for.
type StoredJob struct {
	Job       model.ScheduledJob
	NextRun   time.Time
	UpdatedAt time.Time
}

// Store is the SQLite-backed persistent job table. Self-initialising:
// a missing database file is created with the jobs table on first
// use, so a fresh deployment needs no separate migration step.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// NewStore opens (creating if absent) the SQLite database at path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening schedule database %s: %w", path, err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring schedule database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schedule database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			id            TEXT PRIMARY KEY,
			cron_expr     TEXT NOT NULL,
			action        TEXT NOT NULL,
			target        TEXT NOT NULL,
			enabled       INTEGER NOT NULL DEFAULT 1,
			next_run_time DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
		);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadAll returns every persisted job, enabled or not.
func (s *Store) LoadAll() ([]StoredJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id, cron_expr, action, target, enabled, next_run_time, updated_at FROM jobs`)
	if err != nil {
		return nil, fmt.Errorf("loading scheduled jobs: %w", err)
	}
	defer rows.Close()

	var out []StoredJob
	for rows.Next() {
		var (
			id, cronExpr, action, targetStr string
			enabled                         int
			nextRun, updatedAt              time.Time
		)
		if err := rows.Scan(&id, &cronExpr, &action, &targetStr, &enabled, &nextRun, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning scheduled job row: %w", err)
		}
		target, err := model.ParseTarget(targetStr)
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", id, err)
		}
		out = append(out, StoredJob{
			Job: model.ScheduledJob{
				ID: id, CronExpr: cronExpr, Action: model.Action(action),
				Target: target, Enabled: enabled != 0,
			},
			NextRun:   nextRun,
			UpdatedAt: updatedAt,
		})
	}
	return out, rows.Err()
}

// Upsert writes job with its computed next run time, creating the row
// if absent or replacing it entirely if present. Mutation callers must
// complete this before touching in-memory schedule state.
func (s *Store) Upsert(job model.ScheduledJob, nextRun time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	enabled := 0
	if job.Enabled {
		enabled = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO jobs (id, cron_expr, action, target, enabled, next_run_time, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cron_expr = excluded.cron_expr,
			action = excluded.action,
			target = excluded.target,
			enabled = excluded.enabled,
			next_run_time = excluded.next_run_time,
			updated_at = excluded.updated_at
	`, job.ID, job.CronExpr, string(job.Action), job.Target.String(), enabled, nextRun.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("persisting job %q: %w", job.ID, err)
	}
	return nil
}

// Delete removes a job row. Deleting an unknown id is a no-op.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting job %q: %w", id, err)
	}
	return nil
}
