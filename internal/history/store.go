// Package history keeps a local record of workflow outcomes so past pushes
// and jobs can be listed without a backend round trip.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gitpusher/pushkit/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS outcomes (
	project_id     TEXT PRIMARY KEY,
	project_name   TEXT NOT NULL,
	status         TEXT NOT NULL,
	repository_url TEXT NOT NULL DEFAULT '',
	error          TEXT NOT NULL DEFAULT '',
	completed_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outcomes_completed_at ON outcomes(completed_at);
`

// Outcome is one recorded terminal workflow result.
type Outcome struct {
	ProjectID     string
	ProjectName   string
	Status        models.ProjectStatus
	RepositoryURL string
	Error         string
	CompletedAt   time.Time
}

// Store is a SQLite-backed outcome log.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default history database location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "pushkit-history.db"
	}
	return filepath.Join(home, ".pushkit", "history.db")
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record upserts a terminal outcome. A stored terminal status is never
// downgraded: completed and failed records are immutable except for
// archive, matching the job transition graph.
func (s *Store) Record(ctx context.Context, outcome Outcome) error {
	if !outcome.Status.Terminal() {
		return fmt.Errorf("refusing to record non-terminal status %q", outcome.Status)
	}

	existing, err := s.get(ctx, outcome.ProjectID)
	if err != nil {
		return err
	}
	if existing != nil && existing.Status.Terminal() && existing.Status != models.StatusArchived {
		if outcome.Status != models.StatusArchived {
			return nil
		}
	}

	query := `
		INSERT INTO outcomes (project_id, project_name, status, repository_url, error, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			project_name = excluded.project_name,
			status = excluded.status,
			repository_url = excluded.repository_url,
			error = excluded.error,
			completed_at = excluded.completed_at
	`
	_, err = s.db.ExecContext(ctx, query,
		outcome.ProjectID, outcome.ProjectName, string(outcome.Status),
		outcome.RepositoryURL, outcome.Error, outcome.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// List returns recorded outcomes, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Outcome, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT project_id, project_name, status, repository_url, error, completed_at
		FROM outcomes ORDER BY completed_at DESC LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var o Outcome
		var status string
		if err := rows.Scan(&o.ProjectID, &o.ProjectName, &status, &o.RepositoryURL, &o.Error, &o.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Status = models.ProjectStatus(status)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

func (s *Store) get(ctx context.Context, projectID string) (*Outcome, error) {
	query := `
		SELECT project_id, project_name, status, repository_url, error, completed_at
		FROM outcomes WHERE project_id = ?
	`
	var o Outcome
	var status string
	err := s.db.QueryRowContext(ctx, query, projectID).Scan(
		&o.ProjectID, &o.ProjectName, &status, &o.RepositoryURL, &o.Error, &o.CompletedAt,
	)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get outcome: %w", err)
	}
	o.Status = models.ProjectStatus(status)
	return &o, nil
}
