package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Record is a stored summary of a finished archive run.
type Record struct {
	ID         string    `json:"id"`
	Quality    string    `json:"quality"`
	Total      int       `json:"total"`
	Success    int       `json:"success"`
	Errors     int       `json:"errors"`
	Failed     []string  `json:"failed,omitempty"` // ids that ended in an error entry
	Error      string    `json:"error,omitempty"`  // archive writer failure, if any
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// HistoryStore persists archive summaries for reporting.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore creates a history store.
func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Record stores sum. cause is the archive failure, or nil.
func (s *HistoryStore) Record(ctx context.Context, sum *Summary, cause error) error {
	var errText string
	if cause != nil {
		errText = cause.Error()
	}
	failed, err := json.Marshal(sum.FailedIDs())
	if err != nil {
		return fmt.Errorf("encode failed ids: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO archives (id, quality, total, success, errors, failed, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.ID, sum.Quality, sum.Total, sum.Success, sum.Errors,
		string(failed), errText, sum.StartedAt, sum.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert archive: %w", err)
	}
	return nil
}

// Get returns one record by id.
func (s *HistoryStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, quality, total, success, errors, failed, error, started_at, finished_at
		FROM archives WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get archive %s: %w", id, err)
	}
	return r, nil
}

// List returns the most recent records first. limit <= 0 means 50.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, quality, total, success, errors, failed, error, started_at, finished_at
		FROM archives ORDER BY finished_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var r Record
	var failed string
	if err := sc.Scan(&r.ID, &r.Quality, &r.Total, &r.Success, &r.Errors, &failed, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
		return nil, err
	}
	if failed != "" {
		if err := json.Unmarshal([]byte(failed), &r.Failed); err != nil {
			return nil, fmt.Errorf("decode failed ids: %w", err)
		}
	}
	return &r, nil
}
