package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sqlc-dev/pqtype"

	"qtumor/internal/jobs"
)

// Store keeps job handles in Postgres.
type Store struct {
	DB *sql.DB
}

// New creates a new Store that uses a shared *sql.DB with pooling.
func New(database *sql.DB) *Store {
	return &Store{DB: database}
}

// Put inserts a handle, replacing an existing row with the same id.
func (s *Store) Put(ctx context.Context, h jobs.Handle) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO job_handles (id, backend, features, submitted_at, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			backend = EXCLUDED.backend,
			features = EXCLUDED.features,
			submitted_at = EXCLUDED.submitted_at,
			status = EXCLUDED.status,
			result = NULL,
			updated_at = now()`,
		h.ID, h.Backend, h.Features, h.SubmittedAt.UTC(), string(jobs.StatusPending),
	)
	return err
}

// Get fetches a handle by job id.
func (s *Store) Get(ctx context.Context, id string) (jobs.Handle, bool, error) {
	var h jobs.Handle
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, backend, features, submitted_at
		FROM job_handles WHERE id = $1`, id,
	).Scan(&h.ID, &h.Backend, &h.Features, &h.SubmittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return jobs.Handle{}, false, nil
	}
	if err != nil {
		return jobs.Handle{}, false, err
	}
	return h, true, nil
}

// Delete removes a handle.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM job_handles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return jobs.ErrHandleNotFound
	}
	return nil
}

// DeleteExpired removes handles submitted before the cutoff.
func (s *Store) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM job_handles WHERE submitted_at < $1`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RecordResult stores the latest classification outcome for a handle.
func (s *Store) RecordResult(ctx context.Context, id string, status jobs.Status, result json.RawMessage) error {
	var payload pqtype.NullRawMessage
	if len(result) > 0 {
		payload = pqtype.NullRawMessage{RawMessage: result, Valid: true}
	}
	_, err := s.DB.ExecContext(ctx, `
		UPDATE job_handles SET status = $2, result = $3, updated_at = now()
		WHERE id = $1`, id, string(status), payload,
	)
	return err
}

// List returns handles newest first.
func (s *Store) List(ctx context.Context, limit, offset int) ([]jobs.Record, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, backend, features, submitted_at, status, result, updated_at
		FROM job_handles
		ORDER BY submitted_at DESC
		LIMIT $1 OFFSET $2`, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []jobs.Record
	for rows.Next() {
		var (
			rec    jobs.Record
			status string
			result pqtype.NullRawMessage
		)
		if err := rows.Scan(&rec.ID, &rec.Backend, &rec.Features, &rec.SubmittedAt, &status, &result, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.Status = jobs.Status(status)
		if result.Valid {
			rec.Result = result.RawMessage
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}
