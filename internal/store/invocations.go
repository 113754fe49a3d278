package store

import (
	"context"
	"database/sql"
	"time"
)

// Invocation records one locally scheduled stage run for auditing.
type Invocation struct {
	ID           int64
	Stage        string // "collect", "export"
	StartedAt    time.Time
	FinishedAt   sql.NullTime
	Attempts     int
	StatusCode   sql.NullInt64
	Body         sql.NullString
	Success      bool
	ErrorMessage sql.NullString
}

// StartInvocation creates a new invocation record and returns it.
func (s *SQLite) StartInvocation(ctx context.Context, stage string) (*Invocation, error) {
	inv := &Invocation{
		Stage:     stage,
		StartedAt: time.Now().UTC(),
		Attempts:  1,
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO invocations (stage, started_at, attempts, success)
		VALUES (?, ?, ?, FALSE)
	`, inv.Stage, inv.StartedAt, inv.Attempts)
	if err != nil {
		return nil, err
	}

	inv.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// CompleteInvocation updates the invocation with its outcome.
func (s *SQLite) CompleteInvocation(ctx context.Context, inv *Invocation) error {
	if inv == nil {
		return nil
	}

	inv.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	_, err := s.db.ExecContext(ctx, `
		UPDATE invocations SET
			finished_at = ?,
			attempts = ?,
			status_code = ?,
			body = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, inv.FinishedAt, inv.Attempts, inv.StatusCode, inv.Body, inv.Success, inv.ErrorMessage, inv.ID)
	return err
}

// RecentInvocations returns the latest invocations, newest first.
func (s *SQLite) RecentInvocations(ctx context.Context, limit int) ([]Invocation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, stage, started_at, finished_at, attempts, status_code, body, success, error_message
		FROM invocations
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Invocation
	for rows.Next() {
		var inv Invocation
		if err := rows.Scan(&inv.ID, &inv.Stage, &inv.StartedAt, &inv.FinishedAt, &inv.Attempts,
			&inv.StatusCode, &inv.Body, &inv.Success, &inv.ErrorMessage); err != nil {
			return nil, err
		}
		results = append(results, inv)
	}
	return results, rows.Err()
}
