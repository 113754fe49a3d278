package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// ArchiveReject stores a gzip-compressed copy of a stream record the
// ingester skipped. Identical payloads are kept once; the returned id is 0
// for a duplicate.
func (s *SQLite) ArchiveReject(ctx context.Context, reason, detail string, payload []byte) (int64, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return 0, fmt.Errorf("compress payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("close gzip: %w", err)
	}

	hash := sha256.Sum256(payload)

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO rejected_records (rejected_at, reason, detail, payload_compressed, payload_hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(payload_hash) DO NOTHING
	`, time.Now().UTC(), reason, detail, buf.Bytes(), hex.EncodeToString(hash[:]))
	if err != nil {
		return 0, fmt.Errorf("insert rejected record: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return 0, err
	}
	return result.LastInsertId()
}

// GetReject returns the decompressed payload of a rejected record.
func (s *SQLite) GetReject(ctx context.Context, id int64) ([]byte, error) {
	var compressed []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload_compressed FROM rejected_records WHERE id = ?`, id).
		Scan(&compressed)
	if err != nil {
		return nil, err
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()
	return io.ReadAll(gz)
}

// RejectCounts returns the number of archived records per skip reason.
func (s *SQLite) RejectCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT reason, COUNT(*) FROM rejected_records GROUP BY reason
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, err
		}
		counts[reason] = n
	}
	return counts, rows.Err()
}

// CleanupRejects deletes archived records older than retentionDays.
func (s *SQLite) CleanupRejects(ctx context.Context, retentionDays int) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM rejected_records
		WHERE rejected_at < ?
	`, time.Now().UTC().AddDate(0, 0, -retentionDays))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
