package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lox/weatheretl/internal/models"
)

const defaultPageSize = 100

// SQLite is a local stand-in for the DynamoDB table. Rows are keyed by
// (city, timestamp) and hold the item as JSON text, which keeps numbers
// exactly as they were written.
type SQLite struct {
	db       *sql.DB
	log      *slog.Logger
	pageSize int
}

func NewSQLite(db *sql.DB, log *slog.Logger) *SQLite {
	if log == nil {
		log = slog.Default()
	}
	return &SQLite{db: db, log: log, pageSize: defaultPageSize}
}

// SetPageSize changes how many rows ScanPage returns at most.
func (s *SQLite) SetPageSize(n int) {
	if n > 0 {
		s.pageSize = n
	}
}

func (s *SQLite) PutItem(ctx context.Context, item models.Item) error {
	if err := item.RequireStrings(models.FieldCity, models.FieldTimestamp); err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	city, ts := item.Key()

	b, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO readings (city, timestamp, item_json, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(city, timestamp) DO UPDATE SET
			item_json = excluded.item_json,
			updated_at = excluded.updated_at
	`, city, ts, string(b), time.Now().UTC())
	return err
}

func (s *SQLite) ScanPage(ctx context.Context, start Cursor) (Page, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if len(start) == 0 {
		rows, err = s.db.QueryContext(ctx, `
			SELECT city, timestamp, item_json FROM readings
			ORDER BY city, timestamp
			LIMIT ?
		`, s.pageSize+1)
	} else {
		city, ts := models.Item(start).Key()
		rows, err = s.db.QueryContext(ctx, `
			SELECT city, timestamp, item_json FROM readings
			WHERE city > ? OR (city = ? AND timestamp > ?)
			ORDER BY city, timestamp
			LIMIT ?
		`, city, city, ts, s.pageSize+1)
	}
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	var page Page
	var lastCity, lastTS string
	for rows.Next() {
		var city, ts, raw string
		if err := rows.Scan(&city, &ts, &raw); err != nil {
			return Page{}, err
		}
		if len(page.Items) == s.pageSize {
			page.Next = Cursor{models.FieldCity: lastCity, models.FieldTimestamp: lastTS}
			break
		}
		item, err := models.ParseItem([]byte(raw))
		if err != nil {
			return Page{}, fmt.Errorf("decode row %s/%s: %w", city, ts, err)
		}
		page.Items = append(page.Items, item)
		lastCity, lastTS = city, ts
	}
	return page, rows.Err()
}

// Count returns the number of stored readings.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings`).Scan(&n)
	return n, err
}
