package store

import (
	"context"
	"fmt"

	"github.com/lox/weatheretl/internal/models"
)

// Cursor marks where the next scan page starts. A nil cursor means the
// beginning of the table (or, when returned in a Page, that the scan is done).
type Cursor models.Item

type Page struct {
	Items []models.Item
	Next  Cursor
}

// Table is a key-value table keyed by (city, timestamp). PutItem is an
// unconditional upsert: the last write for a key wins.
type Table interface {
	PutItem(ctx context.Context, item models.Item) error
	ScanPage(ctx context.Context, start Cursor) (Page, error)
}

// ScanAll reads every item, following continuation cursors until exhausted.
func ScanAll(ctx context.Context, t Table) ([]models.Item, error) {
	var (
		items  []models.Item
		cursor Cursor
		pages  int
	)
	for {
		page, err := t.ScanPage(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("scan page %d: %w", pages+1, err)
		}
		pages++
		items = append(items, page.Items...)
		if len(page.Next) == 0 {
			return items, nil
		}
		cursor = page.Next
	}
}
