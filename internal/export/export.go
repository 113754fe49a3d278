// Package export snapshots the readings table into a dated CSV file in blob
// storage.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lox/weatheretl/internal/blob"
	"github.com/lox/weatheretl/internal/metrics"
	"github.com/lox/weatheretl/internal/models"
	"github.com/lox/weatheretl/internal/store"
)

var ErrNoRows = errors.New("no rows in table")

const NoRowsBody = "No data found in table; nothing exported."

// ObjectKey is the blob key for an export taken at now.
func ObjectKey(now time.Time) string {
	return "weather_data_" + now.UTC().Format(time.DateOnly) + ".csv"
}

type Exporter struct {
	table   store.Table
	blob    blob.Uploader
	log     *slog.Logger
	now     func() time.Time
	tempDir string
}

func New(table store.Table, uploader blob.Uploader, log *slog.Logger) *Exporter {
	if log == nil {
		log = slog.Default()
	}
	return &Exporter{
		table: table,
		blob:  uploader,
		log:   log,
		now:   time.Now,
	}
}

// SetTempDir overrides where the CSV is staged before upload.
func (e *Exporter) SetTempDir(dir string) {
	e.tempDir = dir
}

// Export writes every row to a temporary CSV and uploads it, returning the
// object key and row count. The temporary file is always removed.
func (e *Exporter) Export(ctx context.Context) (string, int, error) {
	items, err := store.ScanAll(ctx, e.table)
	if err != nil {
		return "", 0, fmt.Errorf("scan table: %w", err)
	}
	if len(items) == 0 {
		return "", 0, ErrNoRows
	}

	rows := make([]Row, len(items))
	for i, item := range items {
		rows[i] = Flatten(item)
	}

	now := e.now().UTC()
	key := ObjectKey(now)

	f, err := os.CreateTemp(e.tempDir, "weather_data_*_"+now.Format(time.DateOnly)+".csv")
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		if err := os.Remove(f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			e.log.Warn("failed to remove temp file", "path", f.Name(), "err", err)
		}
	}()

	if err := WriteCSV(f, rows); err != nil {
		return "", 0, fmt.Errorf("write csv: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", 0, fmt.Errorf("rewind csv: %w", err)
	}

	if err := e.blob.Upload(ctx, key, f); err != nil {
		return "", 0, err
	}

	metrics.RowsExported.Add(float64(len(rows)))
	e.log.Info("export uploaded",
		"backend", e.blob.Backend(),
		"bucket", e.blob.Bucket(),
		"key", key,
		"rows", len(rows),
	)
	return key, len(rows), nil
}

// Handle runs one export and maps the outcome onto the result envelope. An
// empty table is reported as success with nothing uploaded.
func (e *Exporter) Handle(ctx context.Context) (models.Result, error) {
	key, _, err := e.Export(ctx)
	switch {
	case errors.Is(err, ErrNoRows):
		e.log.Info("table is empty, skipping upload")
		return models.OK(NoRowsBody), nil
	case err != nil:
		e.log.Error("export failed", "err", err)
		return models.Failure(fmt.Sprintf("An error occurred: %v", err)), nil
	}
	return models.OK(fmt.Sprintf("Data successfully saved to %s as %s in bucket %s.",
		e.blob.Backend(), key, e.blob.Bucket())), nil
}
