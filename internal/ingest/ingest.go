// Package ingest persists stream-delivered weather readings into the table.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lox/weatheretl/internal/metrics"
	"github.com/lox/weatheretl/internal/models"
	"github.com/lox/weatheretl/internal/store"
)

const SuccessBody = "Data processed and stored successfully!"

// Outcome is the result for one record of a batch.
type Outcome struct {
	Index     int
	Written   bool
	Reason    SkipReason
	Err       error
	City      string
	Timestamp string
}

type Summary struct {
	Outcomes []Outcome
	Written  int
	Skipped  map[SkipReason]int
}

func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	if o.Written {
		s.Written++
		metrics.RecordsProcessed.WithLabelValues("written", "").Inc()
		return
	}
	s.Skipped[o.Reason]++
	metrics.RecordsProcessed.WithLabelValues("skipped", string(o.Reason)).Inc()
}

// RejectArchive keeps a copy of skipped records for later inspection.
type RejectArchive interface {
	ArchiveReject(ctx context.Context, reason, detail string, payload []byte) (int64, error)
}

type Ingester struct {
	table   store.Table
	rejects RejectArchive
	log     *slog.Logger
}

func New(table store.Table, log *slog.Logger) *Ingester {
	if log == nil {
		log = slog.Default()
	}
	return &Ingester{table: table, log: log}
}

// SetRejectArchive archives every skipped record except empty payloads.
func (i *Ingester) SetRejectArchive(a RejectArchive) {
	i.rejects = a
}

// Process folds a raw batch event into per-record outcomes. Bad records are
// skipped; the returned error is reserved for a malformed batch or a failed
// table write.
func (i *Ingester) Process(ctx context.Context, raw []byte) (*Summary, error) {
	records, err := parseEvent(raw)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Skipped: make(map[SkipReason]int)}
	for idx, rec := range records {
		out, err := i.processRecord(ctx, idx, rec)
		if err != nil {
			return sum, err
		}
		sum.add(out)
		if !out.Written {
			i.archive(ctx, out, rec)
		}
	}

	i.log.Info("batch processed",
		"records", len(records),
		"written", sum.Written,
		"skipped", len(records)-sum.Written,
		"skip_reasons", sum.Skipped,
	)
	return sum, nil
}

func (i *Ingester) processRecord(ctx context.Context, idx int, raw json.RawMessage) (Outcome, error) {
	out := Outcome{Index: idx}
	skip := func(reason SkipReason, err error) (Outcome, error) {
		out.Reason, out.Err = reason, err
		i.log.Warn("record skipped", "index", idx, "reason", reason, "err", err)
		return out, nil
	}

	data, ok := recordData(raw)
	if !ok {
		i.log.Warn("invalid record structure", "index", idx, "record", string(raw))
		out.Reason = SkipInvalidStructure
		return out, nil
	}
	i.log.Debug("raw record data", "index", idx, "data", data)

	if strings.TrimSpace(data) == "" {
		i.log.Info("empty data received, skipping", "index", idx)
		out.Reason = SkipEmptyPayload
		return out, nil
	}

	text, err := decodePayload(data)
	if err != nil {
		return skip(SkipBadEncoding, err)
	}
	i.log.Debug("decoded record data", "index", idx, "data", text)

	item, err := models.ParseItem([]byte(text))
	if err != nil {
		return skip(SkipBadJSON, err)
	}
	i.log.Debug("parsed record", "index", idx, "fields", len(item))

	if err := ValidateItem(item); err != nil {
		return skip(SkipMissingField, err)
	}

	out.City, out.Timestamp = item.Key()
	if err := i.table.PutItem(ctx, item); err != nil {
		return out, fmt.Errorf("write record %d (%s, %s): %w", idx, out.City, out.Timestamp, err)
	}
	out.Written = true
	i.log.Info("record written", "index", idx, "city", out.City, "timestamp", out.Timestamp)
	return out, nil
}

func (i *Ingester) archive(ctx context.Context, out Outcome, raw json.RawMessage) {
	if i.rejects == nil || out.Reason == SkipEmptyPayload {
		return
	}
	detail := ""
	if out.Err != nil {
		detail = out.Err.Error()
	}
	if _, err := i.rejects.ArchiveReject(ctx, string(out.Reason), detail, raw); err != nil {
		i.log.Warn("failed to archive rejected record", "index", out.Index, "err", err)
	}
}

// Handle processes one batch event and maps the outcome onto the result
// envelope. Individual bad records never turn the result into a failure.
func (i *Ingester) Handle(ctx context.Context, raw json.RawMessage) (models.Result, error) {
	if _, err := i.Process(ctx, raw); err != nil {
		i.log.Error("error processing event", "err", err)
		return models.Failure(fmt.Sprintf("An error occurred: %v", err)), nil
	}
	return models.OK(SuccessBody), nil
}
