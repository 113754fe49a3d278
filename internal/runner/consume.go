package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lox/weatheretl/internal/ingest"
	"github.com/lox/weatheretl/internal/models"
	"github.com/lox/weatheretl/internal/stream"
)

// Source yields batches of raw stream payloads.
type Source interface {
	Poll(ctx context.Context) ([][]byte, error)
}

// BatchHandler handles one Kinesis-shaped batch event.
type BatchHandler func(ctx context.Context, event json.RawMessage) (models.Result, error)

// Consume feeds every polled batch to h until ctx ends or the source closes.
func (r *Runner) Consume(ctx context.Context, src Source, h BatchHandler) error {
	for {
		values, err := src.Poll(ctx)
		switch {
		case ctx.Err() != nil, errors.Is(err, stream.ErrClosed):
			return nil
		case err != nil:
			return fmt.Errorf("poll: %w", err)
		}
		if len(values) == 0 {
			continue
		}

		event, err := ingest.EventFromPayloads(values)
		if err != nil {
			return err
		}
		r.Invoke(ctx, "ingest", func(ctx context.Context) (models.Result, error) {
			return h(ctx, event)
		})
	}
}
