// Package runner plays the part of the invoking platform when the stages run
// outside Lambda: it retries failed invocations, records them, and drives
// them on a schedule.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lox/weatheretl/internal/metrics"
	"github.com/lox/weatheretl/internal/models"
	"github.com/lox/weatheretl/internal/store"
)

// Handler is one stage invocation.
type Handler func(ctx context.Context) (models.Result, error)

// Recorder persists an audit row per invocation.
type Recorder interface {
	StartInvocation(ctx context.Context, stage string) (*store.Invocation, error)
	CompleteInvocation(ctx context.Context, inv *store.Invocation) error
}

type Runner struct {
	recorder   Recorder
	log        *slog.Logger
	newBackOff func() backoff.BackOff
}

// New returns a Runner. recorder may be nil.
func New(recorder Recorder, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		recorder:   recorder,
		log:        log,
		newBackOff: defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Second
	bo.MaxElapsedTime = 2 * time.Minute
	return bo
}

// Invoke runs h, retrying 5xx results and errors with exponential backoff.
// A 4xx result is not retried.
func (r *Runner) Invoke(ctx context.Context, stage string, h Handler) (models.Result, error) {
	var inv *store.Invocation
	if r.recorder != nil {
		var err error
		if inv, err = r.recorder.StartInvocation(ctx, stage); err != nil {
			r.log.Warn("failed to record invocation start", "stage", stage, "err", err)
		}
	}

	var (
		res      models.Result
		attempts int
	)
	operation := func() error {
		attempts++
		var err error
		res, err = h(ctx)
		if err != nil {
			return err
		}
		if res.Success() {
			return nil
		}
		failure := fmt.Errorf("%s returned status %d: %s", stage, res.StatusCode, res.Body)
		if res.StatusCode >= 400 && res.StatusCode < 500 {
			return backoff.Permanent(failure)
		}
		return failure
	}
	notify := func(err error, wait time.Duration) {
		metrics.InvocationRetries.WithLabelValues(stage).Inc()
		r.log.Warn("invocation failed, retrying", "stage", stage, "attempt", attempts, "wait", wait, "err", err)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(r.newBackOff(), ctx), notify)
	metrics.InvocationsTotal.WithLabelValues(stage, strconv.Itoa(res.StatusCode)).Inc()

	if err != nil {
		r.log.Error("invocation failed", "stage", stage, "attempts", attempts, "err", err)
	} else {
		r.log.Info("invocation complete", "stage", stage, "attempts", attempts, "status", res.StatusCode)
	}

	if inv != nil {
		inv.Attempts = attempts
		inv.Success = err == nil
		inv.StatusCode.Int64, inv.StatusCode.Valid = int64(res.StatusCode), res.StatusCode != 0
		inv.Body.String, inv.Body.Valid = res.Body, res.Body != ""
		if err != nil {
			inv.ErrorMessage.String, inv.ErrorMessage.Valid = err.Error(), true
		}
		// The invocation context may already be cancelled; the audit row
		// should still be closed out.
		if cerr := r.recorder.CompleteInvocation(context.WithoutCancel(ctx), inv); cerr != nil {
			r.log.Warn("failed to record invocation result", "stage", stage, "err", cerr)
		}
	}
	return res, err
}
