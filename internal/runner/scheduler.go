package runner

import (
	"context"
	"log/slog"
	"time"
)

// RejectPruner deletes archived stream rejects older than a retention period.
type RejectPruner interface {
	CleanupRejects(ctx context.Context, retentionDays int) (int64, error)
}

type Scheduler struct {
	runner        *Runner
	collect       Handler
	export        Handler
	interval      time.Duration
	exportHour    int
	now           func() time.Time
	lastExport    string
	pruner        RejectPruner
	retentionDays int
	log           *slog.Logger
}

// NewScheduler collects every interval and exports once a day at or after
// exportHour (UTC).
func NewScheduler(r *Runner, collect, export Handler, interval time.Duration, exportHour int, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		runner:     r,
		collect:    collect,
		export:     export,
		interval:   interval,
		exportHour: exportHour,
		now:        time.Now,
		log:        log,
	}
}

// SetRejectPruner prunes the reject archive once a day with the export.
func (s *Scheduler) SetRejectPruner(p RejectPruner, retentionDays int) {
	s.pruner = p
	s.retentionDays = retentionDays
}

func (s *Scheduler) Run(ctx context.Context) {
	s.runCollect(ctx)
	s.runExportIfDue(ctx)

	collectTicker := time.NewTicker(s.interval)
	exportTicker := time.NewTicker(15 * time.Minute)
	defer collectTicker.Stop()
	defer exportTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler: shutting down")
			return
		case <-collectTicker.C:
			s.runCollect(ctx)
		case <-exportTicker.C:
			s.runExportIfDue(ctx)
		}
	}
}

func (s *Scheduler) runCollect(ctx context.Context) {
	if s.collect == nil {
		return
	}
	s.runner.Invoke(ctx, "collect", s.collect)
}

func (s *Scheduler) runExportIfDue(ctx context.Context) {
	if s.export == nil {
		return
	}
	now := s.now().UTC()
	today := now.Format(time.DateOnly)
	if now.Hour() < s.exportHour || s.lastExport == today {
		return
	}
	// At most one export per UTC day, even when it fails.
	s.lastExport = today
	s.runner.Invoke(ctx, "export", s.export)
	s.pruneRejects(ctx)
}

func (s *Scheduler) pruneRejects(ctx context.Context) {
	if s.pruner == nil || s.retentionDays <= 0 {
		return
	}
	n, err := s.pruner.CleanupRejects(ctx, s.retentionDays)
	if err != nil {
		s.log.Warn("scheduler: reject cleanup failed", "err", err)
		return
	}
	if n > 0 {
		s.log.Info("scheduler: pruned rejected records", "deleted", n, "retention_days", s.retentionDays)
	}
}
