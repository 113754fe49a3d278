// Command weatheretl runs the pipeline stages locally: one-shot, as a Kafka
// consumer, or on a schedule.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/lox/weatheretl/internal/api"
	"github.com/lox/weatheretl/internal/app"
	"github.com/lox/weatheretl/internal/config"
	"github.com/lox/weatheretl/internal/logging"
	"github.com/lox/weatheretl/internal/models"
	"github.com/lox/weatheretl/internal/runner"
)

type CLI struct {
	Collect  CollectCmd  `cmd:"" help:"Fetch current Berlin weather and publish it to the stream."`
	Ingest   IngestCmd   `cmd:"" help:"Process a Kinesis batch event read from a file or stdin."`
	Export   ExportCmd   `cmd:"" help:"Export every stored reading to a dated CSV in blob storage."`
	Consume  ConsumeCmd  `cmd:"" help:"Consume the Kafka topic and ingest each polled batch."`
	Schedule ScheduleCmd `cmd:"" help:"Collect on an interval and export daily, with retries, serving /health and /metrics."`
	Migrate  MigrateCmd  `cmd:"" help:"Apply SQLite schema migrations."`
	Rejects  RejectsCmd  `cmd:"" help:"Show archived stream records the ingester skipped."`
}

type CollectCmd struct{}

func (c *CollectCmd) Run(ctx context.Context, a *app.App) error {
	h, err := a.Collector(ctx)
	if err != nil {
		return err
	}
	return printResult(h.Handle(ctx))
}

type IngestCmd struct {
	Event string `help:"Path to a JSON event file, or - for stdin." default:"-"`
}

func (c *IngestCmd) Run(ctx context.Context, a *app.App) error {
	h, err := a.Ingester(ctx)
	if err != nil {
		return err
	}

	var r io.Reader = os.Stdin
	if c.Event != "-" {
		f, err := os.Open(c.Event)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read event: %w", err)
	}
	return printResult(h.Handle(ctx, raw))
}

type ExportCmd struct{}

func (c *ExportCmd) Run(ctx context.Context, a *app.App) error {
	h, err := a.Exporter(ctx)
	if err != nil {
		return err
	}
	return printResult(h.Handle(ctx))
}

type ConsumeCmd struct{}

func (c *ConsumeCmd) Run(ctx context.Context, a *app.App) error {
	ing, err := a.Ingester(ctx)
	if err != nil {
		return err
	}
	src, err := a.Consumer()
	if err != nil {
		return err
	}
	return newRunner(ctx, a).Consume(ctx, src, ing.Handle)
}

type ScheduleCmd struct {
	Addr     string `help:"Listen address for /health and /metrics." env:"HTTP_ADDR"`
	NoExport bool   `help:"Only collect; skip the daily export."`
}

func (c *ScheduleCmd) Run(ctx context.Context, a *app.App) error {
	cfg := a.Config()
	if err := cfg.ValidateSchedule(); err != nil {
		return err
	}
	log := a.Logger()

	col, err := a.Collector(ctx)
	if err != nil {
		return err
	}
	var exportH runner.Handler
	if !c.NoExport {
		exp, err := a.Exporter(ctx)
		if err != nil {
			return err
		}
		exportH = exp.Handle
	}

	r := newRunner(ctx, a)
	sched := runner.NewScheduler(r, col.Handle, exportH, cfg.CollectInterval, cfg.ExportHour, log)
	if st, err := a.SQLite(ctx); err == nil {
		sched.SetRejectPruner(st, cfg.RejectRetentionDays)
	}
	go sched.Run(ctx)

	if cfg.StreamBackend == config.StreamKafka {
		ing, err := a.Ingester(ctx)
		if err != nil {
			return err
		}
		src, err := a.Consumer()
		if err != nil {
			return err
		}
		go func() {
			if err := r.Consume(ctx, src, ing.Handle); err != nil {
				log.Error("consumer stopped", "err", err)
			}
		}()
	}

	addr := c.Addr
	if addr == "" {
		addr = cfg.HTTPAddr
	}
	var lister api.InvocationLister
	if st, err := a.SQLite(ctx); err == nil {
		lister = st
	}
	return api.NewServer(addr, lister, log).Run(ctx)
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx context.Context, a *app.App) error {
	st, err := a.SQLite(ctx)
	if err != nil {
		return err
	}
	version, err := st.MigrationVersion(ctx)
	if err != nil {
		return err
	}
	a.Logger().Info("database migrated", "version", version)
	return nil
}

type RejectsCmd struct {
	ID int64 `arg:"" optional:"" help:"Print the payload of one archived record instead of the per-reason counts."`
}

func (c *RejectsCmd) Run(ctx context.Context, a *app.App) error {
	st, err := a.SQLite(ctx)
	if err != nil {
		return err
	}
	if c.ID > 0 {
		payload, err := st.GetReject(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("reject %d: %w", c.ID, err)
		}
		_, err = fmt.Fprintln(os.Stdout, string(payload))
		return err
	}
	counts, err := st.RejectCounts(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(counts)
}

// newRunner records invocations in SQLite when a database is configured.
func newRunner(ctx context.Context, a *app.App) *runner.Runner {
	if st, err := a.SQLite(ctx); err == nil {
		return runner.New(st, a.Logger())
	}
	return runner.New(nil, a.Logger())
}

func printResult(res models.Result, err error) error {
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if !res.Success() {
		return fmt.Errorf("status %d", res.StatusCode)
	}
	return nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("weatheretl"),
		kong.Description("Collect, ingest and export Berlin weather readings."),
		kong.UsageOnError(),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	cfg, err := config.Load()
	kctx.FatalIfErrorf(err)

	stage, _, _ := strings.Cut(kctx.Command(), " ")
	log := logging.New(cfg, stage)

	a := app.New(cfg, log)
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kctx.BindTo(ctx, (*context.Context)(nil))
	if err := kctx.Run(a); err != nil {
		log.Error("command failed", "command", kctx.Command(), "err", err)
		a.Close()
		os.Exit(1)
	}
}
