package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/lox/weatheretl/internal/config"
)

const appName = "weatheretl"

// New returns a colored console logger in dev and a JSON logger otherwise.
func New(cfg config.Config, stage string) *slog.Logger {
	return newLogger(os.Stdout, cfg, stage)
}

func newLogger(w io.Writer, cfg config.Config, stage string) *slog.Logger {
	if cfg.IsDev() {
		h := tint.NewHandler(w, &tint.Options{
			Level:      cfg.LogLevel,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("stage", stage)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})
	return slog.New(h).With(
		"app", appName,
		"stage", stage,
		"env", cfg.AppEnv,
	)
}
