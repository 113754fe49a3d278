// Package api serves health and metrics endpoints for the local scheduler.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/weatheretl/internal/store"
)

// InvocationLister reads the invocation audit log.
type InvocationLister interface {
	RecentInvocations(ctx context.Context, limit int) ([]store.Invocation, error)
}

type Server struct {
	addr        string
	invocations InvocationLister
	log         *slog.Logger
}

// NewServer returns a server on addr. invocations may be nil, in which case
// /health only reports liveness.
func NewServer(addr string, invocations InvocationLister, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{addr: addr, invocations: invocations, log: log}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.log.Info("status server listening", "addr", s.addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

type HealthStatus struct {
	Status string        `json:"status"`
	Stages []StageHealth `json:"stages,omitempty"`
	Errors []string      `json:"errors,omitempty"`
}

type StageHealth struct {
	Stage      string    `json:"stage"`
	LastRun    time.Time `json:"last_run"`
	StatusCode int64     `json:"status_code,omitempty"`
	Attempts   int       `json:"attempts"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{Status: "ok"}

	if s.invocations != nil {
		invs, err := s.invocations.RecentInvocations(r.Context(), 50)
		if err != nil {
			health.Status = "error"
			health.Errors = append(health.Errors, err.Error())
		}

		// Newest first, so the first row per stage is its latest run.
		seen := map[string]bool{}
		for _, inv := range invs {
			if seen[inv.Stage] || !inv.FinishedAt.Valid {
				continue
			}
			seen[inv.Stage] = true

			sh := StageHealth{
				Stage:      inv.Stage,
				LastRun:    inv.StartedAt,
				StatusCode: inv.StatusCode.Int64,
				Attempts:   inv.Attempts,
				OK:         inv.Success,
				Error:      inv.ErrorMessage.String,
			}
			if !sh.OK && health.Status == "ok" {
				health.Status = "degraded"
			}
			health.Stages = append(health.Stages, sh)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if health.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.log.Warn("health: write response", "err", err)
	}
}
