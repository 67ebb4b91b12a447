package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"pipelinedag/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ObservabilityServer exposes /metrics and /health on a separate listener.
type ObservabilityServer struct {
	addr    string
	metrics bool
	health  ports.HealthChecker
	server  *http.Server
}

func NewObservabilityServer(addr string, enableMetrics bool, health ports.HealthChecker) *ObservabilityServer {
	return &ObservabilityServer{
		addr:    addr,
		metrics: enableMetrics,
		health:  health,
	}
}

func (s *ObservabilityServer) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := s.health.Check(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if status.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			slog.Debug("write health response failed", "error", err)
		}
	})
	return mux
}

// Start returns once the listener goroutine is running.
func (s *ObservabilityServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	slog.Info("observability server starting", "addr", s.addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("observability server failed", "error", err)
		}
	}()

	return nil
}

func (s *ObservabilityServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
