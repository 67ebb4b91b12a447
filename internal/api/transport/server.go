// Package transport serves the pipeline validation API over HTTP.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"pipelinedag/internal/api/openapi"
	"pipelinedag/internal/core/app"
	"pipelinedag/internal/core/config"
	"pipelinedag/internal/shared/util"
)

const defaultLimiterTTL = 10 * time.Minute

type Server struct {
	app      *app.App
	contract *openapi.Contract
	mux      *http.ServeMux
	handler  http.Handler
	server   *http.Server
	limiters *util.LimiterRegistry

	corsPolicy atomic.Pointer[corsPolicy]
}

// NewServer builds the HTTP API on top of a. CORS and rate limit settings
// follow configuration reloads; listener settings need a restart.
func NewServer(a *app.App, contract *openapi.Contract) (*Server, error) {
	if a == nil {
		return nil, fmt.Errorf("app is required")
	}
	if contract == nil {
		return nil, fmt.Errorf("openapi contract is required")
	}

	cfg := a.Config()
	policy, err := newCORSPolicy(cfg.CORS)
	if err != nil {
		return nil, fmt.Errorf("cors: %w", err)
	}

	ttl := cfg.RateLimit.IdleTTL
	if ttl <= 0 {
		ttl = defaultLimiterTTL
	}

	s := &Server{
		app:      a,
		contract: contract,
		mux:      http.NewServeMux(),
		limiters: util.NewLimiterRegistryPerMinute(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst, ttl),
	}
	s.corsPolicy.Store(policy)
	s.routes()
	s.handler = recoverer(requestID(s.instrument(s.cors(s.rateLimit(s.timeout(s.mux))))))

	a.OnConfigChange(s.applyConfig)
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handlePing)
	s.mux.HandleFunc("POST /pipelines/parse", s.handleParse)
	s.mux.HandleFunc("GET /openapi.json", s.handleOpenAPI)
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) applyConfig(cfg *config.Config) {
	policy, err := newCORSPolicy(cfg.CORS)
	if err != nil {
		slog.Warn("keeping previous CORS policy", "error", err)
	} else {
		s.corsPolicy.Store(policy)
	}
	s.limiters.Update(float64(cfg.RateLimit.RequestsPerMinute)/60.0, cfg.RateLimit.Burst)
	slog.Info("http api configuration applied",
		"origins", len(cfg.CORS.AllowOrigins),
		"rate_limit", cfg.RateLimit.Enabled,
	)
}

// Start listens on the configured address and blocks until ctx is done or
// the listener fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.app.Config().Server.Address)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	cfg := s.app.Config().Server
	s.server = &http.Server{
		Handler:           s.handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("http api listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		s.limiters.Close()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	}
}

// Stop drains in-flight requests and releases the limiter sweeper.
func (s *Server) Stop(ctx context.Context) error {
	s.limiters.Close()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
