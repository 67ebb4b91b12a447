package cli

import (
	"context"
	"log/slog"
	"time"

	"pipelinedag/internal/api/openapi"
	"pipelinedag/internal/api/transport"
	coreapp "pipelinedag/internal/core/app"
	"pipelinedag/internal/core/config"
	"pipelinedag/internal/shared/observability"
)

const shutdownGrace = 5 * time.Second

// runServe hosts the HTTP API until ctx is cancelled. When cfgPath is set the
// file is watched and reloads are applied to the running server.
func runServe(ctx context.Context, app *coreapp.App, cfgPath string) int {
	cfg := app.Config()

	tp, err := observability.InitTracing(ctx, cfg.Observability)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		return exitFailure
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := observability.ShutdownTracing(shutdownCtx, tp); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	contract, err := openapi.Load(ctx)
	if err != nil {
		slog.Error("failed to load API contract", "error", err)
		return exitFailure
	}

	server, err := transport.NewServer(app, contract)
	if err != nil {
		slog.Error("failed to build HTTP server", "error", err)
		return exitFailure
	}

	if cfg.Observability.Enabled {
		obs := transport.NewObservabilityServer(cfg.Observability.Address, cfg.Observability.EnableMetrics, app.HealthService())
		if err := obs.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "error", err)
			return exitFailure
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			_ = obs.Stop(stopCtx)
		}()
	}

	if cfgPath != "" {
		watcher := config.NewWatcher(cfgPath, cfg.Watch.Debounce, func(next *config.Config, err error) {
			if err == nil {
				err = app.UpdateConfig(next)
			}
			if err != nil {
				observability.ConfigReloadsTotal.WithLabelValues("rejected").Inc()
				slog.Error("config reload rejected", "error", err)
				return
			}
			observability.ConfigReloadsTotal.WithLabelValues("applied").Inc()
		})
		if err := watcher.Start(ctx); err != nil {
			slog.Warn("config hot reload disabled", "path", cfgPath, "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	if err := server.Start(ctx); err != nil {
		slog.Error("http api failed", "error", err)
		return exitFailure
	}
	slog.Info("http api stopped")
	return exitOK
}
