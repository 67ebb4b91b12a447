package app

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"pipelinedag/internal/core/config"
	"pipelinedag/internal/core/ports"
)

// App owns the live configuration and the services built on it.
type App struct {
	cfg       atomic.Pointer[config.Config]
	pipelines *pipelineService
	health    *HealthService
	listeners []func(*config.Config)
}

func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{}
	a.cfg.Store(cfg)
	a.pipelines = &pipelineService{app: a}
	a.health = NewHealthService(a)
	return a, nil
}

// Config returns the configuration currently in effect.
func (a *App) Config() *config.Config {
	return a.cfg.Load()
}

// OnConfigChange registers fn to run after every successful UpdateConfig.
// It must be called before the app is shared between goroutines.
func (a *App) OnConfigChange(fn func(*config.Config)) {
	a.listeners = append(a.listeners, fn)
}

// UpdateConfig swaps in a reloaded configuration. Server address and
// observability settings only take effect on restart.
func (a *App) UpdateConfig(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	prev := a.cfg.Swap(cfg)
	if prev != nil && prev.Server.Address != cfg.Server.Address {
		slog.Warn("server.address changed; restart required to apply", "old", prev.Server.Address, "new", cfg.Server.Address)
	}
	for _, fn := range a.listeners {
		fn(cfg)
	}
	return nil
}

func (a *App) PipelineService() ports.PipelineService {
	return a.pipelines
}

func (a *App) HealthService() *HealthService {
	return a.health
}
