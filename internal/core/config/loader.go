package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decode(path, data)
}

// decode builds a validated config from the raw TOML read from path.
func decode(path string, data []byte) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	ApplyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	normalizeCORS(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path, falling back to DefaultConfig when the file does
// not exist. Any other error is returned.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	cfg = DefaultConfig()
	ApplyEnvOverrides(cfg)
	applyDefaults(cfg)
	normalizeCORS(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Server.Address) == "" {
		cfg.Server.Address = "127.0.0.1:8000"
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 5 * time.Second
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 5 * time.Second
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		cfg.Server.MaxBodyBytes = 8 << 20 // 8 MiB
	}

	if len(cfg.CORS.AllowMethods) == 0 {
		cfg.CORS.AllowMethods = []string{"*"}
	}
	if len(cfg.CORS.AllowHeaders) == 0 {
		cfg.CORS.AllowHeaders = []string{"*"}
	}
	if cfg.CORS.MaxAge <= 0 {
		cfg.CORS.MaxAge = 10 * time.Minute
	}

	if cfg.RateLimit.RequestsPerMinute <= 0 {
		cfg.RateLimit.RequestsPerMinute = 600
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 20
	}
	if cfg.RateLimit.IdleTTL <= 0 {
		cfg.RateLimit.IdleTTL = 10 * time.Minute
	}

	if strings.TrimSpace(cfg.Observability.Address) == "" {
		cfg.Observability.Address = "127.0.0.1:9464"
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "pipelinedag"
	}
	if cfg.Observability.SampleRate <= 0 {
		cfg.Observability.SampleRate = 1.0
	}

	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 250 * time.Millisecond
	}
	if len(cfg.Watch.Include) == 0 {
		cfg.Watch.Include = []string{"*.json"}
	}
	if cfg.Watch.Exclude == nil {
		cfg.Watch.Exclude = []string{".git", "node_modules"}
	}
}

// normalizeCORS trims whitespace and trailing slashes. Browsers never send a
// trailing slash in the Origin header.
func normalizeCORS(cfg *Config) {
	origins := make([]string, 0, len(cfg.CORS.AllowOrigins))
	for _, origin := range cfg.CORS.AllowOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	cfg.CORS.AllowOrigins = origins
}

// Validate returns the first configuration problem found.
func Validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validateServer,
		validateCORS,
		validateRateLimit,
		validateObservability,
		validateWatch,
	} {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateServer(cfg *Config) error {
	if strings.TrimSpace(cfg.Server.Address) == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if cfg.Server.MaxNodes < 0 {
		return fmt.Errorf("server.max_nodes must be >= 0, got %d", cfg.Server.MaxNodes)
	}
	if cfg.Server.MaxEdges < 0 {
		return fmt.Errorf("server.max_edges must be >= 0, got %d", cfg.Server.MaxEdges)
	}
	if cfg.Server.RequestTimeout > cfg.Server.WriteTimeout {
		return fmt.Errorf("server.request_timeout (%s) must not exceed server.write_timeout (%s)",
			cfg.Server.RequestTimeout, cfg.Server.WriteTimeout)
	}
	return nil
}

func validateCORS(cfg *Config) error {
	for i, origin := range cfg.CORS.AllowOrigins {
		if origin == "*" {
			continue
		}
		if _, err := glob.Compile(origin, '.'); err != nil {
			return fmt.Errorf("cors.allow_origins[%d] %q is not a valid pattern: %w", i, origin, err)
		}
	}
	for i, method := range cfg.CORS.AllowMethods {
		if strings.TrimSpace(method) == "" {
			return fmt.Errorf("cors.allow_methods[%d] must not be empty", i)
		}
	}
	return nil
}

func validateRateLimit(cfg *Config) error {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	if cfg.RateLimit.Burst < 1 {
		return fmt.Errorf("rate_limit.burst must be >= 1 when rate limiting is enabled")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	obs := cfg.Observability
	if obs.SampleRate > 1 {
		return fmt.Errorf("observability.sample_rate must be within (0, 1], got %v", obs.SampleRate)
	}
	if obs.Enabled && obs.EnableTracing && strings.TrimSpace(obs.OTLPEndpoint) == "" {
		return fmt.Errorf("observability.otlp_endpoint is required when tracing is enabled")
	}
	if obs.Enabled && obs.Address == cfg.Server.Address {
		return fmt.Errorf("observability.address must differ from server.address (%s)", obs.Address)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	for i, pattern := range cfg.Watch.Include {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("watch.include[%d] %q is not a valid pattern: %w", i, pattern, err)
		}
	}
	for i, pattern := range cfg.Watch.Exclude {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("watch.exclude[%d] %q is not a valid pattern: %w", i, pattern, err)
		}
	}
	return nil
}
