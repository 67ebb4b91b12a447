package config

import "time"

const DefaultFileName = "pipelinedag.toml"

type Config struct {
	Version       int           `toml:"version"`
	Server        Server        `toml:"server"`
	CORS          CORS          `toml:"cors"`
	RateLimit     RateLimit     `toml:"rate_limit"`
	Observability Observability `toml:"observability"`
	Watch         Watch         `toml:"watch"`
}

type Server struct {
	Address         string        `toml:"address"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	RequestTimeout  time.Duration `toml:"request_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	MaxBodyBytes    int64         `toml:"max_body_bytes"`
	MaxNodes        int           `toml:"max_nodes"` // 0 disables the limit
	MaxEdges        int           `toml:"max_edges"` // 0 disables the limit
	ValidateSchema  *bool         `toml:"validate_schema"`
}

type CORS struct {
	AllowOrigins     []string      `toml:"allow_origins"` // glob patterns, e.g. https://*.vercel.app
	AllowMethods     []string      `toml:"allow_methods"`
	AllowHeaders     []string      `toml:"allow_headers"`
	AllowCredentials bool          `toml:"allow_credentials"`
	MaxAge           time.Duration `toml:"max_age"`
}

type RateLimit struct {
	Enabled           bool          `toml:"enabled"`
	RequestsPerMinute int           `toml:"requests_per_minute"`
	Burst             int           `toml:"burst"`
	IdleTTL           time.Duration `toml:"idle_ttl"`
}

type Observability struct {
	Enabled       bool    `toml:"enabled"`
	Address       string  `toml:"address"`
	EnableMetrics bool    `toml:"enable_metrics"`
	EnableTracing bool    `toml:"enable_tracing"`
	OTLPEndpoint  string  `toml:"otlp_endpoint"`
	Insecure      bool    `toml:"insecure"`
	ServiceName   string  `toml:"service_name"`
	SampleRate    float64 `toml:"sample_rate"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	Include  []string      `toml:"include"` // base-name globs for documents inside watched directories
	Exclude  []string      `toml:"exclude"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{
		CORS: CORS{
			AllowOrigins: []string{
				"http://localhost:3000",
				"https://frontend-indol-kappa-34.vercel.app",
			},
			AllowCredentials: true,
		},
		Observability: Observability{
			EnableMetrics: true,
		},
	}
	applyDefaults(cfg)
	return cfg
}

func (s Server) SchemaValidationEnabled() bool {
	if s.ValidateSchema == nil {
		return true
	}
	return *s.ValidateSchema
}
