package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"pipelinedag/internal/shared/util"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: PIPELINEDAG_[SECTION]_[KEY] (e.g., PIPELINEDAG_SERVER_ADDRESS).
func ApplyEnvOverrides(cfg *Config) {
	// Server
	setEnvString(&cfg.Server.Address, "PIPELINEDAG_SERVER_ADDRESS")
	setEnvDuration(&cfg.Server.ReadTimeout, "PIPELINEDAG_SERVER_READ_TIMEOUT")
	setEnvDuration(&cfg.Server.WriteTimeout, "PIPELINEDAG_SERVER_WRITE_TIMEOUT")
	setEnvDuration(&cfg.Server.RequestTimeout, "PIPELINEDAG_SERVER_REQUEST_TIMEOUT")
	setEnvInt64(&cfg.Server.MaxBodyBytes, "PIPELINEDAG_SERVER_MAX_BODY_BYTES")
	setEnvInt(&cfg.Server.MaxNodes, "PIPELINEDAG_SERVER_MAX_NODES")
	setEnvInt(&cfg.Server.MaxEdges, "PIPELINEDAG_SERVER_MAX_EDGES")

	// CORS
	setEnvList(&cfg.CORS.AllowOrigins, "PIPELINEDAG_CORS_ALLOW_ORIGINS")
	setEnvBool(&cfg.CORS.AllowCredentials, "PIPELINEDAG_CORS_ALLOW_CREDENTIALS")

	// Rate limit
	setEnvBool(&cfg.RateLimit.Enabled, "PIPELINEDAG_RATE_LIMIT_ENABLED")
	setEnvInt(&cfg.RateLimit.RequestsPerMinute, "PIPELINEDAG_RATE_LIMIT_REQUESTS_PER_MINUTE")
	setEnvInt(&cfg.RateLimit.Burst, "PIPELINEDAG_RATE_LIMIT_BURST")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "PIPELINEDAG_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.Address, "PIPELINEDAG_OBSERVABILITY_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "PIPELINEDAG_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "PIPELINEDAG_OBSERVABILITY_ENABLE_TRACING")
	setEnvBool(&cfg.Observability.EnableMetrics, "PIPELINEDAG_OBSERVABILITY_ENABLE_METRICS")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "PIPELINEDAG_WATCH_DEBOUNCE")
	setEnvList(&cfg.Watch.Include, "PIPELINEDAG_WATCH_INCLUDE")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = util.SplitList(val)
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvInt64(target *int64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
