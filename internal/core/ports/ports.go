package ports

import (
	"context"
	"time"

	"pipelinedag/internal/engine/graph"
)

// PipelineService validates pipeline graphs for driving adapters (HTTP, CLI).
type PipelineService interface {
	// Parse returns node/edge counts and whether the graph is acyclic.
	Parse(ctx context.Context, p graph.Pipeline) (graph.Summary, error)
	// ParseDocument decodes a JSON pipeline document and parses it.
	ParseDocument(ctx context.Context, data []byte) (graph.Summary, error)
}

// HealthStatus is served on the observability listener.
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components"`
}

// HealthChecker reports component status.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}
