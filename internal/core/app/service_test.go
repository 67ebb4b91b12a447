package app

import (
	"context"
	"testing"

	"pipelinedag/internal/core/config"
	"pipelinedag/internal/core/errors"
	"pipelinedag/internal/engine/graph"
	"pipelinedag/internal/shared/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	a, err := New(cfg)
	require.NoError(t, err)
	return a
}

func TestPipelineService_ParseDocument(t *testing.T) {
	svc := newTestApp(t, nil).PipelineService()

	tests := []struct {
		name string
		doc  string
		want graph.Summary
	}{
		{
			name: "empty",
			doc:  `{"nodes": [], "edges": []}`,
			want: graph.Summary{NumNodes: 0, NumEdges: 0, IsDAG: true},
		},
		{
			name: "single edge",
			doc:  `{"nodes": [{"id": "A"}, {"id": "B"}], "edges": [{"source": "A", "target": "B"}]}`,
			want: graph.Summary{NumNodes: 2, NumEdges: 1, IsDAG: true},
		},
		{
			name: "two cycle",
			doc:  `{"nodes": [{"id": "A"}, {"id": "B"}], "edges": [{"source": "A", "target": "B"}, {"source": "B", "target": "A"}]}`,
			want: graph.Summary{NumNodes: 2, NumEdges: 2, IsDAG: false},
		},
		{
			name: "self loop",
			doc:  `{"nodes": [{"id": "A"}], "edges": [{"source": "A", "target": "A"}]}`,
			want: graph.Summary{NumNodes: 1, NumEdges: 1, IsDAG: false},
		},
		{
			name: "dangling target",
			doc:  `{"nodes": [{"id": "A"}], "edges": [{"source": "A", "target": "nowhere"}]}`,
			want: graph.Summary{NumNodes: 1, NumEdges: 1, IsDAG: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ParseDocument(context.Background(), []byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPipelineService_InvalidInput(t *testing.T) {
	svc := newTestApp(t, nil).PipelineService()
	before := testutil.ToFloat64(observability.ValidationsTotal.WithLabelValues(observability.ResultInvalid))

	_, err := svc.ParseDocument(context.Background(), []byte(`{"nodes": [{"name": "no id"}], "edges": []}`))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidGraphInput))

	_, err = svc.ParseDocument(context.Background(), []byte(`{"nodes": "nope", "edges": []}`))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidGraphInput))

	after := testutil.ToFloat64(observability.ValidationsTotal.WithLabelValues(observability.ResultInvalid))
	assert.Equal(t, before+2, after)
}

func TestPipelineService_Limits(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) {
		cfg.Server.MaxNodes = 2
		cfg.Server.MaxEdges = 1
	})
	svc := a.PipelineService()

	_, err := svc.Parse(context.Background(), graph.Pipeline{
		Nodes: []graph.Node{{ID: "a"}, {ID: "b"}, {ID: "c"}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeLimitExceeded))
	assert.Contains(t, err.Error(), "max_nodes")

	_, err = svc.Parse(context.Background(), graph.Pipeline{
		Nodes: []graph.Node{{ID: "a"}},
		Edges: []graph.Edge{{Source: "a", Target: "a"}, {Source: "a", Target: "a"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_edges")

	// Raising the limits through a reload applies to the next call.
	next := config.DefaultConfig()
	require.NoError(t, a.UpdateConfig(next))
	got, err := svc.Parse(context.Background(), graph.Pipeline{
		Nodes: []graph.Node{{ID: "a"}, {ID: "b"}, {ID: "c"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, got.NumNodes)
}

func TestPipelineService_CanceledContext(t *testing.T) {
	svc := newTestApp(t, nil).PipelineService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Parse(ctx, graph.Pipeline{Nodes: []graph.Node{{ID: "a"}}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeTimeout))
}

func TestPipelineService_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(previous)

	svc := newTestApp(t, nil).PipelineService()
	_, err := svc.Parse(context.Background(), graph.Pipeline{
		Nodes: []graph.Node{{ID: "a"}, {ID: "b"}},
		Edges: []graph.Edge{{Source: "a", Target: "b"}, {Source: "b", Target: "a"}},
	})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "pipelineService.Parse", spans[0].Name())

	attrs := map[string]any{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, int64(2), attrs["pipeline.num_nodes"])
	assert.Equal(t, false, attrs["pipeline.is_dag"])
}

func TestApp_UpdateConfig(t *testing.T) {
	a := newTestApp(t, nil)

	var seen *config.Config
	a.OnConfigChange(func(cfg *config.Config) { seen = cfg })

	bad := config.DefaultConfig()
	bad.Version = 9
	assert.Error(t, a.UpdateConfig(bad))
	assert.Nil(t, seen)

	next := config.DefaultConfig()
	next.Server.MaxNodes = 7
	require.NoError(t, a.UpdateConfig(next))
	assert.Same(t, next, seen)
	assert.Equal(t, 7, a.Config().Server.MaxNodes)
}

func TestHealthService_Check(t *testing.T) {
	status := newTestApp(t, nil).HealthService().Check(context.Background())
	assert.Equal(t, "up", status.Status)
	assert.Equal(t, "ok", status.Components["detector"])
	assert.Contains(t, status.Components["config"], "ok")
	assert.Contains(t, status.Components["memory"], "MB heap")
	assert.Contains(t, status.Components["memory"], "goroutines")
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
