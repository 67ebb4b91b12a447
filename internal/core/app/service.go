package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pipelinedag/internal/core/errors"
	"pipelinedag/internal/core/ports"
	"pipelinedag/internal/engine/graph"
	"pipelinedag/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type pipelineService struct {
	app *App
}

var _ ports.PipelineService = (*pipelineService)(nil)

func (s *pipelineService) ParseDocument(ctx context.Context, data []byte) (graph.Summary, error) {
	p, err := graph.ParsePipeline(data)
	if err != nil {
		observability.ValidationsTotal.WithLabelValues(observability.ResultInvalid).Inc()
		return graph.Summary{}, errors.FromGraph(err)
	}
	return s.Parse(ctx, p)
}

func (s *pipelineService) Parse(ctx context.Context, p graph.Pipeline) (graph.Summary, error) {
	ctx, span := observability.Tracer().Start(ctx, "pipelineService.Parse", trace.WithAttributes(
		attribute.Int("pipeline.num_nodes", len(p.Nodes)),
		attribute.Int("pipeline.num_edges", len(p.Edges)),
	))
	defer span.End()

	summary, err := s.parse(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(errors.CodeOf(err)))
		return graph.Summary{}, err
	}
	span.SetAttributes(attribute.Bool("pipeline.is_dag", summary.IsDAG))
	return summary, nil
}

func (s *pipelineService) parse(ctx context.Context, p graph.Pipeline) (graph.Summary, error) {
	if err := ctx.Err(); err != nil {
		observability.ValidationsTotal.WithLabelValues(observability.ResultError).Inc()
		return graph.Summary{}, errors.FromGraph(err)
	}
	if err := s.checkLimits(p); err != nil {
		observability.ValidationsTotal.WithLabelValues(observability.ResultInvalid).Inc()
		return graph.Summary{}, err
	}

	observability.GraphNodes.Observe(float64(len(p.Nodes)))
	observability.GraphEdges.Observe(float64(len(p.Edges)))

	start := time.Now()
	summary, err := graph.Analyze(ctx, p)
	elapsed := time.Since(start)
	observability.DetectionDuration.Observe(elapsed.Seconds())

	if err != nil {
		result := observability.ResultInvalid
		if !errors.IsCode(err, errors.CodeInvalidGraphInput) {
			result = observability.ResultError
		}
		observability.ValidationsTotal.WithLabelValues(result).Inc()
		return graph.Summary{}, errors.FromGraph(err)
	}

	result := observability.ResultDAG
	if !summary.IsDAG {
		result = observability.ResultCyclic
	}
	observability.ValidationsTotal.WithLabelValues(result).Inc()

	slog.Debug("pipeline validated",
		"num_nodes", summary.NumNodes,
		"num_edges", summary.NumEdges,
		"is_dag", summary.IsDAG,
		"elapsed", elapsed,
	)
	return summary, nil
}

func (s *pipelineService) checkLimits(p graph.Pipeline) error {
	limits := s.app.Config().Server
	if limits.MaxNodes > 0 && len(p.Nodes) > limits.MaxNodes {
		err := errors.New(errors.CodeLimitExceeded, fmt.Sprintf("pipeline has %d nodes, limit is %d", len(p.Nodes), limits.MaxNodes))
		return errors.AddContext(err, errors.CtxLimit, "max_nodes")
	}
	if limits.MaxEdges > 0 && len(p.Edges) > limits.MaxEdges {
		err := errors.New(errors.CodeLimitExceeded, fmt.Sprintf("pipeline has %d edges, limit is %d", len(p.Edges), limits.MaxEdges))
		return errors.AddContext(err, errors.CtxLimit, "max_edges")
	}
	return nil
}
