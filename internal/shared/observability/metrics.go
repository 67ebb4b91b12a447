package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Validation outcomes recorded in ValidationsTotal.
const (
	ResultDAG     = "dag"
	ResultCyclic  = "cyclic"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

var graphSizeBuckets = prometheus.ExponentialBuckets(1, 4, 10)

// Metrics definitions
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipelinedag_http_requests_total",
		Help: "Total number of HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipelinedag_http_request_seconds",
		Help:    "Time spent serving HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	HTTPInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pipelinedag_http_in_flight_requests",
		Help: "Current number of HTTP requests being served.",
	})

	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pipelinedag_rate_limited_total",
		Help: "Total number of requests rejected by the per-client rate limiter.",
	})

	CORSRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pipelinedag_cors_rejected_total",
		Help: "Total number of cross-origin requests from origins outside the allow list.",
	})

	ValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipelinedag_validations_total",
		Help: "Total number of pipeline validations by outcome.",
	}, []string{"result"})

	DetectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipelinedag_detection_seconds",
		Help:    "Time spent running cycle detection on a pipeline graph.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	})

	GraphNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipelinedag_graph_nodes",
		Help:    "Number of nodes in validated pipeline graphs.",
		Buckets: graphSizeBuckets,
	})

	GraphEdges = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipelinedag_graph_edges",
		Help:    "Number of edges in validated pipeline graphs.",
		Buckets: graphSizeBuckets,
	})

	ConfigReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipelinedag_config_reloads_total",
		Help: "Total number of configuration reloads by result.",
	}, []string{"result"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pipelinedag_watcher_events_total",
		Help: "Total number of file system events seen while watching pipeline documents.",
	})
)
