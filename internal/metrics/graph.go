package metrics

import "github.com/prometheus/client_golang/prometheus"

// Graph pipeline Prometheus metrics.
var (
	GraphBuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "semgraph",
			Name:      "graph_builds_total",
			Help:      "Total number of visualization graph computations",
		},
		[]string{"status"}, // "success" / "error"
	)

	GraphBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "semgraph",
			Name:      "graph_build_duration_seconds",
			Help:      "Full pipeline duration per graph computation",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	GraphCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "semgraph",
			Name:      "graph_cache_total",
			Help:      "Graph cache lookups by outcome",
		},
		[]string{"result"}, // "hit_memory" / "hit_store" / "miss"
	)

	GraphSegments = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "semgraph",
			Name:      "graph_segments",
			Help:      "Number of segments per computed graph",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
		},
	)
)

var graphMetricsRegistered bool

// RegisterGraphMetrics registers Prometheus graph metrics. Must be called once from main.
func RegisterGraphMetrics() {
	if graphMetricsRegistered {
		return
	}
	prometheus.MustRegister(GraphBuildsTotal)
	prometheus.MustRegister(GraphBuildDuration)
	prometheus.MustRegister(GraphCacheTotal)
	prometheus.MustRegister(GraphSegments)
	graphMetricsRegistered = true
}
