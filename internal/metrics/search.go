package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search flow labels.
const (
	FlowList  = "list"
	FlowText  = "text"
	FlowImage = "image"
)

// Search Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vitrine",
			Name:      "search_requests_total",
			Help:      "Search requests by flow and result source",
		},
		[]string{"flow", "source"},
	)

	SearchSimilarityDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vitrine",
			Name:      "search_similarity_degraded_total",
			Help:      "Searches answered without similarity results because the service failed",
		},
		[]string{"flow"},
	)

	SearchFusedItems = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vitrine",
			Name:      "search_fused_items",
			Help:      "Number of items in the fused sequence before pagination",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"flow"},
	)

	FacetCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vitrine",
			Name:      "facet_cache_total",
			Help:      "Facet cache hits and misses",
		},
		[]string{"result"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchSimilarityDegradedTotal)
	prometheus.MustRegister(SearchFusedItems)
	prometheus.MustRegister(FacetCacheTotal)
	searchMetricsRegistered = true
}
