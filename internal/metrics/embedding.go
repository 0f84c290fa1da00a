package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Embedding kinds.
const (
	KindText  = "text"
	KindImage = "image"
)

var (
	// EmbeddingRequestsTotal counts provider calls; outcome is "ok" or an error class
	// (timeout, canceled, rate_limited, client_error, server_error, transport_error, empty_response).
	EmbeddingRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vitrine",
		Subsystem: "embedding",
		Name:      "requests_total",
		Help:      "Embedding provider calls by model, kind and outcome",
	}, []string{"model", "kind", "outcome"})

	EmbeddingRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vitrine",
		Subsystem: "embedding",
		Name:      "request_duration_seconds",
		Help:      "Latency of successful embedding provider calls",
		Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"model", "kind"})

	EmbeddingTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vitrine",
		Subsystem: "embedding",
		Name:      "tokens_total",
		Help:      "Tokens billed by the embedding provider",
	}, []string{"model", "kind"})

	// EmbeddingThrottleWait observes time spent waiting on the outgoing rate limiter.
	EmbeddingThrottleWait = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vitrine",
		Subsystem: "embedding",
		Name:      "throttle_wait_seconds",
		Help:      "Time spent waiting for a provider rate limit slot",
		Buckets:   []float64{0, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"kind"})

	EmbeddingCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vitrine",
		Subsystem: "embedding",
		Name:      "cache_total",
		Help:      "Text embedding cache lookups by result (hit, miss, shared)",
	}, []string{"result"})

	TranslationRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vitrine",
		Name:      "translation_requests_total",
		Help:      "Query translations by status (ok, fallback, skipped)",
	}, []string{"status"})
)

var registerEmbeddingOnce sync.Once

// RegisterEmbeddingMetrics registers the embedding collectors with the default registry.
// Safe to call more than once.
func RegisterEmbeddingMetrics() {
	registerEmbeddingOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingThrottleWait,
			EmbeddingCacheTotal,
			TranslationRequestsTotal,
		)
	})
}
