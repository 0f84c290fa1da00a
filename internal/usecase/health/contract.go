package health

import "context"

// Pinger is a store that answers a round-trip: the catalog database or Redis.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker probes the embedding provider.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// probe adapts EmbeddingChecker to Pinger.
type probe func(ctx context.Context) error

func (p probe) Ping(ctx context.Context) error { return p(ctx) }
