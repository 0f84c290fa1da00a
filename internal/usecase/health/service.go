// Package health aggregates readiness of the catalog and the similarity backends.
package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the aggregated health.
type Status string

// Aggregated statuses. Unhealthy means listing cannot work; Degraded means only
// similarity search is impaired.
const (
	Healthy   Status = "ok"
	Degraded  Status = "degraded"
	Unhealthy Status = "unhealthy"
)

// CheckResult is one component outcome.
type CheckResult string

// Component outcomes.
const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Component names reported by Check.
const (
	ComponentCatalog   = "catalog"
	ComponentRedis     = "redis"
	ComponentEmbedding = "embedding"
)

// DefaultCheckTimeout bounds each component probe.
const DefaultCheckTimeout = 2 * time.Second

// Report aggregates component outcomes.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type component struct {
	name     string
	pinger   Pinger
	required bool
}

// Service probes components concurrently.
type Service struct {
	components []component
	timeout    time.Duration
}

// New creates a Service. The catalog is required; redis and embedding are optional
// and may be nil when similarity search is disabled.
func New(catalog, redis Pinger, embedding EmbeddingChecker) *Service {
	s := &Service{timeout: DefaultCheckTimeout}
	s.components = append(s.components, component{name: ComponentCatalog, pinger: catalog, required: true})
	if redis != nil {
		s.components = append(s.components, component{name: ComponentRedis, pinger: redis})
	}
	if embedding != nil {
		s.components = append(s.components, component{name: ComponentEmbedding, pinger: probe(embedding.HealthCheck)})
	}
	return s
}

// WithTimeout overrides the per-component probe timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check probes every component in parallel. A probe exceeding the timeout counts as failed.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(s.components))
		status = Healthy
		g      errgroup.Group
	)

	for _, c := range s.components {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			res := CheckOK
			if err := c.pinger.Ping(pctx); err != nil {
				res = CheckError
			}

			mu.Lock()
			defer mu.Unlock()
			checks[c.name] = res
			switch {
			case res == CheckOK:
			case c.required:
				status = Unhealthy
			case status == Healthy:
				status = Degraded
			}
			return nil
		})
	}
	_ = g.Wait()

	return Report{Status: status, Checks: checks}
}
