package vitrine

import (
	"context"

	healthuc "github.com/kailas-cloud/vitrine/internal/usecase/health"
)

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// HealthStatus is the aggregated state of the client's backends.
type HealthStatus struct {
	// Status is "ok", "degraded" (similarity impaired, listing works) or "unhealthy".
	Status string
	// Checks maps component ("catalog", "redis") to "ok" or "error".
	Checks map[string]string
}

// Ready reports whether listing and filtering can be served.
func (h HealthStatus) Ready() bool {
	return h.Status != string(healthuc.Unhealthy)
}

// Health probes the catalog and, with WithRedis, Redis.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	out := HealthStatus{Status: string(report.Status), Checks: make(map[string]string, len(report.Checks))}
	for name, res := range report.Checks {
		out.Checks[name] = string(res)
	}
	return out
}
