package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockPinger struct {
	err   error
	block bool
}

func (m *mockPinger) Ping(ctx context.Context) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.err
}

type mockEmbeddingChecker struct {
	err error
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

func TestCheck(t *testing.T) {
	down := errors.New("conn refused")

	tests := []struct {
		name      string
		catalog   error
		redis     error
		embedding error
		want      Status
		failed    []string
	}{
		{name: "all healthy", want: Healthy},
		{name: "catalog down", catalog: down, want: Unhealthy, failed: []string{ComponentCatalog}},
		{name: "redis down", redis: down, want: Degraded, failed: []string{ComponentRedis}},
		{name: "embedding down", embedding: down, want: Degraded, failed: []string{ComponentEmbedding}},
		{
			name: "everything down", catalog: down, redis: down, embedding: down, want: Unhealthy,
			failed: []string{ComponentCatalog, ComponentRedis, ComponentEmbedding},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(&mockPinger{err: tt.catalog}, &mockPinger{err: tt.redis},
				&mockEmbeddingChecker{err: tt.embedding})
			r := svc.Check(context.Background())

			if r.Status != tt.want {
				t.Errorf("expected %q, got %q", tt.want, r.Status)
			}
			if len(r.Checks) != 3 {
				t.Fatalf("expected 3 checks, got %d", len(r.Checks))
			}
			failed := map[string]bool{}
			for _, name := range tt.failed {
				failed[name] = true
			}
			for name, res := range r.Checks {
				want := CheckOK
				if failed[name] {
					want = CheckError
				}
				if res != want {
					t.Errorf("%s: expected %q, got %q", name, want, res)
				}
			}
		})
	}
}

func TestCheck_CatalogOnly(t *testing.T) {
	r := New(&mockPinger{}, nil, nil).Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if len(r.Checks) != 1 {
		t.Errorf("only the catalog should be checked, got %v", r.Checks)
	}
}

func TestCheck_SlowProbeTimesOut(t *testing.T) {
	svc := New(&mockPinger{}, &mockPinger{block: true}, nil).WithTimeout(20 * time.Millisecond)

	start := time.Now()
	r := svc.Check(context.Background())

	if time.Since(start) > time.Second {
		t.Fatal("check must not wait for a hung probe")
	}
	if r.Status != Degraded || r.Checks[ComponentRedis] != CheckError {
		t.Errorf("expected degraded with redis error, got %+v", r)
	}
}
