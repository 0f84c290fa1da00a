package embcache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/vitrine/internal/db"
	"github.com/kailas-cloud/vitrine/internal/domain"
)

func newLookupCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_embedding_cache_total"}, []string{"result"})
}

func TestEmbed_MissThenHit(t *testing.T) {
	inner := &fakeEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}, TotalTokens: 10}}
	kv := newMemKV()
	lookups := newLookupCounter()
	e := New(inner, kv, testPrefix, nil).WithTTL(time.Hour).WithMetrics(lookups)

	first, err := e.Embed(context.Background(), "red shirt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TotalTokens != 10 {
		t.Fatalf("miss must report upstream tokens, got %d", first.TotalTokens)
	}

	second, err := e.Embed(context.Background(), "  red   shirt ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.TotalTokens != 0 || len(second.Embedding) != 3 || second.Embedding[1] != 0.2 {
		t.Fatalf("expected free cached vector, got %+v", second)
	}
	if inner.calls.Load() != 1 {
		t.Fatalf("expected one upstream call, got %d", inner.calls.Load())
	}

	for key, ttl := range kv.ttls {
		if !strings.HasPrefix(key, testPrefix) || ttl != time.Hour {
			t.Errorf("unexpected entry %q ttl %v", key, ttl)
		}
	}
	if got := testutil.ToFloat64(lookups.WithLabelValues("hit")); got != 1 {
		t.Errorf("expected 1 hit, got %v", got)
	}
	if got := testutil.ToFloat64(lookups.WithLabelValues("miss")); got != 1 {
		t.Errorf("expected 1 miss, got %v", got)
	}
}

func TestEmbed_ConcurrentMissesShareUpstreamCall(t *testing.T) {
	inner := &fakeEmbedder{
		result: domain.EmbeddingResult{Embedding: []float32{1, 0}, TotalTokens: 4},
		gate:   make(chan struct{}),
	}
	e := New(inner, newMemKV(), testPrefix, nil)

	const n = 5
	results := make([]domain.EmbeddingResult, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = e.Embed(context.Background(), "dress")
		}()
	}
	// Let the callers pile up behind the first upstream request.
	time.Sleep(50 * time.Millisecond)
	close(inner.gate)
	wg.Wait()

	tokens := 0
	for _, r := range results {
		if len(r.Embedding) != 2 {
			t.Fatalf("every caller needs the vector, got %+v", r)
		}
		tokens += r.TotalTokens
	}
	if calls := inner.calls.Load(); calls < 1 || int(calls)*4 != tokens {
		t.Fatalf("tokens must be billed once per upstream call: calls=%d tokens=%d", calls, tokens)
	}
}

func TestEmbed_BadEntriesAreMisses(t *testing.T) {
	tests := []struct {
		name   string
		cached []byte
	}{
		{"truncated", []byte{1, 2, 3}},
		{"empty", []byte{}},
		{"wrong dimensions", []byte(db.EncodeVector([]float32{1, 2, 3}))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inner := &fakeEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 2}}}
			kv := newMemKV()
			e := New(inner, kv, testPrefix, nil).WithDimensions(2)
			kv.data[e.key("x")] = tc.cached

			res, err := e.Embed(context.Background(), "x")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if inner.calls.Load() != 1 || len(res.Embedding) != 2 {
				t.Fatalf("expected fresh embedding, got %+v after %d calls", res, inner.calls.Load())
			}
		})
	}
}

func TestEmbed_StoreFailuresAreNotFatal(t *testing.T) {
	inner := &fakeEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	kv := newMemKV()
	kv.getErr = errors.New("connection reset")
	kv.setErr = errors.New("connection reset")

	if _, err := New(inner, kv, testPrefix, nil).Embed(context.Background(), "x"); err != nil {
		t.Fatalf("cache failures must not fail the embed: %v", err)
	}
}

func TestEmbed_UpstreamErrorIsNotCached(t *testing.T) {
	inner := &fakeEmbedder{err: errors.New("provider down")}
	kv := newMemKV()

	if _, err := New(inner, kv, testPrefix, nil).Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected upstream error")
	}
	if kv.len() != 0 {
		t.Fatal("failures must not be cached")
	}
}

func TestKey(t *testing.T) {
	e := New(&fakeEmbedder{}, newMemKV(), testPrefix, nil)

	if e.key("a b") != e.key("a\tb\n") {
		t.Error("whitespace variants must share a key")
	}
	if e.key("a") == e.key("b") {
		t.Error("different texts must not share a key")
	}
	if e.key("A") == e.key("a") {
		t.Error("keys are case sensitive")
	}
}
