package domain

import (
	"context"
	"sync"
)

type queryUsageKey struct{}

// QueryUsage accumulates the embedding work done while serving one request.
// Safe for concurrent use; all methods are no-ops on a nil receiver.
type QueryUsage struct {
	mu         sync.Mutex
	calls      int
	tokens     int
	translated bool
}

// UsageSnapshot is a point-in-time copy of QueryUsage.
type UsageSnapshot struct {
	// Calls counts embeddings requested, cache hits included.
	Calls      int
	Tokens     int
	Translated bool
}

// WithQueryUsage attaches a fresh collector to ctx.
func WithQueryUsage(ctx context.Context) (context.Context, *QueryUsage) {
	u := &QueryUsage{}
	return context.WithValue(ctx, queryUsageKey{}, u), u
}

// QueryUsageFrom returns the collector attached to ctx, or nil.
func QueryUsageFrom(ctx context.Context) *QueryUsage {
	u, _ := ctx.Value(queryUsageKey{}).(*QueryUsage)
	return u
}

// RecordEmbedding counts one embedding that consumed tokens.
func (u *QueryUsage) RecordEmbedding(tokens int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.calls++
	u.tokens += tokens
	u.mu.Unlock()
}

// MarkTranslated notes that the query text was translated before embedding.
func (u *QueryUsage) MarkTranslated() {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.translated = true
	u.mu.Unlock()
}

// Snapshot copies the current counters. A nil collector yields the zero snapshot.
func (u *QueryUsage) Snapshot() UsageSnapshot {
	if u == nil {
		return UsageSnapshot{}
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return UsageSnapshot{Calls: u.calls, Tokens: u.tokens, Translated: u.translated}
}
