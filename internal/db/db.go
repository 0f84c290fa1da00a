// Package db defines the Redis-facing contracts: a vector index of product
// embeddings and a binary cache. internal/db/redis implements them.
package db

import (
	"context"
	"time"
)

// Store is the full Redis facade. Consumers depend on the narrow interfaces below.
type Store interface {
	Pinger
	VectorIndex
	Cache
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// VectorIndex stores product embeddings as hashes and runs KNN queries over them.
type VectorIndex interface {
	CreateVectorIndex(ctx context.Context, spec *IndexSpec) error
	// DropVectorIndex removes the index; deleteDocs also removes the indexed hashes.
	DropVectorIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	PutVectors(ctx context.Context, docs []VectorDoc) error
	// HasKeys reports key existence in keys order.
	HasKeys(ctx context.Context, keys []string) ([]bool, error)
	SearchKNN(ctx context.Context, q *KNNQuery) ([]KNNHit, error)
}

// Cache is a binary key-value cache with per-entry expiry.
type Cache interface {
	// Get returns ErrKeyNotFound on a miss.
	Get(ctx context.Context, key string) ([]byte, error)
	// SetWithTTL stores value; a non-positive ttl stores without expiry.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
