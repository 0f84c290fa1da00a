// Package embcache memoizes query text embeddings in a key-value store.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/vitrine/internal/db"
	"github.com/kailas-cloud/vitrine/internal/domain"
)

type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Embedder wraps a text embedder with a read-through cache. Concurrent misses for the
// same text share one upstream call.
type Embedder struct {
	inner  domain.Embedder
	kv     kv
	prefix string
	ttl    time.Duration
	dim    int
	lookup *prometheus.CounterVec
	group  singleflight.Group
	logger *zap.Logger
}

// New wraps inner. prefix must be unique per embedding model.
func New(inner domain.Embedder, store kv, prefix string, logger *zap.Logger) *Embedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{inner: inner, kv: store, prefix: prefix, logger: logger}
}

// WithTTL expires entries after ttl. Zero keeps them forever.
func (e *Embedder) WithTTL(ttl time.Duration) *Embedder {
	e.ttl = ttl
	return e
}

// WithDimensions treats cached vectors of any other length as misses.
func (e *Embedder) WithDimensions(dim int) *Embedder {
	e.dim = dim
	return e
}

// WithMetrics counts lookups in a vec labelled by result: hit, miss, shared.
func (e *Embedder) WithMetrics(lookup *prometheus.CounterVec) *Embedder {
	e.lookup = lookup
	return e
}

// Embed returns the cached vector with zero tokens, or embeds and stores it.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := e.key(text)

	if vec, ok := e.load(ctx, key); ok {
		e.count("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	v, err, shared := e.group.Do(key, func() (any, error) {
		res, err := e.inner.Embed(ctx, text)
		if err != nil {
			return domain.EmbeddingResult{}, err
		}
		e.store(ctx, key, res.Embedding)
		return res, nil
	})
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	res := v.(domain.EmbeddingResult)
	if shared {
		// Tokens are billed to the caller that ran the upstream request.
		e.count("shared")
		return domain.EmbeddingResult{Embedding: res.Embedding}, nil
	}
	e.count("miss")
	return res, nil
}

// key hashes text with runs of whitespace collapsed, so "red  shirt " and "red shirt" share an entry.
func (e *Embedder) key(text string) string {
	sum := sha256.Sum256([]byte(strings.Join(strings.Fields(text), " ")))
	return e.prefix + hex.EncodeToString(sum[:])
}

func (e *Embedder) load(ctx context.Context, key string) ([]float32, bool) {
	raw, err := e.kv.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return nil, false
	case err != nil:
		e.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	vec, err := decode(raw)
	if err == nil && e.dim > 0 && len(vec) != e.dim {
		err = fmt.Errorf("cached vector has %d dimensions, want %d", len(vec), e.dim)
	}
	if err != nil {
		e.logger.Warn("Embedding cache entry ignored", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (e *Embedder) store(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := e.kv.SetWithTTL(ctx, key, []byte(db.EncodeVector(vec)), e.ttl); err != nil {
		e.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (e *Embedder) count(result string) {
	if e.lookup != nil {
		e.lookup.WithLabelValues(result).Inc()
	}
}

// decode is the inverse of db.EncodeVector.
func decode(raw []byte) ([]float32, error) {
	if len(raw) == 0 || len(raw)%4 != 0 {
		return nil, fmt.Errorf("malformed cache entry of %d bytes", len(raw))
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return vec, nil
}
