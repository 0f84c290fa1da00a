package facetcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vitrine/internal/db"
	"github.com/kailas-cloud/vitrine/internal/domain/product"
)

// source is the uncached facet provider, normally the catalog store.
type source interface {
	Facets(ctx context.Context) (map[product.Attribute][]string, error)
}

// store is the consumer interface for the facet cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Cache keeps the catalog facet listing in Redis as JSON for ttl.
type Cache struct {
	inner      source
	store      store
	key        string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator around src. cacheTotal has label "result" ("hit"/"miss").
func New(
	src source, s store, key string, ttl time.Duration,
	cacheTotal *prometheus.CounterVec, logger *zap.Logger,
) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{inner: src, store: s, key: key, ttl: ttl, cacheTotal: cacheTotal, logger: logger}
}

// Facets returns cached facet values, loading them from the source on a miss.
// Cache failures fall through to the source.
func (c *Cache) Facets(ctx context.Context) (map[product.Attribute][]string, error) {
	if cached, ok := c.load(ctx); ok {
		c.inc("hit")
		return cached, nil
	}
	c.inc("miss")

	raw, err := c.inner.Facets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load facets: %w", err)
	}

	c.save(ctx, raw)
	return raw, nil
}

// Invalidate drops the cached listing. Called after the catalog changes.
func (c *Cache) Invalidate(ctx context.Context) error {
	if err := c.store.Del(ctx, c.key); err != nil {
		return fmt.Errorf("invalidate facets: %w", err)
	}
	return nil
}

func (c *Cache) load(ctx context.Context) (map[product.Attribute][]string, bool) {
	data, err := c.store.Get(ctx, c.key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to read cached facets", zap.Error(err))
		}
		return nil, false
	}

	var raw map[product.Attribute][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		c.logger.Warn("Failed to decode cached facets", zap.Error(err))
		return nil, false
	}
	return raw, true
}

func (c *Cache) save(ctx context.Context, raw map[product.Attribute][]string) {
	data, err := json.Marshal(raw)
	if err != nil {
		c.logger.Warn("Failed to encode facets", zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, c.key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache facets", zap.Error(err))
	}
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
