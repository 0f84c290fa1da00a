// Package app assembles the backends shared by the vitrine binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vitrine/internal/config"
	dbredis "github.com/kailas-cloud/vitrine/internal/db/redis"
	"github.com/kailas-cloud/vitrine/internal/metrics"
	"github.com/kailas-cloud/vitrine/internal/repository/catalog"
	"github.com/kailas-cloud/vitrine/internal/repository/embcache"
	"github.com/kailas-cloud/vitrine/internal/repository/facetcache"
	"github.com/kailas-cloud/vitrine/internal/repository/similarity"
	openaiTransport "github.com/kailas-cloud/vitrine/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/vitrine/internal/usecase/embedding"
	searchuc "github.com/kailas-cloud/vitrine/internal/usecase/search"
)

// Backends holds the opened stores. The redis-backed fields are nil when no redis is configured.
type Backends struct {
	Catalog    *catalog.Store
	Redis      *dbredis.Store
	Embedder   *embeddinguc.InstrumentedEmbedder
	Similarity *similarity.Repo
	Facets     *facetcache.Cache
}

// Open connects the catalog and, when configured, redis with the embedding chain on top.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backends, error) {
	cat, err := catalog.Open(ctx, catalog.Config{
		Driver:       catalog.Driver(cfg.Catalog.Driver),
		DSN:          cfg.Catalog.DSN,
		MaxOpenConns: cfg.Catalog.MaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	b := &Backends{Catalog: cat}
	logger.Info("Catalog ready", zap.String("driver", cfg.Catalog.Driver))

	if !cfg.SimilarityEnabled() {
		logger.Warn("No redis configured, similarity search disabled")
		return b, nil
	}

	if err := b.openSimilarity(ctx, cfg, logger); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *Backends) openSimilarity(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := dbredis.NewStore(dbredis.Config{
		Addrs:    cfg.Redis.Addrs,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
	})
	if err != nil {
		return fmt.Errorf("create redis store: %w", err)
	}
	b.Redis = store

	if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("redis not ready: %w", err)
	}
	logger.Info("Connected to redis", zap.Strings("addrs", cfg.Redis.Addrs))

	emb := cfg.Embedding
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     emb.APIKey,
		BaseURL:    emb.BaseURL,
		Model:      emb.Model,
		Dimensions: emb.Dimensions,
		Provider:   emb.Provider,
		Logger:     logger,
	})
	b.Embedder = embeddinguc.NewInstrumentedEmbedder(base, base, emb.Provider, emb.Model, logger).
		WithRateLimit(emb.RequestsPerSecond, int(emb.RequestsPerSecond)+1)

	prefix := cfg.Redis.KeyPrefix
	textEmbedder := embcache.New(b.Embedder, store, prefix+"embcache:"+emb.Model+":", logger).
		WithTTL(time.Duration(emb.CacheTTLHours) * time.Hour).
		WithDimensions(emb.Dimensions).
		WithMetrics(metrics.EmbeddingCacheTotal)

	b.Similarity = similarity.New(store, textEmbedder, b.Embedder, similarity.Config{
		IndexName:  cfg.Index.Name,
		KeyPrefix:  prefix + "emb:",
		Model:      emb.Model,
		Dimensions: emb.Dimensions,
		HNSWM:      cfg.Index.HNSWM,
		HNSWEF:     cfg.Index.HNSWEFConstruct,
	}, logger)

	if cfg.Translation.Enabled {
		b.Similarity.WithTranslator(openaiTransport.NewTranslator(&openaiTransport.TranslatorConfig{
			APIKey:  cfg.Translation.APIKey,
			BaseURL: cfg.Translation.BaseURL,
			Model:   cfg.Translation.Model,
		}))
		logger.Info("Query translation enabled", zap.String("model", cfg.Translation.Model))
	}

	if err := b.Similarity.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure vector index: %w", err)
	}

	b.Facets = facetcache.New(b.Catalog, store, prefix+"facets",
		time.Duration(cfg.Search.FacetCacheTTLSec)*time.Second, metrics.FacetCacheTotal, logger)

	logger.Info("Similarity search ready",
		zap.String("index", cfg.Index.Name),
		zap.String("model", emb.Model),
		zap.Int("dimensions", emb.Dimensions),
	)
	return nil
}

// SimilarityService returns the similarity backend, or an untyped nil when disabled.
func (b *Backends) SimilarityService() searchuc.SimilarityService {
	if b.Similarity == nil {
		return nil
	}
	return b.Similarity
}

// FacetSource returns the cached facet source when redis is available, else the catalog itself.
func (b *Backends) FacetSource() searchuc.FacetSource {
	if b.Facets == nil {
		return b.Catalog
	}
	return b.Facets
}

// Close releases all connections.
func (b *Backends) Close() {
	if b.Redis != nil {
		b.Redis.Close()
	}
	if b.Catalog != nil {
		_ = b.Catalog.Close()
	}
}
