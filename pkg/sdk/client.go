package vitrine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbredis "github.com/kailas-cloud/vitrine/internal/db/redis"
	"github.com/kailas-cloud/vitrine/internal/domain/product"
	"github.com/kailas-cloud/vitrine/internal/repository/catalog"
	"github.com/kailas-cloud/vitrine/internal/repository/similarity"
	healthuc "github.com/kailas-cloud/vitrine/internal/usecase/health"
	searchuc "github.com/kailas-cloud/vitrine/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "vitrine:"
	defaultIndexName        = "vitrine_products"
	defaultHNSWM            = 16
	defaultHNSWEFConstruct  = 200
)

// Internal interfaces for substitution in tests.
type catalogStore interface {
	searchuc.CatalogStore
	Upsert(ctx context.Context, products []product.Product) error
	SetPopularity(ctx context.Context, productID string, popularity int64) error
	Ping(ctx context.Context) error
	Close() error
}

type vectorStore interface {
	searchuc.SimilarityService
	Upsert(ctx context.Context, vectors []similarity.Vector) error
}

// Client is the vitrine SDK entry point.
type Client struct {
	catalog   catalogStore
	redis     *dbredis.Store
	vectors   vectorStore // nil without WithRedis
	embedder  Embedder
	searchSvc *searchuc.Service
	healthSvc healthUseCase
	obs       *observer
	now       func() time.Time
}

// New opens the catalog and, with WithRedis, the vector index.
// The provided context is used for connecting and for creating the index.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		keyPrefix:       defaultKeyPrefix,
		indexName:       defaultIndexName,
		hnswM:           defaultHNSWM,
		hnswEFConstruct: defaultHNSWEFConstruct,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.catalogDSN == "" {
		return nil, errors.New("vitrine: catalog required (use WithSQLite or WithPostgres)")
	}
	if len(cfg.redisAddrs) > 0 && (cfg.embedder == nil || cfg.dimensions <= 0) {
		return nil, errors.New("vitrine: WithRedis requires WithEmbedder with positive dimensions")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Open(ctx, catalog.Config{
		Driver: catalog.Driver(cfg.catalogDriver),
		DSN:    cfg.catalogDSN,
	})
	if err != nil {
		return nil, fmt.Errorf("vitrine: %w", err)
	}

	c := &Client{catalog: cat, embedder: cfg.embedder, obs: obs, now: time.Now}
	if len(cfg.redisAddrs) > 0 {
		if err := c.openVectors(ctx, cfg); err != nil {
			c.Close()
			return nil, err
		}
	}
	c.wire(cfg)
	return c, nil
}

func (c *Client) openVectors(ctx context.Context, cfg *clientConfig) error {
	store, err := dbredis.NewStore(dbredis.Config{
		Addrs:    cfg.redisAddrs,
		Password: cfg.redisPassword,
	})
	if err != nil {
		return fmt.Errorf("vitrine: create redis store: %w", err)
	}
	c.redis = store

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		return fmt.Errorf("vitrine: redis not ready: %w", err)
	}

	adapter := &embedderAdapter{inner: cfg.embedder}
	repo := similarity.New(store, adapter, adapter, similarity.Config{
		IndexName:  cfg.indexName,
		KeyPrefix:  cfg.keyPrefix + "emb:",
		Model:      cfg.model,
		Dimensions: cfg.dimensions,
		HNSWM:      cfg.hnswM,
		HNSWEF:     cfg.hnswEFConstruct,
	}, nil)
	if err := repo.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("vitrine: ensure index: %w", err)
	}
	c.vectors = repo
	return nil
}

// wire builds the services over the opened stores. Absent backends are passed as untyped nils.
func (c *Client) wire(cfg *clientConfig) {
	var sim searchuc.SimilarityService
	var redisPinger healthuc.Pinger
	if c.vectors != nil {
		sim = c.vectors
	}
	if c.redis != nil {
		redisPinger = c.redis
	}
	c.searchSvc = searchuc.New(c.catalog, sim, zap.NewNop()).WithLimits(cfg.topK, cfg.hybridLimit)
	c.healthSvc = healthuc.New(c.catalog, redisPinger, nil)
}

// Close releases all resources.
func (c *Client) Close() {
	if c.redis != nil {
		c.redis.Close()
	}
	if c.catalog != nil {
		_ = c.catalog.Close()
	}
}

// Ping checks catalog connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.catalog.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Upsert inserts or replaces catalog rows. Creation time and popularity of existing rows are kept.
func (c *Client) Upsert(ctx context.Context, products []Product) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("catalog.upsert", start, err) }()

	now := c.now()
	rows := make([]product.Product, 0, len(products))
	for i := range products {
		p, err := toInternalProduct(&products[i], now)
		if err != nil {
			return err
		}
		rows = append(rows, p)
	}
	if err = c.catalog.Upsert(ctx, rows); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// SetPopularity sets the ranking counter used by the popularity sort.
func (c *Client) SetPopularity(ctx context.Context, productID string, popularity int64) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("catalog.set_popularity", start, err) }()

	if err = c.catalog.SetPopularity(ctx, productID, popularity); err != nil {
		return fmt.Errorf("set popularity: %w", err)
	}
	return nil
}

// IndexImage embeds a product image and stores it in the vector index.
func (c *Client) IndexImage(ctx context.Context, productID string, img []byte, mimeType string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("vectors.index_image", start, err) }()

	if c.vectors == nil {
		return ErrSimilarityDisabled
	}
	res, err := c.embedder.EmbedImage(ctx, img, mimeType)
	if err != nil {
		return fmt.Errorf("embed image %s: %w", productID, err)
	}
	if err = c.vectors.Upsert(ctx, []similarity.Vector{{ProductID: productID, Embedding: res.Embedding}}); err != nil {
		return fmt.Errorf("store vector %s: %w", productID, err)
	}
	return nil
}

// List pages through the catalog in the query's sort order. Query.Text is a substring filter here.
func (c *Client) List(ctx context.Context, q Query) (page Page, err error) {
	start := time.Now()
	defer func() { c.obs.observePage("search.list", start, &page, err) }()

	pred, err := toPredicate(&q)
	if err != nil {
		return Page{}, err
	}
	rp, err := c.searchSvc.List(ctx, pred)
	if err != nil {
		return Page{}, fmt.Errorf("list: %w", err)
	}
	return fromResultPage(&rp), nil
}

// SearchText fuses similarity matches for q.Text with catalog matches and pages the result.
func (c *Client) SearchText(ctx context.Context, q Query) (page Page, err error) {
	start := time.Now()
	defer func() { c.obs.observePage("search.text", start, &page, err) }()

	pred, err := toPredicate(&q)
	if err != nil {
		return Page{}, err
	}
	rp, err := c.searchSvc.SearchText(ctx, pred)
	if err != nil {
		return Page{}, fmt.Errorf("search text: %w", err)
	}
	return fromResultPage(&rp), nil
}

// SearchImage finds products similar to img and filters them by q. q.Text is ignored.
func (c *Client) SearchImage(ctx context.Context, img []byte, mimeType string, q Query) (page Page, err error) {
	start := time.Now()
	defer func() { c.obs.observePage("search.image", start, &page, err) }()

	q.Text = ""
	pred, err := toPredicate(&q)
	if err != nil {
		return Page{}, err
	}
	if len(img) == 0 {
		return Page{}, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	rp, err := c.searchSvc.SearchImage(ctx, img, mimeType, pred)
	if err != nil {
		return Page{}, fmt.Errorf("search image: %w", err)
	}
	return fromResultPage(&rp), nil
}

// Facets returns the distinct values of every filterable attribute.
func (c *Client) Facets(ctx context.Context) (_ Facets, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search.facets", start, err) }()

	set, err := c.searchSvc.Facets(ctx)
	if err != nil {
		return nil, fmt.Errorf("facets: %w", err)
	}
	return fromFacetSet(set), nil
}
