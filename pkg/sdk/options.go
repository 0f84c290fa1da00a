package vitrine

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	catalogDriver string // "sqlite" or "postgres"
	catalogDSN    string

	redisAddrs    []string
	redisPassword string
	keyPrefix     string
	indexName     string

	embedder   Embedder
	model      string
	dimensions int

	hnswM           int
	hnswEFConstruct int
	topK            int
	hybridLimit     int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithSQLite stores the catalog in a SQLite database file (or ":memory:").
func WithSQLite(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogDriver = "sqlite"
		c.catalogDSN = dsn
	})
}

// WithPostgres stores the catalog in Postgres.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogDriver = "postgres"
		c.catalogDSN = dsn
	})
}

// WithRedis enables similarity search over a Redis vector index. Requires WithEmbedder.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddrs = []string{addr}
		c.redisPassword = password
	})
}

// WithKeyPrefix namespaces all Redis keys. Default: "vitrine:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithIndexName sets the vector index name. Default: "vitrine_products".
func WithIndexName(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexName = name
	})
}

// WithEmbedder sets the multimodal embedding provider. model tags stored vectors so
// that queries never mix embedding spaces; dimensions sizes the index.
func WithEmbedder(e Embedder, model string, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
		c.model = model
		c.dimensions = dimensions
	})
}

// WithHNSW configures HNSW index parameters. Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithLimits sets the similarity top-K and the catalog window of hybrid text searches.
func WithLimits(topK, hybridCatalogLimit int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = topK
		c.hybridLimit = hybridCatalogLimit
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default).
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
