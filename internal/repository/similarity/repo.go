package similarity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vitrine/internal/db"
	"github.com/kailas-cloud/vitrine/internal/domain"
	"github.com/kailas-cloud/vitrine/internal/domain/search/candidate"
	"github.com/kailas-cloud/vitrine/internal/metrics"
)

// store is the consumer interface for the vector index (ISP).
type store interface {
	CreateVectorIndex(ctx context.Context, spec *db.IndexSpec) error
	DropVectorIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	PutVectors(ctx context.Context, docs []db.VectorDoc) error
	HasKeys(ctx context.Context, keys []string) ([]bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) ([]db.KNNHit, error)
}

// Config describes the product embedding index.
type Config struct {
	IndexName  string
	KeyPrefix  string // hash key prefix, e.g. "vitrine:emb:"
	Model      string // embedding model tag; queries only match vectors of the same model
	Dimensions int
	HNSWM      int
	HNSWEF     int
}

// Vector is one product embedding to store.
type Vector struct {
	ProductID string
	Embedding []float32
}

// Repo implements usecase/search.SimilarityService over a Redis vector index.
type Repo struct {
	store      store
	text       domain.Embedder
	image      domain.ImageEmbedder
	translator domain.Translator
	cfg        Config
	logger     *zap.Logger
}

// New creates a similarity repository.
func New(s store, text domain.Embedder, image domain.ImageEmbedder, cfg Config, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{store: s, text: text, image: image, cfg: cfg, logger: logger}
}

// WithTranslator enables translating text queries before embedding.
func (r *Repo) WithTranslator(t domain.Translator) *Repo {
	r.translator = t
	return r
}

// EnsureIndex creates the vector index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.cfg.IndexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.cfg.IndexName, err)
	}
	if exists {
		return nil
	}

	spec := &db.IndexSpec{
		Name:        r.cfg.IndexName,
		Prefix:      r.cfg.KeyPrefix,
		Dim:         r.cfg.Dimensions,
		M:           r.cfg.HNSWM,
		EFConstruct: r.cfg.HNSWEF,
	}
	if err := r.store.CreateVectorIndex(ctx, spec); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", r.cfg.IndexName, err)
	}
	r.logger.Info("Vector index created", zap.String("index", r.cfg.IndexName), zap.Int("dim", r.cfg.Dimensions))
	return nil
}

// ResetIndex drops the vector index together with every stored embedding.
// A missing index is not an error. Call EnsureIndex afterwards to recreate it.
func (r *Repo) ResetIndex(ctx context.Context) error {
	err := r.store.DropVectorIndex(ctx, r.cfg.IndexName, true)
	if err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", r.cfg.IndexName, err)
	}
	r.logger.Warn("Vector index dropped", zap.String("index", r.cfg.IndexName))
	return nil
}

// SearchByText translates (best effort) and embeds the query, then returns the topK nearest products.
func (r *Repo) SearchByText(ctx context.Context, text string, topK int) ([]candidate.Hit, error) {
	if r.text == nil {
		return nil, errors.New("text embedder not configured")
	}

	query := r.translate(ctx, text)

	emb, err := r.text.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	domain.QueryUsageFrom(ctx).RecordEmbedding(emb.TotalTokens)

	return r.knn(ctx, emb, topK)
}

// SearchByImage embeds the image and returns the topK nearest products.
func (r *Repo) SearchByImage(ctx context.Context, img []byte, mimeType string, topK int) ([]candidate.Hit, error) {
	if r.image == nil {
		return nil, errors.New("image embedder not configured")
	}

	emb, err := r.image.EmbedImage(ctx, img, mimeType)
	if err != nil {
		return nil, fmt.Errorf("vectorize image: %w", err)
	}
	domain.QueryUsageFrom(ctx).RecordEmbedding(emb.TotalTokens)

	return r.knn(ctx, emb, topK)
}

// Indexed reports which product ids already have an embedding. Result follows ids order.
func (r *Repo) Indexed(ctx context.Context, ids []string) ([]bool, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	found, err := r.store.HasKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("check indexed products: %w", err)
	}
	return found, nil
}

// Upsert stores product embeddings in one pipelined round-trip.
func (r *Repo) Upsert(ctx context.Context, vectors []Vector) error {
	docs := make([]db.VectorDoc, 0, len(vectors))
	for _, v := range vectors {
		if len(v.Embedding) != r.cfg.Dimensions {
			return fmt.Errorf("product %s: embedding has %d dimensions, index expects %d",
				v.ProductID, len(v.Embedding), r.cfg.Dimensions)
		}
		docs = append(docs, db.VectorDoc{
			Key:       r.key(v.ProductID),
			ProductID: v.ProductID,
			Model:     r.cfg.Model,
			Embedding: v.Embedding,
		})
	}
	if err := r.store.PutVectors(ctx, docs); err != nil {
		return fmt.Errorf("store embeddings: %w", err)
	}
	return nil
}

func (r *Repo) knn(ctx context.Context, emb domain.EmbeddingResult, topK int) ([]candidate.Hit, error) {
	if emb.Dim() != r.cfg.Dimensions {
		return nil, fmt.Errorf("query embedding has %d dimensions, index expects %d", emb.Dim(), r.cfg.Dimensions)
	}

	found, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		Index:  r.cfg.IndexName,
		Vector: emb.Embedding,
		K:      topK,
		Model:  r.cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.cfg.IndexName, err)
	}

	hits := make([]candidate.Hit, 0, len(found))
	for _, h := range found {
		id := h.ProductID
		if id == "" {
			id = strings.TrimPrefix(h.Key, r.cfg.KeyPrefix)
		}
		hits = append(hits, candidate.Hit{ID: id, Score: h.Score})
	}
	return hits, nil
}

// translate returns the English form of text, or text itself when translation is
// disabled or fails.
func (r *Repo) translate(ctx context.Context, text string) string {
	if r.translator == nil {
		metrics.TranslationRequestsTotal.WithLabelValues("skipped").Inc()
		return text
	}

	translated, err := r.translator.Translate(ctx, text)
	if err != nil || strings.TrimSpace(translated) == "" {
		metrics.TranslationRequestsTotal.WithLabelValues("fallback").Inc()
		r.logger.Warn("Query translation failed, using original text", zap.Error(err))
		return text
	}

	metrics.TranslationRequestsTotal.WithLabelValues("ok").Inc()
	if translated != text {
		domain.QueryUsageFrom(ctx).MarkTranslated()
	}
	return translated
}

func (r *Repo) key(productID string) string {
	return r.cfg.KeyPrefix + productID
}
