package candidate

import (
	"github.com/kailas-cloud/vitrine/internal/domain/opt"
	"github.com/kailas-cloud/vitrine/internal/domain/product"
)

// FallbackScore is the similarity score given to catalog-only matches when a result is fused.
// It lies below the genuine range [0,1], so a catalog-only item never ties with a real match,
// even one at distance 1.
const FallbackScore = -1.0

// Hit is a single ANN result: a product identity and its similarity (higher = more similar).
type Hit struct {
	ID    string
	Score float64
}

// Scored is a product with an optional similarity score.
type Scored struct {
	product product.Product
	score   opt.Value[float64]
}

// FromSimilarity wraps a product retrieved by content similarity. Scores are clamped to [0,1].
func FromSimilarity(p product.Product, score float64) Scored {
	return Scored{product: p, score: opt.Some(clamp(score))}
}

// FromCatalog wraps a catalog-only product with no score.
func FromCatalog(p product.Product) Scored {
	return Scored{product: p}
}

// WithFallback wraps a catalog-only product with FallbackScore.
func WithFallback(p product.Product) Scored {
	return Scored{product: p, score: opt.Some(FallbackScore)}
}

// Product returns the wrapped product.
func (s *Scored) Product() *product.Product { return &s.product }

// ID returns the product identity.
func (s *Scored) ID() string { return s.product.ID() }

// Score returns the similarity score, if any.
func (s *Scored) Score() opt.Value[float64] { return s.score }

// RankScore returns the score used for ordering (FallbackScore when absent).
func (s *Scored) RankScore() float64 { return s.score.OrElse(FallbackScore) }

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
