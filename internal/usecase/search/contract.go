package search

import (
	"context"

	"github.com/kailas-cloud/vitrine/internal/domain/product"
	"github.com/kailas-cloud/vitrine/internal/domain/search/candidate"
	"github.com/kailas-cloud/vitrine/internal/domain/search/filter"
	"github.com/kailas-cloud/vitrine/internal/domain/search/page"
)

// CatalogStore is the relational catalog contract.
type CatalogStore interface {
	// Query returns rows matching every predicate constraint (including free text) in the
	// predicate's sort order, restricted to w, plus the total number of matching rows.
	Query(ctx context.Context, pred filter.Predicate, w page.Window) ([]product.Product, int, error)

	// FindByIDs returns the products with the given ids. Unknown ids are skipped; order is unspecified.
	FindByIDs(ctx context.Context, ids []string) ([]product.Product, error)

	FacetSource
}

// FacetSource returns the raw distinct values of every filterable attribute across the whole catalog.
type FacetSource interface {
	Facets(ctx context.Context) (map[product.Attribute][]string, error)
}

// SimilarityService is the approximate-nearest-neighbor contract. Results are best match first,
// capped at topK, and never filtered by a Predicate.
type SimilarityService interface {
	SearchByImage(ctx context.Context, img []byte, mimeType string, topK int) ([]candidate.Hit, error)
	SearchByText(ctx context.Context, text string, topK int) ([]candidate.Hit, error)
}
