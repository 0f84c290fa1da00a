package vitrine

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry.
type Product struct {
	ID          string
	Title       string
	Description string
	Gender      string
	Category    string
	SubCategory string
	ProductType string
	Colour      string
	Brand       string
	Usage       string
	Price       decimal.Decimal
	InStock     bool
	CreatedAt   time.Time // zero means now
	ImageURL    string    // empty means no image; reads return a placeholder URL
}

// Hit is one ranked product. Score is set only for similarity matches, in [0, 1].
type Hit struct {
	Product
	Score *float64
}

// Query holds filters and pagination. Empty strings and nil pointers mean "no constraint";
// zero Page and PageSize use the defaults (1 and 20).
type Query struct {
	Text        string // required by SearchText, ignored by SearchImage
	Gender      string
	Category    string
	SubCategory string
	ProductType string
	Colour      string
	Brand       string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	InStock     *bool
	SortBy      string // name, price, created_at, popularity
	SortOrder   string // asc, desc
	Page        int
	PageSize    int
}

// Source tells which backends produced a page.
type Source string

// Page sources.
const (
	SourceCatalog    Source = "catalog"
	SourceSimilarity Source = "similarity"
	SourceFused      Source = "fused"
)

// Page is one page of results with its pagination metadata.
type Page struct {
	Hits        []Hit
	Page        int
	PageSize    int
	TotalItems  int
	TotalPages  int
	HasNext     bool
	HasPrevious bool
	Source      Source
	// Degraded is set when similarity search failed and the page was built without it.
	Degraded bool
}

// Facets maps each filterable attribute (gender, category, ...) to its distinct values.
type Facets map[string][]string
