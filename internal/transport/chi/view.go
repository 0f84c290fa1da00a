package chi

import (
	"time"

	"github.com/kailas-cloud/vitrine/internal/domain/product"
	"github.com/kailas-cloud/vitrine/internal/domain/search/candidate"
	"github.com/kailas-cloud/vitrine/internal/domain/search/filter"
	"github.com/kailas-cloud/vitrine/internal/domain/search/page"
	searchuc "github.com/kailas-cloud/vitrine/internal/usecase/search"
)

// ErrorCode is the machine-readable error code in API error responses.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeInvalidImage     ErrorCode = "invalid_image"
	CodePayloadTooLarge  ErrorCode = "payload_too_large"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeRateLimited      ErrorCode = "rate_limited"
	CodeNotFound         ErrorCode = "not_found"
	CodeUpstreamError    ErrorCode = "upstream_error"
	CodeInternalError    ErrorCode = "internal_error"
)

type errorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

type productView struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	Gender          string     `json:"gender,omitempty"`
	Category        string     `json:"category,omitempty"`
	SubCategory     string     `json:"sub_category,omitempty"`
	ProductType     string     `json:"product_type,omitempty"`
	Colour          string     `json:"colour,omitempty"`
	Brand           string     `json:"brand,omitempty"`
	Usage           string     `json:"usage,omitempty"`
	Price           string     `json:"price"`
	ImageURL        string     `json:"image_url"`
	InStock         bool       `json:"in_stock"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	SimilarityScore *float64   `json:"similarity_score,omitempty"`
}

type paginationView struct {
	Page        int  `json:"page"`
	PageSize    int  `json:"page_size"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

type filtersView struct {
	Search      *string `json:"search,omitempty"`
	Gender      *string `json:"gender,omitempty"`
	Category    *string `json:"category,omitempty"`
	SubCategory *string `json:"sub_category,omitempty"`
	ProductType *string `json:"product_type,omitempty"`
	Colour      *string `json:"colour,omitempty"`
	Brand       *string `json:"brand,omitempty"`
	MinPrice    *string `json:"min_price,omitempty"`
	MaxPrice    *string `json:"max_price,omitempty"`
	InStock     *bool   `json:"in_stock,omitempty"`
	SortBy      string  `json:"sort_by"`
	SortOrder   string  `json:"sort_order"`
	Page        int     `json:"page"`
	PageSize    int     `json:"page_size"`
}

type resultPageView struct {
	Products       []productView  `json:"products"`
	Pagination     paginationView `json:"pagination"`
	FiltersApplied filtersView    `json:"filters_applied"`
	Source         string         `json:"source"`
	Degraded       bool           `json:"degraded"`
}

func resultPageToView(res *searchuc.ResultPage) resultPageView {
	products := make([]productView, len(res.Items))
	for i := range res.Items {
		products[i] = scoredToView(&res.Items[i])
	}
	return resultPageView{
		Products:       products,
		Pagination:     paginationToView(res.Meta),
		FiltersApplied: filtersToView(res.Filters),
		Source:         string(res.Source),
		Degraded:       res.Degraded,
	}
}

func scoredToView(c *candidate.Scored) productView {
	v := productToView(c.Product())
	v.SimilarityScore = c.Score().Ptr()
	return v
}

func productToView(p *product.Product) productView {
	a := p.Attributes()
	v := productView{
		ID:          p.ID(),
		Name:        a.Title,
		Description: a.Description,
		Gender:      a.Gender,
		Category:    a.Category,
		SubCategory: a.SubCategory,
		ProductType: a.ProductType,
		Colour:      a.Colour,
		Brand:       a.Brand,
		Usage:       a.Usage,
		Price:       p.Price().StringFixed(2),
		ImageURL:    p.Image().URL(),
		InStock:     p.InStock(),
	}
	if created := p.CreatedAt(); !created.IsZero() {
		c := created.UTC()
		v.CreatedAt = &c
	}
	return v
}

func paginationToView(m page.Meta) paginationView {
	return paginationView{
		Page:        m.Page,
		PageSize:    m.PageSize,
		TotalItems:  m.TotalItems,
		TotalPages:  m.TotalPages,
		HasNext:     m.HasNext,
		HasPrevious: m.HasPrevious,
	}
}

func filtersToView(p filter.Predicate) filtersView {
	v := filtersView{
		Search:      p.Search().Ptr(),
		Gender:      p.AttributeValue(product.Gender).Ptr(),
		Category:    p.AttributeValue(product.Category).Ptr(),
		SubCategory: p.AttributeValue(product.SubCategory).Ptr(),
		ProductType: p.AttributeValue(product.ProductType).Ptr(),
		Colour:      p.AttributeValue(product.Colour).Ptr(),
		Brand:       p.AttributeValue(product.Brand).Ptr(),
		InStock:     p.InStock().Ptr(),
		SortBy:      string(p.SortBy()),
		SortOrder:   string(p.SortOrder()),
		Page:        p.Page(),
		PageSize:    p.PageSize(),
	}
	if d, ok := p.MinPrice().Get(); ok {
		s := d.String()
		v.MinPrice = &s
	}
	if d, ok := p.MaxPrice().Get(); ok {
		s := d.String()
		v.MaxPrice = &s
	}
	return v
}
