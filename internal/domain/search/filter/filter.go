package filter

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/kailas-cloud/vitrine/internal/domain"
	"github.com/kailas-cloud/vitrine/internal/domain/opt"
	"github.com/kailas-cloud/vitrine/internal/domain/product"
)

// Filter and pagination limits.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxSearchLength is the maximum free-text search length in characters.
	MaxSearchLength = 512
)

// RawParams are the possibly-absent inputs a Predicate is built from.
// Empty strings are treated as absent.
type RawParams struct {
	Search      opt.Value[string]
	Gender      opt.Value[string]
	Category    opt.Value[string]
	SubCategory opt.Value[string]
	ProductType opt.Value[string]
	Colour      opt.Value[string]
	Brand       opt.Value[string]
	MinPrice    opt.Value[decimal.Decimal]
	MaxPrice    opt.Value[decimal.Decimal]
	InStock     opt.Value[bool]
	SortBy      opt.Value[string]
	SortOrder   opt.Value[string]
	Page        opt.Value[int]
	PageSize    opt.Value[int]
}

// AttributeMatch is one exact, case-sensitive attribute constraint.
type AttributeMatch struct {
	Attribute product.Attribute
	Value     string
}

// Predicate is a validated, immutable set of catalog filter criteria.
type Predicate struct {
	search     opt.Value[string]
	attributes []AttributeMatch
	minPrice   opt.Value[decimal.Decimal]
	maxPrice   opt.Value[decimal.Decimal]
	inStock    opt.Value[bool]
	sortBy     SortField
	sortOrder  SortDirection
	page       int
	pageSize   int
	exclude    []string
}

// New validates raw inputs and normalizes them into a Predicate.
// Defaults: sort=name asc, page=1, pageSize=20. Explicit out-of-range values are rejected.
func New(raw RawParams) (Predicate, error) {
	p := Predicate{
		sortBy:    SortByName,
		sortOrder: Asc,
		page:      DefaultPage,
		pageSize:  DefaultPageSize,
	}

	if s, ok := nonEmpty(raw.Search); ok {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) > MaxSearchLength {
			return Predicate{}, domain.NewValidationError("search", "too long (max %d chars)", MaxSearchLength)
		}
		if s != "" {
			p.search = opt.Some(s)
		}
	}

	for _, f := range []struct {
		attr product.Attribute
		val  opt.Value[string]
	}{
		{product.Gender, raw.Gender},
		{product.Category, raw.Category},
		{product.SubCategory, raw.SubCategory},
		{product.ProductType, raw.ProductType},
		{product.Colour, raw.Colour},
		{product.Brand, raw.Brand},
	} {
		if v, ok := nonEmpty(f.val); ok {
			p.attributes = append(p.attributes, AttributeMatch{Attribute: f.attr, Value: v})
		}
	}

	if minPrice, ok := raw.MinPrice.Get(); ok {
		if minPrice.IsNegative() {
			return Predicate{}, domain.NewValidationError("min_price", "must not be negative")
		}
		p.minPrice = raw.MinPrice
	}
	if maxPrice, ok := raw.MaxPrice.Get(); ok {
		if maxPrice.IsNegative() {
			return Predicate{}, domain.NewValidationError("max_price", "must not be negative")
		}
		p.maxPrice = raw.MaxPrice
	}
	minPrice, hasMin := raw.MinPrice.Get()
	maxPrice, hasMax := raw.MaxPrice.Get()
	if hasMin && hasMax && minPrice.GreaterThan(maxPrice) {
		return Predicate{}, domain.NewValidationError("min_price",
			"must not exceed max_price (%s > %s)", minPrice.String(), maxPrice.String())
	}

	p.inStock = raw.InStock

	if s, ok := nonEmpty(raw.SortBy); ok {
		field, valid := ParseSortField(s)
		if !valid {
			return Predicate{}, domain.NewValidationError("sort_by",
				"must be one of name, price, created_at, popularity; got %q", s)
		}
		p.sortBy = field
	}
	if s, ok := nonEmpty(raw.SortOrder); ok {
		dir := SortDirection(strings.ToLower(s))
		if !dir.IsValid() {
			return Predicate{}, domain.NewValidationError("sort_order", "must be asc or desc; got %q", s)
		}
		p.sortOrder = dir
	}

	if page, ok := raw.Page.Get(); ok {
		if page < 1 {
			return Predicate{}, domain.NewValidationError("page", "must be >= 1, got %d", page)
		}
		p.page = page
	}
	if size, ok := raw.PageSize.Get(); ok {
		if size < 1 || size > MaxPageSize {
			return Predicate{}, domain.NewValidationError("page_size",
				"must be between 1 and %d, got %d", MaxPageSize, size)
		}
		p.pageSize = size
	}

	return p, nil
}

func nonEmpty(v opt.Value[string]) (string, bool) {
	s, ok := v.Get()
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Search returns the free-text term.
func (p Predicate) Search() opt.Value[string] { return p.search }

// HasSearch reports whether a free-text term is present.
func (p Predicate) HasSearch() bool { return p.search.IsSome() }

// Attributes returns the exact attribute constraints in a fixed order.
func (p Predicate) Attributes() []AttributeMatch {
	out := make([]AttributeMatch, len(p.attributes))
	copy(out, p.attributes)
	return out
}

// AttributeValue returns the constraint on a single attribute.
func (p Predicate) AttributeValue(a product.Attribute) opt.Value[string] {
	for _, m := range p.attributes {
		if m.Attribute == a {
			return opt.Some(m.Value)
		}
	}
	return opt.None[string]()
}

// MinPrice returns the inclusive lower price bound.
func (p Predicate) MinPrice() opt.Value[decimal.Decimal] { return p.minPrice }

// MaxPrice returns the inclusive upper price bound.
func (p Predicate) MaxPrice() opt.Value[decimal.Decimal] { return p.maxPrice }

// InStock returns the stock availability constraint.
func (p Predicate) InStock() opt.Value[bool] { return p.inStock }

// SortBy returns the sort field.
func (p Predicate) SortBy() SortField { return p.sortBy }

// SortOrder returns the sort direction.
func (p Predicate) SortOrder() SortDirection { return p.sortOrder }

// Page returns the 1-based page number.
func (p Predicate) Page() int { return p.page }

// PageSize returns the page size.
func (p Predicate) PageSize() int { return p.pageSize }

// Offset returns the zero-based index of the first row on the page.
func (p Predicate) Offset() int { return (p.page - 1) * p.pageSize }

// WithoutIDs returns a copy that also rejects the given product ids.
func (p Predicate) WithoutIDs(ids ...string) Predicate {
	cp := p
	cp.attributes = p.Attributes()
	cp.exclude = append(slices.Clone(p.exclude), ids...)
	return cp
}

// ExcludedIDs returns the product ids the predicate rejects.
func (p Predicate) ExcludedIDs() []string { return slices.Clone(p.exclude) }

// Matches evaluates the non-text constraints (excluded ids, attributes, price bounds, stock)
// against a product.
func (p Predicate) Matches(prod *product.Product) bool {
	if slices.Contains(p.exclude, prod.ID()) {
		return false
	}
	for _, m := range p.attributes {
		if prod.Attribute(m.Attribute) != m.Value {
			return false
		}
	}
	if minPrice, ok := p.minPrice.Get(); ok && prod.Price().LessThan(minPrice) {
		return false
	}
	if maxPrice, ok := p.maxPrice.Get(); ok && prod.Price().GreaterThan(maxPrice) {
		return false
	}
	if inStock, ok := p.inStock.Get(); ok && prod.InStock() != inStock {
		return false
	}
	return true
}
