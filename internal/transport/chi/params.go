package chi

import (
	"net/http"

	"github.com/oapi-codegen/runtime"
	"github.com/shopspring/decimal"

	"github.com/kailas-cloud/vitrine/internal/domain"
	"github.com/kailas-cloud/vitrine/internal/domain/opt"
	"github.com/kailas-cloud/vitrine/internal/domain/search/filter"
)

// listingQuery is the typed query string shared by the listing and search endpoints.
type listingQuery struct {
	Search      *string
	Gender      *string
	Category    *string
	SubCategory *string
	ProductType *string
	Colour      *string
	Brand       *string
	MinPrice    *string
	MaxPrice    *string
	InStock     *bool
	SortBy      *string
	SortOrder   *string
	Page        *int
	PageSize    *int
}

// bindListingQuery parses the query string. A malformed value is a validation error on that field.
func bindListingQuery(r *http.Request) (listingQuery, error) {
	var q listingQuery
	values := r.URL.Query()

	params := []struct {
		name string
		dest any
	}{
		{"search", &q.Search},
		{"gender", &q.Gender},
		{"category", &q.Category},
		{"sub_category", &q.SubCategory},
		{"product_type", &q.ProductType},
		{"colour", &q.Colour},
		{"brand", &q.Brand},
		{"min_price", &q.MinPrice},
		{"max_price", &q.MaxPrice},
		{"in_stock", &q.InStock},
		{"sort_by", &q.SortBy},
		{"sort_order", &q.SortOrder},
		{"page", &q.Page},
		{"page_size", &q.PageSize},
	}
	for _, p := range params {
		if err := runtime.BindQueryParameter("form", true, false, p.name, values, p.dest); err != nil {
			return listingQuery{}, domain.NewValidationError(p.name, "invalid value")
		}
	}
	return q, nil
}

// rawParams converts the bound query into filter input.
func (q listingQuery) rawParams() (filter.RawParams, error) {
	minPrice, err := decimalParam("min_price", q.MinPrice)
	if err != nil {
		return filter.RawParams{}, err
	}
	maxPrice, err := decimalParam("max_price", q.MaxPrice)
	if err != nil {
		return filter.RawParams{}, err
	}

	return filter.RawParams{
		Search:      opt.FromPtr(q.Search),
		Gender:      opt.FromPtr(q.Gender),
		Category:    opt.FromPtr(q.Category),
		SubCategory: opt.FromPtr(q.SubCategory),
		ProductType: opt.FromPtr(q.ProductType),
		Colour:      opt.FromPtr(q.Colour),
		Brand:       opt.FromPtr(q.Brand),
		MinPrice:    minPrice,
		MaxPrice:    maxPrice,
		InStock:     opt.FromPtr(q.InStock),
		SortBy:      opt.FromPtr(q.SortBy),
		SortOrder:   opt.FromPtr(q.SortOrder),
		Page:        opt.FromPtr(q.Page),
		PageSize:    opt.FromPtr(q.PageSize),
	}, nil
}

func decimalParam(name string, v *string) (opt.Value[decimal.Decimal], error) {
	if v == nil || *v == "" {
		return opt.None[decimal.Decimal](), nil
	}
	d, err := decimal.NewFromString(*v)
	if err != nil {
		return opt.None[decimal.Decimal](), domain.NewValidationError(name, "must be a decimal number, got %q", *v)
	}
	return opt.Some(d), nil
}

// predicateFromRequest binds and validates the listing query into a filter predicate.
// A non-empty textParam names a query parameter that takes precedence over "search".
func predicateFromRequest(r *http.Request, textParam string) (filter.Predicate, error) {
	q, err := bindListingQuery(r)
	if err != nil {
		return filter.Predicate{}, err
	}
	raw, err := q.rawParams()
	if err != nil {
		return filter.Predicate{}, err
	}
	if textParam != "" {
		if text := r.URL.Query().Get(textParam); text != "" {
			raw.Search = opt.Some(text)
		}
	}
	pred, err := filter.New(raw)
	if err != nil {
		return filter.Predicate{}, err //nolint:wrapcheck // validation errors reach the client as-is
	}
	return pred, nil
}
