package vitrine

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/vitrine/internal/domain/opt"
	"github.com/kailas-cloud/vitrine/internal/domain/product"
	"github.com/kailas-cloud/vitrine/internal/domain/search/facet"
	"github.com/kailas-cloud/vitrine/internal/domain/search/filter"
	searchuc "github.com/kailas-cloud/vitrine/internal/usecase/search"
)

func toInternalProduct(p *Product, now time.Time) (product.Product, error) {
	created := p.CreatedAt
	if created.IsZero() {
		created = now
	}
	out, err := product.New(p.ID, product.Attributes{
		Title:       p.Title,
		Description: p.Description,
		Gender:      p.Gender,
		Category:    p.Category,
		SubCategory: p.SubCategory,
		ProductType: p.ProductType,
		Colour:      p.Colour,
		Brand:       p.Brand,
		Usage:       p.Usage,
	}, p.Price, p.InStock, created, product.NewImage(p.ImageURL))
	if err != nil {
		return product.Product{}, fmt.Errorf("%w: product %q: %w", ErrValidation, p.ID, err)
	}
	return out, nil
}

func fromInternalProduct(p *product.Product) Product {
	a := p.Attributes()
	return Product{
		ID:          p.ID(),
		Title:       a.Title,
		Description: a.Description,
		Gender:      a.Gender,
		Category:    a.Category,
		SubCategory: a.SubCategory,
		ProductType: a.ProductType,
		Colour:      a.Colour,
		Brand:       a.Brand,
		Usage:       a.Usage,
		Price:       p.Price(),
		InStock:     p.InStock(),
		CreatedAt:   p.CreatedAt(),
		ImageURL:    p.Image().URL(),
	}
}

// toPredicate validates q into a search predicate.
func toPredicate(q *Query) (filter.Predicate, error) {
	raw := filter.RawParams{
		Search:      someString(q.Text),
		Gender:      someString(q.Gender),
		Category:    someString(q.Category),
		SubCategory: someString(q.SubCategory),
		ProductType: someString(q.ProductType),
		Colour:      someString(q.Colour),
		Brand:       someString(q.Brand),
		MinPrice:    opt.FromPtr(q.MinPrice),
		MaxPrice:    opt.FromPtr(q.MaxPrice),
		InStock:     opt.FromPtr(q.InStock),
		SortBy:      someString(q.SortBy),
		SortOrder:   someString(q.SortOrder),
	}
	if q.Page != 0 {
		raw.Page = opt.Some(q.Page)
	}
	if q.PageSize != 0 {
		raw.PageSize = opt.Some(q.PageSize)
	}
	pred, err := filter.New(raw)
	if err != nil {
		return filter.Predicate{}, fmt.Errorf("invalid query: %w", err)
	}
	return pred, nil
}

func someString(s string) opt.Value[string] {
	if s == "" {
		return opt.None[string]()
	}
	return opt.Some(s)
}

func fromResultPage(rp *searchuc.ResultPage) Page {
	hits := make([]Hit, 0, len(rp.Items))
	for i := range rp.Items {
		hits = append(hits, Hit{
			Product: fromInternalProduct(rp.Items[i].Product()),
			Score:   rp.Items[i].Score().Ptr(),
		})
	}
	return Page{
		Hits:        hits,
		Page:        rp.Meta.Page,
		PageSize:    rp.Meta.PageSize,
		TotalItems:  rp.Meta.TotalItems,
		TotalPages:  rp.Meta.TotalPages,
		HasNext:     rp.Meta.HasNext,
		HasPrevious: rp.Meta.HasPrevious,
		Source:      Source(rp.Source),
		Degraded:    rp.Degraded,
	}
}

func fromFacetSet(s facet.Set) Facets {
	out := make(Facets, len(product.FilterableAttributes))
	for _, a := range product.FilterableAttributes {
		out[string(a)] = s.Values(a)
	}
	return out
}
