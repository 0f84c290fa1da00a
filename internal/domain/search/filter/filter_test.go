package filter

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kailas-cloud/vitrine/internal/domain"
	"github.com/kailas-cloud/vitrine/internal/domain/opt"
	"github.com/kailas-cloud/vitrine/internal/domain/product"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mustNew(t *testing.T, raw RawParams) Predicate {
	t.Helper()
	p, err := New(raw)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func makeProduct(attrs product.Attributes, price string, inStock bool) product.Product {
	if attrs.Title == "" {
		attrs.Title = "Product"
	}
	return product.Reconstruct("p1", attrs, dec(price), inStock, time.Time{}, product.NoImage())
}

func TestNew_Defaults(t *testing.T) {
	p := mustNew(t, RawParams{})
	if p.Page() != DefaultPage {
		t.Errorf("expected page %d, got %d", DefaultPage, p.Page())
	}
	if p.PageSize() != DefaultPageSize {
		t.Errorf("expected page size %d, got %d", DefaultPageSize, p.PageSize())
	}
	if p.SortBy() != SortByName || p.SortOrder() != Asc {
		t.Errorf("expected name asc, got %s %s", p.SortBy(), p.SortOrder())
	}
	if p.HasSearch() {
		t.Error("expected no search term")
	}
	if len(p.Attributes()) != 0 {
		t.Error("expected no attribute constraints")
	}
	if p.Offset() != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset())
	}
}

func TestNew_MinGreaterThanMax(t *testing.T) {
	_, err := New(RawParams{
		MinPrice: opt.Some(dec("100")),
		MaxPrice: opt.Some(dec("50")),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Field != "min_price" {
		t.Fatalf("expected ValidationError on min_price, got %v", err)
	}
}

func TestNew_EqualBoundsAllowed(t *testing.T) {
	p := mustNew(t, RawParams{MinPrice: opt.Some(dec("50")), MaxPrice: opt.Some(dec("50.00"))})
	if !p.Matches(ptr(makeProduct(product.Attributes{}, "50", true))) {
		t.Error("inclusive bounds must match the boundary price")
	}
}

func TestNew_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		raw   RawParams
		field string
	}{
		{"page zero", RawParams{Page: opt.Some(0)}, "page"},
		{"negative page", RawParams{Page: opt.Some(-3)}, "page"},
		{"page size zero", RawParams{PageSize: opt.Some(0)}, "page_size"},
		{"page size over cap", RawParams{PageSize: opt.Some(MaxPageSize + 1)}, "page_size"},
		{"negative min price", RawParams{MinPrice: opt.Some(dec("-1"))}, "min_price"},
		{"negative max price", RawParams{MaxPrice: opt.Some(dec("-1"))}, "max_price"},
		{"bad sort field", RawParams{SortBy: opt.Some("rating")}, "sort_by"},
		{"bad sort order", RawParams{SortOrder: opt.Some("up")}, "sort_order"},
		{"search too long", RawParams{Search: opt.Some(strings.Repeat("a", MaxSearchLength+1))}, "search"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.raw)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, ve.Field)
			}
		})
	}
}

func TestNew_BoundaryPageSize(t *testing.T) {
	for _, size := range []int{1, MaxPageSize} {
		p := mustNew(t, RawParams{PageSize: opt.Some(size)})
		if p.PageSize() != size {
			t.Errorf("expected page size %d, got %d", size, p.PageSize())
		}
	}
}

func TestNew_SortAliases(t *testing.T) {
	p := mustNew(t, RawParams{SortBy: opt.Some("createdAt"), SortOrder: opt.Some("DESC")})
	if p.SortBy() != SortByCreatedAt {
		t.Errorf("expected created_at, got %s", p.SortBy())
	}
	if p.SortOrder() != Desc {
		t.Errorf("expected desc, got %s", p.SortOrder())
	}
}

func TestNew_EmptyStringsAreAbsent(t *testing.T) {
	p := mustNew(t, RawParams{
		Search:   opt.Some("   "),
		Category: opt.Some(""),
		SortBy:   opt.Some(""),
	})
	if p.HasSearch() {
		t.Error("blank search must be absent")
	}
	if p.AttributeValue(product.Category).IsSome() {
		t.Error("empty category must be absent")
	}
	if p.SortBy() != SortByName {
		t.Errorf("empty sort_by must default to name, got %s", p.SortBy())
	}
}

func TestPredicate_Offset(t *testing.T) {
	p := mustNew(t, RawParams{Page: opt.Some(3), PageSize: opt.Some(10)})
	if p.Offset() != 20 {
		t.Errorf("expected offset 20, got %d", p.Offset())
	}
}

func TestMatches(t *testing.T) {
	shirt := makeProduct(product.Attributes{
		Gender: "Men", Category: "Apparel", SubCategory: "Topwear",
		ProductType: "Shirts", Colour: "Blue", Brand: "Acme",
	}, "29.99", true)

	tests := []struct {
		name string
		raw  RawParams
		want bool
	}{
		{"no constraints", RawParams{}, true},
		{"gender match", RawParams{Gender: opt.Some("Men")}, true},
		{"gender case-sensitive", RawParams{Gender: opt.Some("men")}, false},
		{"colour mismatch", RawParams{Colour: opt.Some("Red")}, false},
		{"brand match", RawParams{Brand: opt.Some("Acme")}, true},
		{"sub category mismatch", RawParams{SubCategory: opt.Some("Bottomwear")}, false},
		{"product type match", RawParams{ProductType: opt.Some("Shirts")}, true},
		{"min below", RawParams{MinPrice: opt.Some(dec("29.99"))}, true},
		{"min above", RawParams{MinPrice: opt.Some(dec("30"))}, false},
		{"max above", RawParams{MaxPrice: opt.Some(dec("29.99"))}, true},
		{"max below", RawParams{MaxPrice: opt.Some(dec("29.98"))}, false},
		{"in stock wanted", RawParams{InStock: opt.Some(true)}, true},
		{"out of stock wanted", RawParams{InStock: opt.Some(false)}, false},
		{"search ignored", RawParams{Search: opt.Some("nothing like it")}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := mustNew(t, tc.raw)
			if got := p.Matches(&shirt); got != tc.want {
				t.Errorf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMatches_OutOfStockCandidateDropped(t *testing.T) {
	p := mustNew(t, RawParams{InStock: opt.Some(true)})
	sold := makeProduct(product.Attributes{}, "10", false)
	if p.Matches(&sold) {
		t.Error("out-of-stock product must not match in_stock=true")
	}
}

func TestWithoutIDs(t *testing.T) {
	base := mustNew(t, RawParams{Colour: opt.Some("Blue")})
	narrowed := base.WithoutIDs("a", "b")
	blue := makeProduct(product.Attributes{Colour: "Blue"}, "10", true)

	if len(base.ExcludedIDs()) != 0 {
		t.Error("WithoutIDs must not mutate the receiver")
	}
	if got := narrowed.WithoutIDs("c").ExcludedIDs(); len(got) != 3 {
		t.Errorf("expected exclusions to accumulate, got %v", got)
	}
	if narrowed.AttributeValue(product.Colour).OrElse("") != "Blue" {
		t.Error("WithoutIDs must keep attribute constraints")
	}
	if !narrowed.Matches(&blue) {
		t.Errorf("product %s is not excluded and must match", blue.ID())
	}
	if base.WithoutIDs(blue.ID()).Matches(&blue) {
		t.Error("excluded product must not match")
	}
}

func ptr[T any](v T) *T { return &v }
