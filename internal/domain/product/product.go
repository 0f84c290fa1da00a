package product

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PlaceholderImageURL is served for products without a primary image.
const PlaceholderImageURL = "https://placehold.co/600x800?text=No+Image"

// MaxIDLength is the maximum external product identifier length.
const MaxIDLength = 128

// Attribute names a filterable, faceted string attribute of a product.
type Attribute string

// Filterable attributes.
const (
	Gender      Attribute = "gender"
	Category    Attribute = "category"
	SubCategory Attribute = "sub_category"
	ProductType Attribute = "product_type"
	Colour      Attribute = "colour"
	Brand       Attribute = "brand"
	Usage       Attribute = "usage"
)

// FilterableAttributes lists every faceted attribute in display order.
var FilterableAttributes = []Attribute{Gender, Category, SubCategory, ProductType, Colour, Brand, Usage}

// IsValid checks if the attribute is one of the supported values.
func (a Attribute) IsValid() bool {
	for _, known := range FilterableAttributes {
		if a == known {
			return true
		}
	}
	return false
}

// Attributes are the descriptive catalog fields of a product.
type Attributes struct {
	Title       string
	Description string
	Gender      string
	Category    string
	SubCategory string
	ProductType string
	Colour      string
	Brand       string
	Usage       string
}

// ImageReference is the zero-or-one primary image of a product.
type ImageReference struct {
	url string
}

// NewImage returns a reference to the given URL. An empty URL means no image.
func NewImage(url string) ImageReference { return ImageReference{url: url} }

// NoImage returns an absent image reference.
func NoImage() ImageReference { return ImageReference{} }

// Present reports whether the product has a primary image.
func (i ImageReference) Present() bool { return i.url != "" }

// URL returns the image URL, or PlaceholderImageURL when absent. Never empty.
func (i ImageReference) URL() string {
	if i.url == "" {
		return PlaceholderImageURL
	}
	return i.url
}

// Product is a read-only catalog projection (immutable value object).
type Product struct {
	id        string
	attrs     Attributes
	price     decimal.Decimal
	inStock   bool
	createdAt time.Time
	image     ImageReference
}

// New validates and creates a Product.
// ID: 1-128 chars. Title: required. Price: non-negative.
func New(
	id string, attrs Attributes, price decimal.Decimal,
	inStock bool, createdAt time.Time, image ImageReference,
) (Product, error) {
	if id == "" {
		return Product{}, fmt.Errorf("product ID is required")
	}
	if len(id) > MaxIDLength {
		return Product{}, fmt.Errorf("product ID too long (max %d)", MaxIDLength)
	}
	if attrs.Title == "" {
		return Product{}, fmt.Errorf("product title is required")
	}
	if price.IsNegative() {
		return Product{}, fmt.Errorf("price must not be negative")
	}
	return Reconstruct(id, attrs, price, inStock, createdAt, image), nil
}

// Reconstruct creates a Product without validation (storage hydration).
func Reconstruct(
	id string, attrs Attributes, price decimal.Decimal,
	inStock bool, createdAt time.Time, image ImageReference,
) Product {
	return Product{
		id: id, attrs: attrs, price: price,
		inStock: inStock, createdAt: createdAt, image: image,
	}
}

// ID returns the stable external identifier.
func (p *Product) ID() string { return p.id }

// Title returns the display name.
func (p *Product) Title() string { return p.attrs.Title }

// Description returns the free-text description.
func (p *Product) Description() string { return p.attrs.Description }

// Attributes returns a copy of the descriptive fields.
func (p *Product) Attributes() Attributes { return p.attrs }

// Attribute returns the value of a filterable attribute ("" when unset or unknown).
func (p *Product) Attribute(a Attribute) string {
	switch a {
	case Gender:
		return p.attrs.Gender
	case Category:
		return p.attrs.Category
	case SubCategory:
		return p.attrs.SubCategory
	case ProductType:
		return p.attrs.ProductType
	case Colour:
		return p.attrs.Colour
	case Brand:
		return p.attrs.Brand
	case Usage:
		return p.attrs.Usage
	default:
		return ""
	}
}

// Price returns the exact price.
func (p *Product) Price() decimal.Decimal { return p.price }

// InStock reports stock availability.
func (p *Product) InStock() bool { return p.inStock }

// CreatedAt returns the catalog creation time.
func (p *Product) CreatedAt() time.Time { return p.createdAt }

// Image returns the primary image reference.
func (p *Product) Image() ImageReference { return p.image }
