package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kailas-cloud/vitrine/internal/domain"
	"github.com/kailas-cloud/vitrine/internal/domain/product"
)

const upsertProduct = `INSERT INTO products (
    product_id, title, description, gender, category, sub_category,
    product_type, colour, brand, usage, price_cents, in_stock, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (product_id) DO UPDATE SET
    title = excluded.title,
    description = excluded.description,
    gender = excluded.gender,
    category = excluded.category,
    sub_category = excluded.sub_category,
    product_type = excluded.product_type,
    colour = excluded.colour,
    brand = excluded.brand,
    usage = excluded.usage,
    price_cents = excluded.price_cents,
    in_stock = excluded.in_stock`

// Upsert inserts or updates products and their primary image in one transaction.
// created_at and popularity of existing rows are preserved.
func (s *Store) Upsert(ctx context.Context, products []product.Product) error {
	if len(products) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsertSQL := s.rebind(upsertProduct)
	clearSQL := s.rebind("DELETE FROM product_images WHERE product_id = ? AND is_primary")
	imageSQL := s.rebind("INSERT INTO product_images (image_id, product_id, url, is_primary) VALUES (?, ?, ?, ?)")

	for i := range products {
		p := &products[i]
		a := p.Attributes()
		if _, err := tx.ExecContext(ctx, upsertSQL,
			p.ID(), a.Title, a.Description, a.Gender, a.Category, a.SubCategory,
			a.ProductType, a.Colour, a.Brand, a.Usage,
			p.Price().Shift(2).Round(0).IntPart(), p.InStock(), p.CreatedAt().UnixMilli(),
		); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.ID(), err)
		}

		if _, err := tx.ExecContext(ctx, clearSQL, p.ID()); err != nil {
			return fmt.Errorf("clear primary image %s: %w", p.ID(), err)
		}
		if !p.Image().Present() {
			continue
		}
		if _, err := tx.ExecContext(ctx, imageSQL, uuid.NewString(), p.ID(), p.Image().URL(), true); err != nil {
			return fmt.Errorf("insert primary image %s: %w", p.ID(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// SetPopularity updates the popularity sort key of a product.
func (s *Store) SetPopularity(ctx context.Context, productID string, popularity int64) error {
	res, err := s.db.ExecContext(ctx, s.rebind("UPDATE products SET popularity = ? WHERE product_id = ?"),
		popularity, productID)
	if err != nil {
		return fmt.Errorf("set popularity %s: %w", productID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("set popularity %s: %w", productID, domain.ErrNotFound)
	}
	return nil
}
