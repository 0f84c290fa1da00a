package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kailas-cloud/vitrine/internal/domain/product"
	"github.com/kailas-cloud/vitrine/internal/domain/search/filter"
	"github.com/kailas-cloud/vitrine/internal/domain/search/page"
)

const selectProducts = `SELECT p.product_id, p.title, p.description, p.gender, p.category, p.sub_category,
       p.product_type, p.colour, p.brand, p.usage, p.price_cents, p.in_stock, p.created_at,
       COALESCE((SELECT i.url FROM product_images i
                 WHERE i.product_id = p.product_id AND i.is_primary
                 ORDER BY i.image_id LIMIT 1), '') AS image_url
FROM products p`

var sortColumns = map[filter.SortField]string{
	filter.SortByName:       "LOWER(p.title)",
	filter.SortByPrice:      "p.price_cents",
	filter.SortByCreatedAt:  "p.created_at",
	filter.SortByPopularity: "p.popularity",
}

// Query returns rows matching every predicate constraint, free text included, in the
// predicate's sort order and restricted to w, plus the total number of matching rows.
func (s *Store) Query(ctx context.Context, pred filter.Predicate, w page.Window) ([]product.Product, int, error) {
	where, args := buildWhere(pred)

	var total int
	countSQL := s.rebind("SELECT COUNT(*) FROM products p" + where)
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	if total == 0 || w.Limit <= 0 || w.Offset >= total {
		return nil, total, nil
	}

	q := selectProducts + where + orderBy(pred) + " LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, s.rebind(q), append(args, w.Limit, max(w.Offset, 0))...)
	if err != nil {
		return nil, 0, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	out, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// FindByIDs returns the products with the given ids. Unknown ids are skipped.
func (s *Store) FindByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	q := selectProducts + " WHERE p.product_id IN (" + placeholders + ")"
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("find products by id: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// Facets returns the distinct non-empty values of every filterable attribute.
func (s *Store) Facets(ctx context.Context) (map[product.Attribute][]string, error) {
	out := make(map[product.Attribute][]string, len(product.FilterableAttributes))
	for _, attr := range product.FilterableAttributes {
		col := attributeColumns[attr]
		values, err := s.distinct(ctx, col)
		if err != nil {
			return nil, fmt.Errorf("facet %s: %w", attr, err)
		}
		out[attr] = values
	}
	return out, nil
}

func (s *Store) distinct(ctx context.Context, col string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT "+col+" FROM products WHERE "+col+" <> ''")
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err //nolint:wrapcheck // wrapped by caller
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// buildWhere translates a predicate into a WHERE clause with ? placeholders.
func buildWhere(pred filter.Predicate) (string, []any) {
	var (
		conds []string
		args  []any
	)

	for _, m := range pred.Attributes() {
		col, ok := attributeColumns[m.Attribute]
		if !ok {
			continue
		}
		conds = append(conds, "p."+col+" = ?")
		args = append(args, m.Value)
	}

	if v, ok := pred.MinPrice().Get(); ok {
		conds = append(conds, "p.price_cents >= ?")
		args = append(args, v.Shift(2).Ceil().IntPart())
	}
	if v, ok := pred.MaxPrice().Get(); ok {
		conds = append(conds, "p.price_cents <= ?")
		args = append(args, v.Shift(2).Floor().IntPart())
	}
	if v, ok := pred.InStock().Get(); ok {
		conds = append(conds, "p.in_stock = ?")
		args = append(args, v)
	}
	if excluded := pred.ExcludedIDs(); len(excluded) > 0 {
		conds = append(conds, "p.product_id NOT IN (?"+strings.Repeat(", ?", len(excluded)-1)+")")
		for _, id := range excluded {
			args = append(args, id)
		}
	}
	// SQLite's LOWER folds ASCII only, so non-ASCII letters match case-sensitively there.
	// Postgres folds them per the database locale.
	if text, ok := pred.Search().Get(); ok {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(text)) + "%"
		conds = append(conds, `(LOWER(p.title) LIKE ? ESCAPE '\' OR LOWER(p.description) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderBy(pred filter.Predicate) string {
	col, ok := sortColumns[pred.SortBy()]
	if !ok {
		col = sortColumns[filter.SortByName]
	}
	dir := "ASC"
	if pred.SortOrder() == filter.Desc {
		dir = "DESC"
	}
	// product_id keeps equal sort keys in a stable order across pages.
	return " ORDER BY " + col + " " + dir + ", p.product_id ASC"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func scanProducts(rows *sql.Rows) ([]product.Product, error) {
	var out []product.Product
	for rows.Next() {
		var (
			id, imageURL      string
			attrs             product.Attributes
			priceCents, msecs int64
			inStock           bool
		)
		if err := rows.Scan(
			&id, &attrs.Title, &attrs.Description, &attrs.Gender, &attrs.Category, &attrs.SubCategory,
			&attrs.ProductType, &attrs.Colour, &attrs.Brand, &attrs.Usage, &priceCents, &inStock, &msecs,
			&imageURL,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}

		img := product.NoImage()
		if imageURL != "" {
			img = product.NewImage(imageURL)
		}
		out = append(out, product.Reconstruct(
			id, attrs, decimal.New(priceCents, -2), inStock, time.UnixMilli(msecs).UTC(), img,
		))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}
