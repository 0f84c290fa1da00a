package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Migration is one forward schema change. Statements run in order.
type Migration struct {
	Version    string
	Statements []string
}

// AllMigrations contains all catalog migrations in order. The DDL is shared by SQLite and Postgres.
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS products (
    product_id   TEXT PRIMARY KEY,
    title        TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    gender       TEXT NOT NULL DEFAULT '',
    category     TEXT NOT NULL DEFAULT '',
    sub_category TEXT NOT NULL DEFAULT '',
    product_type TEXT NOT NULL DEFAULT '',
    colour       TEXT NOT NULL DEFAULT '',
    brand        TEXT NOT NULL DEFAULT '',
    usage        TEXT NOT NULL DEFAULT '',
    price_cents  BIGINT NOT NULL DEFAULT 0,
    in_stock     BOOLEAN NOT NULL DEFAULT TRUE,
    popularity   BIGINT NOT NULL DEFAULT 0,
    created_at   BIGINT NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_products_category ON products(category)`,
			`CREATE INDEX IF NOT EXISTS idx_products_brand ON products(brand)`,
			`CREATE INDEX IF NOT EXISTS idx_products_price ON products(price_cents)`,
			`CREATE TABLE IF NOT EXISTS product_images (
    image_id   TEXT PRIMARY KEY,
    product_id TEXT NOT NULL REFERENCES products(product_id) ON DELETE CASCADE,
    url        TEXT NOT NULL,
    is_primary BOOLEAN NOT NULL DEFAULT FALSE
)`,
			`CREATE INDEX IF NOT EXISTS idx_product_images_product ON product_images(product_id)`,
		},
	},
}

const createSchemaVersion = `CREATE TABLE IF NOT EXISTS schema_version (
    version    TEXT PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`

// ApplyMigrations runs all pending migrations.
func (s *Store) ApplyMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createSchemaVersion); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	current, err := s.currentVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range AllMigrations {
		v, err := semver.NewVersion(m.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", m.Version, err)
		}
		if !current.LessThan(v) {
			continue
		}

		if err := s.applyMigration(ctx, m); err != nil {
			return err
		}
		current = v
	}

	return nil
}

func (s *Store) applyMigration(ctx context.Context, m Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", m.Version, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Version, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		s.rebind("INSERT INTO schema_version (version, applied_at) VALUES (?, ?)"),
		m.Version, time.Now().UnixMilli(),
	); err != nil {
		return fmt.Errorf("record migration %s: %w", m.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.Version, err)
	}
	return nil
}

// currentVersion returns the highest applied schema version, or 0.0.0.
func (s *Store) currentVersion(ctx context.Context) (*semver.Version, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("read schema_version: %w", err)
	}
	defer rows.Close()

	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan schema_version: %w", err)
		}
		v, err := semver.NewVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid applied schema version %s: %w", raw, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema_version: %w", err)
	}
	return current, nil
}
