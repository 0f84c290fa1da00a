package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/kailas-cloud/vitrine/internal/domain/product"
)

// Driver selects the SQL backend.
type Driver string

// Supported drivers.
const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// IsValid checks if the driver is supported.
func (d Driver) IsValid() bool {
	return d == DriverSQLite || d == DriverPostgres
}

// Config holds catalog database settings.
type Config struct {
	Driver       Driver
	DSN          string
	MaxOpenConns int
}

// Store is the relational product catalog over database/sql.
type Store struct {
	db     *sql.DB
	driver Driver
}

// Open connects to the catalog database and applies pending migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if !cfg.Driver.IsValid() {
		return nil, fmt.Errorf("unsupported catalog driver %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, errors.New("catalog dsn is required")
	}

	driverName := string(cfg.Driver)
	if cfg.Driver == DriverSQLite {
		driverName = sqliteDriverName
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	s := &Store{db: db, driver: cfg.Driver}
	if err := s.configure(ctx, cfg); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := s.ApplyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return s, nil
}

func (s *Store) configure(ctx context.Context, cfg Config) error {
	if s.driver == DriverSQLite {
		// SQLite benefits from a single writer; an in-memory database also lives on one connection.
		s.db.SetMaxOpenConns(1)
		s.db.SetMaxIdleConns(1)
		s.db.SetConnMaxLifetime(0)

		if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			return fmt.Errorf("enable WAL mode: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
			return fmt.Errorf("enable foreign keys: %w", err)
		}
		return nil
	}

	if cfg.MaxOpenConns > 0 {
		s.db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	s.db.SetConnMaxIdleTime(5 * time.Minute)

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("connect catalog: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping catalog: %w", err)
	}
	return nil
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// attributeColumns maps filterable attributes to their column.
var attributeColumns = map[product.Attribute]string{
	product.Gender:      "gender",
	product.Category:    "category",
	product.SubCategory: "sub_category",
	product.ProductType: "product_type",
	product.Colour:      "colour",
	product.Brand:       "brand",
	product.Usage:       "usage",
}
