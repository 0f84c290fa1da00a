package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vitrine/internal/config"
)

func TestOpen_CatalogOnly(t *testing.T) {
	cfg := config.Config{
		HTTP:    config.HTTPConfig{Port: 8000},
		Catalog: config.CatalogConfig{DSN: filepath.Join(t.TempDir(), "catalog.db")},
	}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	b, err := Open(context.Background(), &cfg, zap.NewNop())
	require.NoError(t, err)
	defer b.Close()

	assert.Nil(t, b.Redis)
	assert.Nil(t, b.SimilarityService(), "disabled similarity must be an untyped nil interface")
	assert.Equal(t, b.Catalog, b.FacetSource())
	require.NoError(t, b.Catalog.Ping(context.Background()))
}

func TestOpen_BadDriver(t *testing.T) {
	cfg := config.Config{Catalog: config.CatalogConfig{Driver: "mysql", DSN: "x"}}
	_, err := Open(context.Background(), &cfg, zap.NewNop())
	require.Error(t, err)
}
