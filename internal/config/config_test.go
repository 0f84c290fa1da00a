package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 8080},
		Redis:     RedisConfig{Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{Model: "clip-vit-b-32", Dimensions: 512},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"invalid port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"unknown catalog driver", func(c *Config) { c.Catalog.Driver = "mysql" }, "catalog.driver"},
		{"empty dsn", func(c *Config) { c.Catalog.DSN = "" }, "catalog.dsn"},
		{"negative rate", func(c *Config) { c.RateLimit.RequestsPerSecond = -1 }, "rate_limit"},
		{"missing model", func(c *Config) { c.Embedding.Model = "" }, "embedding.model"},
		{"missing dimensions", func(c *Config) { c.Embedding.Dimensions = 0 }, "embedding.dimensions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_NoRedisSkipsEmbedding(t *testing.T) {
	cfg := Config{HTTP: HTTPConfig{Port: 8080}}
	cfg.ApplyDefaults()

	if cfg.SimilarityEnabled() {
		t.Fatal("similarity should be disabled without redis addrs")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("catalog-only config should be valid: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{Embedding: EmbeddingConfig{APIKey: "emb-key", BaseURL: "https://emb.example.com/v1"}}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("ReadTimeoutSec: got %d, want 10", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Catalog.Driver != "sqlite" || cfg.Catalog.DSN != "vitrine.db" {
		t.Errorf("catalog defaults: got %q %q", cfg.Catalog.Driver, cfg.Catalog.DSN)
	}
	if cfg.Catalog.HybridCatalogLimit != 500 {
		t.Errorf("HybridCatalogLimit: got %d, want 500", cfg.Catalog.HybridCatalogLimit)
	}
	if cfg.Redis.KeyPrefix != "vitrine:" {
		t.Errorf("KeyPrefix: got %q, want %q", cfg.Redis.KeyPrefix, "vitrine:")
	}
	if cfg.Search.TopK != 50 {
		t.Errorf("TopK: got %d, want 50", cfg.Search.TopK)
	}
	if cfg.Search.SimilarityTimeoutMs != 3000 {
		t.Errorf("SimilarityTimeoutMs: got %d, want 3000", cfg.Search.SimilarityTimeoutMs)
	}
	if cfg.Index.BatchSize != 64 {
		t.Errorf("BatchSize: got %d, want 64", cfg.Index.BatchSize)
	}
	if cfg.Translation.APIKey != "emb-key" || cfg.Translation.BaseURL != "https://emb.example.com/v1" {
		t.Errorf("translation should inherit embedding credentials, got %+v", cfg.Translation)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		Catalog:   CatalogConfig{Driver: "postgres", DSN: "postgres://x", HybridCatalogLimit: 100},
		Search:    SearchConfig{TopK: 10},
		RateLimit: RateLimitConfig{RequestsPerSecond: 5, Burst: 1},
		Index:     IndexConfig{HNSWM: 8},
	}
	cfg.ApplyDefaults()

	if cfg.Catalog.Driver != "postgres" || cfg.Catalog.DSN != "postgres://x" {
		t.Errorf("catalog overridden: %+v", cfg.Catalog)
	}
	if cfg.Catalog.HybridCatalogLimit != 100 {
		t.Errorf("HybridCatalogLimit: got %d, want 100", cfg.Catalog.HybridCatalogLimit)
	}
	if cfg.Search.TopK != 10 {
		t.Errorf("TopK: got %d, want 10", cfg.Search.TopK)
	}
	if cfg.RateLimit.Burst != 1 {
		t.Errorf("Burst: got %d, want 1", cfg.RateLimit.Burst)
	}
	if cfg.Index.HNSWM != 8 {
		t.Errorf("HNSWM: got %d, want 8", cfg.Index.HNSWM)
	}
}

func TestLoadFile_ExpandsEnv(t *testing.T) {
	t.Setenv("VITRINE_TEST_PORT", "9090")

	path := filepath.Join(t.TempDir(), "test.yaml")
	yaml := `
http:
  port: ${VITRINE_TEST_PORT}
catalog:
  driver: ${VITRINE_TEST_DRIVER:-sqlite}
  dsn: ":memory:"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port: got %d, want 9090", cfg.HTTP.Port)
	}
	if cfg.Catalog.Driver != "sqlite" {
		t.Errorf("driver: got %q, want sqlite", cfg.Catalog.Driver)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
