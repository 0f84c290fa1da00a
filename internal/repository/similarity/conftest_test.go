package similarity

import (
	"context"
	"testing"

	"github.com/kailas-cloud/vitrine/internal/db"
	"github.com/kailas-cloud/vitrine/internal/domain"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) ([]db.KNNHit, error)
	indexExists   bool
	indexErr      error
	createErr     error
	created       *db.IndexSpec
	dropped       []string
	dropErr       error
	putDocs       []db.VectorDoc
	putErr        error
	existsResults []bool
	existsKeys    []string
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) ([]db.KNNHit, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return nil, nil
}

func (m *mockStore) CreateVectorIndex(_ context.Context, spec *db.IndexSpec) error {
	m.created = spec
	return m.createErr
}

func (m *mockStore) DropVectorIndex(_ context.Context, name string, deleteDocs bool) error {
	if deleteDocs {
		m.dropped = append(m.dropped, name)
	}
	return m.dropErr
}

func (m *mockStore) IndexExists(_ context.Context, _ string) (bool, error) {
	return m.indexExists, m.indexErr
}

func (m *mockStore) PutVectors(_ context.Context, docs []db.VectorDoc) error {
	m.putDocs = append(m.putDocs, docs...)
	return m.putErr
}

func (m *mockStore) HasKeys(_ context.Context, keys []string) ([]bool, error) {
	m.existsKeys = keys
	return m.existsResults, nil
}

type mockEmbedder struct {
	vec      []float32
	tokens   int
	err      error
	lastText string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.lastText = text
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: m.tokens}, m.err
}

type mockImageEmbedder struct {
	vec      []float32
	err      error
	lastMime string
}

func (m *mockImageEmbedder) EmbedImage(_ context.Context, _ []byte, mimeType string) (domain.EmbeddingResult, error) {
	m.lastMime = mimeType
	return domain.EmbeddingResult{Embedding: m.vec}, m.err
}

type mockTranslator struct {
	out string
	err error
}

func (m *mockTranslator) Translate(_ context.Context, _ string) (string, error) {
	return m.out, m.err
}

var testConfig = Config{
	IndexName:  "vitrine-products",
	KeyPrefix:  "vitrine:emb:",
	Model:      "clip",
	Dimensions: 2,
	HNSWM:      16,
	HNSWEF:     200,
}

func newTestRepo(t *testing.T) (*Repo, *mockStore, *mockEmbedder, *mockImageEmbedder) {
	t.Helper()
	ms := &mockStore{}
	te := &mockEmbedder{vec: []float32{0.1, 0.2}, tokens: 5}
	ie := &mockImageEmbedder{vec: []float32{0.3, 0.4}}
	return New(ms, te, ie, testConfig, nil), ms, te, ie
}
