package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vitrine/internal/domain"
	"github.com/kailas-cloud/vitrine/internal/domain/product"
	"github.com/kailas-cloud/vitrine/internal/repository/similarity"
)

// --- Fakes ---

type fakeCatalog struct {
	batches    [][]product.Product
	popularity map[string]int64
	err        error
}

func (f *fakeCatalog) Upsert(_ context.Context, products []product.Product) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, products)
	return nil
}

func (f *fakeCatalog) SetPopularity(_ context.Context, id string, n int64) error {
	if f.popularity == nil {
		f.popularity = map[string]int64{}
	}
	f.popularity[id] = n
	return nil
}

type fakeVectors struct {
	existing map[string]bool
	stored   []similarity.Vector
}

func (f *fakeVectors) Indexed(_ context.Context, ids []string) ([]bool, error) {
	out := make([]bool, len(ids))
	for i, id := range ids {
		out[i] = f.existing[id]
	}
	return out, nil
}

func (f *fakeVectors) Upsert(_ context.Context, vectors []similarity.Vector) error {
	f.stored = append(f.stored, vectors...)
	return nil
}

type fakeEmbedder struct {
	mu    sync.Mutex
	fail  map[string]bool
	mimes []string
}

func (f *fakeEmbedder) EmbedImage(_ context.Context, img []byte, mimeType string) (domain.EmbeddingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mimes = append(f.mimes, mimeType)
	if f.fail[string(img)] {
		return domain.EmbeddingResult{}, domain.ErrEmbeddingProviderError
	}
	return domain.EmbeddingResult{Embedding: []float32{float32(len(img)), 1}}, nil
}

// memImages serves image bytes keyed by image name; absent names are missing files.
func memImages(files map[string]string) ImageSource {
	return func(rec *Record) ([]byte, string, error) {
		data, ok := files[rec.ImageName]
		if !ok {
			return nil, "", ErrImageMissing
		}
		return []byte(data), "image/jpeg", nil
	}
}

const header = "ProductId,Gender,Category,SubCategory,ProductType,Colour,Usage,ProductTitle,Image,ImageURL,Price,Brand,Popularity\n"

func newTestIndexer(cat *fakeCatalog, vec *fakeVectors, emb *fakeEmbedder, images ImageSource) *Indexer {
	ix := New(cat, vec, emb, images, zap.NewNop())
	ix.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	return ix
}

// --- Tests ---

func TestRun_IndexesNewProducts(t *testing.T) {
	csv := header +
		"1001,Men,Apparel,Topwear,Tshirts,Navy Blue,Casual,Navy Tee,1001.jpg,http://img/1001.jpg,19.99,Acme,7\n" +
		"1002,Women,Footwear,Shoes,Heels,Red,Party,Red Heels,1002.jpg,,49,Zenith,\n"

	cat := &fakeCatalog{}
	vec := &fakeVectors{}
	emb := &fakeEmbedder{}
	ix := newTestIndexer(cat, vec, emb, memImages(map[string]string{"1001.jpg": "aaaa", "1002.jpg": "bb"}))

	stats, err := ix.Run(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, Stats{Rows: 2, Upserted: 2, Embedded: 2}, stats)
	require.Len(t, cat.batches, 1)

	p := cat.batches[0][0]
	assert.Equal(t, "1001", p.ID())
	assert.Equal(t, "Navy Tee", p.Title())
	assert.Equal(t, "Acme", p.Attribute(product.Brand))
	assert.Equal(t, "Casual", p.Attribute(product.Usage))
	assert.Equal(t, "19.99", p.Price().String())
	assert.Equal(t, "http://img/1001.jpg", p.Image().URL())
	assert.False(t, cat.batches[0][1].Image().Present())

	assert.Equal(t, map[string]int64{"1001": 7}, cat.popularity)

	require.Len(t, vec.stored, 2)
	assert.ElementsMatch(t, []string{"1001", "1002"}, []string{vec.stored[0].ProductID, vec.stored[1].ProductID})
}

func TestRun_SkipsIndexedAndCountsFailures(t *testing.T) {
	csv := header +
		"1,Men,Apparel,,,,,Indexed,1.jpg,,,,\n" +
		"2,Men,Apparel,,,,,No Image,2.jpg,,,,\n" +
		"3,Men,Apparel,,,,,Bad Embed,3.jpg,,,,\n" +
		"4,Men,Apparel,,,,,Fine,4.jpg,,,,\n"

	cat := &fakeCatalog{}
	vec := &fakeVectors{existing: map[string]bool{"1": true}}
	emb := &fakeEmbedder{fail: map[string]bool{"boom": true}}
	images := memImages(map[string]string{"1.jpg": "x", "3.jpg": "boom", "4.jpg": "ok"})

	stats, err := newTestIndexer(cat, vec, emb, images).Run(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, Stats{Rows: 4, Upserted: 4, Embedded: 1, Skipped: 1, NoImage: 1, Failed: 1}, stats)
	require.Len(t, vec.stored, 1)
	assert.Equal(t, "4", vec.stored[0].ProductID)
	assert.Len(t, emb.mimes, 2, "indexed rows must not be re-embedded")
}

func TestRun_Batches(t *testing.T) {
	var b strings.Builder
	b.WriteString(header)
	for i := range 5 {
		b.WriteString(string(rune('a'+i)) + ",,,,,,,Title,x.jpg,,,,\n")
	}

	cat := &fakeCatalog{}
	ix := newTestIndexer(cat, &fakeVectors{}, &fakeEmbedder{}, memImages(nil)).WithBatchSize(2)

	stats, err := ix.Run(context.Background(), strings.NewReader(b.String()))
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Rows)
	require.Len(t, cat.batches, 3)
	assert.Len(t, cat.batches[0], 2)
	assert.Len(t, cat.batches[2], 1)
}

func TestRun_InvalidRowsAreSkipped(t *testing.T) {
	csv := header +
		"1,,,,,,,,1.jpg,,,,\n" + // missing title
		"2,,,,,,,Ok,2.jpg,,not-a-price,,\n" +
		"3,,,,,,,Ok,3.jpg,,5,,\n"

	stats, err := newTestIndexer(&fakeCatalog{}, &fakeVectors{}, &fakeEmbedder{}, memImages(nil)).
		Run(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Invalid)
	assert.Equal(t, 1, stats.Rows)
}

func TestRun_IDFromImageName(t *testing.T) {
	csv := "ProductTitle,Image\nPlain Tee,5678.jpg\n"
	cat := &fakeCatalog{}

	_, err := newTestIndexer(cat, &fakeVectors{}, &fakeEmbedder{}, memImages(nil)).
		Run(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)

	require.Len(t, cat.batches, 1)
	assert.Equal(t, "5678", cat.batches[0][0].ID())
}

func TestRun_MissingColumns(t *testing.T) {
	_, err := newTestIndexer(&fakeCatalog{}, &fakeVectors{}, &fakeEmbedder{}, memImages(nil)).
		Run(context.Background(), strings.NewReader("ProductId,Image\n1,1.jpg\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ProductTitle")
}

func TestRun_CatalogErrorAborts(t *testing.T) {
	cat := &fakeCatalog{err: errors.New("disk full")}
	_, err := newTestIndexer(cat, &fakeVectors{}, &fakeEmbedder{}, memImages(nil)).
		Run(context.Background(), strings.NewReader(header+"1,,,,,,,T,1.jpg,,,,\n"))
	require.Error(t, err)
}

func TestDirImages(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "Apparel", "Men", "Images", "images_with_product_ids")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "1.png"), []byte("nested"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "2.jpg"), []byte("flat"), 0o600))

	rec := func(id, image string) *Record {
		p := product.Reconstruct(id, product.Attributes{Title: "t", Category: "Apparel", Gender: "Men"},
			decimal.Zero, true, time.Time{}, product.NoImage())
		return &Record{Product: p, ImageName: image}
	}
	src := DirImages(root)

	data, mimeType, err := src(rec("1", "1.png"))
	require.NoError(t, err)
	assert.Equal(t, "nested", string(data))
	assert.Equal(t, "image/png", mimeType)

	data, mimeType, err = src(rec("2", "2.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "flat", string(data))
	assert.Equal(t, "image/jpeg", mimeType)

	_, _, err = src(rec("3", "3.jpg"))
	assert.ErrorIs(t, err, ErrImageMissing)
}
