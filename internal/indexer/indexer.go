// Package indexer loads a catalog CSV into the relational catalog and the vector store.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vitrine/internal/domain"
	"github.com/kailas-cloud/vitrine/internal/domain/product"
	"github.com/kailas-cloud/vitrine/internal/repository/similarity"
)

// Defaults for New.
const (
	DefaultBatchSize   = 64
	DefaultConcurrency = 4
)

// CatalogWriter persists catalog rows.
type CatalogWriter interface {
	Upsert(ctx context.Context, products []product.Product) error
	SetPopularity(ctx context.Context, productID string, popularity int64) error
}

// VectorStore persists product embeddings.
type VectorStore interface {
	Indexed(ctx context.Context, ids []string) ([]bool, error)
	Upsert(ctx context.Context, vectors []similarity.Vector) error
}

// Stats summarizes one run.
type Stats struct {
	Rows     int // parsed rows
	Invalid  int // malformed rows skipped
	Upserted int // catalog rows written
	Embedded int // new vectors stored
	Skipped  int // rows already present in the vector store
	NoImage  int // rows whose image file was not found
	Failed   int // rows whose embedding failed
}

// Indexer upserts catalog rows and embeds the images of products not yet in the vector store.
type Indexer struct {
	catalog     CatalogWriter
	vectors     VectorStore
	embedder    domain.ImageEmbedder
	images      ImageSource
	batchSize   int
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

// New creates an Indexer.
func New(
	catalog CatalogWriter, vectors VectorStore, embedder domain.ImageEmbedder,
	images ImageSource, logger *zap.Logger,
) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		catalog:     catalog,
		vectors:     vectors,
		embedder:    embedder,
		images:      images,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// WithBatchSize sets the number of rows written per round-trip.
func (ix *Indexer) WithBatchSize(n int) *Indexer {
	if n > 0 {
		ix.batchSize = n
	}
	return ix
}

// WithConcurrency sets the number of images embedded in parallel.
func (ix *Indexer) WithConcurrency(n int) *Indexer {
	if n > 0 {
		ix.concurrency = n
	}
	return ix
}

// Run reads the CSV from r and indexes it batch by batch. Malformed rows, missing images
// and failed embeddings are logged and counted; store failures abort the run.
func (ix *Indexer) Run(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats

	rd, err := newReader(r, ix.now)
	if err != nil {
		return stats, err
	}

	batch := make([]Record, 0, ix.batchSize)
	for {
		rec, err := rd.next()
		if errors.Is(err, io.EOF) {
			break
		}
		var rowErr *rowError
		if errors.As(err, &rowErr) {
			stats.Invalid++
			ix.logger.Warn("Skipping malformed row", zap.Error(err))
			continue
		}
		if err != nil {
			return stats, err
		}

		stats.Rows++
		batch = append(batch, rec)
		if len(batch) == ix.batchSize {
			if err := ix.flush(ctx, batch, &stats); err != nil {
				return stats, err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := ix.flush(ctx, batch, &stats); err != nil {
			return stats, err
		}
	}

	ix.logger.Info("Indexing complete",
		zap.Int("rows", stats.Rows),
		zap.Int("invalid", stats.Invalid),
		zap.Int("upserted", stats.Upserted),
		zap.Int("embedded", stats.Embedded),
		zap.Int("skipped", stats.Skipped),
		zap.Int("no_image", stats.NoImage),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

func (ix *Indexer) flush(ctx context.Context, batch []Record, stats *Stats) error {
	ids := make([]string, len(batch))
	products := make([]product.Product, len(batch))
	for i := range batch {
		ids[i] = batch[i].Product.ID()
		products[i] = batch[i].Product
	}

	if err := ix.catalog.Upsert(ctx, products); err != nil {
		return fmt.Errorf("upsert catalog batch: %w", err)
	}
	stats.Upserted += len(products)

	for i := range batch {
		if n, ok := batch[i].Popularity.Get(); ok {
			if err := ix.catalog.SetPopularity(ctx, ids[i], n); err != nil {
				return fmt.Errorf("set popularity %s: %w", ids[i], err)
			}
		}
	}

	indexed, err := ix.vectors.Indexed(ctx, ids)
	if err != nil {
		return fmt.Errorf("check indexed: %w", err)
	}
	if len(indexed) != len(ids) {
		return fmt.Errorf("check indexed: got %d answers for %d ids", len(indexed), len(ids))
	}

	vectors := make([]*similarity.Vector, len(batch))
	outcomes := make([]outcome, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)
	for i := range batch {
		if indexed[i] {
			outcomes[i] = outcomeSkipped
			continue
		}
		g.Go(func() error {
			v, out, err := ix.embed(gctx, &batch[i])
			if err != nil {
				return err
			}
			vectors[i], outcomes[i] = v, out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	toStore := make([]similarity.Vector, 0, len(batch))
	for i, out := range outcomes {
		switch out {
		case outcomeEmbedded:
			toStore = append(toStore, *vectors[i])
		case outcomeSkipped:
			stats.Skipped++
		case outcomeNoImage:
			stats.NoImage++
		case outcomeFailed:
			stats.Failed++
		}
	}
	if len(toStore) == 0 {
		return nil
	}
	if err := ix.vectors.Upsert(ctx, toStore); err != nil {
		return fmt.Errorf("store vectors: %w", err)
	}
	stats.Embedded += len(toStore)
	return nil
}

type outcome int

const (
	outcomeEmbedded outcome = iota
	outcomeSkipped
	outcomeNoImage
	outcomeFailed
)

// embed loads and embeds one record's image. Only context cancellation is returned as an error.
func (ix *Indexer) embed(ctx context.Context, rec *Record) (*similarity.Vector, outcome, error) {
	id := rec.Product.ID()

	data, mimeType, err := ix.images(rec)
	if errors.Is(err, ErrImageMissing) {
		ix.logger.Debug("Image not found", zap.String("product_id", id), zap.String("image", rec.ImageName))
		return nil, outcomeNoImage, nil
	}
	if err != nil {
		ix.logger.Warn("Image read failed", zap.String("product_id", id), zap.Error(err))
		return nil, outcomeFailed, nil
	}

	res, err := ix.embedder.EmbedImage(ctx, data, mimeType)
	if err != nil {
		if ctx.Err() != nil {
			return nil, outcomeFailed, fmt.Errorf("embed %s: %w", id, ctx.Err())
		}
		ix.logger.Warn("Image embedding failed", zap.String("product_id", id), zap.Error(err))
		return nil, outcomeFailed, nil
	}
	return &similarity.Vector{ProductID: id, Embedding: res.Embedding}, outcomeEmbedded, nil
}
