// Command vitrine-indexer loads a product CSV into the catalog and embeds product images
// into the vector index. Rows already in the vector index are not re-embedded.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vitrine/internal/app"
	"github.com/kailas-cloud/vitrine/internal/config"
	"github.com/kailas-cloud/vitrine/internal/indexer"
	logpkg "github.com/kailas-cloud/vitrine/internal/logger"
	"github.com/kailas-cloud/vitrine/internal/metrics"
	"github.com/kailas-cloud/vitrine/internal/version"
)

func main() {
	var (
		csvPath     = flag.String("csv", "", "product CSV file (- for stdin)")
		imagesDir   = flag.String("images", ".", "image root directory")
		batchSize   = flag.Int("batch", 0, "rows per batch (default: index.batch_size)")
		concurrency = flag.Int("concurrency", indexer.DefaultConcurrency, "parallel image embeddings")
		reset       = flag.Bool("reset", false, "drop the vector index and all stored embeddings first")
		showVersion = flag.Bool("version", false, "print build version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "usage: vitrine-indexer -csv products.csv [-images dir] [-batch n] [-concurrency n] [-reset]")
		os.Exit(2)
	}

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger("vitrine-indexer", env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	opts := runOptions{
		csvPath:     *csvPath,
		imagesDir:   *imagesDir,
		batchSize:   *batchSize,
		concurrency: *concurrency,
		reset:       *reset,
	}
	if err := run(cfg, logger, opts); err != nil {
		logger.Fatal("Indexing failed", zap.Error(err))
	}
}

type runOptions struct {
	csvPath     string
	imagesDir   string
	batchSize   int
	concurrency int
	reset       bool
}

func run(cfg config.Config, logger *zap.Logger, opts runOptions) error {
	if !cfg.SimilarityEnabled() {
		return fmt.Errorf("redis.addrs is required for indexing")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	backends, err := app.Open(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer backends.Close()

	if opts.reset {
		if err := backends.Similarity.ResetIndex(ctx); err != nil {
			return err
		}
		if err := backends.Similarity.EnsureIndex(ctx); err != nil {
			return err
		}
	}

	in, closeInput, err := openInput(opts.csvPath)
	if err != nil {
		return err
	}
	defer closeInput()

	batchSize := opts.batchSize
	if batchSize <= 0 {
		batchSize = cfg.Index.BatchSize
	}

	logger.Info("Indexing started",
		zap.String("csv", opts.csvPath),
		zap.String("images", opts.imagesDir),
		zap.Int("batch_size", batchSize),
		zap.Int("concurrency", opts.concurrency),
		zap.Bool("reset", opts.reset),
	)
	start := time.Now()

	ix := indexer.New(backends.Catalog, backends.Similarity, backends.Embedder, indexer.DirImages(opts.imagesDir), logger).
		WithBatchSize(batchSize).
		WithConcurrency(opts.concurrency)

	stats, runErr := ix.Run(ctx, in)

	// Partial runs still change the catalog.
	if err := backends.Facets.Invalidate(context.Background()); err != nil {
		logger.Warn("Facet cache invalidation failed", zap.Error(err))
	}

	logger.Info("Indexing finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("rows", stats.Rows),
		zap.Int("invalid", stats.Invalid),
		zap.Int("upserted", stats.Upserted),
		zap.Int("embedded", stats.Embedded),
		zap.Int("skipped", stats.Skipped),
		zap.Int("no_image", stats.NoImage),
		zap.Int("failed", stats.Failed),
	)
	return runErr
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, nil, fmt.Errorf("open csv: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
