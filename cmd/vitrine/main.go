// Command vitrine serves the product listing and search API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vitrine/internal/app"
	"github.com/kailas-cloud/vitrine/internal/config"
	logpkg "github.com/kailas-cloud/vitrine/internal/logger"
	"github.com/kailas-cloud/vitrine/internal/metrics"
	chiTransport "github.com/kailas-cloud/vitrine/internal/transport/chi"
	healthuc "github.com/kailas-cloud/vitrine/internal/usecase/health"
	searchuc "github.com/kailas-cloud/vitrine/internal/usecase/search"
	"github.com/kailas-cloud/vitrine/internal/version"
)

func main() {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "vitrine: load config:", err)
		os.Exit(1)
	}

	logger, err := logpkg.NewLogger("vitrine", env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "vitrine: create logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting vitrine API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.String("catalog_driver", cfg.Catalog.Driver),
		zap.Bool("similarity", cfg.SimilarityEnabled()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// run serves until ctx is canceled, then drains in-flight requests.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()
	metrics.RegisterHTTPMetrics()

	backends, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open backends: %w", err)
	}
	defer backends.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           newRouter(cfg, backends, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", zap.Int("grace_sec", cfg.HTTP.ShutdownSec))
		sctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func newRouter(cfg *config.Config, backends *app.Backends, logger *zap.Logger) http.Handler {
	searchSvc := searchuc.New(backends.Catalog, backends.SimilarityService(), logger).
		WithLimits(cfg.Search.TopK, cfg.Catalog.HybridCatalogLimit).
		WithSimilarityTimeout(time.Duration(cfg.Search.SimilarityTimeoutMs) * time.Millisecond).
		WithFacetSource(backends.FacetSource())

	// Interfaces stay untyped nil when redis is off.
	var (
		redisPinger      healthuc.Pinger
		embeddingChecker healthuc.EmbeddingChecker
	)
	if backends.Redis != nil {
		redisPinger = backends.Redis
		embeddingChecker = backends.Embedder
	}
	healthSvc := healthuc.New(backends.Catalog, redisPinger, embeddingChecker)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(accessLog(logger))
	r.Use(recoverJSON(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	if cfg.RateLimit.RequestsPerSecond > 0 {
		r.Use(chiTransport.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst).Middleware())
	}
	r.Use(metrics.Middleware())

	chiTransport.NewServer(searchSvc, healthSvc, logger).Routes(r)
	return r
}
