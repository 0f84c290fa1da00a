package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/vitrine/internal/domain"
	"github.com/kailas-cloud/vitrine/internal/metrics"
)

// InstrumentedEmbedder wraps the text and image embedders with provider-side throttling and logging.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	text     domain.Embedder
	image    domain.ImageEmbedder
	provider string
	model    string
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps the embedders. Either may be nil when the caller never uses it.
func NewInstrumentedEmbedder(
	text domain.Embedder, image domain.ImageEmbedder, provider, model string, logger *zap.Logger,
) *InstrumentedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		text:     text,
		image:    image,
		provider: provider,
		model:    model,
		logger:   logger,
	}
}

// WithRateLimit caps outgoing provider requests. rps <= 0 leaves requests unthrottled.
func (p *InstrumentedEmbedder) WithRateLimit(rps float64, burst int) *InstrumentedEmbedder {
	if rps <= 0 {
		p.limiter = nil
		return p
	}
	p.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	return p
}

// Embed waits for a provider slot and embeds the text.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return p.call(ctx, metrics.KindText, func(ctx context.Context) (domain.EmbeddingResult, error) {
		return p.text.Embed(ctx, text)
	})
}

// EmbedImage waits for a provider slot and embeds the image.
func (p *InstrumentedEmbedder) EmbedImage(
	ctx context.Context, img []byte, mimeType string,
) (domain.EmbeddingResult, error) {
	return p.call(ctx, metrics.KindImage, func(ctx context.Context) (domain.EmbeddingResult, error) {
		return p.image.EmbedImage(ctx, img, mimeType)
	})
}

// HealthCheck delegates to the text embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.text.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

func (p *InstrumentedEmbedder) call(
	ctx context.Context, kind string, embed func(context.Context) (domain.EmbeddingResult, error),
) (domain.EmbeddingResult, error) {
	if p.limiter != nil {
		waitStart := time.Now()
		if err := p.limiter.Wait(ctx); err != nil {
			return domain.EmbeddingResult{}, fmt.Errorf("wait for %s embedding slot: %w", kind, err)
		}
		metrics.EmbeddingThrottleWait.WithLabelValues(kind).Observe(time.Since(waitStart).Seconds())
	}

	start := time.Now()
	result, err := embed(ctx)
	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.String("kind", kind),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed %s: %w", kind, err)
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.String("kind", kind),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}
