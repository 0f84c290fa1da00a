// Package openai talks to OpenAI-compatible endpoints: a multimodal embedding model
// and a chat model used for query translation.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vitrine/internal/domain"
	"github.com/kailas-cloud/vitrine/internal/metrics"
)

// Config holds the embedding endpoint settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int // 0 lets the model pick
	User       string
	Provider   string
	Logger     *zap.Logger
}

// Embedder embeds text and images into one vector space through the embeddings endpoint,
// e.g. a CLIP model served behind an OpenAI-compatible gateway.
type Embedder struct {
	client   *openai.Client
	model    string
	dims     int
	user     string
	provider string
	logger   *zap.Logger
}

// NewEmbedder creates an Embedder. An empty BaseURL targets api.openai.com.
func NewEmbedder(cfg *Config) *Embedder {
	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		client:   openai.NewClientWithConfig(cc),
		model:    cfg.Model,
		dims:     cfg.Dimensions,
		user:     cfg.User,
		provider: cfg.Provider,
		logger:   logger.With(zap.String("provider", cfg.Provider), zap.String("model", cfg.Model)),
	}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return e.embed(ctx, metrics.KindText, []string{text})
}

// imagePart is one multimodal input item.
type imagePart struct {
	Image string `json:"image"`
}

// EmbedImage implements domain.ImageEmbedder. The image goes inline as a base64 data URI.
func (e *Embedder) EmbedImage(ctx context.Context, img []byte, mimeType string) (domain.EmbeddingResult, error) {
	if len(img) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("empty image: %w", domain.ErrInvalidImage)
	}
	uri := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(img))
	return e.embed(ctx, metrics.KindImage, []imagePart{{Image: uri}})
}

func (e *Embedder) embed(ctx context.Context, kind string, input any) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          input,
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
		Dimensions:     e.dims,
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		outcome := classify(err)
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.model, kind, outcome).Inc()
		e.logger.Warn("Embedding call failed",
			zap.String("kind", kind), zap.String("outcome", outcome),
			zap.Duration("elapsed", elapsed), zap.Error(err))
		return domain.EmbeddingResult{}, wrapAPIError(err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.model, kind, "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("provider returned no %s embedding: %w",
			kind, domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.model, kind, "ok").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.model, kind).Observe(elapsed.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.model, kind).Add(float64(resp.Usage.TotalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck lists models, which costs no tokens.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// statusOf extracts the HTTP status from go-openai errors, 0 if there is none.
func statusOf(err error) int {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	return 0
}

// classify maps a failed call to a metrics outcome.
func classify(err error) string {
	switch status := statusOf(err); {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status >= 500:
		return "server_error"
	case status >= 400:
		return "client_error"
	default:
		return "transport_error"
	}
}

// wrapAPIError keeps the provider's status and message and marks the error as
// domain.ErrEmbeddingProviderError. Context errors stay matchable.
func wrapAPIError(err error) error {
	sentinel := domain.ErrEmbeddingProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := detailOf(reqErr.Body)
		if msg == "" {
			msg = string(reqErr.Body)
		}
		return fmt.Errorf("embedding endpoint returned %d: %s: %w", reqErr.HTTPStatusCode, msg, sentinel)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding endpoint returned %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, sentinel)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("embedding call: %w: %w", err, sentinel)
	}
	return fmt.Errorf("embedding call: %w", sentinel)
}

// detailOf reads the FastAPI-style {"detail": "..."} error body some gateways return.
func detailOf(body []byte) string {
	var v struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return ""
	}
	return v.Detail
}
