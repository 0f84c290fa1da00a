package vitrine

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/vitrine/internal/domain"
)

// Embedder maps text and images into one shared vector space (CLIP-style).
// Implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
	EmbedImage(ctx context.Context, img []byte, mimeType string) (EmbeddingResult, error)
}

// EmbeddingResult is one vector and the tokens spent on it.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// EmbedderFuncs builds an Embedder from plain functions. A nil field makes that
// kind of embedding fail.
type EmbedderFuncs struct {
	Text  func(ctx context.Context, text string) (EmbeddingResult, error)
	Image func(ctx context.Context, img []byte, mimeType string) (EmbeddingResult, error)
}

var errNoEmbedFunc = errors.New("vitrine: embedding function not set")

// Embed calls Text.
func (f EmbedderFuncs) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	if f.Text == nil {
		return EmbeddingResult{}, errNoEmbedFunc
	}
	return f.Text(ctx, text)
}

// EmbedImage calls Image.
func (f EmbedderFuncs) EmbedImage(ctx context.Context, img []byte, mimeType string) (EmbeddingResult, error) {
	if f.Image == nil {
		return EmbeddingResult{}, errNoEmbedFunc
	}
	return f.Image(ctx, img, mimeType)
}

// embedderAdapter exposes a user Embedder through the internal contracts.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	return a.convert("text", r, err)
}

func (a *embedderAdapter) EmbedImage(ctx context.Context, img []byte, mimeType string) (domain.EmbeddingResult, error) {
	r, err := a.inner.EmbedImage(ctx, img, mimeType)
	return a.convert("image", r, err)
}

// convert marks failures and empty vectors as provider errors.
func (a *embedderAdapter) convert(kind string, r EmbeddingResult, err error) (domain.EmbeddingResult, error) {
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed %s: %w: %w", kind, domain.ErrEmbeddingProviderError, err)
	}
	if len(r.Embedding) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("embed %s: empty vector: %w", kind, domain.ErrEmbeddingProviderError)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}
