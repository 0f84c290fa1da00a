package domain

import "context"

// EmbeddingResult is one vector plus the tokens the provider billed for it.
// Cached results carry zero tokens.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Dim returns the vector length.
func (r EmbeddingResult) Dim() int { return len(r.Embedding) }

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// ImageEmbedder vectorizes raw image bytes into the text embedding space.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, img []byte, mimeType string) (EmbeddingResult, error)
}

// HealthChecker is implemented by embedders that can probe their provider.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Translator renders a free-text query in English.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}
