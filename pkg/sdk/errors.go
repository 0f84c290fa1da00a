package vitrine

import (
	"errors"

	"github.com/kailas-cloud/vitrine/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation             = domain.ErrValidation
	ErrNotFound               = domain.ErrNotFound
	ErrInvalidImage           = domain.ErrInvalidImage
	ErrUpstreamUnavailable    = domain.ErrUpstreamUnavailable
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError

	// ErrSimilarityDisabled is returned by operations that need the vector index
	// when the client was built without WithRedis.
	ErrSimilarityDisabled = errors.New("vitrine: similarity search not configured")
)

// ValidationError names the offending query field. Use errors.As() to extract it.
type ValidationError = domain.ValidationError
