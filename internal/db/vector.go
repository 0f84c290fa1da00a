package db

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Hash fields of a stored product embedding.
const (
	FieldProductID = "product_id"
	FieldModel     = "model"
	FieldEmbedding = "embedding"
)

// VectorDoc is one product embedding, stored as a hash under Key.
type VectorDoc struct {
	Key       string
	ProductID string
	// Model tags the embedding space; KNN queries only match documents of their model.
	Model     string
	Embedding []float32
}

// IndexSpec describes the HNSW cosine index over VectorDoc hashes.
type IndexSpec struct {
	Name   string
	Prefix string
	Dim    int
	// HNSW graph parameters; zero keeps the server default.
	M           int
	EFConstruct int
}

// Validate checks that the spec can be turned into FT.CREATE.
func (s *IndexSpec) Validate() error {
	switch {
	case !IsValidIdentifier(s.Name):
		return fmt.Errorf("%w: index name %q must match [a-zA-Z0-9_:-]+", ErrInvalidQuery, s.Name)
	case s.Prefix == "":
		return fmt.Errorf("%w: key prefix is required", ErrInvalidQuery)
	case s.Dim <= 0:
		return fmt.Errorf("%w: vector dimension must be positive, got %d", ErrInvalidQuery, s.Dim)
	case s.M < 0 || s.EFConstruct < 0:
		return fmt.Errorf("%w: HNSW parameters must not be negative", ErrInvalidQuery)
	}
	return nil
}

// KNNQuery asks for the K documents nearest to Vector.
type KNNQuery struct {
	Index  string
	Vector []float32
	K      int
	// Model restricts candidates to one embedding model; empty matches all.
	Model string
}

// Validate checks the query before it is sent.
func (q *KNNQuery) Validate() error {
	switch {
	case q.Index == "":
		return fmt.Errorf("%w: index name is required", ErrInvalidQuery)
	case len(q.Vector) == 0:
		return fmt.Errorf("%w: vector is required", ErrInvalidQuery)
	case q.K <= 0:
		return fmt.Errorf("%w: k must be positive, got %d", ErrInvalidQuery, q.K)
	}
	return nil
}

// KNNHit is one neighbor. Score is the cosine similarity clamped to [0,1]; hits come best first.
type KNNHit struct {
	Key       string
	ProductID string
	Score     float64
}

// EncodeVector encodes v as little-endian FLOAT32 bytes, the hash format of FT VECTOR fields.
func EncodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// IsValidIdentifier reports whether s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == ':' || r == '-':
		default:
			return false
		}
	}
	return true
}
