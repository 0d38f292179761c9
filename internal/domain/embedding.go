package domain

import (
	"context"
	"fmt"
)

// EmbeddingDimensions is the fixed vector size expected by the item and preference indexes.
const EmbeddingDimensions = 1536

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// ValidateDimensions rejects vectors whose length differs from want.
// Vectors are never padded or truncated.
func ValidateDimensions(vec []float32, want int) error {
	if len(vec) != want {
		return fmt.Errorf("%w: expected %d, got %d", ErrVectorDimMismatch, want, len(vec))
	}
	return nil
}

// DimensionGuard is a decorator that enforces a fixed embedding size.
type DimensionGuard struct {
	inner Embedder
	dims  int
}

// NewDimensionGuard wraps inner so every returned vector has exactly dims entries.
func NewDimensionGuard(inner Embedder, dims int) *DimensionGuard {
	if dims <= 0 {
		dims = EmbeddingDimensions
	}
	return &DimensionGuard{inner: inner, dims: dims}
}

// Embed delegates to the inner embedder and validates the vector size.
func (g *DimensionGuard) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	res, err := g.inner.Embed(ctx, text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("guarded embed: %w", err)
	}
	if err := ValidateDimensions(res.Embedding, g.dims); err != nil {
		return EmbeddingResult{}, err
	}
	return res, nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (g *DimensionGuard) HealthCheck(ctx context.Context) error {
	if hc, ok := g.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
