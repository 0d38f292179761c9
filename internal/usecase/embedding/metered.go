// Package embedding gates and meters query embedding against the token budget.
package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopassist/internal/domain"
	"github.com/kailas-cloud/shopassist/internal/logger"
	"github.com/kailas-cloud/shopassist/internal/metrics"
)

// Budget is the token quota consulted before every provider call.
type Budget interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// MeteredEmbedder refuses to embed once the budget rejects, and charges the
// budget with the tokens each call actually consumed. Cache hits cost nothing.
type MeteredEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	budget   Budget
	log      *zap.Logger
}

// NewMeteredEmbedder wraps inner. budget may be nil for an unlimited provider.
func NewMeteredEmbedder(inner domain.Embedder, provider, model string, budget Budget, log *zap.Logger) *MeteredEmbedder {
	return &MeteredEmbedder{inner: inner, provider: provider, model: model, budget: budget, log: log}
}

// Embed implements domain.Embedder.
func (m *MeteredEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	log := logger.FromContext(ctx).With(zap.String("provider", m.provider))

	if m.budget != nil {
		if err := m.budget.Check(ctx); err != nil {
			metrics.EmbeddingErrorsTotal.WithLabelValues(m.provider, m.model, "budget").Inc()
			log.Warn("Embedding refused by token budget", zap.Int("query_len", len(text)), zap.Error(err))
			return domain.EmbeddingResult{}, fmt.Errorf("embedding budget: %w", err)
		}
	}

	start := time.Now()
	res, err := m.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	if res.TotalTokens > 0 {
		m.charge(int64(res.TotalTokens))
	}
	log.Debug("Query embedded",
		zap.Duration("duration", time.Since(start)),
		zap.Int("dims", len(res.Embedding)),
		zap.Int("tokens", res.TotalTokens),
	)
	return res, nil
}

// HealthCheck forwards to the provider.
func (m *MeteredEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := m.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func (m *MeteredEmbedder) charge(tokens int64) {
	if m.budget == nil {
		return
	}
	m.budget.Record(tokens)
	g := metrics.EmbeddingBudgetTokensRemaining
	g.WithLabelValues(m.provider, "daily").Set(float64(m.budget.RemainingDaily()))
	g.WithLabelValues(m.provider, "monthly").Set(float64(m.budget.RemainingMonthly()))
}
