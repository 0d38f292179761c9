// Package vectorsearch runs item searches with explicit fallback strategies.
package vectorsearch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopassist/internal/domain"
	"github.com/kailas-cloud/shopassist/internal/domain/search/mode"
	"github.com/kailas-cloud/shopassist/internal/domain/search/result"
	"github.com/kailas-cloud/shopassist/internal/logger"
	"github.com/kailas-cloud/shopassist/internal/metrics"
)

// Config tunes the vector strategy.
type Config struct {
	// DBSimilarityFloor caps the threshold sent to the RPC; the caller threshold is applied afterwards.
	DBSimilarityFloor float64
	// MaxAttempts bounds RPC calls per search, pool reset included.
	MaxAttempts int
	// LimitMultiplier widens the RPC limit before client-side filtering.
	LimitMultiplier int
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{DBSimilarityFloor: 0.3, MaxAttempts: 2, LimitMultiplier: 3}
}

// Outcome is a search result together with the strategy that produced it.
type Outcome struct {
	Items       []result.Item
	Strategy    mode.Mode
	Degradation mode.Degradation
	Attempts    int
}

// Degraded reports whether a weaker strategy served the search.
func (o Outcome) Degraded() bool { return o.Degradation != mode.DegradedNone }

// Gateway embeds queries and searches items, degrading to text matching when needed.
type Gateway struct {
	store Store
	embed Embedder
	cfg   Config
}

// New creates a Gateway. Zero config fields take DefaultConfig values.
func New(store Store, embed Embedder, cfg Config) *Gateway {
	def := DefaultConfig()
	if cfg.DBSimilarityFloor <= 0 {
		cfg.DBSimilarityFloor = def.DBSimilarityFloor
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.LimitMultiplier <= 0 {
		cfg.LimitMultiplier = def.LimitMultiplier
	}
	return &Gateway{store: store, embed: embed, cfg: cfg}
}

// target binds a search scope (one shop or many) to the store calls for it.
type target struct {
	scope  string
	vector func(ctx context.Context, vec []float32, limit int, minSimilarity float64) ([]result.Item, error)
	text   func(ctx context.Context, query string, limit int) ([]result.Item, error)
}

// SearchInShop searches one shop's catalog. It never returns an error.
func (g *Gateway) SearchInShop(ctx context.Context, shopID, query string, limit int, minSimilarity float64) Outcome {
	return g.run(ctx, target{
		scope: "shop:" + shopID,
		vector: func(ctx context.Context, vec []float32, n int, floor float64) ([]result.Item, error) {
			return g.store.SearchInShop(ctx, shopID, vec, n, floor)
		},
		text: func(ctx context.Context, q string, n int) ([]result.Item, error) {
			return g.store.TextSearchInShop(ctx, shopID, q, n)
		},
	}, query, limit, minSimilarity)
}

// SearchAcrossShops searches several shops in one RPC. It never returns an error.
func (g *Gateway) SearchAcrossShops(ctx context.Context, shopIDs []string, query string, limit int, minSimilarity float64) Outcome {
	if len(shopIDs) == 0 {
		return Outcome{Strategy: mode.None}
	}
	return g.run(ctx, target{
		scope: fmt.Sprintf("shops:%d", len(shopIDs)),
		vector: func(ctx context.Context, vec []float32, n int, floor float64) ([]result.Item, error) {
			return g.store.SearchAcrossShops(ctx, shopIDs, vec, n, floor)
		},
		text: func(ctx context.Context, q string, n int) ([]result.Item, error) {
			return g.store.TextSearchAcrossShops(ctx, shopIDs, q, n)
		},
	}, query, limit, minSimilarity)
}

func (g *Gateway) run(ctx context.Context, t target, query string, limit int, minSimilarity float64) Outcome {
	log := logger.FromContext(ctx).With(zap.String("scope", t.scope), zap.String("query", query))

	emb, err := g.embed.Embed(ctx, query)
	if errors.Is(err, domain.ErrVectorDimMismatch) {
		log.Error("Embedding model returned the wrong dimensionality, using text search", zap.Error(err))
		return g.textStrategy(ctx, t, query, limit, minSimilarity, mode.DegradedDimension, 0)
	}
	if err != nil {
		log.Warn("Query embedding failed, using text search", zap.Error(err))
		return g.textStrategy(ctx, t, query, limit, minSimilarity, mode.DegradedEmbedding, 0)
	}

	dbMin := min(minSimilarity, g.cfg.DBSimilarityFloor)
	dbLimit := limit * g.cfg.LimitMultiplier

	degradation := mode.DegradedNone
	attempts := 0
	for attempts < g.cfg.MaxAttempts {
		if attempts > 0 {
			if ctx.Err() != nil {
				break
			}
			g.store.ResetPool()
			metrics.VectorSearchRetriesTotal.Inc()
		}
		attempts++

		items, err := t.vector(ctx, emb.Embedding, dbLimit, dbMin)
		switch {
		case err != nil:
			degradation = mode.DegradedRPC
			log.Warn("Similarity RPC failed", zap.Int("attempt", attempts), zap.Error(err))
		case len(items) == 0:
			degradation = mode.DegradedEmpty
			log.Debug("Similarity RPC returned nothing", zap.Int("attempt", attempts))
		default:
			result.SortBySimilarity(items)
			return Outcome{
				Items:    result.FilterMin(items, minSimilarity, limit),
				Strategy: mode.Vector,
				Attempts: attempts,
			}
		}
	}

	return g.textStrategy(ctx, t, query, limit, minSimilarity, degradation, attempts)
}

func (g *Gateway) textStrategy(
	ctx context.Context, t target, query string, limit int, minSimilarity float64,
	reason mode.Degradation, attempts int,
) Outcome {
	metrics.SearchFallbackTotal.WithLabelValues(string(mode.Text), string(reason)).Inc()

	items, err := t.text(ctx, query, limit)
	if err != nil {
		logger.FromContext(ctx).Error("Text search fallback failed",
			zap.String("scope", t.scope), zap.String("query", query), zap.Error(err))
		metrics.SearchFallbackTotal.WithLabelValues(string(mode.None), string(reason)).Inc()
		return Outcome{Strategy: mode.None, Degradation: reason, Attempts: attempts}
	}
	result.SortBySimilarity(items)
	return Outcome{
		Items:       result.FilterMin(items, minSimilarity, limit),
		Strategy:    mode.Text,
		Degradation: reason,
		Attempts:    attempts,
	}
}
