// Package search runs the intelligent multi-shop search pipeline.
package search

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	domcat "github.com/kailas-cloud/shopassist/internal/domain/catalog"
	"github.com/kailas-cloud/shopassist/internal/domain/intent"
	"github.com/kailas-cloud/shopassist/internal/domain/search/mode"
	"github.com/kailas-cloud/shopassist/internal/domain/search/request"
	"github.com/kailas-cloud/shopassist/internal/domain/search/result"
	"github.com/kailas-cloud/shopassist/internal/logger"
	"github.com/kailas-cloud/shopassist/internal/usecase/vectorsearch"
)

// Response is the ranked answer to an intelligent search.
type Response struct {
	Intent    intent.SearchIntent `json:"intent"`
	Shops     []result.Shop       `json:"shops"`
	Strategy  mode.Mode           `json:"strategy"`
	Degraded  bool                `json:"degraded"`
	Reasoning string              `json:"reasoning,omitempty"`
}

// Config bounds the fan-out of a single search.
type Config struct {
	MaxQueries      int
	MaxItemsPerCall int
}

// DefaultConfig returns the production bounds.
func DefaultConfig() Config {
	return Config{MaxQueries: 5, MaxItemsPerCall: 200}
}

// Service wires intent extraction, retrieval, boosting, delivery quotes and ranking.
type Service struct {
	shops      ShopLister
	intents    IntentExtractor
	items      ItemSearcher
	categories CategoryMatcher
	booster    Booster
	fees       FeeQuoter
	ranker     Ranker
	cfg        Config
}

// New creates a search service. booster may be nil.
func New(
	shops ShopLister, intents IntentExtractor, items ItemSearcher, categories CategoryMatcher,
	booster Booster, fees FeeQuoter, ranker Ranker,
) *Service {
	return &Service{
		shops:      shops,
		intents:    intents,
		items:      items,
		categories: categories,
		booster:    booster,
		fees:       fees,
		ranker:     ranker,
		cfg:        DefaultConfig(),
	}
}

// WithConfig overrides the fan-out bounds.
func (s *Service) WithConfig(cfg Config) *Service {
	if cfg.MaxQueries > 0 {
		s.cfg.MaxQueries = cfg.MaxQueries
	}
	if cfg.MaxItemsPerCall > 0 {
		s.cfg.MaxItemsPerCall = cfg.MaxItemsPerCall
	}
	return s
}

// Search answers a query with ranked shops. Backend degradation lowers result quality
// but never fails the call; only listing shops can return an error.
func (s *Service) Search(ctx context.Context, req *request.Request) (Response, error) {
	log := logger.FromContext(ctx)

	candidates, err := s.shops.ListActiveShops(ctx, req.ShopIDs())
	if err != nil {
		return Response{}, fmt.Errorf("list shops: %w", err)
	}
	loc := req.Location()
	var quotes map[string]domcat.Quote
	if !loc.IsZero() {
		quotes, err = s.fees.QuoteBatch(ctx, loc, candidates, 0)
		if err != nil {
			log.Warn("Delivery quotes unavailable, zone filter skipped", zap.Error(err))
		}
		candidates = inZone(candidates, quotes)
	}
	if len(candidates) == 0 {
		return Response{
			Shops:     []result.Shop{},
			Strategy:  mode.None,
			Reasoning: "no shops deliver to this location yet",
		}, nil
	}

	ids := make([]string, len(candidates))
	for i, sh := range candidates {
		ids[i] = sh.ID
	}

	cats := s.categories.Fetch(ctx, ids)
	si := s.intents.Extract(ctx, req.Query(), cats.Names())

	queries := si.SearchQueries(s.cfg.MaxQueries)
	perCall := min(req.ItemsPerShop()*len(ids), s.cfg.MaxItemsPerCall)
	outcomes := make([]vectorsearch.Outcome, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			outcomes[i] = s.items.SearchAcrossShops(ctx, ids, q, perCall, req.MinSimilarity())
		}(i, q)
	}
	wg.Wait()

	terms := append(append([]string{}, si.Categories...), si.ItemTypes...)
	catMatches := s.categories.Match(ctx, cats, terms, req.ItemsPerShop())

	lists := make([][]result.Item, 0, len(outcomes)+len(catMatches))
	strategy, degraded := mode.None, false
	for _, o := range outcomes {
		lists = append(lists, o.Items)
		strategy = stronger(strategy, o.Strategy)
		degraded = degraded || o.Degraded()
	}
	for _, m := range catMatches {
		lists = append(lists, m.Items)
		if len(m.Items) > 0 {
			strategy = stronger(strategy, mode.Category)
		}
	}
	merged := result.FilterMin(result.MergeMax(lists...), req.MinSimilarity(), 0)
	if s.booster != nil {
		merged = s.booster.Boost(ctx, req.UserID(), si, merged)
	}

	byShop := result.GroupByShop(merged)
	shops := make([]result.Shop, len(candidates))
	for i, sh := range candidates {
		items := byShop[sh.ID]
		shops[i] = result.Shop{
			Shop:            sh,
			MatchingItems:   truncate(items, req.ItemsPerShop()),
			CategoryMatches: catMatches[sh.ID].Categories,
			MatchCount:      len(items),
		}
	}

	for i := range shops {
		if q, ok := quotes[shops[i].Shop.ID]; ok {
			shops[i].Delivery = &q
		}
	}

	ranked := s.ranker.Rank(shops)
	if len(ranked) > req.ShopLimit() {
		ranked = ranked[:req.ShopLimit()]
	}

	log.Debug("Search served",
		zap.Int("queries", len(queries)),
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", len(merged)),
		zap.String("strategy", string(strategy)),
		zap.Bool("degraded", degraded),
	)

	resp := Response{Intent: si, Shops: ranked, Strategy: strategy, Degraded: degraded}
	if len(merged) == 0 {
		resp.Reasoning = "no matching items in nearby shops"
	}
	return resp, nil
}

// inZone keeps shops whose quote places the location inside their delivery zone.
// Shops without a quote are kept.
func inZone(shops []domcat.Shop, quotes map[string]domcat.Quote) []domcat.Shop {
	out := shops[:0]
	for _, sh := range shops {
		if q, ok := quotes[sh.ID]; !ok || q.InZone {
			out = append(out, sh)
		}
	}
	return out
}

// stronger returns the better of two strategies: vector, then text, then category.
func stronger(a, b mode.Mode) mode.Mode {
	rank := map[mode.Mode]int{mode.Vector: 3, mode.Text: 2, mode.Category: 1}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func truncate(items []result.Item, n int) []result.Item {
	if items == nil {
		return []result.Item{}
	}
	result.SortBySimilarity(items)
	if len(items) > n {
		return items[:n]
	}
	return items
}
