package search

import (
	"context"

	domcat "github.com/kailas-cloud/shopassist/internal/domain/catalog"
	"github.com/kailas-cloud/shopassist/internal/domain/geo"
	"github.com/kailas-cloud/shopassist/internal/domain/intent"
	"github.com/kailas-cloud/shopassist/internal/domain/search/result"
	"github.com/kailas-cloud/shopassist/internal/usecase/catmatch"
	"github.com/kailas-cloud/shopassist/internal/usecase/vectorsearch"
)

// ShopLister lists shops that accept orders.
type ShopLister interface {
	ListActiveShops(ctx context.Context, ids []string) ([]domcat.Shop, error)
}

// IntentExtractor turns a query into a structured intent. It never fails.
type IntentExtractor interface {
	Extract(ctx context.Context, query string, knownCategories []string) intent.SearchIntent
}

// ItemSearcher runs one query across several shops.
type ItemSearcher interface {
	SearchAcrossShops(ctx context.Context, shopIDs []string, query string, limit int, minSimilarity float64) vectorsearch.Outcome
}

// CategoryMatcher pulls items from categories named in the intent.
type CategoryMatcher interface {
	Fetch(ctx context.Context, shopIDs []string) catmatch.Categories
	Match(ctx context.Context, cats catmatch.Categories, terms []string, limitPerShop int) map[string]catmatch.Match
}

// Booster re-scores items with the user's preferences.
type Booster interface {
	Boost(ctx context.Context, userID string, si intent.SearchIntent, items []result.Item) []result.Item
}

// FeeQuoter quotes delivery fees and zone membership for many shops at once.
type FeeQuoter interface {
	QuoteBatch(ctx context.Context, user geo.Point, shops []domcat.Shop, orderValueCents int64) (map[string]domcat.Quote, error)
}

// Ranker orders candidate shops.
type Ranker interface {
	Rank(candidates []result.Shop) []result.Shop
}
