package vectorsearch

import (
	"context"

	"github.com/kailas-cloud/shopassist/internal/domain"
	"github.com/kailas-cloud/shopassist/internal/domain/search/result"
)

// Store is the similarity RPC and text-match backend.
type Store interface {
	SearchInShop(ctx context.Context, shopID string, vec []float32, limit int, minSimilarity float64) ([]result.Item, error)
	SearchAcrossShops(ctx context.Context, shopIDs []string, vec []float32, limit int, minSimilarity float64) ([]result.Item, error)
	TextSearchInShop(ctx context.Context, shopID, query string, limit int) ([]result.Item, error)
	TextSearchAcrossShops(ctx context.Context, shopIDs []string, query string, limit int) ([]result.Item, error)
	ResetPool()
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
