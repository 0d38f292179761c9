// Package catmatch pulls items from shop categories that match the requested categories and item types.
package catmatch

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	domcat "github.com/kailas-cloud/shopassist/internal/domain/catalog"
	"github.com/kailas-cloud/shopassist/internal/domain/search/mode"
	"github.com/kailas-cloud/shopassist/internal/domain/search/result"
	"github.com/kailas-cloud/shopassist/internal/logger"
)

// Similarity is the score given to items found through a category match.
const Similarity = 0.7

// CatalogReader reads shop categories and their items.
type CatalogReader interface {
	ListCategories(ctx context.Context, shopID string) ([]domcat.Category, error)
	ListItemsInCategories(ctx context.Context, shopID string, categoryIDs []string, limit int) ([]domcat.Item, error)
}

// Categories holds the categories of each shop, fetched once per request.
type Categories map[string][]domcat.Category

// Names returns the distinct category names across shops, sorted.
func (c Categories) Names() []string {
	seen := make(map[string]string)
	for _, cats := range c {
		for _, cat := range cats {
			k := strings.ToLower(strings.TrimSpace(cat.Name))
			if _, ok := seen[k]; !ok && k != "" {
				seen[k] = cat.Name
			}
		}
	}
	out := make([]string, 0, len(seen))
	for _, n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Match is what one shop contributes through category matching.
type Match struct {
	Categories []string
	Items      []result.Item
}

// Matcher fetches categories and matches them against intent terms.
type Matcher struct {
	catalog CatalogReader
}

// New creates a Matcher.
func New(catalog CatalogReader) *Matcher {
	return &Matcher{catalog: catalog}
}

// Fetch loads the categories of every shop concurrently. Shops whose fetch fails are left out.
func (m *Matcher) Fetch(ctx context.Context, shopIDs []string) Categories {
	cats := make([][]domcat.Category, len(shopIDs))
	var wg sync.WaitGroup
	for i, id := range shopIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			c, err := m.catalog.ListCategories(ctx, id)
			if err != nil {
				logger.FromContext(ctx).Warn("Category fetch failed", zap.String("shop_id", id), zap.Error(err))
				return
			}
			cats[i] = c
		}(i, id)
	}
	wg.Wait()

	out := make(Categories, len(shopIDs))
	for i, id := range shopIDs {
		if cats[i] != nil {
			out[id] = cats[i]
		}
	}
	return out
}

// Match returns, per shop, the matched category names and their items at Similarity.
// terms are the requested categories and item types.
func (m *Matcher) Match(ctx context.Context, cats Categories, terms []string, limitPerShop int) map[string]Match {
	if len(terms) == 0 || len(cats) == 0 {
		return map[string]Match{}
	}

	shopIDs := make([]string, 0, len(cats))
	for id := range cats {
		shopIDs = append(shopIDs, id)
	}
	sort.Strings(shopIDs)

	matches := make([]Match, len(shopIDs))
	var wg sync.WaitGroup
	for i, id := range shopIDs {
		matched := matchCategories(cats[id], terms)
		if len(matched) == 0 {
			continue
		}
		wg.Add(1)
		go func(i int, id string, matched []domcat.Category) {
			defer wg.Done()
			matches[i] = m.matchShop(ctx, id, matched, limitPerShop)
		}(i, id, matched)
	}
	wg.Wait()

	out := make(map[string]Match)
	for i, id := range shopIDs {
		if len(matches[i].Categories) > 0 {
			out[id] = matches[i]
		}
	}
	return out
}

func (m *Matcher) matchShop(ctx context.Context, shopID string, matched []domcat.Category, limit int) Match {
	ids := make([]string, len(matched))
	names := make([]string, len(matched))
	for i, c := range matched {
		ids[i] = c.ID
		names[i] = c.Name
	}
	res := Match{Categories: names}

	items, err := m.catalog.ListItemsInCategories(ctx, shopID, ids, limit)
	if err != nil {
		logger.FromContext(ctx).Warn("Category items fetch failed", zap.String("shop_id", shopID), zap.Error(err))
		return res
	}
	for _, it := range items {
		res.Items = append(res.Items, result.FromCatalog(it, Similarity, mode.Category))
	}
	return res
}

func matchCategories(cats []domcat.Category, terms []string) []domcat.Category {
	var out []domcat.Category
	for _, c := range cats {
		for _, t := range terms {
			if c.Matches(t) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
