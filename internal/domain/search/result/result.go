package result

import (
	"sort"

	"github.com/kailas-cloud/shopassist/internal/domain/catalog"
	"github.com/kailas-cloud/shopassist/internal/domain/search/mode"
)

// Item is a single search hit inside a shop.
type Item struct {
	ItemID      string    `json:"itemId"`
	ShopID      string    `json:"shopId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	PriceCents  int64     `json:"priceCents"`
	IsActive    bool      `json:"isActive"`
	Similarity  float64   `json:"similarity"`
	Source      mode.Mode `json:"source,omitempty"`
}

// FromCatalog converts a catalog item to a hit with the given similarity.
func FromCatalog(it catalog.Item, similarity float64, source mode.Mode) Item {
	return Item{
		ItemID:      it.ID,
		ShopID:      it.ShopID,
		Name:        it.Name,
		Description: it.Description,
		ImageURL:    it.ImageURL,
		PriceCents:  it.PriceCents,
		IsActive:    it.IsActive,
		Similarity:  clamp01(similarity),
		Source:      source,
	}
}

// Shop is one shop in a ranked search response.
type Shop struct {
	Shop            catalog.Shop   `json:"shop"`
	MatchingItems   []Item         `json:"matchingItems"`
	CategoryMatches []string       `json:"categoryMatches,omitempty"`
	MatchCount      int            `json:"matchCount"`
	RelevanceScore  float64        `json:"relevanceScore"`
	Delivery        *catalog.Quote `json:"delivery,omitempty"`
}

// MergeMax merges hit lists keeping, per item id, the hit with the highest similarity.
// The result is sorted by similarity desc then item id, so merging is
// commutative and associative regardless of the order lists arrive in.
func MergeMax(lists ...[]Item) []Item {
	best := make(map[string]Item)
	for _, l := range lists {
		for _, it := range l {
			cur, ok := best[it.ItemID]
			if !ok || it.Similarity > cur.Similarity ||
				(it.Similarity == cur.Similarity && it.Source < cur.Source) {
				best[it.ItemID] = it
			}
		}
	}
	out := make([]Item, 0, len(best))
	for _, it := range best {
		out = append(out, it)
	}
	SortBySimilarity(out)
	return out
}

// SortBySimilarity orders hits by similarity desc, ties by item id.
func SortBySimilarity(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Similarity != items[j].Similarity {
			return items[i].Similarity > items[j].Similarity
		}
		return items[i].ItemID < items[j].ItemID
	})
}

// FilterMin keeps hits with similarity >= minSimilarity, then truncates to limit (0 = no limit).
// The input must already be sorted.
func FilterMin(items []Item, minSimilarity float64, limit int) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Similarity < minSimilarity {
			continue
		}
		out = append(out, it)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// GroupByShop splits hits into per-shop lists, preserving order within each shop.
func GroupByShop(items []Item) map[string][]Item {
	out := make(map[string][]Item)
	for _, it := range items {
		out[it.ShopID] = append(out[it.ShopID], it)
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
