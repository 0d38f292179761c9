// Package ranking orders candidate shops by relevance.
package ranking

import (
	"sort"

	"github.com/kailas-cloud/shopassist/internal/domain/search/result"
)

// Weights are the relevance formula parameters.
type Weights struct {
	ItemCount  float64 `yaml:"item_count"`
	Similarity float64 `yaml:"similarity"`
	Fee        float64 `yaml:"fee"`
	// CountSaturation is the match count at which the item-count score reaches 1.
	CountSaturation int `yaml:"count_saturation"`
	// FeeNormalization is the fee, in major currency units, at which the fee score reaches 0.
	FeeNormalization float64 `yaml:"fee_normalization"`
	// FreeDeliveryScore is the fee score of a shop with no fee.
	FreeDeliveryScore float64 `yaml:"free_delivery_score"`
	// ZeroMatchFactor scales the fee score of a shop without matches.
	ZeroMatchFactor float64 `yaml:"zero_match_factor"`
}

// DefaultWeights returns the production formula.
func DefaultWeights() Weights {
	return Weights{
		ItemCount:         0.3,
		Similarity:        0.4,
		Fee:               0.3,
		CountSaturation:   10,
		FeeNormalization:  200,
		FreeDeliveryScore: 0.5,
		ZeroMatchFactor:   0.1,
	}
}

// Ranker scores and sorts shops.
type Ranker struct {
	w            Weights
	itemsPerShop int
}

// New creates a Ranker. itemsPerShop bounds the items averaged for the similarity score.
func New(w Weights, itemsPerShop int) *Ranker {
	if w.CountSaturation <= 0 {
		w.CountSaturation = DefaultWeights().CountSaturation
	}
	if w.FeeNormalization <= 0 {
		w.FeeNormalization = DefaultWeights().FeeNormalization
	}
	return &Ranker{w: w, itemsPerShop: itemsPerShop}
}

// Rank sets RelevanceScore on every candidate and returns them best first.
// Shops without matches are dropped unless no shop has any match.
func (r *Ranker) Rank(candidates []result.Shop) []result.Shop {
	anyMatch := false
	for _, c := range candidates {
		if c.MatchCount > 0 {
			anyMatch = true
			break
		}
	}

	out := make([]result.Shop, 0, len(candidates))
	for _, c := range candidates {
		if anyMatch && c.MatchCount == 0 {
			continue
		}
		c.RelevanceScore = r.Score(c)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RelevanceScore > out[j].RelevanceScore })
	return out
}

// Score computes the relevance of one shop.
func (r *Ranker) Score(s result.Shop) float64 {
	fee := r.feeScore(s)
	if s.MatchCount == 0 {
		return r.w.ZeroMatchFactor * fee
	}
	count := min(1, float64(s.MatchCount)/float64(r.w.CountSaturation))
	return r.w.ItemCount*count + r.w.Similarity*r.avgSimilarity(s.MatchingItems) + r.w.Fee*fee
}

func (r *Ranker) avgSimilarity(items []result.Item) float64 {
	n := len(items)
	if r.itemsPerShop > 0 && n > r.itemsPerShop {
		n = r.itemsPerShop
	}
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, it := range items[:n] {
		sum += it.Similarity
	}
	return sum / float64(n)
}

func (r *Ranker) feeScore(s result.Shop) float64 {
	if s.Delivery == nil || s.Delivery.FeeCents <= 0 {
		return r.w.FreeDeliveryScore
	}
	major := float64(s.Delivery.FeeCents) / 100
	return max(0, 1-major/r.w.FeeNormalization)
}
