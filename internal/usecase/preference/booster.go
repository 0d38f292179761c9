// Package preference raises the scores of items the user is known to like.
package preference

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopassist/internal/domain"
	"github.com/kailas-cloud/shopassist/internal/domain/intent"
	dompref "github.com/kailas-cloud/shopassist/internal/domain/preference"
	"github.com/kailas-cloud/shopassist/internal/domain/search/result"
	"github.com/kailas-cloud/shopassist/internal/logger"
)

// Matcher finds stored preferences similar to a query vector.
type Matcher interface {
	Match(ctx context.Context, userID string, vec []float32, topK int, minSimilarity float64) ([]dompref.Preference, error)
}

// Embedder vectorizes the preference query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Config tunes the booster.
type Config struct {
	TopK          int
	MinSimilarity float64
	// Factor scales a preference confidence into a similarity boost.
	Factor float64
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{TopK: 5, MinSimilarity: 0.5, Factor: 0.1}
}

// Booster applies "prefers" preferences to search hits.
type Booster struct {
	prefs Matcher
	embed Embedder
	cfg   Config
}

// New creates a Booster. Zero config fields take DefaultConfig values.
func New(prefs Matcher, embed Embedder, cfg Config) *Booster {
	def := DefaultConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.MinSimilarity <= 0 {
		cfg.MinSimilarity = def.MinSimilarity
	}
	if cfg.Factor <= 0 {
		cfg.Factor = def.Factor
	}
	return &Booster{prefs: prefs, embed: embed, cfg: cfg}
}

// Boost returns items with preference boosts applied, re-sorted by similarity.
// Any lookup failure returns the items unchanged.
func (b *Booster) Boost(ctx context.Context, userID string, si intent.SearchIntent, items []result.Item) []result.Item {
	if userID == "" || len(items) == 0 {
		return items
	}
	log := logger.FromContext(ctx)

	text := strings.Join(append([]string{si.PrimaryQuery}, si.Terms()...), " ")
	emb, err := b.embed.Embed(ctx, text)
	if err != nil {
		log.Warn("Preference query embedding failed", zap.Error(err))
		return items
	}
	prefs, err := b.prefs.Match(ctx, userID, emb.Embedding, b.cfg.TopK, b.cfg.MinSimilarity)
	if err != nil {
		log.Warn("Preference lookup failed", zap.Error(err))
		return items
	}

	boosting := prefs[:0:0]
	for _, p := range prefs {
		if p.Boosts() {
			boosting = append(boosting, p)
		}
	}
	if len(boosting) == 0 {
		return items
	}

	out := make([]result.Item, len(items))
	copy(out, items)
	for i := range out {
		if p, ok := strongest(boosting, out[i]); ok {
			out[i].Similarity = min(1.0, out[i].Similarity+b.cfg.Factor*p.Confidence)
		}
	}
	result.SortBySimilarity(out)
	return out
}

// strongest picks the highest-confidence preference matching the item name or description.
func strongest(prefs []dompref.Preference, it result.Item) (dompref.Preference, bool) {
	var best dompref.Preference
	found := false
	for _, p := range prefs {
		if !p.MatchesText(it.Name) && !p.MatchesText(it.Description) {
			continue
		}
		if !found || p.Confidence > best.Confidence {
			best, found = p, true
		}
	}
	return best, found
}
