// Package intent holds the structured form of a shopping query.
package intent

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// SearchIntent is what a free-text query is asking for.
type SearchIntent struct {
	PrimaryQuery    string          `json:"primaryQuery"`
	ExpandedQueries []string        `json:"expandedQueries"`
	Categories      []string        `json:"categories"`
	Brands          []string        `json:"brands"`
	ItemTypes       []string        `json:"itemTypes"`
	ExtractedItems  []ExtractedItem `json:"extractedItems"`
	Reasoning       string          `json:"reasoning"`
}

// ExtractedItem is one product requested in a (possibly multi-item) query.
type ExtractedItem struct {
	Name        string   `json:"name"`
	Brand       string   `json:"brand,omitempty"`
	Category    string   `json:"category,omitempty"`
	SearchTerms []string `json:"searchTerms"`
	Quantity    int      `json:"quantity"`
}

// Fallback builds the single-item intent used when the model cannot help.
func Fallback(query, reason string) SearchIntent {
	q := strings.TrimSpace(query)
	return SearchIntent{
		PrimaryQuery:    q,
		ExpandedQueries: []string{q},
		ExtractedItems: []ExtractedItem{{
			Name:        q,
			SearchTerms: []string{q},
			Quantity:    1,
		}},
		Reasoning: "fallback: " + reason,
	}
}

// Quantity is a lenient JSON quantity: numbers, numeric strings, null or garbage.
// Anything that is not an integer >= 1 decodes to 0 and is later normalized to 1.
type Quantity int

// UnmarshalJSON never fails, so one bad quantity cannot sink the whole intent.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	*q = Quantity(parseQuantity(b))
	return nil
}

func parseQuantity(raw []byte) int {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return wholeOrZero(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return wholeOrZero(f)
	default:
		return 0
	}
}

func wholeOrZero(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f < 1 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

// NormalizeQuantity returns q when it is an integer >= 1, otherwise 1.
func NormalizeQuantity(q int) int {
	if q < 1 {
		return 1
	}
	return q
}

// Normalize enforces the intent invariants in place:
// every item has a quantity >= 1 and at least one search term,
// and the primary query is always present in the expanded queries.
func (si *SearchIntent) Normalize(query string) {
	if strings.TrimSpace(si.PrimaryQuery) == "" {
		si.PrimaryQuery = strings.TrimSpace(query)
	}
	si.ExpandedQueries = dedupeNonEmpty(append([]string{si.PrimaryQuery}, si.ExpandedQueries...))
	si.Categories = dedupeNonEmpty(si.Categories)
	si.Brands = dedupeNonEmpty(si.Brands)
	si.ItemTypes = dedupeNonEmpty(si.ItemTypes)

	items := si.ExtractedItems[:0]
	for _, it := range si.ExtractedItems {
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" {
			continue
		}
		it.Quantity = NormalizeQuantity(it.Quantity)
		it.SearchTerms = dedupeNonEmpty(it.SearchTerms)
		if len(it.SearchTerms) == 0 {
			it.SearchTerms = []string{it.Name}
		}
		items = append(items, it)
	}
	if len(items) == 0 && si.PrimaryQuery != "" {
		items = append(items, ExtractedItem{
			Name:        si.PrimaryQuery,
			SearchTerms: []string{si.PrimaryQuery},
			Quantity:    1,
		})
	}
	si.ExtractedItems = items
}

// SearchQueries returns the distinct queries to run against the vector store.
// Every extracted item's first search term leads, so each product of a
// multi-item request gets its own search. The primary query follows, then the
// remaining item terms round-robin across items, then the expanded queries.
// limit caps the total (0 = no cap) but never drops an item's lead term.
func (si *SearchIntent) SearchQueries(limit int) []string {
	lead := make([]string, 0, len(si.ExtractedItems))
	depth := 0
	for _, it := range si.ExtractedItems {
		if len(it.SearchTerms) == 0 {
			continue
		}
		lead = append(lead, it.SearchTerms[0])
		depth = max(depth, len(it.SearchTerms))
	}
	lead = dedupeNonEmpty(lead)

	all := append(append([]string{}, lead...), si.PrimaryQuery)
	for d := 1; d < depth; d++ {
		for _, it := range si.ExtractedItems {
			if d < len(it.SearchTerms) {
				all = append(all, it.SearchTerms[d])
			}
		}
	}
	all = append(all, si.ExpandedQueries...)

	out := dedupeNonEmpty(all)
	if limit > 0 {
		if n := max(limit, len(lead)); len(out) > n {
			out = out[:n]
		}
	}
	return out
}

// Terms returns item names and brands, used for preference lookups.
func (si *SearchIntent) Terms() []string {
	var terms []string
	for _, it := range si.ExtractedItems {
		terms = append(terms, it.Name)
		if it.Brand != "" {
			terms = append(terms, it.Brand)
		}
	}
	terms = append(terms, si.Brands...)
	return dedupeNonEmpty(terms)
}

func dedupeNonEmpty(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		k := strings.ToLower(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}
