package intent

import (
	"sort"
	"strings"
)

// Vocabulary maps a canonical term (category or brand) to the local-market words shoppers use for it.
type Vocabulary map[string][]string

// DefaultVocabulary covers the grocery and household terms seen in the local market.
var DefaultVocabulary = Vocabulary{
	"milk":           {"doodh", "dairy milk", "toned milk", "full cream milk"},
	"bread":          {"pav", "loaf", "sandwich bread", "brown bread"},
	"eggs":           {"anda", "egg tray"},
	"rice":           {"chawal", "basmati", "sona masoori"},
	"flour":          {"atta", "maida", "wheat flour"},
	"lentils":        {"dal", "toor dal", "moong dal", "masoor dal"},
	"cooking oil":    {"tel", "sunflower oil", "mustard oil", "groundnut oil"},
	"sugar":          {"cheeni", "shakkar"},
	"tea":            {"chai", "chai patti", "tea leaves"},
	"coffee":         {"instant coffee", "filter coffee"},
	"biscuits":       {"cookies", "crackers"},
	"soft drinks":    {"cold drink", "soda", "cola"},
	"detergent":      {"washing powder", "surf", "laundry liquid"},
	"soap":           {"bathing bar", "body wash"},
	"vegetables":     {"sabzi", "greens"},
	"onions":         {"pyaz", "kanda"},
	"potatoes":       {"aloo"},
	"tomatoes":       {"tamatar"},
	"yogurt":         {"curd", "dahi"},
	"cottage cheese": {"paneer"},
	"butter":         {"makhan"},
	"diapers":        {"pampers", "pamper", "huggies", "baby diapers", "nappies"},
	"sanitary pads":  {"always", "whisper", "stayfree", "pads"},
	"shampoo":        {"sunsilk", "pantene", "head & shoulders", "clinic plus"},
	"toothpaste":     {"colgate", "pepsodent", "close up"},
	"Amul":           {"amul"},
	"Coca-Cola":      {"coke", "coca cola"},
	"Parle":          {"parle-g", "parle g"},
	"Britannia":      {"britannia"},
	"Tata":           {"tata tea", "tata salt"},
}

// Canonical returns the canonical term for a word, or "" when the vocabulary
// does not know it. A canonical key wins over a synonym; among synonyms the
// alphabetically first key wins.
func (v Vocabulary) Canonical(word string) string {
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" {
		return ""
	}
	keys := v.keys()
	for _, canon := range keys {
		if strings.EqualFold(canon, w) {
			return canon
		}
	}
	for _, canon := range keys {
		for _, s := range v[canon] {
			if s == w {
				return canon
			}
		}
	}
	return ""
}

func (v Vocabulary) keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Expand returns the synonyms of every known term, canonical form first, without the input terms.
func (v Vocabulary) Expand(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		seen[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	var out []string
	add := func(s string) {
		k := strings.ToLower(s)
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	for _, t := range terms {
		canon := v.Canonical(t)
		if canon == "" {
			continue
		}
		add(canon)
		for _, s := range v[canon] {
			add(s)
		}
	}
	return out
}

// promptLines renders the vocabulary for the extraction prompt in a stable order.
func (v Vocabulary) promptLines() []string {
	keys := v.keys()
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, "- "+k+": "+strings.Join(v[k], ", "))
	}
	return lines
}
