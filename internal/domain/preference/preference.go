// Package preference models remembered user likes and dislikes.
package preference

import "strings"

// Polarity is the direction of a preference.
type Polarity string

// Preference polarities.
const (
	Prefers  Polarity = "prefers"
	Avoids   Polarity = "avoids"
	Allergic Polarity = "allergic"
)

// Preference is one remembered preference matched against a query.
type Preference struct {
	EntityName string   `json:"entityName"`
	Polarity   Polarity `json:"polarity"`
	Confidence float64  `json:"confidence"`
	Similarity float64  `json:"similarity"`
}

// Boosts reports whether this preference may raise an item score.
func (p Preference) Boosts() bool { return p.Polarity == Prefers }

// MatchesText reports containment in either direction, case-insensitive.
func (p Preference) MatchesText(text string) bool {
	e := strings.ToLower(strings.TrimSpace(p.EntityName))
	t := strings.ToLower(strings.TrimSpace(text))
	if e == "" || t == "" {
		return false
	}
	return strings.Contains(t, e) || strings.Contains(e, t)
}
