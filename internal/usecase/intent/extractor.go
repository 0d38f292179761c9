// Package intent turns a free-text shopping query into a structured search intent.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopassist/internal/domain"
	"github.com/kailas-cloud/shopassist/internal/domain/chat"
	dom "github.com/kailas-cloud/shopassist/internal/domain/intent"
	"github.com/kailas-cloud/shopassist/internal/logger"
	"github.com/kailas-cloud/shopassist/internal/metrics"
)

// Fallback reasons.
const (
	ReasonLLMUnavailable = "LLM unavailable"
	ReasonParseError     = "parse error"
)

// Extractor asks the chat model to split, expand and quantify a query.
type Extractor struct {
	llm         Completer
	vocab       Vocabulary
	temperature float32
}

// New creates an Extractor. A nil vocabulary uses DefaultVocabulary.
func New(llm Completer, vocab Vocabulary, temperature float32) *Extractor {
	if vocab == nil {
		vocab = DefaultVocabulary
	}
	return &Extractor{llm: llm, vocab: vocab, temperature: temperature}
}

// wireIntent is the JSON the model is asked to produce.
type wireIntent struct {
	PrimaryQuery    string     `json:"primaryQuery"`
	ExpandedQueries []string   `json:"expandedQueries"`
	Categories      []string   `json:"categories"`
	Brands          []string   `json:"brands"`
	ItemTypes       []string   `json:"itemTypes"`
	ExtractedItems  []wireItem `json:"extractedItems"`
	Reasoning       string     `json:"reasoning"`
}

type wireItem struct {
	Name        string       `json:"name"`
	Brand       string       `json:"brand"`
	Category    string       `json:"category"`
	SearchTerms []string     `json:"searchTerms"`
	Quantity    dom.Quantity `json:"quantity"`
}

// Extract never fails: model or parse failures degrade to the single-item fallback intent.
func (e *Extractor) Extract(ctx context.Context, query string, knownCategories []string) dom.SearchIntent {
	log := logger.FromContext(ctx)

	res, err := e.llm.Complete(ctx, chat.Request{
		Messages: []chat.Message{
			{Role: chat.RoleSystem, Content: e.systemPrompt(knownCategories)},
			{Role: chat.RoleUser, Content: query},
		},
		Temperature: e.temperature,
		JSONOutput:  true,
	})
	if err == nil && strings.TrimSpace(res.Message.Content) == "" {
		err = fmt.Errorf("empty reply: %w", domain.ErrLLMUnavailable)
	}
	if err != nil {
		log.Warn("Intent extraction fell back", zap.String("reason", ReasonLLMUnavailable), zap.Error(err))
		metrics.IntentFallbackTotal.WithLabelValues("llm_unavailable").Inc()
		return e.fallback(query, ReasonLLMUnavailable)
	}

	si, err := parseIntent(res.Message.Content)
	if err != nil {
		log.Warn("Intent extraction fell back", zap.String("reason", ReasonParseError), zap.Error(err))
		metrics.IntentFallbackTotal.WithLabelValues("parse_error").Inc()
		return e.fallback(query, ReasonParseError)
	}

	si.Normalize(query)
	e.enrich(&si)
	return si
}

func (e *Extractor) fallback(query, reason string) dom.SearchIntent {
	si := dom.Fallback(query, reason)
	si.Normalize(query)
	return si
}

// enrich adds local synonyms the model did not already produce. Item
// synonyms extend that item's search terms so they stay attributed to it.
func (e *Extractor) enrich(si *dom.SearchIntent) {
	for i := range si.ExtractedItems {
		it := &si.ExtractedItems[i]
		known := append([]string{it.Name}, it.SearchTerms...)
		if it.Brand != "" {
			known = append(known, it.Brand)
		}
		it.SearchTerms = append(it.SearchTerms, e.vocab.Expand(known)...)
	}

	terms := append(append([]string{}, si.Categories...), si.ItemTypes...)
	terms = append(terms, si.Brands...)
	extra := e.vocab.Expand(append(terms, si.ExpandedQueries...))
	if len(extra) == 0 {
		return
	}
	si.ExpandedQueries = append(si.ExpandedQueries, extra...)
	si.Normalize(si.PrimaryQuery)
}

func (e *Extractor) systemPrompt(knownCategories []string) string {
	var b strings.Builder
	b.WriteString(`You turn a shopper's message into a JSON search intent.

Rules:
1. If the message asks for several products, return one entry per product in "extractedItems".
2. "quantity" is a positive whole number; use 1 when the shopper does not say.
3. Expand brand and category synonyms using the vocabulary below and put them in "expandedQueries".
4. "searchTerms" lists short phrases that would find the product in a catalog.
5. Reply with a single JSON object and nothing else.

JSON shape:
{"primaryQuery": string, "expandedQueries": [string], "categories": [string], "brands": [string],
 "itemTypes": [string], "extractedItems": [{"name": string, "brand": string, "category": string,
 "searchTerms": [string], "quantity": number}], "reasoning": string}

Vocabulary:
`)
	for _, l := range e.vocab.promptLines() {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if len(knownCategories) > 0 {
		b.WriteString("\nCategories available in nearby shops: ")
		b.WriteString(strings.Join(knownCategories, ", "))
		b.WriteByte('\n')
	}
	return b.String()
}

// parseIntent decodes the first balanced JSON object in a model reply.
func parseIntent(content string) (dom.SearchIntent, error) {
	raw, err := firstJSONObject(content)
	if err != nil {
		return dom.SearchIntent{}, err
	}
	var w wireIntent
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return dom.SearchIntent{}, fmt.Errorf("%w: %v", domain.ErrIntentParse, err)
	}

	si := dom.SearchIntent{
		PrimaryQuery:    w.PrimaryQuery,
		ExpandedQueries: w.ExpandedQueries,
		Categories:      w.Categories,
		Brands:          w.Brands,
		ItemTypes:       w.ItemTypes,
		Reasoning:       w.Reasoning,
	}
	for _, it := range w.ExtractedItems {
		si.ExtractedItems = append(si.ExtractedItems, dom.ExtractedItem{
			Name:        it.Name,
			Brand:       it.Brand,
			Category:    it.Category,
			SearchTerms: it.SearchTerms,
			Quantity:    int(it.Quantity),
		})
	}
	return si, nil
}

var errNoJSON = errors.New("no JSON object in reply")

// firstJSONObject returns the first balanced {...} in s, skipping markdown fences
// and braces inside string literals.
func firstJSONObject(s string) (string, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("%w: %w", domain.ErrIntentParse, errNoJSON)
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unbalanced braces", domain.ErrIntentParse)
}
