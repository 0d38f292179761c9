// Package vectorstore calls the pgvector similarity functions and the ILIKE text fallback.
package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/kailas-cloud/shopassist/internal/domain/search/mode"
	"github.com/kailas-cloud/shopassist/internal/domain/search/result"
)

// TextSimilarity is the fixed score given to ILIKE matches.
const TextSimilarity = 0.85

// Querier is the subset of *sql.DB used by the store.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Store runs similarity RPCs against Postgres.
type Store struct {
	db    Querier
	reset func()
}

// New creates a vector store. reset drops pooled connections; nil disables it.
func New(db Querier, reset func()) *Store {
	if reset == nil {
		reset = func() {}
	}
	return &Store{db: db, reset: reset}
}

// Row shapes returned by the similarity functions and the items table.
const (
	shopMatchColumns = `merchant_item_id, item_name, coalesce(item_description, ''),
		coalesce(item_image_url, ''), price_cents, is_active, similarity`
	crossShopMatchColumns = shopMatchColumns + `, shop_id`
	textColumns           = `id, shop_id, name, coalesce(description, ''), coalesce(image_url, ''),
		price_cents, is_active`
)

// SearchInShop calls search_items_by_similarity. Its rows carry no shop id.
func (s *Store) SearchInShop(
	ctx context.Context, shopID string, vec []float32, limit int, minSimilarity float64,
) ([]result.Item, error) {
	q := `SELECT ` + shopMatchColumns + `
		FROM search_items_by_similarity($1, $2::vector, $3, $4)`
	rows, err := s.db.QueryContext(ctx, q, shopID, VectorLiteral(vec), limit, minSimilarity)
	if err != nil {
		return nil, fmt.Errorf("search_items_by_similarity: %w", err)
	}
	return scanShopMatches(rows, shopID)
}

// SearchAcrossShops calls search_items_across_shops_by_similarity.
func (s *Store) SearchAcrossShops(
	ctx context.Context, shopIDs []string, vec []float32, limit int, minSimilarity float64,
) ([]result.Item, error) {
	q := `SELECT ` + crossShopMatchColumns + `
		FROM search_items_across_shops_by_similarity($1, $2::vector, $3, $4)`
	rows, err := s.db.QueryContext(ctx, q, pq.Array(shopIDs), VectorLiteral(vec), limit, minSimilarity)
	if err != nil {
		return nil, fmt.Errorf("search_items_across_shops_by_similarity: %w", err)
	}
	return scanCrossShopMatches(rows)
}

// TextSearchInShop matches active items by name or description.
func (s *Store) TextSearchInShop(ctx context.Context, shopID, query string, limit int) ([]result.Item, error) {
	q := `SELECT ` + textColumns + `
		FROM items
		WHERE shop_id = $1 AND is_active AND (name ILIKE $2 OR description ILIKE $2)
		ORDER BY name
		LIMIT $3`
	rows, err := s.db.QueryContext(ctx, q, shopID, LikePattern(query), limit)
	if err != nil {
		return nil, fmt.Errorf("text search in shop: %w", err)
	}
	return scanTextMatches(rows)
}

// TextSearchAcrossShops matches active items of several shops.
func (s *Store) TextSearchAcrossShops(ctx context.Context, shopIDs []string, query string, limit int) ([]result.Item, error) {
	q := `SELECT ` + textColumns + `
		FROM items
		WHERE shop_id = ANY($1) AND is_active AND (name ILIKE $2 OR description ILIKE $2)
		ORDER BY name
		LIMIT $3`
	rows, err := s.db.QueryContext(ctx, q, pq.Array(shopIDs), LikePattern(query), limit)
	if err != nil {
		return nil, fmt.Errorf("text search across shops: %w", err)
	}
	return scanTextMatches(rows)
}

// ResetPool drops idle connections before a retry.
func (s *Store) ResetPool() { s.reset() }

// rowScanner is the part of *sql.Rows the scanners read.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

func scanShopMatches(rows rowScanner, shopID string) ([]result.Item, error) {
	return scanItems(rows, func(it *result.Item) []any {
		it.ShopID, it.Source = shopID, mode.Vector
		return []any{&it.ItemID, &it.Name, &it.Description, &it.ImageURL, &it.PriceCents, &it.IsActive, &it.Similarity}
	})
}

func scanCrossShopMatches(rows rowScanner) ([]result.Item, error) {
	return scanItems(rows, func(it *result.Item) []any {
		it.Source = mode.Vector
		return []any{&it.ItemID, &it.Name, &it.Description, &it.ImageURL, &it.PriceCents, &it.IsActive,
			&it.Similarity, &it.ShopID}
	})
}

func scanTextMatches(rows rowScanner) ([]result.Item, error) {
	return scanItems(rows, func(it *result.Item) []any {
		it.Similarity, it.Source = TextSimilarity, mode.Text
		return []any{&it.ItemID, &it.ShopID, &it.Name, &it.Description, &it.ImageURL, &it.PriceCents, &it.IsActive}
	})
}

// scanItems reads every row; dest presets fixed fields and returns the scan targets.
func scanItems(rows rowScanner, dest func(*result.Item) []any) ([]result.Item, error) {
	defer func() { _ = rows.Close() }()

	var out []result.Item
	for rows.Next() {
		var it result.Item
		if err := rows.Scan(dest(&it)...); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return out, nil
}

// VectorLiteral renders a pgvector text literal, e.g. "[0.1,0.2]".
func VectorLiteral(vec []float32) string {
	var b strings.Builder
	b.Grow(len(vec)*10 + 2)
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern wraps q for a contains-match with LIKE wildcards escaped.
func LikePattern(q string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(q)) + "%"
}
