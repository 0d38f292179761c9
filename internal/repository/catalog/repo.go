// Package catalog reads shops, items, categories and delivery rules from Postgres.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kailas-cloud/shopassist/internal/domain"
	domcat "github.com/kailas-cloud/shopassist/internal/domain/catalog"
)

// Querier is the subset of *sql.DB used by the repository.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repo is the Postgres catalog repository.
type Repo struct {
	db Querier
}

// New creates a catalog repository.
func New(db Querier) *Repo {
	return &Repo{db: db}
}

const shopColumns = `id, name, coalesce(address, ''), lat, lng,
	minimum_order_cents, accepting_orders, coalesce(schedule, '{}')`

// GetShop loads one shop.
func (r *Repo) GetShop(ctx context.Context, id string) (domcat.Shop, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+shopColumns+` FROM shops WHERE id = $1`, id)
	s, err := scanShop(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domcat.Shop{}, fmt.Errorf("shop %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domcat.Shop{}, fmt.Errorf("get shop %s: %w", id, err)
	}
	return s, nil
}

// ListActiveShops returns every shop currently accepting orders, or those in ids when given.
func (r *Repo) ListActiveShops(ctx context.Context, ids []string) ([]domcat.Shop, error) {
	q := `SELECT ` + shopColumns + ` FROM shops WHERE accepting_orders`
	args := []any{}
	if len(ids) > 0 {
		q += ` AND id = ANY($1)`
		args = append(args, pq.Array(ids))
	}
	q += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	defer rows.Close()

	var out []domcat.Shop
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shop: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shops: %w", err)
	}
	return out, nil
}

const itemColumns = `id, shop_id, coalesce(category_id, ''), name, coalesce(description, ''),
	coalesce(image_url, ''), price_cents, is_active`

// GetItem loads one item; a missing item wraps domain.ErrItemNotFound.
func (r *Repo) GetItem(ctx context.Context, id string) (domcat.Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domcat.Item{}, fmt.Errorf("item %s: %w", id, domain.ErrItemNotFound)
	}
	if err != nil {
		return domcat.Item{}, fmt.Errorf("get item %s: %w", id, err)
	}
	return it, nil
}

// GetItems loads several items keyed by id. Missing ids are absent from the map.
func (r *Repo) GetItems(ctx context.Context, ids []string) (map[string]domcat.Item, error) {
	out := make(map[string]domcat.Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	items, err := collectItems(rows)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}

// ListCategories returns the categories of a shop.
func (r *Repo) ListCategories(ctx context.Context, shopID string) ([]domcat.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, shop_id, name FROM categories WHERE shop_id = $1 ORDER BY name`, shopID)
	if err != nil {
		return nil, fmt.Errorf("list categories %s: %w", shopID, err)
	}
	defer rows.Close()

	var out []domcat.Category
	for rows.Next() {
		var c domcat.Category
		if err := rows.Scan(&c.ID, &c.ShopID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

// ListItemsInCategories returns active items of the given categories of a shop.
func (r *Repo) ListItemsInCategories(
	ctx context.Context, shopID string, categoryIDs []string, limit int,
) ([]domcat.Item, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items
		WHERE shop_id = $1 AND category_id = ANY($2) AND is_active
		ORDER BY name LIMIT $3`,
		shopID, pq.Array(categoryIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("list category items %s: %w", shopID, err)
	}
	return collectItems(rows)
}

// GetDeliveryLogic loads the fee configuration of a shop.
func (r *Repo) GetDeliveryLogic(ctx context.Context, shopID string) (domcat.DeliveryLogic, error) {
	all, err := r.GetDeliveryLogicBatch(ctx, []string{shopID})
	if err != nil {
		return domcat.DeliveryLogic{}, err
	}
	l, ok := all[shopID]
	if !ok {
		return domcat.DeliveryLogic{}, fmt.Errorf("delivery logic %s: %w", shopID, domain.ErrNotFound)
	}
	return l, nil
}

// GetDeliveryLogicBatch loads fee configurations of several shops in one round trip.
func (r *Repo) GetDeliveryLogicBatch(ctx context.Context, shopIDs []string) (map[string]domcat.DeliveryLogic, error) {
	out := make(map[string]domcat.DeliveryLogic, len(shopIDs))
	if len(shopIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT shop_id, coalesce(delivery_radius_km, 0), base_fee_cents, free_radius_km, free_threshold_cents, coalesce(tiers, '[]')
		FROM delivery_logic WHERE shop_id = ANY($1)`, pq.Array(shopIDs))
	if err != nil {
		return nil, fmt.Errorf("get delivery logic: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domcat.DeliveryLogic
		var tiers []byte
		if err := rows.Scan(&l.ShopID, &l.RadiusKm, &l.BaseFeeCents, &l.FreeRadiusKm, &l.FreeThresholdCents, &tiers); err != nil {
			return nil, fmt.Errorf("scan delivery logic: %w", err)
		}
		if err := json.Unmarshal(tiers, &l.Tiers); err != nil {
			return nil, fmt.Errorf("decode tiers for %s: %w", l.ShopID, err)
		}
		out[l.ShopID] = l
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery logic: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanShop(row scanner) (domcat.Shop, error) {
	var s domcat.Shop
	var schedule []byte
	err := row.Scan(&s.ID, &s.Name, &s.Address, &s.Location.Lat, &s.Location.Lng,
		&s.MinimumOrderCents, &s.AcceptingOrders, &schedule)
	if err != nil {
		return domcat.Shop{}, err //nolint:wrapcheck // callers wrap with context
	}
	if err := decodeSchedule(schedule, &s.Schedule); err != nil {
		return domcat.Shop{}, fmt.Errorf("decode schedule for %s: %w", s.ID, err)
	}
	return s, nil
}

func decodeSchedule(raw []byte, dst *domcat.Schedule) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("unmarshal schedule: %w", err)
	}
	return nil
}

func scanItem(row scanner) (domcat.Item, error) {
	var it domcat.Item
	err := row.Scan(&it.ID, &it.ShopID, &it.CategoryID, &it.Name, &it.Description,
		&it.ImageURL, &it.PriceCents, &it.IsActive)
	return it, err //nolint:wrapcheck // callers wrap with context
}

func collectItems(rows *sql.Rows) ([]domcat.Item, error) {
	defer rows.Close()

	var out []domcat.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return out, nil
}
