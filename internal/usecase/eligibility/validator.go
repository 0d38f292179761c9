// Package eligibility holds the business-rule checks that gate cart and order operations.
package eligibility

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/shopassist/internal/domain"
	domcart "github.com/kailas-cloud/shopassist/internal/domain/cart"
	domcat "github.com/kailas-cloud/shopassist/internal/domain/catalog"
)

// ItemReader loads current catalog items in one round trip.
type ItemReader interface {
	GetItems(ctx context.Context, ids []string) (map[string]domcat.Item, error)
}

// Validator checks stock, opening hours, delivery zone and minimum order.
type Validator struct {
	items ItemReader
	now   func() time.Time
}

// New creates a Validator using the wall clock.
func New(items ItemReader) *Validator {
	return &Validator{items: items, now: time.Now}
}

// CheckItem validates a single catalog item for purchase.
func CheckItem(it domcat.Item) error {
	if !it.IsActive {
		return fmt.Errorf("%s: %w", it.Name, domain.ErrOutOfStock)
	}
	return nil
}

// CheckStock revalidates every line of c against the catalog.
// Missing or inactive items are reported together in an UnavailableItemsError.
func (v *Validator) CheckStock(ctx context.Context, c *domcart.Cart) error {
	ids := make([]string, len(c.Lines))
	for i, l := range c.Lines {
		ids[i] = l.ItemID
	}
	current, err := v.items.GetItems(ctx, ids)
	if err != nil {
		return fmt.Errorf("revalidate stock: %w", err)
	}

	var unavailable []string
	for _, l := range c.Lines {
		it, ok := current[l.ItemID]
		if !ok || !it.IsActive {
			unavailable = append(unavailable, l.Name)
		}
	}
	if len(unavailable) > 0 {
		return &domain.UnavailableItemsError{Items: unavailable}
	}
	return nil
}

// CheckOpen reports a ShopClosedError when the shop is not taking orders right now.
func (v *Validator) CheckOpen(shop *domcat.Shop) error {
	st := shop.StatusAt(v.now())
	if st.Open {
		return nil
	}
	return &domain.ShopClosedError{Reason: st.Reason, ShopName: shop.Name, OpensAt: st.OpensAt}
}

// CheckZone fails when the quoted address lies outside the shop delivery zone.
func CheckZone(shop *domcat.Shop, q domcat.Quote) error {
	if q.InZone {
		return nil
	}
	return fmt.Errorf("%s delivers within %.1f km, the address is %.1f km away: %w",
		shop.Name, q.RadiusKm, q.DistanceKm, domain.ErrDeliveryZone)
}

// CheckMinimum fails when subtotal is below the shop minimum order.
func CheckMinimum(shop *domcat.Shop, subtotalCents int64) error {
	if shop.MinimumOrderCents <= 0 || subtotalCents >= shop.MinimumOrderCents {
		return nil
	}
	return &domain.MinimumOrderError{MinimumCents: shop.MinimumOrderCents, SubtotalCents: subtotalCents}
}
