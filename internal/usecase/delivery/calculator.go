// Package delivery quotes delivery fees from a shop's fee configuration.
package delivery

import (
	"context"
	"fmt"

	domcat "github.com/kailas-cloud/shopassist/internal/domain/catalog"
	"github.com/kailas-cloud/shopassist/internal/domain/geo"
)

// LogicReader loads fee configurations.
type LogicReader interface {
	GetDeliveryLogicBatch(ctx context.Context, shopIDs []string) (map[string]domcat.DeliveryLogic, error)
}

// Calculator computes delivery quotes. Shops without a stored configuration use the fallback logic.
type Calculator struct {
	logic    LogicReader
	fallback domcat.DeliveryLogic
}

// New creates a Calculator.
func New(logic LogicReader, fallback domcat.DeliveryLogic) *Calculator {
	return &Calculator{logic: logic, fallback: fallback}
}

// Quote computes the fee for one shop.
func (c *Calculator) Quote(ctx context.Context, user geo.Point, shop domcat.Shop, orderValueCents int64) (domcat.Quote, error) {
	quotes, err := c.QuoteBatch(ctx, user, []domcat.Shop{shop}, orderValueCents)
	if err != nil {
		return domcat.Quote{}, err
	}
	return quotes[shop.ID], nil
}

// QuoteBatch computes fees for several shops with one configuration round trip.
func (c *Calculator) QuoteBatch(
	ctx context.Context, user geo.Point, shops []domcat.Shop, orderValueCents int64,
) (map[string]domcat.Quote, error) {
	out := make(map[string]domcat.Quote, len(shops))
	if len(shops) == 0 {
		return out, nil
	}

	ids := make([]string, len(shops))
	for i, s := range shops {
		ids[i] = s.ID
	}
	logic, err := c.logic.GetDeliveryLogicBatch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load delivery logic: %w", err)
	}

	for _, s := range shops {
		l, ok := logic[s.ID]
		if !ok {
			l = c.fallback
			l.ShopID = s.ID
		}
		out[s.ID] = Compute(l, user, s.Location, orderValueCents)
	}
	return out, nil
}

// Compute quotes a fee and zone membership for a known configuration and pair of points.
func Compute(l domcat.DeliveryLogic, user, shop geo.Point, orderValueCents int64) domcat.Quote {
	dist := user.DistanceKm(shop)
	fee := l.Fee(dist, orderValueCents)
	return domcat.Quote{
		ShopID:     l.ShopID,
		DistanceKm: dist,
		FeeCents:   fee,
		Free:       fee == 0,
		InZone:     l.Covers(dist),
		RadiusKm:   l.RadiusKm,
	}
}
