// Package order places orders from carts after the full validation chain.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopassist/internal/domain"
	domcart "github.com/kailas-cloud/shopassist/internal/domain/cart"
	domorder "github.com/kailas-cloud/shopassist/internal/domain/order"
	"github.com/kailas-cloud/shopassist/internal/logger"
	"github.com/kailas-cloud/shopassist/internal/metrics"
	"github.com/kailas-cloud/shopassist/internal/usecase/eligibility"
)

// Receipt is returned to the caller after a successful placement.
type Receipt struct {
	OrderID          string         `json:"orderId"`
	ShopID           string         `json:"shopId"`
	ShopName         string         `json:"shopName"`
	Lines            []domcart.Line `json:"lines"`
	SubtotalCents    int64          `json:"subtotalCents"`
	DeliveryFeeCents int64          `json:"deliveryFeeCents"`
	TotalCents       int64          `json:"totalCents"`
	DistanceKm       float64        `json:"distanceKm"`
	PlacedAt         time.Time      `json:"placedAt"`
}

// State is the cart and address a caller can retry with after a correctable failure.
type State struct {
	Cart    *domcart.Cart
	Address *domorder.Address
}

// Service runs the placement chain.
type Service struct {
	carts     CartStore
	shops     ShopReader
	repo      Repository
	addresses AddressBook
	check     Validator
	fees      FeeQuoter
	publisher Publisher
	now       func() time.Time
	newID     func() string
}

// New creates an order service. publisher may be nil.
func New(
	carts CartStore, shops ShopReader, repo Repository, addresses AddressBook,
	check Validator, fees FeeQuoter, publisher Publisher,
) *Service {
	return &Service{
		carts:     carts,
		shops:     shops,
		repo:      repo,
		addresses: addresses,
		check:     check,
		fees:      fees,
		publisher: publisher,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Place orders the user's cart at shopID. When addr is nil the address set with
// setDeliveryAddress is used. Each check short-circuits; a returned State is non-nil
// whenever the failure is one the user can fix without losing the cart.
func (s *Service) Place(ctx context.Context, userID, shopID string, addr *domorder.Address) (Receipt, *State, error) {
	log := logger.FromContext(ctx).With(zap.String("shop_id", shopID))

	c, err := s.carts.Get(ctx, userID, shopID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && c.IsEmpty()) {
		return Receipt{}, nil, fmt.Errorf("nothing to order from shop %s: %w", shopID, domain.ErrCartEmpty)
	}
	if err != nil {
		return Receipt{}, nil, fmt.Errorf("load cart: %w", err)
	}

	if addr == nil {
		if addr, err = s.addresses.Address(ctx, userID); err != nil {
			return Receipt{}, nil, fmt.Errorf("load address: %w", err)
		}
	}
	state := &State{Cart: c, Address: addr}

	if !addr.HasCoordinates() {
		return Receipt{}, state, fmt.Errorf("a delivery location is needed before ordering: %w", domain.ErrAddressInvalid)
	}
	if !addr.HasLandmark() {
		return Receipt{}, state, fmt.Errorf("please add a landmark of at least %d characters so the rider can find you: %w",
			domorder.MinLandmarkLength, domain.ErrLandmarkMissing)
	}

	shop, err := s.shops.GetShop(ctx, shopID)
	if err != nil {
		return Receipt{}, nil, fmt.Errorf("load shop: %w", err)
	}
	subtotal := c.TotalPriceCents()
	quote, err := s.fees.Quote(ctx, addr.Location, shop, subtotal)
	if err != nil {
		log.Error("Delivery fee unavailable", zap.Error(err))
		return Receipt{}, state, fmt.Errorf("%w: %v", domain.ErrOrderPlacement, err)
	}
	if err := eligibility.CheckZone(&shop, quote); err != nil {
		return Receipt{}, state, err
	}

	addressID, err := s.repo.CreateDeliveryAddress(ctx, userID, *addr)
	if err != nil {
		log.Error("Delivery address not stored", zap.Error(err))
		return Receipt{}, state, fmt.Errorf("%w: %v", domain.ErrOrderPlacement, err)
	}

	if err := s.check.CheckStock(ctx, c); err != nil {
		return Receipt{}, state, err
	}
	if err := s.check.CheckOpen(&shop); err != nil {
		return Receipt{}, state, err
	}
	if err := eligibility.CheckMinimum(&shop, subtotal); err != nil {
		return Receipt{}, state, err
	}

	o := domorder.New(s.newID(), c, quote.FeeCents, addressID, s.now().UTC())
	if err := s.repo.CreateOrder(ctx, &o); err != nil {
		log.Error("Order not stored", zap.Error(err))
		return Receipt{}, state, fmt.Errorf("%w: %v", domain.ErrOrderPlacement, err)
	}
	metrics.OrdersPlacedTotal.Inc()

	if err := s.carts.Delete(ctx, userID, shopID); err != nil {
		log.Warn("Cart not cleared after order", zap.String("order_id", o.ID()), zap.Error(err))
	}
	if s.publisher != nil {
		if err := s.publisher.PublishOrderPlaced(ctx, &o); err != nil {
			log.Warn("Order event not published", zap.String("order_id", o.ID()), zap.Error(err))
		}
	}

	log.Info("Order placed", zap.String("order_id", o.ID()), zap.Int64("total_cents", o.TotalCents()))
	return Receipt{
		OrderID:          o.ID(),
		ShopID:           shop.ID,
		ShopName:         shop.Name,
		Lines:            o.Lines(),
		SubtotalCents:    o.SubtotalCents(),
		DeliveryFeeCents: o.DeliveryFeeCents(),
		TotalCents:       o.TotalCents(),
		DistanceKm:       quote.DistanceKm,
		PlacedAt:         o.PlacedAt(),
	}, nil, nil
}
