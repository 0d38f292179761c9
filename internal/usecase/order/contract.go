package order

import (
	"context"

	domcart "github.com/kailas-cloud/shopassist/internal/domain/cart"
	domcat "github.com/kailas-cloud/shopassist/internal/domain/catalog"
	"github.com/kailas-cloud/shopassist/internal/domain/geo"
	domorder "github.com/kailas-cloud/shopassist/internal/domain/order"
)

// CartStore reads and clears the cart being ordered.
type CartStore interface {
	Get(ctx context.Context, userID, shopID string) (*domcart.Cart, error)
	Delete(ctx context.Context, userID, shopID string) error
}

// ShopReader loads the shop an order is placed with.
type ShopReader interface {
	GetShop(ctx context.Context, id string) (domcat.Shop, error)
}

// Repository persists addresses and orders.
type Repository interface {
	CreateDeliveryAddress(ctx context.Context, userID string, a domorder.Address) (string, error)
	CreateOrder(ctx context.Context, o *domorder.Order) error
}

// AddressBook returns the delivery address a user last set.
type AddressBook interface {
	Address(ctx context.Context, userID string) (*domorder.Address, error)
}

// Validator runs the stock and opening-hours checks.
type Validator interface {
	CheckStock(ctx context.Context, c *domcart.Cart) error
	CheckOpen(shop *domcat.Shop) error
}

// FeeQuoter computes the delivery fee for the final subtotal.
type FeeQuoter interface {
	Quote(ctx context.Context, user geo.Point, shop domcat.Shop, orderValueCents int64) (domcat.Quote, error)
}

// Publisher announces placed orders. Optional.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, o *domorder.Order) error
}
