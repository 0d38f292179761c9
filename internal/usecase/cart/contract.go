package cart

import (
	"context"

	domcart "github.com/kailas-cloud/shopassist/internal/domain/cart"
	domcat "github.com/kailas-cloud/shopassist/internal/domain/catalog"
)

// Store persists carts keyed by (user, shop).
type Store interface {
	Get(ctx context.Context, userID, shopID string) (*domcart.Cart, error)
	Save(ctx context.Context, c *domcart.Cart) error
	ListByUser(ctx context.Context, userID string) ([]*domcart.Cart, error)
}

// CatalogReader reads the items and shops a cart refers to.
type CatalogReader interface {
	GetItem(ctx context.Context, id string) (domcat.Item, error)
	GetShop(ctx context.Context, id string) (domcat.Shop, error)
}
