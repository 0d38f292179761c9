package router

import (
	"context"

	domcart "github.com/kailas-cloud/shopassist/internal/domain/cart"
	domorder "github.com/kailas-cloud/shopassist/internal/domain/order"
	"github.com/kailas-cloud/shopassist/internal/domain/search/request"
	"github.com/kailas-cloud/shopassist/internal/usecase/cart"
	"github.com/kailas-cloud/shopassist/internal/usecase/order"
	"github.com/kailas-cloud/shopassist/internal/usecase/search"
	"github.com/kailas-cloud/shopassist/internal/usecase/vectorsearch"
)

// Searcher runs the intelligent multi-shop search.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) (search.Response, error)
}

// ShopSearcher searches the items of one shop.
type ShopSearcher interface {
	SearchInShop(ctx context.Context, shopID, query string, limit int, minSimilarity float64) vectorsearch.Outcome
}

// Carts mutates and reads carts.
type Carts interface {
	AddItems(ctx context.Context, userID string, reqs []cart.AddRequest) cart.AddResult
	Remove(ctx context.Context, userID, shopID, itemID string) (*domcart.Cart, error)
	UpdateQuantity(ctx context.Context, userID, shopID, itemID string, qty int) (*domcart.Cart, error)
	Get(ctx context.Context, userID, shopID string) (*domcart.Cart, error)
	All(ctx context.Context, userID string) ([]*domcart.Cart, error)
}

// Orders places orders.
type Orders interface {
	Place(ctx context.Context, userID, shopID string, addr *domorder.Address) (order.Receipt, *order.State, error)
}

// AddressBook stores the delivery address of a user.
type AddressBook interface {
	SetAddress(ctx context.Context, userID string, a domorder.Address) error
}
