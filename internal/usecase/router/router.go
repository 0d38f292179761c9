// Package router executes model function calls and wraps every outcome in an fcall.Result.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopassist/internal/domain"
	"github.com/kailas-cloud/shopassist/internal/domain/fcall"
	"github.com/kailas-cloud/shopassist/internal/domain/search/mode"
	"github.com/kailas-cloud/shopassist/internal/domain/search/request"
	"github.com/kailas-cloud/shopassist/internal/domain/search/result"
	"github.com/kailas-cloud/shopassist/internal/logger"
	"github.com/kailas-cloud/shopassist/internal/metrics"
	"github.com/kailas-cloud/shopassist/internal/usecase/cart"
)

type handler func(ctx context.Context, userID string, raw json.RawMessage) fcall.Result

// Router dispatches function calls by name.
type Router struct {
	search    Searcher
	shop      ShopSearcher
	carts     Carts
	orders    Orders
	addresses AddressBook
	handlers  map[string]handler
}

// New creates a Router.
func New(search Searcher, shop ShopSearcher, carts Carts, orders Orders, addresses AddressBook) *Router {
	r := &Router{search: search, shop: shop, carts: carts, orders: orders, addresses: addresses}
	r.handlers = map[string]handler{
		FnIntelligentSearch:  r.intelligentSearch,
		FnSearchItemsInShop:  r.searchItemsInShop,
		FnAddItemsToCart:     r.addItemsToCart,
		FnRemoveItemFromCart: r.removeItemFromCart,
		FnUpdateItemQuantity: r.updateItemQuantity,
		FnGetCart:            r.getCart,
		FnGetAllCarts:        r.getAllCarts,
		FnPlaceOrder:         r.placeOrder,
		FnSetDeliveryAddress: r.setDeliveryAddress,
	}
	return r
}

// Execute runs one function call. It never panics and never returns a Go error:
// unknown names, bad arguments and failures all become a failed Result.
func (r *Router) Execute(ctx context.Context, userID, name string, args json.RawMessage) (res fcall.Result) {
	start := time.Now()
	label := name
	ctx = logger.With(ctx, zap.String("function", name), zap.String("user_id", userID))
	log := logger.FromContext(ctx)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Function call panicked", zap.Any("panic", rec), zap.Stack("stack"))
			res = fcall.Fail(fcall.CodeInternal, "something went wrong, please try again")
		}
		code := string(res.Code)
		if res.Success {
			code = "ok"
		}
		metrics.FunctionCallsTotal.WithLabelValues(label, code).Inc()
		metrics.FunctionCallDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
		log.Debug("Function call finished", zap.Bool("success", res.Success), zap.String("code", code))
	}()

	h, ok := r.handlers[name]
	if !ok {
		label = "unknown"
		return fcall.FromError(fmt.Errorf("%q is not a known function: %w", name, domain.ErrUnknownFunction))
	}
	if userID == "" {
		return fcall.FromError(fmt.Errorf("user id is required: %w", domain.ErrInvalidArguments))
	}
	return h(ctx, userID, args)
}

// Names lists the registered function names.
func (r *Router) Names() []string {
	names := make([]string, 0, len(toolDefs))
	for _, t := range toolDefs {
		names = append(names, t.Name)
	}
	return names
}

func (r *Router) intelligentSearch(ctx context.Context, userID string, raw json.RawMessage) fcall.Result {
	var a intelligentSearchArgs
	if err := decode(raw, &a); err != nil {
		return fcall.FromError(err)
	}
	loc, err := a.location()
	if err != nil {
		return fcall.FromError(err)
	}
	req, err := request.New(a.Query, userID, loc, a.ShopIDs, a.ShopLimit, a.ItemsPerShop, a.MinSimilarity)
	if err != nil {
		return fcall.FromError(fmt.Errorf("%v: %w", err, domain.ErrInvalidArguments))
	}
	resp, err := r.search.Search(ctx, &req)
	if err != nil {
		logger.FromContext(ctx).Error("Search failed", zap.Error(err))
		return fcall.FromError(err)
	}
	return fcall.OK(resp)
}

// shopItems is the payload of searchItemsInShop.
type shopItems struct {
	ShopID   string        `json:"shopId"`
	Items    []result.Item `json:"items"`
	Strategy mode.Mode     `json:"strategy"`
	Degraded bool          `json:"degraded"`
}

func (r *Router) searchItemsInShop(ctx context.Context, _ string, raw json.RawMessage) fcall.Result {
	var a searchItemsInShopArgs
	if err := decode(raw, &a); err != nil {
		return fcall.FromError(err)
	}
	if a.Limit == 0 {
		a.Limit = request.MaxItemsPerShop
	}
	if a.MinSimilarity == 0 {
		a.MinSimilarity = request.DefaultMinSimilarity
	}
	out := r.shop.SearchInShop(ctx, a.ShopID, a.Query, a.Limit, a.MinSimilarity)
	items := out.Items
	if items == nil {
		items = []result.Item{}
	}
	return fcall.OK(shopItems{ShopID: a.ShopID, Items: items, Strategy: out.Strategy, Degraded: out.Degraded()})
}

func (r *Router) addItemsToCart(ctx context.Context, userID string, raw json.RawMessage) fcall.Result {
	var a addItemsToCartArgs
	if err := decode(raw, &a); err != nil {
		return fcall.FromError(err)
	}
	reqs := make([]cart.AddRequest, len(a.Items))
	for i, it := range a.Items {
		qty := it.Quantity
		if qty == 0 {
			qty = 1
		}
		reqs[i] = cart.AddRequest{ShopID: it.ShopID, ItemID: it.ItemID, Quantity: qty}
	}

	res := r.carts.AddItems(ctx, userID, reqs)
	out := fcall.Result{Success: res.Success, Result: res, Carts: res.Carts}
	if !res.Success {
		out.Code = fcall.CodeInternal
		if len(res.Failed) > 0 {
			out.Code = res.Failed[0].Reason
		}
		out.Error = "none of the requested items could be added"
	}
	return out
}

func (r *Router) removeItemFromCart(ctx context.Context, userID string, raw json.RawMessage) fcall.Result {
	var a cartLineArgs
	if err := decode(raw, &a); err != nil {
		return fcall.FromError(err)
	}
	c, err := r.carts.Remove(ctx, userID, a.ShopID, a.ItemID)
	if err != nil {
		return fcall.FromError(err)
	}
	return fcall.Result{Success: true, Cart: c}
}

func (r *Router) updateItemQuantity(ctx context.Context, userID string, raw json.RawMessage) fcall.Result {
	var a updateItemQuantityArgs
	if err := decode(raw, &a); err != nil {
		return fcall.FromError(err)
	}
	c, err := r.carts.UpdateQuantity(ctx, userID, a.ShopID, a.ItemID, a.Quantity)
	if err != nil {
		return fcall.FromError(err)
	}
	return fcall.Result{Success: true, Cart: c}
}

func (r *Router) getCart(ctx context.Context, userID string, raw json.RawMessage) fcall.Result {
	var a getCartArgs
	if err := decode(raw, &a); err != nil {
		return fcall.FromError(err)
	}
	c, err := r.carts.Get(ctx, userID, a.ShopID)
	if err != nil {
		return fcall.FromError(err)
	}
	return fcall.Result{Success: true, Cart: c}
}

func (r *Router) getAllCarts(ctx context.Context, userID string, _ json.RawMessage) fcall.Result {
	carts, err := r.carts.All(ctx, userID)
	if err != nil {
		return fcall.FromError(err)
	}
	return fcall.Result{Success: true, Carts: carts}
}

func (r *Router) placeOrder(ctx context.Context, userID string, raw json.RawMessage) fcall.Result {
	var a placeOrderArgs
	if err := decode(raw, &a); err != nil {
		return fcall.FromError(err)
	}
	receipt, state, err := r.orders.Place(ctx, userID, a.ShopID, a.Address.toDomain())
	if err != nil {
		res := fcall.FromError(err)
		if state != nil {
			res = res.WithState(state.Cart, state.Address)
		}
		return res
	}
	return fcall.OK(receipt)
}

func (r *Router) setDeliveryAddress(ctx context.Context, userID string, raw json.RawMessage) fcall.Result {
	var a setDeliveryAddressArgs
	if err := decode(raw, &a); err != nil {
		return fcall.FromError(err)
	}
	addr := (&addressArg{Street: a.Street, Landmark: a.Landmark, Latitude: a.Latitude, Longitude: a.Longitude}).toDomain()
	if err := r.addresses.SetAddress(ctx, userID, *addr); err != nil {
		return fcall.FromError(err)
	}
	out := fcall.OK(map[string]any{"landmarkOk": addr.HasLandmark()})
	out.Address = addr
	return out
}
