package shopassist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Call invokes a shopping function by name. args is marshaled to JSON;
// nil sends an empty object. A returned FunctionResult with Success=false
// is a business failure and err is nil.
func (c *Client) Call(ctx context.Context, name string, args any) (*FunctionResult, error) {
	sp := c.obs.begin("call." + name)
	res, err := c.call(ctx, name, args)
	if res != nil {
		sp.end(nil, !res.Success, res.Usage)
	} else {
		sp.end(err, false, CallUsage{})
	}
	return res, err
}

func (c *Client) call(ctx context.Context, name string, args any) (*FunctionResult, error) {
	if name == "" {
		return nil, errors.New("shopassist: function name required")
	}
	if c.userID == "" {
		return nil, errors.New("shopassist: user id required (use WithUserID)")
	}
	if args == nil {
		args = struct{}{}
	}

	var res FunctionResult
	usage, err := c.do(ctx, http.MethodPost, "/v1/functions/"+url.PathEscape(name), nil, args, &res)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	res.Usage = usage
	return &res, nil
}

// SearchArgs are the arguments of intelligentSearch.
// Zero coordinates leave the shopper's location unset.
type SearchArgs struct {
	Query         string
	Latitude      float64
	Longitude     float64
	ShopIDs       []string
	ShopLimit     int
	ItemsPerShop  int
	MinSimilarity float64
}

// MarshalJSON omits unset coordinates.
func (a SearchArgs) MarshalJSON() ([]byte, error) {
	type wire struct {
		Query         string   `json:"query"`
		Latitude      *float64 `json:"latitude,omitempty"`
		Longitude     *float64 `json:"longitude,omitempty"`
		ShopIDs       []string `json:"shopIds,omitempty"`
		ShopLimit     int      `json:"shopLimit,omitempty"`
		ItemsPerShop  int      `json:"itemsPerShop,omitempty"`
		MinSimilarity float64  `json:"minSimilarity,omitempty"`
	}
	w := wire{
		Query:         a.Query,
		ShopIDs:       a.ShopIDs,
		ShopLimit:     a.ShopLimit,
		ItemsPerShop:  a.ItemsPerShop,
		MinSimilarity: a.MinSimilarity,
	}
	if a.Latitude != 0 || a.Longitude != 0 {
		lat, lng := a.Latitude, a.Longitude
		w.Latitude, w.Longitude = &lat, &lng
	}
	return json.Marshal(w)
}

// IntelligentSearch runs the multi-shop search.
func (c *Client) IntelligentSearch(ctx context.Context, args SearchArgs) (*FunctionResult, error) {
	return c.Call(ctx, FnIntelligentSearch, args)
}

// SearchItemsInShop searches a single shop's catalog.
func (c *Client) SearchItemsInShop(ctx context.Context, shopID, query string, limit int) (*FunctionResult, error) {
	return c.Call(ctx, FnSearchItemsInShop, map[string]any{
		"shopId": shopID,
		"query":  query,
		"limit":  limit,
	})
}

// CartItem is one item to add.
type CartItem struct {
	ShopID   string `json:"shopId"`
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity,omitempty"`
}

// AddItemsToCart adds items, possibly from several shops.
func (c *Client) AddItemsToCart(ctx context.Context, items ...CartItem) (*FunctionResult, error) {
	return c.Call(ctx, FnAddItemsToCart, map[string]any{"items": items})
}

// RemoveItemFromCart drops a line from a shop's cart.
func (c *Client) RemoveItemFromCart(ctx context.Context, shopID, itemID string) (*FunctionResult, error) {
	return c.Call(ctx, FnRemoveItemFromCart, map[string]any{"shopId": shopID, "itemId": itemID})
}

// UpdateItemQuantity sets a line's quantity. Zero removes the line.
func (c *Client) UpdateItemQuantity(ctx context.Context, shopID, itemID string, qty int) (*FunctionResult, error) {
	return c.Call(ctx, FnUpdateItemQuantity, map[string]any{
		"shopId":   shopID,
		"itemId":   itemID,
		"quantity": qty,
	})
}

// GetCart returns the cart for one shop.
func (c *Client) GetCart(ctx context.Context, shopID string) (*FunctionResult, error) {
	return c.Call(ctx, FnGetCart, map[string]any{"shopId": shopID})
}

// GetAllCarts returns every non-empty cart of the user.
func (c *Client) GetAllCarts(ctx context.Context) (*FunctionResult, error) {
	return c.Call(ctx, FnGetAllCarts, nil)
}

// AddressInput is a delivery address sent by the client.
type AddressInput struct {
	Street    string  `json:"street,omitempty"`
	Landmark  string  `json:"landmark,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SetDeliveryAddress stores the address used by later orders.
func (c *Client) SetDeliveryAddress(ctx context.Context, addr AddressInput) (*FunctionResult, error) {
	return c.Call(ctx, FnSetDeliveryAddress, addr)
}

// PlaceOrder checks out one shop's cart. A nil address uses the saved one.
func (c *Client) PlaceOrder(ctx context.Context, shopID string, addr *AddressInput) (*FunctionResult, error) {
	args := map[string]any{"shopId": shopID}
	if addr != nil {
		args["address"] = addr
	}
	return c.Call(ctx, FnPlaceOrder, args)
}
