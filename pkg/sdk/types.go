package shopassist

import "encoding/json"

// Function names accepted by Call.
const (
	FnIntelligentSearch  = "intelligentSearch"
	FnSearchItemsInShop  = "searchItemsInShop"
	FnAddItemsToCart     = "addItemsToCart"
	FnRemoveItemFromCart = "removeItemFromCart"
	FnUpdateItemQuantity = "updateItemQuantity"
	FnGetCart            = "getCart"
	FnGetAllCarts        = "getAllCarts"
	FnPlaceOrder         = "placeOrder"
	FnSetDeliveryAddress = "setDeliveryAddress"
)

// CartLine is one item in a cart.
type CartLine struct {
	ItemID     string `json:"itemId"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"priceCents"`
}

// Cart is a per-shop cart.
type Cart struct {
	UserID   string     `json:"userId"`
	ShopID   string     `json:"shopId"`
	ShopName string     `json:"shopName"`
	Lines    []CartLine `json:"lines"`
}

// Location is a WGS84 point.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Address is a delivery address.
type Address struct {
	ID       string   `json:"id,omitempty"`
	Street   string   `json:"street,omitempty"`
	Landmark string   `json:"landmark,omitempty"`
	Location Location `json:"location"`
}

// FunctionResult is the envelope every function call returns.
// Success=false is a business outcome, not a transport error.
type FunctionResult struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
	Cart    *Cart           `json:"cart,omitempty"`
	Carts   []*Cart         `json:"carts,omitempty"`
	Address *Address        `json:"address,omitempty"`

	Usage CallUsage `json:"-"`
}

// Decode unmarshals the function-specific payload into v.
func (r *FunctionResult) Decode(v any) error {
	if len(r.Result) == 0 {
		return nil
	}
	return json.Unmarshal(r.Result, v)
}

// ToolResult is one function call executed during a chat turn.
type ToolResult struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	Result    FunctionResult  `json:"result"`
}

// ChatReply is the assistant's answer to one user message.
type ChatReply struct {
	SessionID   string       `json:"sessionId"`
	Message     string       `json:"message"`
	ToolResults []ToolResult `json:"toolResults"`
	Rounds      int          `json:"rounds"`

	Usage CallUsage `json:"-"`
}
