package router

import (
	"encoding/json"

	"github.com/kailas-cloud/shopassist/internal/domain/chat"
)

// Function names understood by the router.
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

const addressSchema = `{
	"type": "object",
	"properties": {
		"street": {"type": "string"},
		"landmark": {"type": "string", "description": "Nearby landmark, at least 3 characters"},
		"latitude": {"type": "number"},
		"longitude": {"type": "number"}
	},
	"required": ["latitude", "longitude"]
}`

var toolDefs = []chat.Tool{
	{
		Name: FnIntelligentSearch,
		Description: "Search nearby shops for one or more products described in natural language. " +
			"Returns shops ranked by match quality and delivery fee, each with its matching items.",
		Parameters: json.RawMessage(`{
	"type": "object",
	"properties": {
		"query": {"type": "string", "description": "The shopper's request, e.g. \"2 litres of milk and brown bread\""},
		"latitude": {"type": "number"},
		"longitude": {"type": "number"},
		"shopIds": {"type": "array", "items": {"type": "string"}},
		"shopLimit": {"type": "integer", "minimum": 1, "maximum": 50},
		"itemsPerShop": {"type": "integer", "minimum": 1, "maximum": 20},
		"minSimilarity": {"type": "number", "minimum": 0, "maximum": 1}
	},
	"required": ["query"]
}`),
	},
	{
		Name:        FnSearchItemsInShop,
		Description: "Search the items of a single shop.",
		Parameters: json.RawMessage(`{
	"type": "object",
	"properties": {
		"shopId": {"type": "string"},
		"query": {"type": "string"},
		"limit": {"type": "integer", "minimum": 1, "maximum": 50},
		"minSimilarity": {"type": "number", "minimum": 0, "maximum": 1}
	},
	"required": ["shopId", "query"]
}`),
	},
	{
		Name:        FnAddItemsToCart,
		Description: "Add one or more items to the shopper's carts. Items from different shops go to separate carts.",
		Parameters: json.RawMessage(`{
	"type": "object",
	"properties": {
		"items": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"shopId": {"type": "string"},
					"itemId": {"type": "string"},
					"quantity": {"type": "integer", "minimum": 1}
				},
				"required": ["shopId", "itemId"]
			}
		}
	},
	"required": ["items"]
}`),
	},
	{
		Name:        FnRemoveItemFromCart,
		Description: "Remove an item from the cart of a shop.",
		Parameters: json.RawMessage(`{
	"type": "object",
	"properties": {"shopId": {"type": "string"}, "itemId": {"type": "string"}},
	"required": ["shopId", "itemId"]
}`),
	},
	{
		Name:        FnUpdateItemQuantity,
		Description: "Change the quantity of an item in a cart. A quantity of 0 removes it.",
		Parameters: json.RawMessage(`{
	"type": "object",
	"properties": {
		"shopId": {"type": "string"},
		"itemId": {"type": "string"},
		"quantity": {"type": "integer", "minimum": 0}
	},
	"required": ["shopId", "itemId", "quantity"]
}`),
	},
	{
		Name:        FnGetCart,
		Description: "Show the cart of one shop.",
		Parameters: json.RawMessage(`{
	"type": "object",
	"properties": {"shopId": {"type": "string"}},
	"required": ["shopId"]
}`),
	},
	{
		Name:        FnGetAllCarts,
		Description: "Show every cart of the shopper.",
		Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
	},
	{
		Name: FnPlaceOrder,
		Description: "Place the order for the cart of one shop. Uses the saved delivery address unless one is given. " +
			"On failure the cart and address are returned unchanged so the shopper can fix the problem.",
		Parameters: json.RawMessage(`{
	"type": "object",
	"properties": {"shopId": {"type": "string"}, "address": ` + addressSchema + `},
	"required": ["shopId"]
}`),
	},
	{
		Name:        FnSetDeliveryAddress,
		Description: "Save where orders should be delivered.",
		Parameters:  json.RawMessage(addressSchema),
	},
}

// Tools returns the function definitions offered to the model.
func Tools() []chat.Tool {
	return append([]chat.Tool(nil), toolDefs...)
}

// Names lists every function the router executes.
func Names() []string {
	names := make([]string, len(toolDefs))
	for i, t := range toolDefs {
		names[i] = t.Name
	}
	return names
}
