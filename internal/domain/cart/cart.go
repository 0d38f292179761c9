// Package cart models a per-user, per-shop shopping cart.
package cart

import "fmt"

// Line is one item in a cart.
type Line struct {
	ItemID     string `json:"itemId"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"priceCents"`
}

// Cart belongs to one user and one shop. Totals are always derived from lines.
type Cart struct {
	UserID   string `json:"userId"`
	ShopID   string `json:"shopId"`
	ShopName string `json:"shopName"`
	Lines    []Line `json:"lines"`
}

// New creates an empty cart.
func New(userID, shopID, shopName string) *Cart {
	return &Cart{UserID: userID, ShopID: shopID, ShopName: shopName, Lines: []Line{}}
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool { return c == nil || len(c.Lines) == 0 }

// TotalItems is the sum of line quantities.
func (c *Cart) TotalItems() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// TotalPriceCents is the sum of quantity times unit price.
func (c *Cart) TotalPriceCents() int64 {
	if c == nil {
		return 0
	}
	var total int64
	for _, l := range c.Lines {
		total += int64(l.Quantity) * l.PriceCents
	}
	return total
}

// Add increments an existing line or appends a new one.
// The stored name and price are refreshed from the latest catalog data.
func (c *Cart) Add(itemID, name string, priceCents int64, qty int) error {
	if qty < 1 {
		return fmt.Errorf("add %s: quantity must be >= 1, got %d", itemID, qty)
	}
	for i := range c.Lines {
		if c.Lines[i].ItemID == itemID {
			c.Lines[i].Quantity += qty
			c.Lines[i].Name = name
			c.Lines[i].PriceCents = priceCents
			return nil
		}
	}
	c.Lines = append(c.Lines, Line{ItemID: itemID, Name: name, Quantity: qty, PriceCents: priceCents})
	return nil
}

// Remove drops a line. It reports false when the item was not in the cart.
func (c *Cart) Remove(itemID string) bool {
	for i := range c.Lines {
		if c.Lines[i].ItemID == itemID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return true
		}
	}
	return false
}

// SetQuantity changes the quantity of a line; a quantity below 1 removes it.
// It reports false when the item was not in the cart.
func (c *Cart) SetQuantity(itemID string, qty int) bool {
	if qty < 1 {
		return c.Remove(itemID)
	}
	for i := range c.Lines {
		if c.Lines[i].ItemID == itemID {
			c.Lines[i].Quantity = qty
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Lines = append([]Line(nil), c.Lines...)
	return &cp
}
