// Package catalog describes shops, their items and the rules for delivering from them.
package catalog

import (
	"strings"

	"github.com/kailas-cloud/shopassist/internal/domain/geo"
)

// Shop is a storefront that can receive orders.
type Shop struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Address           string    `json:"address,omitempty"`
	Location          geo.Point `json:"location"`
	MinimumOrderCents int64     `json:"minimumOrderCents"`
	AcceptingOrders   bool      `json:"acceptingOrders"`
	Schedule          Schedule  `json:"schedule"`
}

// Item is a purchasable product of a shop.
type Item struct {
	ID          string `json:"id"`
	ShopID      string `json:"shopId"`
	CategoryID  string `json:"categoryId,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	PriceCents  int64  `json:"priceCents"`
	IsActive    bool   `json:"isActive"`
}

// Category groups items of a shop.
type Category struct {
	ID     string `json:"id"`
	ShopID string `json:"shopId"`
	Name   string `json:"name"`
}

// Matches reports a case-insensitive substring match in either direction.
func (c Category) Matches(term string) bool {
	a := strings.ToLower(strings.TrimSpace(c.Name))
	b := strings.ToLower(strings.TrimSpace(term))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
