// Package order holds delivery addresses and placed orders.
package order

import (
	"strings"
	"time"

	"github.com/kailas-cloud/shopassist/internal/domain/cart"
	"github.com/kailas-cloud/shopassist/internal/domain/geo"
)

// MinLandmarkLength is the shortest landmark a rider can use to find the door.
const MinLandmarkLength = 3

// Address is where an order is delivered.
type Address struct {
	ID       string    `json:"id,omitempty"`
	Street   string    `json:"street,omitempty"`
	Landmark string    `json:"landmark,omitempty"`
	Location geo.Point `json:"location"`
}

// HasCoordinates reports whether the address carries a usable location.
func (a *Address) HasCoordinates() bool {
	return a != nil && !a.Location.IsZero() && a.Location.Valid()
}

// HasLandmark reports whether the landmark is long enough to be useful.
func (a *Address) HasLandmark() bool {
	return a != nil && len([]rune(strings.TrimSpace(a.Landmark))) >= MinLandmarkLength
}

// Clone returns a copy, nil-safe.
func (a *Address) Clone() *Address {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}

// Status is the lifecycle state of an order.
type Status string

// Order statuses.
const (
	StatusPlaced Status = "placed"
)

// Order is an immutable placed order.
type Order struct {
	id               string
	userID           string
	shopID           string
	lines            []cart.Line
	subtotalCents    int64
	deliveryFeeCents int64
	addressID        string
	status           Status
	placedAt         time.Time
}

// New creates an order from a cart snapshot.
func New(id string, c *cart.Cart, deliveryFeeCents int64, addressID string, placedAt time.Time) Order {
	return Order{
		id:               id,
		userID:           c.UserID,
		shopID:           c.ShopID,
		lines:            append([]cart.Line(nil), c.Lines...),
		subtotalCents:    c.TotalPriceCents(),
		deliveryFeeCents: deliveryFeeCents,
		addressID:        addressID,
		status:           StatusPlaced,
		placedAt:         placedAt,
	}
}

// ID returns the order identifier.
func (o *Order) ID() string { return o.id }

// UserID returns the buyer.
func (o *Order) UserID() string { return o.userID }

// ShopID returns the seller.
func (o *Order) ShopID() string { return o.shopID }

// Lines returns the ordered items.
func (o *Order) Lines() []cart.Line { return o.lines }

// SubtotalCents returns the item total.
func (o *Order) SubtotalCents() int64 { return o.subtotalCents }

// DeliveryFeeCents returns the delivery fee.
func (o *Order) DeliveryFeeCents() int64 { return o.deliveryFeeCents }

// TotalCents returns subtotal plus delivery.
func (o *Order) TotalCents() int64 { return o.subtotalCents + o.deliveryFeeCents }

// AddressID returns the delivery address record.
func (o *Order) AddressID() string { return o.addressID }

// Status returns the lifecycle state.
func (o *Order) Status() Status { return o.status }

// PlacedAt returns the placement time.
func (o *Order) PlacedAt() time.Time { return o.placedAt }
