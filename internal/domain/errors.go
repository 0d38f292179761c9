package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArguments signals malformed function-call arguments.
	ErrInvalidArguments = errors.New("invalid arguments")
	// ErrUnknownFunction signals a tool call the router does not know.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrEmbeddingFailure signals that a query could not be vectorized.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrVectorSearchFailure signals that the similarity RPC failed after retries.
	ErrVectorSearchFailure = errors.New("vector search failure")
	// ErrVectorDimMismatch signals an embedding with the wrong dimensionality.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrLLMUnavailable signals that the chat model could not be reached or returned nothing.
	ErrLLMUnavailable = errors.New("llm unavailable")
	// ErrIntentParse signals that the model reply held no usable intent JSON.
	ErrIntentParse = errors.New("intent parse error")

	// ErrItemNotFound signals a catalog item that does not exist.
	ErrItemNotFound = errors.New("item not found")
	// ErrOutOfStock signals an inactive item.
	ErrOutOfStock = errors.New("out of stock")
	// ErrCartEmpty signals an order attempt on an empty cart.
	ErrCartEmpty = errors.New("cart is empty")
	// ErrAddressInvalid signals a missing delivery address or coordinates.
	ErrAddressInvalid = errors.New("delivery address invalid")
	// ErrLandmarkMissing signals an address without a usable landmark.
	ErrLandmarkMissing = errors.New("landmark missing")
	// ErrDeliveryZone signals coordinates outside the shop delivery zone.
	ErrDeliveryZone = errors.New("outside delivery zone")
	// ErrShopClosed signals a shop that is not accepting orders right now.
	ErrShopClosed = errors.New("shop closed")
	// ErrMinimumOrderNotMet signals a subtotal below the shop minimum.
	ErrMinimumOrderNotMet = errors.New("minimum order not met")
	// ErrOrderPlacement signals a failure while persisting the order.
	ErrOrderPlacement = errors.New("order placement failed")
)

// ClosedReason explains why a shop is closed.
type ClosedReason string

// Shop closed reasons.
const (
	ClosedHoliday       ClosedReason = "holiday"
	ClosedOutsideHours  ClosedReason = "outside_hours"
	ClosedManually      ClosedReason = "manually_closed"
	ClosedReasonUnknown ClosedReason = "unknown"
)

// ShopClosedError wraps ErrShopClosed with the reason and the next opening hint.
type ShopClosedError struct {
	Reason   ClosedReason
	ShopName string
	OpensAt  string
}

func (e *ShopClosedError) Error() string {
	switch e.Reason {
	case ClosedHoliday:
		return fmt.Sprintf("%s is closed today for a holiday", e.ShopName)
	case ClosedOutsideHours:
		if e.OpensAt != "" {
			return fmt.Sprintf("%s is closed right now, it opens at %s", e.ShopName, e.OpensAt)
		}
		return fmt.Sprintf("%s is closed right now", e.ShopName)
	case ClosedManually:
		return fmt.Sprintf("%s is not taking orders at the moment", e.ShopName)
	default:
		return fmt.Sprintf("%s: %s", ErrShopClosed.Error(), e.ShopName)
	}
}

func (e *ShopClosedError) Unwrap() error { return ErrShopClosed }

// UnavailableItemsError wraps ErrOutOfStock with the names of the affected items.
type UnavailableItemsError struct {
	Items []string
}

func (e *UnavailableItemsError) Error() string {
	return fmt.Sprintf("some items are no longer available: %s", strings.Join(e.Items, ", "))
}

func (e *UnavailableItemsError) Unwrap() error { return ErrOutOfStock }

// MinimumOrderError wraps ErrMinimumOrderNotMet with the amounts involved.
type MinimumOrderError struct {
	MinimumCents  int64
	SubtotalCents int64
}

func (e *MinimumOrderError) Error() string {
	return fmt.Sprintf("minimum order is %s, cart subtotal is %s",
		FormatCents(e.MinimumCents), FormatCents(e.SubtotalCents))
}

func (e *MinimumOrderError) Unwrap() error { return ErrMinimumOrderNotMet }

// FormatCents renders a minor-unit amount as a decimal string.
func FormatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}
