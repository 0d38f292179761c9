// Package fcall is the uniform result envelope of a function call.
package fcall

import (
	"errors"

	"github.com/kailas-cloud/shopassist/internal/domain"
	"github.com/kailas-cloud/shopassist/internal/domain/cart"
	"github.com/kailas-cloud/shopassist/internal/domain/order"
)

// Code is a stable, machine-readable failure code.
type Code string

// Failure codes.
const (
	CodeInvalidArguments   Code = "invalid_arguments"
	CodeUnknownFunction    Code = "unknown_function"
	CodeNotFound           Code = "not_found"
	CodeOutOfStock         Code = "out_of_stock"
	CodeCartEmpty          Code = "cart_empty"
	CodeAddressInvalid     Code = "address_invalid"
	CodeLandmarkMissing    Code = "landmark_missing"
	CodeOutsideZone        Code = "outside_delivery_zone"
	CodeShopClosed         Code = "shop_closed"
	CodeMinimumOrderNotMet Code = "minimum_order_not_met"
	CodeOrderFailed        Code = "order_failed"
	CodeInternal           Code = "internal_error"
)

// Result is returned for every function call, successful or not.
type Result struct {
	Success bool           `json:"success"`
	Result  any            `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
	Code    Code           `json:"code,omitempty"`
	Cart    *cart.Cart     `json:"cart,omitempty"`
	Carts   []*cart.Cart   `json:"carts,omitempty"`
	Address *order.Address `json:"address,omitempty"`
}

// OK builds a successful result.
func OK(payload any) Result {
	return Result{Success: true, Result: payload}
}

// Fail builds a failed result with a code and a user-facing message.
func Fail(code Code, msg string) Result {
	return Result{Success: false, Error: msg, Code: code}
}

// FromError maps a domain error to a failed result, keeping its message.
// Unrecognized errors become a generic internal failure with no detail leaked.
func FromError(err error) Result {
	code := CodeFor(err)
	if code == CodeInternal {
		return Fail(CodeInternal, "something went wrong, please try again")
	}
	return Fail(code, err.Error())
}

// WithState attaches the cart and address the caller can retry with.
func (r Result) WithState(c *cart.Cart, a *order.Address) Result {
	r.Cart = c.Clone()
	r.Address = a.Clone()
	return r
}

type errorCode struct {
	target error
	code   Code
}

// Checked in order; the first match wins.
var errorCodes = []errorCode{
	{domain.ErrInvalidArguments, CodeInvalidArguments},
	{domain.ErrUnknownFunction, CodeUnknownFunction},
	{domain.ErrItemNotFound, CodeNotFound},
	{domain.ErrNotFound, CodeNotFound},
	{domain.ErrOutOfStock, CodeOutOfStock},
	{domain.ErrCartEmpty, CodeCartEmpty},
	{domain.ErrLandmarkMissing, CodeLandmarkMissing},
	{domain.ErrAddressInvalid, CodeAddressInvalid},
	{domain.ErrDeliveryZone, CodeOutsideZone},
	{domain.ErrShopClosed, CodeShopClosed},
	{domain.ErrMinimumOrderNotMet, CodeMinimumOrderNotMet},
	{domain.ErrOrderPlacement, CodeOrderFailed},
}

// CodeFor returns the failure code for err.
func CodeFor(err error) Code {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.target) {
			return ec.code
		}
	}
	return CodeInternal
}
