package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/shopassist/internal/domain"
	"github.com/kailas-cloud/shopassist/internal/domain/geo"
	domorder "github.com/kailas-cloud/shopassist/internal/domain/order"
)

var validate = newValidator()

// newValidator reports field names as they appear in the JSON arguments.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type intelligentSearchArgs struct {
	Query         string   `json:"query" validate:"required,max=1024"`
	Latitude      *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude     *float64 `json:"longitude" validate:"omitempty,longitude"`
	ShopIDs       []string `json:"shopIds" validate:"omitempty,max=50,dive,required"`
	ShopLimit     int      `json:"shopLimit" validate:"omitempty,min=1,max=50"`
	ItemsPerShop  int      `json:"itemsPerShop" validate:"omitempty,min=1,max=20"`
	MinSimilarity float64  `json:"minSimilarity" validate:"omitempty,min=0,max=1"`
}

func (a intelligentSearchArgs) location() (geo.Point, error) {
	if (a.Latitude == nil) != (a.Longitude == nil) {
		return geo.Point{}, fmt.Errorf("latitude and longitude must be given together: %w", domain.ErrInvalidArguments)
	}
	if a.Latitude == nil {
		return geo.Point{}, nil
	}
	return geo.Point{Lat: *a.Latitude, Lng: *a.Longitude}, nil
}

type searchItemsInShopArgs struct {
	ShopID        string  `json:"shopId" validate:"required"`
	Query         string  `json:"query" validate:"required,max=1024"`
	Limit         int     `json:"limit" validate:"omitempty,min=1,max=50"`
	MinSimilarity float64 `json:"minSimilarity" validate:"omitempty,min=0,max=1"`
}

type addItemArg struct {
	ShopID   string `json:"shopId" validate:"required"`
	ItemID   string `json:"itemId" validate:"required"`
	Quantity int    `json:"quantity" validate:"omitempty,min=1,max=99"`
}

type addItemsToCartArgs struct {
	Items []addItemArg `json:"items" validate:"required,min=1,max=50,dive"`
}

type cartLineArgs struct {
	ShopID string `json:"shopId" validate:"required"`
	ItemID string `json:"itemId" validate:"required"`
}

type updateItemQuantityArgs struct {
	ShopID   string `json:"shopId" validate:"required"`
	ItemID   string `json:"itemId" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=0,max=99"`
}

type getCartArgs struct {
	ShopID string `json:"shopId" validate:"required"`
}

type addressArg struct {
	Street    string  `json:"street" validate:"max=500"`
	Landmark  string  `json:"landmark" validate:"max=200"`
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

func (a *addressArg) toDomain() *domorder.Address {
	if a == nil {
		return nil
	}
	return &domorder.Address{
		Street:   strings.TrimSpace(a.Street),
		Landmark: strings.TrimSpace(a.Landmark),
		Location: geo.Point{Lat: a.Latitude, Lng: a.Longitude},
	}
}

type placeOrderArgs struct {
	ShopID  string      `json:"shopId" validate:"required"`
	Address *addressArg `json:"address" validate:"omitempty"`
}

type setDeliveryAddressArgs struct {
	Street    string  `json:"street" validate:"max=500"`
	Landmark  string  `json:"landmark" validate:"max=200"`
	Latitude  float64 `json:"latitude" validate:"required,latitude"`
	Longitude float64 `json:"longitude" validate:"required,longitude"`
}

// decode unmarshals raw into dst and runs struct validation.
// Empty input is treated as an empty object.
func decode(raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("malformed arguments: %v: %w", err, domain.ErrInvalidArguments)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%s: %w", describe(err), domain.ErrInvalidArguments)
	}
	return nil
}

func describe(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s fails %s=%s", field, fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s fails %s", field, fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
