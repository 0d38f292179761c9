package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/shopassist/internal/domain/geo"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength       = 1024
	DefaultShopLimit     = 10
	MaxShopLimit         = 50
	DefaultItemsPerShop  = 5
	MaxItemsPerShop      = 20
	DefaultMinSimilarity = 0.5
)

// Request is a validated intelligent-search query.
type Request struct {
	query         string
	userID        string
	location      geo.Point
	shopIDs       []string
	shopLimit     int
	itemsPerShop  int
	minSimilarity float64
}

// New validates and normalizes search parameters.
// Defaults: shopLimit=10, itemsPerShop=5, minSimilarity=0.5.
// A zero location disables delivery quotes and distance filtering.
func New(
	query, userID string,
	location geo.Point,
	shopIDs []string,
	shopLimit, itemsPerShop int,
	minSimilarity float64,
) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if !location.IsZero() && !location.Valid() {
		return Request{}, fmt.Errorf("invalid coordinates %v,%v", location.Lat, location.Lng)
	}
	if shopLimit <= 0 {
		shopLimit = DefaultShopLimit
	}
	if shopLimit > MaxShopLimit {
		shopLimit = MaxShopLimit
	}
	if itemsPerShop <= 0 {
		itemsPerShop = DefaultItemsPerShop
	}
	if itemsPerShop > MaxItemsPerShop {
		itemsPerShop = MaxItemsPerShop
	}
	if minSimilarity == 0 {
		minSimilarity = DefaultMinSimilarity
	}
	if minSimilarity < 0 || minSimilarity > 1 {
		return Request{}, fmt.Errorf("minSimilarity must be between 0 and 1")
	}

	return Request{
		query:         query,
		userID:        userID,
		location:      location,
		shopIDs:       shopIDs,
		shopLimit:     shopLimit,
		itemsPerShop:  itemsPerShop,
		minSimilarity: minSimilarity,
	}, nil
}

// Query returns the search text.
func (r *Request) Query() string { return r.query }

// UserID returns the caller, used for preference boosting.
func (r *Request) UserID() string { return r.userID }

// Location returns the delivery point (zero when unknown).
func (r *Request) Location() geo.Point { return r.location }

// ShopIDs returns the explicit shop scope, if any.
func (r *Request) ShopIDs() []string { return r.shopIDs }

// ShopLimit returns the maximum shops to return.
func (r *Request) ShopLimit() int { return r.shopLimit }

// ItemsPerShop returns the maximum matching items kept per shop.
func (r *Request) ItemsPerShop() int { return r.itemsPerShop }

// MinSimilarity returns the caller similarity floor.
func (r *Request) MinSimilarity() float64 { return r.minSimilarity }
