package catalog

import "sort"

// Tier adds a surcharge for deliveries up to a distance.
type Tier struct {
	UpToKm         float64 `json:"upToKm"`
	SurchargeCents int64   `json:"surchargeCents"`
}

// DeliveryLogic is the fee configuration of one shop.
type DeliveryLogic struct {
	ShopID             string  `json:"shopId"`
	RadiusKm           float64 `json:"radiusKm"`
	BaseFeeCents       int64   `json:"baseFeeCents"`
	FreeRadiusKm       float64 `json:"freeRadiusKm"`
	FreeThresholdCents int64   `json:"freeThresholdCents"`
	Tiers              []Tier  `json:"tiers"`
}

// Covers reports whether a distance lies inside the delivery zone.
// A non-positive radius means the shop delivers everywhere.
func (l DeliveryLogic) Covers(distanceKm float64) bool {
	return l.RadiusKm <= 0 || distanceKm <= l.RadiusKm
}

// Fee returns the delivery fee in cents for a distance and order value.
// Delivery is free inside the free radius, or once the order value reaches the
// free threshold. An order value of 0 never triggers the threshold.
// Otherwise the fee is the base fee plus the surcharge of the first tier covering
// the distance; beyond the last tier its surcharge applies.
func (l DeliveryLogic) Fee(distanceKm float64, orderValueCents int64) int64 {
	if l.FreeRadiusKm > 0 && distanceKm <= l.FreeRadiusKm {
		return 0
	}
	if l.FreeThresholdCents > 0 && orderValueCents > 0 && orderValueCents >= l.FreeThresholdCents {
		return 0
	}
	fee := l.BaseFeeCents
	if len(l.Tiers) == 0 {
		return fee
	}
	tiers := append([]Tier(nil), l.Tiers...)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].UpToKm < tiers[j].UpToKm })
	for _, t := range tiers {
		if distanceKm <= t.UpToKm {
			return fee + t.SurchargeCents
		}
	}
	return fee + tiers[len(tiers)-1].SurchargeCents
}

// Quote is a computed delivery fee for one shop.
type Quote struct {
	ShopID     string  `json:"shopId"`
	DistanceKm float64 `json:"distanceKm"`
	FeeCents   int64   `json:"feeCents"`
	Free       bool    `json:"free"`
	InZone     bool    `json:"inZone"`
	RadiusKm   float64 `json:"radiusKm,omitempty"`
}
