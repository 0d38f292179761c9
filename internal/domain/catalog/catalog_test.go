package catalog

import (
	"testing"
	"time"

	"github.com/kailas-cloud/shopassist/internal/domain"
	"github.com/kailas-cloud/shopassist/internal/domain/geo"
)

func TestDeliveryLogic_Covers(t *testing.T) {
	shop := geo.Point{Lat: 24.86, Lng: 67.00}
	l := DeliveryLogic{RadiusKm: 5}

	if !l.Covers(shop.DistanceKm(geo.Point{Lat: 24.87, Lng: 67.01})) {
		t.Error("nearby point should be covered")
	}
	if l.Covers(shop.DistanceKm(geo.Point{Lat: 25.20, Lng: 67.00})) {
		t.Error("point ~38km away should not be covered")
	}

	l.RadiusKm = 0
	if !l.Covers(shop.DistanceKm(geo.Point{Lat: 31.52, Lng: 74.35})) {
		t.Error("zero radius should cover everywhere")
	}
}

func TestCategory_Matches(t *testing.T) {
	c := Category{Name: "Dairy Products"}
	tests := []struct {
		term string
		want bool
	}{
		{"dairy", true},
		{"DAIRY PRODUCTS", true},
		{"fresh dairy products aisle", true},
		{"bakery", false},
		{"  ", false},
	}
	for _, tc := range tests {
		if got := c.Matches(tc.term); got != tc.want {
			t.Errorf("Matches(%q) = %v, want %v", tc.term, got, tc.want)
		}
	}
}

func TestDeliveryLogic_Fee(t *testing.T) {
	l := DeliveryLogic{
		BaseFeeCents:       5000,
		FreeRadiusKm:       1,
		FreeThresholdCents: 200000,
		Tiers: []Tier{
			{UpToKm: 10, SurchargeCents: 5000},
			{UpToKm: 3, SurchargeCents: 1000},
		},
	}
	tests := []struct {
		name  string
		dist  float64
		order int64
		want  int64
	}{
		{"inside free radius", 0.5, 0, 0},
		{"threshold reached", 4, 250000, 0},
		{"threshold ignored at zero value", 4, 0, 10000},
		{"first tier", 2, 1000, 6000},
		{"second tier", 7, 1000, 10000},
		{"beyond last tier", 15, 1000, 10000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := l.Fee(tc.dist, tc.order); got != tc.want {
				t.Errorf("Fee(%v, %d) = %d, want %d", tc.dist, tc.order, got, tc.want)
			}
		})
	}
}

func TestDeliveryLogic_Fee_NoTiers(t *testing.T) {
	l := DeliveryLogic{BaseFeeCents: 7500}
	if got := l.Fee(3, 0); got != 7500 {
		t.Errorf("Fee = %d, want base fee", got)
	}
}

func weekSchedule() Schedule {
	return Schedule{
		Hours: map[string][]Window{
			"monday":   {{Open: "09:00", Close: "21:00"}},
			"tuesday":  {{Open: "09:00", Close: "21:00"}},
			"saturday": {{Open: "20:00", Close: "02:00"}},
		},
		Holidays: []string{"2026-03-23"},
	}
}

func TestSchedule_StatusAt(t *testing.T) {
	sc := weekSchedule()
	// 2026-03-16 is a Monday.
	tests := []struct {
		name    string
		at      time.Time
		open    bool
		reason  domain.ClosedReason
		opensAt string
	}{
		{"inside hours", time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC), true, "", ""},
		{"before opening", time.Date(2026, 3, 16, 7, 30, 0, 0, time.UTC), false, domain.ClosedOutsideHours, "09:00"},
		{"after closing", time.Date(2026, 3, 16, 22, 0, 0, 0, time.UTC), false, domain.ClosedOutsideHours, "Tuesday 09:00"},
		{"holiday", time.Date(2026, 3, 23, 10, 0, 0, 0, time.UTC), false, domain.ClosedHoliday, ""},
		{"overnight before midnight", time.Date(2026, 3, 21, 23, 0, 0, 0, time.UTC), true, "", ""},
		{"overnight after midnight", time.Date(2026, 3, 22, 1, 0, 0, 0, time.UTC), true, "", ""},
		{"overnight over", time.Date(2026, 3, 22, 3, 0, 0, 0, time.UTC), false, domain.ClosedOutsideHours, "Monday 09:00"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := sc.StatusAt(tc.at)
			if st.Open != tc.open || st.Reason != tc.reason || st.OpensAt != tc.opensAt {
				t.Errorf("got %+v, want open=%v reason=%q opensAt=%q", st, tc.open, tc.reason, tc.opensAt)
			}
		})
	}
}

func TestSchedule_EmptyIsAlwaysOpen(t *testing.T) {
	if !(Schedule{}).StatusAt(time.Now()).Open {
		t.Error("empty schedule should be open")
	}
}

func TestShop_StatusAt_ManualClose(t *testing.T) {
	s := Shop{AcceptingOrders: false, Schedule: Schedule{}}
	st := s.StatusAt(time.Now())
	if st.Open || st.Reason != domain.ClosedManually {
		t.Errorf("got %+v, want manually closed", st)
	}
}
