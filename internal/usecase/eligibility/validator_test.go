package eligibility

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/shopassist/internal/domain"
	domcart "github.com/kailas-cloud/shopassist/internal/domain/cart"
	domcat "github.com/kailas-cloud/shopassist/internal/domain/catalog"
)

type fakeItems struct {
	items map[string]domcat.Item
	err   error
}

func (f *fakeItems) GetItems(_ context.Context, _ []string) (map[string]domcat.Item, error) {
	return f.items, f.err
}

func testCart() *domcart.Cart {
	c := domcart.New("u1", "s1", "Corner Store")
	_ = c.Add("i1", "Milk", 150, 1)
	_ = c.Add("i2", "Bread", 300, 1)
	_ = c.Add("i3", "Eggs", 500, 1)
	return c
}

func TestCheckItem(t *testing.T) {
	if err := CheckItem(domcat.Item{Name: "Milk", IsActive: true}); err != nil {
		t.Errorf("active item: unexpected error %v", err)
	}
	if err := CheckItem(domcat.Item{Name: "Milk"}); !errors.Is(err, domain.ErrOutOfStock) {
		t.Errorf("inactive item: expected ErrOutOfStock, got %v", err)
	}
}

func TestCheckStock_ListsUnavailableItems(t *testing.T) {
	v := New(&fakeItems{items: map[string]domcat.Item{
		"i1": {ID: "i1", IsActive: true},
		"i2": {ID: "i2", IsActive: false},
	}})

	err := v.CheckStock(context.Background(), testCart())

	var ue *domain.UnavailableItemsError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnavailableItemsError, got %v", err)
	}
	if len(ue.Items) != 2 || ue.Items[0] != "Bread" || ue.Items[1] != "Eggs" {
		t.Errorf("unexpected items %v", ue.Items)
	}
	if !errors.Is(err, domain.ErrOutOfStock) {
		t.Error("expected to unwrap to ErrOutOfStock")
	}
}

func TestCheckStock_AllAvailable(t *testing.T) {
	v := New(&fakeItems{items: map[string]domcat.Item{
		"i1": {IsActive: true}, "i2": {IsActive: true}, "i3": {IsActive: true},
	}})

	if err := v.CheckStock(context.Background(), testCart()); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

func TestCheckStock_ReaderError(t *testing.T) {
	v := New(&fakeItems{err: errors.New("db down")})

	err := v.CheckStock(context.Background(), testCart())
	if err == nil || errors.Is(err, domain.ErrOutOfStock) {
		t.Errorf("expected a plain read error, got %v", err)
	}
}

func TestCheckOpen(t *testing.T) {
	// Monday 2026-03-16 08:00 UTC
	now := time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC)
	v := New(&fakeItems{})
	v.now = func() time.Time { return now }

	tests := []struct {
		name   string
		shop   domcat.Shop
		reason domain.ClosedReason
	}{
		{"always open", domcat.Shop{AcceptingOrders: true}, ""},
		{"manually closed", domcat.Shop{}, domain.ClosedManually},
		{"holiday", domcat.Shop{AcceptingOrders: true, Schedule: domcat.Schedule{
			Holidays: []string{"2026-03-16"},
			Hours:    map[string][]domcat.Window{"monday": {{Open: "00:00", Close: "23:59"}}},
		}}, domain.ClosedHoliday},
		{"outside hours", domcat.Shop{AcceptingOrders: true, Schedule: domcat.Schedule{
			Hours: map[string][]domcat.Window{"monday": {{Open: "09:00", Close: "21:00"}}},
		}}, domain.ClosedOutsideHours},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.shop.Name = "Corner Store"
			err := v.CheckOpen(&tc.shop)
			if tc.reason == "" {
				if err != nil {
					t.Fatalf("expected open, got %v", err)
				}
				return
			}
			var ce *domain.ShopClosedError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ShopClosedError, got %v", err)
			}
			if ce.Reason != tc.reason {
				t.Errorf("reason = %s, want %s", ce.Reason, tc.reason)
			}
			if !errors.Is(err, domain.ErrShopClosed) {
				t.Error("expected to unwrap to ErrShopClosed")
			}
		})
	}
}

func TestCheckOpen_OutsideHoursNamesOpening(t *testing.T) {
	v := New(&fakeItems{})
	v.now = func() time.Time { return time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC) }
	shop := domcat.Shop{Name: "Corner Store", AcceptingOrders: true, Schedule: domcat.Schedule{
		Hours: map[string][]domcat.Window{"monday": {{Open: "09:00", Close: "21:00"}}},
	}}

	err := v.CheckOpen(&shop)
	if err == nil || err.Error() != "Corner Store is closed right now, it opens at 09:00" {
		t.Errorf("unexpected message %v", err)
	}
}

func TestCheckZone(t *testing.T) {
	shop := domcat.Shop{Name: "Corner Store"}

	if err := CheckZone(&shop, domcat.Quote{DistanceKm: 0.4, RadiusKm: 2, InZone: true}); err != nil {
		t.Errorf("inside zone: unexpected error %v", err)
	}

	err := CheckZone(&shop, domcat.Quote{DistanceKm: 5.4, RadiusKm: 2})
	if !errors.Is(err, domain.ErrDeliveryZone) {
		t.Fatalf("outside zone: expected ErrDeliveryZone, got %v", err)
	}
	if want := "Corner Store delivers within 2.0 km, the address is 5.4 km away"; !strings.HasPrefix(err.Error(), want) {
		t.Errorf("message: got %q", err.Error())
	}
}

func TestCheckMinimum(t *testing.T) {
	shop := domcat.Shop{MinimumOrderCents: 10000}

	if err := CheckMinimum(&shop, 10000); err != nil {
		t.Errorf("at minimum: unexpected error %v", err)
	}
	err := CheckMinimum(&shop, 9999)
	var me *domain.MinimumOrderError
	if !errors.As(err, &me) || me.MinimumCents != 10000 || me.SubtotalCents != 9999 {
		t.Fatalf("expected MinimumOrderError, got %v", err)
	}
	if err.Error() != "minimum order is 100.00, cart subtotal is 99.99" {
		t.Errorf("unexpected message %q", err.Error())
	}

	shop.MinimumOrderCents = 0
	if err := CheckMinimum(&shop, 1); err != nil {
		t.Errorf("no minimum: unexpected error %v", err)
	}
}
