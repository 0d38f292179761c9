package order

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/shopassist/internal/domain"
	domcart "github.com/kailas-cloud/shopassist/internal/domain/cart"
	domcat "github.com/kailas-cloud/shopassist/internal/domain/catalog"
	"github.com/kailas-cloud/shopassist/internal/domain/geo"
	domorder "github.com/kailas-cloud/shopassist/internal/domain/order"
	"github.com/kailas-cloud/shopassist/internal/metrics"
)

// --- Fakes ---

type fakeCarts struct {
	cart    *domcart.Cart
	deleted bool
}

func (f *fakeCarts) Get(_ context.Context, _, _ string) (*domcart.Cart, error) {
	if f.cart == nil {
		return nil, fmt.Errorf("cart: %w", domain.ErrNotFound)
	}
	return f.cart, nil
}

func (f *fakeCarts) Delete(_ context.Context, _, _ string) error {
	f.deleted = true
	return nil
}

type fakeShops struct{ shop domcat.Shop }

func (f *fakeShops) GetShop(_ context.Context, _ string) (domcat.Shop, error) { return f.shop, nil }

type fakeRepo struct {
	addresses []domorder.Address
	orders    []domorder.Order
	orderErr  error
}

func (f *fakeRepo) CreateDeliveryAddress(_ context.Context, _ string, a domorder.Address) (string, error) {
	f.addresses = append(f.addresses, a)
	return "addr-1", nil
}

func (f *fakeRepo) CreateOrder(_ context.Context, o *domorder.Order) error {
	if f.orderErr != nil {
		return f.orderErr
	}
	f.orders = append(f.orders, *o)
	return nil
}

type fakeBook struct{ addr *domorder.Address }

func (f *fakeBook) Address(_ context.Context, _ string) (*domorder.Address, error) { return f.addr, nil }

type fakeValidator struct {
	stockErr error
	openErr  error
	calls    []string
}

func (f *fakeValidator) CheckStock(_ context.Context, _ *domcart.Cart) error {
	f.calls = append(f.calls, "stock")
	return f.stockErr
}

func (f *fakeValidator) CheckOpen(_ *domcat.Shop) error {
	f.calls = append(f.calls, "open")
	return f.openErr
}

type fakeFees struct {
	got int64
	err error
}

func (f *fakeFees) Quote(_ context.Context, user geo.Point, s domcat.Shop, v int64) (domcat.Quote, error) {
	f.got = v
	if f.err != nil {
		return domcat.Quote{}, f.err
	}
	l := domcat.DeliveryLogic{ShopID: s.ID, RadiusKm: 3, BaseFeeCents: 2500}
	dist := user.DistanceKm(s.Location)
	return domcat.Quote{ShopID: s.ID, DistanceKm: dist, FeeCents: l.Fee(dist, v), InZone: l.Covers(dist), RadiusKm: l.RadiusKm}, nil
}

type fakePublisher struct{ published []string }

func (f *fakePublisher) PublishOrderPlaced(_ context.Context, o *domorder.Order) error {
	f.published = append(f.published, o.ID())
	return nil
}

type fixture struct {
	carts *fakeCarts
	repo  *fakeRepo
	book  *fakeBook
	check *fakeValidator
	fees  *fakeFees
	pub   *fakePublisher
	svc   *Service
}

var shopPoint = geo.Point{Lat: 12.9716, Lng: 77.5946}

func newFixture() *fixture {
	c := domcart.New("u1", "s1", "Corner Store")
	_ = c.Add("milk", "Milk", 4000, 2)
	_ = c.Add("bread", "Bread", 3000, 1)

	f := &fixture{
		carts: &fakeCarts{cart: c},
		repo:  &fakeRepo{},
		book:  &fakeBook{addr: &domorder.Address{Street: "1 MG Road", Landmark: "Opp. temple", Location: geo.Point{Lat: 12.975, Lng: 77.5946}}},
		check: &fakeValidator{},
		fees:  &fakeFees{},
		pub:   &fakePublisher{},
	}
	shops := &fakeShops{shop: domcat.Shop{
		ID: "s1", Name: "Corner Store", Location: shopPoint,
		MinimumOrderCents: 5000, AcceptingOrders: true,
	}}
	f.svc = New(f.carts, shops, f.repo, f.book, f.check, f.fees, f.pub)
	f.svc.now = func() time.Time { return time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC) }
	f.svc.newID = func() string { return "order-1" }
	return f
}

// --- Tests ---

func TestPlace_Success(t *testing.T) {
	f := newFixture()
	before := testutil.ToFloat64(metrics.OrdersPlacedTotal)

	r, state, err := f.svc.Place(context.Background(), "u1", "s1", nil)

	require.NoError(t, err)
	assert.Nil(t, state)
	assert.Equal(t, "order-1", r.OrderID)
	assert.Equal(t, int64(11000), r.SubtotalCents)
	assert.Equal(t, int64(2500), r.DeliveryFeeCents)
	assert.Equal(t, int64(13500), r.TotalCents)
	assert.Equal(t, int64(11000), f.fees.got, "fee is quoted on the real subtotal")

	require.Len(t, f.repo.orders, 1)
	assert.Equal(t, "addr-1", f.repo.orders[0].AddressID())
	assert.True(t, f.carts.deleted)
	assert.Equal(t, []string{"order-1"}, f.pub.published)
	assert.Equal(t, []string{"stock", "open"}, f.check.calls)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.OrdersPlacedTotal))
}

func TestPlace_EmptyCart(t *testing.T) {
	f := newFixture()
	f.carts.cart = nil

	_, state, err := f.svc.Place(context.Background(), "u1", "s1", nil)

	assert.ErrorIs(t, err, domain.ErrCartEmpty)
	assert.Nil(t, state)
}

func TestPlace_CorrectableFailuresKeepState(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *fixture) *domorder.Address
		want   error
	}{
		{"no address", func(f *fixture) *domorder.Address { f.book.addr = nil; return nil }, domain.ErrAddressInvalid},
		{"no coordinates", func(_ *fixture) *domorder.Address {
			return &domorder.Address{Landmark: "Opp. temple"}
		}, domain.ErrAddressInvalid},
		{"short landmark", func(_ *fixture) *domorder.Address {
			return &domorder.Address{Landmark: " ab ", Location: geo.Point{Lat: 12.975, Lng: 77.5946}}
		}, domain.ErrLandmarkMissing},
		{"outside zone", func(_ *fixture) *domorder.Address {
			return &domorder.Address{Landmark: "Bus stop", Location: geo.Point{Lat: 13.1, Lng: 77.5946}}
		}, domain.ErrDeliveryZone},
		{"out of stock", func(f *fixture) *domorder.Address {
			f.check.stockErr = &domain.UnavailableItemsError{Items: []string{"Milk"}}
			return nil
		}, domain.ErrOutOfStock},
		{"closed", func(f *fixture) *domorder.Address {
			f.check.openErr = &domain.ShopClosedError{Reason: domain.ClosedHoliday, ShopName: "Corner Store"}
			return nil
		}, domain.ErrShopClosed},
		{"fee unavailable", func(f *fixture) *domorder.Address {
			f.fees.err = errors.New("db down")
			return nil
		}, domain.ErrOrderPlacement},
		{"order store", func(f *fixture) *domorder.Address {
			f.repo.orderErr = errors.New("db down")
			return nil
		}, domain.ErrOrderPlacement},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			addr := tc.mutate(f)

			_, state, err := f.svc.Place(context.Background(), "u1", "s1", addr)

			require.ErrorIs(t, err, tc.want)
			require.NotNil(t, state)
			assert.Equal(t, 3, state.Cart.TotalItems(), "cart must be returned unmodified")
			assert.False(t, f.carts.deleted)
			assert.Empty(t, f.pub.published)
		})
	}
}

func TestPlace_LandmarkGateRunsBeforeAnyWrite(t *testing.T) {
	f := newFixture()
	addr := &domorder.Address{Landmark: "ab", Location: geo.Point{Lat: 12.975, Lng: 77.5946}}

	_, state, err := f.svc.Place(context.Background(), "u1", "s1", addr)

	require.ErrorIs(t, err, domain.ErrLandmarkMissing)
	assert.Equal(t, "ab", state.Address.Landmark)
	assert.Empty(t, f.repo.addresses)
	assert.Empty(t, f.check.calls)
}

func TestPlace_MinimumOrder(t *testing.T) {
	f := newFixture()
	f.carts.cart = domcart.New("u1", "s1", "Corner Store")
	_ = f.carts.cart.Add("gum", "Gum", 100, 1)

	_, state, err := f.svc.Place(context.Background(), "u1", "s1", nil)

	var me *domain.MinimumOrderError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, int64(5000), me.MinimumCents)
	assert.NotNil(t, state)
}

func TestPlace_WithoutPublisher(t *testing.T) {
	f := newFixture()
	f.svc.publisher = nil

	_, _, err := f.svc.Place(context.Background(), "u1", "s1", nil)

	require.NoError(t, err)
}
