// Package cart implements the cart operations exposed as model functions.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/shopassist/internal/domain"
	domcart "github.com/kailas-cloud/shopassist/internal/domain/cart"
	domcat "github.com/kailas-cloud/shopassist/internal/domain/catalog"
	"github.com/kailas-cloud/shopassist/internal/domain/fcall"
	"github.com/kailas-cloud/shopassist/internal/logger"
	"github.com/kailas-cloud/shopassist/internal/usecase/eligibility"
)

// AddRequest is one requested cart addition.
type AddRequest struct {
	ShopID   string
	ItemID   string
	Quantity int
}

// Added describes a line that made it into a cart.
type Added struct {
	ShopID   string `json:"shopId"`
	ShopName string `json:"shopName"`
	ItemID   string `json:"itemId"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Failed describes a requested addition that was rejected.
type Failed struct {
	ShopID  string     `json:"shopId"`
	ItemID  string     `json:"itemId"`
	Reason  fcall.Code `json:"reason"`
	Message string     `json:"message"`
}

// AddResult is the outcome of a batch addition.
type AddResult struct {
	Success          bool            `json:"success"`
	Added            []Added         `json:"added"`
	Failed           []Failed        `json:"failed"`
	MultiShopWarning string          `json:"multiShopWarning,omitempty"`
	Carts            []*domcart.Cart `json:"carts,omitempty"`
}

// Service mutates and reads carts.
type Service struct {
	store   Store
	catalog CatalogReader
}

// New creates a cart service.
func New(store Store, catalog CatalogReader) *Service {
	return &Service{store: store, catalog: catalog}
}

// prepared is the gather-phase outcome for one request.
type prepared struct {
	req  AddRequest
	item domcat.Item
	shop domcat.Shop
	err  error
}

// AddItems validates every request concurrently, then applies the valid ones in input order.
// One failing item never aborts the others.
func (s *Service) AddItems(ctx context.Context, userID string, reqs []AddRequest) AddResult {
	memo := newShopMemo(s.catalog.GetShop)
	preps := make([]prepared, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req AddRequest) {
			defer wg.Done()
			preps[i] = s.prepare(ctx, memo, req)
		}(i, req)
	}
	wg.Wait()

	res := AddResult{Added: []Added{}, Failed: []Failed{}}
	carts := make(map[string]*domcart.Cart)
	var order []string

	for _, p := range preps {
		if p.err != nil {
			res.Failed = append(res.Failed, failure(p.req, p.err))
			continue
		}
		c, ok := carts[p.shop.ID]
		if !ok {
			var err error
			c, err = s.load(ctx, userID, p.shop)
			if err != nil {
				res.Failed = append(res.Failed, failure(p.req, err))
				continue
			}
			carts[p.shop.ID] = c
			order = append(order, p.shop.ID)
		}
		if err := c.Add(p.item.ID, p.item.Name, p.item.PriceCents, p.req.Quantity); err != nil {
			res.Failed = append(res.Failed, failure(p.req, fmt.Errorf("%w: %v", domain.ErrInvalidArguments, err)))
			continue
		}
		res.Added = append(res.Added, Added{
			ShopID: p.shop.ID, ShopName: p.shop.Name, ItemID: p.item.ID, Name: p.item.Name, Quantity: p.req.Quantity,
		})
	}

	for _, shopID := range order {
		c := carts[shopID]
		if err := s.store.Save(ctx, c); err != nil {
			logger.FromContext(ctx).Error("Cart save failed", zap.String("shop_id", shopID), zap.Error(err))
			res.Added = dropShop(res.Added, shopID, func(a Added) {
				res.Failed = append(res.Failed, failure(AddRequest{ShopID: a.ShopID, ItemID: a.ItemID}, err))
			})
			continue
		}
		res.Carts = append(res.Carts, c)
	}

	res.Success = len(res.Added) > 0
	res.MultiShopWarning = multiShopWarning(res.Added)
	return res
}

func (s *Service) prepare(ctx context.Context, memo *shopMemo, req AddRequest) prepared {
	p := prepared{req: req}
	if req.Quantity < 1 {
		p.err = fmt.Errorf("quantity must be at least 1: %w", domain.ErrInvalidArguments)
		return p
	}
	it, err := s.catalog.GetItem(ctx, req.ItemID)
	if err != nil {
		p.err = err
		return p
	}
	if req.ShopID != "" && it.ShopID != req.ShopID {
		p.err = fmt.Errorf("item %s is not sold by shop %s: %w", req.ItemID, req.ShopID, domain.ErrItemNotFound)
		return p
	}
	if err := eligibility.CheckItem(it); err != nil {
		p.err = err
		return p
	}
	shop, err := memo.get(ctx, it.ShopID)
	if err != nil {
		p.err = err
		return p
	}
	p.item, p.shop = it, shop
	return p
}

func (s *Service) load(ctx context.Context, userID string, shop domcat.Shop) (*domcart.Cart, error) {
	c, err := s.store.Get(ctx, userID, shop.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return domcart.New(userID, shop.ID, shop.Name), nil
	}
	if err != nil {
		return nil, err
	}
	c.ShopName = shop.Name
	return c, nil
}

// Remove deletes one line. Removing the last line deletes the cart.
func (s *Service) Remove(ctx context.Context, userID, shopID, itemID string) (*domcart.Cart, error) {
	c, err := s.existing(ctx, userID, shopID)
	if err != nil {
		return nil, err
	}
	if !c.Remove(itemID) {
		return nil, fmt.Errorf("item %s is not in the cart: %w", itemID, domain.ErrItemNotFound)
	}
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateQuantity sets the quantity of a line; a quantity below 1 removes it.
func (s *Service) UpdateQuantity(ctx context.Context, userID, shopID, itemID string, qty int) (*domcart.Cart, error) {
	c, err := s.existing(ctx, userID, shopID)
	if err != nil {
		return nil, err
	}
	if !c.SetQuantity(itemID, qty) {
		return nil, fmt.Errorf("item %s is not in the cart: %w", itemID, domain.ErrItemNotFound)
	}
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the cart for a shop, or an empty cart when none exists.
func (s *Service) Get(ctx context.Context, userID, shopID string) (*domcart.Cart, error) {
	c, err := s.store.Get(ctx, userID, shopID)
	if errors.Is(err, domain.ErrNotFound) {
		return domcart.New(userID, shopID, ""), nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// All returns every non-empty cart of the user.
func (s *Service) All(ctx context.Context, userID string) ([]*domcart.Cart, error) {
	return s.store.ListByUser(ctx, userID) //nolint:wrapcheck // repository errors are already wrapped
}

func (s *Service) existing(ctx context.Context, userID, shopID string) (*domcart.Cart, error) {
	c, err := s.store.Get(ctx, userID, shopID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("no cart for shop %s: %w", shopID, domain.ErrCartEmpty)
	}
	return c, err
}

func failure(req AddRequest, err error) Failed {
	r := fcall.FromError(err)
	return Failed{ShopID: req.ShopID, ItemID: req.ItemID, Reason: r.Code, Message: r.Error}
}

func dropShop(added []Added, shopID string, onDrop func(Added)) []Added {
	out := added[:0]
	for _, a := range added {
		if a.ShopID == shopID {
			onDrop(a)
			continue
		}
		out = append(out, a)
	}
	return out
}

func multiShopWarning(added []Added) string {
	seen := make(map[string]struct{})
	var ids []string
	for _, a := range added {
		if _, ok := seen[a.ShopID]; ok {
			continue
		}
		seen[a.ShopID] = struct{}{}
		ids = append(ids, a.ShopID)
	}
	if len(ids) < 2 {
		return ""
	}
	sort.Strings(ids)
	return fmt.Sprintf("items were added to %d separate carts (%s); each shop charges its own delivery fee",
		len(ids), strings.Join(ids, ", "))
}

// shopMemo loads each shop at most once per request.
type shopMemo struct {
	load  func(ctx context.Context, id string) (domcat.Shop, error)
	group singleflight.Group
	mu    sync.Mutex
	shops map[string]domcat.Shop
}

func newShopMemo(load func(ctx context.Context, id string) (domcat.Shop, error)) *shopMemo {
	return &shopMemo{load: load, shops: make(map[string]domcat.Shop)}
}

func (m *shopMemo) get(ctx context.Context, id string) (domcat.Shop, error) {
	m.mu.Lock()
	s, ok := m.shops[id]
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	v, err, _ := m.group.Do(id, func() (any, error) {
		shop, err := m.load(ctx, id)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.shops[id] = shop
		m.mu.Unlock()
		return shop, nil
	})
	if err != nil {
		return domcat.Shop{}, err //nolint:wrapcheck // loader errors are already wrapped
	}
	return v.(domcat.Shop), nil
}
