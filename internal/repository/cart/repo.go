// Package cart stores carts in Redis, one key per (user, shop).
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kailas-cloud/shopassist/internal/db"
	"github.com/kailas-cloud/shopassist/internal/domain"
	domcart "github.com/kailas-cloud/shopassist/internal/domain/cart"
)

// store is the consumer interface for cart persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys ...string) ([][]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo persists carts as JSON documents with a sliding TTL.
type Repo struct {
	store store
	ttl   time.Duration
}

// New creates a cart repository. Every save refreshes the TTL.
func New(s store, ttl time.Duration) *Repo {
	return &Repo{store: s, ttl: ttl}
}

// Get loads the cart of userID at shopID. A missing cart wraps domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, userID, shopID string) (*domcart.Cart, error) {
	data, err := r.store.Get(ctx, cartKey(userID, shopID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("cart %s/%s: %w", userID, shopID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return decode(data)
}

// Save writes the cart; an empty cart is deleted instead.
func (r *Repo) Save(ctx context.Context, c *domcart.Cart) error {
	if c.IsEmpty() {
		return r.Delete(ctx, c.UserID, c.ShopID)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := r.store.SetWithTTL(ctx, cartKey(c.UserID, c.ShopID), data, r.ttl); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Delete removes the cart of userID at shopID.
func (r *Repo) Delete(ctx context.Context, userID, shopID string) error {
	if err := r.store.Del(ctx, cartKey(userID, shopID)); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

// ListByUser returns every non-empty cart of userID ordered by shop id.
func (r *Repo) ListByUser(ctx context.Context, userID string) ([]*domcart.Cart, error) {
	keys, err := r.store.Scan(ctx, userPattern(userID))
	if err != nil {
		return nil, fmt.Errorf("scan carts: %w", err)
	}
	if len(keys) == 0 {
		return []*domcart.Cart{}, nil
	}
	sort.Strings(keys)

	raw, err := r.store.MGet(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("load carts: %w", err)
	}
	out := make([]*domcart.Cart, 0, len(raw))
	for i, data := range raw {
		if data == nil {
			continue // expired between SCAN and MGET
		}
		c, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("cart %s: %w", keys[i], err)
		}
		if !c.IsEmpty() {
			out = append(out, c)
		}
	}
	return out, nil
}

func decode(data []byte) (*domcart.Cart, error) {
	var c domcart.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	return &c, nil
}

func cartKey(userID, shopID string) string {
	return fmt.Sprintf("%scart:%s:%s", domain.KeyPrefix, userID, shopID)
}

func userPattern(userID string) string {
	return fmt.Sprintf("%scart:%s:*", domain.KeyPrefix, userID)
}
