// Package budget persists token and request counters with period-scoped TTLs.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/shopassist/internal/db"
)

// store is the consumer interface for counter operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys ...string) ([][]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store implements counter persistence on Redis (INCRBY + EXPIRE NX).
type Store struct {
	store    store
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a counter store.
// dailyTTL is the TTL for daily keys (recommended: 48h).
// monthTTL is the TTL for monthly keys (recommended: 62 days).
// Keys without a period segment never expire.
func New(s store, dailyTTL, monthTTL time.Duration) *Store {
	return &Store{
		store:    s,
		dailyTTL: dailyTTL,
		monthTTL: monthTTL,
	}
}

// IncrBy atomically increments the key value and sets its TTL once.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if err := s.store.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("counter INCRBY %s: %w", key, err)
	}

	ttl := s.ttlForKey(key)
	if ttl <= 0 {
		return nil
	}
	// NX keeps the first expiry so repeated increments do not extend the window.
	if err := s.store.Expire(ctx, key, ttl, true); err != nil {
		return fmt.Errorf("counter EXPIRE %s: %w", key, err)
	}

	return nil
}

// Get returns the current counter value. Returns 0 if the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("counter GET %s: %w", key, err)
	}
	return parseCounter(key, data)
}

// GetMany reads several counters in one round trip; missing keys are 0.
func (s *Store) GetMany(ctx context.Context, keys ...string) ([]int64, error) {
	raw, err := s.store.MGet(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("counter MGET: %w", err)
	}
	out := make([]int64, len(keys))
	for i := range keys {
		if i >= len(raw) || raw[i] == nil {
			continue
		}
		v, err := parseCounter(keys[i], raw[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseCounter(key string, data []byte) (int64, error) {
	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %s parse: %w", key, err)
	}
	return val, nil
}

// ttlForKey determines TTL based on the key format (daily vs monthly vs lifetime).
func (s *Store) ttlForKey(key string) time.Duration {
	switch {
	case strings.Contains(key, ":daily:"):
		return s.dailyTTL
	case strings.Contains(key, ":monthly:"):
		return s.monthTTL
	default:
		return 0
	}
}
