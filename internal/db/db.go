// Package db defines the store facade shared by the Redis and Postgres
// backends. Repositories declare the narrow subset they need.
package db

import (
	"context"
	"time"
)

// Store is the Redis facade.
type Store interface {
	Pinger
	KVStore
	SessionStore
	Scan(ctx context.Context, pattern string) ([]string, error)
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore covers carts, cached vectors and usage counters.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys ...string) ([][]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// SessionStore covers session ownership and capped message history.
type SessionStore interface {
	HSetNX(ctx context.Context, key string, fields map[string]string, ttl time.Duration) (map[string]string, error)
	AppendCapped(ctx context.Context, key string, values [][]byte, keep int64, ttl time.Duration) error
	Tail(ctx context.Context, key string, n int64) ([][]byte, error)
}
