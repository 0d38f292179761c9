// Package session stores conversation history and per-user delivery addresses in Redis.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/shopassist/internal/db"
	"github.com/kailas-cloud/shopassist/internal/domain"
	"github.com/kailas-cloud/shopassist/internal/domain/chat"
	"github.com/kailas-cloud/shopassist/internal/domain/order"
)

// store is the consumer interface for session persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	HSetNX(ctx context.Context, key string, fields map[string]string, ttl time.Duration) (map[string]string, error)
	AppendCapped(ctx context.Context, key string, values [][]byte, keep int64, ttl time.Duration) error
	Tail(ctx context.Context, key string, n int64) ([][]byte, error)
}

// ErrSessionOwner signals a session that belongs to another user.
var ErrSessionOwner = errors.New("session belongs to another user")

// Repo persists sessions with a sliding TTL.
type Repo struct {
	store      store
	ttl        time.Duration
	maxHistory int64
}

// New creates a session repository. History beyond maxHistory messages is trimmed.
func New(s store, ttl time.Duration, maxHistory int) *Repo {
	if maxHistory <= 0 {
		maxHistory = 40
	}
	return &Repo{store: s, ttl: ttl, maxHistory: int64(maxHistory)}
}

// Claim binds a session to userID on first use and rejects foreign sessions.
// The owner is written with HSETNX, so two users racing on a fresh session
// cannot both win.
func (r *Repo) Claim(ctx context.Context, sessionID, userID string) error {
	meta, err := r.store.HSetNX(ctx, metaKey(sessionID), map[string]string{
		"user_id":    userID,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}, r.ttl)
	if err != nil {
		return fmt.Errorf("claim session: %w", err)
	}
	if owner := meta["user_id"]; owner != userID {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionOwner)
	}
	return nil
}

// History returns the stored messages of a session, oldest first.
func (r *Repo) History(ctx context.Context, sessionID string) ([]chat.Message, error) {
	raw, err := r.store.Tail(ctx, historyKey(sessionID), r.maxHistory)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	out := make([]chat.Message, 0, len(raw))
	for _, b := range raw {
		var m chat.Message
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// Append adds messages to the history, trims it and refreshes the TTL.
func (r *Repo) Append(ctx context.Context, sessionID string, msgs ...chat.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	vals := make([][]byte, len(msgs))
	for i, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		vals[i] = b
	}
	if err := r.store.AppendCapped(ctx, historyKey(sessionID), vals, r.maxHistory, r.ttl); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// SetAddress stores the delivery address a user wants orders sent to.
func (r *Repo) SetAddress(ctx context.Context, userID string, a order.Address) error {
	b, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal address: %w", err)
	}
	if err := r.store.SetWithTTL(ctx, addressKey(userID), b, r.ttl); err != nil {
		return fmt.Errorf("save address: %w", err)
	}
	return nil
}

// Address returns the current delivery address of a user, or nil when none is set.
func (r *Repo) Address(ctx context.Context, userID string) (*order.Address, error) {
	b, err := r.store.Get(ctx, addressKey(userID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load address: %w", err)
	}
	var a order.Address
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("unmarshal address: %w", err)
	}
	return &a, nil
}

func metaKey(sessionID string) string {
	return fmt.Sprintf("%ssession:%s", domain.KeyPrefix, sessionID)
}

func historyKey(sessionID string) string {
	return fmt.Sprintf("%ssession:%s:history", domain.KeyPrefix, sessionID)
}

func addressKey(userID string) string {
	return fmt.Sprintf("%saddress:%s", domain.KeyPrefix, userID)
}
