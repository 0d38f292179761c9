package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/shopassist/internal/db"
)

type expireCall struct {
	key string
	ttl time.Duration
	nx  bool
}

type mockStore struct {
	values  map[string][]byte
	incrErr error
	expires []expireCall
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.values[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) MGet(_ context.Context, keys ...string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.values[k]
	}
	return out, nil
}

func (m *mockStore) IncrBy(_ context.Context, _ string, _ int64) error { return m.incrErr }

func (m *mockStore) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	m.expires = append(m.expires, expireCall{key, ttl, nx})
	return nil
}

func TestIncrBy_SetsTTLByPeriod(t *testing.T) {
	ms := &mockStore{}
	s := New(ms, 48*time.Hour, 62*24*time.Hour)
	ctx := context.Background()

	_ = s.IncrBy(ctx, "shopassist:usage:openai:tokens:daily:2026-10-15", 10)
	_ = s.IncrBy(ctx, "shopassist:usage:openai:tokens:monthly:2026-10", 10)
	_ = s.IncrBy(ctx, "shopassist:usage:openai:tokens:total", 10)

	if len(ms.expires) != 2 {
		t.Fatalf("expected 2 EXPIRE calls (total never expires), got %d", len(ms.expires))
	}
	if ms.expires[0].ttl != 48*time.Hour || !ms.expires[0].nx {
		t.Errorf("daily expire = %+v", ms.expires[0])
	}
	if ms.expires[1].ttl != 62*24*time.Hour {
		t.Errorf("monthly expire = %+v", ms.expires[1])
	}
}

func TestIncrBy_Error(t *testing.T) {
	ms := &mockStore{incrErr: errors.New("down")}
	if err := New(ms, time.Hour, time.Hour).IncrBy(context.Background(), "k:daily:x", 1); err == nil {
		t.Fatal("expected error")
	}
	if len(ms.expires) != 0 {
		t.Error("EXPIRE must not run after a failed INCRBY")
	}
}

func TestGet(t *testing.T) {
	ms := &mockStore{values: map[string][]byte{"a": []byte("42"), "bad": []byte("x")}}
	s := New(ms, time.Hour, time.Hour)

	if v, err := s.Get(context.Background(), "a"); err != nil || v != 42 {
		t.Errorf("Get(a) = %d, %v", v, err)
	}
	if v, err := s.Get(context.Background(), "missing"); err != nil || v != 0 {
		t.Errorf("missing key should read as 0, got %d, %v", v, err)
	}
	if _, err := s.Get(context.Background(), "bad"); err == nil {
		t.Error("expected parse error")
	}
}

func TestGetMany(t *testing.T) {
	ms := &mockStore{values: map[string][]byte{"a": []byte("1"), "c": []byte("3")}}
	vals, err := New(ms, time.Hour, time.Hour).GetMany(context.Background(), "a", "b", "c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vals) != 3 || vals[0] != 1 || vals[1] != 0 || vals[2] != 3 {
		t.Errorf("unexpected values %v", vals)
	}
}
