package embcache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopassist/internal/db"
	"github.com/kailas-cloud/shopassist/internal/domain"
)

type fakeProvider struct {
	vec   []float32
	err   error
	calls atomic.Int32
	gate  chan struct{} // when set, Embed blocks until closed
}

func (f *fakeProvider) Embed(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	domain.UsageFromContext(ctx).AddEmbeddingTokens(8)
	return domain.EmbeddingResult{Embedding: f.vec, PromptTokens: 8, TotalTokens: 8}, nil
}

// memKV is an in-memory kv; getErr/setErr simulate Redis failures.
type memKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func newCache(p *fakeProvider, kv *memKV, dims int) *CachedEmbedder {
	return New(p, kv, Options{Model: "text-embedding-3-small", Dimensions: dims, TTL: 6 * time.Hour}, nil, zap.NewNop())
}
