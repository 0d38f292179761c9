// Package embcache memoizes query embeddings in Redis.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/shopassist/internal/db"
	"github.com/kailas-cloud/shopassist/internal/domain"
	"github.com/kailas-cloud/shopassist/internal/logger"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// Cache outcomes used as the "result" label.
const (
	resultHit    = "hit"
	resultMiss   = "miss"
	resultShared = "shared"
)

type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options configures the cache.
type Options struct {
	Model      string
	Dimensions int // 0 accepts any length
	TTL        time.Duration
}

// CachedEmbedder serves repeated search phrases from Redis and coalesces
// identical in-flight misses into one provider call.
type CachedEmbedder struct {
	inner   domain.Embedder
	kv      kv
	opts    Options
	group   singleflight.Group
	outcome *prometheus.CounterVec
	log     *zap.Logger
}

// New wraps inner. outcome is a counter vec labelled "result" and may be nil.
func New(inner domain.Embedder, store kv, opts Options, outcome *prometheus.CounterVec, log *zap.Logger) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, kv: store, opts: opts, outcome: outcome, log: log}
}

// Embed returns the cached vector for text or computes and stores it.
// Hits and coalesced followers report zero tokens; only the caller that
// reached the provider is charged.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)

	if vec, ok := c.lookup(ctx, key); ok {
		c.count(resultHit)
		domain.UsageFromContext(ctx).AddEmbeddingTokens(0)
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	leader := false
	v, err, _ := c.group.Do(key, func() (any, error) {
		leader = true
		res, err := c.inner.Embed(context.WithoutCancel(ctx), text)
		if err != nil {
			return nil, err //nolint:wrapcheck // wrapped below for every waiter
		}
		c.store(ctx, key, res.Embedding)
		return res, nil
	})
	if err != nil {
		c.count(resultMiss)
		return domain.EmbeddingResult{}, fmt.Errorf("embed query: %w", err)
	}

	res := v.(domain.EmbeddingResult) //nolint:forcetypeassert // only type stored in the group
	if !leader {
		c.count(resultShared)
		domain.UsageFromContext(ctx).AddEmbeddingTokens(0)
		return domain.EmbeddingResult{Embedding: res.Embedding}, nil
	}
	c.count(resultMiss)
	return res, nil
}

// HealthCheck forwards to the provider.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func (c *CachedEmbedder) count(result string) {
	if c.outcome != nil {
		c.outcome.WithLabelValues(result).Inc()
	}
}

// key folds case and whitespace so "Basmati  Rice" and "basmati rice" share a vector.
// The model and dimension are part of the key.
func (c *CachedEmbedder) key(text string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	h := sha256.Sum256(fmt.Appendf(nil, "%s\x00%d\x00%s", c.opts.Model, c.opts.Dimensions, norm))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.kv.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return nil, false
	case err != nil:
		logger.FromContext(ctx).Warn("Embedding cache read failed", zap.Error(err))
		return nil, false
	}

	vec, err := decodeVector(data, c.opts.Dimensions)
	if err != nil {
		c.log.Warn("Discarding cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) store(ctx context.Context, key string, vec []float32) {
	if err := c.kv.SetWithTTL(ctx, key, encodeVector(vec), c.opts.TTL); err != nil {
		logger.FromContext(ctx).Warn("Embedding cache write failed", zap.Error(err))
	}
}

// encodeVector packs float32 little-endian.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte, dims int) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("bad payload length %d", len(data))
	}
	n := len(data) / 4
	if dims > 0 && n != dims {
		return nil, fmt.Errorf("%w: cached %d, want %d", domain.ErrVectorDimMismatch, n, dims)
	}
	vec := make([]float32, n)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vec, nil
}
