package domain

import (
	"context"
	"sync"
)

type requestUsageKey struct{}

// RequestUsage collects model token usage for a single HTTP request.
// The handler puts a pointer into the context, services record into it from any goroutine,
// and the handler reads it back for response headers.
type RequestUsage struct {
	mu              sync.Mutex
	embeddingTokens int
	llmTokens       int
	embedCalls      int
	llmCalls        int
}

// NewContextWithUsage returns a context with an attached usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *RequestUsage) {
	u := &RequestUsage{}
	return context.WithValue(ctx, requestUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *RequestUsage {
	u, _ := ctx.Value(requestUsageKey{}).(*RequestUsage)
	return u
}

// AddEmbeddingTokens records tokens consumed by one embedding call (0 on a cache hit).
func (u *RequestUsage) AddEmbeddingTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.embeddingTokens += n
	u.embedCalls++
	u.mu.Unlock()
}

// AddLLMTokens records tokens consumed by a chat completion.
func (u *RequestUsage) AddLLMTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.llmTokens += n
	u.llmCalls++
	u.mu.Unlock()
}

// EmbeddingTokens returns the embedding tokens recorded so far.
func (u *RequestUsage) EmbeddingTokens() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.embeddingTokens
}

// LLMTokens returns the chat tokens recorded so far.
func (u *RequestUsage) LLMTokens() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.llmTokens
}

// EmbedCalls returns how many embedding calls were made, including cache hits.
func (u *RequestUsage) EmbedCalls() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.embedCalls
}

// LLMCalls returns how many chat completions were made.
func (u *RequestUsage) LLMCalls() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.llmCalls
}
