// Package openai adapts OpenAI-compatible embedding and chat endpoints to the domain interfaces.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopassist/internal/domain"
	"github.com/kailas-cloud/shopassist/internal/metrics"
)

// maxInputRunes bounds a search phrase sent for embedding.
const maxInputRunes = 1024

// Embedder turns search phrases into vectors.
type Embedder struct {
	client     *openai.Client
	model      string
	dimensions int
	user       string
	provider   string
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Provider   string
	Logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	return &Embedder{
		client:     newClient(cfg.APIKey, cfg.BaseURL),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   cfg.Provider,
		logger:     cfg.Logger,
	}
}

func newClient(apiKey, baseURL string) *openai.Client {
	cc := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cc.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cc)
}

// Embed implements domain.Embedder. Tokens are charged to the request's usage collector.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	input := normalizeInput(text)
	if input == "" {
		return domain.EmbeddingResult{}, fmt.Errorf("empty input: %w", domain.ErrEmbeddingFailure)
	}

	req := openai.EmbeddingRequest{
		Input:          []string{input},
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
		Dimensions:     e.dimensions,
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		werr := embeddingError(err)
		e.fail(reason(err))
		e.logger.Warn("Embedding request failed",
			zap.String("provider", e.provider),
			zap.Duration("duration", time.Since(start)),
			zap.Error(werr),
		)
		return domain.EmbeddingResult{}, werr
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		e.fail("empty_response")
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, e.model).Observe(time.Since(start).Seconds())
	u := resp.Usage
	if u.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, e.model, "prompt").Add(float64(u.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, e.model, "total").Add(float64(u.TotalTokens))
	}
	domain.UsageFromContext(ctx).AddEmbeddingTokens(u.TotalTokens)

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: u.PromptTokens,
		TotalTokens:  u.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (e *Embedder) fail(why string) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, e.model, why).Inc()
}

// normalizeInput collapses whitespace and truncates on a rune boundary.
func normalizeInput(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= maxInputRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxInputRunes])
}

// embeddingError maps an exhausted provider quota to ErrEmbeddingQuotaExceeded;
// everything else is ErrEmbeddingProviderError.
func embeddingError(err error) error {
	if quotaExhausted(err) {
		return wrapAPIError("embedding", err, domain.ErrEmbeddingQuotaExceeded)
	}
	return wrapAPIError("embedding", err, domain.ErrEmbeddingProviderError)
}

func quotaExhausted(err error) bool {
	var apiErr *openai.APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests &&
		(apiErr.Type == "insufficient_quota" || apiErr.Code == "insufficient_quota")
}

// reason labels a raw client error for the errors counter.
func reason(err error) string {
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	status := 0
	switch {
	case quotaExhausted(err):
		return "quota"
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	switch {
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "auth"
	case status >= 500:
		return "server"
	case status > 0:
		return "client"
	}
	return "transport"
}

// wrapAPIError keeps the provider's message and wraps the domain sentinel.
func wrapAPIError(kind string, err, sentinel error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w", kind, apiErr.HTTPStatusCode, apiErr.Message, sentinel)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := extractDetail(reqErr.Body)
		if msg == "" {
			msg = strings.TrimSpace(string(reqErr.Body))
		}
		return fmt.Errorf("%s API error %d: %s: %w", kind, reqErr.HTTPStatusCode, msg, sentinel)
	}
	return fmt.Errorf("%s request failed: %v: %w", kind, err, sentinel)
}

// extractDetail reads the message from either an OpenAI {"error":{"message"}}
// body or a {"detail"} body used by compatible gateways.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return parsed.Detail
}
