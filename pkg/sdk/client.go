package shopassist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "shopassist-go"
	maxErrorBody     = 64 << 10
)

// Client is the shopassist SDK entry point. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	apiKey  string
	userID  string
	agent   string
	obs     *observer
}

// New creates a Client for the API served at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{timeout: defaultTimeout, userAgent: defaultUserAgent}
	for _, o := range opts {
		o.apply(cfg)
	}

	if baseURL == "" {
		return nil, errors.New("shopassist: base URL required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("shopassist: parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("shopassist: unsupported scheme %q", u.Scheme)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: u,
		http:    hc,
		apiKey:  cfg.apiKey,
		userID:  cfg.userID,
		agent:   cfg.userAgent,
		obs:     obs,
	}, nil
}

// CallUsage is the token usage the server reported for a single call.
type CallUsage struct {
	EmbeddingTokens int64
	LLMTokens       int64
}

// do sends a request and decodes a 2xx JSON body into out.
// Non-2xx responses become *APIError.
func (c *Client) do(
	ctx context.Context, method, path string, query url.Values, in, out any,
) (CallUsage, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return CallUsage{}, fmt.Errorf("shopassist: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	u := *c.baseURL
	u.Path += path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return CallUsage{}, fmt.Errorf("shopassist: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.agent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return CallUsage{}, fmt.Errorf("shopassist: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	usage := CallUsage{
		EmbeddingTokens: headerInt(resp.Header, "X-Embedding-Tokens"),
		LLMTokens:       headerInt(resp.Header, "X-LLM-Tokens"),
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return usage, decodeAPIError(resp)
	}
	if out == nil {
		return usage, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return usage, fmt.Errorf("shopassist: decode response: %w", err)
	}
	return usage, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Code != "" {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
		return apiErr
	}
	apiErr.Code = http.StatusText(resp.StatusCode)
	apiErr.Message = strings.TrimSpace(string(raw))
	return apiErr
}

func headerInt(h http.Header, key string) int64 {
	v := h.Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
