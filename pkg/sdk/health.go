package shopassist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"` // component → "ok"/"error"
}

// Healthy reports whether every component is up.
func (h HealthStatus) Healthy() bool { return h.Status == "ok" }

// Health checks the health of all server components. A degraded server
// answers 503 with a body; that is returned as a status, not an error.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	sp := c.obs.begin("health")
	var hs HealthStatus
	_, err := c.do(ctx, http.MethodGet, "/health", nil, nil, &hs)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
		hs, err = decodeHealth(apiErr)
	}
	sp.end(err, err == nil && !hs.Healthy(), CallUsage{})
	if err != nil {
		return HealthStatus{}, fmt.Errorf("health: %w", err)
	}
	return hs, nil
}

// decodeHealth recovers the degraded report the server sends with a 503.
// Its body carries no error code, so it lands in Message verbatim.
func decodeHealth(apiErr *APIError) (HealthStatus, error) {
	var hs HealthStatus
	if err := json.Unmarshal([]byte(apiErr.Message), &hs); err != nil || hs.Status == "" {
		return HealthStatus{}, apiErr
	}
	return hs, nil
}
