package shopassist

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
	PeriodTotal UsagePeriod = "total"
)

// UsageCounter is a request and token tally.
type UsageCounter struct {
	Requests int64 `json:"requests"`
	Tokens   int64 `json:"tokens"`
}

// BudgetStatus tracks the embedding token quota.
type BudgetStatus struct {
	TokensLimit     int64      `json:"tokensLimit"`
	TokensRemaining int64      `json:"tokensRemaining"`
	IsExhausted     bool       `json:"isExhausted"`
	ResetsAt        *time.Time `json:"resetsAt,omitempty"`
}

// UsageReport contains embedding and chat usage for a period.
type UsageReport struct {
	Period        UsagePeriod  `json:"period"`
	PeriodStartAt *time.Time   `json:"periodStartAt,omitempty"`
	PeriodEndAt   *time.Time   `json:"periodEndAt,omitempty"`
	Embedding     UsageCounter `json:"embedding"`
	Chat          UsageCounter `json:"chat"`
	Budget        BudgetStatus `json:"budget"`
}

// Usage returns the usage report. An empty period means month.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) (UsageReport, error) {
	sp := c.obs.begin("usage")
	var q url.Values
	if period != "" {
		q = url.Values{"period": []string{string(period)}}
	}
	var report UsageReport
	_, err := c.do(ctx, http.MethodGet, "/v1/usage", q, nil, &report)
	sp.end(err, false, CallUsage{})
	if err != nil {
		return UsageReport{}, fmt.Errorf("usage: %w", err)
	}
	return report, nil
}
