// Package usage describes token consumption reports.
package usage

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// ParsePeriod maps a query value to a Period, defaulting to month.
func ParsePeriod(s string) (Period, bool) {
	switch Period(s) {
	case PeriodDay, PeriodMonth, PeriodTotal:
		return Period(s), true
	case "":
		return PeriodMonth, true
	default:
		return "", false
	}
}

// Counter is model usage for one provider over a period.
type Counter struct {
	requests int64
	tokens   int64
}

// NewCounter creates a Counter snapshot.
func NewCounter(requests, tokens int64) Counter {
	return Counter{requests: requests, tokens: tokens}
}

// Requests returns the number of model calls.
func (c Counter) Requests() int64 { return c.requests }

// Tokens returns the total tokens consumed.
func (c Counter) Tokens() int64 { return c.tokens }

// Budget is the embedding token budget state.
type Budget struct {
	tokensLimit     int64
	tokensRemaining int64
	isExhausted     bool
	resetsAt        int64 // unix millis
}

// NewBudget creates a Budget snapshot. A limit of 0 means unlimited.
func NewBudget(limit, remaining int64, resetsAt int64) Budget {
	return Budget{
		tokensLimit:     limit,
		tokensRemaining: remaining,
		isExhausted:     limit > 0 && remaining <= 0,
		resetsAt:        resetsAt,
	}
}

// TokensLimit returns the token cap.
func (b Budget) TokensLimit() int64 { return b.tokensLimit }

// TokensRemaining returns tokens left (-1 when unlimited).
func (b Budget) TokensRemaining() int64 { return b.tokensRemaining }

// IsExhausted reports whether the budget is spent.
func (b Budget) IsExhausted() bool { return b.isExhausted }

// ResetsAt returns the reset timestamp (unix millis, 0 when it never resets).
func (b Budget) ResetsAt() int64 { return b.resetsAt }

// Report is model usage for a time period.
type Report struct {
	period      Period
	periodStart int64
	periodEnd   int64
	embedding   Counter
	chat        Counter
	budget      Budget
}

// NewReport creates a usage report.
func NewReport(period Period, start, end int64, embedding, chat Counter, b Budget) Report {
	return Report{
		period:      period,
		periodStart: start,
		periodEnd:   end,
		embedding:   embedding,
		chat:        chat,
		budget:      b,
	}
}

// Period returns the aggregation granularity.
func (r *Report) Period() Period { return r.period }

// PeriodStart returns the period start timestamp (unix millis).
func (r *Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the period end timestamp (unix millis).
func (r *Report) PeriodEnd() int64 { return r.periodEnd }

// Embedding returns embedding usage.
func (r *Report) Embedding() Counter { return r.embedding }

// Chat returns chat completion usage.
func (r *Report) Chat() Counter { return r.chat }

// Budget returns the embedding budget status.
func (r *Report) Budget() Budget { return r.budget }
