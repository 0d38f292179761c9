package usage

import "context"

// BudgetReader provides read-only access to the embedding token budget.
type BudgetReader interface {
	DailyLimit() int64
	MonthlyLimit() int64
	RemainingDaily() int64
	RemainingMonthly() int64
}

// CounterStore persists usage counters.
type CounterStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	GetMany(ctx context.Context, keys ...string) ([]int64, error)
}
