package usage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopassist/internal/domain"
	domusage "github.com/kailas-cloud/shopassist/internal/domain/usage"
)

// Counter kinds.
const (
	kindEmbedding = "embedding"
	kindChat      = "chat"
)

// Service records per-request model usage and builds usage reports.
type Service struct {
	br     BudgetReader
	store  CounterStore
	now    func() time.Time
	logger *zap.Logger
}

// New creates a Service. br can be nil (unlimited mode); store can be nil (reports read zeros).
func New(br BudgetReader, store CounterStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		br:     br,
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// Record adds one request's usage to the day, month and lifetime counters.
// Failures are logged; usage accounting never fails a request.
func (s *Service) Record(ctx context.Context, u *domain.RequestUsage) {
	if s.store == nil || u == nil {
		return
	}
	now := s.now()
	deltas := []struct {
		kind, metric string
		val          int
	}{
		{kindEmbedding, "requests", u.EmbedCalls()},
		{kindEmbedding, "tokens", u.EmbeddingTokens()},
		{kindChat, "requests", u.LLMCalls()},
		{kindChat, "tokens", u.LLMTokens()},
	}
	for _, d := range deltas {
		if d.val == 0 {
			continue
		}
		for _, p := range []domusage.Period{domusage.PeriodDay, domusage.PeriodMonth, domusage.PeriodTotal} {
			key := counterKey(d.kind, d.metric, p, now)
			if err := s.store.IncrBy(ctx, key, int64(d.val)); err != nil {
				s.logger.Warn("Failed to record usage", zap.String("key", key), zap.Error(err))
			}
		}
	}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(ctx context.Context, period domusage.Period) (domusage.Report, error) {
	now := s.now()
	var start, end int64
	var limit, remaining int64

	switch period {
	case domusage.PeriodDay:
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		start = dayStart.UnixMilli()
		end = dayStart.Add(24 * time.Hour).UnixMilli()
		if s.br != nil {
			limit, remaining = s.br.DailyLimit(), s.br.RemainingDaily()
		}
	case domusage.PeriodMonth:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		start = monthStart.UnixMilli()
		end = monthStart.AddDate(0, 1, 0).UnixMilli()
		if s.br != nil {
			limit, remaining = s.br.MonthlyLimit(), s.br.RemainingMonthly()
		}
	default:
		// total has no boundaries; the monthly cap is the binding one
		if s.br != nil {
			limit, remaining = s.br.MonthlyLimit(), s.br.RemainingMonthly()
		}
	}

	vals := make([]int64, 4)
	if s.store != nil {
		keys := []string{
			counterKey(kindEmbedding, "requests", period, now),
			counterKey(kindEmbedding, "tokens", period, now),
			counterKey(kindChat, "requests", period, now),
			counterKey(kindChat, "tokens", period, now),
		}
		got, err := s.store.GetMany(ctx, keys...)
		if err != nil {
			return domusage.Report{}, fmt.Errorf("read usage counters: %w", err)
		}
		copy(vals, got)
	}

	return domusage.NewReport(period, start, end,
		domusage.NewCounter(vals[0], vals[1]),
		domusage.NewCounter(vals[2], vals[3]),
		domusage.NewBudget(limit, remaining, end),
	), nil
}

func counterKey(kind, metric string, p domusage.Period, t time.Time) string {
	base := fmt.Sprintf("%susage:%s:%s", domain.KeyPrefix, kind, metric)
	switch p {
	case domusage.PeriodDay:
		return base + ":daily:" + t.Format("2006-01-02")
	case domusage.PeriodMonth:
		return base + ":monthly:" + t.Format("2006-01")
	default:
		return base + ":total"
	}
}
