package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/shopassist/internal/domain"
	domusage "github.com/kailas-cloud/shopassist/internal/domain/usage"
)

// --- Mocks ---

type mockBudgetReader struct {
	dailyLimit       int64
	monthlyLimit     int64
	remainingDaily   int64
	remainingMonthly int64
}

func (m *mockBudgetReader) DailyLimit() int64       { return m.dailyLimit }
func (m *mockBudgetReader) MonthlyLimit() int64     { return m.monthlyLimit }
func (m *mockBudgetReader) RemainingDaily() int64   { return m.remainingDaily }
func (m *mockBudgetReader) RemainingMonthly() int64 { return m.remainingMonthly }

type memCounters struct {
	data   map[string]int64
	getErr error
}

func (m *memCounters) IncrBy(_ context.Context, key string, val int64) error {
	m.data[key] += val
	return nil
}

func (m *memCounters) GetMany(_ context.Context, keys ...string) ([]int64, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([]int64, len(keys))
	for i, k := range keys {
		out[i] = m.data[k]
	}
	return out, nil
}

var testNow = time.Date(2026, 3, 16, 15, 30, 0, 0, time.UTC)

func newTestService(br BudgetReader, store CounterStore) *Service {
	s := New(br, store, nil)
	s.now = func() time.Time { return testNow }
	return s
}

// --- Tests ---

func TestGetReport_DailyPeriod(t *testing.T) {
	br := &mockBudgetReader{dailyLimit: 10000, remainingDaily: 7000, monthlyLimit: 100000, remainingMonthly: 50000}
	svc := newTestService(br, nil)

	r, err := svc.GetReport(context.Background(), domusage.PeriodDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Period() != domusage.PeriodDay {
		t.Errorf("expected period %q, got %q", domusage.PeriodDay, r.Period())
	}

	dayStart := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	if r.PeriodStart() != dayStart.UnixMilli() {
		t.Errorf("expected period start %d, got %d", dayStart.UnixMilli(), r.PeriodStart())
	}
	if r.PeriodEnd() != dayStart.Add(24*time.Hour).UnixMilli() {
		t.Errorf("unexpected period end %d", r.PeriodEnd())
	}
	if r.Budget().TokensLimit() != 10000 || r.Budget().TokensRemaining() != 7000 {
		t.Errorf("unexpected budget %+v", r.Budget())
	}
	if r.Budget().IsExhausted() {
		t.Error("budget should not be exhausted")
	}
}

func TestGetReport_MonthlyPeriod(t *testing.T) {
	br := &mockBudgetReader{monthlyLimit: 100000, remainingMonthly: 50000}
	svc := newTestService(br, nil)

	r, err := svc.GetReport(context.Background(), domusage.PeriodMonth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	monthStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if r.PeriodStart() != monthStart.UnixMilli() {
		t.Errorf("expected month start %d, got %d", monthStart.UnixMilli(), r.PeriodStart())
	}
	if r.PeriodEnd() != time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC).UnixMilli() {
		t.Errorf("unexpected period end %d", r.PeriodEnd())
	}
	if r.Budget().TokensLimit() != 100000 {
		t.Errorf("expected limit 100000, got %d", r.Budget().TokensLimit())
	}
}

func TestGetReport_TotalPeriodHasNoBounds(t *testing.T) {
	svc := newTestService(&mockBudgetReader{monthlyLimit: 10, remainingMonthly: 5}, nil)

	r, err := svc.GetReport(context.Background(), domusage.PeriodTotal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.PeriodStart() != 0 || r.PeriodEnd() != 0 {
		t.Errorf("total period should be unbounded, got %d..%d", r.PeriodStart(), r.PeriodEnd())
	}
}

func TestGetReport_NilBudgetReader(t *testing.T) {
	svc := newTestService(nil, nil)

	r, err := svc.GetReport(context.Background(), domusage.PeriodMonth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Budget().TokensLimit() != 0 || r.Budget().IsExhausted() {
		t.Errorf("nil reader should mean unlimited, got %+v", r.Budget())
	}
}

func TestGetReport_Exhausted(t *testing.T) {
	svc := newTestService(&mockBudgetReader{dailyLimit: 100, remainingDaily: 0}, nil)

	r, err := svc.GetReport(context.Background(), domusage.PeriodDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Budget().IsExhausted() {
		t.Error("expected exhausted budget")
	}
}

func TestRecordThenReport(t *testing.T) {
	store := &memCounters{data: map[string]int64{}}
	svc := newTestService(nil, store)

	ctx, u := domain.NewContextWithUsage(context.Background())
	u.AddEmbeddingTokens(12)
	u.AddEmbeddingTokens(0)
	u.AddLLMTokens(300)
	svc.Record(ctx, u)
	svc.Record(ctx, u)

	for _, p := range []domusage.Period{domusage.PeriodDay, domusage.PeriodMonth, domusage.PeriodTotal} {
		r, err := svc.GetReport(ctx, p)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", p, err)
		}
		if r.Embedding().Requests() != 4 || r.Embedding().Tokens() != 24 {
			t.Errorf("%s: embedding = %d req / %d tok, want 4 / 24", p, r.Embedding().Requests(), r.Embedding().Tokens())
		}
		if r.Chat().Requests() != 2 || r.Chat().Tokens() != 600 {
			t.Errorf("%s: chat = %d req / %d tok, want 2 / 600", p, r.Chat().Requests(), r.Chat().Tokens())
		}
	}

	if _, ok := store.data["shopassist:usage:chat:tokens:daily:2026-03-16"]; !ok {
		t.Errorf("daily key missing, got keys %v", store.data)
	}
	if _, ok := store.data["shopassist:usage:chat:tokens:total"]; !ok {
		t.Errorf("total key missing, got keys %v", store.data)
	}
}

func TestGetReport_StoreError(t *testing.T) {
	svc := newTestService(nil, &memCounters{getErr: errors.New("redis down")})

	if _, err := svc.GetReport(context.Background(), domusage.PeriodDay); err == nil {
		t.Fatal("expected error")
	}
}
