package embedding

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopassist/internal/domain"
	"github.com/kailas-cloud/shopassist/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

type stubEmbedder struct {
	res   domain.EmbeddingResult
	err   error
	calls int
	hcErr error
}

func (s *stubEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	s.calls++
	return s.res, s.err
}

type checkingEmbedder struct{ stubEmbedder }

func (c *checkingEmbedder) HealthCheck(context.Context) error { return c.hcErr }

func TestMetered_ChargesBudget(t *testing.T) {
	budget := NewBudgetTracker("metered-charge", 10_000, 100_000, BudgetActionReject, zap.NewNop())
	inner := &stubEmbedder{res: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 12}}
	m := NewMeteredEmbedder(inner, "metered-charge", "m", budget, zap.NewNop())

	res, err := m.Embed(context.Background(), "atta")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embedding) != 2 {
		t.Errorf("embedding not passed through: %v", res.Embedding)
	}
	if budget.DailyUsed() != 12 || budget.MonthlyUsed() != 12 {
		t.Errorf("budget used daily=%d monthly=%d, want 12", budget.DailyUsed(), budget.MonthlyUsed())
	}
	if got := testutil.ToFloat64(metrics.EmbeddingBudgetTokensRemaining.WithLabelValues("metered-charge", "daily")); got != 9_988 {
		t.Errorf("daily gauge = %v, want 9988", got)
	}
}

func TestMetered_CacheHitIsFree(t *testing.T) {
	budget := NewBudgetTracker("metered-free", 100, 0, BudgetActionReject, zap.NewNop())
	inner := &stubEmbedder{res: domain.EmbeddingResult{Embedding: []float32{1}}}

	if _, err := NewMeteredEmbedder(inner, "metered-free", "m", budget, zap.NewNop()).Embed(context.Background(), "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if budget.DailyUsed() != 0 {
		t.Errorf("zero-token result must not be charged, used=%d", budget.DailyUsed())
	}
}

func TestMetered_BudgetRejectsBeforeProvider(t *testing.T) {
	budget := NewBudgetTracker("metered-reject", 100, 0, BudgetActionReject, zap.NewNop())
	budget.Record(100)
	inner := &stubEmbedder{}
	m := NewMeteredEmbedder(inner, "metered-reject", "m", budget, zap.NewNop())

	before := testutil.ToFloat64(metrics.EmbeddingErrorsTotal.WithLabelValues("metered-reject", "m", "budget"))
	_, err := m.Embed(context.Background(), "rice")

	if !errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		t.Fatalf("expected ErrEmbeddingQuotaExceeded, got %v", err)
	}
	if inner.calls != 0 {
		t.Error("provider must not be called over budget")
	}
	if got := testutil.ToFloat64(metrics.EmbeddingErrorsTotal.WithLabelValues("metered-reject", "m", "budget")); got != before+1 {
		t.Errorf("budget errors = %v, want %v", got, before+1)
	}
}

func TestMetered_WarnBudgetStillEmbeds(t *testing.T) {
	budget := NewBudgetTracker("metered-warn", 10, 0, BudgetActionWarn, zap.NewNop())
	budget.Record(50)
	inner := &stubEmbedder{res: domain.EmbeddingResult{Embedding: []float32{1}, TotalTokens: 3}}

	if _, err := NewMeteredEmbedder(inner, "metered-warn", "m", budget, zap.NewNop()).Embed(context.Background(), "q"); err != nil {
		t.Fatalf("warn action must not block: %v", err)
	}
	if budget.DailyUsed() != 53 {
		t.Errorf("used = %d, want 53", budget.DailyUsed())
	}
}

func TestMetered_ProviderError(t *testing.T) {
	inner := &stubEmbedder{err: domain.ErrEmbeddingProviderError}
	_, err := NewMeteredEmbedder(inner, "p", "m", nil, zap.NewNop()).Embed(context.Background(), "q")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestMetered_HealthCheck(t *testing.T) {
	down := &checkingEmbedder{stubEmbedder{hcErr: errors.New("provider down")}}
	if err := NewMeteredEmbedder(down, "p", "m", nil, zap.NewNop()).HealthCheck(context.Background()); err == nil {
		t.Error("expected forwarded health error")
	}
	if err := NewMeteredEmbedder(&stubEmbedder{}, "p", "m", nil, zap.NewNop()).HealthCheck(context.Background()); err != nil {
		t.Errorf("plain embedder should be healthy, got %v", err)
	}
}
