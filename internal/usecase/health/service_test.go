package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubChecker struct{ err error }

func (s stubChecker) HealthCheck(context.Context) error { return s.err }

var errDown = errors.New("conn refused")

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		redis   error
		pg      error
		emb     error
		llm     error
		want    Status
		failing []string
	}{
		{name: "all healthy", want: Healthy},
		{name: "redis down", redis: errDown, want: Degraded, failing: []string{ComponentRedis}},
		{name: "postgres down", pg: errDown, want: Degraded, failing: []string{ComponentPostgres}},
		{name: "embedding down", emb: errDown, want: Degraded, failing: []string{ComponentEmbedding}},
		{name: "llm down", llm: errDown, want: Degraded, failing: []string{ComponentLLM}},
		{
			name: "both stores down", redis: errDown, pg: errDown, want: Unhealthy,
			failing: []string{ComponentRedis, ComponentPostgres},
		},
		{
			name: "providers down only", emb: errDown, llm: errDown, want: Degraded,
			failing: []string{ComponentEmbedding, ComponentLLM},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := New(time.Second,
				Store(ComponentRedis, stubPinger{tc.redis}),
				Store(ComponentPostgres, stubPinger{tc.pg}),
				Dependency(ComponentEmbedding, stubChecker{tc.emb}),
				Dependency(ComponentLLM, stubChecker{tc.llm}),
			)
			r := svc.Check(context.Background())

			if r.Status != tc.want {
				t.Errorf("status: got %q, want %q", r.Status, tc.want)
			}
			if len(r.Checks) != 4 {
				t.Fatalf("expected 4 checks, got %v", r.Checks)
			}
			failing := map[string]bool{}
			for _, c := range tc.failing {
				failing[c] = true
			}
			for c, res := range r.Checks {
				want := CheckOK
				if failing[c] {
					want = CheckError
				}
				if res != want {
					t.Errorf("%s: got %q, want %q", c, res, want)
				}
			}
		})
	}
}

func TestCheck_NilDependencySkipped(t *testing.T) {
	svc := New(time.Second,
		Store(ComponentRedis, stubPinger{}),
		Dependency(ComponentLLM, nil),
	)
	r := svc.Check(context.Background())

	if _, ok := r.Checks[ComponentLLM]; ok {
		t.Errorf("nil dependency should not be probed: %v", r.Checks)
	}
	if r.Status != Healthy {
		t.Errorf("status: got %q, want %q", r.Status, Healthy)
	}
}

type slowPinger struct{}

func (slowPinger) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestCheck_ProbeTimeout(t *testing.T) {
	svc := New(20*time.Millisecond,
		Store(ComponentRedis, slowPinger{}),
		Store(ComponentPostgres, stubPinger{}),
	)

	start := time.Now()
	r := svc.Check(context.Background())

	if time.Since(start) > time.Second {
		t.Fatal("slow probe was not bounded by the timeout")
	}
	if r.Checks[ComponentRedis] != CheckError || r.Status != Degraded {
		t.Errorf("unexpected report %+v", r)
	}
}

func TestNew_DefaultTimeout(t *testing.T) {
	if svc := New(0); svc.timeout != DefaultTimeout {
		t.Errorf("timeout: got %v, want %v", svc.timeout, DefaultTimeout)
	}
}
