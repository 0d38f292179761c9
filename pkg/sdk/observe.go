package shopassist

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	resultOK     = "ok"
	resultFailed = "failed" // the server answered success=false
	resultError  = "error"
)

type sdkMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	tokens   *prometheus.CounterVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopassist",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "SDK operations by name and result (ok, failed, error).",
		}, []string{"operation", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shopassist",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK round-trip latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopassist",
			Subsystem: "sdk",
			Name:      "tokens_total",
			Help:      "Tokens the server reported spending on behalf of this client.",
		}, []string{"kind"}),
	}
	if err := registerOrReuse(reg, &m.requests); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.tokens); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.latency); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers c, or points it at the identical collector a
// previous client already registered.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("shopassist: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("shopassist: metric registered with incompatible type %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer logs and measures SDK operations. A nil observer is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// span tracks one in-flight operation.
type span struct {
	o     *observer
	op    string
	start time.Time
}

func (o *observer) begin(op string) span {
	return span{o: o, op: op, start: time.Now()}
}

// end records the outcome. failed marks a well-formed response whose
// success flag was false.
func (s span) end(err error, failed bool, usage CallUsage) {
	if s.o == nil {
		return
	}
	dur := time.Since(s.start)
	result := resultOK
	switch {
	case err != nil:
		result = resultError
	case failed:
		result = resultFailed
	}

	if m := s.o.metrics; m != nil {
		m.requests.WithLabelValues(s.op, result).Inc()
		m.latency.WithLabelValues(s.op).Observe(dur.Seconds())
		if usage.EmbeddingTokens > 0 {
			m.tokens.WithLabelValues("embedding").Add(float64(usage.EmbeddingTokens))
		}
		if usage.LLMTokens > 0 {
			m.tokens.WithLabelValues("llm").Add(float64(usage.LLMTokens))
		}
	}

	if s.o.logger == nil {
		return
	}
	attrs := []any{"op", s.op, "duration", dur, "result", result}
	if err != nil {
		s.o.logger.Warn("shopassist request failed", append(attrs, "error", err)...)
		return
	}
	s.o.logger.Debug("shopassist request done",
		append(attrs, "embedding_tokens", usage.EmbeddingTokens, "llm_tokens", usage.LLMTokens)...)
}
