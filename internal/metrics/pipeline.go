package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline and function-call metrics.
var (
	SearchFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_fallback_total",
			Help:      "Vector searches served by a weaker strategy",
		},
		[]string{"strategy", "reason"},
	)

	VectorSearchRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vector_search_retries_total",
			Help:      "Similarity RPC retries after a connection reset",
		},
	)

	IntentFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intent_fallback_total",
			Help:      "Intent extractions that fell back to the raw query",
		},
		[]string{"reason"},
	)

	FunctionCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "function_calls_total",
			Help:      "Function calls executed by the router",
		},
		[]string{"function", "code"},
	)

	FunctionCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "function_call_duration_seconds",
			Help:      "Function call duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"function"},
	)

	OrdersPlacedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Orders placed successfully",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers search and function-call metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchFallbackTotal)
	prometheus.MustRegister(VectorSearchRetriesTotal)
	prometheus.MustRegister(IntentFallbackTotal)
	prometheus.MustRegister(FunctionCallsTotal)
	prometheus.MustRegister(FunctionCallDuration)
	prometheus.MustRegister(OrdersPlacedTotal)
	pipelineMetricsRegistered = true
}
