// Package metrics exposes prometheus collectors for dispatch traffic,
// routing-table mutations, and the RPC surface.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prism",
			Subsystem: "router",
			Name:      "dispatches_total",
			Help:      "Dispatch attempts by outcome and cache source.",
		},
		[]string{"outcome", "cache"},
	)
	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prism",
			Subsystem: "router",
			Name:      "dispatch_duration_seconds",
			Help:      "Dispatch duration in seconds, module time included.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	mutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prism",
			Subsystem: "registry",
			Name:      "mutations_total",
			Help:      "Routing-table mutations by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)
	rpcRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prism",
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "JSON-RPC requests by method and outcome.",
		},
		[]string{"method", "outcome"},
	)
	rpcDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prism",
			Subsystem: "rpc",
			Name:      "request_duration_seconds",
			Help:      "JSON-RPC request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "outcome"},
	)
	rateLimitDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prism",
			Subsystem: "rpc",
			Name:      "rate_limit_decisions_total",
			Help:      "Rate limiter decisions by client class and outcome.",
		},
		[]string{"class", "outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(dispatches, dispatchDuration, mutations, rpcRequests, rpcDuration, rateLimitDecisions)
	})
}

func RecordDispatch(outcome string, cacheHit bool, duration time.Duration) {
	RegisterMetrics()
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	dispatches.WithLabelValues(outcome, cache).Inc()
	dispatchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func RecordMutation(op, outcome string) {
	RegisterMetrics()
	mutations.WithLabelValues(op, outcome).Inc()
}

// RecordRPCRequest tracks one JSON-RPC request. Outcome is "ok" for
// successes and the JSON-RPC error code for failures.
func RecordRPCRequest(method, outcome string, duration time.Duration) {
	RegisterMetrics()
	rpcRequests.WithLabelValues(method, outcome).Inc()
	rpcDuration.WithLabelValues(method, outcome).Observe(duration.Seconds())
}

func RecordRateLimit(class string, allowed bool) {
	RegisterMetrics()
	outcome := "allowed"
	if !allowed {
		outcome = "throttled"
	}
	rateLimitDecisions.WithLabelValues(class, outcome).Inc()
}
