package rpc

import "github.com/prometheus/client_golang/prometheus"

var (
	// rpcCalls counts calls by domain, operation, and outcome
	// ("ok" or the FailureKind name).
	rpcCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpc_calls_total",
			Help: "Total number of downstream RPC calls.",
		},
		[]string{"domain", "operation", "outcome"},
	)

	rpcLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rpc_call_duration_seconds",
			Help:    "Duration of downstream RPC calls in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		},
		[]string{"domain", "operation"},
	)

	rpcPending = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rpc_pending_calls",
			Help: "Current number of calls awaiting a reply.",
		},
		[]string{"domain"},
	)

	rpcLateReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpc_late_replies_total",
			Help: "Replies dropped because their call had already resolved.",
		},
		[]string{"domain"},
	)
)

func init() {
	prometheus.MustRegister(rpcCalls, rpcLatency, rpcPending, rpcLateReplies)
}
