package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPCCallsTotal tracks node RPC calls per method
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "banter_rpc_calls_total",
			Help: "Total number of node RPC calls",
		},
		[]string{"method"},
	)

	// RPCErrorsTotal tracks node RPC errors per method
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "banter_rpc_errors_total",
			Help: "Total number of node RPC errors",
		},
		[]string{"method"},
	)

	// RPCLatency tracks node RPC call latency
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "banter_rpc_latency_seconds",
			Help:    "Node RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// EventsDecodedTotal tracks decoded contract events per event name
	EventsDecodedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "banter_events_decoded_total",
			Help: "Total number of successfully decoded contract events",
		},
		[]string{"event"},
	)

	// EventsDroppedTotal tracks log entries that did not match the schema
	EventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "banter_events_dropped_total",
			Help: "Total number of log entries dropped at the decode boundary",
		},
		[]string{"event"},
	)

	// TransactionsSubmitted tracks signed transaction submissions
	TransactionsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "banter_transactions_submitted_total",
			Help: "Total number of signed transactions submitted",
		},
	)

	// Subscribers tracks active repository subscribers per resource
	Subscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "banter_repository_subscribers",
			Help: "Active repository subscribers",
		},
		[]string{"resource"},
	)

	// UpstreamStarts tracks repository upstream subscription starts
	UpstreamStarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "banter_repository_upstream_starts_total",
			Help: "Total number of upstream subscription starts",
		},
		[]string{"resource"},
	)
)
