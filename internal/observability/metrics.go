// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Ledger metrics
	TransfersTotal    *prometheus.CounterVec
	TransferFailures  *prometheus.CounterVec
	ApprovalsTotal    prometheus.Counter
	DelegationsTotal  prometheus.Counter
	CheckpointsTotal  prometheus.Counter
	VoteQueriesTotal  *prometheus.CounterVec
	VoteQueryFailures prometheus.Counter

	// Swap metrics
	SwapsTotal    *prometheus.CounterVec
	SwapFailures  *prometheus.CounterVec
	PoolRemaining *prometheus.GaugeVec
	PoolOpen      prometheus.Gauge

	// Event plumbing metrics
	EventsEmitted  *prometheus.CounterVec
	WSSubscribers  prometheus.Gauge
	ArchiveFlushes *prometheus.CounterVec

	// API metrics
	RequestDuration *prometheus.HistogramVec
	CurrentBlock    prometheus.Gauge
}

// NewMetrics creates a Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_ledger"
	}

	return &Metrics{
		TransfersTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transfers_total",
			Help:      "Total number of settled transfers",
		}, []string{"token"}),
		TransferFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transfer_failures_total",
			Help:      "Total number of rejected transfers by reason",
		}, []string{"token", "reason"}),
		ApprovalsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "approvals_total",
			Help:      "Total number of allowance approvals",
		}),
		DelegationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "delegations_total",
			Help:      "Total number of delegation changes",
		}),
		CheckpointsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "checkpoint_writes_total",
			Help:      "Total number of vote checkpoint writes",
		}),
		VoteQueriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "vote_queries_total",
			Help:      "Total number of current/prior vote queries",
		}, []string{"kind"}),
		VoteQueryFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "vote_query_failures_total",
			Help:      "Total number of prior-vote queries about unsettled blocks",
		}),

		SwapsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "swaps_total",
			Help:      "Total number of settled swaps by direction",
		}, []string{"direction"}),
		SwapFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "swap_failures_total",
			Help:      "Total number of rejected swaps by reason",
		}, []string{"direction", "reason"}),
		PoolRemaining: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "pool_remaining",
			Help:      "Remaining pool inventory by side, in smallest units",
		}, []string{"side"}),
		PoolOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "pool_open",
			Help:      "1 while the pool accepts swaps, 0 after closing",
		}),

		EventsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "emitted_total",
			Help:      "Total number of events emitted by kind",
		}, []string{"kind"}),
		WSSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "ws_subscribers",
			Help:      "Current number of websocket event subscribers",
		}),
		ArchiveFlushes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "archive_flushes_total",
			Help:      "Total number of event archive flushes by status",
		}, []string{"status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration by endpoint",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		CurrentBlock: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "current_block",
			Help:      "Current block number of the ledger clock",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordArchiveFlush records an event archive flush attempt.
func RecordArchiveFlush(status string) {
	DefaultMetrics.ArchiveFlushes.WithLabelValues(status).Inc()
}
