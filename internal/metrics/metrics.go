package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_backend_request_duration_seconds",
			Help:    "Latency of calls to the university backend",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource", "method", "status"},
	)

	JoinMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_join_misses_total",
			Help: "Foreign keys that did not resolve while joining backend collections",
		},
		[]string{"entity", "referrer"},
	)

	Mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_mutations_total",
			Help: "Dashboard mutations by outcome",
		},
		[]string{"dashboard", "action", "outcome"},
	)

	StaleRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_stale_refreshes_total",
			Help: "Dashboard refreshes discarded because a newer one had started",
		},
		[]string{"dashboard"},
	)

	QueueMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_queue_messages_total",
			Help: "Audit queue messages by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_job_runs_total",
			Help: "Scheduled job runs by outcome",
		},
		[]string{"job", "outcome"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "Portal HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
