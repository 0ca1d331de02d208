package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission metrics - Track kudos transactions issued by this process
var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kudos_submissions_total",
			Help: "Total number of sendKudos invocations by outcome",
		},
		[]string{"outcome"},
	)

	TransactionsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kudos_transactions_submitted_total",
			Help: "Total number of transactions submitted by leg (approval, send)",
		},
		[]string{"leg"},
	)

	ApprovalsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kudos_approvals_skipped_total",
		Help: "Number of sends where the existing allowance already covered the amount",
	})

	AllowanceReadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kudos_allowance_read_failures_total",
		Help: "Number of allowance reads that failed and were treated as zero",
	})
)

// Read metrics - Track contract read calls
var (
	ReadCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kudos_read_calls_total",
			Help: "Total number of contract read calls by method and result",
		},
		[]string{"method", "result"},
	)

	ReadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kudos_read_duration_seconds",
			Help:    "Time taken by contract read calls, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	ReadRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kudos_read_retries_total",
		Help: "Number of contract reads retried after a transient failure",
	})

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kudos_record_cache_lookups_total",
			Help: "Record cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
)

// Event metrics - Track observed contract events
var (
	EventsObserved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kudos_events_observed_total",
			Help: "Total number of contract events observed by type",
		},
		[]string{"event_type"},
	)

	EventsJournaled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kudos_events_journaled_total",
			Help: "Total number of observed events written to the journal by type",
		},
		[]string{"event_type"},
	)
)

// Platform metrics - Last snapshot of the contract aggregates
var (
	PlatformTotalKudos = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kudos_platform_total_kudos",
		Help: "Total kudos recorded by the contract at the last snapshot",
	})

	PlatformUserCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kudos_platform_user_count",
		Help: "Distinct users recorded by the contract at the last snapshot",
	})

	PlatformTotalAmount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kudos_platform_total_amount_tokens",
		Help: "Total amount sent through the contract at the last snapshot, in whole tokens",
	})
)

// Error metrics - Track failures
var (
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kudos_errors_total",
			Help: "Total number of errors by component",
		},
		[]string{"component"},
	)
)
