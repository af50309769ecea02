package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request duration (seconds)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Instances created by materialization, by trigger source
	DailyTasksCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daily_tasks_created_total",
			Help: "Total number of task instances created by daily materialization",
		},
		[]string{"source"}, // source: cron, api, fallback, cli
	)

	DailyCheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "daily_check_duration_seconds",
			Help:    "Duration of one family's daily materialization",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"result"}, // result: created, noop, error
	)

	BatchFamilyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daily_batch_family_failures_total",
			Help: "Families that failed during a batch run, by error class",
		},
		[]string{"error_type"},
	)

	BatchRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daily_batch_runs_total",
			Help: "Batch orchestrator runs",
		},
		[]string{"status"}, // status: completed, partial, failed
	)

	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Queries slower than the configured threshold",
		},
	)

	SlowQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "db_slow_query_duration_seconds",
			Help:    "Duration of slow queries in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~12s
		},
	)

	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_events_published_total",
			Help: "Outbox events handed to the broker",
		},
		[]string{"status"}, // status: sent, failed, rejected
	)
)

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func AddDailyTasksCreated(source string, n int) {
	if n > 0 {
		DailyTasksCreated.WithLabelValues(source).Add(float64(n))
	}
}

func RecordDailyCheck(result string, duration time.Duration) {
	DailyCheckDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func IncrementBatchFamilyFailure(errorType string) {
	BatchFamilyFailures.WithLabelValues(errorType).Inc()
}

func IncrementBatchRun(status string) {
	BatchRuns.WithLabelValues(status).Inc()
}

// IncrementSlowQuery is called by the pgx tracer. The statement is logged, not labelled.
func IncrementSlowQuery(duration time.Duration) {
	SlowQueryCount.Inc()
	SlowQueryDuration.Observe(duration.Seconds())
}

func IncrementOutboxPublished(status string) {
	OutboxPublished.WithLabelValues(status).Inc()
}
