package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts service operations by component, operation and outcome code.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_operations_total",
		Help: "Total number of service operations by outcome",
	}, []string{"component", "operation", "outcome"})

	// OperationLatency records service operation latency.
	OperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chirp_operation_latency_seconds",
		Help:    "Service operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation"})

	// CascadeFailures counts post deletes that stopped part-way.
	CascadeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chirp_cascade_failures_total",
		Help: "Total number of post deletes aborted with comments remaining",
	})

	// CommentCountRepairs counts recounts that changed a stored comment_count.
	CommentCountRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chirp_comment_count_repairs_total",
		Help: "Total number of comment_count values corrected by a recount",
	})

	// LikeToggleRetries counts membership flips that lost a race and were re-evaluated.
	LikeToggleRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chirp_like_toggle_retries_total",
		Help: "Total number of like toggles re-evaluated after a concurrent flip",
	})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// FeedCacheLookups counts feed cache hits and misses.
	FeedCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_feed_cache_lookups_total",
		Help: "Feed cache lookups by result",
	}, []string{"result"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chirp_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
