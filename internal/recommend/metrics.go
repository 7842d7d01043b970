package recommend

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type engineMetrics struct {
	feedRequests   prometheus.Counter
	feedDuration   prometheus.Histogram
	poolCandidates *prometheus.CounterVec
	poolFailures   *prometheus.CounterVec
}

// Metrics live on the default registry and are shared by every engine
// instance in the process.
var defaultMetrics = &engineMetrics{
	feedRequests: promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_requests_total",
		Help: "Number of feed requests served.",
	}),
	feedDuration: promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feed_request_duration_seconds",
		Help:    "Feed pipeline latency.",
		Buckets: prometheus.DefBuckets,
	}),
	poolCandidates: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_pool_candidates_total",
		Help: "Candidates produced per retrieval pool.",
	}, []string{"pool"}),
	poolFailures: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_pool_failures_total",
		Help: "Pool fetches that failed and were skipped.",
	}, []string{"pool"}),
}
