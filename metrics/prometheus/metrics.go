// Package prometheus exports cart engine metrics: lock contention, queue
// pressure, sync latency, cache effectiveness and validation outcomes.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "smartcart"

var (
	// lockHoldDuration is a histogram of how long locks were held.
	lockHoldDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lock_hold_duration_seconds",
			Help:      "Histogram of lock hold duration in seconds",
			Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
		},
		[]string{"operation"},
	)

	// locksTotal is a counter of lock lifecycle transitions.
	locksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locks_total",
			Help:      "Total lock acquisitions, releases and forced expiries",
		},
		[]string{"transition"}, // transition: acquired, released, expired
	)

	// queueDepth is a gauge of the deepest observed operation queue.
	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Depth of the operation queue after the last transition",
		},
	)

	// queueOperationsTotal is a counter of queue transitions.
	queueOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_operations_total",
			Help:      "Total queued-operation transitions",
		},
		[]string{"transition"}, // transition: enqueued, rejected, retried, dropped
	)

	// syncDuration is a histogram of cart state sync duration.
	syncDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Histogram of cart state sync duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	// syncsTotal is a counter of cart state syncs.
	syncsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "syncs_total",
			Help:      "Total cart state syncs",
		},
		[]string{"operation", "status"}, // status: success, error
	)

	// cacheLookupsTotal is a counter of cart state cache outcomes.
	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total cart state cache lookups by outcome",
		},
		[]string{"outcome"}, // outcome: hit, miss, refreshed
	)

	// validationsTotal is a counter of validation passes over cached states.
	validationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Total validation passes over cached cart states",
		},
		[]string{"status"}, // status: passed, failed
	)

	// inconsistenciesTotal is a counter of detected cache inconsistencies.
	inconsistenciesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inconsistencies_total",
			Help:      "Total checksum and total mismatches found in cached states",
		},
		[]string{"severity"}, // severity: error, warning
	)

	// routingDecisionsTotal is a counter of routing decisions.
	routingDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_decisions_total",
			Help:      "Total routing decisions by path and action",
		},
		[]string{"path", "action"},
	)

	// routingConfidence is a histogram of routing decision confidence.
	routingConfidence = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "routing_confidence",
			Help:      "Histogram of routing decision confidence",
			Buckets:   []float64{.1, .2, .3, .4, .5, .6, .7, .8, .9, 1},
		},
		[]string{"path"},
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		lockHoldDuration,
		locksTotal,
		queueDepth,
		queueOperationsTotal,
		syncDuration,
		syncsTotal,
		cacheLookupsTotal,
		validationsTotal,
		inconsistenciesTotal,
		routingDecisionsTotal,
		routingConfidence,
	}
)

// RecordLockAcquired records a lock acquisition.
func RecordLockAcquired() {
	locksTotal.WithLabelValues("acquired").Inc()
}

// RecordLockReleased records a lock release and how long it was held.
func RecordLockReleased(operation string, heldSeconds float64) {
	locksTotal.WithLabelValues("released").Inc()
	lockHoldDuration.WithLabelValues(operation).Observe(heldSeconds)
}

// RecordLockExpired records a lock force-expired by the stale sweep.
func RecordLockExpired(operation string, heldSeconds float64) {
	locksTotal.WithLabelValues("expired").Inc()
	lockHoldDuration.WithLabelValues(operation).Observe(heldSeconds)
}

// RecordQueueTransition records a queued-operation transition and the
// resulting queue depth.
func RecordQueueTransition(transition string, depth int) {
	queueOperationsTotal.WithLabelValues(transition).Inc()
	queueDepth.Set(float64(depth))
}

// RecordSync records a cart state sync.
func RecordSync(operation, status string, durationSeconds float64) {
	syncDuration.WithLabelValues(operation).Observe(durationSeconds)
	syncsTotal.WithLabelValues(operation, status).Inc()
}

// RecordCacheLookup records a cache outcome.
func RecordCacheLookup(outcome string) {
	cacheLookupsTotal.WithLabelValues(outcome).Inc()
}

// RecordValidation records a validation pass and its findings.
func RecordValidation(errors, warnings int) {
	status := statusPassed
	if errors > 0 {
		status = statusFailed
	}
	validationsTotal.WithLabelValues(status).Inc()
	if errors > 0 {
		inconsistenciesTotal.WithLabelValues("error").Add(float64(errors))
	}
	if warnings > 0 {
		inconsistenciesTotal.WithLabelValues("warning").Add(float64(warnings))
	}
}

// RecordRoutingDecision records a routing decision.
func RecordRoutingDecision(path, action string, confidence float64) {
	routingDecisionsTotal.WithLabelValues(path, action).Inc()
	routingConfidence.WithLabelValues(path).Observe(confidence)
}
