package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/swimcoach/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the BFF and its upstream calls.
// It implements gateway.Observer.
type MetricsService struct {
	registry            *prometheus.Registry
	handler             http.Handler
	requestDuration     *prometheus.HistogramVec
	requestTotal        *prometheus.CounterVec
	upstreamDuration    *prometheus.HistogramVec
	upstreamRetries     *prometheus.CounterVec
	upstreamFailures    *prometheus.CounterVec
	consecutiveFailures prometheus.Gauge
	degradedFetches     *prometheus.CounterVec
	cacheLatency        prometheus.Observer
	cacheWrite          prometheus.Observer
	cacheHitRatio       prometheus.Gauge
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	driftItems          *prometheus.GaugeVec
	reconcileRuns       *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of BFF HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of BFF HTTP requests",
	}, []string{"method", "path", "status"})

	upstreamDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_attempt_duration_seconds",
		Help:    "Duration of individual backend attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	upstreamRetries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_retries_total",
		Help: "Backend attempts repeated after a failure",
	}, []string{"method", "route"})

	upstreamFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_failures_total",
		Help: "Backend calls that failed after exhausting their attempts",
	}, []string{"method", "route", "code"})

	consecutiveFailures := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "upstream_consecutive_failures",
		Help: "Failed backend attempts since the last success",
	})

	degradedFetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "degraded_fetches_total",
		Help: "List fetches replaced by an empty result after a failure",
	}, []string{"resource"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	driftItems := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ledger_drift_items",
		Help: "Drift findings in the most recent reconciliation, by kind",
	}, []string{"kind"})

	reconcileRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_reconciliations_total",
		Help: "Reconciliation runs by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, upstreamDuration, upstreamRetries, upstreamFailures,
		consecutiveFailures, degradedFetches, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		driftItems, reconcileRuns, goroutines)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		upstreamDuration:    upstreamDuration,
		upstreamRetries:     upstreamRetries,
		upstreamFailures:    upstreamFailures,
		consecutiveFailures: consecutiveFailures,
		degradedFetches:     degradedFetches,
		cacheLatency:        cacheLatency,
		cacheWrite:          cacheWrite,
		cacheHitRatio:       cacheHitRatio,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
		driftItems:          driftItems,
		reconcileRuns:       reconcileRuns,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records BFF request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveUpstreamAttempt records one backend attempt. Status 0 means the transport failed.
func (m *MetricsService) ObserveUpstreamAttempt(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.upstreamDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// ObserveUpstreamRetry counts a repeated attempt.
func (m *MetricsService) ObserveUpstreamRetry(method, route string) {
	if m == nil {
		return
	}
	m.upstreamRetries.WithLabelValues(method, route).Inc()
}

// ObserveUpstreamFailure counts a call surfaced to the caller as an error.
func (m *MetricsService) ObserveUpstreamFailure(method, route, code string) {
	if m == nil {
		return
	}
	m.upstreamFailures.WithLabelValues(method, route, code).Inc()
}

// SetConsecutiveFailures mirrors the gateway's shared failure counter.
func (m *MetricsService) SetConsecutiveFailures(n int) {
	if m == nil {
		return
	}
	m.consecutiveFailures.Set(float64(n))
}

// RecordDegradedFetch counts a list fetch that fell back to an empty result.
func (m *MetricsService) RecordDegradedFetch(resource string) {
	if m == nil {
		return
	}
	m.degradedFetches.WithLabelValues(resource).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordDrift publishes the per-kind counts of a finished reconciliation.
func (m *MetricsService) RecordDrift(report models.DriftReport) {
	if m == nil {
		return
	}
	counts := map[models.DriftKind]int{
		models.DriftAttendedWithoutNotes:   0,
		models.DriftNotesWithoutAttendance: 0,
		models.DriftBeforeEnrollmentStart:  0,
		models.DriftAggregateMismatch:      0,
		models.DriftDuplicateSession:       0,
	}
	for _, item := range report.Items {
		counts[item.Kind]++
	}
	for kind, n := range counts {
		m.driftItems.WithLabelValues(string(kind)).Set(float64(n))
	}
	outcome := "clean"
	if !report.Clean() {
		outcome = "drift"
	}
	m.reconcileRuns.WithLabelValues(outcome).Inc()
}

// RecordReconcileFailure counts a reconciliation that could not run.
func (m *MetricsService) RecordReconcileFailure() {
	if m == nil {
		return
	}
	m.reconcileRuns.WithLabelValues("failed").Inc()
}
