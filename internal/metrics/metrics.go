// Package metrics exposes Prometheus collectors for the crawl config service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	configsAddedTotal          prometheus.Counter
	configsDeletedTotal        prometheus.Counter
	crawlsStartedTotal         prometheus.Counter
	managerFailuresTotal       *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		configsAddedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawlconfigs_added_total",
				Help: "Total number of crawl configurations created.",
			},
		)

		configsDeletedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawlconfigs_deleted_total",
				Help: "Total number of crawl configurations deleted.",
			},
		)

		crawlsStartedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawlconfigs_crawls_started_total",
				Help: "Total number of ad hoc crawls started from a configuration.",
			},
		)

		managerFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawlconfigs_manager_failures_total",
				Help: "Total orchestrator call failures, labeled by operation.",
			},
			[]string{"op"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordConfigAdded increments the created-configurations counter.
func RecordConfigAdded() {
	if configsAddedTotal != nil {
		configsAddedTotal.Inc()
	}
}

// RecordConfigDeleted increments the deleted-configurations counter.
func RecordConfigDeleted() {
	if configsDeletedTotal != nil {
		configsDeletedTotal.Inc()
	}
}

// RecordConfigsDeleted adds n to the deleted-configurations counter.
func RecordConfigsDeleted(n int64) {
	if configsDeletedTotal != nil && n > 0 {
		configsDeletedTotal.Add(float64(n))
	}
}

// RecordCrawlStarted increments the ad hoc crawl counter.
func RecordCrawlStarted() {
	if crawlsStartedTotal != nil {
		crawlsStartedTotal.Inc()
	}
}

// RecordManagerFailure increments the orchestrator failure counter for op.
func RecordManagerFailure(op string) {
	if managerFailuresTotal != nil {
		managerFailuresTotal.WithLabelValues(op).Inc()
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
