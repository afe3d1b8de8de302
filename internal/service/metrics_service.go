package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// tutoring domain. All methods tolerate a nil receiver so instrumentation
// can be disabled in tests without nil checks at call sites.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	sessionsStarted   prometheus.Counter
	sessionsEnded     prometheus.Counter
	quotaDenials      *prometheus.CounterVec
	retrievalDuration prometheus.Observer
	retrievalEmpty    prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	sessionsStarted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tutoring_sessions_started_total",
		Help: "Total number of tutoring sessions that went live",
	})

	sessionsEnded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tutoring_sessions_ended_total",
		Help: "Total number of tutoring sessions ended",
	})

	quotaDenials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quota_denials_total",
		Help: "Session creations denied by the quota ledger",
	}, []string{"reason"})

	retrievalDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "retrieval_duration_seconds",
		Help:    "End-to-end latency of reference retrieval, embedding included",
		Buckets: prometheus.DefBuckets,
	})

	retrievalEmpty := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "retrieval_empty_total",
		Help: "Retrieval invocations that found no matching chunks",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, sessionsStarted, sessionsEnded, quotaDenials, retrievalDuration, retrievalEmpty, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		sessionsStarted:   sessionsStarted,
		sessionsEnded:     sessionsEnded,
		quotaDenials:      quotaDenials,
		retrievalDuration: retrievalDuration,
		retrievalEmpty:    retrievalEmpty,
	}
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// SessionStarted counts a session going live.
func (m *MetricsService) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

// SessionEnded counts a session ending.
func (m *MetricsService) SessionEnded() {
	if m == nil {
		return
	}
	m.sessionsEnded.Inc()
}

// QuotaDenied counts a quota denial by its ledger reason.
func (m *MetricsService) QuotaDenied(reason string) {
	if m == nil {
		return
	}
	m.quotaDenials.WithLabelValues(reason).Inc()
}

// ObserveRetrieval records one retrieval invocation.
func (m *MetricsService) ObserveRetrieval(duration time.Duration, results int) {
	if m == nil {
		return
	}
	m.retrievalDuration.Observe(duration.Seconds())
	if results == 0 {
		m.retrievalEmpty.Inc()
	}
}
