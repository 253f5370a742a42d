package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type artifactCounter interface {
	Stats() (int, int64)
}

// MetricsService encapsulates Prometheus instrumentation for the report
// lifecycle.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	reportsTotal    prometheus.Counter
	reportFailures  *prometheus.CounterVec
	sweepDeleted    prometheus.Counter
}

// NewMetricsService registers the core Prometheus collectors. The artifact
// gauges read straight from the repository so they never go stale.
func NewMetricsService(artifacts artifactCounter) *MetricsService {
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

	reportsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reports_generated_total",
		Help: "Total number of successfully generated report artifacts",
	})

	reportFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_failures_total",
		Help: "Total number of failed report generations by error code",
	}, []string{"code"})

	sweepDeleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "artifacts_swept_total",
		Help: "Total number of artifacts reclaimed by expiry",
	})

	activeArtifacts := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "artifacts_active",
		Help: "Number of currently active report artifacts",
	}, func() float64 {
		if artifacts == nil {
			return 0
		}
		count, _ := artifacts.Stats()
		return float64(count)
	})

	artifactBytes := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "artifacts_bytes",
		Help: "Combined size of active report artifacts in bytes",
	}, func() float64 {
		if artifacts == nil {
			return 0
		}
		_, bytes := artifacts.Stats()
		return float64(bytes)
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, reportsTotal, reportFailures, sweepDeleted, activeArtifacts, artifactBytes, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		reportsTotal:    reportsTotal,
		reportFailures:  reportFailures,
		sweepDeleted:    sweepDeleted,
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

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveReportGenerated counts one successful generation.
func (m *MetricsService) ObserveReportGenerated() {
	if m == nil {
		return
	}
	m.reportsTotal.Inc()
}

// ObserveReportFailure counts one failed generation by error code.
func (m *MetricsService) ObserveReportFailure(code string) {
	if m == nil {
		return
	}
	m.reportFailures.WithLabelValues(code).Inc()
}

// ObserveSwept counts reclaimed artifacts.
func (m *MetricsService) ObserveSwept(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.sweepDeleted.Add(float64(count))
}
