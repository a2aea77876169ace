package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation. All methods are
// safe on a nil receiver so callers need no wiring in tests.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	listingsCreated   prometheus.Counter
	listingViews      prometheus.Counter
	paymentsCompleted prometheus.Counter
	listingsExpired   prometheus.Counter
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

	listingsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "listings_created_total",
		Help: "Total listings inserted",
	})

	listingViews := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "listing_views_total",
		Help: "Total successful view-counter increments",
	})

	paymentsCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_completed_total",
		Help: "Total payment intents completed via webhook",
	})

	listingsExpired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "listings_expired_total",
		Help: "Total listings expired by the lifecycle sweep",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, listingsCreated, listingViews, paymentsCompleted, listingsExpired, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		listingsCreated:   listingsCreated,
		listingViews:      listingViews,
		paymentsCompleted: paymentsCompleted,
		listingsExpired:   listingsExpired,
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

// ListingCreated counts a listing insert.
func (m *MetricsService) ListingCreated() {
	if m == nil {
		return
	}
	m.listingsCreated.Inc()
}

// ListingViewed counts a successful view increment.
func (m *MetricsService) ListingViewed() {
	if m == nil {
		return
	}
	m.listingViews.Inc()
}

// PaymentCompleted counts an applied checkout completion.
func (m *MetricsService) PaymentCompleted() {
	if m == nil {
		return
	}
	m.paymentsCompleted.Inc()
}

// ListingsExpired counts listings swept to expired.
func (m *MetricsService) ListingsExpired(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.listingsExpired.Add(float64(n))
}
