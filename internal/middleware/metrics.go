package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metrics for application monitoring. All metrics are
// registered in the default registry and exposed via /metrics.

var (
	// httpRequestsTotal counts all HTTP requests by method, path, and status.
	//
	// Labels: method (GET, POST, etc.), path (/api/v1/tasks), status (200, 404, 500)
	// Type: Counter
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration measures request processing time.
	// Use for latency analysis and SLO tracking (P50, P95, P99).
	//
	// Labels: method, path
	// Type: Histogram
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// httpResponseSize tracks response body sizes for bandwidth monitoring.
	//
	// Labels: method, path
	// Type: Histogram
	httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// notificationsSentTotal counts notification deliveries by channel
	// and result. Use for monitoring notifier health and FCM token churn.
	//
	// Labels: channel (push, email), result (success, failure, skipped)
	// Type: Counter
	notificationsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notification deliveries",
		},
		[]string{"channel", "result"},
	)

	// calendarSyncTotal counts Google sync runs by direction and result.
	//
	// Labels: direction (pull, push), result (success, failure)
	// Type: Counter
	calendarSyncTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendar_sync_total",
			Help: "Total number of Google sync runs",
		},
		[]string{"direction", "result"},
	)

	// externalCallDuration measures calls to external services.
	//
	// Labels: service (firestore, redis, google, sendgrid, fcm), status (success, error)
	// Type: Histogram
	externalCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "external_call_duration_seconds",
			Help:    "External service call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpResponseSize)
	prometheus.MustRegister(notificationsSentTotal)
	prometheus.MustRegister(calendarSyncTotal)
	prometheus.MustRegister(externalCallDuration)
}

// Metrics creates middleware for collecting HTTP metrics.
// Records request count, duration, and response size for every request.
//
// Example Prometheus queries:
//
//	# Request rate by endpoint
//	rate(http_requests_total[5m])
//
//	# P95 latency
//	histogram_quantile(0.95, rate(http_request_duration_seconds_bucket[5m]))
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(ww.Status())

			httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			httpResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(ww.BytesWritten()))
		})
	}
}

// MetricsHandler returns the Prometheus metrics HTTP handler.
// Exposes all registered metrics in Prometheus text format for scraping.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// IncrementNotificationSent increments the notification delivery counter.
// Call from the push and email services after each delivery attempt.
//
// Parameters:
//   - channel: Delivery channel ("push" or "email")
//   - result: Outcome ("success", "failure", "skipped")
func IncrementNotificationSent(channel, result string) {
	notificationsSentTotal.WithLabelValues(channel, result).Inc()
}

// IncrementCalendarSync increments the Google sync counter.
//
// Parameters:
//   - direction: "pull" (Google Tasks import) or "push" (Calendar export)
//   - result: "success" or "failure"
func IncrementCalendarSync(direction, result string) {
	calendarSyncTotal.WithLabelValues(direction, result).Inc()
}

// RecordExternalCall records the duration of a call to an external
// service.
//
// Example:
//
//	start := time.Now()
//	err := mailer.Send(ctx, msg)
//	status := "success"
//	if err != nil {
//	    status = "error"
//	}
//	middleware.RecordExternalCall("sendgrid", status, time.Since(start))
func RecordExternalCall(service, status string, duration time.Duration) {
	externalCallDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}
