package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	authorizationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authorization_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"action", "decision"},
	)

	membersProvisioned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "members_provisioned_total",
			Help: "Total number of directory members provisioned",
		},
		[]string{"role", "sync"},
	)

	messagesRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_routed_total",
			Help: "Total number of messages classified and routed",
		},
		[]string{"type", "priority"},
	)

	assistRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assist_requests_total",
			Help: "Total number of content-assist requests",
		},
		[]string{"source"},
	)

	notificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Total number of external notifications dispatched",
		},
		[]string{"event_type", "status"},
	)

	realtimeClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_clients_connected",
			Help: "Number of connected realtime dashboard clients",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes URL paths for metrics to avoid cardinality explosion
func normalizePath(path string) string {
	if len(path) > 100 {
		return "/api/..."
	}
	return path
}

// --- Business metric helpers ---

// RecordAuthorizationDecision records an authorization decision
func RecordAuthorizationDecision(action string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	authorizationDecisions.WithLabelValues(action, decision).Inc()
}

// RecordMemberProvisioned records a provisioned directory member
func RecordMemberProvisioned(role string, pendingSync bool) {
	sync := "synced"
	if pendingSync {
		sync = "pending"
	}
	membersProvisioned.WithLabelValues(role, sync).Inc()
}

// RecordMessageRouted records a classified message
func RecordMessageRouted(msgType, priority string) {
	messagesRouted.WithLabelValues(msgType, priority).Inc()
}

// RecordAssistRequest records a content-assist result by source
// (model or fallback)
func RecordAssistRequest(source string) {
	assistRequests.WithLabelValues(source).Inc()
}

// RecordNotificationDispatched records an external notification attempt
func RecordNotificationDispatched(eventType, status string) {
	notificationsDispatched.WithLabelValues(eventType, status).Inc()
}

// RecordRealtimeClients records the connected realtime client count
func RecordRealtimeClients(count int) {
	realtimeClients.Set(float64(count))
}
