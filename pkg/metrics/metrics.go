package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
		[]string{"service"},
	)

	// Business metrics
	DriversOnlineGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "drivers_online_total",
			Help: "Current number of connected drivers",
		},
		[]string{"service"},
	)

	PassengersOnlineGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "passengers_online_total",
			Help: "Current number of connected passengers",
		},
		[]string{"service"},
	)

	SharedTripsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shared_trips_total",
			Help: "Current number of shared trips by status",
		},
		[]string{"service", "status"},
	)

	SharedTripsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shared_trips_created_total",
			Help: "Total number of shared trips created",
		},
		[]string{"service", "provenance"},
	)

	AssignmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trip_assignments_total",
			Help: "Total number of driver accept attempts",
		},
		[]string{"service", "outcome"},
	)

	WebSocketConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_connections_total",
			Help: "Current number of active WebSocket connections",
		},
		[]string{"service"},
	)

	RabbitMQMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_messages_published_total",
			Help: "Total number of messages published to RabbitMQ",
		},
		[]string{"service", "queue", "status"},
	)

	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_requests_total",
			Help: "Total number of requests to the persistence backend",
		},
		[]string{"service", "operation", "status"},
	)
)

// RecordHTTPMetrics records HTTP request metrics
func RecordHTTPMetrics(service, method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	HttpRequestsTotal.WithLabelValues(service, method, path, status).Inc()
	HttpRequestDuration.WithLabelValues(service, method, path, status).Observe(duration.Seconds())
}

// RecordBackendRequest records a persistence-backend call outcome
func RecordBackendRequest(service, operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	BackendRequestsTotal.WithLabelValues(service, operation, status).Inc()
}

// RecordAssignment records the outcome of a driver accept attempt
func RecordAssignment(service, outcome string) {
	AssignmentsTotal.WithLabelValues(service, outcome).Inc()
}
