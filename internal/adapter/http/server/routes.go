package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// setupRoutes - setups http routes
func (a *API) setupRoutes() {
	// System Health
	a.mux.HandleFunc("/health", a.routes.health.HealthCheck)
	a.mux.HandleFunc("GET /status", a.routes.dispatch.GetStatus)

	// Realtime sessions
	a.mux.HandleFunc("GET /ws/drivers/{driver_id}", a.routes.sessions.HandleDriverWS)
	a.mux.HandleFunc("GET /ws/passengers/{user_id}", a.routes.sessions.HandlePassengerWS)

	// Dashboard reads
	a.mux.HandleFunc("GET /api/active-drivers", a.routes.dispatch.GetActiveDrivers)
	a.mux.HandleFunc("GET /api/shared-trips", a.routes.dispatch.GetSharedTrips)
	a.mux.HandleFunc("GET /api/pending-orders", a.routes.dispatch.GetPendingOrders)

	// Trip dispatch operations
	a.mux.HandleFunc("POST /api/shared-trip-created", a.routes.dispatch.SharedTripCreated)
	a.mux.HandleFunc("POST /api/matchmaking", a.routes.dispatch.RunMatchmaking)
	a.mux.HandleFunc("POST /api/manual-merge", a.routes.dispatch.ManualMerge)
	a.mux.HandleFunc("POST /api/send-individual", a.routes.dispatch.SendIndividual)
	a.mux.HandleFunc("POST /api/trip-assigned", a.routes.dispatch.TripAssigned)

	setupSwaggerRoutes(a.mux)
	setupMetricsRoute(a.mux)
}

// setupSwaggerRoutes configures the Swagger UI endpoint
func setupSwaggerRoutes(mux *http.ServeMux) {
	swaggerURL := httpSwagger.InstanceName("dispatch")
	mux.HandleFunc("/swagger/", httpSwagger.Handler(swaggerURL))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func setupMetricsRoute(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
}
