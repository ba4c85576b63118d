// Package registry tracks which drivers and passengers are currently
// connected, where each driver is, and whether it can take a trip.
// Everything here is volatile: a restart empties the registry.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/models"
	"github.com/gothenburg-taxi/dispatch-service/internal/domain/types"
	"github.com/gothenburg-taxi/dispatch-service/pkg/logger"
	wrap "github.com/gothenburg-taxi/dispatch-service/pkg/logger/wrapper"
	"github.com/gothenburg-taxi/dispatch-service/pkg/metrics"
)

type Registry struct {
	mu         sync.Mutex
	drivers    map[string]*models.DriverSession
	passengers map[string]models.PassengerSession

	service string
	l       logger.Logger
}

func New(service string, l logger.Logger) *Registry {
	return &Registry{
		drivers:    make(map[string]*models.DriverSession),
		passengers: make(map[string]models.PassengerSession),
		service:    service,
		l:          l,
	}
}

// RegisterDriver inserts or replaces the driver's session and marks the
// driver available. Connecting twice with the same id is not an error.
func (r *Registry) RegisterDriver(ctx context.Context, driverID string, loc models.Location, vehicle models.VehicleInfo, sessionID string) {
	r.mu.Lock()
	r.drivers[driverID] = &models.DriverSession{
		DriverID:    driverID,
		SessionID:   sessionID,
		Location:    loc,
		Status:      types.DriverAvailable,
		Vehicle:     vehicle.WithDefaults(driverID),
		ConnectedAt: time.Now(),
	}
	count := len(r.drivers)
	r.mu.Unlock()

	metrics.DriversOnlineGauge.WithLabelValues(r.service).Set(float64(count))

	ctx = wrap.WithDriverID(wrap.WithAction(ctx, "driver_connected"), driverID)
	r.l.Info(ctx, "driver connected", "license_plate", vehicle.WithDefaults(driverID).LicensePlate)
}

// RegisterPassenger inserts or replaces the passenger's session mapping.
func (r *Registry) RegisterPassenger(ctx context.Context, userID, sessionID string) {
	r.mu.Lock()
	r.passengers[userID] = models.PassengerSession{UserID: userID, SessionID: sessionID}
	count := len(r.passengers)
	r.mu.Unlock()

	metrics.PassengersOnlineGauge.WithLabelValues(r.service).Set(float64(count))

	r.l.Info(wrap.WithAction(ctx, "passenger_connected"), "passenger connected", "user_id", userID)
}

// UpdateDriverLocation records a driver's new position. An unknown driver
// is silently ignored; the second return value reports whether the driver
// was found so the caller can skip the broadcast.
func (r *Registry) UpdateDriverLocation(ctx context.Context, driverID string, loc models.Location) (models.DriverSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	driver, ok := r.drivers[driverID]
	if !ok {
		return models.DriverSession{}, false
	}

	driver.Location = loc
	driver.LastLocationUpdate = time.Now()
	return *driver, true
}

// SetDriverAvailability flips a driver between available and busy.
func (r *Registry) SetDriverAvailability(driverID string, status types.DriverStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if driver, ok := r.drivers[driverID]; ok {
		driver.Status = status
	}
}

// RemoveSession resolves a transport session handle back to its owner and
// removes it. A linear scan is fine at this scale. The owner's entity type
// and id are returned so the caller can log who left.
//
// Removing a driver does NOT release an active trip assignment: the driver
// is expected to reconnect and resume. See the assignment guard.
func (r *Registry) RemoveSession(ctx context.Context, sessionID string) (types.EntityType, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, driver := range r.drivers {
		if driver.SessionID == sessionID {
			delete(r.drivers, id)
			metrics.DriversOnlineGauge.WithLabelValues(r.service).Set(float64(len(r.drivers)))
			r.l.Info(wrap.WithDriverID(wrap.WithAction(ctx, "driver_disconnected"), id), "driver disconnected")
			return types.Driver, id, true
		}
	}

	for id, p := range r.passengers {
		if p.SessionID == sessionID {
			delete(r.passengers, id)
			metrics.PassengersOnlineGauge.WithLabelValues(r.service).Set(float64(len(r.passengers)))
			r.l.Info(wrap.WithAction(ctx, "passenger_disconnected"), "passenger disconnected", "user_id", id)
			return types.Passenger, id, true
		}
	}

	return "", "", false
}

// GetDriver returns the driver's session, if connected.
func (r *Registry) GetDriver(driverID string) (models.DriverSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	driver, ok := r.drivers[driverID]
	if !ok {
		return models.DriverSession{}, false
	}
	return *driver, true
}

// ListDrivers returns a snapshot of every connected driver.
func (r *Registry) ListDrivers() []models.DriverSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.DriverSession, 0, len(r.drivers))
	for _, driver := range r.drivers {
		out = append(out, *driver)
	}
	return out
}

// AvailableDrivers returns a snapshot of drivers able to take a trip.
func (r *Registry) AvailableDrivers() []models.DriverSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.DriverSession
	for _, driver := range r.drivers {
		if driver.Status == types.DriverAvailable {
			out = append(out, *driver)
		}
	}
	return out
}

// IsPassengerConnected reports whether the user has a live session.
func (r *Registry) IsPassengerConnected(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.passengers[userID]
	return ok
}

// Counts returns the number of connected drivers and passengers.
func (r *Registry) Counts() (drivers, passengers int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.drivers), len(r.passengers)
}
