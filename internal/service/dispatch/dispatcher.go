// Package dispatch is the single dispatch point of the coordination core:
// it translates inbound session events into calls on the registry, the trip
// store and the assignment guard, then fans out the outbound notifications.
// State is mutated first; notifications and backend calls happen after the
// mutation commits, never under a lock.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/models"
	"github.com/gothenburg-taxi/dispatch-service/internal/domain/types"
	"github.com/gothenburg-taxi/dispatch-service/internal/service/assignment"
	"github.com/gothenburg-taxi/dispatch-service/internal/service/matcher"
	"github.com/gothenburg-taxi/dispatch-service/internal/service/registry"
	"github.com/gothenburg-taxi/dispatch-service/internal/service/trips"
	"github.com/gothenburg-taxi/dispatch-service/pkg/logger"
	wrap "github.com/gothenburg-taxi/dispatch-service/pkg/logger/wrapper"
	"github.com/gothenburg-taxi/dispatch-service/pkg/metrics"
)

type Dispatcher struct {
	registry *registry.Registry
	trips    *trips.Store
	guard    *assignment.Guard
	matcher  *matcher.Matcher

	notifier  Notifier
	backend   BackendClient
	publisher Publisher

	// Legacy individual-trip records relayed by the backend through the
	// trip-assigned endpoint. Kept separate from the shared-trip store.
	activeMu    sync.Mutex
	activeTrips map[string]*models.ActiveTrip

	service string
	l       logger.Logger
}

func New(
	reg *registry.Registry,
	store *trips.Store,
	guard *assignment.Guard,
	m *matcher.Matcher,
	notifier Notifier,
	backend BackendClient,
	publisher Publisher,
	service string,
	l logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry:    reg,
		trips:       store,
		guard:       guard,
		matcher:     m,
		notifier:    notifier,
		backend:     backend,
		publisher:   publisher,
		activeTrips: make(map[string]*models.ActiveTrip),
		service:     service,
		l:           l,
	}
}

// Dispatch routes one inbound event to its handler. The switch is
// exhaustive over the event union; an unknown concrete type is a
// programming error in the transport decoder.
func (d *Dispatcher) Dispatch(ctx context.Context, ev models.Event) error {
	switch e := ev.(type) {
	case models.DriverConnectEvent:
		d.handleDriverConnect(ctx, e)
	case models.PassengerConnectEvent:
		d.handlePassengerConnect(ctx, e)
	case models.LocationUpdateEvent:
		d.handleLocationUpdate(ctx, e)
	case models.SharedTripAcceptEvent:
		d.handleSharedTripAccept(ctx, e)
	case models.DriverPickupConfirmedEvent:
		d.handleDriverPickupConfirmed(ctx, e)
	case models.DriverArrivedEvent:
		d.handleDriverArrived(ctx, e)
	case models.TripStartedEvent:
		d.handleTripStarted(ctx, e)
	case models.TripCompletedEvent:
		d.handleTripCompleted(ctx, e)
	case models.TripStatusUpdateEvent:
		d.handleTripStatusUpdate(ctx, e)
	case models.PassengerPickupConfirmedEvent:
		d.handlePassengerPickupConfirmed(ctx, e)
	case models.DisconnectEvent:
		d.handleDisconnect(ctx, e)
	default:
		return wrap.Error(ctx, fmt.Errorf("unhandled inbound event %q", ev.Name()))
	}
	return nil
}

// StatusSummary is the service self-description served by /status.
type StatusSummary struct {
	Service             string `json:"service"`
	Status              string `json:"status"`
	ActiveDrivers       int    `json:"activeDrivers"`
	ActiveTrips         int    `json:"activeTrips"`
	SharedTrips         int    `json:"sharedTrips"`
	ConnectedPassengers int    `json:"connectedPassengers"`
}

// Status reports connection and trip counts.
func (d *Dispatcher) Status() StatusSummary {
	drivers, passengers := d.registry.Counts()

	d.activeMu.Lock()
	active := len(d.activeTrips)
	d.activeMu.Unlock()

	return StatusSummary{
		Service:             "Gothenburg Taxi Real-time Service",
		Status:              "running",
		ActiveDrivers:       drivers,
		ActiveTrips:         active,
		SharedTrips:         d.trips.Len(),
		ConnectedPassengers: passengers,
	}
}

// refreshTripGauges re-exports the per-status shared trip counts.
func (d *Dispatcher) refreshTripGauges() {
	counts := d.trips.CountByStatus()
	for _, status := range types.AllTripStatuses() {
		metrics.SharedTripsGauge.WithLabelValues(d.service, status.String()).Set(float64(counts[status]))
	}
}

// publishStatus pushes a committed status change to the broker.
// Best effort: a broker outage never rolls back in-memory state.
func (d *Dispatcher) publishStatus(ctx context.Context, trip models.SharedTrip) {
	if d.publisher == nil {
		return
	}
	msg := models.TripStatusChangedMessage{
		SharedTripID:   trip.ID,
		Status:         trip.Status,
		DriverID:       trip.AssignedDriverID,
		PassengerCount: trip.PassengerCount,
		Timestamp:      time.Now(),
	}
	if err := d.publisher.PublishTripStatus(ctx, msg); err != nil {
		d.l.Warn(wrap.WithTripID(ctx, trip.ID), "failed to publish trip status", "error", err.Error())
	}
}
