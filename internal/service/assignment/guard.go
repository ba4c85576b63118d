// Package assignment enforces the one-active-trip-per-driver invariant and
// arbitrates concurrent accept attempts for the same shared trip.
package assignment

import (
	"context"
	"sync"
	"time"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/models"
	"github.com/gothenburg-taxi/dispatch-service/internal/domain/types"
	"github.com/gothenburg-taxi/dispatch-service/pkg/logger"
	wrap "github.com/gothenburg-taxi/dispatch-service/pkg/logger/wrapper"
)

// Active is one driver's current assignment.
type Active struct {
	AssignedTripID string    `json:"assignedTripId"`
	AssignedAt     time.Time `json:"assignedAt"`
	PassengerCount int       `json:"passengerCount"`
}

// Guard keeps the driverId -> active assignment map. Its mutex serializes
// the whole accept path, so two sessions racing for the same trip (or the
// same driver racing itself from two sessions) resolve deterministically.
type Guard struct {
	mu      sync.Mutex
	active  map[string]Active
	store   TripAssigner
	drivers AvailabilityKeeper

	l logger.Logger
}

func NewGuard(store TripAssigner, drivers AvailabilityKeeper, l logger.Logger) *Guard {
	return &Guard{
		active:  make(map[string]Active),
		store:   store,
		drivers: drivers,
		l:       l,
	}
}

// Result reports how an accept attempt ended.
type Result struct {
	Trip models.SharedTrip
	// AlreadyAccepted is set when the driver re-accepted its own active
	// trip: a no-op success that must not duplicate side effects.
	AlreadyAccepted bool
	// CurrentTripID carries the blocking trip id on
	// ErrAlreadyAssignedElsewhere rejections.
	CurrentTripID string
}

// TryAssign arbitrates a driver's accept attempt for a shared trip.
// Exactly one of the concurrent callers for the same pending trip wins;
// the losers receive types.ErrTripAlreadyTaken. A driver holding another
// active trip is rejected with types.ErrAlreadyAssignedElsewhere.
func (g *Guard) TryAssign(ctx context.Context, driverID, sharedTripID string) (Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{
		Action:   "assignment_try_assign",
		DriverID: driverID,
		TripID:   sharedTripID,
	})

	if current, ok := g.active[driverID]; ok {
		if current.AssignedTripID == sharedTripID {
			// Idempotent re-acceptance of the same trip.
			g.l.Debug(ctx, "duplicate accept for already held trip")
			return Result{AlreadyAccepted: true, CurrentTripID: sharedTripID}, nil
		}
		g.l.Info(ctx, "accept rejected: driver already assigned",
			"current_trip_id", current.AssignedTripID,
		)
		return Result{CurrentTripID: current.AssignedTripID}, types.ErrAlreadyAssignedElsewhere
	}

	trip, err := g.store.Assign(ctx, sharedTripID, driverID)
	if err != nil {
		return Result{}, err
	}

	g.active[driverID] = Active{
		AssignedTripID: sharedTripID,
		AssignedAt:     time.Now(),
		PassengerCount: trip.PassengerCount,
	}
	g.drivers.SetDriverAvailability(driverID, types.DriverBusy)

	g.l.Info(ctx, "driver won trip assignment",
		"passenger_count", trip.PassengerCount,
	)

	return Result{Trip: trip}, nil
}

// Release clears the driver's active assignment and makes the driver
// available again. Safe to call for a driver with no assignment.
func (g *Guard) Release(ctx context.Context, driverID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.active[driverID]; !ok {
		return
	}
	delete(g.active, driverID)
	g.drivers.SetDriverAvailability(driverID, types.DriverAvailable)

	ctx = wrap.WithDriverID(wrap.WithAction(ctx, "assignment_release"), driverID)
	g.l.Info(ctx, "driver assignment released")
}

// ActiveFor returns the driver's current assignment, if any.
func (g *Guard) ActiveFor(driverID string) (Active, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	a, ok := g.active[driverID]
	return a, ok
}

// Assignments returns a snapshot of every active assignment.
func (g *Guard) Assignments() map[string]Active {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[string]Active, len(g.active))
	for k, v := range g.active {
		out[k] = v
	}
	return out
}
