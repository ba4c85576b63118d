// Package trips owns the canonical state of every shared trip and its
// lifecycle. All mutation goes through the store's mutex; callers receive
// copies and never alias internal state.
package trips

import (
	"context"
	"sync"
	"time"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/models"
	"github.com/gothenburg-taxi/dispatch-service/internal/domain/types"
	"github.com/gothenburg-taxi/dispatch-service/pkg/logger"
	wrap "github.com/gothenburg-taxi/dispatch-service/pkg/logger/wrapper"
)

type Store struct {
	mu    sync.Mutex
	trips map[string]*models.SharedTrip

	l logger.Logger
}

func NewStore(l logger.Logger) *Store {
	return &Store{
		trips: make(map[string]*models.SharedTrip),
		l:     l,
	}
}

// Create registers a new shared trip in PENDING_DRIVER_ASSIGNMENT state.
// Membership is fixed at creation; the earning follows the government
// tariff: 800 SEK for any merged trip, 650 SEK for a solo dispatch.
// attribution names the operator behind a manual merge or an individual
// dispatch; it is ignored for automatic trips.
func (s *Store) Create(ctx context.Context, id string, members []models.TripRequest, provenance types.Provenance, attribution string) (models.SharedTrip, error) {
	total := 0
	for _, m := range members {
		total += m.PassengerCount
	}

	earning := types.TariffIndividual
	if len(members) > 1 || total > 1 {
		earning = types.TariffShared
	}

	trip := &models.SharedTrip{
		ID:               id,
		Trips:            append([]models.TripRequest(nil), members...),
		PassengerCount:   total,
		Status:           types.StatusPendingAssignment,
		Provenance:       provenance,
		EstimatedEarning: earning,
		CreatedAt:        time.Now(),
	}

	switch provenance {
	case types.ProvenanceManual:
		trip.MergedBy = attribution
	case types.ProvenanceIndividual:
		trip.SentBy = attribution
	}

	s.mu.Lock()
	s.trips[id] = trip
	s.mu.Unlock()

	ctx = wrap.WithTripID(wrap.WithAction(ctx, "shared_trip_created"), id)
	s.l.Info(ctx, "shared trip created",
		"provenance", string(provenance),
		"members", len(members),
		"passenger_count", total,
		"estimated_earning", earning,
	)

	return copyTrip(trip), nil
}

// Get returns the trip with the given id.
func (s *Store) Get(id string) (models.SharedTrip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trip, ok := s.trips[id]
	if !ok {
		return models.SharedTrip{}, types.ErrTripNotFound
	}
	return copyTrip(trip), nil
}

// List returns every trip the store knows about, completed ones included.
func (s *Store) List() []models.SharedTrip {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.SharedTrip, 0, len(s.trips))
	for _, trip := range s.trips {
		out = append(out, copyTrip(trip))
	}
	return out
}

// ListByStatus returns every trip currently in the given state.
func (s *Store) ListByStatus(status types.TripStatus) []models.SharedTrip {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.SharedTrip
	for _, trip := range s.trips {
		if trip.Status == status {
			out = append(out, copyTrip(trip))
		}
	}
	return out
}

// CountByStatus returns how many trips sit in each lifecycle state.
func (s *Store) CountByStatus() map[types.TripStatus]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[types.TripStatus]int)
	for _, trip := range s.trips {
		counts[trip.Status]++
	}
	return counts
}

// Len returns the number of trips held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trips)
}

// Assign is the check-and-set half of the accept path: it moves a pending
// trip to ASSIGNED for the given driver. The store mutex makes the check
// and the write one atomic step, so only the first racing driver wins.
func (s *Store) Assign(ctx context.Context, id, driverID string) (models.SharedTrip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trip, ok := s.trips[id]
	if !ok {
		return models.SharedTrip{}, types.ErrTripNotFound
	}

	if trip.Status != types.StatusPendingAssignment {
		if trip.AssignedDriverID != "" && trip.AssignedDriverID != driverID {
			return models.SharedTrip{}, types.ErrTripAlreadyTaken
		}
		return models.SharedTrip{}, types.ErrInvalidTransition
	}

	now := time.Now()
	trip.Status = types.StatusAssigned
	trip.AssignedDriverID = driverID
	trip.AssignedAt = &now

	return copyTrip(trip), nil
}

// Transition advances a trip to newStatus. The move must be the immediate
// successor in the lifecycle and the actor must be the assigned driver.
func (s *Store) Transition(ctx context.Context, id string, newStatus types.TripStatus, actorDriverID string) (models.SharedTrip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trip, ok := s.trips[id]
	if !ok {
		return models.SharedTrip{}, types.ErrTripNotFound
	}

	if !newStatus.IsSuccessorOf(trip.Status) {
		return models.SharedTrip{}, types.ErrInvalidTransition
	}

	if newStatus == types.StatusAssigned {
		// Assignment goes through Assign; Transition only covers the
		// driver-confirmed steps after it.
		trip.Status = newStatus
		trip.AssignedDriverID = actorDriverID
	} else {
		if trip.AssignedDriverID != actorDriverID {
			return models.SharedTrip{}, types.ErrDriverMismatch
		}
		trip.Status = newStatus
	}

	now := time.Now()
	switch newStatus {
	case types.StatusAssigned:
		trip.AssignedAt = &now
	case types.StatusPickupConfirmed:
		trip.PickupConfirmedAt = &now
	case types.StatusDriverArrived:
		trip.ArrivedAt = &now
	case types.StatusInProgress:
		trip.StartedAt = &now
	case types.StatusCompleted:
		trip.CompletedAt = &now
	}

	ctx = wrap.WithTripID(wrap.WithAction(ctx, "shared_trip_transition"), id)
	s.l.Debug(ctx, "shared trip transitioned",
		"new_status", newStatus.String(),
		"driver_id", actorDriverID,
	)

	return copyTrip(trip), nil
}

// SetEstimatedArrival stores the driver's announced arrival estimate.
// Unknown ids are ignored.
func (s *Store) SetEstimatedArrival(id, eta string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if trip, ok := s.trips[id]; ok {
		trip.EstimatedArrival = eta
	}
}

func copyTrip(t *models.SharedTrip) models.SharedTrip {
	cp := *t
	cp.Trips = append([]models.TripRequest(nil), t.Trips...)
	return cp
}
