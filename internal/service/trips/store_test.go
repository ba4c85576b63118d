package trips

import (
	"context"
	"errors"
	"testing"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/models"
	"github.com/gothenburg-taxi/dispatch-service/internal/domain/types"
	"github.com/gothenburg-taxi/dispatch-service/pkg/logger"
)

func newTestStore() *Store {
	return NewStore(logger.InitLogger("test", logger.LevelError))
}

func member(id int64, passengers int) models.TripRequest {
	return models.TripRequest{ID: id, UserID: "u", PassengerCount: passengers}
}

func TestCreate_TariffShared(t *testing.T) {
	s := newTestStore()

	trip, err := s.Create(context.Background(), "trip-1",
		[]models.TripRequest{member(1, 1), member(2, 1)}, types.ProvenanceAutomatic, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if trip.EstimatedEarning != 800 {
		t.Errorf("merged trip earning = %d, want 800", trip.EstimatedEarning)
	}
	if trip.PassengerCount != 2 {
		t.Errorf("passenger count = %d, want 2", trip.PassengerCount)
	}
	if trip.Status != types.StatusPendingAssignment {
		t.Errorf("new trip status = %s, want %s", trip.Status, types.StatusPendingAssignment)
	}
}

func TestCreate_TariffIndividual(t *testing.T) {
	s := newTestStore()

	trip, err := s.Create(context.Background(), "individual-1",
		[]models.TripRequest{member(1, 1)}, types.ProvenanceIndividual, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if trip.EstimatedEarning != 650 {
		t.Errorf("individual trip earning = %d, want 650", trip.EstimatedEarning)
	}
}

func TestCreate_SingleRequestManyPassengersIsShared(t *testing.T) {
	s := newTestStore()

	trip, _ := s.Create(context.Background(), "trip-2",
		[]models.TripRequest{member(1, 3)}, types.ProvenanceAutomatic, "")
	if trip.EstimatedEarning != 800 {
		t.Errorf("3-passenger trip earning = %d, want 800", trip.EstimatedEarning)
	}
}

func TestCreate_MembershipIsImmutable(t *testing.T) {
	s := newTestStore()
	members := []models.TripRequest{member(1, 1)}

	trip, _ := s.Create(context.Background(), "trip-3", members, types.ProvenanceAutomatic, "")

	// Mutating the caller's slice or the returned copy must not leak in.
	members[0].UserID = "changed"
	trip.Trips[0].UserID = "also changed"

	got, err := s.Get("trip-3")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Trips[0].UserID != "u" {
		t.Fatalf("store leaked shared state: got %q", got.Trips[0].UserID)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore()
	if _, err := s.Get("nope"); !errors.Is(err, types.ErrTripNotFound) {
		t.Fatalf("expected ErrTripNotFound, got %v", err)
	}
}

func TestTransition_FullLifecycle(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Create(ctx, "trip-1", []models.TripRequest{member(1, 1)}, types.ProvenanceAutomatic, "")
	if _, err := s.Assign(ctx, "trip-1", "driver-4"); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	steps := []types.TripStatus{
		types.StatusPickupConfirmed,
		types.StatusDriverArrived,
		types.StatusInProgress,
		types.StatusCompleted,
	}
	for _, next := range steps {
		trip, err := s.Transition(ctx, "trip-1", next, "driver-4")
		if err != nil {
			t.Fatalf("Transition to %s: %v", next, err)
		}
		if trip.Status != next {
			t.Fatalf("status after transition = %s, want %s", trip.Status, next)
		}
	}

	final, _ := s.Get("trip-1")
	if final.CompletedAt == nil || final.StartedAt == nil || final.ArrivedAt == nil ||
		final.PickupConfirmedAt == nil || final.AssignedAt == nil {
		t.Fatalf("lifecycle timestamps missing: %+v", final)
	}
}

func TestTransition_OutOfOrderRejected(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Create(ctx, "trip-1", []models.TripRequest{member(1, 1)}, types.ProvenanceAutomatic, "")

	// PICKUP_CONFIRMED before ASSIGNED
	if _, err := s.Transition(ctx, "trip-1", types.StatusPickupConfirmed, "driver-4"); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	// state unchanged
	trip, _ := s.Get("trip-1")
	if trip.Status != types.StatusPendingAssignment {
		t.Fatalf("failed transition mutated state: %s", trip.Status)
	}
}

func TestTransition_NoBackwardMoves(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Create(ctx, "trip-1", []models.TripRequest{member(1, 1)}, types.ProvenanceAutomatic, "")
	s.Assign(ctx, "trip-1", "driver-4")
	s.Transition(ctx, "trip-1", types.StatusPickupConfirmed, "driver-4")

	if _, err := s.Transition(ctx, "trip-1", types.StatusAssigned, "driver-4"); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("backward transition must fail, got %v", err)
	}
}

func TestTransition_DriverMismatch(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Create(ctx, "trip-1", []models.TripRequest{member(1, 1)}, types.ProvenanceAutomatic, "")
	s.Assign(ctx, "trip-1", "driver-4")

	if _, err := s.Transition(ctx, "trip-1", types.StatusPickupConfirmed, "driver-9"); !errors.Is(err, types.ErrDriverMismatch) {
		t.Fatalf("expected ErrDriverMismatch, got %v", err)
	}
}

func TestTransition_NotFound(t *testing.T) {
	s := newTestStore()
	if _, err := s.Transition(context.Background(), "ghost", types.StatusAssigned, "d"); !errors.Is(err, types.ErrTripNotFound) {
		t.Fatalf("expected ErrTripNotFound, got %v", err)
	}
}

func TestAssign_SecondDriverLoses(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Create(ctx, "trip-1", []models.TripRequest{member(1, 1)}, types.ProvenanceAutomatic, "")

	if _, err := s.Assign(ctx, "trip-1", "driver-4"); err != nil {
		t.Fatalf("first Assign: %v", err)
	}
	if _, err := s.Assign(ctx, "trip-1", "driver-7"); !errors.Is(err, types.ErrTripAlreadyTaken) {
		t.Fatalf("expected ErrTripAlreadyTaken, got %v", err)
	}

	trip, _ := s.Get("trip-1")
	if trip.AssignedDriverID != "driver-4" {
		t.Fatalf("assigned driver changed to %s", trip.AssignedDriverID)
	}
}

func TestListByStatus(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Create(ctx, "a", []models.TripRequest{member(1, 1)}, types.ProvenanceAutomatic, "")
	s.Create(ctx, "b", []models.TripRequest{member(2, 1)}, types.ProvenanceAutomatic, "")
	s.Assign(ctx, "b", "driver-4")

	pending := s.ListByStatus(types.StatusPendingAssignment)
	if len(pending) != 1 || pending[0].ID != "a" {
		t.Fatalf("pending = %+v, want only trip a", pending)
	}

	counts := s.CountByStatus()
	if counts[types.StatusPendingAssignment] != 1 || counts[types.StatusAssigned] != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}
