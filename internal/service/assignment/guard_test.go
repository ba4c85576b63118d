package assignment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/models"
	"github.com/gothenburg-taxi/dispatch-service/internal/domain/types"
	"github.com/gothenburg-taxi/dispatch-service/internal/service/trips"
	"github.com/gothenburg-taxi/dispatch-service/pkg/logger"
)

type fakeAvailability struct {
	mu     sync.Mutex
	status map[string]types.DriverStatus
}

func newFakeAvailability() *fakeAvailability {
	return &fakeAvailability{status: make(map[string]types.DriverStatus)}
}

func (f *fakeAvailability) SetDriverAvailability(driverID string, status types.DriverStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[driverID] = status
}

func (f *fakeAvailability) get(driverID string) types.DriverStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status[driverID]
}

func newGuardWithTrip(t *testing.T, tripID string) (*Guard, *trips.Store, *fakeAvailability) {
	t.Helper()
	log := logger.InitLogger("test", logger.LevelError)
	store := trips.NewStore(log)
	avail := newFakeAvailability()

	if _, err := store.Create(context.Background(), tripID,
		[]models.TripRequest{{ID: 1, UserID: "1", PassengerCount: 1}}, types.ProvenanceAutomatic, ""); err != nil {
		t.Fatalf("seed trip: %v", err)
	}

	return NewGuard(store, avail, log), store, avail
}

func TestTryAssign_FirstWins(t *testing.T) {
	g, store, avail := newGuardWithTrip(t, "trip-1")
	ctx := context.Background()

	res, err := g.TryAssign(ctx, "driver-4", "trip-1")
	if err != nil {
		t.Fatalf("TryAssign: %v", err)
	}
	if res.AlreadyAccepted {
		t.Fatal("first accept reported as duplicate")
	}
	if res.Trip.AssignedDriverID != "driver-4" {
		t.Fatalf("trip assigned to %q", res.Trip.AssignedDriverID)
	}
	if avail.get("driver-4") != types.DriverBusy {
		t.Fatal("winning driver not flipped to busy")
	}

	trip, _ := store.Get("trip-1")
	if trip.Status != types.StatusAssigned {
		t.Fatalf("trip status = %s", trip.Status)
	}
}

func TestTryAssign_IdempotentReaccept(t *testing.T) {
	g, _, _ := newGuardWithTrip(t, "trip-1")
	ctx := context.Background()

	if _, err := g.TryAssign(ctx, "driver-4", "trip-1"); err != nil {
		t.Fatalf("first accept: %v", err)
	}

	res, err := g.TryAssign(ctx, "driver-4", "trip-1")
	if err != nil {
		t.Fatalf("re-accept must be a no-op success, got %v", err)
	}
	if !res.AlreadyAccepted {
		t.Fatal("re-accept not flagged as duplicate")
	}
}

func TestTryAssign_AlreadyAssignedElsewhere(t *testing.T) {
	g, store, _ := newGuardWithTrip(t, "trip-1")
	ctx := context.Background()

	store.Create(ctx, "trip-2",
		[]models.TripRequest{{ID: 2, UserID: "2", PassengerCount: 1}}, types.ProvenanceAutomatic, "")

	g.TryAssign(ctx, "driver-4", "trip-1")

	res, err := g.TryAssign(ctx, "driver-4", "trip-2")
	if !errors.Is(err, types.ErrAlreadyAssignedElsewhere) {
		t.Fatalf("expected ErrAlreadyAssignedElsewhere, got %v", err)
	}
	if res.CurrentTripID != "trip-1" {
		t.Fatalf("rejection must carry blocking trip id, got %q", res.CurrentTripID)
	}

	// second trip untouched
	trip, _ := store.Get("trip-2")
	if trip.Status != types.StatusPendingAssignment {
		t.Fatalf("trip-2 mutated: %s", trip.Status)
	}
}

func TestTryAssign_TripAlreadyTaken(t *testing.T) {
	g, _, avail := newGuardWithTrip(t, "trip-1")
	ctx := context.Background()

	g.TryAssign(ctx, "driver-4", "trip-1")

	if _, err := g.TryAssign(ctx, "driver-7", "trip-1"); !errors.Is(err, types.ErrTripAlreadyTaken) {
		t.Fatalf("expected ErrTripAlreadyTaken, got %v", err)
	}
	if avail.get("driver-7") == types.DriverBusy {
		t.Fatal("losing driver must not be flipped to busy")
	}
}

func TestTryAssign_UnknownTrip(t *testing.T) {
	g, _, _ := newGuardWithTrip(t, "trip-1")

	if _, err := g.TryAssign(context.Background(), "driver-4", "ghost"); !errors.Is(err, types.ErrTripNotFound) {
		t.Fatalf("expected ErrTripNotFound, got %v", err)
	}
}

func TestTryAssign_ConcurrentRaceHasOneWinner(t *testing.T) {
	g, _, _ := newGuardWithTrip(t, "trip-1")
	ctx := context.Background()

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)

	for i := range racers {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = g.TryAssign(ctx, driverName(n), "trip-1")
		}(i)
	}
	wg.Wait()

	winners, losers := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, types.ErrTripAlreadyTaken):
			losers++
		default:
			t.Fatalf("unexpected race outcome: %v", err)
		}
	}

	if winners != 1 || losers != racers-1 {
		t.Fatalf("winners=%d losers=%d, want exactly 1 winner", winners, losers)
	}
}

func driverName(n int) string {
	return string(rune('a'+n)) + "-driver"
}

func TestRelease_ClearsAssignmentAndAvailability(t *testing.T) {
	g, _, avail := newGuardWithTrip(t, "trip-1")
	ctx := context.Background()

	g.TryAssign(ctx, "driver-4", "trip-1")
	g.Release(ctx, "driver-4")

	if _, ok := g.ActiveFor("driver-4"); ok {
		t.Fatal("assignment entry still present after release")
	}
	if avail.get("driver-4") != types.DriverAvailable {
		t.Fatal("driver not available after release")
	}
}

func TestRelease_NoAssignmentIsNoop(t *testing.T) {
	g, _, avail := newGuardWithTrip(t, "trip-1")

	g.Release(context.Background(), "driver-9")

	if got, ok := avail.status["driver-9"]; ok {
		t.Fatalf("release of unassigned driver touched availability: %v", got)
	}
}
