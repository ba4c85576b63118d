package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/models"
	"github.com/gothenburg-taxi/dispatch-service/internal/domain/types"
	"github.com/gothenburg-taxi/dispatch-service/internal/service/assignment"
	"github.com/gothenburg-taxi/dispatch-service/internal/service/matcher"
	"github.com/gothenburg-taxi/dispatch-service/internal/service/registry"
	"github.com/gothenburg-taxi/dispatch-service/internal/service/trips"
	"github.com/gothenburg-taxi/dispatch-service/pkg/logger"
)

type sentMessage struct {
	target string
	event  models.EventName
	data   any
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeNotifier) SendToDriver(driverID string, event models.EventName, data any) {
	f.record("driver:"+driverID, event, data)
}

func (f *fakeNotifier) SendToPassenger(userID string, event models.EventName, data any) {
	f.record("passenger:"+userID, event, data)
}

func (f *fakeNotifier) Broadcast(event models.EventName, data any) {
	f.record("broadcast", event, data)
}

func (f *fakeNotifier) record(target string, event models.EventName, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{target: target, event: event, data: data})
}

func (f *fakeNotifier) count(target string, event models.EventName) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.sent {
		if m.target == target && m.event == event {
			n++
		}
	}
	return n
}

func (f *fakeNotifier) last(target string, event models.EventName) (sentMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].target == target && f.sent[i].event == event {
			return f.sent[i], true
		}
	}
	return sentMessage{}, false
}

func (f *fakeNotifier) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

type fakeBackend struct {
	mu            sync.Mutex
	pending       []models.TripRequest
	pendingErr    error
	assigned      []string
	statusUpdates []string
}

func (f *fakeBackend) PendingTrips(ctx context.Context) ([]models.TripRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pendingErr != nil {
		return nil, f.pendingErr
	}
	return append([]models.TripRequest(nil), f.pending...), nil
}

func (f *fakeBackend) UpdateTripStatus(ctx context.Context, tripID, status, driverID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusUpdates = append(f.statusUpdates, fmt.Sprintf("%s:%s:%s", tripID, status, driverID))
	return nil
}

func (f *fakeBackend) AssignTrip(ctx context.Context, tripID, driverID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assigned = append(f.assigned, fmt.Sprintf("%s:%s", tripID, driverID))
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []models.TripStatusChangedMessage
}

func (f *fakePublisher) PublishTripStatus(ctx context.Context, msg models.TripStatusChangedMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg)
	return nil
}

func (f *fakePublisher) lastStatus() (types.TripStatus, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.published) == 0 {
		return "", false
	}
	return f.published[len(f.published)-1].Status, true
}

type testEnv struct {
	dispatcher *Dispatcher
	registry   *registry.Registry
	trips      *trips.Store
	guard      *assignment.Guard
	notifier   *fakeNotifier
	backend    *fakeBackend
	publisher  *fakePublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.InitLogger("test", logger.LevelError)

	reg := registry.New("test", log)
	store := trips.NewStore(log)
	guard := assignment.NewGuard(store, reg, log)
	m := matcher.New(0, 0, 0)

	notifier := &fakeNotifier{}
	backend := &fakeBackend{}
	publisher := &fakePublisher{}

	d := New(reg, store, guard, m, notifier, backend, publisher, "test", log)
	return &testEnv{
		dispatcher: d,
		registry:   reg,
		trips:      store,
		guard:      guard,
		notifier:   notifier,
		backend:    backend,
		publisher:  publisher,
	}
}

func (env *testEnv) connectDriver(t *testing.T, driverID string, lat, lon float64) {
	t.Helper()
	err := env.dispatcher.Dispatch(context.Background(), models.DriverConnectEvent{
		DriverID:  driverID,
		Location:  models.Location{Latitude: lat, Longitude: lon},
		SessionID: "session-driver-" + driverID,
	})
	if err != nil {
		t.Fatalf("driver connect: %v", err)
	}
}

func (env *testEnv) connectPassenger(t *testing.T, userID string) {
	t.Helper()
	err := env.dispatcher.Dispatch(context.Background(), models.PassengerConnectEvent{
		UserID:    userID,
		SessionID: "session-passenger-" + userID,
	})
	if err != nil {
		t.Fatalf("passenger connect: %v", err)
	}
}

func request(id int64, userID string, passengers int, pickupAt time.Time) models.TripRequest {
	return models.TripRequest{
		ID:                  id,
		UserID:              userID,
		UserName:            "Kund " + userID,
		PickupAddress:       "Avenyn " + userID,
		DestinationAddress:  "Landvetter",
		PickupLatitude:      57.70,
		PickupLongitude:     11.97,
		RequestedPickupTime: pickupAt,
		PassengerCount:      passengers,
	}
}

// Full happy path: a driver connects, two compatible requests merge into
// one shared trip at the shared tariff, the driver accepts and drives the
// trip to completion, and the assignment is released.
func TestDispatcher_FullSharedTripLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pickupAt := time.Now().Add(time.Hour)

	env.connectDriver(t, "4", 57.70, 11.97)
	env.connectPassenger(t, "1")
	env.connectPassenger(t, "2")

	env.backend.pending = []models.TripRequest{
		request(1, "1", 1, pickupAt),
		request(2, "2", 1, pickupAt.Add(10*time.Minute)),
	}

	result, err := env.dispatcher.RunMatchmaking(ctx)
	if err != nil {
		t.Fatalf("RunMatchmaking: %v", err)
	}
	if len(result.Created) != 1 {
		t.Fatalf("created %d trips, want 1", len(result.Created))
	}
	trip := result.Created[0]
	if trip.PassengerCount != 2 {
		t.Fatalf("passenger count = %d, want 2", trip.PassengerCount)
	}
	if trip.EstimatedEarning != types.TariffShared {
		t.Fatalf("estimated earning = %d, want %d", trip.EstimatedEarning, types.TariffShared)
	}
	if result.NotifiedDrivers != 1 {
		t.Fatalf("notified %d drivers, want 1", result.NotifiedDrivers)
	}
	if got := env.notifier.count("driver:4", models.EvSharedTripAvailable); got != 1 {
		t.Fatalf("driver offers = %d, want 1", got)
	}

	if err := env.dispatcher.Dispatch(ctx, models.SharedTripAcceptEvent{SharedTripID: trip.ID, DriverID: "4"}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	for _, userID := range []string{"1", "2"} {
		if got := env.notifier.count("passenger:"+userID, models.EvDriverAssigned); got != 1 {
			t.Fatalf("passenger %s driver-assigned = %d, want 1", userID, got)
		}
	}
	if got := env.notifier.count("broadcast", models.EvSharedTripStatusUpdate); got != 1 {
		t.Fatalf("status broadcasts = %d, want 1", got)
	}
	if len(env.backend.assigned) != 2 {
		t.Fatalf("backend assignments = %d, want 2", len(env.backend.assigned))
	}
	if _, busy := env.guard.ActiveFor("4"); !busy {
		t.Fatal("driver has no active assignment after accept")
	}

	steps := []models.Event{
		models.DriverPickupConfirmedEvent{SharedTripID: trip.ID, DriverID: "4", EstimatedArrival: "10 min"},
		models.DriverArrivedEvent{SharedTripID: trip.ID, DriverID: "4"},
		models.TripStartedEvent{SharedTripID: trip.ID, DriverID: "4"},
		models.TripCompletedEvent{SharedTripID: trip.ID, DriverID: "4"},
	}
	for _, step := range steps {
		if err := env.dispatcher.Dispatch(ctx, step); err != nil {
			t.Fatalf("dispatch %s: %v", step.Name(), err)
		}
	}

	final, err := env.trips.Get(trip.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if final.Status != types.StatusCompleted {
		t.Fatalf("final status = %s, want %s", final.Status, types.StatusCompleted)
	}

	if _, busy := env.guard.ActiveFor("4"); busy {
		t.Fatal("assignment not released after completion")
	}
	driver, ok := env.registry.GetDriver("4")
	if !ok {
		t.Fatal("driver missing from registry")
	}
	if driver.Status != types.DriverAvailable {
		t.Fatalf("driver status = %s, want %s", driver.Status, types.DriverAvailable)
	}

	// Each lifecycle step notified both passengers in detail.
	for _, userID := range []string{"1", "2"} {
		if got := env.notifier.count("passenger:"+userID, models.EvDetailedTripUpdate); got != 4 {
			t.Fatalf("passenger %s detailed updates = %d, want 4", userID, got)
		}
	}
	if len(env.backend.statusUpdates) != 2 {
		t.Fatalf("backend status updates = %d, want 2", len(env.backend.statusUpdates))
	}
	if status, ok := env.publisher.lastStatus(); !ok || status != types.StatusCompleted {
		t.Fatalf("last published status = %v, want %s", status, types.StatusCompleted)
	}
}

func TestDispatcher_AcceptRejectedWhenBusy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.connectDriver(t, "4", 57.70, 11.97)
	env.trips.Create(ctx, "trip-a", []models.TripRequest{request(1, "1", 1, time.Now())}, types.ProvenanceAutomatic, "")
	env.trips.Create(ctx, "trip-b", []models.TripRequest{request(2, "2", 1, time.Now())}, types.ProvenanceAutomatic, "")

	if err := env.dispatcher.Dispatch(ctx, models.SharedTripAcceptEvent{SharedTripID: "trip-a", DriverID: "4"}); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	env.notifier.reset()

	if err := env.dispatcher.Dispatch(ctx, models.SharedTripAcceptEvent{SharedTripID: "trip-b", DriverID: "4"}); err != nil {
		t.Fatalf("second accept: %v", err)
	}

	msg, ok := env.notifier.last("driver:4", models.EvAssignmentRejected)
	if !ok {
		t.Fatal("no rejection sent to driver")
	}
	rejection := msg.data.(models.AssignmentRejectedMessage)
	if rejection.Reason != msgAlreadyAssigned {
		t.Fatalf("reason = %q, want %q", rejection.Reason, msgAlreadyAssigned)
	}
	if rejection.CurrentTripID != "trip-a" {
		t.Fatalf("currentTripId = %q, want trip-a", rejection.CurrentTripID)
	}
	if got := env.trips.ListByStatus(types.StatusAssigned); len(got) != 1 {
		t.Fatalf("assigned trips = %d, want 1", len(got))
	}
}

func TestDispatcher_AcceptRejectedWhenTaken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.connectDriver(t, "4", 57.70, 11.97)
	env.connectDriver(t, "7", 57.71, 11.98)
	env.trips.Create(ctx, "trip-a", []models.TripRequest{request(1, "1", 1, time.Now())}, types.ProvenanceAutomatic, "")

	if err := env.dispatcher.Dispatch(ctx, models.SharedTripAcceptEvent{SharedTripID: "trip-a", DriverID: "4"}); err != nil {
		t.Fatalf("winner accept: %v", err)
	}
	env.notifier.reset()

	if err := env.dispatcher.Dispatch(ctx, models.SharedTripAcceptEvent{SharedTripID: "trip-a", DriverID: "7"}); err != nil {
		t.Fatalf("loser accept: %v", err)
	}

	msg, ok := env.notifier.last("driver:7", models.EvAssignmentRejected)
	if !ok {
		t.Fatal("no rejection sent to losing driver")
	}
	rejection := msg.data.(models.AssignmentRejectedMessage)
	if rejection.Reason != msgTripTaken {
		t.Fatalf("reason = %q, want %q", rejection.Reason, msgTripTaken)
	}
	if rejection.SharedTripID != "trip-a" {
		t.Fatalf("sharedTripId = %q, want trip-a", rejection.SharedTripID)
	}

	trip, _ := env.trips.Get("trip-a")
	if trip.AssignedDriverID != "4" {
		t.Fatalf("assigned driver = %q, want 4", trip.AssignedDriverID)
	}
}

func TestDispatcher_DuplicateAcceptIsSilent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.connectDriver(t, "4", 57.70, 11.97)
	env.connectPassenger(t, "1")
	env.trips.Create(ctx, "trip-a", []models.TripRequest{request(1, "1", 1, time.Now())}, types.ProvenanceAutomatic, "")

	if err := env.dispatcher.Dispatch(ctx, models.SharedTripAcceptEvent{SharedTripID: "trip-a", DriverID: "4"}); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	env.notifier.reset()

	if err := env.dispatcher.Dispatch(ctx, models.SharedTripAcceptEvent{SharedTripID: "trip-a", DriverID: "4"}); err != nil {
		t.Fatalf("duplicate accept: %v", err)
	}

	env.notifier.mu.Lock()
	defer env.notifier.mu.Unlock()
	if len(env.notifier.sent) != 0 {
		t.Fatalf("duplicate accept produced %d notifications, want 0", len(env.notifier.sent))
	}
}

func TestDispatcher_TripTakenWithdrawnFromRivals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.connectDriver(t, "4", 57.70, 11.97)
	env.connectDriver(t, "7", 57.71, 11.98)
	env.connectDriver(t, "9", 57.72, 11.99)
	env.trips.Create(ctx, "trip-a", []models.TripRequest{request(1, "1", 1, time.Now())}, types.ProvenanceAutomatic, "")

	if err := env.dispatcher.Dispatch(ctx, models.SharedTripAcceptEvent{SharedTripID: "trip-a", DriverID: "4"}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if got := env.notifier.count("driver:4", models.EvSharedTripTaken); got != 0 {
		t.Fatalf("winner received %d trip-taken, want 0", got)
	}
	for _, rival := range []string{"7", "9"} {
		if got := env.notifier.count("driver:"+rival, models.EvSharedTripTaken); got != 1 {
			t.Fatalf("rival %s trip-taken = %d, want 1", rival, got)
		}
	}
}

func TestDispatcher_LocationUpdateFanout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.connectDriver(t, "4", 57.70, 11.97)
	env.connectPassenger(t, "1")
	env.trips.Create(ctx, "trip-a", []models.TripRequest{request(1, "1", 1, time.Now())}, types.ProvenanceAutomatic, "")
	if err := env.dispatcher.Dispatch(ctx, models.SharedTripAcceptEvent{SharedTripID: "trip-a", DriverID: "4"}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	env.notifier.reset()

	loc := models.Location{Latitude: 57.705, Longitude: 11.975}
	if err := env.dispatcher.Dispatch(ctx, models.LocationUpdateEvent{DriverID: "4", Location: loc}); err != nil {
		t.Fatalf("location update: %v", err)
	}

	if got := env.notifier.count("broadcast", models.EvDriverLocationUpdate); got != 1 {
		t.Fatalf("broadcasts = %d, want 1", got)
	}
	msg, ok := env.notifier.last("passenger:1", models.EvDriverLocationUpdate)
	if !ok {
		t.Fatal("assigned-trip passenger missed the location update")
	}
	update := msg.data.(models.DriverLocationUpdateMessage)
	if update.SharedTripID != "trip-a" {
		t.Fatalf("sharedTripId = %q, want trip-a", update.SharedTripID)
	}
	if update.Location != loc {
		t.Fatalf("location = %+v, want %+v", update.Location, loc)
	}
}

func TestDispatcher_LocationUpdateUnknownDriverIgnored(t *testing.T) {
	env := newTestEnv(t)

	err := env.dispatcher.Dispatch(context.Background(), models.LocationUpdateEvent{
		DriverID: "ghost",
		Location: models.Location{Latitude: 57.70, Longitude: 11.97},
	})
	if err != nil {
		t.Fatalf("location update: %v", err)
	}

	env.notifier.mu.Lock()
	defer env.notifier.mu.Unlock()
	if len(env.notifier.sent) != 0 {
		t.Fatalf("unknown driver produced %d notifications, want 0", len(env.notifier.sent))
	}
}

func TestDispatcher_OutOfOrderTransitionIgnored(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.connectDriver(t, "4", 57.70, 11.97)
	env.trips.Create(ctx, "trip-a", []models.TripRequest{request(1, "1", 1, time.Now())}, types.ProvenanceAutomatic, "")
	env.notifier.reset()

	// Trip never assigned, so started must not go through.
	if err := env.dispatcher.Dispatch(ctx, models.TripStartedEvent{SharedTripID: "trip-a", DriverID: "4"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	trip, _ := env.trips.Get("trip-a")
	if trip.Status != types.StatusPendingAssignment {
		t.Fatalf("status = %s, want unchanged %s", trip.Status, types.StatusPendingAssignment)
	}
	if got := env.notifier.count("broadcast", models.EvTripStatusUpdate); got != 0 {
		t.Fatalf("rejected transition broadcast %d updates, want 0", got)
	}
}

// Disconnecting mid-trip removes the session but keeps the assignment:
// the driver is expected to reconnect and resume the trip.
func TestDispatcher_DisconnectMidTripKeepsAssignment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.connectDriver(t, "4", 57.70, 11.97)
	env.trips.Create(ctx, "trip-a", []models.TripRequest{request(1, "1", 1, time.Now())}, types.ProvenanceAutomatic, "")
	if err := env.dispatcher.Dispatch(ctx, models.SharedTripAcceptEvent{SharedTripID: "trip-a", DriverID: "4"}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if err := env.dispatcher.Dispatch(ctx, models.DisconnectEvent{SessionID: "session-driver-4"}); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	if _, ok := env.registry.GetDriver("4"); ok {
		t.Fatal("driver still in registry after disconnect")
	}
	active, ok := env.guard.ActiveFor("4")
	if !ok {
		t.Fatal("assignment released on disconnect")
	}
	if active.AssignedTripID != "trip-a" {
		t.Fatalf("assigned trip = %q, want trip-a", active.AssignedTripID)
	}
}

func TestDispatcher_BusyDriverGetsNoOffers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.connectDriver(t, "4", 57.70, 11.97)
	env.trips.Create(ctx, "trip-a", []models.TripRequest{request(1, "1", 1, time.Now())}, types.ProvenanceAutomatic, "")
	if err := env.dispatcher.Dispatch(ctx, models.SharedTripAcceptEvent{SharedTripID: "trip-a", DriverID: "4"}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	env.notifier.reset()

	_, notified, err := env.dispatcher.RegisterExternalTrip(ctx, "trip-b", []models.TripRequest{request(2, "2", 1, time.Now())})
	if err != nil {
		t.Fatalf("RegisterExternalTrip: %v", err)
	}
	if notified != 0 {
		t.Fatalf("notified = %d, want 0", notified)
	}
	if got := env.notifier.count("driver:4", models.EvSharedTripAvailable); got != 0 {
		t.Fatalf("busy driver received %d offers, want 0", got)
	}
}

func TestDispatcher_MatchmakingBackendDown(t *testing.T) {
	env := newTestEnv(t)
	env.backend.pendingErr = errors.New("connection refused")

	_, err := env.dispatcher.RunMatchmaking(context.Background())
	if !errors.Is(err, types.ErrBackendUnreachable) {
		t.Fatalf("err = %v, want ErrBackendUnreachable", err)
	}
}

func TestDispatcher_StatusSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.connectDriver(t, "4", 57.70, 11.97)
	env.connectPassenger(t, "1")
	env.trips.Create(ctx, "trip-a", []models.TripRequest{request(1, "1", 1, time.Now())}, types.ProvenanceAutomatic, "")
	env.dispatcher.AssignIndividualTrip(ctx, models.ActiveTrip{TripID: "legacy-1", DriverID: "4", Passengers: []string{"1"}})

	got := env.dispatcher.Status()
	if got.ActiveDrivers != 1 || got.ConnectedPassengers != 1 || got.SharedTrips != 1 || got.ActiveTrips != 1 {
		t.Fatalf("unexpected summary: %+v", got)
	}
	if got.Status != "running" {
		t.Fatalf("status = %q, want running", got.Status)
	}
}
