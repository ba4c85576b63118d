package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/models"
	"github.com/gothenburg-taxi/dispatch-service/internal/domain/types"
	"github.com/gothenburg-taxi/dispatch-service/internal/service/assignment"
	wrap "github.com/gothenburg-taxi/dispatch-service/pkg/logger/wrapper"
	"github.com/gothenburg-taxi/dispatch-service/pkg/metrics"
)

// User-facing rejection texts, matching what the mobile apps display.
const (
	msgAlreadyAssigned = "Du har redan en aktiv resa."
	msgTripTaken       = "Denna resa har redan tilldelats en annan förare."
	msgTripNotFound    = "Resan kunde inte hittas."
)

// wireStatus maps a lifecycle state to the lowercase form the trip-status
// broadcasts use on the wire.
func wireStatus(s types.TripStatus) string {
	switch s {
	case types.StatusPickupConfirmed:
		return "pickup_confirmed"
	case types.StatusDriverArrived:
		return "arrived"
	case types.StatusInProgress:
		return "in_progress"
	case types.StatusCompleted:
		return "completed"
	default:
		return s.String()
	}
}

func contactInfo(v models.VehicleInfo) models.ContactInfo {
	return models.ContactInfo{
		LicensePlate: v.LicensePlate,
		PhoneNumber:  v.PhoneNumber,
		Make:         v.Make,
		Model:        v.Model,
		Color:        v.Color,
	}
}

func detailedContactInfo(v models.VehicleInfo) models.ContactInfo {
	return models.ContactInfo{
		LicensePlate: v.LicensePlate,
		PhoneNumber:  v.PhoneNumber,
		VehicleModel: fmt.Sprintf("%s %s", v.Make, v.Model),
	}
}

func (d *Dispatcher) handleDriverConnect(ctx context.Context, e models.DriverConnectEvent) {
	d.registry.RegisterDriver(ctx, e.DriverID, e.Location, e.VehicleInfo, e.SessionID)
}

func (d *Dispatcher) handlePassengerConnect(ctx context.Context, e models.PassengerConnectEvent) {
	d.registry.RegisterPassenger(ctx, e.UserID, e.SessionID)
}

// handleLocationUpdate records the driver's position and fans it out:
// to every connected session for observability, to the passengers of the
// driver's assigned shared trip, and as en-route progress to passengers of
// any legacy individual trip the driver serves. An unknown driver is a
// silent no-op.
func (d *Dispatcher) handleLocationUpdate(ctx context.Context, e models.LocationUpdateEvent) {
	session, ok := d.registry.UpdateDriverLocation(ctx, e.DriverID, e.Location)
	if !ok {
		return
	}

	now := time.Now()
	d.notifier.Broadcast(models.EvDriverLocationUpdate, models.DriverLocationUpdateMessage{
		DriverID:    e.DriverID,
		Location:    e.Location,
		Status:      session.Status,
		VehicleInfo: session.Vehicle,
		Timestamp:   now,
	})

	for _, trip := range d.trips.ListByStatus(types.StatusAssigned) {
		if trip.AssignedDriverID != e.DriverID {
			continue
		}
		for _, member := range trip.Trips {
			d.notifier.SendToPassenger(member.UserID, models.EvDriverLocationUpdate, models.DriverLocationUpdateMessage{
				SharedTripID: trip.ID,
				DriverID:     e.DriverID,
				Location:     e.Location,
				Timestamp:    now,
			})
		}
	}

	d.updateTripProgress(e.DriverID, e.Location)
}

// handleSharedTripAccept arbitrates a driver's accept attempt. The winner
// triggers the assignment fan-out; losers get a reasoned rejection and no
// state changes.
func (d *Dispatcher) handleSharedTripAccept(ctx context.Context, e models.SharedTripAcceptEvent) {
	result, err := d.guard.TryAssign(ctx, e.DriverID, e.SharedTripID)
	if err != nil {
		d.rejectAccept(ctx, e, result, err)
		return
	}
	if result.AlreadyAccepted {
		// Same driver re-accepting its own trip: no duplicate fan-out.
		return
	}

	trip := result.Trip
	metrics.RecordAssignment(d.service, "won")
	d.refreshTripGauges()

	d.notifier.Broadcast(models.EvSharedTripStatusUpdate, models.SharedTripStatusUpdateMessage{
		SharedTripID:   trip.ID,
		Status:         trip.Status,
		DriverID:       e.DriverID,
		AssignedAt:     derefTime(trip.AssignedAt),
		PassengerCount: trip.PassengerCount,
		Trips:          trip.Trips,
	})

	var vehicle models.VehicleInfo
	if session, ok := d.registry.GetDriver(e.DriverID); ok {
		vehicle = session.Vehicle
	} else {
		vehicle = vehicle.WithDefaults(e.DriverID)
	}

	for _, member := range trip.Trips {
		d.notifier.SendToPassenger(member.UserID, models.EvDriverAssigned, models.DriverAssignedMessage{
			SharedTripID:     trip.ID,
			DriverID:         e.DriverID,
			DriverInfo:       contactInfo(vehicle),
			EstimatedArrival: "Beräknar ankomst...",
			Message:          fmt.Sprintf("Din resa har matchats! Förare %s kommer att hämta dig vid %s", e.DriverID, member.PickupAddress),
		})
	}

	for _, rival := range d.registry.AvailableDrivers() {
		if rival.DriverID == e.DriverID {
			continue
		}
		d.notifier.SendToDriver(rival.DriverID, models.EvSharedTripTaken, models.SharedTripTakenMessage{
			SharedTripID: trip.ID,
		})
	}

	for _, member := range trip.Trips {
		tripID := strconv.FormatInt(member.ID, 10)
		if err := d.backend.AssignTrip(ctx, tripID, e.DriverID); err != nil {
			d.l.Warn(wrap.WithAction(ctx, types.ActionBackendRequestFailed),
				"failed to record assignment in backend",
				"trip_request_id", tripID,
				"error", err.Error(),
			)
		}
	}

	d.publishStatus(ctx, trip)
}

// rejectAccept answers a failed accept attempt with a reasoned rejection
// sent only to the caller.
func (d *Dispatcher) rejectAccept(ctx context.Context, e models.SharedTripAcceptEvent, result assignment.Result, err error) {
	var msg models.AssignmentRejectedMessage
	switch {
	case errors.Is(err, types.ErrAlreadyAssignedElsewhere):
		metrics.RecordAssignment(d.service, "rejected_busy")
		msg = models.AssignmentRejectedMessage{
			Reason:        msgAlreadyAssigned,
			CurrentTripID: result.CurrentTripID,
		}
	case errors.Is(err, types.ErrTripAlreadyTaken):
		metrics.RecordAssignment(d.service, "rejected_taken")
		msg = models.AssignmentRejectedMessage{
			Reason:       msgTripTaken,
			SharedTripID: e.SharedTripID,
		}
	case errors.Is(err, types.ErrTripNotFound):
		metrics.RecordAssignment(d.service, "rejected_not_found")
		msg = models.AssignmentRejectedMessage{
			Reason:       msgTripNotFound,
			SharedTripID: e.SharedTripID,
		}
	default:
		metrics.RecordAssignment(d.service, "rejected")
		d.l.Error(wrap.WithLogCtx(ctx, wrap.LogCtx{Action: "shared_trip_accept", DriverID: e.DriverID, TripID: e.SharedTripID}),
			"accept attempt failed", err)
		msg = models.AssignmentRejectedMessage{
			Reason:       msgTripTaken,
			SharedTripID: e.SharedTripID,
		}
	}
	d.notifier.SendToDriver(e.DriverID, models.EvAssignmentRejected, msg)
}

// handleDriverPickupConfirmed moves the trip to PICKUP_CONFIRMED and tells
// every party the driver is on the way.
func (d *Dispatcher) handleDriverPickupConfirmed(ctx context.Context, e models.DriverPickupConfirmedEvent) {
	trip, err := d.trips.Transition(ctx, e.SharedTripID, types.StatusPickupConfirmed, e.DriverID)
	if err != nil {
		d.logTransitionFailure(ctx, e.SharedTripID, e.DriverID, types.StatusPickupConfirmed, err)
		return
	}
	d.trips.SetEstimatedArrival(e.SharedTripID, e.EstimatedArrival)
	d.refreshTripGauges()

	d.notifier.Broadcast(models.EvTripStatusUpdate, models.TripStatusUpdateMessage{
		SharedTripID:     trip.ID,
		Status:           wireStatus(trip.Status),
		DriverID:         e.DriverID,
		DriverInfo:       e.DriverInfo,
		EstimatedArrival: e.EstimatedArrival,
		Message:          fmt.Sprintf("Föraren är på väg! Beräknad ankomst: %s", e.EstimatedArrival),
		Timestamp:        time.Now(),
	})

	for _, member := range trip.Trips {
		name := member.UserName
		if name == "" {
			name = "kund"
		}
		d.notifier.SendToPassenger(member.UserID, models.EvDetailedTripUpdate, models.DetailedTripUpdateMessage{
			SharedTripID:  trip.ID,
			Status:        wireStatus(trip.Status),
			Message:       fmt.Sprintf("Hej %s! Din förare är på väg till %s. Beräknad ankomst: %s", name, member.PickupAddress, e.EstimatedArrival),
			DriverInfo:    detailedContactInfo(e.DriverInfo),
			PickupTime:    e.EstimatedArrival,
			PickupAddress: member.PickupAddress,
		})
	}

	d.publishStatus(ctx, trip)
}

// handleDriverArrived moves the trip to DRIVER_ARRIVED and points each
// passenger at the waiting car.
func (d *Dispatcher) handleDriverArrived(ctx context.Context, e models.DriverArrivedEvent) {
	trip, err := d.trips.Transition(ctx, e.SharedTripID, types.StatusDriverArrived, e.DriverID)
	if err != nil {
		d.logTransitionFailure(ctx, e.SharedTripID, e.DriverID, types.StatusDriverArrived, err)
		return
	}
	d.refreshTripGauges()

	d.notifier.Broadcast(models.EvTripStatusUpdate, models.TripStatusUpdateMessage{
		SharedTripID: trip.ID,
		Status:       wireStatus(trip.Status),
		DriverID:     e.DriverID,
		Message:      "Föraren har anlänt!",
		Timestamp:    time.Now(),
	})

	for _, member := range trip.Trips {
		d.notifier.SendToPassenger(member.UserID, models.EvDetailedTripUpdate, models.DetailedTripUpdateMessage{
			SharedTripID: trip.ID,
			Status:       wireStatus(trip.Status),
			Message:      fmt.Sprintf("Din förare har anlänt vid %s! Titta efter bilen med registreringsnummer %s", member.PickupAddress, e.DriverInfo.LicensePlate),
			DriverInfo:   detailedContactInfo(e.DriverInfo),
		})
	}

	d.publishStatus(ctx, trip)
}

// handleTripStarted moves the trip to IN_PROGRESS.
func (d *Dispatcher) handleTripStarted(ctx context.Context, e models.TripStartedEvent) {
	trip, err := d.trips.Transition(ctx, e.SharedTripID, types.StatusInProgress, e.DriverID)
	if err != nil {
		d.logTransitionFailure(ctx, e.SharedTripID, e.DriverID, types.StatusInProgress, err)
		return
	}
	d.refreshTripGauges()

	d.notifier.Broadcast(models.EvTripStatusUpdate, models.TripStatusUpdateMessage{
		SharedTripID: trip.ID,
		Status:       wireStatus(trip.Status),
		DriverID:     e.DriverID,
		Message:      "Resan har påbörjats",
		Timestamp:    time.Now(),
	})

	for _, member := range trip.Trips {
		d.notifier.SendToPassenger(member.UserID, models.EvDetailedTripUpdate, models.DetailedTripUpdateMessage{
			SharedTripID: trip.ID,
			Status:       wireStatus(trip.Status),
			Message:      fmt.Sprintf("Resan till %s pågår. Ha en trevlig resa!", member.DestinationAddress),
		})
	}

	d.publishStatus(ctx, trip)
}

// handleTripCompleted moves the trip to COMPLETED, releases the driver's
// assignment so new offers reach it again, and reports the completion to
// the backend of record.
func (d *Dispatcher) handleTripCompleted(ctx context.Context, e models.TripCompletedEvent) {
	trip, err := d.trips.Transition(ctx, e.SharedTripID, types.StatusCompleted, e.DriverID)
	if err != nil {
		d.logTransitionFailure(ctx, e.SharedTripID, e.DriverID, types.StatusCompleted, err)
		return
	}
	d.guard.Release(ctx, e.DriverID)
	d.refreshTripGauges()

	d.notifier.Broadcast(models.EvTripStatusUpdate, models.TripStatusUpdateMessage{
		SharedTripID: trip.ID,
		Status:       wireStatus(trip.Status),
		DriverID:     e.DriverID,
		Message:      "Resan avslutad",
		Timestamp:    time.Now(),
	})

	for _, member := range trip.Trips {
		d.notifier.SendToPassenger(member.UserID, models.EvDetailedTripUpdate, models.DetailedTripUpdateMessage{
			SharedTripID: trip.ID,
			Status:       wireStatus(trip.Status),
			Message:      "Tack för att du reste med Göteborg Taxi! Vi hoppas du hade en bra resa.",
		})
	}

	for _, member := range trip.Trips {
		tripID := strconv.FormatInt(member.ID, 10)
		if err := d.backend.UpdateTripStatus(ctx, tripID, types.StatusCompleted.String(), e.DriverID); err != nil {
			d.l.Warn(wrap.WithAction(ctx, types.ActionBackendRequestFailed),
				"failed to report trip completion to backend",
				"trip_request_id", tripID,
				"error", err.Error(),
			)
		}
	}

	d.publishStatus(ctx, trip)
}

// handleTripStatusUpdate is the legacy individual-trip path: the status is
// forwarded to the backend and the trip's passengers get a plain update.
func (d *Dispatcher) handleTripStatusUpdate(ctx context.Context, e models.TripStatusUpdateEvent) {
	d.activeMu.Lock()
	trip, ok := d.activeTrips[e.TripID]
	if ok {
		trip.Status = e.Status
	}
	d.activeMu.Unlock()
	if !ok {
		return
	}

	if err := d.backend.UpdateTripStatus(ctx, e.TripID, e.Status, e.DriverID); err != nil {
		d.l.Warn(wrap.WithLogCtx(ctx, wrap.LogCtx{Action: types.ActionBackendRequestFailed, TripID: e.TripID}),
			"failed to update trip status in backend",
			"error", err.Error(),
		)
	}

	d.notifyTripPassengers(e.TripID, models.EvStatusUpdate, models.StatusUpdateMessage{
		TripID: e.TripID,
		Status: e.Status,
	})
}

// handlePassengerPickupConfirmed relays a pickup confirmation to the other
// passengers of a legacy individual trip. No state changes.
func (d *Dispatcher) handlePassengerPickupConfirmed(ctx context.Context, e models.PassengerPickupConfirmedEvent) {
	d.notifyTripPassengers(e.TripID, models.EvPickupConfirmed, models.PickupConfirmedMessage{
		TripID:           e.TripID,
		EstimatedArrival: e.EstimatedArrival,
		DriverLocation:   e.DriverLocation,
	})
}

// handleDisconnect removes the session. A driver's active assignment is
// deliberately retained: the driver is expected to reconnect and resume.
func (d *Dispatcher) handleDisconnect(ctx context.Context, e models.DisconnectEvent) {
	d.registry.RemoveSession(ctx, e.SessionID)
}

func (d *Dispatcher) logTransitionFailure(ctx context.Context, tripID, driverID string, target types.TripStatus, err error) {
	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{
		Action:   "shared_trip_transition_rejected",
		DriverID: driverID,
		TripID:   tripID,
	})
	if errors.Is(err, types.ErrTripNotFound) {
		d.l.Debug(ctx, "transition for unknown shared trip ignored", "target_status", target.String())
		return
	}
	d.l.Warn(ctx, "shared trip transition rejected",
		"target_status", target.String(),
		"error", err.Error(),
	)
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
