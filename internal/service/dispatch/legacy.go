package dispatch

import (
	"context"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/models"
	wrap "github.com/gothenburg-taxi/dispatch-service/pkg/logger/wrapper"
)

// AssignIndividualTrip records a backend-relayed individual trip
// assignment and notifies both sides: the driver gets the pickup list,
// the passengers learn a driver is coming.
func (d *Dispatcher) AssignIndividualTrip(ctx context.Context, trip models.ActiveTrip) {
	if trip.Status == "" {
		trip.Status = "assigned"
	}

	d.activeMu.Lock()
	d.activeTrips[trip.TripID] = &trip
	d.activeMu.Unlock()

	d.notifier.SendToDriver(trip.DriverID, models.EvTripAssignment, models.TripAssignmentMessage{
		TripID:          trip.TripID,
		Passengers:      trip.Passengers,
		PickupLocations: trip.PickupLocations,
	})

	d.notifyTripPassengers(trip.TripID, models.EvTripAssigned, models.TripAssignedMessage{
		TripID:           trip.TripID,
		DriverID:         trip.DriverID,
		EstimatedArrival: "Calculating...",
	})

	d.l.Info(wrap.WithLogCtx(ctx, wrap.LogCtx{Action: "individual_trip_assigned", DriverID: trip.DriverID, TripID: trip.TripID}),
		"individual trip assigned",
		"passengers", len(trip.Passengers),
	)
}

// updateTripProgress sends en-route progress with a fresh arrival estimate
// to the passengers of every individual trip the driver serves.
func (d *Dispatcher) updateTripProgress(driverID string, location models.Location) {
	d.activeMu.Lock()
	var served []models.ActiveTrip
	for _, trip := range d.activeTrips {
		if trip.DriverID == driverID {
			served = append(served, *trip)
		}
	}
	d.activeMu.Unlock()

	for _, trip := range served {
		update := models.TripUpdateMessage{
			TripID:           trip.TripID,
			DriverLocation:   location,
			EstimatedArrival: estimateArrivalMinutes(),
			Status:           "en_route",
		}
		for _, passengerID := range trip.Passengers {
			d.notifier.SendToPassenger(passengerID, models.EvTripUpdate, update)
		}
	}
}

// notifyTripPassengers fans a message out to every passenger of a legacy
// individual trip. Unknown trip ids are ignored.
func (d *Dispatcher) notifyTripPassengers(tripID string, event models.EventName, data any) {
	d.activeMu.Lock()
	trip, ok := d.activeTrips[tripID]
	var passengers []string
	if ok {
		passengers = append(passengers, trip.Passengers...)
	}
	d.activeMu.Unlock()
	if !ok {
		return
	}

	for _, passengerID := range passengers {
		d.notifier.SendToPassenger(passengerID, event, data)
	}
}
