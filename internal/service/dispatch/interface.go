package dispatch

import (
	"context"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/models"
)

/*=================Session Notifier======================*/

// Notifier delivers outbound envelopes to connected sessions. Delivery is
// best effort: an offline recipient is skipped, never an error.
type Notifier interface {
	SendToDriver(driverID string, event models.EventName, data any)
	SendToPassenger(userID string, event models.EventName, data any)
	Broadcast(event models.EventName, data any)
}

/*=================Persistence Backend===================*/

// BackendClient is the external backend of record for trip requests.
type BackendClient interface {
	PendingTrips(ctx context.Context) ([]models.TripRequest, error)
	UpdateTripStatus(ctx context.Context, tripID, status, driverID string) error
	AssignTrip(ctx context.Context, tripID, driverID string) error
}

/*=================Status Publisher======================*/

// Publisher pushes committed shared-trip status changes to the broker.
type Publisher interface {
	PublishTripStatus(ctx context.Context, msg models.TripStatusChangedMessage) error
}
