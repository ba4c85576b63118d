package models

import (
	"time"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/types"
)

// TripRequest is one passenger's individual booking. It is owned by the
// persistence backend; the dispatch core treats it as an immutable value
// once received for matching.
type TripRequest struct {
	ID                    int64     `json:"id"`
	UserID                string    `json:"userId"`
	UserName              string    `json:"userName"`
	PickupAddress         string    `json:"pickupAddress"`
	DestinationAddress    string    `json:"destinationAddress"`
	PickupLatitude        float64   `json:"pickupLatitude"`
	PickupLongitude       float64   `json:"pickupLongitude"`
	DestinationLatitude   float64   `json:"destinationLatitude"`
	DestinationLongitude  float64   `json:"destinationLongitude"`
	RequestedPickupTime   time.Time `json:"requestedPickupTime"`
	PassengerCount        int       `json:"passengerCount"`
	NeedsWheelchairAccess bool      `json:"needsWheelchairAccess"`
	NeedsAssistance       bool      `json:"needsAssistance"`
	Priority              string    `json:"priority,omitempty"`
	EstimatedCost         float64   `json:"estimatedCost,omitempty"`
}

// SharedTrip is the dispatch unit: one or more trip requests merged into a
// single vehicle assignment. Membership is immutable after creation.
type SharedTrip struct {
	ID               string           `json:"id"`
	Trips            []TripRequest    `json:"trips"`
	PassengerCount   int              `json:"passengerCount"`
	Status           types.TripStatus `json:"status"`
	AssignedDriverID string           `json:"assignedDriverId,omitempty"`
	Provenance       types.Provenance `json:"provenance"`
	EstimatedEarning int              `json:"estimatedEarning"`

	// Operator attribution for non-automatic trips.
	MergedBy string `json:"mergedBy,omitempty"`
	SentBy   string `json:"sentBy,omitempty"`

	EstimatedArrival string `json:"estimatedArrival,omitempty"`

	CreatedAt         time.Time  `json:"createdAt"`
	AssignedAt        *time.Time `json:"assignedAt,omitempty"`
	PickupConfirmedAt *time.Time `json:"pickupConfirmedAt,omitempty"`
	ArrivedAt         *time.Time `json:"arrivedAt,omitempty"`
	StartedAt         *time.Time `json:"startedAt,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

// PickupAddresses lists member pickup addresses in merge order.
func (t *SharedTrip) PickupAddresses() []string {
	out := make([]string, 0, len(t.Trips))
	for _, tr := range t.Trips {
		out = append(out, tr.PickupAddress)
	}
	return out
}

// DestinationAddresses lists member destination addresses in merge order.
func (t *SharedTrip) DestinationAddresses() []string {
	out := make([]string, 0, len(t.Trips))
	for _, tr := range t.Trips {
		out = append(out, tr.DestinationAddress)
	}
	return out
}

// ActiveTrip is the legacy individual-trip record relayed by the backend
// through the trip-assigned endpoint.
type ActiveTrip struct {
	TripID          string     `json:"tripId"`
	DriverID        string     `json:"driverId"`
	Passengers      []string   `json:"passengers"`
	PickupLocations []Location `json:"pickupLocations"`
	Status          string     `json:"status"`
}
