package models

import (
	"time"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/types"
)

// Envelope is the frame every websocket message travels in.
type Envelope struct {
	Event EventName `json:"event"`
	Data  any       `json:"data"`
}

// SharedTripAvailableMessage offers a shared trip to an available driver.
type SharedTripAvailableMessage struct {
	SharedTripID         string           `json:"sharedTripId"`
	Trips                []TripRequest    `json:"trips"`
	PassengerCount       int              `json:"passengerCount"`
	EstimatedEarning     int              `json:"estimatedEarning"`
	PickupAddresses      []string         `json:"pickupAddresses"`
	DestinationAddresses []string         `json:"destinationAddresses"`
	CreationType         types.Provenance `json:"creationType,omitempty"`
}

// ContactInfo is the driver detail passengers see after assignment.
type ContactInfo struct {
	LicensePlate string `json:"licensePlate"`
	PhoneNumber  string `json:"phoneNumber"`
	Make         string `json:"make,omitempty"`
	Model        string `json:"model,omitempty"`
	Color        string `json:"color,omitempty"`
	VehicleModel string `json:"vehicleModel,omitempty"`
}

// DriverAssignedMessage tells a passenger which driver took their trip.
type DriverAssignedMessage struct {
	SharedTripID     string      `json:"sharedTripId"`
	DriverID         string      `json:"driverId"`
	DriverInfo       ContactInfo `json:"driverInfo"`
	EstimatedArrival string      `json:"estimatedArrival"`
	Message          string      `json:"message"`
}

// SharedTripTakenMessage withdraws an offer from rival drivers.
type SharedTripTakenMessage struct {
	SharedTripID string `json:"sharedTripId"`
}

// AssignmentRejectedMessage tells a driver why an accept failed.
type AssignmentRejectedMessage struct {
	Reason        string `json:"reason"`
	CurrentTripID string `json:"currentTripId,omitempty"`
	SharedTripID  string `json:"sharedTripId,omitempty"`
}

// SharedTripStatusUpdateMessage is the all-clients broadcast on assignment.
type SharedTripStatusUpdateMessage struct {
	SharedTripID   string           `json:"sharedTripId"`
	Status         types.TripStatus `json:"status"`
	DriverID       string           `json:"driverId"`
	AssignedAt     time.Time        `json:"assignedAt"`
	PassengerCount int              `json:"passengerCount"`
	Trips          []TripRequest    `json:"trips"`
}

// TripStatusUpdateMessage is the all-clients broadcast for lifecycle steps.
type TripStatusUpdateMessage struct {
	SharedTripID     string      `json:"sharedTripId,omitempty"`
	TripID           string      `json:"tripId,omitempty"`
	Status           string      `json:"status"`
	DriverID         string      `json:"driverId,omitempty"`
	DriverInfo       VehicleInfo `json:"driverInfo,omitzero"`
	EstimatedArrival string      `json:"estimatedArrival,omitempty"`
	Message          string      `json:"message,omitempty"`
	Timestamp        time.Time   `json:"timestamp"`
}

// DetailedTripUpdateMessage is the per-passenger lifecycle notification.
type DetailedTripUpdateMessage struct {
	SharedTripID  string      `json:"sharedTripId"`
	Status        string      `json:"status"`
	Message       string      `json:"message"`
	DriverInfo    ContactInfo `json:"driverInfo,omitzero"`
	PickupTime    string      `json:"pickupTime,omitempty"`
	PickupAddress string      `json:"pickupAddress,omitempty"`
}

// DriverLocationUpdateMessage fans out a driver's position.
type DriverLocationUpdateMessage struct {
	SharedTripID string             `json:"sharedTripId,omitempty"`
	DriverID     string             `json:"driverId"`
	Location     Location           `json:"location"`
	Status       types.DriverStatus `json:"status,omitempty"`
	VehicleInfo  VehicleInfo        `json:"vehicleInfo,omitzero"`
	Timestamp    time.Time          `json:"timestamp"`
}

// TripAssignmentMessage is the legacy individual-trip offer to a driver.
type TripAssignmentMessage struct {
	TripID          string     `json:"tripId"`
	Passengers      []string   `json:"passengers"`
	PickupLocations []Location `json:"pickupLocations"`
}

// TripAssignedMessage is the legacy individual-trip notice to passengers.
type TripAssignedMessage struct {
	TripID           string `json:"tripId"`
	DriverID         string `json:"driverId"`
	EstimatedArrival string `json:"estimatedArrival"`
}

// TripUpdateMessage is the en-route progress notice for individual trips.
type TripUpdateMessage struct {
	TripID           string   `json:"tripId"`
	DriverLocation   Location `json:"driverLocation"`
	EstimatedArrival int      `json:"estimatedArrival"`
	Status           string   `json:"status"`
}

// StatusUpdateMessage is the legacy per-passenger status notice.
type StatusUpdateMessage struct {
	TripID string `json:"tripId"`
	Status string `json:"status"`
}

// PickupConfirmedMessage answers a passenger's pickup confirmation.
type PickupConfirmedMessage struct {
	TripID           string   `json:"tripId"`
	EstimatedArrival string   `json:"estimatedArrival"`
	DriverLocation   Location `json:"driverLocation"`
}

// TripStatusChangedMessage is the broker event published on every committed
// shared-trip status change.
type TripStatusChangedMessage struct {
	SharedTripID   string           `json:"sharedTripId"`
	Status         types.TripStatus `json:"status"`
	DriverID       string           `json:"driverId,omitempty"`
	PassengerCount int              `json:"passengerCount"`
	Timestamp      time.Time        `json:"timestamp"`
}
