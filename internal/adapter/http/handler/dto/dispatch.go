package dto

import (
	"time"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/models"
	"github.com/gothenburg-taxi/dispatch-service/pkg/validator"
)

type SharedTripCreatedRequest struct {
	SharedTripID   string               `json:"sharedTripId"`
	Trips          []models.TripRequest `json:"trips"`
	PassengerCount int                  `json:"passengerCount"`
}

func (r *SharedTripCreatedRequest) Validate(v *validator.Validator) {
	v.Check(r.SharedTripID != "", "sharedTripId", "must be provided")
	v.Check(len(r.Trips) > 0, "trips", "must contain at least one trip")
}

type ManualMergeRequest struct {
	OrderIDs  []int64 `json:"orderIds"`
	MergedBy  string  `json:"mergedBy"`
	Timestamp string  `json:"timestamp,omitempty"`
}

func (r *ManualMergeRequest) Validate(v *validator.Validator) {
	v.Check(len(r.OrderIDs) >= 2, "orderIds", "must contain at least two orders")
	v.Check(r.MergedBy != "", "mergedBy", "must be provided")
}

type SendIndividualRequest struct {
	OrderIDs  []int64 `json:"orderIds"`
	SentBy    string  `json:"sentBy"`
	Timestamp string  `json:"timestamp,omitempty"`
}

func (r *SendIndividualRequest) Validate(v *validator.Validator) {
	v.Check(len(r.OrderIDs) > 0, "orderIds", "must contain at least one order")
	v.Check(r.SentBy != "", "sentBy", "must be provided")
}

type TripAssignedRequest struct {
	TripID          string            `json:"tripId"`
	DriverID        string            `json:"driverId"`
	Passengers      []string          `json:"passengers"`
	PickupLocations []models.Location `json:"pickupLocations"`
	Status          string            `json:"status,omitempty"`
}

func (r *TripAssignedRequest) Validate(v *validator.Validator) {
	v.Check(r.TripID != "", "tripId", "must be provided")
	v.Check(r.DriverID != "", "driverId", "must be provided")
}

func (r *TripAssignedRequest) ToModel() models.ActiveTrip {
	return models.ActiveTrip{
		TripID:          r.TripID,
		DriverID:        r.DriverID,
		Passengers:      r.Passengers,
		PickupLocations: r.PickupLocations,
		Status:          r.Status,
	}
}

// SharedTripView is the dashboard row shape: trip state plus flattened
// member addresses, without the full member payloads.
type SharedTripView struct {
	ID                   string     `json:"id"`
	PassengerCount       int        `json:"passengerCount"`
	Status               string     `json:"status"`
	AssignedDriverID     string     `json:"assignedDriverId,omitempty"`
	AssignedAt           *time.Time `json:"assignedAt,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	PickupAddresses      []string   `json:"pickupAddresses"`
	DestinationAddresses []string   `json:"destinationAddresses"`
}

func NewSharedTripView(t models.SharedTrip) SharedTripView {
	return SharedTripView{
		ID:                   t.ID,
		PassengerCount:       t.PassengerCount,
		Status:               t.Status.String(),
		AssignedDriverID:     t.AssignedDriverID,
		AssignedAt:           t.AssignedAt,
		CreatedAt:            t.CreatedAt,
		PickupAddresses:      t.PickupAddresses(),
		DestinationAddresses: t.DestinationAddresses(),
	}
}

// ActiveDriverView mirrors what the live dashboard expects per driver.
type ActiveDriverView struct {
	DriverID    string             `json:"driverId"`
	Location    models.Location    `json:"location"`
	Status      string             `json:"status"`
	VehicleInfo models.VehicleInfo `json:"vehicleInfo"`
}

func NewActiveDriverView(d models.DriverSession) ActiveDriverView {
	return ActiveDriverView{
		DriverID:    d.DriverID,
		Location:    d.Location,
		Status:      string(d.Status),
		VehicleInfo: d.Vehicle,
	}
}
