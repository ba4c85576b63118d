package models

import (
	"fmt"
	"time"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/types"
)

// VehicleInfo describes the car a connected driver operates. Field names
// follow the mobile clients' wire format.
type VehicleInfo struct {
	LicensePlate         string `json:"licensePlate"`
	Make                 string `json:"make"`
	Model                string `json:"model"`
	Color                string `json:"color"`
	PhoneNumber          string `json:"phoneNumber"`
	DriverName           string `json:"driverName"`
	WheelchairAccessible bool   `json:"wheelchairAccessible,omitempty"`
}

// WithDefaults fills the blanks a sparse driver-connect payload leaves.
// The defaults match what the mobile apps show when a field is missing.
func (v VehicleInfo) WithDefaults(driverID string) VehicleInfo {
	if v.LicensePlate == "" {
		v.LicensePlate = "ABC123"
	}
	if v.Make == "" {
		v.Make = "Volvo"
	}
	if v.Model == "" {
		v.Model = "V70"
	}
	if v.Color == "" {
		v.Color = "Vit"
	}
	if v.PhoneNumber == "" {
		v.PhoneNumber = "031-123-4567"
	}
	if v.DriverName == "" {
		v.DriverName = fmt.Sprintf("Förare %s", driverID)
	}
	return v
}

// DriverSession is the live state of one connected driver.
type DriverSession struct {
	DriverID           string             `json:"driverId"`
	SessionID          string             `json:"-"`
	Location           Location           `json:"location"`
	Status             types.DriverStatus `json:"status"`
	Vehicle            VehicleInfo        `json:"vehicleInfo"`
	ConnectedAt        time.Time          `json:"connectedAt"`
	LastLocationUpdate time.Time          `json:"lastLocationUpdate,omitempty"`
}

// PassengerSession maps a connected passenger to its transport session.
type PassengerSession struct {
	UserID    string
	SessionID string
}
