package models

// EventName is the wire name of a session event.
type EventName string

func (e EventName) String() string {
	return string(e)
}

// Inbound event vocabulary.
const (
	EvDriverConnect            EventName = "driver-connect"
	EvPassengerConnect         EventName = "passenger-connect"
	EvLocationUpdate           EventName = "location-update"
	EvSharedTripAccept         EventName = "shared-trip-accept"
	EvDriverPickupConfirmed    EventName = "driver-pickup-confirmed"
	EvDriverArrived            EventName = "driver-arrived"
	EvTripStarted              EventName = "trip-started"
	EvTripCompleted            EventName = "trip-completed"
	EvTripStatusUpdate         EventName = "trip-status-update"
	EvPassengerPickupConfirmed EventName = "passenger-pickup-confirmed"
	EvDisconnect               EventName = "disconnect"
)

// Outbound event vocabulary.
const (
	EvSharedTripAvailable    EventName = "shared-trip-available"
	EvDriverAssigned         EventName = "driver-assigned"
	EvSharedTripTaken        EventName = "shared-trip-taken"
	EvAssignmentRejected     EventName = "assignment-rejected"
	EvSharedTripStatusUpdate EventName = "shared-trip-status-update"
	EvDetailedTripUpdate     EventName = "detailed-trip-update"
	EvDriverLocationUpdate   EventName = "driver-location-update"
	EvTripAssignment         EventName = "trip-assignment"
	EvTripAssigned           EventName = "trip-assigned"
	EvTripUpdate             EventName = "trip-update"
	EvStatusUpdate           EventName = "status-update"
	EvPickupConfirmed        EventName = "pickup-confirmed"
)

// Event is the tagged union of every inbound session event. One concrete
// type per wire event keeps the router's dispatch switch exhaustive.
type Event interface {
	Name() EventName
}

type DriverConnectEvent struct {
	DriverID    string      `json:"driverId"`
	Location    Location    `json:"location"`
	VehicleInfo VehicleInfo `json:"vehicleInfo"`
	SessionID   string      `json:"-"`
}

type PassengerConnectEvent struct {
	UserID    string `json:"userId"`
	SessionID string `json:"-"`
}

type LocationUpdateEvent struct {
	DriverID string   `json:"driverId"`
	Location Location `json:"location"`
}

type SharedTripAcceptEvent struct {
	SharedTripID string `json:"sharedTripId"`
	DriverID     string `json:"driverId"`
}

type DriverPickupConfirmedEvent struct {
	SharedTripID     string      `json:"sharedTripId"`
	DriverID         string      `json:"driverId"`
	EstimatedArrival string      `json:"estimatedArrival"`
	DriverInfo       VehicleInfo `json:"driverInfo"`
}

type DriverArrivedEvent struct {
	SharedTripID string      `json:"sharedTripId"`
	DriverID     string      `json:"driverId"`
	DriverInfo   VehicleInfo `json:"driverInfo"`
}

type TripStartedEvent struct {
	SharedTripID string `json:"sharedTripId"`
	DriverID     string `json:"driverId"`
}

type TripCompletedEvent struct {
	SharedTripID string `json:"sharedTripId"`
	DriverID     string `json:"driverId"`
}

// TripStatusUpdateEvent is the legacy individual-trip path: the status is
// forwarded to the backend of record and the passengers are notified.
type TripStatusUpdateEvent struct {
	TripID   string `json:"tripId"`
	Status   string `json:"status"`
	DriverID string `json:"driverId"`
}

type PassengerPickupConfirmedEvent struct {
	TripID           string   `json:"tripId"`
	PassengerID      string   `json:"passengerId"`
	EstimatedArrival string   `json:"estimatedArrival"`
	DriverLocation   Location `json:"driverLocation"`
}

type DisconnectEvent struct {
	SessionID string `json:"-"`
}

func (DriverConnectEvent) Name() EventName            { return EvDriverConnect }
func (PassengerConnectEvent) Name() EventName         { return EvPassengerConnect }
func (LocationUpdateEvent) Name() EventName           { return EvLocationUpdate }
func (SharedTripAcceptEvent) Name() EventName         { return EvSharedTripAccept }
func (DriverPickupConfirmedEvent) Name() EventName    { return EvDriverPickupConfirmed }
func (DriverArrivedEvent) Name() EventName            { return EvDriverArrived }
func (TripStartedEvent) Name() EventName              { return EvTripStarted }
func (TripCompletedEvent) Name() EventName            { return EvTripCompleted }
func (TripStatusUpdateEvent) Name() EventName         { return EvTripStatusUpdate }
func (PassengerPickupConfirmedEvent) Name() EventName { return EvPassengerPickupConfirmed }
func (DisconnectEvent) Name() EventName               { return EvDisconnect }
