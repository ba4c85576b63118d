package types

// TripStatus is the lifecycle state of a shared trip. Transitions are
// strictly monotonic in the order the constants are declared.
type TripStatus string

func (s TripStatus) String() string {
	return string(s)
}

const (
	StatusPendingAssignment TripStatus = "PENDING_DRIVER_ASSIGNMENT"
	StatusAssigned          TripStatus = "ASSIGNED"
	StatusPickupConfirmed   TripStatus = "PICKUP_CONFIRMED"
	StatusDriverArrived     TripStatus = "DRIVER_ARRIVED"
	StatusInProgress        TripStatus = "IN_PROGRESS"
	StatusCompleted         TripStatus = "COMPLETED"
)

// statusOrder fixes the lifecycle sequence.
var statusOrder = map[TripStatus]int{
	StatusPendingAssignment: 0,
	StatusAssigned:          1,
	StatusPickupConfirmed:   2,
	StatusDriverArrived:     3,
	StatusInProgress:        4,
	StatusCompleted:         5,
}

// IsValid reports whether s is a known lifecycle state.
func (s TripStatus) IsValid() bool {
	_, ok := statusOrder[s]
	return ok
}

// IsSuccessorOf reports whether s is the immediate successor of prev.
func (s TripStatus) IsSuccessorOf(prev TripStatus) bool {
	a, okA := statusOrder[prev]
	b, okB := statusOrder[s]
	return okA && okB && b == a+1
}

// IsActive reports whether a trip in this state holds its driver.
func (s TripStatus) IsActive() bool {
	switch s {
	case StatusAssigned, StatusPickupConfirmed, StatusDriverArrived, StatusInProgress:
		return true
	default:
		return false
	}
}

// AllTripStatuses lists every lifecycle state in order.
func AllTripStatuses() []TripStatus {
	return []TripStatus{
		StatusPendingAssignment,
		StatusAssigned,
		StatusPickupConfirmed,
		StatusDriverArrived,
		StatusInProgress,
		StatusCompleted,
	}
}

// DriverStatus mirrors the wire values the mobile clients expect.
type DriverStatus string

const (
	DriverAvailable DriverStatus = "available"
	DriverBusy      DriverStatus = "busy"
)

// Provenance records how a shared trip was formed.
type Provenance string

const (
	ProvenanceAutomatic  Provenance = "automatic"
	ProvenanceManual     Provenance = "manual"
	ProvenanceIndividual Provenance = "individual"
)

// EntityType distinguishes session owners.
type EntityType string

const (
	Driver    EntityType = "driver"
	Passenger EntityType = "passenger"
)

// Fixed government tariff in SEK. Not distance based.
const (
	TariffShared     = 800
	TariffIndividual = 650
)
