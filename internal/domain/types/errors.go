package types

import "errors"

var (
	ErrTripNotFound    = errors.New("shared trip not found")
	ErrRequestNotFound = errors.New("trip request not found")
	ErrDriverNotFound  = errors.New("driver not found")

	ErrInvalidTransition = errors.New("invalid trip status transition")
	ErrDriverMismatch    = errors.New("trip is assigned to a different driver")

	ErrAlreadyAssignedElsewhere = errors.New("driver already has an active trip")
	ErrTripAlreadyTaken         = errors.New("trip already assigned to another driver")

	ErrBackendUnreachable = errors.New("persistence backend unreachable")

	ErrNotFound = errors.New("requested item not found")
)
