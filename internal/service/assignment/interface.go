package assignment

import (
	"context"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/models"
	"github.com/gothenburg-taxi/dispatch-service/internal/domain/types"
)

type (
	// TripAssigner is the check-and-set the guard runs against the trip
	// store when a driver wins an accept race.
	TripAssigner interface {
		Assign(ctx context.Context, id, driverID string) (models.SharedTrip, error)
	}

	// AvailabilityKeeper flips a driver between available and busy.
	AvailabilityKeeper interface {
		SetDriverAvailability(driverID string, status types.DriverStatus)
	}
)
