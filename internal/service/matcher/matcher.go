// Package matcher decides which trip requests can share a vehicle.
// The decision is deliberately greedy and first-fit: destinations are not
// compared, which maximizes merge opportunities.
package matcher

import (
	"time"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/models"
)

const (
	// DefaultTimeWindow is the maximum pickup-time difference for a merge.
	DefaultTimeWindow = 30 * time.Minute
	// DefaultRadiusKm is the maximum pickup distance for a merge.
	DefaultRadiusKm = 5.0
	// DefaultMaxCompanions caps a group at 4 requests total.
	DefaultMaxCompanions = 3
)

// Matcher holds the compatibility thresholds. The zero value is not usable;
// construct with New.
type Matcher struct {
	timeWindow    time.Duration
	radiusKm      float64
	maxCompanions int
}

func New(timeWindow time.Duration, radiusKm float64, maxCompanions int) *Matcher {
	if timeWindow <= 0 {
		timeWindow = DefaultTimeWindow
	}
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	if maxCompanions <= 0 {
		maxCompanions = DefaultMaxCompanions
	}
	return &Matcher{
		timeWindow:    timeWindow,
		radiusKm:      radiusKm,
		maxCompanions: maxCompanions,
	}
}

// AreCompatible reports whether two trip requests can share a vehicle:
// pickup times within the time window and pickup points within the radius.
func (m *Matcher) AreCompatible(a, b models.TripRequest) bool {
	timeDiff := a.RequestedPickupTime.Sub(b.RequestedPickupTime)
	if timeDiff < 0 {
		timeDiff = -timeDiff
	}
	if timeDiff > m.timeWindow {
		return false
	}

	distance := HaversineDistance(
		a.PickupLatitude, a.PickupLongitude,
		b.PickupLatitude, b.PickupLongitude,
	)
	return distance <= m.radiusKm
}

// FindCompatibleGroup returns up to maxCompanions requests from pool that
// are compatible with base, in pool iteration order. The base request
// itself is excluded. First-found wins; the result is not the optimal set.
func (m *Matcher) FindCompatibleGroup(base models.TripRequest, pool []models.TripRequest) []models.TripRequest {
	var compatible []models.TripRequest

	for _, candidate := range pool {
		if candidate.ID == base.ID {
			continue
		}
		if !m.AreCompatible(base, candidate) {
			continue
		}
		compatible = append(compatible, candidate)
		if len(compatible) == m.maxCompanions {
			break
		}
	}

	return compatible
}
