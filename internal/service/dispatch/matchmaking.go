package dispatch

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/models"
	"github.com/gothenburg-taxi/dispatch-service/internal/domain/types"
	wrap "github.com/gothenburg-taxi/dispatch-service/pkg/logger/wrapper"
	"github.com/gothenburg-taxi/dispatch-service/pkg/metrics"
	"github.com/gothenburg-taxi/dispatch-service/pkg/uuid"
)

// MatchResult reports one matchmaking run.
type MatchResult struct {
	Created         []models.SharedTrip `json:"created"`
	NotifiedDrivers int                 `json:"notifiedDrivers"`
}

// RunMatchmaking pulls the backend's pending trip requests and greedily
// merges them into shared trips: each ungrouped request seeds a group
// filled with its compatible neighbours, first found first taken. A
// request already sitting in a live shared trip is skipped. Singleton
// groups dispatch as individual trips at the solo tariff.
func (d *Dispatcher) RunMatchmaking(ctx context.Context) (MatchResult, error) {
	ctx = wrap.WithAction(ctx, types.ActionMatchmakingRun)

	pending, err := d.backend.PendingTrips(ctx)
	if err != nil {
		return MatchResult{}, wrap.Error(ctx, fmt.Errorf("%w: %w", types.ErrBackendUnreachable, err))
	}

	grouped := d.groupedRequestIDs()
	var result MatchResult

	for i, base := range pending {
		if grouped[base.ID] {
			continue
		}

		companions := d.matcher.FindCompatibleGroup(base, ungrouped(pending[i+1:], grouped))
		members := append([]models.TripRequest{base}, companions...)

		provenance := types.ProvenanceAutomatic
		prefix := "auto"
		if len(members) == 1 {
			provenance = types.ProvenanceIndividual
			prefix = "individual"
		}

		id := fmt.Sprintf("%s-%s", prefix, uuid.MustNew())
		trip, err := d.trips.Create(ctx, id, members, provenance, "")
		if err != nil {
			return result, wrap.Error(ctx, err)
		}
		for _, m := range members {
			grouped[m.ID] = true
		}

		metrics.SharedTripsCreated.WithLabelValues(d.service, string(provenance)).Inc()
		result.Created = append(result.Created, trip)
		result.NotifiedDrivers += d.offerToAvailableDrivers(ctx, trip)
	}

	d.refreshTripGauges()

	d.l.Info(ctx, "matchmaking run finished",
		"pending_requests", len(pending),
		"trips_created", len(result.Created),
	)
	return result, nil
}

// RegisterExternalTrip records a shared trip the backend already formed
// and offers it to the available drivers.
func (d *Dispatcher) RegisterExternalTrip(ctx context.Context, sharedTripID string, members []models.TripRequest) (models.SharedTrip, int, error) {
	trip, err := d.trips.Create(ctx, sharedTripID, members, types.ProvenanceAutomatic, "")
	if err != nil {
		return models.SharedTrip{}, 0, wrap.Error(ctx, err)
	}

	metrics.SharedTripsCreated.WithLabelValues(d.service, string(types.ProvenanceAutomatic)).Inc()
	d.refreshTripGauges()

	notified := d.offerToAvailableDrivers(ctx, trip)
	return trip, notified, nil
}

// ManualMerge combines the named orders into one shared trip on an
// operator's say-so, bypassing the compatibility checks. Orders the
// backend no longer lists as pending get placeholder details.
func (d *Dispatcher) ManualMerge(ctx context.Context, orderIDs []int64, mergedBy string) (models.SharedTrip, int, error) {
	members := d.resolveOrders(ctx, orderIDs)

	id := fmt.Sprintf("manual-%s", uuid.MustNew())
	trip, err := d.trips.Create(ctx, id, members, types.ProvenanceManual, mergedBy)
	if err != nil {
		return models.SharedTrip{}, 0, wrap.Error(ctx, err)
	}

	metrics.SharedTripsCreated.WithLabelValues(d.service, string(types.ProvenanceManual)).Inc()
	d.refreshTripGauges()

	d.l.Info(wrap.WithTripID(ctx, id), "manual merge created",
		"merged_by", mergedBy,
		"orders", len(orderIDs),
	)

	notified := d.offerToAvailableDrivers(ctx, trip)
	return trip, notified, nil
}

// SendIndividual dispatches each named order as its own singleton shared
// trip at the solo tariff.
func (d *Dispatcher) SendIndividual(ctx context.Context, orderIDs []int64, sentBy string) ([]models.SharedTrip, error) {
	members := d.resolveOrders(ctx, orderIDs)

	created := make([]models.SharedTrip, 0, len(members))
	for _, member := range members {
		id := fmt.Sprintf("individual-%d-%s", member.ID, uuid.MustNew())
		trip, err := d.trips.Create(ctx, id, []models.TripRequest{member}, types.ProvenanceIndividual, sentBy)
		if err != nil {
			return created, wrap.Error(ctx, err)
		}

		metrics.SharedTripsCreated.WithLabelValues(d.service, string(types.ProvenanceIndividual)).Inc()
		d.offerToAvailableDrivers(ctx, trip)
		created = append(created, trip)
	}
	d.refreshTripGauges()

	d.l.Info(ctx, "individual trips dispatched",
		"sent_by", sentBy,
		"count", len(created),
	)
	return created, nil
}

// PendingOrders proxies the backend's pending trip requests for the
// dashboard.
func (d *Dispatcher) PendingOrders(ctx context.Context) ([]models.TripRequest, error) {
	pending, err := d.backend.PendingTrips(ctx)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: %w", types.ErrBackendUnreachable, err))
	}
	return pending, nil
}

// offerToAvailableDrivers sends a shared-trip-available offer to every
// driver able to take it and returns how many were notified. Drivers
// holding an active assignment never see offers.
func (d *Dispatcher) offerToAvailableDrivers(ctx context.Context, trip models.SharedTrip) int {
	offer := models.SharedTripAvailableMessage{
		SharedTripID:         trip.ID,
		Trips:                trip.Trips,
		PassengerCount:       trip.PassengerCount,
		EstimatedEarning:     trip.EstimatedEarning,
		PickupAddresses:      trip.PickupAddresses(),
		DestinationAddresses: trip.DestinationAddresses(),
		CreationType:         trip.Provenance,
	}

	notified := 0
	for _, driver := range d.registry.AvailableDrivers() {
		if _, busy := d.guard.ActiveFor(driver.DriverID); busy {
			continue
		}
		d.notifier.SendToDriver(driver.DriverID, models.EvSharedTripAvailable, offer)
		notified++
	}

	d.l.Info(wrap.WithTripID(ctx, trip.ID), "shared trip offered to drivers",
		"notified_drivers", notified,
		"passenger_count", trip.PassengerCount,
		"estimated_earning", trip.EstimatedEarning,
	)

	d.publishStatus(ctx, trip)
	return notified
}

// resolveOrders maps order ids to their pending trip requests. An id the
// backend no longer returns, or any backend failure, degrades to a
// placeholder request so operator actions still go through.
func (d *Dispatcher) resolveOrders(ctx context.Context, orderIDs []int64) []models.TripRequest {
	byID := make(map[int64]models.TripRequest)
	pending, err := d.backend.PendingTrips(ctx)
	if err != nil {
		d.l.Warn(wrap.WithAction(ctx, types.ActionBackendRequestFailed),
			"could not resolve orders from backend, using placeholders",
			"error", err.Error(),
		)
	} else {
		for _, req := range pending {
			byID[req.ID] = req
		}
	}

	members := make([]models.TripRequest, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		if req, ok := byID[orderID]; ok {
			members = append(members, req)
			continue
		}
		members = append(members, placeholderRequest(orderID))
	}
	return members
}

func placeholderRequest(orderID int64) models.TripRequest {
	id := strconv.FormatInt(orderID, 10)
	return models.TripRequest{
		ID:                 orderID,
		UserID:             id,
		UserName:           fmt.Sprintf("Kund %s", id),
		PickupAddress:      fmt.Sprintf("Upphämtningsplats %s", id),
		DestinationAddress: fmt.Sprintf("Destination %s", id),
		PassengerCount:     1,
		EstimatedCost:      400,
	}
}

// ungrouped filters the pool down to requests not yet placed in a trip.
func ungrouped(pool []models.TripRequest, grouped map[int64]bool) []models.TripRequest {
	var out []models.TripRequest
	for _, req := range pool {
		if !grouped[req.ID] {
			out = append(out, req)
		}
	}
	return out
}

// groupedRequestIDs collects the member ids of every live shared trip so
// matchmaking never double-books a request.
func (d *Dispatcher) groupedRequestIDs() map[int64]bool {
	grouped := make(map[int64]bool)
	for _, trip := range d.trips.List() {
		if trip.Status == types.StatusCompleted {
			continue
		}
		for _, member := range trip.Trips {
			grouped[member.ID] = true
		}
	}
	return grouped
}
