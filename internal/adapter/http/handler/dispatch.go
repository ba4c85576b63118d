package handler

import (
	"context"
	"net/http"

	"github.com/gothenburg-taxi/dispatch-service/internal/adapter/http/handler/dto"
	"github.com/gothenburg-taxi/dispatch-service/internal/domain/models"
	"github.com/gothenburg-taxi/dispatch-service/internal/service/dispatch"
	"github.com/gothenburg-taxi/dispatch-service/pkg/logger"
	wrap "github.com/gothenburg-taxi/dispatch-service/pkg/logger/wrapper"
	"github.com/gothenburg-taxi/dispatch-service/pkg/validator"
)

type (
	DispatchService interface {
		Status() dispatch.StatusSummary
		RunMatchmaking(ctx context.Context) (dispatch.MatchResult, error)
		RegisterExternalTrip(ctx context.Context, sharedTripID string, members []models.TripRequest) (models.SharedTrip, int, error)
		ManualMerge(ctx context.Context, orderIDs []int64, mergedBy string) (models.SharedTrip, int, error)
		SendIndividual(ctx context.Context, orderIDs []int64, sentBy string) ([]models.SharedTrip, error)
		PendingOrders(ctx context.Context) ([]models.TripRequest, error)
		AssignIndividualTrip(ctx context.Context, trip models.ActiveTrip)
	}

	DriverDirectory interface {
		ListDrivers() []models.DriverSession
	}

	TripDirectory interface {
		List() []models.SharedTrip
	}
)

type Dispatch struct {
	s       DispatchService
	drivers DriverDirectory
	trips   TripDirectory
	l       logger.Logger
}

func NewDispatch(s DispatchService, drivers DriverDirectory, trips TripDirectory, l logger.Logger) *Dispatch {
	return &Dispatch{
		s:       s,
		drivers: drivers,
		trips:   trips,
		l:       l,
	}
}

// GetStatus godoc
// @Summary      Service status
// @Description  Live counters for drivers, trips and passenger connections
// @Tags         Status
// @Produce      json
// @Success      200  {object}  dispatch.StatusSummary
// @Router       /status [get]
func (h *Dispatch) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_status")

	if err := writeJSON(w, http.StatusOK, h.s.Status(), nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// GetActiveDrivers godoc
// @Summary      Active drivers
// @Description  Currently connected drivers with location and vehicle info
// @Tags         Drivers
// @Produce      json
// @Success      200  {array}  dto.ActiveDriverView
// @Router       /api/active-drivers [get]
func (h *Dispatch) GetActiveDrivers(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_active_drivers")

	sessions := h.drivers.ListDrivers()
	views := make([]dto.ActiveDriverView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, dto.NewActiveDriverView(s))
	}

	if err := writeJSON(w, http.StatusOK, views, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// GetSharedTrips godoc
// @Summary      Shared trips
// @Description  All tracked shared trips with flattened member addresses
// @Tags         Trips
// @Produce      json
// @Success      200  {array}  dto.SharedTripView
// @Router       /api/shared-trips [get]
func (h *Dispatch) GetSharedTrips(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_shared_trips")

	trips := h.trips.List()
	views := make([]dto.SharedTripView, 0, len(trips))
	for _, t := range trips {
		views = append(views, dto.NewSharedTripView(t))
	}

	if err := writeJSON(w, http.StatusOK, views, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// GetPendingOrders godoc
// @Summary      Pending orders
// @Description  Unassigned bookings proxied from the persistence backend
// @Tags         Orders
// @Produce      json
// @Success      200  {array}   models.TripRequest
// @Failure      502  {object}  map[string]string
// @Router       /api/pending-orders [get]
func (h *Dispatch) GetPendingOrders(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_pending_orders")

	orders, err := h.s.PendingOrders(ctx)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to fetch pending orders", err)
		errorResponse(w, GetCode(err), "Failed to fetch pending orders")
		return
	}

	if err := writeJSON(w, http.StatusOK, orders, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// SharedTripCreated godoc
// @Summary      Register shared trip
// @Description  Registers an externally matched shared trip and offers it to available drivers
// @Tags         Trips
// @Accept       json
// @Produce      json
// @Param        request  body      dto.SharedTripCreatedRequest  true  "Shared trip"
// @Success      200      {object}  map[string]any
// @Failure      400      {object}  map[string]string
// @Router       /api/shared-trip-created [post]
func (h *Dispatch) SharedTripCreated(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "shared_trip_created")

	var req dto.SharedTripCreatedRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		errorResponse(w, http.StatusUnprocessableEntity, v.Errors)
		return
	}

	trip, notified, err := h.s.RegisterExternalTrip(ctx, req.SharedTripID, req.Trips)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to register shared trip", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	h.l.Info(ctx, "shared trip registered",
		"shared_trip_id", trip.ID,
		"passenger_count", trip.PassengerCount,
		"notified_drivers", notified,
	)

	response := envelope{"success": true, "notifiedDrivers": notified}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// RunMatchmaking godoc
// @Summary      Run matchmaking
// @Description  Groups pending backend orders into shared trips and offers them to drivers
// @Tags         Orders
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      502  {object}  map[string]string
// @Router       /api/matchmaking [post]
func (h *Dispatch) RunMatchmaking(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "run_matchmaking")

	result, err := h.s.RunMatchmaking(ctx)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "matchmaking failed", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	views := make([]dto.SharedTripView, 0, len(result.Created))
	for _, t := range result.Created {
		views = append(views, dto.NewSharedTripView(t))
	}

	response := envelope{
		"success":         true,
		"tripsCreated":    len(result.Created),
		"notifiedDrivers": result.NotifiedDrivers,
		"trips":           views,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// ManualMerge godoc
// @Summary      Manual merge
// @Description  Merges the named orders into one shared trip on operator request
// @Tags         Orders
// @Accept       json
// @Produce      json
// @Param        request  body      dto.ManualMergeRequest  true  "Merge request"
// @Success      200      {object}  map[string]any
// @Failure      400      {object}  map[string]string
// @Router       /api/manual-merge [post]
func (h *Dispatch) ManualMerge(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "manual_merge")

	var req dto.ManualMergeRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		errorResponse(w, http.StatusUnprocessableEntity, v.Errors)
		return
	}

	trip, notified, err := h.s.ManualMerge(ctx, req.OrderIDs, req.MergedBy)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "manual merge failed", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	h.l.Info(ctx, "manual merge completed",
		"shared_trip_id", trip.ID,
		"merged_by", req.MergedBy,
		"orders", len(req.OrderIDs),
	)

	response := envelope{
		"success":         true,
		"sharedTripId":    trip.ID,
		"notifiedDrivers": notified,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// SendIndividual godoc
// @Summary      Send individual trips
// @Description  Dispatches each named order as its own single-member trip
// @Tags         Orders
// @Accept       json
// @Produce      json
// @Param        request  body      dto.SendIndividualRequest  true  "Send request"
// @Success      200      {object}  map[string]any
// @Failure      400      {object}  map[string]string
// @Router       /api/send-individual [post]
func (h *Dispatch) SendIndividual(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "send_individual")

	var req dto.SendIndividualRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		errorResponse(w, http.StatusUnprocessableEntity, v.Errors)
		return
	}

	created, err := h.s.SendIndividual(ctx, req.OrderIDs, req.SentBy)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "send individual failed", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	h.l.Info(ctx, "individual trips dispatched",
		"sent_by", req.SentBy,
		"trips_created", len(created),
	)

	response := envelope{
		"success":                true,
		"individualTripsCreated": len(created),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// TripAssigned godoc
// @Summary      Relay individual trip assignment
// @Description  Tracks a backend-assigned individual trip and notifies its driver and passengers
// @Tags         Trips
// @Accept       json
// @Produce      json
// @Param        request  body      dto.TripAssignedRequest  true  "Assignment"
// @Success      200      {object}  map[string]bool
// @Failure      400      {object}  map[string]string
// @Router       /api/trip-assigned [post]
func (h *Dispatch) TripAssigned(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "trip_assigned")

	var req dto.TripAssignedRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		errorResponse(w, http.StatusUnprocessableEntity, v.Errors)
		return
	}

	h.s.AssignIndividualTrip(ctx, req.ToModel())

	if err := writeJSON(w, http.StatusOK, envelope{"success": true}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}
