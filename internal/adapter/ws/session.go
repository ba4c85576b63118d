// Package ws upgrades driver and passenger sessions to websockets, feeds
// their inbound envelopes to the dispatcher, and exposes the hub-backed
// notifier the dispatcher fans out through.
package ws

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/models"
	"github.com/gothenburg-taxi/dispatch-service/pkg/logger"
	wrap "github.com/gothenburg-taxi/dispatch-service/pkg/logger/wrapper"
	"github.com/gothenburg-taxi/dispatch-service/pkg/metrics"
	"github.com/gothenburg-taxi/dispatch-service/pkg/uuid"
	wshub "github.com/gothenburg-taxi/dispatch-service/pkg/wshub"
)

// EventSink consumes decoded inbound events. Implemented by the
// dispatcher.
type EventSink interface {
	Dispatch(ctx context.Context, ev models.Event) error
}

type SessionHandler struct {
	drivers    *wshub.ConnectionHub
	passengers *wshub.ConnectionHub
	sink       EventSink

	upgrader websocket.Upgrader
	service  string
	l        logger.Logger
}

func NewSessionHandler(drivers, passengers *wshub.ConnectionHub, sink EventSink, service string, l logger.Logger) *SessionHandler {
	return &SessionHandler{
		drivers:    drivers,
		passengers: passengers,
		sink:       sink,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		service: service,
		l:       l,
	}
}

// HandleDriverWS upgrades GET /ws/drivers/{driver_id} to a driver session.
//
//	@Summary		Driver websocket session
//	@Description	Upgrades to a websocket carrying JSON {event, data} envelopes
//	@Tags			websocket
//	@Param			driver_id	path	string	true	"Driver ID"
//	@Success		101
//	@Router			/ws/drivers/{driver_id} [get]
func (h *SessionHandler) HandleDriverWS(w http.ResponseWriter, r *http.Request) {
	driverID := r.PathValue("driver_id")
	if driverID == "" {
		http.Error(w, "missing driver id", http.StatusBadRequest)
		return
	}
	h.serve(w, r, h.drivers, driverID)
}

// HandlePassengerWS upgrades GET /ws/passengers/{user_id} to a passenger
// session.
//
//	@Summary		Passenger websocket session
//	@Description	Upgrades to a websocket carrying JSON {event, data} envelopes
//	@Tags			websocket
//	@Param			user_id	path	string	true	"User ID"
//	@Success		101
//	@Router			/ws/passengers/{user_id} [get]
func (h *SessionHandler) HandlePassengerWS(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if userID == "" {
		http.Error(w, "missing user id", http.StatusBadRequest)
		return
	}
	h.serve(w, r, h.passengers, userID)
}

func (h *SessionHandler) serve(w http.ResponseWriter, r *http.Request, hub *wshub.ConnectionHub, entityID string) {
	ctx := r.Context()

	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.l.Warn(wrap.WithAction(ctx, "ws_upgrade_failed"), "websocket upgrade failed",
			"entity_id", entityID,
			"error", err.Error(),
		)
		return
	}

	sessionID := uuid.MustNew().String()
	conn := wshub.NewConn(context.Background(), entityID, socket)
	if err := hub.Add(conn); err != nil {
		h.l.Warn(wrap.WithAction(ctx, "ws_register_failed"), "failed to register session",
			"entity_id", entityID,
			"error", err.Error(),
		)
		_ = socket.Close()
		return
	}

	metrics.WebSocketConnectionsGauge.WithLabelValues(h.service).Inc()
	h.l.Info(wrap.WithAction(ctx, "ws_connected"), "websocket session opened",
		"entity_id", entityID,
		"session_id", sessionID,
	)

	// Reads run until the peer goes away. Bad frames are logged and the
	// session lives on; only transport errors end the loop.
	err = conn.Listen(func(msg map[string]any) error {
		ev, decodeErr := decodeEvent(msg, sessionID)
		if decodeErr != nil {
			h.l.Warn(wrap.WithAction(ctx, "ws_bad_envelope"), "dropping undecodable message",
				"entity_id", entityID,
				"error", decodeErr.Error(),
			)
			return nil
		}
		return h.sink.Dispatch(ctx, ev)
	})
	if err != nil {
		h.l.Debug(wrap.WithAction(ctx, "ws_closed"), "websocket session ended",
			"entity_id", entityID,
			"error", err.Error(),
		)
	}

	metrics.WebSocketConnectionsGauge.WithLabelValues(h.service).Dec()

	// Drop the hub entry only if it is still ours; a reconnect may have
	// replaced it already.
	if current, getErr := hub.GetConn(entityID); getErr == nil && current == conn {
		_ = hub.Delete(entityID)
	} else {
		_ = conn.Close()
	}

	if dispatchErr := h.sink.Dispatch(ctx, models.DisconnectEvent{SessionID: sessionID}); dispatchErr != nil {
		h.l.Warn(wrap.WithAction(ctx, "ws_disconnect_dispatch_failed"), "disconnect handling failed",
			"entity_id", entityID,
			"error", dispatchErr.Error(),
		)
	}
}
