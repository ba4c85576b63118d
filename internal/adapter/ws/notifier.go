package ws

import (
	"context"
	"errors"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/models"
	"github.com/gothenburg-taxi/dispatch-service/pkg/logger"
	wrap "github.com/gothenburg-taxi/dispatch-service/pkg/logger/wrapper"
	wshub "github.com/gothenburg-taxi/dispatch-service/pkg/wshub"
)

// HubNotifier delivers outbound envelopes over the websocket hubs.
// Delivery is best effort: a missing or dead session is logged and
// skipped, matching the coordination core's fire-and-forget contract.
type HubNotifier struct {
	drivers    *wshub.ConnectionHub
	passengers *wshub.ConnectionHub
	l          logger.Logger
}

func NewHubNotifier(drivers, passengers *wshub.ConnectionHub, l logger.Logger) *HubNotifier {
	return &HubNotifier{
		drivers:    drivers,
		passengers: passengers,
		l:          l,
	}
}

func (n *HubNotifier) SendToDriver(driverID string, event models.EventName, data any) {
	n.send(n.drivers, driverID, event, data)
}

func (n *HubNotifier) SendToPassenger(userID string, event models.EventName, data any) {
	n.send(n.passengers, userID, event, data)
}

// Broadcast sends the envelope to every connected session, drivers and
// passengers alike.
func (n *HubNotifier) Broadcast(event models.EventName, data any) {
	envelope := models.Envelope{Event: event, Data: data}
	for _, conn := range n.drivers.Clients() {
		if err := conn.Send(envelope); err != nil {
			n.logSendFailure(conn.EntityID(), event, err)
		}
	}
	for _, conn := range n.passengers.Clients() {
		if err := conn.Send(envelope); err != nil {
			n.logSendFailure(conn.EntityID(), event, err)
		}
	}
}

func (n *HubNotifier) send(hub *wshub.ConnectionHub, entityID string, event models.EventName, data any) {
	err := hub.SendTo(entityID, models.Envelope{Event: event, Data: data})
	if err == nil {
		return
	}
	if errors.Is(err, wshub.ErrConnIsNotFound) {
		// Recipient offline; nothing to deliver to.
		return
	}
	n.logSendFailure(entityID, event, err)
}

func (n *HubNotifier) logSendFailure(entityID string, event models.EventName, err error) {
	ctx := wrap.WithAction(context.Background(), "ws_send_failed")
	n.l.Debug(ctx, "failed to send websocket message",
		"entity_id", entityID,
		"event", event.String(),
		"error", err.Error(),
	)
}
