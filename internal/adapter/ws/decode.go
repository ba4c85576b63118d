package ws

import (
	"encoding/json"
	"fmt"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/models"
)

// decodeEvent turns one inbound {event, data} envelope into its typed
// event. The session id is stamped onto the events that need to resolve
// back to a transport session later.
func decodeEvent(msg map[string]any, sessionID string) (models.Event, error) {
	name, ok := msg["event"].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("envelope has no event name")
	}

	raw, err := json.Marshal(msg["data"])
	if err != nil {
		return nil, fmt.Errorf("re-encode event data: %w", err)
	}

	switch models.EventName(name) {
	case models.EvDriverConnect:
		var e models.DriverConnectEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, decodeErr(name, err)
		}
		e.SessionID = sessionID
		return e, nil

	case models.EvPassengerConnect:
		var e models.PassengerConnectEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, decodeErr(name, err)
		}
		e.SessionID = sessionID
		return e, nil

	case models.EvLocationUpdate:
		var e models.LocationUpdateEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, decodeErr(name, err)
		}
		return e, nil

	case models.EvSharedTripAccept:
		var e models.SharedTripAcceptEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, decodeErr(name, err)
		}
		return e, nil

	case models.EvDriverPickupConfirmed:
		var e models.DriverPickupConfirmedEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, decodeErr(name, err)
		}
		return e, nil

	case models.EvDriverArrived:
		var e models.DriverArrivedEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, decodeErr(name, err)
		}
		return e, nil

	case models.EvTripStarted:
		var e models.TripStartedEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, decodeErr(name, err)
		}
		return e, nil

	case models.EvTripCompleted:
		var e models.TripCompletedEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, decodeErr(name, err)
		}
		return e, nil

	case models.EvTripStatusUpdate:
		var e models.TripStatusUpdateEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, decodeErr(name, err)
		}
		return e, nil

	case models.EvPassengerPickupConfirmed:
		var e models.PassengerPickupConfirmedEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, decodeErr(name, err)
		}
		return e, nil

	default:
		return nil, fmt.Errorf("unknown event %q", name)
	}
}

func decodeErr(name string, err error) error {
	return fmt.Errorf("decode %s: %w", name, err)
}
