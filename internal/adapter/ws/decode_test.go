package ws

import (
	"testing"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/models"
)

func TestDecodeEvent_DriverConnectGetsSessionID(t *testing.T) {
	msg := map[string]any{
		"event": "driver-connect",
		"data": map[string]any{
			"driverId": "driver-7",
			"vehicleInfo": map[string]any{
				"licensePlate": "ABC123",
				"phoneNumber":  "+46701234567",
			},
		},
	}

	ev, err := decodeEvent(msg, "session-1")
	if err != nil {
		t.Fatalf("decodeEvent: %v", err)
	}

	connect, ok := ev.(models.DriverConnectEvent)
	if !ok {
		t.Fatalf("expected DriverConnectEvent, got %T", ev)
	}
	if connect.DriverID != "driver-7" {
		t.Errorf("driver id = %q", connect.DriverID)
	}
	if connect.SessionID != "session-1" {
		t.Errorf("session id = %q", connect.SessionID)
	}
	if connect.VehicleInfo.LicensePlate != "ABC123" {
		t.Errorf("license plate = %q", connect.VehicleInfo.LicensePlate)
	}
}

func TestDecodeEvent_SharedTripAccept(t *testing.T) {
	msg := map[string]any{
		"event": "shared-trip-accept",
		"data": map[string]any{
			"driverId":     "driver-7",
			"sharedTripId": "auto-abc",
		},
	}

	ev, err := decodeEvent(msg, "session-1")
	if err != nil {
		t.Fatalf("decodeEvent: %v", err)
	}

	accept, ok := ev.(models.SharedTripAcceptEvent)
	if !ok {
		t.Fatalf("expected SharedTripAcceptEvent, got %T", ev)
	}
	if accept.SharedTripID != "auto-abc" {
		t.Errorf("shared trip id = %q", accept.SharedTripID)
	}
}

func TestDecodeEvent_LocationUpdate(t *testing.T) {
	msg := map[string]any{
		"event": "location-update",
		"data": map[string]any{
			"driverId": "driver-7",
			"location": map[string]any{"lat": 57.70, "lng": 11.97},
		},
	}

	ev, err := decodeEvent(msg, "session-1")
	if err != nil {
		t.Fatalf("decodeEvent: %v", err)
	}

	update, ok := ev.(models.LocationUpdateEvent)
	if !ok {
		t.Fatalf("expected LocationUpdateEvent, got %T", ev)
	}
	if update.Location.Lat != 57.70 || update.Location.Lng != 11.97 {
		t.Errorf("location = %+v", update.Location)
	}
}

func TestDecodeEvent_UnknownEvent(t *testing.T) {
	if _, err := decodeEvent(map[string]any{"event": "teleport"}, "s"); err == nil {
		t.Fatal("expected error for unknown event")
	}
}

func TestDecodeEvent_MissingEventName(t *testing.T) {
	if _, err := decodeEvent(map[string]any{"data": map[string]any{}}, "s"); err == nil {
		t.Fatal("expected error for missing event name")
	}
}
