// Package backend is the HTTP client for the external persistence API
// that owns trip requests and users. The dispatch core treats it as a
// collaborator of record: failures are reported to the caller and logged,
// never retried here.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/models"
	"github.com/gothenburg-taxi/dispatch-service/internal/domain/types"
	wrap "github.com/gothenburg-taxi/dispatch-service/pkg/logger/wrapper"
	"github.com/gothenburg-taxi/dispatch-service/pkg/metrics"
)

type Client struct {
	baseURL string
	client  *http.Client
	service string
}

func New(baseURL, service string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		service: service,
	}
}

// PendingTrips fetches the trip requests waiting for dispatch.
func (c *Client) PendingTrips(ctx context.Context) ([]models.TripRequest, error) {
	const op = "BackendClient.PendingTrips"

	var pending []models.TripRequest
	err := c.do(ctx, http.MethodGet, "/api/trips/pending", nil, &pending)
	metrics.RecordBackendRequest(c.service, "pending_trips", err)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return pending, nil
}

// UpdateTripStatus reports a trip's new status to the backend of record.
func (c *Client) UpdateTripStatus(ctx context.Context, tripID, status, driverID string) error {
	const op = "BackendClient.UpdateTripStatus"

	body := map[string]string{
		"status":   status,
		"driverId": driverID,
	}
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/trips/%s/status", tripID), body, nil)
	metrics.RecordBackendRequest(c.service, "update_trip_status", err)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

// AssignTrip records which driver serves a trip request.
func (c *Client) AssignTrip(ctx context.Context, tripID, driverID string) error {
	const op = "BackendClient.AssignTrip"

	body := map[string]string{
		"driverId": driverID,
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/trips/%s/assign", tripID), body, nil)
	metrics.RecordBackendRequest(c.service, "assign_trip", err)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

// BookTrip creates a new trip request in the backend and returns it with
// the backend-issued id.
func (c *Client) BookTrip(ctx context.Context, req models.TripRequest) (models.TripRequest, error) {
	const op = "BackendClient.BookTrip"

	var created models.TripRequest
	err := c.do(ctx, http.MethodPost, "/api/trips/book", req, &created)
	metrics.RecordBackendRequest(c.service, "book_trip", err)
	if err != nil {
		return models.TripRequest{}, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return created, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = new(bytes.Buffer)
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrBackendUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected response status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
