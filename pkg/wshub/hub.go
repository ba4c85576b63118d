package wshub

import (
	"context"
	"errors"
	"sync"

	"github.com/gothenburg-taxi/dispatch-service/pkg/logger"
	wrap "github.com/gothenburg-taxi/dispatch-service/pkg/logger/wrapper"
)

var (
	ErrEmptyConn      = errors.New("connection is empty")
	ErrConnIsNotFound = errors.New("connection not found")
)

// ConnectionHub stores and manages all active WebSocket sessions,
// keyed by the driver or passenger id that owns them.
type ConnectionHub struct {
	clients map[string]*Conn
	l       logger.Logger
	mu      sync.Mutex
}

func NewConnHub(l logger.Logger) *ConnectionHub {
	return &ConnectionHub{
		clients: make(map[string]*Conn),
		l:       l,
	}
}

// Add registers a new session. An existing session for the same entity
// is closed and replaced.
func (h *ConnectionHub) Add(newConn *Conn) error {
	if newConn == nil {
		return ErrEmptyConn
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := wrap.WithAction(context.Background(), "add_ws_connection")

	if existing, ok := h.clients[newConn.entityID]; ok {
		h.l.Warn(ctx,
			"replacing existing connection",
			"entity_id", existing.entityID,
		)
		if err := existing.Close(); err != nil {
			h.l.Warn(ctx,
				"failed to close existing conn",
				"entity_id", existing.entityID,
				"err", err.Error(),
			)
		}
	}

	h.clients[newConn.entityID] = newConn

	return nil
}

// Delete removes and closes the session for entityID.
func (h *ConnectionHub) Delete(entityID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := wrap.WithAction(context.Background(), "ws_connection_delete")

	conn, ok := h.clients[entityID]
	if !ok {
		return ErrConnIsNotFound
	}

	if err := conn.Close(); err != nil {
		h.l.Warn(ctx,
			"failed to close conn",
			"entity_id", conn.entityID,
			"err", err.Error(),
		)
	}

	delete(h.clients, entityID)

	return nil
}

// SendTo sends a message to the session owned by id.
// Returns ErrConnIsNotFound when no session exists.
func (h *ConnectionHub) SendTo(id string, msg any) error {
	h.mu.Lock()
	conn, ok := h.clients[id]
	h.mu.Unlock()

	if !ok {
		return ErrConnIsNotFound
	}
	return conn.Send(msg)
}

// Clients returns a snapshot of the current sessions.
func (h *ConnectionHub) Clients() map[string]*Conn {
	h.mu.Lock()
	defer h.mu.Unlock()

	copyMap := make(map[string]*Conn, len(h.clients))
	for id, conn := range h.clients {
		copyMap[id] = conn
	}
	return copyMap
}

// GetConn returns the session owned by id.
func (h *ConnectionHub) GetConn(id string) (*Conn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.clients[id]
	if !ok {
		return nil, ErrConnIsNotFound
	}
	return conn, nil
}

// Close closes every session in the hub.
func (h *ConnectionHub) Close() {
	ctx := wrap.WithAction(context.Background(), "hub_close")

	h.mu.Lock()
	clients := make([]*Conn, 0, len(h.clients))
	for _, conn := range h.clients {
		clients = append(clients, conn)
	}
	h.mu.Unlock()

	// close outside the lock
	for _, conn := range clients {
		_ = h.Delete(conn.entityID)
	}

	h.l.Info(ctx, "all websocket connections closed")
}
