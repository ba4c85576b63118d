package rabbit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gothenburg-taxi/dispatch-service/pkg/logger"
	wrap "github.com/gothenburg-taxi/dispatch-service/pkg/logger/wrapper"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ owns the AMQP connection and a single publishing channel.
type RabbitMQ struct {
	Conn     *amqp.Connection
	Channel  *amqp.Channel
	isClosed bool
	mu       sync.Mutex
	dsn      string

	log logger.Logger
}

// New creates a rabbitMQ client
func New(ctx context.Context, dsn string, log logger.Logger) (*RabbitMQ, error) {
	conn, err := amqp.DialConfig(dsn, amqp.Config{
		Heartbeat: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	r := &RabbitMQ{
		Conn:    conn,
		Channel: channel,
		dsn:     dsn,
		log:     log,
	}

	closeChan := make(chan *amqp.Error, 1)
	conn.NotifyClose(closeChan)
	go r.monitorConnection(closeChan)

	log.Info(wrap.WithAction(ctx, "rabbitmq_connected"), "connected to rabbitMQ")

	return r, nil
}

func (r *RabbitMQ) monitorConnection(closeChan chan *amqp.Error) {
	closeErr := <-closeChan

	r.mu.Lock()
	r.isClosed = true
	r.mu.Unlock()

	ctx := wrap.WithAction(context.Background(), "rabbitmq_connection_closed")
	if closeErr != nil {
		r.log.Error(ctx, "RabbitMQ connection closed", closeErr)
	} else {
		r.log.Debug(ctx, "RabbitMQ connection closed gracefully")
	}
}

// IsConnectionClosed checks if the connection is closed
func (r *RabbitMQ) IsConnectionClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Conn == nil {
		return true
	}
	return r.isClosed || r.Conn.IsClosed() || r.Channel.IsClosed()
}

// EnsureConnection redials if the connection was lost since the last publish.
func (r *RabbitMQ) EnsureConnection(ctx context.Context) error {
	if !r.IsConnectionClosed() {
		return nil
	}
	return r.Reconnect(ctx)
}

// Reconnect re-establishes the connection and channel with backoff.
func (r *RabbitMQ) Reconnect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dsn == "" {
		return fmt.Errorf("dsn is empty: can't reconnect")
	}

	if !r.isClosed && r.Conn != nil && !r.Conn.IsClosed() && r.Channel != nil && !r.Channel.IsClosed() {
		return nil
	}

	var conn *amqp.Connection
	var err error

	for i := range 5 {
		conn, err = amqp.DialConfig(r.dsn, amqp.Config{
			Heartbeat: 10 * time.Second,
		})
		if err == nil {
			break
		}

		wait := time.Duration(i+1) * 2 * time.Second
		r.log.Debug(ctx, fmt.Sprintf("reconnect attempt %d failed, retrying in %v", i+1, wait))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	if err != nil {
		return fmt.Errorf("failed to reconnect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to reopen channel: %w", err)
	}

	r.Conn = conn
	r.Channel = channel
	r.isClosed = false

	closeChan := make(chan *amqp.Error, 1)
	conn.NotifyClose(closeChan)
	go r.monitorConnection(closeChan)

	r.log.Info(wrap.WithAction(ctx, "rabbitmq_reconnection_success"), "reconnected to rabbitMQ")

	return nil
}

// Close closes the channel and connection
func (r *RabbitMQ) Close(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_connection_closing")

	r.mu.Lock()
	if r.isClosed {
		r.mu.Unlock()
		return nil
	}
	r.isClosed = true
	ch := r.Channel
	conn := r.Conn
	r.Channel = nil
	r.Conn = nil
	r.mu.Unlock()

	if ch != nil {
		if err := ch.Close(); err != nil {
			r.log.Error(ctx, "error closing channel", err)
		}
	}

	if conn != nil {
		if err := conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}

	r.log.Info(wrap.WithAction(ctx, "rabbitmq_connection_closed"), "rabbitMQ closed")

	return nil
}
