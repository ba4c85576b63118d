// Package rabbit publishes committed trip lifecycle changes to the
// message broker so dashboards and analytics consume them without polling
// the service.
package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/gothenburg-taxi/dispatch-service/internal/domain/models"
	wrap "github.com/gothenburg-taxi/dispatch-service/pkg/logger/wrapper"
	"github.com/gothenburg-taxi/dispatch-service/pkg/metrics"
	"github.com/gothenburg-taxi/dispatch-service/pkg/rabbit"
)

const (
	ExchangeTripTopic = "trip_topic"

	QueueTripStatus = "trip_status"
)

type TripProducer struct {
	client  *rabbit.RabbitMQ
	service string
}

func NewTripProducer(client *rabbit.RabbitMQ, service string) *TripProducer {
	return &TripProducer{
		client:  client,
		service: service,
	}
}

// Setup declares the exchange and queue this producer publishes into.
// Idempotent; call once at startup.
func (p *TripProducer) Setup(ctx context.Context) error {
	const op = "TripProducer.Setup"

	if err := p.client.Channel.ExchangeDeclare(ExchangeTripTopic, "topic", true, false, false, false, nil); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: declare exchange: %w", op, err))
	}

	queue, err := p.client.Channel.QueueDeclare(QueueTripStatus, true, false, false, false, nil)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: declare queue: %w", op, err))
	}

	if err := p.client.Channel.QueueBind(queue.Name, "trip.status.*", ExchangeTripTopic, false, nil); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: bind queue: %w", op, err))
	}

	return nil
}

// PublishTripStatus pushes one committed shared-trip status change.
func (p *TripProducer) PublishTripStatus(ctx context.Context, msg models.TripStatusChangedMessage) error {
	const op = "TripProducer.PublishTripStatus"
	ctx = wrap.WithAction(ctx, "publish_trip_status")

	body, err := json.Marshal(msg)
	if err != nil {
		metrics.RabbitMQMessagesPublished.WithLabelValues(p.service, QueueTripStatus, "error").Inc()
		return wrap.Error(ctx, fmt.Errorf("%s: marshal: %w", op, err))
	}

	key := fmt.Sprintf("trip.status.%s", msg.SharedTripID)
	pub := amqp.Publishing{
		ContentType:   "application/json",
		Body:          body,
		Timestamp:     time.Now(),
		CorrelationId: wrap.GetRequestID(ctx),
	}

	err = retry(5, 2*time.Second, func() error {
		if err := p.client.EnsureConnection(ctx); err != nil {
			return err
		}
		return p.client.Channel.PublishWithContext(ctx, ExchangeTripTopic, key, false, false, pub)
	})
	if err != nil {
		metrics.RabbitMQMessagesPublished.WithLabelValues(p.service, QueueTripStatus, "error").Inc()
		return wrap.Error(ctx, fmt.Errorf("%s: publish: %w", op, err))
	}

	metrics.RabbitMQMessagesPublished.WithLabelValues(p.service, QueueTripStatus, "success").Inc()
	return nil
}

func retry(n int, sleep time.Duration, fn func() error) error {
	var err error
	for range n {
		if err = fn(); err == nil {
			return nil
		}
		time.Sleep(sleep)
	}
	return err
}
