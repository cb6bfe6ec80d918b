package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/d4ytona/mpr-soluciones-app/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

var _ Publisher = (*RabbitMQPublisher)(nil)

type RabbitMQPublisher struct {
	client      *RabbitMQ
	openChannel func(ctx context.Context) (amqpChannel, error)
}

func NewRabbitMQPublisher(client *RabbitMQ) *RabbitMQPublisher {
	p := &RabbitMQPublisher{client: client}
	if client != nil {
		p.openChannel = func(ctx context.Context) (amqpChannel, error) {
			ch, err := client.channel(ctx)
			if err != nil {
				return nil, err
			}
			return ch, nil
		}
	}
	return p
}

func (p *RabbitMQPublisher) RecordRun(ctx context.Context, record domain.RunRecord) error {
	if p == nil || p.openChannel == nil {
		return fmt.Errorf("publisher is not initialized")
	}

	event := RunEventFromRecord(record)
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid run event: %w", err)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal run event: %w", err)
	}

	ch, err := p.openChannel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close()

	publishing := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		Timestamp:     time.Now().UTC(),
		MessageId:     event.RunID,
		CorrelationId: event.RunID,
		Type:          "cron.run.finished",
		Body:          payload,
	}

	key := RoutingKey(event.Job, event.Outcome)
	if err := ch.PublishWithContext(ctx, RunEventsExchange, key, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish run event %q: %w", key, err)
	}

	return nil
}

func (p *RabbitMQPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
