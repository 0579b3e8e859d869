package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"conference/internal/core/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const busExchange = "conference.events"

// Bus publishes SinkEventBus outbox entries (video group intents and other
// cross-service notifications, spec §4.4) to a RabbitMQ topic exchange,
// routed by event kind so downstream services can bind only the kinds they
// care about.
type Bus struct {
	ch     *amqp.Channel
	logger *zap.SugaredLogger
}

func NewBus(conn *amqp.Connection, logger *zap.SugaredLogger) (*Bus, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("bus: failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(busExchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("bus: failed to declare exchange: %w", err)
	}
	return &Bus{ch: ch, logger: logger}, nil
}

func (b *Bus) Publish(ctx context.Context, entry *domain.OutboxEntry) error {
	if entry.Sink != domain.SinkEventBus {
		return fmt.Errorf("bus: unsupported sink %q", entry.Sink)
	}

	data, err := json.Marshal(Envelope{
		Type:       entry.Kind,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Data:       entry.Payload,
	})
	if err != nil {
		return fmt.Errorf("bus: failed to marshal envelope: %w", err)
	}

	err = b.ch.PublishWithContext(ctx, busExchange, string(entry.Kind), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         data,
	})
	if err != nil {
		return fmt.Errorf("bus: failed to publish: %w", err)
	}

	b.logger.Debugw("published bus event", "kind", entry.Kind, "entity_id", entry.EntityID)
	return nil
}

// videoGroupIntentQueue is the durable queue this service binds to consume
// its own VideoGroup intent events off busExchange (spec §4.4: "consumed by
// this same service").
const videoGroupIntentQueue = "conference.video_group_intents"

// Consume declares videoGroupIntentQueue, binds it to every kind in kinds,
// and hands each delivery to handler until ctx is cancelled. A handler
// error nacks the delivery with requeue so a transient backend-reconfig
// failure is retried rather than dropped; a decode failure nacks without
// requeue since redelivery cannot fix a malformed payload.
func (b *Bus) Consume(ctx context.Context, kinds []domain.EventKind, handler func(context.Context, Envelope) error) error {
	if _, err := b.ch.QueueDeclare(videoGroupIntentQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("bus: failed to declare queue: %w", err)
	}
	for _, kind := range kinds {
		if err := b.ch.QueueBind(videoGroupIntentQueue, string(kind), busExchange, false, nil); err != nil {
			return fmt.Errorf("bus: failed to bind queue: %w", err)
		}
	}
	deliveries, err := b.ch.Consume(videoGroupIntentQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("bus: failed to start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal(d.Body, &env); err != nil {
					b.logger.Warnw("bus: failed to decode delivery", "error", err)
					_ = d.Nack(false, false)
					continue
				}
				if err := handler(ctx, env); err != nil {
					b.logger.Warnw("bus: intent handler failed, requeueing", "kind", env.Type, "error", err)
					_ = d.Nack(false, true)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()
	return nil
}

func (b *Bus) Close() error {
	return b.ch.Close()
}
