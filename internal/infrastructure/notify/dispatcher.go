package notify

import (
	"context"
	"fmt"

	"conference/internal/core/domain"
)

// publisher is the shape both Broker and Bus expose. Kept as an interface,
// rather than referencing the concrete types directly, so tests can
// substitute a fake without a live Redis connection or AMQP channel.
type publisher interface {
	Publish(ctx context.Context, entry *domain.OutboxEntry) error
}

// Dispatcher routes an outbox entry to the transport that owns its sink.
// The outbox worker is the only caller.
type Dispatcher struct {
	broker publisher
	bus    publisher
}

func NewDispatcher(broker *Broker, bus *Bus) *Dispatcher {
	return &Dispatcher{broker: broker, bus: bus}
}

func (d *Dispatcher) Dispatch(ctx context.Context, entry *domain.OutboxEntry) error {
	switch entry.Sink {
	case domain.SinkRoomTopic, domain.SinkAudienceTopic:
		return d.broker.Publish(ctx, entry)
	case domain.SinkEventBus:
		return d.bus.Publish(ctx, entry)
	default:
		return fmt.Errorf("dispatcher: unknown sink %q", entry.Sink)
	}
}
