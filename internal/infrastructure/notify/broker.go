package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"conference/internal/core/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Envelope is the wire shape pushed to rooms/:room_id/events and
// audiences/:audience/events (spec §4.4, §6).
type Envelope struct {
	Type       domain.EventKind `json:"type"`
	EntityType string           `json:"entity_type"`
	EntityID   string           `json:"entity_id"`
	Data       json.RawMessage  `json:"data"`
}

// Broker publishes client-facing events over Redis pub/sub, grounded on
// the teacher's internal/infrastructure/distributed/event_bus.go, with
// channels keyed per room/audience topic instead of one shared channel and
// without a subscribe side: this service only produces these events, it
// never consumes its own broker traffic.
type Broker struct {
	client *redis.Client
	logger *zap.SugaredLogger
	hub    *Hub
}

func NewBroker(client *redis.Client, hub *Hub, logger *zap.SugaredLogger) *Broker {
	return &Broker{client: client, hub: hub, logger: logger}
}

func roomTopic(entityID string) string     { return fmt.Sprintf("rooms/%s/events", entityID) }
func audienceTopic(entityID string) string { return fmt.Sprintf("audiences/%s/events", entityID) }

// Publish delivers entry to its room or audience topic, both over Redis
// pub/sub (for other instances' subscribers) and the local Hub (for
// clients connected directly to this instance).
func (b *Broker) Publish(ctx context.Context, entry *domain.OutboxEntry) error {
	var topic string
	switch entry.Sink {
	case domain.SinkRoomTopic:
		topic = roomTopic(entry.EntityID)
	case domain.SinkAudienceTopic:
		topic = audienceTopic(entry.EntityID)
	default:
		return fmt.Errorf("broker: unsupported sink %q", entry.Sink)
	}

	data, err := json.Marshal(Envelope{
		Type:       entry.Kind,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Data:       entry.Payload,
	})
	if err != nil {
		return fmt.Errorf("broker: failed to marshal envelope: %w", err)
	}

	if err := b.client.Publish(ctx, topic, data).Err(); err != nil {
		return fmt.Errorf("broker: failed to publish to %s: %w", topic, err)
	}
	b.hub.Broadcast(topic, data)

	b.logger.Debugw("published event", "topic", topic, "kind", entry.Kind, "entity_id", entry.EntityID)
	return nil
}
