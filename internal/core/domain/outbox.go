package domain

import (
	"encoding/json"
	"time"
)

// EventKind enumerates the complete outbox event taxonomy (spec §4.4).
type EventKind string

const (
	EventRoomCreate          EventKind = "room.create"
	EventRoomUpdate          EventKind = "room.update"
	EventRoomClose           EventKind = "room.close"
	EventRoomEnter           EventKind = "room.enter"
	EventRoomLeave           EventKind = "room.leave"
	EventRTCCreate           EventKind = "rtc.create"
	EventRTCStreamUpdate     EventKind = "rtc_stream.update"
	EventAgentWriterConfig   EventKind = "agent_writer_config.update"
	EventAgentReaderConfig   EventKind = "agent_reader_config.update"
	EventGroupUpdate         EventKind = "group.update"
	EventRoomUpload          EventKind = "room.upload"
	EventVideoGroupCreate    EventKind = "video_group.create"
	EventVideoGroupUpdate    EventKind = "video_group.update"
	EventVideoGroupDelete    EventKind = "video_group.delete"
)

// Sink identifies where an outbox entry is ultimately delivered.
type Sink string

const (
	SinkAudienceTopic Sink = "audience_topic" // broker: audiences/:audience/events
	SinkRoomTopic     Sink = "room_topic"     // broker: rooms/:room_id/events
	SinkEventBus      Sink = "event_bus"      // inter-service bus
)

// OutboxEntry is a durable, at-least-once notification pending delivery.
// Entries are inserted in the same transaction as the state change that
// produced them (spec §4.4, §5).
type OutboxEntry struct {
	ID                  uint64
	EntityType          string
	EntityID            string
	Kind                EventKind
	Sink                Sink
	Payload             json.RawMessage
	DeliveryDeadlineAt  time.Time
	RetryCount          int
	ErrorKind           *ErrorSlug
	CreatedAt           time.Time
}

// NextRetryDelay computes exponential backoff for the entry's next
// attempt, capped at maxInterval.
func (e *OutboxEntry) NextRetryDelay(base, maxInterval time.Duration) time.Duration {
	delay := base
	for i := 0; i < e.RetryCount; i++ {
		delay *= 2
		if delay >= maxInterval {
			return maxInterval
		}
	}
	if delay > maxInterval {
		return maxInterval
	}
	return delay
}
