package domain

import "time"

// Envelope is the versioned wire format for inter-service events carried on
// the event bus (spec §6 Broker API: "a versioned envelope").
type Envelope struct {
	Type       EventKind   `json:"type"`
	EntityType string      `json:"entity_type"`
	EntityID   string      `json:"entity_id"`
	Data       any         `json:"data"`
	CreatedAt  time.Time   `json:"created_at"`
}

// RoomEvent is the payload for room.create/update/close/enter/leave.
type RoomEvent struct {
	Room *Room `json:"room"`
}

// RTCEvent is the payload for rtc.create.
type RTCEvent struct {
	RTC *RTC `json:"rtc"`
}

// RTCStreamEvent is the payload for rtc_stream.update.
type RTCStreamEvent struct {
	Stream *JanusRtcStream `json:"rtc_stream"`
}

// WriterConfigEvent carries the full post-merge writer config state for a
// room (spec §4.6: "one consolidated event carrying the full post-merge
// state").
type WriterConfigEvent struct {
	RoomID  RoomID            `json:"room_id"`
	Configs []RtcWriterConfig `json:"configs"`
}

// ReaderConfigEvent carries the full post-merge reader config state for one
// reader agent in a room.
type ReaderConfigEvent struct {
	RoomID  RoomID            `json:"room_id"`
	AgentID AgentID           `json:"agent_id"`
	Configs []RtcReaderConfig `json:"configs"`
}

// GroupUpdateEvent is the payload for group.update.
type GroupUpdateEvent struct {
	RoomID RoomID       `json:"room_id"`
	Groups []GroupAgent `json:"groups"`
}

// UploadEvent is the payload for room.upload.
type UploadEvent struct {
	RoomID    RoomID    `json:"room_id"`
	Recording Recording `json:"recording"`
}

// VideoGroupIntent carries the cross-service orchestration intent for a
// video-group change, consumed by this same service and transformed into
// domain events after backend reconfiguration succeeds (spec §4.4).
type VideoGroupIntent struct {
	RoomID    RoomID    `json:"room_id"`
	Operation EventKind `json:"operation"`
	CreatedAt time.Time `json:"created_at"`
}

// VideoGroupEvent is the payload for video_group.create/update/delete: the
// full reader-config state Janus was reconfigured to once a VideoGroupIntent
// finished backend reconfiguration (spec §4.4).
type VideoGroupEvent struct {
	RoomID  RoomID            `json:"room_id"`
	Configs []RtcReaderConfig `json:"configs"`
}
