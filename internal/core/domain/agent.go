package domain

import "time"

// AgentStatus tracks an Agent's room-entry lifecycle.
type AgentStatus string

const (
	AgentInProgress AgentStatus = "in_progress"
	AgentReady      AgentStatus = "ready"
)

// Agent records a client's presence in a room.
type Agent struct {
	AgentID   AgentID
	RoomID    RoomID
	Status    AgentStatus
	CreatedAt time.Time
}

// ConnectionStatus tracks an AgentConnection's lifecycle.
type ConnectionStatus string

const (
	ConnectionInProgress ConnectionStatus = "in_progress"
	ConnectionConnected  ConnectionStatus = "connected"
)

// AgentConnection is one agent attached to one RTC via a specific backend
// handle.
type AgentConnection struct {
	AgentID   AgentID
	RTCID     RTCID
	HandleID  HandleID
	BackendID BackendID
	Intent    Intent
	Status    ConnectionStatus
	CreatedAt time.Time
}

// GroupAgent is a room-scoped partition of agents into numbered groups,
// constraining reader-config visibility (§4.6).
type GroupAgent struct {
	RoomID  RoomID
	AgentID AgentID
	Number  int
}

// OrphanedRoom marks a room whose host has left; CreatedAt records when, and
// vacuum force-closes the room once that is older than orphaned_room_timeout.
type OrphanedRoom struct {
	RoomID    RoomID
	CreatedAt time.Time
}
