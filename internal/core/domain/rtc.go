package domain

import "time"

// RTC is a logical publish/subscribe endpoint within a room.
type RTC struct {
	ID        RTCID
	RoomID    RoomID
	CreatedBy AgentID
	CreatedAt time.Time
}

// Intent is the direction an agent wants to use an RTC for.
type Intent string

const (
	IntentRead  Intent = "read"
	IntentWrite Intent = "write"
)
