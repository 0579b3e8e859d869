package domain

import "time"

// RTCSharingPolicy constrains how many RTCs a room admits and who may
// create them.
type RTCSharingPolicy string

const (
	PolicyNone   RTCSharingPolicy = "none"
	PolicyShared RTCSharingPolicy = "shared"
	PolicyOwned  RTCSharingPolicy = "owned"
)

// RoomState is derived from Time and ClosedBy, never stored directly.
type RoomState string

const (
	RoomScheduled RoomState = "scheduled"
	RoomOpen      RoomState = "open"
	RoomClosed    RoomState = "closed"
)

// Room is a time-bounded container for RTCs, agents and recordings.
type Room struct {
	ID                RoomID
	ClassroomID       ClassroomID
	Audience          string
	Time              TimeRange
	CreatedAt         time.Time
	RTCSharingPolicy  RTCSharingPolicy
	Reserve           *int
	Tags              map[string]any
	BackendID         *BackendID
	JanusGroup        string
	Host              *AgentID
	ClosedBy          *AgentID
	Infinite          bool
	TimedOut          bool
}

// State computes the room's lifecycle state at instant now.
func (r *Room) State(now time.Time) RoomState {
	if r.ClosedBy != nil {
		return RoomClosed
	}
	if r.Time.Upper != nil && !now.Before(*r.Time.Upper) {
		return RoomClosed
	}
	if now.Before(r.Time.Lower) {
		return RoomScheduled
	}
	return RoomOpen
}

// MaxRoomDuration bounds an unbounded room's close time once the first RTC
// stream is created (spec §3 Room invariants).
const MaxRoomDuration = 6 * time.Hour

// BoundUnbounded sets Time.Upper to Lower+MaxRoomDuration if the room is
// currently unbounded and not marked Infinite. No-op otherwise.
func (r *Room) BoundUnbounded(now time.Time) {
	if r.Infinite || r.Time.Upper != nil {
		return
	}
	upper := r.Time.Lower.Add(MaxRoomDuration)
	r.Time.Upper = &upper
}

// ValidateTime enforces the non-empty-interval invariant and, for any room
// not marked Infinite, the ∀-property that upper(time) never exceeds
// open+MaxRoomDuration (spec §3, §8) — whether that bound came from a
// caller-supplied close time or from BoundUnbounded's auto-bound.
func (r *Room) ValidateTime() error {
	if r.Time.Empty() {
		return NewError(ErrMessageParsingFailed, "room time interval must be non-empty")
	}
	if !r.Infinite && r.Time.Upper != nil && r.Time.Upper.Sub(r.Time.Lower) > MaxRoomDuration {
		return NewError(ErrMessageParsingFailed, "room close time exceeds the maximum room duration")
	}
	return nil
}

// CanNarrowCloseTo reports whether moving Time.Upper to newUpper is a legal
// room.update per spec §4.1: upper may only move into the present/past from
// the future, and may not reintroduce unboundedness once bounded.
func (r *Room) CanNarrowCloseTo(newUpper *time.Time, now time.Time) bool {
	if r.Time.Upper != nil && newUpper == nil {
		return false // cannot reintroduce unboundedness
	}
	if newUpper == nil {
		return true // room currently unbounded, staying unbounded
	}
	if newUpper.After(now) && r.Time.Upper != nil && newUpper.After(*r.Time.Upper) {
		return false // moving further into the future is not a "close"
	}
	return true
}
