package domain

import "github.com/google/uuid"

// RoomID identifies a Room.
type RoomID uuid.UUID

// RTCID identifies an RTC (publish/subscribe channel).
type RTCID uuid.UUID

// ClassroomID identifies the owning tenant classroom.
type ClassroomID uuid.UUID

// AgentID is a value object: (account label, audience). Agents are not rows
// this service owns; they are identifiers issued by the external authn
// service and carried verbatim.
type AgentID struct {
	Label    string `json:"label"`
	Audience string `json:"account_label,omitempty"`
}

func (a AgentID) String() string {
	if a.Audience == "" {
		return a.Label
	}
	return a.Label + "." + a.Audience
}

// BackendID identifies a JanusBackend; backends are themselves agents.
type BackendID = AgentID

// HandleID is an opaque 64-bit backend handle reference.
type HandleID uint64

func NewRoomID() RoomID { return RoomID(uuid.New()) }
func NewRTCID() RTCID   { return RTCID(uuid.New()) }

func (id RoomID) String() string { return uuid.UUID(id).String() }
func (id RTCID) String() string  { return uuid.UUID(id).String() }

func ParseRoomID(s string) (RoomID, error) {
	u, err := uuid.Parse(s)
	return RoomID(u), err
}

func ParseRTCID(s string) (RTCID, error) {
	u, err := uuid.Parse(s)
	return RTCID(u), err
}

func (id ClassroomID) String() string { return uuid.UUID(id).String() }

func ParseClassroomID(s string) (ClassroomID, error) {
	u, err := uuid.Parse(s)
	return ClassroomID(u), err
}
