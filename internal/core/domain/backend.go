package domain

import "time"

// BackendCapability is a tagged capability a backend variant may support.
// Today only the Janus variant exists; the tagged set is kept open per the
// "Polymorphism" design note so a second backend kind can be added without
// touching the transaction engine's call sites.
type BackendCapability string

const (
	CapCreateSession BackendCapability = "create_session"
	CapAttachHandle  BackendCapability = "attach_handle"
	CapSendMessage   BackendCapability = "send_message"
	CapObserveEvents BackendCapability = "observe_events"
	CapRequestUpload BackendCapability = "request_upload"
)

// JanusBackend is a live media backend (SFU instance).
type JanusBackend struct {
	ID                BackendID
	SessionID          int64
	HandleID           HandleID
	Capacity           int
	BalancerCapacity   int
	Group              string
	APIVersion         string
	JanusURL           string
	CreatedAt          time.Time
	Capabilities       []BackendCapability
}

// HasCapability reports whether the backend advertises cap.
func (b *JanusBackend) HasCapability(cap BackendCapability) bool {
	for _, c := range b.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// JanusBackendHandle is a backend-side object representing one peer
// connection, refcounted by the AgentConnections that reference it.
type JanusBackendHandle struct {
	BackendID BackendID
	HandleID  HandleID
	RTCID     RTCID
	AgentID   AgentID
	Refcount  int
}

// DefaultCompliantAPIVersion is the backend wire-protocol version the
// balancer and vacuum consider compliant.
const DefaultCompliantAPIVersion = "v1"
