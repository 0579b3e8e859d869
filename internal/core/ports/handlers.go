package ports

import (
	"context"
	"time"

	"conference/internal/core/domain"
)

// BackendRequestKind enumerates the backend wire-protocol request kinds
// used by this service (spec §6 Backend wire protocol).
type BackendRequestKind string

const (
	ReqSessionCreate       BackendRequestKind = "session.create"
	ReqHandleAttach        BackendRequestKind = "handle.attach"
	ReqMessageCreate       BackendRequestKind = "message.create"
	ReqMessageSubscribe    BackendRequestKind = "message.subscribe"
	ReqMessageTrickle      BackendRequestKind = "message.trickle"
	ReqMessageUpdateWriter BackendRequestKind = "message.update_writer_config"
	ReqMessageAgentLeave   BackendRequestKind = "message.agent_leave"
	ReqUpload              BackendRequestKind = "upload"
)

// BackendTransaction is one outstanding correlated request to a backend.
type BackendTransaction struct {
	ID        string
	BackendID domain.BackendID
	Kind      BackendRequestKind
	Deadline  time.Time
}

// BackendResponse is what the transaction engine demultiplexes a backend
// reply into.
type BackendResponse struct {
	TransactionID string
	OK            bool
	AlreadyRunning bool
	Payload       map[string]any
	ErrorReason   string
}

// TransactionEngine correlates outgoing backend requests with their
// responses, enforcing per-kind timeouts (spec §4.3).
type TransactionEngine interface {
	// Send issues req to the backend and blocks until a response arrives,
	// the deadline elapses, or ctx is cancelled.
	Send(ctx context.Context, backendID domain.BackendID, kind BackendRequestKind, body map[string]any) (*BackendResponse, error)
	// Demultiplex delivers a backend-originated response frame to its
	// waiting sink. Called by the backend client's read loop.
	Demultiplex(resp *BackendResponse)
	// NotifyBackendLost marks every in-flight transaction against
	// backendID as failed with backend_not_found.
	NotifyBackendLost(backendID domain.BackendID)
}

// BackendEventKind enumerates backend-originated events (spec §6).
type BackendEventKind string

const (
	BackendEventWebRTCUp BackendEventKind = "webrtcup"
	BackendEventHangup   BackendEventKind = "hangup"
	BackendEventDetach   BackendEventKind = "detach"
	BackendEventSlowLink BackendEventKind = "slow-link"
	BackendEventMedia    BackendEventKind = "media"
	BackendEventOnline   BackendEventKind = "online"
	BackendEventOffline  BackendEventKind = "offline"
)

// BackendEvent is a backend-originated event demultiplexed on
// (BackendID, HandleID) (spec §4.3).
type BackendEvent struct {
	BackendID domain.BackendID
	HandleID  domain.HandleID
	Kind      BackendEventKind
	At        time.Time
}

// BackendEventHandler reacts to backend-originated events by mutating
// state via the session service, acquiring the necessary row locks.
type BackendEventHandler interface {
	HandleBackendEvent(ctx context.Context, ev BackendEvent) error
	HandleBackendOffline(ctx context.Context, backendID domain.BackendID) error
}
