package ports

import (
	"context"
	"time"

	"conference/internal/core/domain"
)

// RoomCreateInput is the payload for room.create.
type RoomCreateInput struct {
	Time             domain.TimeRange
	Audience         string
	ClassroomID      domain.ClassroomID
	RTCSharingPolicy domain.RTCSharingPolicy
	Reserve          *int
	Tags             map[string]any
}

// RoomUpdateInput is the payload for room.update; nil fields are left
// unchanged.
type RoomUpdateInput struct {
	Time    *domain.TimeRange
	Reserve *int
	Tags    map[string]any
}

// RoomService implements C4's room.* operations.
type RoomService interface {
	Create(ctx context.Context, by domain.AgentID, in RoomCreateInput) (*domain.Room, error)
	Read(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	Update(ctx context.Context, by domain.AgentID, id domain.RoomID, in RoomUpdateInput) (*domain.Room, error)
	Close(ctx context.Context, by domain.AgentID, id domain.RoomID) (*domain.Room, error)
	Enter(ctx context.Context, agentID domain.AgentID, roomID domain.RoomID) error
	ConfirmEntered(ctx context.Context, agentID domain.AgentID, roomID domain.RoomID) error
	Leave(ctx context.Context, agentID domain.AgentID, roomID domain.RoomID) error
	ListAgents(ctx context.Context, roomID domain.RoomID, offset, limit int) ([]*domain.Agent, error)
}

// RTCService implements C4's rtc.* operations.
type RTCService interface {
	Create(ctx context.Context, by domain.AgentID, roomID domain.RoomID) (*domain.RTC, error)
	List(ctx context.Context, roomID domain.RoomID) ([]*domain.RTC, error)
	Read(ctx context.Context, id domain.RTCID) (*domain.RTC, error)
	Connect(ctx context.Context, agentID domain.AgentID, rtcID domain.RTCID, intent domain.Intent, label string, sdpKind SDPKind) (*ConnectResult, error)
}

// SDPKind classifies an offer's direction per spec §1 Non-goals ("SDP
// parsing semantics beyond classifying direction").
type SDPKind string

const (
	SDPSendOnly SDPKind = "sendonly"
	SDPRecvOnly SDPKind = "recvonly"
	SDPSendRecv SDPKind = "sendrecv"
	SDPUnknown  SDPKind = ""
)

// ConnectResult is returned by rtc.connect.
type ConnectResult struct {
	Connection *domain.AgentConnection
	Backend    *domain.JanusBackend
}

// SignalService implements C4's signal.create/update.
type SignalService interface {
	Create(ctx context.Context, agentID domain.AgentID, rtcID domain.RTCID, jsep map[string]any) (answer map[string]any, err error)
	Update(ctx context.Context, agentID domain.AgentID, rtcID domain.RTCID, jsep map[string]any) (answer map[string]any, err error)
}

// ConfigService implements C7: agent_writer_config.update/read and
// agent_reader_config.update/read.
type ConfigService interface {
	UpdateWriterConfig(ctx context.Context, by domain.AgentID, rtcID domain.RTCID, delta domain.WriterConfigDelta) (*domain.RtcWriterConfig, error)
	ReadWriterConfig(ctx context.Context, roomID domain.RoomID) ([]*domain.RtcWriterConfig, error)
	ReadWriterConfigSnapshots(ctx context.Context, rtcID domain.RTCID) ([]*domain.WriterConfigSnapshot, error)
	UpdateReaderConfig(ctx context.Context, by domain.AgentID, roomID domain.RoomID, deltas []domain.ReaderConfigDelta) ([]*domain.RtcReaderConfig, error)
	ReadReaderConfig(ctx context.Context, roomID domain.RoomID, agentID domain.AgentID) ([]*domain.RtcReaderConfig, error)
}

// GroupService implements C4's group.update/list.
type GroupService interface {
	Update(ctx context.Context, by domain.AgentID, roomID domain.RoomID, groups []domain.GroupAgent) error
	List(ctx context.Context, roomID domain.RoomID, withinGroup *int) ([]domain.GroupAgent, error)
}

// VideoGroupOrchestrator consumes VideoGroupIntent events and performs the
// backend reconfiguration they request (spec §4.4). It is driven by an
// event-bus consumer, not the HTTP layer.
type VideoGroupOrchestrator interface {
	HandleIntent(ctx context.Context, intent domain.VideoGroupIntent) error
}

// StreamQueryService implements rtc_stream.list.
type StreamQueryService interface {
	ListStreams(ctx context.Context, roomID domain.RoomID, rtcID *domain.RTCID, window *domain.TimeRange, offset, limit int) ([]*domain.JanusRtcStream, error)
}

// VacuumService implements C6's system.vacuum.
type VacuumService interface {
	Run(ctx context.Context) (VacuumReport, error)
}

// VacuumReport summarizes one sweep.
type VacuumReport struct {
	RoomsClosed      int
	UploadsRequested int
	OrphansClosed    int
	Ran              time.Time
}

// Balancer implements C2: picks a backend for a new stream/subscriber.
type Balancer interface {
	Choose(ctx context.Context, room *domain.Room, intent domain.Intent) (*domain.JanusBackend, error)
}

// RecordingStorage confirms that objects a backend claims to have uploaded
// actually exist in object storage, double-checking a backend's upload
// response before a Recording is marked ready (spec §4.5 expansion).
type RecordingStorage interface {
	ObjectsExist(ctx context.Context, uris []string) (bool, error)
}

// Notifier implements C5: enqueues outbox entries for later delivery.
// Enqueue must be called from within the same transaction as the state
// change it reports (spec §4.4, §8 outbox invariant).
type Notifier interface {
	Enqueue(ctx context.Context, kind domain.EventKind, sink domain.Sink, entityType, entityID string, payload any) error
}
