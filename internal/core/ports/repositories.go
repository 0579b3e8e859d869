package ports

import (
	"context"
	"time"

	"conference/internal/core/domain"
)

// RoomRepository persists Room rows. Implementations must serialize writes
// to a single room (spec §5 "Writes to a single Room are serialized").
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	Get(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	// GetForUpdate locks the room row for the duration of the surrounding
	// transaction (SELECT ... FOR UPDATE).
	GetForUpdate(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	Update(ctx context.Context, room *domain.Room) error
	ListClosedBefore(ctx context.Context, before time.Time, limit int) ([]*domain.Room, error)
}

type RTCRepository interface {
	Create(ctx context.Context, rtc *domain.RTC) error
	Get(ctx context.Context, id domain.RTCID) (*domain.RTC, error)
	ListByRoom(ctx context.Context, roomID domain.RoomID) ([]*domain.RTC, error)
	CountByRoomAndCreator(ctx context.Context, roomID domain.RoomID, creator domain.AgentID) (int, error)
	CountByRoom(ctx context.Context, roomID domain.RoomID) (int, error)
}

type AgentRepository interface {
	Upsert(ctx context.Context, agent *domain.Agent) error
	Get(ctx context.Context, roomID domain.RoomID, agentID domain.AgentID) (*domain.Agent, error)
	List(ctx context.Context, roomID domain.RoomID, offset, limit int) ([]*domain.Agent, error)
	Delete(ctx context.Context, roomID domain.RoomID, agentID domain.AgentID) error
	DeleteAllInRoom(ctx context.Context, roomID domain.RoomID) (int, error)
}

type AgentConnectionRepository interface {
	Create(ctx context.Context, conn *domain.AgentConnection) error
	Get(ctx context.Context, agentID domain.AgentID, rtcID domain.RTCID) (*domain.AgentConnection, error)
	UpdateStatus(ctx context.Context, agentID domain.AgentID, rtcID domain.RTCID, status domain.ConnectionStatus) error
	Delete(ctx context.Context, agentID domain.AgentID, rtcID domain.RTCID) error
	ListByBackend(ctx context.Context, backendID domain.BackendID) ([]*domain.AgentConnection, error)
	ListByRTC(ctx context.Context, rtcID domain.RTCID) ([]*domain.AgentConnection, error)
	// CountHandleRefs returns the number of AgentConnections referencing
	// handleID, used to decide whether dropping a connection tears down
	// the backend handle (spec §8 invariant).
	CountHandleRefs(ctx context.Context, backendID domain.BackendID, handleID domain.HandleID) (int, error)
	// DeleteAllInRoom removes every AgentConnection belonging to an RTC in
	// roomID, returning the count removed. Used by vacuum's finalizeRoom
	// (spec §4.5 "delete closed-room agents and connections").
	DeleteAllInRoom(ctx context.Context, roomID domain.RoomID) (int, error)
}

type BackendRepository interface {
	Upsert(ctx context.Context, backend *domain.JanusBackend) error
	Get(ctx context.Context, id domain.BackendID) (*domain.JanusBackend, error)
	Delete(ctx context.Context, id domain.BackendID) error
	ListLive(ctx context.Context) ([]*domain.JanusBackend, error)
	// ActivePublisherCount and ActiveSubscriberCount feed the balancer's
	// free-capacity formula (spec §4.2).
	ActivePublisherCount(ctx context.Context, backendID domain.BackendID, ownedRooms bool) (int, error)
	ActiveSubscriberCount(ctx context.Context, backendID domain.BackendID) (int, error)
	// RoomReserveHeadroom returns the aggregate, currently-unused portion of
	// other active rooms' reserve floors on backendID: Σ_rooms max(0,
	// reserve-taken), excluding excludeRoomID. A room's reserve is
	// committed the moment the room is pinned to a backend even before its
	// own connections consume it, so this headroom must come off of what an
	// unrelated room sees as free (spec §4.2.5, §8 seed case 5).
	RoomReserveHeadroom(ctx context.Context, backendID domain.BackendID, excludeRoomID domain.RoomID) (int, error)
}

type StreamRepository interface {
	Create(ctx context.Context, stream *domain.JanusRtcStream) error
	GetLiveByRTC(ctx context.Context, rtcID domain.RTCID) (*domain.JanusRtcStream, error)
	Update(ctx context.Context, stream *domain.JanusRtcStream) error
	ListByRoom(ctx context.Context, roomID domain.RoomID, rtcID *domain.RTCID, window *domain.TimeRange, offset, limit int) ([]*domain.JanusRtcStream, error)
	ListLiveByBackend(ctx context.Context, backendID domain.BackendID) ([]*domain.JanusRtcStream, error)
}

type RecordingRepository interface {
	Upsert(ctx context.Context, rec *domain.Recording) error
	Get(ctx context.Context, rtcID domain.RTCID) (*domain.Recording, error)
}

type WriterConfigRepository interface {
	Get(ctx context.Context, rtcID domain.RTCID) (*domain.RtcWriterConfig, error)
	Upsert(ctx context.Context, cfg *domain.RtcWriterConfig) error
	AppendSnapshot(ctx context.Context, snap *domain.WriterConfigSnapshot) error
	ListSnapshots(ctx context.Context, rtcID domain.RTCID) ([]*domain.WriterConfigSnapshot, error)
	ListByRoom(ctx context.Context, roomID domain.RoomID) ([]*domain.RtcWriterConfig, error)
}

type ReaderConfigRepository interface {
	Get(ctx context.Context, rtcID domain.RTCID, readerAgentID domain.AgentID) (*domain.RtcReaderConfig, error)
	Upsert(ctx context.Context, cfg *domain.RtcReaderConfig) error
	ListByRoomAndAgent(ctx context.Context, roomID domain.RoomID, readerAgentID domain.AgentID) ([]*domain.RtcReaderConfig, error)
	ListByRoom(ctx context.Context, roomID domain.RoomID) ([]*domain.RtcReaderConfig, error)
}

type GroupRepository interface {
	Replace(ctx context.Context, roomID domain.RoomID, groups []domain.GroupAgent) error
	List(ctx context.Context, roomID domain.RoomID, withinGroup *int) ([]domain.GroupAgent, error)
	GroupOf(ctx context.Context, roomID domain.RoomID, agentID domain.AgentID) (int, bool, error)
}

type OrphanedRoomRepository interface {
	Upsert(ctx context.Context, o *domain.OrphanedRoom) error
	Delete(ctx context.Context, roomID domain.RoomID) error
	ListOlderThan(ctx context.Context, timeout time.Duration, now time.Time) ([]*domain.OrphanedRoom, error)
}

type OutboxRepository interface {
	// Enqueue inserts entry using the transaction already open on ctx, so
	// it commits atomically with the state change that produced it.
	Enqueue(ctx context.Context, entry *domain.OutboxEntry) error
	PullDue(ctx context.Context, now time.Time, limit int) ([]*domain.OutboxEntry, error)
	Delete(ctx context.Context, id uint64) error
	MarkFailed(ctx context.Context, id uint64, errKind domain.ErrorSlug, nextAttempt time.Time) error
}

// UnitOfWork runs fn inside a single database transaction, making ctx carry
// that transaction for every repository call made from within fn.
type UnitOfWork interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
