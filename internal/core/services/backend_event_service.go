package services

import (
	"context"
	"time"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

// backendEventService implements ports.BackendEventHandler: it is the C4
// side of C3's demultiplexing, applying webrtcup/hangup/detach and whole-
// backend loss to AgentConnection and JanusRtcStream state (spec §4.1,
// §4.3). Grounded on the teacher's mesh_service.go peer-disconnect
// teardown, generalized from a single peer-map sweep to a backend-scoped
// one keyed on (backend_id, handle_id).
type backendEventService struct {
	conns    ports.AgentConnectionRepository
	streams  ports.StreamRepository
	backends ports.BackendRepository
	engine   ports.TransactionEngine
	notifier ports.Notifier
	uow      ports.UnitOfWork
	now      func() time.Time
}

func NewBackendEventService(
	conns ports.AgentConnectionRepository,
	streams ports.StreamRepository,
	backends ports.BackendRepository,
	engine ports.TransactionEngine,
	notifier ports.Notifier,
	uow ports.UnitOfWork,
) ports.BackendEventHandler {
	return &backendEventService{
		conns: conns, streams: streams, backends: backends,
		engine: engine, notifier: notifier, uow: uow, now: time.Now,
	}
}

// HandleBackendEvent dispatches one event demultiplexed on
// (backend_id, handle_id) per spec §4.3.
func (s *backendEventService) HandleBackendEvent(ctx context.Context, ev ports.BackendEvent) error {
	switch ev.Kind {
	case ports.BackendEventWebRTCUp:
		return s.onWebRTCUp(ctx, ev)
	case ports.BackendEventHangup, ports.BackendEventDetach:
		return s.onDisconnect(ctx, ev)
	case ports.BackendEventSlowLink, ports.BackendEventMedia, ports.BackendEventOnline:
		// Informational only; no state-machine transition in this core.
		return nil
	default:
		return nil
	}
}

func (s *backendEventService) findConnection(ctx context.Context, backendID domain.BackendID, handleID domain.HandleID) (*domain.AgentConnection, error) {
	conns, err := s.conns.ListByBackend(ctx, backendID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to list backend connections", err)
	}
	for _, c := range conns {
		if c.HandleID == handleID {
			return c, nil
		}
	}
	return nil, nil
}

// onWebRTCUp transitions the AgentConnection to connected and, for a
// publisher, announces the now-live stream (spec §4.1 state machines).
func (s *backendEventService) onWebRTCUp(ctx context.Context, ev ports.BackendEvent) error {
	conn, err := s.findConnection(ctx, ev.BackendID, ev.HandleID)
	if err != nil {
		return err
	}
	if conn == nil {
		return nil
	}
	return s.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.conns.UpdateStatus(ctx, conn.AgentID, conn.RTCID, domain.ConnectionConnected); err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to mark connection connected", err)
		}
		if conn.Intent != domain.IntentWrite {
			return nil
		}
		stream, err := s.streams.GetLiveByRTC(ctx, conn.RTCID)
		if err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load live stream", err)
		}
		if stream == nil {
			return nil
		}
		return s.notifier.Enqueue(ctx, domain.EventRTCStreamUpdate, domain.SinkRoomTopic,
			"rtc_stream", conn.RTCID.String(), domain.RTCStreamEvent{Stream: stream})
	})
}

// onDisconnect removes the AgentConnection, tears down the backend handle
// once its refcount reaches zero, and for a publisher stops the stream and
// announces it (spec §4.1, §8 "removing the connection removes the handle
// iff refcount reaches zero"). Recording finalization for the now-stopped
// stream is left to the vacuum sweep (spec §4.5), which already absorbs
// overlapping upload attempts via already_running — triggering it again
// here would just race the same idempotent path.
func (s *backendEventService) onDisconnect(ctx context.Context, ev ports.BackendEvent) error {
	conn, err := s.findConnection(ctx, ev.BackendID, ev.HandleID)
	if err != nil {
		return err
	}
	if conn == nil {
		return nil
	}
	return s.teardownConnection(ctx, conn)
}

func (s *backendEventService) teardownConnection(ctx context.Context, conn *domain.AgentConnection) error {
	return s.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.conns.Delete(ctx, conn.AgentID, conn.RTCID); err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to remove agent connection", err)
		}

		refs, err := s.conns.CountHandleRefs(ctx, conn.BackendID, conn.HandleID)
		if err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to count handle refs", err)
		}
		if refs == 0 {
			if _, err := s.engine.Send(ctx, conn.BackendID, ports.ReqMessageAgentLeave, map[string]any{
				"handle_id": uint64(conn.HandleID),
			}); err != nil {
				return err
			}
		}

		if conn.Intent != domain.IntentWrite {
			return nil
		}
		stream, err := s.streams.GetLiveByRTC(ctx, conn.RTCID)
		if err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load live stream", err)
		}
		if stream == nil {
			return nil
		}
		stream.Stop(s.now())
		if err := s.streams.Update(ctx, stream); err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to stop rtc stream", err)
		}
		return s.notifier.Enqueue(ctx, domain.EventRTCStreamUpdate, domain.SinkRoomTopic,
			"rtc_stream", conn.RTCID.String(), domain.RTCStreamEvent{Stream: stream})
	})
}

// HandleBackendOffline tears down every handle/stream/connection owned by a
// backend that has disappeared (spec §4.3 "Backend loss... on loss, all
// handles/streams of that backend are torn down").
func (s *backendEventService) HandleBackendOffline(ctx context.Context, backendID domain.BackendID) error {
	conns, err := s.conns.ListByBackend(ctx, backendID)
	if err != nil {
		return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to list backend connections", err)
	}
	for _, conn := range conns {
		if err := s.teardownConnection(ctx, conn); err != nil {
			return err
		}
	}

	streams, err := s.streams.ListLiveByBackend(ctx, backendID)
	if err != nil {
		return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to list live backend streams", err)
	}
	for _, stream := range streams {
		err := s.uow.WithinTransaction(ctx, func(ctx context.Context) error {
			stream.Stop(s.now())
			if err := s.streams.Update(ctx, stream); err != nil {
				return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to stop orphaned stream", err)
			}
			return s.notifier.Enqueue(ctx, domain.EventRTCStreamUpdate, domain.SinkRoomTopic,
				"rtc_stream", stream.RTCID.String(), domain.RTCStreamEvent{Stream: stream})
		})
		if err != nil {
			return err
		}
	}

	return s.backends.Delete(ctx, backendID)
}
