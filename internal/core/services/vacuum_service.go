package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

// OrphanedRoomTimeout bounds how long a host-less room is tolerated before
// vacuum force-closes it (spec §4.5).
const OrphanedRoomTimeout = 10 * time.Minute

// vacuumService implements C6. It is driven by infrastructure/scheduler's
// VacuumScheduler; Run performs one sweep and is idempotent across
// overlapping invocations ("tolerates already_running responses").
type vacuumService struct {
	rooms    ports.RoomRepository
	agents   ports.AgentRepository
	conns    ports.AgentConnectionRepository
	streams  ports.StreamRepository
	rec      ports.RecordingRepository
	orphans  ports.OrphanedRoomRepository
	backends ports.BackendRepository
	storage  ports.RecordingStorage
	engine   ports.TransactionEngine
	notifier ports.Notifier
	uow      ports.UnitOfWork
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewVacuumService(
	rooms ports.RoomRepository,
	agents ports.AgentRepository,
	conns ports.AgentConnectionRepository,
	streams ports.StreamRepository,
	rec ports.RecordingRepository,
	orphans ports.OrphanedRoomRepository,
	backends ports.BackendRepository,
	storage ports.RecordingStorage,
	engine ports.TransactionEngine,
	notifier ports.Notifier,
	uow ports.UnitOfWork,
	logger *zap.SugaredLogger,
) ports.VacuumService {
	return &vacuumService{
		rooms: rooms, agents: agents, conns: conns, streams: streams,
		rec: rec, orphans: orphans, backends: backends, storage: storage,
		engine: engine, notifier: notifier, uow: uow, logger: logger, now: time.Now,
	}
}

func (s *vacuumService) Run(ctx context.Context) (ports.VacuumReport, error) {
	report := ports.VacuumReport{Ran: s.now()}

	closedRooms, err := s.rooms.ListClosedBefore(ctx, s.now(), 500)
	if err != nil {
		return report, domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to list closed-but-not-settled rooms", err)
	}
	for _, room := range closedRooms {
		uploaded, err := s.finalizeRoom(ctx, room)
		if err != nil {
			s.logger.Warnw("vacuum: failed to finalize room", "room_id", room.ID, "error", err)
			continue
		}
		if uploaded {
			report.UploadsRequested++
		}
		report.RoomsClosed++
	}

	orphans, err := s.orphans.ListOlderThan(ctx, OrphanedRoomTimeout, s.now())
	if err != nil {
		return report, domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to list orphaned rooms", err)
	}
	for _, o := range orphans {
		if err := s.forceClose(ctx, o.RoomID); err != nil {
			s.logger.Warnw("vacuum: failed to force-close orphaned room", "room_id", o.RoomID, "error", err)
			continue
		}
		report.OrphansClosed++
	}

	return report, nil
}

// finalizeRoom settles one overdue room: it tears down agents and
// connections, requests recording upload for each of the room's streams
// whose backend is still registered with the compliant API version, and
// double-checks the reported objects
// against storage before marking the Recording ready (spec §4.5
// expansion).
func (s *vacuumService) finalizeRoom(ctx context.Context, room *domain.Room) (bool, error) {
	uploaded := false
	err := s.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.agents.DeleteAllInRoom(ctx, room.ID); err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to delete room agents", err)
		}
		if _, err := s.conns.DeleteAllInRoom(ctx, room.ID); err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to delete room connections", err)
		}

		rtcStreams, err := s.streams.ListByRoom(ctx, room.ID, nil, nil, 0, 500)
		if err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to list room streams", err)
		}

		for _, stream := range rtcStreams {
			backend, err := s.backends.Get(ctx, stream.BackendID)
			if err != nil || backend == nil || backend.APIVersion != domain.DefaultCompliantAPIVersion {
				continue
			}

			resp, err := s.engine.Send(ctx, backend.ID, ports.ReqUpload, map[string]any{
				"rtc_id": stream.RTCID.String(),
			})
			if err != nil {
				s.logger.Warnw("vacuum: upload request failed", "rtc_id", stream.RTCID, "error", err)
				continue
			}
			if resp.AlreadyRunning {
				// Another overlapping sweep is still finalizing this
				// recording; its own upload response will settle it, so
				// absorb this one silently rather than marking it missing.
				continue
			}
			uploaded = true

			recording := &domain.Recording{RTCID: stream.RTCID}
			uris := extractURIs(resp.Payload)
			if len(uris) == 0 {
				recording.MarkMissing()
			} else if confirmed, err := s.storage.ObjectsExist(ctx, uris); err != nil {
				s.logger.Warnw("vacuum: storage check failed", "rtc_id", stream.RTCID, "error", err)
				continue
			} else if !confirmed {
				return domain.NewError(domain.ErrBackendRecordingMissing, "backend reported objects absent from storage")
			} else {
				recording.MarkReady(stream.Time.Lower, extractSegments(resp.Payload), uris)
			}

			if err := s.rec.Upsert(ctx, recording); err != nil {
				return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to persist recording", err)
			}
			if err := s.notifier.Enqueue(ctx, domain.EventRoomUpload, domain.SinkAudienceTopic,
				"room", room.ID.String(), domain.UploadEvent{RoomID: room.ID, Recording: *recording}); err != nil {
				return err
			}
		}

		return s.notifier.Enqueue(ctx, domain.EventRoomClose, domain.SinkRoomTopic,
			"room", room.ID.String(), domain.RoomEvent{Room: room})
	})
	return uploaded, err
}

func (s *vacuumService) forceClose(ctx context.Context, roomID domain.RoomID) error {
	return s.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		room, err := s.rooms.GetForUpdate(ctx, roomID)
		if err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load orphaned room", err)
		}
		if room == nil || room.ClosedBy != nil {
			return s.orphans.Delete(ctx, roomID)
		}
		now := s.now()
		room.Time = room.Time.Bound(now)
		room.TimedOut = true
		if room.Host != nil {
			room.ClosedBy = room.Host
		}
		if err := s.rooms.Update(ctx, room); err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to force-close room", err)
		}
		if err := s.orphans.Delete(ctx, roomID); err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to clear orphaned-room marker", err)
		}
		return s.notifier.Enqueue(ctx, domain.EventRoomClose, domain.SinkAudienceTopic,
			"room", roomID.String(), domain.RoomEvent{Room: room})
	})
}

func extractURIs(payload map[string]any) []string {
	raw, ok := payload["mjr_dumps_uris"].([]any)
	if !ok {
		return nil
	}
	uris := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			uris = append(uris, s)
		}
	}
	return uris
}

func extractSegments(payload map[string]any) []domain.Int64Range {
	raw, ok := payload["segments"].([]any)
	if !ok {
		return nil
	}
	segments := make([]domain.Int64Range, 0, len(raw))
	for _, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		lower, _ := m["lower"].(float64)
		upper, _ := m["upper"].(float64)
		segments = append(segments, domain.Int64Range{Lower: int64(lower), Upper: int64(upper)})
	}
	return segments
}
