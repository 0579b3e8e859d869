package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

// videoGroupOrchestrator consumes VideoGroupIntent events raised by
// groupService.Update off the event bus, recomputes every rtc's reader
// configs against the room's current group partition, pushes the result to
// the owning backend, and only then emits the video_group.*
// "backend reconfiguration succeeded" domain event (spec §4.4). Grounded on
// the original's intent_event.rs::handle_intent stage (group_agent upsert
// -> group_reader_config recompute -> Janus push -> completed event),
// adapted to this codebase's synchronous engine.Send-then-notify idiom
// (config_service.go's applyReaderDelta) rather than a further chain of
// async stages.
type videoGroupOrchestrator struct {
	rooms    ports.RoomRepository
	rtcs     ports.RTCRepository
	agents   ports.AgentRepository
	groups   ports.GroupRepository
	reader   ports.ReaderConfigRepository
	conns    ports.AgentConnectionRepository
	engine   ports.TransactionEngine
	notifier ports.Notifier
	uow      ports.UnitOfWork
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewVideoGroupOrchestrator(
	rooms ports.RoomRepository,
	rtcs ports.RTCRepository,
	agents ports.AgentRepository,
	groups ports.GroupRepository,
	reader ports.ReaderConfigRepository,
	conns ports.AgentConnectionRepository,
	engine ports.TransactionEngine,
	notifier ports.Notifier,
	uow ports.UnitOfWork,
	logger *zap.SugaredLogger,
) ports.VideoGroupOrchestrator {
	return &videoGroupOrchestrator{
		rooms: rooms, rtcs: rtcs, agents: agents, groups: groups, reader: reader,
		conns: conns, engine: engine, notifier: notifier, uow: uow, logger: logger, now: time.Now,
	}
}

// agentListLimit bounds one recompute pass the same way vacuum bounds its
// closed-room sweep (spec §4.5 precedent); a room with more concurrent
// agents than this is out of scope for a single video-group partition.
const agentListLimit = 500

func (s *videoGroupOrchestrator) HandleIntent(ctx context.Context, intent domain.VideoGroupIntent) error {
	room, err := s.rooms.Get(ctx, intent.RoomID)
	if err != nil {
		return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load room", err)
	}
	if room == nil {
		// The room closed and was cleaned up before this intent drained;
		// nothing left to reconfigure.
		return nil
	}

	return s.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		partition, err := s.groups.List(ctx, room.ID, nil)
		if err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load room groups", err)
		}
		groupOf := make(map[domain.AgentID]int, len(partition))
		for _, g := range partition {
			groupOf[g.AgentID] = g.Number
		}

		rtcs, err := s.rtcs.ListByRoom(ctx, room.ID)
		if err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to list room rtcs", err)
		}
		agents, err := s.agents.List(ctx, room.ID, 0, agentListLimit)
		if err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to list room agents", err)
		}

		updated, err := s.recomputeReaderConfigs(ctx, rtcs, agents, groupOf)
		if err != nil {
			return err
		}

		return s.notifier.Enqueue(ctx, intent.Operation, domain.SinkRoomTopic,
			"room", room.ID.String(), domain.VideoGroupEvent{RoomID: room.ID, Configs: updated})
	})
}

// recomputeReaderConfigs sets receive_video/receive_audio true for every
// (rtc, reader) pair whose reader shares the rtc writer's group number (or
// both are ungrouped), false otherwise, pushing every change to the reader's
// live connection handle. Grounded on group_reader_config::update.
func (s *videoGroupOrchestrator) recomputeReaderConfigs(
	ctx context.Context,
	rtcs []*domain.RTC,
	agents []*domain.Agent,
	groupOf map[domain.AgentID]int,
) ([]domain.RtcReaderConfig, error) {
	updated := make([]domain.RtcReaderConfig, 0, len(rtcs)*len(agents))
	for _, rtc := range rtcs {
		writerGroup, writerHasGroup := groupOf[rtc.CreatedBy]
		for _, agent := range agents {
			if agent.AgentID == rtc.CreatedBy {
				continue
			}
			readerGroup, readerHasGroup := groupOf[agent.AgentID]
			sameGroup := writerHasGroup == readerHasGroup && (!writerHasGroup || writerGroup == readerGroup)

			current, err := s.reader.Get(ctx, rtc.ID, agent.AgentID)
			if err != nil {
				return nil, domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load reader config", err)
			}
			created := false
			if current == nil {
				current = &domain.RtcReaderConfig{RTCID: rtc.ID, ReaderAgentID: agent.AgentID, ReceiveVideo: true, ReceiveAudio: true}
				created = true
			}
			if current.ReceiveVideo == sameGroup && current.ReceiveAudio == sameGroup {
				if created {
					if err := s.reader.Upsert(ctx, current); err != nil {
						return nil, domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to persist reader config", err)
					}
				}
				updated = append(updated, *current)
				continue
			}
			merged := current.Merge(domain.ReaderConfigDelta{
				RTCID: rtc.ID, ReaderAgentID: agent.AgentID,
				ReceiveVideo: &sameGroup, ReceiveAudio: &sameGroup,
			}, s.now())

			if err := s.reader.Upsert(ctx, &merged); err != nil {
				return nil, domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to persist reader config", err)
			}
			if err := s.pushToBackend(ctx, agent.AgentID, rtc.ID, merged); err != nil {
				return nil, err
			}
			updated = append(updated, merged)
		}
	}
	return updated, nil
}

func (s *videoGroupOrchestrator) pushToBackend(ctx context.Context, readerID domain.AgentID, rtcID domain.RTCID, cfg domain.RtcReaderConfig) error {
	conn, err := s.conns.Get(ctx, readerID, rtcID)
	if err != nil {
		return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load reader connection", err)
	}
	if conn == nil {
		return nil
	}
	_, err = s.engine.Send(ctx, conn.BackendID, ports.ReqMessageUpdateWriter, map[string]any{
		"handle_id":     uint64(conn.HandleID),
		"receive_video": cfg.ReceiveVideo,
		"receive_audio": cfg.ReceiveAudio,
	})
	return err
}
