package services

import (
	"time"

	"context"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

// configService implements C7: writer/reader config deltas are merged onto
// the stored config, appended as a snapshot row, pushed to the owning
// backend handle, and notified as one consolidated event carrying the full
// post-merge state (spec §4.6). Grounded on the teacher's
// batched_metrics_service.go append-then-flush shape.
type configService struct {
	writer ports.WriterConfigRepository
	reader ports.ReaderConfigRepository
	conns  ports.AgentConnectionRepository
	rtcs   ports.RTCRepository
	groups ports.GroupRepository
	engine ports.TransactionEngine
	notifier ports.Notifier
	uow    ports.UnitOfWork
	now    func() time.Time
}

func NewConfigService(
	writer ports.WriterConfigRepository,
	reader ports.ReaderConfigRepository,
	conns ports.AgentConnectionRepository,
	rtcs ports.RTCRepository,
	groups ports.GroupRepository,
	engine ports.TransactionEngine,
	notifier ports.Notifier,
	uow ports.UnitOfWork,
) ports.ConfigService {
	return &configService{
		writer: writer, reader: reader, conns: conns, rtcs: rtcs, groups: groups,
		engine: engine, notifier: notifier, uow: uow, now: time.Now,
	}
}

func (s *configService) UpdateWriterConfig(ctx context.Context, by domain.AgentID, rtcID domain.RTCID, delta domain.WriterConfigDelta) (*domain.RtcWriterConfig, error) {
	rtc, err := s.rtcs.Get(ctx, rtcID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load rtc", err)
	}
	if rtc == nil {
		return nil, domain.NewError(domain.ErrRTCNotFound, "rtc does not exist")
	}

	var merged domain.RtcWriterConfig
	err = s.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.writer.Get(ctx, rtcID)
		if err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load writer config", err)
		}
		if current == nil {
			current = &domain.RtcWriterConfig{RTCID: rtcID, SendVideo: true, SendAudio: true}
		}
		merged = current.Merge(delta, s.now())

		if err := s.writer.Upsert(ctx, &merged); err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to persist writer config", err)
		}
		if err := s.writer.AppendSnapshot(ctx, &domain.WriterConfigSnapshot{RTCID: rtcID, Delta: delta, CreatedAt: s.now()}); err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to append writer config snapshot", err)
		}

		if conn, err := s.connFor(ctx, rtcID); err == nil && conn != nil {
			if _, err := s.engine.Send(ctx, conn.BackendID, ports.ReqMessageUpdateWriter, map[string]any{
				"handle_id":  uint64(conn.HandleID),
				"send_video": merged.SendVideo,
				"send_audio": merged.SendAudio,
				"video_remb": merged.VideoRemb,
			}); err != nil {
				return err
			}
		}

		all, err := s.writer.ListByRoom(ctx, rtc.RoomID)
		if err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to list room writer configs", err)
		}
		configs := make([]domain.RtcWriterConfig, 0, len(all))
		for _, c := range all {
			configs = append(configs, *c)
		}
		return s.notifier.Enqueue(ctx, domain.EventAgentWriterConfig, domain.SinkRoomTopic,
			"room", rtc.RoomID.String(), domain.WriterConfigEvent{RoomID: rtc.RoomID, Configs: configs})
	})
	if err != nil {
		return nil, err
	}
	return &merged, nil
}

// connFor finds this RTC's publishing connection, the one the backend push
// targets; it returns nil (not an error) if the rtc has no live publisher
// yet, since a writer config may be set before the first connect.
func (s *configService) connFor(ctx context.Context, rtcID domain.RTCID) (*domain.AgentConnection, error) {
	conns, err := s.conns.ListByRTC(ctx, rtcID)
	if err != nil {
		return nil, err
	}
	for _, c := range conns {
		if c.Intent == domain.IntentWrite {
			return c, nil
		}
	}
	return nil, nil
}

func (s *configService) ReadWriterConfig(ctx context.Context, roomID domain.RoomID) ([]*domain.RtcWriterConfig, error) {
	cfgs, err := s.writer.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to list writer configs", err)
	}
	return cfgs, nil
}

func (s *configService) ReadWriterConfigSnapshots(ctx context.Context, rtcID domain.RTCID) ([]*domain.WriterConfigSnapshot, error) {
	snaps, err := s.writer.ListSnapshots(ctx, rtcID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to list writer config snapshots", err)
	}
	return snaps, nil
}

func (s *configService) UpdateReaderConfig(ctx context.Context, by domain.AgentID, roomID domain.RoomID, deltas []domain.ReaderConfigDelta) ([]*domain.RtcReaderConfig, error) {
	var result []*domain.RtcReaderConfig
	err := s.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, d := range deltas {
			if err := s.applyReaderDelta(ctx, d); err != nil {
				return err
			}
		}
		all, err := s.reader.ListByRoomAndAgent(ctx, roomID, by)
		if err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to list reader configs", err)
		}
		result = all

		configs := make([]domain.RtcReaderConfig, 0, len(all))
		for _, c := range all {
			configs = append(configs, *c)
		}
		return s.notifier.Enqueue(ctx, domain.EventAgentReaderConfig, domain.SinkRoomTopic,
			"room", roomID.String(), domain.ReaderConfigEvent{RoomID: roomID, AgentID: by, Configs: configs})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyReaderDelta merges one (rtc, reader agent) delta and pushes the
// result to the reader's connection handle so the backend enforces it on
// the next RTP packet (spec §4.6). Reader updates are restricted to peers
// sharing a GroupAgent partition with the rtc's writer (spec §4.1,
// §8 seed case 2).
func (s *configService) applyReaderDelta(ctx context.Context, d domain.ReaderConfigDelta) error {
	rtc, err := s.rtcs.Get(ctx, d.RTCID)
	if err != nil {
		return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load rtc", err)
	}
	if rtc == nil {
		return domain.NewError(domain.ErrRTCNotFound, "rtc does not exist")
	}
	writerID, err := s.writerAgentFor(ctx, d.RTCID, rtc.CreatedBy)
	if err != nil {
		return err
	}
	if err := s.requireSameGroup(ctx, rtc.RoomID, d.ReaderAgentID, writerID); err != nil {
		return err
	}

	current, err := s.reader.Get(ctx, d.RTCID, d.ReaderAgentID)
	if err != nil {
		return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load reader config", err)
	}
	if current == nil {
		current = &domain.RtcReaderConfig{RTCID: d.RTCID, ReaderAgentID: d.ReaderAgentID, ReceiveVideo: true, ReceiveAudio: true}
	}
	merged := current.Merge(d, s.now())
	if err := s.reader.Upsert(ctx, &merged); err != nil {
		return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to persist reader config", err)
	}

	conn, err := s.conns.Get(ctx, d.ReaderAgentID, d.RTCID)
	if err != nil {
		return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load reader connection", err)
	}
	if conn == nil {
		return nil
	}
	_, err = s.engine.Send(ctx, conn.BackendID, ports.ReqMessageUpdateWriter, map[string]any{
		"handle_id":     uint64(conn.HandleID),
		"receive_video": merged.ReceiveVideo,
		"receive_audio": merged.ReceiveAudio,
	})
	return err
}

// writerAgentFor returns the agent currently holding the write-intent
// connection on rtcID, falling back to the rtc's creator when no publisher
// has connected yet (e.g. an owned room before its host starts sending).
func (s *configService) writerAgentFor(ctx context.Context, rtcID domain.RTCID, fallback domain.AgentID) (domain.AgentID, error) {
	conns, err := s.conns.ListByRTC(ctx, rtcID)
	if err != nil {
		return fallback, domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to list rtc connections", err)
	}
	for _, c := range conns {
		if c.Intent == domain.IntentWrite {
			return c.AgentID, nil
		}
	}
	return fallback, nil
}

// requireSameGroup enforces that reader and writer are in the same
// GroupAgent partition whenever the writer belongs to one; a reader outside
// that group is rejected. A writer in no group (as every writer is in a
// room with no partition) imposes no restriction.
func (s *configService) requireSameGroup(ctx context.Context, roomID domain.RoomID, reader, writer domain.AgentID) error {
	if reader == writer {
		return nil
	}
	writerGroup, hasWriterGroup, err := s.groups.GroupOf(ctx, roomID, writer)
	if err != nil {
		return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load writer group", err)
	}
	if !hasWriterGroup {
		return nil
	}
	readerGroup, hasReaderGroup, err := s.groups.GroupOf(ctx, roomID, reader)
	if err != nil {
		return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load reader group", err)
	}
	if !hasReaderGroup || readerGroup != writerGroup {
		return domain.NewError(domain.ErrAccessDenied, "reader and writer are not in the same group")
	}
	return nil
}

func (s *configService) ReadReaderConfig(ctx context.Context, roomID domain.RoomID, agentID domain.AgentID) ([]*domain.RtcReaderConfig, error) {
	cfgs, err := s.reader.ListByRoomAndAgent(ctx, roomID, agentID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to list reader configs", err)
	}
	return cfgs, nil
}
