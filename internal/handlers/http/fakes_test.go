package http

import (
	"context"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

type fakeRoomService struct {
	room    *domain.Room
	agents  []*domain.Agent
	err     error
	created ports.RoomCreateInput
	updated ports.RoomUpdateInput
}

func (f *fakeRoomService) Create(ctx context.Context, by domain.AgentID, in ports.RoomCreateInput) (*domain.Room, error) {
	f.created = in
	if f.err != nil {
		return nil, f.err
	}
	return f.room, nil
}

func (f *fakeRoomService) Read(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.room, nil
}

func (f *fakeRoomService) Update(ctx context.Context, by domain.AgentID, id domain.RoomID, in ports.RoomUpdateInput) (*domain.Room, error) {
	f.updated = in
	if f.err != nil {
		return nil, f.err
	}
	return f.room, nil
}

func (f *fakeRoomService) Close(ctx context.Context, by domain.AgentID, id domain.RoomID) (*domain.Room, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.room, nil
}

func (f *fakeRoomService) Enter(ctx context.Context, agentID domain.AgentID, roomID domain.RoomID) error {
	return f.err
}

func (f *fakeRoomService) ConfirmEntered(ctx context.Context, agentID domain.AgentID, roomID domain.RoomID) error {
	return f.err
}

func (f *fakeRoomService) Leave(ctx context.Context, agentID domain.AgentID, roomID domain.RoomID) error {
	return f.err
}

func (f *fakeRoomService) ListAgents(ctx context.Context, roomID domain.RoomID, offset, limit int) ([]*domain.Agent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.agents, nil
}

type fakeRTCService struct {
	rtc    *domain.RTC
	rtcs   []*domain.RTC
	result *ports.ConnectResult
	err    error
}

func (f *fakeRTCService) Create(ctx context.Context, by domain.AgentID, roomID domain.RoomID) (*domain.RTC, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rtc, nil
}

func (f *fakeRTCService) List(ctx context.Context, roomID domain.RoomID) ([]*domain.RTC, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rtcs, nil
}

func (f *fakeRTCService) Read(ctx context.Context, id domain.RTCID) (*domain.RTC, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rtc, nil
}

func (f *fakeRTCService) Connect(ctx context.Context, agentID domain.AgentID, rtcID domain.RTCID, intent domain.Intent, label string, sdpKind ports.SDPKind) (*ports.ConnectResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeSignalService struct {
	answer       map[string]any
	err          error
	calledCreate bool
	calledUpdate bool
}

func (f *fakeSignalService) Create(ctx context.Context, agentID domain.AgentID, rtcID domain.RTCID, jsep map[string]any) (map[string]any, error) {
	f.calledCreate = true
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

func (f *fakeSignalService) Update(ctx context.Context, agentID domain.AgentID, rtcID domain.RTCID, jsep map[string]any) (map[string]any, error) {
	f.calledUpdate = true
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

type fakeConfigService struct {
	writerConfigs  []*domain.RtcWriterConfig
	writerConfig   *domain.RtcWriterConfig
	snapshots      []*domain.WriterConfigSnapshot
	readerConfigs  []*domain.RtcReaderConfig
	err            error
}

func (f *fakeConfigService) UpdateWriterConfig(ctx context.Context, by domain.AgentID, rtcID domain.RTCID, delta domain.WriterConfigDelta) (*domain.RtcWriterConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.writerConfig, nil
}

func (f *fakeConfigService) ReadWriterConfig(ctx context.Context, roomID domain.RoomID) ([]*domain.RtcWriterConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.writerConfigs, nil
}

func (f *fakeConfigService) ReadWriterConfigSnapshots(ctx context.Context, rtcID domain.RTCID) ([]*domain.WriterConfigSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshots, nil
}

func (f *fakeConfigService) UpdateReaderConfig(ctx context.Context, by domain.AgentID, roomID domain.RoomID, deltas []domain.ReaderConfigDelta) ([]*domain.RtcReaderConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.readerConfigs, nil
}

func (f *fakeConfigService) ReadReaderConfig(ctx context.Context, roomID domain.RoomID, agentID domain.AgentID) ([]*domain.RtcReaderConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.readerConfigs, nil
}

type fakeGroupService struct {
	groups  []domain.GroupAgent
	err     error
	updated []domain.GroupAgent
}

func (f *fakeGroupService) Update(ctx context.Context, by domain.AgentID, roomID domain.RoomID, groups []domain.GroupAgent) error {
	f.updated = groups
	return f.err
}

func (f *fakeGroupService) List(ctx context.Context, roomID domain.RoomID, withinGroup *int) ([]domain.GroupAgent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.groups, nil
}

type fakeStreamQueryService struct {
	streams []*domain.JanusRtcStream
	err     error
}

func (f *fakeStreamQueryService) ListStreams(ctx context.Context, roomID domain.RoomID, rtcID *domain.RTCID, window *domain.TimeRange, offset, limit int) ([]*domain.JanusRtcStream, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.streams, nil
}

type fakeVacuumService struct {
	report ports.VacuumReport
	err    error
}

func (f *fakeVacuumService) Run(ctx context.Context) (ports.VacuumReport, error) {
	if f.err != nil {
		return ports.VacuumReport{}, f.err
	}
	return f.report, nil
}

func testAgent(label string) domain.AgentID {
	return domain.AgentID{Label: label, Audience: "test"}
}
