package services

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"conference/internal/core/domain"
	"conference/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vacuumServiceFixture struct {
	svc      ports.VacuumService
	rooms    *fakeRoomRepo
	agents   *fakeAgentRepo
	conns    *fakeConnRepo
	rtcs     *fakeRTCRepo
	streams  *fakeStreamRepo
	rec      *fakeRecordingRepo
	orphans  *fakeOrphanRepo
	backends *fakeBackendRepo
	storage  *fakeRecordingStorage
	engine   *fakeEngine
	notifier *fakeNotifier
}

func newVacuumServiceFixture(t *testing.T) *vacuumServiceFixture {
	t.Helper()
	rtcs := newFakeRTCRepo()
	conns := newFakeConnRepo()
	conns.rtcs = rtcs
	f := &vacuumServiceFixture{
		rooms:    newFakeRoomRepo(),
		agents:   newFakeAgentRepo(),
		conns:    conns,
		rtcs:     rtcs,
		streams:  newFakeStreamRepo(),
		rec:      newFakeRecordingRepo(),
		orphans:  newFakeOrphanRepo(),
		backends: newFakeBackendRepo(),
		storage:  &fakeRecordingStorage{exists: true},
		engine:   &fakeEngine{},
		notifier: &fakeNotifier{},
	}
	f.svc = NewVacuumService(f.rooms, f.agents, f.conns, f.streams, f.rec, f.orphans, f.backends,
		f.storage, f.engine, f.notifier, fakeUOW{}, zap.NewNop().Sugar())
	return f
}

// closedRoomWithStream seeds a room whose close time is already past, with
// a live rtc/stream pinned to a backend, an agent, and a connection —
// everything finalizeRoom is supposed to tear down or settle.
func (f *vacuumServiceFixture) closedRoomWithStream(t *testing.T) (*domain.Room, *domain.RTC) {
	t.Helper()
	past := time.Now().Add(-time.Minute)
	room := &domain.Room{
		ID:               domain.NewRoomID(),
		Time:             domain.TimeRange{Lower: time.Now().Add(-time.Hour), Upper: &past},
		RTCSharingPolicy: domain.PolicyShared,
	}
	require.NoError(t, f.rooms.Create(context.Background(), room))

	be := newTestBackend("be1", 10, "", "")
	require.NoError(t, f.backends.Upsert(context.Background(), be))

	rtc := &domain.RTC{ID: domain.NewRTCID(), RoomID: room.ID, CreatedBy: mustAgentID("host")}
	require.NoError(t, f.rtcs.Create(context.Background(), rtc))

	require.NoError(t, f.streams.Create(context.Background(), &domain.JanusRtcStream{
		ID:        domain.NewRTCID(),
		RTCID:     rtc.ID,
		BackendID: be.ID,
		Time:      domain.TimeRange{Lower: time.Now().Add(-time.Hour)},
	}))

	require.NoError(t, f.agents.Upsert(context.Background(), &domain.Agent{
		AgentID: mustAgentID("host"), RoomID: room.ID, Status: domain.AgentReady,
	}))
	require.NoError(t, f.conns.Create(context.Background(), &domain.AgentConnection{
		AgentID: mustAgentID("host"), RTCID: rtc.ID, BackendID: be.ID, Intent: domain.IntentWrite,
	}))

	return room, rtc
}

// TestVacuumService_FinalizeRoomDeletesConnections covers spec §4.5's
// "delete closed-room agents and connections": both the Agent and
// AgentConnection rows for a finalized room must be gone afterward.
func TestVacuumService_FinalizeRoomDeletesConnections(t *testing.T) {
	f := newVacuumServiceFixture(t)
	room, rtc := f.closedRoomWithStream(t)
	f.engine.responses = []*ports.BackendResponse{
		{OK: true, Payload: map[string]any{"mjr_dumps_uris": []any{"s3://bucket/obj"}}},
	}

	_, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	agent, err := f.agents.Get(context.Background(), room.ID, mustAgentID("host"))
	require.NoError(t, err)
	assert.Nil(t, agent)

	conn, err := f.conns.Get(context.Background(), mustAgentID("host"), rtc.ID)
	require.NoError(t, err)
	assert.Nil(t, conn)
}

// TestVacuumService_FinalizeRoomAbsorbsAlreadyRunning is spec §8's
// concurrent-vacuum round trip: an already_running upload response must be
// skipped rather than treated as a missing recording, so a concurrent sweep
// still finalizing the same recording isn't corrupted.
func TestVacuumService_FinalizeRoomAbsorbsAlreadyRunning(t *testing.T) {
	f := newVacuumServiceFixture(t)
	_, rtc := f.closedRoomWithStream(t)

	// Another sweep already marked this recording ready; this sweep's
	// upload request comes back already_running with no payload.
	require.NoError(t, f.rec.Upsert(context.Background(), &domain.Recording{
		RTCID: rtc.ID, Status: domain.RecordingReady,
	}))
	f.engine.responses = []*ports.BackendResponse{
		{OK: true, AlreadyRunning: true},
	}

	report, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.UploadsRequested)

	rec, err := f.rec.Get(context.Background(), rtc.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.RecordingReady, rec.Status, "already_running must not overwrite the recording another sweep finalized")
}

func TestVacuumService_FinalizeRoomMarksMissingWhenNoURIs(t *testing.T) {
	f := newVacuumServiceFixture(t)
	_, rtc := f.closedRoomWithStream(t)
	f.engine.responses = []*ports.BackendResponse{
		{OK: true, Payload: map[string]any{}},
	}

	_, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	rec, err := f.rec.Get(context.Background(), rtc.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.RecordingMissing, rec.Status)
}

func TestVacuumService_ForceClosesOrphanedRoom(t *testing.T) {
	f := newVacuumServiceFixture(t)
	upper := time.Now().Add(time.Hour)
	host := mustAgentID("host")
	room := &domain.Room{
		ID:               domain.NewRoomID(),
		Time:             domain.TimeRange{Lower: time.Now(), Upper: &upper},
		RTCSharingPolicy: domain.PolicyShared,
		Host:             &host,
	}
	require.NoError(t, f.rooms.Create(context.Background(), room))
	require.NoError(t, f.orphans.Upsert(context.Background(), &domain.OrphanedRoom{
		RoomID:    room.ID,
		CreatedAt: time.Now().Add(-OrphanedRoomTimeout - time.Minute),
	}))

	report, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.OrphansClosed)

	updated, err := f.rooms.Get(context.Background(), room.ID)
	require.NoError(t, err)
	assert.True(t, updated.TimedOut)
	require.NotNil(t, updated.ClosedBy)
	assert.Equal(t, host, *updated.ClosedBy)
}
