package services

import (
	"context"
	"sync"
	"time"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

// fakeUOW runs fn directly against the incoming context; the in-memory
// fakes below have no notion of transactional isolation, so there is
// nothing for it to wrap.
type fakeUOW struct{}

func (fakeUOW) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeNotifier records every enqueued event for assertions.
type fakeNotifier struct {
	mu      sync.Mutex
	entries []fakeOutboxCall
	failNext bool
}

type fakeOutboxCall struct {
	Kind       domain.EventKind
	Sink       domain.Sink
	EntityType string
	EntityID   string
	Payload    any
}

func (n *fakeNotifier) Enqueue(ctx context.Context, kind domain.EventKind, sink domain.Sink, entityType, entityID string, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failNext {
		n.failNext = false
		return domain.NewError(domain.ErrPublishFailed, "forced test failure")
	}
	n.entries = append(n.entries, fakeOutboxCall{Kind: kind, Sink: sink, EntityType: entityType, EntityID: entityID, Payload: payload})
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.entries)
}

func (n *fakeNotifier) last() fakeOutboxCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.entries[len(n.entries)-1]
}

// noopLocker never actually serializes anything; room_service tests don't
// exercise cross-instance contention, only the room.* business logic.
type noopLocker struct{}

func (noopLocker) WithLock(ctx context.Context, roomID domain.RoomID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeRoomRepo is an in-memory RoomRepository.
type fakeRoomRepo struct {
	mu    sync.Mutex
	rooms map[domain.RoomID]*domain.Room
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{rooms: make(map[domain.RoomID]*domain.Room)}
}

func (r *fakeRoomRepo) Create(ctx context.Context, room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *room
	r.rooms[room.ID] = &cp
	return nil
}

func (r *fakeRoomRepo) Get(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, nil
	}
	cp := *room
	return &cp, nil
}

func (r *fakeRoomRepo) GetForUpdate(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	return r.Get(ctx, id)
}

func (r *fakeRoomRepo) Update(ctx context.Context, room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[room.ID]; !ok {
		return nil
	}
	cp := *room
	r.rooms[room.ID] = &cp
	return nil
}

func (r *fakeRoomRepo) ListClosedBefore(ctx context.Context, before time.Time, limit int) ([]*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Room
	for _, room := range r.rooms {
		if room.Time.Upper != nil && room.Time.Upper.Before(before) {
			cp := *room
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakeAgentRepo is an in-memory AgentRepository.
type fakeAgentRepo struct {
	mu     sync.Mutex
	agents map[domain.RoomID]map[domain.AgentID]*domain.Agent
}

func newFakeAgentRepo() *fakeAgentRepo {
	return &fakeAgentRepo{agents: make(map[domain.RoomID]map[domain.AgentID]*domain.Agent)}
}

func (a *fakeAgentRepo) Upsert(ctx context.Context, agent *domain.Agent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	room, ok := a.agents[agent.RoomID]
	if !ok {
		room = make(map[domain.AgentID]*domain.Agent)
		a.agents[agent.RoomID] = room
	}
	cp := *agent
	room[agent.AgentID] = &cp
	return nil
}

func (a *fakeAgentRepo) Get(ctx context.Context, roomID domain.RoomID, agentID domain.AgentID) (*domain.Agent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	room, ok := a.agents[roomID]
	if !ok {
		return nil, nil
	}
	agent, ok := room[agentID]
	if !ok {
		return nil, nil
	}
	cp := *agent
	return &cp, nil
}

func (a *fakeAgentRepo) List(ctx context.Context, roomID domain.RoomID, offset, limit int) ([]*domain.Agent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*domain.Agent
	for _, agent := range a.agents[roomID] {
		cp := *agent
		out = append(out, &cp)
	}
	return out, nil
}

func (a *fakeAgentRepo) Delete(ctx context.Context, roomID domain.RoomID, agentID domain.AgentID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if room, ok := a.agents[roomID]; ok {
		delete(room, agentID)
	}
	return nil
}

func (a *fakeAgentRepo) DeleteAllInRoom(ctx context.Context, roomID domain.RoomID) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.agents[roomID])
	delete(a.agents, roomID)
	return n, nil
}

// fakeOrphanRepo is an in-memory OrphanedRoomRepository.
type fakeOrphanRepo struct {
	mu    sync.Mutex
	items map[domain.RoomID]*domain.OrphanedRoom
}

func newFakeOrphanRepo() *fakeOrphanRepo {
	return &fakeOrphanRepo{items: make(map[domain.RoomID]*domain.OrphanedRoom)}
}

func (o *fakeOrphanRepo) Upsert(ctx context.Context, or *domain.OrphanedRoom) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	cp := *or
	o.items[or.RoomID] = &cp
	return nil
}

func (o *fakeOrphanRepo) Delete(ctx context.Context, roomID domain.RoomID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.items, roomID)
	return nil
}

func (o *fakeOrphanRepo) ListOlderThan(ctx context.Context, timeout time.Duration, now time.Time) ([]*domain.OrphanedRoom, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []*domain.OrphanedRoom
	for _, or := range o.items {
		if now.Sub(or.CreatedAt) >= timeout {
			cp := *or
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (o *fakeOrphanRepo) has(roomID domain.RoomID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.items[roomID]
	return ok
}

// fakeRTCRepo is an in-memory RTCRepository.
type fakeRTCRepo struct {
	mu   sync.Mutex
	rtcs map[domain.RTCID]*domain.RTC
}

func newFakeRTCRepo() *fakeRTCRepo {
	return &fakeRTCRepo{rtcs: make(map[domain.RTCID]*domain.RTC)}
}

func (r *fakeRTCRepo) Create(ctx context.Context, rtc *domain.RTC) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rtc
	r.rtcs[rtc.ID] = &cp
	return nil
}

func (r *fakeRTCRepo) Get(ctx context.Context, id domain.RTCID) (*domain.RTC, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rtc, ok := r.rtcs[id]
	if !ok {
		return nil, nil
	}
	cp := *rtc
	return &cp, nil
}

func (r *fakeRTCRepo) ListByRoom(ctx context.Context, roomID domain.RoomID) ([]*domain.RTC, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.RTC
	for _, rtc := range r.rtcs {
		if rtc.RoomID == roomID {
			cp := *rtc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRTCRepo) CountByRoomAndCreator(ctx context.Context, roomID domain.RoomID, creator domain.AgentID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rtc := range r.rtcs {
		if rtc.RoomID == roomID && rtc.CreatedBy == creator {
			n++
		}
	}
	return n, nil
}

func (r *fakeRTCRepo) CountByRoom(ctx context.Context, roomID domain.RoomID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rtc := range r.rtcs {
		if rtc.RoomID == roomID {
			n++
		}
	}
	return n, nil
}

// fakeConnRepo is an in-memory AgentConnectionRepository.
type fakeConnRepo struct {
	mu    sync.Mutex
	conns map[[2]string]*domain.AgentConnection
	// rtcs backs DeleteAllInRoom's rtc_id -> room_id join, mirroring the
	// real repository's subquery against the rtcs table; nil is fine for
	// tests that never exercise that path.
	rtcs *fakeRTCRepo
}

func newFakeConnRepo() *fakeConnRepo {
	return &fakeConnRepo{conns: make(map[[2]string]*domain.AgentConnection)}
}

func connKey(agentID domain.AgentID, rtcID domain.RTCID) [2]string {
	return [2]string{agentID.String(), rtcID.String()}
}

func (c *fakeConnRepo) Create(ctx context.Context, conn *domain.AgentConnection) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *conn
	c.conns[connKey(conn.AgentID, conn.RTCID)] = &cp
	return nil
}

func (c *fakeConnRepo) Get(ctx context.Context, agentID domain.AgentID, rtcID domain.RTCID) (*domain.AgentConnection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conn, ok := c.conns[connKey(agentID, rtcID)]
	if !ok {
		return nil, nil
	}
	cp := *conn
	return &cp, nil
}

func (c *fakeConnRepo) UpdateStatus(ctx context.Context, agentID domain.AgentID, rtcID domain.RTCID, status domain.ConnectionStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if conn, ok := c.conns[connKey(agentID, rtcID)]; ok {
		conn.Status = status
	}
	return nil
}

func (c *fakeConnRepo) Delete(ctx context.Context, agentID domain.AgentID, rtcID domain.RTCID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, connKey(agentID, rtcID))
	return nil
}

func (c *fakeConnRepo) ListByBackend(ctx context.Context, backendID domain.BackendID) ([]*domain.AgentConnection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*domain.AgentConnection
	for _, conn := range c.conns {
		if conn.BackendID == backendID {
			cp := *conn
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (c *fakeConnRepo) ListByRTC(ctx context.Context, rtcID domain.RTCID) ([]*domain.AgentConnection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*domain.AgentConnection
	for _, conn := range c.conns {
		if conn.RTCID == rtcID {
			cp := *conn
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (c *fakeConnRepo) CountHandleRefs(ctx context.Context, backendID domain.BackendID, handleID domain.HandleID) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, conn := range c.conns {
		if conn.BackendID == backendID && conn.HandleID == handleID {
			n++
		}
	}
	return n, nil
}

func (c *fakeConnRepo) DeleteAllInRoom(ctx context.Context, roomID domain.RoomID) (int, error) {
	if c.rtcs == nil {
		return 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key, conn := range c.conns {
		rtc, _ := c.rtcs.Get(ctx, conn.RTCID)
		if rtc != nil && rtc.RoomID == roomID {
			delete(c.conns, key)
			n++
		}
	}
	return n, nil
}

// fakeBackendRepo is an in-memory BackendRepository with adjustable active
// counts, letting balancer tests drive the free-capacity formula directly.
type fakeBackendRepo struct {
	mu               sync.Mutex
	order            []domain.BackendID
	backends         map[domain.BackendID]*domain.JanusBackend
	ownedPublishers  map[domain.BackendID]int
	totalPublishers  map[domain.BackendID]int
	subscribers      map[domain.BackendID]int
	// reserveHeadroom lets a test declare another room's unused reserve
	// floor on a backend directly, without modeling the underlying
	// per-room publisher/subscriber rows RoomReserveHeadroom aggregates in
	// the real repository.
	reserveHeadroom map[domain.BackendID]map[domain.RoomID]int
}

func newFakeBackendRepo() *fakeBackendRepo {
	return &fakeBackendRepo{
		backends:        make(map[domain.BackendID]*domain.JanusBackend),
		ownedPublishers: make(map[domain.BackendID]int),
		totalPublishers: make(map[domain.BackendID]int),
		subscribers:     make(map[domain.BackendID]int),
		reserveHeadroom: make(map[domain.BackendID]map[domain.RoomID]int),
	}
}

// Upsert appends new ids to order (kept insertion-ordered) so ListLive is
// deterministic across calls — tests that assert on tie-break behavior
// depend on a stable candidate ordering.
func (b *fakeBackendRepo) Upsert(ctx context.Context, backend *domain.JanusBackend) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.backends[backend.ID]; !exists {
		b.order = append(b.order, backend.ID)
	}
	cp := *backend
	b.backends[backend.ID] = &cp
	return nil
}

func (b *fakeBackendRepo) Get(ctx context.Context, id domain.BackendID) (*domain.JanusBackend, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	be, ok := b.backends[id]
	if !ok {
		return nil, nil
	}
	cp := *be
	return &cp, nil
}

func (b *fakeBackendRepo) Delete(ctx context.Context, id domain.BackendID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.backends, id)
	return nil
}

func (b *fakeBackendRepo) ListLive(ctx context.Context) ([]*domain.JanusBackend, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*domain.JanusBackend, 0, len(b.order))
	for _, id := range b.order {
		be, ok := b.backends[id]
		if !ok {
			continue
		}
		cp := *be
		out = append(out, &cp)
	}
	return out, nil
}

func (b *fakeBackendRepo) ActivePublisherCount(ctx context.Context, backendID domain.BackendID, ownedRooms bool) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ownedRooms {
		return b.ownedPublishers[backendID], nil
	}
	return b.totalPublishers[backendID], nil
}

func (b *fakeBackendRepo) ActiveSubscriberCount(ctx context.Context, backendID domain.BackendID) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subscribers[backendID], nil
}

// setReserveHeadroom declares that roomID has this much unused reserve
// floor committed on backendID, for RoomReserveHeadroom to aggregate.
func (b *fakeBackendRepo) setReserveHeadroom(backendID domain.BackendID, roomID domain.RoomID, headroom int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.reserveHeadroom[backendID] == nil {
		b.reserveHeadroom[backendID] = make(map[domain.RoomID]int)
	}
	b.reserveHeadroom[backendID][roomID] = headroom
}

func (b *fakeBackendRepo) RoomReserveHeadroom(ctx context.Context, backendID domain.BackendID, excludeRoomID domain.RoomID) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for roomID, headroom := range b.reserveHeadroom[backendID] {
		if roomID == excludeRoomID {
			continue
		}
		total += headroom
	}
	return total, nil
}

// fakeStreamRepo is an in-memory StreamRepository.
type fakeStreamRepo struct {
	mu      sync.Mutex
	streams map[domain.RTCID]*domain.JanusRtcStream
}

func newFakeStreamRepo() *fakeStreamRepo {
	return &fakeStreamRepo{streams: make(map[domain.RTCID]*domain.JanusRtcStream)}
}

func (s *fakeStreamRepo) Create(ctx context.Context, stream *domain.JanusRtcStream) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *stream
	s.streams[stream.RTCID] = &cp
	return nil
}

func (s *fakeStreamRepo) GetLiveByRTC(ctx context.Context, rtcID domain.RTCID) (*domain.JanusRtcStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stream, ok := s.streams[rtcID]
	if !ok || !stream.Live() {
		return nil, nil
	}
	cp := *stream
	return &cp, nil
}

func (s *fakeStreamRepo) Update(ctx context.Context, stream *domain.JanusRtcStream) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *stream
	s.streams[stream.RTCID] = &cp
	return nil
}

func (s *fakeStreamRepo) ListByRoom(ctx context.Context, roomID domain.RoomID, rtcID *domain.RTCID, window *domain.TimeRange, offset, limit int) ([]*domain.JanusRtcStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.JanusRtcStream
	for _, stream := range s.streams {
		cp := *stream
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeStreamRepo) ListLiveByBackend(ctx context.Context, backendID domain.BackendID) ([]*domain.JanusRtcStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.JanusRtcStream
	for _, stream := range s.streams {
		if stream.BackendID == backendID && stream.Live() {
			cp := *stream
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakeRecordingRepo is an in-memory RecordingRepository.
type fakeRecordingRepo struct {
	mu    sync.Mutex
	byRTC map[domain.RTCID]*domain.Recording
}

func newFakeRecordingRepo() *fakeRecordingRepo {
	return &fakeRecordingRepo{byRTC: make(map[domain.RTCID]*domain.Recording)}
}

func (r *fakeRecordingRepo) Upsert(ctx context.Context, rec *domain.Recording) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.byRTC[rec.RTCID] = &cp
	return nil
}

func (r *fakeRecordingRepo) Get(ctx context.Context, rtcID domain.RTCID) (*domain.Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byRTC[rtcID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// fakeRecordingStorage is a scriptable ports.RecordingStorage.
type fakeRecordingStorage struct {
	exists bool
	err    error
}

func (s *fakeRecordingStorage) ObjectsExist(ctx context.Context, uris []string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.exists, nil
}

// fakeEngine is a scriptable ports.TransactionEngine.
type fakeEngine struct {
	mu        sync.Mutex
	responses []*ports.BackendResponse
	errs      []error
	calls     int
	lastKind  ports.BackendRequestKind
}

func (e *fakeEngine) Send(ctx context.Context, backendID domain.BackendID, kind ports.BackendRequestKind, body map[string]any) (*ports.BackendResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastKind = kind
	idx := e.calls
	e.calls++
	if idx < len(e.errs) && e.errs[idx] != nil {
		return nil, e.errs[idx]
	}
	if idx < len(e.responses) {
		return e.responses[idx], nil
	}
	return &ports.BackendResponse{OK: true, Payload: map[string]any{"handle_id": float64(1)}}, nil
}

func (e *fakeEngine) Demultiplex(resp *ports.BackendResponse) {}
func (e *fakeEngine) NotifyBackendLost(backendID domain.BackendID) {}

// fakeBalancer picks backends off a fixed script, capturing the room/intent
// it was invoked with.
type fakeBalancer struct {
	backend *domain.JanusBackend
	err     error
	calls   []domain.Intent
}

func (b *fakeBalancer) Choose(ctx context.Context, room *domain.Room, intent domain.Intent) (*domain.JanusBackend, error) {
	b.calls = append(b.calls, intent)
	if b.err != nil {
		return nil, b.err
	}
	return b.backend, nil
}

func mustAgentID(label string) domain.AgentID {
	return domain.AgentID{Label: label, Audience: "test"}
}

// fakeGroupRepo is an in-memory GroupRepository, one partition per room.
type fakeGroupRepo struct {
	mu     sync.Mutex
	groups map[domain.RoomID][]domain.GroupAgent
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{groups: make(map[domain.RoomID][]domain.GroupAgent)}
}

func (g *fakeGroupRepo) Replace(ctx context.Context, roomID domain.RoomID, groups []domain.GroupAgent) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := make([]domain.GroupAgent, len(groups))
	copy(cp, groups)
	g.groups[roomID] = cp
	return nil
}

func (g *fakeGroupRepo) List(ctx context.Context, roomID domain.RoomID, withinGroup *int) ([]domain.GroupAgent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []domain.GroupAgent
	for _, ga := range g.groups[roomID] {
		if withinGroup != nil && ga.Number != *withinGroup {
			continue
		}
		out = append(out, ga)
	}
	return out, nil
}

func (g *fakeGroupRepo) GroupOf(ctx context.Context, roomID domain.RoomID, agentID domain.AgentID) (int, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, ga := range g.groups[roomID] {
		if ga.AgentID == agentID {
			return ga.Number, true, nil
		}
	}
	return 0, false, nil
}

// fakeReaderConfigRepo is an in-memory ReaderConfigRepository keyed by
// (rtc, reader agent).
type fakeReaderConfigRepo struct {
	mu      sync.Mutex
	configs map[[2]string]*domain.RtcReaderConfig
	// rtcs backs ListByRoom's rtc_id -> room_id join, mirroring the real
	// repository's join against the rtcs table.
	rtcs *fakeRTCRepo
}

func newFakeReaderConfigRepo(rtcs *fakeRTCRepo) *fakeReaderConfigRepo {
	return &fakeReaderConfigRepo{configs: make(map[[2]string]*domain.RtcReaderConfig), rtcs: rtcs}
}

func readerConfigKey(rtcID domain.RTCID, readerID domain.AgentID) [2]string {
	return [2]string{rtcID.String(), readerID.String()}
}

func (r *fakeReaderConfigRepo) Get(ctx context.Context, rtcID domain.RTCID, readerAgentID domain.AgentID) (*domain.RtcReaderConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[readerConfigKey(rtcID, readerAgentID)]
	if !ok {
		return nil, nil
	}
	cp := *cfg
	return &cp, nil
}

func (r *fakeReaderConfigRepo) Upsert(ctx context.Context, cfg *domain.RtcReaderConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *cfg
	r.configs[readerConfigKey(cfg.RTCID, cfg.ReaderAgentID)] = &cp
	return nil
}

func (r *fakeReaderConfigRepo) ListByRoomAndAgent(ctx context.Context, roomID domain.RoomID, readerAgentID domain.AgentID) ([]*domain.RtcReaderConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.RtcReaderConfig
	for _, cfg := range r.configs {
		if cfg.ReaderAgentID != readerAgentID {
			continue
		}
		if r.rtcs != nil {
			rtc, _ := r.rtcs.Get(ctx, cfg.RTCID)
			if rtc == nil || rtc.RoomID != roomID {
				continue
			}
		}
		cp := *cfg
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeReaderConfigRepo) ListByRoom(ctx context.Context, roomID domain.RoomID) ([]*domain.RtcReaderConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.RtcReaderConfig
	for _, cfg := range r.configs {
		if r.rtcs != nil {
			rtc, _ := r.rtcs.Get(ctx, cfg.RTCID)
			if rtc == nil || rtc.RoomID != roomID {
				continue
			}
		}
		cp := *cfg
		out = append(out, &cp)
	}
	return out, nil
}
