package services

import (
	"context"
	"time"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
	"conference/pkg/cache"
)

// rtcCacheTTL bounds how stale a cached RTC.Read result may be; long
// enough to absorb the read bursts a classroom's worth of subscribers
// produces against the same rtc id.
const rtcCacheTTL = 2 * time.Second

// rtcService implements C4's rtc.create/list/read and rtc.connect, the
// latter driving the balancer (C2) and the backend transaction engine (C3)
// to attach a handle before recording the AgentConnection and, for a
// publisher, opening a JanusRtcStream. Grounded on the teacher's
// mesh_service.go peer-to-backend attachment flow.
type rtcService struct {
	rooms    ports.RoomRepository
	rtcs     ports.RTCRepository
	agents   ports.AgentRepository
	conns    ports.AgentConnectionRepository
	streams  ports.StreamRepository
	engine   ports.TransactionEngine
	balancer ports.Balancer
	notifier ports.Notifier
	uow      ports.UnitOfWork
	cache    *cache.Cache
	now      func() time.Time
}

func NewRTCService(
	rooms ports.RoomRepository,
	rtcs ports.RTCRepository,
	agents ports.AgentRepository,
	conns ports.AgentConnectionRepository,
	streams ports.StreamRepository,
	engine ports.TransactionEngine,
	balancer ports.Balancer,
	notifier ports.Notifier,
	uow ports.UnitOfWork,
) ports.RTCService {
	return &rtcService{
		rooms: rooms, rtcs: rtcs, agents: agents, conns: conns, streams: streams,
		engine: engine, balancer: balancer, notifier: notifier, uow: uow,
		cache: cache.NewCache(rtcCacheTTL),
		now:   time.Now,
	}
}

// Create enforces the room's RTCSharingPolicy (spec §3): none forbids new
// RTCs past the room's first (whoever created it), shared admits any number, owned admits at
// most one RTC per creating agent.
func (s *rtcService) Create(ctx context.Context, by domain.AgentID, roomID domain.RoomID) (*domain.RTC, error) {
	var created *domain.RTC
	err := s.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		room, err := s.rooms.GetForUpdate(ctx, roomID)
		if err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load room", err)
		}
		if room == nil {
			return domain.NewError(domain.ErrRoomNotFound, "room does not exist")
		}
		if room.State(s.now()) == domain.RoomClosed {
			return domain.NewError(domain.ErrRoomClosed, "room is closed")
		}

		switch room.RTCSharingPolicy {
		case domain.PolicyNone:
			count, err := s.rtcs.CountByRoom(ctx, roomID)
			if err != nil {
				return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to count room rtcs", err)
			}
			if count > 0 {
				return domain.NewError(domain.ErrAccessDenied, "room's sharing policy admits a single rtc")
			}
		case domain.PolicyOwned:
			count, err := s.rtcs.CountByRoomAndCreator(ctx, roomID, by)
			if err != nil {
				return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to count agent's rtcs", err)
			}
			if count > 0 {
				return domain.NewError(domain.ErrAccessDenied, "agent already owns an rtc in this room")
			}
		case domain.PolicyShared:
			// unrestricted
		}

		rtc := &domain.RTC{
			ID:        domain.NewRTCID(),
			RoomID:    roomID,
			CreatedBy: by,
			CreatedAt: s.now(),
		}
		if err := s.rtcs.Create(ctx, rtc); err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to create rtc", err)
		}
		if err := s.notifier.Enqueue(ctx, domain.EventRTCCreate, domain.SinkRoomTopic,
			"rtc", rtc.ID.String(), domain.RTCEvent{RTC: rtc}); err != nil {
			return err
		}
		created = rtc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *rtcService) List(ctx context.Context, roomID domain.RoomID) ([]*domain.RTC, error) {
	rtcs, err := s.rtcs.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to list room rtcs", err)
	}
	return rtcs, nil
}

func (s *rtcService) Read(ctx context.Context, id domain.RTCID) (*domain.RTC, error) {
	key := "rtc:" + id.String()
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*domain.RTC), nil
	}

	rtc, err := s.rtcs.Get(ctx, id)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load rtc", err)
	}
	if rtc == nil {
		return nil, domain.NewError(domain.ErrRTCNotFound, "rtc does not exist")
	}
	s.cache.Set(key, rtc)
	return rtc, nil
}

// Connect picks a backend via the balancer, attaches a handle on it, and
// records the resulting AgentConnection. A write intent additionally opens
// a JanusRtcStream and, for a room without a pinned backend yet, pins the
// room to the chosen backend so every subsequent subscriber lands on the
// same instance (spec §4.2.3 "subscribers are pinned to the publisher's
// backend").
func (s *rtcService) Connect(ctx context.Context, agentID domain.AgentID, rtcID domain.RTCID, intent domain.Intent, label string, sdpKind ports.SDPKind) (*ports.ConnectResult, error) {
	rtc, err := s.rtcs.Get(ctx, rtcID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load rtc", err)
	}
	if rtc == nil {
		return nil, domain.NewError(domain.ErrRTCNotFound, "rtc does not exist")
	}
	room, err := s.rooms.Get(ctx, rtc.RoomID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load room", err)
	}
	if room == nil {
		return nil, domain.NewError(domain.ErrRoomNotFound, "room does not exist")
	}
	if room.State(s.now()) == domain.RoomClosed {
		return nil, domain.NewError(domain.ErrRoomClosed, "room is closed")
	}

	agent, err := s.agents.Get(ctx, room.ID, agentID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load agent", err)
	}
	if agent == nil || agent.Status != domain.AgentReady {
		return nil, domain.NewError(domain.ErrAgentNotEnteredTheRoom, "agent has not entered the room")
	}

	if err := validateSDPIntent(intent, sdpKind); err != nil {
		return nil, err
	}

	chosenBackend, err := s.balancer.Choose(ctx, room, intent)
	if err != nil {
		return nil, err
	}

	resp, err := s.engine.Send(ctx, chosenBackend.ID, ports.ReqHandleAttach, map[string]any{
		"rtc_id":   rtcID.String(),
		"agent_id": agentID.String(),
		"intent":   string(intent),
	})
	if err != nil {
		return nil, err
	}
	handleID := extractHandleID(resp.Payload)

	conn := &domain.AgentConnection{
		AgentID:   agentID,
		RTCID:     rtcID,
		HandleID:  handleID,
		BackendID: chosenBackend.ID,
		Intent:    intent,
		Status:    domain.ConnectionInProgress,
		CreatedAt: s.now(),
	}

	err = s.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.conns.Create(ctx, conn); err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to record agent connection", err)
		}

		if intent == domain.IntentWrite {
			room.BoundUnbounded(s.now())
			if room.BackendID == nil {
				room.BackendID = &chosenBackend.ID
				if err := s.rooms.Update(ctx, room); err != nil {
					return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to pin room backend", err)
				}
			}

			stream := &domain.JanusRtcStream{
				ID:        domain.NewRTCID(),
				RTCID:     rtcID,
				BackendID: chosenBackend.ID,
				HandleID:  handleID,
				Label:     label,
				SentBy:    agentID,
				Time:      domain.TimeRange{Lower: s.now()},
				CreatedAt: s.now(),
			}
			if err := s.streams.Create(ctx, stream); err != nil {
				return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to open rtc stream", err)
			}
			if err := s.notifier.Enqueue(ctx, domain.EventRTCStreamUpdate, domain.SinkRoomTopic,
				"rtc_stream", rtcID.String(), domain.RTCStreamEvent{Stream: stream}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ports.ConnectResult{Connection: conn, Backend: chosenBackend}, nil
}

// validateSDPIntent enforces the one direction/intent mismatch spec §8
// names explicitly: an offer that can't send must not be used to connect a
// publisher, and one that can't receive must not be used to connect a
// subscriber. SDPUnknown offers (direction not classifiable, or omitted)
// are let through — this service only classifies direction, per the
// Non-goal excluding fuller SDP parsing, so an unclassifiable offer isn't
// treated as a rejection.
func validateSDPIntent(intent domain.Intent, sdpKind ports.SDPKind) error {
	if sdpKind == ports.SDPUnknown {
		return nil
	}
	switch intent {
	case domain.IntentWrite:
		if sdpKind == ports.SDPRecvOnly {
			return domain.NewError(domain.ErrInvalidSDPType, "cannot connect with intent=write using a recvonly offer")
		}
	case domain.IntentRead:
		if sdpKind == ports.SDPSendOnly {
			return domain.NewError(domain.ErrInvalidSDPType, "cannot connect with intent=read using a sendonly offer")
		}
	}
	return nil
}

func extractHandleID(payload map[string]any) domain.HandleID {
	if payload == nil {
		return 0
	}
	switch v := payload["handle_id"].(type) {
	case float64:
		return domain.HandleID(v)
	case int64:
		return domain.HandleID(v)
	case int:
		return domain.HandleID(v)
	}
	return 0
}
