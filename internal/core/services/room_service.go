package services

import (
	"context"
	"time"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
	"conference/internal/infrastructure/locking"
	"conference/pkg/validation"
)

// roomService implements C4's room.* operations. Grounded on the teacher's
// stream_service.go (owner-checked CRUD over a repository plus a notify
// side effect), generalized to room's richer time-bound lifecycle.
//
// roomLock guards Update/Close/Enter/Leave's read-modify-write against a
// second instance racing the same room between GetForUpdate and Update;
// Postgres's row lock already serializes same-transaction contention, but
// roomLock additionally serializes the notifier.Enqueue that happens
// inside that same transaction, keeping the order clients observe stable.
type roomService struct {
	rooms    ports.RoomRepository
	agents   ports.AgentRepository
	rtcs     ports.RTCRepository
	orphans  ports.OrphanedRoomRepository
	notifier ports.Notifier
	uow      ports.UnitOfWork
	roomLock locking.Locker
	now      func() time.Time
}

func NewRoomService(
	rooms ports.RoomRepository,
	agents ports.AgentRepository,
	rtcs ports.RTCRepository,
	orphans ports.OrphanedRoomRepository,
	notifier ports.Notifier,
	uow ports.UnitOfWork,
	roomLock locking.Locker,
) ports.RoomService {
	return &roomService{
		rooms:    rooms,
		agents:   agents,
		rtcs:     rtcs,
		orphans:  orphans,
		notifier: notifier,
		uow:      uow,
		roomLock: roomLock,
		now:      time.Now,
	}
}

func (s *roomService) Create(ctx context.Context, by domain.AgentID, in ports.RoomCreateInput) (*domain.Room, error) {
	if err := validation.ValidateTags(in.Tags); err != nil {
		return nil, domain.NewError(domain.ErrMessageParsingFailed, err.Error())
	}

	room := &domain.Room{
		ID:               domain.NewRoomID(),
		ClassroomID:      in.ClassroomID,
		Audience:         in.Audience,
		Time:             in.Time,
		CreatedAt:        s.now(),
		RTCSharingPolicy: in.RTCSharingPolicy,
		Reserve:          in.Reserve,
		Tags:             in.Tags,
		Host:             &by,
		Infinite:         in.Time.Upper == nil,
	}
	if err := room.ValidateTime(); err != nil {
		return nil, err
	}

	var created *domain.Room
	err := s.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.rooms.Create(ctx, room); err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to create room", err)
		}
		if err := s.notifier.Enqueue(ctx, domain.EventRoomCreate, domain.SinkAudienceTopic,
			"room", room.ID.String(), domain.RoomEvent{Room: room}); err != nil {
			return err
		}
		created = room
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *roomService) Read(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	room, err := s.rooms.Get(ctx, id)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load room", err)
	}
	if room == nil {
		return nil, domain.NewError(domain.ErrRoomNotFound, "room does not exist")
	}
	return room, nil
}

// Update applies a partial time/reserve/tags change, rejecting an illegal
// close-time narrowing (spec §4.1) and requiring the caller to be the
// room's host.
func (s *roomService) Update(ctx context.Context, by domain.AgentID, id domain.RoomID, in ports.RoomUpdateInput) (*domain.Room, error) {
	var updated *domain.Room
	err := s.roomLock.WithLock(ctx, id, func(ctx context.Context) error {
		return s.uow.WithinTransaction(ctx, func(ctx context.Context) error {
			room, err := s.rooms.GetForUpdate(ctx, id)
			if err != nil {
				return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load room for update", err)
			}
			if room == nil {
				return domain.NewError(domain.ErrRoomNotFound, "room does not exist")
			}
			if room.Host == nil || *room.Host != by {
				return domain.NewError(domain.ErrAccessDenied, "only the room host may update it")
			}
			if room.State(s.now()) == domain.RoomClosed {
				return domain.NewError(domain.ErrRoomClosed, "room is already closed")
			}

			if in.Time != nil {
				if !room.CanNarrowCloseTo(in.Time.Upper, s.now()) {
					return domain.NewError(domain.ErrMessageParsingFailed, "cannot widen or reintroduce an open-ended close time")
				}
				room.Time = *in.Time
				room.Infinite = in.Time.Upper == nil
				if err := room.ValidateTime(); err != nil {
					return err
				}
			}
			if in.Reserve != nil {
				room.Reserve = in.Reserve
			}
			if in.Tags != nil {
				if err := validation.ValidateTags(in.Tags); err != nil {
					return domain.NewError(domain.ErrMessageParsingFailed, err.Error())
				}
				room.Tags = in.Tags
			}

			// A narrowing that moves upper(time) into the present/past closes
			// the room as a side effect (spec §4.1 "closing-in-the-past
			// update emits room.close").
			closingNow := room.ClosedBy == nil && room.State(s.now()) == domain.RoomClosed
			if closingNow {
				room.ClosedBy = &by
			}

			if err := s.rooms.Update(ctx, room); err != nil {
				return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to persist room update", err)
			}
			if err := s.notifier.Enqueue(ctx, domain.EventRoomUpdate, domain.SinkAudienceTopic,
				"room", room.ID.String(), domain.RoomEvent{Room: room}); err != nil {
				return err
			}
			if closingNow {
				if err := s.orphans.Delete(ctx, room.ID); err != nil {
					return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to clear orphaned-room marker", err)
				}
				if err := s.notifier.Enqueue(ctx, domain.EventRoomClose, domain.SinkAudienceTopic,
					"room", room.ID.String(), domain.RoomEvent{Room: room}); err != nil {
					return err
				}
			}
			updated = room
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *roomService) Close(ctx context.Context, by domain.AgentID, id domain.RoomID) (*domain.Room, error) {
	var closed *domain.Room
	err := s.roomLock.WithLock(ctx, id, func(ctx context.Context) error {
		return s.uow.WithinTransaction(ctx, func(ctx context.Context) error {
			room, err := s.rooms.GetForUpdate(ctx, id)
			if err != nil {
				return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load room for close", err)
			}
			if room == nil {
				return domain.NewError(domain.ErrRoomNotFound, "room does not exist")
			}
			if room.ClosedBy != nil {
				closed = room
				return nil
			}
			if room.Host == nil || *room.Host != by {
				return domain.NewError(domain.ErrAccessDenied, "only the room host may close it")
			}
			room.ClosedBy = &by
			now := s.now()
			room.Time = room.Time.Bound(now)

			if err := s.rooms.Update(ctx, room); err != nil {
				return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to persist room close", err)
			}
			if err := s.orphans.Delete(ctx, room.ID); err != nil {
				return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to clear orphaned-room marker", err)
			}
			if err := s.notifier.Enqueue(ctx, domain.EventRoomClose, domain.SinkAudienceTopic,
				"room", room.ID.String(), domain.RoomEvent{Room: room}); err != nil {
				return err
			}
			closed = room
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

// Enter registers an agent's intent to join a room, in_progress until
// ConfirmEntered lands (spec §3 Agent lifecycle). The first agent to enter
// an orphaned room clears its marker.
func (s *roomService) Enter(ctx context.Context, agentID domain.AgentID, roomID domain.RoomID) error {
	return s.roomLock.WithLock(ctx, roomID, func(ctx context.Context) error {
		return s.uow.WithinTransaction(ctx, func(ctx context.Context) error {
			room, err := s.rooms.Get(ctx, roomID)
			if err != nil {
				return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load room", err)
			}
			if room == nil {
				return domain.NewError(domain.ErrRoomNotFound, "room does not exist")
			}
			if room.State(s.now()) == domain.RoomClosed {
				return domain.NewError(domain.ErrRoomClosed, "room is closed")
			}

			agent := &domain.Agent{
				AgentID:   agentID,
				RoomID:    roomID,
				Status:    domain.AgentInProgress,
				CreatedAt: s.now(),
			}
			if err := s.agents.Upsert(ctx, agent); err != nil {
				return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to record room entry", err)
			}
			if err := s.orphans.Delete(ctx, roomID); err != nil {
				return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to clear orphaned-room marker", err)
			}

			if room.RTCSharingPolicy == domain.PolicyOwned {
				if err := s.ensureOwnedRTC(ctx, agentID, roomID); err != nil {
					return err
				}
			}

			return s.notifier.Enqueue(ctx, domain.EventRoomEnter, domain.SinkAudienceTopic,
				"room", roomID.String(), domain.RoomEvent{Room: room})
		})
	})
}

// ensureOwnedRTC gives an entering agent their RTC in an owned-policy room
// without requiring a separate rtc.create call (spec §4.1 "for owned rooms,
// implicitly creates the caller's RTC if absent"). Mirrors rtcService.
// Create's owned-policy branch rather than depending on rtcService itself,
// since Enter already holds the room lock and transaction Create would
// otherwise re-acquire.
func (s *roomService) ensureOwnedRTC(ctx context.Context, agentID domain.AgentID, roomID domain.RoomID) error {
	count, err := s.rtcs.CountByRoomAndCreator(ctx, roomID, agentID)
	if err != nil {
		return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to count agent's rtcs", err)
	}
	if count > 0 {
		return nil
	}

	rtc := &domain.RTC{
		ID:        domain.NewRTCID(),
		RoomID:    roomID,
		CreatedBy: agentID,
		CreatedAt: s.now(),
	}
	if err := s.rtcs.Create(ctx, rtc); err != nil {
		return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to create owned rtc on entry", err)
	}
	return s.notifier.Enqueue(ctx, domain.EventRTCCreate, domain.SinkRoomTopic,
		"rtc", rtc.ID.String(), domain.RTCEvent{RTC: rtc})
}

func (s *roomService) ConfirmEntered(ctx context.Context, agentID domain.AgentID, roomID domain.RoomID) error {
	agent, err := s.agents.Get(ctx, roomID, agentID)
	if err != nil {
		return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load agent", err)
	}
	if agent == nil {
		return domain.NewError(domain.ErrAgentNotEnteredTheRoom, "agent has not entered the room")
	}
	agent.Status = domain.AgentReady
	if err := s.agents.Upsert(ctx, agent); err != nil {
		return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to confirm room entry", err)
	}
	return nil
}

// Leave removes an agent from a room. If it was the host and the room is
// not closed, the room is marked orphaned (whether or not other agents
// remain) so vacuum can force-close it after the configured timeout (spec
// §4.1 Room lifecycle, §6 OrphanedRoom).
func (s *roomService) Leave(ctx context.Context, agentID domain.AgentID, roomID domain.RoomID) error {
	return s.roomLock.WithLock(ctx, roomID, func(ctx context.Context) error {
		return s.uow.WithinTransaction(ctx, func(ctx context.Context) error {
			room, err := s.rooms.GetForUpdate(ctx, roomID)
			if err != nil {
				return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load room", err)
			}
			if room == nil {
				return domain.NewError(domain.ErrRoomNotFound, "room does not exist")
			}
			if err := s.agents.Delete(ctx, roomID, agentID); err != nil {
				return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to record room departure", err)
			}

			if room.Host != nil && *room.Host == agentID && room.ClosedBy == nil {
				if err := s.orphans.Upsert(ctx, &domain.OrphanedRoom{RoomID: roomID, CreatedAt: s.now()}); err != nil {
					return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to mark room orphaned", err)
				}
			}

			return s.notifier.Enqueue(ctx, domain.EventRoomLeave, domain.SinkAudienceTopic,
				"room", roomID.String(), domain.RoomEvent{Room: room})
		})
	})
}

func (s *roomService) ListAgents(ctx context.Context, roomID domain.RoomID, offset, limit int) ([]*domain.Agent, error) {
	agents, err := s.agents.List(ctx, roomID, offset, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to list room agents", err)
	}
	return agents, nil
}
