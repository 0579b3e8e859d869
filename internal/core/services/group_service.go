package services

import (
	"context"
	"time"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

// groupService implements C4's group.update/list, replacing a room's whole
// group partition and notifying the result (spec §4.6, §3 GroupAgent). A
// partition replace also raises a VideoGroupIntent onto the event bus so the
// video-group orchestrator can recompute reader configs against the new
// partition and push them to the room's backend asynchronously (spec §4.4).
type groupService struct {
	rooms    ports.RoomRepository
	groups   ports.GroupRepository
	notifier ports.Notifier
	uow      ports.UnitOfWork
	now      func() time.Time
}

func NewGroupService(rooms ports.RoomRepository, groups ports.GroupRepository, notifier ports.Notifier, uow ports.UnitOfWork) ports.GroupService {
	return &groupService{rooms: rooms, groups: groups, notifier: notifier, uow: uow, now: time.Now}
}

func (s *groupService) Update(ctx context.Context, by domain.AgentID, roomID domain.RoomID, groups []domain.GroupAgent) error {
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load room", err)
	}
	if room == nil {
		return domain.NewError(domain.ErrRoomNotFound, "room does not exist")
	}
	if room.Host == nil || *room.Host != by {
		return domain.NewError(domain.ErrAccessDenied, "only the room host may update groups")
	}

	return s.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.groups.List(ctx, roomID, nil)
		if err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to load current room groups", err)
		}
		if err := s.groups.Replace(ctx, roomID, groups); err != nil {
			return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to replace room groups", err)
		}
		if err := s.notifier.Enqueue(ctx, domain.EventGroupUpdate, domain.SinkRoomTopic,
			"room", roomID.String(), domain.GroupUpdateEvent{RoomID: roomID, Groups: groups}); err != nil {
			return err
		}

		op := videoGroupOperation(existing, groups)
		return s.notifier.Enqueue(ctx, op, domain.SinkEventBus,
			"video_group", roomID.String(), domain.VideoGroupIntent{RoomID: roomID, Operation: op, CreatedAt: s.now()})
	})
}

// videoGroupOperation classifies a group-partition replace into the
// create/update/delete taxonomy the video-group intent consumer expects
// (spec §4.4): a partition appearing where none existed is a create, one
// disappearing entirely is a delete, anything else is an update.
func videoGroupOperation(existing, next []domain.GroupAgent) domain.EventKind {
	switch {
	case len(existing) == 0 && len(next) > 0:
		return domain.EventVideoGroupCreate
	case len(existing) > 0 && len(next) == 0:
		return domain.EventVideoGroupDelete
	default:
		return domain.EventVideoGroupUpdate
	}
}

func (s *groupService) List(ctx context.Context, roomID domain.RoomID, withinGroup *int) ([]domain.GroupAgent, error) {
	groups, err := s.groups.List(ctx, roomID, withinGroup)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to list room groups", err)
	}
	return groups, nil
}
