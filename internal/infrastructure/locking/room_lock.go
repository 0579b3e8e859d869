// Package locking adapts pkg/distributed's Redis lock manager to guard
// room-mutating operations across instances (C4's Update/Close/Enter/Leave
// all read-modify-write a room row; a second instance racing the same
// room between the read and the write would otherwise silently lose an
// update). Grounded on the teacher's pkg/distributed/lock.go LockManager,
// used here with one fixed prefix and a room id as the key.
package locking

import (
	"context"
	"time"

	"conference/internal/core/domain"
	"conference/pkg/distributed"

	"go.uber.org/zap"
)

const roomLockTTL = 5 * time.Second

// Locker guards a room's read-modify-write against a second instance
// racing the same room. Kept as an interface, rather than referencing
// *RoomLock directly, so callers can substitute a no-op or in-memory
// locker in tests without a live Redis.
type Locker interface {
	WithLock(ctx context.Context, roomID domain.RoomID, fn func(ctx context.Context) error) error
}

// RoomLock serializes concurrent mutations of a single room across all
// instances of this service.
type RoomLock struct {
	manager *distributed.LockManager
	logger  *zap.SugaredLogger
}

func NewRoomLock(manager *distributed.LockManager, logger *zap.SugaredLogger) *RoomLock {
	return &RoomLock{manager: manager, logger: logger}
}

// WithLock runs fn while holding roomID's lock, releasing it afterward
// regardless of fn's outcome.
func (l *RoomLock) WithLock(ctx context.Context, roomID domain.RoomID, fn func(ctx context.Context) error) error {
	lock := l.manager.AcquireLock(roomID.String(), roomLockTTL)
	if err := lock.LockWithTimeout(ctx, roomLockTTL); err != nil {
		return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to acquire room lock", err)
	}
	defer func() {
		if err := lock.Unlock(context.Background()); err != nil {
			l.logger.Warnw("room lock release failed", "room_id", roomID, "error", err)
		}
	}()
	return fn(ctx)
}
