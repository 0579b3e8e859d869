package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

type OrphanedRoomRepository struct {
	db *gorm.DB
}

func NewOrphanedRoomRepository(db *gorm.DB) *OrphanedRoomRepository {
	return &OrphanedRoomRepository{db: db}
}

func (r *OrphanedRoomRepository) Upsert(ctx context.Context, o *domain.OrphanedRoom) error {
	m := &orphanedRoomModel{RoomID: uuid.UUID(o.RoomID), CreatedAt: o.CreatedAt}
	err := dbFrom(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}},
		DoNothing: true,
	}).Create(m).Error
	return wrapQueryErr(err, "failed to mark room orphaned")
}

func (r *OrphanedRoomRepository) Delete(ctx context.Context, roomID domain.RoomID) error {
	err := dbFrom(ctx, r.db).Delete(&orphanedRoomModel{}, "room_id = ?", uuid.UUID(roomID)).Error
	return wrapQueryErr(err, "failed to clear orphaned room")
}

func (r *OrphanedRoomRepository) ListOlderThan(ctx context.Context, timeout time.Duration, now time.Time) ([]*domain.OrphanedRoom, error) {
	var rows []orphanedRoomModel
	err := dbFrom(ctx, r.db).Where("created_at <= ?", now.Add(-timeout)).Find(&rows).Error
	if err != nil {
		return nil, wrapQueryErr(err, "failed to list orphaned rooms")
	}
	orphans := make([]*domain.OrphanedRoom, 0, len(rows))
	for i := range rows {
		orphans = append(orphans, rows[i].toDomain())
	}
	return orphans, nil
}

var _ ports.OrphanedRoomRepository = (*OrphanedRoomRepository)(nil)
