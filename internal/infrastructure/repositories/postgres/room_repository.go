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

type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	return wrapQueryErr(dbFrom(ctx, r.db).Create(roomFromDomain(room)).Error, "failed to insert room")
}

func (r *RoomRepository) Get(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	var m roomModel
	err := dbFrom(ctx, r.db).First(&m, "id = ?", uuid.UUID(id)).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, wrapQueryErr(err, "failed to load room")
	}
	return m.toDomain(), nil
}

// GetForUpdate locks the room row for the rest of the open transaction
// (spec §5 "Writes to a single Room are serialized").
func (r *RoomRepository) GetForUpdate(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	var m roomModel
	err := dbFrom(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "id = ?", uuid.UUID(id)).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, wrapQueryErr(err, "failed to lock room")
	}
	return m.toDomain(), nil
}

func (r *RoomRepository) Update(ctx context.Context, room *domain.Room) error {
	return wrapQueryErr(dbFrom(ctx, r.db).Save(roomFromDomain(room)).Error, "failed to update room")
}

// ListClosedBefore returns rooms whose upper time bound or explicit close
// has passed `before`, for vacuum to finalize (spec §4.5).
func (r *RoomRepository) ListClosedBefore(ctx context.Context, before time.Time, limit int) ([]*domain.Room, error) {
	var rows []roomModel
	err := dbFrom(ctx, r.db).
		Where("time_upper IS NOT NULL AND time_upper <= ?", before).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrapQueryErr(err, "failed to list overdue rooms")
	}
	rooms := make([]*domain.Room, 0, len(rows))
	for i := range rows {
		rooms = append(rooms, rows[i].toDomain())
	}
	return rooms, nil
}

var _ ports.RoomRepository = (*RoomRepository)(nil)
