package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

type RTCRepository struct {
	db *gorm.DB
}

func NewRTCRepository(db *gorm.DB) *RTCRepository {
	return &RTCRepository{db: db}
}

func (r *RTCRepository) Create(ctx context.Context, rtc *domain.RTC) error {
	return wrapQueryErr(dbFrom(ctx, r.db).Create(rtcFromDomain(rtc)).Error, "failed to insert rtc")
}

func (r *RTCRepository) Get(ctx context.Context, id domain.RTCID) (*domain.RTC, error) {
	var m rtcModel
	err := dbFrom(ctx, r.db).First(&m, "id = ?", uuid.UUID(id)).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, wrapQueryErr(err, "failed to load rtc")
	}
	return m.toDomain(), nil
}

func (r *RTCRepository) ListByRoom(ctx context.Context, roomID domain.RoomID) ([]*domain.RTC, error) {
	var rows []rtcModel
	if err := dbFrom(ctx, r.db).Where("room_id = ?", uuid.UUID(roomID)).Find(&rows).Error; err != nil {
		return nil, wrapQueryErr(err, "failed to list room rtcs")
	}
	rtcs := make([]*domain.RTC, 0, len(rows))
	for i := range rows {
		rtcs = append(rtcs, rows[i].toDomain())
	}
	return rtcs, nil
}

func (r *RTCRepository) CountByRoomAndCreator(ctx context.Context, roomID domain.RoomID, creator domain.AgentID) (int, error) {
	var count int64
	err := dbFrom(ctx, r.db).Model(&rtcModel{}).
		Where("room_id = ? AND created_by_label = ? AND created_by_audience = ?", uuid.UUID(roomID), creator.Label, creator.Audience).
		Count(&count).Error
	return int(count), wrapQueryErr(err, "failed to count agent rtcs")
}

func (r *RTCRepository) CountByRoom(ctx context.Context, roomID domain.RoomID) (int, error) {
	var count int64
	err := dbFrom(ctx, r.db).Model(&rtcModel{}).Where("room_id = ?", uuid.UUID(roomID)).Count(&count).Error
	return int(count), wrapQueryErr(err, "failed to count room rtcs")
}

var _ ports.RTCRepository = (*RTCRepository)(nil)
