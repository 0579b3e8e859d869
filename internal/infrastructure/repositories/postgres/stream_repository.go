package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

type StreamRepository struct {
	db *gorm.DB
}

func NewStreamRepository(db *gorm.DB) *StreamRepository {
	return &StreamRepository{db: db}
}

func (r *StreamRepository) Create(ctx context.Context, stream *domain.JanusRtcStream) error {
	return wrapQueryErr(dbFrom(ctx, r.db).Create(streamFromDomain(stream)).Error, "failed to insert rtc stream")
}

func (r *StreamRepository) GetLiveByRTC(ctx context.Context, rtcID domain.RTCID) (*domain.JanusRtcStream, error) {
	var m streamModel
	err := dbFrom(ctx, r.db).Where("rtc_id = ? AND time_upper IS NULL", uuid.UUID(rtcID)).
		Order("created_at DESC").First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, wrapQueryErr(err, "failed to load live rtc stream")
	}
	return m.toDomain(), nil
}

func (r *StreamRepository) Update(ctx context.Context, stream *domain.JanusRtcStream) error {
	return wrapQueryErr(dbFrom(ctx, r.db).Save(streamFromDomain(stream)).Error, "failed to update rtc stream")
}

func (r *StreamRepository) ListByRoom(ctx context.Context, roomID domain.RoomID, rtcID *domain.RTCID, window *domain.TimeRange, offset, limit int) ([]*domain.JanusRtcStream, error) {
	q := dbFrom(ctx, r.db).Table("janus_rtc_streams AS s").
		Joins("JOIN rtcs AS rt ON rt.id = s.rtc_id").
		Where("rt.room_id = ?", uuid.UUID(roomID)).
		Select("s.*")
	if rtcID != nil {
		q = q.Where("s.rtc_id = ?", uuid.UUID(*rtcID))
	}
	if window != nil {
		q = q.Where("s.time_lower < ?", window.Upper)
		if window.Upper != nil {
			q = q.Where("s.time_upper IS NULL OR s.time_upper > ?", window.Lower)
		}
	}
	q = q.Order("s.created_at").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []streamModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, wrapQueryErr(err, "failed to list room rtc streams")
	}
	streams := make([]*domain.JanusRtcStream, 0, len(rows))
	for i := range rows {
		streams = append(streams, rows[i].toDomain())
	}
	return streams, nil
}

func (r *StreamRepository) ListLiveByBackend(ctx context.Context, backendID domain.BackendID) ([]*domain.JanusRtcStream, error) {
	var rows []streamModel
	err := dbFrom(ctx, r.db).Where("backend_label = ? AND backend_audience = ? AND time_upper IS NULL", backendID.Label, backendID.Audience).Find(&rows).Error
	if err != nil {
		return nil, wrapQueryErr(err, "failed to list backend's live streams")
	}
	streams := make([]*domain.JanusRtcStream, 0, len(rows))
	for i := range rows {
		streams = append(streams, rows[i].toDomain())
	}
	return streams, nil
}

var _ ports.StreamRepository = (*StreamRepository)(nil)
