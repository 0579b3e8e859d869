package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

type ReaderConfigRepository struct {
	db *gorm.DB
}

func NewReaderConfigRepository(db *gorm.DB) *ReaderConfigRepository {
	return &ReaderConfigRepository{db: db}
}

func (r *ReaderConfigRepository) Get(ctx context.Context, rtcID domain.RTCID, readerAgentID domain.AgentID) (*domain.RtcReaderConfig, error) {
	var m readerConfigModel
	err := dbFrom(ctx, r.db).First(&m, "rtc_id = ? AND reader_label = ? AND reader_audience = ?", uuid.UUID(rtcID), readerAgentID.Label, readerAgentID.Audience).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, wrapQueryErr(err, "failed to load reader config")
	}
	return m.toDomain(), nil
}

func (r *ReaderConfigRepository) Upsert(ctx context.Context, cfg *domain.RtcReaderConfig) error {
	return wrapQueryErr(dbFrom(ctx, r.db).Save(readerConfigFromDomain(cfg)).Error, "failed to upsert reader config")
}

func (r *ReaderConfigRepository) ListByRoomAndAgent(ctx context.Context, roomID domain.RoomID, readerAgentID domain.AgentID) ([]*domain.RtcReaderConfig, error) {
	var rows []readerConfigModel
	err := dbFrom(ctx, r.db).Table("rtc_reader_configs AS c").
		Joins("JOIN rtcs AS rt ON rt.id = c.rtc_id").
		Where("rt.room_id = ? AND c.reader_label = ? AND c.reader_audience = ?", uuid.UUID(roomID), readerAgentID.Label, readerAgentID.Audience).
		Select("c.*").
		Find(&rows).Error
	if err != nil {
		return nil, wrapQueryErr(err, "failed to list reader configs")
	}
	cfgs := make([]*domain.RtcReaderConfig, 0, len(rows))
	for i := range rows {
		cfgs = append(cfgs, rows[i].toDomain())
	}
	return cfgs, nil
}

func (r *ReaderConfigRepository) ListByRoom(ctx context.Context, roomID domain.RoomID) ([]*domain.RtcReaderConfig, error) {
	var rows []readerConfigModel
	err := dbFrom(ctx, r.db).Table("rtc_reader_configs AS c").
		Joins("JOIN rtcs AS rt ON rt.id = c.rtc_id").
		Where("rt.room_id = ?", uuid.UUID(roomID)).
		Select("c.*").
		Find(&rows).Error
	if err != nil {
		return nil, wrapQueryErr(err, "failed to list room reader configs")
	}
	cfgs := make([]*domain.RtcReaderConfig, 0, len(rows))
	for i := range rows {
		cfgs = append(cfgs, rows[i].toDomain())
	}
	return cfgs, nil
}

var _ ports.ReaderConfigRepository = (*ReaderConfigRepository)(nil)
