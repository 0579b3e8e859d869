package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

type WriterConfigRepository struct {
	db *gorm.DB
}

func NewWriterConfigRepository(db *gorm.DB) *WriterConfigRepository {
	return &WriterConfigRepository{db: db}
}

func (r *WriterConfigRepository) Get(ctx context.Context, rtcID domain.RTCID) (*domain.RtcWriterConfig, error) {
	var m writerConfigModel
	err := dbFrom(ctx, r.db).First(&m, "rtc_id = ?", uuid.UUID(rtcID)).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, wrapQueryErr(err, "failed to load writer config")
	}
	return m.toDomain(), nil
}

func (r *WriterConfigRepository) Upsert(ctx context.Context, cfg *domain.RtcWriterConfig) error {
	return wrapQueryErr(dbFrom(ctx, r.db).Save(writerConfigFromDomain(cfg)).Error, "failed to upsert writer config")
}

func (r *WriterConfigRepository) AppendSnapshot(ctx context.Context, snap *domain.WriterConfigSnapshot) error {
	return wrapQueryErr(dbFrom(ctx, r.db).Create(writerConfigSnapshotFromDomain(snap)).Error, "failed to append writer config snapshot")
}

func (r *WriterConfigRepository) ListSnapshots(ctx context.Context, rtcID domain.RTCID) ([]*domain.WriterConfigSnapshot, error) {
	var rows []writerConfigSnapshotModel
	if err := dbFrom(ctx, r.db).Where("rtc_id = ?", uuid.UUID(rtcID)).Order("created_at").Find(&rows).Error; err != nil {
		return nil, wrapQueryErr(err, "failed to list writer config snapshots")
	}
	snaps := make([]*domain.WriterConfigSnapshot, 0, len(rows))
	for i := range rows {
		snaps = append(snaps, rows[i].toDomain())
	}
	return snaps, nil
}

func (r *WriterConfigRepository) ListByRoom(ctx context.Context, roomID domain.RoomID) ([]*domain.RtcWriterConfig, error) {
	var rows []writerConfigModel
	err := dbFrom(ctx, r.db).Table("rtc_writer_configs AS w").
		Joins("JOIN rtcs AS rt ON rt.id = w.rtc_id").
		Where("rt.room_id = ?", uuid.UUID(roomID)).
		Select("w.*").
		Find(&rows).Error
	if err != nil {
		return nil, wrapQueryErr(err, "failed to list room writer configs")
	}
	cfgs := make([]*domain.RtcWriterConfig, 0, len(rows))
	for i := range rows {
		cfgs = append(cfgs, rows[i].toDomain())
	}
	return cfgs, nil
}

var _ ports.WriterConfigRepository = (*WriterConfigRepository)(nil)
