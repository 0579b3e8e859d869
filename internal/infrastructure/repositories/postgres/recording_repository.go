package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

type RecordingRepository struct {
	db *gorm.DB
}

func NewRecordingRepository(db *gorm.DB) *RecordingRepository {
	return &RecordingRepository{db: db}
}

func (r *RecordingRepository) Upsert(ctx context.Context, rec *domain.Recording) error {
	return wrapQueryErr(dbFrom(ctx, r.db).Save(recordingFromDomain(rec)).Error, "failed to upsert recording")
}

func (r *RecordingRepository) Get(ctx context.Context, rtcID domain.RTCID) (*domain.Recording, error) {
	var m recordingModel
	err := dbFrom(ctx, r.db).First(&m, "rtc_id = ?", uuid.UUID(rtcID)).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, wrapQueryErr(err, "failed to load recording")
	}
	return m.toDomain(), nil
}

var _ ports.RecordingRepository = (*RecordingRepository)(nil)
