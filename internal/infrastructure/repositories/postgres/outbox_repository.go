package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

// OutboxRepository persists the durable at-least-once delivery queue (spec
// §4.4). Enqueue always runs through dbFrom so it commits atomically with
// whatever state change produced the entry.
type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, entry *domain.OutboxEntry) error {
	if entry.DeliveryDeadlineAt.IsZero() {
		entry.DeliveryDeadlineAt = time.Now()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return wrapQueryErr(dbFrom(ctx, r.db).Create(outboxFromDomain(entry)).Error, "failed to enqueue outbox entry")
}

func (r *OutboxRepository) PullDue(ctx context.Context, now time.Time, limit int) ([]*domain.OutboxEntry, error) {
	var rows []outboxModel
	err := dbFrom(ctx, r.db).Where("delivery_deadline_at <= ?", now).Order("delivery_deadline_at").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, wrapQueryErr(err, "failed to pull due outbox entries")
	}
	entries := make([]*domain.OutboxEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].toDomain())
	}
	return entries, nil
}

func (r *OutboxRepository) Delete(ctx context.Context, id uint64) error {
	return wrapQueryErr(dbFrom(ctx, r.db).Delete(&outboxModel{}, "id = ?", id).Error, "failed to delete outbox entry")
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id uint64, errKind domain.ErrorSlug, nextAttempt time.Time) error {
	kind := string(errKind)
	err := dbFrom(ctx, r.db).Model(&outboxModel{}).Where("id = ?", id).Updates(map[string]any{
		"retry_count":          gorm.Expr("retry_count + 1"),
		"error_kind":           kind,
		"delivery_deadline_at": nextAttempt,
	}).Error
	return wrapQueryErr(err, "failed to mark outbox entry failed")
}

var _ ports.OutboxRepository = (*OutboxRepository)(nil)
