package services

import (
	"context"
	"encoding/json"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

// outboxNotifier implements ports.Notifier on top of OutboxRepository. Every
// call must run inside the UnitOfWork transaction already open on ctx so
// the enqueued entry commits atomically with the state change it reports
// (spec §4.4, §8 outbox invariant). Grounded on the teacher's
// batched_metrics_service.go buffering shape, generalized from in-memory
// batching to a durable table drained by a separate worker.
type outboxNotifier struct {
	outbox ports.OutboxRepository
}

func NewOutboxNotifier(outbox ports.OutboxRepository) ports.Notifier {
	return &outboxNotifier{outbox: outbox}
}

func (n *outboxNotifier) Enqueue(ctx context.Context, kind domain.EventKind, sink domain.Sink, entityType, entityID string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return domain.WrapError(domain.ErrMessageBuildingFailed, "failed to encode outbox payload", err)
	}
	entry := &domain.OutboxEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Kind:       kind,
		Sink:       sink,
		Payload:    raw,
	}
	if err := n.outbox.Enqueue(ctx, entry); err != nil {
		return domain.WrapError(domain.ErrDatabaseQueryFailed, "failed to enqueue outbox entry", err)
	}
	return nil
}
