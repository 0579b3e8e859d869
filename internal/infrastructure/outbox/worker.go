// Package outbox implements C5's delivery worker: it drains
// OutboxRepository.PullDue on a fixed poll interval and hands each due
// entry to notify.Dispatcher, retrying with backoff on failure (spec §4.4).
package outbox

import (
	"context"
	"time"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
	"conference/pkg/batch"
	"conference/pkg/retry"

	"go.uber.org/zap"
)

// Metrics is the subset of PrometheusCollector the worker reports through,
// kept as an interface so tests don't need the real collector.
type Metrics interface {
	SetOutboxBacklog(n int)
	RecordOutboxDelivery(ok bool)
}

// Dispatcher routes one due outbox entry to the transport that owns its
// sink. Kept as an interface, rather than referencing *notify.Dispatcher
// directly, so tests can substitute a fake without live broker/bus
// connections.
type Dispatcher interface {
	Dispatch(ctx context.Context, entry *domain.OutboxEntry) error
}

// Worker polls for due outbox entries and delivers them in batches via
// pkg/batch.Batcher, grounded on the teacher's use of Batcher for
// write-side fan-out (internal/infrastructure/repositories/redis/batched_peer_repository.go)
// but adapted to a pull source: PullDue supplies the work instead of
// callers pushing into Add, and a batch is sized to exactly the entries
// pulled in one poll so Flush always runs against a complete, bounded set.
type Worker struct {
	repo       ports.OutboxRepository
	dispatcher Dispatcher
	metrics    Metrics
	logger     *zap.SugaredLogger

	messagesPerTry      int
	pollInterval        time.Duration
	maxDeliveryInterval time.Duration
	retryCfg            retry.Config

	now func() time.Time
}

func NewWorker(
	repo ports.OutboxRepository,
	dispatcher Dispatcher,
	metrics Metrics,
	logger *zap.SugaredLogger,
	messagesPerTry int,
	pollInterval, maxDeliveryInterval time.Duration,
) *Worker {
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = 1 // the outbox table itself is the retry ledger; one dispatch attempt per poll.

	return &Worker{
		repo:                repo,
		dispatcher:          dispatcher,
		metrics:             metrics,
		logger:              logger,
		messagesPerTry:      messagesPerTry,
		pollInterval:        pollInterval,
		maxDeliveryInterval: maxDeliveryInterval,
		retryCfg:            retryCfg,
		now:                 time.Now,
	}
}

// Run polls until ctx is cancelled. Callers drain in-flight deliveries by
// cancelling ctx and waiting for Run to return (spec §5 graceful drain).
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollOnce(ctx)
		}
	}
}

func (w *Worker) pollOnce(ctx context.Context) {
	entries, err := w.repo.PullDue(ctx, w.now(), w.messagesPerTry)
	if err != nil {
		w.logger.Errorw("failed to pull due outbox entries", "error", err)
		return
	}
	if len(entries) == 0 {
		w.metrics.SetOutboxBacklog(0)
		return
	}
	w.metrics.SetOutboxBacklog(len(entries))

	processor := &batchProcessor{worker: w}
	batcher := batch.NewBatcher(len(entries), w.pollInterval, processor)
	for _, entry := range entries {
		batcher.Add(&deliveryOp{worker: w, entry: entry})
	}
	if err := batcher.Flush(ctx); err != nil {
		w.logger.Errorw("outbox batch flush failed", "error", err)
	}
	batcher.Stop()
}

type batchProcessor struct {
	worker *Worker
}

func (p *batchProcessor) ProcessBatch(ctx context.Context, ops []batch.Operation) error {
	for _, op := range ops {
		if err := op.Execute(ctx); err != nil {
			p.worker.logger.Warnw("outbox delivery failed", "error", err)
		}
	}
	return nil
}

// deliveryOp adapts a single outbox entry into pkg/batch's Operation
// interface; Execute dispatches it and either deletes it on success or
// reschedules it with backoff on failure.
type deliveryOp struct {
	worker *Worker
	entry  *domain.OutboxEntry
}

func (op *deliveryOp) Execute(ctx context.Context) error {
	w := op.worker
	err := retry.Retry(ctx, w.retryCfg, func() error {
		return w.dispatcher.Dispatch(ctx, op.entry)
	})

	if err == nil {
		w.metrics.RecordOutboxDelivery(true)
		if delErr := w.repo.Delete(ctx, op.entry.ID); delErr != nil {
			w.logger.Errorw("failed to delete delivered outbox entry", "id", op.entry.ID, "error", delErr)
			return delErr
		}
		return nil
	}

	w.metrics.RecordOutboxDelivery(false)
	op.entry.RetryCount++
	nextAttempt := w.now().Add(op.entry.NextRetryDelay(w.pollInterval, w.maxDeliveryInterval))
	slug := domain.ErrPublishFailed
	if de := domain.AsDomainError(err); de != nil {
		slug = de.Slug
	}
	if markErr := w.repo.MarkFailed(ctx, op.entry.ID, slug, nextAttempt); markErr != nil {
		w.logger.Errorw("failed to mark outbox entry failed", "id", op.entry.ID, "error", markErr)
		return markErr
	}
	return err
}
