// Package backend implements the backend transaction engine (spec §4.3): a
// concurrent map from transaction id to a waiting sink, a watchdog sweeping
// past-deadline entries, and demultiplexing of backend-originated responses
// and events. Grounded on the teacher's connection-registry shape in
// internal/infrastructure/signal/websocket_server.go, generalized from a
// peer-id keyed map to a transaction-id keyed one.
package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
	rlog "conference/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Timeouts bundles the per-kind deadlines spec §4.3 names.
type Timeouts struct {
	Default             time.Duration // session/handle ops
	StreamUpload        time.Duration // upload finalization
	WatchdogCheckPeriod time.Duration
}

type pending struct {
	backendID domain.BackendID
	kind      ports.BackendRequestKind
	deadline  time.Time
	sink      chan *ports.BackendResponse
	done      bool
}

// Client is the minimal backend wire-protocol transport the engine drives.
// The Janus HTTP/long-poll client implements it; tests substitute a fake.
type Client interface {
	Send(ctx context.Context, backendID domain.BackendID, transactionID string, kind ports.BackendRequestKind, body map[string]any) error
}

// Metrics is the subset of PrometheusCollector the engine reports through,
// kept as an interface so tests don't need the real collector.
type Metrics interface {
	IncTransactionsInFlight(backendID domain.BackendID)
	DecTransactionsInFlight(backendID domain.BackendID)
	RecordTransaction(kind string, duration time.Duration)
}

// Engine is the C3 backend transaction engine.
type Engine struct {
	client  Client
	metrics Metrics
	logger  *zap.SugaredLogger

	mu      sync.Mutex
	pending map[string]*pending

	timeouts Timeouts

	stop chan struct{}
}

func NewEngine(client Client, timeouts Timeouts, metrics Metrics) *Engine {
	e := &Engine{
		client:   client,
		metrics:  metrics,
		logger:   rlog.New("info").Sugar(),
		pending:  make(map[string]*pending),
		timeouts: timeouts,
		stop:     make(chan struct{}),
	}
	return e
}

// Run starts the watchdog loop; it returns when ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	period := e.timeouts.WatchdogCheckPeriod
	if period <= 0 {
		period = time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stop:
			return
		case <-ticker.C:
			e.sweepExpired()
		}
	}
}

func (e *Engine) Close() { close(e.stop) }

func deadlineFor(kind ports.BackendRequestKind, t Timeouts) time.Duration {
	if kind == ports.ReqUpload {
		return t.StreamUpload
	}
	return t.Default
}

// Send issues a correlated request and blocks for the response, a timeout,
// or ctx cancellation (spec §5 "Cancellation & timeouts": dropping the task
// handle drops the transaction sink).
func (e *Engine) Send(ctx context.Context, backendID domain.BackendID, kind ports.BackendRequestKind, body map[string]any) (*ports.BackendResponse, error) {
	txID := uuid.NewString()
	deadline := time.Now().Add(deadlineFor(kind, e.timeouts))

	p := &pending{
		backendID: backendID,
		kind:      kind,
		deadline:  deadline,
		sink:      make(chan *ports.BackendResponse, 1),
	}

	e.mu.Lock()
	e.pending[txID] = p
	e.mu.Unlock()
	if e.metrics != nil {
		e.metrics.IncTransactionsInFlight(backendID)
	}

	start := time.Now()
	defer func() {
		e.mu.Lock()
		delete(e.pending, txID)
		e.mu.Unlock()
		if e.metrics != nil {
			e.metrics.DecTransactionsInFlight(backendID)
			e.metrics.RecordTransaction(string(kind), time.Since(start))
		}
	}()

	if err := e.client.Send(ctx, backendID, txID, kind, body); err != nil {
		return nil, domain.WrapError(domain.ErrBackendRequestFailed, "failed to send backend request", err)
	}

	select {
	case resp := <-p.sink:
		if resp.AlreadyRunning {
			// state=already_running is mapped to success: vacuum-overlap
			// tolerance (spec §4.3).
			resp.OK = true
		}
		if !resp.OK {
			slug := domain.ErrBackendRequestFailed
			switch resp.ErrorReason {
			case string(domain.ErrBackendRequestTimedOut):
				slug = domain.ErrBackendRequestTimedOut
			case string(domain.ErrBackendNotFound):
				slug = domain.ErrBackendNotFound
			}
			return resp, domain.NewError(slug, fmt.Sprintf("backend returned failure: %s", resp.ErrorReason))
		}
		return resp, nil
	case <-ctx.Done():
		return nil, domain.WrapError(domain.ErrBackendRequestTimedOut, "request cancelled", ctx.Err())
	case <-time.After(time.Until(deadline)):
		return nil, domain.NewError(domain.ErrBackendRequestTimedOut, "backend did not respond before deadline")
	}
}

// Demultiplex routes a backend reply to its waiting sink. Late responses
// (after the sink has been removed by timeout/cancellation) are discarded.
func (e *Engine) Demultiplex(resp *ports.BackendResponse) {
	e.mu.Lock()
	p, ok := e.pending[resp.TransactionID]
	e.mu.Unlock()
	if !ok || p.done {
		return
	}
	p.done = true
	select {
	case p.sink <- resp:
	default:
	}
}

// NotifyBackendLost fails every transaction outstanding against backendID
// with backend_not_found (spec §4.3).
func (e *Engine) NotifyBackendLost(backendID domain.BackendID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, p := range e.pending {
		if p.backendID == backendID && !p.done {
			p.done = true
			select {
			case p.sink <- &ports.BackendResponse{TransactionID: id, OK: false, ErrorReason: string(domain.ErrBackendNotFound)}:
			default:
			}
		}
	}
}

func (e *Engine) sweepExpired() {
	now := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, p := range e.pending {
		if p.done || now.Before(p.deadline) {
			continue
		}
		p.done = true
		e.logger.Warnw("backend transaction timed out", "transaction_id", id, "backend_id", p.backendID, "kind", p.kind)
		select {
		case p.sink <- &ports.BackendResponse{TransactionID: id, OK: false, ErrorReason: string(domain.ErrBackendRequestTimedOut)}:
		default:
		}
	}
}
