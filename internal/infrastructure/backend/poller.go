package backend

import (
	"context"
	"sync"
	"time"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
	rlog "conference/pkg/logger"
	"conference/pkg/circuitbreaker"

	"go.uber.org/zap"
)

// EventSource is whatever delivers backend-originated frames (responses and
// events) to this process — a long-poll HTTP loop or a WebSocket read loop
// per backend. Production wiring attaches one per registered backend;
// tests substitute a channel-fed fake.
type EventSource interface {
	Events() <-chan RawFrame
}

// RawFrame is either a correlated response (Transaction set) or an
// uncorrelated backend event (Transaction empty).
type RawFrame struct {
	BackendID     domain.BackendID
	Transaction   string
	OK            bool
	AlreadyRunning bool
	ErrorReason   string
	Payload       map[string]any
	EventKind     ports.BackendEventKind
	HandleID      domain.HandleID
}

// Poller reads frames from an EventSource, demultiplexing responses into
// the transaction Engine and events into the BackendEventHandler, and
// reports backend loss (status-channel disconnect) to both.
type Poller struct {
	engine  *Engine
	events  ports.BackendEventHandler
	health  *HealthPool
	logger  *zap.SugaredLogger
}

func NewPoller(engine *Engine, events ports.BackendEventHandler, health *HealthPool) *Poller {
	return &Poller{engine: engine, events: events, health: health, logger: rlog.New("info").Sugar()}
}

// Run consumes src until it closes (backend disconnected) or ctx is done.
// On src closing, the backend is considered lost: all in-flight
// transactions fail with backend_not_found and state is torn down via
// HandleBackendOffline (spec §4.3).
func (p *Poller) Run(ctx context.Context, backendID domain.BackendID, src EventSource) {
	ch := src.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-ch:
			if !ok {
				p.onBackendLost(backendID)
				return
			}
			p.dispatch(ctx, frame)
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, frame RawFrame) {
	if frame.Transaction != "" {
		p.engine.Demultiplex(&ports.BackendResponse{
			TransactionID:  frame.Transaction,
			OK:             frame.OK,
			AlreadyRunning: frame.AlreadyRunning,
			Payload:        frame.Payload,
			ErrorReason:    frame.ErrorReason,
		})
		if p.health != nil {
			p.health.Record(frame.BackendID, frame.OK || frame.AlreadyRunning)
		}
		return
	}

	switch frame.EventKind {
	case ports.BackendEventOffline:
		p.onBackendLost(frame.BackendID)
	default:
		if err := p.events.HandleBackendEvent(ctx, ports.BackendEvent{
			BackendID: frame.BackendID,
			HandleID:  frame.HandleID,
			Kind:      frame.EventKind,
			At:        time.Now(),
		}); err != nil {
			p.logger.Warnw("backend event handling failed", "error", err, "kind", frame.EventKind)
		}
	}
}

func (p *Poller) onBackendLost(backendID domain.BackendID) {
	p.engine.NotifyBackendLost(backendID)
	if p.health != nil {
		p.health.Remove(backendID)
	}
	if err := p.events.HandleBackendOffline(context.Background(), backendID); err != nil {
		p.logger.Warnw("backend offline teardown failed", "backend_id", backendID, "error", err)
	}
}

// HealthPool tracks one circuit breaker per backend, implementing
// services.HealthChecker. Grounded on pkg/circuitbreaker.
type HealthPool struct {
	cfg      circuitbreaker.Config
	mu       sync.Mutex
	breakers map[domain.BackendID]*circuitbreaker.CircuitBreaker
}

func NewHealthPool(cfg circuitbreaker.Config) *HealthPool {
	return &HealthPool{cfg: cfg, breakers: make(map[domain.BackendID]*circuitbreaker.CircuitBreaker)}
}

func (h *HealthPool) breaker(id domain.BackendID) *circuitbreaker.CircuitBreaker {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cb, ok := h.breakers[id]; ok {
		return cb
	}
	cb := circuitbreaker.New(h.cfg)
	h.breakers[id] = cb
	return cb
}

// Record feeds one transaction outcome for backendID into its breaker.
func (h *HealthPool) Record(backendID domain.BackendID, ok bool) {
	cb := h.breaker(backendID)
	if ok {
		_ = cb.Execute(context.Background(), func() error { return nil })
	} else {
		_ = cb.Execute(context.Background(), func() error { return errBackendFailure })
	}
}

func (h *HealthPool) Remove(backendID domain.BackendID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.breakers, backendID)
}

// Healthy implements services.HealthChecker.
func (h *HealthPool) Healthy(backendID domain.BackendID) bool {
	h.mu.Lock()
	cb, ok := h.breakers[backendID]
	h.mu.Unlock()
	if !ok {
		return true
	}
	return cb.GetState() != circuitbreaker.StateOpen
}

// OpenCount returns how many tracked backends currently have an open
// circuit, for the /healthz and Prometheus degraded-capacity signal.
func (h *HealthPool) OpenCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, cb := range h.breakers {
		if cb.GetState() == circuitbreaker.StateOpen {
			n++
		}
	}
	return n
}

var errBackendFailure = domain.NewError(domain.ErrBackendRequestFailed, "backend transaction failed")
