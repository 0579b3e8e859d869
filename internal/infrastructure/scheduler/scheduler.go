// Package scheduler drives C6's vacuum sweep on a fixed interval, grounded
// on the teacher's internal/infrastructure/backup.Scheduler ticker loop,
// adapted from a one-shot backup job to a VacuumService.Run invocation.
package scheduler

import (
	"context"
	"time"

	"conference/internal/core/ports"

	"go.uber.org/zap"
)

// Metrics is the subset of PrometheusCollector the scheduler reports
// through, kept as an interface so tests don't need the real collector.
type Metrics interface {
	RecordVacuumSweep(duration time.Duration)
}

type VacuumScheduler struct {
	vacuum   ports.VacuumService
	interval time.Duration
	metrics  Metrics
	logger   *zap.SugaredLogger
	stopChan chan struct{}
}

func NewVacuumScheduler(vacuum ports.VacuumService, interval time.Duration, metrics Metrics, logger *zap.SugaredLogger) *VacuumScheduler {
	return &VacuumScheduler{
		vacuum:   vacuum,
		interval: interval,
		metrics:  metrics,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Run sweeps once immediately, then on every tick, until ctx is cancelled
// or Stop is called. Overlapping invocations are tolerated: vacuumService
// itself is idempotent across concurrent sweeps (spec §4.5).
func (s *VacuumScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *VacuumScheduler) Stop() {
	close(s.stopChan)
}

func (s *VacuumScheduler) runSweep(ctx context.Context) {
	start := time.Now()
	report, err := s.vacuum.Run(ctx)
	s.metrics.RecordVacuumSweep(time.Since(start))
	if err != nil {
		s.logger.Errorw("vacuum sweep failed", "error", err)
		return
	}
	s.logger.Infow("vacuum sweep completed",
		"rooms_closed", report.RoomsClosed,
		"ran_at", report.Ran,
	)
}
