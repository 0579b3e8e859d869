package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"conference/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeVacuumService struct {
	mu    sync.Mutex
	runs  int
	err   error
	report ports.VacuumReport
}

func (f *fakeVacuumService) Run(ctx context.Context) (ports.VacuumReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	if f.err != nil {
		return ports.VacuumReport{}, f.err
	}
	return f.report, nil
}

func (f *fakeVacuumService) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

type fakeSchedulerMetrics struct {
	mu        sync.Mutex
	durations []time.Duration
}

func (m *fakeSchedulerMetrics) RecordVacuumSweep(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations = append(m.durations, d)
}

func (m *fakeSchedulerMetrics) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.durations)
}

func TestVacuumScheduler_SweepsImmediatelyOnRun(t *testing.T) {
	vacuum := &fakeVacuumService{}
	metrics := &fakeSchedulerMetrics{}
	s := NewVacuumScheduler(vacuum, time.Hour, metrics, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return vacuum.count() == 1 }, time.Second, time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, 1, metrics.count())
}

func TestVacuumScheduler_SweepsOnEveryTick(t *testing.T) {
	vacuum := &fakeVacuumService{}
	metrics := &fakeSchedulerMetrics{}
	s := NewVacuumScheduler(vacuum, 10*time.Millisecond, metrics, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return vacuum.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestVacuumScheduler_StopEndsRunWithoutCancel(t *testing.T) {
	vacuum := &fakeVacuumService{}
	metrics := &fakeSchedulerMetrics{}
	s := NewVacuumScheduler(vacuum, time.Hour, metrics, zap.NewNop().Sugar())

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return vacuum.count() == 1 }, time.Second, time.Millisecond)

	s.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not end Run")
	}
}

func TestVacuumScheduler_ErrorDoesNotStopFutureSweeps(t *testing.T) {
	vacuum := &fakeVacuumService{err: errors.New("db unavailable")}
	metrics := &fakeSchedulerMetrics{}
	s := NewVacuumScheduler(vacuum, 10*time.Millisecond, metrics, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return vacuum.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
	// a failed sweep still records its duration; only the log line differs.
	assert.True(t, metrics.count() >= 2)
}
