package daemon

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/gpupool/gatewayd/internal/contracts"
	"github.com/gpupool/gatewayd/internal/domain"
)

var (
	_ contracts.PoolWatcher   = (*HealthMonitor)(nil)
	_ contracts.MonitorStatus = (*HealthMonitor)(nil)
)

// HealthMonitor periodically probes every registered server and records the results.
// It runs only while the pool is non-empty: registries start and stop it through the contracts.PoolWatcher methods.
// NewHealthMonitor should be used to create instances of HealthMonitor.
type HealthMonitor struct {
	logger hclog.Logger
	target contracts.HealthTarget
	prober contracts.HealthProber
	opts   HealthOptions
	now    func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHealthMonitor creates a stopped monitor that probes the servers held by target.
func NewHealthMonitor(
	logger hclog.Logger,
	target contracts.HealthTarget,
	prober contracts.HealthProber,
	opt ...HealthOption,
) (*HealthMonitor, error) {
	if logger == nil || reflect.ValueOf(logger).IsNil() {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if target == nil || reflect.ValueOf(target).IsNil() {
		return nil, fmt.Errorf("health target cannot be nil")
	}
	if prober == nil || reflect.ValueOf(prober).IsNil() {
		return nil, fmt.Errorf("health prober cannot be nil")
	}

	opts, err := NewHealthOptions(opt...)
	if err != nil {
		return nil, fmt.Errorf("invalid health options: %w", err)
	}

	return &HealthMonitor{
		logger: logger.Named("health"),
		target: target,
		prober: prober,
		opts:   opts,
		now:    time.Now,
	}, nil
}

// PoolPopulated starts the monitor.
func (m *HealthMonitor) PoolPopulated() {
	m.Start()
}

// PoolEmptied stops the monitor.
func (m *HealthMonitor) PoolEmptied() {
	m.Stop()
}

// Running reports whether the probe loop is active.
func (m *HealthMonitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.cancel != nil
}

// Start launches the probe loop. The first tick runs immediately.
// Calling Start on a running monitor has no effect.
func (m *HealthMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done

	m.logger.Info("Starting health monitor", "interval", m.opts.Interval, "timeout", m.opts.Timeout)

	go m.run(ctx, done)
}

// Stop cancels in-flight probes and waits for the probe loop to exit.
// Calling Stop on a stopped monitor has no effect.
func (m *HealthMonitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done

	m.logger.Info("Health monitor stopped")
}

func (m *HealthMonitor) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	m.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick probes a snapshot of the pool, then persists the resulting state.
func (m *HealthMonitor) tick(ctx context.Context) {
	servers := m.target.Snapshot()
	if len(servers) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(m.opts.Concurrency)

	for _, srv := range servers {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			m.check(ctx, srv)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return
	}

	if err := m.target.Save(); err != nil {
		m.logger.Error("Failed to persist health check results", "error", err)
	}
}

// check probes one server and applies the outcome.
// Results are discarded when the monitor is stopped mid-probe.
func (m *HealthMonitor) check(ctx context.Context, srv domain.Server) {
	probeCtx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	err := m.prober.Probe(probeCtx, srv)
	cancel()

	if ctx.Err() != nil {
		return
	}

	transition, ok := m.target.ApplyProbe(srv.ID, err == nil, m.opts.FailureThreshold, m.now())
	if !ok {
		// Deregistered while the probe was in flight.
		return
	}

	switch transition {
	case domain.TransitionDegraded:
		m.logger.Warn(
			"Server marked unhealthy",
			"id", srv.ID,
			"address", srv.Address(),
			"threshold", m.opts.FailureThreshold,
			"error", err,
		)
	case domain.TransitionRecovered:
		m.logger.Info("Server recovered", "id", srv.ID, "address", srv.Address())
	default:
		if err != nil {
			m.logger.Debug("Health check failed", "id", srv.ID, "address", srv.Address(), "error", err)
		}
		return
	}

	for _, listener := range m.opts.OnTransition {
		listener(srv, transition)
	}
}
