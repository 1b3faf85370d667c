package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/gpupool/gatewayd/internal/balancer"
	"github.com/gpupool/gatewayd/internal/registry"
)

// Daemon runs the gateway: the API server, the health monitor and the backend registry they share.
// NewDaemon should be used to create instances of Daemon.
type Daemon struct {
	apiServer *APIServer
	logger    hclog.Logger
	registry  *registry.Registry
	monitor   *HealthMonitor
	selector  *balancer.RoundRobin
}

// NewDaemon creates a new Daemon instance with the provided dependencies and options.
func NewDaemon(deps Dependencies, opt ...Option) (*Daemon, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}

	opts, err := NewOptions(opt...)
	if err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	logger := deps.Logger.Named("daemon")

	prober, err := NewHTTPProber(opts.ProbeClient, opts.HealthCheckPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create health prober: %w", err)
	}

	monitor, err := NewHealthMonitor(logger, deps.Registry, prober, opts.HealthOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create health monitor: %w", err)
	}

	selector, err := balancer.NewRoundRobin(deps.Registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend selector: %w", err)
	}

	apiDeps, err := NewAPIDependencies(logger, deps.Registry, monitor, selector, deps.APIAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create API server dependencies: %w", err)
	}

	apiServer, err := NewAPIServer(apiDeps, opts.APIOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create daemon API server: %w", err)
	}

	return &Daemon{
		apiServer: apiServer,
		logger:    logger,
		registry:  deps.Registry,
		monitor:   monitor,
		selector:  selector,
	}, nil
}

// StartAndManage serves the API until ctx is cancelled.
// The health monitor follows the size of the pool, so it starts straight away when servers were restored.
// On exit the monitor is stopped and the registry is persisted one last time.
func (d *Daemon) StartAndManage(ctx context.Context) error {
	restored := d.registry.AllAddresses(false)
	if len(restored) > 0 {
		d.logger.Info("Restored backend servers", "count", len(restored), "servers", restored)
	} else {
		d.logger.Info("No backend servers registered, waiting for registrations")
	}

	d.registry.Watch(d.monitor)
	defer d.shutdown()

	err := d.apiServer.Start(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("API server failed: %w", err)
	}

	return nil
}

func (d *Daemon) shutdown() {
	d.monitor.Stop()

	if err := d.registry.Save(); err != nil {
		d.logger.Error("Failed to persist backend servers on shutdown", "error", err)
		return
	}

	d.logger.Info("Backend servers persisted", "count", d.registry.Len())
}

// IsValidAddr returns an error if the address is not a valid "host:port" string.
func IsValidAddr(addr string) error {
	return validateAddr(addr)
}
