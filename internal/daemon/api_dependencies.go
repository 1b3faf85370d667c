package daemon

import (
	"fmt"
	"reflect"

	"github.com/hashicorp/go-hclog"

	"github.com/gpupool/gatewayd/internal/contracts"
)

// APIDependencies contains the required external dependencies for the API server.
// NewAPIDependencies should be used to create instances of APIDependencies.
type APIDependencies struct {
	// Addr specifies the network address to bind (e.g., "0.0.0.0:8090").
	Addr string

	// Registry holds the registered backend servers.
	Registry contracts.ServerRegistry

	// Monitor reports whether background health checks are running.
	Monitor contracts.MonitorStatus

	// Selector picks the backend server for each forwarded request.
	Selector contracts.BackendSelector

	// Logger for API server operations.
	Logger hclog.Logger
}

// NewAPIDependencies creates and validates APIDependencies.
func NewAPIDependencies(
	logger hclog.Logger,
	registry contracts.ServerRegistry,
	monitor contracts.MonitorStatus,
	selector contracts.BackendSelector,
	addr string,
) (APIDependencies, error) {
	deps := APIDependencies{
		Addr:     addr,
		Registry: registry,
		Monitor:  monitor,
		Selector: selector,
		Logger:   logger,
	}

	if err := deps.Validate(); err != nil {
		return APIDependencies{}, err
	}

	return deps, nil
}

// Validate ensures all required dependencies are provided and valid.
func (d APIDependencies) Validate() error {
	if err := validateAddr(d.Addr); err != nil {
		return fmt.Errorf("invalid API address '%s': %w", d.Addr, err)
	}
	if d.Registry == nil || reflect.ValueOf(d.Registry).IsNil() {
		return fmt.Errorf("registry cannot be nil")
	}
	if d.Monitor == nil || reflect.ValueOf(d.Monitor).IsNil() {
		return fmt.Errorf("monitor cannot be nil")
	}
	if d.Selector == nil || reflect.ValueOf(d.Selector).IsNil() {
		return fmt.Errorf("selector cannot be nil")
	}
	if d.Logger == nil || reflect.ValueOf(d.Logger).IsNil() {
		return fmt.Errorf("logger cannot be nil")
	}
	return nil
}
