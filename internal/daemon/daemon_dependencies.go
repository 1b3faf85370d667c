package daemon

import (
	"fmt"
	"reflect"

	"github.com/hashicorp/go-hclog"

	"github.com/gpupool/gatewayd/internal/registry"
)

// Dependencies contains required dependencies for the Daemon.
// NewDependencies should be used to create instances of Dependencies.
type Dependencies struct {
	// APIAddr specifies the network address for the APIServer to bind (e.g., "0.0.0.0:8080").
	APIAddr string

	// Logger for daemon and subcomponent (API server, health monitor) operations.
	Logger hclog.Logger

	// Registry holds the backend servers, already restored from persisted state.
	Registry *registry.Registry
}

// NewDependencies creates validated Dependencies.
func NewDependencies(logger hclog.Logger, apiAddr string, reg *registry.Registry) (Dependencies, error) {
	deps := Dependencies{
		APIAddr:  apiAddr,
		Logger:   logger,
		Registry: reg,
	}

	if err := deps.Validate(); err != nil {
		return Dependencies{}, err
	}

	return deps, nil
}

// Validate ensures all required dependencies are provided and valid.
func (d Dependencies) Validate() error {
	if d.Logger == nil || reflect.ValueOf(d.Logger).IsNil() {
		return fmt.Errorf("logger cannot be nil")
	}

	if err := validateAddr(d.APIAddr); err != nil {
		return fmt.Errorf("invalid API address '%s': %w", d.APIAddr, err)
	}

	if d.Registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}

	return nil
}
