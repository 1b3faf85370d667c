package contracts

import (
	"context"
	"time"

	"github.com/gpupool/gatewayd/internal/domain"
)

// ServerStore persists the complete set of registered servers.
type ServerStore interface {
	// Load returns every persisted server in registration order.
	Load() ([]domain.Server, error)

	// Save replaces the persisted state with the given servers.
	Save(servers []domain.Server) error
}

// ServerRegistry is the mutation and inspection surface used by the registration webhooks.
type ServerRegistry interface {
	// Register adds a server, or resets the health of an existing server with the same address.
	Register(host string, port int, secret string) (domain.Server, error)

	// Deregister removes the server matching the address.
	Deregister(host string, port int, secret string) (domain.Server, error)

	// Snapshot returns a point-in-time copy of every registered server, in registration order.
	Snapshot() []domain.Server

	// AllAddresses returns the base URLs of registered servers, optionally only the healthy ones.
	AllAddresses(healthyOnly bool) []string

	// Stats summarises the current pool.
	Stats() domain.PoolStats

	// VerifySecret reports whether the secret matches the configured shared secret.
	VerifySecret(secret string) bool
}

// HealthTarget is the view of the registry the health monitor probes and updates.
type HealthTarget interface {
	// Snapshot returns a point-in-time copy of every registered server.
	Snapshot() []domain.Server

	// ApplyProbe records a probe result for a server.
	// It returns false when the server is no longer registered.
	ApplyProbe(id string, success bool, threshold int, at time.Time) (domain.Transition, bool)

	// Save persists the current registry state.
	Save() error
}

// HealthProber performs a single liveness check against a server.
type HealthProber interface {
	// Probe returns nil when the server answered its health endpoint successfully.
	Probe(ctx context.Context, srv domain.Server) error
}

// HealthySource provides the candidates a selector chooses between.
type HealthySource interface {
	// Healthy returns a copy of the selectable servers, in registration order.
	Healthy() []domain.Server

	// MarkSelected records that a server was handed out.
	MarkSelected(id string, at time.Time)
}

// BackendSelector picks the server that should handle the next request.
type BackendSelector interface {
	// Next returns the next healthy server, and false when none is available.
	Next() (domain.Server, bool)
}

// PoolWatcher is notified when the registry gains its first server or loses its last.
type PoolWatcher interface {
	// PoolPopulated is called when the registry transitions from zero to one server.
	PoolPopulated()

	// PoolEmptied is called when the registry transitions from one to zero servers.
	PoolEmptied()
}

// MonitorStatus reports whether background health checking is active.
type MonitorStatus interface {
	// Running reports whether the health check loop is active.
	Running() bool
}
