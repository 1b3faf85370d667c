package daemon

import (
	"fmt"
	"time"

	"github.com/gpupool/gatewayd/internal/domain"
)

// HealthOptions contains optional configuration for the HealthMonitor.
// NewHealthOptions should be used to create instances of HealthOptions.
type HealthOptions struct {
	// Interval specifies how often every registered server is probed.
	Interval time.Duration

	// Timeout bounds a single probe.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failed probes before a server stops being selectable.
	FailureThreshold int

	// Concurrency limits how many probes run at once during a tick.
	Concurrency int

	// OnTransition listeners are called after a server changes between healthy and unhealthy.
	OnTransition []TransitionListener
}

// TransitionListener receives the server (as seen when the tick started) and the transition it went through.
type TransitionListener func(srv domain.Server, transition domain.Transition)

// HealthOption defines a functional option for configuring HealthOptions.
// Options are applied in order, with later options overriding earlier ones.
type HealthOption func(*HealthOptions) error

// NewHealthOptions creates HealthOptions with optional configurations applied.
// Starts with default values, then applies options in order with later options overriding earlier ones.
func NewHealthOptions(opts ...HealthOption) (HealthOptions, error) {
	options := HealthOptions{
		Interval:         DefaultHealthCheckInterval(),
		Timeout:          DefaultHealthCheckTimeout(),
		FailureThreshold: DefaultFailureThreshold(),
		Concurrency:      DefaultHealthCheckConcurrency(),
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&options); err != nil {
			return HealthOptions{}, err
		}
	}

	return options, nil
}

// WithHealthCheckInterval configures how often servers are probed.
func WithHealthCheckInterval(interval time.Duration) HealthOption {
	return func(o *HealthOptions) error {
		if interval <= 0 {
			return fmt.Errorf("health check interval must be positive, got %v", interval)
		}
		o.Interval = interval
		return nil
	}
}

// WithHealthCheckTimeout configures the maximum time to wait for a probe response.
func WithHealthCheckTimeout(timeout time.Duration) HealthOption {
	return func(o *HealthOptions) error {
		if timeout <= 0 {
			return fmt.Errorf("health check timeout must be positive, got %v", timeout)
		}
		o.Timeout = timeout
		return nil
	}
}

// WithFailureThreshold configures how many consecutive failures mark a server unhealthy.
func WithFailureThreshold(threshold int) HealthOption {
	return func(o *HealthOptions) error {
		if threshold < 1 {
			return fmt.Errorf("failure threshold must be at least 1, got %d", threshold)
		}
		o.FailureThreshold = threshold
		return nil
	}
}

// WithHealthCheckConcurrency configures how many probes may be in flight at once.
func WithHealthCheckConcurrency(limit int) HealthOption {
	return func(o *HealthOptions) error {
		if limit < 1 {
			return fmt.Errorf("health check concurrency must be at least 1, got %d", limit)
		}
		o.Concurrency = limit
		return nil
	}
}

// WithTransitionListener adds a listener for health transitions.
func WithTransitionListener(listener TransitionListener) HealthOption {
	return func(o *HealthOptions) error {
		if listener == nil {
			return fmt.Errorf("transition listener cannot be nil")
		}
		o.OnTransition = append(o.OnTransition, listener)
		return nil
	}
}

// DefaultHealthCheckInterval is the default interval between health check ticks.
func DefaultHealthCheckInterval() time.Duration {
	return 30 * time.Second
}

// DefaultHealthCheckTimeout is the default timeout for a single probe.
func DefaultHealthCheckTimeout() time.Duration {
	return 5 * time.Second
}

// DefaultFailureThreshold is the default number of consecutive failures before a server is unhealthy.
func DefaultFailureThreshold() int {
	return 3
}

// DefaultHealthCheckConcurrency is the default number of concurrent probes per tick.
func DefaultHealthCheckConcurrency() int {
	return 10
}

// DefaultHealthCheckPath is the path probed on every backend server.
func DefaultHealthCheckPath() string {
	return "/health"
}
