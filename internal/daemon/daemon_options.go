package daemon

import (
	"fmt"
	"net/http"
	"strings"
)

// Options contains optional configuration for the daemon.
// NewOptions should be used to create instances of Options.
type Options struct {
	// APIOptions contains functional options for the API server.
	APIOptions []APIOption

	// HealthOptions contains functional options for the health monitor.
	HealthOptions []HealthOption

	// HealthCheckPath is the path probed on every backend server.
	HealthCheckPath string

	// ProbeClient sends health check requests. Nil uses a dedicated client.
	ProbeClient *http.Client
}

// Option defines a functional option for configuring Options.
// Options are applied in order, with later options overriding earlier ones.
type Option func(*Options) error

// NewOptions creates Options with optional configurations applied.
// Starts with default values, then applies options in order with later options overriding earlier ones.
func NewOptions(opts ...Option) (Options, error) {
	options := defaultOptions()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&options); err != nil {
			return Options{}, err
		}
	}

	return options, nil
}

// WithAPIOptions configures API server options.
// Replaces all previous API configuration including CORS settings.
func WithAPIOptions(apiOpts ...APIOption) Option {
	return func(o *Options) error {
		o.APIOptions = apiOpts
		return nil
	}
}

// WithHealthOptions configures health monitor options.
// Replaces all previous health monitor configuration.
func WithHealthOptions(healthOpts ...HealthOption) Option {
	return func(o *Options) error {
		o.HealthOptions = healthOpts
		return nil
	}
}

// WithHealthCheckPath configures the path probed on every backend server.
func WithHealthCheckPath(path string) Option {
	return func(o *Options) error {
		path = strings.TrimSpace(path)
		if path == "" {
			return fmt.Errorf("health check path cannot be empty")
		}
		o.HealthCheckPath = path
		return nil
	}
}

// WithProbeClient configures the HTTP client used for health checks.
func WithProbeClient(client *http.Client) Option {
	return func(o *Options) error {
		if client == nil {
			return fmt.Errorf("probe client cannot be nil")
		}
		o.ProbeClient = client
		return nil
	}
}

// defaultOptions returns Options with default values.
func defaultOptions() Options {
	return Options{
		HealthCheckPath: DefaultHealthCheckPath(),
	}
}
