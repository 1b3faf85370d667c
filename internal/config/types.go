package config

var _ Provider = (*DefaultLoader)(nil)

// Loader reads a configuration file.
type Loader interface {
	Load(path string) (*Config, error)
}

// Initializer writes a new configuration file.
type Initializer interface {
	Init(path string, cfg *Config) error
}

type Provider interface {
	Initializer
	Loader
}

// DefaultLoader reads and writes configuration files on disk.
// Files ending in .yaml or .yml are YAML, everything else is TOML.
type DefaultLoader struct{}

// Config represents the .gatewayd.toml file structure.
//
// NOTE: if you add/remove sections you must review Validate along with the daemon command's option wiring.
type Config struct {
	// API configuration (includes address and nested timeout/cors)
	API *APIConfigSection `json:"api,omitempty" toml:"api,omitempty" yaml:"api,omitempty"`

	// Webhook configuration for worker registration.
	Webhook *WebhookConfigSection `json:"webhook,omitempty" toml:"webhook,omitempty" yaml:"webhook,omitempty"`

	// Health check configuration.
	Health *HealthConfigSection `json:"health,omitempty" toml:"health,omitempty" yaml:"health,omitempty"`

	// State persistence configuration.
	State *StateConfigSection `json:"state,omitempty" toml:"state,omitempty" yaml:"state,omitempty"`

	// Proxy configuration for forwarded requests.
	Proxy *ProxyConfigSection `json:"proxy,omitempty" toml:"proxy,omitempty" yaml:"proxy,omitempty"`

	configFilePath string `toml:"-"`
}
