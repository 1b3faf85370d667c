package config

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// APIConfigSection contains API server configuration settings.
type APIConfigSection struct {
	// Address to bind the API server (e.g., "0.0.0.0:8080")
	// Maps to CLI flag --addr
	Addr *string `json:"addr,omitempty" toml:"addr,omitempty" yaml:"addr,omitempty"`

	// Nested timeout configuration for API operations
	Timeout *APITimeoutConfigSection `json:"timeout,omitempty" toml:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Nested CORS configuration for cross-origin requests
	CORS *CORSConfigSection `json:"cors,omitempty" toml:"cors,omitempty" yaml:"cors,omitempty"`
}

// APITimeoutConfigSection contains timeout settings for API operations.
type APITimeoutConfigSection struct {
	// Shutdown timeout for graceful API server shutdown
	Shutdown *Duration `json:"shutdown,omitempty" toml:"shutdown,omitempty" yaml:"shutdown,omitempty"`
}

// CORSConfigSection contains Cross-Origin Resource Sharing (CORS) configuration.
type CORSConfigSection struct {
	// Enable CORS support
	Enable *bool `json:"enable,omitempty" toml:"enable,omitempty" yaml:"enable,omitempty"`

	// Allowed origins for CORS requests
	Origins []string `json:"allowOrigins,omitempty" toml:"allow_origins,omitempty" yaml:"allow_origins,omitempty"`

	// Allowed HTTP methods for CORS requests
	Methods []string `json:"allowMethods,omitempty" toml:"allow_methods,omitempty" yaml:"allow_methods,omitempty"`

	// Allowed headers for CORS requests
	Headers []string `json:"allowHeaders,omitempty" toml:"allow_headers,omitempty" yaml:"allow_headers,omitempty"`

	// Headers exposed to the client
	ExposeHeaders []string `json:"exposeHeaders,omitempty" toml:"expose_headers,omitempty" yaml:"expose_headers,omitempty"`

	// Allow credentials in CORS requests
	Credentials *bool `json:"allowCredentials,omitempty" toml:"allow_credentials,omitempty" yaml:"allow_credentials,omitempty"`

	// Maximum age for CORS preflight cache
	MaxAge *Duration `json:"maxAge,omitempty" toml:"max_age,omitempty" yaml:"max_age,omitempty"`
}

// WebhookConfigSection contains the settings for worker registration.
type WebhookConfigSection struct {
	// Shared secret workers present when registering.
	// Overridden by the WEBHOOK_SECRET environment variable.
	Secret *string `json:"secret,omitempty" toml:"secret,omitempty" yaml:"secret,omitempty"`

	// Require the shared secret to list registered servers.
	ListRequiresSecret *bool `json:"listRequiresSecret,omitempty" toml:"list_requires_secret,omitempty" yaml:"list_requires_secret,omitempty"`
}

// HealthConfigSection contains the backend health check settings.
type HealthConfigSection struct {
	// Time between health check rounds.
	Interval *Duration `json:"interval,omitempty" toml:"interval,omitempty" yaml:"interval,omitempty"`

	// Maximum time to wait for a single probe.
	Timeout *Duration `json:"timeout,omitempty" toml:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Consecutive failed probes before a server stops receiving requests.
	FailureThreshold *int `json:"failureThreshold,omitempty" toml:"failure_threshold,omitempty" yaml:"failure_threshold,omitempty"`

	// Path probed on every backend server.
	Path *string `json:"path,omitempty" toml:"path,omitempty" yaml:"path,omitempty"`

	// Maximum number of probes in flight at once.
	Concurrency *int `json:"concurrency,omitempty" toml:"concurrency,omitempty" yaml:"concurrency,omitempty"`
}

// StateConfigSection contains the registry persistence settings.
type StateConfigSection struct {
	// File the registered servers are saved to.
	// Maps to CLI flag --state-file
	File *string `json:"file,omitempty" toml:"file,omitempty" yaml:"file,omitempty"`
}

// ProxyConfigSection contains the settings for forwarded requests.
type ProxyConfigSection struct {
	// Maximum time a forwarded request may take. Zero disables the limit.
	Timeout *Duration `json:"timeout,omitempty" toml:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Duration is a custom time.Duration type that provides improved marshaling.
type Duration time.Duration

// Validate implements Validator for APIConfigSection.
func (a *APIConfigSection) Validate() error {
	if a == nil {
		return nil
	}

	var validationErrors []error

	if a.Addr != nil {
		if *a.Addr == "" {
			validationErrors = append(validationErrors, fmt.Errorf("API address cannot be empty"))
		} else if !isValidAddr(*a.Addr) {
			validationErrors = append(
				validationErrors,
				fmt.Errorf("API address \"%s\" appears to be invalid (expected format: host:port)", *a.Addr),
			)
		}
	}

	if a.Timeout != nil && a.Timeout.Shutdown != nil && *a.Timeout.Shutdown <= 0 {
		validationErrors = append(validationErrors, fmt.Errorf("timeout configuration error: API shutdown timeout must be positive"))
	}

	if err := a.CORS.Validate(); err != nil {
		validationErrors = append(validationErrors, fmt.Errorf("CORS configuration error: %w", err))
	}

	return errors.Join(validationErrors...)
}

// EnableOrDefault returns the CORS enable setting, falling back to defaultEnable if not set.
func (c *CORSConfigSection) EnableOrDefault(defaultEnable bool) bool {
	if c == nil || c.Enable == nil {
		return defaultEnable
	}
	return *c.Enable
}

// Validate implements Validator for CORSConfigSection.
func (c *CORSConfigSection) Validate() error {
	if c == nil {
		return nil
	}

	var validationErrors []error

	for _, origin := range c.Origins {
		origin = strings.TrimSpace(origin)

		// See: https://developer.mozilla.org/en-US/docs/Web/HTTP/Reference/Headers/Access-Control-Allow-Origin#sect
		if origin == "*" {
			continue
		}

		if origin == "" {
			validationErrors = append(validationErrors, fmt.Errorf("CORS origin cannot be empty"))
			continue
		}

		if !isValidOrigin(origin) {
			validationErrors = append(validationErrors, fmt.Errorf("invalid origin: %s", origin))
		}
	}

	validMethods := ValidHTTPRequestMethods()
	for _, method := range c.Methods {
		if method == "*" {
			continue
		}

		if method == "" {
			validationErrors = append(validationErrors, fmt.Errorf("CORS method cannot be empty"))
			continue
		}

		if _, ok := validMethods[method]; !ok {
			validationErrors = append(
				validationErrors,
				fmt.Errorf("CORS method %s is not a valid HTTP request method", method),
			)
		}
	}

	if c.MaxAge != nil && *c.MaxAge <= 0 {
		validationErrors = append(validationErrors, fmt.Errorf("CORS max age must be positive"))
	}

	return errors.Join(validationErrors...)
}

// Validate implements Validator for WebhookConfigSection.
func (w *WebhookConfigSection) Validate() error {
	if w == nil {
		return nil
	}

	if w.Secret != nil && strings.TrimSpace(*w.Secret) == "" {
		return fmt.Errorf("webhook secret cannot be empty")
	}

	return nil
}

// Validate implements Validator for HealthConfigSection.
func (h *HealthConfigSection) Validate() error {
	if h == nil {
		return nil
	}

	var validationErrors []error

	if h.Interval != nil && *h.Interval <= 0 {
		validationErrors = append(validationErrors, fmt.Errorf("health check interval must be positive"))
	}
	if h.Timeout != nil && *h.Timeout <= 0 {
		validationErrors = append(validationErrors, fmt.Errorf("health check timeout must be positive"))
	}
	if h.Interval != nil && h.Timeout != nil && *h.Timeout > *h.Interval {
		validationErrors = append(validationErrors, fmt.Errorf("health check timeout must not exceed the interval"))
	}
	if h.FailureThreshold != nil && *h.FailureThreshold < 1 {
		validationErrors = append(validationErrors, fmt.Errorf("failure threshold must be at least 1"))
	}
	if h.Concurrency != nil && *h.Concurrency < 1 {
		validationErrors = append(validationErrors, fmt.Errorf("health check concurrency must be at least 1"))
	}
	if h.Path != nil && !strings.HasPrefix(strings.TrimSpace(*h.Path), "/") {
		validationErrors = append(validationErrors, fmt.Errorf("health check path must start with '/'"))
	}

	return errors.Join(validationErrors...)
}

// Validate implements Validator for StateConfigSection.
func (s *StateConfigSection) Validate() error {
	if s == nil {
		return nil
	}

	if s.File != nil && strings.TrimSpace(*s.File) == "" {
		return fmt.Errorf("state file cannot be empty")
	}

	return nil
}

// Validate implements Validator for ProxyConfigSection.
func (p *ProxyConfigSection) Validate() error {
	if p == nil {
		return nil
	}

	if p.Timeout != nil && *p.Timeout < 0 {
		return fmt.Errorf("proxy timeout cannot be negative")
	}

	return nil
}

// MarshalText implements encoding.TextMarshaler for Duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// String returns a human-readable string representation of the duration.
func (d Duration) String() string {
	duration := time.Duration(d)
	if duration == 0 {
		return "0s"
	}

	// List of duration units in descending order.
	units := []struct {
		unit   time.Duration
		suffix string
	}{
		{time.Hour, "h"},
		{time.Minute, "m"},
		{time.Second, "s"},
		{time.Millisecond, "ms"},
		{time.Microsecond, "µs"},
	}

	for _, u := range units {
		if duration%u.unit == 0 {
			return fmt.Sprintf("%d%s", duration/u.unit, u.suffix)
		}
	}

	return fmt.Sprintf("%dns", duration)
}

// UnmarshalText implements encoding.TextUnmarshaler for Duration.
func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if err := d.UnmarshalText([]byte(value.Value)); err != nil {
		return NewErrInvalidValue("duration", value.Value)
	}
	return nil
}

// ValidHTTPRequestMethods returns the request methods accepted in CORS configuration.
func ValidHTTPRequestMethods() map[string]struct{} {
	return map[string]struct{}{
		http.MethodGet:     {},
		http.MethodHead:    {},
		http.MethodPost:    {},
		http.MethodPut:     {},
		http.MethodPatch:   {},
		http.MethodDelete:  {},
		http.MethodConnect: {},
		http.MethodOptions: {},
		http.MethodTrace:   {},
	}
}

// isValidAddr performs basic validation for host:port format using stdlib.
func isValidAddr(addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}

	if port == "" {
		return false
	}

	return !strings.ContainsAny(host, " \t\n\r") && len(host) <= 253
}

// isValidOrigin accepts scheme://host[:port] with no path.
func isValidOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}

	return u.Scheme != "" && u.Host != "" && (u.Path == "" || u.Path == "/")
}
