package daemon

import (
	"strings"
	"time"

	"github.com/gpupool/gatewayd/internal/config"
)

// OptionsFromConfig converts the settings present in cfg into daemon options.
// Settings that are absent keep their defaults.
func OptionsFromConfig(cfg *config.Config) []Option {
	if cfg == nil {
		return nil
	}

	var opts []Option

	if apiOpts := apiOptionsFromConfig(cfg); len(apiOpts) > 0 {
		opts = append(opts, WithAPIOptions(apiOpts...))
	}

	if h := cfg.Health; h != nil {
		var healthOpts []HealthOption
		if h.Interval != nil {
			healthOpts = append(healthOpts, WithHealthCheckInterval(time.Duration(*h.Interval)))
		}
		if h.Timeout != nil {
			healthOpts = append(healthOpts, WithHealthCheckTimeout(time.Duration(*h.Timeout)))
		}
		if h.FailureThreshold != nil {
			healthOpts = append(healthOpts, WithFailureThreshold(*h.FailureThreshold))
		}
		if h.Concurrency != nil {
			healthOpts = append(healthOpts, WithHealthCheckConcurrency(*h.Concurrency))
		}
		if len(healthOpts) > 0 {
			opts = append(opts, WithHealthOptions(healthOpts...))
		}
		if h.Path != nil {
			opts = append(opts, WithHealthCheckPath(*h.Path))
		}
	}

	return opts
}

func apiOptionsFromConfig(cfg *config.Config) []APIOption {
	var opts []APIOption

	if a := cfg.API; a != nil {
		if a.Timeout != nil && a.Timeout.Shutdown != nil {
			opts = append(opts, WithShutdownTimeout(time.Duration(*a.Timeout.Shutdown)))
		}

		if c := a.CORS; c != nil {
			opts = append(opts, WithCORSEnabled(c.EnableOrDefault(false)))
			if len(c.Origins) > 0 {
				opts = append(opts, WithCORSAllowOrigins(trimAll(c.Origins)))
			}
			if len(c.Methods) > 0 {
				opts = append(opts, WithCORSAllowMethods(c.Methods))
			}
			if len(c.Headers) > 0 {
				opts = append(opts, WithCORSAllowHeaders(c.Headers))
			}
			if len(c.ExposeHeaders) > 0 {
				opts = append(opts, WithCORSExposeHeaders(c.ExposeHeaders))
			}
			if c.Credentials != nil {
				opts = append(opts, WithCORSAllowCredentials(*c.Credentials))
			}
			if c.MaxAge != nil {
				opts = append(opts, WithCORSMaxAge(time.Duration(*c.MaxAge)))
			}
		}
	}

	if w := cfg.Webhook; w != nil && w.ListRequiresSecret != nil {
		opts = append(opts, WithListRequiresSecret(*w.ListRequiresSecret))
	}

	if p := cfg.Proxy; p != nil && p.Timeout != nil {
		opts = append(opts, WithProxyTimeout(time.Duration(*p.Timeout)))
	}

	return opts
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}
