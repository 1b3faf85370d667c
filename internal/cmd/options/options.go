package options

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gpupool/gatewayd/internal/config"
)

type CmdOption func(*CmdOptions) error

type CmdOptions struct {
	ConfigLoader      config.Loader
	ConfigInitializer config.Initializer
	LookupEnv         config.LookupEnvFunc

	// HTTPClient is used by commands that call a gateway. Nil means the webhook client default.
	HTTPClient *http.Client
}

func defaultOptions() CmdOptions {
	configLoader := &config.DefaultLoader{}
	return CmdOptions{
		ConfigLoader:      configLoader,
		ConfigInitializer: configLoader,
		LookupEnv:         os.LookupEnv,
	}
}

func NewOptions(opt ...CmdOption) (CmdOptions, error) {
	opts := defaultOptions()

	for _, o := range opt {
		if o == nil {
			continue
		}
		if err := o(&opts); err != nil {
			return CmdOptions{}, err
		}
	}
	return opts, nil
}

func WithConfigLoader(l config.Loader) CmdOption {
	return func(o *CmdOptions) error {
		if l == nil {
			return fmt.Errorf("config loader cannot be nil")
		}
		o.ConfigLoader = l
		return nil
	}
}

func WithConfigInitializer(i config.Initializer) CmdOption {
	return func(o *CmdOptions) error {
		if i == nil {
			return fmt.Errorf("config initializer cannot be nil")
		}
		o.ConfigInitializer = i
		return nil
	}
}

// WithLookupEnv replaces the environment lookup, mainly so tests can control WEBHOOK_SECRET.
func WithLookupEnv(fn config.LookupEnvFunc) CmdOption {
	return func(o *CmdOptions) error {
		if fn == nil {
			return fmt.Errorf("environment lookup cannot be nil")
		}
		o.LookupEnv = fn
		return nil
	}
}

func WithHTTPClient(c *http.Client) CmdOption {
	return func(o *CmdOptions) error {
		o.HTTPClient = c
		return nil
	}
}
