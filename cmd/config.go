package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gpupool/gatewayd/internal/cmd"
	cmdopts "github.com/gpupool/gatewayd/internal/cmd/options"
	"github.com/gpupool/gatewayd/internal/config"
	"github.com/gpupool/gatewayd/internal/daemon"
	"github.com/gpupool/gatewayd/internal/flags"
)

// NewConfigCmd creates the 'config' command group.
func NewConfigCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	cobraCmd := &cobra.Command{
		Use:   "config",
		Short: "Manages the gateway configuration file",
		Long:  "Manages the gateway configuration file selected with --config-file",
	}

	fns := []func(*cmd.BaseCmd, ...cmdopts.CmdOption) (*cobra.Command, error){
		NewConfigInitCmd,
		NewConfigValidateCmd,
	}

	for _, fn := range fns {
		subCmd, err := fn(baseCmd, opt...)
		if err != nil {
			return nil, err
		}
		cobraCmd.AddCommand(subCmd)
	}

	return cobraCmd, nil
}

type ConfigInitCmd struct {
	*cmd.BaseCmd
	cfgInitializer config.Initializer
}

// NewConfigInitCmd creates the command that writes a configuration file holding every default.
func NewConfigInitCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ConfigInitCmd{
		BaseCmd:        baseCmd,
		cfgInitializer: opts.ConfigInitializer,
	}

	return &cobra.Command{
		Use:   "init",
		Short: "Writes a configuration file with the default settings",
		Long:  "Writes a configuration file with the default settings, the format follows the file extension",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}, nil
}

func (c *ConfigInitCmd) run(cobraCmd *cobra.Command, _ []string) error {
	path := strings.TrimSpace(flags.ConfigFile)
	if path == "" {
		path = flags.DefaultConfigFile
	}

	if err := c.cfgInitializer.Init(path, DefaultConfig()); err != nil {
		return err
	}

	c.Logger().Info("Configuration file created", "path", path)
	_, _ = fmt.Fprintf(cobraCmd.OutOrStdout(), "✓ Created %s\n", path)

	return nil
}

type ConfigValidateCmd struct {
	*cmd.BaseCmd
	cfgLoader config.Loader
}

// NewConfigValidateCmd creates the command that checks the configuration file.
func NewConfigValidateCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ConfigValidateCmd{
		BaseCmd:   baseCmd,
		cfgLoader: opts.ConfigLoader,
	}

	return &cobra.Command{
		Use:   "validate",
		Short: "Validate gateway configuration",
		Long:  "Validate the gateway configuration file, reporting every invalid setting",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}, nil
}

func (c *ConfigValidateCmd) run(cobraCmd *cobra.Command, _ []string) error {
	cfg, err := c.LoadConfig(c.cfgLoader)
	if err != nil {
		_, _ = fmt.Fprintf(cobraCmd.ErrOrStderr(), "✗ Configuration validation failed: %v\n", err)
		return err
	}

	// Custom loaders may skip validation.
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintf(cobraCmd.ErrOrStderr(), "✗ Configuration validation failed: %v\n", err)
		return err
	}

	_, _ = fmt.Fprintf(cobraCmd.OutOrStdout(), "✓ Configuration is valid\n")
	return nil
}

// DefaultConfig returns a configuration with every setting at its default value.
// The webhook secret is left out so that it is never written to disk by accident.
func DefaultConfig() *config.Config {
	duration := func(d time.Duration) *config.Duration {
		v := config.Duration(d)
		return &v
	}
	enable := false
	credentials := daemon.DefaultCORSAllowCredentials()
	listRequiresSecret := false
	addr := defaultDaemonAddr
	threshold := daemon.DefaultFailureThreshold()
	concurrency := daemon.DefaultHealthCheckConcurrency()
	healthPath := daemon.DefaultHealthCheckPath()
	stateFile := config.DefaultStateFile

	return &config.Config{
		API: &config.APIConfigSection{
			Addr:    &addr,
			Timeout: &config.APITimeoutConfigSection{Shutdown: duration(daemon.DefaultAPIShutdownTimeout())},
			CORS: &config.CORSConfigSection{
				Enable:      &enable,
				Methods:     daemon.DefaultCORSAllowMethods(),
				Headers:     daemon.DefaultCORSAllowHeaders(),
				Credentials: &credentials,
				MaxAge:      duration(daemon.DefaultCORSMaxAge()),
			},
		},
		Webhook: &config.WebhookConfigSection{ListRequiresSecret: &listRequiresSecret},
		Health: &config.HealthConfigSection{
			Interval:         duration(daemon.DefaultHealthCheckInterval()),
			Timeout:          duration(daemon.DefaultHealthCheckTimeout()),
			FailureThreshold: &threshold,
			Path:             &healthPath,
			Concurrency:      &concurrency,
		},
		State: &config.StateConfigSection{File: &stateFile},
		Proxy: &config.ProxyConfigSection{Timeout: duration(daemon.DefaultProxyTimeout())},
	}
}
