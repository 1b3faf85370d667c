package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gpupool/gatewayd/internal/cmd"
	cmdopts "github.com/gpupool/gatewayd/internal/cmd/options"
	"github.com/gpupool/gatewayd/internal/config"
	"github.com/gpupool/gatewayd/internal/daemon"
	"github.com/gpupool/gatewayd/internal/flags"
	"github.com/gpupool/gatewayd/internal/registry"
	"github.com/gpupool/gatewayd/internal/store"
)

const (
	defaultDaemonAddr = "0.0.0.0:8080"
	devDaemonAddr     = "localhost:8080"

	flagNameAddr      = "addr"
	flagNameDev       = "dev"
	flagNameStateFile = "state-file"
)

// DaemonCmd should be used to represent the 'daemon' command.
type DaemonCmd struct {
	*cmd.BaseCmd
	Dev       bool
	Addr      string
	StateFile string
	cfgLoader config.Loader
	lookupEnv config.LookupEnvFunc
}

// NewDaemonCmd creates a newly configured (Cobra) command.
func NewDaemonCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &DaemonCmd{
		BaseCmd:   baseCmd,
		cfgLoader: opts.ConfigLoader,
		lookupEnv: opts.LookupEnv,
	}

	cobraCommand := &cobra.Command{
		Use:   "daemon [--dev] [--addr] [--state-file]",
		Short: "Launches a gateway instance",
		Long: "Launches a gateway instance, which accepts worker registrations, health checks the " +
			"registered servers and forwards API requests to the healthy ones",
		Args: cobra.NoArgs,
		RunE: c.run,
	}

	cobraCommand.Flags().BoolVar(
		&c.Dev,
		flagNameDev,
		false,
		"Run the daemon in development-focused mode (binds "+devDaemonAddr+")",
	)

	cobraCommand.Flags().StringVar(
		&c.Addr,
		flagNameAddr,
		defaultDaemonAddr,
		"Address for the daemon to bind (not applicable in --dev mode)",
	)

	cobraCommand.Flags().StringVar(
		&c.StateFile,
		flagNameStateFile,
		config.DefaultStateFile,
		"File the registered servers are saved to",
	)

	cobraCommand.MarkFlagsMutuallyExclusive(flagNameDev, flagNameAddr)

	return cobraCommand, nil
}

// run is configured (via NewDaemonCmd) to be called by the Cobra framework when the command is executed.
// It may return an error (or nil, when there is no error).
func (c *DaemonCmd) run(cobraCmd *cobra.Command, _ []string) error {
	logger := c.Logger()

	cfg, err := c.LoadConfig(c.cfgLoader)
	if err != nil {
		return err
	}

	addr := c.resolveAddr(cobraCmd, cfg)
	if c.Dev {
		logger.Info("Development-focused mode", "addr", addr, "override", devDaemonAddr)
		addr = devDaemonAddr
	}

	if err := daemon.IsValidAddr(addr); err != nil {
		return err
	}

	secret, source := config.ResolveWebhookSecret(cfg, c.lookupEnv)
	if source == config.SecretSourceDefault {
		logger.Warn(
			"Using the built-in webhook secret, set "+config.EnvVarWebhookSecret+" or webhook.secret to replace it",
		)
	} else {
		logger.Debug("Webhook secret configured", "source", source)
	}

	stateFile := c.resolveStateFile(cobraCmd, cfg)
	st, err := store.NewFileStore(logger, stateFile)
	if err != nil {
		return fmt.Errorf("error configuring state file: %w", err)
	}

	reg, err := registry.NewRegistry(logger, st, secret)
	if err != nil {
		return fmt.Errorf("error creating backend registry: %w", err)
	}

	deps, err := daemon.NewDependencies(logger, addr, reg)
	if err != nil {
		return fmt.Errorf("error configuring gateway daemon dependencies: %w", err)
	}

	d, err := daemon.NewDaemon(deps, daemon.OptionsFromConfig(cfg)...)
	if err != nil {
		return fmt.Errorf("failed to create gateway daemon instance: %w", err)
	}

	// Create the signal handling context for the application.
	daemonCtx, daemonCtxCancel := signal.NotifyContext(
		cobraCmd.Context(),
		os.Interrupt,
		syscall.SIGTERM, syscall.SIGINT,
	)
	defer daemonCtxCancel()

	runErr := make(chan error, 1)
	go func() {
		if err := d.StartAndManage(daemonCtx); err != nil && !errors.Is(err, context.Canceled) {
			runErr <- err
		}
		close(runErr)
	}()

	// Print --dev mode banner if required.
	if c.Dev {
		logger.Info("Launching daemon in dev mode", "addr", addr)
		banner := fmt.Sprintf("gatewayd running in 'dev' mode.\n\n"+
			"  Webhooks:\thttp://%s/webhook\n"+
			"  Gateway API:\thttp://%s/api/v1\n"+
			"  OpenAPI UI:\thttp://%s/docs\n"+
			"  Config file:\t%s\n"+
			"  State file:\t%s\n",
			addr, addr, addr, flags.ConfigFile, stateFile)

		if flags.LogPath != "" {
			banner += fmt.Sprintf("  Log file:\t%s => (%s)\n", flags.LogPath, flags.LogLevel)
		}

		banner += "\nPress Ctrl+C to stop.\n\n"
		_, _ = fmt.Fprint(cobraCmd.OutOrStdout(), banner)
	}

	select {
	case <-daemonCtx.Done():
		logger.Info("Shutting down daemon")
		err := <-runErr // Wait for cleanup and deferred logging.
		return err      // Graceful Ctrl+C / SIGTERM.
	case err := <-runErr:
		if err != nil {
			logger.Error("daemon exited with error", "error", err)
		}
		return err // Propagate daemon failure.
	}
}

// resolveAddr prefers an explicit --addr, then the config file, then the flag default.
func (c *DaemonCmd) resolveAddr(cobraCmd *cobra.Command, cfg *config.Config) string {
	if !cobraCmd.Flags().Changed(flagNameAddr) && cfg != nil && cfg.API != nil && cfg.API.Addr != nil {
		return strings.TrimSpace(*cfg.API.Addr)
	}
	return strings.TrimSpace(c.Addr)
}

// resolveStateFile prefers an explicit --state-file, then the config file, then the default.
func (c *DaemonCmd) resolveStateFile(cobraCmd *cobra.Command, cfg *config.Config) string {
	if cobraCmd.Flags().Changed(flagNameStateFile) {
		return strings.TrimSpace(c.StateFile)
	}
	return cfg.StateFileOrDefault()
}
