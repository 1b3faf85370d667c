package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gpupool/gatewayd/internal/cmd"
	cmdopts "github.com/gpupool/gatewayd/internal/cmd/options"
	"github.com/gpupool/gatewayd/internal/flags"
)

type RootCmd struct {
	*cmd.BaseCmd
}

func Execute() {
	rootCmd, err := NewRootCmd(cmd.NewBaseCmd(nil))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error creating root command: %s\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree. Options are passed down to every subcommand.
func NewRootCmd(c *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	if c == nil {
		c = cmd.NewBaseCmd(nil)
	}
	root := &RootCmd{BaseCmd: c}

	rootCmd := &cobra.Command{
		Use:          cmd.AppName() + " <command> [args]",
		Short:        "GPU backend registry and load balancing gateway",
		Long:         root.longDescription(),
		SilenceUsage: true,
		Version:      cmd.Version(),
	}

	// Global flags
	flags.InitFlags(rootCmd.PersistentFlags())

	fns := []func(*cmd.BaseCmd, ...cmdopts.CmdOption) (*cobra.Command, error){
		NewDaemonCmd,
		NewRegisterCmd,
		NewUnregisterCmd,
		NewServersCmd,
		NewConfigCmd,
	}

	for _, fn := range fns {
		subCmd, err := fn(c, opt...)
		if err != nil {
			return nil, err
		}
		rootCmd.AddCommand(subCmd)
	}

	return rootCmd, nil
}

func (c *RootCmd) longDescription() string {
	return `'gatewayd' keeps a pool of GPU inference servers and spreads API traffic across the healthy ones.

Workers join and leave the pool through the registration webhooks, either directly
or with the 'register' and 'unregister' commands. The 'daemon' command runs the gateway.`
}
