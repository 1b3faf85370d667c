package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gpupool/gatewayd/internal/api"
	"github.com/gpupool/gatewayd/internal/cmd"
	cmdopts "github.com/gpupool/gatewayd/internal/cmd/options"
	"github.com/gpupool/gatewayd/internal/config"
	"github.com/gpupool/gatewayd/internal/filter"
	"github.com/gpupool/gatewayd/internal/printer"
)

const flagFilter = "filter"

// ServersCmd should be used to represent the 'servers' command.
type ServersCmd struct {
	*gatewayClientCmd
	Filters map[string]string
}

// serverFilters are the keys accepted by 'servers --filter'.
func serverFilters() []filter.Option[api.Server] {
	return []filter.Option[api.Server]{
		filter.WithMatchers(map[string]filter.Predicate[api.Server]{
			"id":      filter.Equals(func(s api.Server) string { return s.ID }),
			"ip":      filter.Partial(func(s api.Server) string { return s.IP }),
			"port":    filter.EqualsInt(func(s api.Server) int { return s.Port }),
			"status":  filter.EqualsAny(func(s api.Server) string { return s.Status }),
			"healthy": filter.EqualsBool(func(s api.Server) bool { return s.IsHealthy }),
		}),
	}
}

// NewServersCmd creates the command that lists the gateway's pool.
func NewServersCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	clientCmd, err := newGatewayClientCmd(baseCmd, opt...)
	if err != nil {
		return nil, err
	}

	c := &ServersCmd{gatewayClientCmd: clientCmd}

	cobraCmd := &cobra.Command{
		Use:   "servers",
		Short: "Lists the backend servers registered with a gateway",
		Long:  "Lists the backend servers registered with a gateway along with their health",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}

	c.addFlags(cobraCmd)
	cobraCmd.Flags().StringToStringVar(
		&c.Filters,
		flagFilter,
		nil,
		"Only list servers matching key=value (keys: id, ip, port, status, healthy), can be repeated",
	)

	return cobraCmd, nil
}

func (c *ServersCmd) run(cobraCmd *cobra.Command, _ []string) error {
	handler, err := cmd.NewOutputHandler[api.PoolSummary](
		c.Format,
		cobraCmd.OutOrStdout(),
		printer.NewPoolPrinter(printer.NewServerPrinter()),
	)
	if err != nil {
		return err
	}

	secret, source, err := c.resolveSecret()
	if err != nil {
		return reportError(handler, err)
	}

	// Listing only needs a secret when one was deliberately configured.
	if source == config.SecretSourceDefault {
		secret = ""
	}

	client, err := c.client(secret)
	if err != nil {
		return reportError(handler, err)
	}

	pool, err := client.Servers(cobraCmd.Context())
	if err != nil {
		return reportError(handler, err)
	}

	selected, err := filter.Select(pool.Servers, c.Filters, serverFilters()...)
	if err != nil {
		return reportError(handler, fmt.Errorf("invalid --%s: %w", flagFilter, err))
	}
	pool.Servers = selected

	return handler.HandleResult(pool)
}
