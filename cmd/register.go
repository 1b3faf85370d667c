package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gpupool/gatewayd/internal/cmd"
	cmdopts "github.com/gpupool/gatewayd/internal/cmd/options"
	"github.com/gpupool/gatewayd/internal/printer"
	"github.com/gpupool/gatewayd/internal/webhook"
)

const (
	flagNameIP   = "ip"
	flagNamePort = "port"
)

// RegistrationCmd should be used to represent the 'register' and 'unregister' commands.
type RegistrationCmd struct {
	*gatewayClientCmd
	IP   string
	Port int

	call func(ctx context.Context, client *webhook.Client, ip string, port int) (webhook.Registration, error)
}

// NewRegisterCmd creates the command a worker uses to join the pool.
func NewRegisterCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	return newRegistrationCmd(
		baseCmd,
		&cobra.Command{
			Use:   "register --ip <host> --port <port>",
			Short: "Registers a backend server with a gateway",
			Long:  "Registers the GPU server reachable at --ip and --port with the gateway, re-registering refreshes its health",
		},
		func(ctx context.Context, client *webhook.Client, ip string, port int) (webhook.Registration, error) {
			return client.Register(ctx, ip, port)
		},
		opt...,
	)
}

// NewUnregisterCmd creates the command a worker uses to leave the pool.
func NewUnregisterCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	return newRegistrationCmd(
		baseCmd,
		&cobra.Command{
			Use:   "unregister --ip <host> --port <port>",
			Short: "Removes a backend server from a gateway",
			Long:  "Removes the GPU server registered at --ip and --port from the gateway's pool",
		},
		func(ctx context.Context, client *webhook.Client, ip string, port int) (webhook.Registration, error) {
			return client.Unregister(ctx, ip, port)
		},
		opt...,
	)
}

func newRegistrationCmd(
	baseCmd *cmd.BaseCmd,
	cobraCmd *cobra.Command,
	call func(ctx context.Context, client *webhook.Client, ip string, port int) (webhook.Registration, error),
	opt ...cmdopts.CmdOption,
) (*cobra.Command, error) {
	clientCmd, err := newGatewayClientCmd(baseCmd, opt...)
	if err != nil {
		return nil, err
	}

	c := &RegistrationCmd{
		gatewayClientCmd: clientCmd,
		call:             call,
	}

	cobraCmd.Args = cobra.NoArgs
	cobraCmd.RunE = c.run

	c.addFlags(cobraCmd)

	cobraCmd.Flags().StringVar(&c.IP, flagNameIP, "", "Host the backend server is reachable at")
	cobraCmd.Flags().IntVar(&c.Port, flagNamePort, 0, "Port the backend server listens on")

	_ = cobraCmd.MarkFlagRequired(flagNameIP)
	_ = cobraCmd.MarkFlagRequired(flagNamePort)

	return cobraCmd, nil
}

func (c *RegistrationCmd) run(cobraCmd *cobra.Command, _ []string) error {
	handler, err := cmd.NewOutputHandler[webhook.Registration](
		c.Format,
		cobraCmd.OutOrStdout(),
		printer.NewRegistrationPrinter(),
	)
	if err != nil {
		return err
	}

	ip := strings.TrimSpace(c.IP)
	if ip == "" {
		return reportError(handler, fmt.Errorf("--%s cannot be empty", flagNameIP))
	}
	if c.Port < 1 || c.Port > 65535 {
		return reportError(handler, fmt.Errorf("--%s must be between 1 and 65535, got %d", flagNamePort, c.Port))
	}

	secret, source, err := c.resolveSecret()
	if err != nil {
		return reportError(handler, err)
	}
	c.Logger().Debug("Webhook secret resolved", "source", source)

	client, err := c.client(secret)
	if err != nil {
		return reportError(handler, err)
	}

	reg, err := c.call(cobraCmd.Context(), client, ip, c.Port)
	if err != nil {
		return reportError(handler, err)
	}

	return handler.HandleResult(reg)
}
