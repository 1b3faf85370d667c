package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gpupool/gatewayd/internal/cmd"
	"github.com/gpupool/gatewayd/internal/cmd/output"
	cmdopts "github.com/gpupool/gatewayd/internal/cmd/options"
	"github.com/gpupool/gatewayd/internal/config"
	"github.com/gpupool/gatewayd/internal/webhook"
)

const (
	// EnvVarGatewayURL provides the default for --gateway.
	EnvVarGatewayURL = "GATEWAYD_URL"

	defaultGatewayURL = "http://localhost:8080"

	flagNameGateway = "gateway"
	flagNameSecret  = "secret"
	flagNameFormat  = "format"
)

// gatewayClientCmd holds what every command that talks to a running gateway needs.
type gatewayClientCmd struct {
	*cmd.BaseCmd
	Gateway string
	Secret  string
	Format  cmd.OutputFormat

	opts cmdopts.CmdOptions
}

func newGatewayClientCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*gatewayClientCmd, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	gateway := defaultGatewayURL
	if v, ok := opts.LookupEnv(EnvVarGatewayURL); ok && strings.TrimSpace(v) != "" {
		gateway = strings.TrimSpace(v)
	}

	return &gatewayClientCmd{
		BaseCmd: baseCmd,
		Gateway: gateway,
		Format:  cmd.FormatText,
		opts:    opts,
	}, nil
}

func (c *gatewayClientCmd) addFlags(cobraCmd *cobra.Command) {
	cobraCmd.Flags().StringVar(
		&c.Gateway,
		flagNameGateway,
		c.Gateway,
		"Base URL of the gateway (can also be set via "+EnvVarGatewayURL+")",
	)

	cobraCmd.Flags().StringVar(
		&c.Secret,
		flagNameSecret,
		"",
		"Shared webhook secret (defaults to "+config.EnvVarWebhookSecret+", then webhook.secret in the config file)",
	)

	cobraCmd.Flags().Var(
		&c.Format,
		flagNameFormat,
		fmt.Sprintf("Specify the output format (one of: %s)", cmd.AllowedOutputFormats().String()),
	)
}

// resolveSecret prefers --secret, then WEBHOOK_SECRET, then the config file, then the built-in default.
func (c *gatewayClientCmd) resolveSecret() (string, config.SecretSource, error) {
	if s := strings.TrimSpace(c.Secret); s != "" {
		return s, config.SecretSourceFlag, nil
	}

	cfg, err := c.LoadConfig(c.opts.ConfigLoader)
	if err != nil {
		return "", "", err
	}

	secret, source := config.ResolveWebhookSecret(cfg, c.opts.LookupEnv)
	return secret, source, nil
}

func (c *gatewayClientCmd) client(secret string) (*webhook.Client, error) {
	var clientOpts []webhook.ClientOption
	if c.opts.HTTPClient != nil {
		clientOpts = append(clientOpts, webhook.WithHTTPClient(c.opts.HTTPClient))
	}

	return webhook.NewClient(c.Gateway, secret, clientOpts...)
}

// reportError renders err with the handler and always fails the command.
func reportError[T any](handler output.Handler[T], err error) error {
	if hErr := handler.HandleError(err); hErr != nil {
		return hErr
	}
	return err
}
