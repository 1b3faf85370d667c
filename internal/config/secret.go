package config

import (
	"os"
	"strings"
)

const (
	// EnvVarWebhookSecret overrides the configured webhook secret.
	EnvVarWebhookSecret = "WEBHOOK_SECRET"

	// DefaultWebhookSecret is used when no secret is configured anywhere.
	// It is public knowledge, so the daemon warns whenever it is in effect.
	DefaultWebhookSecret = "gpu-server-register-to-api-gateway-2024"

	// DefaultStateFile is where registered servers are saved when nothing else is configured.
	DefaultStateFile = "backend_servers.json"
)

// SecretSource describes where the resolved webhook secret came from.
type SecretSource string

const (
	SecretSourceFlag    SecretSource = "flag"
	SecretSourceEnv     SecretSource = "environment"
	SecretSourceConfig  SecretSource = "config"
	SecretSourceDefault SecretSource = "default"
)

// LookupEnvFunc matches os.LookupEnv.
type LookupEnvFunc func(key string) (string, bool)

// ResolveWebhookSecret picks the webhook secret from the environment, then the config file, then the default.
// Blank values are skipped.
func ResolveWebhookSecret(cfg *Config, lookup LookupEnvFunc) (string, SecretSource) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if v, ok := lookup(EnvVarWebhookSecret); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), SecretSourceEnv
	}

	if cfg != nil && cfg.Webhook != nil && cfg.Webhook.Secret != nil {
		if v := strings.TrimSpace(*cfg.Webhook.Secret); v != "" {
			return v, SecretSourceConfig
		}
	}

	return DefaultWebhookSecret, SecretSourceDefault
}

// StateFileOrDefault returns the configured state file, or DefaultStateFile.
func (c *Config) StateFileOrDefault() string {
	if c == nil || c.State == nil || c.State.File == nil || strings.TrimSpace(*c.State.File) == "" {
		return DefaultStateFile
	}
	return strings.TrimSpace(*c.State.File)
}
