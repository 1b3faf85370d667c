package api

import (
	"fmt"
	"net/url"
	"reflect"

	"github.com/danielgtaylor/huma/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/gpupool/gatewayd/internal/contracts"
)

// APIVersion is the version used in the OpenAPI spec and URL paths.
const APIVersion = "v1"

// WebhookPathPrefix is the prefix for the routes workers use to join and leave the pool.
const WebhookPathPrefix = "/webhook"

// RouteDependencies contains what the gateway routes read from and write to.
type RouteDependencies struct {
	Logger   hclog.Logger
	Registry contracts.ServerRegistry
	Monitor  contracts.MonitorStatus
	Info     GatewayInfo
	Webhook  WebhookOptions
}

// Validate ensures all required dependencies are provided.
func (d RouteDependencies) Validate() error {
	if d.Logger == nil || reflect.ValueOf(d.Logger).IsNil() {
		return fmt.Errorf("logger cannot be nil")
	}
	if d.Registry == nil || reflect.ValueOf(d.Registry).IsNil() {
		return fmt.Errorf("registry cannot be nil")
	}
	if d.Monitor == nil || reflect.ValueOf(d.Monitor).IsNil() {
		return fmt.Errorf("monitor status cannot be nil")
	}
	return nil
}

// RegisterRoutes registers all API routes on the provided Huma router.
// This is the single source of truth for the API route structure.
// Returns the versioned API path prefix (e.g., "/api/v1") under which the gateway routes are created.
func RegisterRoutes(router huma.API, deps RouteDependencies) (string, error) {
	if router == nil || reflect.ValueOf(router).IsNil() {
		return "", fmt.Errorf("router cannot be nil")
	}
	if err := deps.Validate(); err != nil {
		return "", err
	}

	// Safe way to ensure /api/{version}.
	apiPathPrefix, err := url.JoinPath("/api", APIVersion)
	if err != nil {
		return "", fmt.Errorf("failed to construct API path prefix: %w", err)
	}

	RegisterWebhookRoutes(router, deps.Logger, deps.Registry, deps.Monitor, deps.Webhook, WebhookPathPrefix)

	versionedGroup := huma.NewGroup(router, apiPathPrefix)
	RegisterGatewayRoutes(versionedGroup, deps.Registry, deps.Info, Endpoints(apiPathPrefix))

	return apiPathPrefix, nil
}

// Endpoints returns the public paths advertised by the info endpoint.
func Endpoints(apiPathPrefix string) map[string]string {
	return map[string]string{
		"health":     apiPathPrefix + "/health",
		"info":       apiPathPrefix + "/info",
		"proxy":      apiPathPrefix + "/*",
		"register":   WebhookPathPrefix + "/register",
		"unregister": WebhookPathPrefix + "/unregister",
		"servers":    WebhookPathPrefix + "/servers",
	}
}
