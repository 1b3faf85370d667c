//go:build docsgen_api
// +build docsgen_api

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"

	"github.com/gpupool/gatewayd/internal/api"
	"github.com/gpupool/gatewayd/internal/cmd"
	"github.com/gpupool/gatewayd/internal/perms"
	"github.com/gpupool/gatewayd/internal/registry"
)

// stubMonitor reports a stopped health monitor for documentation generation.
type stubMonitor struct{}

func (s *stubMonitor) Running() bool { return false }

// main generates the OpenAPI specification for the gateway API.
// It assumes it is run from the repository root.
func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "gatewayd.docsgen.api",
		Level:  hclog.Info,
		Output: os.Stderr,
	})

	// Output path for the OpenAPI spec, relative to the repository root.
	outputPath := "./docs/api/openapi.yaml"

	// Create a chi router (same as the daemon).
	mux := chi.NewMux()
	mux.Use(middleware.StripSlashes)

	// Create Huma config and router (same as the daemon).
	config := huma.DefaultConfig("gatewayd docs", cmd.Version())
	config.CreateHooks = nil
	router := humachi.New(mux, config)

	// An empty in-memory registry, the spec only needs the route definitions.
	reg, err := registry.NewRegistry(logger, nil, "docsgen")
	if err != nil {
		logger.Error("failed to create registry", "error", err)
		os.Exit(1)
	}

	apiPathPrefix, err := api.RegisterRoutes(router, api.RouteDependencies{
		Logger:   logger,
		Registry: reg,
		Monitor:  &stubMonitor{},
		Info:     api.GatewayInfo{Name: cmd.AppName(), Version: cmd.Version()},
	})
	if err != nil {
		logger.Error("failed to register API routes", "error", err)
		os.Exit(1)
	}

	logger.Info("Routes registered", "prefix", apiPathPrefix)

	// Get the OpenAPI spec as YAML.
	yamlBytes, err := router.OpenAPI().YAML()
	if err != nil {
		logger.Error("failed to generate OpenAPI YAML", "error", err)
		os.Exit(1)
	}

	// Ensure the docs directory exists.
	docsDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(docsDir, perms.RegularDir); err != nil {
		logger.Error("failed to create docs directory", "path", docsDir, "error", err)
		os.Exit(1)
	}

	// Write the YAML to the output file.
	if err := os.WriteFile(outputPath, yamlBytes, perms.RegularFile); err != nil {
		logger.Error("failed to write OpenAPI spec", "path", outputPath, "error", err)
		os.Exit(1)
	}

	logger.Info("OpenAPI spec generated", "path", outputPath, "size", fmt.Sprintf("%d bytes", len(yamlBytes)))
}
