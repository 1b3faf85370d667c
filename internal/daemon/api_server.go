package daemon

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hashicorp/go-hclog"

	"github.com/gpupool/gatewayd/internal/api"
	"github.com/gpupool/gatewayd/internal/cmd"
	"github.com/gpupool/gatewayd/internal/contracts"
	"github.com/gpupool/gatewayd/internal/proxy"
)

// APIServer manages the HTTP API for the daemon.
// NewAPIServer should be used to create instances of APIServer.
type APIServer struct {
	// Logger for API server operations.
	logger hclog.Logger

	// Registry holds the registered backend servers.
	registry contracts.ServerRegistry

	// Monitor reports whether background health checks are running.
	monitor contracts.MonitorStatus

	// Selector picks the backend server for forwarded requests.
	selector contracts.BackendSelector

	// Addr specifies the network address to bind.
	addr string

	// CORS configuration for cross-origin requests.
	cors CORSConfig

	// ShutdownTimeout specifies how long to wait for graceful shutdown.
	shutdownTimeout time.Duration

	// ListRequiresSecret rejects pool listing requests without the shared secret.
	listRequiresSecret bool

	// ProxyTimeout bounds each forwarded request.
	proxyTimeout time.Duration

	// ProxyTransport reaches backend servers.
	proxyTransport http.RoundTripper
}

// NewAPIServer creates a new API server with the provided dependencies and options.
// Applies default options first, then user-provided options to ensure all fields have valid values.
func NewAPIServer(deps APIDependencies, opt ...APIOption) (*APIServer, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies for API server: %w", err)
	}

	// Ensure we always start with defaults and apply user options on top.
	apiOpts, err := NewAPIOptions(opt...)
	if err != nil {
		return nil, fmt.Errorf("invalid API options: %w", err)
	}

	return &APIServer{
		logger:             deps.Logger.Named("api"),
		registry:           deps.Registry,
		monitor:            deps.Monitor,
		selector:           deps.Selector,
		addr:               deps.Addr,
		cors:               apiOpts.CORS,
		shutdownTimeout:    apiOpts.ShutdownTimeout,
		listRequiresSecret: apiOpts.ListRequiresSecret,
		proxyTimeout:       apiOpts.ProxyTimeout,
		proxyTransport:     apiOpts.ProxyTransport,
	}, nil
}

// Handler builds the router serving the webhook, gateway and forwarding routes.
func (a *APIServer) Handler() (http.Handler, error) {
	mux := chi.NewMux()
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)

	// Add CORS middleware if enabled.
	if a.cors.Enabled {
		a.applyCORS(mux)
	}

	config := huma.DefaultConfig("gatewayd docs", cmd.Version())
	// Keep response bodies to their documented fields (no $schema links).
	config.CreateHooks = nil
	router := humachi.New(mux, config)

	// Configure the error handling wrapping.
	api.InstallErrorHandler(a.logger)

	apiPathPrefix, err := api.RegisterRoutes(router, api.RouteDependencies{
		Logger:   a.logger,
		Registry: a.registry,
		Monitor:  a.monitor,
		Info:     api.GatewayInfo{Name: cmd.AppName(), Version: cmd.Version()},
		Webhook:  api.WebhookOptions{ListRequiresSecret: a.listRequiresSecret},
	})
	if err != nil {
		return nil, err
	}

	forwarder, err := proxy.NewForwarder(a.logger, a.selector, a.proxyTransport, a.proxyTimeout)
	if err != nil {
		return nil, err
	}
	mux.Handle(apiPathPrefix+"/*", forwarder)

	return mux, nil
}

// Start starts the API server and blocks until the context is canceled or an error occurs.
func (a *APIServer) Start(ctx context.Context) error {
	handler, err := a.Handler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)

	// Start the API.
	go func() {
		a.logger.Info("Starting API server", "address", a.addr)
		if a.cors.Enabled {
			a.logger.Info("CORS enabled", "origins", a.cors.AllowOrigins)
		}
		if err := srv.ListenAndServe(); err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Handle graceful shutdown.
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()
		a.logger.Info("Shutting down API server...")
		_ = srv.Shutdown(shutdownCtx)
		a.logger.Info("Shutdown complete")
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// applyCORS applies CORS middleware to the router based on the configured options.
func (a *APIServer) applyCORS(mux *chi.Mux) {
	a.logger.Info("Enabling CORS", "origins", a.cors.AllowOrigins)

	corsOptions := cors.Options{
		AllowedOrigins:   a.cors.AllowOrigins,
		AllowedMethods:   a.cors.AllowMethods,
		AllowedHeaders:   a.cors.AllowedHeaders,
		ExposedHeaders:   a.cors.ExposedHeaders,
		AllowCredentials: a.cors.AllowCredentials,
		MaxAge:           int(a.cors.MaxAge.Seconds()),
	}

	// Handle wildcard origins properly.
	origins := make([]string, 0, len(corsOptions.AllowedOrigins))
	for _, origin := range corsOptions.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			origins = []string{"*"}
			corsOptions.AllowCredentials = false
			break
		}
		origins = append(origins, origin)
	}
	corsOptions.AllowedOrigins = origins

	mux.Use(cors.Handler(corsOptions))
}
