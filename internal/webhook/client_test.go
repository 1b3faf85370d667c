package webhook

import (
	"context"
	stdErrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/gpupool/gatewayd/internal/api"
	"github.com/gpupool/gatewayd/internal/errors"
	"github.com/gpupool/gatewayd/internal/registry"
)

const testSecret = "test-secret"

type alwaysRunning struct{}

func (alwaysRunning) Running() bool { return true }

// testGateway starts an in-process gateway serving the webhook routes.
func testGateway(t *testing.T, opts api.WebhookOptions) (*httptest.Server, *registry.Registry) {
	t.Helper()

	reg, err := registry.NewRegistry(hclog.NewNullLogger(), nil, testSecret)
	require.NoError(t, err)

	api.InstallErrorHandler(hclog.NewNullLogger())

	mux := chi.NewMux()
	router := humachi.New(mux, huma.DefaultConfig("gatewayd test", "test"))
	_, err = api.RegisterRoutes(router, api.RouteDependencies{
		Logger:   hclog.NewNullLogger(),
		Registry: reg,
		Monitor:  alwaysRunning{},
		Webhook:  opts,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return ts, reg
}

func TestNewClient_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
	}{
		{name: "empty", url: " "},
		{name: "no scheme", url: "gateway:8080"},
		{name: "unsupported scheme", url: "ftp://gateway"},
		{name: "no host", url: "http://"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewClient(tc.url, testSecret)
			require.Error(t, err)
		})
	}

	_, err := NewClient("http://gateway:8080", testSecret, WithHTTPClient(nil))
	require.Error(t, err)

	_, err = NewClient("http://gateway:8080", testSecret, WithTimeout(0))
	require.Error(t, err)

	c, err := NewClient("http://gateway:8080/", testSecret, nil)
	require.NoError(t, err)
	require.Equal(t, "http://gateway:8080/webhook/register", c.endpoint("register").String())
}

func TestClient_RoundTrip(t *testing.T) {
	t.Parallel()

	ts, reg := testGateway(t, api.WebhookOptions{ListRequiresSecret: true})
	ctx := context.Background()

	c, err := NewClient(ts.URL, testSecret, WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	first, err := c.Register(ctx, "10.0.0.1", 8000)
	require.NoError(t, err)
	require.True(t, first.Success)
	require.Equal(t, "GPU-001", first.ServerID)
	require.Equal(t, "10.0.0.1", first.IP)
	require.Equal(t, 8000, first.Port)

	second, err := c.Register(ctx, "10.0.0.2", 8000)
	require.NoError(t, err)
	require.Equal(t, "GPU-002", second.ServerID)

	summary, err := c.Servers(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, summary.TotalServers)
	require.Equal(t, 2, summary.HealthyServers)
	require.True(t, summary.MonitorRunning)
	require.Len(t, summary.Servers, 2)
	require.Equal(t, "http://10.0.0.2:8000", summary.Servers[1].URL)

	removed, err := c.Unregister(ctx, "10.0.0.1", 8000)
	require.NoError(t, err)
	require.Equal(t, "GPU-001", removed.ServerID)
	require.Equal(t, 1, reg.Len())

	_, err = c.Unregister(ctx, "10.0.0.1", 8000)
	require.Error(t, err)
	require.True(t, stdErrors.Is(err, errors.ErrServerNotFound))
}

func TestClient_BadSecret(t *testing.T) {
	t.Parallel()

	ts, reg := testGateway(t, api.WebhookOptions{})
	ctx := context.Background()

	c, err := NewClient(ts.URL, "wrong", WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	_, err = c.Register(ctx, "10.0.0.1", 8000)
	require.True(t, stdErrors.Is(err, errors.ErrUnauthorized))
	require.Contains(t, err.Error(), "secret verification failed")

	_, err = c.Servers(ctx)
	require.True(t, stdErrors.Is(err, errors.ErrUnauthorized))
	require.Zero(t, reg.Len())
}

func TestClient_BadRequest(t *testing.T) {
	t.Parallel()

	ts, _ := testGateway(t, api.WebhookOptions{})

	c, err := NewClient(ts.URL, testSecret, WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	_, err = c.Register(context.Background(), "10.0.0.1", 0)
	require.True(t, stdErrors.Is(err, errors.ErrBadRequest))
}

func TestResponseError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		contains string
	}{
		{name: "json failure", status: http.StatusNotFound, body: `{"success":false,"error":"server not found"}`, sentinel: errors.ErrServerNotFound, contains: "server not found"},
		{name: "plain text", status: http.StatusUnauthorized, body: "nope", sentinel: errors.ErrUnauthorized, contains: "nope"},
		{name: "registry full", status: http.StatusServiceUnavailable, body: `{"success":false,"error":"full"}`, sentinel: errors.ErrRegistryFull, contains: "full"},
		{name: "unmapped", status: http.StatusTeapot, body: "teapot", contains: "status 418"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := responseError(tc.status, []byte(tc.body))
			require.Error(t, err)
			if tc.sentinel != nil {
				require.True(t, stdErrors.Is(err, tc.sentinel))
			}
			require.Contains(t, err.Error(), tc.contains)
		})
	}
}
