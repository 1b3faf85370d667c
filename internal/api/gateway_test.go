package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

func TestHandleGatewayHealth(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)

	resp, err := handleGatewayHealth(reg)
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, resp.Status)
	require.Equal(t, GatewayStatusUnhealthy, resp.Body.Status)
	require.Zero(t, resp.Body.TotalServers)

	srv, err := reg.Register("10.0.0.1", 8000, testSecret)
	require.NoError(t, err)

	resp, err = handleGatewayHealth(reg)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	require.Equal(t, GatewayStatusHealthy, resp.Body.Status)
	require.Equal(t, 1, resp.Body.HealthyServers)
	require.Equal(t, 1, resp.Body.TotalServers)

	for range 3 {
		reg.ApplyProbe(srv.ID, false, 3, time.Now())
	}

	resp, err = handleGatewayHealth(reg)
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, resp.Status)
	require.Zero(t, resp.Body.HealthyServers)
	require.Equal(t, 1, resp.Body.TotalServers)
}

func TestHandleGatewayInfo_CopiesEndpoints(t *testing.T) {
	t.Parallel()

	endpoints := Endpoints("/api/v1")
	resp, err := handleGatewayInfo(GatewayInfo{Name: "gatewayd", Version: "v1.2.3"}, endpoints)
	require.NoError(t, err)
	require.Equal(t, "gatewayd", resp.Body.Name)
	require.Equal(t, "v1.2.3", resp.Body.Version)
	require.Equal(t, endpoints, resp.Body.Endpoints)

	resp.Body.Endpoints["health"] = "/elsewhere"
	require.Equal(t, "/api/v1/health", endpoints["health"])
}

func TestGatewayRoutes(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	api := testAPI(t, reg, WebhookOptions{})

	resp := api.Get("/api/v1/health")
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	require.Equal(t, "unhealthy", decode(t, resp.Body.String())["status"])

	_, err := reg.Register("10.0.0.1", 8000, testSecret)
	require.NoError(t, err)

	resp = api.Get("/api/v1/health")
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode(t, resp.Body.String())
	require.Equal(t, "healthy", body["status"])
	require.EqualValues(t, 1, body["healthy_servers"])

	resp = api.Get("/api/v1/info")
	require.Equal(t, http.StatusOK, resp.Code)
	body = decode(t, resp.Body.String())
	require.Equal(t, "gatewayd", body["name"])
	require.Equal(t, "test", body["version"])
	endpoints, ok := body["endpoints"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "/webhook/register", endpoints["register"])
}

func TestRegisterRoutes_Validation(t *testing.T) {
	t.Parallel()

	_, api := humatest.New(t)
	reg := testRegistry(t)

	_, err := RegisterRoutes(nil, RouteDependencies{})
	require.Error(t, err)

	_, err = RegisterRoutes(api, RouteDependencies{Registry: reg, Monitor: &fakeMonitor{}})
	require.EqualError(t, err, "logger cannot be nil")

	_, err = RegisterRoutes(api, RouteDependencies{Logger: hclog.NewNullLogger(), Monitor: &fakeMonitor{}})
	require.EqualError(t, err, "registry cannot be nil")

	_, err = RegisterRoutes(api, RouteDependencies{Logger: hclog.NewNullLogger(), Registry: reg})
	require.EqualError(t, err, "monitor status cannot be nil")

	prefix, err := RegisterRoutes(api, RouteDependencies{
		Logger:   hclog.NewNullLogger(),
		Registry: reg,
		Monitor:  &fakeMonitor{},
	})
	require.NoError(t, err)
	require.Equal(t, "/api/v1", prefix)
}
