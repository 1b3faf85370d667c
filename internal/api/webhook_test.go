package api

import (
	"encoding/json"
	stdErrors "errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/gpupool/gatewayd/internal/domain"
	"github.com/gpupool/gatewayd/internal/errors"
	"github.com/gpupool/gatewayd/internal/registry"
)

const testSecret = "test-secret"

// fakeMonitor implements contracts.MonitorStatus for testing.
type fakeMonitor struct {
	running bool
}

func (f *fakeMonitor) Running() bool {
	return f.running
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	reg, err := registry.NewRegistry(hclog.NewNullLogger(), nil, testSecret)
	require.NoError(t, err)
	return reg
}

func testAPI(t *testing.T, reg *registry.Registry, opts WebhookOptions) humatest.TestAPI {
	t.Helper()

	InstallErrorHandler(hclog.NewNullLogger())

	_, api := humatest.New(t)
	_, err := RegisterRoutes(api, RouteDependencies{
		Logger:   hclog.NewNullLogger(),
		Registry: reg,
		Monitor:  &fakeMonitor{running: reg.Len() > 0},
		Info:     GatewayInfo{Name: "gatewayd", Version: "test"},
		Webhook:  opts,
	})
	require.NoError(t, err)
	return api
}

func decode(t *testing.T, body string) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

func ptr[T any](v T) *T {
	return &v
}

func webhookRequest(ip *string, port *int, secret *string) *WebhookRequest {
	req := &WebhookRequest{}
	req.Body.IP = ip
	req.Body.Port = port
	req.Body.Secret = secret
	return req
}

func TestHandleRegister(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)

	resp, err := handleRegister(reg, webhookRequest(ptr("10.0.0.1"), ptr(8000), ptr(testSecret)))
	require.NoError(t, err)
	require.True(t, resp.Body.Success)
	require.Equal(t, "GPU-001", resp.Body.ServerID)
	require.Equal(t, "10.0.0.1", resp.Body.IP)
	require.Equal(t, 8000, resp.Body.Port)
	require.NotEmpty(t, resp.Body.Message)
}

func TestHandleRegister_MissingFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     *WebhookRequest
		missing string
	}{
		{name: "nil request", req: nil, missing: "empty"},
		{name: "missing ip", req: webhookRequest(nil, ptr(8000), ptr(testSecret)), missing: "ip"},
		{name: "missing port", req: webhookRequest(ptr("10.0.0.1"), nil, ptr(testSecret)), missing: "port"},
		{name: "missing secret", req: webhookRequest(ptr("10.0.0.1"), ptr(8000), nil), missing: "secret"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			reg := testRegistry(t)
			_, err := handleRegister(reg, tc.req)
			require.Error(t, err)
			require.True(t, stdErrors.Is(err, errors.ErrBadRequest))
			require.Contains(t, err.Error(), tc.missing)
			require.Zero(t, reg.Len())
		})
	}
}

func TestHandleUnregister(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	_, err := reg.Register("10.0.0.1", 8000, testSecret)
	require.NoError(t, err)

	_, err = handleUnregister(reg, webhookRequest(ptr("10.0.0.1"), ptr(8000), ptr("wrong")))
	require.True(t, stdErrors.Is(err, errors.ErrUnauthorized))

	_, err = handleUnregister(reg, webhookRequest(ptr("10.0.0.2"), ptr(8000), ptr(testSecret)))
	require.True(t, stdErrors.Is(err, errors.ErrServerNotFound))

	resp, err := handleUnregister(reg, webhookRequest(ptr("10.0.0.1"), ptr(8000), ptr(testSecret)))
	require.NoError(t, err)
	require.True(t, resp.Body.Success)
	require.Equal(t, "GPU-001", resp.Body.ServerID)
	require.Zero(t, reg.Len())
}

func TestHandleListServers(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	a, err := reg.Register("10.0.0.1", 8000, testSecret)
	require.NoError(t, err)
	_, err = reg.Register("10.0.0.2", 8000, testSecret)
	require.NoError(t, err)
	for range 3 {
		reg.ApplyProbe(a.ID, false, 3, time.Now())
	}

	tests := []struct {
		name    string
		opts    WebhookOptions
		secret  string
		wantErr bool
	}{
		{name: "no secret allowed", secret: ""},
		{name: "valid secret", secret: testSecret},
		{name: "invalid secret", secret: "nope", wantErr: true},
		{name: "secret required but omitted", opts: WebhookOptions{ListRequiresSecret: true}, wantErr: true},
		{name: "secret required and supplied", opts: WebhookOptions{ListRequiresSecret: true}, secret: testSecret},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			resp, err := handleListServers(reg, &fakeMonitor{running: true}, tc.opts, tc.secret)
			if tc.wantErr {
				require.True(t, stdErrors.Is(err, errors.ErrUnauthorized))
				return
			}
			require.NoError(t, err)
			require.True(t, resp.Body.Success)

			data := resp.Body.Data
			require.Equal(t, 2, data.TotalServers)
			require.Equal(t, 1, data.HealthyServers)
			require.Equal(t, 1, data.UnhealthyServers)
			require.True(t, data.MonitorRunning)
			require.Len(t, data.Servers, 2)
			require.Equal(t, "GPU-001", data.Servers[0].ID)
			require.False(t, data.Servers[0].IsHealthy)
			require.Equal(t, string(domain.HealthStatusUnhealthy), data.Servers[0].Status)
			require.Equal(t, 3, data.Servers[0].FailCount)
			require.Equal(t, "http://10.0.0.2:8000", data.Servers[1].URL)
			require.Equal(t, string(domain.HealthStatusUnknown), data.Servers[1].Status)
		})
	}
}

func TestDomainServer_ToAPIType(t *testing.T) {
	t.Parallel()

	checked := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	srv := domain.NewServer("GPU-007", "gpu-7.internal", 9000)
	srv.LastCheckedAt = &checked

	got, err := DomainServer(srv).ToAPIType()
	require.NoError(t, err)
	require.Equal(t, Server{
		ID:            "GPU-007",
		IP:            "gpu-7.internal",
		Port:          9000,
		URL:           "http://gpu-7.internal:9000",
		IsHealthy:     true,
		Status:        "healthy",
		FailCount:     0,
		LastCheckTime: &checked,
	}, got)
}

func TestWebhookRoutes_Register(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	api := testAPI(t, reg, WebhookOptions{})

	resp := api.Post("/webhook/register", map[string]any{"ip": "10.0.0.1", "port": 8000, "secret": testSecret})
	require.Equal(t, http.StatusOK, resp.Code)

	body := decode(t, resp.Body.String())
	require.Equal(t, true, body["success"])
	require.Equal(t, "GPU-001", body["server_id"])
	require.Equal(t, "10.0.0.1", body["ip"])
	require.EqualValues(t, 8000, body["port"])

	// Re-registration keeps the identifier.
	resp = api.Post("/webhook/register", map[string]any{"ip": "10.0.0.1", "port": 8000, "secret": testSecret})
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "GPU-001", decode(t, resp.Body.String())["server_id"])
	require.Equal(t, 1, reg.Len())
}

func TestWebhookRoutes_RegisterFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		body           any
		expectedStatus int
	}{
		{
			name:           "bad secret",
			body:           map[string]any{"ip": "10.0.0.1", "port": 8000, "secret": "wrong"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing ip",
			body:           map[string]any{"port": 8000, "secret": testSecret},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing secret",
			body:           map[string]any{"ip": "10.0.0.1", "port": 8000},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "port out of range",
			body:           map[string]any{"ip": "10.0.0.1", "port": 70000, "secret": testSecret},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "port has the wrong type",
			body:           map[string]any{"ip": "10.0.0.1", "port": "eighty", "secret": testSecret},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed json",
			body:           strings.NewReader(`{"ip": "10.0.0.1",`),
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			reg := testRegistry(t)
			api := testAPI(t, reg, WebhookOptions{})

			resp := api.Post("/webhook/register", tc.body)
			require.Equal(t, tc.expectedStatus, resp.Code, resp.Body.String())

			body := decode(t, resp.Body.String())
			require.Equal(t, false, body["success"])
			require.NotEmpty(t, body["error"])
			require.Zero(t, reg.Len())
		})
	}
}

func TestWebhookRoutes_RegisterIgnoresUnknownFields(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	api := testAPI(t, reg, WebhookOptions{})

	resp := api.Post("/webhook/register", map[string]any{
		"server_id": "GPU-500",
		"ip":        "10.0.0.1",
		"port":      8000,
		"secret":    testSecret,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Equal(t, "GPU-001", decode(t, resp.Body.String())["server_id"])
}

func TestWebhookRoutes_Unregister(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	api := testAPI(t, reg, WebhookOptions{})

	resp := api.Post("/webhook/register", map[string]any{"ip": "10.0.0.1", "port": 8000, "secret": testSecret})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = api.Post("/webhook/unregister", map[string]any{"ip": "10.0.0.1", "port": 8000, "secret": "wrong"})
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = api.Post("/webhook/unregister", map[string]any{"ip": "10.0.0.9", "port": 8000, "secret": testSecret})
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Equal(t, false, decode(t, resp.Body.String())["success"])

	resp = api.Post("/webhook/unregister", map[string]any{"ip": "10.0.0.1", "secret": testSecret})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = api.Post("/webhook/unregister", map[string]any{"ip": "10.0.0.1", "port": 8000, "secret": testSecret})
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode(t, resp.Body.String())
	require.Equal(t, true, body["success"])
	require.Equal(t, "GPU-001", body["server_id"])
	require.Zero(t, reg.Len())
}

func TestWebhookRoutes_ListServers(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	_, err := reg.Register("10.0.0.1", 8000, testSecret)
	require.NoError(t, err)
	api := testAPI(t, reg, WebhookOptions{})

	resp := api.Get("/webhook/servers")
	require.Equal(t, http.StatusOK, resp.Code)

	body := decode(t, resp.Body.String())
	require.Equal(t, true, body["success"])
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 1, data["total_servers"])
	require.EqualValues(t, 1, data["healthy_servers"])
	require.EqualValues(t, 0, data["unhealthy_servers"])
	require.Equal(t, true, data["monitor_running"])
	servers, ok := data["servers"].([]any)
	require.True(t, ok)
	require.Len(t, servers, 1)

	resp = api.Get("/webhook/servers?secret=" + testSecret)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = api.Get("/webhook/servers?secret=wrong")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestWebhookRoutes_ListServersRequiresSecret(t *testing.T) {
	t.Parallel()

	api := testAPI(t, testRegistry(t), WebhookOptions{ListRequiresSecret: true})

	resp := api.Get("/webhook/servers")
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = api.Get("/webhook/servers?secret=" + testSecret)
	require.Equal(t, http.StatusOK, resp.Code)
	data := decode(t, resp.Body.String())["data"].(map[string]any)
	require.EqualValues(t, 0, data["total_servers"])
	require.Equal(t, false, data["monitor_running"])
}
