package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gpupool/gatewayd/internal/contracts"
)

const (
	GatewayStatusHealthy   GatewayStatus = "healthy"
	GatewayStatusUnhealthy GatewayStatus = "unhealthy"
)

// GatewayStatus reports whether the gateway can currently route requests.
type GatewayStatus string

// GatewayInfo describes the running gateway.
type GatewayInfo struct {
	Name    string
	Version string
}

// GatewayHealthResponse is the response for GET /health.
type GatewayHealthResponse struct {
	Status int
	Body   struct {
		Status         GatewayStatus `json:"status"          enum:"healthy,unhealthy"`
		HealthyServers int           `json:"healthy_servers"`
		TotalServers   int           `json:"total_servers"`
	}
}

// GatewayInfoResponse is the response for GET /info.
type GatewayInfoResponse struct {
	Body struct {
		Name      string            `json:"name"`
		Version   string            `json:"version"`
		Endpoints map[string]string `json:"endpoints" doc:"Paths served by the gateway"`
	}
}

// RegisterGatewayRoutes sets up the gateway's own health and information endpoints.
// endpoints lists the paths advertised by the info endpoint.
func RegisterGatewayRoutes(
	routerAPI huma.API,
	reg contracts.ServerRegistry,
	info GatewayInfo,
	endpoints map[string]string,
) {
	tags := []string{"Gateway"}

	huma.Register(
		routerAPI,
		huma.Operation{
			OperationID: "getGatewayHealth",
			Method:      http.MethodGet,
			Path:        "/health",
			Summary:     "Report whether any backend can serve requests",
			Tags:        tags,
		},
		func(ctx context.Context, _ *struct{}) (*GatewayHealthResponse, error) {
			return handleGatewayHealth(reg)
		},
	)

	huma.Register(
		routerAPI,
		huma.Operation{
			OperationID: "getGatewayInfo",
			Method:      http.MethodGet,
			Path:        "/info",
			Summary:     "Describe the gateway",
			Tags:        tags,
		},
		func(ctx context.Context, _ *struct{}) (*GatewayInfoResponse, error) {
			return handleGatewayInfo(info, endpoints)
		},
	)
}

// handleGatewayHealth is healthy when at least one backend is selectable.
func handleGatewayHealth(reg contracts.ServerRegistry) (*GatewayHealthResponse, error) {
	stats := reg.Stats()

	resp := &GatewayHealthResponse{Status: http.StatusOK}
	resp.Body.Status = GatewayStatusHealthy
	resp.Body.HealthyServers = stats.Healthy
	resp.Body.TotalServers = stats.Total

	if stats.Healthy == 0 {
		resp.Status = http.StatusServiceUnavailable
		resp.Body.Status = GatewayStatusUnhealthy
	}

	return resp, nil
}

func handleGatewayInfo(info GatewayInfo, endpoints map[string]string) (*GatewayInfoResponse, error) {
	resp := &GatewayInfoResponse{}
	resp.Body.Name = info.Name
	resp.Body.Version = info.Version
	resp.Body.Endpoints = make(map[string]string, len(endpoints))
	for name, path := range endpoints {
		resp.Body.Endpoints[name] = path
	}

	return resp, nil
}
