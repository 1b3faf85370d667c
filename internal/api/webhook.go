package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/gpupool/gatewayd/internal/contracts"
	"github.com/gpupool/gatewayd/internal/domain"
	"github.com/gpupool/gatewayd/internal/errors"
)

// DomainServer is a wrapper that allows receivers to be declared in the API package that deal with domain types.
type DomainServer domain.Server

// Server is the API representation of a registered backend server.
type Server struct {
	ID            string     `json:"server_id"                 yaml:"server_id"                 doc:"Gateway assigned identifier" example:"GPU-001"`
	IP            string     `json:"ip"                        yaml:"ip"                        doc:"Host the server registered with" example:"10.0.0.12"`
	Port          int        `json:"port"                      yaml:"port"                      doc:"Port the server registered with" example:"8000"`
	URL           string     `json:"url"                       yaml:"url"                       doc:"Base URL requests are forwarded to"`
	IsHealthy     bool       `json:"is_healthy"                yaml:"is_healthy"                doc:"Whether the server can be selected"`
	Status        string     `json:"status"                    yaml:"status"                    doc:"Health state" enum:"healthy,unhealthy,unknown"`
	FailCount     int        `json:"fail_count"                yaml:"fail_count"                doc:"Consecutive failed health checks"`
	LastCheckTime *time.Time `json:"last_check_time,omitempty" yaml:"last_check_time,omitempty" doc:"Time of the most recent health check"`
	LastUsedTime  *time.Time `json:"last_used_time,omitempty"  yaml:"last_used_time,omitempty"  doc:"Time the server was last selected"`
}

// PoolSummary describes the whole pool.
type PoolSummary struct {
	TotalServers     int      `json:"total_servers" yaml:"total_servers"`
	HealthyServers   int      `json:"healthy_servers" yaml:"healthy_servers"`
	UnhealthyServers int      `json:"unhealthy_servers" yaml:"unhealthy_servers"`
	MonitorRunning   bool     `json:"monitor_running" yaml:"monitor_running" doc:"Whether background health checks are active"`
	Servers          []Server `json:"servers" yaml:"servers"`
}

// WebhookRequest is the payload workers send to join or leave the pool.
// Fields are optional in the schema so that a missing field is reported as a 400 by the handler.
type WebhookRequest struct {
	Body struct {
		_      struct{} `json:"-" additionalProperties:"true"`
		IP     *string  `json:"ip,omitempty"     doc:"Host the worker is reachable at" example:"10.0.0.12"`
		Port   *int     `json:"port,omitempty"   doc:"Port the worker is listening on" example:"8000"`
		Secret *string  `json:"secret,omitempty" doc:"Shared webhook secret"`
	}
}

// RegisterResponse is the response for POST /webhook/register.
type RegisterResponse struct {
	Body struct {
		Success  bool   `json:"success"`
		Message  string `json:"message"`
		ServerID string `json:"server_id" example:"GPU-001"`
		IP       string `json:"ip"`
		Port     int    `json:"port"`
	}
}

// UnregisterResponse is the response for POST /webhook/unregister.
type UnregisterResponse struct {
	Body struct {
		Success  bool   `json:"success"`
		Message  string `json:"message"`
		ServerID string `json:"server_id" example:"GPU-001"`
	}
}

// ListServersRequest is the request for GET /webhook/servers.
type ListServersRequest struct {
	Secret string `query:"secret" doc:"Shared webhook secret"`
}

// ListServersResponse is the response for GET /webhook/servers.
type ListServersResponse struct {
	Body struct {
		Success bool        `json:"success"`
		Data    PoolSummary `json:"data"`
	}
}

// WebhookOptions configure the webhook routes.
type WebhookOptions struct {
	// ListRequiresSecret rejects listing requests that do not supply the shared secret.
	// When false, a supplied secret is still verified.
	ListRequiresSecret bool
}

// ToAPIType can be used to convert a wrapped domain type to an API-safe type.
func (d DomainServer) ToAPIType() (Server, error) {
	srv := domain.Server(d)

	return Server{
		ID:            srv.ID,
		IP:            srv.Host,
		Port:          srv.Port,
		URL:           srv.BaseURL(),
		IsHealthy:     srv.Healthy,
		Status:        string(srv.Status()),
		FailCount:     srv.ConsecutiveFailures,
		LastCheckTime: srv.LastCheckedAt,
		LastUsedTime:  srv.LastSelectedAt,
	}, nil
}

// RegisterWebhookRoutes sets up the endpoints workers use to join and leave the pool.
func RegisterWebhookRoutes(
	routerAPI huma.API,
	logger hclog.Logger,
	reg contracts.ServerRegistry,
	monitor contracts.MonitorStatus,
	opts WebhookOptions,
	apiPathPrefix string,
) {
	webhookAPI := huma.NewGroup(routerAPI, apiPathPrefix)
	tags := []string{"Webhook"}

	huma.Register(
		webhookAPI,
		huma.Operation{
			OperationID:   "registerServer",
			Method:        http.MethodPost,
			Path:          "/register",
			Summary:       "Register a backend server",
			Tags:          tags,
			DefaultStatus: http.StatusOK,
		},
		func(ctx context.Context, input *WebhookRequest) (*RegisterResponse, error) {
			resp, err := handleRegister(reg, input)
			if err != nil {
				return nil, MapError(logger, err)
			}
			return resp, nil
		},
	)

	huma.Register(
		webhookAPI,
		huma.Operation{
			OperationID:   "unregisterServer",
			Method:        http.MethodPost,
			Path:          "/unregister",
			Summary:       "Unregister a backend server",
			Tags:          tags,
			DefaultStatus: http.StatusOK,
		},
		func(ctx context.Context, input *WebhookRequest) (*UnregisterResponse, error) {
			resp, err := handleUnregister(reg, input)
			if err != nil {
				return nil, MapError(logger, err)
			}
			return resp, nil
		},
	)

	huma.Register(
		webhookAPI,
		huma.Operation{
			OperationID: "listServers",
			Method:      http.MethodGet,
			Path:        "/servers",
			Summary:     "List registered backend servers",
			Tags:        tags,
		},
		func(ctx context.Context, input *ListServersRequest) (*ListServersResponse, error) {
			resp, err := handleListServers(reg, monitor, opts, input.Secret)
			if err != nil {
				return nil, MapError(logger, err)
			}
			return resp, nil
		},
	)
}

// handleRegister adds the calling worker to the pool.
func handleRegister(reg contracts.ServerRegistry, input *WebhookRequest) (*RegisterResponse, error) {
	ip, port, secret, err := requireFields(input)
	if err != nil {
		return nil, err
	}

	srv, err := reg.Register(ip, port, secret)
	if err != nil {
		return nil, err
	}

	resp := &RegisterResponse{}
	resp.Body.Success = true
	resp.Body.Message = fmt.Sprintf("server %s registered", srv.ID)
	resp.Body.ServerID = srv.ID
	resp.Body.IP = srv.Host
	resp.Body.Port = srv.Port

	return resp, nil
}

// handleUnregister removes the calling worker from the pool.
func handleUnregister(reg contracts.ServerRegistry, input *WebhookRequest) (*UnregisterResponse, error) {
	ip, port, secret, err := requireFields(input)
	if err != nil {
		return nil, err
	}

	srv, err := reg.Deregister(ip, port, secret)
	if err != nil {
		return nil, err
	}

	resp := &UnregisterResponse{}
	resp.Body.Success = true
	resp.Body.Message = fmt.Sprintf("server %s unregistered", srv.ID)
	resp.Body.ServerID = srv.ID

	return resp, nil
}

// handleListServers summarises the pool for operators.
func handleListServers(
	reg contracts.ServerRegistry,
	monitor contracts.MonitorStatus,
	opts WebhookOptions,
	secret string,
) (*ListServersResponse, error) {
	switch {
	case secret != "" && !reg.VerifySecret(secret):
		return nil, errors.ErrUnauthorized
	case secret == "" && opts.ListRequiresSecret:
		return nil, fmt.Errorf("%w: secret is required", errors.ErrUnauthorized)
	}

	// Stats and servers come from the same snapshot so the counts always match the list.
	snapshot := reg.Snapshot()
	servers := make([]Server, 0, len(snapshot))
	summary := PoolSummary{TotalServers: len(snapshot), MonitorRunning: monitor.Running()}
	for _, s := range snapshot {
		data, err := DomainServer(s).ToAPIType()
		if err != nil {
			return nil, err
		}
		if s.Healthy {
			summary.HealthyServers++
		}
		servers = append(servers, data)
	}
	summary.UnhealthyServers = summary.TotalServers - summary.HealthyServers
	summary.Servers = servers

	resp := &ListServersResponse{}
	resp.Body.Success = true
	resp.Body.Data = summary

	return resp, nil
}

// requireFields reports the first missing webhook field.
func requireFields(input *WebhookRequest) (string, int, string, error) {
	switch {
	case input == nil:
		return "", 0, "", fmt.Errorf("%w: request body is empty", errors.ErrBadRequest)
	case input.Body.IP == nil:
		return "", 0, "", fmt.Errorf("%w: missing required field: ip", errors.ErrBadRequest)
	case input.Body.Port == nil:
		return "", 0, "", fmt.Errorf("%w: missing required field: port", errors.ErrBadRequest)
	case input.Body.Secret == nil:
		return "", 0, "", fmt.Errorf("%w: missing required field: secret", errors.ErrBadRequest)
	}

	return *input.Body.IP, *input.Body.Port, *input.Body.Secret, nil
}
