// Package webhook provides the worker side of the gateway registration protocol.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gpupool/gatewayd/internal/api"
	"github.com/gpupool/gatewayd/internal/errors"
)

// maxResponseBytes bounds how much of a gateway response is read.
const maxResponseBytes = 1 << 20

// Registration is the gateway's answer to a successful register or unregister call.
type Registration struct {
	Success  bool   `json:"success" yaml:"success"`
	Message  string `json:"message" yaml:"message"`
	ServerID string `json:"server_id" yaml:"server_id"`
	IP       string `json:"ip,omitempty" yaml:"ip,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
}

type listResponse struct {
	Success bool            `json:"success"`
	Data    api.PoolSummary `json:"data"`
}

type payload struct {
	IP     string `json:"ip"`
	Port   int    `json:"port"`
	Secret string `json:"secret"`
}

// Client calls the registration webhooks of a single gateway.
// NewClient should be used to create instances of Client.
type Client struct {
	baseURL *url.URL
	secret  string
	http    *http.Client
}

// ClientOption defines a functional option for configuring a Client.
type ClientOption func(*Client) error

// WithHTTPClient replaces the HTTP client used to reach the gateway.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) error {
		if c == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		cl.http = c
		return nil
	}
}

// WithTimeout sets the overall timeout of each call made with the default HTTP client.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(cl *Client) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", timeout)
		}
		cl.http.Timeout = timeout
		return nil
	}
}

// DefaultTimeout is the default time allowed for a webhook call.
func DefaultTimeout() time.Duration {
	return 10 * time.Second
}

// NewClient returns a client for the gateway at gatewayURL, authenticating with secret.
func NewClient(gatewayURL string, secret string, opts ...ClientOption) (*Client, error) {
	gatewayURL = strings.TrimSpace(gatewayURL)
	if gatewayURL == "" {
		return nil, fmt.Errorf("gateway URL cannot be empty")
	}
	u, err := url.Parse(gatewayURL)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway URL '%s': %w", gatewayURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid gateway URL '%s': scheme must be http or https", gatewayURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid gateway URL '%s': missing host", gatewayURL)
	}

	c := &Client{
		baseURL: u,
		secret:  secret,
		http:    &http.Client{Timeout: DefaultTimeout()},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Register announces the worker at ip:port to the gateway.
func (c *Client) Register(ctx context.Context, ip string, port int) (Registration, error) {
	var out Registration
	if err := c.post(ctx, "register", payload{IP: ip, Port: port, Secret: c.secret}, &out); err != nil {
		return Registration{}, err
	}
	return out, nil
}

// Unregister removes the worker at ip:port from the gateway's pool.
func (c *Client) Unregister(ctx context.Context, ip string, port int) (Registration, error) {
	var out Registration
	if err := c.post(ctx, "unregister", payload{IP: ip, Port: port, Secret: c.secret}, &out); err != nil {
		return Registration{}, err
	}
	return out, nil
}

// Servers returns the gateway's view of its pool.
func (c *Client) Servers(ctx context.Context) (api.PoolSummary, error) {
	u := c.endpoint("servers")
	if c.secret != "" {
		q := u.Query()
		q.Set("secret", c.secret)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return api.PoolSummary{}, err
	}

	var out listResponse
	if err := c.do(req, &out); err != nil {
		return api.PoolSummary{}, err
	}
	return out.Data, nil
}

func (c *Client) post(ctx context.Context, op string, body payload, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(op).String(), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling gateway: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("reading gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding gateway response: %w", err)
	}
	return nil
}

func (c *Client) endpoint(op string) *url.URL {
	return c.baseURL.JoinPath(api.WebhookPathPrefix, op)
}

// responseError converts a failed webhook response back into the domain error the gateway mapped it from.
func responseError(status int, body []byte) error {
	var failure api.Failure
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &failure); err == nil && failure.Message != "" {
		msg = failure.Message
	}

	var sentinel error
	switch status {
	case http.StatusBadRequest:
		sentinel = errors.ErrBadRequest
	case http.StatusUnauthorized:
		sentinel = errors.ErrUnauthorized
	case http.StatusNotFound:
		sentinel = errors.ErrServerNotFound
	case http.StatusServiceUnavailable:
		sentinel = errors.ErrRegistryFull
	default:
		return fmt.Errorf("gateway returned status %d: %s", status, msg)
	}

	return fmt.Errorf("%w: gateway returned status %d: %s", sentinel, status, msg)
}
