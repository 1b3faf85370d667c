package daemon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gpupool/gatewayd/internal/contracts"
	"github.com/gpupool/gatewayd/internal/domain"
)

var _ contracts.HealthProber = (*HTTPProber)(nil)

// HTTPProber checks liveness by issuing a GET against a fixed path on each server.
// Any 2xx response is a success.
type HTTPProber struct {
	client *http.Client
	path   string
}

// NewHTTPProber returns a prober for path, using client to send requests.
// A nil client uses a dedicated client; per-probe deadlines come from the context passed to Probe.
func NewHTTPProber(client *http.Client, path string) (*HTTPProber, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("health check path cannot be empty")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if client == nil {
		client = &http.Client{}
	}

	return &HTTPProber{client: client, path: path}, nil
}

// Probe returns nil if the server responded to its health endpoint with a 2xx status.
func (p *HTTPProber) Probe(ctx context.Context, srv domain.Server) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.BaseURL()+p.path, nil)
	if err != nil {
		return fmt.Errorf("building health check request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected health check status: %d", resp.StatusCode)
	}

	return nil
}
