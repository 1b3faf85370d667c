// Package proxy relays client requests to a backend server chosen by a selector.
package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"reflect"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/gpupool/gatewayd/internal/api"
	"github.com/gpupool/gatewayd/internal/contracts"
	"github.com/gpupool/gatewayd/internal/domain"
	"github.com/gpupool/gatewayd/internal/errors"
)

// HeaderBackendID names the backend server that handled a forwarded request.
const HeaderBackendID = "Gatewayd-Backend-Id"

var _ http.Handler = (*Forwarder)(nil)

type backendKey struct{}

// Forwarder sends each request to the next healthy backend, preserving path and query.
// Requests are never retried against another backend.
// NewForwarder should be used to create instances of Forwarder.
type Forwarder struct {
	logger   hclog.Logger
	selector contracts.BackendSelector
	timeout  time.Duration
	proxy    *httputil.ReverseProxy
}

// NewForwarder returns a forwarder which picks backends from selector.
// A positive timeout bounds each forwarded request, including reading the response.
func NewForwarder(
	logger hclog.Logger,
	selector contracts.BackendSelector,
	transport http.RoundTripper,
	timeout time.Duration,
) (*Forwarder, error) {
	if logger == nil || reflect.ValueOf(logger).IsNil() {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if selector == nil || reflect.ValueOf(selector).IsNil() {
		return nil, fmt.Errorf("backend selector cannot be nil")
	}
	if timeout < 0 {
		return nil, fmt.Errorf("proxy timeout cannot be negative, got %v", timeout)
	}

	f := &Forwarder{
		logger:   logger.Named("proxy"),
		selector: selector,
		timeout:  timeout,
	}
	f.proxy = &httputil.ReverseProxy{
		Rewrite:        f.rewrite,
		Transport:      transport,
		ModifyResponse: f.modifyResponse,
		ErrorHandler:   f.handleError,
	}

	return f, nil
}

// ServeHTTP implements http.Handler.
func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	srv, ok := f.selector.Next()
	if !ok {
		f.logger.Warn("No healthy backend for request", "method", r.Method, "path", r.URL.Path)
		w.Header().Set(api.HeaderErrorType, string(api.NoBackendAvailable))
		f.writeFailure(w, errors.ErrNoHealthyBackend)
		return
	}

	ctx := context.WithValue(r.Context(), backendKey{}, srv)
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	f.logger.Debug("Forwarding request", "method", r.Method, "path", r.URL.Path, "backend", srv.ID)
	f.proxy.ServeHTTP(w, r.WithContext(ctx))
}

func (f *Forwarder) rewrite(pr *httputil.ProxyRequest) {
	srv := backendFrom(pr.In.Context())

	target := &url.URL{Scheme: "http", Host: srv.Address()}
	pr.SetURL(target)
	pr.SetXForwarded()
}

func (f *Forwarder) modifyResponse(resp *http.Response) error {
	if srv, ok := resp.Request.Context().Value(backendKey{}).(domain.Server); ok {
		resp.Header.Set(HeaderBackendID, srv.ID)
	}
	return nil
}

func (f *Forwarder) handleError(w http.ResponseWriter, r *http.Request, err error) {
	srv := backendFrom(r.Context())

	w.Header().Set(api.HeaderErrorType, string(api.UpstreamFailure))
	w.Header().Set(HeaderBackendID, srv.ID)
	f.writeFailure(w, fmt.Errorf("%w: %s: %w", errors.ErrBackendUnreachable, srv.ID, err))
}

func (f *Forwarder) writeFailure(w http.ResponseWriter, err error) {
	statusErr := api.MapError(f.logger, err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusErr.GetStatus())
	if encErr := json.NewEncoder(w).Encode(statusErr); encErr != nil {
		f.logger.Error("Failed to write error response", "error", encErr)
	}
}

func backendFrom(ctx context.Context) domain.Server {
	srv, _ := ctx.Value(backendKey{}).(domain.Server)
	return srv
}
