package api

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/gpupool/gatewayd/internal/errors"
)

var _ huma.StatusError = (*Failure)(nil)

var installErrorHandler sync.Once

// Failure is the body returned by every unsuccessful webhook or gateway call.
type Failure struct {
	status  int
	Success bool   `json:"success"`
	Message string `json:"error"   doc:"Human readable description of the failure"`
}

// NewFailure returns a Failure for the given HTTP status.
func NewFailure(status int, msg string) *Failure {
	return &Failure{status: status, Message: msg}
}

// Error implements error.
func (f *Failure) Error() string {
	return f.Message
}

// GetStatus implements huma.StatusError.
func (f *Failure) GetStatus() int {
	return f.status
}

// MapError maps application domain errors to appropriate HTTP status codes.
//
// This function is the central place where domain errors from internal/errors are converted to HTTP responses.
// When adding new errors to internal/errors/errors.go, you MUST add them here to prevent them from falling
// through to the default case which returns HTTP 500.
//
// Mapping guidelines:
//   - 400: Client errors (missing or malformed fields)
//   - 401: Shared secret mismatch
//   - 404: Resource not found errors
//   - 502: Backend failures while forwarding
//   - 503: No capacity (no healthy backend, no free identifier)
//   - 500: Unexpected internal errors (default case)
func MapError(logger hclog.Logger, err error) huma.StatusError {
	var f *Failure
	if stdErrors.As(err, &f) {
		return f
	}

	switch {
	case stdErrors.Is(err, errors.ErrBadRequest):
		return NewFailure(http.StatusBadRequest, err.Error())
	case stdErrors.Is(err, errors.ErrUnauthorized):
		return NewFailure(http.StatusUnauthorized, err.Error())
	case stdErrors.Is(err, errors.ErrServerNotFound):
		return NewFailure(http.StatusNotFound, err.Error())
	case stdErrors.Is(err, errors.ErrRegistryFull):
		logger.Warn("Registration rejected, registry is full", "error", err)
		return NewFailure(http.StatusServiceUnavailable, err.Error())
	case stdErrors.Is(err, errors.ErrNoHealthyBackend):
		return NewFailure(http.StatusServiceUnavailable, err.Error())
	case stdErrors.Is(err, errors.ErrBackendUnreachable):
		logger.Error("Backend request failed", "error", err)
		return NewFailure(http.StatusBadGateway, err.Error())
	default:
		logger.Error("Unexpected error handling request", "error", err)
		return NewFailure(http.StatusInternalServerError, "internal server error")
	}
}

// ErrorHandler adapts MapError to huma.NewErrorWithContext.
// Request validation failures, reported by huma as 422, are returned as 400.
func ErrorHandler(logger hclog.Logger) func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
	return func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
			if status == http.StatusUnprocessableEntity {
				status = http.StatusBadRequest
			}
			return NewFailure(status, describe(msg, errs))
		}

		switch len(errs) {
		case 0:
			return NewFailure(status, msg)
		case 1:
			return MapError(logger, errs[0])
		default:
			return MapError(logger, stdErrors.Join(errs...))
		}
	}
}

// InstallErrorHandler configures huma to build errors with ErrorHandler.
// huma holds the hook in a package variable, so only the first call takes effect.
func InstallErrorHandler(logger hclog.Logger) {
	installErrorHandler.Do(func() {
		huma.NewErrorWithContext = ErrorHandler(logger)
	})
}

func describe(msg string, errs []error) string {
	details := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			details = append(details, err.Error())
		}
	}
	if len(details) == 0 {
		return msg
	}

	return fmt.Sprintf("%s: %s", msg, strings.Join(details, "; "))
}
