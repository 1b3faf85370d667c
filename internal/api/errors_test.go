package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/gpupool/gatewayd/internal/errors"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	logger := hclog.NewNullLogger()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{
			name:           "ErrBadRequest maps to 400",
			err:            errors.ErrBadRequest,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "ErrUnauthorized maps to 401",
			err:            errors.ErrUnauthorized,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "ErrServerNotFound maps to 404",
			err:            fmt.Errorf("%w: 10.0.0.1:8000", errors.ErrServerNotFound),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "ErrRegistryFull maps to 503",
			err:            errors.ErrRegistryFull,
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "ErrNoHealthyBackend maps to 503",
			err:            errors.ErrNoHealthyBackend,
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "ErrBackendUnreachable maps to 502",
			err:            errors.ErrBackendUnreachable,
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:           "Failure keeps its status",
			err:            NewFailure(http.StatusTeapot, "short and stout"),
			expectedStatus: http.StatusTeapot,
		},
		{
			name:           "Unknown error maps to 500",
			err:            fmt.Errorf("unknown error"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			statusErr := mapErrorToFailure(t, logger, tc.err)
			require.Equal(t, tc.expectedStatus, statusErr.GetStatus())
			require.False(t, statusErr.Success)
			require.NotEmpty(t, statusErr.Message)
		})
	}
}

func TestMapError_HidesInternalDetails(t *testing.T) {
	t.Parallel()

	f := mapErrorToFailure(t, hclog.NewNullLogger(), fmt.Errorf("open /var/lib/secret: permission denied"))
	require.Equal(t, "internal server error", f.Message)
}

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	handler := ErrorHandler(hclog.NewNullLogger())

	tests := []struct {
		name           string
		status         int
		msg            string
		errs           []error
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "validation failures become 400",
			status:         http.StatusUnprocessableEntity,
			msg:            "validation failed",
			errs:           []error{&huma.ErrorDetail{Message: "expected integer", Location: "body.port"}},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "expected integer",
		},
		{
			name:           "other client errors keep their status",
			status:         http.StatusRequestEntityTooLarge,
			msg:            "request body too large",
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedMsg:    "request body too large",
		},
		{
			name:           "no errors",
			status:         http.StatusServiceUnavailable,
			msg:            "busy",
			expectedStatus: http.StatusServiceUnavailable,
			expectedMsg:    "busy",
		},
		{
			name:           "single domain error is mapped",
			status:         http.StatusInternalServerError,
			msg:            "unexpected error occurred",
			errs:           []error{errors.ErrServerNotFound},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    errors.ErrServerNotFound.Error(),
		},
		{
			name:           "multiple errors are joined then mapped",
			status:         http.StatusInternalServerError,
			msg:            "unexpected error occurred",
			errs:           []error{fmt.Errorf("first"), errors.ErrUnauthorized},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			statusErr := handler(nil, tc.status, tc.msg, tc.errs...)
			require.Equal(t, tc.expectedStatus, statusErr.GetStatus())
			if tc.expectedMsg != "" {
				require.Contains(t, statusErr.Error(), tc.expectedMsg)
			}
		})
	}
}

func mapErrorToFailure(t *testing.T, logger hclog.Logger, err error) *Failure {
	t.Helper()

	statusErr := MapError(logger, err)
	f, ok := statusErr.(*Failure)
	require.True(t, ok)
	return f
}
