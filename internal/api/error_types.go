package api

// ErrorType represents the classification of errors returned via HTTP headers.
type ErrorType string

// HeaderErrorType is the HTTP header key which should be used to convey API error types.
const HeaderErrorType = "Gatewayd-Error-Type"

const (
	// NoBackendAvailable indicates the request was not forwarded because no backend server is healthy.
	NoBackendAvailable ErrorType = "no-backend-available"

	// UpstreamFailure indicates the selected backend server could not be reached or did not answer in time.
	UpstreamFailure ErrorType = "upstream-failure"
)
