// Package errors defines domain-level errors used throughout the application.
// These errors represent business logic failures and are mapped to appropriate HTTP status codes at the API boundary.
//
// NOTE: Important for developers
// When adding a new error here, you MUST consider how it should be handled when returned from API endpoints.
//
// Unmapped errors will default to HTTP 500 Internal Server Error.
//
// Don't forget to:
// 1. Add your error to MapError (internal/api/errors.go)
// 2. Add a test case to TestMapError (internal/api/errors_test.go)
// 3. Consider if existing handler tests need updates
package errors

import (
	"errors"
)

var (
	// ErrBadRequest indicates that the client provided invalid input or made a malformed request.
	// This typically results from missing fields or out of range values in a webhook payload.
	// Recommended to map to HTTP 400 Bad Request.
	ErrBadRequest = errors.New("bad request")

	// ErrUnauthorized indicates that the supplied shared secret did not match the configured webhook secret.
	// No state is changed when this error is returned.
	// Recommended to map to HTTP 401 Unauthorized.
	ErrUnauthorized = errors.New("secret verification failed")

	// ErrServerNotFound indicates that no registered backend server matches the requested address.
	// This occurs when unregistering a (host, port) pair that was never registered, or was already removed.
	// Recommended to map to HTTP 404 Not Found.
	ErrServerNotFound = errors.New("server not found")

	// ErrRegistryFull indicates that every server identifier in the allocatable range is in use.
	// Recommended to map to HTTP 503 Service Unavailable.
	ErrRegistryFull = errors.New("server registry is full")

	// ErrNoHealthyBackend indicates that a request could not be routed because no registered server is healthy.
	// Recommended to map to HTTP 503 Service Unavailable.
	ErrNoHealthyBackend = errors.New("no backend available")

	// ErrBackendUnreachable indicates that the selected backend could not be reached while forwarding a request.
	// Recommended to map to HTTP 502 Bad Gateway.
	ErrBackendUnreachable = errors.New("backend unreachable")

	// ErrPersistenceFailed indicates that the registry state could not be written to, or read from, disk.
	// It is logged by the registry and never returned from registration calls.
	ErrPersistenceFailed = errors.New("registry persistence failed")
)
