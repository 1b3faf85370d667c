package domain

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusUnknown   HealthStatus = "unknown"
)

const (
	// TransitionNone means a probe result did not change whether the server is selectable.
	TransitionNone Transition = iota

	// TransitionDegraded means the server crossed the failure threshold and is no longer selectable.
	TransitionDegraded

	// TransitionRecovered means a previously unhealthy server answered a probe successfully.
	TransitionRecovered
)

// HealthStatus represents the internal state of a backend server's availability.
type HealthStatus string

// Transition describes the change in selectability caused by a single probe result.
type Transition int

// Server tracks a single registered backend worker and its health bookkeeping.
type Server struct {
	ID                  string
	Host                string
	Port                int
	Healthy             bool
	ConsecutiveFailures int
	LastCheckedAt       *time.Time
	LastSelectedAt      *time.Time
}

// NewServer returns a record for a freshly registered worker, optimistically marked healthy.
func NewServer(id string, host string, port int) Server {
	return Server{
		ID:      id,
		Host:    host,
		Port:    port,
		Healthy: true,
	}
}

// BaseURL returns the root URL requests for this server should be sent to.
func (s Server) BaseURL() string {
	return "http://" + net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Address returns the "host:port" pair that identifies the server within a registry.
func (s Server) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Status derives the health state machine position for the server.
// A server that has never been probed is unknown, even though it is optimistically selectable.
func (s Server) Status() HealthStatus {
	switch {
	case !s.Healthy:
		return HealthStatusUnhealthy
	case s.LastCheckedAt == nil:
		return HealthStatusUnknown
	default:
		return HealthStatusHealthy
	}
}

// Reset restores the optimistic health state used when a worker (re-)registers.
func (s *Server) Reset() {
	s.Healthy = true
	s.ConsecutiveFailures = 0
}

// RecordProbe applies the result of one liveness probe taken at the given time.
// A success resets the failure counter; a failure increments it.
// The server becomes unhealthy only when the counter reaches threshold while healthy,
// and becomes healthy again on the next success.
func (s *Server) RecordProbe(success bool, threshold int, at time.Time) Transition {
	checked := at
	s.LastCheckedAt = &checked

	if success {
		s.ConsecutiveFailures = 0
		if !s.Healthy {
			s.Healthy = true
			return TransitionRecovered
		}
		return TransitionNone
	}

	s.ConsecutiveFailures++
	if s.Healthy && s.ConsecutiveFailures >= threshold {
		s.Healthy = false
		return TransitionDegraded
	}

	return TransitionNone
}

// Clone returns a deep copy so callers cannot mutate registry state through timestamps.
func (s Server) Clone() Server {
	out := s
	if s.LastCheckedAt != nil {
		t := *s.LastCheckedAt
		out.LastCheckedAt = &t
	}
	if s.LastSelectedAt != nil {
		t := *s.LastSelectedAt
		out.LastSelectedAt = &t
	}
	return out
}

// String implements fmt.Stringer.
func (t Transition) String() string {
	switch t {
	case TransitionNone:
		return "none"
	case TransitionDegraded:
		return "degraded"
	case TransitionRecovered:
		return "recovered"
	default:
		return fmt.Sprintf("transition(%d)", int(t))
	}
}

// PoolStats summarises the health of every registered server.
type PoolStats struct {
	Total     int
	Healthy   int
	Unhealthy int
}
