// Package balancer chooses which registered backend server handles the next request.
package balancer

import (
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/gpupool/gatewayd/internal/contracts"
	"github.com/gpupool/gatewayd/internal/domain"
)

var _ contracts.BackendSelector = (*RoundRobin)(nil)

// RoundRobin rotates through the healthy servers of a source.
// It is safe for concurrent use.
//
// The cursor indexes into whatever healthy subset exists at the time of the call,
// so the rotation order can shift while servers flap between healthy and unhealthy.
type RoundRobin struct {
	source contracts.HealthySource
	cursor atomic.Uint64
	now    func() time.Time
}

// NewRoundRobin returns a selector over the healthy servers provided by source.
func NewRoundRobin(source contracts.HealthySource) (*RoundRobin, error) {
	if source == nil || reflect.ValueOf(source).IsNil() {
		return nil, fmt.Errorf("healthy server source cannot be nil")
	}

	return &RoundRobin{
		source: source,
		now:    time.Now,
	}, nil
}

// Next returns the next healthy server in rotation, or false when no server is healthy.
// An unhealthy server is never returned.
func (r *RoundRobin) Next() (domain.Server, bool) {
	healthy := r.source.Healthy()
	if len(healthy) == 0 {
		return domain.Server{}, false
	}

	n := r.cursor.Add(1) - 1
	srv := healthy[n%uint64(len(healthy))]
	r.source.MarkSelected(srv.ID, r.now())

	return srv, true
}
