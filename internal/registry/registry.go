// Package registry maintains the authoritative, ordered set of backend servers that have registered with the gateway.
package registry

import (
	"crypto/subtle"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/gpupool/gatewayd/internal/contracts"
	"github.com/gpupool/gatewayd/internal/domain"
	"github.com/gpupool/gatewayd/internal/errors"
)

const (
	// MaxServers is the highest sequence number that can be allocated as a server identifier.
	MaxServers = 999

	// idPrefix is prepended to the zero padded sequence number of every server identifier.
	idPrefix = "GPU-"
)

var idPattern = regexp.MustCompile(`^GPU-(\d{3})$`)

var _ contracts.ServerRegistry = (*Registry)(nil)
var _ contracts.HealthTarget = (*Registry)(nil)
var _ contracts.HealthySource = (*Registry)(nil)

// Registry maps server identifiers to server records, in registration order.
// It is safe for concurrent use.
// NewRegistry should be used to create instances of Registry.
type Registry struct {
	logger hclog.Logger
	store  contracts.ServerStore
	secret []byte

	// lifecycleMu serializes mutations together with their watcher notifications,
	// so watchers always observe pool transitions in the order they happened.
	lifecycleMu sync.Mutex

	// saveMu orders writes to the store so an older snapshot never overwrites a newer one.
	saveMu sync.Mutex

	// mu protects servers, order and watchers.
	mu       sync.RWMutex
	servers  map[string]*domain.Server
	order    []string
	watchers []contracts.PoolWatcher
}

// NewRegistry creates a registry guarded by the given shared secret and restores any state held by the store.
// A nil store keeps the registry in memory only.
func NewRegistry(logger hclog.Logger, store contracts.ServerStore, secret string) (*Registry, error) {
	if logger == nil || reflect.ValueOf(logger).IsNil() {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("webhook secret cannot be empty")
	}
	if store != nil && reflect.ValueOf(store).IsNil() {
		store = nil
	}

	r := &Registry{
		logger:  logger.Named("registry"),
		store:   store,
		secret:  []byte(secret),
		servers: make(map[string]*domain.Server),
	}

	r.restore()

	return r, nil
}

// Watch registers a watcher for pool population changes.
// If the registry already holds servers the watcher is told immediately.
func (r *Registry) Watch(w contracts.PoolWatcher) {
	if w == nil || reflect.ValueOf(w).IsNil() {
		return
	}

	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()

	r.mu.Lock()
	r.watchers = append(r.watchers, w)
	populated := len(r.order) > 0
	r.mu.Unlock()

	if populated {
		w.PoolPopulated()
	}
}

// VerifySecret reports whether secret matches the configured shared secret using a constant time comparison.
func (r *Registry) VerifySecret(secret string) bool {
	return subtle.ConstantTimeCompare([]byte(secret), r.secret) == 1
}

// Register adds the server at host:port to the registry.
// If a server with the same address is already registered, its health is reset and its identifier kept.
// The registry is persisted on success; a persistence failure is logged and does not fail the call.
func (r *Registry) Register(host string, port int, secret string) (domain.Server, error) {
	if !r.VerifySecret(secret) {
		r.logger.Warn("Rejected registration with invalid secret", "host", host, "port", port)
		return domain.Server{}, errors.ErrUnauthorized
	}

	host, err := validateAddress(host, port)
	if err != nil {
		return domain.Server{}, err
	}

	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()

	r.mu.Lock()
	wasEmpty := len(r.order) == 0

	srv, created, err := r.upsertLocked(host, port)
	if err != nil {
		r.mu.Unlock()
		r.logger.Error("Registration rejected", "host", host, "port", port, "error", err)
		return domain.Server{}, err
	}
	out := srv.Clone()
	watchers := r.watchers
	r.mu.Unlock()

	if created {
		r.logger.Info("Server added", "id", out.ID, "address", out.Address())
	} else {
		r.logger.Info("Server updated", "id", out.ID, "address", out.Address())
	}

	r.persist()

	if wasEmpty && created {
		for _, w := range watchers {
			w.PoolPopulated()
		}
	}

	return out, nil
}

// Deregister removes the server registered at host:port.
// Removing the last server notifies watchers that the pool is empty.
func (r *Registry) Deregister(host string, port int, secret string) (domain.Server, error) {
	if !r.VerifySecret(secret) {
		r.logger.Warn("Rejected deregistration with invalid secret", "host", host, "port", port)
		return domain.Server{}, errors.ErrUnauthorized
	}

	host, err := validateAddress(host, port)
	if err != nil {
		return domain.Server{}, err
	}

	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()

	r.mu.Lock()
	idx := r.indexOfAddressLocked(host, port)
	if idx < 0 {
		r.mu.Unlock()
		return domain.Server{}, fmt.Errorf("%w: %s", errors.ErrServerNotFound, joinAddress(host, port))
	}

	id := r.order[idx]
	removed := r.servers[id].Clone()
	delete(r.servers, id)
	r.order = append(r.order[:idx], r.order[idx+1:]...)
	empty := len(r.order) == 0
	watchers := r.watchers
	r.mu.Unlock()

	r.logger.Info("Server removed", "id", removed.ID, "address", removed.Address())

	r.persist()

	if empty {
		for _, w := range watchers {
			w.PoolEmptied()
		}
	}

	return removed, nil
}

// Snapshot returns a copy of every registered server in registration order.
func (r *Registry) Snapshot() []domain.Server {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collectLocked(func(domain.Server) bool { return true })
}

// Healthy returns a copy of every selectable server in registration order.
func (r *Registry) Healthy() []domain.Server {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collectLocked(func(s domain.Server) bool { return s.Healthy })
}

// Lookup returns a copy of the server with the given identifier.
func (r *Registry) Lookup(id string) (domain.Server, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	srv, ok := r.servers[id]
	if !ok {
		return domain.Server{}, false
	}

	return srv.Clone(), true
}

// Len returns the number of registered servers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// AllAddresses returns the base URL of each registered server, optionally restricted to healthy servers.
func (r *Registry) AllAddresses(healthyOnly bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	urls := make([]string, 0, len(r.order))
	for _, id := range r.order {
		srv := r.servers[id]
		if healthyOnly && !srv.Healthy {
			continue
		}
		urls = append(urls, srv.BaseURL())
	}

	return urls
}

// Stats summarises the health of the pool.
func (r *Registry) Stats() domain.PoolStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := domain.PoolStats{Total: len(r.order)}
	for _, id := range r.order {
		if r.servers[id].Healthy {
			stats.Healthy++
		}
	}
	stats.Unhealthy = stats.Total - stats.Healthy

	return stats
}

// ApplyProbe records the outcome of a liveness probe against the server with the given identifier.
// It returns false if the server was removed after the probe was scheduled.
func (r *Registry) ApplyProbe(id string, success bool, threshold int, at time.Time) (domain.Transition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	srv, ok := r.servers[id]
	if !ok {
		return domain.TransitionNone, false
	}

	return srv.RecordProbe(success, threshold, at), true
}

// MarkSelected records the time a server was handed out by a selector.
func (r *Registry) MarkSelected(id string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if srv, ok := r.servers[id]; ok {
		selected := at
		srv.LastSelectedAt = &selected
	}
}

// Save writes the current state of the registry to the store.
func (r *Registry) Save() error {
	if r.store == nil {
		return nil
	}

	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	return r.store.Save(r.Snapshot())
}

// persist saves the registry, logging rather than returning any failure.
// In-memory state remains authoritative until the next successful write.
func (r *Registry) persist() {
	if err := r.Save(); err != nil {
		r.logger.Error("Failed to persist server registry", "error", err)
	}
}

// restore loads previously persisted servers, skipping any that would violate registry invariants.
func (r *Registry) restore() {
	if r.store == nil {
		return
	}

	servers, err := r.store.Load()
	if err != nil {
		r.logger.Error("Failed to restore server registry, starting empty", "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, srv := range servers {
		if _, ok := parseID(srv.ID); !ok {
			r.logger.Warn("Skipping persisted server with invalid identifier", "id", srv.ID)
			continue
		}
		if _, exists := r.servers[srv.ID]; exists {
			r.logger.Warn("Skipping persisted server with duplicate identifier", "id", srv.ID)
			continue
		}
		if r.indexOfAddressLocked(srv.Host, srv.Port) >= 0 {
			r.logger.Warn("Skipping persisted server with duplicate address", "id", srv.ID, "address", srv.Address())
			continue
		}
		if srv.ConsecutiveFailures < 0 {
			srv.ConsecutiveFailures = 0
		}

		restored := srv.Clone()
		r.servers[restored.ID] = &restored
		r.order = append(r.order, restored.ID)
	}

	if len(r.order) > 0 {
		r.logger.Info("Restored server registry", "servers", len(r.order))
	}
}

// upsertLocked must be called with mu held for writing.
func (r *Registry) upsertLocked(host string, port int) (*domain.Server, bool, error) {
	if idx := r.indexOfAddressLocked(host, port); idx >= 0 {
		srv := r.servers[r.order[idx]]
		srv.Reset()
		return srv, false, nil
	}

	id, err := r.nextIDLocked()
	if err != nil {
		return nil, false, err
	}

	srv := domain.NewServer(id, host, port)
	r.servers[id] = &srv
	r.order = append(r.order, id)

	return &srv, true, nil
}

// nextIDLocked returns the lowest unused identifier.
func (r *Registry) nextIDLocked() (string, error) {
	for i := 1; i <= MaxServers; i++ {
		id := formatID(i)
		if _, used := r.servers[id]; !used {
			return id, nil
		}
	}

	return "", fmt.Errorf("%w: all %d identifiers are in use", errors.ErrRegistryFull, MaxServers)
}

func (r *Registry) indexOfAddressLocked(host string, port int) int {
	for i, id := range r.order {
		srv := r.servers[id]
		if srv.Host == host && srv.Port == port {
			return i
		}
	}

	return -1
}

func (r *Registry) collectLocked(keep func(domain.Server) bool) []domain.Server {
	out := make([]domain.Server, 0, len(r.order))
	for _, id := range r.order {
		srv := *r.servers[id]
		if keep(srv) {
			out = append(out, srv.Clone())
		}
	}

	return out
}

func formatID(seq int) string {
	return fmt.Sprintf("%s%03d", idPrefix, seq)
}

func parseID(id string) (int, bool) {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return 0, false
	}

	seq, err := strconv.Atoi(m[1])
	if err != nil || seq < 1 || seq > MaxServers {
		return 0, false
	}

	return seq, true
}

func validateAddress(host string, port int) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", fmt.Errorf("%w: ip cannot be empty", errors.ErrBadRequest)
	}
	if port < 1 || port > 65535 {
		return "", fmt.Errorf("%w: port must be between 1 and 65535, got %d", errors.ErrBadRequest, port)
	}

	return host, nil
}

func joinAddress(host string, port int) string {
	return host + ":" + strconv.Itoa(port)
}
