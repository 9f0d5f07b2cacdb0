package gateway

import "sync"

// Registry holds all live connections keyed by identity. It is the only
// concurrently mutated shared structure in the gateway; every mutation and
// iteration takes a snapshot under the lock, and sending happens outside it.
type Registry struct {
	mu      sync.RWMutex
	byUser  map[int64]map[*Conn]struct{}
	metrics *Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry(metrics *Metrics) *Registry {
	return &Registry{
		byUser:  make(map[int64]map[*Conn]struct{}),
		metrics: metrics,
	}
}

// Register adds a connection. Returns true when this is the identity's first
// live connection, i.e. the identity just came online.
func (r *Registry) Register(conn *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID := conn.UserID()
	set, ok := r.byUser[userID]
	if !ok {
		set = make(map[*Conn]struct{})
		r.byUser[userID] = set
	}
	set[conn] = struct{}{}

	r.metrics.RecordRegistrySize(r.totalLocked(), len(r.byUser))
	return !ok
}

// Unregister removes a connection. Returns true when the identity has no
// remaining connections, i.e. just went offline. Safe to call twice for the
// same connection; the second call reports false.
func (r *Registry) Unregister(conn *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID := conn.UserID()
	set, ok := r.byUser[userID]
	if !ok {
		return false
	}
	if _, present := set[conn]; !present {
		return false
	}
	delete(set, conn)

	wentOffline := len(set) == 0
	if wentOffline {
		delete(r.byUser, userID)
	}

	r.metrics.RecordRegistrySize(r.totalLocked(), len(r.byUser))
	return wentOffline
}

// Connections returns a snapshot of the identity's live connections.
func (r *Registry) Connections(userID int64) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Conn, 0, len(r.byUser[userID]))
	for conn := range r.byUser[userID] {
		conns = append(conns, conn)
	}
	return conns
}

// AllConnections returns a snapshot of every live connection.
func (r *Registry) AllConnections() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var conns []*Conn
	for _, set := range r.byUser {
		for conn := range set {
			conns = append(conns, conn)
		}
	}
	return conns
}

// IsOnline reports whether the identity has at least one live connection.
func (r *Registry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byUser[userID]) > 0
}

// OnlineIDs returns a snapshot of all identities with a live connection.
func (r *Registry) OnlineIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.byUser))
	for userID := range r.byUser {
		ids = append(ids, userID)
	}
	return ids
}

// ConnectionCount returns the number of live connections for an identity.
func (r *Registry) ConnectionCount(userID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byUser[userID])
}

func (r *Registry) totalLocked() int {
	total := 0
	for _, set := range r.byUser {
		total += len(set)
	}
	return total
}
