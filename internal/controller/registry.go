// Package controller implements the membership and liveness side of the
// storage simulation. See doc.go for complete package documentation.
package controller

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slices"

	"github.com/dreamware/cloudsim/internal/cluster"
)

// ErrNotRegistered is returned when a heartbeat or active notification
// names a node_id the registry has never seen.
var ErrNotRegistered = errors.New("node not registered")

// ValidationError reports malformed registration input. It is the only
// way a well-formed REGISTER request can fail.
type ValidationError struct {
	Field  string // which input was rejected
	Reason string // why
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NodeRecord is the registry's view of one cluster member: its identity,
// declared capacity, and current liveness state.
//
// Lifecycle:
//   - Created (or fully reset) on registration
//   - LastSeen refreshed by heartbeats and active notifications
//   - Active flipped by the liveness monitor, never by deletion
//
// Records are never removed: membership is bounded by the simulated
// cluster size, so there is no eviction.
//
// Thread Safety:
// NodeRecord values returned by the registry are copies; mutating them
// has no effect on registry state.
type NodeRecord struct {
	// ID uniquely identifies the node within the registry.
	ID string

	// Host is the node's advertised address for the UDP liveness probe.
	Host string

	// TCPPort is the node's declared TCP port. Purely informational in
	// the simulation; defaulted to the controller's own port when the
	// registration omits it.
	TCPPort int

	// UDPPort is the probe endpoint. Zero means the node advertised no
	// probe port, in which case every fallback probe fails.
	UDPPort int

	// Capacity is the declared capacity, with absent or zero fields
	// replaced by the cluster defaults at registration time.
	Capacity cluster.NodeCapacity

	// RegisteredAt is when the current registration happened.
	// Re-registering resets it.
	RegisteredAt time.Time

	// LastSeen is the last time the node proved liveness: registration,
	// heartbeat, active notification, or a successful probe.
	LastSeen time.Time

	// Active is the current liveness verdict.
	Active bool
}

// Registry is the authoritative, in-memory membership map owned by the
// controller. Every mutation is linearized through one exclusive lock;
// reads share a consistent snapshot. No registry operation performs
// network I/O; probing belongs to the Monitor.
//
// Architecture:
//
//	┌──────────────────────────────────────┐
//	│              Registry                │
//	├──────────────────────────────────────┤
//	│  records: map[node_id]→NodeRecord    │
//	│  order:   registration order         │
//	│  mu:      RWMutex for thread safety  │
//	├──────────────────────────────────────┤
//	│  REGISTER   → upsert, reset liveness │
//	│  HEARTBEAT  → refresh LastSeen       │
//	│  ACTIVE     → Active=true + refresh  │
//	│  sweep      → Stale / Deactivate     │
//	└──────────────────────────────────────┘
//
// Snapshot ordering:
// Snapshots preserve registration order. Placement ranks nodes with a
// stable sort, so the snapshot order is the deterministic tie-breaker
// between otherwise equal candidates.
//
// Concurrency Model:
//   - Read operations use RLock for parallel access
//   - Write operations use Lock for exclusive access
//   - All returned records are copies to prevent races
//   - Connection/transfer counters are atomics fed by the server
type Registry struct {
	// records maps node IDs to their current registration.
	records map[string]*NodeRecord

	// order holds node IDs in first-registration order. Re-registering
	// keeps a node's original position.
	order []string

	// mu protects records and order.
	mu sync.RWMutex

	// connections counts accepted controller connections. Maintained
	// atomically by the server's accept loop.
	connections int64

	// dataTransferred accumulates bytes reported by completed transfer
	// simulations. Maintained atomically by the TRANSFER_REPORT handler.
	dataTransferred int64

	// now is the clock, injectable for tests.
	now func() time.Time
}

// NewRegistry creates an empty membership registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*NodeRecord),
		now:     time.Now,
	}
}

// Register upserts a node. A well-formed registration always succeeds;
// malformed input fails with *ValidationError and changes nothing.
//
// Registration always resets the record to a fresh default, even when
// the node was already known: Active becomes true and
// RegisteredAt/LastSeen become now. A node that was marked inactive
// and restarts is therefore immediately active again without waiting
// for a sweep.
//
// Capacity handling:
//   - nil capacity: all fields take the cluster defaults
//   - zero fields: defaulted individually
//   - negative fields: rejected with *ValidationError
//
// Parameters:
//   - id: node identifier (must be non-empty)
//   - host: address for the UDP probe
//   - tcpPort: declared TCP port (caller defaults it before calling)
//   - udpPort: probe endpoint port; zero disables probing for the node
//   - capacity: declared capacity, possibly nil
//
// Thread Safety:
// Linearized with all other mutations through the registry lock.
func (r *Registry) Register(id, host string, tcpPort, udpPort int, capacity *cluster.NodeCapacity) error {
	if id == "" {
		return &ValidationError{Field: "node_id", Reason: "must not be empty"}
	}
	if udpPort < 0 {
		return &ValidationError{Field: "port", Reason: "must not be negative"}
	}
	normalized, err := normalizeCapacity(capacity)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if _, known := r.records[id]; !known {
		r.order = append(r.order, id)
	}
	r.records[id] = &NodeRecord{
		ID:           id,
		Host:         host,
		TCPPort:      tcpPort,
		UDPPort:      udpPort,
		Capacity:     normalized,
		RegisteredAt: now,
		LastSeen:     now,
		Active:       true,
	}
	return nil
}

// normalizeCapacity applies per-field defaults and rejects negatives.
func normalizeCapacity(c *cluster.NodeCapacity) (cluster.NodeCapacity, error) {
	if c == nil {
		return cluster.NodeCapacity{
			CPU:       cluster.DefaultCPUCores,
			MemoryGB:  cluster.DefaultMemoryGB,
			Storage:   cluster.DefaultStorageBytes,
			Bandwidth: cluster.DefaultBandwidthBPS,
		}, nil
	}
	out := *c
	switch {
	case out.CPU < 0:
		return out, &ValidationError{Field: "capacity.cpu", Reason: "must not be negative"}
	case out.MemoryGB < 0:
		return out, &ValidationError{Field: "capacity.memory", Reason: "must not be negative"}
	case out.Storage < 0:
		return out, &ValidationError{Field: "capacity.storage", Reason: "must not be negative"}
	case out.Bandwidth < 0:
		return out, &ValidationError{Field: "capacity.bandwidth", Reason: "must not be negative"}
	}
	if out.CPU == 0 {
		out.CPU = cluster.DefaultCPUCores
	}
	if out.MemoryGB == 0 {
		out.MemoryGB = cluster.DefaultMemoryGB
	}
	if out.Storage == 0 {
		out.Storage = cluster.DefaultStorageBytes
	}
	if out.Bandwidth == 0 {
		out.Bandwidth = cluster.DefaultBandwidthBPS
	}
	return out, nil
}

// Heartbeat refreshes a node's LastSeen. The heartbeat is the push half
// of liveness detection; it never changes Active on its own.
//
// Returns ErrNotRegistered for unknown nodes, without changing state.
func (r *Registry) Heartbeat(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return ErrNotRegistered
	}
	rec.LastSeen = r.now()
	return nil
}

// MarkActive sets a node active and refreshes LastSeen. Used both for
// the node's own ACTIVE_NOTIFICATION and by the monitor after a
// successful fallback probe.
//
// Returns ErrNotRegistered for unknown nodes, without changing state.
func (r *Registry) MarkActive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return ErrNotRegistered
	}
	rec.Active = true
	rec.LastSeen = r.now()
	return nil
}

// Deactivate flips a node to inactive and reports whether it was active
// before the call. Unknown or already-inactive nodes return false. The
// record itself is never removed.
func (r *Registry) Deactivate(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok || !rec.Active {
		return false
	}
	rec.Active = false
	return true
}

// Get returns a copy of one record.
func (r *Registry) Get(id string) (NodeRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return NodeRecord{}, false
	}
	return *rec, true
}

// Snapshot returns copies of all records in registration order. The
// snapshot is immutable from the registry's point of view; callers may
// modify it freely.
func (r *Registry) Snapshot() []NodeRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]NodeRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.records[id])
	}
	return out
}

// Stale returns copies of the records whose LastSeen is older than the
// given age at the time of the call, in registration order. The caller
// (the Monitor) probes them after this method returns, so the registry
// lock is never held across network I/O.
func (r *Registry) Stale(olderThan time.Duration) []NodeRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := r.now().Add(-olderThan)
	var out []NodeRecord
	for _, id := range r.order {
		if rec := r.records[id]; rec.LastSeen.Before(cutoff) {
			out = append(out, *rec)
		}
	}
	return out
}

// Contains reports whether a node ID is registered.
func (r *Registry) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.IndexFunc(r.order, func(n string) bool { return n == id }) >= 0
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Stats computes the network aggregate under one consistent snapshot:
// node counts, summed declared capacity, and the cumulative connection
// and transfer counters.
func (r *Registry) Stats() cluster.NetworkStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := cluster.NetworkStats{
		TotalNodes:           len(r.records),
		TotalConnections:     atomic.LoadInt64(&r.connections),
		TotalDataTransferred: atomic.LoadInt64(&r.dataTransferred),
	}
	for _, rec := range r.records {
		if rec.Active {
			stats.ActiveNodes++
		}
		stats.TotalStorageCapacity += rec.Capacity.Storage
		stats.TotalBandwidthCapacity += rec.Capacity.Bandwidth
	}
	return stats
}

// CountConnection increments the accepted-connection counter. Called by
// the server once per accepted connection.
func (r *Registry) CountConnection() {
	atomic.AddInt64(&r.connections, 1)
}

// AddDataTransferred adds reported transfer bytes to the cumulative
// counter. Called by the TRANSFER_REPORT handler.
func (r *Registry) AddDataTransferred(n int64) {
	atomic.AddInt64(&r.dataTransferred, n)
}
