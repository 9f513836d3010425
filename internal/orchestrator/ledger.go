package orchestrator

import "sync"

// ReservationLedger tracks bytes reserved on each node by planned transfers
// All methods are safe for concurrent use
type ReservationLedger struct {
	mu       sync.Mutex       // Protects concurrent access
	reserved map[string]int64 // Node ID to reserved bytes
}

// NewReservationLedger creates an empty ledger
func NewReservationLedger() *ReservationLedger {
	return &ReservationLedger{
		reserved: make(map[string]int64),
	}
}

// Reserve adds n bytes to a node's reservation
// Non-positive amounts are ignored
func (l *ReservationLedger) Reserve(nodeID string, n int64) {
	if n <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.reserved[nodeID] += n
}

// Release subtracts n bytes from a node's reservation
// Reservations never go below zero (idempotent over-release)
func (l *ReservationLedger) Release(nodeID string, n int64) {
	if n <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := l.reserved[nodeID] - n
	if remaining <= 0 {
		delete(l.reserved, nodeID)
		return
	}
	l.reserved[nodeID] = remaining
}

// Reserved returns the bytes currently reserved on a node
func (l *ReservationLedger) Reserved(nodeID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reserved[nodeID]
}

// Available returns a node's declared capacity minus its reservations
// Never returns a negative value
func (l *ReservationLedger) Available(nodeID string, declared int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	available := declared - l.reserved[nodeID]
	if available < 0 {
		return 0
	}
	return available
}

// Outstanding returns the total bytes reserved across all nodes
func (l *ReservationLedger) Outstanding() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	var total int64
	for _, n := range l.reserved {
		total += n
	}
	return total
}
