package orchestrator

import (
	"fmt"
	"sync"
	"testing"
)

// TestReservationLedger tests reservation bookkeeping
func TestReservationLedger(t *testing.T) {
	t.Run("new ledger is empty", func(t *testing.T) {
		ledger := NewReservationLedger()

		if got := ledger.Reserved("node1"); got != 0 {
			t.Errorf("Expected 0 reserved on unknown node, got %d", got)
		}
		if got := ledger.Outstanding(); got != 0 {
			t.Errorf("Expected 0 outstanding, got %d", got)
		}
	})

	t.Run("reserve accumulates", func(t *testing.T) {
		ledger := NewReservationLedger()

		ledger.Reserve("node1", 100)
		ledger.Reserve("node1", 50)
		ledger.Reserve("node2", 25)

		if got := ledger.Reserved("node1"); got != 150 {
			t.Errorf("Expected 150 reserved, got %d", got)
		}
		if got := ledger.Outstanding(); got != 175 {
			t.Errorf("Expected 175 outstanding, got %d", got)
		}
	})

	t.Run("release subtracts", func(t *testing.T) {
		ledger := NewReservationLedger()

		ledger.Reserve("node1", 100)
		ledger.Release("node1", 40)

		if got := ledger.Reserved("node1"); got != 60 {
			t.Errorf("Expected 60 reserved after release, got %d", got)
		}
	})

	t.Run("release floors at zero", func(t *testing.T) {
		ledger := NewReservationLedger()

		ledger.Reserve("node1", 100)
		ledger.Release("node1", 500)

		if got := ledger.Reserved("node1"); got != 0 {
			t.Errorf("Expected 0 after over-release, got %d", got)
		}

		// Releasing on an unknown node is a no-op
		ledger.Release("ghost", 10)
		if got := ledger.Outstanding(); got != 0 {
			t.Errorf("Expected 0 outstanding, got %d", got)
		}
	})

	t.Run("non-positive amounts are ignored", func(t *testing.T) {
		ledger := NewReservationLedger()

		ledger.Reserve("node1", 0)
		ledger.Reserve("node1", -5)
		if got := ledger.Reserved("node1"); got != 0 {
			t.Errorf("Expected 0 reserved, got %d", got)
		}

		ledger.Reserve("node1", 100)
		ledger.Release("node1", -5)
		if got := ledger.Reserved("node1"); got != 100 {
			t.Errorf("Expected 100 reserved, got %d", got)
		}
	})

	t.Run("available subtracts reservations", func(t *testing.T) {
		ledger := NewReservationLedger()

		ledger.Reserve("node1", 30)

		if got := ledger.Available("node1", 100); got != 70 {
			t.Errorf("Expected 70 available, got %d", got)
		}
		if got := ledger.Available("node2", 100); got != 100 {
			t.Errorf("Expected 100 available on unreserved node, got %d", got)
		}
	})

	t.Run("available never goes negative", func(t *testing.T) {
		ledger := NewReservationLedger()

		ledger.Reserve("node1", 200)

		if got := ledger.Available("node1", 100); got != 0 {
			t.Errorf("Expected 0 available when overcommitted, got %d", got)
		}
	})
}

// TestReservationLedgerConcurrency tests thread safety of the ledger
func TestReservationLedgerConcurrency(t *testing.T) {
	ledger := NewReservationLedger()

	var wg sync.WaitGroup
	numGoroutines := 50

	// Concurrent reserve/release pairs on shared nodes
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			nodeID := fmt.Sprintf("node%d", id%5)
			ledger.Reserve(nodeID, 100)
			ledger.Available(nodeID, 1000)
			ledger.Release(nodeID, 100)
		}(i)
	}

	wg.Wait()

	// Every reservation was matched by a release
	if got := ledger.Outstanding(); got != 0 {
		t.Errorf("Expected 0 outstanding after balanced ops, got %d", got)
	}
}
