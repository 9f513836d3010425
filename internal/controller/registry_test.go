package controller

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dreamware/cloudsim/internal/cluster"
)

// TestNewRegistry tests creation of an empty registry
func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()

	// Verify registry is created
	if registry == nil {
		t.Fatal("Expected registry instance, got nil")
	}

	// Should start with no nodes
	if registry.Len() != 0 {
		t.Errorf("Expected 0 nodes initially, got %d", registry.Len())
	}
	if len(registry.Snapshot()) != 0 {
		t.Errorf("Expected empty snapshot initially, got %d records", len(registry.Snapshot()))
	}
}

// TestRegister tests node registration and capacity defaulting
func TestRegister(t *testing.T) {
	t.Run("register with nil capacity applies defaults", func(t *testing.T) {
		registry := NewRegistry()

		err := registry.Register("node1", "127.0.0.1", 8080, 6001, nil)
		if err != nil {
			t.Fatalf("Failed to register node: %v", err)
		}

		rec, ok := registry.Get("node1")
		if !ok {
			t.Fatal("Expected record for node1, got none")
		}

		// Verify identity fields
		if rec.ID != "node1" {
			t.Errorf("Expected ID 'node1', got %s", rec.ID)
		}
		if rec.Host != "127.0.0.1" {
			t.Errorf("Expected host '127.0.0.1', got %s", rec.Host)
		}
		if rec.TCPPort != 8080 || rec.UDPPort != 6001 {
			t.Errorf("Expected ports 8080/6001, got %d/%d", rec.TCPPort, rec.UDPPort)
		}

		// Verify capacity defaults
		if rec.Capacity.CPU != cluster.DefaultCPUCores {
			t.Errorf("Expected default CPU %d, got %d", cluster.DefaultCPUCores, rec.Capacity.CPU)
		}
		if rec.Capacity.MemoryGB != cluster.DefaultMemoryGB {
			t.Errorf("Expected default memory %d, got %d", cluster.DefaultMemoryGB, rec.Capacity.MemoryGB)
		}
		if rec.Capacity.Storage != cluster.DefaultStorageBytes {
			t.Errorf("Expected default storage %d, got %d", cluster.DefaultStorageBytes, rec.Capacity.Storage)
		}
		if rec.Capacity.Bandwidth != cluster.DefaultBandwidthBPS {
			t.Errorf("Expected default bandwidth %d, got %d", cluster.DefaultBandwidthBPS, rec.Capacity.Bandwidth)
		}

		// New registrations start active with fresh timestamps
		if !rec.Active {
			t.Error("Expected node to be active after registration")
		}
		if rec.RegisteredAt.IsZero() || rec.LastSeen.IsZero() {
			t.Error("Expected registration timestamps to be set")
		}
	})

	t.Run("register with explicit capacity", func(t *testing.T) {
		registry := NewRegistry()

		capacity := &cluster.NodeCapacity{
			CPU:       16,
			MemoryGB:  64,
			Storage:   cluster.GBToBytes(500),
			Bandwidth: cluster.MbpsToBPS(10_000),
		}
		err := registry.Register("node1", "10.0.0.5", 9000, 6500, capacity)
		if err != nil {
			t.Fatalf("Failed to register node: %v", err)
		}

		rec, _ := registry.Get("node1")
		if rec.Capacity != *capacity {
			t.Errorf("Expected capacity %+v, got %+v", *capacity, rec.Capacity)
		}
	})

	t.Run("zero capacity fields are defaulted individually", func(t *testing.T) {
		registry := NewRegistry()

		// Only storage declared; the rest should default
		err := registry.Register("node1", "127.0.0.1", 8080, 6001, &cluster.NodeCapacity{
			Storage: cluster.GBToBytes(250),
		})
		if err != nil {
			t.Fatalf("Failed to register node: %v", err)
		}

		rec, _ := registry.Get("node1")
		if rec.Capacity.Storage != cluster.GBToBytes(250) {
			t.Errorf("Expected declared storage to survive, got %d", rec.Capacity.Storage)
		}
		if rec.Capacity.CPU != cluster.DefaultCPUCores {
			t.Errorf("Expected default CPU, got %d", rec.Capacity.CPU)
		}
		if rec.Capacity.Bandwidth != cluster.DefaultBandwidthBPS {
			t.Errorf("Expected default bandwidth, got %d", rec.Capacity.Bandwidth)
		}
	})

	t.Run("register with empty node ID", func(t *testing.T) {
		registry := NewRegistry()

		err := registry.Register("", "127.0.0.1", 8080, 6001, nil)
		if err == nil {
			t.Fatal("Expected error for empty node ID, got nil")
		}

		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("Expected *ValidationError, got %T", err)
		}
		if registry.Len() != 0 {
			t.Error("Failed registration should not create a record")
		}
	})

	t.Run("register with negative UDP port", func(t *testing.T) {
		registry := NewRegistry()

		err := registry.Register("node1", "127.0.0.1", 8080, -1, nil)
		if err == nil {
			t.Fatal("Expected error for negative UDP port, got nil")
		}
	})

	t.Run("register with negative capacity", func(t *testing.T) {
		registry := NewRegistry()

		err := registry.Register("node1", "127.0.0.1", 8080, 6001, &cluster.NodeCapacity{Storage: -1})
		if err == nil {
			t.Fatal("Expected error for negative storage, got nil")
		}

		err = registry.Register("node1", "127.0.0.1", 8080, 6001, &cluster.NodeCapacity{CPU: -2})
		if err == nil {
			t.Fatal("Expected error for negative CPU, got nil")
		}
	})

	t.Run("re-registration resets the record", func(t *testing.T) {
		registry := NewRegistry()

		// Register, then push the node into the deactivated past
		registry.Register("node1", "127.0.0.1", 8080, 6001, nil)
		registry.Deactivate("node1")

		rec, _ := registry.Get("node1")
		firstSeen := rec.LastSeen

		// Re-register with new details after the clock moves on
		registry.now = func() time.Time { return firstSeen.Add(30 * time.Second) }
		err := registry.Register("node1", "192.168.1.9", 8081, 6002, nil)
		if err != nil {
			t.Fatalf("Failed to re-register node: %v", err)
		}

		rec, _ = registry.Get("node1")
		if !rec.Active {
			t.Error("Expected re-registration to reactivate the node")
		}
		if rec.Host != "192.168.1.9" || rec.UDPPort != 6002 {
			t.Errorf("Expected refreshed endpoint, got %s:%d", rec.Host, rec.UDPPort)
		}
		if !rec.LastSeen.After(firstSeen) {
			t.Error("Expected re-registration to refresh LastSeen")
		}

		// Re-registering must not duplicate the membership entry
		if registry.Len() != 1 {
			t.Errorf("Expected 1 node after re-registration, got %d", registry.Len())
		}
	})
}

// TestHeartbeat tests LastSeen refresh and the unknown-node error
func TestHeartbeat(t *testing.T) {
	t.Run("heartbeat refreshes LastSeen", func(t *testing.T) {
		registry := NewRegistry()
		base := time.Now()

		registry.now = func() time.Time { return base }
		registry.Register("node1", "127.0.0.1", 8080, 6001, nil)

		registry.now = func() time.Time { return base.Add(3 * time.Second) }
		if err := registry.Heartbeat("node1"); err != nil {
			t.Fatalf("Heartbeat failed: %v", err)
		}

		rec, _ := registry.Get("node1")
		if !rec.LastSeen.Equal(base.Add(3 * time.Second)) {
			t.Errorf("Expected LastSeen at base+3s, got %v", rec.LastSeen)
		}
		// RegisteredAt must be untouched
		if !rec.RegisteredAt.Equal(base) {
			t.Errorf("Expected RegisteredAt at base, got %v", rec.RegisteredAt)
		}
	})

	t.Run("heartbeat for unknown node", func(t *testing.T) {
		registry := NewRegistry()

		err := registry.Heartbeat("ghost")
		if !errors.Is(err, ErrNotRegistered) {
			t.Errorf("Expected ErrNotRegistered, got %v", err)
		}
	})

	t.Run("heartbeat does not reactivate", func(t *testing.T) {
		registry := NewRegistry()

		registry.Register("node1", "127.0.0.1", 8080, 6001, nil)
		registry.Deactivate("node1")
		registry.Heartbeat("node1")

		rec, _ := registry.Get("node1")
		if rec.Active {
			t.Error("Heartbeat alone should not flip a node back to active")
		}
	})
}

// TestActivation tests the active flag transitions
func TestActivation(t *testing.T) {
	t.Run("mark active", func(t *testing.T) {
		registry := NewRegistry()

		registry.Register("node1", "127.0.0.1", 8080, 6001, nil)
		registry.Deactivate("node1")

		if err := registry.MarkActive("node1"); err != nil {
			t.Fatalf("MarkActive failed: %v", err)
		}

		rec, _ := registry.Get("node1")
		if !rec.Active {
			t.Error("Expected node to be active")
		}
	})

	t.Run("mark active for unknown node", func(t *testing.T) {
		registry := NewRegistry()

		if err := registry.MarkActive("ghost"); !errors.Is(err, ErrNotRegistered) {
			t.Errorf("Expected ErrNotRegistered, got %v", err)
		}
	})

	t.Run("deactivate reports the transition", func(t *testing.T) {
		registry := NewRegistry()

		registry.Register("node1", "127.0.0.1", 8080, 6001, nil)

		// First deactivation flips, second is a no-op
		if !registry.Deactivate("node1") {
			t.Error("Expected first deactivation to report true")
		}
		if registry.Deactivate("node1") {
			t.Error("Expected repeated deactivation to report false")
		}
		if registry.Deactivate("ghost") {
			t.Error("Expected deactivation of unknown node to report false")
		}

		// Deactivation never deletes
		if !registry.Contains("node1") {
			t.Error("Expected deactivated node to remain registered")
		}
	})
}

// TestSnapshotOrder tests that snapshots preserve registration order
func TestSnapshotOrder(t *testing.T) {
	registry := NewRegistry()

	for _, id := range []string{"charlie", "alpha", "bravo"} {
		if err := registry.Register(id, "127.0.0.1", 8080, 6001, nil); err != nil {
			t.Fatalf("Failed to register %s: %v", id, err)
		}
	}

	// Re-registering must keep the original position
	registry.Register("alpha", "127.0.0.1", 8080, 6002, nil)

	snapshot := registry.Snapshot()
	if len(snapshot) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(snapshot))
	}

	want := []string{"charlie", "alpha", "bravo"}
	for i, rec := range snapshot {
		if rec.ID != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], rec.ID)
		}
	}
}

// TestStale tests staleness detection against an injected clock
func TestStale(t *testing.T) {
	registry := NewRegistry()
	base := time.Now()

	registry.now = func() time.Time { return base }
	registry.Register("fresh", "127.0.0.1", 8080, 6001, nil)
	registry.Register("stale", "127.0.0.1", 8080, 6002, nil)

	// Advance past the staleness window, keeping one node fresh
	registry.now = func() time.Time { return base.Add(11 * time.Second) }
	registry.Heartbeat("fresh")

	stale := registry.Stale(10 * time.Second)
	if len(stale) != 1 {
		t.Fatalf("Expected 1 stale node, got %d", len(stale))
	}
	if stale[0].ID != "stale" {
		t.Errorf("Expected node 'stale', got %s", stale[0].ID)
	}

	// Exactly at the boundary LastSeen is not yet stale
	registry.now = func() time.Time { return base.Add(10 * time.Second) }
	if got := registry.Stale(10 * time.Second); len(got) != 0 {
		t.Errorf("Expected no stale nodes at the boundary, got %d", len(got))
	}
}

// TestStats tests the aggregate stats computation
func TestStats(t *testing.T) {
	registry := NewRegistry()

	registry.Register("node1", "127.0.0.1", 8080, 6001, &cluster.NodeCapacity{
		Storage:   cluster.GBToBytes(100),
		Bandwidth: cluster.MbpsToBPS(1000),
	})
	registry.Register("node2", "127.0.0.1", 8080, 6002, &cluster.NodeCapacity{
		Storage:   cluster.GBToBytes(200),
		Bandwidth: cluster.MbpsToBPS(500),
	})
	registry.Deactivate("node2")

	registry.CountConnection()
	registry.CountConnection()
	registry.AddDataTransferred(4096)

	stats := registry.Stats()
	if stats.TotalNodes != 2 {
		t.Errorf("Expected 2 total nodes, got %d", stats.TotalNodes)
	}
	if stats.ActiveNodes != 1 {
		t.Errorf("Expected 1 active node, got %d", stats.ActiveNodes)
	}
	if stats.TotalConnections != 2 {
		t.Errorf("Expected 2 connections, got %d", stats.TotalConnections)
	}
	if stats.TotalDataTransferred != 4096 {
		t.Errorf("Expected 4096 bytes transferred, got %d", stats.TotalDataTransferred)
	}
	if want := cluster.GBToBytes(300); stats.TotalStorageCapacity != want {
		t.Errorf("Expected %d storage capacity, got %d", want, stats.TotalStorageCapacity)
	}
	if want := cluster.MbpsToBPS(1500); stats.TotalBandwidthCapacity != want {
		t.Errorf("Expected %d bandwidth capacity, got %d", want, stats.TotalBandwidthCapacity)
	}
}

// TestRegistryConcurrency tests thread safety of the registry
func TestRegistryConcurrency(t *testing.T) {
	t.Run("concurrent registrations and heartbeats", func(t *testing.T) {
		registry := NewRegistry()

		var wg sync.WaitGroup
		numGoroutines := 50

		wg.Add(numGoroutines)
		for i := 0; i < numGoroutines; i++ {
			go func(id int) {
				defer wg.Done()
				nodeID := fmt.Sprintf("node%d", id%10)
				registry.Register(nodeID, "127.0.0.1", 8080, 6000+id, nil)
				registry.Heartbeat(nodeID)
				registry.CountConnection()
			}(i)
		}

		wg.Wait()

		// All ten distinct IDs must have landed exactly once
		if registry.Len() != 10 {
			t.Errorf("Expected 10 nodes, got %d", registry.Len())
		}
	})

	t.Run("concurrent mixed operations", func(t *testing.T) {
		registry := NewRegistry()

		for i := 0; i < 10; i++ {
			registry.Register(fmt.Sprintf("node%d", i), "127.0.0.1", 8080, 6000+i, nil)
		}

		var wg sync.WaitGroup
		numOps := 100

		// Writers
		wg.Add(numOps)
		for i := 0; i < numOps; i++ {
			go func(id int) {
				defer wg.Done()
				nodeID := fmt.Sprintf("node%d", id%10)
				switch id % 3 {
				case 0:
					registry.Heartbeat(nodeID)
				case 1:
					registry.Deactivate(nodeID)
				case 2:
					registry.MarkActive(nodeID)
				}
			}(i)
		}

		// Readers
		wg.Add(numOps)
		for i := 0; i < numOps; i++ {
			go func(id int) {
				defer wg.Done()
				registry.Snapshot()
				registry.Stale(time.Second)
				registry.Stats()
				registry.Get(fmt.Sprintf("node%d", id%10))
			}(i)
		}

		wg.Wait()

		// Registry should still be functional
		if err := registry.Register("final", "127.0.0.1", 8080, 7000, nil); err != nil {
			t.Errorf("Registry not functional after concurrent ops: %v", err)
		}
	})
}
