package orchestrator

import (
	"cmp"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/dreamware/cloudsim/internal/cluster"
)

// ErrNoCapacity is returned when no active node can hold the file.
var ErrNoCapacity = errors.New("no active node has capacity for the file")

// DefaultReplicas is the replica count used when the caller passes zero.
const DefaultReplicas = 2

// idRedrawLimit bounds how often a colliding file ID is re-drawn. The
// four-digit suffix collides eventually; the filter re-draws cheaply
// instead of coordinating with anything.
const idRedrawLimit = 8

// Planner turns a membership snapshot and a file description into a
// replication plan: which nodes receive a replica and how the file is
// sliced into chunks.
//
// Placement policy, applied to the controller's node list:
//
//  1. Drop inactive nodes.
//  2. Drop nodes whose available storage (declared capacity minus
//     ledger reservations) cannot hold the whole file.
//  3. Order the rest by available storage, then bandwidth, both
//     descending. The sort is stable, so the controller's registration
//     order breaks exact ties deterministically.
//  4. Take the top replica-count nodes.
//
// Example placement (60GB file, 2 replicas):
//
//	node-a: 100GB declared, 70GB reserved →  30GB available  (dropped, step 2)
//	node-b: 500GB declared,  0GB reserved → 500GB available  (selected)
//	node-c: 200GB declared, 20GB reserved → 180GB available  (selected)
//
// Planning reserves the full file size on every selected node, so
// concurrent plans cannot oversubscribe a node's storage. The matching
// release happens when the transfer execution finishes, whatever the
// outcome.
//
// Thread Safety:
// Plan may be called from any goroutine. The ID generator and the
// dedup filter are guarded by the planner's mutex; ledger operations
// are safe on their own.
type Planner struct {
	// ledger tracks reservations across all plans sharing it.
	ledger *ReservationLedger

	// seen remembers issued file IDs so a suffix collision is re-drawn
	// instead of producing two transfers with the same identity.
	seen *bloom.BloomFilter

	// rnd draws ID suffixes. Guarded by mu.
	rnd *rand.Rand

	mu sync.Mutex
}

// NewPlanner creates a planner that reserves against the given ledger.
//
// The dedup filter is sized for a hundred thousand transfers at a 1%
// false-positive rate; a false positive only costs one extra ID draw.
func NewPlanner(ledger *ReservationLedger) *Planner {
	return &Planner{
		ledger: ledger,
		seen:   bloom.NewWithEstimates(100_000, 0.01),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// placementCandidate pairs a node with its available storage so the
// sort does not recompute ledger lookups.
type placementCandidate struct {
	entry     cluster.NodeEntry
	available int64
}

// Plan builds a replication plan for one file against a membership
// snapshot.
//
// The returned transfer is PENDING: chunked, targeted, and reserved,
// but with no simulated deliveries yet. Pass it to an Executor to run
// the simulation.
//
// Parameters:
//   - nodes: membership snapshot, typically from Client.ListNodes
//   - fileName: submitted file name; spaces are normalized in the ID
//   - fileSize: declared size in bytes (zero is allowed and plans an
//     empty transfer)
//   - replicas: desired replica count; zero means DefaultReplicas.
//     Fewer eligible nodes than replicas is not an error; the plan
//     covers the nodes that exist.
//
// Returns:
//   - *FileTransfer: the plan, with storage reserved on every target
//   - error: ErrNoCapacity if no node qualifies, or a validation error
//
// Example:
//
//	transfer, err := planner.Plan(nodes, "dataset.bin", cluster.MBToBytes(100), 2)
//	if err != nil {
//	    return err
//	}
//	status := executor.Execute(ctx, transfer)
func (p *Planner) Plan(nodes []cluster.NodeEntry, fileName string, fileSize int64, replicas int) (*FileTransfer, error) {
	if fileName == "" {
		return nil, fmt.Errorf("file name must not be empty")
	}
	if fileSize < 0 {
		return nil, fmt.Errorf("file size must not be negative")
	}
	if replicas <= 0 {
		replicas = DefaultReplicas
	}

	candidates := make([]placementCandidate, 0, len(nodes))
	for _, entry := range nodes {
		if !entry.Active {
			continue
		}
		available := p.ledger.Available(entry.NodeID, entry.Capacity.Storage)
		if available < fileSize {
			continue
		}
		candidates = append(candidates, placementCandidate{entry: entry, available: available})
	}
	if len(candidates) == 0 {
		return nil, ErrNoCapacity
	}

	// Stable: ties keep the snapshot's registration order.
	slices.SortStableFunc(candidates, func(a, b placementCandidate) int {
		if c := cmp.Compare(b.available, a.available); c != 0 {
			return c
		}
		return cmp.Compare(b.entry.Capacity.Bandwidth, a.entry.Capacity.Bandwidth)
	})
	if len(candidates) > replicas {
		candidates = candidates[:replicas]
	}

	targets := make([]string, 0, len(candidates))
	for _, c := range candidates {
		targets = append(targets, c.entry.NodeID)
	}

	id := p.uniqueFileID(fileName)
	transfer := &FileTransfer{
		ID:        id,
		Handle:    uuid.NewString(),
		FileName:  fileName,
		TotalSize: fileSize,
		Chunks:    buildChunks(id, fileSize),
		Targets:   targets,
		CreatedAt: time.Now(),
		status:    TransferPending,
		done:      make(chan struct{}),
	}

	// Reserve after selection so a failed plan leaves no residue.
	for _, nodeID := range targets {
		p.ledger.Reserve(nodeID, fileSize)
	}
	return transfer, nil
}

// uniqueFileID draws file IDs until one clears the dedup filter.
func (p *Planner) uniqueFileID(name string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := newFileID(name, p.rnd)
	for i := 0; i < idRedrawLimit; i++ {
		if !p.seen.TestOrAdd([]byte(id)) {
			return id
		}
		id = newFileID(name, p.rnd)
	}
	return id
}

// newFileID builds a file identifier from the submitted name, the
// current time, and a random suffix: "my_file-1700000000000-4821".
func newFileID(name string, rnd *rand.Rand) string {
	base := strings.ReplaceAll(name, " ", "_")
	return fmt.Sprintf("%s-%d-%d", base, time.Now().UnixMilli(), rnd.Intn(10_000))
}
