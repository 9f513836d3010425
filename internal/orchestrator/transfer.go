package orchestrator

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// TransferStatus represents the lifecycle state of a simulated transfer
type TransferStatus string

const (
	// TransferPending means the transfer is planned but not started
	TransferPending TransferStatus = "PENDING"
	// TransferInProgress means chunk deliveries are being simulated
	TransferInProgress TransferStatus = "IN_PROGRESS"
	// TransferCompleted means every chunk reached every target
	TransferCompleted TransferStatus = "COMPLETED"
	// TransferFailed means the deadline expired with deliveries missing
	TransferFailed TransferStatus = "FAILED"
)

// Chunk size tiers. Small files move in small chunks so progress is
// visible; large files amortize per-chunk overhead with bigger ones.
const (
	smallChunkSize  = 512 << 10 // files under 10MB
	mediumChunkSize = 2 << 20   // files under 100MB
	largeChunkSize  = 10 << 20  // everything else

	smallFileLimit  = 10 << 20
	mediumFileLimit = 100 << 20
)

// FileChunk is one slice of a planned file transfer
// Delivery is tracked per target, so replicas progress independently
type FileChunk struct {
	ID       int    // Position within the file, starting at 0
	Size     int64  // Chunk size in bytes (the last chunk may be short)
	Checksum string // Synthetic integrity token derived from the chunk identity

	mu          sync.Mutex          // Protects deliveredTo
	deliveredTo map[string]struct{} // Target node IDs that received this chunk
}

// markDelivered records that a target received this chunk
func (c *FileChunk) markDelivered(nodeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliveredTo[nodeID] = struct{}{}
}

// Delivered reports whether a target received this chunk
func (c *FileChunk) Delivered(nodeID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.deliveredTo[nodeID]
	return ok
}

// DeliveredCount returns how many targets received this chunk
func (c *FileChunk) DeliveredCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deliveredTo)
}

// deliveredToAll reports whether every listed target received this chunk
func (c *FileChunk) deliveredToAll(targets []string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, nodeID := range targets {
		if _, ok := c.deliveredTo[nodeID]; !ok {
			return false
		}
	}
	return true
}

// FileTransfer is a planned replication of one file onto a set of nodes
// The plan is immutable after creation; only delivery state mutates
type FileTransfer struct {
	ID        string       // File identifier, unique per plan
	Handle    string       // Opaque handle correlating plan, execution, and report
	FileName  string       // Original file name as submitted
	TotalSize int64        // Declared file size in bytes
	Chunks    []*FileChunk // Ordered chunk plan
	Targets   []string     // Node IDs receiving a full replica
	CreatedAt time.Time    // Plan creation time

	mu          sync.RWMutex   // Protects lifecycle state
	status      TransferStatus // Current lifecycle state
	completedAt time.Time      // Set when the transfer finishes
	done        chan struct{}  // Closed when the transfer finishes
}

// Status returns the current lifecycle state
func (t *FileTransfer) Status() TransferStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// begin moves the transfer from PENDING to IN_PROGRESS
// Returns false if the transfer already started or finished
func (t *FileTransfer) begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != TransferPending {
		return false
	}
	t.status = TransferInProgress
	return true
}

// finish records the terminal state and releases Done waiters
func (t *FileTransfer) finish(status TransferStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == TransferCompleted || t.status == TransferFailed {
		return
	}
	t.status = status
	t.completedAt = time.Now()
	close(t.done)
}

// MarkDelivered records that a target received one chunk
// Out-of-range chunk IDs are rejected
func (t *FileTransfer) MarkDelivered(chunkID int, nodeID string) error {
	if chunkID < 0 || chunkID >= len(t.Chunks) {
		return fmt.Errorf("chunk %d out of range for transfer %s", chunkID, t.ID)
	}
	t.Chunks[chunkID].markDelivered(nodeID)
	return nil
}

// complete reports whether every chunk reached every target
func (t *FileTransfer) complete() bool {
	for _, chunk := range t.Chunks {
		if !chunk.deliveredToAll(t.Targets) {
			return false
		}
	}
	return true
}

// ChunkStatus derives the lifecycle state of one chunk from its
// delivery set and the transfer's own state
func (t *FileTransfer) ChunkStatus(chunkID int) TransferStatus {
	if chunkID < 0 || chunkID >= len(t.Chunks) {
		return TransferFailed
	}

	chunk := t.Chunks[chunkID]
	if chunk.deliveredToAll(t.Targets) {
		return TransferCompleted
	}
	if t.Status() == TransferFailed {
		return TransferFailed
	}
	if chunk.DeliveredCount() > 0 {
		return TransferInProgress
	}
	return TransferPending
}

// Done returns a channel closed when the transfer reaches a terminal state
func (t *FileTransfer) Done() <-chan struct{} {
	return t.done
}

// CompletedAt returns when the transfer finished, zero while running
func (t *FileTransfer) CompletedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.completedAt
}

// ReplicatedBytes returns the total bytes a completed transfer placed
// across the cluster: the file size times the replica count
func (t *FileTransfer) ReplicatedBytes() int64 {
	return t.TotalSize * int64(len(t.Targets))
}

// chunkSizeFor picks the chunk size tier for a file size
func chunkSizeFor(fileSize int64) int64 {
	switch {
	case fileSize < smallFileLimit:
		return smallChunkSize
	case fileSize < mediumFileLimit:
		return mediumChunkSize
	default:
		return largeChunkSize
	}
}

// chunkChecksum derives the synthetic integrity token for one chunk.
// No real bytes exist, so the token hashes the chunk identity instead.
func chunkChecksum(fileID string, chunkID int) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s-%d", fileID, chunkID)))
	return hex.EncodeToString(sum[:])
}

// buildChunks slices a file size into the chunk plan
// A zero-size file yields no chunks
func buildChunks(fileID string, fileSize int64) []*FileChunk {
	if fileSize <= 0 {
		return nil
	}

	chunkSize := chunkSizeFor(fileSize)
	count := int((fileSize + chunkSize - 1) / chunkSize)

	chunks := make([]*FileChunk, 0, count)
	remaining := fileSize
	for i := 0; i < count; i++ {
		size := chunkSize
		if remaining < chunkSize {
			size = remaining
		}
		chunks = append(chunks, &FileChunk{
			ID:          i,
			Size:        size,
			Checksum:    chunkChecksum(fileID, i),
			deliveredTo: make(map[string]struct{}),
		})
		remaining -= size
	}
	return chunks
}
