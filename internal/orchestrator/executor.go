package orchestrator

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"
)

// Executor defaults. The bitrate models a 100 Mbps link; the deadline
// is the shared budget for one whole transfer, all targets included.
const (
	defaultLinkBitrate = 100_000_000
	defaultDeadline    = 30 * time.Second
	reportTimeout      = 5 * time.Second
)

// ExecutorConfig carries the tunables of the transfer simulation.
type ExecutorConfig struct {
	// LinkBitrateBPS is the simulated link speed in bits per second.
	// Zero means the 100 Mbps default.
	LinkBitrateBPS int64

	// Deadline bounds one whole transfer execution. Targets that have
	// not finished when it expires stop where they are and the
	// transfer fails. Zero means 30 seconds.
	Deadline time.Duration

	// Reporter, when set, reports completed transfers to the
	// controller so cluster stats reflect them. Failures to report are
	// logged, never propagated: the simulation outcome stands.
	Reporter *Client
}

// Executor runs planned transfers: each target gets its replica as a
// sequential chunk stream, all targets in parallel, every delivery
// taking the modeled wire time for its chunk size. No bytes move; time
// and bookkeeping are the simulation.
//
// One Executor is safe for concurrent Execute calls on distinct
// transfers. Executing the same transfer twice is a no-op: only the
// call that moves it out of PENDING runs the simulation.
type Executor struct {
	ledger *ReservationLedger
	cfg    ExecutorConfig

	// rnd draws delivery jitter. Guarded by rndMu so concurrent
	// deliveries do not race the source.
	rnd   *rand.Rand
	rndMu sync.Mutex
}

// NewExecutor creates an executor releasing reservations against the
// given ledger. Zero config fields take defaults.
func NewExecutor(ledger *ReservationLedger, cfg ExecutorConfig) *Executor {
	if cfg.LinkBitrateBPS <= 0 {
		cfg.LinkBitrateBPS = defaultLinkBitrate
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = defaultDeadline
	}
	return &Executor{
		ledger: ledger,
		cfg:    cfg,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Execute runs one planned transfer to its terminal state and returns
// it. The call blocks for the simulated duration; run it with go and
// wait on the transfer's Done channel when concurrency is wanted.
//
// All targets share one deadline. COMPLETED means every chunk reached
// every target in time; anything less is FAILED. Either way the
// storage reserved at planning time is released exactly once.
func (e *Executor) Execute(ctx context.Context, t *FileTransfer) TransferStatus {
	if !t.begin() {
		return t.Status()
	}

	// begin() succeeds once per transfer, so this release cannot
	// double-fire.
	defer func() {
		for _, nodeID := range t.Targets {
			e.ledger.Release(nodeID, t.TotalSize)
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Deadline)
	defer cancel()

	log.Printf("transfer %s started (%d chunks, %d bytes, targets %v)",
		t.ID, len(t.Chunks), t.TotalSize, t.Targets)

	var wg sync.WaitGroup
	for _, nodeID := range t.Targets {
		wg.Add(1)
		go func(nodeID string) {
			defer wg.Done()
			e.deliver(ctx, t, nodeID)
		}(nodeID)
	}
	wg.Wait()

	status := TransferFailed
	if t.complete() {
		status = TransferCompleted
	}
	t.finish(status)
	log.Printf("transfer %s finished: %s", t.ID, status)

	if status == TransferCompleted && e.cfg.Reporter != nil {
		rctx, rcancel := context.WithTimeout(context.Background(), reportTimeout)
		defer rcancel()
		if err := e.cfg.Reporter.ReportTransfer(rctx, t.ID, t.ReplicatedBytes()); err != nil {
			log.Printf("report transfer %s: %v", t.ID, err)
		}
	}
	return status
}

// deliver simulates the sequential chunk stream to one target. The
// stream stops where it stands when the shared deadline expires.
func (e *Executor) deliver(ctx context.Context, t *FileTransfer, nodeID string) {
	for _, chunk := range t.Chunks {
		timer := time.NewTimer(e.chunkDelay(chunk.Size))
		select {
		case <-timer.C:
			chunk.markDelivered(nodeID)
		case <-ctx.Done():
			timer.Stop()
			log.Printf("transfer %s: delivery to %s stopped at chunk %d (%v)",
				t.ID, nodeID, chunk.ID, ctx.Err())
			return
		}
	}
}

// chunkDelay draws one chunk's simulated wire time.
func (e *Executor) chunkDelay(size int64) time.Duration {
	e.rndMu.Lock()
	jitter := 0.8 + e.rnd.Float64()*0.4
	e.rndMu.Unlock()
	return transferDelay(size, e.cfg.LinkBitrateBPS, jitter)
}

// transferDelay is the wire-time model: chunk bits over link bitrate,
// scaled by jitter. Kept pure so the model is testable directly.
func transferDelay(size, bitrateBPS int64, jitter float64) time.Duration {
	seconds := float64(size*8) / float64(bitrateBPS) * jitter
	return time.Duration(seconds * float64(time.Second))
}
