// Package orchestrator plans and simulates replicated file transfers
// against the controller's live membership view.
//
// # Overview
//
// The orchestrator is a client of the controller: it fetches the node
// list, decides where a file's replicas should live, and then plays
// the transfer forward in simulated time. No file bytes exist anywhere
// in the pipeline. Chunk deliveries are timers sized by a wire-time
// model, and the only durable effects are bookkeeping: reservations
// while a transfer is in flight and a byte-count report to the
// controller when it completes.
//
// # Pipeline
//
//	Client.ListNodes ──▶ Planner.Plan ──▶ Executor.Execute ──▶ Client.ReportTransfer
//	     (snapshot)       (placement,       (simulated            (stats update,
//	                       reservation)      delivery)             best effort)
//
// The Planner filters the snapshot to active nodes with room for the
// whole file, ranks them by available storage then bandwidth, and
// reserves the file size on each selected target so concurrent plans
// cannot oversubscribe a node. The Executor streams chunks to every
// target concurrently under one shared deadline and releases the
// reservations exactly once when the transfer reaches a terminal
// state.
//
// # Simulation Model
//
// Files are sliced into chunks by size tier (512KB under 10MB, 2MB
// under 100MB, 10MB beyond). Each chunk delivery takes its size over
// the configured link bitrate, scaled by ±20% jitter. A transfer is
// COMPLETED only when every chunk reached every target before the
// deadline; everything else is FAILED, with per-chunk status preserved
// for inspection.
//
// # Concurrency
//
// Transfers are independent: one Executor may run many concurrently,
// and each transfer fans out one goroutine per target. The shared
// ReservationLedger and each transfer's delivery state carry their own
// locks; callers only synchronize through FileTransfer.Done.
//
// # See Also
//
// Related packages:
//   - internal/cluster: wire contracts used by the Client
//   - internal/controller: the server side of every exchange
//   - cmd/orchestrator: CLI entry point running the pipeline
package orchestrator
