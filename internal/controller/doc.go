// Package controller implements the control plane of the storage
// simulation: authoritative cluster membership, heartbeat-driven
// liveness with a UDP fallback probe, and the TCP request/response
// endpoint every other process talks to.
//
// # Overview
//
// The controller is the single authority on which nodes exist and
// whether they are alive. Nodes push liveness at it (registration,
// heartbeats, active notifications); the liveness monitor pulls when
// the pushes stop. Orchestrators read membership snapshots and stats
// through the same endpoint.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│            CONTROLLER               │
//	├─────────────────────────────────────┤
//	│                                     │
//	│  ┌───────────────────────────────┐  │
//	│  │   Registry                    │  │
//	│  │   - node_id → NodeRecord      │  │
//	│  │   - registration order        │  │
//	│  │   - connection/transfer ctrs  │  │
//	│  └───────────────────────────────┘  │
//	│                                     │
//	│  ┌───────────────────────────────┐  │
//	│  │   Monitor                     │  │
//	│  │   - staleness sweep (5s)      │  │
//	│  │   - UDP fallback probe (1s)   │  │
//	│  │   - active flag verdicts      │  │
//	│  └───────────────────────────────┘  │
//	│                                     │
//	│  ┌───────────────────────────────┐  │
//	│  │   Server                      │  │
//	│  │   - one request per conn      │  │
//	│  │   - bounded accept fan-out    │  │
//	│  │   - per-host token bucket     │  │
//	│  └───────────────────────────────┘  │
//	│                                     │
//	└─────────────────────────────────────┘
//
// # Liveness Protocol
//
// A node proves liveness three ways, all funneled into LastSeen:
//
//  1. Registration: creates or fully resets the record, active=true.
//  2. Heartbeat: refreshes LastSeen every 2s from the node agent.
//  3. Active notification: one-shot after registration so the node is
//     active immediately, not after the next sweep.
//
// When LastSeen goes stale (10s), the monitor probes the node's UDP
// responder before flipping it inactive. The probe is deliberately
// forgiving: any reply containing the liveness token counts. Nodes are
// flipped inactive, never deleted; a later heartbeat, probe success,
// or re-registration resurrects them.
//
// # Concurrency Model
//
// Registry mutations are linearized through one RWMutex; snapshots and
// stats are computed under the read lock and returned as copies. The
// sweep computes its stale set under the lock but always probes after
// releasing it, so slow nodes cannot starve registrations. Connection
// handling is one goroutine per accepted connection, bounded by a
// LimitListener; a per-host token bucket sheds abusive sources with an
// ERROR response rather than a dropped connection.
//
// # Failure Handling
//
// Protocol failures (malformed JSON, unknown action, unregistered
// node) are answered with {status:"ERROR", message} and never stop the
// accept loop. Probe failures are expected and local: the node goes
// inactive and the sweep moves on.
//
// # Configuration
//
// Key parameters and defaults:
//
//	SweepInterval:  5s      // monitor period
//	StaleAfter:     10s     // heartbeat age before a probe
//	ProbeTimeout:   1s      // per-probe deadline
//	RequestTimeout: 5s      // whole connection deadline
//	MaxConns:       128     // concurrent connection cap
//	RequestsPerSec: 256     // per-host token bucket rate
//
// # Usage Example
//
//	registry := controller.NewRegistry()
//	monitor := controller.NewMonitor(registry, controller.MonitorConfig{})
//	server := controller.NewServer(registry, controller.ServerConfig{Addr: ":8080"})
//
//	go monitor.Start(ctx)
//	go func() {
//	    if err := server.ListenAndServe(); err != nil {
//	        log.Fatalf("listen: %v", err)
//	    }
//	}()
//
//	<-stop
//	monitor.Stop()
//	server.Shutdown()
//
// # See Also
//
// Related packages:
//   - internal/cluster: wire contracts served by the Server
//   - internal/agent: the node-side counterpart
//   - cmd/controller: daemon entry point
package controller
