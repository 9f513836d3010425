// Package agent implements the node side of the storage simulation: a
// UDP probe responder, registration with retry, and periodic
// heartbeats.
//
// # Overview
//
// An Agent is one simulated storage node. Start walks the join
// sequence in a fixed order:
//
//  1. Bind the UDP probe responder, so the controller can verify
//     liveness from the first moment the node is visible.
//  2. Register over TCP, retrying while the controller comes up. The
//     registration advertises the bound probe port and the declared
//     capacity.
//  3. Send the one-shot active notification.
//  4. Heartbeat on a fixed period until Stop.
//
// Any failure in steps 1-3 tears down what was already started and is
// returned from Start; a node never runs half-joined.
//
// # Liveness
//
// Liveness has a push half and a pull half. The push half is the
// heartbeat loop here; a failed heartbeat is logged and skipped, not
// retried, because the next tick is at most one period away. The pull
// half is the Responder: when the controller stops hearing heartbeats
// it probes the advertised UDP port, and the responder answers the
// exact probe token with a small JSON identity payload. Stray UDP
// traffic is dropped without a reply.
//
// # Ports
//
// A node may request a specific probe port; port zero draws one at
// random from [5001, 9000] so many nodes can share a host without
// coordinating. The bound port, not the requested one, is what gets
// advertised to the controller.
//
// # See Also
//
// Related packages:
//   - internal/cluster: wire contracts for registration and heartbeats
//   - internal/controller: registry and sweep on the receiving end
//   - cmd/node: CLI entry point wrapping one Agent
package agent
