// Package cluster defines the wire contracts shared by every process in
// the storage simulation: the controller daemon, the node agents, and
// the transfer orchestrator.
//
// # Overview
//
// The simulation runs as independent processes that only ever talk
// through two tiny protocols, both defined here:
//
//   - A request/response protocol over TCP: one JSON request, one JSON
//     response, connection closed. Used for registration, heartbeats,
//     active notifications, node listings, stats queries, and transfer
//     reports.
//   - A liveness probe over UDP: a literal "PING" answered with a small
//     JSON identity payload containing the token "ALIVE". Used by the
//     controller as a pull-based fallback when heartbeats go stale.
//
// # Architecture
//
//	            ┌──────────────────┐
//	            │    Controller    │
//	            │                  │
//	            │ - Registry       │
//	            │ - Liveness sweep │
//	            └───┬──────────┬───┘
//	         TCP┌───┘          └───┐UDP probe
//	            │                  │
//	      ┌─────▼─────┐      ┌─────▼─────┐
//	      │ Node n1   │ ...  │ Node nN   │
//	      │ heartbeat │      │ responder │
//	      └───────────┘      └───────────┘
//	            ▲
//	            │ TCP (LIST_NODES, STATS, TRANSFER_REPORT)
//	      ┌─────┴────────┐
//	      │ Orchestrator │
//	      └──────────────┘
//
// # Message Contracts
//
// Every TCP request is a Request with an Action field; every reply is a
// Response whose Status is "OK", "ACK", or "ERROR". Unknown actions are
// answered with an ERROR response, never a dropped connection. The
// REGISTER request carries the node's UDP probe port under the JSON key
// "port"; LIST_NODES reports it back as "udp_port".
//
// Exchange performs one full round trip on a fresh connection, which is
// the only interaction pattern the protocol supports; there is no
// connection reuse or pipelining.
//
// # Units
//
// Capacity crosses the wire in raw bytes (storage) and bits per second
// (bandwidth). Human-scale units only exist in CLI flags; GBToBytes,
// MBToBytes, and MbpsToBPS convert at that boundary.
//
// # Controller Discovery
//
// Announce and Locate implement optional LAN discovery over multicast
// so nodes and orchestrators can find the controller without being
// handed its address. Discovery is advisory: every binary also accepts
// an explicit controller address.
//
// # See Also
//
// Related packages:
//   - internal/controller: membership registry, liveness monitor, TCP server
//   - internal/agent: node-side responder, registration, heartbeats
//   - internal/orchestrator: placement planning and transfer simulation
package cluster
