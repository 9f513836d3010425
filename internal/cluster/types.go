package cluster

// Actions accepted by the controller. One request and one response are
// exchanged per TCP connection.
const (
	ActionRegister       = "REGISTER"
	ActionHeartbeat      = "HEARTBEAT"
	ActionActiveNotify   = "ACTIVE_NOTIFICATION"
	ActionListNodes      = "LIST_NODES"
	ActionStats          = "STATS"
	ActionTransferReport = "TRANSFER_REPORT"
)

// Statuses carried in the response envelope.
const (
	StatusOK    = "OK"
	StatusAck   = "ACK"
	StatusError = "ERROR"
)

// Probe tokens for the UDP liveness exchange. The prober accepts any
// reply containing ProbeAlive; it never parses the reply structurally.
const (
	ProbeRequest = "PING"
	ProbeAlive   = "ALIVE"
)

// Capacity defaults applied by the controller when a registration omits
// fields or sends them as zero.
const (
	DefaultCPUCores     = 4
	DefaultMemoryGB     = 8
	DefaultStorageBytes = int64(100) << 30 // 100 GiB
	DefaultBandwidthBPS = int64(1_000_000_000)
)

// NodeCapacity is a node's declared capacity. Storage is raw bytes and
// bandwidth raw bits per second; CLI-level GB/Mbps inputs are converted
// before they reach this type.
type NodeCapacity struct {
	CPU       int   `json:"cpu"`
	MemoryGB  int   `json:"memory"`
	Storage   int64 `json:"storage"`
	Bandwidth int64 `json:"bandwidth"`
}

// Request is the single message a client sends on a connection. Only
// Action is always present; the remaining fields depend on the action.
// The UDP probe port travels under the key "port" on REGISTER.
type Request struct {
	Action   string        `json:"action"`
	NodeID   string        `json:"node_id,omitempty"`
	Host     string        `json:"host,omitempty"`
	TCPPort  int           `json:"tcp_port,omitempty"`
	UDPPort  int           `json:"port,omitempty"`
	Capacity *NodeCapacity `json:"capacity,omitempty"`
	FileID   string        `json:"file_id,omitempty"`
	Bytes    int64         `json:"bytes,omitempty"`
}

// NodeEntry is one node as reported by LIST_NODES.
type NodeEntry struct {
	NodeID   string       `json:"node_id"`
	Host     string       `json:"host"`
	TCPPort  int          `json:"tcp_port"`
	UDPPort  int          `json:"udp_port"`
	Active   bool         `json:"active"`
	Capacity NodeCapacity `json:"capacity"`
}

// NetworkStats is the aggregate reported by STATS, computed from a
// single consistent registry snapshot.
type NetworkStats struct {
	TotalNodes             int   `json:"total_nodes"`
	ActiveNodes            int   `json:"active_nodes"`
	TotalConnections       int64 `json:"total_connections"`
	TotalDataTransferred   int64 `json:"total_data_transferred"`
	TotalStorageCapacity   int64 `json:"total_storage_capacity"`
	TotalBandwidthCapacity int64 `json:"total_bandwidth_capacity"`
}

// Response is the single message the controller sends back. Status is
// always present; Message only on errors, Nodes only for LIST_NODES,
// Stats only for STATS.
type Response struct {
	Status  string        `json:"status"`
	Message string        `json:"message,omitempty"`
	Nodes   []NodeEntry   `json:"nodes,omitempty"`
	Stats   *NetworkStats `json:"stats,omitempty"`
}

// OK reports whether the response indicates success. The controller
// answers OK for queries and ACK for acknowledgements.
func (r *Response) OK() bool {
	return r.Status == StatusOK || r.Status == StatusAck
}

// ProbeReply is the payload a node sends back for a liveness probe.
type ProbeReply struct {
	NodeID string `json:"node_id"`
	Status string `json:"status"`
}
