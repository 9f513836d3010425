package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net"

	"github.com/dreamware/cloudsim/internal/cluster"
)

// Probe responder port range. When no port is requested, one is drawn
// from [5001, 9000] so several nodes can share a host without
// coordinating.
const (
	probePortFloor = 5001
	probePortSpan  = 4000
	bindAttempts   = 32
)

// Responder answers the controller's liveness probes over UDP. It is
// the pull half of liveness detection: when heartbeats stop arriving,
// the controller probes this endpoint before declaring the node dead.
//
// Only the exact probe token gets a reply; anything else is dropped
// silently so port scans and strays cannot fake liveness.
type Responder struct {
	nodeID string
	conn   *net.UDPConn
	reply  []byte
}

// NewResponder binds the probe endpoint. A positive port is bound
// directly and fails fast when taken; port zero draws from the probe
// range until a free port turns up.
func NewResponder(nodeID string, port int) (*Responder, error) {
	if nodeID == "" {
		return nil, fmt.Errorf("node ID must not be empty")
	}

	conn, err := bindProbePort(port)
	if err != nil {
		return nil, err
	}

	reply, _ := json.Marshal(cluster.ProbeReply{NodeID: nodeID, Status: cluster.ProbeAlive})
	return &Responder{nodeID: nodeID, conn: conn, reply: reply}, nil
}

// bindProbePort binds the requested UDP port, or draws from the probe
// range when the request is zero.
func bindProbePort(port int) (*net.UDPConn, error) {
	if port > 0 {
		return net.ListenUDP("udp", &net.UDPAddr{Port: port})
	}

	var lastErr error
	for i := 0; i < bindAttempts; i++ {
		candidate := probePortFloor + rand.Intn(probePortSpan)
		conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: candidate})
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no free probe port after %d attempts: %w", bindAttempts, lastErr)
}

// Serve answers probes until Close. Run it with go:
//
//	go responder.Serve()
func (r *Responder) Serve() {
	buf := make([]byte, 512)
	for {
		n, remote, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Printf("probe responder read: %v", err)
			}
			return
		}
		if string(buf[:n]) != cluster.ProbeRequest {
			continue
		}
		if _, err := r.conn.WriteToUDP(r.reply, remote); err != nil {
			log.Printf("probe reply to %s: %v", remote, err)
		}
	}
}

// Port returns the bound probe port.
func (r *Responder) Port() int {
	return r.conn.LocalAddr().(*net.UDPAddr).Port
}

// Close releases the probe endpoint and stops Serve.
func (r *Responder) Close() error {
	return r.conn.Close()
}
