package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/yasserelgammal/rate-limiter/limiter"
	"github.com/yasserelgammal/rate-limiter/store"
	"golang.org/x/net/netutil"

	"github.com/dreamware/cloudsim/internal/cluster"
)

// requestTimeout bounds one whole connection: read one request, write
// one response.
const requestTimeout = 5 * time.Second

// Wire literals for error responses. The protocol fixes these strings;
// clients match on them.
const (
	msgNotRegistered = "Node not registered"
	msgRateLimited   = "Rate limit exceeded"
)

// ServerConfig carries the tunables of the controller's TCP endpoint.
type ServerConfig struct {
	// Addr is the TCP listen address, e.g. ":8080".
	Addr string

	// MaxConns caps concurrently handled connections. Connections over
	// the cap queue in the listener rather than being refused. Zero
	// means the default of 128.
	MaxConns int

	// RequestsPerSec and Burst configure the per-source-host token
	// bucket. Zero values take generous defaults sized for a whole
	// simulated cluster heartbeating from one host.
	RequestsPerSec int64
	Burst          int64
}

// Server owns the controller's request/response endpoint: one JSON
// request and one JSON response per TCP connection. Protocol errors are
// answered with an ERROR envelope and never crash the accept loop.
//
// Each accepted connection is handled in its own goroutine; the
// LimitListener bounds how many run at once. A per-source token bucket
// throttles hosts that hammer the endpoint.
type Server struct {
	registry *Registry
	cfg      ServerConfig

	limiter      *limiter.TokenBucket
	limiterStore store.Store

	mu       sync.Mutex
	listener net.Listener
	port     int // actual listen port, used to default tcp_port on REGISTER

	wg sync.WaitGroup
}

// NewServer creates a server over the given registry. The zero config
// fields take defaults; Addr defaults to ":8080".
func NewServer(registry *Registry, cfg ServerConfig) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 128
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 256
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 512
	}

	s := &Server{registry: registry, cfg: cfg}
	s.limiterStore = store.NewMemoryStore(time.Minute)
	s.limiter, _ = limiter.NewTokenBucket(
		limiter.Config{
			Rate:     cfg.RequestsPerSec,
			Duration: time.Second,
			Burst:    cfg.Burst,
		},
		s.limiterStore,
	)
	return s
}

// ListenAndServe listens on the configured address and serves until
// Shutdown closes the listener.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(l)
}

// Serve accepts connections on l until it is closed. Each accepted
// connection counts toward the stats connection counter and is handled
// in its own goroutine. Returns nil after Shutdown.
func (s *Server) Serve(l net.Listener) error {
	l = netutil.LimitListener(l, s.cfg.MaxConns)

	s.mu.Lock()
	s.listener = l
	if tcp, ok := l.Addr().(*net.TCPAddr); ok {
		s.port = tcp.Port
	}
	s.mu.Unlock()

	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.registry.CountConnection()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Addr returns the listener address once Serve has started, nil before.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown closes the listener and waits for in-flight connections to
// drain.
func (s *Server) Shutdown() {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l != nil {
		_ = l.Close()
	}
	s.wg.Wait()
}

// handleConn reads one request, dispatches it, writes one response.
// Any protocol failure becomes an ERROR envelope; transport failures
// just close the connection.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(requestTimeout))

	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}
	if !s.limiter.Allow(host) {
		s.respond(conn, &cluster.Response{Status: cluster.StatusError, Message: msgRateLimited})
		return
	}

	var req cluster.Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		s.respond(conn, &cluster.Response{
			Status:  cluster.StatusError,
			Message: fmt.Sprintf("malformed request: %v", err),
		})
		return
	}
	s.respond(conn, s.dispatch(&req))
}

func (s *Server) respond(conn net.Conn, resp *cluster.Response) {
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		log.Printf("write response to %s: %v", conn.RemoteAddr(), err)
	}
}

// dispatch routes one decoded request to its handler.
func (s *Server) dispatch(req *cluster.Request) *cluster.Response {
	switch req.Action {
	case cluster.ActionRegister:
		return s.handleRegister(req)
	case cluster.ActionHeartbeat:
		return s.handleHeartbeat(req)
	case cluster.ActionActiveNotify:
		return s.handleActiveNotification(req)
	case cluster.ActionListNodes:
		return s.handleListNodes()
	case cluster.ActionStats:
		return s.handleStats()
	case cluster.ActionTransferReport:
		return s.handleTransferReport(req)
	default:
		return &cluster.Response{
			Status:  cluster.StatusError,
			Message: fmt.Sprintf("Unknown action: %s", req.Action),
		}
	}
}

func (s *Server) handleRegister(req *cluster.Request) *cluster.Response {
	host := req.Host
	if host == "" {
		host = "127.0.0.1"
	}
	tcpPort := req.TCPPort
	if tcpPort == 0 {
		s.mu.Lock()
		tcpPort = s.port
		s.mu.Unlock()
	}

	if err := s.registry.Register(req.NodeID, host, tcpPort, req.UDPPort, req.Capacity); err != nil {
		return &cluster.Response{Status: cluster.StatusError, Message: err.Error()}
	}

	rec, _ := s.registry.Get(req.NodeID)
	log.Printf("registered node %s (host=%s udp=%d cpu=%d mem=%dGB storage=%dB bw=%dbps)",
		rec.ID, rec.Host, rec.UDPPort,
		rec.Capacity.CPU, rec.Capacity.MemoryGB, rec.Capacity.Storage, rec.Capacity.Bandwidth)
	return &cluster.Response{Status: cluster.StatusOK}
}

func (s *Server) handleHeartbeat(req *cluster.Request) *cluster.Response {
	if err := s.registry.Heartbeat(req.NodeID); err != nil {
		return &cluster.Response{Status: cluster.StatusError, Message: msgNotRegistered}
	}
	return &cluster.Response{Status: cluster.StatusAck}
}

func (s *Server) handleActiveNotification(req *cluster.Request) *cluster.Response {
	if err := s.registry.MarkActive(req.NodeID); err != nil {
		return &cluster.Response{Status: cluster.StatusError, Message: msgNotRegistered}
	}
	log.Printf("node %s is now active", req.NodeID)
	return &cluster.Response{Status: cluster.StatusAck}
}

func (s *Server) handleListNodes() *cluster.Response {
	snapshot := s.registry.Snapshot()
	nodes := make([]cluster.NodeEntry, 0, len(snapshot))
	for _, rec := range snapshot {
		nodes = append(nodes, cluster.NodeEntry{
			NodeID:   rec.ID,
			Host:     rec.Host,
			TCPPort:  rec.TCPPort,
			UDPPort:  rec.UDPPort,
			Active:   rec.Active,
			Capacity: rec.Capacity,
		})
	}
	return &cluster.Response{Status: cluster.StatusOK, Nodes: nodes}
}

func (s *Server) handleStats() *cluster.Response {
	stats := s.registry.Stats()
	return &cluster.Response{Status: cluster.StatusOK, Stats: &stats}
}

func (s *Server) handleTransferReport(req *cluster.Request) *cluster.Response {
	if req.Bytes < 0 {
		return &cluster.Response{Status: cluster.StatusError, Message: "invalid byte count"}
	}
	s.registry.AddDataTransferred(req.Bytes)
	log.Printf("transfer %s reported %d bytes delivered", req.FileID, req.Bytes)
	return &cluster.Response{Status: cluster.StatusAck}
}
