package agent

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dreamware/cloudsim/internal/cluster"
)

// Agent timing. Heartbeats run well inside the controller's 10s
// staleness window; registration retries cover a controller that is
// still coming up.
const (
	defaultHeartbeatEvery = 2 * time.Second
	heartbeatTimeout      = 3 * time.Second

	defaultRegisterAttempts = 10
	defaultRegisterDelay    = 400 * time.Millisecond
)

// Config describes one simulated node.
type Config struct {
	// NodeID uniquely identifies the node in the cluster.
	NodeID string

	// ControllerAddr is the controller endpoint, host:port.
	ControllerAddr string

	// Host is the address the controller probes. Defaults to
	// "127.0.0.1", which is where simulated nodes live.
	Host string

	// UDPPort requests a specific probe port. Zero draws one from the
	// probe range.
	UDPPort int

	// Capacity is the declared capacity. Nil lets the controller apply
	// its defaults.
	Capacity *cluster.NodeCapacity

	// HeartbeatEvery overrides the heartbeat period. Zero means 2s.
	HeartbeatEvery time.Duration
}

// Agent is the node-side lifecycle: bind the probe responder, register
// with the controller, announce active, then heartbeat until stopped.
//
// Heartbeat failures are logged and skipped, never retried in a burst:
// the controller's fallback probe exists precisely to ride out lost
// heartbeats, and the next tick is at most one period away.
type Agent struct {
	cfg       Config
	responder *Responder

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Registration retry knobs, narrowed in tests.
	registerAttempts int
	registerDelay    time.Duration
}

// New creates an agent from the config. Zero config fields take
// defaults.
func New(cfg Config) *Agent {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.HeartbeatEvery <= 0 {
		cfg.HeartbeatEvery = defaultHeartbeatEvery
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Agent{
		cfg:              cfg,
		ctx:              ctx,
		cancel:           cancel,
		registerAttempts: defaultRegisterAttempts,
		registerDelay:    defaultRegisterDelay,
	}
}

// Start brings the node into the cluster: probe responder up,
// registration through, activation announced, heartbeats running. Any
// failure tears down what was started and reports it; the agent holds
// no half-joined state.
func (a *Agent) Start() error {
	responder, err := NewResponder(a.cfg.NodeID, a.cfg.UDPPort)
	if err != nil {
		return fmt.Errorf("bind probe responder: %w", err)
	}
	a.responder = responder
	go responder.Serve()

	if err := a.register(); err != nil {
		responder.Close()
		return err
	}
	if err := a.announceActive(); err != nil {
		responder.Close()
		return err
	}

	a.wg.Add(1)
	go a.heartbeatLoop()

	log.Printf("node %s joined the cluster (probe port %d)", a.cfg.NodeID, responder.Port())
	return nil
}

// Stop withdraws the node: heartbeats stop and the probe endpoint
// closes, so the controller's next sweep marks it inactive.
func (a *Agent) Stop() {
	a.cancel()
	if a.responder != nil {
		a.responder.Close()
	}
	a.wg.Wait()
}

// UDPPort returns the bound probe port once Start has run.
func (a *Agent) UDPPort() int {
	if a.responder == nil {
		return 0
	}
	return a.responder.Port()
}

// register announces the node to the controller, retrying to cover a
// controller that is still starting up.
func (a *Agent) register() error {
	req := cluster.Request{
		Action:   cluster.ActionRegister,
		NodeID:   a.cfg.NodeID,
		Host:     a.cfg.Host,
		UDPPort:  a.responder.Port(),
		Capacity: a.cfg.Capacity,
	}

	var lastErr error
	for i := 0; i < a.registerAttempts; i++ {
		resp, err := cluster.Exchange(a.ctx, a.cfg.ControllerAddr, req)
		if err == nil && resp.OK() {
			log.Printf("registered with controller @ %s", a.cfg.ControllerAddr)
			return nil
		}
		if err == nil {
			err = fmt.Errorf("controller refused registration: %s", resp.Message)
		}
		lastErr = err
		log.Printf("register retry %d: %v", i+1, lastErr)
		time.Sleep(a.registerDelay)
	}
	return fmt.Errorf("failed to register with controller: %w", lastErr)
}

// announceActive pushes the one-shot activation so the node is active
// immediately instead of after the controller's next sweep.
func (a *Agent) announceActive() error {
	resp, err := cluster.Exchange(a.ctx, a.cfg.ControllerAddr, cluster.Request{
		Action: cluster.ActionActiveNotify,
		NodeID: a.cfg.NodeID,
	})
	if err != nil {
		return fmt.Errorf("announce active: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("announce active: %s", resp.Message)
	}
	return nil
}

// heartbeatLoop pushes liveness on the period until the agent stops.
func (a *Agent) heartbeatLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.HeartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.heartbeat()
		case <-a.ctx.Done():
			return
		}
	}
}

// heartbeat sends one liveness push. Failures are logged and left to
// the controller's fallback probe.
func (a *Agent) heartbeat() {
	ctx, cancel := context.WithTimeout(a.ctx, heartbeatTimeout)
	defer cancel()

	resp, err := cluster.Exchange(ctx, a.cfg.ControllerAddr, cluster.Request{
		Action: cluster.ActionHeartbeat,
		NodeID: a.cfg.NodeID,
	})
	if err != nil {
		log.Printf("heartbeat: %v", err)
		return
	}
	if !resp.OK() {
		log.Printf("heartbeat rejected: %s", resp.Message)
	}
}
