// Package controller implements the membership and liveness side of the
// storage simulation. This file implements the heartbeat staleness sweep
// and the UDP fallback probe.
package controller

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/dreamware/cloudsim/internal/cluster"
)

// Monitor defaults. Heartbeats arrive every 2s, so a 10s staleness
// window tolerates several lost heartbeats before the fallback probe
// is even attempted.
const (
	defaultSweepInterval = 5 * time.Second
	defaultStaleAfter    = 10 * time.Second
	defaultProbeTimeout  = time.Second
)

// MonitorConfig carries the timing knobs of the liveness sweep. Zero
// values take the defaults.
type MonitorConfig struct {
	// SweepInterval is how often the staleness sweep runs.
	SweepInterval time.Duration

	// StaleAfter is the heartbeat age that triggers a fallback probe.
	StaleAfter time.Duration

	// ProbeTimeout bounds one UDP probe round trip.
	ProbeTimeout time.Duration
}

// Monitor periodically sweeps the registry for nodes whose heartbeats
// have gone stale and probes them over UDP before flipping them
// inactive. Heartbeats are a push channel that can be lost to transient
// blips; the probe is the pull-based fallback that avoids false
// negatives from a single missed heartbeat window.
//
// The sweep computes the stale set under the registry lock, releases
// the lock, then probes, so registrations and heartbeats are never
// starved by slow or unreachable nodes. A probe success refreshes the
// node; a failure deactivates it but never deletes it.
//
// Thread-safe: Start/Stop may be called from any goroutine.
type Monitor struct {
	registry     *Registry
	interval     time.Duration                     // sweep period
	staleAfter   time.Duration                     // heartbeat age that triggers a probe
	probeTimeout time.Duration                     // per-probe deadline
	probeFunc    func(host string, port int) error // injectable for tests
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewMonitor creates a monitor over the given registry. Zero config
// fields take the defaults: 5s sweep, 10s staleness, 1s probe timeout.
func NewMonitor(registry *Registry, cfg MonitorConfig) *Monitor {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaultStaleAfter
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		registry:     registry,
		interval:     cfg.SweepInterval,
		staleAfter:   cfg.StaleAfter,
		probeTimeout: cfg.ProbeTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
	m.probeFunc = m.defaultProbe
	return m
}

// SetProbeFunc overrides the UDP probe, for tests or custom transports.
func (m *Monitor) SetProbeFunc(probe func(host string, port int) error) {
	m.probeFunc = probe
}

// Start runs the sweep loop in the current goroutine until the context
// (or the monitor's own Stop) cancels it. Run it with go:
//
//	go monitor.Start(ctx)
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()

	if ctx == nil {
		ctx = m.ctx
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	log.Printf("liveness monitor started (sweep %v, stale after %v)", m.interval, m.staleAfter)

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-ctx.Done():
			log.Println("liveness monitor stopping")
			return
		case <-m.ctx.Done():
			log.Println("liveness monitor stopping")
			return
		}
	}
}

// Stop cancels the sweep loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.cancel()
	m.wg.Wait()
}

// sweep probes every node whose heartbeat has gone stale and applies
// the verdicts. Stale inactive nodes are still probed: a node that
// recovers is resurrected by the probe alone, without re-registering.
func (m *Monitor) sweep() {
	for _, rec := range m.registry.Stale(m.staleAfter) {
		if err := m.probeFunc(rec.Host, rec.UDPPort); err == nil {
			if m.registry.MarkActive(rec.ID) == nil {
				log.Printf("refreshed node %s via probe", rec.ID)
			}
			continue
		}
		if m.registry.Deactivate(rec.ID) {
			log.Printf("node %s marked inactive (heartbeat stale, probe failed)", rec.ID)
		}
	}
}

// defaultProbe sends the probe token over UDP and accepts any reply
// that carries the liveness token. The reply body is not parsed.
func (m *Monitor) defaultProbe(host string, port int) error {
	if port <= 0 {
		return fmt.Errorf("node at %s advertised no probe port", host)
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("udp", addr, m.probeTimeout)
	if err != nil {
		return fmt.Errorf("probe %s: %w", addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(m.probeTimeout)); err != nil {
		return fmt.Errorf("probe %s: %w", addr, err)
	}
	if _, err := conn.Write([]byte(cluster.ProbeRequest)); err != nil {
		return fmt.Errorf("probe %s: %w", addr, err)
	}

	buf := make([]byte, 512)
	n, err := conn.Read(buf)
	if err != nil {
		return fmt.Errorf("probe %s: %w", addr, err)
	}
	if !bytes.Contains(buf[:n], []byte(cluster.ProbeAlive)) {
		return fmt.Errorf("probe %s: reply %q carries no liveness token", addr, buf[:n])
	}
	return nil
}
