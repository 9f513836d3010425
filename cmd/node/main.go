// Package main implements the cloudsim storage node, a simulated
// cluster member that registers with the network controller and then
// proves its liveness for as long as it runs.
//
// The node is a passive participant in the simulation. It holds no
// real data and serves no storage requests; its whole job is to be a
// believable placement target:
//   - Register once with the controller, declaring its capacity
//   - Answer the controller's UDP liveness probes
//   - Push heartbeats on a fixed period
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│                Node                     │
//	├─────────────────────────────────────────┤
//	│  UDP responder - answers PING probes    │
//	│  Registration  - bounded retries        │
//	│  Heartbeats    - every 2s over TCP      │
//	└─────────────────────────────────────────┘
//
// Configuration:
//   - -node-id: unique node identifier (required)
//   - -host: controller host (default $CONTROLLER_HOST or 127.0.0.1)
//   - -network-port: controller TCP port (default 8080)
//   - -cpu, -memory, -storage, -bandwidth: declared capacity
//   - -udp-port: explicit probe port (default: random from 5001-9000)
//   - -discover: resolve the controller over LAN discovery
//
// Example usage:
//
//	# Join a local controller
//	./node -node-id node1 -host 127.0.0.1 -network-port 8080
//
//	# Declare a bigger node, find the controller by discovery
//	./node -node-id node2 -storage 500 -bandwidth 2000 -discover
package main

import (
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dreamware/cloudsim/internal/agent"
	"github.com/dreamware/cloudsim/internal/cluster"
)

// logFatal is a variable to allow mocking log.Fatal in tests.
// This indirection enables test code to intercept fatal errors
// without actually terminating the test process.
var logFatal = log.Fatalf

// discoverWait bounds how long -discover listens for a controller
// announcement before giving up.
const discoverWait = 6 * time.Second

func main() {
	nodeID := flag.String("node-id", "", "unique node identifier (required)")
	host := flag.String("host", getenv("CONTROLLER_HOST", "127.0.0.1"), "controller host")
	networkPort := flag.Int("network-port", 8080, "controller TCP port")
	cpu := flag.Int("cpu", 4, "CPU cores")
	memory := flag.Int("memory", 8, "memory in GB")
	storage := flag.Int("storage", 100, "storage in GB")
	bandwidth := flag.Int("bandwidth", 1000, "bandwidth in Mbps")
	udpPort := flag.Int("udp-port", 0, "probe port (0 = random from the probe range)")
	discover := flag.Bool("discover", false, "find the controller via LAN discovery")
	flag.Parse()

	id := mustFlag("node-id", *nodeID)

	addr, err := controllerAddr(*host, *networkPort, *discover)
	if err != nil {
		logFatal("locate controller: %v", err)
		return
	}

	a := agent.New(agent.Config{
		NodeID:         id,
		ControllerAddr: addr,
		UDPPort:        *udpPort,
		Capacity:       buildCapacity(*cpu, *memory, *storage, *bandwidth),
	})
	if err := a.Start(); err != nil {
		logFatal("start node %s: %v", id, err)
		return
	}

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	a.Stop()
	log.Printf("node %s stopped", id)
}

// controllerAddr resolves the controller endpoint: the explicit
// host:port from the flags, or the first LAN announcement heard when
// discover is set.
func controllerAddr(host string, port int, discover bool) (string, error) {
	if discover {
		addr, err := cluster.Locate(discoverWait)
		if err != nil {
			return "", err
		}
		log.Printf("discovered controller @ %s", addr)
		return addr, nil
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// buildCapacity converts flag-level units to wire units: storage GB to
// bytes, bandwidth Mbps to bits per second. CPU cores and memory GB
// cross the wire unchanged.
//
// Example:
//
//	buildCapacity(4, 8, 100, 1000)
//	// cpu=4, memory=8GB, storage=107374182400B, bandwidth=1000000000bps
func buildCapacity(cpu, memoryGB, storageGB, bandwidthMbps int) *cluster.NodeCapacity {
	return &cluster.NodeCapacity{
		CPU:       cpu,
		MemoryGB:  memoryGB,
		Storage:   cluster.GBToBytes(storageGB),
		Bandwidth: cluster.MbpsToBPS(bandwidthMbps),
	}
}

// getenv retrieves an environment variable with a fallback default.
//
// Parameters:
//   - k: Environment variable name to look up
//   - def: Default value if variable is unset or empty
//
// Returns:
//   - Environment variable value if set and non-empty
//   - Default value otherwise
//
// Example:
//
//	host := getenv("CONTROLLER_HOST", "127.0.0.1")
//	// Returns $CONTROLLER_HOST if set, otherwise "127.0.0.1"
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// mustFlag returns the flag value, terminating the program when it is
// empty. Use it for flags the node cannot run without.
//
// Side effects:
//   - Calls log.Fatal if the value is empty
//   - Program terminates with exit code 1
func mustFlag(name, v string) string {
	if v == "" {
		logFatal("missing -%s", name)
	}
	return v
}
