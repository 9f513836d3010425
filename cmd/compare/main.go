// Package main implements a small inspector for the cloudsim
// controller: it queries STATS and LIST_NODES and prints the
// controller's runtime state in a stable, diffable layout.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/dreamware/cloudsim/internal/cluster"
	"github.com/dreamware/cloudsim/internal/orchestrator"
)

const queryTimeout = 5 * time.Second

func main() {
	host := flag.String("controller-host", getenv("CONTROLLER_HOST", "127.0.0.1"), "controller host")
	port := flag.Int("controller-port", 8080, "controller TCP port")
	flag.Parse()

	client := orchestrator.NewClient(net.JoinHostPort(*host, strconv.Itoa(*port)))

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	stats, statsErr := client.Stats(ctx)
	nodes, nodesErr := client.ListNodes(ctx)
	if statsErr != nil || nodesErr != nil {
		fmt.Println("[Compare] Controller did not respond OK")
		if statsErr != nil {
			fmt.Println("Stats:", statsErr)
		}
		if nodesErr != nil {
			fmt.Println("Nodes:", nodesErr)
		}
		os.Exit(1)
	}

	printStats(os.Stdout, stats)
	printNodes(os.Stdout, nodes)
}

// printStats prints the stats block in the controller's field order.
func printStats(w io.Writer, s *cluster.NetworkStats) {
	fmt.Fprintln(w, "[Compare] Controller Stats")
	fmt.Fprintf(w, "  total_nodes: %d\n", s.TotalNodes)
	fmt.Fprintf(w, "  active_nodes: %d\n", s.ActiveNodes)
	fmt.Fprintf(w, "  total_connections: %d\n", s.TotalConnections)
	fmt.Fprintf(w, "  total_data_transferred: %d\n", s.TotalDataTransferred)
	fmt.Fprintf(w, "  total_storage_capacity: %d\n", s.TotalStorageCapacity)
	fmt.Fprintf(w, "  total_bandwidth_capacity: %d\n", s.TotalBandwidthCapacity)
}

// printNodes prints one block per registered node, in registration
// order.
func printNodes(w io.Writer, nodes []cluster.NodeEntry) {
	fmt.Fprintln(w, "[Compare] Registered Nodes")
	for _, n := range nodes {
		fmt.Fprintf(w, "  - %s: active=%v, host=%s udp=%d\n", n.NodeID, n.Active, n.Host, n.UDPPort)
		fmt.Fprintf(w, "    capacity: cpu=%d mem=%dGB storage=%dB bw=%dbps\n",
			n.Capacity.CPU, n.Capacity.MemoryGB, n.Capacity.Storage, n.Capacity.Bandwidth)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
