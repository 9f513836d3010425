// Package main implements the cloudsim transfer orchestrator CLI: plan
// one replicated file transfer against the live cluster, simulate it,
// and print the outcome.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/dreamware/cloudsim/internal/cluster"
	"github.com/dreamware/cloudsim/internal/orchestrator"
)

// logFatal is a variable to allow mocking log.Fatal in tests.
var logFatal = log.Fatalf

const (
	// completionWait bounds how long the CLI waits for the simulated
	// transfer to reach a terminal state.
	completionWait = 40 * time.Second

	discoverWait = 6 * time.Second
	listTimeout  = 5 * time.Second
)

func main() {
	host := flag.String("host", getenv("CONTROLLER_HOST", "127.0.0.1"), "controller host")
	port := flag.Int("port", 8080, "controller TCP port")
	discover := flag.Bool("discover", false, "find the controller via LAN discovery")
	fileName := flag.String("file-name", "", "file to replicate (required)")
	sizeMB := flag.Int("size-mb", 10, "file size in MB")
	replication := flag.Int("replication", 2, "replica count")
	flag.Parse()

	if *fileName == "" {
		logFatal("missing -file-name")
		return
	}

	addr := net.JoinHostPort(*host, strconv.Itoa(*port))
	if *discover {
		found, err := cluster.Locate(discoverWait)
		if err != nil {
			logFatal("locate controller: %v", err)
			return
		}
		addr = found
		log.Printf("discovered controller @ %s", addr)
	}

	client := orchestrator.NewClient(addr)

	ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
	nodes, err := client.ListNodes(ctx)
	cancel()
	if err != nil {
		logFatal("list nodes: %v", err)
		return
	}

	ledger := orchestrator.NewReservationLedger()
	planner := orchestrator.NewPlanner(ledger)
	transfer, err := planner.Plan(nodes, *fileName, cluster.MBToBytes(*sizeMB), *replication)
	if errors.Is(err, orchestrator.ErrNoCapacity) {
		fmt.Println("[Orchestrator] No suitable nodes available")
		return
	}
	if err != nil {
		logFatal("plan transfer: %v", err)
		return
	}

	executor := orchestrator.NewExecutor(ledger, orchestrator.ExecutorConfig{Reporter: client})
	go executor.Execute(context.Background(), transfer)

	select {
	case <-transfer.Done():
	case <-time.After(completionWait):
		log.Printf("transfer %s still running after %v", transfer.ID, completionWait)
	}
	fmt.Printf("[Orchestrator] Status: %s\n", transfer.Status())
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
