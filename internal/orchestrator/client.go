package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/dreamware/cloudsim/internal/cluster"
)

// Client is the orchestrator's view of the controller. Every call is
// one request/response exchange routed through a circuit breaker:
// after three consecutive transport failures the breaker opens for
// five seconds and calls fail fast with gobreaker.ErrOpenState instead
// of dialing a controller that is down.
//
// Only transport failures trip the breaker. A well-formed ERROR
// envelope from the controller is a healthy exchange; it surfaces as a
// regular error without counting against the breaker.
type Client struct {
	addr    string
	breaker *gobreaker.CircuitBreaker
}

// NewClient creates a client for the controller at addr (host:port).
func NewClient(addr string) *Client {
	return &Client{
		addr: addr,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "controller",
			MaxRequests: 1,
			Timeout:     5 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

// Addr returns the controller address the client dials.
func (c *Client) Addr() string {
	return c.addr
}

// exchange runs one request through the breaker.
func (c *Client) exchange(ctx context.Context, req cluster.Request) (*cluster.Response, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return cluster.Exchange(ctx, c.addr, req)
	})
	if err != nil {
		return nil, err
	}
	return out.(*cluster.Response), nil
}

// ListNodes fetches the controller's membership snapshot.
func (c *Client) ListNodes(ctx context.Context) ([]cluster.NodeEntry, error) {
	resp, err := c.exchange(ctx, cluster.Request{Action: cluster.ActionListNodes})
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("list nodes: %s", resp.Message)
	}
	return resp.Nodes, nil
}

// Stats fetches the cluster-wide aggregate.
func (c *Client) Stats(ctx context.Context) (*cluster.NetworkStats, error) {
	resp, err := c.exchange(ctx, cluster.Request{Action: cluster.ActionStats})
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	if !resp.OK() || resp.Stats == nil {
		return nil, fmt.Errorf("stats: %s", resp.Message)
	}
	return resp.Stats, nil
}

// ReportTransfer tells the controller how many bytes a completed
// transfer placed, so cluster stats reflect the simulation.
func (c *Client) ReportTransfer(ctx context.Context, fileID string, bytes int64) error {
	resp, err := c.exchange(ctx, cluster.Request{
		Action: cluster.ActionTransferReport,
		FileID: fileID,
		Bytes:  bytes,
	})
	if err != nil {
		return fmt.Errorf("report transfer: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("report transfer: %s", resp.Message)
	}
	return nil
}
