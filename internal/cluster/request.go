package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// exchangeTimeout bounds one full request/response round trip,
// dialing included.
const exchangeTimeout = 5 * time.Second

var dialer = &net.Dialer{Timeout: exchangeTimeout}

// Exchange performs one request/response round trip against the
// controller at addr ("host:port"): dial, send one JSON request, read
// one JSON response, close. Every call uses a fresh connection, which
// is what the controller's one-shot protocol expects.
//
// The round trip is bounded by exchangeTimeout or by the context
// deadline, whichever is earlier. The returned Response may carry
// status ERROR; callers that only care about transport failures can
// check Response.OK separately.
func Exchange(ctx context.Context, addr string, req Request) (*Response, error) {
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(exchangeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("send %s: %w", req.Action, err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("read %s response: %w", req.Action, err)
	}
	return &resp, nil
}
