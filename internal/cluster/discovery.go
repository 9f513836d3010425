package cluster

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/schollz/peerdiscovery"
)

// discoveryPrefix tags multicast payloads so unrelated peerdiscovery
// traffic on the same LAN is ignored. The announced payload is the
// prefix followed by the controller's TCP port.
const discoveryPrefix = "cloudsim-controller|"

// ErrNoController is returned by Locate when no controller announced
// itself within the wait window.
var ErrNoController = errors.New("no controller announcement heard")

// Announce multicasts this controller's TCP port on the local network
// until stop is closed. Nodes and orchestrators started with -discover
// resolve the controller address from these announcements instead of
// requiring an explicit host flag.
//
// Announce blocks; run it in its own goroutine. A multicast failure
// (no multicast-capable interface, sandboxed network) is returned to
// the caller and is not fatal to the controller itself.
func Announce(port int, stop chan struct{}) error {
	_, err := peerdiscovery.Discover(peerdiscovery.Settings{
		Limit:     -1,
		TimeLimit: -1,
		Delay:     2 * time.Second,
		Payload:   []byte(discoveryPrefix + strconv.Itoa(port)),
		AllowSelf: true,
		StopChan:  stop,
	})
	return err
}

// Locate listens for a controller announcement for up to wait and
// returns the first controller address ("host:port") it hears.
// Returns ErrNoController if the window elapses silently.
func Locate(wait time.Duration) (string, error) {
	var once sync.Once
	found := make(chan string, 1)
	stop := make(chan struct{})

	_, err := peerdiscovery.Discover(peerdiscovery.Settings{
		Limit:     -1,
		TimeLimit: wait,
		Delay:     500 * time.Millisecond,
		AllowSelf: true,
		StopChan:  stop,
		Notify: func(d peerdiscovery.Discovered) {
			addr, ok := parseAnnouncement(d.Address, d.Payload)
			if !ok {
				return
			}
			once.Do(func() {
				found <- addr
				close(stop)
			})
		},
	})
	if err != nil {
		return "", err
	}

	select {
	case addr := <-found:
		return addr, nil
	default:
		return "", ErrNoController
	}
}

// parseAnnouncement extracts "host:port" from one discovered payload.
// Payloads without the controller prefix or with a non-numeric port
// are rejected.
func parseAnnouncement(host string, payload []byte) (string, bool) {
	s := string(payload)
	if !strings.HasPrefix(s, discoveryPrefix) {
		return "", false
	}
	port := strings.TrimPrefix(s, discoveryPrefix)
	if _, err := strconv.Atoi(port); err != nil {
		return "", false
	}
	return net.JoinHostPort(host, port), true
}
