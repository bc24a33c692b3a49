// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral poller interface for readiness multiplexing.

package reactor

import "github.com/momentics/hioload-httpd/api"

// Poller is the OS readiness primitive behind a Reactor. Add, Modify, Delete and
// Wake may be called from any goroutine; Wait only from the reactor goroutine.
type Poller interface {
	// Add registers fd. Client fds are added one-shot, the listener is not.
	Add(fd int, interest api.Interest, oneshot bool) error

	// Modify re-arms a one-shot registration with a new interest.
	Modify(fd int, interest api.Interest) error

	// Delete removes fd from the interest set.
	Delete(fd int) error

	// Wait blocks without timeout and writes ready events into events.
	// An interrupted wait returns 0, nil. A Wake also returns, possibly with n == 0.
	Wait(events []Event) (n int, err error)

	// Wake makes a blocked Wait return.
	Wake() error

	// Close releases the poller.
	Close() error
}

// Event is one readiness notification.
type Event struct {
	Fd    int
	Ready api.Readiness
}
