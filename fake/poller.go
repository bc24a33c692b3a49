// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

// Package fake provides in-memory test doubles for reactor collaborators.
package fake

import (
	"errors"
	"sync"

	"github.com/momentics/hioload-httpd/api"
	"github.com/momentics/hioload-httpd/reactor"
)

// ErrStopped is returned by Poller.Wait after Stop.
var ErrStopped = errors.New("fake poller stopped")

// Registration is one Add or Modify call.
type Registration struct {
	Fd       int
	Interest api.Interest
	Oneshot  bool
}

// Poller is a scripted reactor.Poller: Wait returns the batches queued by Push in order.
type Poller struct {
	mu       sync.Mutex
	added    []Registration
	modified []Registration
	deleted  []int
	batches  chan []reactor.Event
	stopped  bool
}

// NewPoller returns an empty scripted poller.
func NewPoller() *Poller {
	return &Poller{batches: make(chan []reactor.Event, 256)}
}

// Push queues one batch of events for a future Wait. It is a no-op after Stop.
func (p *Poller) Push(events ...reactor.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.stopped {
		p.batches <- events
	}
}

// Stop makes Wait fail with ErrStopped once queued batches are consumed.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.stopped {
		p.stopped = true
		close(p.batches)
	}
}

func (p *Poller) Add(fd int, interest api.Interest, oneshot bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.added = append(p.added, Registration{Fd: fd, Interest: interest, Oneshot: oneshot})
	return nil
}

func (p *Poller) Modify(fd int, interest api.Interest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modified = append(p.modified, Registration{Fd: fd, Interest: interest, Oneshot: true})
	return nil
}

func (p *Poller) Delete(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, fd)
	return nil
}

func (p *Poller) Wait(events []reactor.Event) (int, error) {
	batch, ok := <-p.batches
	if !ok {
		return 0, ErrStopped
	}
	return copy(events, batch), nil
}

func (p *Poller) Wake() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil
	}
	select {
	case p.batches <- nil:
	default:
	}
	return nil
}

func (p *Poller) Close() error {
	p.Stop()
	return nil
}

// Added returns a copy of all Add calls.
func (p *Poller) Added() []Registration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Registration(nil), p.added...)
}

// Modified returns a copy of all Modify calls.
func (p *Poller) Modified() []Registration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Registration(nil), p.modified...)
}

// Deleted returns the fds passed to Delete.
func (p *Poller) Deleted() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.deleted...)
}
