// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"

	"github.com/momentics/hioload-httpd/reactor"
)

// Dispatcher records dispatched connections and fails with Err when set.
type Dispatcher struct {
	mu   sync.Mutex
	err  error
	got  []*reactor.Conn
	Sent chan *reactor.Conn // receives every accepted dispatch when non-nil
}

// NewDispatcher returns a dispatcher that accepts everything.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{Sent: make(chan *reactor.Conn, 64)}
}

// Fail makes subsequent dispatches return err; nil restores success.
func (d *Dispatcher) Fail(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
}

func (d *Dispatcher) Dispatch(c *reactor.Conn) error {
	d.mu.Lock()
	if d.err != nil {
		err := d.err
		d.mu.Unlock()
		return err
	}
	d.got = append(d.got, c)
	d.mu.Unlock()
	if d.Sent != nil {
		d.Sent <- c
	}
	return nil
}

// Count returns how many dispatches succeeded.
func (d *Dispatcher) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.got)
}
