// File: reactor/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Conn is one registered descriptor: the listener or a client socket together with
// its accumulated request bytes, parser state and pending output.

package reactor

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-httpd/api"
	"github.com/momentics/hioload-httpd/protocol"
)

// ErrWouldBlock is returned by Read when the socket has no more data.
var ErrWouldBlock = errors.New("reactor: operation would block")

// Conn is owned by the reactor while registered and by exactly one worker while
// dispatched. In, Parser and the output queue are only touched by that owner,
// so they carry no lock.
type Conn struct {
	fd       int
	role     api.Role
	state    atomic.Int32 // api.ConnState
	armed    atomic.Bool
	interest api.Interest
	ready    api.Readiness

	// In accumulates request bytes across readiness events.
	In []byte
	// Parser is the resumable parse state over In.
	Parser protocol.Parser

	out             []byte
	closeAfterFlush bool
}

// NewConn wraps fd. It is not registered until Reactor.Register.
func NewConn(fd int, role api.Role) *Conn {
	c := &Conn{fd: fd, role: role}
	c.state.Store(int32(api.StateRegistered))
	return c
}

func (c *Conn) Fd() int { return c.fd }

func (c *Conn) Role() api.Role { return c.role }

// Armed reports whether a one-shot registration is currently waiting for an event.
func (c *Conn) Armed() bool { return c.armed.Load() }

func (c *Conn) State() api.ConnState { return api.ConnState(c.state.Load()) }

// Ready returns the readiness that caused the current dispatch.
func (c *Conn) Ready() api.Readiness { return c.ready }

// Interest returns the interest of the last arming.
func (c *Conn) Interest() api.Interest { return c.interest }

func (c *Conn) String() string {
	return fmt.Sprintf("conn(fd=%d %s %s)", c.fd, c.role, c.State())
}

// Read reads once from the socket. A peer close is reported as io.EOF and an
// empty socket as ErrWouldBlock.
func (c *Conn) Read(p []byte) (int, error) {
	if c.State() == api.StateClosed {
		return 0, api.ErrConnClosed
	}
	for {
		n, err := unix.Read(c.fd, p)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return 0, ErrWouldBlock
		case err == unix.EBADF:
			return 0, api.ErrConnClosed
		case err != nil:
			return 0, fmt.Errorf("conn read fd=%d: %w", c.fd, err)
		case n == 0 && len(p) > 0:
			return 0, io.EOF
		}
		return n, nil
	}
}

// Fill drains the socket into In until it would block, reading chunk bytes at a
// time and stopping once In exceeds limit (limit <= 0 means unbounded).
// Edge-triggered registrations require draining before re-arming.
func (c *Conn) Fill(chunk, limit int) (int, error) {
	if chunk <= 0 {
		chunk = 4096
	}
	total := 0
	for {
		if limit > 0 && len(c.In) > limit {
			return total, api.ErrRequestTooLarge
		}
		if cap(c.In)-len(c.In) < chunk {
			grown := make([]byte, len(c.In), 2*cap(c.In)+chunk)
			copy(grown, c.In)
			c.In = grown
		}
		n, err := c.Read(c.In[len(c.In) : len(c.In)+chunk])
		c.In = c.In[:len(c.In)+n]
		total += n
		if err == ErrWouldBlock {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// Consume drops the first n bytes of In after a request was handled.
func (c *Conn) Consume(n int) {
	if n >= len(c.In) {
		c.In = c.In[:0]
		return
	}
	rest := copy(c.In, c.In[n:])
	c.In = c.In[:rest]
}

// Write sends p without blocking. Whatever the socket does not take is queued and
// reported by Pending; the caller then returns api.ActionSwitchToWrite.
func (c *Conn) Write(p []byte) (int, error) {
	if c.State() == api.StateClosed {
		return 0, api.ErrConnClosed
	}
	if len(c.out) > 0 {
		c.out = append(c.out, p...)
		return len(p), nil
	}
	n, err := c.writeSome(p)
	if err != nil {
		return n, err
	}
	if n < len(p) {
		c.out = append(c.out, p[n:]...)
	}
	return len(p), nil
}

// Pending returns the number of queued output bytes.
func (c *Conn) Pending() int { return len(c.out) }

// CloseAfterFlush marks the connection to be closed once queued output is written.
func (c *Conn) CloseAfterFlush() { c.closeAfterFlush = true }

// ClosingAfterFlush reports whether CloseAfterFlush was called.
func (c *Conn) ClosingAfterFlush() bool { return c.closeAfterFlush }

// Flush writes queued output. It returns true once nothing is pending.
func (c *Conn) Flush() (bool, error) {
	if len(c.out) == 0 {
		return true, nil
	}
	n, err := c.writeSome(c.out)
	c.out = c.out[:copy(c.out, c.out[n:])]
	if err != nil {
		return false, err
	}
	return len(c.out) == 0, nil
}

// writeSome writes until done or until the socket would block.
func (c *Conn) writeSome(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := unix.Write(c.fd, p[written:])
		if n > 0 {
			written += n
		}
		switch {
		case err == nil:
		case err == unix.EINTR:
		case err == unix.EAGAIN:
			return written, nil
		case err == unix.EBADF || err == unix.EPIPE || err == unix.ECONNRESET:
			return written, fmt.Errorf("conn write fd=%d: %v: %w", c.fd, err, api.ErrConnClosed)
		default:
			return written, fmt.Errorf("conn write fd=%d: %w", c.fd, err)
		}
	}
	return written, nil
}
