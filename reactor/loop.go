// File: reactor/loop.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reactor event loop: accept, hangup handling, one-shot dispatch and re-arming.

package reactor

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-httpd/api"
	"github.com/momentics/hioload-httpd/control"
)

// overloadResponse is written by the reactor itself when OverflowReject drops a connection.
var overloadResponse = []byte("HTTP/1.1 503 Service Unavailable\r\n" +
	"Content-Length: 0\r\nConnection: close\r\n\r\n")

// Dispatcher hands a dispatched connection to a worker without blocking.
// It returns api.ErrQueueFull when no worker capacity is left.
type Dispatcher interface {
	Dispatch(c *Conn) error
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(c *Conn) error

// Dispatch calls f.
func (f DispatchFunc) Dispatch(c *Conn) error { return f(c) }

// Config tunes a Reactor.
type Config struct {
	MaxEvents int                // events fetched per Wait
	Overflow  api.OverflowPolicy // reaction to api.ErrQueueFull
	Log       *logrus.Entry
	Metrics   *control.MetricsRegistry
}

// Reactor multiplexes the listener and client connections on one goroutine.
type Reactor struct {
	poller     Poller
	dispatcher Dispatcher
	cfg        Config
	log        *logrus.Entry
	metrics    *control.MetricsRegistry

	conns    sync.Map // fd -> *Conn
	listener *Conn
	running  atomic.Bool
	closing  atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
}

// New builds a reactor over poller. Ready clients go to dispatcher.
func New(poller Poller, dispatcher Dispatcher, cfg Config) *Reactor {
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = 1024
	}
	if cfg.Log == nil {
		cfg.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Reactor{
		poller:     poller,
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        cfg.Log.WithField("component", "reactor"),
		metrics:    cfg.Metrics,
		done:       make(chan struct{}),
	}
}

// Listen registers a non-blocking listening socket for accept readiness.
func (r *Reactor) Listen(fd int) error {
	c := NewConn(fd, api.RoleListener)
	if err := r.Register(c, api.InterestRead, false); err != nil {
		return err
	}
	r.listener = c
	return nil
}

// Register adds c to the poller. An fd can be registered only once at a time.
func (r *Reactor) Register(c *Conn, interest api.Interest, oneshot bool) error {
	if _, loaded := r.conns.LoadOrStore(c.fd, c); loaded {
		return fmt.Errorf("register fd=%d: %w", c.fd, api.ErrAlreadyArmed)
	}
	c.interest = interest
	c.state.Store(int32(api.StateRegistered))
	c.armed.Store(true)
	if err := r.poller.Add(c.fd, interest, oneshot); err != nil {
		c.armed.Store(false)
		r.conns.CompareAndDelete(c.fd, c)
		return err
	}
	return nil
}

// Rearm hands a dispatched connection back to the reactor and re-enables its
// one-shot registration. Safe to call from any goroutine, once per dispatch.
func (r *Reactor) Rearm(c *Conn, interest api.Interest) error {
	if r.closing.Load() {
		return r.Close(c)
	}
	if !c.state.CompareAndSwap(int32(api.StateDispatched), int32(api.StateRegistered)) {
		if c.State() == api.StateClosed {
			return api.ErrConnClosed
		}
		return fmt.Errorf("rearm %s: %w", c, api.ErrAlreadyArmed)
	}
	c.interest = interest
	c.armed.Store(true)
	if err := r.poller.Modify(c.fd, interest); err != nil {
		r.log.WithError(err).WithField("fd", c.fd).Warn("rearm failed, closing")
		r.Close(c)
		return err
	}
	r.metrics.Inc(control.MetricRearmed)
	return nil
}

// Close unregisters c and closes its descriptor. Safe from any goroutine and idempotent.
func (r *Reactor) Close(c *Conn) error {
	if api.ConnState(c.state.Swap(int32(api.StateClosed))) == api.StateClosed {
		return nil
	}
	c.armed.Store(false)
	// drop from the table first so a reused fd number never meets a stale entry
	r.conns.CompareAndDelete(c.fd, c)
	if err := r.poller.Delete(c.fd); err != nil {
		r.log.WithError(err).WithField("fd", c.fd).Debug("poller delete")
	}
	if c.role == api.RoleClient {
		r.metrics.Inc(control.MetricClosed)
	}
	return unix.Close(c.fd)
}

// Lookup returns the registered connection for fd.
func (r *Reactor) Lookup(fd int) (*Conn, bool) {
	v, ok := r.conns.Load(fd)
	if !ok {
		return nil, false
	}
	return v.(*Conn), true
}

// Snapshot counts client connections per lifecycle state. Dispatched connections
// that nobody re-arms stay counted here forever.
func (r *Reactor) Snapshot() map[api.ConnState]int {
	out := map[api.ConnState]int{}
	r.conns.Range(func(_, v any) bool {
		c := v.(*Conn)
		if c.role == api.RoleClient {
			out[c.State()]++
		}
		return true
	})
	return out
}

// Run drives the loop until Shutdown or a fatal wait error. It locks the calling
// goroutine to its OS thread; only this goroutine ever calls Poller.Wait.
func (r *Reactor) Run() error {
	if !r.running.CompareAndSwap(false, true) {
		return errors.New("reactor: already running")
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer r.doneOnce.Do(func() { close(r.done) })
	if r.closing.Load() {
		r.closeRegistered()
		return nil
	}

	events := make([]Event, r.cfg.MaxEvents)
	for {
		n, err := r.poller.Wait(events)
		if r.closing.Load() {
			r.closeRegistered()
			return nil
		}
		if err != nil {
			r.log.WithError(err).Error("wait failed, leaving loop")
			return err
		}
		for i := 0; i < n; i++ {
			r.handle(events[i])
		}
	}
}

// Shutdown asks Run to return. Registered connections and the listener are closed
// by the loop; dispatched ones are closed when their worker hands them back.
func (r *Reactor) Shutdown() error {
	if !r.closing.CompareAndSwap(false, true) {
		return nil
	}
	if !r.running.Load() {
		r.closeRegistered()
		return nil
	}
	if err := r.poller.Wake(); err != nil {
		return err
	}
	<-r.done
	return nil
}

func (r *Reactor) handle(ev Event) {
	c, ok := r.Lookup(ev.Fd)
	if !ok {
		return
	}
	switch {
	case c.role == api.RoleListener:
		if ev.Ready&api.ReadyError != 0 {
			r.log.WithField("fd", c.fd).Error("listener reported an error")
		}
		r.acceptAll(c)
	case ev.Ready.Closing():
		if c.State() != api.StateRegistered {
			return
		}
		r.metrics.Inc(control.MetricHangups)
		r.log.WithField("fd", c.fd).Debug("hangup")
		r.Close(c)
	default:
		r.dispatch(c, ev.Ready)
	}
}

// acceptAll drains the accept queue of an edge-triggered listener.
func (r *Reactor) acceptAll(l *Conn) {
	for {
		fd, _, err := unix.Accept(l.fd)
		if err != nil {
			switch err {
			case unix.EAGAIN:
				return
			case unix.EINTR, unix.ECONNABORTED:
				continue
			}
			r.metrics.Inc(control.MetricAcceptErrors)
			r.log.WithError(err).Error("accept")
			return
		}
		if err := r.accepted(fd); err != nil {
			r.metrics.Inc(control.MetricAcceptErrors)
			r.log.WithError(err).WithField("fd", fd).Warn("dropping accepted connection")
			unix.Close(fd)
			continue
		}
		r.metrics.Inc(control.MetricAccepted)
	}
}

func (r *Reactor) accepted(fd int) error {
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("set nonblock: %w", err)
	}
	return r.Register(NewConn(fd, api.RoleClient), api.InterestRead, true)
}

// dispatch transfers c to a worker. The CAS makes a second event for the same
// connection a no-op while a task is in flight.
func (r *Reactor) dispatch(c *Conn, ready api.Readiness) {
	if !c.state.CompareAndSwap(int32(api.StateRegistered), int32(api.StateDispatched)) {
		r.log.WithField("fd", c.fd).Debug("event for a connection already in flight")
		return
	}
	c.armed.Store(false)
	c.ready = ready

	err := r.dispatcher.Dispatch(c)
	if err == nil {
		r.metrics.Inc(control.MetricDispatched)
		return
	}
	if !errors.Is(err, api.ErrQueueFull) {
		r.log.WithError(err).WithField("fd", c.fd).Warn("dispatch failed, closing")
		r.Close(c)
		return
	}

	r.metrics.Inc(control.MetricQueueFull)
	switch r.cfg.Overflow {
	case api.OverflowRetry:
		r.metrics.Inc(control.MetricRetried)
		r.log.WithField("fd", c.fd).Debug("queue full, re-arming for redelivery")
		r.Rearm(c, c.interest)
	default:
		r.metrics.Inc(control.MetricRejected)
		r.log.WithField("fd", c.fd).Warn("queue full, rejecting connection")
		unix.Write(c.fd, overloadResponse)
		r.Close(c)
	}
}

// closeRegistered closes every connection the loop still owns.
func (r *Reactor) closeRegistered() {
	r.conns.Range(func(_, v any) bool {
		c := v.(*Conn)
		if c.role == api.RoleListener || c.State() == api.StateRegistered {
			r.Close(c)
		}
		return true
	})
}
