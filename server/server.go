// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server wires the listening socket, the reactor and the worker pool.

package server

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-httpd/api"
	"github.com/momentics/hioload-httpd/control"
	"github.com/momentics/hioload-httpd/internal/concurrency"
	"github.com/momentics/hioload-httpd/reactor"
	"github.com/momentics/hioload-httpd/transport/tcp"
)

// Server is the composition root of the HTTP front end.
type Server struct {
	cfg      *Config
	handler  RequestHandler
	logger   *logrus.Logger
	log      *logrus.Entry
	metrics  *control.MetricsRegistry
	probes   *control.DebugProbes
	pool     *concurrency.WorkerPool
	listener *tcp.Listener
	poller   reactor.Poller
	reactor  *reactor.Reactor

	shutdownOnce sync.Once
}

// New builds the worker pool, the listening socket and the reactor, in that order.
// Any failure is returned as an *api.Error and leaves nothing open.
func New(cfg *Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	s := &Server{
		cfg:     &c,
		metrics: control.NewMetricsRegistry(),
		probes:  control.NewDebugProbes(),
	}
	for _, o := range opts {
		o(s)
	}
	s.cfg.normalize()
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	s.log = logrus.NewEntry(s.logger).WithField("component", "server")
	if s.handler == nil {
		s.handler = NewFileHandler(s.cfg.DocRoot, logrus.NewEntry(s.logger))
	}

	pool, err := concurrency.NewWorkerPool(s.cfg.Workers, s.cfg.QueueCapacity, logrus.NewEntry(s.logger))
	if err != nil {
		return nil, api.NewError(api.ErrCodeWorkerPool, "worker pool", err)
	}
	s.pool = pool

	ln, err := tcp.Listen(s.cfg.Host, s.cfg.Port, s.cfg.Backlog)
	if err != nil {
		pool.Shutdown()
		return nil, err
	}
	s.listener = ln

	poller, err := reactor.NewPoller()
	if err != nil {
		ln.Close()
		pool.Shutdown()
		return nil, api.NewError(api.ErrCodePoller, "poller", err)
	}
	s.poller = poller

	s.reactor = reactor.New(poller, reactor.DispatchFunc(s.dispatch), reactor.Config{
		MaxEvents: s.cfg.MaxEvents,
		Overflow:  s.cfg.Overflow,
		Log:       logrus.NewEntry(s.logger),
		Metrics:   s.metrics,
	})
	if err := s.reactor.Listen(ln.Fd()); err != nil {
		poller.Close()
		ln.Close()
		pool.Shutdown()
		return nil, api.NewError(api.ErrCodePoller, "register listener", err)
	}

	s.probes.RegisterProbe("reactor.connections", func() any {
		out := map[string]int{}
		for state, n := range s.reactor.Snapshot() {
			out[state.String()] = n
		}
		return out
	})
	s.probes.RegisterProbe("pool.queue", func() any {
		return map[string]int{"len": s.pool.Len(), "cap": s.pool.Cap()}
	})
	return s, nil
}

// Serve runs the reactor loop on the calling goroutine until Shutdown or a
// fatal poller error.
func (s *Server) Serve() error {
	s.log.WithFields(logrus.Fields{
		"addr":     s.listener.Addr(),
		"workers":  s.cfg.Workers,
		"queue":    s.cfg.QueueCapacity,
		"overflow": s.cfg.Overflow.String(),
	}).Info("serving")
	return s.reactor.Run()
}

// Shutdown stops the reactor, lets workers finish queued connections and
// releases the poller. Safe to call more than once.
func (s *Server) Shutdown() error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.reactor.Shutdown()
		s.pool.Shutdown()
		if cerr := s.poller.Close(); err == nil {
			err = cerr
		}
		s.log.Info("stopped")
	})
	return err
}

// Addr returns the bound listen address.
func (s *Server) Addr() string { return s.listener.Addr() }

// Port returns the bound port.
func (s *Server) Port() int { return s.listener.Port() }

// Stats merges counters, pool statistics and debug probes.
func (s *Server) Stats() map[string]any {
	out := s.metrics.GetSnapshot()
	for k, v := range s.pool.Stats() {
		out["pool."+k] = v
	}
	for k, v := range s.probes.DumpState() {
		out[k] = v
	}
	return out
}

// Metrics exposes the raw counter registry.
func (s *Server) Metrics() *control.MetricsRegistry { return s.metrics }
