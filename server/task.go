// File: server/task.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Worker-side processing of one dispatched connection: drain, parse, handle, re-arm.

package server

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-httpd/api"
	"github.com/momentics/hioload-httpd/control"
	"github.com/momentics/hioload-httpd/protocol"
	"github.com/momentics/hioload-httpd/reactor"
)

// connTask is the unit submitted to the worker pool for a dispatched connection.
type connTask struct {
	s *Server
	c *reactor.Conn
}

func (t connTask) Run() { t.s.serve(t.c) }

// dispatch is the reactor's Dispatcher; it never blocks.
func (s *Server) dispatch(c *reactor.Conn) error {
	return s.pool.Submit(connTask{s: s, c: c})
}

// serve owns c until it calls Rearm or Close exactly once.
func (s *Server) serve(c *reactor.Conn) {
	log := s.log.WithField("fd", c.Fd())
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("handler panicked, closing connection")
			s.reactor.Close(c)
		}
	}()

	if c.Interest() == api.InterestWrite {
		s.flush(c, log)
		return
	}

	_, err := c.Fill(s.cfg.ReadChunk, s.cfg.MaxRequestBytes)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		s.metrics.Inc(control.MetricPeerClosed)
		log.Debug("peer closed")
		s.reactor.Close(c)
		return
	case errors.Is(err, api.ErrRequestTooLarge):
		log.WithField("buffered", len(c.In)).Info("request too large")
		s.apply(c, mustClose(s.handler.Process(c, nil, err)), log)
		return
	default:
		log.WithError(err).Debug("read failed")
		s.reactor.Close(c)
		return
	}
	s.process(c, log)
}

// process parses buffered bytes and serves every complete request in order.
func (s *Server) process(c *reactor.Conn, log *logrus.Entry) {
	for {
		res, perr := c.Parser.Parse(c.In)
		switch res {
		case protocol.ResultIncomplete:
			s.apply(c, api.ActionRearmRead, log)
			return
		case protocol.ResultMalformed:
			s.metrics.Inc(control.MetricParseErrors)
			log.WithError(perr).Debug("malformed request")
			// a broken stream cannot be resynchronized
			s.apply(c, mustClose(s.handler.Process(c, nil, perr)), log)
			return
		}

		req := c.Parser.Request()
		s.metrics.Inc(control.MetricRequests)
		action := s.handler.Process(c, req, nil)
		log.WithFields(logrus.Fields{
			"method": req.Method.String(),
			"uri":    req.URI,
			"action": action.String(),
		}).Debug("request served")

		c.Consume(c.Parser.Consumed())
		c.Parser.Reset()
		if action != api.ActionRearmRead || c.Pending() > 0 || len(c.In) == 0 {
			s.apply(c, action, log)
			return
		}
		// the next request is already buffered; serve it before re-arming
	}
}

// flush continues a response that did not fit into the socket buffer.
func (s *Server) flush(c *reactor.Conn, log *logrus.Entry) {
	done, err := c.Flush()
	switch {
	case err != nil:
		log.WithError(err).Debug("flush failed")
		s.reactor.Close(c)
	case !done:
		s.rearm(c, api.InterestWrite, log)
	case c.ClosingAfterFlush():
		s.reactor.Close(c)
	default:
		s.process(c, log)
	}
}

// apply carries out a handler's action.
func (s *Server) apply(c *reactor.Conn, action api.NextAction, log *logrus.Entry) {
	if c.Pending() > 0 {
		// output must drain before the connection can read or close
		if action == api.ActionClose {
			c.CloseAfterFlush()
		}
		action = api.ActionSwitchToWrite
	}
	switch action {
	case api.ActionRearmRead:
		s.rearm(c, api.InterestRead, log)
	case api.ActionSwitchToWrite:
		s.rearm(c, api.InterestWrite, log)
	default:
		s.reactor.Close(c)
	}
}

func (s *Server) rearm(c *reactor.Conn, interest api.Interest, log *logrus.Entry) {
	if err := s.reactor.Rearm(c, interest); err != nil {
		log.WithError(err).Debug("rearm")
	}
}

func mustClose(a api.NextAction) api.NextAction {
	if a == api.ActionRearmRead {
		return api.ActionClose
	}
	return a
}
