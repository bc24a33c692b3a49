// File: server/options.go
// Package server defines functional options for the Server facade.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-httpd/api"
)

// Option customizes server initialization.
type Option func(*Server)

// WithHandler replaces the default FileHandler.
func WithHandler(h RequestHandler) Option {
	return func(s *Server) {
		s.handler = h
	}
}

// WithLogger sets the logger shared by reactor, pool and handlers.
func WithLogger(l *logrus.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithWorkers sets the number of worker goroutines.
func WithWorkers(n int) Option {
	return func(s *Server) {
		s.cfg.Workers = n
	}
}

// WithQueueCapacity bounds the task queue.
func WithQueueCapacity(n int) Option {
	return func(s *Server) {
		s.cfg.QueueCapacity = n
	}
}

// WithOverflowPolicy chooses between rejecting and retrying on a full queue.
func WithOverflowPolicy(p api.OverflowPolicy) Option {
	return func(s *Server) {
		s.cfg.Overflow = p
	}
}

// WithMaxRequestBytes limits how much a client may send before its headers end.
func WithMaxRequestBytes(n int) Option {
	return func(s *Server) {
		s.cfg.MaxRequestBytes = n
	}
}
