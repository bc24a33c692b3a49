// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the single-threaded readiness loop of the server.
//
// A Reactor owns a Poller (epoll on Linux), a registration table of Conn values and a
// Dispatcher that hands ready client connections to workers. Client registrations are
// edge-triggered and one-shot: once an event fires the connection stays silent until
// the goroutine processing it calls Rearm or Close.
package reactor
