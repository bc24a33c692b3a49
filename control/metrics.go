// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for system-level monitoring.
// Counters are created on first use and safe for concurrent update.

package control

import (
	"sync"
	"sync/atomic"
	"time"
)

// Well-known counter names.
const (
	MetricAccepted     = "reactor.accepted"
	MetricAcceptErrors = "reactor.accept_errors"
	MetricDispatched   = "reactor.dispatched"
	MetricHangups      = "reactor.hangups"
	MetricQueueFull    = "reactor.queue_full"
	MetricRetried      = "reactor.overflow_retried"
	MetricRejected     = "reactor.overflow_rejected"
	MetricRearmed      = "reactor.rearmed"
	MetricClosed       = "reactor.closed"
	MetricRequests     = "server.requests"
	MetricParseErrors  = "server.parse_errors"
	MetricPeerClosed   = "server.peer_closed"
)

// MetricsRegistry holds named counters. A nil registry discards updates.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]*atomic.Int64
	updated  atomic.Int64 // unix nanos of the last update
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters: make(map[string]*atomic.Int64),
	}
}

func (mr *MetricsRegistry) counter(key string) *atomic.Int64 {
	mr.mu.RLock()
	c, ok := mr.counters[key]
	mr.mu.RUnlock()
	if ok {
		return c
	}
	mr.mu.Lock()
	defer mr.mu.Unlock()
	if c, ok = mr.counters[key]; !ok {
		c = new(atomic.Int64)
		mr.counters[key] = c
	}
	return c
}

// Add adds delta to key.
func (mr *MetricsRegistry) Add(key string, delta int64) {
	if mr == nil {
		return
	}
	mr.counter(key).Add(delta)
	mr.updated.Store(time.Now().UnixNano())
}

// Inc adds one to key.
func (mr *MetricsRegistry) Inc(key string) { mr.Add(key, 1) }

// Get returns the current value of key, zero if never set.
func (mr *MetricsRegistry) Get(key string) int64 {
	if mr == nil {
		return 0
	}
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	if c, ok := mr.counters[key]; ok {
		return c.Load()
	}
	return 0
}

// Updated returns the time of the last update.
func (mr *MetricsRegistry) Updated() time.Time {
	if mr == nil {
		return time.Time{}
	}
	ns := mr.updated.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// GetSnapshot returns the latest metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	if mr == nil {
		return map[string]any{}
	}
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.counters))
	for k, c := range mr.counters {
		out[k] = c.Load()
	}
	return out
}
