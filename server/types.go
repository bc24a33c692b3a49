package server

import (
	"runtime"

	"github.com/momentics/hioload-httpd/api"
)

// Config holds all server-side configuration parameters.
type Config struct {
	Host            string             // IPv4 bind address, empty = all interfaces
	Port            int                // TCP port, 0 = ephemeral
	Workers         int                // worker goroutines (0 = NumCPU)
	QueueCapacity   int                // bounded task queue size
	MaxEvents       int                // events fetched per poller wait
	Backlog         int                // listen(2) backlog
	MaxRequestBytes int                // request line + headers limit per connection
	ReadChunk       int                // read size while draining a socket
	DocRoot         string             // directory served by the default FileHandler
	Overflow        api.OverflowPolicy // reaction to a full task queue
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            8080,
		Workers:         runtime.NumCPU(),
		QueueCapacity:   10000,
		MaxEvents:       1024,
		Backlog:         1024,
		MaxRequestBytes: 64 * 1024,
		ReadChunk:       4096,
		DocRoot:         ".",
		Overflow:        api.OverflowReject,
	}
}

// normalize fills zero values with defaults.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = def.QueueCapacity
	}
	if c.MaxEvents <= 0 {
		c.MaxEvents = def.MaxEvents
	}
	if c.Backlog <= 0 {
		c.Backlog = def.Backlog
	}
	if c.ReadChunk <= 0 {
		c.ReadChunk = def.ReadChunk
	}
	if c.DocRoot == "" {
		c.DocRoot = def.DocRoot
	}
}
