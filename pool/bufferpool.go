// File: pool/bufferpool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import "bytes"

// DefaultMaxRetained bounds the capacity of a buffer kept for reuse.
const DefaultMaxRetained = 64 << 10

// BufferPool recycles bytes.Buffer values. Buffers that grew past maxRetained
// are left to the GC so one large response does not pin memory.
type BufferPool struct {
	pool        *SyncPool[*bytes.Buffer]
	maxRetained int
}

var _ ObjectPool[*bytes.Buffer] = (*BufferPool)(nil)

// NewBufferPool returns a pool; maxRetained <= 0 selects DefaultMaxRetained.
func NewBufferPool(maxRetained int) *BufferPool {
	if maxRetained <= 0 {
		maxRetained = DefaultMaxRetained
	}
	return &BufferPool{
		pool:        NewSyncPool(func() *bytes.Buffer { return new(bytes.Buffer) }),
		maxRetained: maxRetained,
	}
}

// Get returns an empty buffer.
func (p *BufferPool) Get() *bytes.Buffer {
	b := p.pool.Get()
	b.Reset()
	return b
}

// Put hands b back. The caller must not touch b afterwards.
func (p *BufferPool) Put(b *bytes.Buffer) {
	if b == nil || b.Cap() > p.maxRetained {
		return
	}
	b.Reset()
	p.pool.Put(b)
}
