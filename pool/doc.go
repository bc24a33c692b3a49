// Package pool
// Author: momentics <momentics@gmail.com>
//
// Reusable scratch memory for the request path.
// SyncPool is a typed sync.Pool; BufferPool recycles response buffers and
// drops oversized ones instead of pinning them.
package pool
