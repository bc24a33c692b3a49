// File: internal/concurrency/threadpool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WorkerPool runs a fixed set of worker goroutines over a bounded FIFO queue.

package concurrency

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-httpd/api"
)

// Task is a unit of work executed exactly once by some worker.
type Task interface {
	Run()
}

// TaskFunc adapts a plain function to Task.
type TaskFunc func()

// Run calls f.
func (f TaskFunc) Run() { f() }

// WorkerPool manages N workers consuming a bounded task queue.
type WorkerPool struct {
	mu       sync.Mutex
	nonEmpty *sync.Cond
	tasks    *queue.Queue // guarded by mu
	capacity int
	closed   bool // guarded by mu
	workers  int
	wg       sync.WaitGroup
	log      *logrus.Entry

	// statistics
	submitted atomic.Int64
	completed atomic.Int64
	rejected  atomic.Int64
	panicked  atomic.Int64
}

// NewWorkerPool starts workers goroutines sharing a queue of at most capacity tasks.
func NewWorkerPool(workers, capacity int, log *logrus.Entry) (*WorkerPool, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("worker pool: %d workers: %w", workers, api.ErrInvalidArgument)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("worker pool: queue capacity %d: %w", capacity, api.ErrInvalidArgument)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	p := &WorkerPool{
		tasks:    queue.New(),
		capacity: capacity,
		workers:  workers,
		log:      log.WithField("component", "pool"),
	}
	p.nonEmpty = sync.NewCond(&p.mu)
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run(i)
	}
	return p, nil
}

// Submit enqueues task without blocking. It returns api.ErrQueueFull when the
// queue holds capacity tasks and api.ErrPoolClosed after Shutdown.
func (p *WorkerPool) Submit(task Task) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return api.ErrPoolClosed
	}
	if p.tasks.Length() >= p.capacity {
		p.mu.Unlock()
		p.rejected.Add(1)
		return api.ErrQueueFull
	}
	p.tasks.Add(task)
	p.mu.Unlock()

	p.submitted.Add(1)
	p.nonEmpty.Signal()
	return nil
}

// Len returns the number of queued, not yet started tasks.
func (p *WorkerPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tasks.Length()
}

// Cap returns the queue capacity.
func (p *WorkerPool) Cap() int { return p.capacity }

// NumWorkers returns the fixed worker count.
func (p *WorkerPool) NumWorkers() int { return p.workers }

// Shutdown stops accepting tasks, lets workers drain what is queued and waits for them.
func (p *WorkerPool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.closed = true
	pending := p.tasks.Length()
	p.mu.Unlock()

	p.log.WithField("pending", pending).Debug("shutdown requested, draining queue")
	p.nonEmpty.Broadcast()
	p.wg.Wait()
}

// Stats returns basic pool metrics.
func (p *WorkerPool) Stats() map[string]int64 {
	return map[string]int64{
		"submitted": p.submitted.Load(),
		"completed": p.completed.Load(),
		"rejected":  p.rejected.Load(),
		"panicked":  p.panicked.Load(),
		"pending":   int64(p.Len()),
		"workers":   int64(p.workers),
	}
}

// run is the main loop for a worker.
func (p *WorkerPool) run(id int) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for p.tasks.Length() == 0 && !p.closed {
			p.nonEmpty.Wait()
		}
		if p.tasks.Length() == 0 {
			// closed and drained
			p.mu.Unlock()
			return
		}
		task := p.tasks.Remove().(Task)
		p.mu.Unlock()

		p.execute(id, task)
	}
}

// execute runs the task outside the lock, recovering from panics to keep the worker alive.
func (p *WorkerPool) execute(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(1)
			p.log.WithFields(logrus.Fields{"worker": id, "panic": r}).Error("task panicked")
		}
		p.completed.Add(1)
	}()
	task.Run()
}
