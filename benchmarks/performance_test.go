// Package benchmarks
// Author: momentics <momentics@gmail.com>
//
// Performance benchmarks for hioload-httpd components.

package benchmarks

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-httpd/api"
	"github.com/momentics/hioload-httpd/internal/concurrency"
	"github.com/momentics/hioload-httpd/pool"
	"github.com/momentics/hioload-httpd/protocol"
)

var request = []byte("GET /index.html HTTP/1.1\r\nHost: bench.local\r\nUser-Agent: bench\r\nAccept: */*\r\nConnection: keep-alive\r\n\r\n")

// BenchmarkParserWhole parses a complete request in one call.
func BenchmarkParserWhole(b *testing.B) {
	var p protocol.Parser
	b.SetBytes(int64(len(request)))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p.Reset()
		if res, err := p.Parse(request); res != protocol.ResultComplete {
			b.Fatalf("res=%v err=%v", res, err)
		}
	}
}

// BenchmarkParserFragmented feeds the request in 7-byte reads.
func BenchmarkParserFragmented(b *testing.B) {
	var p protocol.Parser
	b.SetBytes(int64(len(request)))
	for i := 0; i < b.N; i++ {
		p.Reset()
		res := protocol.ResultIncomplete
		for end := 7; res == protocol.ResultIncomplete; end += 7 {
			res, _ = p.Parse(request[:min(end, len(request))])
		}
		if res != protocol.ResultComplete {
			b.Fatalf("res=%v", res)
		}
	}
}

// BenchmarkWorkerPoolSubmit measures admission and execution through the bounded queue.
func BenchmarkWorkerPoolSubmit(b *testing.B) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	wp, err := concurrency.NewWorkerPool(4, 4096, logrus.NewEntry(log))
	if err != nil {
		b.Fatal(err)
	}
	var wg sync.WaitGroup
	task := concurrency.TaskFunc(wg.Done)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wg.Add(1)
		for {
			err := wp.Submit(task)
			if err == nil {
				break
			}
			if !errors.Is(err, api.ErrQueueFull) {
				b.Fatal(err)
			}
		}
	}
	wg.Wait()
	b.StopTimer()
	wp.Shutdown()
}

// BenchmarkBufferPool measures response buffer reuse under parallel load.
func BenchmarkBufferPool(b *testing.B) {
	bp := pool.NewBufferPool(0)
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf := bp.Get()
			buf.Write(request)
			bp.Put(buf)
		}
	})
}

// BenchmarkBufferAlloc is the allocating baseline for BenchmarkBufferPool.
func BenchmarkBufferAlloc(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			var buf bytes.Buffer
			buf.Write(request)
		}
	})
}
