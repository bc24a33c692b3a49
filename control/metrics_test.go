package control_test

import (
	"sync"
	"testing"

	"github.com/momentics/hioload-httpd/control"
)

func TestMetricsRegistryConcurrentAdd(t *testing.T) {
	mr := control.NewMetricsRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				mr.Inc(control.MetricAccepted)
			}
		}()
	}
	wg.Wait()
	if got := mr.Get(control.MetricAccepted); got != 8000 {
		t.Errorf("accepted = %d", got)
	}
	if mr.GetSnapshot()[control.MetricAccepted] != int64(8000) {
		t.Error("snapshot mismatch")
	}
	if mr.Updated().IsZero() {
		t.Error("Updated not recorded")
	}
}

func TestNilMetricsRegistry(t *testing.T) {
	var mr *control.MetricsRegistry
	mr.Inc("x")
	if mr.Get("x") != 0 || len(mr.GetSnapshot()) != 0 {
		t.Error("nil registry must discard")
	}
}

func TestDebugProbes(t *testing.T) {
	dp := control.NewDebugProbes()
	dp.RegisterProbe("answer", func() any { return 42 })
	if dp.DumpState()["answer"] != 42 {
		t.Error("probe not dumped")
	}
}
