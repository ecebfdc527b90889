package pool

import (
	"runtime"
	"sync/atomic"
	"testing"
)

func TestNewDefaultsToGOMAXPROCS(t *testing.T) {
	for _, n := range []int{0, -3} {
		p := New(n)
		if p.Workers() != runtime.GOMAXPROCS(0) {
			t.Errorf("New(%d).Workers() = %d, want %d", n, p.Workers(), runtime.GOMAXPROCS(0))
		}
		p.Close()
	}
}

func TestExecuteAllRunsEachTaskOnce(t *testing.T) {
	p := New(4)
	defer p.Close()

	const n = 500
	var hits [n]atomic.Int32
	p.ForEach(n, func(i int) {
		hits[i].Add(1)
	})
	for i := range hits {
		if got := hits[i].Load(); got != 1 {
			t.Errorf("task %d ran %d times", i, got)
		}
	}
}

func TestExecuteAllMoreTasksThanQueueSpace(t *testing.T) {
	p := New(1)
	defer p.Close()

	var count atomic.Int64
	tasks := make([]func(), 100)
	for i := range tasks {
		tasks[i] = func() { count.Add(1) }
	}
	p.ExecuteAll(tasks)
	if count.Load() != 100 {
		t.Errorf("count = %d, want 100", count.Load())
	}
}

func TestExecuteAllEmpty(t *testing.T) {
	p := New(2)
	defer p.Close()
	p.ExecuteAll(nil)
	p.ForEach(0, func(int) { t.Error("called") })
}

func TestClosedPoolRunsInline(t *testing.T) {
	p := New(2)
	p.Close()
	p.Close()

	var count atomic.Int64
	p.ForEach(10, func(int) { count.Add(1) })
	if count.Load() != 10 {
		t.Errorf("count = %d, want 10", count.Load())
	}
}
