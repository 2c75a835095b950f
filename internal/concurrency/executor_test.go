// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/hioload-reactor/api"
)

func TestExecutorRunsEveryTask(t *testing.T) {
	ex := NewExecutor(4, WithQueueCapacity(8))
	defer func() {
		ex.Close()
		ex.Wait()
	}()

	const n = 1000
	var wg sync.WaitGroup
	var counter atomic.Int64
	wg.Add(n)
	for i := 0; i < n; i++ {
		if err := ex.Submit(func() {
			counter.Add(1)
			wg.Done()
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	waitGroup(t, &wg, 5*time.Second)
	if counter.Load() != n {
		t.Fatalf("ran %d tasks, want %d", counter.Load(), n)
	}
	// a ring of 8 forces most submissions through the overflow queue
	if ex.Stats()["completed_tasks"] != n {
		t.Errorf("completed_tasks = %d", ex.Stats()["completed_tasks"])
	}
}

func TestExecutorSurvivesPanics(t *testing.T) {
	var panics atomic.Int64
	ex := NewExecutor(1, WithPanicHandler(func(v any) { panics.Add(1) }))
	defer ex.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	_ = ex.Submit(func() { panic("boom") })
	_ = ex.Submit(func() { wg.Done() })
	waitGroup(t, &wg, 2*time.Second)
	if panics.Load() != 1 {
		t.Fatalf("panic handler called %d times", panics.Load())
	}
}

func TestExecutorClosed(t *testing.T) {
	ex := NewExecutor(2)
	ex.Close()
	ex.Wait()
	if err := ex.Submit(func() {}); err != api.ErrExecutorClosed {
		t.Fatalf("Submit after Close = %v", err)
	}
	if ex.NumWorkers() != 2 {
		t.Fatalf("NumWorkers = %d", ex.NumWorkers())
	}
}

func waitGroup(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for tasks")
	}
}
