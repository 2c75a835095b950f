// File: internal/concurrency/executor.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor dispatches tasks across worker goroutines: a lock-free bounded
// queue takes the common case, an unbounded overflow queue absorbs bursts so
// that Submit never blocks the reactor goroutine.

package concurrency

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	log "github.com/sirupsen/logrus"

	"github.com/momentics/hioload-reactor/api"
)

// TaskFunc is a unit of work to execute.
type TaskFunc = func()

// DefaultQueueCapacity is the size of the lock-free submission ring.
const DefaultQueueCapacity = 4096

// Executor manages a pool of worker goroutines.
type Executor struct {
	ring       *LockFreeQueue[TaskFunc]
	overflowMu sync.Mutex
	overflow   *queue.Queue // TaskFunc, used when ring is full

	wake    chan struct{}
	closeCh chan struct{}
	closed  atomic.Bool
	wg      sync.WaitGroup

	numWorkers int
	onPanic    func(v any)

	totalTasks     atomic.Int64
	completedTasks atomic.Int64
	panics         atomic.Int64
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithQueueCapacity sets the lock-free ring capacity.
func WithQueueCapacity(n int) ExecutorOption {
	return func(e *Executor) { e.ring = NewLockFreeQueue[TaskFunc](n) }
}

// WithPanicHandler replaces the default panic reporter.
func WithPanicHandler(fn func(v any)) ExecutorOption {
	return func(e *Executor) { e.onPanic = fn }
}

var _ api.Executor = (*Executor)(nil)

// NewExecutor creates a new Executor with the given number of workers.
// If numWorkers <= 0, defaults to runtime.NumCPU().
func NewExecutor(numWorkers int, opts ...ExecutorOption) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	e := &Executor{
		overflow:   queue.New(),
		wake:       make(chan struct{}, numWorkers),
		closeCh:    make(chan struct{}),
		numWorkers: numWorkers,
		onPanic: func(v any) {
			log.WithField("panic", v).Error("Executor task panicked")
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ring == nil {
		e.ring = NewLockFreeQueue[TaskFunc](DefaultQueueCapacity)
	}
	for i := 0; i < numWorkers; i++ {
		e.wg.Add(1)
		go e.work()
	}
	return e
}

// Submit enqueues a task. Returns ErrExecutorClosed once closed.
func (e *Executor) Submit(task func()) error {
	if e.closed.Load() {
		return api.ErrExecutorClosed
	}
	e.totalTasks.Add(1)
	if !e.ring.Enqueue(task) {
		e.overflowMu.Lock()
		e.overflow.Add(task)
		e.overflowMu.Unlock()
	}
	select {
	case e.wake <- struct{}{}:
	default:
		// every worker already has a pending wakeup
	}
	return nil
}

// NumWorkers returns the worker count.
func (e *Executor) NumWorkers() int {
	return e.numWorkers
}

// Close stops accepting tasks and signals workers to exit. Queued tasks that
// have not started are dropped. Close does not wait; see Wait.
func (e *Executor) Close() {
	if e.closed.CompareAndSwap(false, true) {
		close(e.closeCh)
	}
}

// Wait blocks until every worker has exited. It must not be called from a task.
func (e *Executor) Wait() {
	e.wg.Wait()
}

// Stats returns basic executor metrics.
func (e *Executor) Stats() map[string]int64 {
	total := e.totalTasks.Load()
	completed := e.completedTasks.Load()
	return map[string]int64{
		"total_tasks":     total,
		"completed_tasks": completed,
		"pending_tasks":   total - completed,
		"panics":          e.panics.Load(),
		"num_workers":     int64(e.numWorkers),
	}
}

func (e *Executor) next() (TaskFunc, bool) {
	if task, ok := e.ring.Dequeue(); ok {
		return task, true
	}
	e.overflowMu.Lock()
	defer e.overflowMu.Unlock()
	if e.overflow.Length() == 0 {
		return nil, false
	}
	return e.overflow.Remove().(TaskFunc), true
}

func (e *Executor) work() {
	defer e.wg.Done()
	for {
		select {
		case <-e.closeCh:
			return
		default:
		}
		if task, ok := e.next(); ok {
			e.execute(task)
			continue
		}
		select {
		case <-e.wake:
		case <-e.closeCh:
			return
		}
	}
}

// execute runs the task, recovering panics so the worker stays alive.
func (e *Executor) execute(task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			e.panics.Add(1)
			e.onPanic(r)
		}
		e.completedTasks.Add(1)
	}()
	task()
}
