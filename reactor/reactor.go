// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Reactor lifecycle: start, stop and registration.

package reactor

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/internal/concurrency"
)

const (
	statusStarted uint32 = 1 << iota
	statusStopped
)

// Reactor owns the poller, the reactor goroutine and, unless one is supplied,
// the worker pool. Status is monotonic: once stopped a reactor never restarts.
type Reactor struct {
	exec      api.Executor
	ownedExec *concurrency.Executor
	workers   int
	maxEvents int
	cpu       int

	idleTimeout  atomic.Int64 // time.Duration
	idleInterval time.Duration

	observer  Observer
	newPoller func() (Poller, error)

	status  atomic.Uint32
	started chan struct{} // start barrier
	stopped chan struct{} // stop barrier

	// written before the barrier they belong to is released
	startErr error
	stopErr  error

	thread *thread
	epoch  time.Time
}

// New creates a stopped reactor. Nothing is allocated at the OS level until Start.
func New(opts ...Option) *Reactor {
	r := &Reactor{
		maxEvents:    defaultMaxEvents,
		cpu:          -1,
		idleInterval: DefaultIdleCheckInterval,
		newPoller:    NewPoller,
		started:      make(chan struct{}),
		stopped:      make(chan struct{}),
		epoch:        time.Now(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.observer == nil {
		r.observer = NewLogObserver()
	}
	return r
}

// Start launches the reactor goroutine exactly once. Every caller returns only
// once that goroutine is running. Starting a stopped reactor fails with
// api.ErrReactorStopped.
func (r *Reactor) Start() error {
	for {
		s := r.status.Load()
		if s&statusStopped != 0 {
			if s&statusStarted != 0 {
				<-r.started
				if r.startErr != nil {
					return r.startErr
				}
			}
			return api.ErrReactorStopped
		}
		if s&statusStarted != 0 {
			<-r.started
			return r.startErr
		}
		if r.status.CompareAndSwap(s, s|statusStarted) {
			r.launch()
			<-r.started
			return r.startErr
		}
	}
}

func (r *Reactor) launch() {
	r.observer.WillStart()
	poller, err := r.newPoller()
	if err != nil {
		r.startErr = fmt.Errorf("reactor: open poller: %w", err)
		r.status.Or(statusStopped)
		r.observer.DidFail(r.startErr)
		close(r.started)
		close(r.stopped)
		return
	}
	if r.exec == nil {
		r.ownedExec = concurrency.NewExecutor(r.workers, concurrency.WithPanicHandler(func(v any) {
			r.observer.DidFail(&api.ErrPanic{Value: v})
		}))
		r.exec = r.ownedExec
	}
	r.thread = newThread(r, poller)
	go r.thread.run()
}

// Stop shuts the reactor down. The first caller interrupts and joins the
// reactor goroutine; every caller returns once each registered transport has
// received DidClose and the poller has been released. The returned error
// aggregates failures encountered while closing.
func (r *Reactor) Stop() error {
	for {
		s := r.status.Load()
		if s&statusStopped != 0 {
			break
		}
		if r.status.CompareAndSwap(s, s|statusStopped) {
			r.observer.WillStop()
			if s&statusStarted != 0 {
				<-r.started
				if r.thread != nil {
					r.thread.interruptAndJoin()
				}
			} else {
				r.observer.DidStop()
				close(r.stopped)
			}
			break
		}
	}
	<-r.stopped
	return r.stopErr
}

// IsRunning reports whether the reactor goroutine has started and not stopped.
func (r *Reactor) IsRunning() bool {
	return r.status.Load() == statusStarted
}

// IsStopped reports whether Stop has been requested or the reactor has failed.
func (r *Reactor) IsStopped() bool {
	return r.status.Load()&statusStopped != 0
}

// Done is closed once shutdown has fully completed.
func (r *Reactor) Done() <-chan struct{} {
	return r.stopped
}

// Register binds t to the reactor with an initial flow control, starting the
// reactor if needed.
func (r *Reactor) Register(t api.Transport, flow api.FlowControl) (*Context, error) {
	if err := r.Start(); err != nil {
		return nil, err
	}
	c := newContext(r, t, flow)
	if b, ok := t.(api.ContextBinder); ok {
		b.SetTransportContext(c)
	}
	c.requestReflow()
	return c, nil
}

// SetIdleTimeout changes the default idle timeout at runtime; zero disables it.
func (r *Reactor) SetIdleTimeout(d time.Duration) {
	r.idleTimeout.Store(int64(d))
}

// IdleTimeout returns the default idle timeout.
func (r *Reactor) IdleTimeout() time.Duration {
	return time.Duration(r.idleTimeout.Load())
}

// IdleCheckInterval returns the idle sweep period.
func (r *Reactor) IdleCheckInterval() time.Duration {
	return r.idleInterval
}

// Executor returns the worker pool; nil before Start when none was supplied.
func (r *Reactor) Executor() api.Executor {
	return r.exec
}

// now is monotonic time since the reactor was created.
func (r *Reactor) now() time.Duration {
	return time.Since(r.epoch)
}
