// File: reactor/thread.go
// Author: momentics <momentics@gmail.com>
//
// The reactor loop: reflow queued flow-control changes, wait for readiness,
// dispatch, sweep idle connections.

package reactor

import (
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/internal/concurrency"
)

const joinRetryInterval = 10 * time.Millisecond

type thread struct {
	r      *Reactor
	poller Poller
	events []PollEvent

	// reactor goroutine only
	registry  map[uint32]*Context
	nextToken uint32
	lastSweep time.Duration

	mu       sync.Mutex
	pending  *queue.Queue // *Context awaiting reflow
	shutdown bool

	done chan struct{}
}

func newThread(r *Reactor, poller Poller) *thread {
	return &thread{
		r:        r,
		poller:   poller,
		events:   make([]PollEvent, r.maxEvents),
		registry: make(map[uint32]*Context),
		pending:  queue.New(),
		done:     make(chan struct{}),
	}
}

func (t *thread) run() {
	runtime.LockOSThread()
	if t.r.cpu < 0 {
		defer runtime.UnlockOSThread()
	}
	// a pinned thread is never unlocked, so it dies with the goroutine
	defer t.exit()
	if err := concurrency.PinCurrentThread(t.r.cpu); err != nil {
		t.r.observer.DidFail(err)
	}

	t.lastSweep = t.r.now()
	close(t.r.started)
	t.r.observer.DidStart()

	for !t.r.IsStopped() {
		t.reflow()
		n, err := t.poller.Wait(t.events, t.r.idleInterval)
		if err != nil {
			t.r.observer.DidFail(err)
			break
		}
		for i := 0; i < n; i++ {
			t.dispatch(t.events[i])
		}
		t.checkIdle()
	}
}

// exit closes every connection, releases the poller and the stop barrier. It
// also runs when the loop panics.
func (t *thread) exit() {
	// a loop panic is reported and deliberately not rethrown
	if v := recover(); v != nil {
		t.r.observer.DidFail(&api.ErrPanic{Value: v})
	}
	t.r.status.Or(statusStopped)

	t.mu.Lock()
	t.shutdown = true
	var stragglers []*Context
	for t.pending.Length() > 0 {
		stragglers = append(stragglers, t.pending.Remove().(*Context))
	}
	t.mu.Unlock()

	var errs *multierror.Error
	for _, c := range t.registry {
		if err := c.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	for _, c := range stragglers {
		if err := c.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	t.registry = nil
	if err := t.poller.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if t.r.ownedExec != nil {
		t.r.ownedExec.Close()
		fields := log.Fields{}
		for k, v := range t.r.ownedExec.Stats() {
			fields[k] = v
		}
		log.WithFields(fields).Debug("Reactor executor closed")
	}
	t.r.stopErr = errs.ErrorOrNil()
	t.r.observer.DidStop()
	close(t.done)
	close(t.r.stopped)
}

// interruptAndJoin wakes the loop until it has exited.
func (t *thread) interruptAndJoin() {
	for {
		_ = t.poller.Wake()
		select {
		case <-t.done:
			return
		case <-time.After(joinRetryInterval):
		}
	}
}

// enqueue queues c for reflow and wakes the loop. After shutdown it closes c
// instead, so late registrations still complete.
func (t *thread) enqueue(c *Context) {
	t.mu.Lock()
	if t.shutdown {
		t.mu.Unlock()
		c.Close()
		return
	}
	t.pending.Add(c)
	t.mu.Unlock()
	_ = t.poller.Wake()
}

func (t *thread) dequeue() *Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending.Length() == 0 {
		return nil
	}
	return t.pending.Remove().(*Context)
}

func (t *thread) reflow() {
	for c := t.dequeue(); c != nil; c = t.dequeue() {
		c.reflowPending.Store(false)
		t.sync(c)
	}
}

// sync makes c's registration match its flow control.
func (t *thread) sync(c *Context) {
	if !c.IsOpen() {
		// the descriptor was closed, which removed it from the poller
		if c.registered {
			delete(t.registry, c.token)
		}
		return
	}
	interest := c.desiredInterest()
	fd := c.transport.Channel().Fd()
	var err error
	if !c.registered {
		c.token = t.allocToken()
		if err = t.poller.Add(fd, c.token, interest); err == nil {
			c.registered = true
			t.registry[c.token] = c
		}
	} else {
		err = t.poller.Modify(fd, c.token, interest)
	}
	if err != nil {
		t.registrationFailed(c, err)
		return
	}
	c.interest.Store(uint32(interest))
}

func (t *thread) allocToken() uint32 {
	for {
		t.nextToken++
		if t.nextToken == wakeToken {
			continue
		}
		if _, taken := t.registry[t.nextToken]; !taken {
			return t.nextToken
		}
	}
}

// registrationFailed treats a concurrent close as close completion.
func (t *thread) registrationFailed(c *Context, err error) {
	if errors.Is(err, api.ErrChannelClosed) {
		c.Close()
	} else {
		c.fail(err)
	}
	if c.registered {
		delete(t.registry, c.token)
	}
}

func (t *thread) dispatch(ev PollEvent) {
	c := t.registry[ev.Token]
	if c == nil {
		return
	}
	if !c.IsOpen() {
		delete(t.registry, c.token)
		return
	}
	interest := api.FlowControl(c.interest.Load())
	var ready api.FlowControl
	if ev.Readable {
		ready |= interest & (api.FlowAccept | api.FlowRead)
	}
	if ev.Writable {
		ready |= interest & (api.FlowConnect | api.FlowWrite)
	}
	if ev.Hangup {
		ready |= interest
	}
	if ready == 0 {
		// one-shot registration stays disarmed until the next reflow
		return
	}
	remaining := interest &^ ready
	c.interest.Store(uint32(remaining))
	if remaining != 0 {
		if err := t.poller.Modify(c.transport.Channel().Fd(), c.token, remaining); err != nil {
			t.registrationFailed(c, err)
			return
		}
	}
	c.touch()

	if ready.IsAcceptEnabled() {
		t.accept(c)
	}
	if ready.IsConnectEnabled() && c.IsOpen() {
		t.connect(c)
	}
	if ready.IsReadEnabled() {
		c.cueRead()
	}
	if ready.IsWriteEnabled() {
		c.cueWrite()
	}
}

func (t *thread) accept(c *Context) {
	if err := c.guard(c.transport.DoAccept); err != nil {
		c.fail(err)
		return
	}
	t.r.observer.DidAccept(c.transport)
	// accept interest stays in the flow control; re-arm it
	c.requestReflow()
}

func (t *thread) connect(c *Context) {
	if err := c.guard(c.transport.DoConnect); err != nil {
		c.fail(err)
		return
	}
	if c.IsOpen() {
		t.r.observer.DidConnect(c.transport)
	}
}

// checkIdle closes connections inactive beyond their timeout, at most once per
// idle-check interval.
func (t *thread) checkIdle() {
	now := t.r.now()
	if now-t.lastSweep < t.r.idleInterval {
		return
	}
	t.lastSweep = now
	fallback := t.r.IdleTimeout()
	for _, c := range t.registry {
		timeout := c.transport.IdleTimeout()
		if timeout < 0 {
			timeout = fallback
		}
		if timeout <= 0 {
			continue
		}
		if now-c.LastActivity() > timeout {
			c.timeout()
		}
	}
}
