// File: reactor/context.go
// Author: momentics <momentics@gmail.com>
//
// Connection context: the reactor-side state of one registered transport.

package reactor

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/internal/concurrency"
)

// Context binds one transport to the reactor. Flow control is changed
// atomically from any goroutine; the registration itself is only touched by
// the reactor goroutine.
type Context struct {
	r         *Reactor
	transport api.Transport

	flow          atomic.Uint32 // api.FlowControl
	interest      atomic.Uint32 // armed interest, written by the reactor goroutine
	reflowPending atomic.Bool
	flushing      atomic.Bool // write buffer holds bytes the kernel refused
	closed        atomic.Bool
	lastActivity  atomic.Int64 // time.Duration since reactor epoch

	reader atomic.Pointer[concurrency.SerialTask]
	writer atomic.Pointer[concurrency.SerialTask]

	// reactor goroutine only
	token      uint32
	registered bool
}

var _ api.TransportContext = (*Context)(nil)

func newContext(r *Reactor, t api.Transport, flow api.FlowControl) *Context {
	c := &Context{r: r, transport: t}
	c.flow.Store(uint32(flow))
	c.touch()
	return c
}

// Transport returns the bound transport.
func (c *Context) Transport() api.Transport { return c.transport }

// FlowControl returns the current flow control.
func (c *Context) FlowControl() api.FlowControl {
	return api.FlowControl(c.flow.Load())
}

// Interest returns the directions currently armed on the registration.
func (c *Context) Interest() api.FlowControl {
	return api.FlowControl(c.interest.Load())
}

// LastActivity returns the time of the last dispatch, relative to the reactor epoch.
func (c *Context) LastActivity() time.Duration {
	return time.Duration(c.lastActivity.Load())
}

// IsOpen reports whether the connection has not been closed.
func (c *Context) IsOpen() bool { return !c.closed.Load() }

// SetFlowControl replaces the flow control. The reactor is woken only when the
// value actually changes.
func (c *Context) SetFlowControl(flow api.FlowControl) {
	for {
		old := c.flow.Load()
		if api.FlowControl(old) == flow {
			return
		}
		if c.flow.CompareAndSwap(old, uint32(flow)) {
			c.requestReflow()
			return
		}
	}
}

// ModifyFlowControl applies m atomically and returns the resulting flow control.
func (c *Context) ModifyFlowControl(m api.FlowModifier) api.FlowControl {
	for {
		old := c.flow.Load()
		next := api.FlowControl(old).Modify(m)
		if uint32(next) == old {
			return next
		}
		if c.flow.CompareAndSwap(old, uint32(next)) {
			c.requestReflow()
			return next
		}
	}
}

// Close closes the channel and runs close completion exactly once. Close
// errors are reported to the reactor observer; a panic from a close callback
// is reported and returned.
func (c *Context) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.closeChannel()
	return c.didClose()
}

// timeout closes an idle connection: DidTimeout precedes DidClose.
func (c *Context) timeout() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.closeChannel()
	c.invoke(c.transport.DidTimeout)
	c.invoke(func() { c.r.observer.DidTimeout(c.transport) })
	c.didClose()
}

// fail reports err to the transport and the observer, then closes. A channel
// closed underneath us is an orderly close, not a failure.
func (c *Context) fail(err error) {
	if errors.Is(err, api.ErrChannelClosed) || !c.IsOpen() {
		c.Close()
		return
	}
	c.invoke(func() { c.transport.DidFail(err) })
	c.invoke(func() { c.r.observer.DidFailTransport(c.transport, err) })
	c.Close()
}

func (c *Context) closeChannel() {
	if err := c.transport.Channel().Close(); err != nil && !errors.Is(err, api.ErrChannelClosed) {
		c.r.observer.DidFail(fmt.Errorf("close channel: %w", err))
	}
	c.requestReflow()
}

func (c *Context) didClose() error {
	if t := c.reader.Load(); t != nil {
		t.Cancel()
	}
	if t := c.writer.Load(); t != nil {
		t.Cancel()
	}
	err := c.invoke(c.transport.DidClose)
	if oerr := c.invoke(func() { c.r.observer.DidClose(c.transport) }); err == nil {
		err = oerr
	}
	return err
}

// invoke runs a callback, converting a panic into a reported error.
func (c *Context) invoke(fn func()) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &api.ErrPanic{Value: v}
			c.r.observer.DidFail(err)
		}
	}()
	fn()
	return nil
}

// guard runs an error-returning callback, converting a panic into its error.
func (c *Context) guard(fn func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &api.ErrPanic{Value: v}
		}
	}()
	return fn()
}

func (c *Context) touch() {
	c.lastActivity.Store(int64(c.r.now()))
}

func (c *Context) requestReflow() {
	if c.reflowPending.CompareAndSwap(false, true) {
		c.r.thread.enqueue(c)
	}
}

// desiredInterest is the flow control plus write while a flush is pending.
func (c *Context) desiredInterest() api.FlowControl {
	interest := c.FlowControl()
	if c.flushing.Load() {
		interest |= api.FlowWrite
	}
	return interest
}

func (c *Context) readerTask() *concurrency.SerialTask {
	if t := c.reader.Load(); t != nil {
		return t
	}
	c.reader.CompareAndSwap(nil, concurrency.NewSerialTask(c.r.exec, c.read))
	return c.reader.Load()
}

func (c *Context) writerTask() *concurrency.SerialTask {
	if t := c.writer.Load(); t != nil {
		return t
	}
	c.writer.CompareAndSwap(nil, concurrency.NewSerialTask(c.r.exec, c.write))
	return c.writer.Load()
}

func (c *Context) cueRead() {
	if c.IsOpen() && !c.readerTask().Cue() {
		c.Close()
	}
}

func (c *Context) cueWrite() {
	if c.IsOpen() && !c.writerTask().Cue() {
		c.Close()
	}
}

// read is the reader task body. It returns true to be rescheduled when the
// read buffer is full and the transport consumed nothing.
func (c *Context) read() bool {
	t := c.transport
	ch := t.Channel()
	progressed := false
	for c.IsOpen() && c.FlowControl().IsReadEnabled() {
		in := t.ReadBuffer()
		space := in.Writable()
		if len(space) == 0 {
			before := in.Len()
			if err := c.invoke(t.DoRead); err != nil {
				c.fail(err)
				return false
			}
			in.Settle()
			if in.Len() < before {
				progressed = true
				continue
			}
			if !progressed {
				return true
			}
			c.requestReflow()
			return false
		}
		n, err := ch.Read(space)
		if err == io.EOF {
			c.Close()
			return false
		}
		if err != nil {
			c.fail(err)
			return false
		}
		if n == 0 {
			// drained; re-arm read interest
			c.requestReflow()
			return false
		}
		in.Advance(n)
		progressed = true
		c.touch()
		if err := c.invoke(t.DoRead); err != nil {
			c.fail(err)
			return false
		}
		in.Settle()
	}
	return false
}

// write is the writer task body.
func (c *Context) write() bool {
	t := c.transport
	ch := t.Channel()
	out := t.WriteBuffer()
	for c.IsOpen() {
		if out.Len() > 0 {
			n, err := ch.Write(out.Bytes())
			if err != nil {
				c.fail(err)
				return false
			}
			if n == 0 {
				c.flushing.Store(true)
				c.requestReflow()
				return false
			}
			out.Consume(n)
			c.touch()
			if out.Len() == 0 {
				c.flushing.Store(false)
				if err := c.invoke(t.DidWrite); err != nil {
					c.fail(err)
					return false
				}
			}
			continue
		}
		if !c.FlowControl().IsWriteEnabled() {
			return false
		}
		out.Reset()
		if err := c.invoke(t.DoWrite); err != nil {
			c.fail(err)
			return false
		}
		if out.Len() == 0 {
			c.requestReflow()
			return false
		}
	}
	return false
}
