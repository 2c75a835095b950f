// Author: momentics <momentics@gmail.com>

package fake

import (
	"sync"

	"github.com/momentics/hioload-reactor/api"
)

// TransportContext records flow control changes and closes. It does no I/O.
type TransportContext struct {
	mu      sync.Mutex
	flow    api.FlowControl
	history []api.FlowControl
	closed  bool
	closes  int

	// OnClose runs once, on the first Close, outside the lock. Tests use it
	// to deliver close completion to the transport under test.
	OnClose func()
}

var _ api.TransportContext = (*TransportContext)(nil)

// NewTransportContext starts with the given flow control.
func NewTransportContext(flow api.FlowControl) *TransportContext {
	return &TransportContext{flow: flow}
}

func (c *TransportContext) FlowControl() api.FlowControl {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flow
}

func (c *TransportContext) SetFlowControl(flow api.FlowControl) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(flow)
}

func (c *TransportContext) ModifyFlowControl(m api.FlowModifier) api.FlowControl {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(c.flow.Modify(m))
	return c.flow
}

func (c *TransportContext) set(flow api.FlowControl) {
	if flow != c.flow {
		c.history = append(c.history, flow)
	}
	c.flow = flow
}

// History returns every distinct flow control value set, in order.
func (c *TransportContext) History() []api.FlowControl {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]api.FlowControl(nil), c.history...)
}

func (c *TransportContext) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *TransportContext) Close() error {
	c.mu.Lock()
	c.closes++
	first := !c.closed
	c.closed = true
	onClose := c.OnClose
	c.mu.Unlock()
	if first && onClose != nil {
		onClose()
	}
	return nil
}

// CloseCount reports how many times Close has been called.
func (c *TransportContext) CloseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}
