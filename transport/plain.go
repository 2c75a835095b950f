// File: transport/plain.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"github.com/momentics/hioload-reactor/api"
)

// PlainTransport forwards readiness on a channel to its bound socket without
// any framing or encryption.
type PlainTransport struct {
	base
}

var (
	_ api.Transport     = (*PlainTransport)(nil)
	_ api.ContextBinder = (*PlainTransport)(nil)
	_ api.SocketContext = (*PlainTransport)(nil)
)

// NewClientTransport wraps a channel with a connect in progress. Register it
// with api.FlowConnect.
func NewClientTransport(ch api.Channel, socket api.Socket, opts ...Option) *PlainTransport {
	return newPlainTransport(ch, socket, statusClient, opts)
}

// NewServerTransport wraps an accepted channel. It is connected as soon as it
// is registered.
func NewServerTransport(ch api.Channel, socket api.Socket, opts ...Option) *PlainTransport {
	return newPlainTransport(ch, socket, statusServer, opts)
}

func newPlainTransport(ch api.Channel, socket api.Socket, role uint32, opts []Option) *PlainTransport {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	t := &PlainTransport{}
	t.init(t, ch, socket, role, o)
	return t
}

// SetTransportContext binds the reactor context.
func (t *PlainTransport) SetTransportContext(ctx api.TransportContext) {
	t.ctx = ctx
	t.socket().WillConnect()
	if t.IsServer() {
		t.connected()
	}
}

// DoConnect completes the connect and switches the connection to reading.
func (t *PlainTransport) DoConnect() error {
	ok, err := t.finishConnect()
	if !ok {
		return err
	}
	t.ModifyFlowControl(api.DisableConnect | api.EnableRead)
	t.connected()
	return nil
}

func (t *PlainTransport) connected() {
	if t.transition(statusConnecting, statusConnected) {
		t.socket().DidConnect()
	}
}

func (t *PlainTransport) DoRead()   { t.socket().DoRead(t.in) }
func (t *PlainTransport) DoWrite()  { t.socket().DoWrite(t.out) }
func (t *PlainTransport) DidWrite() { t.socket().DidWrite() }

// IsSecure is always false.
func (t *PlainTransport) IsSecure() bool { return false }

// Close closes the connection.
func (t *PlainTransport) Close() error {
	return t.closeChannel()
}
