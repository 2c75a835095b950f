// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Capabilities a connection implementation exposes to the reactor, and the
// context the reactor hands back to it.

package api

import (
	"net"
	"time"

	"github.com/momentics/hioload-reactor/core/buffer"
)

// DefaultIdleTimeout is returned by Transport.IdleTimeout to defer to the
// reactor-wide idle timeout. A zero timeout disables idle detection.
const DefaultIdleTimeout time.Duration = -1

// Channel is a readiness-pollable, non-blocking byte stream.
//
// Read returns (0, nil) when no data is available yet and io.EOF once the peer
// has shut down its side. Write returns (0, nil) when the kernel buffer is full.
// Both return ErrChannelClosed after Close.
type Channel interface {
	Fd() int
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Connector is implemented by channels that complete a non-blocking connect.
type Connector interface {
	// FinishConnect reports the outcome of a pending connect. It returns
	// ErrConnectionRefused when the peer refused the connection.
	FinishConnect() error
}

// Addressable is implemented by channels that know their endpoints.
type Addressable interface {
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

// Transport is what a connection implementation exposes to the reactor.
// Lifecycle callbacks run on the reactor goroutine (DoAccept, DoConnect) or on
// the worker pool (everything else).
type Transport interface {
	Channel() Channel
	ReadBuffer() *buffer.Buffer
	WriteBuffer() *buffer.Buffer
	IdleTimeout() time.Duration

	DoAccept() error
	DoConnect() error
	DoRead()
	DoWrite()
	DidWrite()
	DidTimeout()
	DidClose()
	DidFail(err error)
}

// TransportContext is the reactor-side handle of a registered transport.
type TransportContext interface {
	FlowControl() FlowControl
	SetFlowControl(flow FlowControl)
	ModifyFlowControl(m FlowModifier) FlowControl
	IsOpen() bool
	Close() error
}

// ContextBinder is implemented by transports that want their context before
// the reactor dispatches the first readiness event.
type ContextBinder interface {
	SetTransportContext(ctx TransportContext)
}
