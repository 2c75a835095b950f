// File: transport/base.go
// Author: momentics <momentics@gmail.com>
//
// State shared by plain and secure transports: channel, buffers, status bits
// and the bound socket.

package transport

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/core/buffer"
)

const (
	statusClient uint32 = 1 << iota
	statusServer
	statusConnecting
	statusConnected
	statusFailed
	statusClosed

	// secure only
	statusHandshaking
	statusHandshaked
	statusOpen
	statusClosingInbound
	statusClosingOutbound
	statusOutboundDone
)

type socketSlot struct {
	socket api.Socket
}

type base struct {
	ch     api.Channel
	ctx    api.TransportContext
	self   api.SocketContext
	status atomic.Uint32
	slot   atomic.Pointer[socketSlot]

	in, out     *buffer.Buffer
	idleTimeout time.Duration
}

func (b *base) init(self api.SocketContext, ch api.Channel, socket api.Socket, role uint32, o options) {
	b.ch = ch
	b.self = self
	b.in = buffer.New(o.readSize)
	b.out = buffer.New(o.writeSize)
	b.idleTimeout = o.idleTimeout
	b.status.Store(role | statusConnecting)
	b.slot.Store(&socketSlot{socket: socket})
	socket.SetSocketContext(self)
}

// has reports whether every bit in bits is set.
func (b *base) has(bits uint32) bool {
	return b.status.Load()&bits == bits
}

// transition clears from and sets to, provided every bit of from is set.
func (b *base) transition(from, to uint32) bool {
	for {
		s := b.status.Load()
		if s&from != from {
			return false
		}
		if b.status.CompareAndSwap(s, s&^from|to) {
			return true
		}
	}
}

// mark sets bits and reports whether none of them were set before.
func (b *base) mark(bits uint32) bool {
	for {
		s := b.status.Load()
		if s&bits != 0 {
			return false
		}
		if b.status.CompareAndSwap(s, s|bits) {
			return true
		}
	}
}

func (b *base) socket() api.Socket {
	return b.slot.Load().socket
}

func (b *base) Channel() api.Channel        { return b.ch }
func (b *base) ReadBuffer() *buffer.Buffer  { return b.in }
func (b *base) WriteBuffer() *buffer.Buffer { return b.out }
func (b *base) IdleTimeout() time.Duration  { return b.idleTimeout }
func (b *base) DoAccept() error             { return api.ErrUnsupported }
func (b *base) DidTimeout()                 { b.socket().DidTimeout() }

// TransportContext returns the reactor context, nil until registered.
func (b *base) TransportContext() api.TransportContext { return b.ctx }

func (b *base) IsClient() bool    { return b.has(statusClient) }
func (b *base) IsServer() bool    { return b.has(statusServer) }
func (b *base) IsConnected() bool { return b.has(statusConnected) }

func (b *base) FlowControl() api.FlowControl {
	if b.ctx == nil {
		return api.FlowWait
	}
	return b.ctx.FlowControl()
}

func (b *base) SetFlowControl(flow api.FlowControl) {
	if b.ctx != nil {
		b.ctx.SetFlowControl(flow)
	}
}

func (b *base) ModifyFlowControl(m api.FlowModifier) api.FlowControl {
	if b.ctx == nil {
		return api.FlowWait
	}
	return b.ctx.ModifyFlowControl(m)
}

// Become swaps the bound socket. The previous socket is told first.
func (b *base) Become(next api.Socket) {
	prev := b.socket()
	prev.WillBecome(next)
	b.slot.Store(&socketSlot{socket: next})
	next.SetSocketContext(b.self)
	next.DidBecome(prev)
}

// closeChannel closes through the reactor once registered, so that close
// completion runs; before that it closes the channel directly.
func (b *base) closeChannel() error {
	if b.ctx != nil {
		return b.ctx.Close()
	}
	if b.mark(statusClosed) {
		b.socket().DidDisconnect()
	}
	return b.ch.Close()
}

// finishConnect completes a pending connect. A refused connection is closed
// without being reported as a failure; ok is false in that case.
func (b *base) finishConnect() (ok bool, err error) {
	if c, is := b.ch.(api.Connector); is {
		if err := c.FinishConnect(); err != nil {
			if errors.Is(err, api.ErrConnectionRefused) {
				b.closeChannel()
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}

// DidClose notifies the socket once.
func (b *base) DidClose() {
	if b.mark(statusClosed) {
		b.socket().DidDisconnect()
	}
}

// DidFail notifies the socket once.
func (b *base) DidFail(err error) {
	if b.mark(statusFailed) {
		b.socket().DidFail(err)
	}
}
