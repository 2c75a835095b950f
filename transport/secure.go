// File: transport/secure.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TLS over a reactor channel. Ciphertext flows through the transport read and
// write buffers; the socket only ever sees plaintext. Either direction may
// have to drive the handshake, so flow control is recomputed after every
// engine operation.

package transport

import (
	"sync"

	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/core/buffer"
)

// SecureTransport runs a channel through an api.Engine.
type SecureTransport struct {
	base

	engine   api.Engine
	taskExec api.Executor

	// mu serializes engine calls and guards cipherIn. Socket callbacks are
	// never invoked with mu held.
	mu       sync.Mutex
	cipherIn *buffer.Buffer
	plainIn  *buffer.Buffer
	plainOut *buffer.Buffer
}

var (
	_ api.Transport     = (*SecureTransport)(nil)
	_ api.ContextBinder = (*SecureTransport)(nil)
	_ api.SocketContext = (*SecureTransport)(nil)
)

// NewSecureClientTransport wraps a channel with a connect in progress. The
// handshake begins once the connect completes.
func NewSecureClientTransport(ch api.Channel, engine api.Engine, socket api.Socket, opts ...Option) *SecureTransport {
	return newSecureTransport(ch, engine, socket, statusClient, opts)
}

// NewSecureServerTransport wraps an accepted channel. The handshake begins as
// soon as it is registered.
func NewSecureServerTransport(ch api.Channel, engine api.Engine, socket api.Socket, opts ...Option) *SecureTransport {
	return newSecureTransport(ch, engine, socket, statusServer, opts)
}

func newSecureTransport(ch api.Channel, engine api.Engine, socket api.Socket, role uint32, opts []Option) *SecureTransport {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	t := &SecureTransport{
		engine:   engine,
		taskExec: o.taskExec,
		cipherIn: buffer.New(o.readSize),
		plainIn:  buffer.New(o.readSize),
		plainOut: buffer.New(o.writeSize),
	}
	t.init(t, ch, socket, role, o)
	return t
}

// SetTransportContext binds the reactor context and, for accepted
// connections, begins the handshake.
func (t *SecureTransport) SetTransportContext(ctx api.TransportContext) {
	t.ctx = ctx
	t.socket().WillConnect()
	if t.IsServer() {
		if err := t.connected(); err != nil {
			t.abort(err)
		}
	}
}

// DoConnect completes the TCP connect and begins the handshake.
func (t *SecureTransport) DoConnect() error {
	ok, err := t.finishConnect()
	if !ok {
		return err
	}
	t.ModifyFlowControl(api.DisableConnect)
	return t.connected()
}

func (t *SecureTransport) connected() error {
	if !t.transition(statusConnecting, statusConnected|statusHandshaking) {
		return nil
	}
	t.socket().DidConnect()
	t.mu.Lock()
	err := t.engine.BeginHandshake()
	t.mu.Unlock()
	if err != nil {
		return err
	}
	t.settle(t.handshakeStatus(), false)
	return nil
}

// IsSecure reports whether the handshake has been acknowledged.
func (t *SecureTransport) IsSecure() bool { return t.has(statusOpen) }

// Engine returns the TLS engine.
func (t *SecureTransport) Engine() api.Engine { return t.engine }

// DoRead moves ciphertext out of the read buffer and unwraps it.
func (t *SecureTransport) DoRead() {
	t.mu.Lock()
	n, _ := t.cipherIn.Write(t.in.Bytes())
	t.in.Consume(n)
	t.mu.Unlock()
	t.unwrap(true)
}

// unwrap runs the engine over buffered ciphertext. Plaintext reaches the
// socket only when deliver is set and the connection is open; otherwise it
// stays buffered for a later read pass.
func (t *SecureTransport) unwrap(deliver bool) {
	for {
		t.mu.Lock()
		if t.cipherIn.Len() == 0 || (!deliver && t.has(statusOpen)) {
			t.mu.Unlock()
			return
		}
		res, err := t.engine.Unwrap(t.cipherIn, t.plainIn)
		t.cipherIn.Settle()
		t.mu.Unlock()
		if err != nil {
			t.abort(err)
			return
		}

		switch res.Status {
		case api.EngineClosed:
			t.deliver(deliver)
			t.inboundClosed()
			return
		case api.EngineBufferOverflow:
			t.abort(api.ErrBufferOverflow)
			return
		case api.EngineBufferUnderflow:
			t.settle(res.Handshake, false)
			return
		}

		hs := t.settle(res.Handshake, false)
		t.deliver(deliver)
		if res.Consumed == 0 {
			return
		}
		switch hs {
		case api.HandshakeNeedUnwrap, api.HandshakeFinished, api.NotHandshaking:
		default:
			return
		}
	}
}

func (t *SecureTransport) deliver(ok bool) {
	if ok && t.plainIn.Len() > 0 && t.has(statusOpen) {
		t.socket().DoRead(t.plainIn)
		t.plainIn.Settle()
	}
}

// DoWrite refills plaintext from the socket once open and wraps it into the
// write buffer. During the handshake it wraps whatever the engine asks for.
func (t *SecureTransport) DoWrite() {
	for {
		if t.plainOut.Len() == 0 && t.has(statusOpen) && !t.has(statusClosingOutbound) &&
			t.FlowControl().IsWriteEnabled() {
			t.plainOut.Reset()
			t.socket().DoWrite(t.plainOut)
		}

		t.mu.Lock()
		res, err := t.engine.Wrap(t.plainOut, t.out)
		t.mu.Unlock()
		t.plainOut.Settle()
		if err != nil {
			t.abort(err)
			return
		}

		switch res.Status {
		case api.EngineClosed:
			t.outboundClosed(t.out.Len() > 0)
			return
		case api.EngineBufferOverflow:
			// a full write buffer drains first; an empty one can never fit the record
			if t.out.Len() == 0 {
				t.abort(api.ErrBufferOverflow)
			}
			return
		case api.EngineBufferUnderflow:
			return
		}

		hs := t.settle(res.Handshake, true)
		if hs == api.HandshakeNeedUnwrap {
			// ciphertext buffered by an earlier read pass may be all the engine needs
			t.unwrap(false)
			hs = t.handshakeStatus()
		}
		if res.Consumed == 0 && res.Produced == 0 {
			return
		}
		switch {
		case hs == api.HandshakeNeedWrap:
		case hs == api.NotHandshaking && t.plainOut.Len() > 0:
		default:
			return
		}
	}
}

// DidWrite completes a pending close once the closing alert is flushed.
func (t *SecureTransport) DidWrite() {
	if t.has(statusOutboundDone) {
		t.closeChannel()
		return
	}
	if t.has(statusOpen) {
		t.socket().DidWrite()
	}
}

// Close begins an orderly TLS shutdown when the session is open; otherwise it
// closes the channel directly.
func (t *SecureTransport) Close() error {
	if t.beginClosingOutbound() {
		return nil
	}
	return t.closeChannel()
}

func (t *SecureTransport) beginClosingOutbound() bool {
	for {
		s := t.status.Load()
		if s&statusOpen == 0 || s&statusClosingOutbound != 0 {
			return false
		}
		if t.status.CompareAndSwap(s, s|statusClosingOutbound) {
			break
		}
	}
	t.mu.Lock()
	t.engine.CloseOutbound()
	t.mu.Unlock()
	t.ModifyFlowControl(api.EnableReadWrite)
	return true
}

// inboundClosed handles the peer's closing alert.
func (t *SecureTransport) inboundClosed() {
	t.mark(statusClosingInbound)
	if t.has(statusClosingOutbound) {
		t.closeChannel()
		return
	}
	t.mark(statusClosingOutbound)
	t.mu.Lock()
	t.engine.CloseOutbound()
	t.mu.Unlock()
	t.ModifyFlowControl(api.EnableReadWrite)
}

// outboundClosed is reached once the engine has produced its closing alert.
func (t *SecureTransport) outboundClosed(pending bool) {
	t.mark(statusOutboundDone)
	if !pending {
		t.closeChannel()
	}
}

// settle runs delegated tasks, acknowledges a completed handshake and applies
// the flow control the handshake status calls for. It returns the status that
// remains.
func (t *SecureTransport) settle(hs api.HandshakeStatus, write bool) api.HandshakeStatus {
	for hs == api.HandshakeNeedTask {
		if t.taskExec != nil {
			t.offloadTasks()
			return hs
		}
		t.runTasks()
		hs = t.handshakeStatus()
	}
	switch hs {
	case api.HandshakeNeedUnwrap:
		t.ModifyFlowControl(api.EnableReadDisableWrite)
	case api.HandshakeNeedWrap:
		t.ModifyFlowControl(api.EnableReadWrite)
	case api.HandshakeFinished:
		if write {
			t.acknowledge()
		} else {
			// the next wrap or unwrap acknowledges
			t.mark(statusHandshaked)
			t.ModifyFlowControl(api.EnableWrite)
		}
	case api.NotHandshaking:
		if t.has(statusHandshaking) {
			t.acknowledge()
		}
	}
	return hs
}

// acknowledge opens the session and tells the socket, exactly once.
func (t *SecureTransport) acknowledge() {
	t.mu.Lock()
	ok := t.transition(statusHandshaking, statusHandshaked|statusOpen)
	t.mu.Unlock()
	if !ok {
		return
	}
	t.ModifyFlowControl(api.EnableReadDisableWrite)
	t.socket().DidSecure()
}

func (t *SecureTransport) runTasks() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.engine.RunDelegatedTask() {
	}
}

// offloadTasks pauses I/O and runs delegated tasks on the task executor,
// resuming with whatever the engine needs next.
func (t *SecureTransport) offloadTasks() {
	t.ModifyFlowControl(api.DisableReadWrite)
	err := t.taskExec.Submit(func() {
		t.runTasks()
		if t.settle(t.handshakeStatus(), false) == api.HandshakeNeedUnwrap {
			t.unwrap(false)
		}
	})
	if err != nil {
		t.abort(err)
	}
}

func (t *SecureTransport) handshakeStatus() api.HandshakeStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.engine.HandshakeStatus()
}

// abort fails the connection and closes it.
func (t *SecureTransport) abort(err error) {
	t.DidFail(err)
	t.closeChannel()
}
