// File: api/socket.go
// Package api defines the application-facing socket contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "github.com/momentics/hioload-reactor/core/buffer"

// Socket is the application-level handler bound to a transport.
//
// DoRead receives the readable plaintext and should consume what it handles;
// unconsumed bytes are kept for the next call. DoWrite receives an empty
// buffer to fill with outgoing bytes.
type Socket interface {
	SetSocketContext(ctx SocketContext)

	WillConnect()
	DidConnect()
	DidSecure()

	DoRead(in *buffer.Buffer)
	DoWrite(out *buffer.Buffer)
	DidWrite()

	DidTimeout()
	DidDisconnect()
	DidFail(err error)

	WillBecome(next Socket)
	DidBecome(prev Socket)
}

// SocketContext is what a transport offers the socket bound to it.
type SocketContext interface {
	IsClient() bool
	IsServer() bool
	IsConnected() bool
	IsSecure() bool

	FlowControl() FlowControl
	SetFlowControl(flow FlowControl)
	ModifyFlowControl(m FlowModifier) FlowControl

	Become(next Socket)
	Close() error
}

// BaseSocket provides no-op implementations of every Socket callback and
// keeps the bound context. Embed it and override what you need.
type BaseSocket struct {
	Context SocketContext
}

func (s *BaseSocket) SetSocketContext(ctx SocketContext) { s.Context = ctx }
func (s *BaseSocket) WillConnect()                       {}
func (s *BaseSocket) DidConnect()                        {}
func (s *BaseSocket) DidSecure()                         {}
func (s *BaseSocket) DoRead(in *buffer.Buffer)           {}
func (s *BaseSocket) DoWrite(out *buffer.Buffer)         {}
func (s *BaseSocket) DidWrite()                          {}
func (s *BaseSocket) DidTimeout()                        {}
func (s *BaseSocket) DidDisconnect()                     {}
func (s *BaseSocket) DidFail(err error)                  {}
func (s *BaseSocket) WillBecome(next Socket)             {}
func (s *BaseSocket) DidBecome(prev Socket)              {}

var _ Socket = (*BaseSocket)(nil)
