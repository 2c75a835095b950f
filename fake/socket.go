// Author: momentics <momentics@gmail.com>

package fake

import (
	"sync"

	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/core/buffer"
)

// Socket records every callback it receives. Bytes queued with Send are
// written when the transport asks; write interest is dropped once the queue
// is empty.
type Socket struct {
	api.BaseSocket

	mu       sync.Mutex
	events   []string
	received []byte
	pending  []byte
	errs     []error

	// OnRead, when set, is called after received bytes are recorded.
	OnRead func(s *Socket, data []byte)
}

var _ api.Socket = (*Socket)(nil)

func (s *Socket) record(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns the callbacks received, in order.
func (s *Socket) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// Count reports how often event has been received.
func (s *Socket) Count(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e == event {
			n++
		}
	}
	return n
}

// Received returns a copy of all bytes delivered through DoRead.
func (s *Socket) Received() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.received...)
}

// Errors returns the errors delivered through DidFail.
func (s *Socket) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

// Send queues p and enables write interest.
func (s *Socket) Send(p []byte) {
	// flow changes happen under mu so that DoWrite cannot disable write
	// after a concurrent Send enabled it
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, p...)
	if s.Context != nil {
		s.Context.ModifyFlowControl(api.EnableWrite)
	}
}

func (s *Socket) WillConnect()   { s.record("will-connect") }
func (s *Socket) DidConnect()    { s.record("did-connect") }
func (s *Socket) DidSecure()     { s.record("did-secure") }
func (s *Socket) DidWrite()      { s.record("did-write") }
func (s *Socket) DidTimeout()    { s.record("did-timeout") }
func (s *Socket) DidDisconnect() { s.record("did-disconnect") }

func (s *Socket) DidFail(err error) {
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
	s.record("did-fail")
}

func (s *Socket) WillBecome(next api.Socket) { s.record("will-become") }
func (s *Socket) DidBecome(prev api.Socket)  { s.record("did-become") }

func (s *Socket) DoRead(in *buffer.Buffer) {
	data := append([]byte(nil), in.Bytes()...)
	in.Consume(len(data))
	s.mu.Lock()
	s.received = append(s.received, data...)
	s.mu.Unlock()
	if s.OnRead != nil {
		s.OnRead(s, data)
	}
}

func (s *Socket) DoWrite(out *buffer.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, _ := out.Write(s.pending)
	s.pending = s.pending[n:]
	if n == 0 && s.Context != nil {
		s.Context.ModifyFlowControl(api.DisableWrite)
	}
}
