// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"bytes"
	"sync"

	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/core/buffer"
)

// CloseAlert is what Engine produces, and recognizes, as a closing alert.
var CloseAlert = []byte("\x15close-notify")

// EngineStep scripts the outcome of one Wrap or Unwrap call.
type EngineStep struct {
	// Consume is the number of source bytes consumed; -1 consumes everything.
	Consume int
	// Produce is appended to the destination buffer.
	Produce []byte
	// Status is the engine status reported.
	Status api.EngineStatus
	// Handshake is the handshake status reported. The engine's own status
	// follows it, except that HandshakeFinished leaves it NotHandshaking.
	Handshake api.HandshakeStatus
	// AfterTask is the status once the delegated task of a HandshakeNeedTask
	// step has run.
	AfterTask api.HandshakeStatus
	// Err is returned instead of a result.
	Err error
}

// Engine is a scripted api.Engine. Scripted steps are consumed in order;
// once a direction runs out of steps it copies bytes through unchanged and
// handles CloseAlert the way a TLS engine handles close_notify.
type Engine struct {
	mu        sync.Mutex
	initial   api.HandshakeStatus
	status    api.HandshakeStatus
	wraps     []EngineStep
	unwraps   []EngineStep
	tasks     int
	afterTask api.HandshakeStatus

	begun          bool
	outboundClosed bool
	alertSent      bool
	tasksRun       int
	wrapCalls      int
	unwrapCalls    int
}

var _ api.Engine = (*Engine)(nil)

// NewEngine creates an engine whose handshake begins with initial.
func NewEngine(initial api.HandshakeStatus) *Engine {
	return &Engine{initial: initial}
}

// ScriptWrap queues outcomes for the next Wrap calls.
func (e *Engine) ScriptWrap(steps ...EngineStep) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.wraps = append(e.wraps, steps...)
}

// ScriptUnwrap queues outcomes for the next Unwrap calls.
func (e *Engine) ScriptUnwrap(steps ...EngineStep) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unwraps = append(e.unwraps, steps...)
}

func (e *Engine) BeginHandshake() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.begun = true
	e.status = e.initial
	return nil
}

func (e *Engine) HandshakeStatus() api.HandshakeStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Engine) CloseOutbound() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outboundClosed = true
}

func (e *Engine) RunDelegatedTask() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tasks == 0 {
		return false
	}
	e.tasks--
	e.tasksRun++
	if e.tasks == 0 {
		e.status = e.afterTask
	}
	return true
}

func (e *Engine) Wrap(src, dst *buffer.Buffer) (api.EngineResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.wrapCalls++
	if len(e.wraps) > 0 {
		step := e.wraps[0]
		e.wraps = e.wraps[1:]
		return e.apply(step, src, dst)
	}
	if e.outboundClosed {
		if e.alertSent {
			return api.EngineResult{Status: api.EngineClosed, Handshake: e.status}, nil
		}
		if dst.Available() < len(CloseAlert) {
			return api.EngineResult{Status: api.EngineBufferOverflow, Handshake: e.status}, nil
		}
		dst.Write(CloseAlert)
		e.alertSent = true
		return api.EngineResult{Status: api.EngineClosed, Handshake: e.status, Produced: len(CloseAlert)}, nil
	}
	return e.copy(src, dst), nil
}

func (e *Engine) Unwrap(src, dst *buffer.Buffer) (api.EngineResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unwrapCalls++
	if len(e.unwraps) > 0 {
		step := e.unwraps[0]
		e.unwraps = e.unwraps[1:]
		return e.apply(step, src, dst)
	}
	if i := bytes.Index(src.Bytes(), CloseAlert); i == 0 {
		src.Consume(len(CloseAlert))
		return api.EngineResult{Status: api.EngineClosed, Handshake: e.status, Consumed: len(CloseAlert)}, nil
	} else if i > 0 {
		// deliver what precedes the alert first
		n, _ := dst.Write(src.Bytes()[:i])
		src.Consume(n)
		return api.EngineResult{Status: api.EngineOK, Handshake: e.status, Consumed: n, Produced: n}, nil
	}
	return e.copy(src, dst), nil
}

func (e *Engine) copy(src, dst *buffer.Buffer) api.EngineResult {
	if src.Len() > dst.Available() {
		if dst.Available() == 0 {
			return api.EngineResult{Status: api.EngineBufferOverflow, Handshake: e.status}
		}
	}
	n, _ := dst.Write(src.Bytes())
	src.Consume(n)
	return api.EngineResult{Status: api.EngineOK, Handshake: e.status, Consumed: n, Produced: n}
}

func (e *Engine) apply(step EngineStep, src, dst *buffer.Buffer) (api.EngineResult, error) {
	if step.Err != nil {
		return api.EngineResult{}, step.Err
	}
	consumed := step.Consume
	if consumed < 0 || consumed > src.Len() {
		consumed = src.Len()
	}
	src.Consume(consumed)
	produced, _ := dst.Write(step.Produce)

	switch step.Handshake {
	case api.HandshakeFinished:
		e.status = api.NotHandshaking
	case api.HandshakeNeedTask:
		e.status = api.HandshakeNeedTask
		e.tasks = 1
		e.afterTask = step.AfterTask
	default:
		e.status = step.Handshake
	}
	return api.EngineResult{
		Status:    step.Status,
		Handshake: step.Handshake,
		Consumed:  consumed,
		Produced:  produced,
	}, nil
}

// Begun reports whether BeginHandshake has been called.
func (e *Engine) Begun() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.begun
}

// OutboundClosed reports whether CloseOutbound has been called.
func (e *Engine) OutboundClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.outboundClosed
}

// TasksRun reports how many delegated tasks have run.
func (e *Engine) TasksRun() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tasksRun
}

// Calls reports how many times Wrap and Unwrap have been called.
func (e *Engine) Calls() (wraps, unwraps int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wrapCalls, e.unwrapCalls
}
