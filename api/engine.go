// File: api/engine.go
// Author: momentics <momentics@gmail.com>
//
// TLS engine capability consumed by the secure transport. The engine converts
// plaintext to ciphertext and back; algorithm and certificate policy belong to
// whoever constructs it.

package api

import "github.com/momentics/hioload-reactor/core/buffer"

// HandshakeStatus reports what the engine needs to make handshake progress.
type HandshakeStatus int

const (
	NotHandshaking HandshakeStatus = iota
	HandshakeFinished
	HandshakeNeedTask
	HandshakeNeedWrap
	HandshakeNeedUnwrap
)

func (s HandshakeStatus) String() string {
	switch s {
	case NotHandshaking:
		return "not-handshaking"
	case HandshakeFinished:
		return "finished"
	case HandshakeNeedTask:
		return "need-task"
	case HandshakeNeedWrap:
		return "need-wrap"
	case HandshakeNeedUnwrap:
		return "need-unwrap"
	default:
		return "unknown"
	}
}

// EngineStatus is the outcome of a single wrap or unwrap.
type EngineStatus int

const (
	EngineOK EngineStatus = iota
	EngineClosed
	EngineBufferUnderflow
	EngineBufferOverflow
)

func (s EngineStatus) String() string {
	switch s {
	case EngineOK:
		return "ok"
	case EngineClosed:
		return "closed"
	case EngineBufferUnderflow:
		return "buffer-underflow"
	case EngineBufferOverflow:
		return "buffer-overflow"
	default:
		return "unknown"
	}
}

// EngineResult describes one wrap or unwrap. Handshake is the status right
// after the operation; HandshakeFinished is only ever reported here.
type EngineResult struct {
	Status    EngineStatus
	Handshake HandshakeStatus
	Consumed  int
	Produced  int
}

// Engine is a TLS state machine operating on buffers.
//
// Unwrap consumes ciphertext from src and appends plaintext to dst.
// Wrap consumes plaintext from src and appends ciphertext to dst.
type Engine interface {
	Unwrap(src, dst *buffer.Buffer) (EngineResult, error)
	Wrap(src, dst *buffer.Buffer) (EngineResult, error)
	HandshakeStatus() HandshakeStatus
	BeginHandshake() error
	CloseOutbound()
	// RunDelegatedTask runs one pending task and reports whether one was found.
	RunDelegatedTask() bool
}
