// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error values shared by the reactor, the transports and their collaborators.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	// ErrReactorStopped is returned when starting or registering with a reactor
	// that has already been stopped. Reactors never restart.
	ErrReactorStopped = errors.New("reactor is stopped")

	// ErrChannelClosed reports an operation on a channel that was closed
	// concurrently. It completes a connection in an orderly way and is never
	// surfaced as a failure.
	ErrChannelClosed = errors.New("channel is closed")

	// ErrConnectionRefused is returned by Connector.FinishConnect when the peer
	// actively refused the connection.
	ErrConnectionRefused = errors.New("connection refused")

	// ErrBufferOverflow reports a TLS engine that could not fit its output into
	// the destination buffer. It is fatal to the connection.
	ErrBufferOverflow = errors.New("engine buffer overflow")

	// ErrExecutorClosed indicates the executor has been shut down.
	ErrExecutorClosed = errors.New("executor is closed")

	// ErrUnsupported is returned by transports asked to perform an operation
	// they have no notion of, e.g. accepting on a connected socket.
	ErrUnsupported = errors.New("operation not supported")
)

// ErrPanic wraps a value recovered from a panicking callback.
type ErrPanic struct {
	Value any
}

// Error implements the error interface.
func (e *ErrPanic) Error() string {
	if err, ok := e.Value.(error); ok {
		return "panic: " + err.Error()
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes a recovered error value to errors.Is / errors.As.
func (e *ErrPanic) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
