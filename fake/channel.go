// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"bytes"
	"io"
	"sync"

	"github.com/momentics/hioload-reactor/api"
)

// Channel is an in-memory api.Channel. Bytes fed with Feed are returned by
// Read; bytes written are kept for Written.
type Channel struct {
	mu         sync.Mutex
	fd         int
	in         bytes.Buffer
	out        bytes.Buffer
	eof        bool
	closed     bool
	closes     int
	readErr    error
	writeErr   error
	writeLimit int

	// ConnectErr is returned by FinishConnect.
	ConnectErr error
}

var (
	_ api.Channel   = (*Channel)(nil)
	_ api.Connector = (*Channel)(nil)
)

// NewChannel creates an open channel reporting fd as its descriptor.
func NewChannel(fd int) *Channel {
	return &Channel{fd: fd}
}

func (c *Channel) Fd() int { return c.fd }

// Feed makes p readable.
func (c *Channel) Feed(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.in.Write(p)
}

// SetEOF makes Read return io.EOF once fed bytes are drained.
func (c *Channel) SetEOF() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eof = true
}

// SetReadError makes every following Read fail with err.
func (c *Channel) SetReadError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readErr = err
}

// SetWriteError makes every following Write fail with err.
func (c *Channel) SetWriteError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

// SetWriteLimit caps how many bytes a single Write accepts; zero is unlimited.
func (c *Channel) SetWriteLimit(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeLimit = n
}

func (c *Channel) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return 0, api.ErrChannelClosed
	case c.readErr != nil:
		return 0, c.readErr
	case c.in.Len() == 0 && c.eof:
		return 0, io.EOF
	case c.in.Len() == 0:
		return 0, nil
	}
	return c.in.Read(p)
}

func (c *Channel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, api.ErrChannelClosed
	}
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	if c.writeLimit > 0 && len(p) > c.writeLimit {
		p = p[:c.writeLimit]
	}
	return c.out.Write(p)
}

// Written returns a copy of everything written so far.
func (c *Channel) Written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.out.Bytes()...)
}

func (c *Channel) FinishConnect() error { return c.ConnectErr }

func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	c.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// CloseCount reports how many times Close has been called.
func (c *Channel) CloseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}
