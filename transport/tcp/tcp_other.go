//go:build !linux
// +build !linux

// Author: momentics <momentics@gmail.com>

package tcp

import (
	"net"

	"github.com/momentics/hioload-reactor/api"
)

// Conn is unavailable on this platform.
type Conn struct{}

// Listener is unavailable on this platform.
type Listener struct{}

// Dial fails with api.ErrUnsupported.
func Dial(addr string, opts SocketOptions) (*Conn, error) {
	return nil, api.ErrUnsupported
}

// Listen fails with api.ErrUnsupported.
func Listen(addr string, opts SocketOptions, onAccept func(*Conn)) (*Listener, error) {
	return nil, api.ErrUnsupported
}

func (l *Listener) Addr() net.Addr { return nil }
func (l *Listener) Port() int      { return 0 }
func (l *Listener) Close() error   { return api.ErrUnsupported }

func (c *Conn) Fd() int                     { return -1 }
func (c *Conn) Read(p []byte) (int, error)  { return 0, api.ErrUnsupported }
func (c *Conn) Write(p []byte) (int, error) { return 0, api.ErrUnsupported }
func (c *Conn) Close() error                { return nil }
