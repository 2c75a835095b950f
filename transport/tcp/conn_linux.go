//go:build linux
// +build linux

// File: transport/tcp/conn_linux.go
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-reactor/api"
)

// Conn is a non-blocking TCP socket. The descriptor is released exactly once;
// operations after Close fail with api.ErrChannelClosed.
type Conn struct {
	mu     sync.RWMutex // write-held only by Close
	fd     int
	closed bool

	local, remote net.Addr
}

var (
	_ api.Channel     = (*Conn)(nil)
	_ api.Connector   = (*Conn)(nil)
	_ api.Addressable = (*Conn)(nil)
)

// NewConn adopts a non-blocking socket descriptor.
func NewConn(fd int) *Conn {
	c := &Conn{fd: fd}
	c.resolveAddrs()
	return c
}

// Dial begins a non-blocking connect to addr. Register the returned Conn's
// transport with api.FlowConnect; the connect completes in DoConnect.
func Dial(addr string, opts SocketOptions) (*Conn, error) {
	raddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	domain, sa := sockaddr(raddr)
	fd, err := newSocket(domain)
	if err != nil {
		return nil, err
	}
	if err := opts.apply(fd); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.Connect(fd, sa); err != nil && !errors.Is(err, unix.EINPROGRESS) {
		unix.Close(fd)
		if errors.Is(err, unix.ECONNREFUSED) {
			return nil, fmt.Errorf("connect %s: %w", addr, api.ErrConnectionRefused)
		}
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	return &Conn{fd: fd, remote: raddr}, nil
}

// Fd returns the descriptor, or -1 once closed.
func (c *Conn) Fd() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return -1
	}
	return c.fd
}

// Read returns (0, nil) when no data is available and io.EOF at end of stream.
func (c *Conn) Read(p []byte) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return 0, api.ErrChannelClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, err := unix.Read(c.fd, p)
		switch {
		case err == nil && n == 0:
			return 0, io.EOF
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, nil
		case errors.Is(err, unix.EBADF):
			return 0, api.ErrChannelClosed
		default:
			return 0, fmt.Errorf("read: %w", err)
		}
	}
}

// Write returns (0, nil) when the send buffer is full.
func (c *Conn) Write(p []byte) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return 0, api.ErrChannelClosed
	}
	for {
		n, err := unix.Write(c.fd, p)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, nil
		case errors.Is(err, unix.EBADF):
			return 0, api.ErrChannelClosed
		default:
			return 0, fmt.Errorf("write: %w", err)
		}
	}
}

// FinishConnect reports the outcome of the pending connect.
func (c *Conn) FinishConnect() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return api.ErrChannelClosed
	}
	soerr, err := unix.GetsockoptInt(c.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return fmt.Errorf("getsockopt SO_ERROR: %w", err)
	}
	switch errno := unix.Errno(soerr); errno {
	case 0:
	case unix.ECONNREFUSED:
		return api.ErrConnectionRefused
	default:
		return fmt.Errorf("connect: %w", errno)
	}
	c.resolveAddrs()
	return nil
}

// Close releases the descriptor. Closing twice is a no-op.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return unix.Close(c.fd)
}

func (c *Conn) LocalAddr() net.Addr  { return c.local }
func (c *Conn) RemoteAddr() net.Addr { return c.remote }

func (c *Conn) resolveAddrs() {
	if sa, err := unix.Getsockname(c.fd); err == nil {
		c.local = tcpAddr(sa)
	}
	if sa, err := unix.Getpeername(c.fd); err == nil {
		c.remote = tcpAddr(sa)
	}
}
