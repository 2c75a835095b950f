//go:build linux
// +build linux

// File: transport/tcp/listener_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tcp

import (
	"errors"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/core/buffer"
)

// Listener is an accept-only transport over a listening socket. Register it
// with api.FlowAccept; every accepted connection is handed to the callback on
// the reactor goroutine, which typically wraps and registers it.
type Listener struct {
	conn     *Conn
	opts     SocketOptions
	onAccept func(*Conn)
	ctx      api.TransportContext
	addr     *net.TCPAddr
}

var (
	_ api.Transport     = (*Listener)(nil)
	_ api.ContextBinder = (*Listener)(nil)
)

// Listen binds and listens on addr. opts are applied to every accepted socket.
func Listen(addr string, opts SocketOptions, onAccept func(*Conn)) (*Listener, error) {
	laddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	domain, sa := sockaddr(laddr)
	fd, err := newSocket(domain)
	if err != nil {
		return nil, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	backlog := opts.Backlog
	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	l := &Listener{conn: NewConn(fd), opts: opts, onAccept: onAccept}
	l.addr, _ = l.conn.LocalAddr().(*net.TCPAddr)
	return l, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.addr }

// Port returns the bound port, useful after listening on port 0.
func (l *Listener) Port() int {
	if l.addr == nil {
		return 0
	}
	return l.addr.Port
}

func (l *Listener) SetTransportContext(ctx api.TransportContext) { l.ctx = ctx }

func (l *Listener) Channel() api.Channel        { return l.conn }
func (l *Listener) ReadBuffer() *buffer.Buffer  { return nil }
func (l *Listener) WriteBuffer() *buffer.Buffer { return nil }

// IdleTimeout is zero: a listener is never idle.
func (l *Listener) IdleTimeout() time.Duration { return 0 }

// DoAccept accepts until the backlog is drained.
func (l *Listener) DoAccept() error {
	fd := l.conn.Fd()
	for {
		nfd, _, err := unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch {
		case err == nil:
		case errors.Is(err, unix.EAGAIN):
			return nil
		case errors.Is(err, unix.EINTR), errors.Is(err, unix.ECONNABORTED):
			continue
		case errors.Is(err, unix.EBADF), errors.Is(err, unix.EINVAL):
			return api.ErrChannelClosed
		default:
			return fmt.Errorf("accept: %w", err)
		}
		if err := l.opts.apply(nfd); err != nil {
			log.WithFields(log.Fields{
				"listener": l.addr,
				"error":    err,
			}).Warn("Failed to apply socket options to accepted connection")
		}
		l.onAccept(NewConn(nfd))
	}
}

func (l *Listener) DoConnect() error { return api.ErrUnsupported }
func (l *Listener) DoRead()          {}
func (l *Listener) DoWrite()         {}
func (l *Listener) DidWrite()        {}
func (l *Listener) DidTimeout()      {}

func (l *Listener) DidClose() {
	log.WithField("listener", l.addr).Debug("Listener closed")
}

func (l *Listener) DidFail(err error) {
	log.WithFields(log.Fields{
		"listener": l.addr,
		"error":    err,
	}).Warn("Listener failed")
}

// Close stops listening.
func (l *Listener) Close() error {
	if l.ctx != nil {
		return l.ctx.Close()
	}
	return l.conn.Close()
}
