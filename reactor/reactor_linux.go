//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based poller with an eventfd for cross-goroutine wakeups.

package reactor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-reactor/api"
)

// wakeToken is reserved for the eventfd; connection tokens start at 1.
const wakeToken = 0

// epollPoller is an epoll-based readiness multiplexor.
type epollPoller struct {
	epfd   int
	wakefd int
	events []unix.EpollEvent

	mu     sync.RWMutex // guards wakefd against Close
	closed bool
}

func newPlatformPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: wakeToken}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add eventfd: %w", err)
	}
	return &epollPoller{epfd: epfd, wakefd: wakefd}, nil
}

// epollEvents projects flow control onto epoll interest bits.
func epollEvents(interest api.FlowControl) uint32 {
	events := uint32(unix.EPOLLONESHOT)
	if interest&(api.FlowAccept|api.FlowRead) != 0 {
		events |= unix.EPOLLIN
	}
	if interest&(api.FlowConnect|api.FlowWrite) != 0 {
		events |= unix.EPOLLOUT
	}
	return events
}

func ctlError(op string, err error) error {
	if errors.Is(err, unix.EBADF) || errors.Is(err, unix.ENOENT) {
		return fmt.Errorf("epoll ctl %s: %w", op, api.ErrChannelClosed)
	}
	return fmt.Errorf("epoll ctl %s: %w", op, err)
}

func (p *epollPoller) Add(fd int, token uint32, interest api.FlowControl) error {
	ev := unix.EpollEvent{Events: epollEvents(interest), Fd: int32(token)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return ctlError("add", err)
	}
	return nil
}

func (p *epollPoller) Modify(fd int, token uint32, interest api.FlowControl) error {
	ev := unix.EpollEvent{Events: epollEvents(interest), Fd: int32(token)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return ctlError("mod", err)
	}
	return nil
}

// Wait blocks for readiness. timeout < 0 means block infinitely.
func (p *epollPoller) Wait(events []PollEvent, timeout time.Duration) (int, error) {
	if cap(p.events) < len(events) {
		p.events = make([]unix.EpollEvent, len(events))
	}
	raw := p.events[:len(events)]
	msec := -1
	if timeout >= 0 {
		msec = int(timeout / time.Millisecond)
		if msec == 0 && timeout > 0 {
			msec = 1
		}
	}
	n, err := unix.EpollWait(p.epfd, raw, msec)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil // interrupted by signal, normal
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}
	count := 0
	for i := 0; i < n; i++ {
		ev := raw[i]
		if ev.Fd == wakeToken {
			p.drainWake()
			continue
		}
		events[count] = PollEvent{
			Token:    uint32(ev.Fd),
			Readable: ev.Events&unix.EPOLLIN != 0,
			Writable: ev.Events&unix.EPOLLOUT != 0,
			Hangup:   ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
		}
		count++
	}
	return count, nil
}

func (p *epollPoller) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(p.wakefd, buf[:]); err != nil {
			return
		}
	}
}

func (p *epollPoller) Wake() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return api.ErrChannelClosed
	}
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	if _, err := unix.Write(p.wakefd, buf[:]); err != nil && err != unix.EAGAIN {
		return fmt.Errorf("eventfd write: %w", err)
	}
	return nil
}

// Close releases the epoll and eventfd descriptors.
func (p *epollPoller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	err := unix.Close(p.wakefd)
	if cerr := unix.Close(p.epfd); err == nil {
		err = cerr
	}
	return err
}
