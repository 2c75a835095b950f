//go:build linux
// +build linux

package reactor

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-reactor/api"
)

func TestEpollEvents(t *testing.T) {
	cases := []struct {
		flow api.FlowControl
		want uint32
	}{
		{api.FlowWait, unix.EPOLLONESHOT},
		{api.FlowAccept, unix.EPOLLONESHOT | unix.EPOLLIN},
		{api.FlowRead, unix.EPOLLONESHOT | unix.EPOLLIN},
		{api.FlowConnect, unix.EPOLLONESHOT | unix.EPOLLOUT},
		{api.FlowReadWrite, unix.EPOLLONESHOT | unix.EPOLLIN | unix.EPOLLOUT},
	}
	for _, c := range cases {
		if got := epollEvents(c.flow); got != c.want {
			t.Errorf("epollEvents(%v) = %#x, want %#x", c.flow, got, c.want)
		}
	}
}

func TestPollerOneShot(t *testing.T) {
	p, err := NewPoller()
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	if err := p.Add(fds[0], 7, api.FlowWrite); err != nil {
		t.Fatal(err)
	}
	events := make([]PollEvent, 4)
	n, err := p.Wait(events, time.Second)
	if err != nil || n != 1 || events[0].Token != 7 || !events[0].Writable {
		t.Fatalf("Wait = %d %v %+v", n, err, events[0])
	}
	// disarmed until modified
	if n, _ := p.Wait(events, 20*time.Millisecond); n != 0 {
		t.Fatalf("one-shot registration fired again: %d", n)
	}
	if err := p.Modify(fds[0], 7, api.FlowWrite); err != nil {
		t.Fatal(err)
	}
	if n, _ := p.Wait(events, time.Second); n != 1 {
		t.Fatalf("re-armed registration did not fire: %d", n)
	}
}

func TestPollerWake(t *testing.T) {
	p, err := NewPoller()
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		time.Sleep(20 * time.Millisecond)
		p.Wake()
	}()
	start := time.Now()
	n, err := p.Wait(make([]PollEvent, 1), 5*time.Second)
	if err != nil || n != 0 {
		t.Fatalf("Wait = %d %v", n, err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("Wake did not interrupt Wait")
	}
	p.Close()
	if err := p.Wake(); !errors.Is(err, api.ErrChannelClosed) {
		t.Fatalf("Wake after Close = %v", err)
	}
}

func TestPollerClosedDescriptor(t *testing.T) {
	p, err := NewPoller()
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if err := p.Modify(12345, 1, api.FlowRead); !errors.Is(err, api.ErrChannelClosed) {
		t.Fatalf("Modify on a bad descriptor = %v", err)
	}
}
