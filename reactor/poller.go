// File: reactor/poller.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral readiness multiplexor interface.

package reactor

import (
	"time"

	"github.com/momentics/hioload-reactor/api"
)

// PollEvent is one readiness notification.
type PollEvent struct {
	Token    uint32
	Readable bool
	Writable bool
	Hangup   bool // error or hangup; every registered direction is ready
}

// Poller is the readiness multiplexor owned by the reactor goroutine.
//
// Registrations are one-shot: once an event is reported for a token, the
// registration stays disarmed until Modify re-arms it. Errors caused by a
// descriptor closed concurrently wrap api.ErrChannelClosed.
type Poller interface {
	Add(fd int, token uint32, interest api.FlowControl) error
	Modify(fd int, token uint32, interest api.FlowControl) error
	// Wait blocks up to timeout and returns the number of events written.
	// Wakeups and signal interruptions return (0, nil).
	Wait(events []PollEvent, timeout time.Duration) (int, error)
	// Wake interrupts a blocked Wait. Safe from any goroutine.
	Wake() error
	Close() error
}

// NewPoller opens the platform poller.
func NewPoller() (Poller, error) {
	return newPlatformPoller()
}
