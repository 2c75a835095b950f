//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"fmt"

	"github.com/momentics/hioload-reactor/api"
)

func newPlatformPoller() (Poller, error) {
	return nil, fmt.Errorf("reactor: readiness polling: %w", api.ErrUnsupported)
}
