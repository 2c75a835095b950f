// File: internal/concurrency/pin_other.go
// Author: momentics <momentics@gmail.com>

//go:build !linux

package concurrency

import (
	"fmt"

	"github.com/momentics/hioload-reactor/api"
)

// PinCurrentThread is only supported on Linux; a negative cpu is a no-op.
func PinCurrentThread(cpu int) error {
	if cpu < 0 {
		return nil
	}
	return fmt.Errorf("concurrency: thread pinning: %w", api.ErrUnsupported)
}

// CurrentAffinity is not available off Linux.
func CurrentAffinity() ([]int, error) {
	return nil, fmt.Errorf("concurrency: thread affinity: %w", api.ErrUnsupported)
}
