// File: transport/tcp/options.go
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"time"

	"github.com/momentics/hioload-reactor/config"
)

// SocketOptions are applied to every socket this package creates or accepts.
// Zero values leave the kernel default in place.
type SocketOptions struct {
	RecvBuffer      int
	SendBuffer      int
	KeepAlive       bool
	KeepAlivePeriod time.Duration
	NoDelay         bool
	Backlog         int
}

// DefaultSocketOptions disables Nagle and leaves everything else to the kernel.
func DefaultSocketOptions() SocketOptions {
	return SocketOptions{NoDelay: true}
}

// OptionsFromConfig maps a socket configuration section to SocketOptions.
func OptionsFromConfig(cfg config.SocketConfig) SocketOptions {
	return SocketOptions{
		RecvBuffer:      cfg.RecvBuffer,
		SendBuffer:      cfg.SendBuffer,
		KeepAlive:       cfg.KeepAlive,
		KeepAlivePeriod: cfg.KeepAlivePeriod.Duration,
		NoDelay:         cfg.NoDelay,
		Backlog:         cfg.Backlog,
	}
}
