// File: reactor/options.go
// Author: momentics <momentics@gmail.com>

package reactor

import (
	"time"

	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/config"
)

const (
	// DefaultIdleCheckInterval bounds both the readiness wait and the idle sweep period.
	DefaultIdleCheckInterval = time.Second

	minIdleCheckInterval = time.Millisecond
	defaultMaxEvents     = 256
)

// Option customizes a Reactor.
type Option func(*Reactor)

// WithExecutor runs connection tasks on exec. The reactor does not close it.
func WithExecutor(exec api.Executor) Option {
	return func(r *Reactor) { r.exec = exec }
}

// WithWorkers sizes the executor the reactor creates when none is supplied.
func WithWorkers(n int) Option {
	return func(r *Reactor) { r.workers = n }
}

// WithIdleTimeout sets the default idle timeout; zero disables it.
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Reactor) { r.idleTimeout.Store(int64(d)) }
}

// WithIdleCheckInterval sets how often idle connections are swept.
func WithIdleCheckInterval(d time.Duration) Option {
	return func(r *Reactor) {
		if d < minIdleCheckInterval {
			d = minIdleCheckInterval
		}
		r.idleInterval = d
	}
}

// WithObserver installs lifecycle and introspection hooks.
func WithObserver(o Observer) Option {
	return func(r *Reactor) { r.observer = o }
}

// WithPoller replaces the platform poller factory.
func WithPoller(newPoller func() (Poller, error)) Option {
	return func(r *Reactor) { r.newPoller = newPoller }
}

// WithMaxEvents sets how many readiness events are collected per wait.
func WithMaxEvents(n int) Option {
	return func(r *Reactor) {
		if n > 0 {
			r.maxEvents = n
		}
	}
}

// WithCPU pins the reactor goroutine's OS thread to cpu; negative leaves it
// floating. A failed pin is reported through Observer.DidFail and the loop
// keeps running unpinned.
func WithCPU(cpu int) Option {
	return func(r *Reactor) { r.cpu = cpu }
}

// WithConfig applies the reactor section of a configuration file.
func WithConfig(cfg config.ReactorConfig) Option {
	return func(r *Reactor) {
		if cfg.Workers > 0 {
			r.workers = cfg.Workers
		}
		WithIdleTimeout(cfg.IdleTimeout.Duration)(r)
		if cfg.IdleCheckInterval.Duration > 0 {
			WithIdleCheckInterval(cfg.IdleCheckInterval.Duration)(r)
		}
		if cfg.MaxEvents > 0 {
			r.maxEvents = cfg.MaxEvents
		}
		if cfg.CPU != nil {
			r.cpu = *cfg.CPU
		}
	}
}
