// File: transport/options.go
// Author: momentics <momentics@gmail.com>

package transport

import (
	"time"

	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/config"
)

// DefaultBufferSize is the capacity of each transport buffer unless overridden.
const DefaultBufferSize = 64 << 10

type options struct {
	readSize    int
	writeSize   int
	idleTimeout time.Duration
	taskExec    api.Executor
}

func defaultOptions() options {
	return options{
		readSize:    DefaultBufferSize,
		writeSize:   DefaultBufferSize,
		idleTimeout: api.DefaultIdleTimeout,
	}
}

// Option customizes a transport.
type Option func(*options)

// WithBufferSizes sets the read and write buffer capacities. Non-positive
// values keep the default.
func WithBufferSizes(read, write int) Option {
	return func(o *options) {
		if read > 0 {
			o.readSize = read
		}
		if write > 0 {
			o.writeSize = write
		}
	}
}

// WithIdleTimeout overrides the reactor's idle timeout for this connection.
// Zero disables idle detection; api.DefaultIdleTimeout defers to the reactor.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) { o.idleTimeout = d }
}

// WithTaskExecutor runs TLS delegated tasks on exec instead of inline. I/O on
// the connection is paused until they complete. Only SecureTransport uses it.
func WithTaskExecutor(exec api.Executor) Option {
	return func(o *options) { o.taskExec = exec }
}

// WithConfig applies buffer sizes and the idle timeout from a socket section.
func WithConfig(cfg config.SocketConfig) Option {
	return func(o *options) {
		WithBufferSizes(cfg.ReadBuffer, cfg.WriteBuffer)(o)
		if cfg.IdleTimeout != nil {
			o.idleTimeout = cfg.IdleTimeout.Duration
		}
	}
}
