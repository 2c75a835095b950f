// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness reactor: one goroutine, locked to its
// OS thread, owns the poller and every registration, while per-connection
// reads and writes run as serial tasks on a worker pool.
//
// Other goroutines never touch registrations. They change a connection's
// flow control atomically and queue the connection for resynchronization; the
// reactor goroutine drains that queue once per loop iteration.
package reactor
