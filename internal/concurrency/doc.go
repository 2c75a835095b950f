// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives behind the reactor: the worker pool ("stage") that
// runs deferred per-connection work, the lock-free queue feeding it, and
// serial tasks that keep each connection direction single-threaded while
// multiplexed over the pool.
package concurrency
