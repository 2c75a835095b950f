// Package api
// Author: momentics
//
// Executor contract for the worker pool ("stage") that runs deferred work.

package api

// Executor abstracts parallel task execution.
type Executor interface {
	// Submit schedules task for execution. It never blocks.
	Submit(task func()) error

	// NumWorkers returns current number of worker routines.
	NumWorkers() int
}
