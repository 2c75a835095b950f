// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"sync/atomic"

	"github.com/momentics/hioload-reactor/api"
)

const (
	taskIdle int32 = iota
	taskQueued
	taskRunning
	taskPending // running, cued again
	taskCanceled
)

// SerialTask runs a body on an executor with at most one instance active at a
// time. Cueing an idle task submits it; cueing a queued task is a no-op;
// cueing a running task makes it run once more after the current pass.
//
// The body returns true to be rescheduled: the task goes back to the end of
// the executor queue instead of looping on the worker.
type SerialTask struct {
	exec  api.Executor
	body  func() bool
	state atomic.Int32
	runFn func()
}

// NewSerialTask binds body to exec. Nothing runs until Cue.
func NewSerialTask(exec api.Executor, body func() bool) *SerialTask {
	t := &SerialTask{exec: exec, body: body}
	t.runFn = t.run
	return t
}

// Cue marks the task as having work. It returns false if the task was
// canceled or could not be submitted.
func (t *SerialTask) Cue() bool {
	for {
		switch s := t.state.Load(); s {
		case taskIdle:
			if t.state.CompareAndSwap(s, taskQueued) {
				return t.submit()
			}
		case taskRunning:
			if t.state.CompareAndSwap(s, taskPending) {
				return true
			}
		case taskQueued, taskPending:
			return true
		default:
			return false
		}
	}
}

// Cancel prevents any further run. A pass already in progress completes.
func (t *SerialTask) Cancel() {
	t.state.Store(taskCanceled)
}

// isCanceled reports whether Cancel has been called.
func (t *SerialTask) isCanceled() bool {
	return t.state.Load() == taskCanceled
}

func (t *SerialTask) submit() bool {
	if err := t.exec.Submit(t.runFn); err != nil {
		t.state.Store(taskCanceled)
		return false
	}
	return true
}

func (t *SerialTask) run() {
	if !t.state.CompareAndSwap(taskQueued, taskRunning) {
		return
	}
	reschedule := false
	defer func() {
		t.finish(reschedule)
	}()
	reschedule = t.body()
}

func (t *SerialTask) finish(reschedule bool) {
	for {
		switch s := t.state.Load(); s {
		case taskRunning:
			if reschedule {
				if t.state.CompareAndSwap(s, taskQueued) {
					t.submit()
					return
				}
			} else if t.state.CompareAndSwap(s, taskIdle) {
				return
			}
		case taskPending:
			if t.state.CompareAndSwap(s, taskQueued) {
				t.submit()
				return
			}
		default:
			return
		}
	}
}
