// Package task is the task framework of spec.md §4.5: it walks the AST
// a program parses into, and is the concrete Runner pkg/exec recurses
// back into for function bodies, `.`-sourced programs, and `eval`.
// Unlike the teacher's pkg/tasks (a bare goroutine/stop-channel
// manager for the TUI's background refresh loop), a shell's task tree
// has real control-flow semantics — pipelines, and-or short-circuits,
// loops, case matching — so this package walks that tree directly
// rather than keeping it as a pollable object per node. Status still
// carries the vocabulary spec.md §4.5 names, for the values that do
// cross an exec.Dispatcher/Driver boundary as something other than a
// plain exit code.
package task

// Status is the non-exit-code outcome a task boundary can report.
// Everywhere this package return an (int, error) pair instead, a
// negative Status value is never placed in the int: STATUS_ERROR and
// STATUS_STOPPED are communicated through the error return (wrapped
// shellerr.ComplexError / exec.ExitRequest), and STATUS_INTERRUPTED is
// never reified at all — break/continue/return travel as mutations of
// the current state.CallFrame instead (see pkg/state's BranchSignal),
// so the poll loop never needs to special-case it. This type survives
// only as the named constants spec.md §4.5 calls for, should a future
// caller need to translate one of these conditions back into the
// value spec.md's vocabulary names.
type Status int

const (
	// StatusWait marks a task not yet finished; unused by this
	// package's synchronous walk (every call runs to completion before
	// returning), kept for the vocabulary's sake and for pkg/job's
	// Reap()-based polling, which is this shell's actual asynchronous
	// wait point.
	StatusWait Status = -1
	// StatusError is a fatal, unrecoverable condition.
	StatusError Status = -2
	// StatusStopped means the task (or a process it owns) is stopped;
	// the top-level driver treats it like terminated-with-status 148.
	StatusStopped Status = -3
	// StatusInterrupted is break/continue/return unwinding to the
	// nearest handler. Not used directly; see the package doc above.
	StatusInterrupted Status = -4
)

// StoppedExitStatus is the status PutInForeground-style callers report
// for a job found stopped rather than exited, per spec.md §4.5.
const StoppedExitStatus = 148
