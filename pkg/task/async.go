package task

import "github.com/tarnsh/tarnsh/pkg/ast"

// runAsync starts node backgrounded (spec.md §4.5's Async task,
// `command &`): the command runs against a cloned environment so its
// assignments don't leak back into the shell that launched it, with
// Exec.Background set so external dispatch and multi-stage pipelines
// register their process(es) and return immediately rather than
// waiting. That makes a synchronous call to runAndOr here sufficient
// in the common case — it returns as soon as the process(es) are
// started, not when they finish.
//
// A backgrounded body made up entirely of builtins that block (a bare
// `read` with nothing queued on stdin, for instance) has no process to
// hand off to and will stall the caller until it returns; real shells
// have the same body run in a genuine child process and so don't share
// this limitation.
func (d *Driver) runAsync(node ast.AndOrNode) {
	child := d.fork(d.State.Clone(), d.Exec.Stdin, d.Exec.Stdout, d.Exec.Stderr)
	child.Exec.Background = true
	child.runAndOr(node)
}
