package task

import (
	"github.com/tarnsh/tarnsh/pkg/ast"
	"github.com/tarnsh/tarnsh/pkg/exec"
	"github.com/tarnsh/tarnsh/pkg/state"
)

// runLists runs a compound command's body (spec.md §4.5's List task):
// each element's and-or-node in turn, honoring `&` backgrounding and,
// when checkErrexit is true, the `errexit` option. checkErrexit is
// false for an if/while/until condition list, since a failing
// condition is not itself a shell error. A pending break/continue/
// return on the current call frame stops the walk early without
// touching the frame: the nearest loop/function task is the one that
// consumes it.
func (d *Driver) runLists(lists []*ast.CommandList, checkErrexit bool) (int, error) {
	status := 0
	for _, cl := range lists {
		if d.branchPending() {
			break
		}

		if cl.Ampersand {
			d.runAsync(cl.Node)
			status = 0
			d.State.LastExitStatus = status
			continue
		}

		s, err := d.runAndOr(cl.Node)
		if err != nil {
			return s, err
		}
		status = s
		d.State.LastExitStatus = status

		if d.branchPending() {
			break
		}

		if checkErrexit && status != 0 && d.State.Opts.IsSet("errexit") {
			return status, &exec.ExitRequest{Code: status}
		}

		d.Jobs.Reap()
	}
	return status, nil
}

// branchPending reports whether break/continue/return is in flight on
// the current call frame (state.BranchSignal), per spec.md §4.5's
// "consumed by control-flow built-ins" STATUS_INTERRUPTED note.
func (d *Driver) branchPending() bool {
	return d.State.CurrentFrame().Branch != state.BranchNone
}
