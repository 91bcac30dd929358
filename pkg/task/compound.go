package task

import (
	"errors"

	"github.com/tarnsh/tarnsh/pkg/ast"
	"github.com/tarnsh/tarnsh/pkg/exec"
	"github.com/tarnsh/tarnsh/pkg/expand"
	"github.com/tarnsh/tarnsh/pkg/state"
)

// runSubshell runs body in a forked environment whose variables,
// functions, and exit-triggered `exit` are entirely its own, per
// spec.md §4.5's Subshell task: a real shell forks a child process for
// this; a Go process cannot safely fork itself once it has more than
// one goroutine running, so this clones ShellState instead and runs
// the body in-process, which gives the same visible isolation for
// ShellState but not for subprocess-table identity ($$ inside the
// "subshell" still reports the real shell's pid) or for traps (the
// trap registry is shared with the parent).
func (d *Driver) runSubshell(c *ast.Subshell) (int, error) {
	child := d.fork(d.State.Clone(), d.Exec.Stdin, d.Exec.Stdout, d.Exec.Stderr)
	status, err := child.runLists(c.Body, true)

	var exitReq *exec.ExitRequest
	if errors.As(err, &exitReq) {
		// `exit` inside `( ... )` only terminates the subshell.
		return exitReq.Code, nil
	}
	return status, err
}

// runIfClause runs the Cond list (errexit suppressed, as a failing
// condition is not itself a shell error) and then Then or Else.
func (d *Driver) runIfClause(c *ast.IfClause) (int, error) {
	condStatus, err := d.runLists(c.Cond, false)
	if err != nil {
		return condStatus, err
	}
	if d.branchPending() {
		return condStatus, nil
	}
	if condStatus == 0 {
		return d.runLists(c.Then, true)
	}
	if c.Else != nil {
		return d.RunCommand(c.Else)
	}
	return 0, nil
}

// runLoopClause runs `while`/`until`, per spec.md §4.5's LoopClause
// task: re-evaluate Cond before every iteration, stop on a failing (or
// succeeding, for `until`) condition, and let break/continue unwind
// out of Body by inspecting the call frame after each iteration.
func (d *Driver) runLoopClause(c *ast.LoopClause) (int, error) {
	status := 0
	for {
		condStatus, err := d.runLists(c.Cond, false)
		if err != nil {
			return condStatus, err
		}
		if d.branchPending() {
			return status, nil
		}

		continueLooping := condStatus == 0
		if c.Kind == ast.LoopUntil {
			continueLooping = condStatus != 0
		}
		if !continueLooping {
			return status, nil
		}

		bodyStatus, err := d.runLists(c.Body, true)
		if err != nil {
			return bodyStatus, err
		}
		status = bodyStatus

		if stop, ret := d.consumeLoopBranch(); stop {
			return ret, nil
		}
	}
}

// runForClause runs `for name in words; do body; done`, or (without an
// explicit `in` clause) iterates the current positional parameters,
// per spec.md §4.5's ForClause task.
func (d *Driver) runForClause(c *ast.ForClause) (int, error) {
	var words []string
	if c.In {
		for _, w := range c.Words {
			fields, err := expand.Fields(w, d.State)
			if err != nil {
				return 1, err
			}
			words = append(words, fields...)
		}
	} else {
		words = d.State.Positional()
	}

	status := 0
	for _, w := range words {
		if err := d.State.Assign(c.Name, w); err != nil {
			return 1, err
		}

		bodyStatus, err := d.runLists(c.Body, true)
		if err != nil {
			return bodyStatus, err
		}
		status = bodyStatus

		if stop, ret := d.consumeLoopBranch(); stop {
			return ret, nil
		}
	}
	return status, nil
}

// consumeLoopBranch inspects the current frame after one loop
// iteration: BranchBreak/BranchContinue at level 1 is consumed here
// (this is the loop they named); a deeper level is decremented and
// left in place so the next enclosing loop consumes one level of its
// own. stop reports whether the caller's loop should stop iterating.
func (d *Driver) consumeLoopBranch() (stop bool, status int) {
	frame := d.State.CurrentFrame()
	switch frame.Branch {
	case state.BranchBreak:
		if frame.BranchLevel <= 1 {
			frame.Branch = state.BranchNone
			frame.BranchLevel = 0
		} else {
			frame.BranchLevel--
		}
		return true, d.State.LastExitStatus
	case state.BranchContinue:
		if frame.BranchLevel <= 1 {
			frame.Branch = state.BranchNone
			frame.BranchLevel = 0
			return false, 0
		}
		frame.BranchLevel--
		return true, d.State.LastExitStatus
	case state.BranchReturn:
		return true, d.State.LastExitStatus
	default:
		return false, 0
	}
}

// runCaseClause matches Word against each item's patterns in order and
// runs the first match's body, per spec.md §4.5's CaseClause task. The
// parser recognizes only the `;;` terminator (see pkg/ast's
// CaseItem.TerminatorRng), so at most one body ever runs.
func (d *Driver) runCaseClause(c *ast.CaseClause) (int, error) {
	subject, err := expand.Literal(c.Word, d.State)
	if err != nil {
		return 1, err
	}

	for _, item := range c.Items {
		for _, patWord := range item.Patterns {
			pattern, err := expand.Literal(patWord, d.State)
			if err != nil {
				return 1, err
			}
			if expand.Match(pattern, subject) {
				return d.runLists(item.Body, true)
			}
		}
	}
	return 0, nil
}
