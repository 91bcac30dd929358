package task

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	throttle "github.com/boz/go-throttle"

	"github.com/tarnsh/tarnsh/pkg/ast"
	"github.com/tarnsh/tarnsh/pkg/exec"
	"github.com/tarnsh/tarnsh/pkg/job"
	"github.com/tarnsh/tarnsh/pkg/state"
	"github.com/tarnsh/tarnsh/pkg/trap"
)

// Driver implements exec.Runner and walks the AST spec.md §3 defines:
// one Driver per shell environment (the top-level shell, plus one more
// per subshell/pipeline-stage/async body it forks off). Jobs and Traps
// are shared with every forked descendant; each descendant gets its own
// Dispatcher from Exec.Fork, and runs whatever State its caller hands
// to fork() (a Clone for subshells, pipeline stages and async bodies),
// which is what gives a subshell its own variables without touching
// the parent's.
type Driver struct {
	Exec  *exec.Dispatcher
	State *state.ShellState
	Jobs  *job.Table
	Traps *trap.Registry

	// idle paces the notification the top-level RunProgram loop prints
	// for a background job's completion, the same way the teacher's
	// gui.go paces repeated refreshes with go-throttle, so a burst of
	// job-table changes doesn't spam the terminal one line per Reap.
	idle *throttle.Throttle
}

// NewDriver wires a fresh Driver around st/jobs/traps and returns it
// with Exec.Runner already pointed at itself, ready to execute
// top-level input via RunProgram.
func NewDriver(st *state.ShellState, jobs *job.Table, traps *trap.Registry) *Driver {
	d := &Driver{State: st, Jobs: jobs, Traps: traps}
	d.Exec = exec.New(st, jobs, traps, d)
	d.idle = throttle.ThrottleFunc(50*time.Millisecond, true, d.printJobNotifications)
	st.Runner = d.runCommandSubstitution
	return d
}

// fork returns a Driver sharing this one's job table and trap
// registry but running st through its own Dispatcher, with stdio
// overridden to stdin/stdout/stderr. Used for subshells (a cloned
// state), pipeline stages (a cloned state, piped stdio), and
// async bodies (a cloned state, so the backgrounded command's
// assignments don't leak back into the shell that launched it).
func (d *Driver) fork(st *state.ShellState, stdin io.Reader, stdout, stderr io.Writer) *Driver {
	child := &Driver{State: st, Jobs: d.Jobs, Traps: d.Traps, idle: d.idle}
	child.Exec = d.Exec.Fork(st, stdin, stdout, stderr)
	child.Exec.Runner = child
	st.Runner = child.runCommandSubstitution
	return child
}

// RunProgram implements exec.Runner for `.`, `eval`, and top-level
// script/REPL input: runs prog's command lists in order, applying
// errexit, and returns the last status.
func (d *Driver) RunProgram(prog *ast.Program) (int, error) {
	status, err := d.runLists(prog.Body, true)
	d.Jobs.Reap()
	d.idle.Trigger()
	for _, cmd := range d.Traps.Drain() {
		d.runTrapCommand(cmd)
	}
	return status, err
}

// RunCommand implements exec.Runner for the function body / compound
// command dispatch pkg/exec needs: it is also this package's own
// entry point for every Command node spec.md §3's sum type names.
func (d *Driver) RunCommand(cmd ast.Command) (int, error) {
	switch c := cmd.(type) {
	case *ast.SimpleCommand:
		return d.Exec.Run(c)
	case *ast.BraceGroup:
		return d.runLists(c.Body, true)
	case *ast.Subshell:
		return d.runSubshell(c)
	case *ast.IfClause:
		return d.runIfClause(c)
	case *ast.ForClause:
		return d.runForClause(c)
	case *ast.LoopClause:
		return d.runLoopClause(c)
	case *ast.CaseClause:
		return d.runCaseClause(c)
	case *ast.FunctionDefinition:
		d.State.SetFunction(c.Name, c.Body)
		return 0, nil
	default:
		return 1, fmt.Errorf("task: unknown command node %T", cmd)
	}
}

// runCommandSubstitution backs pkg/expand's Env.RunCommandSubstitution:
// prog runs in a forked subshell environment with stdout captured to
// an in-memory buffer, per spec.md §4.4 item 3.
func (d *Driver) runCommandSubstitution(prog *ast.Program) (string, error) {
	var buf bytes.Buffer
	child := d.fork(d.State.Clone(), d.Exec.Stdin, &buf, d.Exec.Stderr)
	_, err := child.RunProgram(prog)
	return strings.TrimRight(buf.String(), "\n"), err
}

