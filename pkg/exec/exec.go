// Package exec is the simple-command executor of spec.md §4.6: given
// an already-parsed *ast.SimpleCommand, it expands every word, then
// dispatches in POSIX precedence order (function, special built-in,
// regular built-in, external) and returns an exit status. It also
// hosts the built-in table itself, since most built-ins are small
// enough that a separate package per built-in would be pure ceremony.
package exec

import (
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"strings"

	"github.com/tarnsh/tarnsh/pkg/ast"
	"github.com/tarnsh/tarnsh/pkg/expand"
	"github.com/tarnsh/tarnsh/pkg/job"
	"github.com/tarnsh/tarnsh/pkg/redirect"
	"github.com/tarnsh/tarnsh/pkg/shellerr"
	"github.com/tarnsh/tarnsh/pkg/state"
	"github.com/tarnsh/tarnsh/pkg/trap"
)

// Runner is the task framework's half of the recursive relationship
// between pkg/exec and pkg/task: function bodies, `eval`'d text, and
// `.`-sourced programs are full command/program trees that must run
// through the whole task machinery (pipelines, control structures,
// job control), not just through this package's simple-command path.
// pkg/task implements this; pkg/exec never imports pkg/task, avoiding
// a cycle (the same Env-decoupling pattern pkg/state uses for
// RunCommandSubstitution).
type Runner interface {
	RunCommand(cmd ast.Command) (int, error)
	RunProgram(prog *ast.Program) (int, error)
}

// ExitRequest is the sentinel the `exit` built-in returns to unwind
// every enclosing task immediately, per spec.md §4.5/§4.9: callers at
// every level check for it with errors.As rather than threading a
// special status code through pkg/task's poll loop.
type ExitRequest struct{ Code int }

func (e *ExitRequest) Error() string { return fmt.Sprintf("exit %d", e.Code) }

// Dispatcher holds everything simple-command execution needs:
// shell state for variables/functions/frames, the job table for
// `wait`/`fg`/`bg`/`jobs`, the trap registry for `trap`, the redirect
// engine for fd save/restore, a PATH cache for external lookups, and
// a Runner back into the task framework for function/eval/source.
type Dispatcher struct {
	State  *state.ShellState
	Jobs   *job.Table
	Traps  *trap.Registry
	Redir  *redirect.Engine
	Paths  *PathCache
	Runner Runner

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Background, when true, makes runExternal register the process
	// and return immediately instead of waiting for it, per spec.md
	// §4.5's Async task contract. Set by pkg/task around a backgrounded
	// command; never touched by ordinary foreground dispatch.
	Background bool

	// PipelineJob, when non-nil, is the shared job every stage of a
	// pipeline (spec.md §4.8) joins instead of each stage getting its
	// own process group: pkg/task's pipeline runner sets this on every
	// per-stage Dispatcher it forks so all of a pipeline's processes
	// land in the same job and share one process group.
	PipelineJob *job.Job
}

// New builds a Dispatcher; stdin/stdout/stderr default to the
// process's own streams (the common case once Run's redirect Push has
// already dup2'd fd 0/1/2 in place for a built-in to just write to
// os.Stdout directly — see TestPushPopRedirectsStdout in pkg/redirect).
func New(st *state.ShellState, jobs *job.Table, traps *trap.Registry, runner Runner) *Dispatcher {
	return &Dispatcher{
		State:  st,
		Jobs:   jobs,
		Traps:  traps,
		Redir:  redirect.New(),
		Paths:  NewPathCache(),
		Runner: runner,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Fork returns a Dispatcher sharing this one's job table, trap
// registry, redirect engine, path cache, and Runner, but running
// against its own shell state and its own stdio. pkg/task uses this
// for subshells (a cloned ShellState so assignments don't leak to the
// parent) and for pipeline stages (the parent's own ShellState, but
// stdio pointed at the stage's pipe ends).
func (d *Dispatcher) Fork(st *state.ShellState, stdin io.Reader, stdout, stderr io.Writer) *Dispatcher {
	return &Dispatcher{
		State:  st,
		Jobs:   d.Jobs,
		Traps:  d.Traps,
		Redir:  d.Redir,
		Paths:  d.Paths,
		Runner: d.Runner,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	}
}

type builtinFunc func(d *Dispatcher, args []string) (int, error)

// Run implements spec.md §4.6's simple-command executor: copy (words
// are expanded destructively by pkg/expand's field pieces), expand
// assignments and the command name/arguments, expand redirection
// operands, build argv, xtrace, then dispatch.
func (d *Dispatcher) Run(orig *ast.SimpleCommand) (int, error) {
	cmd := orig.CopyCommand().(*ast.SimpleCommand)

	env := d.State

	for _, a := range cmd.Assignments {
		val, err := expand.AssignmentValue(a.Value, env)
		if err != nil {
			return d.expansionFailure(err)
		}
		if err := d.State.Assign(a.Name, val); err != nil {
			fmt.Fprintln(d.Stderr, err)
			return 1, nil
		}
	}

	if cmd.Name == nil {
		// Bare assignment, e.g. `FOO=bar`: no command to run, status is
		// that of the last assignment's expansion (already 0 if we got
		// this far), and the assignments are NOT restricted to a
		// temporary environment the way a command prefix's are.
		saved, err := d.Redir.Push(cmd.Redirects, env, d.State.Opts.IsSet("noclobber"))
		if err != nil {
			return d.redirectionFailure(err)
		}
		d.Redir.Pop(saved)
		return 0, nil
	}

	nameFields, err := expand.Fields(cmd.Name, env)
	if err != nil {
		return d.expansionFailure(err)
	}
	var argv []string
	argv = append(argv, nameFields...)
	for _, w := range cmd.Args {
		fields, err := expand.Fields(w, env)
		if err != nil {
			return d.expansionFailure(err)
		}
		argv = append(argv, fields...)
	}
	if len(argv) == 0 {
		// The command name expanded away to nothing (e.g. `"$unset"`
		// with nounset off): nothing to run, but the assignments above
		// have taken effect and the redirects are still performed.
		saved, err := d.Redir.Push(cmd.Redirects, env, d.State.Opts.IsSet("noclobber"))
		if err != nil {
			return d.redirectionFailure(err)
		}
		d.Redir.Pop(saved)
		return 0, nil
	}
	name := argv[0]
	args := argv[1:]

	if d.State.Opts.IsSet("xtrace") {
		d.printTrace(argv)
	}

	// A command-prefix assignment (cmd.Assignments non-empty alongside
	// a real command name) is only exported into the child/builtin's
	// environment for that one invocation, per POSIX; bare-assignment
	// persistence already happened above when cmd.Name == nil, so the
	// Assign calls above are safe to run unconditionally either way —
	// a readonly-protected overwrite attempt fails identically in
	// both cases.

	if body, ok := d.State.Function(name); ok {
		return d.runFunction(name, body, args, cmd.Redirects)
	}

	if name == "exec" {
		// `exec` manages its own redirect lifetime: with a command it
		// replaces the shell process entirely (redirects die with it
		// anyway); with none, its redirects must outlive this call
		// instead of being popped the way every other built-in's are.
		return execBuiltin(d, args, cmd.Redirects)
	}

	if fn, ok := specialBuiltins[name]; ok {
		saved, rerr := d.Redir.Push(cmd.Redirects, env, d.State.Opts.IsSet("noclobber"))
		if rerr != nil {
			return d.redirectionFailure(rerr)
		}
		defer d.Redir.Pop(saved)
		return fn(d, args)
	}

	if fn, ok := regularBuiltins[name]; ok {
		saved, rerr := d.Redir.Push(cmd.Redirects, env, d.State.Opts.IsSet("noclobber"))
		if rerr != nil {
			return d.redirectionFailure(rerr)
		}
		defer d.Redir.Pop(saved)
		return fn(d, args)
	}

	return d.runExternal(name, args, cmd.Redirects)
}

// runFunction pushes a call frame, runs the function body (a full
// command through the Runner, per the FunctionDefinition task's
// contract of deep-copying the body on definition so this invocation
// cannot mutate the stored one), and translates a BranchReturn signal
// into that function call's own exit status rather than letting it
// keep propagating past the frame that should absorb it.
func (d *Dispatcher) runFunction(name string, body ast.Command, args []string, redirects []*ast.IoRedirect) (int, error) {
	saved, rerr := d.Redir.Push(redirects, d.State, d.State.Opts.IsSet("noclobber"))
	if rerr != nil {
		return d.redirectionFailure(rerr)
	}
	defer d.Redir.Pop(saved)

	d.State.PushFrame(name, args)
	defer d.State.PopFrame()

	status, err := d.Runner.RunCommand(body)
	if err != nil {
		return status, err
	}

	if frame := d.State.CurrentFrame(); frame.Branch == state.BranchReturn {
		status = frame.BranchLevel
		frame.Branch = state.BranchNone
		frame.BranchLevel = 0
	}
	return status, nil
}

// runExternal forks name with argv and the redirected/exported
// environment. On its own it runs as a one-process foreground job and
// is waited for here; as a stage of a pipeline (PipelineJob set) or
// with Background set it returns right after starting the process,
// leaving the wait to the pipeline runner or to later job control.
func (d *Dispatcher) runExternal(name string, args []string, redirects []*ast.IoRedirect) (int, error) {
	path, ok := d.Paths.Lookup(name, d.pathVar())
	if !ok {
		fmt.Fprintf(d.Stderr, "%s: command not found\n", name)
		return 127, nil
	}

	stdin, stdout, stderr := d.stdioDefaults()
	cio, err := d.Redir.ForChildDefaults(redirects, d.State, d.State.Opts.IsSet("noclobber"), stdin, stdout, stderr)
	if err != nil {
		return d.redirectionFailure(err)
	}
	defer cio.Close()

	c := osexec.Command(path, args...)
	c.Args = append([]string{name}, args...)
	c.Stdin, c.Stdout, c.Stderr = cio.Stdin, cio.Stdout, cio.Stderr
	c.ExtraFiles = cio.Extra
	c.Env = d.State.ExportedEnviron()

	j := d.PipelineJob
	owning := j == nil
	if owning {
		j = d.Jobs.NewJob(name, d.Background)
	}
	if err := d.Jobs.StartProcess(j, c); err != nil {
		if os.IsNotExist(err) || isNotExecutable(err) {
			fmt.Fprintf(d.Stderr, "%s: cannot execute\n", name)
			return 126, nil
		}
		return 1, shellerr.Wrap(err)
	}

	if !owning {
		// A later stage of the same pipeline; the pipeline runner
		// itself waits for/foregrounds the shared job once every stage
		// has been started.
		return 0, nil
	}

	if d.Background {
		d.State.LastBgPID = j.Processes[len(j.Processes)-1].PID
		return 0, nil
	}

	if err := d.Jobs.PutInForeground(j, false); err != nil {
		return 1, shellerr.Wrap(err)
	}
	status := j.ExitStatus()
	d.Jobs.Remove(j)
	return status, nil
}

func isNotExecutable(err error) bool {
	return strings.Contains(err.Error(), "permission denied")
}

// stdioDefaults reports the *os.File an external child should inherit
// for each of stdin/stdout/stderr before its own redirects are
// applied: normally the process's real stdio, but a pipe end when a
// pkg/task pipeline stage has pointed the Dispatcher's Stdin/Stdout at
// one (see pkg/task's pipeline runner).
func (d *Dispatcher) stdioDefaults() (stdin, stdout, stderr *os.File) {
	stdin = os.Stdin
	if f, ok := d.Stdin.(*os.File); ok {
		stdin = f
	}
	stdout = os.Stdout
	if f, ok := d.Stdout.(*os.File); ok {
		stdout = f
	}
	stderr = os.Stderr
	if f, ok := d.Stderr.(*os.File); ok {
		stderr = f
	}
	return stdin, stdout, stderr
}

func (d *Dispatcher) pathVar() string {
	if v, ok := d.State.Lookup("PATH"); ok {
		return v
	}
	return "/usr/bin:/bin"
}

func (d *Dispatcher) printTrace(argv []string) {
	ps4 := "+ "
	if v, ok := d.State.Lookup("PS4"); ok {
		ps4 = v
	}
	fmt.Fprintln(d.Stderr, job.TracePrefix(ps4)+strings.Join(argv, " "))
}

func (d *Dispatcher) expansionFailure(err error) (int, error) {
	return 1, shellerr.New(shellerr.CodeExpansion, "%s", err)
}

func (d *Dispatcher) redirectionFailure(err error) (int, error) {
	fmt.Fprintln(d.Stderr, err)
	return 1, nil
}
