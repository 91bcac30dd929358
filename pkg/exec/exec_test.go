package exec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarnsh/tarnsh/pkg/ast"
	"github.com/tarnsh/tarnsh/pkg/job"
	"github.com/tarnsh/tarnsh/pkg/state"
	"github.com/tarnsh/tarnsh/pkg/trap"
)

type fakeRunner struct {
	commandStatus int
	commandErr    error
	commandHook   func() (int, error)
	programStatus int
	programErr    error
	lastProgram   *ast.Program
}

func (f *fakeRunner) RunCommand(cmd ast.Command) (int, error) {
	if f.commandHook != nil {
		return f.commandHook()
	}
	return f.commandStatus, f.commandErr
}

func (f *fakeRunner) RunProgram(prog *ast.Program) (int, error) {
	f.lastProgram = prog
	return f.programStatus, f.programErr
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	st := state.New(nil, []string{"tarnsh"})
	jobs := job.NewTable(-1)
	traps := trap.NewRegistry()
	d := New(st, jobs, traps, &fakeRunner{})
	var out, errOut bytes.Buffer
	d.Stdout = &out
	d.Stderr = &errOut
	return d, &out, &errOut
}

func word(s string) ast.Word {
	return &ast.StringWord{Value: s, SplitFields: true}
}

func simpleCommand(name string, args ...string) *ast.SimpleCommand {
	c := &ast.SimpleCommand{}
	if name != "" {
		c.Name = word(name)
	}
	for _, a := range args {
		c.Args = append(c.Args, word(a))
	}
	return c
}

func TestRunColonIsNoop(t *testing.T) {
	d, out, errOut := newTestDispatcher(t)
	status, err := d.Run(simpleCommand(":"))
	require.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())
}

func TestRunEchoWritesArgsJoinedBySpace(t *testing.T) {
	d, out, _ := newTestDispatcher(t)
	status, err := d.Run(simpleCommand("echo", "hello", "world"))
	require.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Equal(t, "hello world\n", out.String())
}

func TestRunEchoDashN(t *testing.T) {
	d, out, _ := newTestDispatcher(t)
	_, err := d.Run(simpleCommand("echo", "-n", "hi"))
	require.NoError(t, err)
	assert.Equal(t, "hi", out.String())
}

func TestRunTrueFalse(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	status, err := d.Run(simpleCommand("true"))
	require.NoError(t, err)
	assert.Equal(t, 0, status)

	status, err = d.Run(simpleCommand("false"))
	require.NoError(t, err)
	assert.Equal(t, 1, status)
}

func TestRunTestBuiltin(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	status, err := d.Run(simpleCommand("test", "foo", "=", "foo"))
	require.NoError(t, err)
	assert.Equal(t, 0, status)

	status, err = d.Run(simpleCommand("test", "foo", "=", "bar"))
	require.NoError(t, err)
	assert.Equal(t, 1, status)
}

func TestRunBareAssignmentPersists(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	cmd := &ast.SimpleCommand{
		Assignments: []*ast.Assignment{{Name: "FOO", Value: word("bar")}},
	}
	status, err := d.Run(cmd)
	require.NoError(t, err)
	assert.Equal(t, 0, status)

	v, ok := d.State.Lookup("FOO")
	assert.True(t, ok)
	assert.Equal(t, "bar", v)
}

func TestRunExportMakesVariableVisibleToExportedEnviron(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	_, err := d.Run(simpleCommand("export", "FOO=bar"))
	require.NoError(t, err)

	found := false
	for _, kv := range d.State.ExportedEnviron() {
		if kv == "FOO=bar" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRunReadonlyRejectsReassignment(t *testing.T) {
	d, _, errOut := newTestDispatcher(t)
	_, err := d.Run(simpleCommand("readonly", "FOO=bar"))
	require.NoError(t, err)

	cmd := &ast.SimpleCommand{
		Assignments: []*ast.Assignment{{Name: "FOO", Value: word("baz")}},
	}
	status, err := d.Run(cmd)
	require.NoError(t, err)
	assert.Equal(t, 1, status)
	assert.Contains(t, errOut.String(), "readonly")
}

func TestRunExitReturnsExitRequest(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	status, err := d.Run(simpleCommand("exit", "7"))
	var exitReq *ExitRequest
	require.ErrorAs(t, err, &exitReq)
	assert.Equal(t, 7, exitReq.Code)
	assert.Equal(t, 7, status)
	require.NotNil(t, d.State.PlannedExit)
	assert.Equal(t, 7, *d.State.PlannedExit)
}

func TestBreakSetsFrameBranch(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	_, err := d.Run(simpleCommand("break", "2"))
	require.NoError(t, err)
	frame := d.State.CurrentFrame()
	assert.Equal(t, state.BranchBreak, frame.Branch)
	assert.Equal(t, 2, frame.BranchLevel)
}

func TestReturnSetsFrameBranchWithStatus(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	_, err := d.Run(simpleCommand("return", "3"))
	require.NoError(t, err)
	frame := d.State.CurrentFrame()
	assert.Equal(t, state.BranchReturn, frame.Branch)
	assert.Equal(t, 3, frame.BranchLevel)
}

func TestRunFunctionAbsorbsReturnIntoExitStatus(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	runner := d.Runner.(*fakeRunner)

	d.State.SetFunction("myfunc", &ast.SimpleCommand{Name: word("return"), Args: []ast.Word{word("5")}})

	// Simulate the function body itself having run `return 5`: in the
	// real system pkg/task's RunCommand would dispatch into this
	// package again and the `return` builtin would set this on the
	// pushed frame; the mock stands in for that whole recursive path.
	runner.commandHook = func() (int, error) {
		d.State.CurrentFrame().Branch = state.BranchReturn
		d.State.CurrentFrame().BranchLevel = 5
		return 0, nil
	}

	status, err := d.Run(simpleCommand("myfunc"))
	require.NoError(t, err)
	assert.Equal(t, 5, status)

	frame := d.State.CurrentFrame()
	assert.Equal(t, state.BranchNone, frame.Branch)
}

func TestSetOptionLettersAndPositional(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	_, err := d.Run(simpleCommand("set", "-e", "-x", "--", "a", "b", "c"))
	require.NoError(t, err)
	assert.True(t, d.State.Opts.IsSet("errexit"))
	assert.True(t, d.State.Opts.IsSet("xtrace"))
	assert.Equal(t, []string{"a", "b", "c"}, d.State.Positional())
}

func TestShiftDropsLeadingPositionals(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	d.State.SetPositional([]string{"a", "b", "c"})
	_, err := d.Run(simpleCommand("shift", "2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, d.State.Positional())
}

func TestTrapRegistersCommand(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	_, err := d.Run(simpleCommand("trap", "echo bye", "EXIT"))
	require.NoError(t, err)
	action, cmd := d.Traps.Get("EXIT")
	assert.Equal(t, trap.ActionCommand, action)
	assert.Equal(t, "echo bye", cmd)
}

func TestEvalRunsThroughRunner(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	runner := d.Runner.(*fakeRunner)
	runner.programStatus = 42

	status, err := d.Run(simpleCommand("eval", "echo", "hi"))
	require.NoError(t, err)
	assert.Equal(t, 42, status)
	require.NotNil(t, runner.lastProgram)
}

func TestCommandNotFoundReturns127(t *testing.T) {
	d, _, errOut := newTestDispatcher(t)
	require.NoError(t, d.State.Assign("PATH", "/nonexistent/bin"))
	status, err := d.Run(simpleCommand("totally-not-a-real-command"))
	require.NoError(t, err)
	assert.Equal(t, 127, status)
	assert.Contains(t, errOut.String(), "command not found")
}
