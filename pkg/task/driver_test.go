package task

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarnsh/tarnsh/pkg/job"
	"github.com/tarnsh/tarnsh/pkg/parser"
	"github.com/tarnsh/tarnsh/pkg/state"
	"github.com/tarnsh/tarnsh/pkg/trap"
)

func newTestDriver(t *testing.T) (*Driver, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	st := state.New(nil, []string{"tarnsh"})
	jobs := job.NewTable(-1)
	traps := trap.NewRegistry()
	d := NewDriver(st, jobs, traps)
	var out, errOut bytes.Buffer
	d.Exec.Stdout = &out
	d.Exec.Stderr = &errOut
	return d, &out, &errOut
}

func run(t *testing.T, d *Driver, src string) (int, error) {
	t.Helper()
	prog, err := parser.Parse(src, d.State.Aliases())
	require.NoError(t, err)
	return d.RunProgram(prog)
}

func TestRunProgramSequencesCommands(t *testing.T) {
	d, out, _ := newTestDriver(t)
	status, err := run(t, d, "echo one; echo two")
	require.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Equal(t, "one\ntwo\n", out.String())
}

func TestAndOrShortCircuits(t *testing.T) {
	d, out, _ := newTestDriver(t)
	status, err := run(t, d, "false && echo nope; true || echo nope")
	require.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Empty(t, out.String())
}

func TestIfClause(t *testing.T) {
	d, out, _ := newTestDriver(t)
	_, err := run(t, d, "if true; then echo yes; else echo no; fi")
	require.NoError(t, err)
	assert.Equal(t, "yes\n", out.String())
}

func TestIfClauseElse(t *testing.T) {
	d, out, _ := newTestDriver(t)
	_, err := run(t, d, "if false; then echo yes; else echo no; fi")
	require.NoError(t, err)
	assert.Equal(t, "no\n", out.String())
}

func TestForClauseOverWords(t *testing.T) {
	d, out, _ := newTestDriver(t)
	_, err := run(t, d, "for x in a b c; do echo $x; done")
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc\n", out.String())
}

func TestForClauseBreak(t *testing.T) {
	d, out, _ := newTestDriver(t)
	_, err := run(t, d, "for x in a b c; do if [ \"$x\" = b ]; then break; fi; echo $x; done")
	require.NoError(t, err)
	assert.Equal(t, "a\n", out.String())
}

func TestForClauseContinue(t *testing.T) {
	d, out, _ := newTestDriver(t)
	_, err := run(t, d, "for x in a b c; do if [ \"$x\" = b ]; then continue; fi; echo $x; done")
	require.NoError(t, err)
	assert.Equal(t, "a\nc\n", out.String())
}

func TestWhileClause(t *testing.T) {
	d, out, _ := newTestDriver(t)
	_, err := run(t, d, "i=0; while [ \"$i\" -lt 3 ]; do echo $i; i=$((i+1)); done")
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n2\n", out.String())
}

func TestUntilClause(t *testing.T) {
	d, out, _ := newTestDriver(t)
	_, err := run(t, d, "i=0; until [ \"$i\" -ge 3 ]; do echo $i; i=$((i+1)); done")
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n2\n", out.String())
}

func TestCaseClauseMatchesFirstPattern(t *testing.T) {
	d, out, _ := newTestDriver(t)
	_, err := run(t, d, "case abc in a*) echo first;; *) echo second;; esac")
	require.NoError(t, err)
	assert.Equal(t, "first\n", out.String())
}

func TestCaseClauseNoMatch(t *testing.T) {
	d, out, _ := newTestDriver(t)
	status, err := run(t, d, "case zzz in a*) echo first;; b*) echo second;; esac")
	require.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Empty(t, out.String())
}

func TestSubshellIsolatesAssignments(t *testing.T) {
	d, out, _ := newTestDriver(t)
	_, err := run(t, d, "x=outer; (x=inner; echo $x); echo $x")
	require.NoError(t, err)
	assert.Equal(t, "inner\nouter\n", out.String())
}

func TestSubshellExitDoesNotTerminateParent(t *testing.T) {
	d, out, _ := newTestDriver(t)
	status, err := run(t, d, "(exit 7); echo after")
	require.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Equal(t, "after\n", out.String())
}

func TestBraceGroupSharesState(t *testing.T) {
	d, out, _ := newTestDriver(t)
	_, err := run(t, d, "{ x=shared; echo $x; }; echo $x")
	require.NoError(t, err)
	assert.Equal(t, "shared\nshared\n", out.String())
}

func TestPipelineConnectsStages(t *testing.T) {
	d, out, _ := newTestDriver(t)
	_, err := run(t, d, "echo hello | cat")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out.String())
}

func TestPipelineNegation(t *testing.T) {
	d, _, _ := newTestDriver(t)
	status, err := run(t, d, "! true")
	require.NoError(t, err)
	assert.Equal(t, 1, status)
}

func TestPipelineStageAssignmentsDontLeak(t *testing.T) {
	d, out, _ := newTestDriver(t)
	_, err := run(t, d, "x=before; echo hi | x=during_pipe cat; echo $x")
	require.NoError(t, err)
	assert.Equal(t, "hi\nbefore\n", out.String())
}

func TestFunctionDefinitionAndCall(t *testing.T) {
	d, out, _ := newTestDriver(t)
	_, err := run(t, d, "greet() { echo hi $1; }; greet world")
	require.NoError(t, err)
	assert.Equal(t, "hi world\n", out.String())
}

func TestErrexitStopsOnFailure(t *testing.T) {
	d, out, _ := newTestDriver(t)
	_, err := run(t, d, "set -e; false; echo unreached")
	require.Error(t, err)
	assert.Empty(t, out.String())
}
