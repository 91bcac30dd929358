package expand

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarnsh/tarnsh/pkg/ast"
	"github.com/tarnsh/tarnsh/pkg/parser"
)

type fakeEnv struct {
	vars         map[string]string
	positional   []string
	exitStatus   int
	options      string
	pid          int
	bgPID        int
	line         int
	ifs          string
	ifsSet       bool
	noUnset      bool
	noGlob       bool
	cmdSubOutput string
	cmdSubErr    error
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{vars: map[string]string{}}
}

func (e *fakeEnv) Lookup(name string) (string, bool) {
	v, ok := e.vars[name]
	return v, ok
}

func (e *fakeEnv) Assign(name, value string) error {
	e.vars[name] = value
	return nil
}

func (e *fakeEnv) Positional() []string          { return e.positional }
func (e *fakeEnv) ExitStatus() int                { return e.exitStatus }
func (e *fakeEnv) Options() string                { return e.options }
func (e *fakeEnv) ShellPID() int                  { return e.pid }
func (e *fakeEnv) LastBackgroundPID() int         { return e.bgPID }
func (e *fakeEnv) Line() int                      { return e.line }
func (e *fakeEnv) IFS() (string, bool)            { return e.ifs, e.ifsSet }
func (e *fakeEnv) NoUnset() bool                  { return e.noUnset }
func (e *fakeEnv) NoGlob() bool                   { return e.noGlob }

func (e *fakeEnv) RunCommandSubstitution(prog *ast.Program) (string, error) {
	return e.cmdSubOutput, e.cmdSubErr
}

func argWord(t *testing.T, src string) ast.Word {
	t.Helper()
	prog, err := parser.Parse("echo "+src+"\n", nil)
	require.NoError(t, err)
	require.Len(t, prog.Body, 1)
	pl := prog.Body[0].Node.(*ast.Pipeline)
	sc := pl.Commands[0].(*ast.SimpleCommand)
	require.Len(t, sc.Args, 1)
	return sc.Args[0]
}

func TestTildeExpandsHomeDirectory(t *testing.T) {
	env := newFakeEnv()
	env.vars["HOME"] = "/home/alex"

	fields, err := Fields(argWord(t, "~"), env)
	require.NoError(t, err)
	assert.Equal(t, []string{"/home/alex"}, fields)

	fields, err = Fields(argWord(t, "~/src"), env)
	require.NoError(t, err)
	assert.Equal(t, []string{"/home/alex/src"}, fields)
}

func TestTildeDoesNotExpandWhenQuoted(t *testing.T) {
	env := newFakeEnv()
	env.vars["HOME"] = "/home/alex"

	fields, err := Fields(argWord(t, `"~"`), env)
	require.NoError(t, err)
	assert.Equal(t, []string{"~"}, fields)
}

func TestParameterDefaultAndAssignOperators(t *testing.T) {
	env := newFakeEnv()

	fields, err := Fields(argWord(t, "${name:-fallback}"), env)
	require.NoError(t, err)
	assert.Equal(t, []string{"fallback"}, fields)
	_, set := env.Lookup("name")
	assert.False(t, set, "`:-` must not assign")

	fields, err = Fields(argWord(t, "${name:=fallback}"), env)
	require.NoError(t, err)
	assert.Equal(t, []string{"fallback"}, fields)
	v, set := env.Lookup("name")
	require.True(t, set)
	assert.Equal(t, "fallback", v)
}

func TestParameterQuestionErrorsWhenUnset(t *testing.T) {
	env := newFakeEnv()
	_, err := Fields(argWord(t, "${name:?missing value}"), env)
	require.Error(t, err)
	var unset *UnsetParameterError
	require.ErrorAs(t, err, &unset)
	assert.Equal(t, "name", unset.Name)
	assert.Equal(t, "missing value", unset.Message)
}

func TestParameterNounsetIsFatal(t *testing.T) {
	env := newFakeEnv()
	env.noUnset = true
	_, err := Fields(argWord(t, "$missing"), env)
	require.Error(t, err)
	var unset *UnsetParameterError
	require.ErrorAs(t, err, &unset)
}

func TestParameterPatternRemovalOperators(t *testing.T) {
	env := newFakeEnv()
	env.vars["path"] = "a/b/c.tar.gz"

	cases := []struct {
		src  string
		want string
	}{
		{"${path%.gz}", "a/b/c.tar"},
		{"${path%%.*}", "a/b/c"},
		{"${path#*/}", "b/c.tar.gz"},
		{"${path##*/}", "c.tar.gz"},
	}
	for _, c := range cases {
		fields, err := Fields(argWord(t, c.src), env)
		require.NoError(t, err, c.src)
		assert.Equal(t, []string{c.want}, fields, c.src)
	}
}

func TestFieldSplittingCollapsesWhitespaceIFS(t *testing.T) {
	env := newFakeEnv()
	env.vars["x"] = "a  b\tc"

	fields, err := Fields(argWord(t, "$x"), env)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, fields)
}

func TestFieldSplittingNonWhitespaceIFSProducesEmptyFields(t *testing.T) {
	env := newFakeEnv()
	env.vars["x"] = "a::b"
	env.ifs, env.ifsSet = ":", true

	fields, err := Fields(argWord(t, "$x"), env)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", "b"}, fields)
}

func TestQuotedAtExpandsOneFieldPerPositionalParameter(t *testing.T) {
	env := newFakeEnv()
	env.positional = []string{"a", "b c", "d"}

	fields, err := Fields(argWord(t, `"$@"`), env)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b c", "d"}, fields)
}

func TestUnquotedStarRejoinsUnderDefaultIFS(t *testing.T) {
	env := newFakeEnv()
	env.positional = []string{"a", "b"}

	fields, err := Fields(argWord(t, "$*"), env)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, fields)
}

func TestQuotedStarJoinsWithFirstIFSCharacter(t *testing.T) {
	env := newFakeEnv()
	env.positional = []string{"a", "b"}
	env.ifs, env.ifsSet = ",", true

	fields, err := Fields(argWord(t, `"$*"`), env)
	require.NoError(t, err)
	assert.Equal(t, []string{"a,b"}, fields)
}

func TestPathnameExpansionGlobsUnquotedMetacharacters(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), nil, 0o644))

	env := newFakeEnv()
	fields, err := Fields(argWord(t, filepath.Join(dir, "*.txt")), env)
	require.NoError(t, err)

	want := []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")}
	sort.Strings(want)
	assert.Equal(t, want, fields)
}

func TestPathnameExpansionLeavesQuotedMetacharactersLiteral(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o644))

	env := newFakeEnv()
	pattern := filepath.Join(dir, `"*.txt"`)
	fields, err := Fields(argWord(t, pattern), env)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "*.txt")}, fields)
}

func TestArithmeticExpansionEvaluatesExpression(t *testing.T) {
	env := newFakeEnv()
	fields, err := Fields(argWord(t, "$((2 + 3 * 4))"), env)
	require.NoError(t, err)
	assert.Equal(t, []string{"14"}, fields)
}

func TestArithmeticAssignmentUpdatesVariable(t *testing.T) {
	env := newFakeEnv()
	fields, err := Fields(argWord(t, "$((x = 5 + 1))"), env)
	require.NoError(t, err)
	assert.Equal(t, []string{"6"}, fields)
	v, set := env.Lookup("x")
	require.True(t, set)
	assert.Equal(t, "6", v)
}

func TestArithmeticDivisionByZeroIsAnError(t *testing.T) {
	env := newFakeEnv()
	_, err := Fields(argWord(t, "$((1 / 0))"), env)
	require.Error(t, err)
}

func TestArithmeticLogicalAndShortCircuitsAssignment(t *testing.T) {
	env := newFakeEnv()
	fields, err := Fields(argWord(t, "$((0 && (y = 9)))"), env)
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, fields)
	_, set := env.Lookup("y")
	assert.False(t, set, "right-hand side of a false `&&` must not run")
}

func TestAssignmentValueRepeatsTildeAfterEachColon(t *testing.T) {
	env := newFakeEnv()
	env.vars["HOME"] = "/home/alex"

	prog, err := parser.Parse("PATH=~:~/bin:/usr/bin\n", nil)
	require.NoError(t, err)
	pl := prog.Body[0].Node.(*ast.Pipeline)
	sc := pl.Commands[0].(*ast.SimpleCommand)
	require.Len(t, sc.Assignments, 1)

	value, err := AssignmentValue(sc.Assignments[0].Value, env)
	require.NoError(t, err)
	assert.Equal(t, "/home/alex:/home/alex/bin:/usr/bin", value)
}
