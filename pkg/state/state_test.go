package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarnsh/tarnsh/pkg/ast"
	"github.com/tarnsh/tarnsh/pkg/config"
)

func newTestState(t *testing.T) *ShellState {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TARNSH_CONFIG_DIR", dir)
	cfg, err := config.NewShellConfig("test", false)
	require.NoError(t, err)
	return New(cfg, []string{"tarnsh"})
}

func TestAssignAndLookup(t *testing.T) {
	s := newTestState(t)
	require.NoError(t, s.Assign("FOO", "bar"))
	v, ok := s.Lookup("FOO")
	require.True(t, ok)
	assert.Equal(t, "bar", v)

	_, ok = s.Lookup("NOPE")
	assert.False(t, ok)
}

func TestAssignRejectsReadOnly(t *testing.T) {
	s := newTestState(t)
	require.NoError(t, s.Assign("FOO", "bar"))
	s.MarkReadOnly("FOO")

	err := s.Assign("FOO", "baz")
	require.Error(t, err)
	var roErr *ReadOnlyError
	require.ErrorAs(t, err, &roErr)

	v, _ := s.Lookup("FOO")
	assert.Equal(t, "bar", v, "rejected assignment must not change the value")
}

func TestAllexportPromotesNewAssignments(t *testing.T) {
	s := newTestState(t)
	s.Opts.Set("allexport", true)
	require.NoError(t, s.Assign("FOO", "bar"))

	found := false
	for _, kv := range s.ExportedEnviron() {
		if kv == "FOO=bar" {
			found = true
		}
	}
	assert.True(t, found, "allexport must promote the new variable to exported")
}

func TestPositionalFollowsCallFrame(t *testing.T) {
	s := newTestState(t)
	s.SetPositional([]string{"one", "two"})
	assert.Equal(t, []string{"one", "two"}, s.Positional())

	s.PushFrame("myfunc", []string{"a", "b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, s.Positional())

	s.PopFrame()
	assert.Equal(t, []string{"one", "two"}, s.Positional())
}

func TestOptionsStringRendersShortLetters(t *testing.T) {
	s := newTestState(t)
	s.Opts.Set("errexit", true)
	s.Opts.Set("xtrace", true)
	assert.Equal(t, "ex", s.Options())
}

func TestAliasSetAndLookupViaView(t *testing.T) {
	s := newTestState(t)
	s.SetAlias("ll", "ls -l")

	v, ok := s.Aliases().Lookup("ll")
	require.True(t, ok)
	assert.Equal(t, "ls -l", v)

	s.Unalias("ll")
	_, ok = s.Aliases().Lookup("ll")
	assert.False(t, ok)
}

func TestFunctionBodyIsDeepCopied(t *testing.T) {
	s := newTestState(t)
	name := &ast.StringWord{Value: "original", SplitFields: true}
	body := &ast.SimpleCommand{Name: name}
	s.SetFunction("greet", body)

	name.Value = "mutated-after-set"

	got, ok := s.Function("greet")
	require.True(t, ok)
	assert.Equal(t, "original", got.(*ast.SimpleCommand).Name.(*ast.StringWord).Value,
		"SetFunction must deep-copy, not alias, the body")
}
