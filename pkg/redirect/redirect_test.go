package redirect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarnsh/tarnsh/pkg/ast"
)

type fakeEnv struct{ vars map[string]string }

func (f *fakeEnv) Lookup(name string) (string, bool) { v, ok := f.vars[name]; return v, ok }
func (f *fakeEnv) Assign(name, value string) error   { f.vars[name] = value; return nil }
func (f *fakeEnv) Positional() []string              { return nil }
func (f *fakeEnv) ExitStatus() int                   { return 0 }
func (f *fakeEnv) Options() string                   { return "" }
func (f *fakeEnv) ShellPID() int                     { return 1 }
func (f *fakeEnv) LastBackgroundPID() int            { return 0 }
func (f *fakeEnv) Line() int                         { return 1 }
func (f *fakeEnv) IFS() (string, bool)               { return " \t\n", true }
func (f *fakeEnv) NoUnset() bool                     { return false }
func (f *fakeEnv) NoGlob() bool                      { return false }
func (f *fakeEnv) RunCommandSubstitution(p *ast.Program) (string, error) {
	return "", nil
}

func newFakeEnv() *fakeEnv { return &fakeEnv{vars: map[string]string{}} }

func literalWord(s string) *ast.StringWord {
	return &ast.StringWord{Value: s, SplitFields: true}
}

func TestTargetFDDefaults(t *testing.T) {
	assert.Equal(t, 0, targetFD(&ast.IoRedirect{Op: ast.IoLess}))
	assert.Equal(t, 1, targetFD(&ast.IoRedirect{Op: ast.IoGreat}))
	assert.Equal(t, 0, targetFD(&ast.IoRedirect{Op: ast.IoDLess}))
	n := 5
	assert.Equal(t, 5, targetFD(&ast.IoRedirect{Op: ast.IoGreat, IoNumber: &n}))
}

func TestPushPopRedirectsStdout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	env := newFakeEnv()

	e := New()
	saved, err := e.Push([]*ast.IoRedirect{
		{Op: ast.IoGreat, Name: literalWord(path)},
	}, env, false)
	require.NoError(t, err)

	_, werr := os.Stdout.WriteString("hello redirect\n")
	require.NoError(t, werr)

	e.Pop(saved)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello redirect\n", string(content))
}

func TestOpenTargetNoClobberRefusesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exists.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := openTarget(ast.IoGreat, path, true)
	assert.Error(t, err)

	f, err := openTarget(ast.IoClobber, path, true)
	require.NoError(t, err)
	f.Close()
}

func TestForChildHereDocSyncContent(t *testing.T) {
	env := newFakeEnv()
	e := New()

	redirects := []*ast.IoRedirect{
		{Op: ast.IoDLess, HereDocLines: []ast.Word{literalWord("line one\n"), literalWord("line two\n")}},
	}
	c, err := e.ForChild(redirects, env, false)
	require.NoError(t, err)
	defer c.Close()

	buf := make([]byte, 64)
	n, err := c.Stdin.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", string(buf[:n]))
}

func TestForChildCloseFD(t *testing.T) {
	env := newFakeEnv()
	e := New()

	redirects := []*ast.IoRedirect{
		{Op: ast.IoGreatAnd, Name: literalWord("-")},
	}
	c, err := e.ForChild(redirects, env, false)
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Stdout)
}
