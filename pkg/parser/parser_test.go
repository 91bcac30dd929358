package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarnsh/tarnsh/pkg/ast"
)

type fakeAliases map[string]string

func (f fakeAliases) Lookup(name string) (string, bool) {
	v, ok := f[name]
	return v, ok
}

func firstSimpleCommand(t *testing.T, prog *ast.Program) *ast.SimpleCommand {
	t.Helper()
	require.Len(t, prog.Body, 1)
	pl, ok := prog.Body[0].Node.(*ast.Pipeline)
	require.True(t, ok)
	require.Len(t, pl.Commands, 1)
	sc, ok := pl.Commands[0].(*ast.SimpleCommand)
	require.True(t, ok)
	return sc
}

func TestParseSimpleCommandWithArgsAndRedirect(t *testing.T) {
	prog, err := Parse("echo foo bar > out.txt\n", nil)
	require.NoError(t, err)
	sc := firstSimpleCommand(t, prog)

	assert.Equal(t, "echo", sc.Name.Format())
	require.Len(t, sc.Args, 2)
	assert.Equal(t, "foo", sc.Args[0].Format())
	assert.Equal(t, "bar", sc.Args[1].Format())
	require.Len(t, sc.Redirects, 1)
	assert.Equal(t, ast.IoGreat, sc.Redirects[0].Op)
	assert.Equal(t, "out.txt", sc.Redirects[0].Name.Format())
}

func TestParseAssignmentOnlyCommand(t *testing.T) {
	prog, err := Parse("FOO=bar\n", nil)
	require.NoError(t, err)
	sc := firstSimpleCommand(t, prog)

	assert.Nil(t, sc.Name)
	require.Len(t, sc.Assignments, 1)
	assert.Equal(t, "FOO", sc.Assignments[0].Name)
	assert.Equal(t, "bar", sc.Assignments[0].Value.Format())
}

func TestParseAndOrChainIsLeftAssociative(t *testing.T) {
	prog, err := Parse("a | b && c || d\n", nil)
	require.NoError(t, err)
	require.Len(t, prog.Body, 1)

	top, ok := prog.Body[0].Node.(*ast.BinOp)
	require.True(t, ok)
	assert.Equal(t, ast.BinOpOr, top.Kind)

	left, ok := top.Left.(*ast.BinOp)
	require.True(t, ok)
	assert.Equal(t, ast.BinOpAnd, left.Kind)

	pl, ok := left.Left.(*ast.Pipeline)
	require.True(t, ok)
	assert.Len(t, pl.Commands, 2)
}

func TestParseIfClauseWithElif(t *testing.T) {
	prog, err := Parse("if a; then b; elif c; then d; else e; fi\n", nil)
	require.NoError(t, err)
	require.Len(t, prog.Body, 1)

	pl := prog.Body[0].Node.(*ast.Pipeline)
	ifc, ok := pl.Commands[0].(*ast.IfClause)
	require.True(t, ok)
	require.Len(t, ifc.Cond, 1)
	require.Len(t, ifc.Then, 1)

	elif, ok := ifc.Else.(*ast.IfClause)
	require.True(t, ok)
	require.Len(t, elif.Cond, 1)
	require.Len(t, elif.Then, 1)
	require.NotNil(t, elif.Else)
}

func TestParseForClauseWithWordListAndParameter(t *testing.T) {
	prog, err := Parse("for i in a b c; do echo $i; done\n", nil)
	require.NoError(t, err)

	pl := prog.Body[0].Node.(*ast.Pipeline)
	fc, ok := pl.Commands[0].(*ast.ForClause)
	require.True(t, ok)
	assert.Equal(t, "i", fc.Name)
	assert.True(t, fc.In)
	require.Len(t, fc.Words, 3)
	assert.Equal(t, "a", fc.Words[0].Format())
	assert.Equal(t, "c", fc.Words[2].Format())

	require.Len(t, fc.Body, 1)
	bodyPl := fc.Body[0].Node.(*ast.Pipeline)
	bodySc := bodyPl.Commands[0].(*ast.SimpleCommand)
	require.Len(t, bodySc.Args, 1)
	param, ok := bodySc.Args[0].(*ast.ParameterWord)
	require.True(t, ok)
	assert.Equal(t, "i", param.Name)
}

func TestParseCaseClauseWithMultiplePatternsAndItems(t *testing.T) {
	prog, err := Parse("case $x in a|b) echo m;; *) echo n;; esac\n", nil)
	require.NoError(t, err)

	pl := prog.Body[0].Node.(*ast.Pipeline)
	cc, ok := pl.Commands[0].(*ast.CaseClause)
	require.True(t, ok)
	param, ok := cc.Word.(*ast.ParameterWord)
	require.True(t, ok)
	assert.Equal(t, "x", param.Name)

	require.Len(t, cc.Items, 2)
	require.Len(t, cc.Items[0].Patterns, 2)
	assert.Equal(t, "a", cc.Items[0].Patterns[0].Format())
	assert.Equal(t, "b", cc.Items[0].Patterns[1].Format())
	require.Len(t, cc.Items[1].Patterns, 1)
	assert.Equal(t, "*", cc.Items[1].Patterns[0].Format())

	item0Sc := cc.Items[0].Body[0].Node.(*ast.Pipeline).Commands[0].(*ast.SimpleCommand)
	require.Len(t, item0Sc.Args, 1)
	assert.Equal(t, "m", item0Sc.Args[0].Format())
}

func TestParseFunctionDefinitionAndSubshell(t *testing.T) {
	prog, err := Parse("foo() { bar; }\n", nil)
	require.NoError(t, err)

	pl := prog.Body[0].Node.(*ast.Pipeline)
	fn, ok := pl.Commands[0].(*ast.FunctionDefinition)
	require.True(t, ok)
	assert.Equal(t, "foo", fn.Name)
	bg, ok := fn.Body.(*ast.BraceGroup)
	require.True(t, ok)
	require.Len(t, bg.Body, 1)

	prog2, err := Parse("(a; b)\n", nil)
	require.NoError(t, err)
	pl2 := prog2.Body[0].Node.(*ast.Pipeline)
	sub, ok := pl2.Commands[0].(*ast.Subshell)
	require.True(t, ok)
	assert.Len(t, sub.Body, 2)
}

func TestParseQuotingForms(t *testing.T) {
	p := New(`'a $b c'`, nil)
	w, err := p.parseWord()
	require.NoError(t, err)
	sw, ok := w.(*ast.StringWord)
	require.True(t, ok)
	assert.True(t, sw.SingleQuoted)
	assert.Equal(t, "a $b c", sw.Value)

	p2 := New(`"a $b c"`, nil)
	w2, err := p2.parseWord()
	require.NoError(t, err)
	lw, ok := w2.(*ast.ListWord)
	require.True(t, ok)
	assert.True(t, lw.DoubleQuoted)
	require.Len(t, lw.Children, 3)
	_, isParam := lw.Children[1].(*ast.ParameterWord)
	assert.True(t, isParam)
}

func TestParseParameterExpansionForms(t *testing.T) {
	cases := []struct {
		src  string
		op   ast.ParamOp
		name string
	}{
		{"${name:-default}", ast.ParamOpMinus, "name"},
		{"${name#pattern}", ast.ParamOpHash, "name"},
		{"${name%%pattern}", ast.ParamOpPercentPct, "name"},
	}
	for _, c := range cases {
		p := New(c.src, nil)
		w, err := p.parseWord()
		require.NoError(t, err, c.src)
		pw, ok := w.(*ast.ParameterWord)
		require.True(t, ok, c.src)
		assert.Equal(t, c.name, pw.Name, c.src)
		assert.Equal(t, c.op, pw.Op, c.src)
		assert.NotNil(t, pw.Arg, c.src)
	}

	p := New("${#name}", nil)
	w, err := p.parseWord()
	require.NoError(t, err)
	pw := w.(*ast.ParameterWord)
	assert.Equal(t, ast.ParamOpLength, pw.Op)
	assert.Equal(t, "name", pw.Name)
}

func TestParseCommandSubstitutionAndArithmetic(t *testing.T) {
	p := New("$(echo hi)", nil)
	w, err := p.parseWord()
	require.NoError(t, err)
	cw, ok := w.(*ast.CommandWord)
	require.True(t, ok)
	assert.False(t, cw.BackQuoted)
	require.Len(t, cw.Program.Body, 1)

	p2 := New("$((1 + 2))", nil)
	w2, err := p2.parseWord()
	require.NoError(t, err)
	aw, ok := w2.(*ast.ArithmeticWord)
	require.True(t, ok)
	assert.Equal(t, "1 + 2", aw.Body.Format())

	p3 := New("`echo hi`", nil)
	w3, err := p3.parseWord()
	require.NoError(t, err)
	cw3, ok := w3.(*ast.CommandWord)
	require.True(t, ok)
	assert.True(t, cw3.BackQuoted)
}

func TestParseHereDocExpandsUnlessDelimiterQuoted(t *testing.T) {
	prog, err := Parse("cat <<EOF\nhello $name\nEOF\n", nil)
	require.NoError(t, err)
	sc := firstSimpleCommand(t, prog)
	require.Len(t, sc.Redirects, 1)
	require.Len(t, sc.Redirects[0].HereDocLines, 1)
	line, ok := sc.Redirects[0].HereDocLines[0].(*ast.ListWord)
	require.True(t, ok)
	require.Len(t, line.Children, 3)
	_, isParam := line.Children[1].(*ast.ParameterWord)
	assert.True(t, isParam)

	prog2, err := Parse("cat <<'EOF'\nhello $name\nEOF\n", nil)
	require.NoError(t, err)
	sc2 := firstSimpleCommand(t, prog2)
	require.Len(t, sc2.Redirects[0].HereDocLines, 1)
	sw, ok := sc2.Redirects[0].HereDocLines[0].(*ast.StringWord)
	require.True(t, ok)
	assert.Equal(t, "hello $name\n", sw.Value)
}

func TestParseHereDocDashStripsLeadingTabs(t *testing.T) {
	prog, err := Parse("cat <<-EOF\n\t\thello\n\tEOF\n", nil)
	require.NoError(t, err)
	sc := firstSimpleCommand(t, prog)
	require.Len(t, sc.Redirects[0].HereDocLines, 1)
}

func TestParseAliasSplicingAtCommandPosition(t *testing.T) {
	aliases := fakeAliases{"ll": "ls -l "}
	prog, err := Parse("ll foo\n", aliases)
	require.NoError(t, err)
	sc := firstSimpleCommand(t, prog)
	assert.Equal(t, "ls", sc.Name.Format())
	require.Len(t, sc.Args, 2)
	assert.Equal(t, "-l", sc.Args[0].Format())
	assert.Equal(t, "foo", sc.Args[1].Format())
}

func TestParseEmptyProgram(t *testing.T) {
	prog, err := Parse("", nil)
	require.NoError(t, err)
	assert.Empty(t, prog.Body)

	prog2, err := Parse("   \n\n  # just a comment\n", nil)
	require.NoError(t, err)
	assert.Empty(t, prog2.Body)
}
