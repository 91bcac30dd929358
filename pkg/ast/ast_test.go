package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strWord(s string) *StringWord {
	return &StringWord{Value: s, SplitFields: true}
}

func simpleEcho(args ...string) *SimpleCommand {
	sc := &SimpleCommand{Name: strWord("echo")}
	for _, a := range args {
		sc.Args = append(sc.Args, strWord(a))
	}
	return sc
}

func TestDeepCopyThenFormatIsIdentical(t *testing.T) {
	prog := &Program{
		Body: []*CommandList{
			{Node: &Pipeline{Commands: []Command{simpleEcho("hello", "world")}}},
		},
	}

	clone := prog.CopyProgram()
	assert.Equal(t, prog.Format(), clone.Format())

	// mutating the clone must not affect the original (exclusive ownership).
	clone.Body[0].Node.(*Pipeline).Commands[0].(*SimpleCommand).Args[0].(*StringWord).Value = "mutated"
	assert.Equal(t, "echo hello world", prog.Format())
	assert.Equal(t, "echo mutated world", clone.Format())
}

func TestParameterWordFormat(t *testing.T) {
	p := &ParameterWord{Name: "FOO", Braced: true, Op: ParamOpMinus, Colon: true, Arg: strWord("bar")}
	assert.Equal(t, "${FOO:-bar}", p.Format())

	plain := &ParameterWord{Name: "FOO"}
	assert.Equal(t, "$FOO", plain.Format())

	length := &ParameterWord{Name: "FOO", Op: ParamOpLength, Braced: true}
	assert.Equal(t, "${#FOO}", length.Format())
}

func TestIfClauseFormatWithElif(t *testing.T) {
	inner := &IfClause{
		Cond: []*CommandList{{Node: &Pipeline{Commands: []Command{simpleEcho("b")}}}},
		Then: []*CommandList{{Node: &Pipeline{Commands: []Command{simpleEcho("c")}}}},
	}
	outer := &IfClause{
		Cond: []*CommandList{{Node: &Pipeline{Commands: []Command{simpleEcho("a")}}}},
		Then: []*CommandList{{Node: &Pipeline{Commands: []Command{simpleEcho("d")}}}},
		Else: inner,
	}
	assert.Contains(t, outer.Format(), "elif")
}
