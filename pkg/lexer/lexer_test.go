package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextTokenOperators(t *testing.T) {
	l := New(NewCursor("echo a && b || c ; d ;; e << f <<- g <& h >& i <> j >| k"))
	var kinds []Kind
	for {
		tok := l.NextToken()
		if tok.Kind == EOF {
			break
		}
		if tok.Kind == TOKEN {
			// simulate the parser consuming a plain word
			n := l.PeekWordLen(0)
			l.Cur.Read(n)
			continue
		}
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []Kind{AND_IF, OR_IF, SEMI, DSEMI, DLESS, DLESSDASH, LESSAND, GREATAND, LESSGREAT, CLOBBER}, kinds)
}

func TestSkipBlanksAndComments(t *testing.T) {
	l := New(NewCursor("   # a comment\nfoo"))
	tok := l.NextToken()
	assert.Equal(t, NEWLINE, tok.Kind)
	n := l.PeekWordLen(0)
	assert.Equal(t, "foo", l.Cur.Read(n))
}

func TestCursorTracksLineColumn(t *testing.T) {
	c := NewCursor("ab\ncd")
	c.Read(3)
	pos := c.Pos()
	assert.Equal(t, 2, pos.Line)
	assert.Equal(t, 1, pos.Column)
}

func TestSpliceInsertsAtCursor(t *testing.T) {
	c := NewCursor("echo world")
	c.Read(5) // consume "echo "
	c.Splice("hello ")
	assert.Equal(t, "hello world", c.Read(20))
}
