// Package lexer turns shell source bytes into the operator/reserved-word
// token stream and plain-text lookahead that pkg/parser builds words and
// commands from (spec.md §4.1).
package lexer

import (
	"io"

	"github.com/spkg/bom"

	"github.com/tarnsh/tarnsh/pkg/ast"
)

// Cursor is a byte-stream reader with lookahead and line/column
// tracking. EOF is modelled as an endless run of zero bytes so callers
// can peek past the end without a separate "at EOF" branch.
type Cursor struct {
	buf    []byte
	src    io.Reader
	pos    int // index of the next unread byte in buf
	line   int
	column int
	eof    bool
}

// NewCursor builds a Cursor over an already-complete buffer (the
// common case: a whole script or $(...) substitution body).
func NewCursor(src string) *Cursor {
	return &Cursor{buf: []byte(src), line: 1, column: 1, eof: true}
}

// NewCursorFromReader builds a Cursor that refills from r on demand
// (the parser's entry points use NewCursor instead). A leading
// UTF-8 BOM, if present, is stripped before any bytes are lexed —
// scripts edited on Windows occasionally carry one.
func NewCursorFromReader(r io.Reader) *Cursor {
	return &Cursor{src: bom.NewReader(r), line: 1, column: 1}
}

// refill pulls more bytes from src until at least n bytes are available
// past pos, or the source is exhausted.
func (c *Cursor) refill(n int) {
	if c.eof || c.src == nil {
		return
	}
	chunk := make([]byte, 4096)
	for len(c.buf)-c.pos < n {
		m, err := c.src.Read(chunk)
		if m > 0 {
			c.buf = append(c.buf, chunk[:m]...)
		}
		if err != nil {
			c.eof = true
			return
		}
		if m == 0 {
			c.eof = true
			return
		}
	}
}

// Peek returns the byte n positions ahead of the cursor (0 = next byte
// to be read), or 0 at/past EOF.
func (c *Cursor) Peek(n int) byte {
	c.refill(n + 1)
	idx := c.pos + n
	if idx >= len(c.buf) {
		return 0
	}
	return c.buf[idx]
}

// PeekString returns up to n bytes starting at the cursor, short if EOF
// intervenes.
func (c *Cursor) PeekString(n int) string {
	c.refill(n)
	end := c.pos + n
	if end > len(c.buf) {
		end = len(c.buf)
	}
	return string(c.buf[c.pos:end])
}

// PeekChar is Peek(0) under a friendlier name for single-byte lookahead
// call sites.
func (c *Cursor) PeekChar() byte { return c.Peek(0) }

// Read consumes and returns n bytes, advancing position/line/column.
// Reading past EOF yields zero bytes.
func (c *Cursor) Read(n int) string {
	c.refill(n)
	end := c.pos + n
	if end > len(c.buf) {
		end = len(c.buf)
	}
	s := c.buf[c.pos:end]
	for _, b := range s {
		if b == '\n' {
			c.line++
			c.column = 1
		} else {
			c.column++
		}
	}
	c.pos = end
	return string(s)
}

// ReadChar consumes and returns a single byte, or 0 at EOF.
func (c *Cursor) ReadChar() byte {
	b := c.PeekChar()
	c.Read(1)
	return b
}

// AtEOF reports whether the cursor has no more bytes to give, even
// after attempting a refill.
func (c *Cursor) AtEOF() bool {
	c.refill(1)
	return c.pos >= len(c.buf)
}

// Pos returns the cursor's current source position.
func (c *Cursor) Pos() ast.Position {
	return ast.Position{Offset: c.pos, Line: c.line, Column: c.column}
}

// Splice inserts text at the current position, as if it had always
// been there — used by the parser's alias expansion to splice a
// replacement into the input stream without a separate lexer restart.
func (c *Cursor) Splice(text string) {
	c.refill(0)
	tail := append([]byte(nil), c.buf[c.pos:]...)
	c.buf = append(c.buf[:c.pos], append([]byte(text), tail...)...)
}
