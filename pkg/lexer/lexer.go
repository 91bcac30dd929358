package lexer

// Lexer recognizes operators, newlines, and comments over a Cursor,
// leaving everything else (names, reserved words, quoting, expansion
// introducers) to pkg/parser — which calls back into PeekWordLen to
// decide, without committing, how far a plain run of characters
// extends.
type Lexer struct {
	Cur *Cursor
}

// New wraps a Cursor in a Lexer.
func New(c *Cursor) *Lexer {
	return &Lexer{Cur: c}
}

// SkipBlanksAndComments consumes spaces, tabs, and a trailing
// `#`-comment (up to but not including the newline), leaving the
// cursor positioned at the next significant character.
func (l *Lexer) SkipBlanksAndComments() {
	for {
		for isBlank(l.Cur.PeekChar()) {
			l.Cur.Read(1)
		}
		if l.Cur.PeekChar() == '#' {
			for l.Cur.PeekChar() != '\n' && !l.Cur.AtEOF() {
				l.Cur.Read(1)
			}
			continue
		}
		return
	}
}

// NextToken returns the next operator/newline/EOF token, after skipping
// blanks and comments. If the next byte doesn't start a known operator,
// it returns a TOKEN with an empty Literal: the caller (parser) is
// responsible for consuming the word itself via PeekWordLen/word
// parsing, not via this lexer.
func (l *Lexer) NextToken() Token {
	l.SkipBlanksAndComments()
	pos := l.Cur.Pos()
	mk := func(k Kind, lit string) Token {
		return Token{Kind: k, Literal: lit, Line: pos.Line, Column: pos.Column}
	}

	if l.Cur.AtEOF() {
		return mk(EOF, "")
	}

	ch := l.Cur.PeekChar()
	switch ch {
	case '\n':
		l.Cur.Read(1)
		return mk(NEWLINE, "\n")
	case '&':
		if l.Cur.Peek(1) == '&' {
			l.Cur.Read(2)
			return mk(AND_IF, "&&")
		}
		l.Cur.Read(1)
		return mk(AMP, "&")
	case '|':
		if l.Cur.Peek(1) == '|' {
			l.Cur.Read(2)
			return mk(OR_IF, "||")
		}
		l.Cur.Read(1)
		return mk(PIPE, "|")
	case ';':
		if l.Cur.Peek(1) == ';' {
			l.Cur.Read(2)
			return mk(DSEMI, ";;")
		}
		l.Cur.Read(1)
		return mk(SEMI, ";")
	case '<':
		switch l.Cur.Peek(1) {
		case '<':
			if l.Cur.Peek(2) == '-' {
				l.Cur.Read(3)
				return mk(DLESSDASH, "<<-")
			}
			l.Cur.Read(2)
			return mk(DLESS, "<<")
		case '&':
			l.Cur.Read(2)
			return mk(LESSAND, "<&")
		case '>':
			l.Cur.Read(2)
			return mk(LESSGREAT, "<>")
		default:
			l.Cur.Read(1)
			return mk(LESS, "<")
		}
	case '>':
		switch l.Cur.Peek(1) {
		case '>':
			l.Cur.Read(2)
			return mk(DGREAT, ">>")
		case '&':
			l.Cur.Read(2)
			return mk(GREATAND, ">&")
		case '|':
			l.Cur.Read(2)
			return mk(CLOBBER, ">|")
		default:
			l.Cur.Read(1)
			return mk(GREAT, ">")
		}
	case '(':
		l.Cur.Read(1)
		return mk(LPAREN, "(")
	case ')':
		l.Cur.Read(1)
		return mk(RPAREN, ")")
	default:
		return mk(TOKEN, "")
	}
}

// isWordBreakByte reports whether b ends a plain unquoted run: blank,
// newline, an operator-start character, `)`, or a substitution/quoting
// introducer.
func isWordBreakByte(b byte, endChar byte) bool {
	if b == 0 || isBlank(b) || b == '\n' {
		return true
	}
	switch b {
	case '&', '|', ';', '<', '>', ')', '$', '`', '\'', '"', '\\':
		return true
	}
	return endChar != 0 && b == endChar
}

// PeekWordLen returns the length, in bytes, of the plain unquoted run
// starting at the cursor — a run containing none of the characters
// that would force the parser into operator/quote/substitution
// handling. endChar, if non-zero, is an additional caller-supplied
// terminator (e.g. `}` while scanning a `${...}` body). The parser uses
// this to decide between reserved words, names, and plain tokens
// without committing to consuming anything.
func (l *Lexer) PeekWordLen(endChar byte) int {
	n := 0
	for {
		b := l.Cur.Peek(n)
		if isWordBreakByte(b, endChar) {
			return n
		}
		n++
	}
}
