package parser

import (
	"strings"

	"github.com/tarnsh/tarnsh/pkg/ast"
	"github.com/tarnsh/tarnsh/pkg/lexer"
)

// parseWord parses a single word: the run of literal text, quoting, and
// substitution forms that extends until a blank, an operator, a
// newline, or a caller-context terminator (spec.md §4.2). It never
// returns an error for an empty word — a terminator seen immediately is
// a legitimate empty word (e.g. `FOO=` or `<<EOF` delimiters aren't
// affected, but `FOO=` assignment values are).
func (p *Parser) parseWord() (ast.Word, error) {
	return p.parseWordCore(0, true)
}

// parseWordCore parses a word, stopping at endChar (if nonzero) or, when
// breakOnBlank is true, at the first unquoted blank/newline/operator —
// the ordinary command-line word boundary. breakOnBlank is false only
// for a parameter operator's argument (spec.md §4.2): `${var?no such
// var}` keeps blanks as literal text all the way to the matching `}`,
// since the argument isn't a command-line word and is never subject to
// word-boundary rules until expansion time.
func (p *Parser) parseWordCore(endChar byte, breakOnBlank bool) (ast.Word, error) {
	start := p.pos()
	var children []ast.Word
	var buf strings.Builder

	flush := func() {
		if buf.Len() > 0 {
			children = append(children, &ast.StringWord{Value: buf.String(), SplitFields: true, Rng: ast.Range{Begin: start, End: p.pos()}})
			buf.Reset()
		}
	}

loop:
	for {
		b := p.lex.Cur.PeekChar()
		switch {
		case b == 0:
			break loop
		case endChar != 0 && b == endChar:
			break loop
		case breakOnBlank && (b == ' ' || b == '\t' || b == '\n'):
			break loop
		case !breakOnBlank && b == '\n':
			break loop
		case breakOnBlank && (b == '&' || b == '|' || b == ';' || b == '<' || b == '>' || b == ')'):
			break loop
		}

		switch b {
		case '\'':
			flush()
			child, err := p.parseSingleQuoted()
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		case '"':
			flush()
			child, err := p.parseDoubleQuoted()
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		case '$':
			flush()
			child, err := p.parseDollar()
			if err != nil {
				return nil, err
			}
			if child != nil {
				children = append(children, child)
			} else {
				buf.WriteByte('$')
			}
		case '`':
			flush()
			child, err := p.parseBackquoted()
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		case '\\':
			if p.lex.Cur.Peek(1) == '\n' {
				p.lex.Cur.Read(2) // line continuation, discarded
				continue
			}
			p.lex.Cur.Read(1)
			if p.lex.Cur.PeekChar() != 0 {
				buf.WriteByte(p.lex.Cur.ReadChar())
			}
		default:
			buf.WriteByte(p.lex.Cur.ReadChar())
		}
	}
	flush()

	return wrapChildren(children, ast.Range{Begin: start, End: p.pos()}), nil
}

// wrapChildren applies spec.md §3's flattening rule: a single child is
// returned directly (preserving its own quoting bits); more than one
// child is wrapped in an unquoted ListWord.
func wrapChildren(children []ast.Word, rng ast.Range) ast.Word {
	switch len(children) {
	case 0:
		return &ast.StringWord{Value: "", SplitFields: true, Rng: rng}
	case 1:
		return children[0]
	default:
		return &ast.ListWord{Children: children, DoubleQuoted: false, Rng: rng}
	}
}

// parseSingleQuoted parses `'...'`. No character is special inside;
// quote removal strips the markers and the whole result is marked
// SingleQuoted so it is never subject to expansion or field splitting.
func (p *Parser) parseSingleQuoted() (ast.Word, error) {
	start := p.pos()
	p.lex.Cur.Read(1) // opening '
	var buf strings.Builder
	for {
		b := p.lex.Cur.PeekChar()
		if b == 0 {
			return nil, p.errf("unterminated single-quoted string")
		}
		if b == '\'' {
			p.lex.Cur.Read(1)
			break
		}
		buf.WriteByte(p.lex.Cur.ReadChar())
	}
	return &ast.StringWord{Value: buf.String(), SingleQuoted: true, SplitFields: false, Rng: ast.Range{Begin: start, End: p.pos()}}, nil
}

// parseDoubleQuoted parses `"..."`. Only `$`, `` ` ``, and `\` before
// `$ \` "` newline are special; everything else — including `'` — is
// literal. The result is always a ListWord with DoubleQuoted=true, even
// for zero or one children, so downstream code can rely on it to
// suppress field splitting and keep `"$@"` intact.
func (p *Parser) parseDoubleQuoted() (ast.Word, error) {
	start := p.pos()
	p.lex.Cur.Read(1) // opening "
	var children []ast.Word
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			children = append(children, &ast.StringWord{Value: buf.String(), SplitFields: false, Rng: ast.Range{Begin: start, End: p.pos()}})
			buf.Reset()
		}
	}

	for {
		b := p.lex.Cur.PeekChar()
		if b == 0 {
			return nil, p.errf("unterminated double-quoted string")
		}
		if b == '"' {
			p.lex.Cur.Read(1)
			break
		}
		switch b {
		case '$':
			flush()
			child, err := p.parseDollar()
			if err != nil {
				return nil, err
			}
			if child != nil {
				markNoSplit(child)
				children = append(children, child)
			} else {
				buf.WriteByte('$')
			}
		case '`':
			flush()
			child, err := p.parseBackquoted()
			if err != nil {
				return nil, err
			}
			markNoSplit(child)
			children = append(children, child)
		case '\\':
			nxt := p.lex.Cur.Peek(1)
			switch nxt {
			case '$', '`', '"', '\\':
				p.lex.Cur.Read(2)
				buf.WriteByte(nxt)
			case '\n':
				p.lex.Cur.Read(2) // line continuation, discarded
			default:
				buf.WriteByte(p.lex.Cur.ReadChar())
			}
		default:
			buf.WriteByte(p.lex.Cur.ReadChar())
		}
	}
	flush()

	return &ast.ListWord{Children: children, DoubleQuoted: true, Rng: ast.Range{Begin: start, End: p.pos()}}, nil
}

// markNoSplit tags a substitution result as not eligible for field
// splitting, because it was produced inside a double-quoted context.
func markNoSplit(w ast.Word) {
	switch v := w.(type) {
	case *ast.StringWord:
		v.SplitFields = false
	case *ast.ParameterWord:
		// field-splitting eligibility is recorded on the expansion result,
		// not the parameter node itself; pkg/expand consults the
		// enclosing ListWord.DoubleQuoted flag instead.
	}
}

// parseDollar parses `$name`, `${...}`, `$(...)`, or `$((...))`
// starting at the `$`. Returns (nil, nil) if the `$` isn't followed by
// anything that makes it special, so the caller can treat it as a
// literal `$`.
func (p *Parser) parseDollar() (ast.Word, error) {
	start := p.pos()
	p.lex.Cur.Read(1) // '$'

	switch p.lex.Cur.PeekChar() {
	case '(':
		if p.lex.Cur.Peek(1) == '(' {
			return p.parseArithmeticExpansion(start)
		}
		return p.parseCommandSubstitution(start, false)
	case '{':
		return p.parseBracedParameter(start)
	}

	name, ok := p.parseBareParamName()
	if !ok {
		return nil, nil
	}
	return &ast.ParameterWord{Name: name, DollarPos: start, Rng: ast.Range{Begin: start, End: p.pos()}}, nil
}

func (p *Parser) parseBareParamName() (string, bool) {
	b := p.lex.Cur.PeekChar()
	switch {
	case b >= '0' && b <= '9':
		p.lex.Cur.Read(1)
		return string(b), true
	case b == '@' || b == '*' || b == '#' || b == '?' || b == '-' || b == '$' || b == '!':
		p.lex.Cur.Read(1)
		return string(b), true
	case lexer.IsNameStart(b):
		n := 0
		for lexer.IsNameByte(p.lex.Cur.Peek(n)) {
			n++
		}
		return p.lex.Cur.Read(n), true
	default:
		return "", false
	}
}

// parseBracedParameter parses `${...}` starting after the `$`, at `{`.
func (p *Parser) parseBracedParameter(start ast.Position) (ast.Word, error) {
	bracePos := p.pos()
	p.lex.Cur.Read(1) // '{'

	isLength := p.lex.Cur.PeekChar() == '#' && p.lex.Cur.Peek(1) != '}'
	if isLength {
		p.lex.Cur.Read(1)
	}

	name, ok := p.parseBraceParamName()
	if !ok {
		return nil, p.errf("expected parameter name in ${...}")
	}

	pw := &ast.ParameterWord{Name: name, DollarPos: start, Braced: true, BracePos: bracePos}

	if isLength {
		pw.Op = ast.ParamOpLength
		if p.lex.Cur.PeekChar() != '}' {
			return nil, p.errf("expected '}' after ${#%s", name)
		}
		p.lex.Cur.Read(1)
		pw.Rng = ast.Range{Begin: start, End: p.pos()}
		return pw, nil
	}

	op, colon, hasOp := p.parseParamOperator()
	if hasOp {
		pw.Op = op
		pw.Colon = colon
		arg, err := p.parseWordCore('}', false)
		if err != nil {
			return nil, err
		}
		pw.Arg = arg
	}

	if p.lex.Cur.PeekChar() != '}' {
		return nil, p.errf("expected '}' to close parameter expansion")
	}
	p.lex.Cur.Read(1)
	pw.Rng = ast.Range{Begin: start, End: p.pos()}
	return pw, nil
}

func (p *Parser) parseBraceParamName() (string, bool) {
	b := p.lex.Cur.PeekChar()
	switch {
	case b >= '0' && b <= '9':
		n := 0
		for {
			c := p.lex.Cur.Peek(n)
			if c < '0' || c > '9' {
				break
			}
			n++
		}
		return p.lex.Cur.Read(n), true
	case b == '@' || b == '*' || b == '#' || b == '?' || b == '-' || b == '$' || b == '!':
		p.lex.Cur.Read(1)
		return string(b), true
	case lexer.IsNameStart(b):
		n := 0
		for lexer.IsNameByte(p.lex.Cur.Peek(n)) {
			n++
		}
		return p.lex.Cur.Read(n), true
	default:
		return "", false
	}
}

func (p *Parser) parseParamOperator() (ast.ParamOp, bool, bool) {
	b := p.lex.Cur.PeekChar()
	if b == ':' {
		switch p.lex.Cur.Peek(1) {
		case '-':
			p.lex.Cur.Read(2)
			return ast.ParamOpMinus, true, true
		case '=':
			p.lex.Cur.Read(2)
			return ast.ParamOpAssign, true, true
		case '?':
			p.lex.Cur.Read(2)
			return ast.ParamOpQuestion, true, true
		case '+':
			p.lex.Cur.Read(2)
			return ast.ParamOpPlus, true, true
		}
		return ast.ParamOpNone, false, false
	}
	switch b {
	case '-':
		p.lex.Cur.Read(1)
		return ast.ParamOpMinus, false, true
	case '=':
		p.lex.Cur.Read(1)
		return ast.ParamOpAssign, false, true
	case '?':
		p.lex.Cur.Read(1)
		return ast.ParamOpQuestion, false, true
	case '+':
		p.lex.Cur.Read(1)
		return ast.ParamOpPlus, false, true
	case '%':
		if p.lex.Cur.Peek(1) == '%' {
			p.lex.Cur.Read(2)
			return ast.ParamOpPercentPct, false, true
		}
		p.lex.Cur.Read(1)
		return ast.ParamOpPercent, false, true
	case '#':
		if p.lex.Cur.Peek(1) == '#' {
			p.lex.Cur.Read(2)
			return ast.ParamOpHashHash, false, true
		}
		p.lex.Cur.Read(1)
		return ast.ParamOpHash, false, true
	}
	return ast.ParamOpNone, false, false
}

// parseCommandSubstitution parses `$(...)`'s body as a nested program,
// reusing the subshell body grammar: both terminate at an unmatched
// `)`.
func (p *Parser) parseCommandSubstitution(start ast.Position, backQuoted bool) (ast.Word, error) {
	p.lex.Cur.Read(1) // '('
	body, err := p.parseCommandListBodyUntilParen()
	if err != nil {
		return nil, err
	}
	if p.lex.Cur.PeekChar() != ')' {
		return nil, p.errf("expected ')' to close command substitution")
	}
	p.lex.Cur.Read(1)
	prog := &ast.Program{Body: body}
	return &ast.CommandWord{Program: prog, BackQuoted: backQuoted, Rng: ast.Range{Begin: start, End: p.pos()}}, nil
}

// parseArithmeticExpansion parses `$((...))`. The body is captured as a
// Word (it may itself contain parameter/command substitutions) and
// left unparsed as arithmetic until expansion time, per spec.md §4.2.
func (p *Parser) parseArithmeticExpansion(start ast.Position) (ast.Word, error) {
	p.lex.Cur.Read(2) // '(('
	bodyStart := p.pos()
	var children []ast.Word
	var buf strings.Builder
	depth := 0
	flush := func() {
		if buf.Len() > 0 {
			children = append(children, &ast.StringWord{Value: buf.String(), SplitFields: false, Rng: ast.Range{Begin: bodyStart, End: p.pos()}})
			buf.Reset()
		}
	}

	for {
		if depth == 0 && p.lex.Cur.PeekChar() == ')' && p.lex.Cur.Peek(1) == ')' {
			break
		}
		b := p.lex.Cur.PeekChar()
		if b == 0 {
			return nil, p.errf("unterminated arithmetic expansion")
		}
		switch b {
		case '(':
			depth++
			buf.WriteByte(p.lex.Cur.ReadChar())
		case ')':
			depth--
			buf.WriteByte(p.lex.Cur.ReadChar())
		case '$':
			flush()
			child, err := p.parseDollar()
			if err != nil {
				return nil, err
			}
			if child != nil {
				children = append(children, child)
			} else {
				buf.WriteByte('$')
			}
		case '`':
			flush()
			child, err := p.parseBackquoted()
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		case '\'':
			flush()
			child, err := p.parseSingleQuoted()
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		case '"':
			flush()
			child, err := p.parseDoubleQuoted()
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		default:
			buf.WriteByte(p.lex.Cur.ReadChar())
		}
	}
	flush()
	body := wrapChildren(children, ast.Range{Begin: bodyStart, End: p.pos()})
	p.lex.Cur.Read(2) // '))'
	return &ast.ArithmeticWord{Body: body, Rng: ast.Range{Begin: start, End: p.pos()}}, nil
}

// parseBackquoted parses `` `...` ``. Backslash inside back-ticks
// escapes only `$`, `` ` ``, `\`; the unescaped contents are then
// reparsed as a whole program, independent of the enclosing cursor.
func (p *Parser) parseBackquoted() (ast.Word, error) {
	start := p.pos()
	p.lex.Cur.Read(1) // opening `
	var buf strings.Builder
	for {
		b := p.lex.Cur.PeekChar()
		if b == 0 {
			return nil, p.errf("unterminated back-quoted command substitution")
		}
		if b == '`' {
			p.lex.Cur.Read(1)
			break
		}
		if b == '\\' {
			nxt := p.lex.Cur.Peek(1)
			if nxt == '$' || nxt == '`' || nxt == '\\' {
				p.lex.Cur.Read(2)
				buf.WriteByte(nxt)
				continue
			}
		}
		buf.WriteByte(p.lex.Cur.ReadChar())
	}

	prog, err := Parse(buf.String(), p.aliases)
	if err != nil {
		return nil, err
	}
	return &ast.CommandWord{Program: prog, BackQuoted: true, Rng: ast.Range{Begin: start, End: p.pos()}}, nil
}

// peekAssignmentName returns the name of an assignment-shaped prefix
// item at the cursor (a valid name immediately followed by `=`) without
// consuming anything.
func (p *Parser) peekAssignmentName() (string, bool) {
	if !lexer.IsNameStart(p.lex.Cur.PeekChar()) {
		return "", false
	}
	n := 1
	for lexer.IsNameByte(p.lex.Cur.Peek(n)) {
		n++
	}
	if p.lex.Cur.Peek(n) != '=' {
		return "", false
	}
	return p.lex.Cur.PeekString(n), true
}

func (p *Parser) parseAssignmentNamed(name string) (*ast.Assignment, error) {
	start := p.pos()
	p.lex.Cur.Read(len(name) + 1) // name + '='
	value, err := p.parseWord()
	if err != nil {
		return nil, err
	}
	return &ast.Assignment{Name: name, Value: value, NamePos: start, Rng: ast.Range{Begin: start, End: p.pos()}}, nil
}

// wordIsQuoted approximates spec.md §4.3's "delimiter word was quoted
// anywhere" test for here-document bodies: true if any quoting
// mechanism touched the word.
func wordIsQuoted(w ast.Word) bool {
	switch v := w.(type) {
	case *ast.StringWord:
		return v.SingleQuoted
	case *ast.ListWord:
		if v.DoubleQuoted {
			return true
		}
		for _, c := range v.Children {
			if wordIsQuoted(c) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
