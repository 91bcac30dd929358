package parser

import (
	"strings"

	"github.com/tarnsh/tarnsh/pkg/ast"
)

// drainHeredocs reads the body of every here-document queued by
// tryParseRedirect while parsing the just-completed line, per spec.md
// §4.3: after the terminating newline, each `<<`/`<<-` redirect in
// order consumes lines up to one that, with leading/trailing
// whitespace handled per the operator, equals the delimiter exactly.
//
// A quoted delimiter (spec.md §4.7) suppresses expansion of the body:
// it is captured as a single literal StringWord line per line, instead
// of being reparsed for `$`/`` ` ``/`\` specials.
func (p *Parser) drainHeredocs() error {
	pending := p.pendingHeredocs
	p.pendingHeredocs = nil

	for _, h := range pending {
		delim := plainWordText(h.redirect.Name)
		stripTabs := h.redirect.Op == ast.IoDLessDash

		var lines []ast.Word
		for {
			line, ok := p.readHeredocLine()
			if !ok {
				return p.errf("unterminated here-document, expected delimiter %q", delim)
			}
			trimmed := line
			if stripTabs {
				trimmed = strings.TrimLeft(line, "\t")
			}
			if trimmed == delim {
				break
			}
			if h.quoted {
				lines = append(lines, &ast.StringWord{Value: trimmed + "\n", SplitFields: false})
				continue
			}
			word, err := reparseHereDocLine(trimmed + "\n")
			if err != nil {
				return err
			}
			lines = append(lines, word)
		}
		h.redirect.HereDocLines = lines
	}
	return nil
}

// readHeredocLine reads one raw line (without its trailing newline)
// from the cursor. ok is false if the cursor was already at EOF.
func (p *Parser) readHeredocLine() (string, bool) {
	if p.atEOF() {
		return "", false
	}
	var buf strings.Builder
	for {
		b := p.lex.Cur.PeekChar()
		if b == 0 {
			break
		}
		if b == '\n' {
			p.lex.Cur.Read(1)
			break
		}
		buf.WriteByte(p.lex.Cur.ReadChar())
	}
	return buf.String(), true
}

// reparseHereDocLine re-lexes one unquoted here-document body line for
// `$`/`` ` ``/`\` specials, using the same word-parsing machinery as
// any other word (spec.md §4.7: unquoted here-doc bodies are subject to
// parameter, command, and arithmetic expansion, with only `\$`, `` \` ``,
// `\\`, and `\<newline>` special as escapes).
func reparseHereDocLine(line string) (ast.Word, error) {
	sub := New(line, nil)
	return sub.parseHereDocBody()
}

// parseHereDocBody parses a whole line's worth of text as a single
// word, stopping only at EOF (a here-doc body line may contain blanks,
// operators, and anything else as literal text — word-breaking
// doesn't apply inside a here-document).
func (p *Parser) parseHereDocBody() (ast.Word, error) {
	start := p.pos()
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
			nxt := p.lex.Cur.Peek(1)
			if nxt == '$' || nxt == '`' || nxt == '\\' {
				p.lex.Cur.Read(2)
				buf.WriteByte(nxt)
			} else if nxt == '\n' {
				p.lex.Cur.Read(2)
			} else {
				buf.WriteByte(p.lex.Cur.ReadChar())
			}
		default:
			buf.WriteByte(p.lex.Cur.ReadChar())
		}
	}
	flush()
	return wrapChildren(children, ast.Range{Begin: start, End: p.pos()}), nil
}

// plainWordText extracts the literal text of a delimiter word for
// comparison against here-document terminator lines. Quoting markers
// contribute their content, not themselves; any non-literal child
// (parameter/command/arithmetic, which POSIX forbids in a here-doc
// delimiter) contributes nothing.
func plainWordText(w ast.Word) string {
	switch v := w.(type) {
	case *ast.StringWord:
		return v.Value
	case *ast.ListWord:
		var b strings.Builder
		for _, c := range v.Children {
			b.WriteString(plainWordText(c))
		}
		return b.String()
	default:
		return ""
	}
}
