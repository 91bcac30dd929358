package parser

import (
	"strconv"

	"github.com/tarnsh/tarnsh/pkg/ast"
)

// parseSimpleCommand parses a SimpleCommand: prefix assignments and
// redirects, an optional name, then suffix arguments and redirects, per
// spec.md §4.3's grammar for simple_command.
func (p *Parser) parseSimpleCommand() (ast.Command, error) {
	start := p.pos()
	sc := &ast.SimpleCommand{}

	for {
		p.lex.SkipBlanksAndComments()
		redir, ok, err := p.tryParseRedirect()
		if err != nil {
			return nil, err
		}
		if ok {
			sc.Redirects = append(sc.Redirects, redir)
			continue
		}
		if name, ok := p.peekAssignmentName(); ok {
			assign, err := p.parseAssignmentNamed(name)
			if err != nil {
				return nil, err
			}
			sc.Assignments = append(sc.Assignments, assign)
			continue
		}
		break
	}

	p.lex.SkipBlanksAndComments()
	if !p.atCommandTerminator() {
		name, err := p.parseWord()
		if err != nil {
			return nil, err
		}
		sc.Name = name
	}

	for {
		p.lex.SkipBlanksAndComments()
		if p.atCommandTerminator() {
			break
		}
		redir, ok, err := p.tryParseRedirect()
		if err != nil {
			return nil, err
		}
		if ok {
			sc.Redirects = append(sc.Redirects, redir)
			continue
		}
		arg, err := p.parseWord()
		if err != nil {
			return nil, err
		}
		sc.Args = append(sc.Args, arg)
	}

	sc.Rng = ast.Range{Begin: start, End: p.pos()}
	if sc.Name == nil && len(sc.Args) == 0 && len(sc.Assignments) == 0 && len(sc.Redirects) == 0 {
		return nil, p.errf("expected a command")
	}
	return sc, nil
}

func (p *Parser) atCommandTerminator() bool {
	switch p.lex.Cur.PeekChar() {
	case 0, '\n', ';', '&', '|', ')':
		return true
	}
	return false
}

// tryParseRedirect recognizes an optional io_number prefix followed by
// one of the redirection operators, per spec.md §4.7. It returns
// (nil, false, nil) without consuming anything if the cursor isn't
// positioned at a redirection.
func (p *Parser) tryParseRedirect() (*ast.IoRedirect, bool, error) {
	start := p.pos()

	n := 0
	for isDigitByte(p.lex.Cur.Peek(n)) {
		n++
	}
	var ioNumber *int
	if n > 0 {
		nxt := p.lex.Cur.Peek(n)
		if nxt == '<' || nxt == '>' {
			v, _ := strconv.Atoi(p.lex.Cur.PeekString(n))
			ioNumber = &v
		} else {
			n = 0
		}
	}

	opByte := p.lex.Cur.Peek(n)
	if opByte != '<' && opByte != '>' {
		return nil, false, nil
	}
	if n > 0 {
		p.lex.Cur.Read(n)
	}

	op, opLen, ok := matchIoOperator(p)
	if !ok {
		return nil, false, p.errf("expected redirection operator")
	}
	p.lex.Cur.Read(opLen)

	p.lex.SkipBlanksAndComments()
	name, err := p.parseWord()
	if err != nil {
		return nil, false, err
	}

	redir := &ast.IoRedirect{IoNumber: ioNumber, Op: op, Name: name, Rng: ast.Range{Begin: start, End: p.pos()}}
	if op == ast.IoDLess || op == ast.IoDLessDash {
		p.pendingHeredocs = append(p.pendingHeredocs, &pendingHeredoc{redirect: redir, quoted: wordIsQuoted(name)})
	}
	return redir, true, nil
}

func isDigitByte(b byte) bool { return b >= '0' && b <= '9' }

// matchIoOperator reads the redirection operator at the cursor without
// consuming it, returning its Kind-equivalent ast.IoOperator and byte
// length.
func matchIoOperator(p *Parser) (ast.IoOperator, int, bool) {
	b0 := p.lex.Cur.Peek(0)
	b1 := p.lex.Cur.Peek(1)
	b2 := p.lex.Cur.Peek(2)
	switch {
	case b0 == '<' && b1 == '<' && b2 == '-':
		return ast.IoDLessDash, 3, true
	case b0 == '<' && b1 == '<':
		return ast.IoDLess, 2, true
	case b0 == '<' && b1 == '&':
		return ast.IoLessAnd, 2, true
	case b0 == '<' && b1 == '>':
		return ast.IoLessGreat, 2, true
	case b0 == '<':
		return ast.IoLess, 1, true
	case b0 == '>' && b1 == '>':
		return ast.IoDGreat, 2, true
	case b0 == '>' && b1 == '&':
		return ast.IoGreatAnd, 2, true
	case b0 == '>' && b1 == '|':
		return ast.IoClobber, 2, true
	case b0 == '>':
		return ast.IoGreat, 1, true
	}
	return 0, 0, false
}
