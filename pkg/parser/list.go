package parser

import "github.com/tarnsh/tarnsh/pkg/ast"

// parseCompleteCommand parses one or more CommandLists up to the
// terminating newline (or EOF), then drains any here-documents queued
// during that parse. POSIX's "complete command" is effectively the
// sequence of `;`/`&`-separated and-or lists on one logical line; we
// return each as its own *ast.CommandList so the caller can append them
// to Program.Body directly.
func (p *Parser) parseCompleteCommand() ([]*ast.CommandList, error) {
	var out []*ast.CommandList

	for {
		p.lex.SkipBlanksAndComments()
		if p.atEOF() {
			break
		}
		c := p.lex.Cur.PeekChar()
		if c == '\n' {
			p.lex.Cur.Read(1)
			break
		}
		if c == ';' && p.lex.Cur.Peek(1) == ';' {
			// a case-item terminator with nothing before it on this
			// iteration: let parseCaseItemBodyUntilDsemiOrEsac see it.
			break
		}
		if isCompoundTerminatorWord(p, "") {
			// a stray terminator keyword with nothing before it: let the
			// caller (which is expecting a terminator) see it.
			break
		}

		start := p.pos()
		node, err := p.parseAndOr()
		if err != nil {
			return nil, err
		}

		list := &ast.CommandList{Node: node}
		p.lex.SkipBlanksAndComments()
		switch p.lex.Cur.PeekChar() {
		case '&':
			if p.lex.Cur.Peek(1) != '&' {
				list.Ampersand = true
				list.SepPos = p.pos()
				p.lex.Cur.Read(1)
			}
		case ';':
			if p.lex.Cur.Peek(1) != ';' {
				list.SepPos = p.pos()
				p.lex.Cur.Read(1)
			}
		}
		list.Rng = ast.Range{Begin: start, End: p.pos()}
		out = append(out, list)

		p.lex.SkipBlanksAndComments()
		switch p.lex.Cur.PeekChar() {
		case '\n':
			p.lex.Cur.Read(1)
			goto done
		case 0, ')':
			goto done
		}
		if p.lex.Cur.PeekChar() == ';' && p.lex.Cur.Peek(1) == ';' {
			goto done
		}
		if word, ok := p.peekWord(); ok && isCompoundTerminatorToken(word) {
			goto done
		}
	}

done:
	if err := p.drainHeredocs(); err != nil {
		return nil, err
	}
	return out, nil
}

// isCompoundTerminatorToken reports whether word is one of the keywords
// that ends an enclosing compound command (so parseCompleteCommand must
// stop and let the caller consume it), e.g. `fi`, `done`, `esac`.
func isCompoundTerminatorToken(word string) bool {
	switch word {
	case "fi", "done", "esac", "then", "else", "elif", "}":
		return true
	}
	return false
}

func isCompoundTerminatorWord(p *Parser, _ string) bool {
	word, ok := p.peekWord()
	if !ok {
		return false
	}
	return isCompoundTerminatorToken(word)
}

// parseAndOr parses a pipeline followed by zero or more `&&`/`||`
// continuations, left-associative.
func (p *Parser) parseAndOr() (ast.AndOrNode, error) {
	left, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	var node ast.AndOrNode = left

	for {
		p.lex.SkipBlanksAndComments()
		opPos := p.pos()
		var kind ast.BinOpKind
		switch {
		case p.lex.Cur.PeekChar() == '&' && p.lex.Cur.Peek(1) == '&':
			kind = ast.BinOpAnd
			p.lex.Cur.Read(2)
		case p.lex.Cur.PeekChar() == '|' && p.lex.Cur.Peek(1) == '|':
			kind = ast.BinOpOr
			p.lex.Cur.Read(2)
		default:
			return node, nil
		}
		p.skipNewlinesAndBlanks()
		right, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		node = &ast.BinOp{Kind: kind, Left: node, Right: right, OpPos: opPos}
	}
}

func (p *Parser) skipNewlinesAndBlanks() {
	for {
		p.lex.SkipBlanksAndComments()
		if p.lex.Cur.PeekChar() == '\n' {
			p.lex.Cur.Read(1)
			continue
		}
		return
	}
}

// parsePipeline parses an optional leading `!` and a `|`-separated
// sequence of commands.
func (p *Parser) parsePipeline() (*ast.Pipeline, error) {
	start := p.pos()
	pl := &ast.Pipeline{}

	if word, ok := p.peekWord(); ok && word == "!" {
		pl.Bang = true
		pl.BangPos = p.pos()
		p.lex.Cur.Read(1)
		p.lex.SkipBlanksAndComments()
	}

	for {
		cmd, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		pl.Commands = append(pl.Commands, cmd)

		p.lex.SkipBlanksAndComments()
		if p.lex.Cur.PeekChar() == '|' && p.lex.Cur.Peek(1) != '|' {
			p.lex.Cur.Read(1)
			p.skipNewlinesAndBlanks()
			continue
		}
		break
	}

	pl.Rng = ast.Range{Begin: start, End: p.pos()}
	return pl, nil
}

// parseCommandListBody parses CommandLists until one of the stop words
// is seen in command-name position (used by compound commands for
// their bodies: `then ... fi|else|elif`, `do ... done`, `{ ... }`).
func (p *Parser) parseCommandListBody(stopWords ...string) ([]*ast.CommandList, error) {
	var out []*ast.CommandList
	for {
		p.skipSeparators()
		if p.atEOF() {
			return nil, p.errf("unexpected end of input, expected one of %v", stopWords)
		}
		if word, ok := p.peekWord(); ok {
			for _, sw := range stopWords {
				if word == sw {
					return out, nil
				}
			}
		}
		list, err := p.parseCompleteCommand()
		if err != nil {
			return nil, err
		}
		out = append(out, list...)
	}
}

// expectWord consumes word if it is exactly what's at the cursor (used
// for reserved-word keywords like `then`, `do`, `fi`). It returns the
// position the word started at.
func (p *Parser) expectWord(word string) (ast.Position, error) {
	p.skipSeparators()
	got, ok := p.peekWord()
	if !ok || got != word {
		return ast.Position{}, p.errf("expected %q, got %q", word, got)
	}
	pos := p.pos()
	p.lex.Cur.Read(len(word))
	return pos, nil
}
