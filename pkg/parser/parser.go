// Package parser implements the recursive-descent word and program
// parser of spec.md §4.2–§4.3: it turns a byte stream into an
// *ast.Program, applying alias splicing at command-name position and
// queuing here-document bodies for a post-newline read pass.
package parser

import (
	"fmt"

	"github.com/tarnsh/tarnsh/pkg/ast"
	"github.com/tarnsh/tarnsh/pkg/lexer"
)

// AliasLookup is the minimal contract the parser needs from the alias
// table (out of scope per spec.md §1; supplied by the embedder).
type AliasLookup interface {
	Lookup(name string) (expansion string, ok bool)
}

// ParseError carries a message and the position it was detected at.
// Per spec.md §4.3, producing one abandons the current complete
// command; the line-mode entry point consumes through the next newline
// so interactive use can continue.
type ParseError struct {
	Message string
	Pos     ast.Position
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

const maxAliasDepth = 16

// Parser holds the mutable state of one parse: the lexer, the alias
// table, the pending here-document queue, and alias-recursion guards.
type Parser struct {
	lex     *lexer.Lexer
	aliases AliasLookup

	pendingHeredocs []*pendingHeredoc
	aliasDepth      int
	aliasVisited    map[string]bool

	lastErr error
}

type pendingHeredoc struct {
	redirect *ast.IoRedirect
	quoted   bool // delimiter word contained a single- or double-quoted part
}

// New builds a Parser over src. aliases may be nil, in which case no
// alias expansion is performed.
func New(src string, aliases AliasLookup) *Parser {
	return &Parser{
		lex:          lexer.New(lexer.NewCursor(src)),
		aliases:      aliases,
		aliasVisited: map[string]bool{},
	}
}

// Parse parses a whole program: zero or more complete commands,
// terminated by EOF. Empty input parses to an empty body with no
// diagnostics, per spec.md §8.
func Parse(src string, aliases AliasLookup) (*ast.Program, error) {
	p := New(src, aliases)
	return p.ParseProgram()
}

// ParseProgram parses the whole input as a Program.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	start := p.pos()
	var body []*ast.CommandList

	for {
		p.skipSeparators()
		if p.atEOF() {
			break
		}
		list, err := p.parseCompleteCommand()
		if err != nil {
			return nil, err
		}
		if list != nil {
			body = append(body, list...)
		}
	}

	return &ast.Program{Body: body, Rng: ast.Range{Begin: start, End: p.pos()}}, nil
}

func (p *Parser) pos() ast.Position { return p.lex.Cur.Pos() }

func (p *Parser) atEOF() bool { return p.lex.Cur.AtEOF() }

func (p *Parser) errf(format string, args ...interface{}) error {
	return &ParseError{Message: fmt.Sprintf(format, args...), Pos: p.pos()}
}

// skipSeparators consumes blank lines and stray `;` before the start of
// a complete command.
func (p *Parser) skipSeparators() {
	for {
		p.lex.SkipBlanksAndComments()
		c := p.lex.Cur.PeekChar()
		if c == '\n' || c == ';' {
			p.lex.Cur.Read(1)
			continue
		}
		return
	}
}

// skipSeparatorsKeepDsemi is skipSeparators, except it stops before a
// `;;` pair instead of consuming it one semicolon at a time — used
// between case-item commands, where `;;` is a terminator rather than a
// list separator.
func (p *Parser) skipSeparatorsKeepDsemi() {
	for {
		p.lex.SkipBlanksAndComments()
		c := p.lex.Cur.PeekChar()
		if c == '\n' {
			p.lex.Cur.Read(1)
			continue
		}
		if c == ';' && p.lex.Cur.Peek(1) != ';' {
			p.lex.Cur.Read(1)
			continue
		}
		return
	}
}

// peekWord returns the plain unquoted run at the cursor (used to test
// for reserved words and simple names) without consuming it.
func (p *Parser) peekWord() (string, bool) {
	n := p.lex.PeekWordLen(0)
	if n == 0 {
		return "", false
	}
	return p.lex.Cur.PeekString(n), true
}

// peekAliasCandidate returns the longest run of alias-name bytes at the
// cursor.
func (p *Parser) peekAliasCandidate() string {
	n := 0
	for lexer.IsAliasNameByte(p.lex.Cur.Peek(n)) {
		n++
	}
	return p.lex.Cur.PeekString(n)
}
