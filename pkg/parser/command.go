package parser

import (
	"github.com/tarnsh/tarnsh/pkg/ast"
	"github.com/tarnsh/tarnsh/pkg/lexer"
)

// parseCommand dispatches to a compound-command production when the
// next word is reserved in command-name position, to a function
// definition when the next word is followed by `()`, and otherwise to
// parseSimpleCommand. Alias splicing (spec.md §4.3) happens here,
// before the command name is read.
func (p *Parser) parseCommand() (ast.Command, error) {
	p.applyAliasIfCommandPosition()

	if word, ok := p.peekWord(); ok {
		switch word {
		case "{":
			return p.parseBraceGroup()
		case "if":
			return p.parseIfClause()
		case "for":
			return p.parseForClause()
		case "while":
			return p.parseLoopClause(ast.LoopWhile)
		case "until":
			return p.parseLoopClause(ast.LoopUntil)
		case "case":
			return p.parseCaseClause()
		}
		if p.lex.Cur.PeekChar() == '(' {
			// handled below via lookahead on "(" after a name for fn defs
		}
	}

	if p.lex.Cur.PeekChar() == '(' {
		return p.parseSubshell()
	}

	if name, ok := p.tryParseFunctionDefHeader(); ok {
		return p.parseFunctionDefinition(name)
	}

	return p.parseSimpleCommand()
}

// applyAliasIfCommandPosition splices an alias replacement into the
// input stream if the next token is a known alias name. Recursion is
// bounded by maxAliasDepth and a visited-name set, per the Open
// Question in spec.md §9. Neither is reset during a parse: each alias
// name is spliced at most once per Parser, and at most maxAliasDepth
// splices happen in total.
func (p *Parser) applyAliasIfCommandPosition() {
	if p.aliases == nil {
		return
	}
	for p.aliasDepth < maxAliasDepth {
		p.lex.SkipBlanksAndComments()
		candidate := p.peekAliasCandidate()
		wordLen := p.lex.PeekWordLen(0)
		if candidate == "" || len(candidate) != wordLen {
			return
		}
		expansion, ok := p.aliases.Lookup(candidate)
		if !ok || p.aliasVisited[candidate] {
			return
		}
		p.aliasVisited[candidate] = true
		p.aliasDepth++
		p.lex.Cur.Read(wordLen)
		trailingBlank := len(expansion) > 0 && isTrailingBlank(expansion[len(expansion)-1])
		p.lex.Cur.Splice(expansion)
		if !trailingBlank {
			return
		}
		// a trailing blank in the replacement means the following token is
		// also eligible for alias expansion; loop around.
	}
}

func isTrailingBlank(b byte) bool { return b == ' ' || b == '\t' }

// tryParseFunctionDefHeader recognizes `name ( )` (POSIX function
// definition shape) without committing if it doesn't match.
func (p *Parser) tryParseFunctionDefHeader() (string, bool) {
	n := 0
	for lexer.IsNameByte(p.lex.Cur.Peek(n)) {
		n++
	}
	name := p.lex.Cur.PeekString(n)
	if !isValidName(name) || lexer.IsReservedWord(name) {
		return "", false
	}
	nameLen := len(name)
	i := nameLen
	for isBlankByteAt(p, i) {
		i++
	}
	if p.lex.Cur.Peek(i) != '(' {
		return "", false
	}
	i++
	for isBlankByteAt(p, i) {
		i++
	}
	if p.lex.Cur.Peek(i) != ')' {
		return "", false
	}
	i++
	p.lex.Cur.Read(i)
	return name, true
}

func isBlankByteAt(p *Parser, i int) bool {
	b := p.lex.Cur.Peek(i)
	return b == ' ' || b == '\t'
}

func (p *Parser) parseFunctionDefinition(name string) (ast.Command, error) {
	start := p.pos()
	p.lex.SkipBlanksAndComments()
	p.skipNewlinesAndBlanks()
	body, err := p.parseCompoundCommandForFunction()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDefinition{Name: name, Body: body, NamePos: start, Rng: ast.Range{Begin: start, End: p.pos()}}, nil
}

func (p *Parser) parseCompoundCommandForFunction() (ast.Command, error) {
	word, ok := p.peekWord()
	if !ok {
		return nil, p.errf("expected compound command for function body")
	}
	switch word {
	case "{":
		return p.parseBraceGroup()
	case "if":
		return p.parseIfClause()
	case "for":
		return p.parseForClause()
	case "while":
		return p.parseLoopClause(ast.LoopWhile)
	case "until":
		return p.parseLoopClause(ast.LoopUntil)
	case "case":
		return p.parseCaseClause()
	}
	if p.lex.Cur.PeekChar() == '(' {
		return p.parseSubshell()
	}
	return nil, p.errf("expected compound command for function body, got %q", word)
}

func (p *Parser) parseBraceGroup() (ast.Command, error) {
	start := p.pos()
	lbrace, err := p.expectWord("{")
	if err != nil {
		return nil, err
	}
	body, err := p.parseCommandListBody("}")
	if err != nil {
		return nil, err
	}
	rbrace, err := p.expectWord("}")
	if err != nil {
		return nil, err
	}
	return &ast.BraceGroup{Body: body, LBracePos: lbrace, RBracePos: rbrace, Rng: ast.Range{Begin: start, End: p.pos()}}, nil
}

func (p *Parser) parseSubshell() (ast.Command, error) {
	start := p.pos()
	p.lex.Cur.Read(1) // '('
	body, err := p.parseCommandListBodyUntilParen()
	if err != nil {
		return nil, err
	}
	p.lex.SkipBlanksAndComments()
	if p.lex.Cur.PeekChar() != ')' {
		return nil, p.errf("expected ')' to close subshell")
	}
	rparen := p.pos()
	p.lex.Cur.Read(1)
	return &ast.Subshell{Body: body, LParenPos: start, RParenPos: rparen, Rng: ast.Range{Begin: start, End: p.pos()}}, nil
}

func (p *Parser) parseCommandListBodyUntilParen() ([]*ast.CommandList, error) {
	var out []*ast.CommandList
	for {
		p.skipSeparators()
		if p.atEOF() {
			return nil, p.errf("unexpected end of input, expected ')'")
		}
		if p.lex.Cur.PeekChar() == ')' {
			return out, nil
		}
		list, err := p.parseCompleteCommand()
		if err != nil {
			return nil, err
		}
		out = append(out, list...)
	}
}

func (p *Parser) parseIfClause() (ast.Command, error) {
	start := p.pos()
	ifPos, err := p.expectWord("if")
	if err != nil {
		return nil, err
	}
	cond, err := p.parseCommandListBody("then")
	if err != nil {
		return nil, err
	}
	thenPos, err := p.expectWord("then")
	if err != nil {
		return nil, err
	}
	then, err := p.parseCommandListBody("fi", "else", "elif")
	if err != nil {
		return nil, err
	}

	clause := &ast.IfClause{Cond: cond, Then: then, IfPos: ifPos, ThenPos: thenPos}

	word, _ := p.peekWord()
	switch word {
	case "elif":
		elseClause, err := p.parseElifAsIf()
		if err != nil {
			return nil, err
		}
		clause.Else = elseClause
		fiPos, err := p.expectWord("fi")
		if err != nil {
			return nil, err
		}
		clause.FiPos = fiPos
		clause.Rng = ast.Range{Begin: start, End: p.pos()}
		return clause, nil
	case "else":
		elsePos, err := p.expectWord("else")
		if err != nil {
			return nil, err
		}
		elseBody, err := p.parseCommandListBody("fi")
		if err != nil {
			return nil, err
		}
		clause.ElsePos = elsePos
		clause.Else = &ast.BraceGroup{Body: elseBody}
		fiPos, err := p.expectWord("fi")
		if err != nil {
			return nil, err
		}
		clause.FiPos = fiPos
		clause.Rng = ast.Range{Begin: start, End: p.pos()}
		return clause, nil
	default:
		fiPos, err := p.expectWord("fi")
		if err != nil {
			return nil, err
		}
		clause.FiPos = fiPos
		clause.Rng = ast.Range{Begin: start, End: p.pos()}
		return clause, nil
	}
}

// parseElifAsIf parses `elif cond then body [elif|else] ...` as a
// nested IfClause standing in for the `elif`, per spec.md §3's note
// that IfClause's else-part recursively encodes elif chains. The
// terminating `fi` is consumed by the outermost IfClause only, so this
// helper stops right after its own then-body.
func (p *Parser) parseElifAsIf() (ast.Command, error) {
	start := p.pos()
	ifPos, err := p.expectWord("elif")
	if err != nil {
		return nil, err
	}
	cond, err := p.parseCommandListBody("then")
	if err != nil {
		return nil, err
	}
	thenPos, err := p.expectWord("then")
	if err != nil {
		return nil, err
	}
	then, err := p.parseCommandListBody("fi", "else", "elif")
	if err != nil {
		return nil, err
	}
	clause := &ast.IfClause{Cond: cond, Then: then, IfPos: ifPos, ThenPos: thenPos}

	word, _ := p.peekWord()
	switch word {
	case "elif":
		elseClause, err := p.parseElifAsIf()
		if err != nil {
			return nil, err
		}
		clause.Else = elseClause
	case "else":
		elsePos, err := p.expectWord("else")
		if err != nil {
			return nil, err
		}
		elseBody, err := p.parseCommandListBody("fi")
		if err != nil {
			return nil, err
		}
		clause.ElsePos = elsePos
		clause.Else = &ast.BraceGroup{Body: elseBody}
	}
	clause.Rng = ast.Range{Begin: start, End: p.pos()}
	return clause, nil
}

func (p *Parser) parseForClause() (ast.Command, error) {
	start := p.pos()
	forPos, err := p.expectWord("for")
	if err != nil {
		return nil, err
	}
	p.lex.SkipBlanksAndComments()
	name, ok := p.peekWord()
	if !ok || !isValidName(name) {
		return nil, p.errf("expected name after 'for'")
	}
	p.lex.Cur.Read(len(name))

	clause := &ast.ForClause{Name: name, ForPos: forPos}
	p.skipSeparators()
	if word, _ := p.peekWord(); word == "in" {
		clause.In = true
		clause.InPos = p.pos()
		p.lex.Cur.Read(2)
		for {
			p.lex.SkipBlanksAndComments()
			c := p.lex.Cur.PeekChar()
			if c == '\n' || c == ';' || c == 0 {
				break
			}
			w, err := p.parseWord()
			if err != nil {
				return nil, err
			}
			clause.Words = append(clause.Words, w)
		}
	}
	p.skipSeparators()
	doPos, err := p.expectWord("do")
	if err != nil {
		return nil, err
	}
	clause.DoPos = doPos
	body, err := p.parseCommandListBody("done")
	if err != nil {
		return nil, err
	}
	clause.Body = body
	donePos, err := p.expectWord("done")
	if err != nil {
		return nil, err
	}
	clause.DonePos = donePos
	clause.Rng = ast.Range{Begin: start, End: p.pos()}
	return clause, nil
}

func (p *Parser) parseLoopClause(kind ast.LoopKind) (ast.Command, error) {
	start := p.pos()
	kw := "while"
	if kind == ast.LoopUntil {
		kw = "until"
	}
	kwPos, err := p.expectWord(kw)
	if err != nil {
		return nil, err
	}
	cond, err := p.parseCommandListBody("do")
	if err != nil {
		return nil, err
	}
	doPos, err := p.expectWord("do")
	if err != nil {
		return nil, err
	}
	body, err := p.parseCommandListBody("done")
	if err != nil {
		return nil, err
	}
	donePos, err := p.expectWord("done")
	if err != nil {
		return nil, err
	}
	return &ast.LoopClause{Kind: kind, Cond: cond, Body: body, KeywordPos: kwPos, DoPos: doPos, DonePos: donePos,
		Rng: ast.Range{Begin: start, End: p.pos()}}, nil
}

func (p *Parser) parseCaseClause() (ast.Command, error) {
	start := p.pos()
	casePos, err := p.expectWord("case")
	if err != nil {
		return nil, err
	}
	p.lex.SkipBlanksAndComments()
	word, err := p.parseWord()
	if err != nil {
		return nil, err
	}
	p.skipSeparators()
	inPos, err := p.expectWord("in")
	if err != nil {
		return nil, err
	}

	clause := &ast.CaseClause{Word: word, CasePos: casePos, InPos: inPos}

	for {
		p.skipSeparators()
		if w, ok := p.peekWord(); ok && w == "esac" {
			break
		}
		item, err := p.parseCaseItem()
		if err != nil {
			return nil, err
		}
		clause.Items = append(clause.Items, item)
	}

	esacPos, err := p.expectWord("esac")
	if err != nil {
		return nil, err
	}
	clause.EsacPos = esacPos
	clause.Rng = ast.Range{Begin: start, End: p.pos()}
	return clause, nil
}

func (p *Parser) parseCaseItem() (*ast.CaseItem, error) {
	start := p.pos()
	if p.lex.Cur.PeekChar() == '(' {
		p.lex.Cur.Read(1)
	}
	item := &ast.CaseItem{}
	for {
		p.lex.SkipBlanksAndComments()
		pat, err := p.parseWord()
		if err != nil {
			return nil, err
		}
		item.Patterns = append(item.Patterns, pat)
		p.lex.SkipBlanksAndComments()
		if p.lex.Cur.PeekChar() == '|' {
			p.lex.Cur.Read(1)
			continue
		}
		break
	}
	if p.lex.Cur.PeekChar() != ')' {
		return nil, p.errf("expected ')' in case pattern")
	}
	p.lex.Cur.Read(1)

	body, err := p.parseCaseItemBodyUntilDsemiOrEsac()
	if err != nil {
		return nil, err
	}
	item.Body = body

	p.lex.SkipBlanksAndComments()
	if p.lex.Cur.PeekChar() == ';' && p.lex.Cur.Peek(1) == ';' {
		termStart := p.pos()
		p.lex.Cur.Read(2)
		item.TerminatorRng = ast.Range{Begin: termStart, End: p.pos()}
	}
	item.Rng = ast.Range{Begin: start, End: p.pos()}
	return item, nil
}

func (p *Parser) parseCaseItemBodyUntilDsemiOrEsac() ([]*ast.CommandList, error) {
	var out []*ast.CommandList
	for {
		p.skipSeparatorsKeepDsemi()
		if p.atEOF() {
			return nil, p.errf("unexpected end of input in case item")
		}
		if p.lex.Cur.PeekChar() == ';' && p.lex.Cur.Peek(1) == ';' {
			return out, nil
		}
		if w, ok := p.peekWord(); ok && w == "esac" {
			return out, nil
		}
		list, err := p.parseCompleteCommand()
		if err != nil {
			return nil, err
		}
		out = append(out, list...)
	}
}

func isValidName(s string) bool {
	if s == "" || !lexer.IsNameStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !lexer.IsNameByte(s[i]) {
			return false
		}
	}
	return true
}
