package script

import (
	"errors"
	"strings"
)

// Parser turns script source into nodes one completed statement at a time.
// It consults the Context to tell class names from variables, so classes
// declared by earlier statements influence later parses.
type Parser struct {
	l   *cursor
	ctx *Context

	furthest    *ScriptError
	furthestPos int

	// failed remembers speculative rules that already failed at a position.
	failed map[ruleAt]struct{}
}

type ruleAt struct {
	rule string
	pos  int
}

// fatalParseError stops speculative parsing: no alternative is tried once
// one is raised.
type fatalParseError struct {
	err *ScriptError
}

func (e *fatalParseError) Error() string { return e.err.Error() }

func (e *fatalParseError) Unwrap() error { return e.err }

func (p *Parser) fatalf(format string, args ...any) error {
	return &fatalParseError{err: p.l.errorf(format, args...)}
}

func NewParser(c *Context, src string) *Parser {
	return &Parser{l: newCursor(src), ctx: c}
}

// Parse parses the whole source. Statements are not evaluated, so class
// declarations inside src are unknown to the parse of later statements.
func (c *Context) Parse(src string) ([]Node, error) {
	p := NewParser(c, src)
	var out []Node
	for {
		n, err := p.Next()
		if err != nil {
			return nil, err
		}
		if n == nil {
			return out, nil
		}
		out = append(out, n)
	}
}

// Done reports whether only whitespace and comments remain.
func (p *Parser) Done() bool {
	p.l.skipWhitespace()
	for p.l.match(';') {
		p.l.skipWhitespace()
	}
	return p.l.atEnd()
}

// Next parses one completed statement. It returns nil, nil at the end of
// the input.
func (p *Parser) Next() (Node, error) {
	if p.Done() {
		if p.l.bad != nil {
			return nil, p.l.bad
		}
		return nil, nil
	}
	p.furthest = nil
	p.failed = nil
	n, err := p.statement()
	if err == nil && p.l.bad != nil {
		err = p.l.bad
	}
	if err != nil {
		return nil, p.report(err)
	}
	return n, nil
}

// report picks the most useful error: a fatal one, or the failure that got
// furthest into the input.
func (p *Parser) report(err error) error {
	var fatal *fatalParseError
	if errors.As(err, &fatal) {
		return fatal.err
	}
	var se *ScriptError
	if !errors.As(err, &se) {
		se = parseError("%s", err.Error())
	}
	if p.furthest != nil && p.furthestPos > p.l.pos {
		return p.furthest
	}
	return se
}

// try runs fn speculatively. On a recoverable failure the cursor is rewound
// and ok is false; fatal errors are returned as is.
func (p *Parser) try(fn func() (Node, error)) (Node, bool, error) {
	p.l.save()
	n, err := fn()
	if err == nil {
		p.l.release()
		return n, true, nil
	}
	var fatal *fatalParseError
	if errors.As(err, &fatal) {
		p.l.release()
		return nil, false, err
	}
	if se, ok := err.(*ScriptError); ok && (p.furthest == nil || p.l.pos > p.furthestPos) {
		p.furthest, p.furthestPos = se, p.l.pos
	}
	p.l.restore()
	return nil, false, nil
}

// tryRule is try for a named rule whose outcome depends only on the input
// position. A failure is remembered so the rule is not parsed again there.
func (p *Parser) tryRule(rule string, fn func() (Node, error)) (Node, bool, error) {
	key := ruleAt{rule: rule, pos: p.l.pos}
	if _, seen := p.failed[key]; seen {
		return nil, false, nil
	}
	n, ok, err := p.try(fn)
	if err == nil && !ok {
		if p.failed == nil {
			p.failed = make(map[ruleAt]struct{})
		}
		p.failed[key] = struct{}{}
	}
	return n, ok, err
}

// terminate consumes the optional ';' closing a simple statement.
func (p *Parser) terminate() {
	p.l.skipWhitespace()
	p.l.match(';')
}

func (p *Parser) statement() (Node, error) {
	l := p.l
	l.skipWhitespace()
	switch {
	case l.isKeyword("class"):
		return p.classDeclaration()
	case l.isKeyword("interface"):
		return nil, p.fatalf("Interface declarations are not yet supported")
	case l.isKeyword("enum"):
		return nil, p.fatalf("Enum declarations are not yet supported")
	case l.isKeyword("import"):
		return p.importStatement()
	case l.isKeyword("delete"):
		return p.deleteStatement()
	case l.isKeyword("if"):
		return p.ifStatement()
	case l.isKeyword("while"):
		return p.whileStatement()
	case l.isKeyword("do"):
		return p.doWhileStatement()
	case l.isKeyword("for"):
		return p.forStatement()
	case l.isKeyword("switch"):
		return p.switchStatement()
	case l.isKeyword("try"):
		return p.tryStatement()
	case l.isKeyword("throw"):
		l.matchKeyword("throw")
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		p.terminate()
		return &Throw{Expr: expr}, nil
	case l.isKeyword("return"):
		return p.returnStatement()
	case l.isKeyword("break"):
		l.matchKeyword("break")
		p.terminate()
		return &Control{Kind: SignalBreak}, nil
	case l.isKeyword("continue"):
		l.matchKeyword("continue")
		p.terminate()
		return &Control{Kind: SignalContinue}, nil
	}

	if l.matchKeyword("final") {
		l.skipWhitespace()
	}
	n, ok, err := p.try(p.varDecl)
	if err != nil {
		return nil, err
	}
	if ok {
		p.terminate()
		return n, nil
	}
	if l.peek() == '{' {
		n, ok, err = p.tryRule("block", func() (Node, error) { return p.block(true) })
		if err != nil {
			return nil, err
		}
		if ok {
			return n, nil
		}
	}
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	p.terminate()
	return expr, nil
}

// body parses the body of an if, loop or catch: a braced block or a single
// statement.
func (p *Parser) body() (Node, error) {
	p.l.skipWhitespace()
	if p.l.peek() == '{' {
		return p.block(false)
	}
	if p.l.atEnd() {
		return nil, p.l.errorf("Expected statement but found end of input")
	}
	return p.statement()
}

func (p *Parser) block(independent bool) (*Block, error) {
	if err := p.l.expect('{'); err != nil {
		return nil, err
	}
	b := &Block{Independent: independent}
	for {
		p.l.skipWhitespace()
		for p.l.match(';') {
			p.l.skipWhitespace()
		}
		if p.l.match('}') {
			return b, nil
		}
		if p.l.atEnd() {
			return nil, p.fatalf("Unterminated block: expected '}'")
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		b.Stmts = append(b.Stmts, stmt)
	}
}

// varDecl parses `Type name [= value]` without the closing ';'.
func (p *Parser) varDecl() (Node, error) {
	typeName, err := p.typeName()
	if err != nil {
		return nil, err
	}
	if isReserved(typeName) {
		if _, ok := PrimitiveType(typeName); !ok {
			return nil, p.l.errorf("Unexpected keyword %s", typeName)
		}
	}
	name, err := p.l.identifier()
	if err != nil {
		return nil, err
	}
	if isReserved(name) {
		return nil, p.l.errorf("Unexpected keyword %s", name)
	}
	typeName = p.arraySuffix(typeName)
	if typeName == "var" {
		typeName = "auto"
	}
	p.l.skipWhitespace()
	if p.l.peek() == '=' && p.l.peekAt(1) != '=' {
		p.l.advance()
		init, err := p.expression()
		if err != nil {
			return nil, err
		}
		return &VarDecl{TypeName: typeName, Name: name, Init: init}, nil
	}
	switch p.l.peek() {
	case ';', '}', ')', 0:
		return &VarDecl{TypeName: typeName, Name: name}, nil
	}
	return nil, p.l.errorf("Invalid variable declaration: %s", name)
}

// arraySuffix appends C-style `name[]` brackets to a declared type.
func (p *Parser) arraySuffix(typeName string) string {
	for {
		p.l.skipWhitespace()
		if !p.l.hasPrefix("[") {
			return typeName
		}
		p.l.save()
		p.l.advance()
		p.l.skipWhitespace()
		if !p.l.match(']') {
			p.l.restore()
			return typeName
		}
		p.l.release()
		typeName += "[]"
	}
}

func (p *Parser) importStatement() (Node, error) {
	p.l.matchKeyword("import")
	p.l.skipWhitespace()
	p.l.matchKeyword("static")
	p.l.skipWhitespace()
	var sb strings.Builder
	for {
		if p.l.match('*') {
			sb.WriteByte('*')
			break
		}
		part, err := p.l.identifier()
		if err != nil {
			return nil, err
		}
		sb.WriteString(part)
		if !p.l.match('.') {
			break
		}
		sb.WriteByte('.')
	}
	switch p.l.peek() {
	case '<', '[':
		return nil, p.l.errorf("Invalid import: %s", sb.String())
	}
	p.terminate()
	return &Import{Name: sb.String()}, nil
}

func (p *Parser) deleteStatement() (Node, error) {
	p.l.matchKeyword("delete")
	p.l.skipWhitespace()
	if p.l.match('*') {
		p.terminate()
		return &Delete{Name: "*"}, nil
	}
	name, err := p.l.identifier()
	if err != nil {
		return nil, err
	}
	if isReserved(name) {
		return nil, p.l.errorf("Cannot delete keyword %s", name)
	}
	p.terminate()
	return &Delete{Name: name}, nil
}

func (p *Parser) condition() (Node, error) {
	if err := p.l.expect('('); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if err := p.l.expect(')'); err != nil {
		return nil, err
	}
	return cond, nil
}

func (p *Parser) ifStatement() (Node, error) {
	p.l.matchKeyword("if")
	cond, err := p.condition()
	if err != nil {
		return nil, err
	}
	then, err := p.body()
	if err != nil {
		return nil, err
	}
	n := &If{Cond: cond, Then: then}
	p.l.skipWhitespace()
	if p.l.matchKeyword("else") {
		if n.Else, err = p.body(); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (p *Parser) whileStatement() (Node, error) {
	p.l.matchKeyword("while")
	cond, err := p.condition()
	if err != nil {
		return nil, err
	}
	body, err := p.body()
	if err != nil {
		return nil, err
	}
	return &While{Cond: cond, Body: body}, nil
}

func (p *Parser) doWhileStatement() (Node, error) {
	p.l.matchKeyword("do")
	body, err := p.body()
	if err != nil {
		return nil, err
	}
	if err := p.l.expectKeyword("while"); err != nil {
		return nil, err
	}
	cond, err := p.condition()
	if err != nil {
		return nil, err
	}
	p.terminate()
	return &DoWhile{Body: body, Cond: cond}, nil
}

func (p *Parser) forStatement() (Node, error) {
	p.l.matchKeyword("for")
	if err := p.l.expect('('); err != nil {
		return nil, err
	}
	each, ok, err := p.try(p.forEachHeader)
	if err != nil {
		return nil, err
	}
	if ok {
		fe := each.(*ForEach)
		if fe.Body, err = p.body(); err != nil {
			return nil, err
		}
		return fe, nil
	}

	n := &For{}
	p.l.skipWhitespace()
	if p.l.peek() != ';' {
		init, ok, err := p.try(p.varDecl)
		if err != nil {
			return nil, err
		}
		if !ok {
			if init, err = p.expression(); err != nil {
				return nil, err
			}
		}
		n.Init = init
	}
	if err := p.l.expect(';'); err != nil {
		return nil, err
	}
	p.l.skipWhitespace()
	if p.l.peek() != ';' {
		if n.Cond, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if err := p.l.expect(';'); err != nil {
		return nil, err
	}
	p.l.skipWhitespace()
	if p.l.peek() != ')' {
		var updates []Node
		for {
			u, err := p.expression()
			if err != nil {
				return nil, err
			}
			updates = append(updates, u)
			p.l.skipWhitespace()
			if !p.l.match(',') {
				break
			}
		}
		if len(updates) == 1 {
			n.Update = updates[0]
		} else {
			n.Update = &Block{Stmts: updates}
		}
	}
	if err := p.l.expect(')'); err != nil {
		return nil, err
	}
	if n.Body, err = p.body(); err != nil {
		return nil, err
	}
	return n, nil
}

// forEachHeader parses `Type name : iterable)`.
func (p *Parser) forEachHeader() (Node, error) {
	typeName, err := p.typeName()
	if err != nil {
		return nil, err
	}
	name, err := p.l.identifier()
	if err != nil {
		return nil, err
	}
	if err := p.l.expect(':'); err != nil {
		return nil, err
	}
	iterable, err := p.expression()
	if err != nil {
		return nil, err
	}
	if err := p.l.expect(')'); err != nil {
		return nil, err
	}
	return &ForEach{TypeName: typeName, Name: name, Iterable: iterable}, nil
}

func (p *Parser) switchStatement() (Node, error) {
	p.l.matchKeyword("switch")
	subject, err := p.condition()
	if err != nil {
		return nil, err
	}
	if err := p.l.expect('{'); err != nil {
		return nil, err
	}
	n := &Switch{Subject: subject}
	var current *Case
	for {
		p.l.skipWhitespace()
		switch {
		case p.l.match('}'):
			return n, nil
		case p.l.atEnd():
			return nil, p.l.errorf("Unterminated switch statement")
		case p.l.matchKeyword("case"):
			current = &Case{}
			for {
				v, err := p.ternary()
				if err != nil {
					return nil, err
				}
				current.Values = append(current.Values, v)
				p.l.skipWhitespace()
				if !p.l.match(',') {
					break
				}
			}
			if err := p.l.expect(':'); err != nil {
				return nil, err
			}
			n.Cases = append(n.Cases, current)
		case p.l.matchKeyword("default"):
			if err := p.l.expect(':'); err != nil {
				return nil, err
			}
			current = &Case{}
			n.Cases = append(n.Cases, current)
		case p.l.match(';'):
		default:
			if current == nil {
				return nil, p.l.errorf("Statement outside of a case label")
			}
			stmt, err := p.statement()
			if err != nil {
				return nil, err
			}
			current.Body = append(current.Body, stmt)
		}
	}
}

func (p *Parser) returnStatement() (Node, error) {
	p.l.matchKeyword("return")
	p.l.skipWhitespace()
	switch p.l.peek() {
	case ';', '}', 0:
		p.terminate()
		return &Return{}, nil
	}
	v, err := p.expression()
	if err != nil {
		return nil, err
	}
	p.terminate()
	return &Return{Value: v}, nil
}

func (p *Parser) tryStatement() (Node, error) {
	p.l.matchKeyword("try")
	n := &Try{}
	p.l.skipWhitespace()
	if p.l.match('(') {
		for {
			p.l.skipWhitespace()
			if p.l.match(')') {
				break
			}
			decl, err := p.varDecl()
			if err != nil {
				return nil, err
			}
			n.Resources = append(n.Resources, decl.(*VarDecl))
			p.l.skipWhitespace()
			if !p.l.match(';') && p.l.peek() != ')' {
				return nil, p.l.errorf("Expected ';' or ')' in resource declaration")
			}
		}
	}
	p.l.skipWhitespace()
	if p.l.peek() != '{' {
		return nil, p.l.errorf("try block must be enclosed in braces")
	}
	body, err := p.block(false)
	if err != nil {
		return nil, err
	}
	n.Body = body
	for {
		p.l.skipWhitespace()
		if !p.l.matchKeyword("catch") {
			break
		}
		if err := p.l.expect('('); err != nil {
			return nil, err
		}
		catch := &Catch{}
		for {
			t, err := p.typeName()
			if err != nil {
				return nil, err
			}
			catch.Types = append(catch.Types, t)
			p.l.skipWhitespace()
			if !p.l.match('|') {
				break
			}
		}
		if catch.Name, err = p.l.identifier(); err != nil {
			return nil, err
		}
		if err := p.l.expect(')'); err != nil {
			return nil, err
		}
		if catch.Body, err = p.blockOrStatement(); err != nil {
			return nil, err
		}
		n.Catches = append(n.Catches, catch)
	}
	if p.l.matchKeyword("finally") {
		if n.Finally, err = p.blockOrStatement(); err != nil {
			return nil, err
		}
	}
	if len(n.Catches) == 0 && n.Finally == nil {
		return nil, p.l.errorf("try statement must have at least one catch block or a finally block")
	}
	return n, nil
}

func (p *Parser) blockOrStatement() (*Block, error) {
	p.l.skipWhitespace()
	if p.l.peek() == '{' {
		return p.block(false)
	}
	stmt, err := p.statement()
	if err != nil {
		return nil, err
	}
	return &Block{Stmts: []Node{stmt}}, nil
}
