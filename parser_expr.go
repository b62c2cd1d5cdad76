package script

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

// baseTypeName reads a possibly qualified class name. Generic arguments are
// skipped since types are erased.
func (p *Parser) baseTypeName() (string, error) {
	l := p.l
	first, err := l.identifier()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(first)
	for l.peek() == '.' && isIdentStart(l.peekAt(1)) {
		l.advance()
		part, err := l.identifier()
		if err != nil {
			return "", err
		}
		sb.WriteByte('.')
		sb.WriteString(part)
	}
	l.skipWhitespace()
	if l.peek() == '<' {
		if err := p.skipGenerics(); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

// typeName is baseTypeName followed by `[]` pairs or a varargs `...`.
func (p *Parser) typeName() (string, error) {
	name, err := p.baseTypeName()
	if err != nil {
		return "", err
	}
	name = p.arraySuffix(name)
	if p.l.matchString("...") {
		name += "[]"
	}
	return name, nil
}

func (p *Parser) skipGenerics() error {
	l := p.l
	depth := 0
	for {
		r := l.peek()
		switch {
		case r == '<':
			depth++
		case r == '>':
			depth--
			if depth == 0 {
				l.advance()
				return nil
			}
		case r == 0:
			return l.errorf("Missing '>'")
		case isIdentPart(r) || unicode.IsSpace(r) || strings.ContainsRune(".,?[]&", r):
		default:
			return l.errorf("Unexpected '%c' in type arguments", r)
		}
		l.advance()
	}
}

// expression parses an assignment or anything of lower precedence.
// Compound operators expand to `x = x <op> rhs`.
func (p *Parser) expression() (Node, error) {
	left, err := p.ternary()
	if err != nil {
		return nil, err
	}
	l := p.l
	l.skipWhitespace()
	if l.peek() == '=' && l.peekAt(1) != '=' {
		l.advance()
		target, err := p.assignTarget(left)
		if err != nil {
			return nil, err
		}
		value, err := p.expression()
		if err != nil {
			return nil, err
		}
		return &Assign{Target: target, Value: value}, nil
	}
	for _, op := range compoundOps {
		if !l.matchString(op) {
			continue
		}
		target, err := p.assignTarget(left)
		if err != nil {
			return nil, err
		}
		value, err := p.expression()
		if err != nil {
			return nil, err
		}
		return &Assign{Target: target, Value: &Binary{Op: op[:len(op)-1], Left: target, Right: value}}, nil
	}
	return left, nil
}

func (p *Parser) assignTarget(n Node) (Node, error) {
	for {
		paren, ok := n.(*Paren)
		if !ok {
			break
		}
		n = paren.Expr
	}
	switch n.(type) {
	case *VarRef, *FieldAccess, *ArrayAccess:
		return n, nil
	}
	return nil, p.l.errorf("Left side of assignment must be a variable, field access, or array access")
}

func (p *Parser) ternary() (Node, error) {
	cond, err := p.binary(0)
	if err != nil {
		return nil, err
	}
	p.l.skipWhitespace()
	if !p.l.match('?') {
		return cond, nil
	}
	then, err := p.ternary()
	if err != nil {
		return nil, err
	}
	if err := p.l.expect(':'); err != nil {
		return nil, err
	}
	els, err := p.ternary()
	if err != nil {
		return nil, err
	}
	return &Ternary{Cond: cond, Then: then, Else: els}, nil
}

// binaryLevels lists operator matchers from the loosest binding level to the
// tightest. Each matcher consumes and returns its operator, or "".
var binaryLevels = []func(l *cursor) string{
	func(l *cursor) string { return opIf(l, "||", "") },
	func(l *cursor) string { return opIf(l, "&&", "") },
	func(l *cursor) string { return opIf(l, "|", "|=") },
	func(l *cursor) string { return opIf(l, "^", "=") },
	func(l *cursor) string { return opIf(l, "&", "&=") },
	func(l *cursor) string {
		if op := opIf(l, "==", ""); op != "" {
			return op
		}
		if l.isKeyword("instanceof") {
			return "instanceof"
		}
		return opIf(l, "!=", "")
	},
	func(l *cursor) string {
		if l.hasPrefix("<<") || l.hasPrefix(">>") {
			return ""
		}
		for _, op := range []string{"<=", ">=", "<", ">"} {
			if l.matchString(op) {
				return op
			}
		}
		return ""
	},
	func(l *cursor) string {
		for _, op := range []string{">>>", ">>", "<<"} {
			if l.hasPrefix(op) {
				return opIf(l, op, "=")
			}
		}
		return ""
	},
	func(l *cursor) string {
		if op := opIf(l, "+", "+="); op != "" {
			return op
		}
		return opIf(l, "-", "-=>")
	},
	func(l *cursor) string {
		for _, op := range []string{"*", "/", "%"} {
			if r := opIf(l, op, "="); r != "" {
				return r
			}
		}
		return ""
	},
}

// opIf consumes op unless the rune right after it is one of notNext.
func opIf(l *cursor, op, notNext string) string {
	if !l.hasPrefix(op) {
		return ""
	}
	after := l.peekAt(len(op))
	if after != 0 && strings.ContainsRune(notNext, after) {
		return ""
	}
	l.pos += len(op)
	return op
}

func (p *Parser) binary(level int) (Node, error) {
	if level == len(binaryLevels) {
		return p.unary()
	}
	left, err := p.binary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		p.l.skipWhitespace()
		op := binaryLevels[level](p.l)
		if op == "" {
			return left, nil
		}
		if op == "instanceof" {
			p.l.matchKeyword("instanceof")
			t, err := p.typeName()
			if err != nil {
				return nil, err
			}
			left = &InstanceOf{Expr: left, TypeName: t}
			continue
		}
		right, err := p.binary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) unary() (Node, error) {
	l := p.l
	l.skipWhitespace()
	switch {
	case l.hasPrefix("++"), l.hasPrefix("--"):
		delta := int64(1)
		if l.peek() == '-' {
			delta = -1
		}
		l.pos += 2
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		target, err := p.incrementTarget(operand)
		if err != nil {
			return nil, err
		}
		return &Increment{Target: target, Delta: delta, Prefix: true}, nil
	case l.peek() == '-' && unicode.IsDigit(l.peekAt(1)):
		l.advance()
		lit, err := p.number(true)
		if err != nil {
			return nil, err
		}
		return p.postfixOps(lit)
	case l.peek() == '-', l.peek() == '+', l.peek() == '~', l.peek() == '!' && l.peekAt(1) != '=':
		op := string(l.advance())
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, Operand: operand}, nil
	case l.peek() == '(':
		n, ok, err := p.try(p.cast)
		if err != nil {
			return nil, err
		}
		if ok {
			return n, nil
		}
	}
	expr, err := p.postfix()
	if err != nil {
		return nil, err
	}
	l.skipWhitespace()
	if l.hasPrefix("++") || l.hasPrefix("--") {
		delta := int64(1)
		if l.peek() == '-' {
			delta = -1
		}
		target, err := p.incrementTarget(expr)
		if err != nil {
			return nil, err
		}
		l.pos += 2
		return &Increment{Target: target, Delta: delta}, nil
	}
	return expr, nil
}

func (p *Parser) incrementTarget(n Node) (Node, error) {
	if paren, ok := n.(*Paren); ok {
		n = paren.Expr
	}
	switch n.(type) {
	case *VarRef, *FieldAccess, *ArrayAccess:
		return n, nil
	}
	return nil, p.l.errorf("++ and -- can only be applied to variables, fields or array elements")
}

// cast parses `(Type) operand`. Only names that resolve to a type qualify,
// so `(a) + b` stays a parenthesized expression.
func (p *Parser) cast() (Node, error) {
	l := p.l
	l.advance()
	name, err := p.typeName()
	if err != nil {
		return nil, err
	}
	if err := l.expect(')'); err != nil {
		return nil, err
	}
	base := name
	if i := strings.IndexByte(base, '['); i > 0 {
		base = base[:i]
	}
	_, primitive := PrimitiveType(base)
	if !primitive && (p.ctx.HasVariable(base) || !p.ctx.IsClassName(base)) {
		return nil, l.errorf("%s is not a type", name)
	}
	l.skipWhitespace()
	r := l.peek()
	operandStart := isIdentStart(r) || unicode.IsDigit(r) || strings.ContainsRune("\"'(!~{", r) ||
		primitive && (r == '-' || r == '+')
	if !operandStart {
		return nil, l.errorf("Expected operand after cast to %s", name)
	}
	operand, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &Cast{TypeName: name, Expr: operand}, nil
}

func (p *Parser) postfix() (Node, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}
	return p.postfixOps(expr)
}

func (p *Parser) postfixOps(expr Node) (Node, error) {
	l := p.l
	for {
		l.skipWhitespace()
		switch {
		case l.peek() == '.' && !unicode.IsDigit(l.peekAt(1)) && l.peekAt(1) != '.':
			l.advance()
			name, err := l.identifier()
			if err != nil {
				return nil, err
			}
			l.skipWhitespace()
			if l.peek() == '(' {
				args, err := p.arguments()
				if err != nil {
					return nil, err
				}
				expr = &MethodCall{Target: expr, Name: name, Args: args}
				continue
			}
			if ref, ok := expr.(*ClassRef); ok && p.ctx.IsClassName(ref.Name+"."+name) {
				expr = &ClassRef{Name: ref.Name + "." + name}
				continue
			}
			expr = &FieldAccess{Target: expr, Name: name}
		case l.peek() == '[':
			if ref, ok := expr.(*ClassRef); ok {
				l.save()
				l.advance()
				l.skipWhitespace()
				if l.match(']') {
					l.release()
					expr = &ClassRef{Name: ref.Name + "[]"}
					continue
				}
				l.restore()
			}
			l.advance()
			index, err := p.expression()
			if err != nil {
				return nil, err
			}
			if err := l.expect(']'); err != nil {
				return nil, err
			}
			expr = &ArrayAccess{Target: expr, Index: index}
		case l.peek() == '(':
			args, err := p.arguments()
			if err != nil {
				return nil, err
			}
			expr = &DirectCall{Fn: expr, Args: args}
		case l.hasPrefix("::"):
			l.pos += 2
			name, err := l.identifier()
			if err != nil {
				return nil, err
			}
			expr = &MethodRef{Target: expr, Name: name}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) arguments() ([]Node, error) {
	l := p.l
	if err := l.expect('('); err != nil {
		return nil, err
	}
	var args []Node
	l.skipWhitespace()
	if l.match(')') {
		return args, nil
	}
	for {
		arg, err := p.expression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		l.skipWhitespace()
		if l.match(',') {
			continue
		}
		if err := l.expect(')'); err != nil {
			return nil, err
		}
		return args, nil
	}
}

func (p *Parser) primary() (Node, error) {
	l := p.l
	l.skipWhitespace()
	r := l.peek()
	switch {
	case r == '\'':
		return p.charLiteral()
	case r == '"':
		return p.stringLiteral()
	case unicode.IsDigit(r):
		return p.number(false)
	case r == '{' || r == '[':
		return p.arrayOrMap()
	case r == 0:
		return nil, l.errorf("Unexpected end of input")
	}

	if r == '(' || isIdentStart(r) {
		n, ok, err := p.try(p.lambda)
		if err != nil {
			return nil, err
		}
		if ok {
			return n, nil
		}
	}
	if l.match('(') {
		inner, err := p.expression()
		if err != nil {
			return nil, err
		}
		if err := l.expect(')'); err != nil {
			return nil, err
		}
		return &Paren{Expr: inner}, nil
	}

	start := l.pos
	name, err := l.identifier()
	if err != nil {
		return nil, l.errorf("Expected identifier or literal but found %s", l.describe())
	}
	switch name {
	case "true":
		return &Literal{Value: true}, nil
	case "false":
		return &Literal{Value: false}, nil
	case "null":
		return &Literal{Value: nil}, nil
	case "new":
		return p.newExpr()
	case "this":
		l.skipWhitespace()
		if l.peek() == '(' {
			args, err := p.arguments()
			if err != nil {
				return nil, err
			}
			return &Call{Name: "this", Args: args}, nil
		}
		return &VarRef{Name: "this"}, nil
	case "super":
		return p.superExpr()
	}
	if isReserved(name) {
		if _, ok := PrimitiveType(name); !ok {
			l.pos = start
			return nil, l.errorf("Unexpected keyword %s", name)
		}
	}
	l.skipWhitespace()
	if l.peek() == '(' {
		args, err := p.arguments()
		if err != nil {
			return nil, err
		}
		return &Call{Name: name, Args: args}, nil
	}
	if p.ctx.HasVariable(name) {
		return &VarRef{Name: name}, nil
	}
	if p.ctx.IsClassName(name) {
		return &ClassRef{Name: name}, nil
	}
	if qualified, ok := p.qualifiedClass(name); ok {
		return &ClassRef{Name: qualified}, nil
	}
	return &VarRef{Name: name}, nil
}

// qualifiedClass matches the longest dotted name starting with first that
// names a class, leaving the cursor after it. `java.util.Map.Entry.x`
// resolves to the class `java.util.Map.Entry` followed by a member.
func (p *Parser) qualifiedClass(first string) (string, bool) {
	l := p.l
	origin := l.pos
	best, bestPos := "", -1
	name := first
	for l.peek() == '.' && isIdentStart(l.peekAt(1)) {
		l.advance()
		part, err := l.identifier()
		if err != nil {
			break
		}
		name += "." + part
		if p.ctx.IsClassName(name) {
			best, bestPos = name, l.pos
		} else if bestPos >= 0 {
			break
		}
	}
	if bestPos < 0 {
		l.pos = origin
		return "", false
	}
	l.pos = bestPos
	return best, true
}

func (p *Parser) superExpr() (Node, error) {
	l := p.l
	l.skipWhitespace()
	if l.peek() == '(' {
		args, err := p.arguments()
		if err != nil {
			return nil, err
		}
		return &SuperCall{Args: args}, nil
	}
	if err := l.expect('.'); err != nil {
		return nil, err
	}
	name, err := l.identifier()
	if err != nil {
		return nil, err
	}
	l.skipWhitespace()
	if l.peek() != '(' {
		return &FieldAccess{Target: &VarRef{Name: "this"}, Name: name}, nil
	}
	args, err := p.arguments()
	if err != nil {
		return nil, err
	}
	return &SuperCall{Name: name, Args: args}, nil
}

func (p *Parser) newExpr() (Node, error) {
	l := p.l
	name, err := p.baseTypeName()
	if err != nil {
		return nil, err
	}
	l.skipWhitespace()
	if l.peek() == '[' {
		n := &ArrayCreation{ElemName: name}
		specified, unspecified := 0, 0
		for {
			l.skipWhitespace()
			if !l.match('[') {
				break
			}
			l.skipWhitespace()
			if l.match(']') {
				n.Dims = append(n.Dims, nil)
				unspecified++
				continue
			}
			dim, err := p.expression()
			if err != nil {
				return nil, err
			}
			if err := l.expect(']'); err != nil {
				return nil, err
			}
			n.Dims = append(n.Dims, dim)
			specified++
		}
		if specified > 0 && unspecified > 0 {
			return nil, p.fatalf("Array dimensions of %s mix specified and unspecified lengths", name)
		}
		l.skipWhitespace()
		if l.peek() == '{' {
			init, err := p.arrayLiteral()
			if err != nil {
				return nil, err
			}
			n.Init = init
		}
		return n, nil
	}
	args, err := p.arguments()
	if err != nil {
		return nil, err
	}
	l.skipWhitespace()
	if l.peek() == '{' && p.anonymousBody() {
		return nil, p.fatalf("Anonymous classes are not supported: new %s", name)
	}
	return &NewObject{TypeName: name, Args: args}, nil
}

// anonymousBody reports whether the brace after `new T(...)` opens a class
// body rather than a following block statement.
func (p *Parser) anonymousBody() bool {
	l := p.l
	l.save()
	defer l.restore()
	l.advance()
	l.skipWhitespace()
	word := l.peekWord()
	return modifiers[word] || word == "void" || l.hasPrefix("@Override")
}

func (p *Parser) lambda() (Node, error) {
	l := p.l
	var params []string
	if l.match('(') {
		l.skipWhitespace()
		if !l.match(')') {
			for {
				name, err := l.identifier()
				if err != nil {
					return nil, err
				}
				l.skipWhitespace()
				if isIdentStart(l.peek()) {
					if name, err = l.identifier(); err != nil {
						return nil, err
					}
				}
				params = append(params, name)
				l.skipWhitespace()
				if l.match(',') {
					continue
				}
				if err := l.expect(')'); err != nil {
					return nil, err
				}
				break
			}
		}
	} else {
		name, err := l.identifier()
		if err != nil {
			return nil, err
		}
		params = []string{name}
	}
	l.skipWhitespace()
	if !l.matchString("->") {
		return nil, l.errorf("Lambda expression missing '->'")
	}
	l.skipWhitespace()
	if l.peek() == '{' {
		body, err := p.block(false)
		if err != nil {
			return nil, err
		}
		return &LambdaExpr{Params: params, Body: body}, nil
	}
	body, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &LambdaExpr{Params: params, Body: body, Expr: true}, nil
}

func (p *Parser) arrayOrMap() (Node, error) {
	n, ok, err := p.tryRule("array", func() (Node, error) { return p.arrayLiteral() })
	if err != nil {
		return nil, err
	}
	if ok {
		return n, nil
	}
	if p.l.peek() != '{' {
		return nil, p.l.errorf("Cannot parse array literal")
	}
	n, ok, err = p.tryRule("map", p.mapLiteral)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, p.l.errorf("Cannot parse array or map literal")
	}
	return n, nil
}

// arrayLiteral parses `{a, b}` or `[a, b]`. A trailing comma is allowed.
func (p *Parser) arrayLiteral() (*ArrayLiteral, error) {
	l := p.l
	l.skipWhitespace()
	closing := '}'
	switch {
	case l.match('{'):
	case l.match('['):
		closing = ']'
	default:
		return nil, l.errorf("Expected array literal but found %s", l.describe())
	}
	lit := &ArrayLiteral{}
	for {
		l.skipWhitespace()
		if l.match(closing) {
			return lit, nil
		}
		if l.peek() == ',' {
			return nil, l.errorf("Array element cannot be empty")
		}
		elem, err := p.ternary()
		if err != nil {
			return nil, err
		}
		lit.Elems = append(lit.Elems, elem)
		l.skipWhitespace()
		if l.match(',') {
			continue
		}
		if !l.match(closing) {
			return nil, l.errorf("Expected ',' or '%c' in array literal but found %s", closing, l.describe())
		}
		return lit, nil
	}
}

func (p *Parser) mapLiteral() (Node, error) {
	l := p.l
	if err := l.expect('{'); err != nil {
		return nil, err
	}
	m := &MapLiteral{}
	for {
		l.skipWhitespace()
		if l.match('}') {
			return m, nil
		}
		key, err := p.ternary()
		if err != nil {
			return nil, err
		}
		if err := l.expect(':'); err != nil {
			return nil, err
		}
		value, err := p.ternary()
		if err != nil {
			return nil, err
		}
		m.Keys = append(m.Keys, key)
		m.Values = append(m.Values, value)
		l.skipWhitespace()
		if l.match(',') {
			continue
		}
		if err := l.expect('}'); err != nil {
			return nil, err
		}
		return m, nil
	}
}

func (p *Parser) charLiteral() (Node, error) {
	l := p.l
	l.advance()
	var r rune
	if l.peek() == '\\' {
		s, err := p.escape()
		if err != nil {
			return nil, err
		}
		r = []rune(s)[0]
	} else {
		if l.atEnd() || l.peek() == '\'' {
			return nil, l.errorf("Empty character literal")
		}
		r = l.advance()
	}
	if !l.match('\'') {
		return nil, l.errorf("Unterminated character literal")
	}
	return &Literal{Value: Char(r)}, nil
}

func (p *Parser) stringLiteral() (Node, error) {
	l := p.l
	l.advance()
	var sb strings.Builder
	for !l.match('"') {
		switch l.peek() {
		case 0, '\n', '\r':
			return nil, l.errorf("Unterminated string literal")
		case '\\':
			s, err := p.escape()
			if err != nil {
				return nil, err
			}
			sb.WriteString(s)
		default:
			sb.WriteRune(l.advance())
		}
	}
	return &Literal{Value: sb.String()}, nil
}

// escape decodes one backslash sequence. Unknown sequences are kept
// verbatim with a warning.
func (p *Parser) escape() (string, error) {
	l := p.l
	l.advance()
	c := l.advance()
	digits := func(n, base int, what string) (string, error) {
		start := l.pos
		for i := 0; i < n && !l.atEnd(); i++ {
			l.advance()
		}
		text := string(l.src[start:l.pos])
		v, err := strconv.ParseUint(text, base, 32)
		if err != nil || len(text) != n {
			return "", l.errorf("Invalid %s escape sequence \\%c%s", what, c, text)
		}
		return string(rune(v)), nil
	}
	switch c {
	case 'b':
		return "\b", nil
	case 't':
		return "\t", nil
	case 'n':
		return "\n", nil
	case 'f':
		return "\f", nil
	case 'r':
		return "\r", nil
	case 's':
		return " ", nil
	case '"', '\'', '\\':
		return string(c), nil
	case 'x':
		return digits(2, 16, "hexadecimal")
	case 'u', 'U':
		return digits(4, 16, "Unicode")
	}
	if c >= '0' && c <= '7' {
		v := int(c - '0')
		for i := 0; i < 2 && l.peek() >= '0' && l.peek() <= '7'; i++ {
			v = v*8 + int(l.advance()-'0')
		}
		return string(rune(v)), nil
	}
	if c == 0 {
		return "", l.errorf("Unterminated string literal")
	}
	p.ctx.addWarning(WarnSyntax, "Invalid escape sequence \\"+string(c))
	return "\\" + string(c), nil
}

func (p *Parser) number(negative bool) (Node, error) {
	l := p.l
	start := l.pos
	hex := l.hasPrefix("0x") || l.hasPrefix("0X")
	dot := false
scan:
	for !l.atEnd() {
		r := l.peek()
		prev := l.peekAt(-1)
		switch {
		case unicode.IsDigit(r) || unicode.IsLetter(r) || r == '_':
		case r == '.' && !dot && !hex && unicode.IsDigit(l.peekAt(1)):
			dot = true
		case (r == '+' || r == '-') && !hex && (prev == 'e' || prev == 'E') && l.pos > start:
		default:
			break scan
		}
		l.advance()
	}
	text := string(l.src[start:l.pos])
	v, err := parseNumber(text, negative)
	if err != nil {
		l.pos = start
		msg := err.Error()
		var se *ScriptError
		if errors.As(err, &se) {
			msg = se.Message
		}
		return nil, l.errorf("%s", msg)
	}
	return &Literal{Value: v}, nil
}

// parseNumber converts a numeric literal: 0x/0b/0o prefixes, legacy octal
// with a leading zero, and the L, f and d suffixes. Decimal literals without
// a suffix are int, or long when they do not fit.
func parseNumber(text string, negative bool) (any, error) {
	s := strings.ReplaceAll(text, "_", "")
	lower := strings.ToLower(s)
	sign := ""
	if negative {
		sign = "-"
	}
	radix := func(body string, base int, what string) (any, error) {
		long := strings.HasSuffix(body, "l")
		if long {
			body = body[:len(body)-1]
		}
		bits := 32
		if long {
			bits = 64
		}
		u, err := strconv.ParseUint(body, base, bits)
		if err != nil || body == "" {
			return nil, parseError("Invalid %s number: %s", what, text)
		}
		if long {
			n := int64(u)
			if negative {
				n = -n
			}
			return n, nil
		}
		n := int32(uint32(u))
		if negative {
			n = -n
		}
		return n, nil
	}
	switch {
	case strings.HasPrefix(lower, "0x"):
		return radix(lower[2:], 16, "hexadecimal")
	case strings.HasPrefix(lower, "0b"):
		return radix(lower[2:], 2, "binary")
	case strings.HasPrefix(lower, "0o"):
		return radix(lower[2:], 8, "octal")
	case strings.HasSuffix(lower, "f"):
		f, err := strconv.ParseFloat(sign+s[:len(s)-1], 32)
		if err != nil {
			return nil, parseError("Invalid float number: %s", text)
		}
		return float32(f), nil
	case strings.HasSuffix(lower, "d"):
		f, err := strconv.ParseFloat(sign+s[:len(s)-1], 64)
		if err != nil {
			return nil, parseError("Invalid double number: %s", text)
		}
		return f, nil
	case strings.ContainsAny(lower, ".e"):
		f, err := strconv.ParseFloat(sign+s, 64)
		if err != nil {
			return nil, parseError("Invalid double number: %s", text)
		}
		return f, nil
	case len(lower) > 1 && lower[0] == '0' && isDigits(strings.TrimSuffix(lower[1:], "l")):
		return radix(lower[1:], 8, "octal")
	case strings.HasSuffix(lower, "l"):
		n, err := strconv.ParseInt(sign+s[:len(s)-1], 10, 64)
		if err != nil {
			return nil, parseError("Invalid long number: %s", text)
		}
		return n, nil
	}
	if n, err := strconv.ParseInt(sign+s, 10, 32); err == nil {
		return int32(n), nil
	}
	n, err := strconv.ParseInt(sign+s, 10, 64)
	if err != nil {
		return nil, parseError("Invalid number: %s", text)
	}
	return n, nil
}

func isDigits(s string) bool {
	return s != "" && strings.Trim(s, "0123456789") == ""
}
