package script

import "fmt"

// maxStagnation bounds how often the class body loop may fail to advance
// before the declaration is rejected.
const maxStagnation = 100

func (p *Parser) classDeclaration() (Node, error) {
	l := p.l
	l.matchKeyword("class")
	name, err := l.identifier()
	if err != nil {
		return nil, err
	}
	l.skipWhitespace()
	if l.peek() == '<' {
		if err := p.skipGenerics(); err != nil {
			return nil, err
		}
	}
	var superName string
	var interfaces []string
	l.skipWhitespace()
	if l.matchKeyword("extends") {
		if superName, err = p.baseTypeName(); err != nil {
			return nil, err
		}
	}
	l.skipWhitespace()
	if l.matchKeyword("implements") {
		for {
			iface, err := p.baseTypeName()
			if err != nil {
				return nil, err
			}
			interfaces = append(interfaces, iface)
			l.skipWhitespace()
			if !l.match(',') {
				break
			}
		}
	}
	if err := l.expect('{'); err != nil {
		return nil, err
	}
	def := NewClassDefinition(name, superName, interfaces)
	last, stagnant := l.pos, 0
	skipping := false
	for {
		l.skipWhitespace()
		if l.match('}') {
			return &ClassDecl{Def: def}, nil
		}
		if l.atEnd() {
			return nil, p.fatalf("Unterminated class declaration: %s", name)
		}
		if l.match(';') {
			continue
		}
		start := l.pos
		_, ok, err := p.try(func() (Node, error) { return nil, p.member(def) })
		if err != nil {
			return nil, err
		}
		if ok {
			skipping = false
		} else {
			if !skipping {
				p.ctx.addWarning(WarnSyntax, fmt.Sprintf("Unrecognized member in class %s near %s", name, l.describe()))
				skipping = true
			}
			l.pos = start
			l.skipWhitespace()
			if l.pos == start {
				l.advance()
			}
		}
		if l.pos == last {
			stagnant++
			if stagnant > maxStagnation {
				return nil, p.fatalf("Class body parsing of %s made no progress", name)
			}
		} else {
			last, stagnant = l.pos, 0
		}
	}
}

// member parses one constructor, method or field list into def.
func (p *Parser) member(def *ClassDefinition) error {
	l := p.l
	modifier, static := "public", false
	for {
		l.skipWhitespace()
		if l.match('@') {
			if _, err := p.baseTypeName(); err != nil {
				return err
			}
			l.skipWhitespace()
			if l.peek() == '(' {
				if _, err := p.arguments(); err != nil {
					return err
				}
			}
			continue
		}
		word := l.peekWord()
		if !modifiers[word] {
			break
		}
		l.skipWhitespace()
		l.matchKeyword(word)
		switch {
		case word == "static":
			static = true
		case isAccessModifier(word):
			modifier = word
		}
	}
	l.skipWhitespace()
	if l.peekWord() == def.Name {
		l.save()
		l.matchKeyword(def.Name)
		l.skipWhitespace()
		if l.peek() == '(' {
			l.release()
			params, err := p.parameters()
			if err != nil {
				return err
			}
			body, err := p.block(false)
			if err != nil {
				return err
			}
			def.AddConstructor(&ConstructorDefinition{Params: params, Body: body, Modifier: modifier})
			return nil
		}
		l.restore()
	}

	typeName, err := p.typeName()
	if err != nil {
		return err
	}
	name, err := l.identifier()
	if err != nil {
		return err
	}
	if isReserved(name) {
		return l.errorf("Unexpected keyword %s", name)
	}
	l.skipWhitespace()
	if l.peek() == '(' {
		params, err := p.parameters()
		if err != nil {
			return err
		}
		l.skipWhitespace()
		if l.isKeyword("throws") {
			l.matchKeyword("throws")
			for {
				if _, err := p.baseTypeName(); err != nil {
					return err
				}
				l.skipWhitespace()
				if !l.match(',') {
					break
				}
			}
		}
		body, err := p.block(false)
		if err != nil {
			return err
		}
		def.AddMethod(&MethodDefinition{
			Name:       name,
			ReturnType: typeName,
			Params:     params,
			Body:       body,
			Static:     static,
			Modifier:   modifier,
		})
		return nil
	}

	for {
		field := &FieldDefinition{Name: name, TypeName: p.arraySuffix(typeName), Static: static, Modifier: modifier}
		l.skipWhitespace()
		if l.peek() == '=' && l.peekAt(1) != '=' {
			l.advance()
			if field.Init, err = p.expression(); err != nil {
				return err
			}
		}
		def.AddField(field)
		l.skipWhitespace()
		if !l.match(',') {
			break
		}
		if name, err = l.identifier(); err != nil {
			return err
		}
	}
	return l.expect(';')
}

func (p *Parser) parameters() ([]Parameter, error) {
	l := p.l
	if err := l.expect('('); err != nil {
		return nil, err
	}
	var params []Parameter
	l.skipWhitespace()
	if l.match(')') {
		return params, nil
	}
	for {
		l.skipWhitespace()
		l.matchKeyword("final")
		typeName, err := p.typeName()
		if err != nil {
			return nil, err
		}
		name, err := l.identifier()
		if err != nil {
			return nil, err
		}
		params = append(params, Parameter{Name: name, TypeName: p.arraySuffix(typeName)})
		l.skipWhitespace()
		if l.match(',') {
			continue
		}
		if err := l.expect(')'); err != nil {
			return nil, err
		}
		return params, nil
	}
}
