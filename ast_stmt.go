package script

import (
	"fmt"
	"strings"
)

// VarDecl declares one variable. `auto` takes the runtime type of the
// initializer and requires one.
type VarDecl struct {
	TypeName string
	Name     string
	Init     Node
}

func (n *VarDecl) Eval(c *Context) (Signal, error) {
	if err := c.checkDeclarable(n.Name, n); err != nil {
		return Signal{}, err
	}
	var value any
	if n.Init != nil {
		v, err := evalValue(c, n.Init)
		if err != nil {
			return Signal{}, err
		}
		value = v
	}
	if n.TypeName == "auto" {
		if value == nil {
			return Signal{}, typeError("Variable declaration without type and initial value: %s", n.Name)
		}
		t := c.TypeOf(value).Unboxed()
		c.current.set(n.Name, &Variable{Value: value, Type: t, origin: n})
		return Signal{Value: value}, nil
	}
	t, err := c.FindClass(n.TypeName)
	if err != nil {
		e := typeError("Cannot resolve type for variable declaration: %s", n.TypeName)
		e.Cause = err
		return Signal{}, e
	}
	if n.Init == nil {
		value = zeroValue(t)
	} else {
		cv, err := c.Cast(value, t)
		if err != nil {
			e := typeError("Initial value type mismatch (declared %s, got %s) for variable declaration: %s", t.Name, c.valueType(value).Name, n.Name)
			e.Cause = err
			return Signal{}, e
		}
		value = cv
	}
	c.current.set(n.Name, &Variable{Value: value, Type: t, origin: n})
	return Signal{Value: value}, nil
}

func (n *VarDecl) StaticType(c *Context) (*Type, error) {
	if n.TypeName == "auto" {
		if v, ok := c.GetVariable(n.Name); ok {
			return v.Type, nil
		}
		return TypeObject, nil
	}
	return c.FindClass(n.TypeName)
}

// checkDeclarable rejects names already taken by a builtin, a class or a
// visible variable. A loop re-running the same declaration is allowed.
func (c *Context) checkDeclarable(name string, decl Node) error {
	if c.HasBuiltin(name) {
		return typeError("Variable name shadowing built-in: %s", name)
	}
	if c.HasCustomClass(name) {
		return typeError("Variable name conflicts with defined class name: %s", name)
	}
	if v, ok := c.GetVariable(name); ok && (decl == nil || v.origin != decl) {
		return execError("Variable already declared: %s", name)
	}
	if c.IsClassName(name) {
		return typeError("Variable name conflicts with class name: %s", name)
	}
	return nil
}

type ClassDecl struct {
	Def *ClassDefinition
}

func (n *ClassDecl) Eval(c *Context) (Signal, error) {
	name := n.Def.Name
	switch {
	case c.HasBuiltin(name):
		return Signal{}, typeError("Class name shadowing built-in: %s", name)
	case c.HasCustomClass(name):
		return Signal{}, execError("Class already declared: %s", name)
	case c.HasVariable(name):
		return Signal{}, execError("Variable already declared: %s", name)
	case c.IsClassName(name):
		return Signal{}, execError("Class already declared: %s", name)
	}
	return Signal{}, c.declareClass(n.Def)
}

func (n *ClassDecl) StaticType(*Context) (*Type, error) { return TypeVoid, nil }

// Block runs statements in order. Independent blocks get their own scope;
// other blocks share the scope of the enclosing construct.
type Block struct {
	Stmts       []Node
	Independent bool
}

func (n *Block) Eval(c *Context) (Signal, error) {
	if n.Independent {
		return c.withScope(c.current, func() (Signal, error) { return n.run(c) })
	}
	return n.run(c)
}

func (n *Block) run(c *Context) (Signal, error) {
	var last any
	for _, stmt := range n.Stmts {
		sig, err := stmt.Eval(c)
		if err != nil {
			return Signal{}, err
		}
		if sig.Abrupt() {
			return sig, nil
		}
		last = sig.Value
	}
	return Signal{Value: last}, nil
}

func (n *Block) StaticType(*Context) (*Type, error) { return TypeVoid, nil }

type If struct {
	Cond Node
	Then Node
	Else Node
}

func (n *If) Eval(c *Context) (Signal, error) {
	return c.withScope(c.current, func() (Signal, error) {
		cond, err := evalValue(c, n.Cond)
		if err != nil {
			return Signal{}, err
		}
		if toBoolean(cond) {
			return evalOptional(c, n.Then)
		}
		return evalOptional(c, n.Else)
	})
}

func (n *If) StaticType(*Context) (*Type, error) { return TypeVoid, nil }

func evalOptional(c *Context, n Node) (Signal, error) {
	if n == nil {
		return Signal{}, nil
	}
	return n.Eval(c)
}

// loopGuard counts iterations against the loop cap.
type loopGuard struct {
	kind  string
	limit int
	count int
}

func (c *Context) newLoopGuard(kind string) *loopGuard {
	return &loopGuard{kind: kind, limit: c.loopLimit()}
}

// next records one iteration and reports whether another may start.
func (g *loopGuard) next(c *Context) bool {
	g.count++
	if g.count < g.limit {
		return true
	}
	c.addWarning(WarnLoopLimit, fmt.Sprintf("%s loop reached its limit (%d), force quitted", g.kind, g.limit))
	return false
}

// loopBody interprets the signal of one iteration. done reports that the
// loop must stop; out is what the loop itself yields in that case.
func loopBody(sig Signal) (done bool, out Signal) {
	switch sig.Kind {
	case SignalBreak:
		return true, Signal{}
	case SignalReturn:
		return true, sig
	}
	return false, Signal{}
}

type While struct {
	Cond Node
	Body Node
}

func (n *While) Eval(c *Context) (Signal, error) {
	guard := c.newLoopGuard("While")
	return c.withScope(c.current, func() (Signal, error) {
		for {
			if err := c.checkCanceled(); err != nil {
				return Signal{}, err
			}
			cond, err := evalValue(c, n.Cond)
			if err != nil {
				return Signal{}, err
			}
			if !toBoolean(cond) {
				return Signal{}, nil
			}
			sig, err := evalOptional(c, n.Body)
			if err != nil {
				return Signal{}, err
			}
			if done, out := loopBody(sig); done {
				return out, nil
			}
			if !guard.next(c) {
				return Signal{}, nil
			}
		}
	})
}

func (n *While) StaticType(*Context) (*Type, error) { return TypeVoid, nil }

type DoWhile struct {
	Body Node
	Cond Node
}

func (n *DoWhile) Eval(c *Context) (Signal, error) {
	guard := c.newLoopGuard("Do-while")
	return c.withScope(c.current, func() (Signal, error) {
		for {
			if err := c.checkCanceled(); err != nil {
				return Signal{}, err
			}
			sig, err := evalOptional(c, n.Body)
			if err != nil {
				return Signal{}, err
			}
			if done, out := loopBody(sig); done {
				return out, nil
			}
			cond, err := evalValue(c, n.Cond)
			if err != nil {
				return Signal{}, err
			}
			if !toBoolean(cond) {
				return Signal{}, nil
			}
			if !guard.next(c) {
				return Signal{}, nil
			}
		}
	})
}

func (n *DoWhile) StaticType(*Context) (*Type, error) { return TypeVoid, nil }

type For struct {
	Init   Node
	Cond   Node
	Update Node
	Body   Node
}

func (n *For) Eval(c *Context) (Signal, error) {
	guard := c.newLoopGuard("For")
	return c.withScope(c.current, func() (Signal, error) {
		if n.Init != nil {
			if _, err := n.Init.Eval(c); err != nil {
				return Signal{}, err
			}
		}
		for {
			if err := c.checkCanceled(); err != nil {
				return Signal{}, err
			}
			if n.Cond != nil {
				cond, err := evalValue(c, n.Cond)
				if err != nil {
					return Signal{}, err
				}
				if !toBoolean(cond) {
					return Signal{}, nil
				}
			}
			sig, err := evalOptional(c, n.Body)
			if err != nil {
				return Signal{}, err
			}
			if done, out := loopBody(sig); done {
				return out, nil
			}
			if n.Update != nil {
				if _, err := evalValue(c, n.Update); err != nil {
					return Signal{}, err
				}
			}
			if !guard.next(c) {
				return Signal{}, nil
			}
		}
	})
}

func (n *For) StaticType(*Context) (*Type, error) { return TypeVoid, nil }

// ForEach iterates arrays, lists, strings and map entries.
type ForEach struct {
	TypeName string
	Name     string
	Iterable Node
	Body     Node
}

func (n *ForEach) Eval(c *Context) (Signal, error) {
	coll, err := evalValue(c, n.Iterable)
	if err != nil {
		return Signal{}, err
	}
	items, err := c.iterate(coll)
	if err != nil {
		return Signal{}, err
	}
	var itemType *Type
	if n.TypeName != "auto" && n.TypeName != "var" {
		if itemType, err = c.FindClass(n.TypeName); err != nil {
			return Signal{}, err
		}
	}
	guard := c.newLoopGuard("For-each")
	return c.withScope(c.current, func() (Signal, error) {
		for _, item := range items {
			if err := c.checkCanceled(); err != nil {
				return Signal{}, err
			}
			t := itemType
			if t == nil {
				t = c.valueType(item)
			} else if item, err = c.Cast(item, t); err != nil {
				return Signal{}, err
			}
			c.DeclareVariable(n.Name, t, item)
			sig, err := evalOptional(c, n.Body)
			if err != nil {
				return Signal{}, err
			}
			if done, out := loopBody(sig); done {
				return out, nil
			}
			if !guard.next(c) {
				return Signal{}, nil
			}
		}
		return Signal{}, nil
	})
}

func (n *ForEach) StaticType(*Context) (*Type, error) { return TypeVoid, nil }

// Case is one `case v1, v2:` arm; a case without values is `default`.
type Case struct {
	Values []Node
	Body   []Node
}

type Switch struct {
	Subject Node
	Cases   []*Case
}

func (n *Switch) Eval(c *Context) (Signal, error) {
	subject, err := evalValue(c, n.Subject)
	if err != nil {
		return Signal{}, err
	}
	start, def := -1, -1
	for i, cs := range n.Cases {
		if cs.Values == nil {
			if def < 0 {
				def = i
			}
			continue
		}
		for _, vn := range cs.Values {
			v, err := evalValue(c, vn)
			if err != nil {
				return Signal{}, err
			}
			eq, err := c.ValuesEqual(subject, v)
			if err != nil {
				return Signal{}, err
			}
			if eq {
				start = i
				break
			}
		}
		if start >= 0 {
			break
		}
	}
	if start < 0 {
		start = def
	}
	if start < 0 {
		return Signal{}, nil
	}
	return c.withScope(c.current, func() (Signal, error) {
		for _, cs := range n.Cases[start:] {
			for _, stmt := range cs.Body {
				sig, err := stmt.Eval(c)
				if err != nil {
					return Signal{}, err
				}
				switch sig.Kind {
				case SignalBreak:
					return Signal{}, nil
				case SignalContinue, SignalReturn:
					return sig, nil
				}
			}
		}
		return Signal{}, nil
	})
}

func (n *Switch) StaticType(*Context) (*Type, error) { return TypeVoid, nil }

// Control is `break` or `continue`.
type Control struct {
	Kind SignalKind
}

func (n *Control) Eval(*Context) (Signal, error) { return Signal{Kind: n.Kind}, nil }

func (n *Control) StaticType(*Context) (*Type, error) { return TypeVoid, nil }

// Return validates its value against the declared return type of the
// running method.
type Return struct {
	Value Node
}

func (n *Return) Eval(c *Context) (Signal, error) {
	var v any
	if n.Value != nil {
		val, err := evalValue(c, n.Value)
		if err != nil {
			return Signal{}, err
		}
		v = val
	}
	rt := c.currentReturnType()
	switch {
	case rt == nil:
	case rt == TypeVoid:
		if n.Value != nil {
			return Signal{}, typeError("Cannot return a value from a method with void result type")
		}
	case n.Value == nil:
		return Signal{}, typeError("Missing return value, expected %s", rt.Name)
	default:
		cv, err := c.Cast(v, rt)
		if err != nil {
			return Signal{}, typeError("Return type mismatch: expected %s, got %s", rt.Name, c.valueType(v).Name)
		}
		v = cv
	}
	return Signal{Kind: SignalReturn, Value: v}, nil
}

func (n *Return) StaticType(c *Context) (*Type, error) {
	if n.Value == nil {
		return TypeVoid, nil
	}
	return n.Value.StaticType(c)
}

type Throw struct {
	Expr Node
}

func (n *Throw) Eval(c *Context) (Signal, error) {
	v, err := evalValue(c, n.Expr)
	if err != nil {
		return Signal{}, err
	}
	switch x := v.(type) {
	case nil:
		return Signal{}, throwNew(TypeNullPointer, "Cannot throw null")
	case *Throwable:
		return Signal{}, thrownError(x)
	}
	return Signal{}, typeError("Only Throwable values can be thrown, got %s", c.TypeOf(v).Name)
}

func (n *Throw) StaticType(*Context) (*Type, error) { return TypeVoid, nil }

type Catch struct {
	Types []string
	Name  string
	Body  *Block
}

// Try implements try-with-resources, catch and finally. Resources are
// closed in reverse order before any catch clause runs.
type Try struct {
	Resources []*VarDecl
	Body      *Block
	Catches   []*Catch
	Finally   *Block
}

func (n *Try) Eval(c *Context) (Signal, error) {
	sig, err := c.withScope(c.current, func() (Signal, error) {
		var opened []any
		sig, err := func() (Signal, error) {
			for _, r := range n.Resources {
				rs, err := r.Eval(c)
				if err != nil {
					return Signal{}, err
				}
				opened = append(opened, rs.Value)
			}
			return n.Body.run(c)
		}()
		for i := len(opened) - 1; i >= 0; i-- {
			if opened[i] == nil {
				continue
			}
			if _, cerr := c.InvokeMethod(opened[i], "close", nil); cerr != nil && err == nil {
				err = cerr
			}
		}
		return sig, err
	})
	if err != nil {
		sig, err = n.handle(c, err)
	}
	if n.Finally == nil {
		return sig, err
	}
	fsig, ferr := c.withScope(c.current, func() (Signal, error) { return n.Finally.run(c) })
	if ferr != nil {
		return Signal{}, ferr
	}
	if fsig.Abrupt() {
		return fsig, nil
	}
	return sig, err
}

func (n *Try) handle(c *Context, err error) (Signal, error) {
	th, ok := throwableOf(err)
	if !ok {
		return Signal{}, err
	}
	for _, cc := range n.Catches {
		for _, name := range cc.Types {
			t, ferr := c.FindClass(name)
			if ferr != nil {
				return Signal{}, ferr
			}
			if !t.AssignableFrom(th.Class) {
				continue
			}
			return c.withScope(c.current, func() (Signal, error) {
				c.DeclareVariable(cc.Name, t, th)
				return cc.Body.run(c)
			})
		}
	}
	return Signal{}, err
}

func (n *Try) StaticType(*Context) (*Type, error) { return TypeVoid, nil }

type Import struct {
	Name string
}

func (n *Import) Eval(c *Context) (Signal, error) {
	if err := c.AddImport(n.Name); err != nil {
		c.addWarning(WarnImport, "Failed to import "+n.Name+": "+err.Error())
		return Signal{}, nil
	}
	if !strings.HasSuffix(n.Name, ".*") && !c.IsClassName(n.Name) {
		c.addWarning(WarnImport, "Class not found for import: "+n.Name)
	}
	return Signal{}, nil
}

func (n *Import) StaticType(*Context) (*Type, error) { return TypeVoid, nil }

// Delete removes a variable, calling a script-defined finalize() first.
// `delete *` removes every visible variable except `this`.
type Delete struct {
	Name string
}

func (n *Delete) Eval(c *Context) (Signal, error) {
	if n.Name == "*" {
		for _, name := range c.VariableNames() {
			if name == "this" {
				continue
			}
			if err := c.deleteVariable(name); err != nil {
				return Signal{}, err
			}
		}
		return Signal{}, nil
	}
	if n.Name == "this" {
		return Signal{}, execError("Cannot delete 'this' reference")
	}
	if !c.HasVariable(n.Name) {
		return Signal{}, undefinedError("Undefined variable: %s", n.Name)
	}
	return Signal{}, c.deleteVariable(n.Name)
}

func (c *Context) deleteVariable(name string) error {
	v, _ := c.GetVariable(name)
	if v != nil {
		if inst, ok := v.Value.(*Instance); ok {
			if m, found := inst.Class.findMethod("finalize", 0); found {
				if _, err := c.invokeCustomMethod(inst, m, nil); err != nil {
					return err
				}
			}
		}
	}
	c.DeleteVariable(name)
	return nil
}

func (n *Delete) StaticType(*Context) (*Type, error) { return TypeVoid, nil }
