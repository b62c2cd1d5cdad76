package script

import (
	"errors"
)

const (
	flagRawArray      = "W_RAW_ARRAY_EXPR"
	flagClassVariable = "W_CLASS_AS_VARIABLE"
)

type Literal struct {
	Value any
	Type  *Type
}

func (n *Literal) Eval(*Context) (Signal, error) { return Signal{Value: n.Value}, nil }

func (n *Literal) StaticType(c *Context) (*Type, error) {
	if n.Type != nil {
		return n.Type, nil
	}
	if n.Value == nil {
		return TypeObject, nil
	}
	return c.TypeOf(n.Value).Unboxed(), nil
}

// ArrayLiteral is `{a, b}` without `new`. The element type is the primitive
// type of the elements when they agree, Object otherwise.
type ArrayLiteral struct {
	Elems []Node
}

func (n *ArrayLiteral) Eval(c *Context) (Signal, error) {
	c.warnOnce(flagRawArray, WarnSyntax, "Arrays without 'new' constructor will be interpreted into primitive types, consider using 'new typename[] {element...}' for array literals")
	values, err := evalArgs(c, n.Elems)
	if err != nil {
		return Signal{}, err
	}
	var elem *Type
	for _, v := range values {
		t := c.valueType(v).Unboxed()
		if v == nil {
			t = TypeObject
		}
		if elem == nil {
			elem = t
			continue
		}
		if elem != t {
			elem = TypeObject
			break
		}
	}
	if elem == nil {
		elem = TypeObject
	}
	if elem.IsPrimitive() {
		for i, v := range values {
			cv, err := c.Cast(v, elem)
			if err != nil {
				return Signal{}, err
			}
			values[i] = cv
		}
	}
	return Signal{Value: &Array{Elem: elem, Values: values}}, nil
}

func (n *ArrayLiteral) StaticType(c *Context) (*Type, error) { return dynamicType(c, n) }

type MapLiteral struct {
	Keys   []Node
	Values []Node
}

func (n *MapLiteral) Eval(c *Context) (Signal, error) {
	m := NewHashMap()
	for i := range n.Keys {
		k, err := evalValue(c, n.Keys[i])
		if err != nil {
			return Signal{}, err
		}
		v, err := evalValue(c, n.Values[i])
		if err != nil {
			return Signal{}, err
		}
		m.Put(k, v)
	}
	return Signal{Value: m}, nil
}

func (n *MapLiteral) StaticType(*Context) (*Type, error) { return TypeHashMap, nil }

type Binary struct {
	Op          string
	Left, Right Node
}

func (n *Binary) Eval(c *Context) (Signal, error) {
	l, err := evalValue(c, n.Left)
	if err != nil {
		return Signal{}, err
	}
	r, err := evalValue(c, n.Right)
	if err != nil {
		return Signal{}, err
	}
	return valueSignal(c.BinaryOp(n.Op, l, r))
}

func (n *Binary) StaticType(c *Context) (*Type, error) {
	l, err := n.Left.StaticType(c)
	if err != nil {
		return nil, err
	}
	r, err := n.Right.StaticType(c)
	if err != nil {
		return nil, err
	}
	return resultType(n.Op, l, r), nil
}

type Unary struct {
	Op      string
	Operand Node
}

func (n *Unary) Eval(c *Context) (Signal, error) {
	v, err := evalValue(c, n.Operand)
	if err != nil {
		return Signal{}, err
	}
	return valueSignal(c.UnaryOp(n.Op, v))
}

func (n *Unary) StaticType(c *Context) (*Type, error) {
	if n.Op == "!" {
		return TypeBoolean, nil
	}
	t, err := n.Operand.StaticType(c)
	if err != nil {
		return nil, err
	}
	return resultType("+", t, TypeInt), nil
}

type InstanceOf struct {
	Expr     Node
	TypeName string
}

func (n *InstanceOf) Eval(c *Context) (Signal, error) {
	v, err := evalValue(c, n.Expr)
	if err != nil {
		return Signal{}, err
	}
	t, err := c.FindClass(n.TypeName)
	if err != nil {
		return Signal{}, err
	}
	return Signal{Value: v != nil && t.Boxed().AssignableFrom(c.TypeOf(v))}, nil
}

func (n *InstanceOf) StaticType(*Context) (*Type, error) { return TypeBoolean, nil }

type ClassRef struct {
	Name string
}

func (n *ClassRef) Eval(c *Context) (Signal, error) {
	return valueSignal(c.FindClass(n.Name))
}

func (n *ClassRef) StaticType(*Context) (*Type, error) { return TypeClass, nil }

// VarRef reads a name: a variable, a class, a field of the current
// receiver, a static field of the enclosing class or a builtin.
type VarRef struct {
	Name string
}

func (n *VarRef) Eval(c *Context) (Signal, error) {
	return valueSignal(c.lookupName(n.Name))
}

func (n *VarRef) StaticType(c *Context) (*Type, error) {
	if v, ok := c.GetVariable(n.Name); ok {
		return v.Type, nil
	}
	if c.IsClassName(n.Name) {
		return TypeClass, nil
	}
	return dynamicType(c, n)
}

func (c *Context) lookupName(name string) (any, error) {
	if v, ok := c.GetVariable(name); ok {
		return v.Value, nil
	}
	if t, err := c.FindClass(name); err == nil {
		return t, nil
	}
	if inst, ok := c.thisInstance(); ok {
		if v, ok := inst.Fields[name]; ok {
			return v.Value, nil
		}
	}
	if def := c.enclosingClass(); def != nil {
		if _, v, ok := def.findStatic(name); ok {
			return v.Value, nil
		}
	}
	if b, ok := c.Builtin(name); ok {
		return builtinLambda(b), nil
	}
	return nil, undefinedError("Undefined variable: %s", name)
}

func builtinLambda(b Builtin) *Lambda {
	return &Lambda{Params: []string{"args"}, Variadic: true, Native: func(c *Context, args []any) (any, error) {
		return b(c, args)
	}}
}

// FieldAccess is `target.name`, including `x.class` and static fields of
// class references.
type FieldAccess struct {
	Target Node
	Name   string
}

func (n *FieldAccess) Eval(c *Context) (Signal, error) {
	target, err := evalValue(c, n.Target)
	if err != nil {
		var se *ScriptError
		if errors.As(err, &se) && se.Code == ErrCodeUndefined {
			if name, ok := dottedName(n); ok {
				if t, ferr := c.FindClass(name); ferr == nil {
					return Signal{Value: t}, nil
				}
			}
		}
		return Signal{}, err
	}
	if n.Name == "class" {
		switch x := target.(type) {
		case nil:
			return Signal{}, nullError("Cannot access .class on null")
		case *Type:
			return Signal{Value: x}, nil
		}
		return Signal{Value: c.TypeOf(target)}, nil
	}
	if t, ok := target.(*Type); ok {
		if _, isVar := n.Target.(*VarRef); isVar {
			if _, declared := c.GetVariable(n.Target.(*VarRef).Name); declared {
				c.warnOnce(flagClassVariable, WarnSyntax, "Attempted to access a class through a variable; consider using class name directly")
			}
		}
		if nested, err := c.FindClass(t.Name + "." + n.Name); err == nil {
			return Signal{Value: nested}, nil
		}
		v, err := c.GetStaticField(t, n.Name)
		if err == nil {
			return Signal{Value: v}, nil
		}
		if f, ok := c.host.ResolveField(TypeClass, n.Name); ok {
			return valueSignal(f.Get(c, t))
		}
		return Signal{}, err
	}
	return valueSignal(c.GetField(target, n.Name))
}

func (n *FieldAccess) StaticType(c *Context) (*Type, error) {
	if n.Name == "class" {
		return TypeClass, nil
	}
	target, err := evalValue(c, n.Target)
	if err != nil {
		return nil, err
	}
	switch x := target.(type) {
	case *Instance:
		if v, ok := x.Fields[n.Name]; ok {
			return v.Type, nil
		}
	case *Array:
		if n.Name == "length" {
			return TypeInt, nil
		}
	case nil:
	default:
		t := c.TypeOf(x)
		if tt, ok := x.(*Type); ok {
			t = tt
		}
		if f, ok := c.host.ResolveField(t, n.Name); ok {
			return f.Type, nil
		}
	}
	return dynamicType(c, n)
}

// dottedName rebuilds `a.b.c` from a chain of field accesses on a name.
func dottedName(n Node) (string, bool) {
	switch x := n.(type) {
	case *VarRef:
		return x.Name, true
	case *ClassRef:
		return x.Name, true
	case *FieldAccess:
		prefix, ok := dottedName(x.Target)
		if !ok {
			return "", false
		}
		return prefix + "." + x.Name, true
	}
	return "", false
}

// MethodCall is `target.name(args)`.
type MethodCall struct {
	Target Node
	Name   string
	Args   []Node
}

func (n *MethodCall) Eval(c *Context) (Signal, error) {
	target, err := evalValue(c, n.Target)
	if err != nil {
		return Signal{}, err
	}
	args, err := evalArgs(c, n.Args)
	if err != nil {
		return Signal{}, err
	}
	if t, ok := target.(*Type); ok {
		return valueSignal(c.InvokeStatic(t, n.Name, args))
	}
	return valueSignal(c.InvokeMethod(target, n.Name, args))
}

func (n *MethodCall) StaticType(c *Context) (*Type, error) { return dynamicType(c, n) }

// Call is an unqualified `name(args)`: a method of the current receiver, a
// static method of the enclosing class, a builtin or a callable variable.
type Call struct {
	Name string
	Args []Node
}

func (n *Call) Eval(c *Context) (Signal, error) {
	args, err := evalArgs(c, n.Args)
	if err != nil {
		return Signal{}, err
	}
	return valueSignal(c.callName(n.Name, args))
}

func (c *Context) callName(name string, args []any) (any, error) {
	if name == "this" {
		return nil, c.ThisConstructor(args)
	}
	if inst, ok := c.thisInstance(); ok && inst.Class.hasMethod(name) {
		return c.invokeInstanceMethod(inst, name, args)
	}
	if def := c.enclosingClass(); def != nil && def.hasMethod(name) {
		return c.invokeStaticCustom(def, name, args)
	}
	if v, ok := c.GetVariable(name); ok {
		return c.CallFunctional(v.Value, args...)
	}
	if b, ok := c.Builtin(name); ok {
		return b(c, args)
	}
	return nil, undefinedError("Undefined function: %s", name)
}

func (n *Call) StaticType(c *Context) (*Type, error) { return dynamicType(c, n) }

// SuperCall is `super(args)` inside a constructor, or `super.name(args)`.
type SuperCall struct {
	Name string
	Args []Node
}

func (n *SuperCall) Eval(c *Context) (Signal, error) {
	args, err := evalArgs(c, n.Args)
	if err != nil {
		return Signal{}, err
	}
	if n.Name == "" {
		return Signal{}, c.SuperConstructor(args)
	}
	v, ok := c.GetVariable("this")
	if !ok {
		return Signal{}, execError("super.%s() called outside an instance method", n.Name)
	}
	inst, isInst := v.Value.(*Instance)
	if !isInst || v.Type == nil || v.Type.Custom == nil {
		return Signal{}, execError("super.%s() called outside an instance method", n.Name)
	}
	owner := v.Type.Custom
	if owner.Super == nil {
		m, err := c.resolveMethod(TypeObject, n.Name, args, false)
		if err != nil {
			return Signal{}, err
		}
		return valueSignal(c.host.Invoke(c, m, inst, args))
	}
	m, cls, err := c.resolveCustomMethod(owner.Super, n.Name, args)
	if err != nil {
		return Signal{}, err
	}
	return valueSignal(c.callCustomMethod(inst, cls, m, args))
}

func (n *SuperCall) StaticType(c *Context) (*Type, error) { return dynamicType(c, n) }

// DirectCall invokes the value of an expression: `f(x)`, `getF()(x)`.
type DirectCall struct {
	Fn   Node
	Args []Node
}

func (n *DirectCall) Eval(c *Context) (Signal, error) {
	fn, err := evalValue(c, n.Fn)
	if err != nil {
		return Signal{}, err
	}
	args, err := evalArgs(c, n.Args)
	if err != nil {
		return Signal{}, err
	}
	return valueSignal(c.CallFunctional(fn, args...))
}

func (n *DirectCall) StaticType(c *Context) (*Type, error) { return dynamicType(c, n) }

// NewObject is `new T(args)`.
type NewObject struct {
	TypeName string
	Args     []Node
}

func (n *NewObject) Eval(c *Context) (Signal, error) {
	t, err := c.FindClass(n.TypeName)
	if err != nil {
		return Signal{}, err
	}
	args, err := evalArgs(c, n.Args)
	if err != nil {
		return Signal{}, err
	}
	return valueSignal(c.NewInstance(t, args))
}

func (n *NewObject) StaticType(c *Context) (*Type, error) { return c.FindClass(n.TypeName) }

// ArrayCreation is `new T[d1][d2]...` with an optional `{...}` initializer.
// Dims holds one entry per dimension; nil entries are unspecified. Either
// every dimension is specified or none is.
type ArrayCreation struct {
	ElemName string
	Dims     []Node
	Init     *ArrayLiteral
}

func (n *ArrayCreation) arrayType(c *Context) (*Type, error) {
	t, err := c.FindClass(n.ElemName)
	if err != nil {
		return nil, err
	}
	for range n.Dims {
		t = ArrayOf(t)
	}
	return t, nil
}

func (n *ArrayCreation) Eval(c *Context) (Signal, error) {
	t, err := n.arrayType(c)
	if err != nil {
		return Signal{}, err
	}
	specified := n.Dims[0] != nil
	if !specified {
		if n.Init == nil {
			return Signal{}, typeError("Creating array with neither length nor initial value")
		}
		return valueSignal(c.buildArray(t, n.Init, nil))
	}
	sizes := make([]int, len(n.Dims))
	for i, d := range n.Dims {
		v, err := evalValue(c, d)
		if err != nil {
			return Signal{}, err
		}
		if !isIntegral(v) {
			return Signal{}, typeError("Array dimension must be an integer, got %s", c.valueType(v).Name)
		}
		size := toInt64(v)
		if size < 0 {
			return Signal{}, throwNew(TypeRuntimeException, "NegativeArraySizeException: %d", size)
		}
		sizes[i] = int(size)
	}
	if n.Init != nil {
		return valueSignal(c.buildArray(t, n.Init, sizes))
	}
	return Signal{Value: allocate(t, sizes)}, nil
}

func (n *ArrayCreation) StaticType(c *Context) (*Type, error) { return n.arrayType(c) }

func allocate(t *Type, sizes []int) *Array {
	arr := NewArray(t.Elem, sizes[0])
	if len(sizes) > 1 {
		for i := range arr.Values {
			arr.Values[i] = allocate(t.Elem, sizes[1:])
		}
	}
	return arr
}

// buildArray fills an array of type t from a literal, checking sizes when
// they were given.
func (c *Context) buildArray(t *Type, lit *ArrayLiteral, sizes []int) (*Array, error) {
	if sizes != nil && len(lit.Elems) != sizes[0] {
		return nil, newError(ErrCodeBounds, "Array dimensions do not match: expected %d elements, got %d", sizes[0], len(lit.Elems))
	}
	arr := &Array{Elem: t.Elem, Values: make([]any, len(lit.Elems))}
	for i, e := range lit.Elems {
		if t.Elem.IsArray() {
			inner, ok := e.(*ArrayLiteral)
			if !ok {
				v, err := evalValue(c, e)
				if err != nil {
					return nil, err
				}
				cv, err := c.Cast(v, t.Elem)
				if err != nil {
					return nil, typeError("Array dimensions do not match %s", t.Name)
				}
				arr.Values[i] = cv
				continue
			}
			var rest []int
			if sizes != nil {
				rest = sizes[1:]
			}
			sub, err := c.buildArray(t.Elem, inner, rest)
			if err != nil {
				return nil, err
			}
			arr.Values[i] = sub
			continue
		}
		if _, nested := e.(*ArrayLiteral); nested {
			return nil, typeError("Array dimensions do not match %s", t.Name)
		}
		v, err := evalValue(c, e)
		if err != nil {
			return nil, err
		}
		cv, err := c.Cast(v, t.Elem)
		if err != nil {
			return nil, err
		}
		arr.Values[i] = cv
	}
	return arr, nil
}

type ArrayAccess struct {
	Target Node
	Index  Node
}

func (n *ArrayAccess) Eval(c *Context) (Signal, error) {
	target, err := evalValue(c, n.Target)
	if err != nil {
		return Signal{}, err
	}
	idx, err := evalValue(c, n.Index)
	if err != nil {
		return Signal{}, err
	}
	return valueSignal(c.indexGet(target, idx))
}

func (c *Context) indexGet(target, idx any) (any, error) {
	switch x := target.(type) {
	case nil:
		return nil, nullError("Cannot access array element on null")
	case *HashMap:
		v, _ := x.Get(idx)
		return v, nil
	case *Array:
		i, err := c.index(idx)
		if err != nil {
			return nil, err
		}
		return x.Get(i)
	case *ArrayList:
		i, err := c.index(idx)
		if err != nil {
			return nil, err
		}
		return x.Get(i)
	case string:
		i, err := c.index(idx)
		if err != nil {
			return nil, err
		}
		r := []rune(x)
		if i < 0 || i >= len(r) {
			return nil, newError(ErrCodeBounds, "Index %d out of bounds for length %d", i, len(r))
		}
		return Char(r[i]), nil
	}
	return nil, typeError("Cannot index into %s", c.TypeOf(target).Name)
}

func (c *Context) index(v any) (int, error) {
	if v == nil {
		return 0, nullError("Array index is null")
	}
	if !isIntegral(v) {
		return 0, typeError("Array index must be an integer, got %s", c.TypeOf(v).Name)
	}
	return int(toInt64(v)), nil
}

func (c *Context) indexSet(target, idx, v any) error {
	switch x := target.(type) {
	case nil:
		return nullError("Cannot store array element on null")
	case *HashMap:
		x.Put(idx, v)
		return nil
	case *Array:
		i, err := c.index(idx)
		if err != nil {
			return err
		}
		cv, err := c.Cast(v, x.Elem)
		if err != nil {
			return err
		}
		return x.Set(i, cv)
	case *ArrayList:
		i, err := c.index(idx)
		if err != nil {
			return err
		}
		_, err = x.Set(i, v)
		return err
	}
	return typeError("Cannot index into %s", c.TypeOf(target).Name)
}

func (n *ArrayAccess) StaticType(c *Context) (*Type, error) {
	target, err := evalValue(c, n.Target)
	if err != nil {
		return nil, err
	}
	if arr, ok := target.(*Array); ok {
		return arr.Elem, nil
	}
	return TypeObject, nil
}

// Assign stores into a variable, field or array element. Compound
// assignments are parsed as `x = x op rhs`.
type Assign struct {
	Target Node
	Value  Node
}

func (n *Assign) Eval(c *Context) (Signal, error) {
	switch t := n.Target.(type) {
	case *VarRef:
		if err := c.checkAssignable(t.Name); err != nil {
			return Signal{}, err
		}
		v, err := evalValue(c, n.Value)
		if err != nil {
			return Signal{}, err
		}
		return Signal{Value: v}, c.assignName(t.Name, v)
	case *FieldAccess:
		target, err := evalValue(c, t.Target)
		if err != nil {
			return Signal{}, err
		}
		v, err := evalValue(c, n.Value)
		if err != nil {
			return Signal{}, err
		}
		if cls, ok := target.(*Type); ok {
			return Signal{Value: v}, c.SetStaticField(cls, t.Name, v)
		}
		return Signal{Value: v}, c.SetField(target, t.Name, v)
	case *ArrayAccess:
		target, err := evalValue(c, t.Target)
		if err != nil {
			return Signal{}, err
		}
		idx, err := evalValue(c, t.Index)
		if err != nil {
			return Signal{}, err
		}
		v, err := evalValue(c, n.Value)
		if err != nil {
			return Signal{}, err
		}
		return Signal{Value: v}, c.indexSet(target, idx, v)
	}
	return Signal{}, parseError("Invalid assignment target")
}

func (n *Assign) StaticType(c *Context) (*Type, error) { return n.Value.StaticType(c) }

func (c *Context) checkAssignable(name string) error {
	if c.HasBuiltin(name) {
		return typeError("Shadowing built-in: %s", name)
	}
	if c.HasCustomClass(name) {
		return typeError("Variable name conflicts with class name: %s", name)
	}
	return nil
}

// assignName re-binds a variable. The value must convert to the declared
// type, but the stored value is the one assigned, unconverted.
func (c *Context) assignName(name string, v any) error {
	if old, ok := c.GetVariable(name); ok {
		if _, err := c.Cast(v, old.Type); err != nil {
			return typeError("Type mismatch: %s(%s vs %s)", name, old.Type.Name, c.valueType(v).Name)
		}
		return c.SetVariable(name, v)
	}
	if inst, ok := c.thisInstance(); ok {
		if _, ok := inst.Fields[name]; ok {
			return c.SetField(inst, name, v)
		}
	}
	if def := c.enclosingClass(); def != nil {
		if cls, old, ok := def.findStatic(name); ok {
			return c.setStatic(cls, name, old, v)
		}
	}
	return undefinedError("Variable not declared: %s", name)
}

// Increment is `++x`, `x--` and friends on variables, fields and array
// elements.
type Increment struct {
	Target Node
	Delta  int64
	Prefix bool
}

func (n *Increment) Eval(c *Context) (Signal, error) {
	var (
		old   any
		err   error
		store func(any) error
	)
	switch t := n.Target.(type) {
	case *VarRef:
		old, err = c.lookupName(t.Name)
		store = func(v any) error { return c.assignName(t.Name, v) }
	case *FieldAccess:
		var target any
		target, err = evalValue(c, t.Target)
		if err != nil {
			return Signal{}, err
		}
		if cls, ok := target.(*Type); ok {
			old, err = c.GetStaticField(cls, t.Name)
			store = func(v any) error { return c.SetStaticField(cls, t.Name, v) }
		} else {
			old, err = c.GetField(target, t.Name)
			store = func(v any) error { return c.SetField(target, t.Name, v) }
		}
	case *ArrayAccess:
		var target, idx any
		if target, err = evalValue(c, t.Target); err != nil {
			return Signal{}, err
		}
		if idx, err = evalValue(c, t.Index); err != nil {
			return Signal{}, err
		}
		old, err = c.indexGet(target, idx)
		store = func(v any) error { return c.indexSet(target, idx, v) }
	default:
		return Signal{}, parseError("Invalid increment target")
	}
	if err != nil {
		return Signal{}, err
	}
	next, err := step(old, n.Delta)
	if err != nil {
		return Signal{}, err
	}
	if err := store(next); err != nil {
		return Signal{}, err
	}
	if n.Prefix {
		return Signal{Value: next}, nil
	}
	return Signal{Value: old}, nil
}

func (n *Increment) StaticType(c *Context) (*Type, error) { return n.Target.StaticType(c) }

type Ternary struct {
	Cond, Then, Else Node
}

func (n *Ternary) Eval(c *Context) (Signal, error) {
	if a, ok := knownType(c, n.Then); ok {
		if b, ok := knownType(c, n.Else); ok {
			if _, err := ternaryType(a, b); err != nil {
				return Signal{}, err
			}
		}
	}
	cond, err := evalValue(c, n.Cond)
	if err != nil {
		return Signal{}, err
	}
	if toBoolean(cond) {
		return valueSignal(evalValue(c, n.Then))
	}
	return valueSignal(evalValue(c, n.Else))
}

// StaticType requires both branches to agree: equal, assignable one way or
// both numeric.
func (n *Ternary) StaticType(c *Context) (*Type, error) {
	a, err := n.Then.StaticType(c)
	if err != nil {
		return nil, err
	}
	b, err := n.Else.StaticType(c)
	if err != nil {
		return nil, err
	}
	return ternaryType(a, b)
}

func ternaryType(a, b *Type) (*Type, error) {
	switch {
	case a == b:
		return a, nil
	case a.IsNumeric() && b.IsNumeric():
		return resultType("+", a, b), nil
	case a.Boxed().AssignableFrom(b.Boxed()):
		return a.Boxed(), nil
	case b.Boxed().AssignableFrom(a.Boxed()):
		return b.Boxed(), nil
	}
	return nil, typeError("Incompatible ternary branches: %s and %s", a.Name, b.Name)
}

// knownType reports the type of n when it can be found without evaluating
// anything.
func knownType(c *Context, n Node) (*Type, bool) {
	switch x := n.(type) {
	case *Literal:
		t, err := x.StaticType(c)
		return t, err == nil
	case *VarRef:
		if v, ok := c.GetVariable(x.Name); ok && v.Type != nil {
			return v.Type, true
		}
	case *Paren:
		return knownType(c, x.Expr)
	case *Cast:
		t, err := c.FindClass(x.TypeName)
		return t, err == nil
	case *NewObject:
		t, err := c.FindClass(x.TypeName)
		return t, err == nil
	case *Unary:
		if x.Op == "!" {
			return TypeBoolean, true
		}
		if t, ok := knownType(c, x.Operand); ok {
			return resultType("+", t, TypeInt), true
		}
	case *Binary:
		l, lok := knownType(c, x.Left)
		r, rok := knownType(c, x.Right)
		if lok && rok {
			return resultType(x.Op, l, r), true
		}
	}
	return nil, false
}

type Paren struct {
	Expr Node
}

func (n *Paren) Eval(c *Context) (Signal, error) { return valueSignal(evalValue(c, n.Expr)) }

func (n *Paren) StaticType(c *Context) (*Type, error) { return n.Expr.StaticType(c) }

type Cast struct {
	TypeName string
	Expr     Node
}

func (n *Cast) Eval(c *Context) (Signal, error) {
	t, err := c.FindClass(n.TypeName)
	if err != nil {
		return Signal{}, err
	}
	v, err := evalValue(c, n.Expr)
	if err != nil {
		return Signal{}, err
	}
	return valueSignal(c.Cast(v, t))
}

func (n *Cast) StaticType(c *Context) (*Type, error) { return c.FindClass(n.TypeName) }

// LambdaExpr creates a closure over the scope it is evaluated in.
type LambdaExpr struct {
	Params []string
	Body   Node
	Expr   bool
}

func (n *LambdaExpr) Eval(c *Context) (Signal, error) {
	return Signal{Value: &Lambda{Params: n.Params, Body: n.Body, Expr: n.Expr, scope: c.current}}, nil
}

func (n *LambdaExpr) StaticType(*Context) (*Type, error) { return TypeLambda, nil }

// MethodRef is `target::name`.
type MethodRef struct {
	Target Node
	Name   string
}

func (n *MethodRef) Eval(c *Context) (Signal, error) {
	target, err := evalValue(c, n.Target)
	if err != nil {
		return Signal{}, err
	}
	if target == nil {
		return Signal{}, nullError("Cannot reference method %s of null", n.Name)
	}
	return Signal{Value: c.MethodReference(target, n.Name)}, nil
}

func (n *MethodRef) StaticType(*Context) (*Type, error) { return TypeLambda, nil }

// dynamicType evaluates n and reports the runtime type of the result.
func dynamicType(c *Context, n Node) (*Type, error) {
	v, err := evalValue(c, n)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return TypeObject, nil
	}
	return c.TypeOf(v), nil
}

