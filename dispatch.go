package script

import (
	"strings"
)

func (c *Context) argTypes(args []any) []*Type {
	types := make([]*Type, len(args))
	for i, a := range args {
		if a != nil {
			types[i] = c.TypeOf(a)
		}
	}
	return types
}

func signatureKey(t *Type, name string, types []*Type, static bool) string {
	var sb strings.Builder
	sb.WriteString(t.Name)
	sb.WriteByte('#')
	sb.WriteString(name)
	sb.WriteByte('(')
	for i, a := range types {
		if i > 0 {
			sb.WriteByte(',')
		}
		if a == nil {
			sb.WriteString("null")
			continue
		}
		sb.WriteString(a.Name)
	}
	sb.WriteByte(')')
	if static {
		sb.WriteString("static")
	}
	return sb.String()
}

func paramAccepts(param, arg *Type) bool {
	if isTypeCompatible(param, arg) {
		return true
	}
	return arg == TypeLambda && param.Functional != ""
}

func paramWidens(param, arg *Type) bool {
	return paramAccepts(param, arg) || isWideningCompatible(param, arg)
}

// applicable reports whether m accepts types. Varargs methods are tried in
// fixed-arity form first and then with the trailing arguments packed.
func applicable(m *HostMethod, types []*Type, accepts func(param, arg *Type) bool) bool {
	n := len(m.Params)
	if len(types) == n {
		ok := true
		for i, p := range m.Params {
			if !accepts(p, types[i]) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	if !m.Varargs || len(types) < n-1 {
		return false
	}
	for i := 0; i < n-1; i++ {
		if !accepts(m.Params[i], types[i]) {
			return false
		}
	}
	comp := m.Params[n-1].Elem
	for _, a := range types[n-1:] {
		if !accepts(comp, a) {
			return false
		}
	}
	return true
}

// pick applies the fixed-arity-first preference to candidates.
func pick(candidates []*HostMethod, types []*Type, accepts func(param, arg *Type) bool) *HostMethod {
	for _, m := range candidates {
		if !m.Varargs && applicable(m, types, accepts) {
			return m
		}
	}
	for _, m := range candidates {
		if m.Varargs && applicable(m, types, accepts) {
			return m
		}
	}
	return nil
}

func accessible(methods []*HostMethod) []*HostMethod {
	var public []*HostMethod
	for _, m := range methods {
		if !m.Private {
			public = append(public, m)
		}
	}
	if len(public) == 0 {
		return methods
	}
	return public
}

// resolveMethod selects the host method name of t applicable to args.
// Order: accessible methods of the class chain with fixed arity preferred
// over varargs, then public methods of the transitive interfaces, then
// primitive widening over both sets.
func (c *Context) resolveMethod(t *Type, name string, args []any, static bool) (*HostMethod, error) {
	types := c.argTypes(args)
	key := signatureKey(t, name, types, static)
	if v, ok := c.methodCache.Get(key); ok {
		return v.(*HostMethod), nil
	}
	keep := func(ms []*HostMethod) []*HostMethod {
		if !static {
			return ms
		}
		var out []*HostMethod
		for _, m := range ms {
			if m.Static {
				out = append(out, m)
			}
		}
		return out
	}
	var declared []*HostMethod
	for s := t; s != nil; s = s.Super {
		declared = append(declared, keep(c.host.ResolveMethods(s, name))...)
	}
	if t.Interface {
		declared = append(declared, keep(c.host.ResolveMethods(TypeObject, name))...)
	}
	declared = accessible(declared)
	m := pick(declared, types, paramAccepts)

	var inherited []*HostMethod
	if m == nil {
		for _, iface := range t.AllInterfaces() {
			for _, im := range keep(c.host.ResolveMethods(iface, name)) {
				if !im.Private {
					inherited = append(inherited, im)
				}
			}
		}
		m = pick(inherited, types, paramAccepts)
	}
	if m == nil {
		m = pick(append(declared, inherited...), types, paramWidens)
	}
	if m == nil {
		e := dispatchError("Method not found: %s.%s%s", t.Name, name, describeArgs(c, args))
		for _, cand := range append(declared, inherited...) {
			e.Details = append(e.Details, cand.Owner.Name+"."+cand.Signature())
		}
		return nil, e
	}
	c.methodCache.Set(key, m, 1)
	return m, nil
}

func (c *Context) resolveConstructor(t *Type, args []any) (*HostMethod, error) {
	types := c.argTypes(args)
	key := signatureKey(t, "<init>", types, false)
	if v, ok := c.methodCache.Get(key); ok {
		return v.(*HostMethod), nil
	}
	ctors := accessible(c.host.Constructors(t))
	m := pick(ctors, types, paramAccepts)
	if m == nil {
		m = pick(ctors, types, paramWidens)
	}
	if m == nil {
		e := dispatchError("Constructor not found: %s%s", t.Name, describeArgs(c, args))
		for _, cand := range ctors {
			e.Details = append(e.Details, t.Name+"."+cand.Signature())
		}
		return nil, e
	}
	c.methodCache.Set(key, m, 1)
	return m, nil
}

// prepareArgs converts args to the parameter types of m, packing trailing
// varargs into an array of the component type.
func (c *Context) prepareArgs(m *HostMethod, args []any) ([]any, error) {
	n := len(m.Params)
	if !m.Varargs {
		out := make([]any, len(args))
		for i, a := range args {
			v, err := c.Cast(a, m.Params[i])
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	last := m.Params[n-1]
	comp := last.Elem
	out := make([]any, 0, n)
	for i := 0; i < n-1; i++ {
		v, err := c.Cast(args[i], m.Params[i])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if len(args) == n && !comp.IsArray() {
		tail := args[n-1]
		if _, isArray := tail.(*Array); isArray && isTypeCompatible(last, c.TypeOf(tail)) {
			return append(out, tail), nil
		}
	}
	rest := args[n-1:]
	packed := NewArray(comp, len(rest))
	for i, a := range rest {
		v, err := c.Cast(a, comp)
		if err != nil {
			return nil, err
		}
		packed.Values[i] = v
	}
	return append(out, packed), nil
}

// InvokeMethod calls name on recv. Script instances dispatch to their class
// hierarchy; everything else goes through the host binding.
func (c *Context) InvokeMethod(recv any, name string, args []any) (any, error) {
	if recv == nil {
		return nil, nullError("Cannot invoke \"%s()\" because the receiver is null", name)
	}
	if inst, ok := recv.(*Instance); ok {
		if inst.Class.hasMethod(name) {
			return c.invokeInstanceMethod(inst, name, args)
		}
		if len(c.host.ResolveMethods(TypeObject, name)) == 0 {
			return nil, dispatchError("Method %s not found in class hierarchy of %s", name, inst.Class.Name)
		}
	}
	t := c.TypeOf(recv)
	m, err := c.resolveMethod(t, name, args, false)
	if err != nil {
		if l, ok := recv.(*Lambda); ok {
			return l.Call(c, args)
		}
		return nil, err
	}
	prepared, err := c.prepareArgs(m, args)
	if err != nil {
		return nil, err
	}
	return c.host.Invoke(c, m, recv, prepared)
}

// InvokeStatic calls a static method of t. Host classes without a matching
// static method fall back to the methods of the class object itself.
func (c *Context) InvokeStatic(t *Type, name string, args []any) (any, error) {
	if t.Custom != nil {
		return c.invokeStaticCustom(t.Custom, name, args)
	}
	m, err := c.resolveMethod(t, name, args, true)
	if err != nil {
		cm, cerr := c.resolveMethod(TypeClass, name, args, false)
		if cerr != nil {
			return nil, err
		}
		prepared, perr := c.prepareArgs(cm, args)
		if perr != nil {
			return nil, perr
		}
		return c.host.Invoke(c, cm, t, prepared)
	}
	prepared, err := c.prepareArgs(m, args)
	if err != nil {
		return nil, err
	}
	return c.host.Invoke(c, m, nil, prepared)
}

// NewInstance constructs an object of t.
func (c *Context) NewInstance(t *Type, args []any) (any, error) {
	if t.Custom != nil {
		return c.Instantiate(t.Custom, args)
	}
	if t.Interface {
		return nil, dispatchError("Cannot instantiate interface %s", t.Name)
	}
	if t.IsPrimitive() {
		return nil, typeError("Cannot instantiate primitive type %s", t.Name)
	}
	m, err := c.resolveConstructor(t, args)
	if err != nil {
		return nil, err
	}
	prepared, err := c.prepareArgs(m, args)
	if err != nil {
		return nil, err
	}
	return c.host.Invoke(c, m, nil, prepared)
}

// GetField reads a field of recv. Arrays expose `length`.
func (c *Context) GetField(recv any, name string) (any, error) {
	switch x := recv.(type) {
	case nil:
		return nil, nullError("Cannot read field \"%s\" because the value is null", name)
	case *Instance:
		if v, ok := x.Fields[name]; ok {
			return v.Value, nil
		}
		if _, v, ok := x.Class.findStatic(name); ok {
			return v.Value, nil
		}
		return nil, undefinedError("Field %s not found in class hierarchy of %s", name, x.Class.Name)
	case *Array:
		if name == "length" {
			return int32(len(x.Values)), nil
		}
	}
	t := c.TypeOf(recv)
	f, ok := c.host.ResolveField(t, name)
	if !ok {
		return nil, dispatchError("Field not found: %s.%s", t.Name, name)
	}
	return f.Get(c, recv)
}

func (c *Context) SetField(recv any, name string, v any) error {
	switch x := recv.(type) {
	case nil:
		return nullError("Cannot assign field \"%s\" because the value is null", name)
	case *Instance:
		if old, ok := x.Fields[name]; ok {
			cast, err := c.Cast(v, old.Type)
			if err != nil {
				return err
			}
			x.Fields[name] = &Variable{Value: cast, Type: old.Type}
			return nil
		}
		if cls, old, ok := x.Class.findStatic(name); ok {
			return c.setStatic(cls, name, old, v)
		}
		return undefinedError("Field %s not found in class hierarchy of %s", name, x.Class.Name)
	case *Array:
		if name == "length" {
			return typeError("Cannot assign a value to final variable length")
		}
	}
	t := c.TypeOf(recv)
	f, ok := c.host.ResolveField(t, name)
	if !ok {
		return dispatchError("Field not found: %s.%s", t.Name, name)
	}
	return c.setHostField(f, recv, v)
}

func (c *Context) setHostField(f *HostField, recv any, v any) error {
	if f.Set == nil {
		return typeError("Cannot assign a value to final variable %s", f.Name)
	}
	cast, err := c.Cast(v, f.Type)
	if err != nil {
		return err
	}
	return f.Set(c, recv, cast)
}

func (c *Context) setStatic(cls *ClassDefinition, name string, old *Variable, v any) error {
	cast, err := c.Cast(v, old.Type)
	if err != nil {
		return err
	}
	cls.statics[name] = &Variable{Value: cast, Type: old.Type}
	return nil
}

// GetStaticField reads a static field of t.
func (c *Context) GetStaticField(t *Type, name string) (any, error) {
	if t.Custom != nil {
		if _, v, ok := t.Custom.findStatic(name); ok {
			return v.Value, nil
		}
		return nil, undefinedError("Static field %s not found in class hierarchy of %s", name, t.Name)
	}
	f, ok := c.host.ResolveField(t, name)
	if !ok || !f.Static {
		return nil, dispatchError("Static field not found: %s.%s", t.Name, name)
	}
	return f.Get(c, nil)
}

func (c *Context) SetStaticField(t *Type, name string, v any) error {
	if t.Custom != nil {
		cls, old, ok := t.Custom.findStatic(name)
		if !ok {
			return undefinedError("Static field %s not found in class hierarchy of %s", name, t.Name)
		}
		return c.setStatic(cls, name, old, v)
	}
	f, ok := c.host.ResolveField(t, name)
	if !ok || !f.Static {
		return dispatchError("Static field not found: %s.%s", t.Name, name)
	}
	return c.setHostField(f, nil, v)
}

// MethodReference builds the callable for `target::name`. A class target
// binds static methods, or the first argument as receiver when no static
// method applies; `Type::new` constructs instances.
func (c *Context) MethodReference(target any, name string) *Lambda {
	return &Lambda{
		Params:   []string{"args"},
		Variadic: true,
		Native: func(c *Context, args []any) (any, error) {
			t, isClass := target.(*Type)
			if !isClass {
				return c.InvokeMethod(target, name, args)
			}
			if name == "new" {
				return c.NewInstance(t, args)
			}
			v, err := c.InvokeStatic(t, name, args)
			if err == nil || len(args) == 0 {
				return v, err
			}
			if se, ok := err.(*ScriptError); !ok || se.Code != ErrCodeDispatch {
				return nil, err
			}
			return c.InvokeMethod(args[0], name, args[1:])
		},
	}
}
