package script

import (
	"fmt"
	"strings"
)

// Lambda is a script closure. Script lambdas run in a child of the scope
// they were created in; native lambdas wrap a Go function.
type Lambda struct {
	Params []string
	Body   Node
	// Expr marks an expression body whose value is the result.
	Expr bool
	// Variadic lambdas accept any argument count; method references are
	// built this way.
	Variadic bool
	Native   func(c *Context, args []any) (any, error)

	scope *scope
}

func (l *Lambda) String() string {
	return "Lambda(" + strings.Join(l.Params, ", ") + ")"
}

func (l *Lambda) Call(c *Context, args []any) (any, error) {
	if !l.Variadic && len(args) != len(l.Params) {
		return nil, typeError("Lambda expects %d argument(s) but got %d", len(l.Params), len(args))
	}
	release, err := c.enterCall()
	if err != nil {
		return nil, err
	}
	defer release()
	if l.Native != nil {
		return l.Native(c, args)
	}
	parent := l.scope
	if parent == nil {
		parent = c.global
	}
	c.pushReturnType(nil)
	defer c.popReturnType()
	sig, err := c.withScope(parent, func() (Signal, error) {
		for i, name := range l.Params {
			c.DeclareVariable(name, TypeObject, args[i])
		}
		if l.Expr {
			v, err := evalValue(c, l.Body)
			return Signal{Value: v}, err
		}
		return l.Body.Eval(c)
	})
	if err != nil {
		return nil, err
	}
	if l.Expr || sig.Kind == SignalReturn {
		return sig.Value, nil
	}
	return nil, nil
}

// FunctionalObject is a lambda adapted to a functional interface. It
// forwards the interface's abstract method to the lambda.
type FunctionalObject struct {
	Iface  *Type
	Lambda *Lambda
}

func (f *FunctionalObject) String() string {
	return f.Iface.SimpleName() + "$$Lambda"
}

func samOf(iface *Type) (*HostMethod, bool) {
	candidates := append([]*Type{iface}, iface.AllInterfaces()...)
	for _, t := range candidates {
		for _, m := range t.declaredMethods(iface.Functional) {
			if m.Abstract {
				return m, true
			}
		}
	}
	return nil, false
}

// AdaptLambda wraps l so it satisfies the functional interface iface. The
// lambda must take exactly as many parameters as the abstract method.
func (c *Context) AdaptLambda(l *Lambda, iface *Type) (any, error) {
	if l == nil {
		return nil, nil
	}
	if iface == nil {
		return nil, typeError("Cannot adapt a lambda to an unknown interface")
	}
	if iface.Functional == "" {
		return nil, typeError("%s is not a functional interface", iface.Name)
	}
	sam, ok := samOf(iface)
	if !ok {
		return nil, typeError("%s declares no abstract method %s", iface.Name, iface.Functional)
	}
	if !l.Variadic && len(sam.Params) != len(l.Params) {
		return nil, typeError("Lambda with %d parameter(s) cannot implement %s.%s", len(l.Params), iface.SimpleName(), sam.Signature())
	}
	return &FunctionalObject{Iface: iface, Lambda: l}, nil
}

// CallFunctional invokes anything callable: lambdas, adapted lambdas, host
// objects implementing a functional interface and script instances that
// declare one.
func (c *Context) CallFunctional(f any, args ...any) (any, error) {
	switch x := f.(type) {
	case nil:
		return nil, nullError("Cannot invoke a null function")
	case *Lambda:
		return x.Call(c, args)
	case *FunctionalObject:
		return x.Lambda.Call(c, args)
	case *Instance:
		for _, cls := range x.Class.chain() {
			for _, name := range cls.Interfaces {
				t, err := c.FindClass(name)
				if err != nil || t.Functional == "" {
					continue
				}
				if x.Class.hasMethod(t.Functional) {
					return c.invokeInstanceMethod(x, t.Functional, args)
				}
			}
		}
		return nil, dispatchError("%s does not implement a functional interface", x.Class.Name)
	}
	t := c.TypeOf(f)
	for _, iface := range t.AllInterfaces() {
		if iface.Functional != "" {
			return c.InvokeMethod(f, iface.Functional, args)
		}
	}
	return nil, dispatchError("%s is not callable", t.Name)
}

// iterate returns the elements a for-each loop visits.
func (c *Context) iterate(v any) ([]any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nullError("Cannot iterate over null")
	case *Array:
		return append([]any(nil), x.Values...), nil
	case *ArrayList:
		return append([]any(nil), x.Values...), nil
	case string:
		out := make([]any, 0, len(x))
		for _, r := range x {
			out = append(out, Char(r))
		}
		return out, nil
	case *HashMap:
		out := make([]any, 0, x.Len())
		for _, k := range x.Keys() {
			val, _ := x.Get(k)
			out = append(out, &MapEntry{Key: k, Value: val})
		}
		return out, nil
	}
	return nil, typeError("Cannot iterate over %s", c.TypeOf(v).Name)
}

func describeArgs(c *Context, args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if a == nil {
			parts[i] = "null"
			continue
		}
		parts[i] = c.TypeOf(a).SimpleName()
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
}
