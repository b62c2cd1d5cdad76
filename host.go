package script

import (
	"fmt"
	"strings"
	"sync"
)

// HostFunc implements a host method. recv is nil for static methods and
// constructors; args are already converted to the declared parameter types.
type HostFunc func(c *Context, recv any, args []any) (any, error)

type HostMethod struct {
	Owner    *Type
	Name     string
	Params   []*Type
	Varargs  bool
	Static   bool
	Private  bool
	Abstract bool
	Returns  *Type
	Fn       HostFunc
}

func (m *HostMethod) Signature() string {
	parts := make([]string, len(m.Params))
	for i, p := range m.Params {
		if m.Varargs && i == len(m.Params)-1 && p.Elem != nil {
			parts[i] = p.Elem.Name + "..."
			continue
		}
		parts[i] = p.Name
	}
	return fmt.Sprintf("%s(%s)", m.Name, strings.Join(parts, ", "))
}

type HostField struct {
	Owner  *Type
	Name   string
	Type   *Type
	Static bool
	Get    func(c *Context, recv any) (any, error)
	// Set is nil for final fields.
	Set func(c *Context, recv any, v any) error
}

// HostBinding is the host type system the interpreter resolves classes,
// members and invocations against.
type HostBinding interface {
	FindClass(name string) (*Type, bool)
	TypeOf(v any) *Type
	// ResolveMethods returns the methods named name declared directly on t.
	ResolveMethods(t *Type, name string) []*HostMethod
	// ResolveField searches t and its superclasses.
	ResolveField(t *Type, name string) (*HostField, bool)
	Constructors(t *Type) []*HostMethod
	Invoke(c *Context, m *HostMethod, recv any, args []any) (any, error)
}

// ClassSpec describes a host class registered by an embedding application.
type ClassSpec struct {
	Name         string
	Super        string
	Interfaces   []string
	Interface    bool
	Functional   string
	Methods      []*HostMethod
	Fields       []*HostField
	Constructors []*HostMethod
	// Match reports whether a Go value is an instance of the class.
	Match func(any) bool
}

type HostRegistry struct {
	mu       sync.RWMutex
	classes  map[string]*Type
	matchers []*Type
}

func NewHostRegistry() *HostRegistry {
	r := &HostRegistry{classes: make(map[string]*Type)}
	for _, t := range standardLibrary() {
		r.add(t)
	}
	return r
}

func (r *HostRegistry) add(t *Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[t.Name] = t
	if t.match != nil {
		r.matchers = append([]*Type{t}, r.matchers...)
	}
}

// Register adds a host class. Super and interface names must already be
// registered.
func (r *HostRegistry) Register(spec *ClassSpec) (*Type, error) {
	if spec == nil || strings.TrimSpace(spec.Name) == "" {
		return nil, &ScriptError{Code: ErrCodeRegistry, Message: "class name is required"}
	}
	if _, exists := r.FindClass(spec.Name); exists {
		return nil, &ScriptError{Code: ErrCodeRegistry, Message: fmt.Sprintf("class %s already registered", spec.Name)}
	}
	var super *Type
	if !spec.Interface {
		super = TypeObject
		if spec.Super != "" {
			s, ok := r.FindClass(spec.Super)
			if !ok {
				return nil, &ScriptError{Code: ErrCodeRegistry, Message: fmt.Sprintf("superclass %s not registered", spec.Super)}
			}
			super = s
		}
	}
	var ifaces []*Type
	for _, name := range spec.Interfaces {
		i, ok := r.FindClass(name)
		if !ok || !i.Interface {
			return nil, &ScriptError{Code: ErrCodeRegistry, Message: fmt.Sprintf("interface %s not registered", name)}
		}
		ifaces = append(ifaces, i)
	}
	t := newType(spec.Name, super, ifaces...)
	t.Interface = spec.Interface
	t.Functional = spec.Functional
	t.match = spec.Match
	for _, m := range spec.Methods {
		t.addMethod(m)
	}
	for _, f := range spec.Fields {
		t.addField(f)
	}
	for _, m := range spec.Constructors {
		t.addConstructor(m)
	}
	if i := strings.LastIndex(spec.Name, "$"); i > 0 {
		if outer, ok := r.FindClass(spec.Name[:i]); ok {
			outer.addNested(t)
		}
	}
	r.add(t)
	return t, nil
}

func (r *HostRegistry) FindClass(name string) (*Type, bool) {
	if t, ok := PrimitiveType(name); ok {
		return t, true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.classes[name]
	return t, ok
}

func (r *HostRegistry) ClassNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.classes))
	for n := range r.classes {
		names = append(names, n)
	}
	return names
}

func (r *HostRegistry) TypeOf(v any) *Type {
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		return TypeBooleanW
	case Char:
		return TypeCharacter
	case int8:
		return TypeByteW
	case int16:
		return TypeShortW
	case int32:
		return TypeInteger
	case int64:
		return TypeLongW
	case float32:
		return TypeFloatW
	case float64:
		return TypeDoubleW
	case string:
		return TypeString
	case *Array:
		return ArrayOf(x.Elem)
	case *ArrayList:
		return TypeArrayList
	case *HashMap:
		return TypeHashMap
	case *StringBuilder:
		return TypeStringBuilder
	case *Throwable:
		return x.Class
	case *Instance:
		return x.Class.Type
	case *Lambda:
		return TypeLambda
	case *FunctionalObject:
		return x.Iface
	case *Type:
		return TypeClass
	case *PrintStream:
		return TypePrintStream
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.matchers {
		if t.match(v) {
			return t
		}
	}
	return TypeObject
}

func (r *HostRegistry) ResolveMethods(t *Type, name string) []*HostMethod {
	return t.declaredMethods(name)
}

func (r *HostRegistry) ResolveField(t *Type, name string) (*HostField, bool) {
	for s := t; s != nil; s = s.Super {
		if f, ok := s.declaredField(name); ok {
			return f, true
		}
	}
	for _, i := range t.AllInterfaces() {
		if f, ok := i.declaredField(name); ok && f.Static {
			return f, true
		}
	}
	return nil, false
}

func (r *HostRegistry) Constructors(t *Type) []*HostMethod {
	return t.constructors()
}

func (r *HostRegistry) Invoke(c *Context, m *HostMethod, recv any, args []any) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			class := TypeRuntimeException
			for _, a := range args {
				if a == nil {
					class = TypeNullPointer
				}
			}
			result, err = nil, throwNew(class, "%s.%s: %v", m.Owner.SimpleName(), m.Name, p)
		}
	}()
	if m.Fn != nil {
		return m.Fn(c, recv, args)
	}
	if fo, ok := recv.(*FunctionalObject); ok && m.Abstract {
		return fo.Lambda.Call(c, args)
	}
	if l, ok := recv.(*Lambda); ok && m.Abstract {
		return l.Call(c, args)
	}
	if inst, ok := recv.(*Instance); ok && m.Abstract {
		return c.invokeInstanceMethod(inst, m.Name, args)
	}
	return nil, dispatchError("Abstract method %s.%s cannot be invoked", m.Owner.Name, m.Signature())
}
