package script

import (
	"strings"
	"sync"
)

type Kind uint8

const (
	KindObject Kind = iota
	KindVoid
	KindBoolean
	KindChar
	KindByte
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
)

// Type is a class object: a primitive, a host class or interface, an array
// type or a class declared by a script.
type Type struct {
	Name       string
	Kind       Kind
	Elem       *Type
	Super      *Type
	Interfaces []*Type
	Interface  bool
	// Functional names the single abstract method of a functional interface.
	Functional string
	Custom     *ClassDefinition

	primitive *Type
	wrapper   *Type

	mu      sync.RWMutex
	methods map[string][]*HostMethod
	fields  map[string]*HostField
	ctors   []*HostMethod
	nested  map[string]*Type
	match   func(any) bool
}

func newType(name string, super *Type, ifaces ...*Type) *Type {
	return &Type{
		Name:       name,
		Super:      super,
		Interfaces: ifaces,
		methods:    make(map[string][]*HostMethod),
		fields:     make(map[string]*HostField),
		nested:     make(map[string]*Type),
	}
}

func newInterface(name string, ifaces ...*Type) *Type {
	t := newType(name, nil, ifaces...)
	t.Interface = true
	return t
}

func newPrimitive(name string, kind Kind) *Type {
	return &Type{Name: name, Kind: kind}
}

var (
	TypeVoid    = newPrimitive("void", KindVoid)
	TypeBoolean = newPrimitive("boolean", KindBoolean)
	TypeChar    = newPrimitive("char", KindChar)
	TypeByte    = newPrimitive("byte", KindByte)
	TypeShort   = newPrimitive("short", KindShort)
	TypeInt     = newPrimitive("int", KindInt)
	TypeLong    = newPrimitive("long", KindLong)
	TypeFloat   = newPrimitive("float", KindFloat)
	TypeDouble  = newPrimitive("double", KindDouble)

	TypeObject       = newType("java.lang.Object", nil)
	TypeComparable   = newInterface("java.lang.Comparable")
	TypeCharSequence = newInterface("java.lang.CharSequence")
	TypeString       = newType("java.lang.String", TypeObject, TypeCharSequence, TypeComparable)
	TypeNumber       = newType("java.lang.Number", TypeObject)
	TypeBooleanW     = newType("java.lang.Boolean", TypeObject, TypeComparable)
	TypeCharacter    = newType("java.lang.Character", TypeObject, TypeComparable)
	TypeByteW        = newType("java.lang.Byte", TypeNumber, TypeComparable)
	TypeShortW       = newType("java.lang.Short", TypeNumber, TypeComparable)
	TypeInteger      = newType("java.lang.Integer", TypeNumber, TypeComparable)
	TypeLongW        = newType("java.lang.Long", TypeNumber, TypeComparable)
	TypeFloatW       = newType("java.lang.Float", TypeNumber, TypeComparable)
	TypeDoubleW      = newType("java.lang.Double", TypeNumber, TypeComparable)
	TypeVoidW        = newType("java.lang.Void", TypeObject)
	TypeClass        = newType("java.lang.Class", TypeObject)
)

var primitiveTypes = map[string]*Type{
	"void":    TypeVoid,
	"boolean": TypeBoolean,
	"char":    TypeChar,
	"byte":    TypeByte,
	"short":   TypeShort,
	"int":     TypeInt,
	"long":    TypeLong,
	"float":   TypeFloat,
	"double":  TypeDouble,
}

func init() {
	box := func(p, w *Type) {
		p.wrapper = w
		w.primitive = p
	}
	box(TypeVoid, TypeVoidW)
	box(TypeBoolean, TypeBooleanW)
	box(TypeChar, TypeCharacter)
	box(TypeByte, TypeByteW)
	box(TypeShort, TypeShortW)
	box(TypeInt, TypeInteger)
	box(TypeLong, TypeLongW)
	box(TypeFloat, TypeFloatW)
	box(TypeDouble, TypeDoubleW)
}

func PrimitiveType(name string) (*Type, bool) {
	t, ok := primitiveTypes[name]
	return t, ok
}

func (t *Type) IsPrimitive() bool {
	return t != nil && t.Kind != KindObject
}

func (t *Type) IsArray() bool {
	return t != nil && t.Elem != nil
}

func (t *Type) IsNumeric() bool {
	if t == nil {
		return false
	}
	p := t.Unboxed()
	return p.Kind >= KindByte && p.Kind <= KindDouble
}

// Boxed returns the wrapper class of a primitive, or t itself.
func (t *Type) Boxed() *Type {
	if t != nil && t.wrapper != nil {
		return t.wrapper
	}
	return t
}

// Unboxed returns the primitive of a wrapper class, or t itself.
func (t *Type) Unboxed() *Type {
	if t != nil && t.primitive != nil {
		return t.primitive
	}
	return t
}

func (t *Type) SimpleName() string {
	if t == nil {
		return "null"
	}
	if t.Elem != nil {
		return t.Elem.SimpleName() + "[]"
	}
	if i := strings.LastIndexAny(t.Name, ".$"); i >= 0 {
		return t.Name[i+1:]
	}
	return t.Name
}

func (t *Type) String() string {
	if t == nil {
		return "null"
	}
	switch {
	case t.IsPrimitive():
		return t.Name
	case t.Interface:
		return "interface " + t.Name
	default:
		return "class " + t.Name
	}
}

// Dimensions reports the array nesting depth of t.
func (t *Type) Dimensions() int {
	n := 0
	for e := t; e != nil && e.Elem != nil; e = e.Elem {
		n++
	}
	return n
}

// Component returns the innermost non-array element type.
func (t *Type) Component() *Type {
	e := t
	for e != nil && e.Elem != nil {
		e = e.Elem
	}
	return e
}

// AssignableFrom reports whether a value of type src may be stored where t
// is expected without conversion.
func (t *Type) AssignableFrom(src *Type) bool {
	if t == nil || src == nil {
		return false
	}
	if t == src {
		return true
	}
	if t.IsPrimitive() || src.IsPrimitive() {
		return false
	}
	if t == TypeObject {
		return true
	}
	if t.Elem != nil {
		if src.Elem == nil {
			return false
		}
		if t.Elem.IsPrimitive() || src.Elem.IsPrimitive() {
			return t.Elem == src.Elem
		}
		return t.Elem.AssignableFrom(src.Elem)
	}
	if src.Elem != nil {
		return false
	}
	for s := src; s != nil; s = s.Super {
		if s == t || s.implements(t) {
			return true
		}
	}
	return false
}

func (t *Type) implements(iface *Type) bool {
	for _, i := range t.Interfaces {
		if i == iface || i.implements(iface) {
			return true
		}
	}
	return false
}

// AllInterfaces returns the transitive interface set of t and its
// superclasses in declaration order.
func (t *Type) AllInterfaces() []*Type {
	seen := make(map[*Type]bool)
	var out []*Type
	var walk func(*Type)
	walk = func(x *Type) {
		for _, i := range x.Interfaces {
			if seen[i] {
				continue
			}
			seen[i] = true
			out = append(out, i)
			walk(i)
		}
	}
	for s := t; s != nil; s = s.Super {
		walk(s)
	}
	return out
}

func (t *Type) addMethod(m *HostMethod) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.methods == nil {
		t.methods = make(map[string][]*HostMethod)
	}
	m.Owner = t
	t.methods[m.Name] = append(t.methods[m.Name], m)
}

func (t *Type) addField(f *HostField) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fields == nil {
		t.fields = make(map[string]*HostField)
	}
	f.Owner = t
	t.fields[f.Name] = f
}

func (t *Type) addConstructor(m *HostMethod) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m.Owner = t
	m.Name = "<init>"
	t.ctors = append(t.ctors, m)
}

func (t *Type) addNested(n *Type) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.nested == nil {
		t.nested = make(map[string]*Type)
	}
	t.nested[n.SimpleName()] = n
}

func (t *Type) declaredMethods(name string) []*HostMethod {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.methods[name]
}

func (t *Type) declaredMethodNames() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.methods))
	for n := range t.methods {
		names = append(names, n)
	}
	return names
}

func (t *Type) declaredField(name string) (*HostField, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.fields[name]
	return f, ok
}

func (t *Type) declaredFields() []*HostField {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*HostField, 0, len(t.fields))
	for _, f := range t.fields {
		out = append(out, f)
	}
	return out
}

func (t *Type) constructors() []*HostMethod {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ctors
}

func (t *Type) nestedType(name string) (*Type, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nested[name]
	return n, ok
}

var arrayTypes sync.Map

// ArrayOf returns the canonical array type with the given element type.
func ArrayOf(elem *Type) *Type {
	if v, ok := arrayTypes.Load(elem); ok {
		return v.(*Type)
	}
	t := &Type{Name: elem.Name + "[]", Elem: elem, Super: TypeObject}
	actual, _ := arrayTypes.LoadOrStore(elem, t)
	return actual.(*Type)
}

// zeroValue is the value a variable of type t holds before assignment.
func zeroValue(t *Type) any {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case KindBoolean:
		return false
	case KindChar:
		return Char(0)
	case KindByte:
		return int8(0)
	case KindShort:
		return int16(0)
	case KindInt:
		return int32(0)
	case KindLong:
		return int64(0)
	case KindFloat:
		return float32(0)
	case KindDouble:
		return float64(0)
	}
	return nil
}

// isTypeCompatible reports whether a value whose runtime type is actual may
// be bound where expected is declared. A nil actual denotes null.
func isTypeCompatible(expected, actual *Type) bool {
	if expected == nil {
		return true
	}
	if actual == nil || actual == TypeVoid {
		return !expected.IsPrimitive()
	}
	if expected.IsPrimitive() {
		return actual.Unboxed() == expected
	}
	return expected.AssignableFrom(actual.Boxed())
}

// isWideningCompatible additionally admits primitive widening such as int
// to long or long to double.
func isWideningCompatible(expected, actual *Type) bool {
	if isTypeCompatible(expected, actual) {
		return true
	}
	if expected == nil || actual == nil {
		return false
	}
	e, a := expected.Unboxed(), actual.Unboxed()
	if !e.IsPrimitive() || !a.IsPrimitive() || e.Kind == KindBoolean || a.Kind == KindBoolean {
		return false
	}
	if a.Kind == KindChar {
		return e.Kind >= KindInt
	}
	if e.Kind == KindChar {
		return false
	}
	return e.Kind > a.Kind
}
