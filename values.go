package script

import (
	"fmt"
	"strings"
)

// Char is the script `char` value.
type Char rune

type Array struct {
	Elem   *Type
	Values []any
}

func NewArray(elem *Type, n int) *Array {
	arr := &Array{Elem: elem, Values: make([]any, n)}
	z := zeroValue(elem)
	for i := range arr.Values {
		arr.Values[i] = z
	}
	return arr
}

func (a *Array) Len() int { return len(a.Values) }

func (a *Array) Get(i int) (any, error) {
	if i < 0 || i >= len(a.Values) {
		return nil, newError(ErrCodeBounds, "Index %d out of bounds for length %d", i, len(a.Values))
	}
	return a.Values[i], nil
}

func (a *Array) Set(i int, v any) error {
	if i < 0 || i >= len(a.Values) {
		return newError(ErrCodeBounds, "Index %d out of bounds for length %d", i, len(a.Values))
	}
	a.Values[i] = v
	return nil
}

type ArrayList struct {
	Values []any
}

func NewArrayList(values ...any) *ArrayList {
	return &ArrayList{Values: append([]any(nil), values...)}
}

func (l *ArrayList) Len() int { return len(l.Values) }

func (l *ArrayList) Get(i int) (any, error) {
	if i < 0 || i >= len(l.Values) {
		return nil, newError(ErrCodeBounds, "Index %d out of bounds for length %d", i, len(l.Values))
	}
	return l.Values[i], nil
}

func (l *ArrayList) Add(v any) { l.Values = append(l.Values, v) }

func (l *ArrayList) Insert(i int, v any) error {
	if i < 0 || i > len(l.Values) {
		return newError(ErrCodeBounds, "Index: %d, Size: %d", i, len(l.Values))
	}
	l.Values = append(l.Values, nil)
	copy(l.Values[i+1:], l.Values[i:])
	l.Values[i] = v
	return nil
}

func (l *ArrayList) Set(i int, v any) (any, error) {
	old, err := l.Get(i)
	if err != nil {
		return nil, err
	}
	l.Values[i] = v
	return old, nil
}

func (l *ArrayList) RemoveAt(i int) (any, error) {
	old, err := l.Get(i)
	if err != nil {
		return nil, err
	}
	l.Values = append(l.Values[:i], l.Values[i+1:]...)
	return old, nil
}

// HashMap keeps keys in insertion order.
type HashMap struct {
	keys   []any
	values map[any]any
}

func NewHashMap() *HashMap {
	return &HashMap{values: make(map[any]any)}
}

func (m *HashMap) Len() int { return len(m.keys) }

func (m *HashMap) Get(k any) (any, bool) {
	v, ok := m.values[k]
	return v, ok
}

func (m *HashMap) Put(k, v any) any {
	old, ok := m.values[k]
	if !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
	return old
}

func (m *HashMap) Remove(k any) any {
	old, ok := m.values[k]
	if !ok {
		return nil
	}
	delete(m.values, k)
	for i, key := range m.keys {
		if key == k {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return old
}

func (m *HashMap) Keys() []any { return append([]any(nil), m.keys...) }

func (m *HashMap) Clear() {
	m.keys = nil
	m.values = make(map[any]any)
}

type StringBuilder struct {
	buf []rune
}

func (b *StringBuilder) String() string { return string(b.buf) }

// Throwable is an exception object of a host Throwable class.
type Throwable struct {
	Class   *Type
	Message any
	Cause   *Throwable
}

func NewThrowable(class *Type, message string) *Throwable {
	return &Throwable{Class: class, Message: message}
}

func (t *Throwable) String() string {
	if t == nil {
		return "null"
	}
	if t.Message == nil {
		return t.Class.Name
	}
	return fmt.Sprintf("%s: %v", t.Class.Name, t.Message)
}

// PrintStream writes to one of the context sinks.
type PrintStream struct {
	out *Output
}

// FormatValue renders v the way `String.valueOf` does for built-in values.
// Custom instances are rendered without invoking script methods.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case Char:
		return string(rune(x))
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", x)
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	case *Array:
		parts := make([]string, len(x.Values))
		for i, e := range x.Values {
			parts[i] = FormatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *ArrayList:
		parts := make([]string, len(x.Values))
		for i, e := range x.Values {
			parts[i] = FormatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *HashMap:
		parts := make([]string, 0, len(x.keys))
		for _, k := range x.keys {
			parts = append(parts, FormatValue(k)+"="+FormatValue(x.values[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *StringBuilder:
		return x.String()
	case *Throwable:
		return x.String()
	case *Type:
		return x.String()
	case *Instance:
		return x.describe()
	case *Lambda:
		return x.String()
	case *FunctionalObject:
		return x.String()
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprintf("%v", v)
}
