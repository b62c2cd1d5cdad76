package script

import (
	"sort"
)

var (
	TypeCollection = newInterface("java.util.Collection", TypeIterable)
	TypeList       = newInterface("java.util.List", TypeCollection)
	TypeArrayList  = newType("java.util.ArrayList", TypeObject, TypeList)
	TypeMap        = newInterface("java.util.Map")
	TypeMapEntry   = newInterface("java.util.Map$Entry")
	TypeHashMap    = newType("java.util.HashMap", TypeObject, TypeMap)
	TypeArrays     = newType("java.util.Arrays", TypeObject)
	TypeObjects    = newType("java.util.Objects", TypeObject)
	TypeComparator = newInterface("java.util.Comparator")

	TypeFunction      = newInterface("java.util.function.Function")
	TypeBiFunction    = newInterface("java.util.function.BiFunction")
	TypeSupplier      = newInterface("java.util.function.Supplier")
	TypeConsumer      = newInterface("java.util.function.Consumer")
	TypeBiConsumer    = newInterface("java.util.function.BiConsumer")
	TypePredicate     = newInterface("java.util.function.Predicate")
	TypeUnaryOperator = newInterface("java.util.function.UnaryOperator", TypeFunction)

	TypeCallable    = newInterface("java.util.concurrent.Callable")
	TypePrintStream = newType("java.io.PrintStream", TypeObject, TypeAutoCloseable)
)

// MapEntry is an element of HashMap.entrySet().
type MapEntry struct {
	Key   any
	Value any
}

func utilTypes() []*Type {
	return []*Type{
		TypeCollection, TypeList, TypeArrayList, TypeMap, TypeMapEntry, TypeHashMap,
		TypeArrays, TypeObjects, TypeComparator,
		TypeFunction, TypeBiFunction, TypeSupplier, TypeConsumer, TypeBiConsumer,
		TypePredicate, TypeUnaryOperator, TypeCallable, TypePrintStream,
	}
}

func installUtil() {
	installFunctional()
	installIterable()
	installArrayList()
	installHashMap()
	installArrays()
	installObjects()
	installPrintStream()
}

func nativeLambda(arity int, fn func(c *Context, args []any) (any, error)) *Lambda {
	params := make([]string, arity)
	for i := range params {
		params[i] = "arg" + string(rune('0'+i))
	}
	return &Lambda{Params: params, Native: fn}
}

func installFunctional() {
	functional := func(t *Type, sam string, ret *Type, params ...*Type) {
		t.Functional = sam
		t.addMethod(abstractMethod(sam, ret, params...))
	}
	functional(TypeFunction, "apply", TypeObject, TypeObject)
	functional(TypeUnaryOperator, "apply", TypeObject, TypeObject)
	functional(TypeBiFunction, "apply", TypeObject, TypeObject, TypeObject)
	functional(TypeSupplier, "get", TypeObject)
	functional(TypeConsumer, "accept", TypeVoid, TypeObject)
	functional(TypeBiConsumer, "accept", TypeVoid, TypeObject, TypeObject)
	functional(TypePredicate, "test", TypeBoolean, TypeObject)
	functional(TypeCallable, "call", TypeObject)
	functional(TypeComparator, "compare", TypeInt, TypeObject, TypeObject)

	addMethods(TypeFunction,
		method("andThen", TypeFunction, func(c *Context, recv any, args []any) (any, error) {
			f, g := recv, args[0]
			return c.AdaptLambda(nativeLambda(1, func(c *Context, a []any) (any, error) {
				r, err := c.CallFunctional(f, a...)
				if err != nil {
					return nil, err
				}
				return c.CallFunctional(g, r)
			}), TypeFunction)
		}, TypeFunction),
		method("compose", TypeFunction, func(c *Context, recv any, args []any) (any, error) {
			f, g := recv, args[0]
			return c.AdaptLambda(nativeLambda(1, func(c *Context, a []any) (any, error) {
				r, err := c.CallFunctional(g, a...)
				if err != nil {
					return nil, err
				}
				return c.CallFunctional(f, r)
			}), TypeFunction)
		}, TypeFunction),
		staticMethod("identity", TypeFunction, func(c *Context, _ any, _ []any) (any, error) {
			return c.AdaptLambda(nativeLambda(1, func(_ *Context, a []any) (any, error) {
				return a[0], nil
			}), TypeFunction)
		}),
	)
	addMethods(TypePredicate,
		method("negate", TypePredicate, func(c *Context, recv any, _ []any) (any, error) {
			p := recv
			return c.AdaptLambda(nativeLambda(1, func(c *Context, a []any) (any, error) {
				r, err := c.CallFunctional(p, a...)
				return !toBoolean(r), err
			}), TypePredicate)
		}),
		method("and", TypePredicate, func(c *Context, recv any, args []any) (any, error) {
			p, q := recv, args[0]
			return c.AdaptLambda(nativeLambda(1, func(c *Context, a []any) (any, error) {
				r, err := c.CallFunctional(p, a...)
				if err != nil || !toBoolean(r) {
					return false, err
				}
				r, err = c.CallFunctional(q, a...)
				return toBoolean(r), err
			}), TypePredicate)
		}, TypePredicate),
		method("or", TypePredicate, func(c *Context, recv any, args []any) (any, error) {
			p, q := recv, args[0]
			return c.AdaptLambda(nativeLambda(1, func(c *Context, a []any) (any, error) {
				r, err := c.CallFunctional(p, a...)
				if err != nil || toBoolean(r) {
					return err == nil, err
				}
				r, err = c.CallFunctional(q, a...)
				return toBoolean(r), err
			}), TypePredicate)
		}, TypePredicate),
	)
	addMethods(TypeConsumer,
		method("andThen", TypeConsumer, func(c *Context, recv any, args []any) (any, error) {
			f, g := recv, args[0]
			return c.AdaptLambda(nativeLambda(1, func(c *Context, a []any) (any, error) {
				if _, err := c.CallFunctional(f, a...); err != nil {
					return nil, err
				}
				return c.CallFunctional(g, a...)
			}), TypeConsumer)
		}, TypeConsumer),
	)
}

func installIterable() {
	TypeIterable.addMethod(method("forEach", TypeVoid, func(c *Context, recv any, args []any) (any, error) {
		items, err := c.iterate(recv)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if _, err := c.CallFunctional(args[0], item); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}, TypeConsumer))
}

func (c *Context) sortValues(values []any, comparator any) error {
	var failure error
	sort.SliceStable(values, func(i, j int) bool {
		if failure != nil {
			return false
		}
		var n int
		if comparator == nil {
			n, failure = c.CompareValues(values[i], values[j])
		} else {
			var r any
			r, failure = c.CallFunctional(comparator, values[i], values[j])
			n = int(toInt64(r))
		}
		return n < 0
	})
	return failure
}

func installArrayList() {
	list := func(fn func(c *Context, l *ArrayList, args []any) (any, error)) HostFunc {
		return func(c *Context, recv any, args []any) (any, error) {
			return fn(c, recv.(*ArrayList), args)
		}
	}
	newList := func(c *Context, _ any, args []any) (any, error) {
		l := NewArrayList()
		if len(args) == 1 {
			if values := arrayValues(args[0]); values != nil {
				l.Values = append(l.Values, values...)
			}
		}
		return l, nil
	}
	TypeArrayList.addConstructor(method("", TypeArrayList, newList))
	TypeArrayList.addConstructor(method("", TypeArrayList, newList, TypeInt))
	TypeArrayList.addConstructor(method("", TypeArrayList, newList, TypeCollection))
	index := func(c *Context, l *ArrayList, v any) (int32, error) {
		for i, e := range l.Values {
			eq, err := c.ValuesEqual(e, v)
			if err != nil {
				return -1, err
			}
			if eq {
				return int32(i), nil
			}
		}
		return -1, nil
	}
	addMethods(TypeArrayList,
		method("add", TypeBoolean, list(func(_ *Context, l *ArrayList, args []any) (any, error) {
			l.Add(args[0])
			return true, nil
		}), TypeObject),
		method("add", TypeVoid, list(func(_ *Context, l *ArrayList, args []any) (any, error) {
			return nil, boundsToThrown(l.Insert(int(args[0].(int32)), args[1]))
		}), TypeInt, TypeObject),
		method("addAll", TypeBoolean, list(func(_ *Context, l *ArrayList, args []any) (any, error) {
			values := arrayValues(args[0])
			l.Values = append(l.Values, values...)
			return len(values) > 0, nil
		}), TypeCollection),
		method("get", TypeObject, list(func(_ *Context, l *ArrayList, args []any) (any, error) {
			v, err := l.Get(int(args[0].(int32)))
			return v, boundsToThrown(err)
		}), TypeInt),
		method("set", TypeObject, list(func(_ *Context, l *ArrayList, args []any) (any, error) {
			v, err := l.Set(int(args[0].(int32)), args[1])
			return v, boundsToThrown(err)
		}), TypeInt, TypeObject),
		method("remove", TypeObject, list(func(_ *Context, l *ArrayList, args []any) (any, error) {
			v, err := l.RemoveAt(int(args[0].(int32)))
			return v, boundsToThrown(err)
		}), TypeInt),
		method("remove", TypeBoolean, list(func(c *Context, l *ArrayList, args []any) (any, error) {
			i, err := index(c, l, args[0])
			if err != nil || i < 0 {
				return false, err
			}
			_, err = l.RemoveAt(int(i))
			return true, err
		}), TypeObject),
		method("size", TypeInt, list(func(_ *Context, l *ArrayList, _ []any) (any, error) {
			return int32(l.Len()), nil
		})),
		method("isEmpty", TypeBoolean, list(func(_ *Context, l *ArrayList, _ []any) (any, error) {
			return l.Len() == 0, nil
		})),
		method("contains", TypeBoolean, list(func(c *Context, l *ArrayList, args []any) (any, error) {
			i, err := index(c, l, args[0])
			return i >= 0, err
		}), TypeObject),
		method("indexOf", TypeInt, list(func(c *Context, l *ArrayList, args []any) (any, error) {
			return index(c, l, args[0])
		}), TypeObject),
		method("clear", TypeVoid, list(func(_ *Context, l *ArrayList, _ []any) (any, error) {
			l.Values = nil
			return nil, nil
		})),
		method("sort", TypeVoid, list(func(c *Context, l *ArrayList, args []any) (any, error) {
			return nil, c.sortValues(l.Values, args[0])
		}), TypeComparator),
		method("subList", TypeList, list(func(_ *Context, l *ArrayList, args []any) (any, error) {
			from, to := int(args[0].(int32)), int(args[1].(int32))
			if from < 0 || to > l.Len() || from > to {
				return nil, throwNew(TypeIndexOutOfBounds, "fromIndex %d, toIndex %d, size %d", from, to, l.Len())
			}
			return NewArrayList(l.Values[from:to]...), nil
		}), TypeInt, TypeInt),
		method("toArray", ArrayOf(TypeObject), list(func(_ *Context, l *ArrayList, _ []any) (any, error) {
			return &Array{Elem: TypeObject, Values: append([]any(nil), l.Values...)}, nil
		})),
		method("removeIf", TypeBoolean, list(func(c *Context, l *ArrayList, args []any) (any, error) {
			kept := l.Values[:0]
			removed := false
			for _, v := range l.Values {
				r, err := c.CallFunctional(args[0], v)
				if err != nil {
					return nil, err
				}
				if toBoolean(r) {
					removed = true
					continue
				}
				kept = append(kept, v)
			}
			l.Values = kept
			return removed, nil
		}), TypePredicate),
	)
	TypeList.addMethod(varargsMethod(staticMethod("of", TypeList, func(_ *Context, _ any, args []any) (any, error) {
		return NewArrayList(arrayValues(args[0])...), nil
	}, ArrayOf(TypeObject))))
}

func boundsToThrown(err error) error {
	if se, ok := err.(*ScriptError); ok && se.Code == ErrCodeBounds {
		return throwNew(TypeIndexOutOfBounds, "%s", se.Message)
	}
	return err
}

func installHashMap() {
	hm := func(fn func(c *Context, m *HashMap, args []any) (any, error)) HostFunc {
		return func(c *Context, recv any, args []any) (any, error) {
			return fn(c, recv.(*HashMap), args)
		}
	}
	newMap := func(*Context, any, []any) (any, error) { return NewHashMap(), nil }
	TypeHashMap.addConstructor(method("", TypeHashMap, newMap))
	TypeHashMap.addConstructor(method("", TypeHashMap, newMap, TypeInt))
	TypeHashMap.addConstructor(method("", TypeHashMap, func(_ *Context, _ any, args []any) (any, error) {
		m := NewHashMap()
		if src, ok := args[0].(*HashMap); ok {
			for _, k := range src.keys {
				m.Put(k, src.values[k])
			}
		}
		return m, nil
	}, TypeMap))
	addMethods(TypeHashMap,
		method("put", TypeObject, hm(func(_ *Context, m *HashMap, args []any) (any, error) {
			return m.Put(args[0], args[1]), nil
		}), TypeObject, TypeObject),
		method("putIfAbsent", TypeObject, hm(func(_ *Context, m *HashMap, args []any) (any, error) {
			if v, ok := m.Get(args[0]); ok && v != nil {
				return v, nil
			}
			m.Put(args[0], args[1])
			return nil, nil
		}), TypeObject, TypeObject),
		method("get", TypeObject, hm(func(_ *Context, m *HashMap, args []any) (any, error) {
			v, _ := m.Get(args[0])
			return v, nil
		}), TypeObject),
		method("getOrDefault", TypeObject, hm(func(_ *Context, m *HashMap, args []any) (any, error) {
			if v, ok := m.Get(args[0]); ok {
				return v, nil
			}
			return args[1], nil
		}), TypeObject, TypeObject),
		method("containsKey", TypeBoolean, hm(func(_ *Context, m *HashMap, args []any) (any, error) {
			_, ok := m.Get(args[0])
			return ok, nil
		}), TypeObject),
		method("containsValue", TypeBoolean, hm(func(c *Context, m *HashMap, args []any) (any, error) {
			for _, k := range m.keys {
				eq, err := c.ValuesEqual(m.values[k], args[0])
				if err != nil || eq {
					return eq, err
				}
			}
			return false, nil
		}), TypeObject),
		method("remove", TypeObject, hm(func(_ *Context, m *HashMap, args []any) (any, error) {
			return m.Remove(args[0]), nil
		}), TypeObject),
		method("size", TypeInt, hm(func(_ *Context, m *HashMap, _ []any) (any, error) {
			return int32(m.Len()), nil
		})),
		method("isEmpty", TypeBoolean, hm(func(_ *Context, m *HashMap, _ []any) (any, error) {
			return m.Len() == 0, nil
		})),
		method("clear", TypeVoid, hm(func(_ *Context, m *HashMap, _ []any) (any, error) {
			m.Clear()
			return nil, nil
		})),
		method("keySet", TypeCollection, hm(func(_ *Context, m *HashMap, _ []any) (any, error) {
			return NewArrayList(m.Keys()...), nil
		})),
		method("values", TypeCollection, hm(func(_ *Context, m *HashMap, _ []any) (any, error) {
			l := NewArrayList()
			for _, k := range m.keys {
				l.Add(m.values[k])
			}
			return l, nil
		})),
		method("entrySet", TypeCollection, hm(func(_ *Context, m *HashMap, _ []any) (any, error) {
			l := NewArrayList()
			for _, k := range m.keys {
				l.Add(&MapEntry{Key: k, Value: m.values[k]})
			}
			return l, nil
		})),
		method("forEach", TypeVoid, hm(func(c *Context, m *HashMap, args []any) (any, error) {
			for _, k := range m.Keys() {
				if _, err := c.CallFunctional(args[0], k, m.values[k]); err != nil {
					return nil, err
				}
			}
			return nil, nil
		}), TypeBiConsumer),
	)
	TypeMap.addMethod(varargsMethod(staticMethod("of", TypeMap, func(_ *Context, _ any, args []any) (any, error) {
		kv := arrayValues(args[0])
		if len(kv)%2 != 0 {
			return nil, throwNew(TypeIllegalArgument, "Map.of requires key/value pairs")
		}
		m := NewHashMap()
		for i := 0; i < len(kv); i += 2 {
			m.Put(kv[i], kv[i+1])
		}
		return m, nil
	}, ArrayOf(TypeObject))))

	TypeMapEntry.match = func(v any) bool {
		_, ok := v.(*MapEntry)
		return ok
	}
	TypeMap.addNested(TypeMapEntry)
	entry := func(fn func(e *MapEntry) any) HostFunc {
		return func(_ *Context, recv any, _ []any) (any, error) {
			return fn(recv.(*MapEntry)), nil
		}
	}
	addMethods(TypeMapEntry,
		method("getKey", TypeObject, entry(func(e *MapEntry) any { return e.Key })),
		method("getValue", TypeObject, entry(func(e *MapEntry) any { return e.Value })),
		method("toString", TypeString, func(c *Context, recv any, _ []any) (any, error) {
			e := recv.(*MapEntry)
			k, err := c.Stringify(e.Key)
			if err != nil {
				return nil, err
			}
			v, err := c.Stringify(e.Value)
			return k + "=" + v, err
		}),
	)
}

func installArrays() {
	addMethods(TypeArrays,
		staticMethod("toString", TypeString, func(c *Context, _ any, args []any) (any, error) {
			if args[0] == nil {
				return "null", nil
			}
			return c.Stringify(args[0])
		}, TypeObject),
		varargsMethod(staticMethod("asList", TypeList, func(_ *Context, _ any, args []any) (any, error) {
			return NewArrayList(arrayValues(args[0])...), nil
		}, ArrayOf(TypeObject))),
		staticMethod("sort", TypeVoid, func(c *Context, _ any, args []any) (any, error) {
			arr, ok := args[0].(*Array)
			if !ok {
				return nil, throwNew(TypeIllegalArgument, "Arrays.sort requires an array")
			}
			return nil, c.sortValues(arr.Values, nil)
		}, TypeObject),
		staticMethod("sort", TypeVoid, func(c *Context, _ any, args []any) (any, error) {
			arr, ok := args[0].(*Array)
			if !ok {
				return nil, throwNew(TypeIllegalArgument, "Arrays.sort requires an array")
			}
			return nil, c.sortValues(arr.Values, args[1])
		}, TypeObject, TypeComparator),
		staticMethod("fill", TypeVoid, func(c *Context, _ any, args []any) (any, error) {
			arr, ok := args[0].(*Array)
			if !ok {
				return nil, throwNew(TypeIllegalArgument, "Arrays.fill requires an array")
			}
			v, err := c.Cast(args[1], arr.Elem)
			if err != nil {
				return nil, err
			}
			for i := range arr.Values {
				arr.Values[i] = v
			}
			return nil, nil
		}, TypeObject, TypeObject),
		staticMethod("copyOf", TypeObject, func(_ *Context, _ any, args []any) (any, error) {
			arr, ok := args[0].(*Array)
			if !ok {
				return nil, throwNew(TypeIllegalArgument, "Arrays.copyOf requires an array")
			}
			n := int(args[1].(int32))
			if n < 0 {
				return nil, throwNew(TypeIllegalArgument, "negative length %d", n)
			}
			out := NewArray(arr.Elem, n)
			copy(out.Values, arr.Values)
			return out, nil
		}, TypeObject, TypeInt),
		staticMethod("equals", TypeBoolean, func(c *Context, _ any, args []any) (any, error) {
			a, b := arrayValues(args[0]), arrayValues(args[1])
			if len(a) != len(b) {
				return false, nil
			}
			for i := range a {
				eq, err := c.ValuesEqual(a[i], b[i])
				if err != nil || !eq {
					return false, err
				}
			}
			return true, nil
		}, TypeObject, TypeObject),
	)
}

func installObjects() {
	addMethods(TypeObjects,
		staticMethod("equals", TypeBoolean, func(c *Context, _ any, args []any) (any, error) {
			return c.ValuesEqual(args[0], args[1])
		}, TypeObject, TypeObject),
		staticMethod("isNull", TypeBoolean, func(_ *Context, _ any, args []any) (any, error) {
			return args[0] == nil, nil
		}, TypeObject),
		staticMethod("nonNull", TypeBoolean, func(_ *Context, _ any, args []any) (any, error) {
			return args[0] != nil, nil
		}, TypeObject),
		staticMethod("requireNonNull", TypeObject, func(_ *Context, _ any, args []any) (any, error) {
			if args[0] == nil {
				return nil, throwNew(TypeNullPointer, "value is null")
			}
			return args[0], nil
		}, TypeObject),
		staticMethod("requireNonNull", TypeObject, func(_ *Context, _ any, args []any) (any, error) {
			if args[0] == nil {
				return nil, throwNew(TypeNullPointer, "%v", args[1])
			}
			return args[0], nil
		}, TypeObject, TypeString),
		staticMethod("toString", TypeString, func(c *Context, _ any, args []any) (any, error) {
			return c.Stringify(args[0])
		}, TypeObject),
		staticMethod("toString", TypeString, func(c *Context, _ any, args []any) (any, error) {
			if args[0] == nil {
				return args[1], nil
			}
			return c.Stringify(args[0])
		}, TypeObject, TypeString),
		staticMethod("hashCode", TypeInt, func(_ *Context, _ any, args []any) (any, error) {
			return hashCode(args[0]), nil
		}, TypeObject),
		varargsMethod(staticMethod("hash", TypeInt, func(_ *Context, _ any, args []any) (any, error) {
			var h int32 = 1
			for _, v := range arrayValues(args[0]) {
				h = 31*h + hashCode(v)
			}
			return h, nil
		}, ArrayOf(TypeObject))),
	)
}

func installPrintStream() {
	ps := func(fn func(c *Context, p *PrintStream, args []any) error) HostFunc {
		return func(c *Context, recv any, args []any) (any, error) {
			return nil, fn(c, recv.(*PrintStream), args)
		}
	}
	addMethods(TypePrintStream,
		method("println", TypeVoid, ps(func(_ *Context, p *PrintStream, _ []any) error {
			p.out.Println("")
			return nil
		})),
		method("println", TypeVoid, ps(func(c *Context, p *PrintStream, args []any) error {
			s, err := c.Stringify(args[0])
			if err != nil {
				return err
			}
			p.out.Println(s)
			return nil
		}), TypeObject),
		method("print", TypeVoid, ps(func(c *Context, p *PrintStream, args []any) error {
			s, err := c.Stringify(args[0])
			if err != nil {
				return err
			}
			p.out.Print(s)
			return nil
		}), TypeObject),
		varargsMethod(method("printf", TypeVoid, ps(func(c *Context, p *PrintStream, args []any) error {
			s, err := c.FormatJava(args[0].(string), arrayValues(args[1]))
			if err != nil {
				return err
			}
			p.out.Print(s)
			return nil
		}), TypeString, ArrayOf(TypeObject))),
		method("flush", TypeVoid, ps(func(*Context, *PrintStream, []any) error { return nil })),
		method("close", TypeVoid, ps(func(*Context, *PrintStream, []any) error { return nil })),
	)
}
