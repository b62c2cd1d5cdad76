package script

import (
	"math"
	"math/rand"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
)

var (
	TypeMath          = newType("java.lang.Math", TypeObject)
	TypeSystem        = newType("java.lang.System", TypeObject)
	TypeStringBuilder = newType("java.lang.StringBuilder", TypeObject, TypeCharSequence)
	TypeIterable      = newInterface("java.lang.Iterable")
	TypeRunnable      = newInterface("java.lang.Runnable")
	TypeAutoCloseable = newInterface("java.lang.AutoCloseable")

	TypeThrowable            = newType("java.lang.Throwable", TypeObject)
	TypeException            = newType("java.lang.Exception", TypeThrowable)
	TypeError                = newType("java.lang.Error", TypeThrowable)
	TypeRuntimeException     = newType("java.lang.RuntimeException", TypeException)
	TypeNullPointer          = newType("java.lang.NullPointerException", TypeRuntimeException)
	TypeIllegalArgument      = newType("java.lang.IllegalArgumentException", TypeRuntimeException)
	TypeIllegalState         = newType("java.lang.IllegalStateException", TypeRuntimeException)
	TypeArithmeticException  = newType("java.lang.ArithmeticException", TypeRuntimeException)
	TypeClassCast            = newType("java.lang.ClassCastException", TypeRuntimeException)
	TypeIndexOutOfBounds     = newType("java.lang.IndexOutOfBoundsException", TypeRuntimeException)
	TypeArrayIndexOutOfBound = newType("java.lang.ArrayIndexOutOfBoundsException", TypeIndexOutOfBounds)
	TypeNumberFormat         = newType("java.lang.NumberFormatException", TypeIllegalArgument)
	TypeUnsupported          = newType("java.lang.UnsupportedOperationException", TypeRuntimeException)

	// TypeLambda is the class of an unadapted script lambda.
	TypeLambda = newType("script.Lambda", TypeObject)
)

var throwableTypes = []*Type{
	TypeThrowable, TypeException, TypeError, TypeRuntimeException, TypeNullPointer,
	TypeIllegalArgument, TypeIllegalState, TypeArithmeticException, TypeClassCast,
	TypeIndexOutOfBounds, TypeArrayIndexOutOfBound, TypeNumberFormat, TypeUnsupported,
}

var (
	stdlibOnce  sync.Once
	stdlibTypes []*Type
)

// groupRef rewrites `$1` group references to the `${1}` form regexp expects.
var groupRef = regexp.MustCompile(`\$(\d+)`)

func standardLibrary() []*Type {
	stdlibOnce.Do(func() {
		installLang()
		installUtil()
		stdlibTypes = []*Type{
			TypeObject, TypeComparable, TypeCharSequence, TypeString, TypeNumber,
			TypeBooleanW, TypeCharacter, TypeByteW, TypeShortW, TypeInteger, TypeLongW,
			TypeFloatW, TypeDoubleW, TypeVoidW, TypeClass, TypeMath, TypeSystem,
			TypeStringBuilder, TypeIterable, TypeRunnable, TypeAutoCloseable, TypeLambda,
		}
		stdlibTypes = append(stdlibTypes, throwableTypes...)
		stdlibTypes = append(stdlibTypes, utilTypes()...)
	})
	return stdlibTypes
}

func method(name string, ret *Type, fn HostFunc, params ...*Type) *HostMethod {
	return &HostMethod{Name: name, Returns: ret, Params: params, Fn: fn}
}

func staticMethod(name string, ret *Type, fn HostFunc, params ...*Type) *HostMethod {
	m := method(name, ret, fn, params...)
	m.Static = true
	return m
}

func varargsMethod(m *HostMethod) *HostMethod {
	m.Varargs = true
	return m
}

func abstractMethod(name string, ret *Type, params ...*Type) *HostMethod {
	return &HostMethod{Name: name, Returns: ret, Params: params, Abstract: true}
}

func constant(name string, t *Type, v any) *HostField {
	return &HostField{Name: name, Type: t, Static: true, Get: func(*Context, any) (any, error) { return v, nil }}
}

func addMethods(t *Type, methods ...*HostMethod) {
	for _, m := range methods {
		t.addMethod(m)
	}
}

// throwNew builds the error produced when host code throws an exception of
// class t.
func throwNew(t *Type, format string, args ...any) *ScriptError {
	e := newError(ErrCodeThrown, format, args...)
	e.Thrown = &Throwable{Class: t, Message: e.Message}
	e.Message = e.Thrown.String()
	return e
}

func installLang() {
	installObject()
	installString()
	installNumbers()
	installCharacterAndBoolean()
	installMath()
	installSystem()
	installStringBuilder()
	installThrowables()
	installClass()

	TypeRunnable.Functional = "run"
	TypeRunnable.addMethod(abstractMethod("run", TypeVoid))
	TypeAutoCloseable.addMethod(abstractMethod("close", TypeVoid))
	TypeComparable.addMethod(abstractMethod("compareTo", TypeInt, TypeObject))
	TypeCharSequence.addMethod(abstractMethod("length", TypeInt))

	addMethods(TypeLambda,
		varargsMethod(method("call", TypeObject, func(c *Context, recv any, args []any) (any, error) {
			return recv.(*Lambda).Call(c, arrayValues(args[0]))
		}, ArrayOf(TypeObject))),
		method("arity", TypeInt, func(c *Context, recv any, args []any) (any, error) {
			return int32(len(recv.(*Lambda).Params)), nil
		}),
	)
}

func installObject() {
	addMethods(TypeObject,
		method("toString", TypeString, func(c *Context, recv any, args []any) (any, error) {
			if inst, ok := recv.(*Instance); ok {
				return inst.describe(), nil
			}
			return c.Stringify(recv)
		}),
		method("equals", TypeBoolean, func(c *Context, recv any, args []any) (any, error) {
			if _, ok := recv.(*Instance); ok {
				return recv == args[0], nil
			}
			return c.ValuesEqual(recv, args[0])
		}, TypeObject),
		method("hashCode", TypeInt, func(c *Context, recv any, args []any) (any, error) {
			return hashCode(recv), nil
		}),
		method("getClass", TypeClass, func(c *Context, recv any, args []any) (any, error) {
			return c.TypeOf(recv), nil
		}),
	)
}

func hashCode(v any) int32 {
	switch x := v.(type) {
	case nil:
		return 0
	case int32:
		return x
	case int8, int16, Char:
		return int32(toInt64(x))
	case int64:
		return int32(x ^ int64(uint64(x)>>32))
	case bool:
		if x {
			return 1231
		}
		return 1237
	case string:
		return stringHash(x)
	}
	return stringHash(FormatValue(v))
}

func stringHash(s string) int32 {
	var h int32
	for _, r := range s {
		h = 31*h + int32(r)
	}
	return h
}

func runeIndex(s, sub string, from int) int32 {
	rs := []rune(s)
	if from < 0 {
		from = 0
	}
	if from > len(rs) {
		return -1
	}
	i := strings.Index(string(rs[from:]), sub)
	if i < 0 {
		return -1
	}
	return int32(from + len([]rune(string(rs[from:])[:i])))
}

func runeSlice(s string, begin, end int) (string, error) {
	rs := []rune(s)
	if begin < 0 || end > len(rs) || begin > end {
		return "", throwNew(TypeIndexOutOfBounds, "begin %d, end %d, length %d", begin, end, len(rs))
	}
	return string(rs[begin:end]), nil
}

func javaSplit(s, regex string, limit int) ([]string, error) {
	re, err := regexp.Compile(regex)
	if err != nil {
		return nil, throwNew(TypeIllegalArgument, "invalid pattern %q", regex)
	}
	if s == "" {
		return []string{""}, nil
	}
	n := -1
	if limit > 0 {
		n = limit
	}
	parts := re.Split(s, n)
	if len(parts) > 1 && parts[0] == "" && re.FindStringIndex(s)[1] == 0 {
		parts = parts[1:]
	}
	if limit == 0 {
		for len(parts) > 0 && parts[len(parts)-1] == "" {
			parts = parts[:len(parts)-1]
		}
	}
	return parts, nil
}

func stringArray(values []string) *Array {
	arr := &Array{Elem: TypeString, Values: make([]any, len(values))}
	for i, v := range values {
		arr.Values[i] = v
	}
	return arr
}

func arrayValues(v any) []any {
	switch x := v.(type) {
	case *Array:
		return x.Values
	case *ArrayList:
		return x.Values
	}
	return nil
}

func installString() {
	str := func(fn func(c *Context, s string, args []any) (any, error)) HostFunc {
		return func(c *Context, recv any, args []any) (any, error) {
			return fn(c, recv.(string), args)
		}
	}
	addMethods(TypeString,
		method("length", TypeInt, str(func(_ *Context, s string, _ []any) (any, error) {
			return int32(len([]rune(s))), nil
		})),
		method("charAt", TypeChar, str(func(_ *Context, s string, args []any) (any, error) {
			rs := []rune(s)
			i := int(args[0].(int32))
			if i < 0 || i >= len(rs) {
				return nil, throwNew(TypeIndexOutOfBounds, "index %d, length %d", i, len(rs))
			}
			return Char(rs[i]), nil
		}), TypeInt),
		method("isEmpty", TypeBoolean, str(func(_ *Context, s string, _ []any) (any, error) {
			return s == "", nil
		})),
		method("isBlank", TypeBoolean, str(func(_ *Context, s string, _ []any) (any, error) {
			return strings.TrimSpace(s) == "", nil
		})),
		method("substring", TypeString, str(func(_ *Context, s string, args []any) (any, error) {
			return runeSlice(s, int(args[0].(int32)), len([]rune(s)))
		}), TypeInt),
		method("substring", TypeString, str(func(_ *Context, s string, args []any) (any, error) {
			return runeSlice(s, int(args[0].(int32)), int(args[1].(int32)))
		}), TypeInt, TypeInt),
		method("indexOf", TypeInt, str(func(_ *Context, s string, args []any) (any, error) {
			return runeIndex(s, args[0].(string), 0), nil
		}), TypeString),
		method("indexOf", TypeInt, str(func(_ *Context, s string, args []any) (any, error) {
			return runeIndex(s, args[0].(string), int(args[1].(int32))), nil
		}), TypeString, TypeInt),
		method("indexOf", TypeInt, str(func(_ *Context, s string, args []any) (any, error) {
			return runeIndex(s, string(rune(args[0].(int32))), 0), nil
		}), TypeInt),
		method("lastIndexOf", TypeInt, str(func(_ *Context, s string, args []any) (any, error) {
			i := strings.LastIndex(s, args[0].(string))
			if i < 0 {
				return int32(-1), nil
			}
			return int32(len([]rune(s[:i]))), nil
		}), TypeString),
		method("contains", TypeBoolean, str(func(c *Context, s string, args []any) (any, error) {
			sub, err := c.Stringify(args[0])
			if err != nil {
				return nil, err
			}
			return strings.Contains(s, sub), nil
		}), TypeCharSequence),
		method("startsWith", TypeBoolean, str(func(_ *Context, s string, args []any) (any, error) {
			return strings.HasPrefix(s, args[0].(string)), nil
		}), TypeString),
		method("endsWith", TypeBoolean, str(func(_ *Context, s string, args []any) (any, error) {
			return strings.HasSuffix(s, args[0].(string)), nil
		}), TypeString),
		method("equals", TypeBoolean, str(func(_ *Context, s string, args []any) (any, error) {
			o, ok := args[0].(string)
			return ok && o == s, nil
		}), TypeObject),
		method("equalsIgnoreCase", TypeBoolean, str(func(_ *Context, s string, args []any) (any, error) {
			o, ok := args[0].(string)
			return ok && strings.EqualFold(o, s), nil
		}), TypeString),
		method("compareTo", TypeInt, str(func(_ *Context, s string, args []any) (any, error) {
			return int32(strings.Compare(s, args[0].(string))), nil
		}), TypeString),
		method("trim", TypeString, str(func(_ *Context, s string, _ []any) (any, error) {
			return strings.TrimSpace(s), nil
		})),
		method("strip", TypeString, str(func(_ *Context, s string, _ []any) (any, error) {
			return strings.TrimSpace(s), nil
		})),
		method("toUpperCase", TypeString, str(func(_ *Context, s string, _ []any) (any, error) {
			return strings.ToUpper(s), nil
		})),
		method("toLowerCase", TypeString, str(func(_ *Context, s string, _ []any) (any, error) {
			return strings.ToLower(s), nil
		})),
		method("concat", TypeString, str(func(_ *Context, s string, args []any) (any, error) {
			return s + args[0].(string), nil
		}), TypeString),
		method("repeat", TypeString, str(func(_ *Context, s string, args []any) (any, error) {
			n := int(args[0].(int32))
			if n < 0 {
				return nil, throwNew(TypeIllegalArgument, "count is negative: %d", n)
			}
			return strings.Repeat(s, n), nil
		}), TypeInt),
		method("replace", TypeString, str(func(c *Context, s string, args []any) (any, error) {
			old, err := c.Stringify(args[0])
			if err != nil {
				return nil, err
			}
			repl, err := c.Stringify(args[1])
			if err != nil {
				return nil, err
			}
			return strings.ReplaceAll(s, old, repl), nil
		}), TypeCharSequence, TypeCharSequence),
		method("replace", TypeString, str(func(_ *Context, s string, args []any) (any, error) {
			return strings.ReplaceAll(s, string(rune(args[0].(Char))), string(rune(args[1].(Char)))), nil
		}), TypeChar, TypeChar),
		method("replaceAll", TypeString, str(func(_ *Context, s string, args []any) (any, error) {
			re, err := regexp.Compile(args[0].(string))
			if err != nil {
				return nil, throwNew(TypeIllegalArgument, "invalid pattern %q", args[0])
			}
			return re.ReplaceAllString(s, groupRef.ReplaceAllString(args[1].(string), "$${$1}")), nil
		}), TypeString, TypeString),
		method("matches", TypeBoolean, str(func(_ *Context, s string, args []any) (any, error) {
			re, err := regexp.Compile("^(?:" + args[0].(string) + ")$")
			if err != nil {
				return nil, throwNew(TypeIllegalArgument, "invalid pattern %q", args[0])
			}
			return re.MatchString(s), nil
		}), TypeString),
		method("split", ArrayOf(TypeString), str(func(_ *Context, s string, args []any) (any, error) {
			parts, err := javaSplit(s, args[0].(string), 0)
			if err != nil {
				return nil, err
			}
			return stringArray(parts), nil
		}), TypeString),
		method("split", ArrayOf(TypeString), str(func(_ *Context, s string, args []any) (any, error) {
			parts, err := javaSplit(s, args[0].(string), int(args[1].(int32)))
			if err != nil {
				return nil, err
			}
			return stringArray(parts), nil
		}), TypeString, TypeInt),
		method("toCharArray", ArrayOf(TypeChar), str(func(_ *Context, s string, _ []any) (any, error) {
			rs := []rune(s)
			arr := &Array{Elem: TypeChar, Values: make([]any, len(rs))}
			for i, r := range rs {
				arr.Values[i] = Char(r)
			}
			return arr, nil
		})),
		method("hashCode", TypeInt, str(func(_ *Context, s string, _ []any) (any, error) {
			return stringHash(s), nil
		})),
		method("toString", TypeString, str(func(_ *Context, s string, _ []any) (any, error) {
			return s, nil
		})),
		staticMethod("valueOf", TypeString, func(c *Context, _ any, args []any) (any, error) {
			return c.Stringify(args[0])
		}, TypeObject),
		varargsMethod(staticMethod("format", TypeString, func(c *Context, _ any, args []any) (any, error) {
			return c.FormatJava(args[0].(string), arrayValues(args[1]))
		}, TypeString, ArrayOf(TypeObject))),
		varargsMethod(staticMethod("join", TypeString, func(c *Context, _ any, args []any) (any, error) {
			delim, err := c.Stringify(args[0])
			if err != nil {
				return nil, err
			}
			values := arrayValues(args[1])
			if len(values) == 1 {
				if inner := arrayValues(values[0]); inner != nil {
					values = inner
				}
			}
			parts := make([]string, len(values))
			for i, v := range values {
				if parts[i], err = c.Stringify(v); err != nil {
					return nil, err
				}
			}
			return strings.Join(parts, delim), nil
		}, TypeCharSequence, ArrayOf(TypeObject))),
	)
}

func installNumbers() {
	conv := func(target *Type) HostFunc {
		return func(_ *Context, recv any, _ []any) (any, error) {
			return convertNumber(recv, target)
		}
	}
	addMethods(TypeNumber,
		method("intValue", TypeInt, conv(TypeInt)),
		method("longValue", TypeLong, conv(TypeLong)),
		method("doubleValue", TypeDouble, conv(TypeDouble)),
		method("floatValue", TypeFloat, conv(TypeFloat)),
		method("shortValue", TypeShort, conv(TypeShort)),
		method("byteValue", TypeByte, conv(TypeByte)),
	)
	compareTo := method("compareTo", TypeInt, func(c *Context, recv any, args []any) (any, error) {
		r, err := c.CompareValues(recv, args[0])
		return int32(r), err
	}, TypeObject)
	parse := func(p *Type) HostFunc {
		return func(_ *Context, _ any, args []any) (any, error) {
			s, ok := args[0].(string)
			if !ok {
				return nil, throwNew(TypeNumberFormat, "Cannot parse null string")
			}
			v, err := parsePrimitive(s, p)
			if err != nil {
				return nil, throwNew(TypeNumberFormat, "For input string: \"%s\"", args[0])
			}
			return v, nil
		}
	}
	identity := func(_ *Context, _ any, args []any) (any, error) { return args[0], nil }
	toString := func(c *Context, _ any, args []any) (any, error) { return c.Stringify(args[0]) }
	compare := func(c *Context, _ any, args []any) (any, error) {
		r, err := c.CompareValues(args[0], args[1])
		return int32(r), err
	}
	for _, w := range []*Type{TypeByteW, TypeShortW, TypeInteger, TypeLongW, TypeFloatW, TypeDoubleW} {
		p := w.Unboxed()
		cmp := *compareTo
		addMethods(w,
			&cmp,
			staticMethod("valueOf", w, identity, p),
			staticMethod("valueOf", w, parse(p), TypeString),
			staticMethod("toString", TypeString, toString, p),
			staticMethod("compare", TypeInt, compare, p, p),
		)
	}
	addMethods(TypeByteW, staticMethod("parseByte", TypeByte, parse(TypeByte), TypeString))
	addMethods(TypeShortW, staticMethod("parseShort", TypeShort, parse(TypeShort), TypeString))
	addMethods(TypeInteger,
		staticMethod("parseInt", TypeInt, parse(TypeInt), TypeString),
		staticMethod("parseInt", TypeInt, func(_ *Context, _ any, args []any) (any, error) {
			n, err := strconv.ParseInt(args[0].(string), int(args[1].(int32)), 32)
			if err != nil {
				return nil, throwNew(TypeNumberFormat, "For input string: \"%s\"", args[0])
			}
			return int32(n), nil
		}, TypeString, TypeInt),
		staticMethod("toBinaryString", TypeString, func(_ *Context, _ any, args []any) (any, error) {
			return strconv.FormatUint(uint64(uint32(args[0].(int32))), 2), nil
		}, TypeInt),
		staticMethod("toHexString", TypeString, func(_ *Context, _ any, args []any) (any, error) {
			return strconv.FormatUint(uint64(uint32(args[0].(int32))), 16), nil
		}, TypeInt),
		staticMethod("toOctalString", TypeString, func(_ *Context, _ any, args []any) (any, error) {
			return strconv.FormatUint(uint64(uint32(args[0].(int32))), 8), nil
		}, TypeInt),
		staticMethod("max", TypeInt, func(_ *Context, _ any, args []any) (any, error) {
			return max(args[0].(int32), args[1].(int32)), nil
		}, TypeInt, TypeInt),
		staticMethod("min", TypeInt, func(_ *Context, _ any, args []any) (any, error) {
			return min(args[0].(int32), args[1].(int32)), nil
		}, TypeInt, TypeInt),
		staticMethod("sum", TypeInt, func(_ *Context, _ any, args []any) (any, error) {
			return args[0].(int32) + args[1].(int32), nil
		}, TypeInt, TypeInt),
	)
	addMethods(TypeLongW, staticMethod("parseLong", TypeLong, parse(TypeLong), TypeString))
	addMethods(TypeFloatW, staticMethod("parseFloat", TypeFloat, parse(TypeFloat), TypeString))
	addMethods(TypeDoubleW,
		staticMethod("parseDouble", TypeDouble, parse(TypeDouble), TypeString),
		staticMethod("isNaN", TypeBoolean, func(_ *Context, _ any, args []any) (any, error) {
			return math.IsNaN(args[0].(float64)), nil
		}, TypeDouble),
		staticMethod("isInfinite", TypeBoolean, func(_ *Context, _ any, args []any) (any, error) {
			return math.IsInf(args[0].(float64), 0), nil
		}, TypeDouble),
	)

	TypeByteW.addField(constant("MAX_VALUE", TypeByte, int8(math.MaxInt8)))
	TypeByteW.addField(constant("MIN_VALUE", TypeByte, int8(math.MinInt8)))
	TypeShortW.addField(constant("MAX_VALUE", TypeShort, int16(math.MaxInt16)))
	TypeShortW.addField(constant("MIN_VALUE", TypeShort, int16(math.MinInt16)))
	TypeInteger.addField(constant("MAX_VALUE", TypeInt, int32(math.MaxInt32)))
	TypeInteger.addField(constant("MIN_VALUE", TypeInt, int32(math.MinInt32)))
	TypeLongW.addField(constant("MAX_VALUE", TypeLong, int64(math.MaxInt64)))
	TypeLongW.addField(constant("MIN_VALUE", TypeLong, int64(math.MinInt64)))
	TypeFloatW.addField(constant("MAX_VALUE", TypeFloat, float32(math.MaxFloat32)))
	TypeFloatW.addField(constant("MIN_VALUE", TypeFloat, float32(math.SmallestNonzeroFloat32)))
	TypeDoubleW.addField(constant("MAX_VALUE", TypeDouble, math.MaxFloat64))
	TypeDoubleW.addField(constant("MIN_VALUE", TypeDouble, math.SmallestNonzeroFloat64))
	TypeDoubleW.addField(constant("POSITIVE_INFINITY", TypeDouble, math.Inf(1)))
	TypeDoubleW.addField(constant("NEGATIVE_INFINITY", TypeDouble, math.Inf(-1)))
	TypeDoubleW.addField(constant("NaN", TypeDouble, math.NaN()))
}

func installCharacterAndBoolean() {
	pred := func(fn func(rune) bool) HostFunc {
		return func(_ *Context, _ any, args []any) (any, error) {
			return fn(rune(args[0].(Char))), nil
		}
	}
	mapRune := func(fn func(rune) rune) HostFunc {
		return func(_ *Context, _ any, args []any) (any, error) {
			return Char(fn(rune(args[0].(Char)))), nil
		}
	}
	addMethods(TypeCharacter,
		staticMethod("isDigit", TypeBoolean, pred(unicode.IsDigit), TypeChar),
		staticMethod("isLetter", TypeBoolean, pred(unicode.IsLetter), TypeChar),
		staticMethod("isLetterOrDigit", TypeBoolean, pred(func(r rune) bool {
			return unicode.IsLetter(r) || unicode.IsDigit(r)
		}), TypeChar),
		staticMethod("isWhitespace", TypeBoolean, pred(unicode.IsSpace), TypeChar),
		staticMethod("isUpperCase", TypeBoolean, pred(unicode.IsUpper), TypeChar),
		staticMethod("isLowerCase", TypeBoolean, pred(unicode.IsLower), TypeChar),
		staticMethod("toUpperCase", TypeChar, mapRune(unicode.ToUpper), TypeChar),
		staticMethod("toLowerCase", TypeChar, mapRune(unicode.ToLower), TypeChar),
		staticMethod("getNumericValue", TypeInt, func(_ *Context, _ any, args []any) (any, error) {
			r := rune(args[0].(Char))
			switch {
			case r >= '0' && r <= '9':
				return int32(r - '0'), nil
			case unicode.IsLetter(r) && r < unicode.MaxASCII:
				return int32(unicode.ToLower(r)-'a') + 10, nil
			}
			return int32(-1), nil
		}, TypeChar),
		staticMethod("valueOf", TypeCharacter, func(_ *Context, _ any, args []any) (any, error) {
			return args[0], nil
		}, TypeChar),
		staticMethod("toString", TypeString, func(_ *Context, _ any, args []any) (any, error) {
			return string(rune(args[0].(Char))), nil
		}, TypeChar),
		method("charValue", TypeChar, func(_ *Context, recv any, _ []any) (any, error) {
			return recv, nil
		}),
		method("compareTo", TypeInt, func(c *Context, recv any, args []any) (any, error) {
			r, err := c.CompareValues(recv, args[0])
			return int32(r), err
		}, TypeObject),
	)
	addMethods(TypeBooleanW,
		staticMethod("parseBoolean", TypeBoolean, func(_ *Context, _ any, args []any) (any, error) {
			s, _ := args[0].(string)
			return strings.EqualFold(strings.TrimSpace(s), "true"), nil
		}, TypeString),
		staticMethod("valueOf", TypeBooleanW, func(_ *Context, _ any, args []any) (any, error) {
			return args[0], nil
		}, TypeBoolean),
		staticMethod("toString", TypeString, func(_ *Context, _ any, args []any) (any, error) {
			return strconv.FormatBool(args[0].(bool)), nil
		}, TypeBoolean),
		method("booleanValue", TypeBoolean, func(_ *Context, recv any, _ []any) (any, error) {
			return recv, nil
		}),
	)
	TypeBooleanW.addField(constant("TRUE", TypeBooleanW, true))
	TypeBooleanW.addField(constant("FALSE", TypeBooleanW, false))
}

func installMath() {
	unary := func(fn func(float64) float64) HostFunc {
		return func(_ *Context, _ any, args []any) (any, error) {
			return fn(args[0].(float64)), nil
		}
	}
	binary := func(fn func(float64, float64) float64) HostFunc {
		return func(_ *Context, _ any, args []any) (any, error) {
			return fn(args[0].(float64), args[1].(float64)), nil
		}
	}
	addMethods(TypeMath,
		staticMethod("abs", TypeInt, func(_ *Context, _ any, args []any) (any, error) {
			v := args[0].(int32)
			if v < 0 {
				return -v, nil
			}
			return v, nil
		}, TypeInt),
		staticMethod("abs", TypeLong, func(_ *Context, _ any, args []any) (any, error) {
			v := args[0].(int64)
			if v < 0 {
				return -v, nil
			}
			return v, nil
		}, TypeLong),
		staticMethod("abs", TypeFloat, func(_ *Context, _ any, args []any) (any, error) {
			return float32(math.Abs(float64(args[0].(float32)))), nil
		}, TypeFloat),
		staticMethod("abs", TypeDouble, unary(math.Abs), TypeDouble),
		staticMethod("max", TypeInt, func(_ *Context, _ any, args []any) (any, error) {
			return max(args[0].(int32), args[1].(int32)), nil
		}, TypeInt, TypeInt),
		staticMethod("max", TypeLong, func(_ *Context, _ any, args []any) (any, error) {
			return max(args[0].(int64), args[1].(int64)), nil
		}, TypeLong, TypeLong),
		staticMethod("max", TypeDouble, binary(math.Max), TypeDouble, TypeDouble),
		staticMethod("min", TypeInt, func(_ *Context, _ any, args []any) (any, error) {
			return min(args[0].(int32), args[1].(int32)), nil
		}, TypeInt, TypeInt),
		staticMethod("min", TypeLong, func(_ *Context, _ any, args []any) (any, error) {
			return min(args[0].(int64), args[1].(int64)), nil
		}, TypeLong, TypeLong),
		staticMethod("min", TypeDouble, binary(math.Min), TypeDouble, TypeDouble),
		staticMethod("pow", TypeDouble, binary(math.Pow), TypeDouble, TypeDouble),
		staticMethod("hypot", TypeDouble, binary(math.Hypot), TypeDouble, TypeDouble),
		staticMethod("atan2", TypeDouble, binary(math.Atan2), TypeDouble, TypeDouble),
		staticMethod("sqrt", TypeDouble, unary(math.Sqrt), TypeDouble),
		staticMethod("cbrt", TypeDouble, unary(math.Cbrt), TypeDouble),
		staticMethod("floor", TypeDouble, unary(math.Floor), TypeDouble),
		staticMethod("ceil", TypeDouble, unary(math.Ceil), TypeDouble),
		staticMethod("rint", TypeDouble, unary(math.RoundToEven), TypeDouble),
		staticMethod("sin", TypeDouble, unary(math.Sin), TypeDouble),
		staticMethod("cos", TypeDouble, unary(math.Cos), TypeDouble),
		staticMethod("tan", TypeDouble, unary(math.Tan), TypeDouble),
		staticMethod("asin", TypeDouble, unary(math.Asin), TypeDouble),
		staticMethod("acos", TypeDouble, unary(math.Acos), TypeDouble),
		staticMethod("atan", TypeDouble, unary(math.Atan), TypeDouble),
		staticMethod("exp", TypeDouble, unary(math.Exp), TypeDouble),
		staticMethod("log", TypeDouble, unary(math.Log), TypeDouble),
		staticMethod("log10", TypeDouble, unary(math.Log10), TypeDouble),
		staticMethod("toRadians", TypeDouble, unary(func(d float64) float64 { return d * math.Pi / 180 }), TypeDouble),
		staticMethod("toDegrees", TypeDouble, unary(func(r float64) float64 { return r * 180 / math.Pi }), TypeDouble),
		staticMethod("signum", TypeDouble, unary(func(d float64) float64 {
			switch {
			case d > 0:
				return 1
			case d < 0:
				return -1
			}
			return d
		}), TypeDouble),
		staticMethod("round", TypeLong, func(_ *Context, _ any, args []any) (any, error) {
			return floatToInt64(math.Floor(args[0].(float64) + 0.5)), nil
		}, TypeDouble),
		staticMethod("round", TypeInt, func(_ *Context, _ any, args []any) (any, error) {
			return floatToInt32(math.Floor(float64(args[0].(float32)) + 0.5)), nil
		}, TypeFloat),
		staticMethod("random", TypeDouble, func(*Context, any, []any) (any, error) {
			return rand.Float64(), nil
		}),
		staticMethod("floorDiv", TypeInt, func(_ *Context, _ any, args []any) (any, error) {
			a, b := args[0].(int32), args[1].(int32)
			if b == 0 {
				return nil, throwNew(TypeArithmeticException, "/ by zero")
			}
			q := a / b
			if (a%b != 0) && ((a < 0) != (b < 0)) {
				q--
			}
			return q, nil
		}, TypeInt, TypeInt),
		staticMethod("floorMod", TypeInt, func(_ *Context, _ any, args []any) (any, error) {
			a, b := args[0].(int32), args[1].(int32)
			if b == 0 {
				return nil, throwNew(TypeArithmeticException, "/ by zero")
			}
			m := a % b
			if m != 0 && ((m < 0) != (b < 0)) {
				m += b
			}
			return m, nil
		}, TypeInt, TypeInt),
	)
	TypeMath.addField(constant("PI", TypeDouble, math.Pi))
	TypeMath.addField(constant("E", TypeDouble, math.E))
}

func installSystem() {
	TypeSystem.addField(&HostField{Name: "out", Type: TypePrintStream, Static: true,
		Get: func(c *Context, _ any) (any, error) { return &PrintStream{out: c.out}, nil }})
	TypeSystem.addField(&HostField{Name: "err", Type: TypePrintStream, Static: true,
		Get: func(c *Context, _ any) (any, error) { return &PrintStream{out: c.warn}, nil }})
	addMethods(TypeSystem,
		staticMethod("currentTimeMillis", TypeLong, func(*Context, any, []any) (any, error) {
			return time.Now().UnixMilli(), nil
		}),
		staticMethod("nanoTime", TypeLong, func(*Context, any, []any) (any, error) {
			return time.Now().UnixNano(), nil
		}),
		staticMethod("lineSeparator", TypeString, func(*Context, any, []any) (any, error) {
			return "\n", nil
		}),
		staticMethod("getenv", TypeString, func(_ *Context, _ any, args []any) (any, error) {
			v, ok := os.LookupEnv(args[0].(string))
			if !ok {
				return nil, nil
			}
			return v, nil
		}, TypeString),
		staticMethod("identityHashCode", TypeInt, func(_ *Context, _ any, args []any) (any, error) {
			return hashCode(args[0]), nil
		}, TypeObject),
		staticMethod("arraycopy", TypeVoid, func(_ *Context, _ any, args []any) (any, error) {
			src, ok1 := args[0].(*Array)
			dst, ok2 := args[2].(*Array)
			if !ok1 || !ok2 {
				return nil, throwNew(TypeIllegalArgument, "arraycopy: arguments are not arrays")
			}
			sp, dp, n := int(args[1].(int32)), int(args[3].(int32)), int(args[4].(int32))
			if sp < 0 || dp < 0 || n < 0 || sp+n > len(src.Values) || dp+n > len(dst.Values) {
				return nil, throwNew(TypeArrayIndexOutOfBound, "arraycopy: last source index %d out of bounds for length %d", sp+n, len(src.Values))
			}
			copy(dst.Values[dp:dp+n], src.Values[sp:sp+n])
			return nil, nil
		}, TypeObject, TypeInt, TypeObject, TypeInt, TypeInt),
	)
}

func installStringBuilder() {
	sb := func(fn func(c *Context, b *StringBuilder, args []any) (any, error)) HostFunc {
		return func(c *Context, recv any, args []any) (any, error) {
			return fn(c, recv.(*StringBuilder), args)
		}
	}
	newBuilder := func(c *Context, _ any, args []any) (any, error) {
		b := &StringBuilder{}
		if len(args) == 1 {
			if s, ok := args[0].(string); ok {
				b.buf = []rune(s)
			}
		}
		return b, nil
	}
	TypeStringBuilder.addConstructor(method("", TypeStringBuilder, newBuilder))
	TypeStringBuilder.addConstructor(method("", TypeStringBuilder, newBuilder, TypeString))
	TypeStringBuilder.addConstructor(method("", TypeStringBuilder, newBuilder, TypeInt))
	addMethods(TypeStringBuilder,
		method("append", TypeStringBuilder, sb(func(c *Context, b *StringBuilder, args []any) (any, error) {
			s, err := c.Stringify(args[0])
			if err != nil {
				return nil, err
			}
			b.buf = append(b.buf, []rune(s)...)
			return b, nil
		}), TypeObject),
		method("insert", TypeStringBuilder, sb(func(c *Context, b *StringBuilder, args []any) (any, error) {
			i := int(args[0].(int32))
			if i < 0 || i > len(b.buf) {
				return nil, throwNew(TypeIndexOutOfBounds, "offset %d, length %d", i, len(b.buf))
			}
			s, err := c.Stringify(args[1])
			if err != nil {
				return nil, err
			}
			rs := append([]rune(s), b.buf[i:]...)
			b.buf = append(b.buf[:i], rs...)
			return b, nil
		}), TypeInt, TypeObject),
		method("reverse", TypeStringBuilder, sb(func(_ *Context, b *StringBuilder, _ []any) (any, error) {
			for i, j := 0, len(b.buf)-1; i < j; i, j = i+1, j-1 {
				b.buf[i], b.buf[j] = b.buf[j], b.buf[i]
			}
			return b, nil
		})),
		method("length", TypeInt, sb(func(_ *Context, b *StringBuilder, _ []any) (any, error) {
			return int32(len(b.buf)), nil
		})),
		method("charAt", TypeChar, sb(func(_ *Context, b *StringBuilder, args []any) (any, error) {
			i := int(args[0].(int32))
			if i < 0 || i >= len(b.buf) {
				return nil, throwNew(TypeIndexOutOfBounds, "index %d, length %d", i, len(b.buf))
			}
			return Char(b.buf[i]), nil
		}), TypeInt),
		method("setLength", TypeVoid, sb(func(_ *Context, b *StringBuilder, args []any) (any, error) {
			n := int(args[0].(int32))
			if n < 0 {
				return nil, throwNew(TypeIndexOutOfBounds, "length %d", n)
			}
			for len(b.buf) < n {
				b.buf = append(b.buf, 0)
			}
			b.buf = b.buf[:n]
			return nil, nil
		}), TypeInt),
		method("deleteCharAt", TypeStringBuilder, sb(func(_ *Context, b *StringBuilder, args []any) (any, error) {
			i := int(args[0].(int32))
			if i < 0 || i >= len(b.buf) {
				return nil, throwNew(TypeIndexOutOfBounds, "index %d, length %d", i, len(b.buf))
			}
			b.buf = append(b.buf[:i], b.buf[i+1:]...)
			return b, nil
		}), TypeInt),
		method("toString", TypeString, sb(func(_ *Context, b *StringBuilder, _ []any) (any, error) {
			return b.String(), nil
		})),
	)
}

func installThrowables() {
	for _, t := range throwableTypes {
		class := t
		build := func(_ *Context, _ any, args []any) (any, error) {
			th := &Throwable{Class: class}
			for _, a := range args {
				switch x := a.(type) {
				case string:
					th.Message = x
				case *Throwable:
					th.Cause = x
					if th.Message == nil && len(args) == 1 {
						th.Message = x.String()
					}
				}
			}
			return th, nil
		}
		class.addConstructor(method("", class, build))
		class.addConstructor(method("", class, build, TypeString))
		class.addConstructor(method("", class, build, TypeString, TypeThrowable))
		class.addConstructor(method("", class, build, TypeThrowable))
	}
	th := func(fn func(c *Context, t *Throwable, args []any) (any, error)) HostFunc {
		return func(c *Context, recv any, args []any) (any, error) {
			return fn(c, recv.(*Throwable), args)
		}
	}
	addMethods(TypeThrowable,
		method("getMessage", TypeString, th(func(_ *Context, t *Throwable, _ []any) (any, error) {
			return t.Message, nil
		})),
		method("getLocalizedMessage", TypeString, th(func(_ *Context, t *Throwable, _ []any) (any, error) {
			return t.Message, nil
		})),
		method("getCause", TypeThrowable, th(func(_ *Context, t *Throwable, _ []any) (any, error) {
			if t.Cause == nil {
				return nil, nil
			}
			return t.Cause, nil
		})),
		method("initCause", TypeThrowable, th(func(_ *Context, t *Throwable, args []any) (any, error) {
			if cause, ok := args[0].(*Throwable); ok {
				t.Cause = cause
			}
			return t, nil
		}), TypeThrowable),
		method("toString", TypeString, th(func(_ *Context, t *Throwable, _ []any) (any, error) {
			return t.String(), nil
		})),
		method("printStackTrace", TypeVoid, th(func(c *Context, t *Throwable, _ []any) (any, error) {
			c.warn.Println(t.String())
			for cause := t.Cause; cause != nil; cause = cause.Cause {
				c.warn.Println("Caused by: " + cause.String())
			}
			return nil, nil
		})),
	)
}

func installClass() {
	cls := func(fn func(c *Context, t *Type, args []any) (any, error)) HostFunc {
		return func(c *Context, recv any, args []any) (any, error) {
			return fn(c, recv.(*Type), args)
		}
	}
	addMethods(TypeClass,
		method("getName", TypeString, cls(func(_ *Context, t *Type, _ []any) (any, error) {
			return t.Name, nil
		})),
		method("getSimpleName", TypeString, cls(func(_ *Context, t *Type, _ []any) (any, error) {
			return t.SimpleName(), nil
		})),
		method("isInstance", TypeBoolean, cls(func(c *Context, t *Type, args []any) (any, error) {
			return args[0] != nil && t.Boxed().AssignableFrom(c.TypeOf(args[0])), nil
		}), TypeObject),
		method("isInterface", TypeBoolean, cls(func(_ *Context, t *Type, _ []any) (any, error) {
			return t.Interface, nil
		})),
		method("isArray", TypeBoolean, cls(func(_ *Context, t *Type, _ []any) (any, error) {
			return t.IsArray(), nil
		})),
		method("isPrimitive", TypeBoolean, cls(func(_ *Context, t *Type, _ []any) (any, error) {
			return t.IsPrimitive(), nil
		})),
		method("getSuperclass", TypeClass, cls(func(_ *Context, t *Type, _ []any) (any, error) {
			if t.Super == nil {
				return nil, nil
			}
			return t.Super, nil
		})),
		method("getComponentType", TypeClass, cls(func(_ *Context, t *Type, _ []any) (any, error) {
			if t.Elem == nil {
				return nil, nil
			}
			return t.Elem, nil
		})),
		method("toString", TypeString, cls(func(_ *Context, t *Type, _ []any) (any, error) {
			return t.String(), nil
		})),
	)
}
