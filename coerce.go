package script

import (
	"math"
	"strconv"
	"strings"
)

type numRank int

const (
	rankNone numRank = iota
	rankInt
	rankLong
	rankFloat
	rankDouble
)

func rankOf(v any) numRank {
	switch v.(type) {
	case int8, int16, int32, Char:
		return rankInt
	case int64:
		return rankLong
	case float32:
		return rankFloat
	case float64:
		return rankDouble
	}
	return rankNone
}

func isNumber(v any) bool {
	switch v.(type) {
	case int8, int16, int32, int64, float32, float64:
		return true
	}
	return false
}

func isIntegral(v any) bool {
	switch v.(type) {
	case int8, int16, int32, int64, Char:
		return true
	}
	return false
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case Char:
		return int64(x)
	case float32:
		return floatToInt64(float64(x))
	case float64:
		return floatToInt64(x)
	case bool:
		if x {
			return 1
		}
	}
	return 0
}

func toFloat64(v any) float64 {
	switch x := v.(type) {
	case float32:
		return float64(x)
	case float64:
		return x
	case int8, int16, int32, int64, Char:
		return float64(toInt64(x))
	}
	return 0
}

func floatToInt64(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

func floatToInt32(f float64) int32 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int32(f)
}

// promote converts both operands to the rank of the wider one.
func promote(a, b any) (numRank, any, any) {
	r := max(rankOf(a), rankOf(b))
	switch r {
	case rankDouble:
		return r, toFloat64(a), toFloat64(b)
	case rankFloat:
		return r, float32(toFloat64(a)), float32(toFloat64(b))
	case rankLong:
		return r, toInt64(a), toInt64(b)
	}
	return rankInt, int32(toInt64(a)), int32(toInt64(b))
}

func toBoolean(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case Char:
		return x != 0
	case int8, int16, int32, int64:
		return toInt64(x) != 0
	case float32, float64:
		return toFloat64(x) != 0
	}
	return true
}

// formatFloat renders floating point values like Double.toString.
func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	abs := math.Abs(f)
	if abs >= 1e-3 && abs < 1e7 {
		s := strconv.FormatFloat(f, 'f', -1, bits)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	s := strconv.FormatFloat(f, 'E', -1, bits)
	mant, exp, _ := strings.Cut(s, "E")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	exp = strings.TrimPrefix(exp, "+")
	neg := strings.HasPrefix(exp, "-")
	exp = strings.TrimLeft(strings.TrimPrefix(exp, "-"), "0")
	if neg {
		exp = "-" + exp
	}
	return mant + "E" + exp
}

// Cast converts v to type t following the script coercion rules.
func (c *Context) Cast(v any, t *Type) (any, error) {
	if t == nil || t == TypeVoid {
		return v, nil
	}
	if v == nil {
		if t.IsPrimitive() {
			return zeroValue(t), nil
		}
		return nil, nil
	}
	if t.IsPrimitive() || t.primitive != nil {
		return castPrimitive(v, t.Unboxed())
	}
	if t == TypeString {
		if s, ok := v.(string); ok {
			return s, nil
		}
		return c.Stringify(v)
	}
	if t.Elem != nil {
		return c.castArray(v, t)
	}
	src := c.TypeOf(v)
	if t.AssignableFrom(src) {
		return v, nil
	}
	if l, ok := v.(*Lambda); ok && t.Functional != "" {
		return c.AdaptLambda(l, t)
	}
	if t == TypeCharSequence {
		if sb, ok := v.(*StringBuilder); ok {
			return sb, nil
		}
	}
	return nil, typeError("Cannot cast %s to %s", src.Name, t.Name)
}

func castPrimitive(v any, p *Type) (any, error) {
	if s, ok := v.(string); ok {
		return parsePrimitive(s, p)
	}
	switch x := v.(type) {
	case bool:
		if p.Kind == KindBoolean {
			return x, nil
		}
		return nil, typeError("Cannot cast boolean to %s", p.Name)
	case Char, int8, int16, int32, int64, float32, float64:
		return convertNumber(x, p)
	}
	if sb, ok := v.(*StringBuilder); ok {
		return parsePrimitive(sb.String(), p)
	}
	return nil, typeError("Cannot cast %T to %s", v, p.Name)
}

func convertNumber(v any, p *Type) (any, error) {
	integral := isIntegral(v)
	switch p.Kind {
	case KindBoolean:
		return nil, typeError("Cannot cast %s to boolean", numericName(v))
	case KindChar:
		return Char(rune(uint16(toInt64(v)))), nil
	case KindByte:
		if integral {
			return int8(toInt64(v)), nil
		}
		return int8(floatToInt32(toFloat64(v))), nil
	case KindShort:
		if integral {
			return int16(toInt64(v)), nil
		}
		return int16(floatToInt32(toFloat64(v))), nil
	case KindInt:
		if integral {
			return int32(toInt64(v)), nil
		}
		return floatToInt32(toFloat64(v)), nil
	case KindLong:
		return toInt64(v), nil
	case KindFloat:
		return float32(toFloat64(v)), nil
	case KindDouble:
		return toFloat64(v), nil
	}
	return nil, typeError("Cannot cast %s to %s", numericName(v), p.Name)
}

func numericName(v any) string {
	switch v.(type) {
	case Char:
		return "char"
	case int8:
		return "byte"
	case int16:
		return "short"
	case int32:
		return "int"
	case int64:
		return "long"
	case float32:
		return "float"
	case float64:
		return "double"
	}
	return "value"
}

func parsePrimitive(s string, p *Type) (any, error) {
	t := strings.TrimSpace(s)
	fail := func(err error) (any, error) {
		e := typeError("Cannot parse %q as %s", s, p.Name)
		e.Cause = err
		return nil, e
	}
	switch p.Kind {
	case KindBoolean:
		switch strings.ToLower(t) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return fail(nil)
	case KindChar:
		r := []rune(s)
		if len(r) != 1 {
			return fail(nil)
		}
		return Char(r[0]), nil
	case KindByte:
		n, err := strconv.ParseInt(t, 10, 8)
		if err != nil {
			return fail(err)
		}
		return int8(n), nil
	case KindShort:
		n, err := strconv.ParseInt(t, 10, 16)
		if err != nil {
			return fail(err)
		}
		return int16(n), nil
	case KindInt:
		n, err := strconv.ParseInt(t, 10, 32)
		if err != nil {
			return fail(err)
		}
		return int32(n), nil
	case KindLong:
		n, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimSuffix(t, "L"), "l"), 10, 64)
		if err != nil {
			return fail(err)
		}
		return n, nil
	case KindFloat:
		f, err := strconv.ParseFloat(strings.TrimRight(t, "fF"), 32)
		if err != nil {
			return fail(err)
		}
		return float32(f), nil
	case KindDouble:
		f, err := strconv.ParseFloat(strings.TrimRight(t, "dD"), 64)
		if err != nil {
			return fail(err)
		}
		return f, nil
	}
	return fail(nil)
}

// castArray rebuilds v as an array of t, casting elements per dimension.
func (c *Context) castArray(v any, t *Type) (any, error) {
	var values []any
	switch x := v.(type) {
	case *Array:
		if t.AssignableFrom(ArrayOf(x.Elem)) {
			return x, nil
		}
		values = x.Values
	case *ArrayList:
		values = x.Values
	default:
		return nil, typeError("Cannot cast %s to %s", c.TypeOf(v).Name, t.Name)
	}
	out := &Array{Elem: t.Elem, Values: make([]any, len(values))}
	for i, e := range values {
		cv, err := c.Cast(e, t.Elem)
		if err != nil {
			return nil, err
		}
		out.Values[i] = cv
	}
	return out, nil
}

// Stringify renders v, calling a script-defined toString where one exists.
func (c *Context) Stringify(v any) (string, error) {
	switch x := v.(type) {
	case *Instance:
		if m, ok := x.Class.findMethod("toString", 0); ok {
			r, err := c.invokeCustomMethod(x, m, nil)
			if err != nil {
				return "", err
			}
			return FormatValue(r), nil
		}
	case *Array:
		return c.joinValues(x.Values, "[", "]")
	case *ArrayList:
		return c.joinValues(x.Values, "[", "]")
	case *HashMap:
		var sb strings.Builder
		sb.WriteString("{")
		for i, k := range x.keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			ks, err := c.Stringify(k)
			if err != nil {
				return "", err
			}
			vs, err := c.Stringify(x.values[k])
			if err != nil {
				return "", err
			}
			sb.WriteString(ks + "=" + vs)
		}
		sb.WriteString("}")
		return sb.String(), nil
	}
	return FormatValue(v), nil
}

func (c *Context) joinValues(values []any, open, close string) (string, error) {
	var sb strings.Builder
	sb.WriteString(open)
	for i, e := range values {
		if i > 0 {
			sb.WriteString(", ")
		}
		s, err := c.Stringify(e)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	sb.WriteString(close)
	return sb.String(), nil
}

// ValuesEqual is value equality with numeric awareness: numbers compare by
// value regardless of width.
func (c *Context) ValuesEqual(a, b any) (bool, error) {
	if a == nil || b == nil {
		return a == nil && b == nil, nil
	}
	if rankOf(a) != rankNone && rankOf(b) != rankNone {
		if isIntegral(a) && isIntegral(b) {
			return toInt64(a) == toInt64(b), nil
		}
		return toFloat64(a) == toFloat64(b), nil
	}
	if inst, ok := a.(*Instance); ok {
		if m, found := inst.Class.findMethod("equals", 1); found {
			r, err := c.invokeCustomMethod(inst, m, []any{b})
			if err != nil {
				return false, err
			}
			return toBoolean(r), nil
		}
	}
	if sa, ok := a.(*StringBuilder); ok {
		return sa == b, nil
	}
	return a == b, nil
}

// CompareValues orders two values; null operands and incomparable kinds
// are errors.
func (c *Context) CompareValues(a, b any) (int, error) {
	if a == nil || b == nil {
		return 0, arithmeticError("Cannot apply comparison on null values")
	}
	if rankOf(a) != rankNone && rankOf(b) != rankNone {
		if isIntegral(a) && isIntegral(b) {
			return cmp3(toInt64(a), toInt64(b)), nil
		}
		af, bf := toFloat64(a), toFloat64(b)
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		}
		return 0, nil
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	case bool:
		if y, ok := b.(bool); ok {
			return cmp3(toInt64(x), toInt64(y)), nil
		}
	case *Instance:
		if m, found := x.Class.findMethod("compareTo", 1); found {
			r, err := c.invokeCustomMethod(x, m, []any{b})
			if err != nil {
				return 0, err
			}
			return int(toInt64(r)), nil
		}
	}
	return 0, arithmeticError("Cannot compare: %s and %s", c.TypeOf(a).Name, c.TypeOf(b).Name)
}

func cmp3(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
