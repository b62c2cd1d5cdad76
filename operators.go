package script

import (
	"math"
	"strings"
)

// BinaryOp applies a binary operator to two evaluated operands. Both
// operands of && and || are always evaluated by the caller.
func (c *Context) BinaryOp(op string, a, b any) (any, error) {
	switch op {
	case "+":
		if sa, ok := a.(string); ok {
			sb, err := c.Stringify(b)
			return sa + sb, err
		}
		if sb, ok := b.(string); ok {
			sa, err := c.Stringify(a)
			return sa + sb, err
		}
		return c.arithmetic(op, a, b)
	case "*":
		if s, ok := a.(string); ok && isIntegral(b) {
			n := toInt64(b)
			if n < 0 {
				return nil, throwNew(TypeIllegalArgument, "count is negative: %d", n)
			}
			return strings.Repeat(s, int(n)), nil
		}
		return c.arithmetic(op, a, b)
	case "-", "/", "%":
		return c.arithmetic(op, a, b)
	case "==":
		return c.ValuesEqual(a, b)
	case "!=":
		eq, err := c.ValuesEqual(a, b)
		return !eq, err
	case "<", ">", "<=", ">=":
		n, err := c.CompareValues(a, b)
		if err != nil {
			return nil, err
		}
		switch op {
		case "<":
			return n < 0, nil
		case ">":
			return n > 0, nil
		case "<=":
			return n <= 0, nil
		}
		return n >= 0, nil
	case "&&", "||":
		if a == nil || b == nil {
			return nil, arithmeticError("Cannot apply logic operations on null values")
		}
		if op == "&&" {
			return toBoolean(a) && toBoolean(b), nil
		}
		return toBoolean(a) || toBoolean(b), nil
	case "&", "|", "^":
		return bitwise(op, a, b)
	case "<<", ">>", ">>>":
		return shift(op, a, b)
	}
	return nil, execError("Unknown operator: %s", op)
}

func (c *Context) arithmetic(op string, a, b any) (any, error) {
	if a == nil || b == nil {
		return nil, arithmeticError("Cannot apply operator %s on null values", op)
	}
	if rankOf(a) == rankNone || rankOf(b) == rankNone {
		return nil, arithmeticError("Cannot apply operator %s to %s and %s", op, c.TypeOf(a).SimpleName(), c.TypeOf(b).SimpleName())
	}
	rank, x, y := promote(a, b)
	switch rank {
	case rankDouble:
		return floatOp(op, x.(float64), y.(float64)), nil
	case rankFloat:
		return float32(floatOp(op, float64(x.(float32)), float64(y.(float32)))), nil
	case rankLong:
		return longOp(op, x.(int64), y.(int64))
	}
	return intOp(op, x.(int32), y.(int32))
}

func floatOp(op string, x, y float64) float64 {
	switch op {
	case "+":
		return x + y
	case "-":
		return x - y
	case "*":
		return x * y
	case "/":
		return x / y
	}
	return math.Mod(x, y)
}

func longOp(op string, x, y int64) (any, error) {
	switch op {
	case "+":
		return x + y, nil
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	}
	if y == 0 {
		return nil, throwNew(TypeArithmeticException, "/ by zero")
	}
	if x == math.MinInt64 && y == -1 {
		if op == "/" {
			return x, nil
		}
		return int64(0), nil
	}
	if op == "/" {
		return x / y, nil
	}
	return x % y, nil
}

func intOp(op string, x, y int32) (any, error) {
	switch op {
	case "+":
		return x + y, nil
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	}
	if y == 0 {
		return nil, throwNew(TypeArithmeticException, "/ by zero")
	}
	if x == math.MinInt32 && y == -1 {
		if op == "/" {
			return x, nil
		}
		return int32(0), nil
	}
	if op == "/" {
		return x / y, nil
	}
	return x % y, nil
}

func bitwise(op string, a, b any) (any, error) {
	if a == nil || b == nil {
		return nil, arithmeticError("Cannot apply logic operations on null values")
	}
	if x, ok := a.(bool); ok {
		y, ok := b.(bool)
		if !ok {
			return nil, arithmeticError("Cannot apply operator %s to boolean and %s", op, numericName(b))
		}
		switch op {
		case "&":
			return x && y, nil
		case "|":
			return x || y, nil
		}
		return x != y, nil
	}
	if !isIntegral(a) || !isIntegral(b) {
		return nil, arithmeticError("Cannot apply operator %s to %s and %s", op, numericName(a), numericName(b))
	}
	if rankOf(a) == rankLong || rankOf(b) == rankLong {
		x, y := toInt64(a), toInt64(b)
		switch op {
		case "&":
			return x & y, nil
		case "|":
			return x | y, nil
		}
		return x ^ y, nil
	}
	x, y := int32(toInt64(a)), int32(toInt64(b))
	switch op {
	case "&":
		return x & y, nil
	case "|":
		return x | y, nil
	}
	return x ^ y, nil
}

func shift(op string, a, b any) (any, error) {
	if a == nil || b == nil {
		return nil, arithmeticError("Cannot apply bitwise operations on null values")
	}
	if !isIntegral(a) || !isIntegral(b) {
		return nil, arithmeticError("Cannot apply operator %s to %s and %s", op, numericName(a), numericName(b))
	}
	n := toInt64(b)
	if rankOf(a) == rankLong {
		x, s := toInt64(a), uint(n&63)
		switch op {
		case "<<":
			return x << s, nil
		case ">>":
			return x >> s, nil
		}
		return int64(uint64(x) >> s), nil
	}
	x, s := int32(toInt64(a)), uint(n&31)
	switch op {
	case "<<":
		return x << s, nil
	case ">>":
		return x >> s, nil
	}
	return int32(uint32(x) >> s), nil
}

// Negate implements unary minus with the operand's promoted type.
func (c *Context) Negate(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, arithmeticError("Cannot apply operator - on null values")
	case float64:
		return -x, nil
	case float32:
		return -x, nil
	case int64:
		return -x, nil
	case int8, int16, int32, Char:
		return -int32(toInt64(x)), nil
	}
	return nil, arithmeticError("Cannot negate %s", c.TypeOf(v).SimpleName())
}

// UnaryOp implements the prefix operators !, ~ and +.
func (c *Context) UnaryOp(op string, v any) (any, error) {
	if v == nil {
		return nil, arithmeticError("Cannot apply operator %s on null values", op)
	}
	switch op {
	case "-":
		return c.Negate(v)
	case "!":
		return !toBoolean(v), nil
	case "+":
		if rankOf(v) == rankNone {
			return nil, arithmeticError("Cannot apply operator + to %s", c.TypeOf(v).SimpleName())
		}
		if rankOf(v) == rankInt {
			return int32(toInt64(v)), nil
		}
		return v, nil
	case "~":
		switch {
		case rankOf(v) == rankLong:
			return ^toInt64(v), nil
		case isIntegral(v):
			return ^int32(toInt64(v)), nil
		}
		return nil, arithmeticError("Cannot bitwise invert %s", c.TypeOf(v).SimpleName())
	}
	return nil, execError("Unknown operator: %s", op)
}

// step adds delta to a numeric value keeping its type, as ++ and -- do.
func step(v any, delta int64) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nullError("Cannot increment null")
	case int8:
		return x + int8(delta), nil
	case int16:
		return x + int16(delta), nil
	case int32:
		return x + int32(delta), nil
	case int64:
		return x + delta, nil
	case Char:
		return x + Char(delta), nil
	case float32:
		return x + float32(delta), nil
	case float64:
		return x + float64(delta), nil
	}
	return nil, arithmeticError("Cannot increment %s", numericName(v))
}

// resultType is the static type of an operator applied to l and r.
func resultType(op string, l, r *Type) *Type {
	switch op {
	case "==", "!=", "<", ">", "<=", ">=", "&&", "||", "instanceof":
		return TypeBoolean
	case "+":
		if l == TypeString || r == TypeString {
			return TypeString
		}
	}
	if l == nil || r == nil || !l.IsNumeric() && l.Unboxed() != TypeChar || !r.IsNumeric() && r.Unboxed() != TypeChar {
		if op == "&" || op == "|" || op == "^" {
			if l != nil && l.Unboxed() == TypeBoolean {
				return TypeBoolean
			}
		}
		return TypeObject
	}
	lk, rk := l.Unboxed().Kind, r.Unboxed().Kind
	if op == "<<" || op == ">>" || op == ">>>" {
		if lk == KindLong {
			return TypeLong
		}
		return TypeInt
	}
	switch {
	case lk == KindDouble || rk == KindDouble:
		return TypeDouble
	case lk == KindFloat || rk == KindFloat:
		return TypeFloat
	case lk == KindLong || rk == KindLong:
		return TypeLong
	}
	return TypeInt
}
