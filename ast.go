package script

import (
	"errors"
)

type SignalKind uint8

const (
	SignalNone SignalKind = iota
	SignalBreak
	SignalContinue
	SignalReturn
)

func (k SignalKind) String() string {
	switch k {
	case SignalBreak:
		return "break"
	case SignalContinue:
		return "continue"
	case SignalReturn:
		return "return"
	}
	return "value"
}

// Signal is the outcome of evaluating a node: a plain value or a control
// transfer that enclosing constructs consume or pass outward.
type Signal struct {
	Kind  SignalKind
	Value any
}

func (s Signal) Abrupt() bool { return s.Kind != SignalNone }

// Node is one unit of parsed syntax.
type Node interface {
	Eval(c *Context) (Signal, error)
	// StaticType reports the type the node produces. It may evaluate
	// sub-expressions.
	StaticType(c *Context) (*Type, error)
}

func valueSignal(v any, err error) (Signal, error) {
	if err != nil {
		return Signal{}, err
	}
	return Signal{Value: v}, nil
}

// evalValue evaluates an expression node. A control transfer escaping an
// expression is reported as an error.
func evalValue(c *Context, n Node) (any, error) {
	if n == nil {
		return nil, nil
	}
	sig, err := n.Eval(c)
	if err != nil {
		return nil, err
	}
	if sig.Abrupt() && sig.Kind != SignalReturn {
		return nil, execError("'%s' outside of a loop", sig.Kind)
	}
	return sig.Value, nil
}

func evalArgs(c *Context, nodes []Node) ([]any, error) {
	args := make([]any, len(nodes))
	for i, n := range nodes {
		v, err := evalValue(c, n)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// valueType is the runtime type of v, or Object for null.
func (c *Context) valueType(v any) *Type {
	if v == nil {
		return TypeObject
	}
	return c.TypeOf(v)
}

// throwableOf materializes err as the exception object a catch clause
// sees. Parse failures and cancellation are not catchable.
func throwableOf(err error) (*Throwable, bool) {
	var se *ScriptError
	if !errors.As(err, &se) {
		return &Throwable{Class: TypeRuntimeException, Message: err.Error()}, true
	}
	if se.Thrown != nil {
		return se.Thrown, true
	}
	var class *Type
	switch se.Code {
	case ErrCodeParse, ErrCodeCanceled:
		return nil, false
	case ErrCodeNull:
		class = TypeNullPointer
	case ErrCodeBounds:
		class = TypeArrayIndexOutOfBound
	case ErrCodeType:
		class = TypeClassCast
	case ErrCodeArithmetic:
		class = TypeArithmeticException
	default:
		class = TypeRuntimeException
	}
	th := &Throwable{Class: class, Message: se.Message}
	if se.Cause != nil {
		th.Cause = &Throwable{Class: TypeRuntimeException, Message: se.Cause.Error()}
	}
	se.Thrown = th
	return th, true
}

// thrownError wraps an exception object raised by a throw statement.
func thrownError(th *Throwable) *ScriptError {
	return &ScriptError{Code: ErrCodeThrown, Message: th.String(), Thrown: th}
}
