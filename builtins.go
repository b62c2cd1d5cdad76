package script

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/oarkflow/convert"
	"github.com/oarkflow/date"
	"github.com/oarkflow/dipper"
	"github.com/oarkflow/expr"
	"github.com/oarkflow/json"
)

// Builtin is a native function callable from scripts by bare name.
type Builtin func(c *Context, args []any) (any, error)

type builtinRegistry struct {
	mu   sync.RWMutex
	fns  map[string]Builtin
	opts BuiltinRegistryOptions
}

type BuiltinRegistryOptions struct {
	AllowOverride bool
	Frozen        bool
}

var (
	builtinRegistryInitOnce sync.Once
	builtins                = &builtinRegistry{
		fns: make(map[string]Builtin),
	}
)

func RegisterBuiltin(name string, fn Builtin) {
	ensureBuiltinRegistryInitialized()
	_ = builtins.register(name, fn, false)
}

func RegisterBuiltinE(name string, fn Builtin) error {
	ensureBuiltinRegistryInitialized()
	return builtins.register(name, fn, false)
}

func UnregisterBuiltin(name string) error {
	ensureBuiltinRegistryInitialized()
	return builtins.unregister(name)
}

func SetBuiltinRegistryOptions(opts BuiltinRegistryOptions) {
	ensureBuiltinRegistryInitialized()
	builtins.mu.Lock()
	builtins.opts = opts
	builtins.mu.Unlock()
}

func GetBuiltinRegistryOptions() BuiltinRegistryOptions {
	ensureBuiltinRegistryInitialized()
	builtins.mu.RLock()
	defer builtins.mu.RUnlock()
	return builtins.opts
}

func FreezeBuiltinRegistry() {
	ensureBuiltinRegistryInitialized()
	builtins.mu.Lock()
	builtins.opts.Frozen = true
	builtins.mu.Unlock()
}

func UnfreezeBuiltinRegistry() {
	ensureBuiltinRegistryInitialized()
	builtins.mu.Lock()
	builtins.opts.Frozen = false
	builtins.mu.Unlock()
}

func LookupBuiltin(name string) (Builtin, bool) {
	ensureBuiltinRegistryInitialized()
	builtins.mu.RLock()
	defer builtins.mu.RUnlock()
	fn, ok := builtins.fns[strings.TrimSpace(name)]
	return fn, ok
}

// registeredBuiltins snapshots the registry for a new Context.
func registeredBuiltins() map[string]Builtin {
	ensureBuiltinRegistryInitialized()
	builtins.mu.RLock()
	defer builtins.mu.RUnlock()
	out := make(map[string]Builtin, len(builtins.fns))
	for name, fn := range builtins.fns {
		out[name] = fn
	}
	return out
}

func (r *builtinRegistry) register(name string, fn Builtin, internal bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ScriptError{Code: ErrCodeRegistry, Message: "builtin name is required"}
	}
	if fn == nil {
		return &ScriptError{Code: ErrCodeRegistry, Message: "builtin handler is required"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.opts.Frozen && !internal {
		return &ScriptError{Code: ErrCodeRegistry, Message: "builtin registry is frozen"}
	}
	if _, exists := r.fns[name]; exists && !r.opts.AllowOverride && !internal {
		return &ScriptError{Code: ErrCodeRegistry, Message: fmt.Sprintf("builtin already exists: %s", name)}
	}
	r.fns[name] = fn
	return nil
}

func (r *builtinRegistry) unregister(name string) error {
	name = strings.TrimSpace(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.opts.Frozen {
		return &ScriptError{Code: ErrCodeRegistry, Message: "builtin registry is frozen"}
	}
	delete(r.fns, name)
	return nil
}

func ensureBuiltinRegistryInitialized() {
	builtinRegistryInitOnce.Do(registerDefaultBuiltins)
}

func registerDefaultBuiltins() {
	defaults := map[string]Builtin{
		"println":            builtinPrintln,
		"print":              builtinPrint,
		"printf":             builtinPrintf,
		"range":              builtinRange,
		"analyze":            builtinAnalyze,
		"typeOf":             builtinTypeOf,
		"toJson":             builtinToJSON,
		"parseJson":          builtinParseJSON,
		"pathGet":            builtinPathGet,
		"expr":               builtinExpr,
		"parseDate":          builtinParseDate,
		"asRunnable":         adaptBuiltin(TypeRunnable),
		"asFunction":         adaptBuiltin(TypeFunction),
		"createSafeExecutor": builtinSafeExecutor,
		"runLater":           builtinRunLater,
		"enableLog":          builtinEnableLog,
		"getContext":         builtinGetContext,
	}
	for name, fn := range defaults {
		_ = builtins.register(name, fn, true)
	}
}

func arity(name string, args []any, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		return typeError("%s() does not accept %d argument(s)", name, len(args))
	}
	return nil
}

func (c *Context) concat(args []any) (string, error) {
	var sb strings.Builder
	for _, a := range args {
		s, err := c.Stringify(a)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

func builtinPrintln(c *Context, args []any) (any, error) {
	s, err := c.concat(args)
	if err != nil {
		return nil, err
	}
	c.out.Println(s)
	return nil, nil
}

func builtinPrint(c *Context, args []any) (any, error) {
	s, err := c.concat(args)
	if err != nil {
		return nil, err
	}
	c.out.Print(s)
	return nil, nil
}

func builtinPrintf(c *Context, args []any) (any, error) {
	if err := arity("printf", args, 1, -1); err != nil {
		return nil, err
	}
	format, err := c.Stringify(args[0])
	if err != nil {
		return nil, err
	}
	s, err := c.FormatJava(format, args[1:])
	if err != nil {
		return nil, err
	}
	c.out.Print(s)
	return nil, nil
}

func builtinRange(c *Context, args []any) (any, error) {
	if err := arity("range", args, 1, 3); err != nil {
		return nil, err
	}
	for _, a := range args {
		if !isIntegral(a) {
			return nil, typeError("range() expects integer arguments, got %s", c.TypeOf(a).Name)
		}
	}
	var start, end, step int64 = 0, toInt64(args[0]), 1
	if len(args) > 1 {
		start, end = toInt64(args[0]), toInt64(args[1])
	}
	if len(args) > 2 {
		step = toInt64(args[2])
	}
	if step == 0 {
		return nil, execError("range() step must not be zero")
	}
	out := NewArrayList()
	for i := start; (step > 0 && i < end) || (step < 0 && i > end); i += step {
		if err := c.checkCanceled(); err != nil {
			return nil, err
		}
		out.Add(int32(i))
	}
	return out, nil
}

func builtinTypeOf(c *Context, args []any) (any, error) {
	if err := arity("typeOf", args, 1, 1); err != nil {
		return nil, err
	}
	if args[0] == nil {
		return "null", nil
	}
	return c.TypeOf(args[0]).Name, nil
}

// builtinAnalyze describes a value: its class, the kind of class and the
// names of its members.
func builtinAnalyze(c *Context, args []any) (any, error) {
	if err := arity("analyze", args, 1, 1); err != nil {
		return nil, err
	}
	v := args[0]
	m := NewHashMap()
	if v == nil {
		m.Put("class", "null")
		m.Put("kind", "null")
		return m, nil
	}
	t := c.TypeOf(v)
	if tv, ok := v.(*Type); ok {
		t = tv
	}
	m.Put("class", t.Name)
	methods := NewArrayList()
	fields := NewArrayList()
	switch {
	case t.Custom != nil:
		m.Put("kind", "custom")
		for _, name := range t.Custom.MethodNames() {
			methods.Add(name)
		}
		if inst, ok := v.(*Instance); ok {
			for _, name := range inst.FieldNames() {
				fields.Add(name)
			}
		} else {
			for _, cls := range t.Custom.chain() {
				for _, f := range cls.Fields {
					fields.Add(f.Name)
				}
			}
		}
	default:
		switch {
		case t.IsArray():
			m.Put("kind", "array")
			fields.Add("length")
		case t.Interface:
			m.Put("kind", "interface")
		case t.IsPrimitive() || t.primitive != nil:
			m.Put("kind", "primitive")
		default:
			m.Put("kind", "class")
		}
		seenM, seenF := map[string]bool{}, map[string]bool{}
		for s := t; s != nil; s = s.Super {
			for _, name := range s.declaredMethodNames() {
				seenM[name] = true
			}
			for _, f := range s.declaredFields() {
				seenF[f.Name] = true
			}
		}
		for _, i := range t.AllInterfaces() {
			for _, name := range i.declaredMethodNames() {
				seenM[name] = true
			}
		}
		for _, name := range sortedKeys(seenM) {
			methods.Add(name)
		}
		for _, name := range sortedKeys(seenF) {
			fields.Add(name)
		}
	}
	m.Put("methods", methods)
	m.Put("fields", fields)
	return m, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// toNative converts script values to plain Go values for serialization.
func (c *Context) toNative(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, int8, int16, int32, int64, float32, float64:
		return x, nil
	case Char:
		return string(rune(x)), nil
	case *Array:
		return c.nativeSlice(x.Values)
	case *ArrayList:
		return c.nativeSlice(x.Values)
	case *HashMap:
		out := make(map[string]any, x.Len())
		for _, k := range x.Keys() {
			key, err := c.Stringify(k)
			if err != nil {
				return nil, err
			}
			val, _ := x.Get(k)
			nv, err := c.toNative(val)
			if err != nil {
				return nil, err
			}
			out[key] = nv
		}
		return out, nil
	case *Instance:
		out := make(map[string]any, len(x.order))
		for _, name := range x.order {
			nv, err := c.toNative(x.Fields[name].Value)
			if err != nil {
				return nil, err
			}
			out[name] = nv
		}
		return out, nil
	}
	return c.Stringify(v)
}

func (c *Context) nativeSlice(values []any) ([]any, error) {
	out := make([]any, len(values))
	for i, v := range values {
		nv, err := c.toNative(v)
		if err != nil {
			return nil, err
		}
		out[i] = nv
	}
	return out, nil
}

// fromNative converts decoded Go values into script values. Whole numbers
// become int when they fit, long otherwise.
func fromNative(v any) any {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewHashMap()
		for _, k := range keys {
			m.Put(k, fromNative(x[k]))
		}
		return m
	case []any:
		l := NewArrayList()
		for _, e := range x {
			l.Add(fromNative(e))
		}
		return l
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			if x >= math.MinInt32 && x <= math.MaxInt32 {
				return int32(x)
			}
			if x >= math.MinInt64 && x <= math.MaxInt64 {
				return int64(x)
			}
		}
		return x
	case int:
		if x >= math.MinInt32 && x <= math.MaxInt32 {
			return int32(x)
		}
		return int64(x)
	}
	return v
}

func builtinToJSON(c *Context, args []any) (any, error) {
	if err := arity("toJson", args, 1, 1); err != nil {
		return nil, err
	}
	nv, err := c.toNative(args[0])
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(nv)
	if err != nil {
		return nil, &ScriptError{Code: ErrCodeExecution, Message: "toJson failed", Cause: err}
	}
	return string(data), nil
}

func builtinParseJSON(c *Context, args []any) (any, error) {
	if err := arity("parseJson", args, 1, 1); err != nil {
		return nil, err
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, typeError("parseJson() expects a String")
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, throwNew(TypeIllegalArgument, "Invalid JSON: %v", err)
	}
	return fromNative(out), nil
}

func builtinPathGet(c *Context, args []any) (any, error) {
	if err := arity("pathGet", args, 2, 2); err != nil {
		return nil, err
	}
	path, ok := args[1].(string)
	if !ok {
		return nil, typeError("pathGet() expects a String path")
	}
	nv, err := c.toNative(args[0])
	if err != nil {
		return nil, err
	}
	v, err := dipper.Get(nv, path)
	if err != nil {
		return nil, nil
	}
	return fromNative(v), nil
}

// builtinExpr evaluates an expression in the expr language against an
// optional Map of variables.
func builtinExpr(c *Context, args []any) (any, error) {
	if err := arity("expr", args, 1, 2); err != nil {
		return nil, err
	}
	source, ok := convert.ToString(args[0])
	if !ok {
		return nil, typeError("expr() expects a String expression")
	}
	vars := map[string]any{}
	if len(args) == 2 && args[1] != nil {
		nv, err := c.toNative(args[1])
		if err != nil {
			return nil, err
		}
		m, ok := nv.(map[string]any)
		if !ok {
			return nil, typeError("expr() expects a Map of variables")
		}
		vars = m
	}
	program, err := expr.Parse(source)
	if err != nil {
		return nil, throwNew(TypeIllegalArgument, "Invalid expression %q: %v", source, err)
	}
	v, err := program.Eval(vars)
	if err != nil {
		return nil, throwNew(TypeIllegalArgument, "Expression %q failed: %v", source, err)
	}
	return fromNative(v), nil
}

func builtinParseDate(c *Context, args []any) (any, error) {
	if err := arity("parseDate", args, 1, 1); err != nil {
		return nil, err
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, typeError("parseDate() expects a String")
	}
	t, err := date.Parse(s)
	if err != nil {
		return nil, throwNew(TypeIllegalArgument, "Unparseable date: %s", s)
	}
	return t.UnixMilli(), nil
}

func adaptBuiltin(iface *Type) Builtin {
	return func(c *Context, args []any) (any, error) {
		if len(args) != 1 {
			return nil, typeError("expected one lambda argument")
		}
		l, ok := args[0].(*Lambda)
		if !ok {
			return nil, typeError("expected a lambda, got %s", c.TypeOf(args[0]).Name)
		}
		return c.AdaptLambda(l, iface)
	}
}

// builtinSafeExecutor wraps a callable so failures are reported on the
// warning sink and yield null.
func builtinSafeExecutor(c *Context, args []any) (any, error) {
	if err := arity("createSafeExecutor", args, 1, 1); err != nil {
		return nil, err
	}
	target := args[0]
	n, variadic := 0, true
	switch x := target.(type) {
	case *Lambda:
		n, variadic = len(x.Params), x.Variadic
	case *FunctionalObject:
		n, variadic = len(x.Lambda.Params), x.Lambda.Variadic
	}
	safe := nativeLambda(n, func(c *Context, a []any) (any, error) {
		v, err := c.CallFunctional(target, a...)
		if err != nil {
			c.warn.Println("Safe executor caught: " + err.Error())
			return nil, nil
		}
		return v, nil
	})
	safe.Variadic = variadic
	return safe, nil
}

// builtinRunLater queues a runnable to run after the current top-level
// statement; failures go to the warning sink.
func builtinRunLater(c *Context, args []any) (any, error) {
	if err := arity("runLater", args, 1, 1); err != nil {
		return nil, err
	}
	if args[0] == nil {
		return nil, nullError("runLater() requires a runnable")
	}
	c.mu.Lock()
	c.pending = append(c.pending, args[0])
	c.mu.Unlock()
	return nil, nil
}

func builtinEnableLog(c *Context, args []any) (any, error) {
	if err := arity("enableLog", args, 1, 1); err != nil {
		return nil, err
	}
	EnableLogging(toBoolean(args[0]))
	return nil, nil
}

func builtinGetContext(c *Context, args []any) (any, error) {
	if err := arity("getContext", args, 0, 0); err != nil {
		return nil, err
	}
	return c.Describe(), nil
}
