package script

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/ristretto"
	"github.com/oarkflow/log"
	"github.com/oarkflow/xid"
)

var defaultImports = []string{
	"java.lang.*",
	"java.util.*",
	"java.util.function.*",
	"java.util.concurrent.*",
	"java.io.*",
}

// Context is the execution environment of one interpreter session. A single
// run is not reentrant; callers serialize runs against the same Context.
type Context struct {
	id   string
	host HostBinding

	mu       sync.RWMutex
	builtins map[string]Builtin
	classes  map[string]*ClassDefinition
	imports  []string
	flags    map[string]bool
	warnings []Warning
	pending  []any

	global  *scope
	current *scope

	classCache  *ristretto.Cache
	methodCache *ristretto.Cache

	out  *Output
	warn *Output

	cfg      RuntimeConfig
	maxLoops int
	goctx    context.Context
	depth    int
	returns  []*Type
	owners   []*ClassDefinition
	logger   *log.Logger
}

type Option func(*Context) error

func WithHost(host HostBinding) Option {
	return func(c *Context) error {
		if host == nil {
			return execError("host binding is nil")
		}
		c.host = host
		return nil
	}
}

func WithID(id string) Option {
	return func(c *Context) error {
		c.id = id
		return nil
	}
}

func WithOutput(out, warn *Output) Option {
	return func(c *Context) error {
		if out != nil {
			c.out = out
		}
		if warn != nil {
			c.warn = warn
		}
		return nil
	}
}

func WithImports(imports ...string) Option {
	return func(c *Context) error {
		for _, imp := range imports {
			if err := c.AddImport(imp); err != nil {
				return err
			}
		}
		return nil
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Context) error {
		c.logger = logger
		return nil
	}
}

func WithMaxLoops(n int) Option {
	return func(c *Context) error {
		c.maxLoops = n
		return nil
	}
}

func NewContext(opts ...Option) (*Context, error) {
	classCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 12,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	methodCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 14,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	global := newScope(nil)
	c := &Context{
		id:          xid.New().String(),
		builtins:    make(map[string]Builtin),
		classes:     make(map[string]*ClassDefinition),
		imports:     append([]string(nil), defaultImports...),
		flags:       make(map[string]bool),
		global:      global,
		current:     global,
		classCache:  classCache,
		methodCache: methodCache,
		out:         NewOutput(nil),
		warn:        NewOutput(nil),
		cfg:         GetRuntimeConfig(),
		goctx:       context.Background(),
	}
	for name, b := range registeredBuiltins() {
		c.builtins[name] = b
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.host == nil {
		c.host = NewHostRegistry()
	}
	return c, nil
}

func (c *Context) ID() string { return c.id }

func (c *Context) Host() HostBinding { return c.host }

func (c *Context) Output() *Output { return c.out }

func (c *Context) WarnOutput() *Output { return c.warn }

// SetMaxLoops pins the loop cap of this context; n <= 0 falls back to the
// runtime configuration.
func (c *Context) SetMaxLoops(n int) { c.maxLoops = n }

func (c *Context) loopLimit() int {
	if c.maxLoops > 0 {
		return c.maxLoops
	}
	if c.cfg.MaxLoops > 0 {
		return c.cfg.MaxLoops
	}
	return DefaultRuntimeConfig().MaxLoops
}

func (c *Context) checkCanceled() error {
	if c.goctx == nil {
		return nil
	}
	return wrapContextErr(c.goctx.Err())
}

func (c *Context) Warnings() []Warning {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Warning(nil), c.warnings...)
}

func (c *Context) addWarning(code WarningCode, msg string) {
	w := Warning{Code: code, Message: msg}
	c.mu.Lock()
	c.warnings = append(c.warnings, w)
	c.mu.Unlock()
	c.warn.Println("Warning: " + msg)
	c.logWarn(code, msg)
}

// warnOnce emits a warning the first time flag is raised in this context.
func (c *Context) warnOnce(flag string, code WarningCode, msg string) {
	c.mu.Lock()
	seen := c.flags[flag]
	c.flags[flag] = true
	c.mu.Unlock()
	if !seen {
		c.addWarning(code, msg)
	}
}

func (c *Context) EnterScope() {
	c.current = newScope(c.current)
}

func (c *Context) ExitScope() {
	if c.current.parent == nil {
		c.logWarn(WarnSyntax, "attempted to exit the global scope")
		return
	}
	c.current = c.current.parent
}

func (c *Context) ScopeDepth() int {
	return c.current.depth()
}

// withScope runs fn in a fresh child scope of parent and restores the
// previous scope afterwards.
func (c *Context) withScope(parent *scope, fn func() (Signal, error)) (Signal, error) {
	saved := c.current
	c.current = newScope(parent)
	defer func() { c.current = saved }()
	return fn()
}

func (c *Context) GetVariable(name string) (*Variable, bool) {
	return c.current.lookup(name)
}

func (c *Context) HasVariable(name string) bool {
	_, ok := c.current.lookup(name)
	return ok
}

// DeclareVariable binds name in the current scope.
func (c *Context) DeclareVariable(name string, t *Type, v any) {
	if t == nil {
		t = TypeObject
	}
	c.current.set(name, &Variable{Value: v, Type: t})
}

// SetVariable re-binds an existing variable in the current scope, keeping
// its declared type.
func (c *Context) SetVariable(name string, v any) error {
	old, ok := c.current.lookup(name)
	if !ok {
		return undefinedError("Undefined variable: %s", name)
	}
	c.current.set(name, &Variable{Value: v, Type: old.Type, origin: old.origin})
	return nil
}

func (c *Context) DeleteVariable(name string) {
	c.current.remove(name)
}

func (c *Context) VariableNames() []string {
	return c.current.names()
}

// Reset drops every variable, class and warning of the session.
func (c *Context) Reset() {
	c.mu.Lock()
	c.classes = make(map[string]*ClassDefinition)
	c.flags = make(map[string]bool)
	c.warnings = nil
	c.pending = nil
	c.mu.Unlock()
	c.global = newScope(nil)
	c.current = c.global
	c.classCache.Clear()
	c.methodCache.Clear()
}

func (c *Context) RegisterBuiltin(name string, fn Builtin) error {
	if strings.TrimSpace(name) == "" || fn == nil {
		return &ScriptError{Code: ErrCodeRegistry, Message: "builtin name and handler are required"}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builtins[name] = fn
	return nil
}

func (c *Context) Builtin(name string) (Builtin, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.builtins[name]
	return b, ok
}

func (c *Context) HasBuiltin(name string) bool {
	_, ok := c.Builtin(name)
	return ok
}

func (c *Context) BuiltinNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.builtins))
	for n := range c.builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (c *Context) DefineClass(def *ClassDefinition) {
	c.mu.Lock()
	c.classes[def.Name] = def
	c.mu.Unlock()
	c.methodCache.Clear()
}

func (c *Context) CustomClass(name string) (*ClassDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.classes[name]
	return d, ok
}

func (c *Context) HasCustomClass(name string) bool {
	_, ok := c.CustomClass(name)
	return ok
}

func (c *Context) ClassNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.classes))
	for n := range c.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var importPattern = regexp.MustCompile(`^[A-Za-z_$][\w$]*(\.[A-Za-z_$][\w$]*)*(\.\*)?$`)

func (c *Context) AddImport(imp string) error {
	imp = strings.TrimSpace(imp)
	if !importPattern.MatchString(imp) {
		return parseError("Invalid import: %s", imp)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.imports {
		if existing == imp {
			return nil
		}
	}
	c.imports = append(c.imports, imp)
	return nil
}

func (c *Context) Imports() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.imports...)
}

func (c *Context) TypeOf(v any) *Type {
	return c.host.TypeOf(v)
}

// FindClass resolves a type name: primitives, arrays (`int[]`, `int[3][]`),
// script classes, fully qualified host classes, imported simple names and
// nested classes (`Map.Entry`).
func (c *Context) FindClass(name string) (*Type, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, undefinedError("Class not found: <empty>")
	}
	if i := strings.IndexByte(name, '['); i > 0 {
		base, err := c.FindClass(name[:i])
		if err != nil {
			return nil, err
		}
		t := base
		for n := strings.Count(name[i:], "["); n > 0; n-- {
			t = ArrayOf(t)
		}
		return t, nil
	}
	if t, ok := PrimitiveType(name); ok {
		return t, nil
	}
	if def, ok := c.CustomClass(name); ok {
		return def.Type, nil
	}
	if v, ok := c.classCache.Get(name); ok {
		return v.(*Type), nil
	}
	t, ok := c.resolveHostClass(name)
	if !ok {
		return nil, undefinedError("Class not found: %s", name)
	}
	c.classCache.Set(name, t, 1)
	return t, nil
}

func (c *Context) resolveHostClass(name string) (*Type, bool) {
	if t, ok := c.host.FindClass(name); ok {
		return t, true
	}
	if !strings.Contains(name, ".") {
		for _, imp := range c.Imports() {
			if pkg, ok := strings.CutSuffix(imp, ".*"); ok {
				if t, found := c.host.FindClass(pkg + "." + name); found {
					return t, true
				}
				continue
			}
			if imp == name || strings.HasSuffix(imp, "."+name) {
				if t, found := c.host.FindClass(imp); found {
					return t, true
				}
			}
		}
		return nil, false
	}
	// Outer.Inner style nested classes, innermost split first.
	for i := strings.LastIndexByte(name, '.'); i > 0; i = strings.LastIndexByte(name[:i], '.') {
		outer, err := c.FindClass(name[:i])
		if err != nil {
			continue
		}
		t := outer
		found := true
		for _, seg := range strings.Split(name[i+1:], ".") {
			if n, ok := t.nestedType(seg); ok {
				t = n
				continue
			}
			if n, ok := c.host.FindClass(t.Name + "$" + seg); ok {
				t = n
				continue
			}
			found = false
			break
		}
		if found {
			return t, true
		}
	}
	return nil, false
}

// IsClassName reports whether name resolves to a class without raising an
// error. The parser uses it to tell class references from variables.
func (c *Context) IsClassName(name string) bool {
	if name == "" {
		return false
	}
	_, err := c.FindClass(name)
	return err == nil
}

func (c *Context) pushReturnType(t *Type) {
	c.returns = append(c.returns, t)
}

func (c *Context) popReturnType() {
	if len(c.returns) > 0 {
		c.returns = c.returns[:len(c.returns)-1]
	}
}

func (c *Context) currentReturnType() *Type {
	if len(c.returns) == 0 {
		return nil
	}
	return c.returns[len(c.returns)-1]
}

func (c *Context) pushOwner(def *ClassDefinition) {
	c.owners = append(c.owners, def)
}

func (c *Context) popOwner() {
	if len(c.owners) > 0 {
		c.owners = c.owners[:len(c.owners)-1]
	}
}

// enclosingClass is the script class whose method or constructor is
// running, or nil at top level.
func (c *Context) enclosingClass() *ClassDefinition {
	if len(c.owners) == 0 {
		return nil
	}
	return c.owners[len(c.owners)-1]
}

// thisInstance returns the receiver bound in the current scope.
func (c *Context) thisInstance() (*Instance, bool) {
	v, ok := c.GetVariable("this")
	if !ok {
		return nil, false
	}
	inst, ok := v.Value.(*Instance)
	return inst, ok
}

// enterCall guards the script call depth.
func (c *Context) enterCall() (func(), error) {
	limit := c.cfg.MaxCallDepth
	if limit <= 0 {
		limit = DefaultRuntimeConfig().MaxCallDepth
	}
	if c.depth >= limit {
		return nil, execError("Maximum call depth %d exceeded", limit)
	}
	c.depth++
	return func() { c.depth-- }, nil
}

// runPending runs the callables queued by runLater. Failures are written to
// the warning sink and do not stop the remaining callables.
func (c *Context) runPending() {
	for {
		c.mu.Lock()
		queue := c.pending
		c.pending = nil
		c.mu.Unlock()
		if len(queue) == 0 {
			return
		}
		for _, fn := range queue {
			if _, err := c.CallFunctional(fn); err != nil {
				c.addWarning(WarnAsyncFailure, "Deferred task failed: "+err.Error())
			}
		}
	}
}

// Describe summarizes the session for the getContext builtin.
func (c *Context) Describe() *HashMap {
	m := NewHashMap()
	m.Put("id", c.id)
	vars := NewArrayList()
	for _, n := range c.VariableNames() {
		vars.Add(n)
	}
	m.Put("variables", vars)
	classes := NewArrayList()
	for _, n := range c.ClassNames() {
		classes.Add(n)
	}
	m.Put("classes", classes)
	imports := NewArrayList()
	for _, n := range c.Imports() {
		imports.Add(n)
	}
	m.Put("imports", imports)
	m.Put("maxLoops", int32(c.loopLimit()))
	return m
}
