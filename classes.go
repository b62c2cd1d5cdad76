package script

import (
	"sort"
	"strings"
)

type Parameter struct {
	Name     string
	TypeName string
}

type MethodDefinition struct {
	Name       string
	ReturnType string
	Params     []Parameter
	Body       Node
	Static     bool
	Modifier   string
}

func (m *MethodDefinition) Signature() string {
	return m.Name + "(" + paramSignature(m.Params) + ")"
}

type FieldDefinition struct {
	Name     string
	TypeName string
	Init     Node
	Static   bool
	Modifier string
}

type ConstructorDefinition struct {
	Params   []Parameter
	Body     Node
	Modifier string
}

func paramSignature(params []Parameter) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.TypeName
	}
	return strings.Join(parts, ", ")
}

// ClassDefinition is a class declared by a script. Interfaces are recorded
// by name only; nothing checks that their methods are implemented.
type ClassDefinition struct {
	Name         string
	SuperName    string
	Interfaces   []string
	Methods      map[string][]*MethodDefinition
	Fields       []*FieldDefinition
	Constructors map[string]*ConstructorDefinition

	Type    *Type
	Super   *ClassDefinition
	statics map[string]*Variable
	ctors   []*ConstructorDefinition
}

func NewClassDefinition(name, superName string, interfaces []string) *ClassDefinition {
	return &ClassDefinition{
		Name:         name,
		SuperName:    superName,
		Interfaces:   interfaces,
		Methods:      make(map[string][]*MethodDefinition),
		Constructors: make(map[string]*ConstructorDefinition),
		statics:      make(map[string]*Variable),
	}
}

func (d *ClassDefinition) AddMethod(m *MethodDefinition) {
	d.Methods[m.Name] = append(d.Methods[m.Name], m)
}

func (d *ClassDefinition) AddField(f *FieldDefinition) {
	for i, existing := range d.Fields {
		if existing.Name == f.Name {
			d.Fields[i] = f
			return
		}
	}
	d.Fields = append(d.Fields, f)
}

func (d *ClassDefinition) AddConstructor(ctor *ConstructorDefinition) {
	sig := paramSignature(ctor.Params)
	if _, exists := d.Constructors[sig]; !exists {
		d.ctors = append(d.ctors, ctor)
	} else {
		for i, existing := range d.ctors {
			if paramSignature(existing.Params) == sig {
				d.ctors[i] = ctor
			}
		}
	}
	d.Constructors[sig] = ctor
}

func (d *ClassDefinition) linkSuper(sup *ClassDefinition) {
	d.Super = sup
	d.Type.Super = sup.Type
}

// inherits reports whether d or one of its superclasses is named name.
func inherits(d *ClassDefinition, name string) bool {
	for cls := d; cls != nil; cls = cls.Super {
		if cls.Name == name {
			return true
		}
	}
	return false
}

// unresolvedSuper returns the first superclass name in the hierarchy of d
// that is neither a script class nor a known class.
func (c *Context) unresolvedSuper(d *ClassDefinition) (string, bool) {
	for cls := d; cls != nil; cls = cls.Super {
		if cls.SuperName == "" || cls.Super != nil {
			continue
		}
		if _, err := c.FindClass(cls.SuperName); err != nil {
			return cls.SuperName, true
		}
	}
	return "", false
}

// chain lists the class and its superclasses, root first.
func (d *ClassDefinition) chain() []*ClassDefinition {
	var out []*ClassDefinition
	for cls := d; cls != nil; cls = cls.Super {
		out = append([]*ClassDefinition{cls}, out...)
	}
	return out
}

func (d *ClassDefinition) findMethod(name string, arity int) (*MethodDefinition, bool) {
	for cls := d; cls != nil; cls = cls.Super {
		for _, m := range cls.Methods[name] {
			if len(m.Params) == arity {
				return m, true
			}
		}
	}
	return nil, false
}

func (d *ClassDefinition) hasMethod(name string) bool {
	for cls := d; cls != nil; cls = cls.Super {
		if len(cls.Methods[name]) > 0 {
			return true
		}
	}
	return false
}

func (d *ClassDefinition) findField(name string) (*FieldDefinition, bool) {
	for cls := d; cls != nil; cls = cls.Super {
		for _, f := range cls.Fields {
			if f.Name == name {
				return f, true
			}
		}
	}
	return nil, false
}

func (d *ClassDefinition) findStatic(name string) (*ClassDefinition, *Variable, bool) {
	for cls := d; cls != nil; cls = cls.Super {
		if v, ok := cls.statics[name]; ok {
			return cls, v, true
		}
	}
	return nil, nil, false
}

func (d *ClassDefinition) MethodNames() []string {
	seen := make(map[string]bool)
	var names []string
	for cls := d; cls != nil; cls = cls.Super {
		for n := range cls.Methods {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Instance is an object of a script class.
type Instance struct {
	Class  *ClassDefinition
	Fields map[string]*Variable
	order  []string
}

func (i *Instance) FieldNames() []string {
	return append([]string(nil), i.order...)
}

func (i *Instance) describe() string {
	var sb strings.Builder
	sb.WriteString(i.Class.Name)
	sb.WriteString("{")
	for n, name := range i.order {
		if n > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		sb.WriteString("=")
		sb.WriteString(FormatValue(i.Fields[name].Value))
	}
	sb.WriteString("}")
	return sb.String()
}

// declareClass builds the class object of def, initializes its static
// fields and links the superclass. A superclass declared later is linked
// when it arrives; one naming a host class is ignored.
func (c *Context) declareClass(def *ClassDefinition) error {
	var super *ClassDefinition
	if def.SuperName == def.Name {
		return typeError("Cyclic inheritance involving %s", def.Name)
	}
	if def.SuperName != "" {
		if sup, ok := c.CustomClass(def.SuperName); ok {
			if inherits(sup, def.Name) {
				return typeError("Cyclic inheritance involving %s", def.Name)
			}
			super = sup
		}
	}
	var subs []*ClassDefinition
	for _, name := range c.ClassNames() {
		sub, ok := c.CustomClass(name)
		if !ok || sub.SuperName != def.Name || sub.Super != nil {
			continue
		}
		if name == def.SuperName || super != nil && inherits(super, name) {
			return typeError("Cyclic inheritance involving %s", def.Name)
		}
		subs = append(subs, sub)
	}
	var ifaces []*Type
	for _, name := range def.Interfaces {
		if t, err := c.FindClass(name); err == nil && t.Interface {
			ifaces = append(ifaces, t)
		}
	}
	t := newType(def.Name, TypeObject, ifaces...)
	t.Custom = def
	def.Type = t
	if super != nil {
		def.linkSuper(super)
	}
	for _, sub := range subs {
		sub.linkSuper(def)
	}
	c.DefineClass(def)

	for _, f := range def.Fields {
		if !f.Static {
			continue
		}
		ft, v := c.initField(nil, def, f)
		def.statics[f.Name] = &Variable{Value: v, Type: ft}
	}
	return nil
}

// initField evaluates a field initializer. Failures degrade to the type's
// default value with a warning.
func (c *Context) initField(inst *Instance, def *ClassDefinition, f *FieldDefinition) (*Type, any) {
	ft, err := c.FindClass(f.TypeName)
	if err != nil {
		c.addWarning(WarnInitializer, "Unknown type "+f.TypeName+" for field "+def.Name+"."+f.Name)
		ft = TypeObject
	}
	if f.Init == nil {
		return ft, zeroValue(ft)
	}
	c.pushOwner(def)
	defer c.popOwner()
	sig, err := c.withScope(c.global, func() (Signal, error) {
		if inst != nil {
			c.DeclareVariable("this", inst.Class.Type, inst)
		}
		v, err := evalValue(c, f.Init)
		if err != nil {
			return Signal{}, err
		}
		v, err = c.Cast(v, ft)
		return Signal{Value: v}, err
	})
	if err != nil {
		c.addWarning(WarnInitializer, "Failed to initialize field "+def.Name+"."+f.Name+": "+err.Error())
		return ft, zeroValue(ft)
	}
	return ft, sig.Value
}

// Instantiate creates an object of def. Fields are initialized superclass
// first. When no constructor matches the arguments the object is returned
// without running any constructor body.
func (c *Context) Instantiate(def *ClassDefinition, args []any) (*Instance, error) {
	if name, ok := c.unresolvedSuper(def); ok {
		return nil, undefinedError("Superclass not found: %s", name)
	}
	inst := &Instance{Class: def, Fields: make(map[string]*Variable)}
	for _, cls := range def.chain() {
		for _, f := range cls.Fields {
			if f.Static {
				continue
			}
			ft, v := c.initField(inst, cls, f)
			if _, exists := inst.Fields[f.Name]; !exists {
				inst.order = append(inst.order, f.Name)
			}
			inst.Fields[f.Name] = &Variable{Value: v, Type: ft}
		}
	}
	ctor, err := c.matchConstructor(def, args)
	if err != nil {
		return nil, err
	}
	if ctor == nil {
		return inst, nil
	}
	if err := c.runConstructor(inst, ctor, args); err != nil {
		return nil, err
	}
	return inst, nil
}

func (c *Context) matchConstructor(def *ClassDefinition, args []any) (*ConstructorDefinition, error) {
	for _, ctor := range def.ctors {
		ok, err := c.paramsMatch(ctor.Params, args)
		if err != nil {
			return nil, err
		}
		if ok {
			return ctor, nil
		}
	}
	return nil, nil
}

func (c *Context) paramsMatch(params []Parameter, args []any) (bool, error) {
	if len(params) != len(args) {
		return false, nil
	}
	for i, p := range params {
		pt, err := c.FindClass(p.TypeName)
		if err != nil {
			return false, err
		}
		at := c.TypeOf(args[i])
		if !isTypeCompatible(pt, at) && !isWideningCompatible(pt, at) && !(at == TypeLambda && pt.Functional != "") {
			return false, nil
		}
	}
	return true, nil
}

func (c *Context) runConstructor(inst *Instance, ctor *ConstructorDefinition, args []any) error {
	release, err := c.enterCall()
	if err != nil {
		return err
	}
	defer release()
	c.pushReturnType(TypeVoid)
	defer c.popReturnType()
	c.pushOwner(inst.Class)
	defer c.popOwner()
	_, err = c.withScope(c.global, func() (Signal, error) {
		c.DeclareVariable("this", inst.Class.Type, inst)
		if err := c.bindParams(ctor.Params, args); err != nil {
			return Signal{}, err
		}
		if ctor.Body == nil {
			return Signal{}, nil
		}
		return ctor.Body.Eval(c)
	})
	return err
}

// SuperConstructor runs the matching superclass constructor of the class
// owning the current `this`.
func (c *Context) SuperConstructor(args []any) error {
	return c.chainConstructor("super", args)
}

// ThisConstructor runs another constructor of the class owning the current
// `this`.
func (c *Context) ThisConstructor(args []any) error {
	return c.chainConstructor("this", args)
}

func (c *Context) chainConstructor(kind string, args []any) error {
	v, ok := c.GetVariable("this")
	if !ok {
		return execError("%s() called outside a constructor", kind)
	}
	inst, ok := v.Value.(*Instance)
	if !ok {
		return execError("%s() called outside a constructor", kind)
	}
	owner := inst.Class
	if v.Type != nil && v.Type.Custom != nil {
		owner = v.Type.Custom
	}
	target := owner
	if kind == "super" {
		if owner.Super == nil {
			return nil
		}
		target = owner.Super
	}
	ctor, err := c.matchConstructor(target, args)
	if err != nil {
		return err
	}
	if ctor == nil {
		if kind == "super" {
			return nil
		}
		return dispatchError("No constructor of %s accepts %d argument(s)", target.Name, len(args))
	}
	release, err := c.enterCall()
	if err != nil {
		return err
	}
	defer release()
	c.pushReturnType(TypeVoid)
	defer c.popReturnType()
	c.pushOwner(target)
	defer c.popOwner()
	_, err = c.withScope(c.global, func() (Signal, error) {
		c.DeclareVariable("this", target.Type, inst)
		if err := c.bindParams(ctor.Params, args); err != nil {
			return Signal{}, err
		}
		if ctor.Body == nil {
			return Signal{}, nil
		}
		return ctor.Body.Eval(c)
	})
	return err
}

func (c *Context) bindParams(params []Parameter, args []any) error {
	if len(params) != len(args) {
		return typeError("Expected %d arguments but got %d", len(params), len(args))
	}
	for i, p := range params {
		pt, err := c.FindClass(p.TypeName)
		if err != nil {
			return err
		}
		v, err := c.Cast(args[i], pt)
		if err != nil {
			return err
		}
		c.DeclareVariable(p.Name, pt, v)
	}
	return nil
}

// resolveCustomMethod walks the hierarchy for an overload of name applicable
// to args.
func (c *Context) resolveCustomMethod(def *ClassDefinition, name string, args []any) (*MethodDefinition, *ClassDefinition, error) {
	found := false
	var sigs []string
	for cls := def; cls != nil; cls = cls.Super {
		for _, m := range cls.Methods[name] {
			found = true
			sigs = append(sigs, cls.Name+"."+m.Signature())
			ok, err := c.paramsMatch(m.Params, args)
			if err != nil {
				return nil, nil, err
			}
			if ok {
				return m, cls, nil
			}
		}
	}
	if !found {
		return nil, nil, dispatchError("Method %s not found in class hierarchy of %s", name, def.Name)
	}
	e := dispatchError("No applicable overload of %s.%s for %d argument(s)", def.Name, name, len(args))
	e.Details = sigs
	return nil, nil, e
}

func (c *Context) invokeInstanceMethod(inst *Instance, name string, args []any) (any, error) {
	m, owner, err := c.resolveCustomMethod(inst.Class, name, args)
	if err != nil {
		return nil, err
	}
	return c.callCustomMethod(inst, owner, m, args)
}

func (c *Context) invokeCustomMethod(inst *Instance, m *MethodDefinition, args []any) (any, error) {
	return c.callCustomMethod(inst, inst.Class, m, args)
}

func (c *Context) callCustomMethod(inst *Instance, owner *ClassDefinition, m *MethodDefinition, args []any) (any, error) {
	release, err := c.enterCall()
	if err != nil {
		return nil, err
	}
	defer release()
	rt, err := c.FindClass(m.ReturnType)
	if err != nil {
		return nil, err
	}
	c.pushReturnType(rt)
	defer c.popReturnType()
	c.pushOwner(owner)
	defer c.popOwner()
	sig, err := c.withScope(c.global, func() (Signal, error) {
		if inst != nil && !m.Static {
			c.DeclareVariable("this", owner.Type, inst)
		}
		if err := c.bindParams(m.Params, args); err != nil {
			return Signal{}, err
		}
		if m.Body == nil {
			return Signal{}, nil
		}
		return m.Body.Eval(c)
	})
	if err != nil {
		return nil, err
	}
	if sig.Kind == SignalReturn {
		return sig.Value, nil
	}
	if rt != TypeVoid && rt.IsPrimitive() {
		return zeroValue(rt), nil
	}
	return nil, nil
}

func (c *Context) invokeStaticCustom(def *ClassDefinition, name string, args []any) (any, error) {
	m, owner, err := c.resolveCustomMethod(def, name, args)
	if err != nil {
		return nil, err
	}
	if !m.Static {
		return nil, dispatchError("Non-static method %s.%s cannot be referenced from a static context", owner.Name, m.Signature())
	}
	return c.callCustomMethod(nil, owner, m, args)
}
