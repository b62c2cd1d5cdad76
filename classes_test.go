package script

import (
	"strings"
	"testing"
)

func TestInheritanceInitOrderAndDispatch(t *testing.T) {
	c, _ := runScript(t, `
class A {
	int a = 1;
	String who() { return "A"; }
	String greet() { return "hello from " + who(); }
}
class B extends A {
	int b = a + 1;
	String who() { return "B"; }
}
class C extends A {}
B x = new B();
C y = new C();
println(x.b);
println(y.who());
println(x.greet());
println(y.greet());`)
	want := "2\nA\nhello from B\nhello from A\n"
	if got := c.Output().String(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	for _, w := range c.Warnings() {
		if w.Code == WarnInitializer {
			t.Fatalf("unexpected initializer warning: %s", w.Message)
		}
	}
}

func TestConstructorsAndSuper(t *testing.T) {
	c, _ := runScript(t, `
class Animal {
	String name = "unknown";
	Animal(String name) { this.name = name; }
	String describe() { return "animal " + name; }
}
class Dog extends Animal {
	int legs;
	Dog(String name, int legs) {
		super(name);
		this.legs = legs;
	}
	String describe() { return super.describe() + " with " + legs + " legs"; }
}
Dog d = new Dog("rex", 4);
println(d.describe());
println(d instanceof Animal);`)
	want := "animal rex with 4 legs\ntrue\n"
	if got := c.Output().String(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestUnmatchedConstructorSkipsBody(t *testing.T) {
	_, got := runScript(t, `
class P {
	int v = 3;
	P(int x) { v = x; }
}
P p = new P();
P q = new P(9);
p.v * 100 + q.v`)
	if got != int32(309) {
		t.Fatalf("expected 309, got %v", got)
	}
}

func TestStaticMembers(t *testing.T) {
	_, got := runScript(t, `
class Counter {
	static int count = 0;
	static int bump() { count = count + 1; return count; }
}
Counter.bump();
Counter.bump();
Counter.count`)
	if got != int32(2) {
		t.Fatalf("expected 2, got %v", got)
	}
}

func TestToStringAndEqualsAreUsed(t *testing.T) {
	c, _ := runScript(t, `
class Point {
	int x; int y;
	Point(int x, int y) { this.x = x; this.y = y; }
	String toString() { return "(" + x + "," + y + ")"; }
	boolean equals(Object o) { return o instanceof Point; }
}
Point p = new Point(1, 2);
println(p);
println(p == new Point(3, 4));`)
	if got := c.Output().String(); got != "(1,2)\ntrue\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestClassDeclarationConflicts(t *testing.T) {
	se := runFailure(t, "class A {} class A {}")
	if se.Code != ErrCodeExecution {
		t.Fatalf("expected duplicate class error, got %s", se.Code)
	}
	se = runFailure(t, "class B extends Missing {} new B();")
	if se.Code != ErrCodeUndefined || !strings.Contains(se.Message, "Missing") {
		t.Fatalf("expected missing superclass error, got %s: %s", se.Code, se.Message)
	}
	se = runFailure(t, "class P extends Q {} class Q extends P {}")
	if se.Code != ErrCodeType {
		t.Fatalf("expected cyclic inheritance error, got %s", se.Code)
	}
	se = runFailure(t, "class println {}")
	if se.Code != ErrCodeType {
		t.Fatalf("expected builtin shadowing error, got %s", se.Code)
	}
}

func TestSuperclassDeclaredAfterSubclass(t *testing.T) {
	_, got := runScript(t, `class B extends A { } class A { int v = 3; } return new B().v;`)
	if got != int32(3) {
		t.Fatalf("expected inherited field 3, got %v", got)
	}
	_, got = runScript(t, `
class Dog extends Animal { String name() { return "dog"; } }
class Animal { String greet() { return "I am a " + name(); } String name() { return "animal"; } }
Animal a = new Dog();
return a.greet() + " " + (a instanceof Animal);`)
	if got != "I am a dog true" {
		t.Fatalf("unexpected result %v", got)
	}
}

func TestConstructorChainingWithThis(t *testing.T) {
	_, got := runScript(t, `
class Z {
	int a;
	int b;
	Z(int a) { this(a, a * 2); }
	Z(int a, int b) { this.a = a; this.b = b; }
	int sum() { return a + b; }
}
return new Z(3).sum();`)
	if got != int32(9) {
		t.Fatalf("expected 9, got %v", got)
	}
	se := runFailure(t, "class Y { Y() { this(1, 2, 3); } } new Y();")
	if se.Code != ErrCodeDispatch || !strings.Contains(se.Message, "No constructor of Y") {
		t.Fatalf("expected constructor dispatch error, got %s: %s", se.Code, se.Message)
	}
	se = runFailure(t, "this(1);")
	if se.Code != ErrCodeExecution || !strings.Contains(se.Message, "outside a constructor") {
		t.Fatalf("expected this() outside a constructor to fail, got %s: %s", se.Code, se.Message)
	}
}

func TestHostSuperclassIsIgnored(t *testing.T) {
	_, got := runScript(t, `
class E extends RuntimeException { String why() { return "custom"; } }
return new E().why();`)
	if got != "custom" {
		t.Fatalf("expected custom, got %v", got)
	}
}

func TestMethodOverloadsAndDispatchErrors(t *testing.T) {
	c, _ := runScript(t, `
class Fmt {
	String show(int v) { return "int " + v; }
	String show(String v) { return "str " + v; }
	String show(long v) { return "long " + v; }
}
Fmt f = new Fmt();
println(f.show(1));
println(f.show("a"));
println(f.show(2L));`)
	if got := c.Output().String(); got != "int 1\nstr a\nlong 2\n" {
		t.Fatalf("unexpected output %q", got)
	}

	se := runFailure(t, `class Q { void m(int a) {} } new Q().m("x", 1);`)
	if se.Code != ErrCodeDispatch {
		t.Fatalf("expected DISPATCH_ERROR, got %s", se.Code)
	}
	if len(se.Details) != 1 || !strings.Contains(se.Details[0], "Q.m(int)") {
		t.Fatalf("expected candidate signatures in details, got %v", se.Details)
	}
}

func TestReturnTypeIsChecked(t *testing.T) {
	se := runFailure(t, `class R { int n() { return "x"; } } new R().n();`)
	if se.Code != ErrCodeType {
		t.Fatalf("expected TYPE_MISMATCH, got %s", se.Code)
	}
	se = runFailure(t, `class V { void n() { return 1; } } new V().n();`)
	if se.Code != ErrCodeType {
		t.Fatalf("expected TYPE_MISMATCH, got %s", se.Code)
	}
	_, got := runScript(t, `class D { int n() { } } new D().n()`)
	if got != int32(0) {
		t.Fatalf("expected default int result, got %v", got)
	}
}

func TestFailingFieldInitializerWarns(t *testing.T) {
	c, got := runScript(t, `
class F {
	int broken = 1 / 0;
	int fine = 7;
}
F f = new F();
f.broken + f.fine`)
	if got != int32(7) {
		t.Fatalf("expected 7, got %v", got)
	}
	found := false
	for _, w := range c.Warnings() {
		if w.Code == WarnInitializer {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected initializer warning, got %v", c.Warnings())
	}
}

func TestFinalizeRunsOnDelete(t *testing.T) {
	c, _ := runScript(t, `
class Res {
	void finalize() { println("released"); }
}
Res r = new Res();
delete r;`)
	if got := c.Output().String(); got != "released\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRecursionDepthIsBounded(t *testing.T) {
	se := runFailure(t, `
class Loop {
	static int down(int n) { return down(n + 1); }
}
Loop.down(0);`)
	if se.Code != ErrCodeExecution || !strings.Contains(se.Message, "Maximum call depth") {
		t.Fatalf("expected call depth error, got %v", se)
	}
}
