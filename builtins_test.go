package script

import (
	"context"
	"testing"
)

func TestBuiltinRegistryPolicy(t *testing.T) {
	prev := GetBuiltinRegistryOptions()
	t.Cleanup(func() {
		SetBuiltinRegistryOptions(BuiltinRegistryOptions{})
		_ = UnregisterBuiltin("twice")
		SetBuiltinRegistryOptions(prev)
	})
	SetBuiltinRegistryOptions(BuiltinRegistryOptions{})

	twice := func(_ *Context, args []any) (any, error) {
		return toInt64(args[0]) * 2, nil
	}
	if err := RegisterBuiltinE("twice", twice); err != nil {
		t.Fatalf("register: %v", err)
	}
	err := RegisterBuiltinE("twice", twice)
	se, ok := err.(*ScriptError)
	if !ok || se.Code != ErrCodeRegistry {
		t.Fatalf("expected duplicate registration to fail, got %v", err)
	}
	if err := RegisterBuiltinE("println", twice); err == nil {
		t.Fatalf("expected default builtin to be protected")
	}

	SetBuiltinRegistryOptions(BuiltinRegistryOptions{AllowOverride: true})
	if err := RegisterBuiltinE("twice", twice); err != nil {
		t.Fatalf("override should be allowed: %v", err)
	}

	FreezeBuiltinRegistry()
	if err := RegisterBuiltinE("thrice", twice); err == nil {
		t.Fatalf("expected frozen registry to reject registration")
	}
	if err := UnregisterBuiltin("twice"); err == nil {
		t.Fatalf("expected frozen registry to reject removal")
	}
	UnfreezeBuiltinRegistry()

	_, got := runScript(t, "twice(21)")
	if got != int64(42) {
		t.Fatalf("expected 42, got %v", got)
	}
}

func TestRegistryRejectsEmptyBuiltins(t *testing.T) {
	if err := RegisterBuiltinE(" ", func(*Context, []any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected empty name to fail")
	}
	if err := RegisterBuiltinE("nothing", nil); err == nil {
		t.Fatalf("expected nil handler to fail")
	}
}

func TestContextBuiltinIsLocal(t *testing.T) {
	c, err := NewContext()
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	if err := c.RegisterBuiltin("shout", func(c *Context, args []any) (any, error) {
		s, err := c.Stringify(args[0])
		return s + "!", err
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	got, err := NewRunner(c).ExecuteWithResult(context.Background(), `shout("hi")`)
	if err != nil || got != "hi!" {
		t.Fatalf("expected hi!, got %v (%v)", got, err)
	}

	se := runFailure(t, `shout("hi")`)
	if se.Code != ErrCodeUndefined {
		t.Fatalf("expected builtin to stay local to its context, got %s", se.Code)
	}
}

func TestBuiltinCanBeCalledThroughVariable(t *testing.T) {
	c, _ := runScript(t, `
var p = println;
p("via variable");`)
	if got := c.Output().String(); got != "via variable\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestTypeOf(t *testing.T) {
	cases := map[string]string{
		"typeOf(1)":            "java.lang.Integer",
		"typeOf(1L)":           "java.lang.Long",
		`typeOf("s")`:          "java.lang.String",
		"typeOf(null)":         "null",
		"typeOf(new int[2])":   "int[]",
		"typeOf(range(2))":     "java.util.ArrayList",
		"typeOf(String.class)": "java.lang.Class",
	}
	for src, want := range cases {
		_, got := runScript(t, src)
		if got != want {
			t.Fatalf("%s: expected %s, got %v", src, want, got)
		}
	}
}

func TestRange(t *testing.T) {
	_, got := runScript(t, "int s = 0; for (int i : range(5)) { s += i; } s")
	if got != int32(10) {
		t.Fatalf("expected 10, got %v", got)
	}
	_, got = runScript(t, "range(1, 10, 3).size()")
	if got != int32(3) {
		t.Fatalf("expected 3, got %v", got)
	}
	_, got = runScript(t, "range(5, 0, -2).get(2)")
	if got != int32(1) {
		t.Fatalf("expected 1, got %v", got)
	}
	se := runFailure(t, "range(0, 5, 0)")
	if se.Code != ErrCodeExecution {
		t.Fatalf("expected zero step to fail, got %s", se.Code)
	}
}

func TestPrintFamily(t *testing.T) {
	c, _ := runScript(t, `
print("a", 1);
println();
printf("%s-%d%n", "x", 7);
println(new int[]{1, 2});`)
	want := "a1\nx-7\n[1, 2]\n"
	if got := c.Output().String(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestJSONBuiltins(t *testing.T) {
	_, got := runScript(t, `toJson(range(3))`)
	if got != "[0,1,2]" {
		t.Fatalf("unexpected json %v", got)
	}
	_, got = runScript(t, `Map m = parseJson("{\"a\": 5, \"b\": [1, 2.5]}"); m.get("a")`)
	if got != int32(5) {
		t.Fatalf("expected whole numbers to decode as int, got %v (%T)", got, got)
	}
	se := runFailure(t, `parseJson("{")`)
	if se.Code != ErrCodeThrown {
		t.Fatalf("expected invalid JSON to throw, got %s", se.Code)
	}
}

func TestExprBuiltin(t *testing.T) {
	_, got := runScript(t, `
Map<String, Integer> vars = new HashMap<>();
vars.put("a", 2);
vars.put("b", 5);
expr("a + b * 2", vars)`)
	if s := FormatValue(got); s != "12" {
		t.Fatalf("expected 12, got %v (%T)", got, got)
	}
	_, got = runScript(t, `
StringBuilder sb = new StringBuilder();
sb.append("3 > 2");
expr(sb)`)
	if got != true {
		t.Fatalf("expected builder source to be evaluated, got %v", got)
	}
	se := runFailure(t, `expr("1 +")`)
	if se.Code != ErrCodeThrown {
		t.Fatalf("expected invalid expression to throw, got %s", se.Code)
	}
}

func TestAnalyzeDescribesClasses(t *testing.T) {
	_, got := runScript(t, `
class Pet { String name = "x"; void speak() {} }
Map info = analyze(new Pet());
info.get("kind") + ":" + info.get("methods") + ":" + info.get("fields")`)
	if got != "custom:[speak]:[name]" {
		t.Fatalf("unexpected analysis %v", got)
	}
}

func TestSafeExecutorSwallowsFailures(t *testing.T) {
	c, got := runScript(t, `
Function<Integer, Integer> risky = x -> 10 / x;
var safe = createSafeExecutor(risky);
safe.apply(0)`)
	if got != nil {
		t.Fatalf("expected null from failed call, got %v", got)
	}
	if c.WarnOutput().String() == "" {
		t.Fatalf("expected failure on the warning sink")
	}
}
