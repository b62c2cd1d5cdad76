package script

import (
	"strings"
	"testing"
)

func pickerRegistry(t *testing.T) *HostRegistry {
	t.Helper()
	reg := NewHostRegistry()
	_, err := reg.Register(&ClassSpec{
		Name: "demo.Picker",
		Methods: []*HostMethod{
			{
				Name:    "pick",
				Params:  []*Type{ArrayOf(TypeInt)},
				Varargs: true,
				Static:  true,
				Returns: TypeString,
				Fn: func(_ *Context, _ any, args []any) (any, error) {
					return "varargs", nil
				},
			},
			{
				Name:    "pick",
				Params:  []*Type{TypeInt},
				Static:  true,
				Returns: TypeString,
				Fn: func(_ *Context, _ any, args []any) (any, error) {
					return "fixed", nil
				},
			},
			{
				Name:    "count",
				Params:  []*Type{TypeString, ArrayOf(TypeInt)},
				Varargs: true,
				Static:  true,
				Returns: TypeInt,
				Fn: func(_ *Context, _ any, args []any) (any, error) {
					return int32(len(args[1].(*Array).Values)), nil
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return reg
}

func TestFixedArityBeatsVarargs(t *testing.T) {
	c, _ := runScript(t, `
println(demo.Picker.pick(1));
println(demo.Picker.pick(1, 2));
println(demo.Picker.pick());
println(demo.Picker.count("n", 4, 5, 6));
println(demo.Picker.count("n"));`, WithHost(pickerRegistry(t)))
	want := "fixed\nvarargs\nvarargs\n3\n0\n"
	if got := c.Output().String(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestImportedHostClassBySimpleName(t *testing.T) {
	c, _ := runScript(t, `
import demo.*;
println(Picker.pick(7));`, WithHost(pickerRegistry(t)))
	if got := c.Output().String(); got != "fixed\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRegisterRejectsDuplicatesAndUnknownSupers(t *testing.T) {
	reg := pickerRegistry(t)
	if _, err := reg.Register(&ClassSpec{Name: "demo.Picker"}); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	_, err := reg.Register(&ClassSpec{Name: "demo.Child", Super: "demo.Missing"})
	se, ok := err.(*ScriptError)
	if !ok || se.Code != ErrCodeRegistry {
		t.Fatalf("expected REGISTRY_ERROR, got %v", err)
	}
	if _, err := reg.Register(&ClassSpec{}); err == nil {
		t.Fatalf("expected empty class name to fail")
	}
}

func TestHostMethodNotFoundListsCandidates(t *testing.T) {
	se := runFailure(t, `demo.Picker.pick("x");`, WithHost(pickerRegistry(t)))
	if se.Code != ErrCodeDispatch {
		t.Fatalf("expected DISPATCH_ERROR, got %s", se.Code)
	}
	if len(se.Details) != 2 {
		t.Fatalf("expected two candidates, got %v", se.Details)
	}
}

func TestStandardLibraryClasses(t *testing.T) {
	cases := []struct {
		src  string
		want any
	}{
		{`StringBuilder sb = new StringBuilder(); sb.append("a").append(1); sb.toString()`, "a1"},
		{"Math.max(3, 9)", int32(9)},
		{"Math.max(3L, 9L)", int64(9)},
		{`"Hello".toUpperCase()`, "HELLO"},
		{`"Hello".length()`, int32(5)},
		{`"Hello".indexOf("lo")`, int32(3)},
		{`"Hello".substring(1, 3)`, "el"},
		{`"a,b,c".split(",").length`, int32(3)},
		{`"x1y22".replaceAll("(\\d+)", "<$1>")`, "x<1>y<22>"},
		{`Integer.parseInt("42") + 1`, int32(43)},
		{`List<Integer> l = new ArrayList<>(); l.add(1); l.add(2); l.size()`, int32(2)},
	}
	for _, tc := range cases {
		_, got := runScript(t, tc.src)
		if got != tc.want {
			t.Fatalf("%s: expected %v (%T), got %v (%T)", tc.src, tc.want, tc.want, got, got)
		}
	}
}

func TestHashMapIteratesEntriesInInsertionOrder(t *testing.T) {
	c, _ := runScript(t, `
Map<String, Integer> m = new HashMap<>();
m.put("b", 2);
m.put("a", 1);
m.put("b", 3);
for (var e : m) {
	println(e.getKey() + "=" + e.getValue());
}
println(m.get("a"));`)
	if got := c.Output().String(); got != "b=3\na=1\n1\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestParseIntFailureIsCatchable(t *testing.T) {
	_, got := runScript(t, `
try {
	Integer.parseInt("abc");
} catch (NumberFormatException e) {
	return "bad number";
}
return "none";`)
	if got != "bad number" {
		t.Fatalf("expected caught NumberFormatException, got %v", got)
	}
}

func TestHostPanicsBecomeThrowables(t *testing.T) {
	reg := NewHostRegistry()
	_, err := reg.Register(&ClassSpec{
		Name: "demo.Boom",
		Methods: []*HostMethod{{
			Name:    "explode",
			Static:  true,
			Returns: TypeVoid,
			Fn: func(*Context, any, []any) (any, error) {
				panic("kaboom")
			},
		}},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	c, got := runScript(t, `
try { demo.Boom.explode(); } catch (RuntimeException e) { println(e.getMessage()); return e.getMessage(); }
return "";`, WithHost(reg))
	if out := c.Output().String(); !strings.Contains(out, "kaboom") {
		t.Fatalf("expected panic message printed from catch, got %q", out)
	}
	if s, ok := got.(string); !ok || !strings.Contains(s, "kaboom") {
		t.Fatalf("expected panic message in throwable, got %v", got)
	}
}
