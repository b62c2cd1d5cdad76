package script

import (
	"context"
	"errors"
	"testing"
)

func runScript(t *testing.T, src string, opts ...Option) (*Context, any) {
	t.Helper()
	c, err := NewContext(opts...)
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	result, err := NewRunner(c).ExecuteWithResult(context.Background(), src)
	if err != nil {
		t.Fatalf("execute %q: %v", src, err)
	}
	return c, result
}

func runFailure(t *testing.T, src string, opts ...Option) *ScriptError {
	t.Helper()
	c, err := NewContext(opts...)
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	_, err = NewRunner(c).ExecuteWithResult(context.Background(), src)
	if err == nil {
		t.Fatalf("expected %q to fail", src)
	}
	var se *ScriptError
	if !errors.As(err, &se) {
		t.Fatalf("expected ScriptError, got %T", err)
	}
	return se
}

func TestArithmeticPromotion(t *testing.T) {
	cases := []struct {
		src  string
		want any
	}{
		{"1 + 1", int32(2)},
		{"1 + 1.0", float64(2)},
		{`"a" + 1`, "a1"},
		{`"a" + null`, "anull"},
		{"1L + 1", int64(2)},
		{"1.5f + 1", float32(2.5)},
		{"1 + 1.5f", float32(2.5)},
		{"'a' + 1", int32(98)},
		{"7 / 2", int32(3)},
		{"7.0 / 2", float64(3.5)},
		{"-7 % 3", int32(-1)},
		{"1 << 3", int32(8)},
		{"2147483647 + 1", int32(-2147483648)},
		{"(byte) 1 + (short) 2", int32(3)},
		{`"x" + 1 + 2`, "x12"},
		{`1 + 2 + "x"`, "3x"},
		{"10 == 10L", true},
		{`"ab" * 3`, "ababab"},
	}
	for _, tc := range cases {
		_, got := runScript(t, tc.src)
		if got != tc.want {
			t.Fatalf("%s: expected %v (%T), got %v (%T)", tc.src, tc.want, tc.want, got, got)
		}
	}
}

func TestCastRules(t *testing.T) {
	cases := []struct {
		src  string
		want any
	}{
		{`(int) "42"`, int32(42)},
		{`(int) " 42 "`, int32(42)},
		{`(long) "9L"`, int64(9)},
		{`(double) "2.5"`, float64(2.5)},
		{`(boolean) "TRUE"`, true},
		{`(char) "a"`, Char('a')},
		{`(Integer) "7"`, int32(7)},
		{"(int) null", int32(0)},
		{"(boolean) null", false},
		{"(double) null", float64(0)},
		{"(byte) 300", int8(44)},
		{"(short) 70000", int16(4464)},
		{"(int) 3.9", int32(3)},
		{"(int) -3.9", int32(-3)},
		{"(int) 3e10", int32(2147483647)},
		{"(long) 2.5f", int64(2)},
		{"(char) 65", Char('A')},
		{"(int) 'a'", int32(97)},
		{"(String) 12", "12"},
		{"(String) 1.5", "1.5"},
		{"(String) true", "true"},
		{"(String) new int[]{1, 2}", "[1, 2]"},
		{"(String) null", nil},
	}
	for _, tc := range cases {
		_, got := runScript(t, tc.src)
		if got != tc.want {
			t.Fatalf("%s: expected %v (%T), got %v (%T)", tc.src, tc.want, tc.want, got, got)
		}
	}
	for _, src := range []string{
		`(boolean) "yes"`,
		`(char) "ab"`,
		`(int) "4x"`,
		`(byte) "300"`,
		"(int) true",
		"(boolean) 1",
	} {
		se := runFailure(t, src)
		if se.Code != ErrCodeType {
			t.Fatalf("%s: expected TYPE_MISMATCH, got %s: %s", src, se.Code, se.Message)
		}
	}
}

func TestIntegerDivisionByZeroThrows(t *testing.T) {
	se := runFailure(t, "1 / 0")
	if se.Code != ErrCodeThrown {
		t.Fatalf("expected THROWN, got %s", se.Code)
	}
	if se.Thrown == nil || se.Thrown.Class != TypeArithmeticException {
		t.Fatalf("expected ArithmeticException, got %v", se.Thrown)
	}
	_, got := runScript(t, "1.0 / 0")
	if s := FormatValue(got); s != "Infinity" {
		t.Fatalf("expected Infinity, got %s", s)
	}
}

func TestLiteralRoundTrip(t *testing.T) {
	cases := []struct {
		src  string
		want any
	}{
		{"42", int32(42)},
		{"3.14f", float32(3.14)},
		{`"x"`, "x"},
		{"'c'", Char('c')},
		{"true", true},
		{"null", nil},
		{"9999999999", int64(9999999999)},
		{"2.5", float64(2.5)},
	}
	for _, tc := range cases {
		_, got := runScript(t, tc.src)
		if got != tc.want {
			t.Fatalf("%s: expected %v (%T), got %v (%T)", tc.src, tc.want, tc.want, got, got)
		}
	}
}

func TestAutoRequiresInitializer(t *testing.T) {
	se := runFailure(t, "auto x;")
	if se.Code != ErrCodeType {
		t.Fatalf("expected TYPE_MISMATCH, got %s", se.Code)
	}

	c, _ := runScript(t, `auto x = 5L; var s = "hi";`)
	x, ok := c.GetVariable("x")
	if !ok || x.Type != TypeLong {
		t.Fatalf("expected x to be long, got %+v", x)
	}
	s, ok := c.GetVariable("s")
	if !ok || s.Type != TypeString {
		t.Fatalf("expected s to be String, got %+v", s)
	}
}

func TestScopeEnterExitIsNoOp(t *testing.T) {
	c, err := NewContext()
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	c.DeclareVariable("x", TypeInt, int32(1))
	depth := c.ScopeDepth()
	c.EnterScope()
	c.ExitScope()
	if c.ScopeDepth() != depth {
		t.Fatalf("expected depth %d, got %d", depth, c.ScopeDepth())
	}
	v, ok := c.GetVariable("x")
	if !ok || v.Value != int32(1) {
		t.Fatalf("expected x=1 after scope round trip, got %+v", v)
	}
}

func TestInnerScopeMutationDoesNotLeak(t *testing.T) {
	_, got := runScript(t, `
int x = 1;
{
	int y = 2;
	x = 5;
}
x`)
	if got != int32(1) {
		t.Fatalf("expected outer x to stay 1, got %v", got)
	}
	se := runFailure(t, "{ int y = 2; } y")
	if se.Code != ErrCodeUndefined {
		t.Fatalf("expected block variable to be gone, got %s", se.Code)
	}
}

func TestBreakInsideIfLeavesInnermostLoop(t *testing.T) {
	c, _ := runScript(t, `
for (int i = 0; i < 2; i++) {
	int j = 0;
	while (true) {
		if (j == 2) {
			break;
		}
		print(j);
		j++;
	}
	println("|" + i);
}`)
	if got := c.Output().String(); got != "01|0\n01|1\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestContinueSkipsRestOfBody(t *testing.T) {
	c, _ := runScript(t, `
for (int i = 0; i < 5; i++) {
	if (i % 2 == 0) continue;
	print(i);
}`)
	if got := c.Output().String(); got != "13" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestForWithFalseConditionSkipsBodyAndUpdate(t *testing.T) {
	c, _ := runScript(t, `for (int i = 0; i > 5; println("update")) { println("body"); }`)
	if got := c.Output().String(); got != "" {
		t.Fatalf("expected no output, got %q", got)
	}
}

func TestLoopCapStopsWithWarning(t *testing.T) {
	c, _ := runScript(t, `
while (true) { print("x"); }
for (;;) { print("y"); }`, WithMaxLoops(5))
	if got := c.Output().String(); got != "xxxxxyyyyy" {
		t.Fatalf("expected each body to run 5 times, got %q", got)
	}
	limits := 0
	for _, w := range c.Warnings() {
		if w.Code == WarnLoopLimit {
			limits++
		}
	}
	if limits != 2 {
		t.Fatalf("expected 2 loop limit warnings, got %v", c.Warnings())
	}
}

func TestDoWhileRunsBodyOnce(t *testing.T) {
	c, _ := runScript(t, `do { print("once"); } while (false);`)
	if got := c.Output().String(); got != "once" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestMultiDimensionalArrays(t *testing.T) {
	_, got := runScript(t, `
int[][] m = new int[3][3]{ {1,2,3},{4,5,6},{7,8,9} };
m[1][2]`)
	if got != int32(6) {
		t.Fatalf("expected 6, got %v", got)
	}

	se := runFailure(t, "int[][] m = new int[3][]{ {1,2,3} };")
	if se.Code != ErrCodeParse {
		t.Fatalf("expected PARSE_ERROR for mixed dimensions, got %s", se.Code)
	}

	se = runFailure(t, "int[] a = new int[2]{1, 2, 3};")
	if se.Code != ErrCodeBounds {
		t.Fatalf("expected size mismatch, got %s", se.Code)
	}

	_, got = runScript(t, "int[] a = new int[]{4, 5}; a.length")
	if got != int32(2) {
		t.Fatalf("expected length 2, got %v", got)
	}

	se = runFailure(t, "int[] a = new int[2]; a[5]")
	if se.Code != ErrCodeBounds {
		t.Fatalf("expected BOUNDS_ERROR, got %s", se.Code)
	}
}

func TestSwitchFallsThroughUntilBreak(t *testing.T) {
	c, _ := runScript(t, `
int k = 2;
switch (k) {
	case 1: println("one");
	case 2: println("two");
	case 3: println("three"); break;
	default: println("other");
}
switch (9) {
	case 1, 2: println("small");
	default: println("default");
}`)
	if got := c.Output().String(); got != "two\nthree\ndefault\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestTryCatchFinally(t *testing.T) {
	c, _ := runScript(t, `
try {
	int z = 1 / 0;
} catch (ArithmeticException e) {
	println("caught " + e.getMessage());
} finally {
	println("done");
}
try {
	throw new IllegalStateException("bad");
} catch (IllegalArgumentException e) {
	println("wrong");
} catch (NullPointerException | RuntimeException e) {
	println("got " + e.getMessage());
}`)
	if got := c.Output().String(); got != "caught / by zero\ndone\ngot bad\n" {
		t.Fatalf("unexpected output %q", got)
	}

	se := runFailure(t, `throw new RuntimeException("boom");`)
	if se.Code != ErrCodeThrown || se.Thrown.Message != "boom" {
		t.Fatalf("expected thrown boom, got %v", se)
	}
}

func TestEngineErrorsAreCatchable(t *testing.T) {
	c, _ := runScript(t, `
try {
	String s = null;
	s.length();
} catch (NullPointerException e) {
	println("npe");
}`)
	if got := c.Output().String(); got != "npe\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestLambdas(t *testing.T) {
	_, got := runScript(t, `
Function<Integer, Integer> f = x -> x * 2;
f.apply(21)`)
	if got != int32(42) {
		t.Fatalf("expected 42, got %v", got)
	}

	_, got = runScript(t, `
int base = 10;
var add = (a, b) -> { return a + b + base; };
add(1, 2)`)
	if got != int32(13) {
		t.Fatalf("expected 13, got %v", got)
	}

	se := runFailure(t, "var g = (a, b) -> a + b; g(1)")
	if se.Code != ErrCodeType {
		t.Fatalf("expected arity mismatch, got %s", se.Code)
	}

	se = runFailure(t, "Function f = (a, b) -> a;")
	if se.Code != ErrCodeType {
		t.Fatalf("expected adaptation failure, got %s", se.Code)
	}
}

func TestUncastReassignmentKeepsRawValue(t *testing.T) {
	_, got := runScript(t, "long n = 1; n = 5; n")
	if got != int32(5) {
		t.Fatalf("expected raw int 5, got %v (%T)", got, got)
	}
	se := runFailure(t, `int n = 1; n = "text";`)
	if se.Code != ErrCodeType {
		t.Fatalf("expected TYPE_MISMATCH, got %s", se.Code)
	}
}

func TestVariableRedeclarationFails(t *testing.T) {
	se := runFailure(t, "int a = 1; int a = 2;")
	if se.Code != ErrCodeExecution {
		t.Fatalf("expected EXECUTION_ERROR, got %s", se.Code)
	}
	se = runFailure(t, "int println = 1;")
	if se.Code != ErrCodeType {
		t.Fatalf("expected builtin shadowing error, got %s", se.Code)
	}
}

func TestDeleteVariable(t *testing.T) {
	se := runFailure(t, "int a = 1; delete a; a")
	if se.Code != ErrCodeUndefined {
		t.Fatalf("expected deleted variable to be undefined, got %s", se.Code)
	}
	c, _ := runScript(t, "int a = 1; int b = 2; delete *;")
	if names := c.VariableNames(); len(names) != 0 {
		t.Fatalf("expected no variables, got %v", names)
	}
}

func TestTernaryAndLogic(t *testing.T) {
	_, got := runScript(t, `int v = 7; v > 5 && v < 10 ? "in" : "out"`)
	if got != "in" {
		t.Fatalf("expected in, got %v", got)
	}
	se := runFailure(t, "null && true")
	if se.Code != ErrCodeArithmetic {
		t.Fatalf("expected ARITHMETIC_OPERAND, got %s", se.Code)
	}
}

func TestTernaryBranchTypesMustAgree(t *testing.T) {
	se := runFailure(t, `String s = "x"; return true ? 1 : s;`)
	if se.Code != ErrCodeType {
		t.Fatalf("expected TYPE_MISMATCH, got %s: %s", se.Code, se.Message)
	}
	_, got := runScript(t, `int a = 2; long b = 3L; true ? a : b`)
	if got != int32(2) {
		t.Fatalf("expected numeric branches to mix, got %v (%T)", got, got)
	}
	_, got = runScript(t, `int n = 0; int r = true ? 5 : n++; n`)
	if got != int32(0) {
		t.Fatalf("expected untaken branch to stay unevaluated, got %v", got)
	}
}

func TestCompoundAssignmentAndIncrement(t *testing.T) {
	_, got := runScript(t, `
int[] a = new int[]{1, 2};
a[0] += 10;
a[1]++;
int x = 3;
x *= 4;
x--;
a[0] + a[1] + x`)
	if got != int32(11+3+11) {
		t.Fatalf("expected 25, got %v", got)
	}
}
