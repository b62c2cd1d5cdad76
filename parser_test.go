package script

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestParseNumberFormats(t *testing.T) {
	cases := []struct {
		text string
		neg  bool
		want any
	}{
		{"42", false, int32(42)},
		{"42", true, int32(-42)},
		{"2147483648", false, int64(2147483648)},
		{"10L", false, int64(10)},
		{"0L", false, int64(0)},
		{"0x1F", false, int32(31)},
		{"0xFFFFFFFF", false, int32(-1)},
		{"0x10L", false, int64(16)},
		{"0b101", false, int32(5)},
		{"0o17", false, int32(15)},
		{"017", false, int32(15)},
		{"1_000", false, int32(1000)},
		{"2f", false, float32(2)},
		{"3d", false, float64(3)},
		{"1.5", false, float64(1.5)},
		{"1e3", false, float64(1000)},
		{"2.5e-1", true, float64(-0.25)},
	}
	for _, tc := range cases {
		got, err := parseNumber(tc.text, tc.neg)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.text, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %v (%T), got %v (%T)", tc.text, tc.want, tc.want, got, got)
		}
	}
	for _, bad := range []string{"0xZZ", "0b2", "99999999999999999999", "1.2.3f"} {
		if _, err := parseNumber(bad, false); err == nil {
			t.Fatalf("%s: expected error", bad)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	_, got := runScript(t, `"a\tbA\101\x42\\\"\s"`)
	if got != "a\tbAAB\\\" " {
		t.Fatalf("unexpected string %q", got)
	}
	_, got = runScript(t, `'\n'`)
	if got != Char('\n') {
		t.Fatalf("expected newline char, got %v", got)
	}
}

func TestUnknownEscapeWarns(t *testing.T) {
	c, got := runScript(t, `"\q"`)
	if got != `\q` {
		t.Fatalf("expected verbatim escape, got %q", got)
	}
	warnings := c.Warnings()
	if len(warnings) != 1 || warnings[0].Code != WarnSyntax {
		t.Fatalf("expected one syntax warning, got %v", warnings)
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	_, got := runScript(t, `
// leading comment
int a = 1; /* inline */ int b = /* mid */ 2;
a + b // trailing`)
	if got != int32(3) {
		t.Fatalf("expected 3, got %v", got)
	}
}

func TestUnterminatedCommentIsParseError(t *testing.T) {
	c, err := NewContext()
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	err = NewRunner(c).Execute(context.Background(), "println(1); /* oops")
	if err == nil {
		t.Fatalf("expected parse error")
	}
	se, ok := err.(*ScriptError)
	if !ok || se.Code != ErrCodeParse {
		t.Fatalf("expected PARSE_ERROR, got %v", err)
	}
	if !strings.Contains(se.Message, "Unterminated multi-line comment at 1:13") {
		t.Fatalf("unexpected message %q", se.Message)
	}
	if got := c.Output().String(); got != "1\n" {
		t.Fatalf("expected the first statement to run, got %q", got)
	}
}

func TestUnterminatedStringIsParseError(t *testing.T) {
	se := runFailure(t, "String s = \"abc\nd\";")
	if se.Code != ErrCodeParse {
		t.Fatalf("expected PARSE_ERROR, got %s", se.Code)
	}
}

func TestParseErrorCarriesPosition(t *testing.T) {
	se := runFailure(t, "int a = 1;\nif (a > 0 {\n}")
	if se.Code != ErrCodeParse {
		t.Fatalf("expected PARSE_ERROR, got %s", se.Code)
	}
	if !strings.Contains(se.Message, "line 2") {
		t.Fatalf("expected line information, got %q", se.Message)
	}
}

func TestInvalidNumberMessage(t *testing.T) {
	cases := map[string]string{
		"99999999999999999999": "Invalid number: 99999999999999999999",
		"0xFFFFFFFFF":          "Invalid hexadecimal number: 0xFFFFFFFFF",
	}
	for src, want := range cases {
		se := runFailure(t, src)
		if se.Code != ErrCodeParse {
			t.Fatalf("%s: expected PARSE_ERROR, got %s", src, se.Code)
		}
		if !strings.HasPrefix(se.Message, want) {
			t.Fatalf("%s: expected message starting with %q, got %q", src, want, se.Message)
		}
		if strings.Count(se.Error(), string(ErrCodeParse)) != 1 {
			t.Fatalf("%s: error code repeated in %q", src, se.Error())
		}
	}
}

func TestDeeplyUnclosedInputFailsFast(t *testing.T) {
	c, err := NewContext()
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	inputs := []string{
		strings.Repeat("{", 30),
		strings.Repeat("{ ", 30) + "(",
		"int[][] a = " + strings.Repeat("{", 30),
		strings.Repeat("{", 30) + "1, 2",
	}
	for _, src := range inputs {
		start := time.Now()
		_, err := c.Parse(src)
		if err == nil {
			t.Fatalf("expected %q to fail", src)
		}
		se, ok := err.(*ScriptError)
		if !ok || se.Code != ErrCodeParse {
			t.Fatalf("expected PARSE_ERROR for %q, got %v", src, err)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Fatalf("parsing %q took %s", src, elapsed)
		}
	}
	se := runFailure(t, "{ int x = 1;")
	if !strings.Contains(se.Message, "Unterminated block") {
		t.Fatalf("unexpected message %q", se.Message)
	}
}

func TestParseBuildsStatementNodes(t *testing.T) {
	c, err := NewContext()
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	nodes, err := c.Parse(`
import java.util.*;
int x = 1
x += 2;
if (x > 1) println(x); else println(0);
for (String s : list) {}
for (i = 0; i < 3; i++, j++) {}
return x;`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(nodes) != 7 {
		t.Fatalf("expected 7 statements, got %d", len(nodes))
	}
	if _, ok := nodes[0].(*Import); !ok {
		t.Fatalf("expected Import, got %T", nodes[0])
	}
	decl, ok := nodes[1].(*VarDecl)
	if !ok || decl.TypeName != "int" || decl.Name != "x" {
		t.Fatalf("expected int x declaration, got %#v", nodes[1])
	}
	assign, ok := nodes[2].(*Assign)
	if !ok {
		t.Fatalf("expected Assign, got %T", nodes[2])
	}
	if bin, ok := assign.Value.(*Binary); !ok || bin.Op != "+" {
		t.Fatalf("expected compound assignment to expand to +, got %#v", assign.Value)
	}
	if n, ok := nodes[3].(*If); !ok || n.Else == nil {
		t.Fatalf("expected If with else, got %#v", nodes[3])
	}
	if n, ok := nodes[4].(*ForEach); !ok || n.TypeName != "String" || n.Name != "s" {
		t.Fatalf("expected for-each, got %#v", nodes[4])
	}
	if n, ok := nodes[5].(*For); !ok {
		t.Fatalf("expected For, got %T", nodes[5])
	} else if _, ok := n.Update.(*Block); !ok {
		t.Fatalf("expected comma separated updates in a Block, got %T", n.Update)
	}
	if _, ok := nodes[6].(*Return); !ok {
		t.Fatalf("expected Return, got %T", nodes[6])
	}
}

func TestParseGenericsAndArrays(t *testing.T) {
	c, err := NewContext()
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	nodes, err := c.Parse(`
Map<String, List<Integer>> m = new HashMap<>();
int grid[] = new int[4];
String... rest = null;`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{"Map", "int[]", "String[]"}
	for i, w := range want {
		decl, ok := nodes[i].(*VarDecl)
		if !ok || decl.TypeName != w {
			t.Fatalf("statement %d: expected type %s, got %#v", i, w, nodes[i])
		}
	}
	if _, ok := nodes[1].(*VarDecl).Init.(*ArrayCreation); !ok {
		t.Fatalf("expected ArrayCreation, got %T", nodes[1].(*VarDecl).Init)
	}
}

func TestCastVersusParenthesizedExpression(t *testing.T) {
	_, got := runScript(t, "int a = 3; int b = 4; (a) + b")
	if got != int32(7) {
		t.Fatalf("expected 7, got %v", got)
	}
	_, got = runScript(t, "(int) 3.9")
	if got != int32(3) {
		t.Fatalf("expected 3, got %v", got)
	}
	_, got = runScript(t, "(double) -2")
	if got != float64(-2) {
		t.Fatalf("expected -2.0, got %v", got)
	}
}

func TestUnsupportedDeclarationsAreFatal(t *testing.T) {
	for _, src := range []string{
		"interface Shape { double area(); }",
		"enum Color { RED }",
		"Runnable r = new Runnable() { public void run() {} };",
	} {
		se := runFailure(t, src)
		if se.Code != ErrCodeParse {
			t.Fatalf("%s: expected PARSE_ERROR, got %s", src, se.Code)
		}
	}
}

func TestTryRequiresCatchOrFinally(t *testing.T) {
	se := runFailure(t, "try { println(1); }")
	if se.Code != ErrCodeParse || !strings.Contains(se.Message, "at least one catch block") {
		t.Fatalf("unexpected error %v", se)
	}
}

func TestUnrecognizedClassMemberWarns(t *testing.T) {
	c, _ := runScript(t, `
class Box {
	int size = 2;
	%%% garbage %%%
	int twice() { return size * 2; }
}
new Box().twice()`)
	found := false
	for _, w := range c.Warnings() {
		if w.Code == WarnSyntax && strings.Contains(w.Message, "Unrecognized member in class Box") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected unrecognized member warning, got %v", c.Warnings())
	}
}

func TestCursorKeywordBoundaries(t *testing.T) {
	l := newCursor("double d")
	if l.isKeyword("do") {
		t.Fatalf("do must not match the prefix of double")
	}
	if !l.isKeyword("double") {
		t.Fatalf("expected double keyword")
	}
	if w := l.peekWord(); w != "double" {
		t.Fatalf("expected peekWord double, got %q", w)
	}
	l.save()
	l.matchKeyword("double")
	l.restore()
	if l.pos != 0 {
		t.Fatalf("restore should rewind to 0, got %d", l.pos)
	}
	if _, err := newCursor("1abc").identifier(); err == nil {
		t.Fatalf("identifier must not start with a digit")
	}
}
