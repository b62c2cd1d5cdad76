package main

import "testing"

func TestNeedsMore(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{`int x = 1;`, false},
		{`class A {`, true},
		{"class A {\n  int f() { return 1; }\n}", false},
		{`println("{");`, false},
		{`char c = '{';`, false},
		{`foo(1, // )`, true},
		{`int y = 2; /* {`, true},
		{`/* { */ int z = 3;`, false},
		{`String s = "a\"{";`, false},
		{`int[] a = {1, 2`, true},
	}
	for _, tt := range tests {
		if got := needsMore(tt.src); got != tt.want {
			t.Fatalf("needsMore(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	if got := summarize("int x = 1;\n  println(x);", 40); got != "int x = 1; println(x);" {
		t.Fatalf("unexpected summary %q", got)
	}
	if got := summarize("abcdefghijkl", 8); got != "abcde..." {
		t.Fatalf("unexpected truncation %q", got)
	}
}
