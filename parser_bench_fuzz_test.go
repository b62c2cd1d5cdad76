package script

import (
	"context"
	"strings"
	"testing"
)

const benchProgram = `
ArrayList<Integer> items = new ArrayList<>();
for (int i = 0; i < 100; i++) {
	if (i % 3 == 0) { items.add(i * 2); } else { items.add(i); }
}
int total = 0;
for (int v : items) { total += v; }
String label = "total=" + total;
`

func BenchmarkParseProgram(b *testing.B) {
	c, err := NewContext()
	if err != nil {
		b.Fatalf("new context: %v", err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := c.Parse(benchProgram); err != nil {
			b.Fatalf("parse failed: %v", err)
		}
	}
}

func BenchmarkExecuteClassDispatch(b *testing.B) {
	src := `
class Counter {
	int n;
	void inc(int by) { n += by; }
	int get() { return n; }
}
Counter c = new Counter();
for (int i = 0; i < 200; i++) { c.inc(i); }
c.get()`
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c, err := NewContext()
		if err != nil {
			b.Fatalf("new context: %v", err)
		}
		if _, err := NewRunner(c).ExecuteWithResult(context.Background(), src); err != nil {
			b.Fatalf("execution failed: %v", err)
		}
	}
}

func FuzzParserNoPanic(f *testing.F) {
	seeds := []string{
		benchProgram,
		"int x = (1 + 2) * 3;",
		"String s = \"a\" + 'b' + 1.5f;",
		"class A extends B { int f; A(int f) { this.f = f; } }",
		"Function<Integer, Integer> sq = x -> x * x;",
		"try { throw new RuntimeException(\"x\"); } catch (Exception e) { } finally { }",
		"switch (x) { case 1: break; default: }",
		"int[] a = new int[]{1, 2, 3};",
		"do { x--; } while (x > 0",
		"for (;;",
		"\"unterminated",
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, src string) {
		if strings.TrimSpace(src) == "" {
			return
		}
		c, err := NewContext()
		if err != nil {
			t.Fatalf("new context: %v", err)
		}
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("parser panicked for %q: %v", src, r)
			}
		}()
		_, _ = c.Parse(src)
	})
}
