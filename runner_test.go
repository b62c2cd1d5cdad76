package script

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestContinueOnErrorsRecordsWarning(t *testing.T) {
	c, err := NewContext()
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	yes := true
	ctx := WithRuntimeConfigOverride(context.Background(), RuntimeConfigOverride{ContinueOnErrors: &yes})
	err = NewRunner(c).Execute(ctx, `
println("a");
int x = "not a number";
println("b");`)
	if err != nil {
		t.Fatalf("expected run to continue past the failure, got %v", err)
	}
	if got := c.Output().String(); got != "a\nb\n" {
		t.Fatalf("unexpected output %q", got)
	}
	warnings := c.Warnings()
	if len(warnings) != 1 || warnings[0].Code != WarnStatement {
		t.Fatalf("expected one statement warning, got %v", warnings)
	}
	if !strings.Contains(warnings[0].Message, "mismatch") {
		t.Fatalf("warning should describe the failure, got %q", warnings[0].Message)
	}
}

func TestFirstErrorStopsRunByDefault(t *testing.T) {
	c, err := NewContext()
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	err = NewRunner(c).Execute(context.Background(), `println("a"); undefinedThing(); println("b");`)
	var se *ScriptError
	if !errors.As(err, &se) || se.Code != ErrCodeUndefined {
		t.Fatalf("expected UNDEFINED error, got %v", err)
	}
	if got := c.Output().String(); got != "a\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestTopLevelReturnStopsRun(t *testing.T) {
	c, got := runScript(t, `
println(1);
return 7;
println(2);`)
	if got != int32(7) {
		t.Fatalf("expected 7, got %v", got)
	}
	if out := c.Output().String(); out != "1\n" {
		t.Fatalf("statements after return must not run, got %q", out)
	}
}

func TestResultIsLastStatementValue(t *testing.T) {
	_, got := runScript(t, "1; 2; 3")
	if got != int32(3) {
		t.Fatalf("expected 3, got %v", got)
	}
}

func TestTopLevelBreakIsAnError(t *testing.T) {
	se := runFailure(t, "break;")
	if se.Code != ErrCodeExecution || !strings.Contains(se.Message, "break") {
		t.Fatalf("expected EXECUTION_ERROR for stray break, got %v", se)
	}
}

func TestCanceledContextStopsRun(t *testing.T) {
	c, err := NewContext()
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = NewRunner(c).Execute(ctx, `println("never");`)
	var se *ScriptError
	if !errors.As(err, &se) || se.Code != ErrCodeCanceled {
		t.Fatalf("expected CANCELED, got %v", err)
	}
	if out := c.Output().String(); out != "" {
		t.Fatalf("nothing should run, got %q", out)
	}
}

func TestTimeoutInterruptsLoop(t *testing.T) {
	c, err := NewContext(WithMaxLoops(1 << 30))
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err = NewRunner(c).Execute(ctx, `
int n = 0;
try {
	while (true) { n++; }
} catch (Exception e) {
	println("cancellation must not be catchable");
}`)
	var se *ScriptError
	if !errors.As(err, &se) || se.Code != ErrCodeCanceled {
		t.Fatalf("expected CANCELED, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("loop was not interrupted promptly: %s", elapsed)
	}
	if out := c.Output().String(); out != "" {
		t.Fatalf("cancellation was caught: %q", out)
	}
}

func TestRunLaterRunsAfterStatement(t *testing.T) {
	c, _ := runScript(t, `
runLater(() -> println("later"));
println("now");`)
	if got := c.Output().String(); got != "later\nnow\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRunLaterFailureIsWarning(t *testing.T) {
	c, _ := runScript(t, `
runLater(() -> { throw new RuntimeException("late failure"); });
println("still running");`)
	if got := c.Output().String(); got != "still running\n" {
		t.Fatalf("unexpected output %q", got)
	}
	found := false
	for _, w := range c.Warnings() {
		if w.Code == WarnAsyncFailure {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected async failure warning, got %v", c.Warnings())
	}
}

func TestStatePersistsAcrossRunsButOutputResets(t *testing.T) {
	c, err := NewContext()
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	r := NewRunner(c)
	if err := r.Execute(context.Background(), `int base = 5; println("first");`); err != nil {
		t.Fatalf("first run: %v", err)
	}
	got, err := r.ExecuteWithResult(context.Background(), `println("second"); base * 2`)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got != int32(10) {
		t.Fatalf("expected 10, got %v", got)
	}
	if out := c.Output().String(); out != "second\n" {
		t.Fatalf("output should reset between runs, got %q", out)
	}
}

func TestGlobalRuntimeConfig(t *testing.T) {
	prev := GetRuntimeConfig()
	t.Cleanup(func() { SetRuntimeConfig(prev) })

	cfg := prev
	cfg.MaxLoops = 3
	SetRuntimeConfig(cfg)
	c, _ := runScript(t, `for (;;) { print("z"); }`)
	if got := c.Output().String(); got != "zzz" {
		t.Fatalf("expected configured loop cap, got %q", got)
	}

	limit := 2
	ctx := WithRuntimeConfigOverride(context.Background(), RuntimeConfigOverride{MaxLoops: &limit})
	c2, err := NewContext()
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	if err := NewRunner(c2).Execute(ctx, `while (true) print("y");`); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := c2.Output().String(); got != "yy" {
		t.Fatalf("expected override loop cap, got %q", got)
	}
}
