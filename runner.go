package script

import (
	"context"
	"errors"
	"time"
)

// Runner executes script source against one Context. Statements are parsed
// and evaluated one at a time, so a class declared early in a script is
// known while parsing the rest.
type Runner struct {
	ctx *Context
}

func NewRunner(c *Context) *Runner {
	return &Runner{ctx: c}
}

func (r *Runner) Context() *Context { return r.ctx }

func (r *Runner) Execute(ctx context.Context, src string) error {
	_, err := r.ExecuteWithResult(ctx, src)
	return err
}

// ExecuteWithResult runs src and returns the value of a top-level return,
// or the value of the last statement when the script does not return.
// Output and warning sinks are cleared first.
func (r *Runner) ExecuteWithResult(ctx context.Context, src string) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c := r.ctx
	c.out.Clear()
	c.warn.Clear()
	c.mu.Lock()
	c.warnings = nil
	c.mu.Unlock()
	c.cfg = effectiveRuntimeConfig(ctx)
	c.goctx = ctx
	c.current = c.global
	c.returns, c.owners, c.depth = nil, nil, 0
	defer func() { c.goctx = context.Background() }()

	start := time.Now()
	stats := runStats{}
	result, err := r.run(src, &stats)
	if c.cfg.LogExecution && LoggingEnabled() {
		ev := c.log().Info()
		if err != nil {
			ev = c.log().Error().Err(err)
		}
		ev.Str("session", c.id).
			Int("statements", stats.statements).
			Int("failed", stats.failed).
			Int("warnings", len(c.Warnings())).
			Str("elapsed", time.Since(start).String()).
			Msg("script run finished")
	}
	return result, err
}

type runStats struct {
	statements int
	failed     int
}

func (r *Runner) run(src string, stats *runStats) (any, error) {
	c := r.ctx
	p := NewParser(c, src)
	var result any
	for {
		if err := c.checkCanceled(); err != nil {
			return nil, err
		}
		n, err := p.Next()
		if err != nil {
			c.logError(err, "script parse failed")
			return nil, err
		}
		if n == nil {
			return result, nil
		}
		stats.statements++
		sig, err := n.Eval(c)
		c.runPending()
		if err == nil && sig.Abrupt() && sig.Kind != SignalReturn {
			err = execError("'%s' outside of a loop", sig.Kind)
		}
		if err != nil {
			if !c.cfg.ContinueOnErrors || isCanceled(err) {
				c.logError(err, "script run failed")
				return nil, err
			}
			stats.failed++
			c.addWarning(WarnStatement, "Statement failed: "+describeError(err))
			continue
		}
		if sig.Kind == SignalReturn {
			return sig.Value, nil
		}
		result = sig.Value
	}
}

func isCanceled(err error) bool {
	var se *ScriptError
	return errors.As(err, &se) && se.Code == ErrCodeCanceled
}

// describeError renders a script error with its details and cause chain.
func describeError(err error) string {
	var se *ScriptError
	if errors.As(err, &se) {
		return se.Describe()
	}
	return err.Error()
}
