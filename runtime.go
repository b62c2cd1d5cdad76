package script

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type RuntimeConfig struct {
	MaxLoops         int
	ContinueOnErrors bool
	LogExecution     bool
	MaxCallDepth     int
}

var (
	runtimeConfigMu sync.RWMutex
	runtimeConfig   = DefaultRuntimeConfig()
)

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		MaxLoops:     1024,
		MaxCallDepth: 256,
	}
}

type runtimeConfigContextKey struct{}

type RuntimeConfigOverride struct {
	MaxLoops         *int
	ContinueOnErrors *bool
	LogExecution     *bool
	MaxCallDepth     *int
}

func SetRuntimeConfig(cfg RuntimeConfig) {
	runtimeConfigMu.Lock()
	defer runtimeConfigMu.Unlock()
	runtimeConfig = cfg
}

func GetRuntimeConfig() RuntimeConfig {
	runtimeConfigMu.RLock()
	defer runtimeConfigMu.RUnlock()
	return runtimeConfig
}

func WithRuntimeConfigOverride(ctx context.Context, override RuntimeConfigOverride) context.Context {
	return context.WithValue(ctx, runtimeConfigContextKey{}, override)
}

func effectiveRuntimeConfig(ctx context.Context) RuntimeConfig {
	cfg := GetRuntimeConfig()
	if ctx == nil {
		return cfg
	}
	ov, ok := ctx.Value(runtimeConfigContextKey{}).(RuntimeConfigOverride)
	if !ok {
		return cfg
	}
	if ov.MaxLoops != nil {
		cfg.MaxLoops = *ov.MaxLoops
	}
	if ov.ContinueOnErrors != nil {
		cfg.ContinueOnErrors = *ov.ContinueOnErrors
	}
	if ov.LogExecution != nil {
		cfg.LogExecution = *ov.LogExecution
	}
	if ov.MaxCallDepth != nil {
		cfg.MaxCallDepth = *ov.MaxCallDepth
	}
	return cfg
}

func wrapContextErr(err error) error {
	if err == nil {
		return nil
	}
	if err == context.DeadlineExceeded || err == context.Canceled {
		return &ScriptError{
			Code:    ErrCodeCanceled,
			Message: "script run canceled",
			Cause:   err,
		}
	}
	return err
}

type ErrorCode string

const (
	ErrCodeParse      ErrorCode = "PARSE_ERROR"
	ErrCodeUndefined  ErrorCode = "UNDEFINED_NAME"
	ErrCodeType       ErrorCode = "TYPE_MISMATCH"
	ErrCodeDispatch   ErrorCode = "DISPATCH_ERROR"
	ErrCodeNull       ErrorCode = "NULL_REFERENCE"
	ErrCodeArithmetic ErrorCode = "ARITHMETIC_OPERAND"
	ErrCodeBounds     ErrorCode = "BOUNDS_ERROR"
	ErrCodeThrown     ErrorCode = "THROWN"
	ErrCodeExecution  ErrorCode = "EXECUTION_ERROR"
	ErrCodeRegistry   ErrorCode = "REGISTRY_ERROR"
	ErrCodeCanceled   ErrorCode = "CANCELED"
)

type ScriptError struct {
	Code    ErrorCode
	Message string
	Details []string
	Cause   error
	// Thrown is set for THROWN errors and for engine errors once a catch
	// clause has materialized them as exception objects.
	Thrown *Throwable
}

func (e *ScriptError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScriptError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Describe renders the message followed by details and the cause chain.
func (e *ScriptError) Describe() string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(e.Error())
	for _, d := range e.Details {
		sb.WriteString("\n  ")
		sb.WriteString(d)
	}
	if e.Thrown != nil {
		for c := e.Thrown.Cause; c != nil; c = c.Cause {
			sb.WriteString("\nCaused by: ")
			sb.WriteString(c.String())
		}
	}
	return sb.String()
}

func newError(code ErrorCode, format string, args ...any) *ScriptError {
	return &ScriptError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func parseError(format string, args ...any) *ScriptError {
	return newError(ErrCodeParse, format, args...)
}

func typeError(format string, args ...any) *ScriptError {
	return newError(ErrCodeType, format, args...)
}

func undefinedError(format string, args ...any) *ScriptError {
	return newError(ErrCodeUndefined, format, args...)
}

func dispatchError(format string, args ...any) *ScriptError {
	return newError(ErrCodeDispatch, format, args...)
}

func nullError(format string, args ...any) *ScriptError {
	return newError(ErrCodeNull, format, args...)
}

func arithmeticError(format string, args ...any) *ScriptError {
	return newError(ErrCodeArithmetic, format, args...)
}

func execError(format string, args ...any) *ScriptError {
	return newError(ErrCodeExecution, format, args...)
}

type WarningCode string

const (
	WarnLoopLimit    WarningCode = "LOOP_LIMIT"
	WarnStatement    WarningCode = "STATEMENT_FAILED"
	WarnSyntax       WarningCode = "SYNTAX"
	WarnInitializer  WarningCode = "FIELD_INITIALIZER"
	WarnImport       WarningCode = "IMPORT"
	WarnAsyncFailure WarningCode = "ASYNC_FAILURE"
)

// Warning is a non-fatal diagnostic recorded on a Context.
type Warning struct {
	Code    WarningCode
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("[%s] %s", w.Code, w.Message)
}
