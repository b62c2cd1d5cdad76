package script

import (
	"sync"
	"sync/atomic"

	"github.com/oarkflow/log"
)

var (
	loggerMu       sync.RWMutex
	packageLogger  = &log.DefaultLogger
	loggingEnabled atomic.Bool
)

func init() {
	loggingEnabled.Store(true)
}

func SetLogger(l *log.Logger) {
	if l == nil {
		return
	}
	loggerMu.Lock()
	packageLogger = l
	loggerMu.Unlock()
}

func Logger() *log.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return packageLogger
}

// EnableLogging switches interpreter logging on or off process-wide.
func EnableLogging(enabled bool) {
	loggingEnabled.Store(enabled)
}

func LoggingEnabled() bool {
	return loggingEnabled.Load()
}

func (c *Context) log() *log.Logger {
	if c.logger != nil {
		return c.logger
	}
	return Logger()
}

func (c *Context) logWarn(code WarningCode, msg string) {
	if !LoggingEnabled() {
		return
	}
	c.log().Warn().Str("session", c.id).Str("code", string(code)).Msg(msg)
}

func (c *Context) logError(err error, msg string) {
	if !LoggingEnabled() {
		return
	}
	c.log().Error().Str("session", c.id).Err(err).Msg(msg)
}
