// Package logutil wraps go.uber.org/zap with the small, fixed set of
// leveled calls used across the SDK (Debugw/Infow/Warnw/Errorw), following
// ZhenyuePan-NyxDB's direct use of zap throughout internal/*.
package logutil

import (
	"sync"

	"go.uber.org/zap"
)

// Logger is a thin sugar-logger facade. It exists so call sites don't need
// to know whether they're holding a *zap.SugaredLogger or a no-op stand-in
// (tests construct the latter via NewNop).
type Logger struct {
	z *zap.SugaredLogger
}

var (
	defaultOnce   sync.Once
	defaultLogger *Logger
)

// New wraps an existing zap logger.
func New(z *zap.Logger) *Logger {
	return &Logger{z: z.Sugar()}
}

// NewProduction builds a Logger using zap's production config, matching the
// teacher corpus's preference for structured JSON logs in non-dev builds.
func NewProduction() (*Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return New(z), nil
}

// NewNop returns a Logger that discards everything, used by tests and by
// callers that haven't configured logging.
func NewNop() *Logger {
	return New(zap.NewNop())
}

// Default lazily builds a process-wide production logger the first time
// it's needed, so library code always has a non-nil Logger to call into.
func Default() *Logger {
	defaultOnce.Do(func() {
		l, err := NewProduction()
		if err != nil {
			defaultLogger = NewNop()
			return
		}
		defaultLogger = l
	})
	return defaultLogger
}

func (l *Logger) Debugw(msg string, kv ...interface{}) {
	if l == nil {
		return
	}
	l.z.Debugw(msg, kv...)
}

func (l *Logger) Infow(msg string, kv ...interface{}) {
	if l == nil {
		return
	}
	l.z.Infow(msg, kv...)
}

func (l *Logger) Warnw(msg string, kv ...interface{}) {
	if l == nil {
		return
	}
	l.z.Warnw(msg, kv...)
}

func (l *Logger) Errorw(msg string, kv ...interface{}) {
	if l == nil {
		return
	}
	l.z.Errorw(msg, kv...)
}

// Sync flushes any buffered log entries, following zap's standard
// shutdown-time convention.
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.z.Sync()
}
