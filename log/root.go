// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

type rootLogger struct{ Logger }

var root atomic.Pointer[rootLogger]

func init() {
	root.Store(&rootLogger{NewLogger(DiscardHandler())})
}

// SetDefault sets the default global logger
func SetDefault(l Logger) {
	root.Store(&rootLogger{l})
	if lg, ok := l.(*logger); ok {
		slog.SetDefault(lg.inner)
	}
}

// Root returns the root logger
func Root() Logger {
	return root.Load().Logger
}

// WithContext returns a logger carrying the given context which always
// writes through the current root logger. It is safe to create at package
// init, before the root logger is configured.
func WithContext(ctx ...any) Logger {
	return &contextLogger{ctx}
}

type contextLogger struct {
	ctx []any
}

func (l *contextLogger) target() Logger { return Root().With(l.ctx...) }

func (l *contextLogger) With(ctx ...any) Logger {
	return &contextLogger{append(append([]any(nil), l.ctx...), ctx...)}
}

func (l *contextLogger) New(ctx ...any) Logger { return l.With(ctx...) }

func (l *contextLogger) Log(level slog.Level, msg string, ctx ...any) {
	l.target().Write(level, msg, ctx...)
}

func (l *contextLogger) Trace(msg string, ctx ...any) { l.target().Write(LevelTrace, msg, ctx...) }
func (l *contextLogger) Debug(msg string, ctx ...any) { l.target().Write(LevelDebug, msg, ctx...) }
func (l *contextLogger) Info(msg string, ctx ...any)  { l.target().Write(LevelInfo, msg, ctx...) }
func (l *contextLogger) Warn(msg string, ctx ...any)  { l.target().Write(LevelWarn, msg, ctx...) }
func (l *contextLogger) Error(msg string, ctx ...any) { l.target().Write(LevelError, msg, ctx...) }

func (l *contextLogger) Crit(msg string, ctx ...any) {
	l.target().Write(LevelCrit, msg, ctx...)
	os.Exit(1)
}

func (l *contextLogger) Write(level slog.Level, msg string, attrs ...any) {
	l.target().Write(level, msg, attrs...)
}

func (l *contextLogger) Enabled(ctx context.Context, level slog.Level) bool {
	return Root().Enabled(ctx, level)
}

func (l *contextLogger) Handler() slog.Handler { return l.target().Handler() }

// The following functions bypass the exported logger methods (logger.Debug,
// etc.) to keep the call depth the same for all paths to logger.Write so
// runtime.Caller(2) always refers to the call site in client code.

// Trace is a convenient alias for Root().Trace
func Trace(msg string, ctx ...any) {
	Root().Write(LevelTrace, msg, ctx...)
}

// Debug is a convenient alias for Root().Debug
func Debug(msg string, ctx ...any) {
	Root().Write(slog.LevelDebug, msg, ctx...)
}

// Info is a convenient alias for Root().Info
func Info(msg string, ctx ...any) {
	Root().Write(slog.LevelInfo, msg, ctx...)
}

// Warn is a convenient alias for Root().Warn
func Warn(msg string, ctx ...any) {
	Root().Write(slog.LevelWarn, msg, ctx...)
}

// Error is a convenient alias for Root().Error
func Error(msg string, ctx ...any) {
	Root().Write(slog.LevelError, msg, ctx...)
}

// Crit is a convenient alias for Root().Crit
func Crit(msg string, ctx ...any) {
	Root().Write(LevelCrit, msg, ctx...)
	os.Exit(1)
}

// New returns a new logger with the given context.
// New is a convenient alias for Root().New
func New(ctx ...any) Logger {
	return Root().With(ctx...)
}
