// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package log is the structured logger of the node. It builds on the
// slog-based logger of go-ethereum.
package log

import (
	"context"
	"io"
	"log/slog"

	gethlog "github.com/ethereum/go-ethereum/log"
)

// Logger writes key/value pairs to a Handler.
type Logger = gethlog.Logger

// Levels beyond the slog defaults.
const (
	LevelTrace = gethlog.LevelTrace
	LevelCrit  = gethlog.LevelCrit
)

// Root returns the root logger.
func Root() Logger {
	return gethlog.Root()
}

// SetDefault sets the root logger.
func SetDefault(l Logger) {
	gethlog.SetDefault(l)
}

// NewLogger returns a logger with the given handler.
func NewLogger(h slog.Handler) Logger {
	return gethlog.NewLogger(h)
}

// NewTerminalHandler returns a handler writing human friendly lines, coloured if useColor.
func NewTerminalHandler(w io.Writer, level slog.Level, useColor bool) slog.Handler {
	return gethlog.NewTerminalHandlerWithLevel(w, level, useColor)
}

// NewJSONHandler returns a handler writing one JSON object per record.
func NewJSONHandler(w io.Writer, level slog.Level) slog.Handler {
	return gethlog.JSONHandlerWithLevel(w, level)
}

// DiscardHandler returns a no-op handler.
func DiscardHandler() slog.Handler {
	return gethlog.DiscardHandler()
}

// FromLegacyLevel maps the 0 (crit) to 5 (trace) verbosity scale onto slog levels.
func FromLegacyLevel(lvl int) slog.Level {
	return gethlog.FromLegacyLevel(lvl)
}

// WithContext returns a logger carrying ctx which resolves the root logger
// at every call, so package level loggers follow later SetDefault calls.
func WithContext(ctx ...any) Logger {
	return &lazyLogger{ctx: ctx}
}

type lazyLogger struct {
	ctx []any
}

func (l *lazyLogger) get() Logger {
	return gethlog.Root().With(l.ctx...)
}

func (l *lazyLogger) With(ctx ...any) Logger {
	return &lazyLogger{ctx: append(append([]any(nil), l.ctx...), ctx...)}
}

func (l *lazyLogger) New(ctx ...any) Logger { return l.With(ctx...) }

func (l *lazyLogger) Log(level slog.Level, msg string, ctx ...any) { l.get().Log(level, msg, ctx...) }
func (l *lazyLogger) Trace(msg string, ctx ...any)                 { l.get().Trace(msg, ctx...) }
func (l *lazyLogger) Debug(msg string, ctx ...any)                 { l.get().Debug(msg, ctx...) }
func (l *lazyLogger) Info(msg string, ctx ...any)                  { l.get().Info(msg, ctx...) }
func (l *lazyLogger) Warn(msg string, ctx ...any)                  { l.get().Warn(msg, ctx...) }
func (l *lazyLogger) Error(msg string, ctx ...any)                 { l.get().Error(msg, ctx...) }
func (l *lazyLogger) Crit(msg string, ctx ...any)                  { l.get().Crit(msg, ctx...) }

func (l *lazyLogger) Write(level slog.Level, msg string, attrs ...any) {
	l.get().Write(level, msg, attrs...)
}

func (l *lazyLogger) Enabled(ctx context.Context, level slog.Level) bool {
	return l.get().Enabled(ctx, level)
}

func (l *lazyLogger) Handler() slog.Handler {
	return l.get().Handler()
}
