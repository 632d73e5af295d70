// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package log is a thin layer over go-ethereum's slog based logger.
// Package level loggers created by WithContext resolve the root logger on every call,
// so they follow SetDefault even when declared before the node configures logging.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	ethlog "github.com/ethereum/go-ethereum/log"
)

const (
	LevelTrace = ethlog.LevelTrace
	LevelDebug = ethlog.LevelDebug
	LevelInfo  = ethlog.LevelInfo
	LevelWarn  = ethlog.LevelWarn
	LevelError = ethlog.LevelError
	LevelCrit  = ethlog.LevelCrit
)

// Logger writes key/value pairs to the root handler.
type Logger interface {
	With(ctx ...any) Logger
	Enabled(level slog.Level) bool

	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Crit(msg string, ctx ...any)
}

type logger struct {
	ctx []any
}

// WithContext returns a logger carrying the given key/value pairs,
// e.g. log.WithContext("pkg", "engine").
func WithContext(ctx ...any) Logger {
	return &logger{ctx: ctx}
}

// Root returns the root logger.
func Root() Logger {
	return &logger{}
}

func (l *logger) root() ethlog.Logger {
	if len(l.ctx) == 0 {
		return ethlog.Root()
	}
	return ethlog.Root().With(l.ctx...)
}

func (l *logger) With(ctx ...any) Logger {
	merged := make([]any, 0, len(l.ctx)+len(ctx))
	merged = append(append(merged, l.ctx...), ctx...)
	return &logger{ctx: merged}
}

func (l *logger) Enabled(level slog.Level) bool {
	return ethlog.Root().Enabled(context.Background(), level)
}

func (l *logger) Trace(msg string, ctx ...any) { l.root().Trace(msg, ctx...) }
func (l *logger) Debug(msg string, ctx ...any) { l.root().Debug(msg, ctx...) }
func (l *logger) Info(msg string, ctx ...any)  { l.root().Info(msg, ctx...) }
func (l *logger) Warn(msg string, ctx ...any)  { l.root().Warn(msg, ctx...) }
func (l *logger) Error(msg string, ctx ...any) { l.root().Error(msg, ctx...) }

// Crit logs at the critical level. Unlike go-ethereum it does not exit the process,
// the node decides how to shut down.
func (l *logger) Crit(msg string, ctx ...any) { l.root().Log(LevelCrit, msg, ctx...) }

// Handler is the root handler with a runtime adjustable level.
type Handler struct {
	*ethlog.GlogHandler
	level slog.Level
}

// NewTerminalHandler creates a human readable handler.
func NewTerminalHandler(w io.Writer, level slog.Level, useColor bool) *Handler {
	return newHandler(ethlog.NewTerminalHandlerWithLevel(w, LevelTrace, useColor), level)
}

// NewJSONHandler creates a handler writing one json object per record.
func NewJSONHandler(w io.Writer, level slog.Level) *Handler {
	return newHandler(ethlog.JSONHandlerWithLevel(w, LevelTrace), level)
}

func newHandler(h slog.Handler, level slog.Level) *Handler {
	glog := ethlog.NewGlogHandler(h)
	glog.Verbosity(level)
	return &Handler{GlogHandler: glog, level: level}
}

// SetLevel changes the level of the handler.
func (h *Handler) SetLevel(level slog.Level) {
	h.level = level
	h.Verbosity(level)
}

// Level returns the current level of the handler.
func (h *Handler) Level() slog.Level {
	return h.level
}

// SetDefault installs the handler as the root of all loggers.
func SetDefault(h slog.Handler) {
	ethlog.SetDefault(ethlog.NewLogger(h))
}

// ParseLevel parses level names as accepted by the admin endpoint and the cli.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "5":
		return LevelTrace, nil
	case "debug", "4":
		return LevelDebug, nil
	case "info", "3":
		return LevelInfo, nil
	case "warn", "2":
		return LevelWarn, nil
	case "error", "1":
		return LevelError, nil
	case "crit", "0":
		return LevelCrit, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// LevelString returns the short lower case name of level.
func LevelString(level slog.Level) string {
	switch {
	case level <= LevelTrace:
		return "trace"
	case level <= LevelDebug:
		return "debug"
	case level <= LevelInfo:
		return "info"
	case level <= LevelWarn:
		return "warn"
	case level <= LevelError:
		return "error"
	default:
		return "crit"
	}
}
