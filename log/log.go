// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package log provides package scoped loggers on top of the go-ethereum slog root.
package log

import (
	"io"
	"log/slog"

	ethlog "github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
)

// Logger writes leveled records with key/value context.
type Logger interface {
	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
}

// WithContext returns a logger that prepends ctx to every record.
// The root logger is looked up on each write, so loggers declared at package
// level pick up handlers installed later through SetDefault.
func WithContext(ctx ...any) Logger {
	return &lazyLogger{ctx: ctx}
}

type lazyLogger struct {
	ctx []any
}

func (l *lazyLogger) with() ethlog.Logger {
	return ethlog.Root().With(l.ctx...)
}

func (l *lazyLogger) Trace(msg string, ctx ...any) { l.with().Trace(msg, ctx...) }
func (l *lazyLogger) Debug(msg string, ctx ...any) { l.with().Debug(msg, ctx...) }
func (l *lazyLogger) Info(msg string, ctx ...any)  { l.with().Info(msg, ctx...) }
func (l *lazyLogger) Warn(msg string, ctx ...any)  { l.with().Warn(msg, ctx...) }
func (l *lazyLogger) Error(msg string, ctx ...any) { l.with().Error(msg, ctx...) }

// Output formats.
const (
	FormatTerminal = "terminal"
	FormatJSON     = "json"
	FormatLogfmt   = "logfmt"
)

// NewHandler builds a handler for the given format. Verbosity follows the
// legacy scale: 0 crit, 1 error, 2 warn, 3 info, 4 debug, 5 trace.
func NewHandler(w io.Writer, format string, verbosity int, color bool) (slog.Handler, error) {
	lvl := ethlog.FromLegacyLevel(verbosity)
	switch format {
	case "", FormatTerminal:
		return ethlog.NewTerminalHandlerWithLevel(w, lvl, color), nil
	case FormatJSON:
		return ethlog.JSONHandlerWithLevel(w, lvl), nil
	case FormatLogfmt:
		return ethlog.LogfmtHandlerWithLevel(w, lvl), nil
	default:
		return nil, errors.Errorf("unknown log format %q", format)
	}
}

// SetDefault installs h as the root handler.
func SetDefault(h slog.Handler) {
	ethlog.SetDefault(ethlog.NewLogger(h))
}
