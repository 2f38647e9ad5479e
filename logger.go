package fractal

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler drops every record. Enabled reports false for all levels, so
// per-tile debug calls in the coordinator never build their attributes.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var silent = slog.New(nopHandler{})

// loggerPtr is read by the coordinator, the event dispatcher and workers
// while a render is running. Nil means silent.
var loggerPtr atomic.Pointer[slog.Logger]

// SetLogger routes engine logging to l. The package is silent until this is
// called, and a nil l makes it silent again. It may be called while engines
// are running; records already in flight go to whichever logger was loaded.
//
// Levels in use:
//   - Info: engine lifecycle and completed frames
//   - Debug: dispatch and discarded tile results
//   - Warn: tile faults and panicking event handlers
//
//	fractal.SetLogger(slog.New(slog.NewTextHandler(os.Stderr,
//		&slog.HandlerOptions{Level: slog.LevelDebug})))
func SetLogger(l *slog.Logger) {
	loggerPtr.Store(l)
}

// Logger returns the logger set by SetLogger, or a silent one.
func Logger() *slog.Logger {
	if l := loggerPtr.Load(); l != nil {
		return l
	}
	return silent
}
