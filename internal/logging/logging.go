// Package logging holds the process-wide structured logger.
//
// Records go to stderr. In serve mode stdout carries the JSON-RPC stream and
// must stay clean.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Options configures a logger.
type Options struct {
	Level string // debug|info|warn|error, default info
	JSON  bool   // JSON handler instead of text
}

var def atomic.Value

func init() {
	def.Store(New(os.Stderr, Options{}))
}

// New builds a logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	cfg := &slog.HandlerOptions{Level: parseLevel(opts.Level)}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(w, cfg)
	} else {
		h = slog.NewTextHandler(w, cfg)
	}
	return slog.New(h)
}

// Configure replaces the default logger.
func Configure(opts Options) {
	def.Store(New(os.Stderr, opts))
}

func parseLevel(s string) slog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// L returns the default logger.
func L() *slog.Logger {
	l, _ := def.Load().(*slog.Logger)
	return l
}
