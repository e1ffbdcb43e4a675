// Package logging builds the process logger from a set of sinks, each with
// its own severity threshold (console at debug, file at info by default).
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Sink describes one log destination.
type Sink struct {
	// Kind is "console" or "file".
	Kind  string `yaml:"kind"`
	Level string `yaml:"level"`
	// Path is the file to write for file sinks. It is truncated on open.
	Path string `yaml:"path"`
	JSON bool   `yaml:"json"`
}

// ParseLevel accepts debug, info, warn and error (case-insensitive).
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// FanOut forwards each record to every handler that is enabled for its level.
type FanOut struct {
	handlers []slog.Handler
}

func NewFanOut(handlers ...slog.Handler) *FanOut {
	return &FanOut{handlers: handlers}
}

func (f *FanOut) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *FanOut) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *FanOut) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		hs[i] = h.WithAttrs(attrs)
	}
	return &FanOut{handlers: hs}
}

func (f *FanOut) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		hs[i] = h.WithGroup(name)
	}
	return &FanOut{handlers: hs}
}

// New opens every sink and returns a logger writing to all of them plus a
// close function for the opened files.
func New(sinks []Sink) (*slog.Logger, func() error, error) {
	var (
		handlers []slog.Handler
		files    []*os.File
	)
	closeAll := func() error {
		var errs []error
		for _, f := range files {
			errs = append(errs, f.Close())
		}
		return errors.Join(errs...)
	}

	for _, s := range sinks {
		level, err := ParseLevel(s.Level)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		var w io.Writer
		switch s.Kind {
		case "console", "":
			w = os.Stderr
		case "file":
			if s.Path == "" {
				_ = closeAll()
				return nil, nil, fmt.Errorf("file sink needs a path")
			}
			f, err := os.Create(s.Path)
			if err != nil {
				_ = closeAll()
				return nil, nil, fmt.Errorf("open log file: %w", err)
			}
			files = append(files, f)
			w = f
		default:
			_ = closeAll()
			return nil, nil, fmt.Errorf("unknown sink kind %q", s.Kind)
		}
		handlers = append(handlers, newHandler(w, level, s.JSON))
	}

	return slog.New(NewFanOut(handlers...)), closeAll, nil
}

func newHandler(w io.Writer, level slog.Level, json bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Discard is a logger for tests and tools that do not want output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
