// Package logging builds the process logger: colored tint output in
// development, JSON in production, optionally fanned out to a rolling file.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Level      slog.Level
	Production bool
	File       string // rolling JSON log file; empty disables it
	MaxSizeMB  int
	Backups    int
	Out        io.Writer // console destination, os.Stdout when nil
}

// New returns the logger and a closer for the log file. The closer is
// never nil.
func New(opts Options) (*slog.Logger, io.Closer) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	var console slog.Handler
	if opts.Production {
		console = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: opts.Level})
	} else {
		console = tint.NewHandler(out, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.TimeOnly,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if s, ok := a.Value.Any().(string); ok && s == "" {
					return slog.Attr{}
				}
				return a
			},
		})
	}
	if opts.File == "" {
		return slog.New(console), nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    orDefault(opts.MaxSizeMB, 50),
		MaxBackups: orDefault(opts.Backups, 5),
		Compress:   true,
	}
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: opts.Level})
	return slog.New(Fanout(console, fileHandler)), file
}

func orDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Fanout returns a handler that passes every record to each of handlers.
func Fanout(handlers ...slog.Handler) slog.Handler {
	return fanout(handlers)
}

type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
