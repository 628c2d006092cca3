// Package logger builds the process slog.Logger: a tinted console handler
// and, optionally, a rotated JSON log file.
package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Environment names understood by New.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type options struct {
	level      slog.Level
	levelSet   bool
	console    io.Writer
	noColor    bool
	logToFile  bool
	logFile    string
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
}

type Option func(*options)

// WithLevel sets the minimum level for every sink.
func WithLevel(level slog.Level) Option {
	return func(o *options) {
		o.level = level
		o.levelSet = true
	}
}

func WithLogToFile(enabled bool) Option {
	return func(o *options) {
		o.logToFile = enabled
	}
}

func WithLogFile(path string) Option {
	return func(o *options) {
		o.logFile = path
	}
}

// WithConsole replaces stderr as the console sink. Colour is disabled unless
// the writer is a terminal.
func WithConsole(w io.Writer) Option {
	return func(o *options) {
		o.console = w
	}
}

// New returns a logger for the given environment. Development logs at debug
// level, everything else at info, unless WithLevel says otherwise.
func New(env string, opts ...Option) *slog.Logger {
	o := &options{
		level:      slog.LevelInfo,
		console:    os.Stderr,
		logFile:    "logs/pokedex-api.log",
		maxSizeMB:  50,
		maxBackups: 3,
		maxAgeDays: 28,
	}
	for _, opt := range opts {
		opt(o)
	}
	if !o.levelSet && env == EnvDevelopment {
		o.level = slog.LevelDebug
	}

	o.noColor = true
	if f, ok := o.console.(*os.File); ok {
		o.noColor = !term.IsTerminal(int(f.Fd()))
	}

	handlers := []slog.Handler{
		tint.NewHandler(o.console, &tint.Options{
			Level:      o.level,
			TimeFormat: time.TimeOnly,
			NoColor:    o.noColor,
		}),
	}

	if o.logToFile && o.logFile != "" {
		handlers = append(handlers, slog.NewJSONHandler(&lumberjack.Logger{
			Filename:   o.logFile,
			MaxSize:    o.maxSizeMB,
			MaxBackups: o.maxBackups,
			MaxAge:     o.maxAgeDays,
			Compress:   true,
		}, &slog.HandlerOptions{Level: o.level}))
	}

	if len(handlers) == 1 {
		return slog.New(handlers[0])
	}
	return slog.New(fanout(handlers))
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
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
