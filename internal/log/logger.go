package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Option adjusts logger construction.
type Option func(*options)

type options struct {
	out  io.Writer
	json bool
}

// WithOutput sends log lines to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithFormat selects "json" output; anything else keeps the console writer.
func WithFormat(format string) Option {
	return func(o *options) { o.json = strings.EqualFold(format, "json") }
}

// New builds a zerolog logger with the given level string (debug, info, warn, error).
func New(level string, opts ...Option) *zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	o := options{out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	var output io.Writer = o.out
	if !o.json {
		output = zerolog.ConsoleWriter{
			Out:        o.out,
			TimeFormat: time.RFC3339,
		}
	}

	logger := zerolog.New(output).Level(parseLevel(level)).With().Timestamp().Logger()
	return &logger
}

// Component returns a child logger tagged with the component name.
func Component(logger *zerolog.Logger, name string) *zerolog.Logger {
	if logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	child := logger.With().Str("component", name).Logger()
	return &child
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
