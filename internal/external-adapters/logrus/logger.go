// Package logrus adapts github.com/sirupsen/logrus to the domain Logger.
package logrus

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ochairo/triagedl/internal/domain/interfaces"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures the logger
type Options struct {
	// Level is one of debug, info, warn, error. Default: info
	Level string

	// Format is text or json. Default: text
	Format string

	// Output defaults to os.Stderr
	Output io.Writer
}

// Logger implements interfaces.Logger on top of a logrus logger
type Logger struct {
	entry *logrus.Entry
}

var _ interfaces.Logger = (*Logger)(nil)

// New creates a Logger
func New(opts Options) (*Logger, error) {
	l := logrus.New()

	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	l.SetOutput(opts.Output)

	level := opts.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	l.SetLevel(lvl)

	switch strings.ToLower(opts.Format) {
	case "", FormatText:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case FormatJSON:
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}

	return &Logger{entry: logrus.NewEntry(l)}, nil
}

// With returns a logger that adds fields to every event
func (l *Logger) With(fields ...interfaces.Field) *Logger {
	return &Logger{entry: l.entry.WithFields(toFields(fields))}
}

// Debug logs debug-level messages
func (l *Logger) Debug(msg string, fields ...interfaces.Field) {
	l.entry.WithFields(toFields(fields)).Debug(msg)
}

// Info logs informational messages
func (l *Logger) Info(msg string, fields ...interfaces.Field) {
	l.entry.WithFields(toFields(fields)).Info(msg)
}

// Warn logs warning messages
func (l *Logger) Warn(msg string, fields ...interfaces.Field) {
	l.entry.WithFields(toFields(fields)).Warn(msg)
}

// Error logs error messages
func (l *Logger) Error(msg string, fields ...interfaces.Field) {
	l.entry.WithFields(toFields(fields)).Error(msg)
}

func toFields(fields []interfaces.Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}
