// Package logging provides structured logging for the shell and one-shot commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ofs-tools/ofs-client/internal/constants"
)

// Logger wraps zerolog with the console format used across the client.
type Logger struct {
	zlog      zerolog.Logger
	component string
	output    io.Writer
	file      *lumberjack.Logger
}

// NewLogger creates a console logger for the named component.
// A nil out writes to stderr; stdout is reserved for command output.
func NewLogger(component string, out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}
	l := &Logger{component: component, output: out}
	l.rebuild()
	return l
}

// NewDefaultCLILogger creates the logger used by the cli package.
func NewDefaultCLILogger() *Logger {
	return NewLogger("cli", nil)
}

// NewNopLogger returns a logger that discards everything. Used as the
// fallback when a component is constructed without one.
func NewNopLogger() *Logger {
	return &Logger{zlog: zerolog.Nop(), output: io.Discard}
}

// EnableFile tees log entries into a rotating log file.
// Rotation follows the daemon defaults: 10 MB per file, 5 backups, 30 days.
func (l *Logger) EnableFile(path string) {
	if path == "" {
		return
	}
	l.file = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    constants.LogMaxSizeMB,
		MaxBackups: constants.LogMaxBackups,
		MaxAge:     constants.LogMaxAgeDays,
		Compress:   true,
	}
	l.rebuild()
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Named returns a child logger for another component sharing the same sinks.
func (l *Logger) Named(component string) *Logger {
	if l == nil {
		return NewNopLogger()
	}
	child := *l
	child.component = component
	child.rebuild()
	return &child
}

func (l *Logger) rebuild() {
	console := zerolog.ConsoleWriter{
		Out:        l.output,
		TimeFormat: "15:04:05",
	}
	var w io.Writer = console
	if l.file != nil {
		// File gets JSON lines, console gets the human format
		w = zerolog.MultiLevelWriter(console, l.file)
	}
	ctx := zerolog.New(w).With().Timestamp()
	if l.component != "" {
		ctx = ctx.Str("component", l.component)
	}
	l.zlog = ctx.Logger()
}

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// Infof logs an info message with printf-style formatting.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.zlog.Info().Msgf(format, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.zlog.Warn().Msgf(format, args...)
}

// ParseLevel accepts the level names used in the [logging] section.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// SetGlobalLevel sets the global log level.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

func init() {
	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Configure global logger
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	})
}
