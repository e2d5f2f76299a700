// Package logging provides structured logging for the aestar CLI.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with the console formatting aestar uses on stderr
// or, when --logfile is given, a plain file writer.
type Logger struct {
	zlog   zerolog.Logger
	output io.Writer
}

// New creates a logger writing formatted console output to w.
func New(w io.Writer) *Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
	}
	return &Logger{
		zlog:   zerolog.New(output).With().Timestamp().Logger(),
		output: output,
	}
}

// NewDefault creates a logger writing to stderr, the default before flags
// are parsed and before --logfile is applied.
func NewDefault() *Logger {
	return New(os.Stderr)
}

// NewFile creates a logger writing unadorned JSON lines to a log file,
// matching the original do_backup()'s logging.basicConfig(filename=logfile).
func NewFile(f *os.File) *Logger {
	return &Logger{
		zlog:   zerolog.New(f).With().Timestamp().Logger(),
		output: f,
	}
}

func (l *Logger) Info() *zerolog.Event  { return l.zlog.Info() }
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }
func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }
func (l *Logger) Warn() *zerolog.Event  { return l.zlog.Warn() }
func (l *Logger) Fatal() *zerolog.Event { return l.zlog.Fatal() }

// With creates a child logger context with additional fields.
func (l *Logger) With() zerolog.Context { return l.zlog.With() }

// Output returns the underlying writer.
func (l *Logger) Output() io.Writer { return l.output }

func (l *Logger) Debugf(format string, args ...interface{}) { l.zlog.Debug().Msgf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.zlog.Info().Msgf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.zlog.Error().Msgf(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.zlog.Warn().Msgf(format, args...) }

// SetGlobalLevel sets the process-wide minimum log level. -v maps to Info,
// -vv maps to Debug, matching the teacher's verbose/debug flag pair.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}
