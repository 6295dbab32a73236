// Package logging wraps a concrete logger behind a small interface so the
// rest of the module never imports logrus directly.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface every component depends on.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	// With returns a derived logger carrying the given structured fields.
	With(fields Fields) Logger
}

// Fields are structured key-value pairs attached to a log line.
type Fields map[string]interface{}

type logrusLogger struct {
	entry *logrus.Entry
}

// New builds the default logrus-backed logger used across the module.
func New(component string) Logger {
	return NewWithFilter(component, "info")
}

// NewWithFilter builds a logger honoring a config-supplied level filter
// (e.g. "debug", "info", "warn"), falling back to info on an empty or
// unrecognized value.
func NewWithFilter(component, filter string) Logger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(filter)
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)
	return &logrusLogger{entry: base.WithField("component", component)}
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusLogger) With(fields Fields) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// Noop is a logger that discards everything; useful in unit tests.
func Noop() Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.PanicLevel)
	return &logrusLogger{entry: l.WithField("component", "noop")}
}
