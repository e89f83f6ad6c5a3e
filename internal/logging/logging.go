// Package logging configures the process-wide structured logger.
//
// Every line is a JSON object carrying timestamp, level, component and, where
// the caller supplies one, event_type, matching the structured events emitted
// by long-running burrow commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = "warn"

var base = newLogger(os.Stderr, logrus.WarnLevel)

func newLogger(out io.Writer, level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "message",
		},
	})
	return logger
}

// Configure sets the level and output of the shared logger.
// An empty level keeps DefaultLevel.
func Configure(level string, out io.Writer) error {
	if level == "" {
		level = DefaultLevel
	}

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	if out == nil {
		out = os.Stderr
	}
	base.SetOutput(out)
	base.SetLevel(parsed)
	return nil
}

// New returns a logger entry tagged with the given component.
func New(component string) *logrus.Entry {
	return base.WithField("component", component)
}

// Event returns an entry tagged with an event type, for lifecycle events that
// downstream tooling filters on.
func Event(log *logrus.Entry, eventType string) *logrus.Entry {
	return log.WithField("event_type", eventType)
}

// OrDiscard returns log, or a logger that drops everything when log is nil.
func OrDiscard(log *logrus.Entry) *logrus.Entry {
	if log != nil {
		return log
	}
	return logrus.NewEntry(newLogger(io.Discard, logrus.PanicLevel))
}
