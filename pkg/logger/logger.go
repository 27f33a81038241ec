package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var defaultLogger *logrus.Logger

func init() {
	defaultLogger = logrus.New()

	isTest := os.Getenv("GO_ENV") == "test"

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		if isTest {
			level = "silent"
		} else {
			level = "info"
		}
	}

	if level == "silent" {
		defaultLogger.SetOutput(os.NewFile(0, os.DevNull))
	} else {
		parsed, err := logrus.ParseLevel(strings.ToLower(level))
		if err != nil {
			parsed = logrus.InfoLevel
		}
		defaultLogger.SetLevel(parsed)
		defaultLogger.SetOutput(os.Stdout)
	}

	defaultLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// GetLogger returns the shared logger instance.
func GetLogger() *logrus.Logger {
	return defaultLogger
}

// WithName creates a child logger tagged with a component name.
func WithName(name string) *logrus.Entry {
	return defaultLogger.WithField("name", name)
}

// WithFields creates a logger with additional fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return defaultLogger.WithFields(fields)
}

// SetLevel sets the logging level.
func SetLevel(level logrus.Level) {
	defaultLogger.SetLevel(level)
}

// Configure applies a string level from configuration. Test mode and the
// "silent" level both route output to /dev/null.
func Configure(level string) error {
	if os.Getenv("GO_ENV") == "test" || level == "silent" {
		defaultLogger.SetOutput(os.NewFile(0, os.DevNull))
		return nil
	}

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}
	defaultLogger.SetLevel(parsed)
	return nil
}
