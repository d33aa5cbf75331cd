// Package logger provides the service's structured logging setup.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var global *logrus.Logger

// Init initializes the structured logger. logLevel falls back to
// LOG_LEVEL, then to a sensible default for the environment.
func Init(logLevel string, isDevelopment bool) *logrus.Logger {
	log := logrus.New()

	if logLevel == "" {
		logLevel = os.Getenv("LOG_LEVEL")
		if logLevel == "" {
			if isDevelopment {
				logLevel = "debug"
			} else {
				logLevel = "info"
			}
		}
	}

	if level, err := logrus.ParseLevel(strings.ToLower(logLevel)); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.WithField("invalid_level", logLevel).Warn("invalid LOG_LEVEL, using info")
	}

	if !isDevelopment || strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	log.SetOutput(os.Stdout)
	global = log
	return log
}

// Get returns the global logger, initializing it with defaults if
// nothing has called Init yet.
func Get() *logrus.Logger {
	if global == nil {
		return Init("info", false)
	}
	return global
}

// WithService tags every entry with the owning service name.
func WithService(name string) *logrus.Entry {
	return Get().WithField("service", name)
}

// WithRun tags a logger with a schedule-run identifier, for tracing a
// single solve end to end across the builder, solver and extractor.
func WithRun(runID string) *logrus.Entry {
	return Get().WithField("run_id", runID)
}

// WithRequestContext tags a logger with an HTTP request identifier and
// the schedule run it triggered.
func WithRequestContext(requestID, runID string) *logrus.Entry {
	return Get().WithFields(logrus.Fields{
		"request_id": requestID,
		"run_id":     runID,
	})
}
