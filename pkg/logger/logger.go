// Package logger provides context-aware structured logging for Chatooli
// using logrus. Handlers and the agent engine pass loggers through
// context so that request-scoped fields (session id, engine id) follow
// the work they describe.
package logger

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// G is a convenience alias for GetLogger.
	G = GetLogger
	// L is the global logger entry used as a fallback when no logger is found in context.
	L = logrus.NewEntry(newLogger())
)

type loggerKey struct{}

// WithLogger attaches a logger entry to the given context, making it retrievable via GetLogger.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	e := logger.WithContext(ctx)
	return context.WithValue(ctx, loggerKey{}, e)
}

// GetLogger retrieves the logger entry from the context. If no logger is found,
// it returns the global logger L with the context attached.
func GetLogger(ctx context.Context) *logrus.Entry {
	logger := ctx.Value(loggerKey{})
	if logger == nil {
		return L.WithContext(ctx)
	}
	return logger.(*logrus.Entry)
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	setFormat(l, "fmt")
	return l
}

func setFormat(logger *logrus.Logger, format string) {
	switch format {
	case "json":
		logger.Formatter = &logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "logLevel",
				logrus.FieldKeyMsg:   "message",
			},
			TimestampFormat: time.RFC3339Nano,
		}
	default:
		logger.Formatter = &logrus.TextFormatter{
			TimestampFormat: time.RFC3339Nano,
			FullTimestamp:   true,
		}
	}
}

// SetLogLevel sets the log level for the global logger.
func SetLogLevel(level string) error {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	L.Logger.SetLevel(logLevel)
	return nil
}

// SetLogFormat sets the log format for the global logger ("fmt" or "json").
func SetLogFormat(format string) {
	setFormat(L.Logger, format)
}

// SetLogOutput sets the output destination for the global logger.
func SetLogOutput(w io.Writer) {
	L.Logger.SetOutput(w)
}
