package log

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// Store log fields in context.
type (
	contextLoggerKey struct{}
)

var stdEntry = logrus.NewEntry(logrus.StandardLogger())

// Setup configures the standard logger for console output. Colors are forced
// so levels stay highlighted when stdout is piped through journald or cron.
func Setup(out io.Writer, debug bool) {
	logrus.SetOutput(out)
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// WithFields creates a new logger with merged fields if
// there is already a logger in context.
func WithFields(ctx context.Context, fields map[string]interface{}) context.Context {
	// Get logger from context and repack it with new fields.
	return context.WithValue(ctx, contextLoggerKey{}, GetLogger(ctx).WithFields(fields))
}

// WithLogger returns a new context with the provided logger. Use in
// combination with logger.WithField(s) for great effect.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, contextLoggerKey{}, logger)
}

// GetLogger retrieves the current logger from the context. If no logger is
// available, the standard logger is returned.
func GetLogger(ctx context.Context) *logrus.Entry {
	logger := ctx.Value(contextLoggerKey{})
	if logger == nil {
		return stdEntry
	}
	return logger.(*logrus.Entry)
}

// Fields return fields from logger in context.
func Fields(ctx context.Context) map[string]interface{} {
	return GetLogger(ctx).Data
}
