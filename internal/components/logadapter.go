package components

import (
	"github.com/sirupsen/logrus"
)

// LogrusAdapter exposes a logrus logger as the EventLogger capability so the
// logging batteries can benchmark a real structured logger.
type LogrusAdapter struct {
	logger *logrus.Logger
	base   logrus.Fields
}

// NewLogrusAdapter wraps an existing logrus logger.
func NewLogrusAdapter(logger *logrus.Logger) *LogrusAdapter {
	return &LogrusAdapter{logger: logger}
}

// Info logs at info level with structured fields.
func (a *LogrusAdapter) Info(message string, fields Fields) {
	a.entry(fields).Info(message)
}

// Warn logs at warn level with structured fields.
func (a *LogrusAdapter) Warn(message string, fields Fields) {
	a.entry(fields).Warn(message)
}

// WithContext runs fn with a logger that carries the given fields on every entry.
func (a *LogrusAdapter) WithContext(fields Fields, fn func(EventLogger)) {
	scoped := &LogrusAdapter{logger: a.logger, base: mergeFields(a.base, fields)}
	fn(scoped)
}

func (a *LogrusAdapter) entry(fields Fields) *logrus.Entry {
	merged := mergeFields(a.base, fields)
	if len(merged) == 0 {
		return logrus.NewEntry(a.logger)
	}
	return a.logger.WithFields(merged)
}

func mergeFields(base logrus.Fields, fields Fields) logrus.Fields {
	if len(base) == 0 && len(fields) == 0 {
		return nil
	}
	merged := make(logrus.Fields, len(base)+len(fields))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}
