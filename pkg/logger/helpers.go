package logger

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// LogFetch logs the outcome of a single request to the replay server
func LogFetch(l Logger, url string, statusCode int, durationMs float64, err error) {
	fields := map[string]interface{}{
		"url":         url,
		"status_code": statusCode,
		"duration_ms": durationMs,
	}

	switch {
	case err != nil:
		l.WithError(err).WarnWithFields("Request failed", fields)
	case statusCode >= 200 && statusCode < 300:
		l.DebugWithFields("Request completed", fields)
	default:
		l.WarnWithFields("Request returned non-2xx status", fields)
	}
}

// LogDiscovery logs the result of one discovery source tick
func LogDiscovery(l Logger, source string, found int, failures int) {
	fields := map[string]interface{}{
		"source":   source,
		"found":    found,
		"failures": failures,
	}
	if failures > 0 {
		l.WarnWithFields("Discovery finished with failures", fields)
		return
	}
	l.InfoWithFields("Discovery finished", fields)
}

// LogStoreStats logs a summary of the store contents
func LogStoreStats(l Logger, total, unrated, sizeBytes int64, perFormat map[string]int64) {
	fields := map[string]interface{}{
		"total":   total,
		"unrated": unrated,
		"size":    humanize.Bytes(uint64(max(sizeBytes, 0))),
	}
	for format, n := range perFormat {
		fields["format."+format] = n
	}
	l.InfoWithFields("Store stats", fields)
}

// LogComponentStart logs when a component starts
func LogComponentStart(component string, config map[string]interface{}) {
	l := GetLogger().WithField("component", component)
	if len(config) > 0 {
		l = l.WithFields(config)
	}
	l.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(component string, reason string) {
	GetLogger().WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
