// Package audit records workflow executions without payloads. The no-payload
// rule is a hard invariant: entries never carry input text, rendered
// requests, or extracted field content.
package audit

import (
	"context"
	"encoding/json"

	"fieldbridge/pkg/models"
)

// Sink receives one audit entry per completed execution, plus lifecycle
// records at startup and shutdown.
type Sink interface {
	Record(ctx context.Context, entry models.AuditEntry) error
}

// Logger is the logging interface the log sink writes through.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// LogSink writes audit entries as JSON lines through the application logger.
type LogSink struct {
	logger Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Record writes one entry.
func (s *LogSink) Record(_ context.Context, entry models.AuditEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	s.logger.Info("audit " + string(line))
	return nil
}

// NopSink discards entries. Used in tests.
type NopSink struct{}

// Record discards the entry.
func (NopSink) Record(context.Context, models.AuditEntry) error { return nil }
