// Package mirror forwards ingested events to ClickHouse for long-horizon
// analytics, outside the dashboard's own query path. Writes never block the
// ingest request.
package mirror

import (
	"github.com/threatguard/threatguard/internal/event"
	"go.uber.org/zap"
)

// EventWriter is the interface for mirroring security events.
// Write must NEVER block the caller.
type EventWriter interface {
	Write(e *event.SecurityEvent)
	Close()
}

// LogWriter is the fallback EventWriter for local development.
// It logs mirrored events as structured JSON via zap.
type LogWriter struct {
	logger *zap.Logger
}

// NewLogWriter creates a LogWriter that outputs events to the given logger.
func NewLogWriter(logger *zap.Logger) *LogWriter {
	return &LogWriter{logger: logger}
}

func (w *LogWriter) Write(e *event.SecurityEvent) {
	w.logger.Info("security_event",
		zap.String("id", e.ID),
		zap.String("event_type", e.EventType),
		zap.String("ip_address", e.IPAddress),
		zap.String("endpoint", e.Endpoint),
		zap.String("attack_pattern", e.AttackPattern),
		zap.String("severity", string(e.Severity)),
		zap.Bool("blocked", e.Blocked),
		zap.Time("timestamp", e.Timestamp),
	)
}

func (w *LogWriter) Close() {}
