package telemetry

import (
	"context"

	"authgate/backend/internal/audit/domain"
)

// EventEmitter ships security events to an external sink (OTel logs, Kafka).
// Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.SecurityEvent) error
}

// Emitters fans one event out to several emitters. Nil entries are skipped.
type Emitters []EventEmitter

// Emit sends event to every emitter and returns the first error.
func (es Emitters) Emit(ctx context.Context, event *domain.SecurityEvent) error {
	var first error
	for _, e := range es {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
