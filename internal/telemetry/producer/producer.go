// Package producer defines the interface for emitting telemetry events (e.g. to Kafka).
package producer

import (
	"location-history/internal/telemetry"
)

// Producer emits telemetry events. Callers use it best-effort: log and ignore errors.
// Emit may block briefly; call from a goroutine (telemetry.EmitAsync) if needed.
type Producer interface {
	telemetry.EventEmitter
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
