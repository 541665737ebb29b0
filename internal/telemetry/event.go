// Package telemetry publishes lock lifecycle events onto a Redis pub/sub
// channel, batched to amortize network round trips the way the reference
// disruptor pipeline batches event-log writes to amortize fsync calls.
package telemetry

import "time"

// EventKind identifies which lock operation an Event describes.
type EventKind string

const (
	EventReadAcquired  EventKind = "read_acquired"
	EventReadReleased  EventKind = "read_released"
	EventWriteAcquired EventKind = "write_acquired"
	EventWriteReleased EventKind = "write_released"
	EventPoolExhausted EventKind = "pool_exhausted"
)

// Event is one lock lifecycle observation.
type Event struct {
	Kind      EventKind `json:"kind"`
	Algorithm string    `json:"algorithm"`
	Token     int64     `json:"token,omitempty"`
	At        time.Time `json:"at"`
}
