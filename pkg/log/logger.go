package log

// Logger receives stream events.
// Pass nil or NoopLogger to disable event capture.
type Logger interface {
	// Log records an event. Implementations must be safe for concurrent use:
	// partitions are encoded and decoded in parallel.
	Log(event Event)
}

// NoopLogger discards all events.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// OrNoop returns l, or NoopLogger when l is nil.
func OrNoop(l Logger) Logger {
	if l == nil {
		return NoopLogger{}
	}
	return l
}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}
