// Package interfaces defines core domain contracts.
//
//nolint:revive // Package name 'interfaces' is intentional for domain layer
package interfaces

import "sync"

// Logger is the structured event sink used by the pipeline
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field represents a structured log field
type Field struct {
	Key   string
	Value interface{}
}

// F creates a new Field (convenience function)
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// NoOpLogger is a logger that does nothing (useful for tests)
type NoOpLogger struct{}

// Debug does nothing (no-op implementation)
func (n *NoOpLogger) Debug(_ string, _ ...Field) {}

// Info does nothing (no-op implementation)
func (n *NoOpLogger) Info(_ string, _ ...Field) {}

// Warn does nothing (no-op implementation)
func (n *NoOpLogger) Warn(_ string, _ ...Field) {}

// Error does nothing (no-op implementation)
func (n *NoOpLogger) Error(_ string, _ ...Field) {}

// Entry is one event captured by RecordingLogger
type Entry struct {
	Level   string
	Message string
	Fields  []Field
}

// Value returns the value of the named field, or nil
func (e Entry) Value(key string) interface{} {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

// RecordingLogger keeps every event in memory. Safe for concurrent use.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []Entry
}

// Debug records a debug-level event
func (r *RecordingLogger) Debug(msg string, fields ...Field) { r.record("DEBUG", msg, fields) }

// Info records an info-level event
func (r *RecordingLogger) Info(msg string, fields ...Field) { r.record("INFO", msg, fields) }

// Warn records a warning event
func (r *RecordingLogger) Warn(msg string, fields ...Field) { r.record("WARN", msg, fields) }

// Error records an error event
func (r *RecordingLogger) Error(msg string, fields ...Field) { r.record("ERROR", msg, fields) }

// Entries returns a copy of the recorded events
func (r *RecordingLogger) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Find returns the recorded events with the given message
func (r *RecordingLogger) Find(msg string) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Message == msg {
			out = append(out, e)
		}
	}
	return out
}

func (r *RecordingLogger) record(level, msg string, fields []Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Message: msg, Fields: fields})
}
