package service

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples editors from their transport
// ─────────────────────────────────────────────────────────────

const (
	EventSaveStatus  = "save:status"
	EventUploaded    = "block:uploaded"
	EventUploadError = "block:upload-error"
	EventPageDeleted = "page:deleted"
)

// EventEmitter delivers editor events to whoever is listening.
// Emit may be called from timer goroutines.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// LogEmitter writes every event to a logger at debug level.
type LogEmitter struct {
	Logger *log.Logger
}

func (l LogEmitter) Emit(_ context.Context, event string, data any) {
	l.Logger.Debug("event", "name", event, "data", data)
}

// MultiEmitter fans an event out to several emitters in order.
type MultiEmitter []EventEmitter

func (m MultiEmitter) Emit(ctx context.Context, event string, data any) {
	for _, e := range m {
		e.Emit(ctx, event, data)
	}
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Named returns the recorded events called name, in order.
func (m *MockEmitter) Named(name string) []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EmittedEvent
	for _, e := range m.Events {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of recorded events.
func (m *MockEmitter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Events)
}
