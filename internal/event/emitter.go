package event

import (
	"context"
	"sync"
)

// Names of the events the runtime pushes to the UI.
const (
	AnalyticsUpdate    = "analytics:update"
	BackupUpdate       = "backup:update"
	ConnectionsChanged = "connections:changed"
	TerminalData       = "terminal:data"
	TerminalExit       = "terminal:exit"
)

// Emitter pushes fire-and-forget notifications to the UI boundary.
// The app layer implements it by delegating to wailsRuntime.EventsEmit;
// services receive this interface instead of a wails context, which
// makes them independently testable with a MockEmitter.
type Emitter interface {
	Emit(ctx context.Context, event string, data any)
}

// MockEmitter is a test-friendly Emitter that records all calls.
// Safe for use from multiple goroutines (the analytics stream emits
// from its poll goroutines).
type MockEmitter struct {
	mu     sync.Mutex
	Events []Emitted
}

// Emitted holds a single recorded emission for test assertions.
type Emitted struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, Emitted{Event: event, Data: data})
}

// Recorded returns a snapshot of everything emitted so far.
func (m *MockEmitter) Recorded() []Emitted {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Emitted, len(m.Events))
	copy(out, m.Events)
	return out
}
