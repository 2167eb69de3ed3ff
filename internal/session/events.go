package session

// Event represents a controller lifecycle event for operational observers
// (logging, tests). This is distinct from the per-run stream consumed by the
// client; see RunEvent.
type Event struct {
	Name   string
	RunID  string
	Fields map[string]any
}

// Publisher receives lifecycle events. Implementations should be lightweight
// and non-blocking; Publish must not panic.
type Publisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
