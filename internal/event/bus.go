package event

import (
	"log/slog"
	"sync"
	"time"
)

// Type identifies a category of event.
type Type string

// Known event types.
const (
	RunStarted    Type = "run.started"
	RunCompleted  Type = "run.completed"
	ScanCompleted Type = "scan.completed"
	DirSkipped    Type = "scan.dir_skipped"
	FileUpdated   Type = "file.updated"
	FileFailed    Type = "file.failed"
	MediaOrphaned Type = "media.orphaned"
)

// Event represents something that happened during a reconciliation run.
type Event struct {
	Type      Type           `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Handler is a function that processes an event.
type Handler func(Event)

// Bus is an in-process event bus. Dispatch is synchronous and inline with
// Publish: the reconciliation pass is a single sequential loop, and inline
// dispatch keeps log output in traversal order across repeated runs.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Type][]Handler
	logger *slog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[Type][]Handler),
		logger: logger,
	}
}

// Subscribe registers a handler for the given event type.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[t] = append(b.subs[t], h)
}

// Publish dispatches an event to all subscribers before returning.
// A panicking handler is isolated and does not stop the others.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := b.subs[e.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event handler panicked", "type", string(e.Type), "panic", r)
				}
			}()
			h(e)
		}()
	}
}
