package actorflow

import (
	"sync"
	"time"
)

// EventType names a lifecycle event of a model.
type EventType string

const (
	EventModelStart  EventType = "model_start"
	EventModelStop   EventType = "model_stop"
	EventActorStart  EventType = "actor_start"
	EventActorStop   EventType = "actor_stop"
	EventClientError EventType = "client_error"
)

// Event represents one lifecycle event during a run
type Event struct {
	Type      EventType
	Model     string
	Actor     string
	ActorID   string
	Cycle     int64
	Stage     string // read, update or write, for client errors
	Err       error
	Timestamp time.Time
}

// EventHandler processes events. Handlers are called synchronously from
// actor goroutines and must be safe for concurrent use.
type EventHandler interface {
	HandleEvent(event Event)
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(Event)

// HandleEvent calls f.
func (f EventHandlerFunc) HandleEvent(e Event) { f(e) }

// streamer fans events out to the handlers of one model.
type streamer struct {
	model    string
	handlers []EventHandler
}

func newStreamer(model string, handlers []EventHandler) *streamer {
	return &streamer{model: model, handlers: handlers}
}

func (s *streamer) emit(e Event) {
	if s == nil || len(s.handlers) == 0 {
		return
	}
	e.Model = s.model
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	for _, h := range s.handlers {
		h.HandleEvent(e)
	}
}

// CountingHandler counts events per type and per actor.
type CountingHandler struct {
	mu       sync.RWMutex
	byType   map[EventType]int
	byActor  map[string]int
	failures []error
}

// NewCountingHandler creates an empty CountingHandler.
func NewCountingHandler() *CountingHandler {
	return &CountingHandler{
		byType:  make(map[EventType]int),
		byActor: make(map[string]int),
	}
}

// HandleEvent records e.
func (h *CountingHandler) HandleEvent(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.byType[e.Type]++
	if e.Actor != "" {
		h.byActor[e.Actor]++
	}
	if e.Type == EventActorStop && e.Err != nil {
		h.failures = append(h.failures, e.Err)
	}
}

// Count returns how many events of type t were seen.
func (h *CountingHandler) Count(t EventType) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.byType[t]
}

// ActorEvents returns how many events concerned the named actor.
func (h *CountingHandler) ActorEvents(name string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.byActor[name]
}

// Failures returns the errors of actors that stopped with one.
func (h *CountingHandler) Failures() []error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]error(nil), h.failures...)
}
