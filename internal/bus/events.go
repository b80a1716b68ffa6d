package bus

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"permgate/internal/domain"
)

// Event is one permission-related occurrence published on the bus.
type Event struct {
	Type      string             // e.g. "decision.denied", "permissions.updated"
	Source    string             // originating component
	Entry     *domain.AuditEntry // audit entry behind the event, if any
	Payload   map[string]any     // event-specific data
	Timestamp time.Time
}

// EventHandler is a callback for events.
type EventHandler func(Event)

// EventBus is a topic-based publish/subscribe bus with a bounded replay history.
// Handlers run synchronously; a panicking handler is logged and skipped.
type EventBus struct {
	handlers   map[string][]namedHandler
	mu         sync.RWMutex
	logger     *slog.Logger
	history    []Event
	maxHistory int
	nextID     int
}

type namedHandler struct {
	ID      string
	Handler EventHandler
}

// NewEventBus creates a bus keeping up to maxHistory events for Replay.
// A non-positive maxHistory defaults to 1000.
func NewEventBus(logger *slog.Logger, maxHistory int) *EventBus {
	if maxHistory <= 0 {
		maxHistory = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		handlers:   make(map[string][]namedHandler),
		logger:     logger,
		maxHistory: maxHistory,
	}
}

// On registers a handler for the given event type.
// Use "*" to listen to all events. Returns the handler ID for unsubscription.
func (eb *EventBus) On(eventType string, handler EventHandler) string {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.nextID++
	id := eventType + "-" + strconv.Itoa(eb.nextID)
	eb.handlers[eventType] = append(eb.handlers[eventType], namedHandler{ID: id, Handler: handler})
	return id
}

// Off removes a handler by its ID.
func (eb *EventBus) Off(eventType, handlerID string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	handlers := eb.handlers[eventType]
	for i, h := range handlers {
		if h.ID == handlerID {
			eb.handlers[eventType] = append(handlers[:i:i], handlers[i+1:]...)
			return
		}
	}
}

// Emit publishes an event to all registered handlers in registration order.
func (eb *EventBus) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eb.mu.Lock()
	if len(eb.history) >= eb.maxHistory {
		eb.history = eb.history[1:]
	}
	eb.history = append(eb.history, event)
	handlers := make([]namedHandler, 0, len(eb.handlers[event.Type])+len(eb.handlers["*"]))
	handlers = append(handlers, eb.handlers[event.Type]...)
	handlers = append(handlers, eb.handlers["*"]...)
	eb.mu.Unlock()

	for _, h := range handlers {
		func(nh namedHandler) {
			defer func() {
				if r := recover(); r != nil {
					eb.logger.Error("event handler panic", "event", event.Type, "handler", nh.ID, "panic", r)
				}
			}()
			nh.Handler(event)
		}(h)
	}
}

// EmitAsync publishes an event to all registered handlers asynchronously.
func (eb *EventBus) EmitAsync(event Event) {
	go eb.Emit(event)
}

// Replay returns historical events matching the given type since the given time.
// Use "*" for all event types.
func (eb *EventBus) Replay(eventType string, since time.Time) []Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	var result []Event
	for _, e := range eb.history {
		if e.Timestamp.Before(since) {
			continue
		}
		if eventType == "*" || e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

// HistoryLen returns the current number of events in the history buffer.
func (eb *EventBus) HistoryLen() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.history)
}

// --- Well-known event types ---
const (
	EventDecisionAllowed    = "decision.allowed"
	EventDecisionDenied     = "decision.denied"
	EventPermissionsUpdated = "permissions.updated"
	EventIsolationChanged   = "isolation.changed"
	EventAuditCleared       = "audit.cleared"
	EventPolicyReloaded     = "policy.reloaded"
	EventPolicyReloadFailed = "policy.reload_failed"
)

// DecisionEvent wraps an audit entry of a check into an event.
func DecisionEvent(source string, entry domain.AuditEntry) Event {
	typ := EventDecisionAllowed
	if !entry.Result.Allowed {
		typ = EventDecisionDenied
	}
	return Event{
		Type:      typ,
		Source:    source,
		Entry:     &entry,
		Timestamp: entry.Timestamp,
		Payload: map[string]any{
			"type":     string(entry.Request.Type),
			"resource": entry.Request.Resource,
		},
	}
}
