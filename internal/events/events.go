// Package events provides the event bus the controller publishes state
// changes on. Any presentation layer (shell, GUI, tests) can subscribe.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ofs-tools/ofs-client/internal/constants"
)

// EventType names a kind of event.
type EventType string

const (
	EventViewChanged     EventType = "view_changed"
	EventSessionChanged  EventType = "session_changed"
	EventOperationFailed EventType = "operation_failed"

	// Navigation and listing events are declared in the state package
	// alongside the containers that publish them.
)

// Event is implemented by everything published on the bus.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent carries the type and time shared by all events.
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// NewBaseEvent stamps an event of the given type with the current time.
func NewBaseEvent(t EventType) BaseEvent {
	return BaseEvent{EventType: t, Time: time.Now()}
}

// ViewChangedEvent is published when the controller switches views.
type ViewChangedEvent struct {
	BaseEvent
	From string
	To   string
}

// SessionChangedEvent is published on login and logout.
// Username and Role are empty once the session has been cleared.
type SessionChangedEvent struct {
	BaseEvent
	Authenticated bool
	Username      string
	Role          string
}

// OperationFailedEvent carries the message of a failed remote operation.
type OperationFailedEvent struct {
	BaseEvent
	Operation string
	Message   string
}

// anyEvent keys subscribers that receive every event type.
const anyEvent EventType = ""

// EventBus fans events out to buffered subscriber channels. Publishing
// never blocks: an event that does not fit a subscriber's buffer is counted
// as dropped for that subscriber.
type EventBus struct {
	mu      sync.RWMutex
	subs    map[EventType][]chan Event
	buffer  int
	closed  bool
	dropped atomic.Int64
}

// NewEventBus creates a bus whose subscriber channels hold bufferSize
// events. Out-of-range sizes are clamped to the configured bounds.
func NewEventBus(bufferSize int) *EventBus {
	switch {
	case bufferSize <= 0:
		bufferSize = constants.EventBusDefaultBuffer
	case bufferSize > constants.EventBusMaxBuffer:
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subs:   make(map[EventType][]chan Event),
		buffer: bufferSize,
	}
}

func (eb *EventBus) subscribe(key EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}
	ch := make(chan Event, eb.buffer)
	eb.subs[key] = append(eb.subs[key], ch)
	return ch
}

// Subscribe returns a channel receiving events of one type. After Close the
// returned channel is already closed.
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	return eb.subscribe(eventType)
}

// SubscribeAll returns a channel receiving every event.
func (eb *EventBus) SubscribeAll() <-chan Event {
	return eb.subscribe(anyEvent)
}

// Publish delivers event to its type's subscribers and to the catch-all
// subscribers.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}
	eb.deliver(eb.subs[event.Type()], event)
	eb.deliver(eb.subs[anyEvent], event)
}

func (eb *EventBus) deliver(chans []chan Event, event Event) {
	for _, ch := range chans {
		select {
		case ch <- event:
		default:
			eb.dropped.Add(1)
		}
	}
}

// Close closes every subscriber channel. Later publishes are ignored.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true
	for _, chans := range eb.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
}

// PublishOperationFailed publishes an OperationFailedEvent for err. A nil
// err publishes nothing.
func (eb *EventBus) PublishOperationFailed(operation string, err error) {
	if err == nil {
		return
	}
	eb.Publish(&OperationFailedEvent{
		BaseEvent: NewBaseEvent(EventOperationFailed),
		Operation: operation,
		Message:   err.Error(),
	})
}

// Unsubscribe detaches ch from eventType. The channel is not closed.
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	chans := eb.subs[eventType]
	for i, c := range chans {
		if c == ch {
			eb.subs[eventType] = append(chans[:i], chans[i+1:]...)
			return
		}
	}
}

// GetDroppedEventCount returns how many deliveries were dropped on full
// buffers since the last reset.
func (eb *EventBus) GetDroppedEventCount() int64 {
	return eb.dropped.Load()
}

// ResetDroppedEventCount zeroes the drop counter and returns its old value.
func (eb *EventBus) ResetDroppedEventCount() int64 {
	return eb.dropped.Swap(0)
}
