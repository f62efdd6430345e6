// Package events provides a lightweight pub/sub bus for session lifecycle
// observability. The presentation layer and metrics listeners subscribe;
// the session stage machine publishes.
package events

import "sync"

// Listener is a function that handles events.
type Listener func(*Event)

// Bus distributes session events to listeners.
type Bus struct {
	mu              sync.RWMutex
	listeners       map[EventType][]Listener
	globalListeners []Listener
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		listeners: make(map[EventType][]Listener),
	}
}

// Subscribe registers a listener for a specific event type.
func (b *Bus) Subscribe(eventType EventType, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventType] = append(b.listeners[eventType], listener)
}

// SubscribeAll registers a listener for every event type.
func (b *Bus) SubscribeAll(listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.globalListeners = append(b.globalListeners, listener)
}

// Publish delivers an event to all registered listeners asynchronously.
// Listener panics are swallowed so a faulty observer cannot take down the
// session control loop.
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	specific := make([]Listener, len(b.listeners[event.Type]))
	copy(specific, b.listeners[event.Type])
	global := make([]Listener, len(b.globalListeners))
	copy(global, b.globalListeners)
	b.mu.RUnlock()

	go func() {
		for _, listener := range specific {
			safeInvoke(listener, event)
		}
		for _, listener := range global {
			safeInvoke(listener, event)
		}
	}()
}

// Clear removes all listeners (primarily for tests).
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = make(map[EventType][]Listener)
	b.globalListeners = nil
}

func safeInvoke(listener Listener, event *Event) {
	defer func() { _ = recover() }()
	listener(event)
}
