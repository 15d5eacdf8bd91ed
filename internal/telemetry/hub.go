// Package telemetry broadcasts control-plane change events to
// in-process subscribers. Publishing never blocks the configuration
// path: a subscriber that cannot keep up loses events rather than
// stalling a hardware operation.
package telemetry

import (
	"sync"
	"time"
)

// EventType classifies a control-plane change.
type EventType string

const (
	EventSubdevChanged   EventType = "subdevChanged"
	EventTickRateChanged EventType = "tickRateChanged"
	EventSampRateChanged EventType = "sampRateChanged"
	EventRadiosSynced    EventType = "radiosSynced"
	EventStreamCreated   EventType = "streamCreated"
	EventStreamReleased  EventType = "streamReleased"
	EventConfigFault     EventType = "configFault"
)

// Event is one broadcast record.
type Event struct {
	Type      EventType      `json:"type"`
	Mboard    int            `json:"mboard"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"ts"`
}

// Hub fans events out to subscribers.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber. The returned cancel function
// removes the subscription and closes the channel; it is safe to call
// more than once.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber that has buffer space.
func (h *Hub) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Stop closes all subscriber channels; later Publish calls are
// dropped and later Subscribe calls return a closed channel.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
