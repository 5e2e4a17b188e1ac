package internal

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventBus stores recent progress events and fans them out to live subscribers.
type EventBus struct {
	mu          sync.RWMutex
	nextSeq     int64
	maxEvents   int
	events      []ProgressEvent
	subscribers map[int]chan ProgressEvent
	nextSubID   int
	dropped     atomic.Int64
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &EventBus{
		maxEvents:   maxEvents,
		events:      make([]ProgressEvent, 0, maxEvents),
		subscribers: make(map[int]chan ProgressEvent),
	}
}

// Publish appends one event, assigns sequence and timestamp, and delivers it
// to subscribers. A subscriber whose buffer is full misses the event.
func (b *EventBus) Publish(event ProgressEvent) ProgressEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]ProgressEvent(nil), b.events[trim:]...)
	}

	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}

	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []ProgressEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]ProgressEvent, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

// LastSeq returns the sequence number of the newest event, or 0.
func (b *EventBus) LastSeq() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextSeq
}

// Subscribe registers a live listener. The returned cancel func must be called
// to release it; the channel is closed afterwards.
func (b *EventBus) Subscribe(buffer int) (<-chan ProgressEvent, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan ProgressEvent, buffer)

	b.mu.Lock()
	id := b.nextSubID
	b.nextSubID++
	b.subscribers[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of live listeners.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped returns how many deliveries were skipped because a subscriber was slow.
func (b *EventBus) Dropped() int64 {
	return b.dropped.Load()
}
