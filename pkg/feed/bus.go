package feed

import (
	"slices"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// SenderName tags every event published by the orchestrator.
const SenderName = "offers-feed"

// EventKind is the closed set of feed events.
type EventKind int

const (
	// PageRequested is published when a background document is created.
	PageRequested EventKind = iota
	// PageReady carries the content tree of a loaded page.
	PageReady
	// PageFailed is published when a page did not become ready.
	PageFailed
)

// String returns the event label.
func (k EventKind) String() string {
	switch k {
	case PageRequested:
		return "requested"
	case PageReady:
		return "ready"
	case PageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is one notification on the bus.
type Event struct {
	Sender string
	Kind   EventKind
	Page   int

	// Document is set for PageReady only. It is released once every
	// subscriber has returned; do not retain it.
	Document *goquery.Document
}

type subscription struct {
	id     int
	sender string
	fn     func(Event)
}

// Bus delivers events synchronously to subscribers filtered by sender.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn for events from sender. An empty sender receives
// every event. The returned func removes the subscription.
func (b *Bus) Subscribe(sender string, fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription{id: id, sender: sender, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.subs = slices.DeleteFunc(b.subs, func(s subscription) bool { return s.id == id })
		})
	}
}

// Publish calls every matching subscriber in subscription order and returns
// after the last one.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	matched := make([]func(Event), 0, len(b.subs))
	for _, s := range b.subs {
		if s.sender == "" || s.sender == e.Sender {
			matched = append(matched, s.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range matched {
		fn(e)
	}
}
