package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_FiltersBySender(t *testing.T) {
	bus := NewBus()

	var feedEvents, allEvents []Event
	bus.Subscribe(SenderName, func(e Event) { feedEvents = append(feedEvents, e) })
	bus.Subscribe("", func(e Event) { allEvents = append(allEvents, e) })

	bus.Publish(Event{Sender: SenderName, Kind: PageReady, Page: 3})
	bus.Publish(Event{Sender: "offers-ui", Kind: PageRequested, Page: 1})

	assert.Len(t, feedEvents, 1)
	assert.Equal(t, 3, feedEvents[0].Page)
	assert.Len(t, allEvents, 2)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	var order []string
	unsubA := bus.Subscribe(SenderName, func(Event) { order = append(order, "a") })
	bus.Subscribe(SenderName, func(Event) { order = append(order, "b") })

	bus.Publish(Event{Sender: SenderName})
	unsubA()
	unsubA()
	bus.Publish(Event{Sender: SenderName})

	assert.Equal(t, []string{"a", "b", "b"}, order)
}

func TestBus_SubscriberMayUnsubscribeDuringPublish(t *testing.T) {
	bus := NewBus()

	calls := 0
	var unsub func()
	unsub = bus.Subscribe("", func(Event) {
		calls++
		unsub()
	})

	bus.Publish(Event{})
	bus.Publish(Event{})
	assert.Equal(t, 1, calls)
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "requested", PageRequested.String())
	assert.Equal(t, "ready", PageReady.String())
	assert.Equal(t, "failed", PageFailed.String())
	assert.Equal(t, "unknown", EventKind(42).String())
}
