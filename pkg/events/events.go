package events

import (
	"sync"
	"time"

	"github.com/engramhq/engram/pkg/types"
)

// ringSize bounds the in-memory replay buffer kept for UI/status queries.
const ringSize = 200

// Subscriber is a channel that receives indexing events.
type Subscriber chan *types.IndexingEvent

// Broker distributes indexing pipeline events to subscribers and retains a
// bounded ring of the most recent events for callers that query status
// rather than stream it.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *types.IndexingEvent
	stopCh      chan struct{}

	ringMu   sync.RWMutex
	ring     []*types.IndexingEvent
	ringHead int
}

// NewBroker creates a new event broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *types.IndexingEvent, 100),
		stopCh:      make(chan struct{}),
		ring:        make([]*types.IndexingEvent, 0, ringSize),
	}
}

// Start begins the broker's event distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker.
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns a channel.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish publishes an indexing event to all subscribers and appends it to
// the replay ring.
func (b *Broker) Publish(event *types.IndexingEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.appendRing(event)

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) appendRing(event *types.IndexingEvent) {
	b.ringMu.Lock()
	defer b.ringMu.Unlock()

	if len(b.ring) < ringSize {
		b.ring = append(b.ring, event)
		return
	}
	b.ring[b.ringHead] = event
	b.ringHead = (b.ringHead + 1) % ringSize
}

// Recent returns up to the last 200 published events in chronological order.
func (b *Broker) Recent() []*types.IndexingEvent {
	b.ringMu.RLock()
	defer b.ringMu.RUnlock()

	if len(b.ring) < ringSize {
		out := make([]*types.IndexingEvent, len(b.ring))
		copy(out, b.ring)
		return out
	}
	out := make([]*types.IndexingEvent, ringSize)
	copy(out, b.ring[b.ringHead:])
	copy(out[ringSize-b.ringHead:], b.ring[:b.ringHead])
	return out
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *types.IndexingEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
