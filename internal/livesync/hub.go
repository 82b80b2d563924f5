// Package livesync fans out collection changes to list screens that are
// currently open.
package livesync

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/retailerp-backend/pkg/enums"
)

const defaultBuffer = 32

// Event is one change notification on a collection.
type Event struct {
	Type       string           `json:"type"`
	Collection enums.Collection `json:"collection"`
	ID         string           `json:"id"`
	Data       any              `json:"data,omitempty"`
	At         time.Time        `json:"at"`
	// Origin is the instance that produced the event. It keeps relayed
	// events from echoing back.
	Origin string `json:"origin,omitempty"`
}

// Broadcaster is what services use to announce changes.
type Broadcaster interface {
	Broadcast(ctx context.Context, collection enums.Collection, event Event)
}

type dropRecorder interface {
	IncDropped(collection string)
}

// Hub is an in-process publish/subscribe registry keyed by collection.
type Hub struct {
	mu      sync.RWMutex
	subs    map[enums.Collection]map[*Subscription]struct{}
	buffer  int
	metrics dropRecorder
	closed  bool
}

// NewHub builds a hub whose subscribers buffer up to buffer events.
func NewHub(buffer int, metrics dropRecorder) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:    make(map[enums.Collection]map[*Subscription]struct{}),
		buffer:  buffer,
		metrics: metrics,
	}
}

// Subscription receives the events of one collection until closed.
type Subscription struct {
	hub        *Hub
	collection enums.Collection
	ch         chan Event
	once       sync.Once
}

// C is closed when the subscription or the hub is closed.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Collection reports what the subscription listens to.
func (s *Subscription) Collection() enums.Collection {
	return s.collection
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.ch)
	})
}

// Subscribe registers a listener. On a closed hub the returned subscription
// is already closed.
func (h *Hub) Subscribe(collection enums.Collection) *Subscription {
	sub := &Subscription{hub: h, collection: collection, ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	set, ok := h.subs[collection]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[collection] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Publish delivers event to every subscriber of collection without blocking.
// Subscribers with a full buffer miss the event. It returns how many
// subscribers received it.
func (h *Hub) Publish(collection enums.Collection, event Event) int {
	if event.Collection == "" {
		event.Collection = collection
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return 0
	}
	delivered := 0
	for sub := range h.subs[collection] {
		select {
		case sub.ch <- event:
			delivered++
		default:
			if h.metrics != nil {
				h.metrics.IncDropped(string(collection))
			}
		}
	}
	return delivered
}

// Broadcast implements Broadcaster for single-instance deployments.
func (h *Hub) Broadcast(_ context.Context, collection enums.Collection, event Event) {
	h.Publish(collection, event)
}

// Subscribers reports the live subscriber count of collection.
func (h *Hub) Subscribers(collection enums.Collection) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[collection])
}

// Close ends every subscription. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	var all []*Subscription
	for _, set := range h.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	h.subs = make(map[enums.Collection]map[*Subscription]struct{})
	h.mu.Unlock()

	for _, sub := range all {
		sub.Close()
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[sub.collection]
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.collection)
	}
}
