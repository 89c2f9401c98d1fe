package events

import (
	"log"
	"sync"
)

// subscriberBuffer bounds each subscriber's delivery queue. A subscriber that
// falls this far behind starts silently missing events; delivery is
// at-most-once and the publisher never blocks.
const subscriberBuffer = 64

// Subscriber is one live listener's delivery queue. It only receives events
// published after Subscribe returned; there is no history replay.
type Subscriber struct {
	sessionID string
	ch        chan Event
	closeOnce sync.Once
}

// SessionID returns the session this subscriber is bound to.
func (s *Subscriber) SessionID() string { return s.sessionID }

// Events returns the delivery queue. The channel is closed when the
// subscriber is unsubscribed or its session is torn down.
func (s *Subscriber) Events() <-chan Event { return s.ch }

func (s *Subscriber) close() {
	s.closeOnce.Do(func() { close(s.ch) })
}

// Bus fans session events out to any number of live subscribers. Queues are
// per-connection and never shared across sessions.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscriber]struct{}
	logger *log.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *log.Logger) *Bus {
	return &Bus{
		subs:   make(map[string]map[*Subscriber]struct{}),
		logger: logger,
	}
}

// Subscribe registers a fresh delivery queue for the session. The caller must
// Unsubscribe when the connection goes away or the queue leaks.
func (b *Bus) Subscribe(sessionID string) *Subscriber {
	sub := &Subscriber{
		sessionID: sessionID,
		ch:        make(chan Event, subscriberBuffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[*Subscriber]struct{})
	}
	b.subs[sessionID][sub] = struct{}{}
	return sub
}

// Unsubscribe removes the queue and closes it. Idempotent.
func (b *Bus) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	if set, ok := b.subs[sub.sessionID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, sub.sessionID)
		}
	}
	b.mu.Unlock()

	sub.close()
}

// Publish delivers ev to every subscriber currently registered for
// ev.SessionID. Delivery is non-blocking per subscriber: a full queue means
// that subscriber misses this event.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[ev.SessionID] {
		select {
		case sub.ch <- ev:
		default:
			b.logger.Printf("events: dropping %s for slow subscriber on session %s", ev.Type, ev.SessionID)
		}
	}
}

// CloseSession tears down every subscriber for the session, closing their
// queues so pull loops terminate. Used when a session is deleted or expired.
func (b *Bus) CloseSession(sessionID string) {
	b.mu.Lock()
	set := b.subs[sessionID]
	delete(b.subs, sessionID)
	b.mu.Unlock()

	for sub := range set {
		sub.close()
	}
}

// SubscriberCount reports how many live queues a session has.
func (b *Bus) SubscriberCount(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[sessionID])
}
