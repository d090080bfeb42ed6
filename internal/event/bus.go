// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

package event

import (
	"log/slog"
	"sync"
)

const subscriberBuffer = 100

// Bus distributes events to subscribers by kind.
type Bus struct {
	mu   sync.RWMutex
	subs map[Kind][]chan Event
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Kind][]chan Event)}
}

// Subscribe creates a channel receiving events of the given kind. Use
// KindAny to receive everything.
func (b *Bus) Subscribe(kind Kind) chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	b.subs[kind] = append(b.subs[kind], ch)
	return ch
}

// Unsubscribe removes and closes a channel previously returned by
// Subscribe with the same kind.
func (b *Bus) Unsubscribe(kind Kind, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[kind]
	for i, sub := range subs {
		if sub == ch {
			b.subs[kind] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish delivers the event to subscribers of its kind and of KindAny.
// Sends never block: a full subscriber buffer drops the event with a
// warning.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[ev.Kind] {
		b.send(ch, ev)
	}
	for _, ch := range b.subs[KindAny] {
		b.send(ch, ev)
	}
}

func (b *Bus) send(ch chan Event, ev Event) {
	select {
	case ch <- ev:
	default:
		slog.Warn("event dropped: subscriber buffer full",
			"kind", string(ev.Kind),
			"event_id", ev.ID.String(),
		)
	}
}
