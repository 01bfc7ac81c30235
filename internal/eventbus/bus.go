package eventbus

import (
	"context"
	"sync"

	"pkt.systems/pslog"
)

// Bus fans values out to per-key subscribers. Each persisted-store
// write is published under its slot key; subscribers receive only the
// key they registered for, so the filtering lives at the subscription
// boundary instead of inside every handler.
type Bus[K comparable, V any] struct {
	mu    sync.Mutex
	subs  map[K]map[chan V]struct{}
	all   map[chan V]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New[K comparable, V any](logger pslog.Logger) *Bus[K, V] {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus[K, V]{
		subs:  make(map[K]map[chan V]struct{}),
		all:   make(map[chan V]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for one key and returns a channel
// plus a cancel that closes it.
func (b *Bus[K, V]) Subscribe(key K) (<-chan V, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan V, b.depth)
	b.mu.Lock()
	keySubs := b.subs[key]
	if keySubs == nil {
		keySubs = make(map[chan V]struct{})
		b.subs[key] = keySubs
	}
	keySubs[ch] = struct{}{}
	count := len(keySubs)
	b.mu.Unlock()
	if b.log != nil {
		b.log.With("key", key).Debug("eventbus subscribe", "subs", count)
	}
	return ch, func() {
		b.mu.Lock()
		if subs := b.subs[key]; subs != nil {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(b.subs, key)
			}
		}
		b.mu.Unlock()
		close(ch)
		if b.log != nil {
			b.log.With("key", key).Debug("eventbus unsubscribe")
		}
	}
}

// SubscribeAll registers a subscriber that receives every published
// value regardless of key.
func (b *Bus[K, V]) SubscribeAll() (<-chan V, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan V, b.depth)
	b.mu.Lock()
	b.all[ch] = struct{}{}
	b.mu.Unlock()
	return ch, func() {
		b.mu.Lock()
		delete(b.all, ch)
		b.mu.Unlock()
		close(ch)
	}
}

// Publish delivers the value to the key's subscribers and to all-key
// subscribers. Publish never blocks; full subscriber channels drop.
func (b *Bus[K, V]) Publish(key K, value V) {
	if b == nil {
		return
	}
	b.mu.Lock()
	keySubs := b.subs[key]
	subs := make([]chan V, 0, len(keySubs)+len(b.all))
	for sub := range keySubs {
		subs = append(subs, sub)
	}
	for sub := range b.all {
		subs = append(subs, sub)
	}
	b.mu.Unlock()
	if len(subs) == 0 {
		return
	}
	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- value:
		default:
			dropped++
		}
	}
	if dropped > 0 && b.log != nil {
		b.log.With("key", key).Trace("eventbus dropped", "count", dropped)
	}
}
