// Package events is the in-process publish/subscribe bus that replaces the
// web client's untyped DOM events. Listeners receive the new state with the
// event instead of re-querying it.
package events

import (
	"sync"
	"time"
)

// Topic names a stream of payloads of type T.
type Topic[T any] struct {
	name string
}

// NewTopic declares a topic. Names must be unique per bus.
func NewTopic[T any](name string) Topic[T] {
	return Topic[T]{name: name}
}

func (t Topic[T]) Name() string {
	return t.name
}

// Envelope is what taps see: the topic name plus the typed payload.
type Envelope struct {
	Topic   string    `json:"topic"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

type subscriber struct {
	id uint64
	fn func(any)
}

// Bus delivers events synchronously, in subscription order, on the
// publisher's goroutine.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]subscriber
	taps   []subscriber
	now    func() time.Time
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[string][]subscriber),
		now:  time.Now,
	}
}

// Subscribe registers fn for topic t and returns a func that removes it.
func Subscribe[T any](b *Bus, t Topic[T], fn func(T)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[t.name] = append(b.subs[t.name], subscriber{
		id: id,
		fn: func(payload any) { fn(payload.(T)) },
	})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subs[t.name] = remove(b.subs[t.name], id)
	}
}

// Publish delivers payload to every subscriber of t, then to every tap.
func Publish[T any](b *Bus, t Topic[T], payload T) {
	b.mu.RLock()
	subs := append([]subscriber(nil), b.subs[t.name]...)
	taps := append([]subscriber(nil), b.taps...)
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(payload)
	}
	if len(taps) == 0 {
		return
	}
	env := Envelope{Topic: t.name, Payload: payload, At: b.now()}
	for _, s := range taps {
		s.fn(env)
	}
}

// Tap registers fn for every published event regardless of topic.
func (b *Bus) Tap(fn func(Envelope)) (untap func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.taps = append(b.taps, subscriber{
		id: id,
		fn: func(payload any) { fn(payload.(Envelope)) },
	})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.taps = remove(b.taps, id)
	}
}

// SubscriberCount reports how many listeners topic t has.
func SubscriberCount[T any](b *Bus, t Topic[T]) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[t.name])
}

func remove(subs []subscriber, id uint64) []subscriber {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}
