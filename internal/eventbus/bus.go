// Package eventbus is an in-memory fanout for asynchronous notices such as
// fired scheduled tasks and expired timers.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event is a small in-memory signal.
//
// Publish never blocks. Each subscriber owns a buffered channel; when it is
// full the event is dropped for that subscriber and counted.
type Event struct {
	Type string
	Time time.Time
	Data any
}

type Bus interface {
	Publish(e Event)
	// Subscribe returns a channel receiving events whose Type is in types,
	// or every event when types is empty.
	Subscribe(buffer int, types ...string) (ch <-chan Event, unsubscribe func())
	Dropped() uint64
}

func New() Bus {
	return &memBus{subs: map[uint64]*sub{}}
}

type sub struct {
	ch     chan Event
	filter map[string]struct{}
}

func (s *sub) wants(typ string) bool {
	if len(s.filter) == 0 {
		return true
	}
	_, ok := s.filter[typ]
	return ok
}

type memBus struct {
	mu      sync.RWMutex
	subs    map[uint64]*sub
	seq     atomic.Uint64
	dropped atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Sends happen under the read lock so unsubscribe cannot close a channel
	// mid-send.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if !s.wants(e.Type) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *memBus) Subscribe(buffer int, types ...string) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	s := &sub{ch: make(chan Event, buffer)}
	if len(types) > 0 {
		s.filter = make(map[string]struct{}, len(types))
		for _, t := range types {
			s.filter[t] = struct{}{}
		}
	}
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = s
	b.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(s.ch)
			b.mu.Unlock()
		})
	}
}

func (b *memBus) Dropped() uint64 { return b.dropped.Load() }
