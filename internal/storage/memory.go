package storage

import (
	"context"
	"slices"
	"sync"
	"time"
)

// memStore keeps reminders in a map. fileStore reuses it as its in-memory
// image.
type memStore struct {
	mu     sync.Mutex
	items  map[int]Reminder
	last   int
	closed bool
}

func newMemory() *memStore {
	return &memStore{items: map[int]Reminder{}}
}

func (s *memStore) AddReminder(ctx context.Context, text string) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(text)
}

func (s *memStore) addLocked(text string) (Reminder, error) {
	if s.closed {
		return Reminder{}, ErrClosed
	}
	r, err := newReminder(s.last+1, text, time.Now())
	if err != nil {
		return Reminder{}, err
	}
	s.last = r.ID
	s.items[r.ID] = r
	return r, nil
}

func (s *memStore) ListReminders(ctx context.Context) ([]Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.sortedLocked(), nil
}

func (s *memStore) sortedLocked() []Reminder {
	out := make([]Reminder, 0, len(s.items))
	for _, r := range s.items {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Reminder) int { return a.ID - b.ID })
	return out
}

func (s *memStore) DeleteReminder(ctx context.Context, id int) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(id)
}

func (s *memStore) deleteLocked(id int) (Reminder, error) {
	if s.closed {
		return Reminder{}, ErrClosed
	}
	r, ok := s.items[id]
	if !ok {
		return Reminder{}, ErrNotFound
	}
	delete(s.items, id)
	return r, nil
}

func (s *memStore) DeleteReminderByText(ctx context.Context, ref string) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteTextLocked(ref)
}

func (s *memStore) deleteTextLocked(ref string) (Reminder, error) {
	if s.closed {
		return Reminder{}, ErrClosed
	}
	r, ok := matchText(s.sortedLocked(), ref)
	if !ok {
		return Reminder{}, ErrNotFound
	}
	delete(s.items, r.ID)
	return r, nil
}

func (s *memStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
