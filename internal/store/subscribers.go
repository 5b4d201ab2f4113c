package store

import (
	"strings"
	"sync"
)

// subscribers is the in-process listener registry shared by the store
// implementations. Firebase-style subscribe semantics: callbacks fire
// after a write lands, keyed by path prefix.
type subscribers struct {
	mu   sync.Mutex
	next int
	subs map[int]subscription
}

type subscription struct {
	prefix string
	fn     func(Event)
}

func newSubscribers() *subscribers {
	return &subscribers{subs: make(map[int]subscription)}
}

func (s *subscribers) add(prefix string, fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = subscription{prefix: prefix, fn: fn}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *subscribers) notify(ev Event) {
	s.mu.Lock()
	var matched []func(Event)
	for _, sub := range s.subs {
		if strings.HasPrefix(ev.Doc.Path, sub.prefix) {
			matched = append(matched, sub.fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range matched {
		go fn(ev)
	}
}
