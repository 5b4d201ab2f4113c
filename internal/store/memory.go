package store

import (
	"context"
	"strings"
	"sync"
)

// Memory is a map-backed Store with the same conditional-write
// semantics as the sqlite implementation. Used by tests and useful for
// running the service without a database file.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]Document
	subs *subscribers

	// FailReads simulates a transient outage on read paths.
	FailReads error
}

func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]Document),
		subs: newSubscribers(),
	}
}

func (m *Memory) Get(_ context.Context, path string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailReads != nil {
		return Document{}, m.FailReads
	}
	doc, ok := m.docs[path]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (m *Memory) Create(_ context.Context, path string, data []byte) error {
	m.mu.Lock()
	if _, ok := m.docs[path]; ok {
		m.mu.Unlock()
		return ErrAlreadyExists
	}
	doc := Document{Path: path, Data: append([]byte(nil), data...), Version: 1}
	m.docs[path] = doc
	m.mu.Unlock()

	m.subs.notify(Event{Type: EventPut, Doc: doc})
	return nil
}

func (m *Memory) Set(_ context.Context, path string, data []byte) error {
	m.mu.Lock()
	doc := Document{Path: path, Data: append([]byte(nil), data...), Version: 1}
	if prev, ok := m.docs[path]; ok {
		doc.Version = prev.Version + 1
	}
	m.docs[path] = doc
	m.mu.Unlock()

	m.subs.notify(Event{Type: EventPut, Doc: doc})
	return nil
}

func (m *Memory) Update(_ context.Context, path string, version int64, data []byte) error {
	m.mu.Lock()
	prev, ok := m.docs[path]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if prev.Version != version {
		m.mu.Unlock()
		return ErrVersionConflict
	}
	doc := Document{Path: path, Data: append([]byte(nil), data...), Version: version + 1}
	m.docs[path] = doc
	m.mu.Unlock()

	m.subs.notify(Event{Type: EventPut, Doc: doc})
	return nil
}

func (m *Memory) Remove(_ context.Context, path string) error {
	m.mu.Lock()
	_, ok := m.docs[path]
	delete(m.docs, path)
	m.mu.Unlock()

	if ok {
		m.subs.notify(Event{Type: EventDelete, Doc: Document{Path: path}})
	}
	return nil
}

func (m *Memory) RemoveVersion(_ context.Context, path string, version int64) error {
	m.mu.Lock()
	prev, ok := m.docs[path]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if prev.Version != version {
		m.mu.Unlock()
		return ErrVersionConflict
	}
	delete(m.docs, path)
	m.mu.Unlock()

	m.subs.notify(Event{Type: EventDelete, Doc: Document{Path: path, Version: version}})
	return nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailReads != nil {
		return nil, m.FailReads
	}
	var docs []Document
	for path, doc := range m.docs {
		if strings.HasPrefix(path, prefix) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (m *Memory) Subscribe(prefix string, fn func(Event)) func() {
	return m.subs.add(prefix, fn)
}
