package store

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryCreateConflicts(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Create(ctx, "queue/p1", []byte(`{}`)); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := m.Create(ctx, "queue/p1", []byte(`{}`)); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("second create = %v, want ErrAlreadyExists", err)
	}
}

func TestMemoryVersionedWrites(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Set(ctx, "queue/p1", []byte(`a`)); err != nil {
		t.Fatal(err)
	}
	doc, err := m.Get(ctx, "queue/p1")
	if err != nil || doc.Version != 1 {
		t.Fatalf("get after set: %v, version %d", err, doc.Version)
	}

	if err := m.Update(ctx, "queue/p1", doc.Version, []byte(`b`)); err != nil {
		t.Fatalf("update with current version: %v", err)
	}
	if err := m.Update(ctx, "queue/p1", doc.Version, []byte(`c`)); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("update with stale version = %v, want ErrVersionConflict", err)
	}

	// Compare-and-delete with the stale version must also refuse.
	if err := m.RemoveVersion(ctx, "queue/p1", doc.Version); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("remove with stale version = %v, want ErrVersionConflict", err)
	}
	if err := m.RemoveVersion(ctx, "queue/p1", doc.Version+1); err != nil {
		t.Fatalf("remove with current version: %v", err)
	}
	if _, err := m.Get(ctx, "queue/p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after remove = %v, want ErrNotFound", err)
	}
}

func TestMemoryListByPrefix(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	paths := []string{"queue/p1", "queue/p2", "matches/m1"}
	for _, p := range paths {
		if err := m.Set(ctx, p, []byte(`{}`)); err != nil {
			t.Fatal(err)
		}
	}

	docs, err := m.List(ctx, "queue/")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("list queue/ returned %d docs, want 2", len(docs))
	}
}

func TestMemorySubscribe(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	events := make(chan Event, 4)
	unsub := m.Subscribe("queue/", func(ev Event) { events <- ev })
	defer unsub()

	if err := m.Set(ctx, "queue/p1", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	ev := <-events
	if ev.Type != EventPut || ev.Doc.Path != "queue/p1" {
		t.Fatalf("unexpected event %+v", ev)
	}

	if err := m.Set(ctx, "matches/m1", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if err := m.Remove(ctx, "queue/p1"); err != nil {
		t.Fatal(err)
	}
	ev = <-events
	if ev.Type != EventDelete || ev.Doc.Path != "queue/p1" {
		t.Fatalf("unexpected event %+v (matches/ write must not reach queue/ subscriber)", ev)
	}
}
