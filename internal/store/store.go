package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrAlreadyExists   = errors.New("document already exists")
	ErrVersionConflict = errors.New("document version conflict")
)

// Document is one value in the hierarchical key space, e.g.
// queue/{playerId} or playerRatings/{playerId}. Version increments on
// every write and backs the compare-and-swap operations.
type Document struct {
	Path    string
	Data    []byte
	Version int64
}

// EventType distinguishes subscription callbacks.
type EventType string

const (
	EventPut    EventType = "put"
	EventDelete EventType = "delete"
)

// Event is delivered to subscribers after a successful write.
type Event struct {
	Type EventType
	Doc  Document
}

// Store is the async document store the ranked core runs against. The
// backing implementation is opaque to callers; there are no multi-key
// transactions, only per-document conditional writes.
type Store interface {
	// Get returns the document at path or ErrNotFound.
	Get(ctx context.Context, path string) (Document, error)

	// Create writes a new document, failing with ErrAlreadyExists if
	// the path is occupied.
	Create(ctx context.Context, path string, data []byte) error

	// Set writes unconditionally, creating or replacing.
	Set(ctx context.Context, path string, data []byte) error

	// Update replaces the document only if its version still matches;
	// ErrVersionConflict otherwise.
	Update(ctx context.Context, path string, version int64, data []byte) error

	// Remove deletes unconditionally. Removing a missing path is not an
	// error.
	Remove(ctx context.Context, path string) error

	// RemoveVersion deletes only if the version still matches
	// (compare-and-delete); ErrVersionConflict if it moved,
	// ErrNotFound if it is gone.
	RemoveVersion(ctx context.Context, path string, version int64) error

	// List returns all documents whose path starts with prefix.
	List(ctx context.Context, prefix string) ([]Document, error)

	// Subscribe registers a callback for writes under prefix and
	// returns an unsubscribe func. Callbacks run on their own
	// goroutine and must not block forever.
	Subscribe(prefix string, fn func(Event)) (unsubscribe func())
}
