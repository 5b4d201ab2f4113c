package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ranked-engine/internal/domain"
	"ranked-engine/internal/store"

	"github.com/rs/zerolog"
)

const (
	queuePrefix   = "queue/"
	penaltyPrefix = "penalties/"
)

// ClaimedEntry pairs a queue entry with the document version it was
// read at, so the matchmaker can compare-and-delete without racing a
// concurrent leave.
type ClaimedEntry struct {
	Entry   domain.QueueEntry
	Version int64
}

type QueueRepository struct {
	store  store.Store
	logger zerolog.Logger
}

func NewQueueRepository(st store.Store, logger zerolog.Logger) *QueueRepository {
	return &QueueRepository{store: st, logger: logger.With().Str("component", "queue_repo").Logger()}
}

func queuePath(playerID string) string   { return queuePrefix + playerID }
func penaltyPath(playerID string) string { return penaltyPrefix + playerID }

// Create inserts the entry, enforcing the one-entry-per-player
// invariant at the store level.
func (r *QueueRepository) Create(ctx context.Context, entry domain.QueueEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal queue entry: %w", err)
	}
	err = r.store.Create(ctx, queuePath(entry.PlayerID), data)
	if errors.Is(err, store.ErrAlreadyExists) {
		return domain.ErrAlreadyQueued
	}
	if err != nil {
		return fmt.Errorf("create queue entry: %w", err)
	}
	return nil
}

// Restore puts an entry back unconditionally, used when a claimed group
// is released or an aborted match returns its players to the queue. A
// player who left in the meantime simply rejoins the pool; their entry
// is removable as usual.
func (r *QueueRepository) Restore(ctx context.Context, entry domain.QueueEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal queue entry: %w", err)
	}
	if err := r.store.Set(ctx, queuePath(entry.PlayerID), data); err != nil {
		return fmt.Errorf("restore queue entry: %w", err)
	}
	return nil
}

// Remove is idempotent: removing an absent entry succeeds.
func (r *QueueRepository) Remove(ctx context.Context, playerID string) error {
	if err := r.store.Remove(ctx, queuePath(playerID)); err != nil {
		return fmt.Errorf("remove queue entry: %w", err)
	}
	return nil
}

// Claim removes the entry only if it is still at the version it was
// listed at. store.ErrVersionConflict or store.ErrNotFound mean someone
// else (a leave, or another cycle) got there first.
func (r *QueueRepository) Claim(ctx context.Context, playerID string, version int64) error {
	return r.store.RemoveVersion(ctx, queuePath(playerID), version)
}

func (r *QueueRepository) Get(ctx context.Context, playerID string) (domain.QueueEntry, bool, error) {
	doc, err := r.store.Get(ctx, queuePath(playerID))
	if errors.Is(err, store.ErrNotFound) {
		return domain.QueueEntry{}, false, nil
	}
	if err != nil {
		return domain.QueueEntry{}, false, fmt.Errorf("get queue entry: %w", err)
	}
	var entry domain.QueueEntry
	if err := json.Unmarshal(doc.Data, &entry); err != nil {
		return domain.QueueEntry{}, false, fmt.Errorf("unmarshal queue entry: %w", err)
	}
	return entry, true, nil
}

func (r *QueueRepository) List(ctx context.Context) ([]ClaimedEntry, error) {
	docs, err := r.store.List(ctx, queuePrefix)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	entries := make([]ClaimedEntry, 0, len(docs))
	for _, doc := range docs {
		var entry domain.QueueEntry
		if err := json.Unmarshal(doc.Data, &entry); err != nil {
			r.logger.Warn().Err(err).Str("path", doc.Path).Msg("skipping malformed queue entry")
			continue
		}
		entries = append(entries, ClaimedEntry{Entry: entry, Version: doc.Version})
	}
	return entries, nil
}

func (r *QueueRepository) SetPenalty(ctx context.Context, p domain.Penalty) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal penalty: %w", err)
	}
	if err := r.store.Set(ctx, penaltyPath(p.PlayerID), data); err != nil {
		return fmt.Errorf("set penalty: %w", err)
	}
	return nil
}

func (r *QueueRepository) GetPenalty(ctx context.Context, playerID string) (domain.Penalty, bool, error) {
	doc, err := r.store.Get(ctx, penaltyPath(playerID))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Penalty{}, false, nil
	}
	if err != nil {
		return domain.Penalty{}, false, fmt.Errorf("get penalty: %w", err)
	}
	var p domain.Penalty
	if err := json.Unmarshal(doc.Data, &p); err != nil {
		return domain.Penalty{}, false, fmt.Errorf("unmarshal penalty: %w", err)
	}
	return p, true, nil
}
