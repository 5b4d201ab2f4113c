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
	matchPrefix   = "matches/"
	archivePrefix = "matchArchive/"
)

// ArchivedMatch is a finished or aborted match with its result (if any)
// attached.
type ArchivedMatch struct {
	Match  domain.Match        `json:"match"`
	Result *domain.MatchResult `json:"result,omitempty"`
}

type MatchRepository struct {
	store  store.Store
	logger zerolog.Logger
}

func NewMatchRepository(st store.Store, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{store: st, logger: logger.With().Str("component", "match_repo").Logger()}
}

func matchPath(matchID string) string   { return matchPrefix + matchID }
func archivePath(matchID string) string { return archivePrefix + matchID }

func (r *MatchRepository) Create(ctx context.Context, m domain.Match) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal match: %w", err)
	}
	if err := r.store.Create(ctx, matchPath(m.MatchID), data); err != nil {
		return fmt.Errorf("create match: %w", err)
	}
	return nil
}

func (r *MatchRepository) Get(ctx context.Context, matchID string) (domain.Match, error) {
	doc, err := r.store.Get(ctx, matchPath(matchID))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	if err != nil {
		return domain.Match{}, fmt.Errorf("get match: %w", err)
	}
	var m domain.Match
	if err := json.Unmarshal(doc.Data, &m); err != nil {
		return domain.Match{}, fmt.Errorf("unmarshal match: %w", err)
	}
	return m, nil
}

func (r *MatchRepository) Save(ctx context.Context, m domain.Match) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal match: %w", err)
	}
	if err := r.store.Set(ctx, matchPath(m.MatchID), data); err != nil {
		return fmt.Errorf("save match: %w", err)
	}
	return nil
}

// Archive moves the match out of the live path, attaching the result
// when one exists. Archiving twice overwrites the same archive document,
// so replays are harmless.
func (r *MatchRepository) Archive(ctx context.Context, m domain.Match, result *domain.MatchResult) error {
	data, err := json.Marshal(ArchivedMatch{Match: m, Result: result})
	if err != nil {
		return fmt.Errorf("marshal archived match: %w", err)
	}
	if err := r.store.Set(ctx, archivePath(m.MatchID), data); err != nil {
		return fmt.Errorf("archive match: %w", err)
	}
	if err := r.store.Remove(ctx, matchPath(m.MatchID)); err != nil {
		return fmt.Errorf("remove live match: %w", err)
	}
	return nil
}

func (r *MatchRepository) GetArchived(ctx context.Context, matchID string) (ArchivedMatch, error) {
	doc, err := r.store.Get(ctx, archivePath(matchID))
	if errors.Is(err, store.ErrNotFound) {
		return ArchivedMatch{}, domain.ErrMatchNotFound
	}
	if err != nil {
		return ArchivedMatch{}, fmt.Errorf("get archived match: %w", err)
	}
	var archived ArchivedMatch
	if err := json.Unmarshal(doc.Data, &archived); err != nil {
		return ArchivedMatch{}, fmt.Errorf("unmarshal archived match: %w", err)
	}
	return archived, nil
}
