package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ranked-engine/internal/clock"
	"ranked-engine/internal/domain"
	"ranked-engine/internal/rating"
	"ranked-engine/internal/repository"
	"ranked-engine/internal/season"

	"github.com/rs/zerolog"
)

// JoinRequest is what a player submits when entering the queue.
type JoinRequest struct {
	PlayerID  string   `json:"playerId"`
	Name      string   `json:"name"`
	GameMode  string   `json:"gameMode"`
	Region    string   `json:"region"`
	MapLiked  []string `json:"mapLiked,omitempty"`
	MapBanned []string `json:"mapBanned,omitempty"`
}

// Status reports a player's queue situation.
type Status struct {
	Queued                  bool               `json:"queued"`
	Entry                   *domain.QueueEntry `json:"entry,omitempty"`
	PenaltySecondsRemaining int                `json:"penaltySecondsRemaining,omitempty"`
}

// Manager enforces the one-entry-per-player invariant and the penalty
// timers in front of the queue documents.
type Manager struct {
	queue   *repository.QueueRepository
	ratings *repository.RatingRepository
	seasons *season.Service
	clock   clock.Clock
	logger  zerolog.Logger
}

func NewManager(queue *repository.QueueRepository, ratings *repository.RatingRepository, seasons *season.Service, clk clock.Clock, logger zerolog.Logger) *Manager {
	return &Manager{
		queue:   queue,
		ratings: ratings,
		seasons: seasons,
		clock:   clk,
		logger:  logger.With().Str("component", "queue").Logger(),
	}
}

// Join puts the player in the queue. Fails with ErrAlreadyQueued if an
// entry exists and with ErrActivePenalty while a penalty timer runs.
// First-time players get a fresh rating record at the initial elo.
func (m *Manager) Join(ctx context.Context, req JoinRequest) (domain.QueueEntry, error) {
	now := m.clock.Now()

	if penalty, ok, err := m.queue.GetPenalty(ctx, req.PlayerID); err != nil {
		return domain.QueueEntry{}, err
	} else if ok && now.Before(penalty.EndsAt) {
		return domain.QueueEntry{}, &domain.PenaltyError{
			Remaining: penalty.EndsAt.Sub(now),
			Reason:    penalty.Reason,
		}
	}

	playerRating, err := m.loadOrCreateRating(ctx, req, now)
	if err != nil {
		return domain.QueueEntry{}, err
	}

	entry := domain.QueueEntry{
		PlayerID:  req.PlayerID,
		Elo:       playerRating.Elo,
		Rank:      playerRating.Rank,
		JoinedAt:  now,
		GameMode:  req.GameMode,
		Region:    req.Region,
		MapLiked:  req.MapLiked,
		MapBanned: req.MapBanned,
	}
	if err := m.queue.Create(ctx, entry); err != nil {
		return domain.QueueEntry{}, err
	}

	m.logger.Info().
		Str("player_id", req.PlayerID).
		Int("elo", entry.Elo).
		Str("region", entry.Region).
		Msg("player joined queue")
	return entry, nil
}

func (m *Manager) loadOrCreateRating(ctx context.Context, req JoinRequest, now time.Time) (domain.PlayerRating, error) {
	playerRating, err := m.seasons.LoadCurrent(ctx, req.PlayerID)
	if errors.Is(err, domain.ErrPlayerNotFound) {
		playerRating = rating.NewRating(req.PlayerID, req.Name, m.seasons.CurrentNumber(), now)
	} else if err != nil {
		return domain.PlayerRating{}, fmt.Errorf("load rating: %w", err)
	}

	// Map preferences live on the rating record and refresh on every
	// join.
	playerRating.MapPreference = domain.MapPreference{Liked: req.MapLiked, Banned: req.MapBanned}
	if req.Name != "" {
		playerRating.Name = req.Name
	}
	if err := m.ratings.Save(ctx, playerRating); err != nil {
		return domain.PlayerRating{}, fmt.Errorf("save rating: %w", err)
	}
	return playerRating, nil
}

// Leave withdraws the player. Idempotent: leaving while not queued
// succeeds.
func (m *Manager) Leave(ctx context.Context, playerID string) error {
	if err := m.queue.Remove(ctx, playerID); err != nil {
		return err
	}
	m.logger.Info().Str("player_id", playerID).Msg("player left queue")
	return nil
}

// Penalize blocks the player from queueing for the given duration. A
// single penaltyEndsAt per player; a new penalty replaces the old one.
func (m *Manager) Penalize(ctx context.Context, playerID, reason string, d time.Duration) error {
	penalty := domain.Penalty{
		PlayerID: playerID,
		Reason:   reason,
		EndsAt:   m.clock.Now().Add(d),
	}
	if err := m.queue.SetPenalty(ctx, penalty); err != nil {
		return err
	}
	m.logger.Info().
		Str("player_id", playerID).
		Str("reason", reason).
		Dur("duration", d).
		Msg("queue penalty applied")
	return nil
}

// Status reports whether the player is queued and any running penalty.
func (m *Manager) Status(ctx context.Context, playerID string) (Status, error) {
	var st Status
	entry, queued, err := m.queue.Get(ctx, playerID)
	if err != nil {
		return st, err
	}
	st.Queued = queued
	if queued {
		st.Entry = &entry
	}

	if penalty, ok, err := m.queue.GetPenalty(ctx, playerID); err != nil {
		return st, err
	} else if ok {
		if remaining := penalty.EndsAt.Sub(m.clock.Now()); remaining > 0 {
			st.PenaltySecondsRemaining = int(remaining.Seconds())
		}
	}
	return st, nil
}
