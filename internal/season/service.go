package season

import (
	"context"
	"fmt"

	"ranked-engine/internal/clock"
	"ranked-engine/internal/domain"
	"ranked-engine/internal/notifier"

	"github.com/rs/zerolog"
)

// Ratings is the slice of the rating repository the season service
// needs.
type Ratings interface {
	Get(ctx context.Context, playerID string) (domain.PlayerRating, error)
	Save(ctx context.Context, rating domain.PlayerRating) error
}

// Service loads rating records and transparently applies the lazy
// season rollover: every player transitions independently the first
// time their record is touched after a boundary.
type Service struct {
	ratings  Ratings
	notifier notifier.Notifier
	clock    clock.Clock
	logger   zerolog.Logger
}

func NewService(ratings Ratings, n notifier.Notifier, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		ratings:  ratings,
		notifier: n,
		clock:    clk,
		logger:   logger.With().Str("component", "season").Logger(),
	}
}

// CurrentNumber is the active season number right now.
func (s *Service) CurrentNumber() int {
	return Current(s.clock.Now()).Number
}

// LoadCurrent returns the player's rating for the active season,
// performing the soft reset first if the stored record is stale.
func (s *Service) LoadCurrent(ctx context.Context, playerID string) (domain.PlayerRating, error) {
	rating, err := s.ratings.Get(ctx, playerID)
	if err != nil {
		return domain.PlayerRating{}, err
	}

	now := s.clock.Now()
	current := Current(now)
	reset, changed := ApplyReset(rating, current.Number, now)
	if !changed {
		return rating, nil
	}

	if err := s.ratings.Save(ctx, reset); err != nil {
		return domain.PlayerRating{}, fmt.Errorf("save season reset: %w", err)
	}

	s.logger.Info().
		Str("player_id", playerID).
		Int("season", current.Number).
		Int("old_elo", rating.Elo).
		Int("new_elo", reset.Elo).
		Msg("season soft reset applied")

	s.notifier.Notify(playerID, notifier.Event{
		Type: notifier.EventSeasonReset,
		Payload: notifier.SeasonResetPayload{
			SeasonNumber: current.Number,
			NewElo:       reset.Elo,
			NewRank:      reset.Rank,
		},
	})
	return reset, nil
}
