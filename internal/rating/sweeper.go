package rating

import (
	"context"

	"ranked-engine/internal/clock"
	"ranked-engine/internal/constants"
	"ranked-engine/internal/domain"

	"github.com/rs/zerolog"
)

// Ratings is the slice of the rating repository the sweeper needs.
type Ratings interface {
	All(ctx context.Context) ([]domain.PlayerRating, error)
	Save(ctx context.Context, rating domain.PlayerRating) error
}

// Sweeper applies rank decay on a daily tick rather than inline on
// reads.
type Sweeper struct {
	ratings Ratings
	clock   clock.Clock
	logger  zerolog.Logger
}

func NewSweeper(ratings Ratings, clk clock.Clock, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		ratings: ratings,
		clock:   clk,
		logger:  logger.With().Str("component", "decay_sweeper").Logger(),
	}
}

// Run sweeps until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(constants.DecaySweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("decay sweeper stopped")
			return
		case <-ticker.C():
			if n, err := s.Sweep(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("decay sweep failed")
			} else if n > 0 {
				s.logger.Info().Int("decayed", n).Msg("decay sweep complete")
			}
		}
	}
}

// Sweep decays every eligible rating once and returns how many records
// changed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	ratings, err := s.ratings.All(ctx)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	decayed := 0
	for _, r := range ratings {
		updated, changed := Decay(r, now)
		if !changed {
			continue
		}
		if err := s.ratings.Save(ctx, updated); err != nil {
			s.logger.Error().Err(err).Str("player_id", r.PlayerID).Msg("failed to save decayed rating")
			continue
		}
		s.logger.Debug().
			Str("player_id", r.PlayerID).
			Int("old_elo", r.Elo).
			Int("new_elo", updated.Elo).
			Msg("rank decay applied")
		decayed++
	}
	return decayed, nil
}
