package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"ranked-engine/internal/domain"
	"ranked-engine/internal/store"

	"github.com/rs/zerolog"
)

const (
	ratingPrefix      = "playerRatings/"
	leaderboardPrefix = "leaderboard/"
)

type RatingRepository struct {
	store  store.Store
	logger zerolog.Logger
}

func NewRatingRepository(st store.Store, logger zerolog.Logger) *RatingRepository {
	return &RatingRepository{store: st, logger: logger.With().Str("component", "rating_repo").Logger()}
}

func ratingPath(playerID string) string      { return ratingPrefix + playerID }
func leaderboardPath(playerID string) string { return leaderboardPrefix + playerID }

func (r *RatingRepository) Get(ctx context.Context, playerID string) (domain.PlayerRating, error) {
	doc, err := r.store.Get(ctx, ratingPath(playerID))
	if errors.Is(err, store.ErrNotFound) {
		return domain.PlayerRating{}, domain.ErrPlayerNotFound
	}
	if err != nil {
		return domain.PlayerRating{}, fmt.Errorf("get rating: %w", err)
	}
	var rating domain.PlayerRating
	if err := json.Unmarshal(doc.Data, &rating); err != nil {
		return domain.PlayerRating{}, fmt.Errorf("unmarshal rating: %w", err)
	}
	return rating, nil
}

// Save writes the rating record and rewrites the denormalized
// leaderboard projection in the same call.
func (r *RatingRepository) Save(ctx context.Context, rating domain.PlayerRating) error {
	data, err := json.Marshal(rating)
	if err != nil {
		return fmt.Errorf("marshal rating: %w", err)
	}
	if err := r.store.Set(ctx, ratingPath(rating.PlayerID), data); err != nil {
		return fmt.Errorf("save rating: %w", err)
	}

	row := domain.LeaderboardRow{
		PlayerID: rating.PlayerID,
		Name:     rating.Name,
		Elo:      rating.Elo,
		Rank:     rating.Rank,
		Wins:     rating.Wins,
		Losses:   rating.Losses,
	}
	rowData, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal leaderboard row: %w", err)
	}
	if err := r.store.Set(ctx, leaderboardPath(rating.PlayerID), rowData); err != nil {
		return fmt.Errorf("save leaderboard row: %w", err)
	}
	return nil
}

// All returns every stored rating, used by the decay sweep.
func (r *RatingRepository) All(ctx context.Context) ([]domain.PlayerRating, error) {
	docs, err := r.store.List(ctx, ratingPrefix)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	ratings := make([]domain.PlayerRating, 0, len(docs))
	for _, doc := range docs {
		var rating domain.PlayerRating
		if err := json.Unmarshal(doc.Data, &rating); err != nil {
			r.logger.Warn().Err(err).Str("path", doc.Path).Msg("skipping malformed rating record")
			continue
		}
		ratings = append(ratings, rating)
	}
	return ratings, nil
}

// Leaderboard returns the top rows by elo descending.
func (r *RatingRepository) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardRow, error) {
	docs, err := r.store.List(ctx, leaderboardPrefix)
	if err != nil {
		return nil, fmt.Errorf("list leaderboard: %w", err)
	}
	rows := make([]domain.LeaderboardRow, 0, len(docs))
	for _, doc := range docs {
		var row domain.LeaderboardRow
		if err := json.Unmarshal(doc.Data, &row); err != nil {
			r.logger.Warn().Err(err).Str("path", doc.Path).Msg("skipping malformed leaderboard row")
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Elo != rows[j].Elo {
			return rows[i].Elo > rows[j].Elo
		}
		return rows[i].PlayerID < rows[j].PlayerID
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}
