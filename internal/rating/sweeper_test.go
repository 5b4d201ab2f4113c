package rating

import (
	"context"
	"testing"
	"time"

	"ranked-engine/internal/clock"
	"ranked-engine/internal/constants"
	"ranked-engine/internal/repository"
	"ranked-engine/internal/store"

	"github.com/rs/zerolog"
)

func TestSweepDecaysOnlyEligibleRatings(t *testing.T) {
	st := store.NewMemory()
	logger := zerolog.Nop()
	repo := repository.NewRatingRepository(st, logger)
	ctx := context.Background()

	lastPlayed := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	now := lastPlayed.AddDate(0, 0, 35) // 7 days past the grace window
	clk := clock.NewFake(now)

	inactive := NewRating("inactive-high", "a", 5, lastPlayed)
	inactive.Elo = 2500
	inactive.LastPlayedAt = lastPlayed

	active := NewRating("active-high", "b", 5, lastPlayed)
	active.Elo = 2500
	active.LastPlayedAt = now.AddDate(0, 0, -1)

	lowElo := NewRating("inactive-low", "c", 5, lastPlayed)
	lowElo.Elo = 1500
	lowElo.LastPlayedAt = lastPlayed

	if err := repo.Save(ctx, inactive); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, active); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, lowElo); err != nil {
		t.Fatal(err)
	}

	sweeper := NewSweeper(repo, clk, logger)
	n, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("decayed %d records, want 1", n)
	}

	decayed, _ := repo.Get(ctx, "inactive-high")
	want := 2500 - 7*constants.DecayPerDay
	if decayed.Elo != want {
		t.Errorf("inactive elo = %d, want %d", decayed.Elo, want)
	}

	untouched, _ := repo.Get(ctx, "active-high")
	if untouched.Elo != 2500 {
		t.Errorf("active player decayed to %d", untouched.Elo)
	}
	low, _ := repo.Get(ctx, "inactive-low")
	if low.Elo != 1500 {
		t.Errorf("below-floor player decayed to %d", low.Elo)
	}
}
