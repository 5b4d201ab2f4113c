package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ranked-engine/internal/clock"
	"ranked-engine/internal/constants"
	"ranked-engine/internal/domain"
	"ranked-engine/internal/notifier"
	"ranked-engine/internal/repository"
	"ranked-engine/internal/season"
	"ranked-engine/internal/store"

	"github.com/rs/zerolog"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifier.Event
}

func (r *recordingNotifier) Notify(_ string, ev notifier.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

type fixture struct {
	mgr     *Manager
	ratings *repository.RatingRepository
	notes   *recordingNotifier
	clk     *clock.Fake
}

var baseTime = time.Date(2026, time.June, 10, 14, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemory()
	logger := zerolog.Nop()
	clk := clock.NewFake(baseTime)
	notes := &recordingNotifier{}

	queueRepo := repository.NewQueueRepository(st, logger)
	ratingRepo := repository.NewRatingRepository(st, logger)
	seasons := season.NewService(ratingRepo, notes, clk, logger)
	return &fixture{
		mgr:     NewManager(queueRepo, ratingRepo, seasons, clk, logger),
		ratings: ratingRepo,
		notes:   notes,
		clk:     clk,
	}
}

func TestJoinCreatesRatingOnFirstQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.mgr.Join(ctx, JoinRequest{PlayerID: "p1", Name: "fragger", Region: "eu", GameMode: "competitive"})
	if err != nil {
		t.Fatal(err)
	}
	if entry.Elo != constants.InitialElo {
		t.Errorf("entry elo = %d, want %d", entry.Elo, constants.InitialElo)
	}

	r, err := f.ratings.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("rating not created on first join: %v", err)
	}
	if r.Elo != constants.InitialElo || r.Rank != "Gold II" || r.Name != "fragger" {
		t.Errorf("new rating %+v", r)
	}
	if r.SeasonNumber != season.Current(baseTime).Number {
		t.Errorf("seasonNumber = %d", r.SeasonNumber)
	}
}

func TestJoinTwiceFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.mgr.Join(ctx, JoinRequest{PlayerID: "p1"}); err != nil {
		t.Fatal(err)
	}
	_, err := f.mgr.Join(ctx, JoinRequest{PlayerID: "p1"})
	if !errors.Is(err, domain.ErrAlreadyQueued) {
		t.Fatalf("second join = %v, want ErrAlreadyQueued", err)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.mgr.Leave(ctx, "ghost"); err != nil {
		t.Fatalf("leave while not queued: %v", err)
	}

	if _, err := f.mgr.Join(ctx, JoinRequest{PlayerID: "p1"}); err != nil {
		t.Fatal(err)
	}
	if err := f.mgr.Leave(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	if err := f.mgr.Leave(ctx, "p1"); err != nil {
		t.Fatalf("double leave: %v", err)
	}
	if _, err := f.mgr.Join(ctx, JoinRequest{PlayerID: "p1"}); err != nil {
		t.Fatalf("rejoin after leave: %v", err)
	}
}

func TestPenaltyBlocksJoinUntilElapsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.mgr.Penalize(ctx, "p1", "declined match", constants.DeclinePenalty); err != nil {
		t.Fatal(err)
	}

	_, err := f.mgr.Join(ctx, JoinRequest{PlayerID: "p1"})
	var penalty *domain.PenaltyError
	if !errors.As(err, &penalty) {
		t.Fatalf("join under penalty = %v, want PenaltyError", err)
	}
	if penalty.Remaining <= 0 || penalty.Remaining > constants.DeclinePenalty {
		t.Errorf("remaining = %v", penalty.Remaining)
	}

	f.clk.Advance(constants.DeclinePenalty - time.Second)
	if _, err := f.mgr.Join(ctx, JoinRequest{PlayerID: "p1"}); !errors.Is(err, domain.ErrActivePenalty) {
		t.Fatalf("join 1s before expiry = %v", err)
	}

	f.clk.Advance(2 * time.Second)
	if _, err := f.mgr.Join(ctx, JoinRequest{PlayerID: "p1"}); err != nil {
		t.Fatalf("join after expiry: %v", err)
	}
}

func TestJoinAppliesLazySeasonReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stale := domain.PlayerRating{
		PlayerID:     "p1",
		Name:         "veteran",
		Elo:          2000,
		Rank:         "Diamond II",
		PeakElo:      2100,
		PeakRank:     "Diamond III",
		Wins:         50,
		Losses:       40,
		SeasonNumber: season.Current(baseTime).Number - 1,
	}
	if err := f.ratings.Save(ctx, stale); err != nil {
		t.Fatal(err)
	}

	entry, err := f.mgr.Join(ctx, JoinRequest{PlayerID: "p1", Name: "veteran"})
	if err != nil {
		t.Fatal(err)
	}
	if entry.Elo != 1600 { // floor(2000 * 0.8)
		t.Errorf("entry elo after reset = %d, want 1600", entry.Elo)
	}

	r, _ := f.ratings.Get(ctx, "p1")
	if r.SeasonNumber != season.Current(baseTime).Number || r.Wins != 0 || r.PlacementMatchesPlayed != 0 {
		t.Errorf("rating after reset %+v", r)
	}
	if len(r.SeasonHistory) != 1 {
		t.Errorf("seasonHistory %+v", r.SeasonHistory)
	}

	f.notes.mu.Lock()
	defer f.notes.mu.Unlock()
	found := false
	for _, ev := range f.notes.events {
		if ev.Type == notifier.EventSeasonReset {
			found = true
		}
	}
	if !found {
		t.Error("no season_reset event emitted")
	}
}

func TestStatusReportsQueueAndPenalty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.mgr.Status(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Queued || st.PenaltySecondsRemaining != 0 {
		t.Errorf("empty status %+v", st)
	}

	if _, err := f.mgr.Join(ctx, JoinRequest{PlayerID: "p1"}); err != nil {
		t.Fatal(err)
	}
	st, _ = f.mgr.Status(ctx, "p1")
	if !st.Queued || st.Entry == nil {
		t.Errorf("status after join %+v", st)
	}

	if err := f.mgr.Penalize(ctx, "p2", "abandoned match", constants.AbandonPenalty); err != nil {
		t.Fatal(err)
	}
	st, _ = f.mgr.Status(ctx, "p2")
	if st.PenaltySecondsRemaining == 0 {
		t.Error("penalty not reported in status")
	}
}
