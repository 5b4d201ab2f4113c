package matchmaker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ranked-engine/internal/clock"
	"ranked-engine/internal/constants"
	"ranked-engine/internal/domain"
	"ranked-engine/internal/repository"
	"ranked-engine/internal/store"

	"github.com/rs/zerolog"
)

type fakeStarter struct {
	started []domain.Match
}

func (f *fakeStarter) StartAcceptance(_ context.Context, match domain.Match, _ []domain.QueueEntry) error {
	f.started = append(f.started, match)
	return nil
}

type fixture struct {
	mm      *Matchmaker
	queue   *repository.QueueRepository
	starter *fakeStarter
	clk     *clock.Fake
	st      *store.Memory
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	st := store.NewMemory()
	logger := zerolog.Nop()
	queueRepo := repository.NewQueueRepository(st, logger)
	matchRepo := repository.NewMatchRepository(st, logger)
	starter := &fakeStarter{}
	clk := clock.NewFake(now)
	return &fixture{
		mm:      New(queueRepo, matchRepo, starter, clk, logger),
		queue:   queueRepo,
		starter: starter,
		clk:     clk,
		st:      st,
	}
}

var peakTime = time.Date(2026, time.June, 10, 14, 0, 0, 0, time.UTC)

func enqueue(t *testing.T, f *fixture, playerID string, elo int, liked, banned []string) {
	t.Helper()
	err := f.queue.Create(context.Background(), domain.QueueEntry{
		PlayerID:  playerID,
		Elo:       elo,
		Rank:      "Gold II",
		JoinedAt:  f.clk.Now(),
		GameMode:  "competitive",
		Region:    "eu",
		MapLiked:  liked,
		MapBanned: banned,
	})
	if err != nil {
		t.Fatalf("enqueue %s: %v", playerID, err)
	}
}

func TestCycleSkipsWithFewerThanTenPlayers(t *testing.T) {
	f := newFixture(t, peakTime)
	for i := 0; i < constants.MatchSize-1; i++ {
		enqueue(t, f, fmt.Sprintf("p%d", i), 1000, nil, nil)
	}

	formed, err := f.mm.Cycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if formed != 0 || len(f.starter.started) != 0 {
		t.Fatalf("formed %d matches from 9 players", formed)
	}

	// Entries stay queued indefinitely; no starvation timeout exists.
	entries, _ := f.queue.List(context.Background())
	if len(entries) != constants.MatchSize-1 {
		t.Fatalf("queue drained to %d entries", len(entries))
	}
}

func TestCycleFormsExactlyTenAndRemovesEntries(t *testing.T) {
	f := newFixture(t, peakTime)
	for i := 0; i < 12; i++ {
		enqueue(t, f, fmt.Sprintf("p%d", i), 1000+i*10, nil, nil)
	}

	formed, err := f.mm.Cycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if formed != 1 {
		t.Fatalf("formed = %d, want 1", formed)
	}
	match := f.starter.started[0]
	if len(match.Players) != constants.MatchSize {
		t.Fatalf("match has %d players, want %d", len(match.Players), constants.MatchSize)
	}

	remaining, _ := f.queue.List(context.Background())
	if len(remaining) != 2 {
		t.Fatalf("%d entries left in queue, want 2", len(remaining))
	}
	for _, left := range remaining {
		if _, ok := match.Players[left.Entry.PlayerID]; ok {
			t.Fatalf("player %s both matched and still queued", left.Entry.PlayerID)
		}
	}
}

func TestCycleNeverReusesEntriesAcrossGroups(t *testing.T) {
	f := newFixture(t, peakTime)
	for i := 0; i < 20; i++ {
		enqueue(t, f, fmt.Sprintf("p%d", i), 1000+i*5, nil, nil)
	}

	formed, err := f.mm.Cycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if formed != 2 {
		t.Fatalf("formed = %d, want 2", formed)
	}

	seen := make(map[string]bool)
	for _, match := range f.starter.started {
		if len(match.Players) != constants.MatchSize {
			t.Fatalf("match size %d", len(match.Players))
		}
		for playerID := range match.Players {
			if seen[playerID] {
				t.Fatalf("player %s placed in two matches", playerID)
			}
			seen[playerID] = true
		}
	}
}

func TestCycleRespectsEloWindow(t *testing.T) {
	f := newFixture(t, peakTime) // peak hours: window 200
	// Two clusters of five, 1000 elo apart; neither can fill a match.
	for i := 0; i < 5; i++ {
		enqueue(t, f, fmt.Sprintf("low%d", i), 1000, nil, nil)
		enqueue(t, f, fmt.Sprintf("high%d", i), 2000, nil, nil)
	}

	formed, err := f.mm.Cycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if formed != 0 {
		t.Fatalf("formed %d matches across a 1000-elo gap", formed)
	}
}

func TestEloWindowWidensOffPeak(t *testing.T) {
	peak := time.Date(2026, time.June, 10, 14, 0, 0, 0, time.UTC)
	lateNight := time.Date(2026, time.June, 10, 23, 0, 0, 0, time.UTC)
	earlyMorning := time.Date(2026, time.June, 10, 5, 0, 0, 0, time.UTC)

	if got := eloWindow(peak); got != constants.MaxEloWindowPeak {
		t.Errorf("peak window = %d, want %d", got, constants.MaxEloWindowPeak)
	}
	if got := eloWindow(lateNight); got != constants.MaxEloWindowOff {
		t.Errorf("late-night window = %d, want %d", got, constants.MaxEloWindowOff)
	}
	if got := eloWindow(earlyMorning); got != constants.MaxEloWindowOff {
		t.Errorf("early-morning window = %d, want %d", got, constants.MaxEloWindowOff)
	}
}

func TestAssignTeamsSnakeDraft(t *testing.T) {
	elos := []int{2000, 1900, 1800, 1700, 1600, 1500, 1400, 1300, 1200, 1100}
	members := make([]domain.QueueEntry, len(elos))
	for i, elo := range elos {
		members[i] = domain.QueueEntry{PlayerID: fmt.Sprintf("p%d", i), Elo: elo}
	}

	ct, tSide := assignTeams(members)
	if len(ct) != constants.TeamSize || len(tSide) != constants.TeamSize {
		t.Fatalf("team sizes %d/%d, want %d each", len(ct), len(tSide), constants.TeamSize)
	}

	// Draft positions 0,3,4,7,8 go CT.
	wantCT := []int{2000, 1700, 1600, 1300, 1200}
	for i, entry := range ct {
		if entry.Elo != wantCT[i] {
			t.Errorf("ct[%d].Elo = %d, want %d", i, entry.Elo, wantCT[i])
		}
	}
	wantT := []int{1900, 1800, 1500, 1400, 1100}
	for i, entry := range tSide {
		if entry.Elo != wantT[i] {
			t.Errorf("t[%d].Elo = %d, want %d", i, entry.Elo, wantT[i])
		}
	}
}

func TestAssignTeamsUnsortedInput(t *testing.T) {
	members := []domain.QueueEntry{
		{PlayerID: "a", Elo: 1100}, {PlayerID: "b", Elo: 2000}, {PlayerID: "c", Elo: 1500},
		{PlayerID: "d", Elo: 1300}, {PlayerID: "e", Elo: 1900}, {PlayerID: "f", Elo: 1200},
		{PlayerID: "g", Elo: 1800}, {PlayerID: "h", Elo: 1400}, {PlayerID: "i", Elo: 1700},
		{PlayerID: "j", Elo: 1600},
	}
	ct, _ := assignTeams(members)
	if ct[0].Elo != 2000 {
		t.Fatalf("draft did not sort by descending elo, top CT pick = %d", ct[0].Elo)
	}
}

func TestSelectMapScoring(t *testing.T) {
	// Three like mirage, one bans it: score 3*2 - 5 = 1. Everything
	// else scores 0, so mirage still wins.
	members := []domain.QueueEntry{
		{PlayerID: "a", MapLiked: []string{"mirage"}},
		{PlayerID: "b", MapLiked: []string{"mirage"}},
		{PlayerID: "c", MapLiked: []string{"mirage"}},
		{PlayerID: "d", MapBanned: []string{"mirage"}},
	}
	if got := selectMap(members); got != "mirage" {
		t.Errorf("selectMap = %q, want mirage", got)
	}
}

func TestSelectMapTieBreaksByPoolOrder(t *testing.T) {
	// No preferences at all: every map scores 0, first pool entry wins.
	members := []domain.QueueEntry{{PlayerID: "a"}, {PlayerID: "b"}}
	if got := selectMap(members); got != constants.MapPool[0] {
		t.Errorf("selectMap = %q, want %q", got, constants.MapPool[0])
	}

	// A ban pushes the leader below zero; next-best zero-score map in
	// pool order takes it.
	banned := []domain.QueueEntry{{PlayerID: "a", MapBanned: []string{constants.MapPool[0]}}}
	if got := selectMap(banned); got != constants.MapPool[1] {
		t.Errorf("selectMap = %q, want %q", got, constants.MapPool[1])
	}
}

func TestCycleSurvivesClaimRace(t *testing.T) {
	f := newFixture(t, peakTime)
	for i := 0; i < 10; i++ {
		enqueue(t, f, fmt.Sprintf("p%d", i), 1000, nil, nil)
	}

	// A player leaves between the scan and the claim: simulate by
	// bumping their document version after listing.
	entries, err := f.queue.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := f.queue.Restore(context.Background(), entries[0].Entry); err != nil {
		t.Fatal(err)
	}

	// The cycle lists fresh versions, so this still forms one match;
	// the stale-claim path is exercised via Claim directly.
	if err := f.queue.Claim(context.Background(), entries[0].Entry.PlayerID, entries[0].Version); err == nil {
		t.Fatal("claim with stale version succeeded")
	}

	formed, err := f.mm.Cycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if formed != 1 {
		t.Fatalf("formed = %d, want 1", formed)
	}
}

func TestCycleRetriesTransientListFailure(t *testing.T) {
	f := newFixture(t, peakTime)
	f.st.FailReads = fmt.Errorf("transient outage")

	_, err := f.mm.Cycle(context.Background())
	if err == nil {
		t.Fatal("expected store-unavailable error")
	}
}
