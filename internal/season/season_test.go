package season

import (
	"testing"
	"time"

	"ranked-engine/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCurrent(t *testing.T) {
	tests := []struct {
		now        time.Time
		wantNumber int
	}{
		{date(2025, time.January, 1), 1},
		{date(2025, time.March, 31), 1},
		{date(2025, time.April, 1), 2},
		{date(2025, time.December, 15), 4},
		{date(2026, time.January, 2), 5},
		{date(2026, time.August, 27), 7},
	}
	for _, tt := range tests {
		got := Current(tt.now)
		if got.Number != tt.wantNumber {
			t.Errorf("Current(%v).Number = %d, want %d", tt.now, got.Number, tt.wantNumber)
		}
		if !tt.now.Before(got.EndDate) || tt.now.Before(got.StartDate) {
			t.Errorf("Current(%v) window [%v, %v) does not contain now", tt.now, got.StartDate, got.EndDate)
		}
	}
}

func TestCurrentWindowsAbutExactly(t *testing.T) {
	s1 := Current(date(2025, time.January, 1))
	s2 := Current(s1.EndDate)
	if s2.Number != s1.Number+1 {
		t.Fatalf("season after %d = %d, want %d", s1.Number, s2.Number, s1.Number+1)
	}
	if !s2.StartDate.Equal(s1.EndDate) {
		t.Fatalf("gap between seasons: %v end, %v start", s1.EndDate, s2.StartDate)
	}
}

func TestApplyResetRollsOver(t *testing.T) {
	now := date(2026, time.April, 2)
	r := domain.PlayerRating{
		PlayerID:               "p1",
		Elo:                    1855,
		Rank:                   "Diamond I",
		PeakElo:                1900,
		PeakRank:               "Diamond II",
		Wins:                   40,
		Losses:                 30,
		Winrate:                0.57,
		PlacementMatchesPlayed: 10,
		MatchHistory:           []domain.HistoryEntry{{MatchID: "m1"}},
		SeasonNumber:           5,
	}

	reset, changed := ApplyReset(r, 6, now)
	if !changed {
		t.Fatal("expected rollover")
	}
	if reset.Elo != 1484 { // floor(1855 * 0.8)
		t.Errorf("reset elo = %d, want 1484", reset.Elo)
	}
	if reset.Rank != "Platinum II" {
		t.Errorf("reset rank = %q, want Platinum II", reset.Rank)
	}
	if reset.Wins != 0 || reset.Losses != 0 || reset.PlacementMatchesPlayed != 0 || len(reset.MatchHistory) != 0 {
		t.Errorf("per-season counters not reset: %+v", reset)
	}
	if reset.PeakElo != 1900 || reset.PeakRank != "Diamond II" {
		t.Errorf("lifetime peak lost in rollover: %d/%q", reset.PeakElo, reset.PeakRank)
	}
	if reset.SeasonNumber != 6 {
		t.Errorf("seasonNumber = %d, want 6", reset.SeasonNumber)
	}
	if len(reset.SeasonHistory) != 1 {
		t.Fatalf("seasonHistory length = %d, want 1", len(reset.SeasonHistory))
	}
	archived := reset.SeasonHistory[0]
	if archived.SeasonNumber != 5 || archived.FinalElo != 1855 || archived.Wins != 40 || archived.Losses != 30 {
		t.Errorf("archive wrong: %+v", archived)
	}
}

func TestApplyResetNoOpForCurrentSeason(t *testing.T) {
	r := domain.PlayerRating{PlayerID: "p1", Elo: 1500, SeasonNumber: 6}
	same, changed := ApplyReset(r, 6, date(2026, time.April, 2))
	if changed || same.Elo != 1500 {
		t.Fatalf("reset applied to current-season record: %+v", same)
	}
}
