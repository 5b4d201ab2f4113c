package season

import (
	"math"
	"time"

	"ranked-engine/internal/constants"
	"ranked-engine/internal/domain"
	"ranked-engine/internal/rank"
)

// Current derives the active season from wall-clock time: fixed
// 3-month windows counted from the season epoch. Never persisted,
// always recomputable.
func Current(now time.Time) domain.Season {
	epoch := constants.SeasonEpoch
	months := (now.Year()-epoch.Year())*12 + int(now.Month()) - int(epoch.Month())
	if months < 0 {
		months = 0
	}
	number := months/constants.SeasonLengthMonths + 1
	start := epoch.AddDate(0, (number-1)*constants.SeasonLengthMonths, 0)
	return domain.Season{
		Number:    number,
		StartDate: start,
		EndDate:   start.AddDate(0, constants.SeasonLengthMonths, 0),
	}
}

// ApplyReset rolls a stale rating record into the given season: the old
// season's numbers are archived, elo is soft-reset by the reset factor,
// and per-season counters start over. Returns the updated record and
// whether a rollover happened. Runs lazily the first time a record is
// touched after a boundary, never on a global timer.
func ApplyReset(r domain.PlayerRating, currentSeason int, now time.Time) (domain.PlayerRating, bool) {
	if r.SeasonNumber == currentSeason {
		return r, false
	}

	r.SeasonHistory = append(r.SeasonHistory, domain.SeasonArchive{
		SeasonNumber: r.SeasonNumber,
		FinalElo:     r.Elo,
		FinalRank:    r.Rank,
		PeakElo:      r.PeakElo,
		PeakRank:     r.PeakRank,
		Wins:         r.Wins,
		Losses:       r.Losses,
		ArchivedAt:   now,
	})

	r.Elo = int(math.Floor(float64(r.Elo) * constants.SeasonResetFactor))
	r.Rank = rank.NameFromElo(r.Elo)
	// PeakElo/PeakRank are lifetime high-water marks and survive the
	// rollover; the archive entry above keeps the per-season snapshot.
	r.Wins = 0
	r.Losses = 0
	r.Winrate = 0
	r.PlacementMatchesPlayed = 0
	r.MatchHistory = nil
	r.SeasonNumber = currentSeason
	r.UpdatedAt = now
	return r, true
}
