package rating

import (
	"math"
	"time"

	"ranked-engine/internal/constants"
	"ranked-engine/internal/domain"
	"ranked-engine/internal/rank"
)

// Performance turns raw match telemetry into a multiplier in
// [PerformanceMin, PerformanceMax]. Missing stats are neutral (1.0);
// negative telemetry values are clamped to zero, never rejected.
func Performance(stats *domain.PlayerStats) float64 {
	if stats == nil {
		return constants.PerformanceNeutral
	}

	kills := clampNonNegative(stats.Kills)
	deaths := clampNonNegative(stats.Deaths)
	damage := math.Max(0, stats.DamagePerRound)
	mvps := clampNonNegative(stats.MVPRounds)

	kd := float64(kills)
	if deaths > 0 {
		kd = float64(kills) / float64(deaths)
	}

	score := constants.KDWeight*kd +
		constants.DamageWeight*(damage/constants.BaselineDamagePerRound) +
		constants.MVPWeight*(1+constants.MVPRoundValue*float64(mvps))

	return clamp(score, constants.PerformanceMin, constants.PerformanceMax)
}

// KFactor is the maximum standard swing for a given elo. Higher K at
// low ratings converges new players faster.
func KFactor(elo int) int {
	switch {
	case elo < 1200:
		return 30
	case elo < 2000:
		return 25
	case elo < 2400:
		return 20
	default:
		return 15
	}
}

// StandardEloChange is the classic logistic expectation formula scaled
// by performance, with a flat MVP-on-win bonus, clamped to
// ±MaxEloChange and rounded to the nearest integer.
func StandardEloChange(teamAvgElo, enemyAvgElo int, won bool, performance float64, isMVP bool, kFactor int) int {
	expected := 1.0 / (1.0 + math.Pow(10, float64(enemyAvgElo-teamAvgElo)/400.0))

	actual := 0.0
	if won {
		actual = 1.0
	}

	change := float64(kFactor) * (actual - expected)
	change *= performance
	if isMVP && won {
		change += constants.MVPWinBonus
	}

	change = clamp(change, -constants.MaxEloChange, constants.MaxEloChange)
	return int(math.Round(change))
}

// PlacementEloChange is the higher-variance rule used while a player is
// still in placement matches.
func PlacementEloChange(won bool, performance float64, isMVP bool) int {
	base := float64(constants.PlacementLossBase)
	if won {
		base = float64(constants.PlacementWinBase)
	}
	change := base * performance
	if isMVP {
		change += constants.PlacementMVPBonus
	}
	return int(math.Round(change))
}

// ApplyMatchResult folds one match outcome into a rating record and
// returns the updated copy. It is deterministic and idempotent per
// match: an outcome whose MatchID is already in the history is a no-op,
// so retried settlement writes never double-count.
func ApplyMatchResult(r domain.PlayerRating, outcome domain.MatchOutcome) domain.PlayerRating {
	for _, h := range r.MatchHistory {
		if h.MatchID == outcome.MatchID {
			return r
		}
	}

	performance := Performance(outcome.Stats)

	var delta int
	if r.PlacementMatchesPlayed < constants.PlacementRequired {
		delta = PlacementEloChange(outcome.Won, performance, outcome.IsMVP)
		r.PlacementMatchesPlayed++
	} else {
		delta = StandardEloChange(outcome.TeamAvgElo, outcome.EnemyAvgElo, outcome.Won, performance, outcome.IsMVP, KFactor(r.Elo))
	}

	newElo := r.Elo + delta
	if newElo < 0 {
		newElo = 0
		delta = -r.Elo
	}
	r.Elo = newElo
	r.Rank = rank.NameFromElo(newElo)

	if outcome.Won {
		r.Wins++
	} else {
		r.Losses++
	}
	if total := r.Wins + r.Losses; total > 0 {
		r.Winrate = float64(r.Wins) / float64(total)
	}

	if newElo > r.PeakElo {
		r.PeakElo = newElo
		r.PeakRank = r.Rank
	}

	entry := domain.HistoryEntry{
		MatchID:          outcome.MatchID,
		Timestamp:        outcome.PlayedAt,
		EloDelta:         delta,
		NewElo:           newElo,
		Won:              outcome.Won,
		IsMVP:            outcome.IsMVP,
		PerformanceScore: performance,
	}
	r.MatchHistory = append([]domain.HistoryEntry{entry}, r.MatchHistory...)
	if len(r.MatchHistory) > constants.MatchHistoryCap {
		r.MatchHistory = r.MatchHistory[:constants.MatchHistoryCap]
	}

	r.LastPlayedAt = outcome.PlayedAt
	r.UpdatedAt = outcome.PlayedAt
	return r
}

// Decay reduces high ratings after prolonged inactivity: past
// DecayAfterDays without a match and above DecayFloorElo, elo drops by
// DecayPerDay per overdue day, floored at DecayFloorElo. Returns the
// updated record and whether anything changed.
func Decay(r domain.PlayerRating, now time.Time) (domain.PlayerRating, bool) {
	if r.Elo <= constants.DecayFloorElo || r.LastPlayedAt.IsZero() {
		return r, false
	}

	daysInactive := int(now.Sub(r.LastPlayedAt).Hours() / 24)
	if daysInactive <= constants.DecayAfterDays {
		return r, false
	}

	decayed := r.Elo - constants.DecayPerDay*(daysInactive-constants.DecayAfterDays)
	if decayed < constants.DecayFloorElo {
		decayed = constants.DecayFloorElo
	}
	if decayed == r.Elo {
		return r, false
	}

	r.Elo = decayed
	r.Rank = rank.NameFromElo(decayed)
	r.UpdatedAt = now
	return r, true
}

// NewRating is the record a player starts their first season with.
func NewRating(playerID, name string, seasonNumber int, now time.Time) domain.PlayerRating {
	tier := rank.FromElo(constants.InitialElo)
	return domain.PlayerRating{
		PlayerID:     playerID,
		Name:         name,
		Elo:          constants.InitialElo,
		Rank:         tier.Name,
		PeakElo:      constants.InitialElo,
		PeakRank:     tier.Name,
		SeasonNumber: seasonNumber,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
