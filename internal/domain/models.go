package domain

import (
	"time"
)

// Team is one of the two sides of a match.
type Team string

const (
	TeamCT Team = "CT"
	TeamT  Team = "T"
)

// MatchState is the lifecycle state of a formed match.
type MatchState string

const (
	MatchAwaitingAcceptance MatchState = "awaiting_acceptance"
	MatchStarting           MatchState = "starting"
	MatchFinished           MatchState = "finished"
	MatchAborted            MatchState = "aborted"
)

// AbortReason records why a match never started.
type AbortReason string

const (
	AbortDeclined      AbortReason = "declined"
	AbortAcceptTimeout AbortReason = "accept_timeout"
	AbortSessionFailed AbortReason = "session_failed"
)

// PlayerRating is the per-season rating record for one player.
// Rank is always derived from Elo and never authoritative on its own.
type PlayerRating struct {
	PlayerID               string          `json:"playerId"`
	Name                   string          `json:"name"`
	Elo                    int             `json:"elo"`
	Rank                   string          `json:"rank"`
	PlacementMatchesPlayed int             `json:"placementMatchesPlayed"`
	Wins                   int             `json:"wins"`
	Losses                 int             `json:"losses"`
	Winrate                float64         `json:"winrate"`
	PeakElo                int             `json:"peakElo"`
	PeakRank               string          `json:"peakRank"`
	LastPlayedAt           time.Time       `json:"lastPlayedAt"`
	MatchHistory           []HistoryEntry  `json:"matchHistory"`
	MapPreference          MapPreference   `json:"mapPreference"`
	SeasonNumber           int             `json:"seasonNumber"`
	SeasonHistory          []SeasonArchive `json:"seasonHistory,omitempty"`
	CreatedAt              time.Time       `json:"createdAt"`
	UpdatedAt              time.Time       `json:"updatedAt"`
}

// HistoryEntry is one settled match from the player's point of view,
// most recent first, capped at MatchHistoryCap entries.
type HistoryEntry struct {
	MatchID          string    `json:"matchId"`
	Timestamp        time.Time `json:"timestamp"`
	EloDelta         int       `json:"eloDelta"`
	NewElo           int       `json:"newElo"`
	Won              bool      `json:"won"`
	IsMVP            bool      `json:"isMvp"`
	PerformanceScore float64   `json:"performanceScore"`
}

// SeasonArchive freezes a season's final numbers at rollover.
type SeasonArchive struct {
	SeasonNumber int       `json:"seasonNumber"`
	FinalElo     int       `json:"finalElo"`
	FinalRank    string    `json:"finalRank"`
	PeakElo      int       `json:"peakElo"`
	PeakRank     string    `json:"peakRank"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	ArchivedAt   time.Time `json:"archivedAt"`
}

// MapPreference holds the player's liked and banned maps, both optional.
type MapPreference struct {
	Liked  []string `json:"liked,omitempty"`
	Banned []string `json:"banned,omitempty"`
}

// QueueEntry is one player waiting for a match. At most one exists per
// player at any time; it is removed on leave or on match formation.
type QueueEntry struct {
	PlayerID  string    `json:"playerId"`
	Elo       int       `json:"elo"`
	Rank      string    `json:"rank"`
	JoinedAt  time.Time `json:"joinedAt"`
	GameMode  string    `json:"gameMode"`
	Region    string    `json:"region"`
	MapLiked  []string  `json:"mapLiked,omitempty"`
	MapBanned []string  `json:"mapBanned,omitempty"`
}

// Penalty blocks a player from queueing until EndsAt.
type Penalty struct {
	PlayerID string    `json:"playerId"`
	Reason   string    `json:"reason"`
	EndsAt   time.Time `json:"endsAt"`
}

// MatchPlayer is one participant slot inside a Match.
type MatchPlayer struct {
	Team     Team   `json:"team"`
	Elo      int    `json:"elo"`
	Rank     string `json:"rank"`
	Accepted bool   `json:"accepted"`
}

// Match is a formed 10-player match moving through the acceptance
// state machine and, once played out, settlement.
type Match struct {
	MatchID      string                 `json:"matchId"`
	Players      map[string]MatchPlayer `json:"players"`
	Map          string                 `json:"map"`
	AverageEloCT int                    `json:"averageEloCT"`
	AverageEloT  int                    `json:"averageEloT"`
	State        MatchState             `json:"state"`
	AbortReason  AbortReason            `json:"abortReason,omitempty"`
	SessionID    string                 `json:"sessionId,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

// Clone returns a copy with its own Players map, safe to hand to
// another goroutine while the original keeps changing.
func (m Match) Clone() Match {
	players := make(map[string]MatchPlayer, len(m.Players))
	for id, p := range m.Players {
		players[id] = p
	}
	m.Players = players
	return m
}

// TeamAverage returns the stored average elo for the given team.
func (m *Match) TeamAverage(t Team) int {
	if t == TeamCT {
		return m.AverageEloCT
	}
	return m.AverageEloT
}

// PlayerStats is the raw per-player telemetry reported by the game
// session after a match. Values are untrusted; negative numbers are
// clamped during rating, never rejected.
type PlayerStats struct {
	Kills          int     `json:"kills"`
	Deaths         int     `json:"deaths"`
	DamagePerRound float64 `json:"damagePerRound"`
	MVPRounds      int     `json:"mvpRounds"`
	Abandoned      bool    `json:"abandoned"`
}

// MatchResult is the final report from the game session collaborator.
type MatchResult struct {
	MatchID     string                  `json:"matchId"`
	WinningTeam Team                    `json:"winningTeam"`
	ScoreCT     int                     `json:"scoreCT"`
	ScoreT      int                     `json:"scoreT"`
	MVPPlayerID string                  `json:"mvpPlayerId"`
	Stats       map[string]*PlayerStats `json:"stats"`
	ReportedAt  time.Time               `json:"reportedAt"`
}

// MatchOutcome is one player's slice of a finished match, the input to
// rating application. Stats may be nil when telemetry is missing; the
// rating engine treats that as neutral performance.
type MatchOutcome struct {
	MatchID     string
	Won         bool
	IsMVP       bool
	TeamAvgElo  int
	EnemyAvgElo int
	Stats       *PlayerStats
	PlayedAt    time.Time
}

// Season is a fixed 3-month competitive window, derived from the clock
// and never stored.
type Season struct {
	Number    int       `json:"number"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// LeaderboardRow is the denormalized projection kept per player for
// fast sorted reads.
type LeaderboardRow struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Elo      int    `json:"elo"`
	Rank     string `json:"rank"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
}
