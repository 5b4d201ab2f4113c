package constants

import "time"

// Rating.
const (
	InitialElo        = 1000
	PlacementRequired = 10
	MaxEloChange      = 50
	MVPWinBonus       = 5
	PlacementWinBase  = 40
	PlacementLossBase = -20
	PlacementMVPBonus = 10
	MatchHistoryCap   = 50
)

// Performance rating weights and bounds. Damage per round is normalized
// against BaselineDamagePerRound so an average round = 1.0 contribution.
const (
	PerformanceMin         = 0.5
	PerformanceMax         = 2.0
	PerformanceNeutral     = 1.0
	KDWeight               = 0.4
	DamageWeight           = 0.3
	MVPWeight              = 0.3
	BaselineDamagePerRound = 100.0
	MVPRoundValue          = 0.25
)

// Decay.
const (
	DecayAfterDays  = 28
	DecayPerDay     = 5
	DecayFloorElo   = 2000
	DecaySweepEvery = 24 * time.Hour
)

// Season.
const (
	SeasonLengthMonths = 3
	SeasonResetFactor  = 0.8
)

// SeasonEpoch anchors season numbering; season 1 starts here.
var SeasonEpoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// Matchmaking.
const (
	MatchSize          = 10
	TeamSize           = 5
	MatchmakerInterval = 5 * time.Second
	MaxEloWindowPeak   = 200
	MaxEloWindowOff    = 300
	OffPeakStartHour   = 22
	OffPeakEndHour     = 8
	MapLikeScore       = 2
	MapBanScore        = -5
)

// MapPool is the fixed rotation; order breaks map-vote ties (first wins).
var MapPool = []string{"dust", "mirage", "inferno", "cache", "overpass", "vertigo", "train"}

// Acceptance and penalties.
const (
	AcceptTimeout        = 30 * time.Second
	DeclinePenalty       = 5 * time.Minute
	AcceptTimeoutPenalty = 10 * time.Minute
	AbandonPenalty       = 30 * time.Minute
)

// Timeouts.
const (
	SessionAPITimeout = 10 * time.Second
	DatabaseTimeout   = 5 * time.Second
	RequestTimeout    = 30 * time.Second
	ShutdownTimeout   = 5 * time.Second
)

// Store retry policy for transient failures.
const (
	StoreRetryAttempts = 3
	StoreRetryBase     = 100 * time.Millisecond
)

// Database connection pool.
const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

// Leaderboard.
const (
	LeaderboardDefaultLimit = 100
)
