package notifier

import (
	"ranked-engine/internal/domain"
)

// Event types pushed to the UI layer. This core only emits; rendering
// is someone else's problem.
const (
	EventMatchFound    = "match_found"
	EventMatchStarting = "match_starting"
	EventRankChanged   = "rank_changed"
	EventSeasonReset   = "season_reset"
)

// Event is the wire envelope for one notification.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// MatchFoundPayload tells a queued player their match is ready to
// accept.
type MatchFoundPayload struct {
	MatchID       string      `json:"matchId"`
	Map           string      `json:"map"`
	Team          domain.Team `json:"team"`
	AcceptSeconds int         `json:"acceptSeconds"`
}

// MatchStartingPayload carries the session handle once all ten
// accepted.
type MatchStartingPayload struct {
	MatchID   string `json:"matchId"`
	SessionID string `json:"sessionId"`
	Map       string `json:"map"`
}

// RankChangedPayload reports a settled rating change.
type RankChangedPayload struct {
	MatchID  string `json:"matchId"`
	EloDelta int    `json:"eloDelta"`
	NewElo   int    `json:"newElo"`
	NewRank  string `json:"newRank"`
	OldRank  string `json:"oldRank"`
}

// SeasonResetPayload reports a lazy season rollover.
type SeasonResetPayload struct {
	SeasonNumber int    `json:"seasonNumber"`
	NewElo       int    `json:"newElo"`
	NewRank      string `json:"newRank"`
}

// Notifier delivers events to individual players.
type Notifier interface {
	Notify(playerID string, ev Event)
}

// Nop drops every event; handy for tests and headless runs.
type Nop struct{}

func (Nop) Notify(string, Event) {}
