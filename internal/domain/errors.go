package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared across the queue, matchmaking, and lifecycle
// layers. The HTTP layer maps these onto status codes; everything else
// wraps them with context via fmt.Errorf("...: %w", err).
var (
	ErrAlreadyQueued       = errors.New("player is already queued")
	ErrActivePenalty       = errors.New("player has an active queue penalty")
	ErrMatchNotFound       = errors.New("match not found")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrPlayerNotInMatch    = errors.New("player is not part of this match")
	ErrInvalidTransition   = errors.New("invalid match state transition")
	ErrInsufficientPlayers = errors.New("not enough players to form a match")
	ErrStoreUnavailable    = errors.New("store unavailable")
)

// PenaltyError carries the remaining cooldown so the UI layer can show
// it. errors.Is(err, ErrActivePenalty) matches it.
type PenaltyError struct {
	Remaining time.Duration
	Reason    string
}

func (e *PenaltyError) Error() string {
	return fmt.Sprintf("queue penalty active for another %ds (%s)", int(e.Remaining.Seconds()), e.Reason)
}

func (e *PenaltyError) Is(target error) bool {
	return target == ErrActivePenalty
}

// TransitionError reports an operation applied to a match in the wrong
// state, e.g. accepting an already aborted match.
type TransitionError struct {
	MatchID string
	From    MatchState
	Op      string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s match %s in state %s", e.Op, e.MatchID, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
