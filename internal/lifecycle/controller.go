package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ranked-engine/internal/clock"
	"ranked-engine/internal/constants"
	"ranked-engine/internal/domain"
	"ranked-engine/internal/notifier"
	"ranked-engine/internal/queue"
	"ranked-engine/internal/rating"
	"ranked-engine/internal/repository"
	"ranked-engine/internal/season"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

// SessionCreator is the external game-session collaborator: given a
// fully accepted match it produces a joinable session.
type SessionCreator interface {
	Create(ctx context.Context, match domain.Match) (sessionID string, err error)
}

// Controller drives formed matches through acceptance, handoff, and
// settlement. Acceptance state is held in memory (the active set is
// small and short-lived) and mirrored to the store on every change.
type Controller struct {
	matches   *repository.MatchRepository
	queueRepo *repository.QueueRepository
	queue     *queue.Manager
	ratings   *repository.RatingRepository
	seasons   *season.Service
	notifier  notifier.Notifier
	sessions  SessionCreator
	clock     clock.Clock
	logger    zerolog.Logger

	mu      sync.Mutex
	pending map[string]*pendingMatch
}

type pendingMatch struct {
	match   domain.Match
	entries map[string]domain.QueueEntry
	cancel  chan struct{}
}

func NewController(
	matches *repository.MatchRepository,
	queueRepo *repository.QueueRepository,
	queueMgr *queue.Manager,
	ratings *repository.RatingRepository,
	seasons *season.Service,
	n notifier.Notifier,
	sessions SessionCreator,
	clk clock.Clock,
	logger zerolog.Logger,
) *Controller {
	return &Controller{
		matches:   matches,
		queueRepo: queueRepo,
		queue:     queueMgr,
		ratings:   ratings,
		seasons:   seasons,
		notifier:  n,
		sessions:  sessions,
		clock:     clk,
		logger:    logger.With().Str("component", "lifecycle").Logger(),
		pending:   make(map[string]*pendingMatch),
	}
}

// StartAcceptance registers a formed match, notifies its players, and
// arms the acceptance timeout.
func (c *Controller) StartAcceptance(_ context.Context, match domain.Match, entries []domain.QueueEntry) error {
	// The pending record gets its own Players map; acceptances mutate it
	// while the caller's copy is still being read below.
	p := &pendingMatch{
		match:   match.Clone(),
		entries: make(map[string]domain.QueueEntry, len(entries)),
		cancel:  make(chan struct{}),
	}
	for _, entry := range entries {
		p.entries[entry.PlayerID] = entry
	}

	c.mu.Lock()
	c.pending[match.MatchID] = p
	c.mu.Unlock()

	for playerID, player := range match.Players {
		c.notifier.Notify(playerID, notifier.Event{
			Type: notifier.EventMatchFound,
			Payload: notifier.MatchFoundPayload{
				MatchID:       match.MatchID,
				Map:           match.Map,
				Team:          player.Team,
				AcceptSeconds: int(constants.AcceptTimeout.Seconds()),
			},
		})
	}

	go func() {
		select {
		case <-c.clock.After(constants.AcceptTimeout):
			c.expire(match.MatchID)
		case <-p.cancel:
		}
	}()

	c.logger.Info().Str("match_id", match.MatchID).Msg("awaiting acceptance")
	return nil
}

// Accept marks one player's acceptance; the tenth acceptance starts the
// match.
func (c *Controller) Accept(ctx context.Context, matchID, playerID string) error {
	c.mu.Lock()
	p, ok := c.pending[matchID]
	if !ok {
		c.mu.Unlock()
		return c.staleOpError(ctx, matchID, "accept")
	}

	player, ok := p.match.Players[playerID]
	if !ok {
		c.mu.Unlock()
		return domain.ErrPlayerNotInMatch
	}
	player.Accepted = true
	p.match.Players[playerID] = player
	p.match.UpdatedAt = c.clock.Now()

	allAccepted := true
	for _, mp := range p.match.Players {
		if !mp.Accepted {
			allAccepted = false
			break
		}
	}
	// Snapshot before unlocking: concurrent acceptances keep mutating
	// p.match.Players while this copy is marshalled.
	match := p.match.Clone()
	if allAccepted {
		delete(c.pending, matchID)
		close(p.cancel)
	}
	c.mu.Unlock()

	if !allAccepted {
		if err := c.matches.Save(ctx, match); err != nil {
			return err
		}
		c.logger.Debug().Str("match_id", matchID).Str("player_id", playerID).Msg("player accepted")
		return nil
	}
	return c.start(ctx, match, p.entries)
}

// Decline aborts the match: the decliner is penalized, the other nine
// go back to the queue.
func (c *Controller) Decline(ctx context.Context, matchID, playerID string) error {
	c.mu.Lock()
	p, ok := c.pending[matchID]
	if !ok {
		c.mu.Unlock()
		return c.staleOpError(ctx, matchID, "decline")
	}
	if _, ok := p.match.Players[playerID]; !ok {
		c.mu.Unlock()
		return domain.ErrPlayerNotInMatch
	}
	match := p.match.Clone()
	delete(c.pending, matchID)
	close(p.cancel)
	c.mu.Unlock()

	c.logger.Info().Str("match_id", matchID).Str("player_id", playerID).Msg("match declined")

	if err := c.queue.Penalize(ctx, playerID, "declined match", constants.DeclinePenalty); err != nil {
		c.logger.Error().Err(err).Str("player_id", playerID).Msg("failed to apply decline penalty")
	}
	c.requeueEntries(ctx, p.entries, map[string]bool{playerID: true})
	return c.abort(ctx, match, domain.AbortDeclined)
}

// expire fires when the acceptance window lapses with holdouts:
// non-accepting players are penalized, accepted ones requeued.
func (c *Controller) expire(matchID string) {
	c.mu.Lock()
	p, ok := c.pending[matchID]
	if !ok {
		c.mu.Unlock()
		return
	}
	match := p.match.Clone()
	delete(c.pending, matchID)
	c.mu.Unlock()

	ctx := context.Background()
	holdouts := make(map[string]bool)
	for playerID, player := range match.Players {
		if !player.Accepted {
			holdouts[playerID] = true
		}
	}
	c.logger.Info().Str("match_id", matchID).Int("holdouts", len(holdouts)).Msg("acceptance timed out")

	for playerID := range holdouts {
		if err := c.queue.Penalize(ctx, playerID, "accept timeout", constants.AcceptTimeoutPenalty); err != nil {
			c.logger.Error().Err(err).Str("player_id", playerID).Msg("failed to apply timeout penalty")
		}
	}
	c.requeueEntries(ctx, p.entries, holdouts)
	if err := c.abort(ctx, match, domain.AbortAcceptTimeout); err != nil {
		c.logger.Error().Err(err).Str("match_id", matchID).Msg("failed to abort timed-out match")
	}
}

// start hands the match to the game-session service and archives it.
func (c *Controller) start(ctx context.Context, match domain.Match, entries map[string]domain.QueueEntry) error {
	match.State = domain.MatchStarting
	match.UpdatedAt = c.clock.Now()
	if err := c.matches.Save(ctx, match); err != nil {
		return err
	}

	sessionCtx, cancel := context.WithTimeout(ctx, constants.SessionAPITimeout)
	defer cancel()
	sessionID, err := c.sessions.Create(sessionCtx, match)
	if err != nil {
		// The session service is down; players go back to the queue
		// rather than into limbo.
		c.logger.Error().Err(err).Str("match_id", match.MatchID).Msg("session creation failed, aborting match")
		c.requeueEntries(ctx, entries, nil)
		return c.abort(ctx, match, domain.AbortSessionFailed)
	}

	match.SessionID = sessionID
	match.UpdatedAt = c.clock.Now()
	for playerID := range match.Players {
		c.notifier.Notify(playerID, notifier.Event{
			Type: notifier.EventMatchStarting,
			Payload: notifier.MatchStartingPayload{
				MatchID:   match.MatchID,
				SessionID: sessionID,
				Map:       match.Map,
			},
		})
	}

	c.logger.Info().Str("match_id", match.MatchID).Str("session_id", sessionID).Msg("match starting")
	return c.matches.Archive(ctx, match, nil)
}

// Settle applies a finished match's results to all ten ratings. Safe to
// replay: rating application is keyed by matchId and a Finished archive
// short-circuits.
func (c *Controller) Settle(ctx context.Context, result domain.MatchResult) error {
	archived, err := c.matches.GetArchived(ctx, result.MatchID)
	if err != nil {
		return err
	}
	match := archived.Match

	switch match.State {
	case domain.MatchFinished:
		return nil
	case domain.MatchAborted:
		return &domain.TransitionError{MatchID: match.MatchID, From: match.State, Op: "settle"}
	}

	now := c.clock.Now()
	g, gctx := errgroup.WithContext(ctx)
	for playerID, player := range match.Players {
		playerID, player := playerID, player
		g.Go(func() error {
			return c.settlePlayer(gctx, match, playerID, player, result, now)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("settle match %s: %w", match.MatchID, err)
	}

	match.State = domain.MatchFinished
	match.UpdatedAt = now
	if err := c.matches.Archive(ctx, match, &result); err != nil {
		return err
	}
	c.logger.Info().
		Str("match_id", match.MatchID).
		Str("winning_team", string(result.WinningTeam)).
		Msg("match settled")
	return nil
}

func (c *Controller) settlePlayer(ctx context.Context, match domain.Match, playerID string, player domain.MatchPlayer, result domain.MatchResult, now time.Time) error {
	playerRating, err := c.seasons.LoadCurrent(ctx, playerID)
	if errors.Is(err, domain.ErrPlayerNotFound) {
		// A rating record always exists by the time a player reaches a
		// match, but degrade gracefully if it vanished.
		playerRating = rating.NewRating(playerID, playerID, c.seasons.CurrentNumber(), now)
	} else if err != nil {
		return err
	}

	enemy := domain.TeamCT
	if player.Team == domain.TeamCT {
		enemy = domain.TeamT
	}
	stats := result.Stats[playerID]
	abandoned := stats != nil && stats.Abandoned
	outcome := domain.MatchOutcome{
		MatchID: match.MatchID,
		// Abandoning forfeits the outcome: a recorded loss even when the
		// team won, on top of the queue penalty below.
		Won:         player.Team == result.WinningTeam && !abandoned,
		IsMVP:       playerID == result.MVPPlayerID,
		TeamAvgElo:  match.TeamAverage(player.Team),
		EnemyAvgElo: match.TeamAverage(enemy),
		Stats:       stats,
		PlayedAt:    now,
	}

	oldElo, oldRank := playerRating.Elo, playerRating.Rank
	updated := rating.ApplyMatchResult(playerRating, outcome)

	// Rating writes are the one thing settlement must not lose; retry
	// transient store failures before giving up on the whole match.
	backoff := retry.WithMaxRetries(constants.StoreRetryAttempts, retry.NewExponential(constants.StoreRetryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if saveErr := c.ratings.Save(ctx, updated); saveErr != nil {
			return retry.RetryableError(saveErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if updated.Elo != oldElo {
		c.notifier.Notify(playerID, notifier.Event{
			Type: notifier.EventRankChanged,
			Payload: notifier.RankChangedPayload{
				MatchID:  match.MatchID,
				EloDelta: updated.Elo - oldElo,
				NewElo:   updated.Elo,
				NewRank:  updated.Rank,
				OldRank:  oldRank,
			},
		})
	}

	if abandoned {
		if err := c.queue.Penalize(ctx, playerID, "abandoned match", constants.AbandonPenalty); err != nil {
			c.logger.Error().Err(err).Str("player_id", playerID).Msg("failed to apply abandon penalty")
		}
	}
	return nil
}

// abort marks the match aborted and archives it; no rating changes.
func (c *Controller) abort(ctx context.Context, match domain.Match, reason domain.AbortReason) error {
	match.State = domain.MatchAborted
	match.AbortReason = reason
	match.UpdatedAt = c.clock.Now()
	return c.matches.Archive(ctx, match, nil)
}

// requeueEntries restores the original queue entries of everyone not in
// skip, keeping their region, game mode, and map preferences intact.
// Restoration is a single idempotent write per player.
func (c *Controller) requeueEntries(ctx context.Context, entries map[string]domain.QueueEntry, skip map[string]bool) {
	for playerID, entry := range entries {
		if skip[playerID] {
			continue
		}
		entry.JoinedAt = c.clock.Now()
		if err := c.queueRepo.Restore(ctx, entry); err != nil {
			c.logger.Error().Err(err).Str("player_id", playerID).Msg("failed to requeue player")
		}
	}
}

// staleOpError distinguishes "no such match" from "match exists but is
// past acceptance".
func (c *Controller) staleOpError(ctx context.Context, matchID, op string) error {
	if match, err := c.matches.Get(ctx, matchID); err == nil {
		return &domain.TransitionError{MatchID: matchID, From: match.State, Op: op}
	}
	if archived, err := c.matches.GetArchived(ctx, matchID); err == nil {
		return &domain.TransitionError{MatchID: matchID, From: archived.Match.State, Op: op}
	}
	return domain.ErrMatchNotFound
}
