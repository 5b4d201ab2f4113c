package matchmaker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ranked-engine/internal/clock"
	"ranked-engine/internal/constants"
	"ranked-engine/internal/domain"
	"ranked-engine/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// MatchStarter receives a freshly formed match; the lifecycle
// controller implements it.
type MatchStarter interface {
	StartAcceptance(ctx context.Context, match domain.Match, entries []domain.QueueEntry) error
}

// Matchmaker scans the queue on a fixed interval and forms balanced
// 10-player matches. A single loop goroutine is the serialization
// point; compare-and-delete claims guard against concurrent leaves.
type Matchmaker struct {
	queue   *repository.QueueRepository
	matches *repository.MatchRepository
	starter MatchStarter
	clock   clock.Clock
	logger  zerolog.Logger
}

func New(queue *repository.QueueRepository, matches *repository.MatchRepository, starter MatchStarter, clk clock.Clock, logger zerolog.Logger) *Matchmaker {
	return &Matchmaker{
		queue:   queue,
		matches: matches,
		starter: starter,
		clock:   clk,
		logger:  logger.With().Str("component", "matchmaker").Logger(),
	}
}

// Run polls until the context is cancelled. Cycle failures are logged
// and retried on the next tick; a transient store outage costs one
// cycle, nothing more.
func (m *Matchmaker) Run(ctx context.Context) {
	ticker := m.clock.NewTicker(constants.MatchmakerInterval)
	defer ticker.Stop()

	m.logger.Info().Dur("interval", constants.MatchmakerInterval).Msg("matchmaker started")
	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("matchmaker stopped")
			return
		case <-ticker.C():
			if _, err := m.Cycle(ctx); err != nil {
				m.logger.Warn().Err(err).Msg("matchmaking cycle failed")
			}
		}
	}
}

// Cycle runs one matchmaking pass and returns the number of matches
// formed. Fewer than ten queued players is a no-op, not an error;
// unmatched entries stay queued indefinitely.
func (m *Matchmaker) Cycle(ctx context.Context) (int, error) {
	var entries []repository.ClaimedEntry
	backoff := retry.WithMaxRetries(constants.StoreRetryAttempts, retry.NewExponential(constants.StoreRetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var listErr error
		if entries, listErr = m.queue.List(ctx); listErr != nil {
			return retry.RetryableError(listErr)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %s", domain.ErrStoreUnavailable, err)
	}

	if len(entries) < constants.MatchSize {
		m.logger.Debug().Int("queued", len(entries)).Msg("not enough players this cycle")
		return 0, nil
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Entry.Elo < entries[j].Entry.Elo
	})

	window := eloWindow(m.clock.Now())
	formed := 0

	used := make([]bool, len(entries))
	for i := range entries {
		if used[i] {
			continue
		}
		group := []int{i}
		for j := i + 1; j < len(entries) && len(group) < constants.MatchSize; j++ {
			if used[j] {
				continue
			}
			if entries[j].Entry.Elo-entries[i].Entry.Elo <= window {
				group = append(group, j)
			}
		}
		if len(group) < constants.MatchSize {
			// Release and slide on; the anchor may fit a later window.
			continue
		}

		if !m.claimGroup(ctx, entries, group) {
			continue
		}
		for _, idx := range group {
			used[idx] = true
		}

		members := make([]domain.QueueEntry, len(group))
		for k, idx := range group {
			members[k] = entries[idx].Entry
		}
		if err := m.formMatch(ctx, members); err != nil {
			m.logger.Error().Err(err).Msg("failed to form match, releasing group")
			m.releaseEntries(ctx, members)
			continue
		}
		formed++
	}

	if formed > 0 {
		m.logger.Info().Int("matches", formed).Int("window", window).Msg("matchmaking cycle complete")
	}
	return formed, nil
}

// claimGroup compare-and-deletes every member's queue entry. If any
// claim loses the race the already-claimed members are restored and the
// group is abandoned for this cycle.
func (m *Matchmaker) claimGroup(ctx context.Context, entries []repository.ClaimedEntry, group []int) bool {
	var claimed []domain.QueueEntry
	for _, idx := range group {
		if err := m.queue.Claim(ctx, entries[idx].Entry.PlayerID, entries[idx].Version); err != nil {
			m.logger.Debug().
				Err(err).
				Str("player_id", entries[idx].Entry.PlayerID).
				Msg("lost claim race, releasing group")
			m.releaseEntries(ctx, claimed)
			return false
		}
		claimed = append(claimed, entries[idx].Entry)
	}
	return true
}

func (m *Matchmaker) releaseEntries(ctx context.Context, claimed []domain.QueueEntry) {
	for _, entry := range claimed {
		if err := m.queue.Restore(ctx, entry); err != nil {
			m.logger.Error().Err(err).Str("player_id", entry.PlayerID).Msg("failed to restore queue entry")
		}
	}
}

func (m *Matchmaker) formMatch(ctx context.Context, members []domain.QueueEntry) error {
	if len(members) != constants.MatchSize {
		return domain.ErrInsufficientPlayers
	}
	matchID, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("generate match id: %w", err)
	}

	ct, t := assignTeams(members)
	match := domain.Match{
		MatchID:      matchID,
		Players:      make(map[string]domain.MatchPlayer, len(members)),
		Map:          selectMap(members),
		AverageEloCT: averageElo(ct),
		AverageEloT:  averageElo(t),
		State:        domain.MatchAwaitingAcceptance,
		CreatedAt:    m.clock.Now(),
		UpdatedAt:    m.clock.Now(),
	}
	for _, entry := range ct {
		match.Players[entry.PlayerID] = domain.MatchPlayer{Team: domain.TeamCT, Elo: entry.Elo, Rank: entry.Rank}
	}
	for _, entry := range t {
		match.Players[entry.PlayerID] = domain.MatchPlayer{Team: domain.TeamT, Elo: entry.Elo, Rank: entry.Rank}
	}

	if err := m.matches.Create(ctx, match); err != nil {
		return err
	}
	if err := m.starter.StartAcceptance(ctx, match, members); err != nil {
		return err
	}

	m.logger.Info().
		Str("match_id", matchID).
		Str("map", match.Map).
		Int("avg_ct", match.AverageEloCT).
		Int("avg_t", match.AverageEloT).
		Msg("match formed")
	return nil
}

// eloWindow widens off-peak when the queue is thin.
func eloWindow(now time.Time) int {
	hour := now.Hour()
	if hour < constants.OffPeakEndHour || hour >= constants.OffPeakStartHour {
		return constants.MaxEloWindowOff
	}
	return constants.MaxEloWindowPeak
}

// assignTeams snake-drafts the ten players: sorted by descending elo,
// draft positions with pos%4 in {0,3} go CT (0,3,4,7,8), the rest T.
// Not plain alternation; changing the pattern changes team balance.
func assignTeams(members []domain.QueueEntry) (ct, t []domain.QueueEntry) {
	sorted := make([]domain.QueueEntry, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Elo > sorted[j].Elo
	})

	for pos, entry := range sorted {
		if pos%4 == 0 || pos%4 == 3 {
			ct = append(ct, entry)
		} else {
			t = append(t, entry)
		}
	}
	return ct, t
}

// selectMap scores every map in the pool from the group's likes and
// bans; highest score wins, pool order breaks ties.
func selectMap(members []domain.QueueEntry) string {
	scores := make(map[string]int, len(constants.MapPool))
	for _, entry := range members {
		for _, liked := range entry.MapLiked {
			scores[liked] += constants.MapLikeScore
		}
		for _, banned := range entry.MapBanned {
			scores[banned] += constants.MapBanScore
		}
	}

	best := constants.MapPool[0]
	bestScore := scores[best]
	for _, name := range constants.MapPool[1:] {
		if scores[name] > bestScore {
			best = name
			bestScore = scores[name]
		}
	}
	return best
}

func averageElo(entries []domain.QueueEntry) int {
	if len(entries) == 0 {
		return 0
	}
	sum := 0
	for _, entry := range entries {
		sum += entry.Elo
	}
	return sum / len(entries)
}
