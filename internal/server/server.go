package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"ranked-engine/internal/constants"
	"ranked-engine/internal/domain"
	"ranked-engine/internal/lifecycle"
	"ranked-engine/internal/notifier"
	"ranked-engine/internal/queue"
	"ranked-engine/internal/repository"
	"ranked-engine/internal/season"
)

// Server exposes the ranked engine over JSON endpoints plus a
// websocket feed for match notifications.
type Server struct {
	queue   *queue.Manager
	matches *lifecycle.Controller
	seasons *season.Service
	ratings *repository.RatingRepository
	hub     *notifier.Hub
	logger  zerolog.Logger
}

func New(
	q *queue.Manager,
	matches *lifecycle.Controller,
	seasons *season.Service,
	ratings *repository.RatingRepository,
	hub *notifier.Hub,
	logger zerolog.Logger,
) *Server {
	return &Server{
		queue:   q,
		matches: matches,
		seasons: seasons,
		ratings: ratings,
		hub:     hub,
		logger:  logger.With().Str("component", "server").Logger(),
	}
}

func (s *Server) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/queue/join", s.handleQueueJoin)
		r.Post("/queue/leave", s.handleQueueLeave)
		r.Get("/queue/{playerID}", s.handleQueueStatus)

		r.Post("/matches/{matchID}/accept", s.handleMatchAccept)
		r.Post("/matches/{matchID}/decline", s.handleMatchDecline)
		r.Post("/matches/{matchID}/result", s.handleMatchResult)

		r.Get("/players/{playerID}/rating", s.handlePlayerRating)
		r.Get("/leaderboard", s.handleLeaderboard)
	})

	if s.hub != nil {
		r.Get("/ws/{playerID}", s.handleWebsocket)
	}
}

func (s *Server) handleQueueJoin(w http.ResponseWriter, r *http.Request) {
	var req queue.JoinRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResponse{"error": "invalid_body"})
		return
	}
	if req.PlayerID == "" {
		writeJSON(w, http.StatusBadRequest, jsonResponse{"error": "playerId is required"})
		return
	}

	entry, err := s.queue.Join(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleQueueLeave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := readJSON(w, r, &req); err != nil || req.PlayerID == "" {
		writeJSON(w, http.StatusBadRequest, jsonResponse{"error": "playerId is required"})
		return
	}

	if err := s.queue.Leave(r.Context(), req.PlayerID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	status, err := s.queue.Status(r.Context(), playerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleMatchAccept(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := readJSON(w, r, &req); err != nil || req.PlayerID == "" {
		writeJSON(w, http.StatusBadRequest, jsonResponse{"error": "playerId is required"})
		return
	}

	if err := s.matches.Accept(r.Context(), matchID, req.PlayerID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMatchDecline(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := readJSON(w, r, &req); err != nil || req.PlayerID == "" {
		writeJSON(w, http.StatusBadRequest, jsonResponse{"error": "playerId is required"})
		return
	}

	if err := s.matches.Decline(r.Context(), matchID, req.PlayerID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMatchResult is the callback the game-session service hits when
// a match ends. Settlement is idempotent per match id, so retries are
// safe.
func (s *Server) handleMatchResult(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	var result domain.MatchResult
	if err := readJSON(w, r, &result); err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResponse{"error": "invalid_body"})
		return
	}
	result.MatchID = matchID

	if err := s.matches.Settle(r.Context(), result); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePlayerRating(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	rating, err := s.seasons.LoadCurrent(r.Context(), playerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rating)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := constants.LeaderboardDefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	rows, err := s.ratings.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": rows, "limit": limit})
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	if playerID == "" {
		writeJSON(w, http.StatusBadRequest, jsonResponse{"error": "playerId is required"})
		return
	}
	s.hub.ServeWS(w, r, playerID, s.logger)
}
