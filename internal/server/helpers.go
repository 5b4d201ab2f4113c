package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"ranked-engine/internal/domain"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError maps the domain error taxonomy onto HTTP statuses. These
// are the errors the UI layer translates into user-facing messages;
// they are never swallowed.
func writeError(w http.ResponseWriter, err error) {
	var penalty *domain.PenaltyError
	if errors.As(err, &penalty) {
		writeJSON(w, http.StatusTooManyRequests, jsonResponse{
			"error":            "active_penalty",
			"remainingSeconds": int(penalty.Remaining.Seconds()),
			"reason":           penalty.Reason,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrAlreadyQueued):
		writeJSON(w, http.StatusConflict, jsonResponse{"error": "already_queued"})
	case errors.Is(err, domain.ErrActivePenalty):
		writeJSON(w, http.StatusTooManyRequests, jsonResponse{"error": "active_penalty"})
	case errors.Is(err, domain.ErrMatchNotFound), errors.Is(err, domain.ErrPlayerNotFound):
		writeJSON(w, http.StatusNotFound, jsonResponse{"error": "not_found"})
	case errors.Is(err, domain.ErrPlayerNotInMatch):
		writeJSON(w, http.StatusForbidden, jsonResponse{"error": "not_in_match"})
	case errors.Is(err, domain.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, jsonResponse{"error": "invalid_transition"})
	default:
		writeJSON(w, http.StatusInternalServerError, jsonResponse{"error": "internal"})
	}
}
