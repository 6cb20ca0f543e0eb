package handler

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/dukerupert/chorequest/internal/chore"
	"github.com/dukerupert/chorequest/internal/tracker"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads the request body into v. Bodies are small; anything over
// 1 MiB is refused.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}

// writeTrackerError maps tracker and engine errors onto HTTP statuses.
func writeTrackerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tracker.ErrUnknownKid):
		writeError(w, http.StatusNotFound, "kid not found")
	case errors.Is(err, tracker.ErrUnknownChore):
		writeError(w, http.StatusNotFound, "chore not found")
	case errors.Is(err, tracker.ErrAlreadySpun):
		writeError(w, http.StatusConflict, "already spun this week")
	case errors.Is(err, chore.ErrNoPrizes):
		writeError(w, http.StatusConflict, "prize wheel is empty")
	case errors.Is(err, tracker.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "shutting down")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
