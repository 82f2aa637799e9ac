package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/scottholdren/idle-clicker-game/internal/game"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(out)
}

// writeEngineErr maps engine sentinel errors to HTTP statuses. Unknown ids
// are 404, rejected transactions 409, anything else 500.
func writeEngineErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrUnknownEntity):
		writeErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrLocked),
		errors.Is(err, game.ErrMaxed),
		errors.Is(err, game.ErrInsufficientFunds),
		errors.Is(err, game.ErrCannotPrestige):
		writeErr(w, http.StatusConflict, err.Error())
	default:
		writeErr(w, http.StatusInternalServerError, err.Error())
	}
}
