package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/semantle/internal/game"
	"github.com/robalobadob/semantle/internal/similarity"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
	Word  string `json:"word,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16))
	if err := dec.Decode(v); err != nil {
		return &game.InvalidInputError{Field: "body", Message: "invalid JSON body"}
	}
	return nil
}

// writeErr maps domain errors to HTTP responses.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalid *game.InvalidInputError
		unknown *similarity.UnknownWordError
	)
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: invalid.Error(), Code: "invalid_input", Field: invalid.Field})
	case errors.As(err, &unknown):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: unknown.Error(), Code: "unknown_word", Word: unknown.Word})
	case errors.Is(err, similarity.ErrEmptyWord):
		writeError(w, http.StatusBadRequest, "invalid_input", "word is required")
	case errors.Is(err, similarity.ErrUnknownProvider):
		writeError(w, http.StatusBadRequest, "unknown_provider", err.Error())
	case errors.Is(err, similarity.ErrNoNeighbors):
		writeError(w, http.StatusBadRequest, "neighbors_unsupported", "this provider cannot list neighbours")
	case errors.Is(err, similarity.ErrProviderUnavailable):
		hlog.FromRequest(r).Warn().Err(err).Msg("provider unavailable")
		writeError(w, http.StatusBadGateway, "provider_unavailable", "the similarity provider is unavailable, try again")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
