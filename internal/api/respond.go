package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"paisamarket/internal/fallback"
)

// envelope is the response shape of every data endpoint.
type envelope struct {
	Data        any                `json:"data"`
	Source      string             `json:"source,omitempty"`
	Cached      bool               `json:"cached"`
	Stale       bool               `json:"stale"`
	Placeholder bool               `json:"placeholder"`
	FetchedAt   time.Time          `json:"fetched_at"`
	Attempts    []fallback.Attempt `json:"attempts,omitempty"`
}

func fromResult(res fallback.Result, data any) envelope {
	return envelope{
		Data:        data,
		Source:      res.Source,
		Cached:      res.Cached,
		Stale:       res.Stale,
		Placeholder: res.Placeholder,
		FetchedAt:   res.FetchedAt,
		Attempts:    res.Attempts,
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		s.log.WithError(err).Warn("failed to write JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorBody{Error: msg})
}

// fail maps an error onto a status code: validation failures are 400,
// context errors from the coordinator are 504 or 503.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var bad *badRequest
	switch {
	case errors.As(err, &bad):
		s.writeError(w, http.StatusBadRequest, bad.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, context.Canceled):
		s.writeError(w, http.StatusServiceUnavailable, "request canceled")
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
