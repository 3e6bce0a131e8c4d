// HTTP routes for the daily puzzle:
//   - POST /daily/new         → start (or resume) today's round in the session
//   - GET  /daily/leaderboard → top results for a date and mode
//
// Guesses go through the regular /guess endpoint; a win on a daily round is
// stored in daily_results. Each player can finish a given day's puzzle once
// per mode.

package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/semantle/internal/daily"
	"github.com/robalobadob/semantle/internal/game"
)

const leaderboardSize = 20

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", s.handleDailyNew)
		r.Get("/leaderboard", s.handleLeaderboard)
	})
}

// dailyRes is returned by /daily/new.
type dailyRes struct {
	Date   string    `json:"date"`
	Mode   game.Mode `json:"mode"`
	Played bool      `json:"played"`
	Length int       `json:"length,omitempty"`
}

// handleDailyNew puts today's word into the caller's session. A session
// already playing today's puzzle is left alone.
func (s *Server) handleDailyNew(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	sess, err := s.session(w, r)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	ctx := r.Context()
	p := playerFor(ctx, sess)
	date, _, word := s.picker.Pick(string(mode))

	played, err := s.daily.AlreadyPlayed(ctx, p.id(), date, string(mode))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if played {
		writeJSON(w, http.StatusOK, dailyRes{Date: date, Mode: mode, Played: true})
		return
	}

	prev := sess.Snapshot()
	if prev.DailyDate == date && prev.Mode == mode && prev.State != game.StateFound {
		writeJSON(w, http.StatusOK, dailyRes{Date: date, Mode: mode, Length: prev.SecretLength})
		return
	}
	if err := sess.StartDaily(ctx, s.scorers.Default(), word, mode, date); err != nil {
		writeErr(w, r, err)
		return
	}
	s.roundStarted(r, sess, prev)
	writeJSON(w, http.StatusOK, dailyRes{Date: date, Mode: mode, Length: sess.Snapshot().SecretLength})
}

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Mode game.Mode     `json:"mode"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, err := game.ParseMode(q.Get("mode"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	date := q.Get("date")
	if date == "" {
		date, _, _ = s.picker.Pick(string(mode))
	}
	limit := leaderboardSize
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	rows, err := s.daily.Leaderboard(r.Context(), date, string(mode), limit)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if rows == nil {
		rows = []daily.LBRow{}
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Mode: mode, Top: rows})
}
