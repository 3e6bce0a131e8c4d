package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/semantle/internal/game"
	"github.com/robalobadob/semantle/internal/metrics"
	"github.com/robalobadob/semantle/internal/similarity"
)

const (
	// newGameAttempts bounds how many random picks /new_game tries before
	// giving up on finding a word the provider knows.
	newGameAttempts = 20
	maxNeighbors    = 100
)

func (s *Server) mountGame(r chi.Router) {
	r.Post("/set_word", s.handleSetWord)
	r.Post("/new_game", s.handleNewGame)
	r.Post("/guess", s.handleGuess)
	r.Get("/hint", s.handleHint)
	r.Get("/graph", s.handleGraph)
	r.Post("/rescore", s.handleRescore)
	r.Get("/examples", s.handleExamples)
	r.Get("/neighbors", s.handleNeighbors)
	r.Get("/providers", s.handleProviders)
}

type roundReq struct {
	Word     string `json:"word"`
	Mode     string `json:"mode"`
	Provider string `json:"provider"`
}

type roundRes struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message,omitempty"`
	Mode     game.Mode `json:"mode"`
	Provider string    `json:"provider"`
	Length   int       `json:"length"`
}

// parseRound resolves the mode and scorer a new round asks for.
func (s *Server) parseRound(req roundReq) (game.Mode, *similarity.Scorer, error) {
	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		return "", nil, err
	}
	sc, err := s.scorers.Get(req.Provider)
	if err != nil {
		return "", nil, err
	}
	return mode, sc, nil
}

func (s *Server) handleSetWord(w http.ResponseWriter, r *http.Request) {
	var req roundReq
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	mode, sc, err := s.parseRound(req)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	sess, err := s.session(w, r)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	prev := sess.Snapshot()
	if err := sess.SetSecret(r.Context(), sc, req.Word, mode); err != nil {
		writeErr(w, r, err)
		return
	}
	s.roundStarted(r, sess, prev)

	snap := sess.Snapshot()
	writeJSON(w, http.StatusOK, roundRes{
		Success:  true,
		Message:  "Word set",
		Mode:     snap.Mode,
		Provider: snap.Provider,
		Length:   snap.SecretLength,
	})
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req roundReq
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	mode, sc, err := s.parseRound(req)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	sess, err := s.session(w, r)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	prev := sess.Snapshot()
	var started bool
	for i := 0; i < newGameAttempts && !started; i++ {
		err = sess.SetSecret(r.Context(), sc, s.words.Random(), mode)
		switch {
		case err == nil:
			started = true
		case errors.Is(err, similarity.ErrUnknownWord):
			continue
		default:
			writeErr(w, r, err)
			return
		}
	}
	if !started {
		hlog.FromRequest(r).Error().Str("provider", sc.ProviderName()).Msg("no secret candidate known to provider")
		writeError(w, http.StatusInternalServerError, "no_secret", "could not pick a word for this provider")
		return
	}
	s.roundStarted(r, sess, prev)

	snap := sess.Snapshot()
	writeJSON(w, http.StatusOK, roundRes{
		Success:  true,
		Mode:     snap.Mode,
		Provider: snap.Provider,
		Length:   snap.SecretLength,
	})
}

// roundStarted persists the session and records the new round.
func (s *Server) roundStarted(r *http.Request, sess *game.Session, prev game.Snapshot) {
	ctx := r.Context()
	if err := s.store.Save(ctx, sess); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("save session")
	}
	s.startRound(ctx, playerFor(ctx, sess), prev, sess.Snapshot())
}

// scorerFor returns the scorer the session's current round uses.
func (s *Server) scorerFor(sess *game.Session) (*similarity.Scorer, error) {
	return s.scorers.Get(sess.Provider())
}

type guessReq struct {
	Guess string `json:"guess"`
	Word  string `json:"word"`
}

type guessRes struct {
	*game.Outcome
	Graph *game.Graph `json:"graph,omitempty"`
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	word := req.Guess
	if word == "" {
		word = req.Word
	}
	sess, err := s.session(w, r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	sc, err := s.scorerFor(sess)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	ctx := r.Context()
	out, err := sess.Guess(ctx, sc, word, s.opts.UnknownWords)
	if err != nil {
		if reason := rejectReason(err); reason != "" {
			metrics.RejectedGuessesTotal.WithLabelValues(reason).Inc()
		}
		writeErr(w, r, err)
		return
	}

	result := "scored"
	switch {
	case out.Found:
		result = "found"
	case out.Unscored:
		result = "unscored"
	}
	metrics.GuessesTotal.WithLabelValues(string(sess.Mode()), sc.ProviderName(), result).Inc()

	snap := sess.Snapshot()
	s.recordGuess(ctx, playerFor(ctx, sess), snap, out)

	res := guessRes{Outcome: out}
	if g, err := sess.Graph(ctx, sc); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("build graph")
	} else {
		res.Graph = g
	}
	writeJSON(w, http.StatusOK, res)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, game.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, similarity.ErrUnknownWord):
		return "unknown_word"
	}
	return ""
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	hint, err := sess.Hint()
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hint":        hint,
		"guess_count": sess.Snapshot().GuessCount,
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	sc, err := s.scorerFor(sess)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	g, err := sess.Graph(r.Context(), sc)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type rescoreRes struct {
	GuessScores []game.Guess `json:"guess_scores"`
	Graph       *game.Graph  `json:"graph"`
	Provider    string       `json:"provider"`
}

func (s *Server) handleRescore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	sc, err := s.scorers.Get(req.Provider)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	sess, err := s.session(w, r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	scores, err := sess.Rescore(r.Context(), sc)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	g, err := sess.Graph(r.Context(), sc)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if scores == nil {
		scores = []game.Guess{}
	}
	writeJSON(w, http.StatusOK, rescoreRes{GuessScores: scores, Graph: g, Provider: sc.ProviderName()})
}

type examplePair struct {
	Word1         string `json:"word1"`
	Word2         string `json:"word2"`
	Description   string `json:"description,omitempty"`
	Score         int    `json:"score"`
	DistanceScore int    `json:"distance_score"`
	Unscored      bool   `json:"unscored,omitempty"`
}

// handleExamples scores the static example pairs for a mode. It reads no
// session state.
func (s *Server) handleExamples(w http.ResponseWriter, r *http.Request) {
	mode, err := game.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	sc, err := s.scorers.Get(r.URL.Query().Get("provider"))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	out := []examplePair{}
	for _, p := range s.examples.For(string(mode)) {
		score, err := sc.Score(r.Context(), p.Words[0], p.Words[1])
		ex := examplePair{
			Word1:         p.Words[0],
			Word2:         p.Words[1],
			Description:   p.Description,
			Score:         score,
			DistanceScore: 100 - score,
		}
		switch {
		case err == nil:
		case errors.Is(err, similarity.ErrUnknownWord):
			if s.opts.UnknownWords == game.UnknownReject {
				continue
			}
			ex.Score, ex.DistanceScore, ex.Unscored = 0, 0, true
		default:
			writeErr(w, r, err)
			return
		}
		out = append(out, ex)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"examples": out,
		"mode":     mode,
		"provider": sc.ProviderName(),
	})
}

func (s *Server) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n := 10
	if v := q.Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeErr(w, r, &game.InvalidInputError{Field: "n", Message: "n must be a positive integer"})
			return
		}
		n = min(parsed, maxNeighbors)
	}
	sc, err := s.scorers.Get(q.Get("provider"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	list, err := sc.Neighbors(r.Context(), q.Get("word"), n)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if list == nil {
		list = []similarity.Neighbor{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"word":      similarity.Normalize(q.Get("word")),
		"provider":  sc.ProviderName(),
		"neighbors": list,
	})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	scaling := map[string]similarity.Scaling{}
	for _, name := range s.scorers.Names() {
		if sc, err := s.scorers.Get(name); err == nil {
			scaling[name] = sc.Scaling()
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": s.scorers.Names(),
		"default":   s.scorers.DefaultName(),
		"scaling":   scaling,
	})
}
