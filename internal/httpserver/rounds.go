package httpserver

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/semantle/internal/daily"
	"github.com/robalobadob/semantle/internal/game"
)

// player identifies who a round belongs to: a signed-in user or, failing
// that, the browser's session id.
type player struct {
	userID string
	anonID string
}

func playerFor(ctx context.Context, sess *game.Session) player {
	if u := userFrom(ctx); u != nil {
		return player{userID: u.ID}
	}
	return player{anonID: sess.ID()}
}

// id is the key used for per-player rows that have no separate anonymous column.
func (p player) id() string {
	if p.userID != "" {
		return p.userID
	}
	return p.anonID
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// startRound abandons the player's unfinished round, if any, and records the
// session's new one.
func (s *Server) startRound(ctx context.Context, p player, prev game.Snapshot, next game.Snapshot) {
	if prev.RoundID != "" && prev.State != game.StateFound {
		s.abandonRound(ctx, p, prev.RoundID)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rounds (id, user_id, anonymous_id, mode, provider, daily_date, status, guesses, started_at)
		 VALUES (?,?,?,?,?,?, 'playing', 0, ?)`,
		next.RoundID, nullable(p.userID), nullable(p.anonID), string(next.Mode), next.Provider,
		nullable(next.DailyDate), next.StartedAt.UTC().Format(time.RFC3339))
	if err != nil {
		log.Warn().Err(err).Str("round", next.RoundID).Msg("insert round")
	}
}

// abandonRound closes a round that was replaced before being solved. It
// counts as played and breaks the user's streak.
func (s *Server) abandonRound(ctx context.Context, p player, roundID string) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rounds SET status='abandoned', finished_at=? WHERE id=? AND status='playing'`,
		nowUTC(), roundID)
	if err != nil {
		log.Warn().Err(err).Str("round", roundID).Msg("abandon round")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 || p.userID == "" {
		return
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET rounds_played = rounds_played + 1, streak = 0 WHERE id=?`, p.userID); err != nil {
		log.Warn().Err(err).Str("user", p.userID).Msg("bump stats")
	}
}

// recordGuess stores the round's guess count and, when the secret was found,
// finishes the round, bumps user stats and saves the daily result.
func (s *Server) recordGuess(ctx context.Context, p player, snap game.Snapshot, out *game.Outcome) {
	if snap.RoundID == "" {
		return
	}
	if !out.Found {
		if _, err := s.db.ExecContext(ctx, `UPDATE rounds SET guesses=? WHERE id=?`, out.GuessCount, snap.RoundID); err != nil {
			log.Warn().Err(err).Str("round", snap.RoundID).Msg("update round")
		}
		return
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE rounds SET guesses=?, status='won', finished_at=? WHERE id=?`,
		out.GuessCount, nowUTC(), snap.RoundID); err != nil {
		log.Warn().Err(err).Str("round", snap.RoundID).Msg("finish round")
	}
	if p.userID != "" {
		s.bumpStats(ctx, p.userID, out.GuessCount)
	}
	if snap.DailyDate != "" {
		s.saveDailyResult(ctx, p, snap, out.GuessCount)
	}
}

// bumpStats updates rounds_played, wins, streak and best_guesses after a win.
func (s *Server) bumpStats(ctx context.Context, userID string, guesses int) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET
		  rounds_played = rounds_played + 1,
		  wins = wins + 1,
		  streak = streak + 1,
		  best_guesses = CASE
		    WHEN best_guesses IS NULL OR ? < best_guesses THEN ?
		    ELSE best_guesses
		  END
		WHERE id = ?`, guesses, guesses, userID)
	if err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("bump stats")
	}
}

func (s *Server) saveDailyResult(ctx context.Context, p player, snap game.Snapshot, guesses int) {
	var idx int
	if d, err := time.Parse("2006-01-02", snap.DailyDate); err == nil {
		idx = daily.WordIndex(d, s.picker.Salt, string(snap.Mode), s.words.Len())
	}
	elapsed := snap.FoundAt.Sub(snap.StartedAt).Milliseconds()
	err := s.daily.InsertResult(ctx, daily.Result{
		UserID:    p.id(),
		Date:      snap.DailyDate,
		Mode:      string(snap.Mode),
		WordIndex: idx,
		Provider:  snap.Provider,
		Guesses:   guesses,
		ElapsedMs: int(elapsed),
	})
	if err != nil {
		log.Warn().Err(err).Str("date", snap.DailyDate).Msg("insert daily result")
	}
}
