package daily

import (
	"context"
	"database/sql"
)

// Result is one player's finished daily round.
type Result struct {
	UserID    string `json:"userId"`
	Date      string `json:"date"`
	Mode      string `json:"mode"`
	WordIndex int    `json:"wordIndex"`
	Provider  string `json:"provider"`
	Guesses   int    `json:"guesses"`
	ElapsedMs int    `json:"elapsedMs"`
}

// Store persists daily results in the daily_results table.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// AlreadyPlayed reports whether userID finished the daily round for date and mode.
func (s *Store) AlreadyPlayed(ctx context.Context, userID, date, mode string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM daily_results WHERE user_id=? AND date=? AND mode=?`,
		userID, date, mode,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult records a result. A second result for the same player, date
// and mode is ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(user_id, date, mode, word_index, provider, guesses, elapsed_ms)
		 VALUES(?,?,?,?,?,?,?)`,
		r.UserID, r.Date, r.Mode, r.WordIndex, r.Provider, r.Guesses, r.ElapsedMs,
	)
	return err
}

// LBRow is one leaderboard entry. Username is empty for guests.
type LBRow struct {
	UserID    string `json:"userId"`
	Username  string `json:"username,omitempty"`
	Guesses   int    `json:"guesses"`
	ElapsedMs int    `json:"elapsedMs"`
}

// Leaderboard returns the fastest results for date and mode, fewest guesses
// breaking ties.
func (s *Store) Leaderboard(ctx context.Context, date, mode string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.user_id, COALESCE(u.username, ''), d.guesses, d.elapsed_ms
		 FROM daily_results d
		 LEFT JOIN users u ON u.id = d.user_id
		 WHERE d.date=? AND d.mode=?
		 ORDER BY d.elapsed_ms ASC, d.guesses ASC, d.created_at ASC
		 LIMIT ?`, date, mode, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.UserID, &r.Username, &r.Guesses, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
