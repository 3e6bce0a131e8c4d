// Package game holds the per-player guessing session: the secret word, the
// guess history and everything derived from it (feedback tiers, hints, the
// relationship graph and antisemantle elimination stats).
package game

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mode selects the game variant.
type Mode string

const (
	// ModeSemantle rewards guesses close to the secret.
	ModeSemantle Mode = "semantle"
	// ModeAntisemantle rewards guesses far from the secret.
	ModeAntisemantle Mode = "antisemantle"
)

// ParseMode validates a mode name. Empty selects ModeSemantle.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeSemantle:
		return ModeSemantle, nil
	case ModeAntisemantle:
		return ModeAntisemantle, nil
	}
	return "", &InvalidInputError{Field: "mode", Message: fmt.Sprintf("unknown mode %q", s)}
}

// State is the session's position in the round lifecycle.
type State string

const (
	StateNoSecret  State = "no_secret"
	StateSecretSet State = "secret_set"
	StateGuessing  State = "guessing"
	StateFound     State = "found"
)

// UnknownPolicy decides what happens to guesses the provider cannot score.
type UnknownPolicy string

const (
	// UnknownReject refuses the guess; it is not counted.
	UnknownReject UnknownPolicy = "reject"
	// UnknownFlag accepts the guess with score 0 and marks it unscored.
	UnknownFlag UnknownPolicy = "flag"
)

// ParseUnknownPolicy validates a policy name. Empty selects UnknownReject.
func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch UnknownPolicy(s) {
	case "", UnknownReject:
		return UnknownReject, nil
	case UnknownFlag:
		return UnknownFlag, nil
	}
	return "", fmt.Errorf("unknown words policy %q (want reject or flag)", s)
}

// Scorer is the similarity capability a session needs.
// *similarity.Scorer satisfies it.
type Scorer interface {
	ProviderName() string
	Score(ctx context.Context, a, b string) (int, error)
	Known(ctx context.Context, word string) (bool, error)
}

// Guess is one accepted guess. Score is the similarity score in [0, 100].
type Guess struct {
	Word      string    `json:"word"`
	Score     int       `json:"score"`
	Unscored  bool      `json:"unscored,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one player's game. All exported methods are safe for
// concurrent use; fields must only be read through Snapshot.
type Session struct {
	mu sync.Mutex

	id        string
	mode      Mode
	provider  string
	secret    string
	guesses   []Guess
	startedAt time.Time
	foundAt   time.Time
	dailyDate string
	roundID   string
	lastSeen  time.Time
}

// Snapshot is a consistent copy of a session's state.
type Snapshot struct {
	ID         string    `json:"id"`
	Mode       Mode      `json:"mode"`
	Provider   string    `json:"provider"`
	State      State     `json:"state"`
	Guesses    []Guess   `json:"guesses"`
	GuessCount int       `json:"guess_count"`
	StartedAt  time.Time `json:"started_at"`
	FoundAt    time.Time `json:"found_at,omitempty"`
	DailyDate  string    `json:"daily_date,omitempty"`
	RoundID    string    `json:"round_id,omitempty"`
	// Secret is only set once the round is found.
	Secret string `json:"secret_word,omitempty"`
	// SecretLength is set whenever a secret exists.
	SecretLength int `json:"secret_length,omitempty"`
}

// Outcome is the result of one accepted guess.
type Outcome struct {
	Guess      string `json:"guess"`
	Score      int    `json:"score"`
	Feedback   string `json:"feedback"`
	Tier       Tier   `json:"tier"`
	GuessCount int    `json:"guess_count"`
	Found      bool   `json:"found"`
	Unscored   bool   `json:"unscored,omitempty"`

	DistanceScore      *int     `json:"distance_score,omitempty"`
	EliminationScore   *int     `json:"elimination_score,omitempty"`
	EliminatedConcepts []string `json:"eliminated_concepts,omitempty"`

	BestGuess  *Guess   `json:"best_guess,omitempty"`
	SecretWord string   `json:"secret_word,omitempty"`
	TimeTaken  *float64 `json:"time_taken,omitempty"`
}
