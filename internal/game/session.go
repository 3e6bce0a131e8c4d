package game

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/semantle/internal/similarity"
)

// now is swapped in tests.
var now = time.Now

// eliminationThreshold is the similarity below which an antisemantle guess
// counts as an eliminated concept.
const eliminationThreshold = 30

// NewSession creates an empty session in StateNoSecret.
func NewSession(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{id: id, mode: ModeSemantle, lastSeen: now()}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Touch records activity at t.
func (s *Session) Touch(t time.Time) {
	s.mu.Lock()
	s.lastSeen = t
	s.mu.Unlock()
}

// LastSeen reports the last recorded activity.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Provider returns the provider name the current round is scored with.
func (s *Session) Provider() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider
}

// Mode returns the current round's mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetSecret starts a new round with word as the secret. History is reset.
// The word must be known to sc when its provider has a closed vocabulary.
func (s *Session) SetSecret(ctx context.Context, sc Scorer, word string, mode Mode) error {
	word = similarity.Normalize(word)
	if word == "" {
		return invalid("word", "word is required")
	}
	if strings.ContainsAny(word, " \t") {
		return invalid("word", "word must be a single word")
	}
	known, err := sc.Known(ctx, word)
	if err != nil {
		return err
	}
	if !known {
		return &similarity.UnknownWordError{Word: word, Provider: sc.ProviderName()}
	}
	if mode == "" {
		mode = ModeSemantle
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.secret = word
	s.mode = mode
	s.provider = sc.ProviderName()
	s.guesses = nil
	s.startedAt = now()
	s.foundAt = time.Time{}
	s.dailyDate = ""
	s.roundID = uuid.NewString()
	return nil
}

// StartDaily starts the daily round for date with the given secret.
func (s *Session) StartDaily(ctx context.Context, sc Scorer, word string, mode Mode, date string) error {
	if err := s.SetSecret(ctx, sc, word, mode); err != nil {
		return err
	}
	s.mu.Lock()
	s.dailyDate = date
	s.mu.Unlock()
	return nil
}

func (s *Session) state() State {
	switch {
	case s.secret == "":
		return StateNoSecret
	case !s.foundAt.IsZero():
		return StateFound
	case len(s.guesses) == 0:
		return StateSecretSet
	default:
		return StateGuessing
	}
}

// State reports the round lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

// Guess scores word against the secret and appends it to the history.
// Rejected guesses leave the session unchanged.
func (s *Session) Guess(ctx context.Context, sc Scorer, word string, policy UnknownPolicy) (*Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state() {
	case StateNoSecret:
		return nil, invalid("guess", "no word set yet")
	case StateFound:
		return nil, invalid("guess", "the word was already found, set a new word to play again")
	}
	word = similarity.Normalize(word)
	if word == "" {
		return nil, invalid("guess", "guess is required")
	}
	for _, g := range s.guesses {
		if g.Word == word {
			return nil, invalid("guess", fmt.Sprintf("%q was already guessed", word))
		}
	}

	g := Guess{Word: word, Timestamp: now()}
	score, err := sc.Score(ctx, s.secret, word)
	switch {
	case err == nil:
		g.Score = score
	case errors.Is(err, similarity.ErrUnknownWord) && policy == UnknownFlag:
		g.Unscored = true
	default:
		return nil, err
	}

	s.guesses = append(s.guesses, g)
	found := word == s.secret
	if found {
		s.foundAt = g.Timestamp
	}
	return s.outcome(g, found), nil
}

func (s *Session) outcome(g Guess, found bool) *Outcome {
	out := &Outcome{
		Guess:      g.Word,
		Score:      g.Score,
		GuessCount: len(s.guesses),
		Found:      found,
		Unscored:   g.Unscored,
		BestGuess:  s.bestGuess(),
	}

	if s.mode == ModeAntisemantle {
		distance := 100 - g.Score
		if g.Unscored {
			distance = 0
		}
		out.DistanceScore = &distance
		out.Tier, out.Feedback = AntisemantleFeedback(distance, found)
		elim := s.eliminationScore()
		out.EliminationScore = &elim
		out.EliminatedConcepts = s.eliminated(5)
	} else {
		out.Tier, out.Feedback = SemantleFeedback(g.Score, found)
	}
	if g.Unscored {
		out.Feedback = fmt.Sprintf("%q is not in the %s vocabulary, so it could not be scored", g.Word, s.provider)
	}

	if found {
		out.SecretWord = s.secret
		taken := math.Round(s.foundAt.Sub(s.startedAt).Seconds())
		out.TimeTaken = &taken
	}
	return out
}

// bestGuess is the closest non-winning scored guess in semantle and the most
// distant one in antisemantle.
func (s *Session) bestGuess() *Guess {
	var best *Guess
	for i := range s.guesses {
		g := &s.guesses[i]
		if g.Unscored || g.Word == s.secret {
			continue
		}
		if best == nil ||
			(s.mode == ModeAntisemantle && g.Score < best.Score) ||
			(s.mode != ModeAntisemantle && g.Score > best.Score) {
			best = g
		}
	}
	if best == nil {
		return nil
	}
	cp := *best
	return &cp
}

// eliminationScore is 100 minus the mean similarity of scored guesses.
func (s *Session) eliminationScore() int {
	var sum, n int
	for _, g := range s.guesses {
		if g.Unscored {
			continue
		}
		sum += g.Score
		n++
	}
	if n == 0 {
		return 0
	}
	return 100 - int(math.Round(float64(sum)/float64(n)))
}

// eliminated returns up to the last limit scored guesses with low similarity.
func (s *Session) eliminated(limit int) []string {
	var out []string
	for _, g := range s.guesses {
		if !g.Unscored && g.Score < eliminationThreshold {
			out = append(out, g.Word)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Rescore recomputes every guess with sc and switches the round to its
// provider. Guesses sc cannot score are kept and marked unscored. Nothing
// changes when any other error occurs.
func (s *Session) Rescore(ctx context.Context, sc Scorer) ([]Guess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.secret == "" {
		return nil, invalid("provider", "no word set yet")
	}

	known, err := sc.Known(ctx, s.secret)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, &similarity.UnknownWordError{Word: s.secret, Provider: sc.ProviderName()}
	}

	next := make([]Guess, len(s.guesses))
	for i, g := range s.guesses {
		score, err := sc.Score(ctx, s.secret, g.Word)
		switch {
		case err == nil:
			g.Score, g.Unscored = score, false
		case errors.Is(err, similarity.ErrUnknownWord):
			g.Score, g.Unscored = 0, true
		default:
			return nil, err
		}
		next[i] = g
	}
	s.guesses = next
	s.provider = sc.ProviderName()
	return append([]Guess(nil), next...), nil
}

// Hint returns progressively more revealing text about the secret.
func (s *Session) Hint() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.secret == "" {
		return "", invalid("hint", "no word set yet")
	}
	if s.mode == ModeAntisemantle {
		return s.antisemantleHint(), nil
	}
	return ProgressiveHint(s.secret, len(s.guesses)), nil
}

// ProgressiveHint reveals the length, then one, two and three leading letters
// as the guess count passes 10, 20 and 30.
func ProgressiveHint(secret string, guessCount int) string {
	r := []rune(secret)
	prefix := func(n int) string {
		if n > len(r) {
			n = len(r)
		}
		return string(r[:n])
	}
	switch {
	case guessCount < 10:
		return fmt.Sprintf("The word has %d letters", len(r))
	case guessCount < 20:
		return fmt.Sprintf("The word starts with '%s'", prefix(1))
	case guessCount < 30:
		return fmt.Sprintf("The word starts with '%s'", prefix(2))
	default:
		return fmt.Sprintf("The word is '%s...'", prefix(3))
	}
}

func (s *Session) antisemantleHint() string {
	if len(s.guesses) < 5 {
		return "Make at least 5 guesses first!"
	}
	far := s.eliminated(3)
	if len(far) == 0 {
		return "None of your guesses are semantically distant yet"
	}
	return "The word is semantically distant from: " + strings.Join(far, ", ")
}

// Snapshot returns a copy of the session state. The secret is included only
// once found.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:         s.id,
		Mode:       s.mode,
		Provider:   s.provider,
		State:      s.state(),
		Guesses:    append([]Guess(nil), s.guesses...),
		GuessCount: len(s.guesses),
		StartedAt:  s.startedAt,
		FoundAt:    s.foundAt,
		DailyDate:  s.dailyDate,
		RoundID:    s.roundID,
	}
	if s.secret != "" {
		snap.SecretLength = len([]rune(s.secret))
	}
	if snap.State == StateFound {
		snap.Secret = s.secret
	}
	return snap
}
