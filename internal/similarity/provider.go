// Package similarity scores guesses against a secret word.
//
// A Provider supplies raw similarity in [-1, 1] between two words (cosine
// similarity over embeddings, or a relatedness API). A Scorer turns that raw
// value into the integer game score in [0, 100] using a configurable scaling
// policy, forces exact matches to 100 and caches results.
package similarity

import (
	"context"
	"errors"
	"strings"
)

// Provider computes raw similarity between two words.
// Implementations return an error matching ErrUnknownWord when a word is
// outside their vocabulary.
type Provider interface {
	Name() string
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// Vocabulary is implemented by providers with a closed vocabulary.
type Vocabulary interface {
	Known(ctx context.Context, word string) (bool, error)
}

// Neighborer is implemented by providers that can list a word's nearest
// vocabulary entries, best first, excluding the word itself.
type Neighborer interface {
	Neighbors(ctx context.Context, word string, n int) ([]Neighbor, error)
}

// Neighbor is one entry of a nearest-neighbour listing.
type Neighbor struct {
	Word       string  `json:"word"`
	Similarity float64 `json:"similarity"`
}

// ErrUnknownWord is the sentinel for words a provider cannot score.
var ErrUnknownWord = &UnknownWordError{}

// UnknownWordError reports a word outside a provider's vocabulary.
type UnknownWordError struct {
	Word     string
	Provider string
}

func (e *UnknownWordError) Error() string {
	if e.Word == "" {
		return "unknown word"
	}
	return `"` + e.Word + `" is not in the vocabulary`
}

// Is matches any *UnknownWordError.
func (e *UnknownWordError) Is(target error) bool {
	_, ok := target.(*UnknownWordError)
	return ok
}

var (
	// ErrProviderUnavailable wraps transport or upstream failures of remote providers.
	ErrProviderUnavailable = errors.New("similarity: provider unavailable")
	// ErrNoNeighbors is returned when the provider cannot list neighbours.
	ErrNoNeighbors = errors.New("similarity: provider does not support neighbours")
)

// Normalize lower-cases and trims a word. All comparisons use normalized words.
func Normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}
