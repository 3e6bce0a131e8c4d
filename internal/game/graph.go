package game

import (
	"context"
	"errors"
	"slices"

	"github.com/robalobadob/semantle/internal/similarity"
)

// SecretNodeID identifies the secret in a Graph. Guess IDs carry the
// guessNodePrefix, so no guess can take it.
const SecretNodeID = "secret"

const guessNodePrefix = "g:"

// GuessNodeID is the node ID of a guessed word.
func GuessNodeID(word string) string { return guessNodePrefix + word }

// Node is a graph vertex: the secret or one guess.
type Node struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Score    int    `json:"score"`
	IsSecret bool   `json:"isTarget"`
	Unscored bool   `json:"unscored,omitempty"`
}

// Link joins a guess to its most similar other node.
type Link struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	Similarity int    `json:"value"`
}

// Graph is the guess relationship graph.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Graph builds the relationship graph from scratch. Every guess links to the
// node, secret included, it is most similar to. The secret has no outgoing
// link and is labelled "?" until found; the winning guess is folded into it.
func (s *Session) Graph(ctx context.Context, sc Scorer) (*Graph, error) {
	s.mu.Lock()
	secret := s.secret
	found := !s.foundAt.IsZero()
	guesses := append([]Guess(nil), s.guesses...)
	s.mu.Unlock()

	g := &Graph{Nodes: []Node{}, Links: []Link{}}
	if secret == "" {
		return g, nil
	}
	label := "?"
	if found {
		label = secret
		guesses = slices.DeleteFunc(guesses, func(gs Guess) bool { return gs.Word == secret })
	}
	g.Nodes = append(g.Nodes, Node{ID: SecretNodeID, Label: label, Score: 100, IsSecret: true})
	for _, gs := range guesses {
		g.Nodes = append(g.Nodes, Node{ID: GuessNodeID(gs.Word), Label: gs.Word, Score: gs.Score, Unscored: gs.Unscored})
	}

	for i, gs := range guesses {
		best, bestScore := SecretNodeID, gs.Score
		if gs.Unscored {
			bestScore = -1
		}
		for j, other := range guesses {
			if i == j {
				continue
			}
			v, err := pairScore(ctx, sc, gs, other)
			if err != nil {
				return nil, err
			}
			if v > bestScore {
				best, bestScore = GuessNodeID(other.Word), v
			}
		}
		if bestScore < 0 {
			bestScore = 0
		}
		g.Links = append(g.Links, Link{Source: GuessNodeID(gs.Word), Target: best, Similarity: bestScore})
	}
	return g, nil
}

// pairScore compares two guesses. Pairs involving an unscored word rank
// below every scored pair.
func pairScore(ctx context.Context, sc Scorer, a, b Guess) (int, error) {
	if a.Unscored || b.Unscored {
		return -1, nil
	}
	v, err := sc.Score(ctx, a.Word, b.Word)
	if errors.Is(err, similarity.ErrUnknownWord) {
		return -1, nil
	}
	return v, err
}
