// Package words manages the secret word candidates and the static example
// pairs shown on the examples page.
//
// Lists come from WORDS_FILE when configured, otherwise from the embedded
// defaults in the assets package. Words are normalized to lowercase and
// must be a single alphabetic token.
package words

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/robalobadob/semantle/assets"
)

// ErrEmptyList is returned when no usable secret candidates were loaded.
var ErrEmptyList = errors.New("words: secret list is empty")

// List is an immutable set of secret word candidates.
type List struct {
	words []string
	set   map[string]struct{}
}

// Load reads candidates from path, or from the embedded list when path is empty.
func Load(path string) (*List, error) {
	var (
		raw []string
		err error
	)
	if path == "" {
		raw, err = assets.SecretsList()
	} else {
		raw, err = readWordFile(path)
	}
	if err != nil {
		return nil, err
	}
	return NewList(raw)
}

// NewList filters raw to valid words, dropping duplicates.
func NewList(raw []string) (*List, error) {
	l := &List{set: make(map[string]struct{}, len(raw))}
	for _, w := range raw {
		w = strings.ToLower(strings.TrimSpace(w))
		if !isWord(w) {
			continue
		}
		if _, dup := l.set[w]; dup {
			continue
		}
		l.set[w] = struct{}{}
		l.words = append(l.words, w)
	}
	if len(l.words) == 0 {
		return nil, ErrEmptyList
	}
	return l, nil
}

func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open words file: %w", err)
	}
	defer f.Close()
	return assets.ReadLines(f)
}

// isWord reports whether s is a single run of lowercase letters.
func isWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// Random returns a cryptographically random candidate.
func (l *List) Random() string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(l.words))))
	if err != nil {
		return l.words[0]
	}
	return l.words[n.Int64()]
}

// At returns the candidate at index i modulo the list length.
func (l *List) At(i int) string {
	if i < 0 {
		i = -i
	}
	return l.words[i%len(l.words)]
}

// Contains reports whether w is a candidate.
func (l *List) Contains(w string) bool {
	_, ok := l.set[strings.ToLower(strings.TrimSpace(w))]
	return ok
}

// Len is the number of candidates.
func (l *List) Len() int { return len(l.words) }

// Words returns a copy of the candidates in file order.
func (l *List) Words() []string {
	return append([]string(nil), l.words...)
}
