package similarity

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// AdjustmentsFile is the YAML layout of a pair-override file:
//
//	adjustments:
//	  - words: [umami, taste]
//	    similarity: 0.75
type AdjustmentsFile struct {
	Adjustments []Adjustment `yaml:"adjustments"`
}

// Adjustment pins the raw similarity of one unordered word pair.
type Adjustment struct {
	Words      [2]string `yaml:"words"`
	Similarity float64   `yaml:"similarity"`
}

// Adjusted overlays hand-tuned pair similarities on another provider.
// Pairs not listed fall through to the wrapped provider.
type Adjusted struct {
	Provider
	pairs map[[2]string]float64
}

// LoadAdjustments reads an adjustments file from disk.
func LoadAdjustments(path string) ([]Adjustment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open adjustments %s: %w", path, err)
	}
	defer f.Close()
	return ParseAdjustments(f)
}

// ParseAdjustments decodes YAML adjustments and validates the values.
func ParseAdjustments(r io.Reader) ([]Adjustment, error) {
	var file AdjustmentsFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode adjustments: %w", err)
	}
	for i, a := range file.Adjustments {
		if Normalize(a.Words[0]) == "" || Normalize(a.Words[1]) == "" {
			return nil, fmt.Errorf("adjustment %d: both words are required", i)
		}
		if a.Similarity < -1 || a.Similarity > 1 {
			return nil, fmt.Errorf("adjustment %d: similarity %v outside [-1, 1]", i, a.Similarity)
		}
	}
	return file.Adjustments, nil
}

// NewAdjusted wraps p with the given overrides. The wrapper keeps p's name.
func NewAdjusted(p Provider, adjustments []Adjustment) *Adjusted {
	a := &Adjusted{Provider: p, pairs: make(map[[2]string]float64, len(adjustments))}
	for _, adj := range adjustments {
		a.pairs[pairKey(Normalize(adj.Words[0]), Normalize(adj.Words[1]))] = adj.Similarity
	}
	return a
}

// Similarity implements Provider.
func (a *Adjusted) Similarity(ctx context.Context, x, y string) (float64, error) {
	if v, ok := a.pairs[pairKey(Normalize(x), Normalize(y))]; ok {
		return v, nil
	}
	return a.Provider.Similarity(ctx, x, y)
}

// Known forwards to the wrapped provider when it has a closed vocabulary.
func (a *Adjusted) Known(ctx context.Context, word string) (bool, error) {
	if v, ok := a.Provider.(Vocabulary); ok {
		return v.Known(ctx, word)
	}
	return true, nil
}

// Neighbors forwards to the wrapped provider when it supports listings.
func (a *Adjusted) Neighbors(ctx context.Context, word string, n int) ([]Neighbor, error) {
	if nb, ok := a.Provider.(Neighborer); ok {
		return nb.Neighbors(ctx, word, n)
	}
	return nil, ErrNoNeighbors
}

// pairKey orders a pair so lookups are symmetric.
func pairKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}
