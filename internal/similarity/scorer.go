package similarity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/robalobadob/semantle/internal/cache"
	"github.com/robalobadob/semantle/internal/metrics"
)

// Scaling selects how raw similarity is turned into a game score.
type Scaling string

const (
	// ScalingLinear floors cosine at 0 and multiplies by 100.
	ScalingLinear Scaling = "linear"
	// ScalingShifted maps [-1, 1] onto [0, 100]. Suits relatedness APIs.
	ScalingShifted Scaling = "shifted"
	// ScalingRelative rescales against the secret's nearest vocabulary neighbour.
	ScalingRelative Scaling = "relative"
)

// ErrEmptyWord is returned when either side of a comparison is blank.
var ErrEmptyWord = errors.New("similarity: empty word")

// ParseScaling validates a scaling name. Empty selects ScalingLinear.
func ParseScaling(s string) (Scaling, error) {
	switch Scaling(s) {
	case "", ScalingLinear:
		return ScalingLinear, nil
	case ScalingShifted, ScalingRelative:
		return Scaling(s), nil
	}
	return "", fmt.Errorf("unknown scaling %q (want linear, shifted or relative)", s)
}

type wordPair struct{ a, b string }

// Scorer turns provider similarity into integer scores in [0, 100].
// Only an exact match scores 100. Raw similarities and nearest-neighbour
// values are cached; concurrent misses for the same key share one lookup.
type Scorer struct {
	provider Provider
	scaling  Scaling
	pairs    *cache.LoaderCache[wordPair, float64]
	nearest  *cache.LoaderCache[string, float64]
}

// NewScorer builds a scorer over p. cacheSize bounds each of the two caches.
func NewScorer(p Provider, scaling Scaling, cacheSize int) (*Scorer, error) {
	if cacheSize <= 0 {
		cacheSize = 10000
	}
	name := p.Name()
	pairs, err := cache.New[wordPair, float64](cacheSize, func(k wordPair) string {
		return name + "\x00" + k.a + "\x00" + k.b
	})
	if err != nil {
		return nil, fmt.Errorf("pair cache: %w", err)
	}
	nearest, err := cache.New[string, float64](cacheSize, func(k string) string {
		return name + "\x00" + k
	})
	if err != nil {
		return nil, fmt.Errorf("nearest cache: %w", err)
	}
	return &Scorer{provider: p, scaling: scaling, pairs: pairs, nearest: nearest}, nil
}

// ProviderName is the name of the underlying provider.
func (s *Scorer) ProviderName() string { return s.provider.Name() }

// Scaling reports the configured scaling policy.
func (s *Scorer) Scaling() Scaling { return s.scaling }

// Score compares guess b against reference word a (the secret).
func (s *Scorer) Score(ctx context.Context, a, b string) (int, error) {
	a, b = Normalize(a), Normalize(b)
	if a == "" || b == "" {
		return 0, ErrEmptyWord
	}
	if a == b {
		return 100, nil
	}
	raw, err := s.Raw(ctx, a, b)
	if err != nil {
		return 0, err
	}

	switch s.scaling {
	case ScalingShifted:
		return capScore((raw + 1) * 50), nil
	case ScalingRelative:
		top, err := s.nearestSimilarity(ctx, a)
		if err != nil && !errors.Is(err, ErrNoNeighbors) {
			return 0, err
		}
		if err != nil || top <= 0 {
			return capScore(math.Max(0, raw) * 99), nil
		}
		return capScore(math.Max(1, math.Round(raw/top*99))), nil
	default:
		return capScore(math.Max(0, raw) * 100), nil
	}
}

// Raw returns the provider similarity of a and b, using the pair cache.
func (s *Scorer) Raw(ctx context.Context, a, b string) (float64, error) {
	a, b = Normalize(a), Normalize(b)
	if a == "" || b == "" {
		return 0, ErrEmptyWord
	}
	if a == b {
		return 1, nil
	}
	if b < a {
		a, b = b, a
	}
	v, hit, err := s.pairs.GetWithStats(ctx, wordPair{a, b}, func(ctx context.Context, k wordPair) (float64, error) {
		return s.lookup(ctx, k.a, k.b)
	})
	s.recordLookup(hit, err)
	return v, err
}

func (s *Scorer) lookup(ctx context.Context, a, b string) (float64, error) {
	name := s.provider.Name()
	start := time.Now()
	v, err := s.provider.Similarity(ctx, a, b)
	metrics.ProviderLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, ErrUnknownWord):
		metrics.ProviderErrors.WithLabelValues(name, "unknown_word").Inc()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		metrics.ProviderErrors.WithLabelValues(name, "canceled").Inc()
	default:
		metrics.ProviderErrors.WithLabelValues(name, "unavailable").Inc()
	}
	return 0, err
}

func (s *Scorer) recordLookup(hit bool, err error) {
	if err != nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	metrics.ScoreCacheLookups.WithLabelValues(s.provider.Name(), result).Inc()
}

func (s *Scorer) nearestSimilarity(ctx context.Context, word string) (float64, error) {
	return s.nearest.Get(ctx, word, func(ctx context.Context, w string) (float64, error) {
		list, err := s.Neighbors(ctx, w, 1)
		if err != nil {
			return 0, err
		}
		if len(list) == 0 {
			return 0, nil
		}
		return list[0].Similarity, nil
	})
}

// Known reports whether word can be scored. Providers without a closed
// vocabulary accept every non-empty word.
func (s *Scorer) Known(ctx context.Context, word string) (bool, error) {
	word = Normalize(word)
	if word == "" {
		return false, nil
	}
	if v, ok := s.provider.(Vocabulary); ok {
		return v.Known(ctx, word)
	}
	return true, nil
}

// Neighbors lists the n closest vocabulary words to word.
func (s *Scorer) Neighbors(ctx context.Context, word string, n int) ([]Neighbor, error) {
	nb, ok := s.provider.(Neighborer)
	if !ok {
		return nil, ErrNoNeighbors
	}
	word = Normalize(word)
	if word == "" {
		return nil, ErrEmptyWord
	}
	if n <= 0 {
		n = 10
	}
	return nb.Neighbors(ctx, word, n)
}

// capScore rounds v and clamps it to [0, 99].
func capScore(v float64) int {
	r := int(math.Round(v))
	if r < 0 {
		return 0
	}
	if r > 99 {
		return 99
	}
	return r
}
