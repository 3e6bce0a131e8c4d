package similarity

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownProvider is returned when a provider name is not configured.
var ErrUnknownProvider = errors.New("similarity: unknown provider")

// Registry holds the scorers a server was started with, keyed by provider name.
type Registry struct {
	scorers map[string]*Scorer
	def     string
}

// NewRegistry indexes scorers by ProviderName. def must be one of them.
func NewRegistry(def string, scorers ...*Scorer) (*Registry, error) {
	if len(scorers) == 0 {
		return nil, errors.New("similarity: no providers configured")
	}
	r := &Registry{scorers: make(map[string]*Scorer, len(scorers)), def: def}
	for _, s := range scorers {
		name := s.ProviderName()
		if _, dup := r.scorers[name]; dup {
			return nil, fmt.Errorf("similarity: provider %q registered twice", name)
		}
		r.scorers[name] = s
	}
	if r.def == "" {
		r.def = scorers[0].ProviderName()
	}
	if _, ok := r.scorers[r.def]; !ok {
		return nil, fmt.Errorf("%w: default %q", ErrUnknownProvider, r.def)
	}
	return r, nil
}

// Get returns the scorer for name; empty selects the default.
func (r *Registry) Get(name string) (*Scorer, error) {
	if name == "" {
		name = r.def
	}
	s, ok := r.scorers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return s, nil
}

// Default returns the default scorer.
func (r *Registry) Default() *Scorer { return r.scorers[r.def] }

// DefaultName is the default provider's name.
func (r *Registry) DefaultName() string { return r.def }

// Names lists configured providers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scorers))
	for n := range r.scorers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
