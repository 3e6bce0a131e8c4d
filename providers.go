package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/semantle/assets"
	"github.com/robalobadob/semantle/internal/config"
	"github.com/robalobadob/semantle/internal/similarity"
)

// loadVectors reads the static model from path, or the embedded vectors when
// path is empty.
func loadVectors(path string) (*similarity.Vectors, error) {
	if path != "" {
		return similarity.LoadVectorsFile(config.ProviderVectors, path)
	}
	f, err := assets.Open(assets.VectorsFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return similarity.LoadVectors(config.ProviderVectors, f)
}

// buildProvider constructs one named provider. The returned func releases
// its resources.
func buildProvider(ctx context.Context, cfg *config.Config, name string) (similarity.Provider, func(), error) {
	noop := func() {}
	switch name {
	case config.ProviderVectors:
		v, err := loadVectors(cfg.VectorsFile)
		if err != nil {
			return nil, noop, fmt.Errorf("load vectors: %w", err)
		}
		log.Info().Int("words", v.Len()).Int("dim", v.Dim()).Msg("loaded vectors")
		return v, noop, nil
	case config.ProviderOpenAI:
		e := similarity.NewOpenAIEmbedder(cfg.OpenAIAPIKey,
			similarity.WithOpenAIModel(cfg.OpenAIModel),
			similarity.WithOpenAIDimensions(cfg.OpenAIDimensions),
		)
		p, err := similarity.NewEmbeddingProvider(config.ProviderOpenAI, e, cfg.CacheSize)
		return p, noop, err
	case config.ProviderConceptNet:
		return similarity.NewConceptNet(cfg.ConceptNetURL, cfg.ConceptNetRPS), noop, nil
	case config.ProviderPgVector:
		pg, err := similarity.OpenPgVector(ctx, cfg.PgVectorDSN)
		if err != nil {
			return nil, noop, err
		}
		return pg, func() { _ = pg.Close() }, nil
	}
	return nil, noop, fmt.Errorf("%w: %q", similarity.ErrUnknownProvider, name)
}

// buildRegistry wires every enabled provider into a scorer. Pair
// adjustments, when configured, apply to all of them.
func buildRegistry(ctx context.Context, cfg *config.Config) (*similarity.Registry, func(), error) {
	if _, err := similarity.ParseScaling(cfg.Scaling); err != nil {
		return nil, nil, err
	}
	var adjustments []similarity.Adjustment
	if cfg.AdjustmentsFile != "" {
		var err error
		if adjustments, err = similarity.LoadAdjustments(cfg.AdjustmentsFile); err != nil {
			return nil, nil, err
		}
	}

	var (
		scorers []*similarity.Scorer
		closers []func()
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	for _, name := range cfg.EnabledProviders() {
		scaling, err := similarity.ParseScaling(cfg.ScalingFor(name))
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("provider %s: %w", name, err)
		}
		p, closeFn, err := buildProvider(ctx, cfg, name)
		if err != nil {
			closeAll()
			return nil, nil, errors.Join(fmt.Errorf("provider %s", name), err)
		}
		closers = append(closers, closeFn)
		if len(adjustments) > 0 {
			p = similarity.NewAdjusted(p, adjustments)
		}
		sc, err := similarity.NewScorer(p, scaling, cfg.CacheSize)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		scorers = append(scorers, sc)
	}

	reg, err := similarity.NewRegistry(cfg.Provider, scorers...)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return reg, closeAll, nil
}
