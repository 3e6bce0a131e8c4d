package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/semantle/internal/config"
	"github.com/robalobadob/semantle/internal/similarity"
)

func vectorsConfig() *config.Config {
	return &config.Config{
		Provider:  config.ProviderVectors,
		Scaling:   string(similarity.ScalingLinear),
		CacheSize: 100,
	}
}

func TestBuildRegistryVectors(t *testing.T) {
	reg, closeFn, err := buildRegistry(context.Background(), vectorsConfig())
	require.NoError(t, err)
	defer closeFn()

	assert.Equal(t, []string{"vectors"}, reg.Names())
	score, err := reg.Default().Score(context.Background(), "ocean", "ocean")
	require.NoError(t, err)
	assert.Equal(t, 100, score)
}

func TestBuildRegistryAdjustments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adjust.yaml")
	require.NoError(t, os.WriteFile(path, []byte("adjustments:\n  - words: [ocean, computer]\n    similarity: 0.5\n"), 0o644))

	cfg := vectorsConfig()
	cfg.AdjustmentsFile = path
	reg, closeFn, err := buildRegistry(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()

	score, err := reg.Default().Score(context.Background(), "computer", "ocean")
	require.NoError(t, err)
	assert.Equal(t, 50, score)
}

func TestBuildRegistryScalingPerProvider(t *testing.T) {
	cfg := vectorsConfig()
	cfg.Providers = []string{config.ProviderVectors, config.ProviderConceptNet}
	cfg.ProviderScaling = map[string]string{config.ProviderConceptNet: string(similarity.ScalingShifted)}
	reg, closeFn, err := buildRegistry(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()

	cn, err := reg.Get(config.ProviderConceptNet)
	require.NoError(t, err)
	assert.Equal(t, similarity.ScalingShifted, cn.Scaling())
	assert.Equal(t, similarity.ScalingLinear, reg.Default().Scaling())

	cfg.ProviderScaling = map[string]string{config.ProviderVectors: "log"}
	_, _, err = buildRegistry(context.Background(), cfg)
	assert.Error(t, err)
}

func TestBuildRegistryErrors(t *testing.T) {
	cfg := vectorsConfig()
	cfg.Scaling = "log"
	_, _, err := buildRegistry(context.Background(), cfg)
	assert.Error(t, err)

	cfg = vectorsConfig()
	cfg.Provider = "word2vec"
	_, _, err = buildRegistry(context.Background(), cfg)
	assert.ErrorIs(t, err, similarity.ErrUnknownProvider)
}

func TestScoreCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"score", "ocean", "sea", "xyzzy", "Ocean"})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "sea"))
	assert.Contains(t, lines[1], "unknown to vectors")
	assert.True(t, strings.HasSuffix(lines[2], "100"))
}

func TestNeighborsCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"neighbors", "ocean", "-n", "2"})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "sea")
}
