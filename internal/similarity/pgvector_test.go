package similarity

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPgVector(t *testing.T) *PgVector {
	t.Helper()
	if testing.Short() {
		t.Skip("pgvector integration test needs docker")
	}
	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "pgvector/pgvector:pg16",
		postgres.WithDatabase("semantle"),
		postgres.WithUsername("semantle"),
		postgres.WithPassword("semantle"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	p, err := OpenPgVector(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestPgVectorMatchesInMemoryVectors(t *testing.T) {
	p := startPgVector(t)
	ctx := context.Background()
	local := embeddedVectors(t)

	require.NoError(t, p.EnsureSchema(ctx, local.Dim()))
	n, err := p.Import(ctx, local)
	require.NoError(t, err)
	assert.Equal(t, local.Len(), n)

	ok, err := p.Known(ctx, "ocean")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = p.Known(ctx, "xyzzy")
	require.NoError(t, err)
	assert.False(t, ok)

	for _, pair := range [][2]string{{"ocean", "water"}, {"ocean", "sand"}, {"king", "queen"}} {
		want, err := local.Similarity(ctx, pair[0], pair[1])
		require.NoError(t, err)
		got, err := p.Similarity(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-4, "%s/%s", pair[0], pair[1])
	}

	_, err = p.Similarity(ctx, "ocean", "xyzzy")
	var uw *UnknownWordError
	require.ErrorAs(t, err, &uw)
	assert.Equal(t, "xyzzy", uw.Word)

	want, err := local.Neighbors(ctx, "ocean", 3)
	require.NoError(t, err)
	got, err := p.Neighbors(ctx, "ocean", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range want {
		assert.Equal(t, want[i].Word, got[i].Word)
	}

	sc, err := NewScorer(p, ScalingLinear, 100)
	require.NoError(t, err)
	score, err := sc.Score(ctx, "ocean", "ocean")
	require.NoError(t, err)
	assert.Equal(t, 100, score)
}

func TestPgVectorCaseFallback(t *testing.T) {
	p := startPgVector(t)
	ctx := context.Background()
	local := loadTiny(t)

	require.NoError(t, p.EnsureSchema(ctx, local.Dim()))
	_, err := p.Import(ctx, local)
	require.NoError(t, err)

	for _, w := range []string{"Paris", "paris", "PARIS"} {
		ok, err := p.Known(ctx, w)
		require.NoError(t, err)
		assert.True(t, ok, w)

		vec, err := p.Embedding(ctx, w)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float32{0, 0, 1}, vec, 1e-6, w)
	}

	want, err := local.Similarity(ctx, "paris", "KING")
	require.NoError(t, err)
	got, err := p.Similarity(ctx, "paris", "KING")
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-4)

	nbs, err := p.Neighbors(ctx, "paris", 3)
	require.NoError(t, err)
	for _, nb := range nbs {
		assert.False(t, strings.EqualFold(nb.Word, "paris"), "neighbours exclude the word itself")
	}
}
