package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph(t *testing.T) {
	ctx := context.Background()
	sc := newFake(map[[2]string]int{
		{"ocean", "water"}: 70,
		{"ocean", "rain"}:  40,
		{"ocean", "fire"}:  5,
		{"water", "rain"}:  80,
		{"water", "fire"}:  10,
		{"rain", "fire"}:   12,
	})
	s := NewSession("")

	g, err := s.Graph(ctx, sc)
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)

	require.NoError(t, s.SetSecret(ctx, sc, "ocean", ModeSemantle))
	for _, w := range []string{"water", "rain", "fire"} {
		_, err := s.Guess(ctx, sc, w, UnknownReject)
		require.NoError(t, err)
	}

	g, err = s.Graph(ctx, sc)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 4)
	assert.Equal(t, "?", g.Nodes[0].Label)
	assert.True(t, g.Nodes[0].IsSecret)

	links := linksBySource(g)
	require.Len(t, links, 3)
	assert.Equal(t, GuessNodeID("rain"), links[GuessNodeID("water")].Target)
	assert.Equal(t, 80, links[GuessNodeID("water")].Similarity)
	assert.Equal(t, GuessNodeID("water"), links[GuessNodeID("rain")].Target)
	assert.Equal(t, GuessNodeID("rain"), links[GuessNodeID("fire")].Target)
	_, secretLinked := links[SecretNodeID]
	assert.False(t, secretLinked)

	_, err = s.Guess(ctx, sc, "ocean", UnknownReject)
	require.NoError(t, err)
	g, err = s.Graph(ctx, sc)
	require.NoError(t, err)
	assert.Equal(t, "ocean", g.Nodes[0].Label)
}

func linksBySource(g *Graph) map[string]Link {
	out := map[string]Link{}
	for _, l := range g.Links {
		out[l.Source] = l
	}
	return out
}

func assertUniqueNodeIDs(t *testing.T, g *Graph) {
	t.Helper()
	seen := map[string]bool{}
	for _, n := range g.Nodes {
		assert.False(t, seen[n.ID], "node id %q used twice", n.ID)
		seen[n.ID] = true
	}
	for _, l := range g.Links {
		assert.True(t, seen[l.Source], "link source %q", l.Source)
		assert.True(t, seen[l.Target], "link target %q", l.Target)
	}
}

func TestGraphGuessNamedSecret(t *testing.T) {
	ctx := context.Background()
	sc := newFake(map[[2]string]int{
		{"ocean", "secret"}: 20,
		{"ocean", "water"}:  70,
		{"secret", "water"}: 60,
	})
	s := NewSession("")
	require.NoError(t, s.SetSecret(ctx, sc, "ocean", ModeSemantle))
	for _, w := range []string{"secret", "water"} {
		_, err := s.Guess(ctx, sc, w, UnknownReject)
		require.NoError(t, err)
	}

	g, err := s.Graph(ctx, sc)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 3)
	assertUniqueNodeIDs(t, g)

	links := linksBySource(g)
	assert.Equal(t, GuessNodeID("water"), links[GuessNodeID("secret")].Target)
	assert.Equal(t, SecretNodeID, links[GuessNodeID("water")].Target)
	assert.Equal(t, 70, links[GuessNodeID("water")].Similarity)
}

func TestGraphFoundMergesWinningGuess(t *testing.T) {
	ctx := context.Background()
	sc := newFake(map[[2]string]int{
		{"ocean", "water"}: 70,
		{"ocean", "fire"}:  5,
		{"water", "fire"}:  10,
	})
	s := NewSession("")
	require.NoError(t, s.SetSecret(ctx, sc, "ocean", ModeSemantle))
	for _, w := range []string{"water", "fire", "ocean"} {
		_, err := s.Guess(ctx, sc, w, UnknownReject)
		require.NoError(t, err)
	}

	g, err := s.Graph(ctx, sc)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 3)
	assertUniqueNodeIDs(t, g)
	assert.Equal(t, "ocean", g.Nodes[0].Label)
	for _, n := range g.Nodes[1:] {
		assert.NotEqual(t, "ocean", n.Label)
	}

	links := linksBySource(g)
	require.Len(t, links, 2)
	assert.Equal(t, SecretNodeID, links[GuessNodeID("water")].Target)
	assert.Equal(t, GuessNodeID("water"), links[GuessNodeID("fire")].Target)
	_, winnerLinked := links[GuessNodeID("ocean")]
	assert.False(t, winnerLinked)
}

func TestGraphLinksToSecretWhenClosest(t *testing.T) {
	ctx := context.Background()
	sc := newFake(map[[2]string]int{
		{"ocean", "sea"}: 95, {"ocean", "cat"}: 10, {"sea", "cat"}: 8,
	})
	s := NewSession("")
	require.NoError(t, s.SetSecret(ctx, sc, "ocean", ModeSemantle))
	for _, w := range []string{"sea", "cat"} {
		_, err := s.Guess(ctx, sc, w, UnknownReject)
		require.NoError(t, err)
	}
	g, err := s.Graph(ctx, sc)
	require.NoError(t, err)
	for _, l := range g.Links {
		assert.Equal(t, SecretNodeID, l.Target, "link from %s", l.Source)
	}
}
