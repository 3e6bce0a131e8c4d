package game

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressiveHint(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{0, "The word has 5 letters"},
		{9, "The word has 5 letters"},
		{10, "The word starts with 'o'"},
		{20, "The word starts with 'oc'"},
		{30, "The word is 'oce...'"},
		{99, "The word is 'oce...'"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.count), func(t *testing.T) {
			assert.Equal(t, tt.want, ProgressiveHint("ocean", tt.count))
		})
	}
}

func TestProgressiveHintShortWord(t *testing.T) {
	assert.Equal(t, "The word is 'ox...'", ProgressiveHint("ox", 40))
}

func TestHintIsMonotonic(t *testing.T) {
	// The hint at 9 guesses must not reveal more than at 5.
	assert.Equal(t, ProgressiveHint("ocean", 5), ProgressiveHint("ocean", 9))
}

func TestSessionHint(t *testing.T) {
	ctx := context.Background()
	scores := map[[2]string]int{}
	for i := 0; i < 6; i++ {
		scores[[2]string{"ocean", fmt.Sprintf("w%c", 'a'+i)}] = 10 * (i + 1)
	}
	sc := newFake(scores)

	s := NewSession("")
	_, err := s.Hint()
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, s.SetSecret(ctx, sc, "ocean", ModeSemantle))
	hint, err := s.Hint()
	require.NoError(t, err)
	assert.Equal(t, "The word has 5 letters", hint)

	anti := NewSession("")
	require.NoError(t, anti.SetSecret(ctx, sc, "ocean", ModeAntisemantle))
	for i := 0; i < 4; i++ {
		_, err := anti.Guess(ctx, sc, fmt.Sprintf("w%c", 'a'+i), UnknownReject)
		require.NoError(t, err)
	}
	hint, err = anti.Hint()
	require.NoError(t, err)
	assert.Equal(t, "Make at least 5 guesses first!", hint)

	_, err = anti.Guess(ctx, sc, "we", UnknownReject)
	require.NoError(t, err)
	hint, err = anti.Hint()
	require.NoError(t, err)
	assert.Equal(t, "The word is semantically distant from: wa, wb", hint)
}
