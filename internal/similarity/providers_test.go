package similarity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConceptNetSimilarity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/relatedness", r.URL.Path)
		n1, n2 := r.URL.Query().Get("node1"), r.URL.Query().Get("node2")
		switch {
		case n1 == "/c/en/ocean" && n2 == "/c/en/water":
			_, _ = w.Write([]byte(`{"@id": "/relatedness", "value": 0.42}`))
		case n2 == "/c/en/ice_cream":
			_, _ = w.Write([]byte(`{"value": 1.7}`))
		case n2 == "/c/en/missing":
			_, _ = w.Write([]byte(`{}`))
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	p := NewConceptNet(srv.URL+"/", 0, WithConceptNetHTTPClient(srv.Client()))
	ctx := context.Background()
	assert.Equal(t, "conceptnet", p.Name())

	v, err := p.Similarity(ctx, "Ocean", "water")
	require.NoError(t, err)
	assert.InDelta(t, 0.42, v, 1e-9)

	v, err = p.Similarity(ctx, "ocean", "ice cream")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	_, err = p.Similarity(ctx, "ocean", "missing")
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	_, err = p.Similarity(ctx, "ocean", "other")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestConceptNetHonoursContext(t *testing.T) {
	p := NewConceptNet("http://127.0.0.1:1", 0.001)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Similarity(ctx, "a", "b")
	assert.Error(t, err)
}

func openAIStub(t *testing.T, vectors map[string][]float64, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Input      string `json:"input"`
			Model      string `json:"model"`
			Dimensions int    `json:"dimensions"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			return
		}
		assert.Equal(t, 3, body.Dimensions)

		vec, ok := vectors[body.Input]
		if !ok {
			http.Error(w, `{"error":{"message":"bad input"}}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  body.Model,
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": vec},
			},
			"usage": map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
}

func TestOpenAIEmbeddingProvider(t *testing.T) {
	var calls atomic.Int64
	srv := openAIStub(t, map[string][]float64{
		"ocean": {1, 0, 0},
		"sea":   {0.8, 0.6, 0},
		"fire":  {0, 0, 1},
	}, &calls)
	defer srv.Close()

	emb := NewOpenAIEmbedder("test-key",
		WithOpenAIDimensions(3),
		WithOpenAIRequestOptions(option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0)),
	)
	p, err := NewEmbeddingProvider("openai", emb, 16)
	require.NoError(t, err)
	ctx := context.Background()

	v, err := p.Similarity(ctx, "ocean", "sea")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, v, 1e-6)

	v, err = p.Similarity(ctx, "ocean", "fire")
	require.NoError(t, err)
	assert.InDelta(t, 0, v, 1e-6)
	assert.EqualValues(t, 3, calls.Load(), "ocean embedding is cached")

	_, err = p.Similarity(ctx, "ocean", "unknown")
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	_, err = p.Similarity(ctx, "ocean", "")
	assert.ErrorIs(t, err, ErrUnknownWord)
}

func TestOpenAIEmbedEmptyInput(t *testing.T) {
	emb := NewOpenAIEmbedder("k")
	_, err := emb.Embed(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

type mapEmbedder map[string][]float32

func (m mapEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := m[text]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("no vector for %q", text)
}

func TestEmbeddingProviderWithFakeEmbedder(t *testing.T) {
	p, err := NewEmbeddingProvider("fake", mapEmbedder{"a": {1, 1}, "b": {1, 1}}, 4)
	require.NoError(t, err)
	v, err := p.Similarity(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.InDelta(t, 1, v, 1e-6)
}

func TestAdjustments(t *testing.T) {
	adj, err := ParseAdjustments(strings.NewReader(`
adjustments:
  - words: [umami, taste]
    similarity: 0.75
  - words: [Ocean, Computer]
    similarity: -0.2
`))
	require.NoError(t, err)
	require.Len(t, adj, 2)

	base := embeddedVectors(t)
	p := NewAdjusted(base, adj)
	ctx := context.Background()
	assert.Equal(t, "glove", p.Name())

	v, err := p.Similarity(ctx, "taste", "UMAMI")
	require.NoError(t, err)
	assert.Equal(t, 0.75, v)

	v, err = p.Similarity(ctx, "computer", "ocean")
	require.NoError(t, err)
	assert.Equal(t, -0.2, v)

	want, err := base.Similarity(ctx, "ocean", "water")
	require.NoError(t, err)
	got, err := p.Similarity(ctx, "ocean", "water")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	ok, err := p.Known(ctx, "umami")
	require.NoError(t, err)
	assert.False(t, ok)

	nb, err := p.Neighbors(ctx, "ocean", 2)
	require.NoError(t, err)
	assert.Len(t, nb, 2)
}

func TestParseAdjustmentsValidation(t *testing.T) {
	_, err := ParseAdjustments(strings.NewReader("adjustments:\n  - words: [a, '']\n    similarity: 0.1\n"))
	assert.Error(t, err)
	_, err = ParseAdjustments(strings.NewReader("adjustments:\n  - words: [a, b]\n    similarity: 3\n"))
	assert.Error(t, err)
	adj, err := ParseAdjustments(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, adj)
}
