package vector

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nba-insights/backend/internal/storage/models"
)

// stubEmbedder maps known texts to fixed vectors so similarity is
// fully controlled by the test.
type stubEmbedder struct {
	vectors map[string][]float32
	calls   int
}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	v, ok := e.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return v, nil
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func newTestStore(t *testing.T) (*Store, *stubEmbedder) {
	t.Helper()
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"lakers doc":  {1, 0, 0},
		"celtics doc": {0, 1, 0},
		"bulls doc":   {0, 0, 1},
		"lakers?":     {0.9, 0.1, 0},
	}}
	return NewStore(embedder, 3), embedder
}

func testDocs() []*models.Document {
	return []*models.Document{
		{ID: "team_LAL", Content: "lakers doc", Metadata: map[string]any{"type": "team"}},
		{ID: "team_BOS", Content: "celtics doc", Metadata: map[string]any{"type": "team"}},
		{ID: "team_CHI", Content: "bulls doc", Metadata: map[string]any{"type": "team"}},
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	store, embedder := newTestStore(t)

	matches, err := store.Search(context.Background(), "lakers?", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, 0, embedder.calls, "empty index must not embed the query")
}

func TestSearchRejectsNonPositiveK(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Search(context.Background(), "lakers?", 0)
	assert.Error(t, err)

	_, err = store.Search(context.Background(), "lakers?", -1)
	assert.Error(t, err)
}

func TestSearchRanksBySimilarity(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.AddDocuments(context.Background(), testDocs()))

	matches, err := store.Search(context.Background(), "lakers?", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "team_LAL", matches[0].Document.ID)
	assert.Equal(t, "team_BOS", matches[1].Document.ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestSearchReturnsAtMostK(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.AddDocuments(context.Background(), testDocs()))

	matches, err := store.Search(context.Background(), "lakers?", 10)
	require.NoError(t, err)
	assert.Len(t, matches, 3, "never more results than documents")
}

func TestAddDocumentsRejectsWrongDimension(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.AddDocuments(context.Background(), []*models.Document{
		{ID: "bad", Content: "x", Embedding: []float32{1, 2}},
	})
	assert.Error(t, err)
}

func TestAddDocumentsSkipsEmbeddingWhenPresent(t *testing.T) {
	store, embedder := newTestStore(t)

	err := store.AddDocuments(context.Background(), []*models.Document{
		{ID: "pre", Content: "not in stub", Embedding: []float32{1, 1, 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, embedder.calls)
	assert.Equal(t, 1, store.Len())
}

func TestResetAndRebuildIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddDocuments(ctx, testDocs()))
	first, err := store.Search(ctx, "lakers?", 3)
	require.NoError(t, err)

	store.Reset()
	assert.Equal(t, 0, store.Len())

	require.NoError(t, store.AddDocuments(ctx, testDocs()))
	second, err := store.Search(ctx, "lakers?", 3)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Document.ID, second[i].Document.ID)
		assert.Equal(t, first[i].Score, second[i].Score)
	}
}
