package retrieve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saneksa/code-rag-review/internal/store"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// Zero-norm operands and mismatched lengths score zero instead of NaN.
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 1}))
}

func TestDistanceToScoreOrdering(t *testing.T) {
	// Closer distances map to higher scores.
	assert.Greater(t, DistanceToScore(0.1), DistanceToScore(0.5))
	assert.Equal(t, 1.0, DistanceToScore(0))
	// Negative distances clamp rather than inflate past 1.
	assert.Equal(t, 1.0, DistanceToScore(-3))
}

func chunkWithEmbedding(id string, emb []float32) store.IndexedChunk {
	return store.IndexedChunk{ID: id, Path: id + ".go", Embedding: emb}
}

func TestRank(t *testing.T) {
	chunks := []store.IndexedChunk{
		chunkWithEmbedding("far", []float32{0, 1}),
		chunkWithEmbedding("near", []float32{1, 0.01}),
		chunkWithEmbedding("mid", []float32{1, 1}),
	}
	query := []float32{1, 0}

	results := Rank(query, chunks, 2)
	require.Len(t, results, 2)
	assert.Equal(t, "near", results[0].Chunk.ID)
	assert.Equal(t, "mid", results[1].Chunk.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestRankEdgeCases(t *testing.T) {
	chunks := []store.IndexedChunk{chunkWithEmbedding("only", []float32{1, 0})}
	assert.Nil(t, Rank([]float32{1, 0}, nil, 5))
	assert.Nil(t, Rank([]float32{1, 0}, chunks, 0))
	assert.Len(t, Rank([]float32{1, 0}, chunks, 10), 1)
}

// fakeStore drives the retriever without a database.
type fakeStore struct {
	vecEnabled bool
	vecErr     error
	vecHits    []store.SearchResult
	chunks     []store.IndexedChunk
	readCalls  int
}

func (f *fakeStore) ReplaceAll(ctx context.Context, chunks []store.IndexedChunk, dim int) error {
	return nil
}

func (f *fakeStore) ReadAll(ctx context.Context) ([]store.IndexedChunk, error) {
	f.readCalls++
	return f.chunks, nil
}

func (f *fakeStore) VectorSearch(ctx context.Context, query []float32, limit int) ([]store.SearchResult, error) {
	if f.vecErr != nil {
		return nil, f.vecErr
	}
	return f.vecHits, nil
}

func (f *fakeStore) VectorEnabled() bool { return f.vecEnabled }
func (f *fakeStore) Close() error        { return nil }

func TestRetrievePrefersVectorIndex(t *testing.T) {
	fs := &fakeStore{
		vecEnabled: true,
		vecHits: []store.SearchResult{
			{Chunk: chunkWithEmbedding("a", nil), Distance: 0.2},
			{Chunk: chunkWithEmbedding("b", nil), Distance: 0.8},
		},
	}
	results, err := New(fs).Retrieve(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Chunk.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Zero(t, fs.readCalls)
}

func TestRetrieveFallsBackToScan(t *testing.T) {
	chunks := []store.IndexedChunk{
		chunkWithEmbedding("near", []float32{1, 0}),
		chunkWithEmbedding("far", []float32{0, 1}),
	}

	// Vector index disabled entirely.
	fs := &fakeStore{vecEnabled: false, chunks: chunks}
	results, err := New(fs).Retrieve(context.Background(), []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "near", results[0].Chunk.ID)
	assert.Equal(t, 1, fs.readCalls)

	// Vector index claimed but failing at query time.
	fs = &fakeStore{vecEnabled: true, vecErr: errors.New("no such table: vec_chunks"), chunks: chunks}
	results, err = New(fs).Retrieve(context.Background(), []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "near", results[0].Chunk.ID)
	assert.Equal(t, 1, fs.readCalls)
}

func TestRetrieveCancelledQueryDoesNotScan(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fs := &fakeStore{
		vecEnabled: true,
		vecErr:     context.Canceled,
		chunks:     []store.IndexedChunk{chunkWithEmbedding("near", []float32{1, 0})},
	}
	_, err := New(fs).Retrieve(ctx, []float32{1, 0}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fs.readCalls, "cancellation must not degrade to a full scan")
}
