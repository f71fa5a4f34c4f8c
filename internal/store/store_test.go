package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testChunk(id string, emb []float32) IndexedChunk {
	return IndexedChunk{
		ID:          id,
		Path:        id + ".go",
		StartLine:   1,
		EndLine:     2,
		Content:     "package " + id,
		Strategy:    "windowed",
		ContentHash: "hash-" + id,
		Embedding:   emb,
	}
}

func TestReplaceAllEmptyOnFreshStore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// A tree with nothing indexable still persists an (empty) collection.
	require.NoError(t, s.ReplaceAll(ctx, nil, 0))

	chunks, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestReplaceAllRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := []IndexedChunk{
		testChunk("b", []float32{0, 1, 0}),
		testChunk("a", []float32{1, 0, 0}),
	}
	require.NoError(t, s.ReplaceAll(ctx, first, 3))

	chunks, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "a", chunks[0].ID) // ReadAll orders by path
	assert.Equal(t, []float32{1, 0, 0}, chunks[0].Embedding)

	// A later empty replace clears the collection instead of failing.
	require.NoError(t, s.ReplaceAll(ctx, nil, 0))
	chunks, err = s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestReplaceAllRejectsDimensionMismatch(t *testing.T) {
	s := openTestStore(t)
	err := s.ReplaceAll(context.Background(), []IndexedChunk{
		testChunk("a", []float32{1, 0, 0}),
		testChunk("b", []float32{0, 1}),
	}, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimensions")
}
