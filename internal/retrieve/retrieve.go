// Package retrieve ranks indexed chunks by similarity to a query vector.
package retrieve

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/saneksa/code-rag-review/internal/store"
)

// Result is a chunk with its similarity score, higher is more similar.
type Result struct {
	Chunk store.IndexedChunk
	Score float64
}

// CosineSimilarity computes the cosine similarity of two vectors with
// float64 accumulation. Mismatched lengths or a zero-norm operand score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// DistanceToScore converts a store-native distance (lower is closer) into a
// score where closer is higher, consistent in ordering with cosine ranking.
func DistanceToScore(distance float64) float64 {
	return 1 / (1 + math.Max(0, distance))
}

// Rank scores chunks by cosine similarity to the query vector and returns
// at most topK results, descending, ties kept in original order.
func Rank(query []float32, chunks []store.IndexedChunk, topK int) []Result {
	if len(chunks) == 0 || topK <= 0 {
		return nil
	}

	results := make([]Result, len(chunks))
	for i, c := range chunks {
		results[i] = Result{Chunk: c, Score: CosineSimilarity(query, c.Embedding)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// Retriever answers nearest-neighbor queries against a store, preferring
// the store's native vector index and falling back to an in-memory cosine
// scan when the index is unavailable.
type Retriever struct {
	store store.Store
}

// New creates a retriever over the given store.
func New(s store.Store) *Retriever {
	return &Retriever{store: s}
}

// Retrieve returns up to topK chunks nearest the query vector.
func (r *Retriever) Retrieve(ctx context.Context, query []float32, topK int) ([]Result, error) {
	if r.store.VectorEnabled() {
		hits, err := r.store.VectorSearch(ctx, query, topK)
		if err == nil {
			results := make([]Result, len(hits))
			for i, h := range hits {
				results[i] = Result{Chunk: h.Chunk, Score: DistanceToScore(h.Distance)}
			}
			return results, nil
		}
		// A cancelled query must not turn into a full scan.
		if ctx.Err() != nil {
			return nil, err
		}
		// The vector table may be missing when a prior build fell back to
		// blob storage; degrade to the scan path.
	}

	chunks, err := r.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read chunks for scan: %w", err)
	}
	return Rank(query, chunks, topK), nil
}
