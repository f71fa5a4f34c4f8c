package identity

import "github.com/saneksa/code-rag-review/internal/store"

// Cache maps chunk identity keys to embeddings computed in a prior run.
// It is only populated when the prior manifest's chunking configuration
// matches the current run; otherwise every lookup misses and the whole
// index is re-embedded.
type Cache struct {
	embeddings map[Key][]float32
}

// NewCache returns an empty cache (every lookup misses).
func NewCache() *Cache {
	return &Cache{embeddings: make(map[Key][]float32)}
}

// FromPrior builds a cache from the previous run's persisted chunks.
func FromPrior(prior []store.IndexedChunk) *Cache {
	c := &Cache{embeddings: make(map[Key][]float32, len(prior))}
	for _, ch := range prior {
		k := Key{
			Path:        ch.Path,
			StartLine:   ch.StartLine,
			EndLine:     ch.EndLine,
			ContentHash: ch.ContentHash,
			NodeType:    ch.NodeType,
			Symbol:      ch.Symbol,
			Strategy:    ch.Strategy,
		}
		c.embeddings[k] = ch.Embedding
	}
	return c
}

// Lookup returns the prior embedding for an identical chunk, if any.
func (c *Cache) Lookup(k Key) ([]float32, bool) {
	emb, ok := c.embeddings[k]
	return emb, ok
}

// Len reports how many prior chunks are available for reuse.
func (c *Cache) Len() int {
	return len(c.embeddings)
}
