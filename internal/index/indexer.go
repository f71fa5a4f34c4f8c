// Package index orchestrates chunking, embedding reuse, and persistence for
// one index location.
package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/saneksa/code-rag-review/internal/chunker"
	"github.com/saneksa/code-rag-review/internal/chunker/languages"
	"github.com/saneksa/code-rag-review/internal/config"
	"github.com/saneksa/code-rag-review/internal/embedder"
	"github.com/saneksa/code-rag-review/internal/retrieve"
	"github.com/saneksa/code-rag-review/internal/store"
)

// ErrNoIndex is returned when an operation needs an index that has not been
// built yet.
var ErrNoIndex = errors.New("index not found")

// IndexDirName is the per-project directory holding the database and manifest.
const IndexDirName = ".ragindex"

// Indexer is the public API for building and querying an index.
type Indexer struct {
	store    store.Store
	embedder embedder.Embedder
	chunker  *chunker.Chunker
	registry *chunker.Registry
	cfg      config.Config
	indexDir string
	lock     buildLock
}

// Paths of the persisted artifacts inside the index directory.
func dbPath(indexDir string) string       { return filepath.Join(indexDir, "index.db") }
func manifestPath(indexDir string) string { return filepath.Join(indexDir, "manifest.json") }

// New creates an Indexer over the index directory, creating it when missing.
func New(cfg config.Config, indexDir string) (*Indexer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	s, err := store.Open(dbPath(indexDir))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	reg := chunker.NewRegistry()
	languages.RegisterGo(reg)
	languages.RegisterJavaScript(reg)
	languages.RegisterTypeScript(reg)
	languages.RegisterPython(reg)

	return &Indexer{
		store:    s,
		embedder: embedder.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbedModel),
		chunker:  chunker.New(reg),
		registry: reg,
		cfg:      cfg,
		indexDir: indexDir,
	}, nil
}

// Open is like New but fails when no index has been built yet.
func Open(cfg config.Config, indexDir string) (*Indexer, error) {
	if _, err := os.Stat(dbPath(indexDir)); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w at %s: run the index command first", ErrNoIndex, indexDir)
	}
	return New(cfg, indexDir)
}

// Manifest reads the manifest for this index location. Returns ErrNoIndex
// when no build has completed yet.
func (idx *Indexer) Manifest() (*store.Manifest, error) {
	m, err := store.LoadManifest(manifestPath(idx.indexDir))
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w at %s: run the index command first", ErrNoIndex, idx.indexDir)
	}
	return m, nil
}

// Query embeds the query text with the model the index was built with and
// returns the topK most similar chunks.
func (idx *Indexer) Query(ctx context.Context, query string, topK int) ([]retrieve.Result, error) {
	m, err := idx.Manifest()
	if err != nil {
		return nil, err
	}

	emb := embedder.NewOllamaEmbedder(idx.cfg.OllamaURL, m.EmbeddingModel)
	vec, err := emb.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	return retrieve.New(idx.store).Retrieve(ctx, vec, topK)
}

// Close releases resources.
func (idx *Indexer) Close() error {
	return idx.store.Close()
}
