package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Manifest records how an index was built. It is read before a build to
// judge whether prior embeddings may be reused, and before a query to
// discover the embedding model.
type Manifest struct {
	EmbeddingModel string    `json:"embedding_model"`
	ChunkMode      string    `json:"chunk_mode"`
	ChunkSize      int       `json:"chunk_size"`
	OverlapLines   int       `json:"overlap_lines"`
	ExcludedDirs   []string  `json:"excluded_dirs"`
	EmbeddingDim   int       `json:"embedding_dim"`
	FileCount      int       `json:"file_count"`
	ChunkCount     int       `json:"chunk_count"`
	BuiltAt        time.Time `json:"built_at"`
}

// CompatibleWith reports whether embeddings built under m may be reused for
// a run configured as other. Chunk boundaries and vector semantics both
// depend on these parameters, so any difference disables reuse entirely.
func (m Manifest) CompatibleWith(other Manifest) bool {
	return m.EmbeddingModel == other.EmbeddingModel &&
		m.ChunkMode == other.ChunkMode &&
		m.ChunkSize == other.ChunkSize &&
		m.OverlapLines == other.OverlapLines
}

// LoadManifest reads the manifest at path. A missing file returns (nil, nil).
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// Save writes the manifest atomically: temp file in the same directory, then
// rename over the target.
func (m Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".manifest-*")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}
