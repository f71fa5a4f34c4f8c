package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/saneksa/code-rag-review/internal/chunker"
	"github.com/saneksa/code-rag-review/internal/identity"
	"github.com/saneksa/code-rag-review/internal/store"
	"github.com/saneksa/code-rag-review/internal/walker"
)

// Stats reports indexing results.
type Stats struct {
	FilesTotal     int
	FilesIndexed   int
	FilesSkipped   int
	ChunksTotal    int
	ChunksReused   int
	ChunksEmbedded int
}

// Build walks root, chunks every discovered file, reuses prior embeddings
// for unchanged chunks, embeds the rest in batches, and atomically replaces
// the persisted collection and manifest. At most one build may run per
// Indexer at a time.
func (idx *Indexer) Build(ctx context.Context, root string) (*Stats, error) {
	if !idx.lock.tryAcquire() {
		return nil, errors.New("another build is already running against this index")
	}
	defer idx.lock.release()

	current := store.Manifest{
		EmbeddingModel: idx.cfg.EmbedModel,
		ChunkMode:      idx.cfg.ChunkMode,
		ChunkSize:      idx.cfg.ChunkSize,
		OverlapLines:   idx.cfg.OverlapLines,
		ExcludedDirs:   idx.cfg.ExcludedDirs,
	}

	// Prior embeddings are only reusable when the chunking configuration is
	// byte-for-byte the same; otherwise the cache stays empty and the whole
	// tree is re-embedded.
	cache := identity.NewCache()
	prior, err := store.LoadManifest(manifestPath(idx.indexDir))
	if err != nil {
		return nil, err
	}
	if prior != nil && prior.CompatibleWith(current) {
		priorChunks, err := idx.store.ReadAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("read prior index: %w", err)
		}
		cache = identity.FromPrior(priorChunks)
	}

	var (
		mu      sync.Mutex
		stats   Stats
		records []store.IndexedChunk
	)

	fileCh, walkErrCh := walker.Walk(root, walker.Options{
		ExcludedDirs: idx.cfg.ExcludedDirs,
		MaxFileSize:  idx.cfg.MaxFileSize,
	})

	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())

	for fi := range fileCh {
		// On cancellation keep draining so the walker goroutine can finish
		// sending and close the channel; no new work is scheduled.
		if ctx.Err() != nil {
			continue
		}
		stats.FilesTotal++
		g.Go(func() error {
			src, err := os.ReadFile(fi.Path)
			if err != nil {
				// Permission errors and races with deletion skip the file,
				// not the build.
				mu.Lock()
				stats.FilesSkipped++
				mu.Unlock()
				return nil
			}

			lang := idx.registry.LanguageName(fi.RelPath)
			parts, err := idx.chunker.Chunk(src, chunker.Options{
				Path:         fi.RelPath,
				Language:     lang,
				Mode:         chunker.Mode(idx.cfg.ChunkMode),
				ChunkSize:    idx.cfg.ChunkSize,
				OverlapLines: idx.cfg.OverlapLines,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "chunker error %s: %v\n", fi.RelPath, err)
				mu.Lock()
				stats.FilesSkipped++
				mu.Unlock()
				return nil
			}

			fileRecords := make([]store.IndexedChunk, 0, len(parts))
			for _, p := range parts {
				key := identity.KeyFor(fi.RelPath, p)
				fileRecords = append(fileRecords, store.IndexedChunk{
					ID:          key.Digest(),
					Path:        fi.RelPath,
					Language:    lang,
					StartLine:   p.StartLine,
					EndLine:     p.EndLine,
					Content:     p.Content,
					Strategy:    string(p.Strategy),
					NodeType:    string(p.NodeType),
					Symbol:      p.Symbol,
					ContentHash: key.ContentHash,
					FileMtimeMs: fi.MtimeMs,
					FileSize:    fi.Size,
				})
			}

			mu.Lock()
			stats.FilesIndexed++
			records = append(records, fileRecords...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := <-walkErrCh; err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Resolve each chunk against the reuse cache; misses queue for embedding.
	var pending []int
	var texts []string
	for i := range records {
		r := &records[i]
		key := identity.Key{
			Path:        r.Path,
			StartLine:   r.StartLine,
			EndLine:     r.EndLine,
			ContentHash: r.ContentHash,
			NodeType:    r.NodeType,
			Symbol:      r.Symbol,
			Strategy:    r.Strategy,
		}
		if emb, ok := cache.Lookup(key); ok {
			r.Embedding = emb
			stats.ChunksReused++
			continue
		}
		pending = append(pending, i)
		texts = append(texts, r.Content)
	}

	embedded, err := idx.embedBatches(ctx, texts)
	if err != nil {
		return nil, err
	}
	// A misaligned chunk/vector mapping must never be persisted.
	if len(embedded) != len(pending) {
		return nil, fmt.Errorf("embedding count mismatch: requested %d, got %d; aborting build",
			len(pending), len(embedded))
	}
	for i, recIdx := range pending {
		records[recIdx].Embedding = embedded[i]
	}
	stats.ChunksEmbedded = len(pending)
	stats.ChunksTotal = len(records)

	sort.Slice(records, func(i, j int) bool {
		if records[i].Path != records[j].Path {
			return records[i].Path < records[j].Path
		}
		if records[i].StartLine != records[j].StartLine {
			return records[i].StartLine < records[j].StartLine
		}
		return records[i].EndLine < records[j].EndLine
	})

	dim := 0
	if len(records) > 0 {
		dim = len(records[0].Embedding)
	}

	if err := idx.store.ReplaceAll(ctx, records, dim); err != nil {
		return nil, fmt.Errorf("persist index: %w", err)
	}

	current.EmbeddingDim = dim
	current.FileCount = stats.FilesIndexed
	current.ChunkCount = stats.ChunksTotal
	current.BuiltAt = time.Now().UTC()
	if err := current.Save(manifestPath(idx.indexDir)); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	return &stats, nil
}

// embedBatches embeds texts in batches of the configured size, sequentially.
func (idx *Indexer) embedBatches(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += idx.cfg.BatchSize {
		end := start + idx.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		embs, err := idx.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding failed: %w", err)
		}
		out = append(out, embs...)
	}
	return out, nil
}
