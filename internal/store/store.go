package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// Store persists the chunk collection. A rebuild is a whole-collection
// replace; readers never observe a partially written index.
type Store interface {
	// ReplaceAll atomically replaces the chunk collection. Every embedding
	// must have length dim.
	ReplaceAll(ctx context.Context, chunks []IndexedChunk, dim int) error
	// ReadAll returns every persisted chunk with its embedding.
	ReadAll(ctx context.Context) ([]IndexedChunk, error)
	// VectorSearch returns up to limit chunks nearest to the query vector,
	// closest first, with the store's native distance.
	VectorSearch(ctx context.Context, query []float32, limit int) ([]SearchResult, error)
	// VectorEnabled reports whether the nearest-neighbor index is usable.
	// When false, callers fall back to ReadAll plus an in-memory scan.
	VectorEnabled() bool
	// Close closes the underlying database.
	Close() error
}

// SQLiteStore implements Store backed by SQLite + sqlite-vec.
type SQLiteStore struct {
	db    *sql.DB
	vecOK bool
}

// Open creates or opens a SQLite database at the given path and initializes
// the schema.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db, vecOK: true}, nil
}

func (s *SQLiteStore) VectorEnabled() bool { return s.vecOK }

func (s *SQLiteStore) ReplaceAll(ctx context.Context, chunks []IndexedChunk, dim int) error {
	for _, c := range chunks {
		if len(c.Embedding) != dim {
			return fmt.Errorf("chunk %s: embedding has %d dimensions, index requires %d",
				c.ID, len(c.Embedding), dim)
		}
	}

	// The vector index is best-effort: when the extension is unavailable the
	// blob column in chunks still serves searches via a full scan.
	if s.vecOK && len(chunks) > 0 {
		if err := ensureVecTable(s.db, dim); err != nil {
			fmt.Fprintf(os.Stderr, "warning: vector index unavailable, falling back to full scan: %v\n", err)
			s.vecOK = false
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// The vec table is created lazily on the first non-empty write, so it may
	// not exist yet (fresh database, or an empty tree being indexed).
	vecPresent := false
	if s.vecOK {
		vecPresent, err = vecTableExists(ctx, tx)
		if err != nil {
			return err
		}
	}
	if vecPresent {
		if _, err := tx.ExecContext(ctx, "DELETE FROM vec_chunks"); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (chunk_id, path, language, start_line, end_line, content,
		                    strategy, node_type, symbol, content_hash, file_mtime_ms, file_size, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var vecStmt *sql.Stmt
	if s.vecOK && len(chunks) > 0 {
		vecStmt, err = tx.PrepareContext(ctx, "INSERT INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)")
		if err != nil {
			return err
		}
		defer vecStmt.Close()
	}

	for _, c := range chunks {
		blob := serializeEmbedding(c.Embedding)
		res, err := stmt.ExecContext(ctx,
			c.ID, c.Path, c.Language, c.StartLine, c.EndLine, c.Content,
			c.Strategy, c.NodeType, c.Symbol, c.ContentHash, c.FileMtimeMs, c.FileSize, blob,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
		if vecStmt != nil {
			rowID, err := res.LastInsertId()
			if err != nil {
				return err
			}
			vb, err := sqlite_vec.SerializeFloat32(c.Embedding)
			if err != nil {
				return fmt.Errorf("serialize embedding for chunk %s: %w", c.ID, err)
			}
			if _, err := vecStmt.ExecContext(ctx, rowID, vb); err != nil {
				return fmt.Errorf("insert embedding for chunk %s: %w", c.ID, err)
			}
		}
	}

	return tx.Commit()
}

const chunkColumns = `chunk_id, path, language, start_line, end_line, content,
	strategy, node_type, symbol, content_hash, file_mtime_ms, file_size, embedding`

func (s *SQLiteStore) ReadAll(ctx context.Context) ([]IndexedChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks ORDER BY path, start_line, end_line")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []IndexedChunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStore) VectorSearch(ctx context.Context, query []float32, limit int) ([]SearchResult, error) {
	if !s.vecOK {
		return nil, fmt.Errorf("vector index unavailable")
	}
	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.distance, c.chunk_id, c.path, c.language, c.start_line, c.end_line, c.content,
		       c.strategy, c.node_type, c.symbol, c.content_hash, c.file_mtime_ms, c.file_size, c.embedding
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_id
		WHERE v.embedding MATCH ?
		ORDER BY v.distance
		LIMIT ?
	`, blob, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var blob []byte
		err := rows.Scan(
			&r.Distance,
			&r.Chunk.ID, &r.Chunk.Path, &r.Chunk.Language,
			&r.Chunk.StartLine, &r.Chunk.EndLine, &r.Chunk.Content,
			&r.Chunk.Strategy, &r.Chunk.NodeType, &r.Chunk.Symbol,
			&r.Chunk.ContentHash, &r.Chunk.FileMtimeMs, &r.Chunk.FileSize, &blob,
		)
		if err != nil {
			return nil, err
		}
		r.Chunk.Embedding = deserializeEmbedding(blob)
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (IndexedChunk, error) {
	var c IndexedChunk
	var blob []byte
	err := row.Scan(
		&c.ID, &c.Path, &c.Language, &c.StartLine, &c.EndLine, &c.Content,
		&c.Strategy, &c.NodeType, &c.Symbol, &c.ContentHash, &c.FileMtimeMs, &c.FileSize, &blob,
	)
	if err != nil {
		return IndexedChunk{}, err
	}
	c.Embedding = deserializeEmbedding(blob)
	return c, nil
}

// serializeEmbedding encodes a vector as little-endian float32 bytes, the
// same layout sqlite-vec uses.
func serializeEmbedding(vec []float32) []byte {
	blob := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

func deserializeEmbedding(blob []byte) []float32 {
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}
