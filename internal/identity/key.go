// Package identity derives stable chunk identities and reuses embeddings
// across index rebuilds when a chunk is unchanged.
package identity

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/saneksa/code-rag-review/internal/chunker"
)

// ContentHash returns the hex SHA-256 fingerprint of a text blob.
func ContentHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

// Key is the composite identity of a chunk. Two chunks are the same iff
// every field matches exactly; this is stricter than the content hash alone,
// so a chunk whose body is unchanged but has moved lines counts as new and
// line numbers in results stay accurate.
type Key struct {
	Path        string
	StartLine   int
	EndLine     int
	ContentHash string
	NodeType    string
	Symbol      string
	Strategy    string
}

// KeyFor builds the identity key for a chunk part of a file.
func KeyFor(path string, p chunker.Part) Key {
	return Key{
		Path:        path,
		StartLine:   p.StartLine,
		EndLine:     p.EndLine,
		ContentHash: ContentHash(p.Content),
		NodeType:    string(p.NodeType),
		Symbol:      p.Symbol,
		Strategy:    string(p.Strategy),
	}
}

// Digest returns the stable chunk id: hex of the first 16 bytes of a SHA-256
// over the length-prefixed key fields. Length prefixes keep paths containing
// any particular byte from colliding with a differently split key.
func (k Key) Digest() string {
	h := sha256.New()
	writeField := func(s string) {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}
	writeInt := func(v int) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(v))
		h.Write(n[:])
	}
	writeField(k.Path)
	writeInt(k.StartLine)
	writeInt(k.EndLine)
	writeField(k.ContentHash)
	writeField(k.NodeType)
	writeField(k.Symbol)
	writeField(k.Strategy)

	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
