package store

// IndexedChunk is the persisted unit of the index: a chunk part plus its
// file metadata and embedding. ID is the content-addressed identity digest,
// stable across rebuilds for unchanged chunks.
type IndexedChunk struct {
	ID          string
	Path        string
	Language    string
	StartLine   int
	EndLine     int
	Content     string
	Strategy    string
	NodeType    string
	Symbol      string
	ContentHash string
	FileMtimeMs int64
	FileSize    int64
	Embedding   []float32
}

// SearchResult is a chunk with the store's native distance to the query
// vector (lower is closer). Score conversion is the retriever's concern.
type SearchResult struct {
	Chunk    IndexedChunk
	Distance float64
}
