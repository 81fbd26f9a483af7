package domain

// RawDocument is a provenance-tagged text blob produced by a loader. It lives
// only for the duration of one ingestion run and is never persisted as-is.
type RawDocument struct {
	Content      string
	SourcePath   string // local file path, empty for remote sources
	RemoteFileID string // Drive file id, empty for local sources
	Title        string // display name for remote sources
	Page         int    // 1-based page for paginated sources, 0 otherwise
}

// ChunkMetadata is stored verbatim under the index's metadata field. The
// field names are part of the persisted contract: renaming any of them
// requires recreating the index.
type ChunkMetadata struct {
	Filename    string `json:"filename"`
	ResourceURL string `json:"resource_url,omitempty"`
	ChunkID     int    `json:"chunk_id"`
	Page        int    `json:"page,omitempty"`
}

// Chunk is a bounded text window cut from exactly one RawDocument.
type Chunk struct {
	Text     string
	Metadata ChunkMetadata
}

// IndexedDocument is the persisted unit in the search index. The sparse
// text-expansion field is populated by the storage engine's own pipeline at
// write time and is intentionally absent here.
type IndexedDocument struct {
	TextContent string        `json:"text_content"`
	VectorField []float32     `json:"vector_field"`
	Metadata    ChunkMetadata `json:"metadata"`
}

// LoadResult is what a single loader produced: the documents it could read
// and how many files it had to drop on the way.
type LoadResult struct {
	Documents    []RawDocument
	SkippedFiles int
}
