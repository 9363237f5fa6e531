package vectordb

// Chunk is a retrievable unit of source-document text. Chunks are created once
// during ingestion and read-only at query time.
type Chunk struct {
	ChunkID   string // stable opaque id, globally unique ("chk_" prefix)
	FileID    string // groups chunks from the same source document ("fi_" prefix)
	Text      string
	Header    string // section title, may be empty
	Subheader string // subsection title, may be empty
	Page      string // page or page-range label, e.g. "4" or "4-6"
	ChunkSize int    // word count
	ImageRef  string // image reference as it appears in the source markdown
	ImagePath string // resolved absolute path of the referenced image, if any
}

// SearchResult pairs a chunk with its similarity score.
type SearchResult struct {
	Chunk      Chunk
	Similarity float32
}
