package vectordb

import "context"

// Store defines the interface for indexing and retrieving document chunks
// by embedding similarity and by metadata equality.
type Store interface {
	// AddChunks adds or updates chunks in the index.
	AddChunks(ctx context.Context, chunks []Chunk) error

	// Search performs a nearest-neighbor search using the query text.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)

	// ChunksByFile retrieves all chunks belonging to the given file.
	ChunksByFile(ctx context.Context, fileID string) ([]Chunk, error)

	// ChunksByIDs retrieves the chunks with the given chunk ids.
	// Unknown ids are silently skipped.
	ChunksByIDs(ctx context.Context, chunkIDs []string) ([]Chunk, error)

	// ChunksByHeader retrieves all chunks of a file sharing the given header.
	ChunksByHeader(ctx context.Context, fileID, header string) ([]Chunk, error)

	// Persist saves the index to the given directory.
	Persist(ctx context.Context, dir string) error

	// Load restores the index from the given directory.
	Load(ctx context.Context, dir string) error

	// Count returns the total number of chunks in the index.
	Count() int
}
