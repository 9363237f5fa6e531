package vectordb

import (
	"context"
	"fmt"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/hbukhari/ragcite/internal/embeddings"
)

const collectionName = "knowledge_base_v1"

// ChromemStore implements Store using chromem-go.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
	embedFunc  chromem.EmbeddingFunc
}

// NewChromemStore creates a new in-memory ChromemStore.
func NewChromemStore(embedder embeddings.Embedder) (*ChromemStore, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{
		db:         db,
		collection: col,
		embedder:   embedder,
		embedFunc:  ef,
	}, nil
}

func (s *ChromemStore) AddChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:       c.ChunkID,
			Content:  c.Text,
			Metadata: chunkToMap(c),
		}
	}

	return s.collection.AddDocuments(ctx, docs, 1)
}

func (s *ChromemStore) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	// chromem-go requires nResults <= collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := s.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	searchResults := make([]SearchResult, len(results))
	for i, r := range results {
		searchResults[i] = SearchResult{
			Chunk:      resultToChunk(r),
			Similarity: r.Similarity,
		}
	}

	return searchResults, nil
}

func (s *ChromemStore) ChunksByFile(ctx context.Context, fileID string) ([]Chunk, error) {
	return s.queryByMetadata(ctx, fileID, map[string]string{"file_id": fileID})
}

func (s *ChromemStore) ChunksByIDs(ctx context.Context, chunkIDs []string) ([]Chunk, error) {
	var chunks []Chunk
	for _, id := range chunkIDs {
		matches, err := s.queryByMetadata(ctx, id, map[string]string{"chunk_id": id})
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, matches...)
	}
	return chunks, nil
}

func (s *ChromemStore) ChunksByHeader(ctx context.Context, fileID, header string) ([]Chunk, error) {
	return s.queryByMetadata(ctx, header, map[string]string{
		"file_id": fileID,
		"header":  header,
	})
}

// queryByMetadata retrieves all chunks matching the where clause. chromem has
// no pure metadata scan, so the filter text doubles as the query with the
// collection size as the result cap.
func (s *ChromemStore) queryByMetadata(ctx context.Context, queryText string, where map[string]string) ([]Chunk, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}

	results, err := s.collection.Query(ctx, queryText, count, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem metadata query: %w", err)
	}

	chunks := make([]Chunk, len(results))
	for i, r := range results {
		chunks[i] = resultToChunk(r)
	}
	return chunks, nil
}

func (s *ChromemStore) Persist(ctx context.Context, dir string) error {
	return s.db.ExportToFile(dir+"/chromem.gob.gz", true, "")
}

func (s *ChromemStore) Load(ctx context.Context, dir string) error {
	err := s.db.ImportFromFile(dir+"/chromem.gob.gz", "")
	if err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col := s.db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	s.collection = col
	return nil
}

func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

// chunkToMap converts chunk metadata to a flat map[string]string for chromem.
func chunkToMap(c Chunk) map[string]string {
	return map[string]string{
		"chunk_id":   c.ChunkID,
		"file_id":    c.FileID,
		"header":     c.Header,
		"subheader":  c.Subheader,
		"page":       c.Page,
		"chunk_size": strconv.Itoa(c.ChunkSize),
		"image_ref":  c.ImageRef,
		"image_path": c.ImagePath,
	}
}

// resultToChunk converts a chromem query result back to a Chunk.
func resultToChunk(r chromem.Result) Chunk {
	size, _ := strconv.Atoi(r.Metadata["chunk_size"])
	return Chunk{
		ChunkID:   r.Metadata["chunk_id"],
		FileID:    r.Metadata["file_id"],
		Text:      r.Content,
		Header:    r.Metadata["header"],
		Subheader: r.Metadata["subheader"],
		Page:      r.Metadata["page"],
		ChunkSize: size,
		ImageRef:  r.Metadata["image_ref"],
		ImagePath: r.Metadata["image_path"],
	}
}
