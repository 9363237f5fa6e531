package embeddings

import "context"

// Embedder turns document chunks and search queries into vectors for the
// chunk index. Chunks and queries must be embedded by the same model, or
// similarity scores between them are meaningless.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector width this embedder produces.
	Dimensions() int

	// Name identifies the backing model, for logs and index metadata.
	Name() string
}
