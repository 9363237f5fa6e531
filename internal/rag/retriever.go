package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/hbukhari/ragcite/internal/vectordb"
)

// Retriever runs similarity search against the vector store with a bounded
// deadline per call.
type Retriever struct {
	store   vectordb.Store
	timeout time.Duration
}

func NewRetriever(store vectordb.Store, timeout time.Duration) *Retriever {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Retriever{store: store, timeout: timeout}
}

// Retrieve returns up to limit chunks ranked by similarity to the query.
func (r *Retriever) Retrieve(ctx context.Context, query string, limit int) ([]vectordb.Chunk, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	results, err := r.store.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	chunks := make([]vectordb.Chunk, len(results))
	for i, res := range results {
		chunks[i] = res.Chunk
	}
	return chunks, nil
}
