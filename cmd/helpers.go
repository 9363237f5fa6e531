package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hbukhari/ragcite/internal/citations"
	"github.com/hbukhari/ragcite/internal/config"
	"github.com/hbukhari/ragcite/internal/embeddings"
	"github.com/hbukhari/ragcite/internal/llm"
	"github.com/hbukhari/ragcite/internal/rag"
	"github.com/hbukhari/ragcite/internal/vectordb"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `ragcite init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
// This is the shared version used by ingest, query, serve, and mcp commands.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = cfg.Provider
	}

	switch provider {
	case config.ProviderOllama:
		return embeddings.NewEmbedder("ollama", cfg.EmbeddingModel, cfg.EmbeddingDims, "", os.Getenv("OLLAMA_HOST")), nil
	default:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewEmbedder("openai", cfg.EmbeddingModel, 0, apiKey, ""), nil
	}
}

// createLLMProviderFromConfig creates an LLM provider based on config settings.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	return llm.NewProvider(string(cfg.Provider), cfg.Model)
}

// openVectorStore creates the chromem store and loads the persisted index
// from the data directory. A missing index is only a warning: the store may
// legitimately be empty before the first ingestion run.
func openVectorStore(ctx context.Context, cfg *config.Config, embedder embeddings.Embedder) (*vectordb.ChromemStore, error) {
	store, err := vectordb.NewChromemStore(embedder)
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	if err := store.Load(ctx, cfg.DataDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load vector index from %s: %v\n", cfg.DataDir, err)
		fmt.Fprintf(os.Stderr, "Search results will be empty. Run `ragcite ingest` first.\n")
	}

	return store, nil
}

// buildOrchestrator wires the full query pipeline: embedder, vector store,
// LLM provider, retriever, session memory, and citation resolver.
func buildOrchestrator(ctx context.Context, cfg *config.Config) (*rag.Orchestrator, *vectordb.ChromemStore, llm.Provider, error) {
	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	store, err := openVectorStore(ctx, cfg, embedder)
	if err != nil {
		return nil, nil, nil, err
	}

	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	retriever := rag.NewRetriever(store, time.Duration(cfg.SearchTimeoutSecs)*time.Second)
	memory := rag.NewMemoryStore(cfg.MaxMemories)
	resolver := citations.NewResolver(store, cfg.CitationsDir)
	orch := rag.NewOrchestrator(provider, cfg.Model, retriever, memory, resolver, cfg)

	return orch, store, provider, nil
}

// databasePath returns the chat database path under the data directory.
func databasePath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "ragcite.db")
}
