package config

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderOpenAI,
		Model:             "gpt-4o",
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-small",
		DataDir:           ".ragcite",
		DocsDir:           "data",
		CitationsDir:      "citations",
		Port:              8000,
		CitationMode:      ModeChunkCited,
		RetrievalLimit:    10,
		MaxMemories:       20,
		LLMTimeoutSecs:    60,
		SearchTimeoutSecs: 15,
	}
}
