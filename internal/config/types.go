package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// CitationMode selects how the model is asked to ground its answers.
type CitationMode string

const (
	// ModeChunkCited asks the model to name the exact chunk ids it used,
	// with a reasoning entry per chunk.
	ModeChunkCited CitationMode = "chunk_cited"
	// ModeCitationLimit asks the model only for a citation budget derived
	// from how many distinct files the answer drew on.
	ModeCitationLimit CitationMode = "citation_limit"
)

// Config is the top-level ragcite configuration, corresponding to .ragcite.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`
	// EmbeddingDims is required for Ollama embedding models, where the
	// dimension count cannot be derived from the model name.
	EmbeddingDims int `yaml:"embedding_dims" koanf:"embedding_dims"`

	DataDir      string `yaml:"data_dir" koanf:"data_dir"`           // sqlite DB, vector index, ingestion log
	DocsDir      string `yaml:"docs_dir" koanf:"docs_dir"`           // source document folders for ingestion
	CitationsDir string `yaml:"citations_dir" koanf:"citations_dir"` // rendered citation HTML artifacts

	Port     int  `yaml:"port" koanf:"port"`
	AllowAll bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`

	CitationMode   CitationMode `yaml:"citation_mode" koanf:"citation_mode"`
	RetrievalLimit int          `yaml:"retrieval_limit" koanf:"retrieval_limit"`
	MaxMemories    int          `yaml:"max_memories" koanf:"max_memories"`

	// Deadlines for external calls, in seconds. Zero falls back to the
	// built-in defaults (60s LLM, 15s search).
	LLMTimeoutSecs    int `yaml:"llm_timeout_secs" koanf:"llm_timeout_secs"`
	SearchTimeoutSecs int `yaml:"search_timeout_secs" koanf:"search_timeout_secs"`
}
