package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to the given path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to ragcite! Let's configure your knowledge base.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. LLM provider.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	// 2. Model.
	defaultModel := "gpt-4o"
	if cfg.Provider == ProviderOllama {
		defaultModel = "llama3"
	}
	modelPrompt := promptui.Prompt{
		Label:   "Chat model",
		Default: defaultModel,
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 3. Embedding provider. Defaults to the chat provider.
	embedPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{"openai", "ollama"},
	}
	_, embedStr, err := embedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding provider selection: %w", err)
	}
	cfg.EmbeddingProvider = ProviderType(embedStr)

	defaultEmbedModel := "text-embedding-3-small"
	if cfg.EmbeddingProvider == ProviderOllama {
		defaultEmbedModel = "nomic-embed-text"
	}
	embedModelPrompt := promptui.Prompt{
		Label:   "Embedding model",
		Default: defaultEmbedModel,
	}
	if cfg.EmbeddingModel, err = embedModelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("embedding model: %w", err)
	}

	if cfg.EmbeddingProvider == ProviderOllama {
		dimsPrompt := promptui.Prompt{
			Label:   "Embedding dimensions",
			Default: "768",
			Validate: func(s string) error {
				n, err := strconv.Atoi(s)
				if err != nil || n <= 0 {
					return fmt.Errorf("must be a positive integer")
				}
				return nil
			},
		}
		dimsStr, err := dimsPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("embedding dimensions: %w", err)
		}
		cfg.EmbeddingDims, _ = strconv.Atoi(dimsStr)
	}

	// 4. Citation mode.
	modePrompt := promptui.Select{
		Label: "Citation mode",
		Items: []string{
			"chunk_cited    - model names the exact chunks it used",
			"citation_limit - model reports a citation budget only",
		},
	}
	modeIdx, _, err := modePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("citation mode: %w", err)
	}
	modes := []CitationMode{ModeChunkCited, ModeCitationLimit}
	cfg.CitationMode = modes[modeIdx]

	// 5. Documents directory.
	docsPrompt := promptui.Prompt{
		Label:   "Directory containing document folders to ingest",
		Default: cfg.DocsDir,
	}
	if cfg.DocsDir, err = docsPrompt.Run(); err != nil {
		return nil, fmt.Errorf("docs dir: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.Save(path); err != nil {
		return nil, err
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" {
		fmt.Printf("Remember to set %s before running `ragcite serve`.\n", envVar)
	}

	return cfg, nil
}
