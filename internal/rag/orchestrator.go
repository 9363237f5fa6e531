package rag

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hbukhari/ragcite/internal/citations"
	"github.com/hbukhari/ragcite/internal/config"
	"github.com/hbukhari/ragcite/internal/llm"
)

// CitationResolver renders citation artifacts for cited chunks. Implemented
// by citations.Resolver; kept as an interface so query processing can be
// tested without touching the filesystem.
type CitationResolver interface {
	// ResolveChunk renders the section containing one chunk and returns the
	// artifact path.
	ResolveChunk(ctx context.Context, fileID, chunkID string) (string, error)
	// ResolveChunkList groups chunk ids by owning file and renders one
	// artifact per file.
	ResolveChunkList(ctx context.Context, chunkIDs []string) ([]citations.FileCitation, error)
}

// Citation is one entry in a query result's citation list.
type Citation struct {
	FileID   string   `json:"file_id"`
	ChunkID  string   `json:"chunk_id,omitempty"`
	ChunkIDs []string `json:"chunk_ids,omitempty"`
	Page     string   `json:"page,omitempty"`
	Header   string   `json:"header,omitempty"`
	Path     string   `json:"citation_path"`
}

// Result is the full outcome of one processed query.
type Result struct {
	Status           string            `json:"status"`
	Query            string            `json:"query"`
	Answer           string            `json:"answer"`
	CitationRequired bool              `json:"citation_required"`
	CitationLimit    int               `json:"citation_limit,omitempty"`
	FilesUsed        int               `json:"files_used,omitempty"`
	ChunkReasoning   map[string]string `json:"chunk_reasoning,omitempty"`
	Citations        []Citation        `json:"citations"`
	ChunksRetrieved  int               `json:"chunks_retrieved"`
	SessionID        string            `json:"session_id,omitempty"`
	MemoryUsed       bool              `json:"memory_used"`
}

// Orchestrator drives the full query pipeline: memory, retrieval, prompt,
// generation, parsing, citation resolution, memory update. One orchestrator
// serves both citation modes; the mode picks the prompt contract and the
// citation strategy.
type Orchestrator struct {
	provider       llm.Provider
	model          string
	retriever      *Retriever
	memory         *MemoryStore
	resolver       CitationResolver
	mode           config.CitationMode
	retrievalLimit int
	llmTimeout     time.Duration
}

func NewOrchestrator(provider llm.Provider, model string, retriever *Retriever, memory *MemoryStore, resolver CitationResolver, cfg *config.Config) *Orchestrator {
	llmTimeout := time.Duration(cfg.LLMTimeoutSecs) * time.Second
	if llmTimeout <= 0 {
		llmTimeout = 60 * time.Second
	}
	return &Orchestrator{
		provider:       provider,
		model:          model,
		retriever:      retriever,
		memory:         memory,
		resolver:       resolver,
		mode:           cfg.CitationMode,
		retrievalLimit: cfg.RetrievalLimit,
		llmTimeout:     llmTimeout,
	}
}

// Memory exposes the session memory store for route handlers.
func (o *Orchestrator) Memory() *MemoryStore {
	return o.memory
}

// ProcessQuery runs one query end to end. Retrieval and generation failures
// abort the query; parse failures degrade to an empty answer and citation
// failures degrade to an empty citation list, both still returning success.
func (o *Orchestrator) ProcessQuery(ctx context.Context, query, sessionID string) (*Result, error) {
	memoryContext := ""
	if sessionID != "" {
		memoryContext = o.memory.Context(sessionID, query, 5)
	}

	chunks, err := o.retriever.Retrieve(ctx, query, o.retrievalLimit)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	contextText := BuildContext(chunks)
	prompt := buildQueryPrompt(o.mode, memoryContext, contextText, query)

	llmCtx, cancel := context.WithTimeout(ctx, o.llmTimeout)
	defer cancel()
	resp, err := o.provider.Complete(llmCtx, llm.CompletionRequest{
		Model:    o.model,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		JSONMode: true,
	})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	parsed := ParseStructuredResponse(resp.Content, o.mode)
	if !parsed.Parsed {
		log.Printf("query: unparseable model output, returning safe default (session=%s)", sessionID)
	}

	result := &Result{
		Status:           "success",
		Query:            query,
		Answer:           parsed.Answer,
		CitationRequired: parsed.CitationRequired,
		CitationLimit:    parsed.CitationLimit,
		FilesUsed:        parsed.FilesUsed,
		ChunkReasoning:   parsed.ChunkReasoning,
		Citations:        []Citation{},
		ChunksRetrieved:  len(chunks),
		SessionID:        sessionID,
		MemoryUsed:       memoryContext != "",
	}

	if parsed.CitationRequired {
		result.Citations = o.resolveCitations(ctx, query, parsed)
	}

	if sessionID != "" {
		o.memory.Append(sessionID, query, parsed.Answer, o.memoryMetadata(parsed, result))
	}

	return result, nil
}

// resolveCitations applies the mode's citation strategy. Errors here never
// fail the query; they are logged and yield fewer (or no) citations.
func (o *Orchestrator) resolveCitations(ctx context.Context, query string, parsed StructuredResponse) []Citation {
	switch o.mode {
	case config.ModeCitationLimit:
		if parsed.CitationLimit <= 0 {
			return []Citation{}
		}
		chunks, err := o.retriever.Retrieve(ctx, query, parsed.CitationLimit)
		if err != nil {
			log.Printf("citations: retrieval failed: %v", err)
			return []Citation{}
		}
		out := []Citation{}
		for _, src := range ChunksToSources(chunks) {
			if src.FileID == "" || src.ChunkID == "" {
				continue
			}
			path, err := o.resolver.ResolveChunk(ctx, src.FileID, src.ChunkID)
			if err != nil {
				log.Printf("citations: resolve %s/%s: %v", src.FileID, src.ChunkID, err)
				path = ""
			}
			out = append(out, Citation{
				FileID:  src.FileID,
				ChunkID: src.ChunkID,
				Page:    src.Page,
				Header:  src.Header,
				Path:    path,
			})
		}
		return out

	case config.ModeChunkCited:
		if len(parsed.UsedChunkIDs) == 0 {
			return []Citation{}
		}
		resolved, err := o.resolver.ResolveChunkList(ctx, parsed.UsedChunkIDs)
		if err != nil {
			log.Printf("citations: resolve chunk list: %v", err)
			return []Citation{}
		}
		out := make([]Citation, len(resolved))
		for i, fc := range resolved {
			out[i] = Citation{
				FileID:   fc.FileID,
				ChunkIDs: fc.ChunkIDs,
				Path:     fc.Path,
			}
		}
		return out
	}

	return []Citation{}
}

func (o *Orchestrator) memoryMetadata(parsed StructuredResponse, result *Result) map[string]any {
	md := map[string]any{
		"citation_required": parsed.CitationRequired,
		"citations_count":   len(result.Citations),
		"chunks_retrieved":  result.ChunksRetrieved,
	}
	switch o.mode {
	case config.ModeCitationLimit:
		md["citation_limit"] = parsed.CitationLimit
		md["files_used"] = parsed.FilesUsed
	case config.ModeChunkCited:
		md["used_chunk_ids"] = parsed.UsedChunkIDs
	}
	return md
}
