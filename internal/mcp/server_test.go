package mcp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hbukhari/ragcite/internal/citations"
	"github.com/hbukhari/ragcite/internal/config"
	"github.com/hbukhari/ragcite/internal/llm"
	"github.com/hbukhari/ragcite/internal/rag"
	"github.com/hbukhari/ragcite/internal/vectordb"
)

// mockStore implements vectordb.Store for testing.
type mockStore struct {
	chunks []vectordb.Chunk
}

func (m *mockStore) AddChunks(_ context.Context, chunks []vectordb.Chunk) error {
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *mockStore) Search(_ context.Context, _ string, limit int) ([]vectordb.SearchResult, error) {
	var results []vectordb.SearchResult
	for _, c := range m.chunks {
		results = append(results, vectordb.SearchResult{Chunk: c, Similarity: 0.95})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (m *mockStore) ChunksByFile(_ context.Context, fileID string) ([]vectordb.Chunk, error) {
	var out []vectordb.Chunk
	for _, c := range m.chunks {
		if c.FileID == fileID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStore) ChunksByIDs(_ context.Context, ids []string) ([]vectordb.Chunk, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []vectordb.Chunk
	for _, c := range m.chunks {
		if want[c.ChunkID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStore) ChunksByHeader(_ context.Context, fileID, header string) ([]vectordb.Chunk, error) {
	var out []vectordb.Chunk
	for _, c := range m.chunks {
		if c.FileID == fileID && c.Header == header {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStore) Persist(context.Context, string) error { return nil }
func (m *mockStore) Load(context.Context, string) error    { return nil }
func (m *mockStore) Count() int                            { return len(m.chunks) }

type mockProvider struct {
	response string
}

func (p *mockProvider) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: p.response}, nil
}

func (p *mockProvider) Name() string { return "mock" }

func testServer(t *testing.T, response string) (*Server, *mockStore) {
	t.Helper()
	store := &mockStore{chunks: []vectordb.Chunk{
		{ChunkID: "chk_a", FileID: "fi_1", Text: "Regression fits a line.", Header: "Regression", Page: "12"},
		{ChunkID: "chk_b", FileID: "fi_1", Text: "Residuals measure error.", Header: "Regression", Page: "13"},
	}}

	cfg := config.DefaultConfig()
	cfg.CitationMode = config.ModeChunkCited
	retriever := rag.NewRetriever(store, 5*time.Second)
	memory := rag.NewMemoryStore(cfg.MaxMemories)
	resolver := citations.NewResolver(store, t.TempDir())
	orch := rag.NewOrchestrator(&mockProvider{response: response}, cfg.Model, retriever, memory, resolver, cfg)

	return NewServer(orch, store), store
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"ask_documents", askDocumentsTool, "ask_documents"},
		{"search_documents", searchDocumentsTool, "search_documents"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv, store := testServer(t, "{}")
	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
	if srv.store != store {
		t.Error("store not set correctly")
	}
}

func TestHandleAskDocuments(t *testing.T) {
	srv, _ := testServer(t, `{"answer": "A line of best fit.", "citation_required": "yes",
		"used_chunk_ids": ["chk_a"], "chunk_reasoning": {"chk_a": "defines it"}}`)
	ctx := context.Background()

	t.Run("answer with citations", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"query": "what is regression",
		}

		result, err := srv.handleAskDocuments(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := resultText(t, result)
		if !strings.Contains(text, "A line of best fit.") {
			t.Errorf("answer missing: %s", text)
		}
		if !strings.Contains(text, "Citations:") || !strings.Contains(text, "fi_1") {
			t.Errorf("citations missing: %s", text)
		}
	})

	t.Run("missing query", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleAskDocuments(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing query")
		}
	})
}

func TestHandleSearchDocuments(t *testing.T) {
	srv, _ := testServer(t, "{}")
	ctx := context.Background()

	t.Run("basic search", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"query": "regression",
			"limit": 1,
		}

		result, err := srv.handleSearchDocuments(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := resultText(t, result)
		if !strings.Contains(text, "Found 1 result(s)") {
			t.Errorf("limit not honored: %s", text)
		}
		if !strings.Contains(text, "chk_a") || !strings.Contains(text, "Section: Regression") {
			t.Errorf("chunk metadata missing: %s", text)
		}
	})

	t.Run("empty store", func(t *testing.T) {
		emptySrv := NewServer(nil, &mockStore{})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"query": "anything",
		}

		result, err := emptySrv.handleSearchDocuments(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Error("empty results should not be an error")
		}
		if !strings.Contains(resultText(t, result), "ragcite ingest") {
			t.Error("empty result should hint at ingestion")
		}
	})

	t.Run("missing query", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleSearchDocuments(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing query")
		}
	})
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	var sb strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}
