package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// handleAskDocuments runs a full query through the pipeline and formats the
// answer with its citations.
func (s *Server) handleAskDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	sessionID := request.GetString("session_id", "")

	result, err := s.orch.ProcessQuery(ctx, query, sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	var sb strings.Builder
	if result.Answer == "" {
		sb.WriteString("No answer could be produced for this question.\n")
	} else {
		sb.WriteString(result.Answer)
		sb.WriteString("\n")
	}

	if len(result.Citations) > 0 {
		sb.WriteString("\nCitations:\n")
		for _, c := range result.Citations {
			switch {
			case c.ChunkID != "":
				sb.WriteString(fmt.Sprintf("- file %s, chunk %s", c.FileID, c.ChunkID))
			case len(c.ChunkIDs) > 0:
				sb.WriteString(fmt.Sprintf("- file %s, chunks %s", c.FileID, strings.Join(c.ChunkIDs, ", ")))
			default:
				sb.WriteString(fmt.Sprintf("- file %s", c.FileID))
			}
			if c.Path != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", c.Path))
			}
			sb.WriteString("\n")
		}
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// handleSearchDocuments performs raw similarity search over the chunk index.
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	results, err := s.store.Search(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No results found. The document library may not be indexed yet. Run `ragcite ingest` to index it."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n", len(results)))
	for i, r := range results {
		c := r.Chunk
		sb.WriteString(fmt.Sprintf("\n--- Result %d ---\n", i+1))
		sb.WriteString(fmt.Sprintf("File: %s\n", c.FileID))
		sb.WriteString(fmt.Sprintf("Chunk: %s\n", c.ChunkID))
		if c.Page != "" {
			sb.WriteString(fmt.Sprintf("Page: %s\n", c.Page))
		}
		heading := c.Header
		if c.Subheader != "" {
			heading += " → " + c.Subheader
		}
		if heading != "" {
			sb.WriteString(fmt.Sprintf("Section: %s\n", heading))
		}
		sb.WriteString(fmt.Sprintf("Similarity: %.1f%%\n", r.Similarity*100))
		sb.WriteString("\n")
		sb.WriteString(c.Text)
		sb.WriteString("\n")
	}

	return mcp.NewToolResultText(sb.String()), nil
}
