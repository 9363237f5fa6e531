package rag

import (
	"fmt"
	"strings"

	"github.com/hbukhari/ragcite/internal/vectordb"
)

// Source identifies where a chunk came from, for citation records.
type Source struct {
	FileID  string `json:"file_id"`
	ChunkID string `json:"chunk_id"`
	Page    string `json:"page"`
	Header  string `json:"header"`
}

// BuildContext renders retrieved chunks as the prompt context block: chunks
// grouped under a banner per file, each tagged with its chunk id, page, and
// heading path so the model can cite them.
func BuildContext(chunks []vectordb.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}

	// Group by file first: retrieval order interleaves files, but each
	// file's chunks belong under a single banner.
	var fileOrder []string
	byFile := make(map[string][]vectordb.Chunk)
	for _, c := range chunks {
		if _, ok := byFile[c.FileID]; !ok {
			fileOrder = append(fileOrder, c.FileID)
		}
		byFile[c.FileID] = append(byFile[c.FileID], c)
	}

	var parts []string
	for _, fileID := range fileOrder {
		parts = append(parts, fmt.Sprintf("\n=== FILE: %s ===\n", fileID))
		for _, c := range byFile[fileID] {
			parts = append(parts, fmt.Sprintf("[chunk_id: %s]\n[page: %s | %s]\n%s\n",
				c.ChunkID, c.Page, headingPath(c), c.Text))
		}
	}
	return strings.Join(parts, "\n---\n")
}

// ChunksToSources projects chunks onto their citation source records,
// preserving retrieval order.
func ChunksToSources(chunks []vectordb.Chunk) []Source {
	sources := make([]Source, len(chunks))
	for i, c := range chunks {
		header := c.Header
		if header == "" {
			header = c.Subheader
		}
		sources[i] = Source{
			FileID:  c.FileID,
			ChunkID: c.ChunkID,
			Page:    c.Page,
			Header:  header,
		}
	}
	return sources
}

func headingPath(c vectordb.Chunk) string {
	var levels []string
	if c.Header != "" {
		levels = append(levels, c.Header)
	}
	if c.Subheader != "" {
		levels = append(levels, c.Subheader)
	}
	return strings.Join(levels, " → ")
}
