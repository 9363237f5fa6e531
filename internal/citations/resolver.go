package citations

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/hbukhari/ragcite/internal/vectordb"
)

// FileCitation is one rendered artifact covering all cited chunks from a
// single file.
type FileCitation struct {
	FileID   string   `json:"file_id"`
	ChunkIDs []string `json:"chunk_ids"`
	Path     string   `json:"citation_path"`
}

// Resolver turns cited chunk ids into standalone HTML artifacts on disk. For
// each citation it locates the section containing the cited chunk, renders the
// whole section with the cited chunks highlighted, and writes the page under
// the citations directory.
type Resolver struct {
	store  vectordb.Store
	outDir string
}

func NewResolver(store vectordb.Store, outDir string) *Resolver {
	return &Resolver{store: store, outDir: outDir}
}

// ResolveChunk renders the section containing the target chunk and returns
// the artifact path. Fails if the chunk does not exist in the file.
func (r *Resolver) ResolveChunk(ctx context.Context, fileID, chunkID string) (string, error) {
	all, err := r.store.ChunksByFile(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("fetch chunks for %s: %w", fileID, err)
	}

	target, ok := findChunk(all, chunkID)
	if !ok {
		return "", fmt.Errorf("chunk %s not found in file %s", chunkID, fileID)
	}

	heading := detectHeading(target)
	section := r.sectionChunks(ctx, fileID, heading, all)

	stub := fmt.Sprintf("%s%s", prefix(fileID, 5), suffix(chunkID, 5))
	return r.writeArtifact(section, map[string]struct{}{chunkID: {}}, heading, stub)
}

// ResolveChunkList groups chunk ids by owning file and renders one artifact
// per file, highlighting every cited chunk from that file.
func (r *Resolver) ResolveChunkList(ctx context.Context, chunkIDs []string) ([]FileCitation, error) {
	chunks, err := r.store.ChunksByIDs(ctx, chunkIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve chunk ids: %w", err)
	}

	grouped := make(map[string][]string)
	for _, c := range chunks {
		grouped[c.FileID] = append(grouped[c.FileID], c.ChunkID)
	}

	fileIDs := make([]string, 0, len(grouped))
	for id := range grouped {
		fileIDs = append(fileIDs, id)
	}
	sort.Strings(fileIDs)

	var out []FileCitation
	for _, fileID := range fileIDs {
		ids := grouped[fileID]

		all, err := r.store.ChunksByFile(ctx, fileID)
		if err != nil {
			return nil, fmt.Errorf("fetch chunks for %s: %w", fileID, err)
		}
		target, ok := findChunk(all, ids[0])
		if !ok {
			return nil, fmt.Errorf("chunk %s not found in file %s", ids[0], fileID)
		}

		heading := detectHeading(target)
		section := r.sectionChunks(ctx, fileID, heading, all)

		targets := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			targets[id] = struct{}{}
		}
		stub := fmt.Sprintf("%s_%dchunks", prefix(fileID, 5), len(ids))
		path, err := r.writeArtifact(section, targets, heading, stub)
		if err != nil {
			return nil, err
		}
		out = append(out, FileCitation{FileID: fileID, ChunkIDs: ids, Path: path})
	}

	return out, nil
}

// sectionChunks fetches the chunks sharing the target's heading. A failed
// header query falls back to filtering the already fetched file chunks.
func (r *Resolver) sectionChunks(ctx context.Context, fileID, heading string, all []vectordb.Chunk) []vectordb.Chunk {
	section, err := r.store.ChunksByHeader(ctx, fileID, heading)
	if err == nil {
		return section
	}
	log.Printf("citations: header query failed for %q, filtering locally: %v", heading, err)
	var filtered []vectordb.Chunk
	for _, c := range all {
		if c.Header == heading {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

func (r *Resolver) writeArtifact(section []vectordb.Chunk, targets map[string]struct{}, heading, stub string) (string, error) {
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return "", fmt.Errorf("create citations dir: %w", err)
	}

	markdown := buildSectionMarkdown(section, targets, heading)
	page, err := renderHTML(markdown, heading)
	if err != nil {
		return "", err
	}

	path, err := filepath.Abs(filepath.Join(r.outDir, stub+"_citation.html"))
	if err != nil {
		return "", fmt.Errorf("resolve citations dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		return "", fmt.Errorf("write citation artifact: %w", err)
	}
	return path, nil
}

func findChunk(chunks []vectordb.Chunk, chunkID string) (vectordb.Chunk, bool) {
	for _, c := range chunks {
		if c.ChunkID == chunkID {
			return c, true
		}
	}
	return vectordb.Chunk{}, false
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func suffix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
