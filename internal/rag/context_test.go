package rag

import (
	"strings"
	"testing"

	"github.com/hbukhari/ragcite/internal/vectordb"
)

func TestBuildContext(t *testing.T) {
	chunks := []vectordb.Chunk{
		{ChunkID: "chk_a", FileID: "fi_1", Text: "First chunk.", Header: "Regression", Subheader: "Least Squares", Page: "12"},
		{ChunkID: "chk_b", FileID: "fi_1", Text: "Second chunk.", Header: "Regression", Page: "13"},
		{ChunkID: "chk_c", FileID: "fi_2", Text: "Other file.", Page: "3"},
	}

	got := BuildContext(chunks)

	if !strings.Contains(got, "=== FILE: fi_1 ===") {
		t.Error("missing file banner for fi_1")
	}
	if !strings.Contains(got, "=== FILE: fi_2 ===") {
		t.Error("missing file banner for fi_2")
	}
	if strings.Count(got, "=== FILE: fi_1 ===") != 1 {
		t.Error("file banner must appear once per file")
	}
	if !strings.Contains(got, "[chunk_id: chk_a]") {
		t.Error("missing chunk id tag")
	}
	if !strings.Contains(got, "[page: 12 | Regression → Least Squares]") {
		t.Errorf("heading path wrong:\n%s", got)
	}
	if !strings.Contains(got, "[page: 13 | Regression]") {
		t.Error("single-level heading path wrong")
	}
	if !strings.Contains(got, "[page: 3 | ]") {
		t.Error("headerless chunk should render an empty heading path")
	}
	if !strings.Contains(got, "\n---\n") {
		t.Error("parts must be separated by --- dividers")
	}
}

func TestBuildContextGroupsInterleavedFiles(t *testing.T) {
	// Similarity-ranked retrieval interleaves files; every chunk must still
	// render under its own file's banner.
	chunks := []vectordb.Chunk{
		{ChunkID: "chk_a1", FileID: "fi_a", Text: "alpha one", Page: "1"},
		{ChunkID: "chk_b1", FileID: "fi_b", Text: "beta one", Page: "7"},
		{ChunkID: "chk_a2", FileID: "fi_a", Text: "alpha two", Page: "2"},
	}

	got := BuildContext(chunks)

	bannerA := strings.Index(got, "=== FILE: fi_a ===")
	bannerB := strings.Index(got, "=== FILE: fi_b ===")
	secondA := strings.Index(got, "alpha two")
	if bannerA == -1 || bannerB == -1 || secondA == -1 {
		t.Fatalf("missing banner or chunk:\n%s", got)
	}
	if bannerA > bannerB {
		t.Errorf("file order should follow first appearance:\n%s", got)
	}
	if !(secondA > bannerA && secondA < bannerB) {
		t.Errorf("later chunk of fi_a rendered outside its file block:\n%s", got)
	}
	if strings.Count(got, "=== FILE: fi_a ===") != 1 {
		t.Error("file banner must appear once per file")
	}
}

func TestBuildContextEmpty(t *testing.T) {
	if got := BuildContext(nil); got != "" {
		t.Errorf("empty retrieval context = %q, want empty", got)
	}
}

func TestChunksToSources(t *testing.T) {
	chunks := []vectordb.Chunk{
		{ChunkID: "chk_a", FileID: "fi_1", Page: "12", Header: "Regression"},
		{ChunkID: "chk_b", FileID: "fi_2", Page: "3", Subheader: "Sampling"},
	}
	sources := ChunksToSources(chunks)
	if len(sources) != 2 {
		t.Fatalf("got %d sources", len(sources))
	}
	if sources[0].ChunkID != "chk_a" || sources[0].FileID != "fi_1" || sources[0].Header != "Regression" {
		t.Errorf("source[0] = %+v", sources[0])
	}
	if sources[1].ChunkID != "chk_b" {
		t.Errorf("source order not preserved: %+v", sources)
	}
	if sources[1].Header != "Sampling" {
		t.Errorf("subheader-only chunk header = %q, want subheader fallback", sources[1].Header)
	}
}
