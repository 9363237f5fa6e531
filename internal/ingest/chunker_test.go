package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleMarkdown = `{0}------------------------------------------------

# Chapter 1 Introduction

Statistics studies data collection and analysis in depth.

## 1.1 Populations

A population is the full set of units under study and samples are drawn from it.

{1}------------------------------------------------

More population text continuing on the next page of the book.

## 1.2 Figures

See the scatter plot below for details of the relationship.

![scatter](img/scatter.png)

# Chapter 2 Probability

Probability quantifies uncertainty about random outcomes.

` + "```" + `
# not a heading, just code
` + "```" + `

Closing remarks after the code block.
`

func writeDocFolder(t *testing.T, base, name string) string {
	t.Helper()
	dir := filepath.Join(base, name)
	if err := os.MkdirAll(filepath.Join(dir, "img"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"book.md":        sampleMarkdown,
		"blocks.json":    `{}`,
		"book_meta.json": `{"title": "Sample"}`,
		"scatter.png":    "fakeimage",
	}
	for fname, content := range files {
		if err := os.WriteFile(filepath.Join(dir, fname), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestChunkFolder(t *testing.T) {
	base := t.TempDir()
	dir := writeDocFolder(t, base, "book1")

	chunks, err := NewChunker(base).ChunkFolder(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) == 0 {
		t.Fatal("no chunks produced")
	}

	// All chunks share one file id with the fi_ prefix.
	fileID := chunks[0].FileID
	if !strings.HasPrefix(fileID, "fi_") {
		t.Errorf("file id = %q", fileID)
	}
	for _, c := range chunks {
		if c.FileID != fileID {
			t.Error("chunks of one folder must share a file id")
		}
		if !strings.HasPrefix(c.ChunkID, "chk_") {
			t.Errorf("chunk id = %q", c.ChunkID)
		}
		if c.Text == "" {
			t.Error("empty chunk survived")
		}
		if c.ChunkSize != len(strings.Fields(c.Text)) {
			t.Errorf("chunk size %d does not match word count", c.ChunkSize)
		}
	}

	byHeader := make(map[string][]string)
	for _, c := range chunks {
		byHeader[c.Header] = append(byHeader[c.Header], c.Subheader)
	}
	if _, ok := byHeader["Chapter 1 Introduction"]; !ok {
		t.Errorf("missing chapter 1 header, got %v", byHeader)
	}
	if _, ok := byHeader["Chapter 2 Probability"]; !ok {
		t.Errorf("missing chapter 2 header, got %v", byHeader)
	}

	// Subheaders reset at the next level-1 heading.
	for _, sub := range byHeader["Chapter 2 Probability"] {
		if sub != "" {
			t.Errorf("chapter 2 chunk kept stale subheader %q", sub)
		}
	}

	var populations, figures *int
	for i, c := range chunks {
		i := i
		switch c.Subheader {
		case "1.1 Populations":
			populations = &i
		case "1.2 Figures":
			figures = &i
		}
	}
	if populations == nil || figures == nil {
		t.Fatalf("expected subheader chunks, got %+v", byHeader)
	}

	// The populations section spans the {1} page marker.
	if got := chunks[*populations].Page; got != "0-1" {
		t.Errorf("populations page = %q, want 0-1", got)
	}
	if got := chunks[*figures].Page; got != "1" {
		t.Errorf("figures page = %q, want 1", got)
	}

	// Image reference resolved to the on-disk file.
	img := chunks[*figures]
	if img.ImageRef != "img/scatter.png" {
		t.Errorf("image ref = %q", img.ImageRef)
	}
	if !filepath.IsAbs(img.ImagePath) || filepath.Base(img.ImagePath) != "scatter.png" {
		t.Errorf("image path = %q", img.ImagePath)
	}

	// Headings inside code fences do not split chunks.
	for _, c := range chunks {
		if c.Header == "not a heading, just code" {
			t.Error("code fence content treated as heading")
		}
	}
}

func TestDiscoverFolders(t *testing.T) {
	base := t.TempDir()
	writeDocFolder(t, base, "bbb")
	writeDocFolder(t, base, "aaa")

	// A folder without metadata is not a document folder.
	plain := filepath.Join(base, "notes")
	if err := os.MkdirAll(plain, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(plain, "readme.md"), []byte("# hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	folders, err := NewChunker(base).DiscoverFolders()
	if err != nil {
		t.Fatal(err)
	}
	if len(folders) != 2 {
		t.Fatalf("folders = %v", folders)
	}
	if filepath.Base(folders[0]) != "aaa" || filepath.Base(folders[1]) != "bbb" {
		t.Errorf("folders not sorted: %v", folders)
	}
}

func TestSplitMarkdownHierarchy(t *testing.T) {
	sections := splitMarkdown("# H1\n\nintro\n\n## H2a\n\nbody a\n\n### H3\n\nbody b\n\n## H2b\n\nbody c")
	if len(sections) != 4 {
		t.Fatalf("got %d sections", len(sections))
	}
	if sections[0].header != "H1" || sections[0].subheader != "" {
		t.Errorf("section 0 = %+v", sections[0])
	}
	if sections[1].subheader != "H2a" || sections[2].subheader != "H3" || sections[3].subheader != "H2b" {
		t.Errorf("subheaders = %q %q %q", sections[1].subheader, sections[2].subheader, sections[3].subheader)
	}
	// Heading lines stay in the section text.
	if !strings.HasPrefix(sections[1].text, "## H2a") {
		t.Errorf("section text = %q", sections[1].text)
	}
}

func TestPageRangeUnlocatable(t *testing.T) {
	if got := pageRange("totally absent text", "other content"); got != "0" {
		t.Errorf("got %q, want 0", got)
	}
}
