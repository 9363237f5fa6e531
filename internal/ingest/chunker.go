package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/hbukhari/ragcite/internal/vectordb"
)

var (
	pageMarkerRe = regexp.MustCompile(`\{(\d+)\}-+`)
	imageRefRe   = regexp.MustCompile(`!\[.*?\]\((.*?)\)`)
	headingRe    = regexp.MustCompile(`^(#{1,4})\s+(.*)$`)
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
	".gif": true, ".bmp": true, ".webp": true,
}

// Chunker splits marker-generated document folders into retrievable chunks.
// Each folder holds one converted document: a markdown file, JSON metadata,
// and extracted images.
type Chunker struct {
	baseDir string
}

func NewChunker(baseDir string) *Chunker {
	return &Chunker{baseDir: baseDir}
}

// DiscoverFolders returns the document folders under the base directory,
// sorted by name. A document folder contains at least one .md and one .json
// file.
func (c *Chunker) DiscoverFolders() ([]string, error) {
	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		return nil, fmt.Errorf("reading docs dir: %w", err)
	}

	var folders []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(c.baseDir, e.Name())
		mds, err := doublestar.FilepathGlob(filepath.Join(dir, "*.md"))
		if err != nil {
			return nil, fmt.Errorf("globbing %s: %w", dir, err)
		}
		jsons, err := doublestar.FilepathGlob(filepath.Join(dir, "*.json"))
		if err != nil {
			return nil, fmt.Errorf("globbing %s: %w", dir, err)
		}
		if len(mds) > 0 && len(jsons) > 0 {
			folders = append(folders, dir)
		}
	}
	sort.Strings(folders)
	return folders, nil
}

// ChunkFolder splits one document folder into chunks sharing a fresh file id.
func (c *Chunker) ChunkFolder(folder string) ([]vectordb.Chunk, error) {
	mds, err := doublestar.FilepathGlob(filepath.Join(folder, "*.md"))
	if err != nil || len(mds) == 0 {
		return nil, fmt.Errorf("no markdown file in %s", folder)
	}
	content, err := os.ReadFile(mds[0])
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", mds[0], err)
	}

	images, err := folderImages(folder)
	if err != nil {
		return nil, err
	}

	fileID := "fi_" + uuid.NewString()
	md := string(content)

	var chunks []vectordb.Chunk
	for _, sec := range splitMarkdown(md) {
		text := strings.TrimSpace(sec.text)
		if text == "" {
			continue
		}

		chunk := vectordb.Chunk{
			ChunkID:   "chk_" + uuid.NewString(),
			FileID:    fileID,
			Text:      text,
			Header:    sec.header,
			Subheader: sec.subheader,
			Page:      pageRange(sec.text, md),
			ChunkSize: len(strings.Fields(sec.text)),
		}

		if refs := imageRefRe.FindAllStringSubmatch(sec.text, -1); len(refs) > 0 {
			chunk.ImageRef = refs[0][1]
			if abs, ok := images[filepath.Base(refs[0][1])]; ok {
				chunk.ImagePath = abs
			}
		}

		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

// section is a heading-delimited span of markdown.
type section struct {
	text      string
	header    string
	subheader string
}

// splitMarkdown splits content at heading lines (levels 1-4), keeping the
// heading line inside its section. Level 1 headings set the header; deeper
// levels set the subheader until the next level 1 heading resets it. Headings
// inside fenced code blocks are ignored.
func splitMarkdown(content string) []section {
	lines := strings.Split(content, "\n")

	var sections []section
	var buf []string
	header := ""
	subheader := ""
	inFence := false

	flush := func() {
		if len(buf) > 0 {
			sections = append(sections, section{
				text:      strings.Join(buf, "\n"),
				header:    header,
				subheader: subheader,
			})
			buf = nil
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			buf = append(buf, line)
			continue
		}

		m := headingRe.FindStringSubmatch(line)
		if m == nil || inFence {
			buf = append(buf, line)
			continue
		}

		flush()
		title := strings.TrimSpace(m[2])
		if len(m[1]) == 1 {
			header = title
			subheader = ""
		} else {
			subheader = title
		}
		buf = append(buf, line)
	}
	flush()

	return sections
}

// pageRange finds the page span of a chunk by locating it in the full
// document and reading the {page}---- markers around it. Returns "0" when the
// chunk cannot be located.
func pageRange(chunkText, content string) string {
	sample := strings.TrimSpace(chunkText)
	if len(sample) > 200 {
		sample = strings.TrimSpace(sample[:200])
	}

	start := strings.Index(content, sample)
	if start == -1 {
		// Fall back to the first substantial line.
		lines := strings.Split(chunkText, "\n")
		if len(lines) > 5 {
			lines = lines[:5]
		}
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if len(line) > 20 {
				if start = strings.Index(content, line); start != -1 {
					break
				}
			}
		}
	}
	if start == -1 {
		return "0"
	}

	startPage := 0
	if before := pageMarkerRe.FindAllStringSubmatch(content[:start], -1); len(before) > 0 {
		startPage, _ = strconv.Atoi(before[len(before)-1][1])
	}

	endPage := startPage
	end := start + len(chunkText)
	if end > len(content) {
		end = len(content)
	}
	if within := pageMarkerRe.FindAllStringSubmatch(content[start:end], -1); len(within) > 0 {
		endPage, _ = strconv.Atoi(within[len(within)-1][1])
	}

	if startPage == endPage {
		return strconv.Itoa(startPage)
	}
	return fmt.Sprintf("%d-%d", startPage, endPage)
}

// folderImages maps image file names in the folder to absolute paths.
func folderImages(folder string) (map[string]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("reading folder %s: %w", folder, err)
	}
	images := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			abs, err := filepath.Abs(filepath.Join(folder, e.Name()))
			if err != nil {
				return nil, err
			}
			images[e.Name()] = abs
		}
	}
	return images, nil
}
