package citations

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hbukhari/ragcite/internal/vectordb"
)

var (
	numberedHeadingRe = regexp.MustCompile(`(?m)^(\d+(?:\.\d+)*)\s+(.*)$`)
	pageMarkerRe      = regexp.MustCompile(`\{\d+\}-+`)
	imageRe           = regexp.MustCompile(`!\[.*?\]\(.*?\)`)
)

// detectHeading finds the section heading for a chunk: its header metadata if
// set, otherwise the first numbered heading line in its text.
func detectHeading(c vectordb.Chunk) string {
	if c.Header != "" {
		return strings.TrimSpace(c.Header)
	}
	if m := numberedHeadingRe.FindStringSubmatch(c.Text); m != nil {
		return strings.TrimSpace(m[2])
	}
	return "Referenced Section"
}

// buildSectionMarkdown renders a section's chunks as a markdown document:
// heading, per-chunk source-page labels, page-break dividers when the source
// page changes, and the cited chunks wrapped in a highlight block. Chunks are
// ordered by chunk id.
func buildSectionMarkdown(chunks []vectordb.Chunk, targets map[string]struct{}, heading string) string {
	ordered := make([]vectordb.Chunk, len(chunks))
	copy(ordered, chunks)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ChunkID < ordered[j].ChunkID
	})

	var md []string
	md = append(md, fmt.Sprintf("# %s\n", heading))

	lastPage := ""
	for _, c := range ordered {
		if lastPage != "" && c.Page != lastPage {
			md = append(md, "\n<div class='page-break'></div>\n")
		}
		lastPage = c.Page

		md = append(md, fmt.Sprintf("<div class='source-page'>Source page: %s</div>\n", c.Page))

		text := strings.TrimSpace(pageMarkerRe.ReplaceAllString(c.Text, ""))

		// Rewrite image links to absolute file URLs so the artifact renders
		// outside the docs tree.
		if c.ImagePath != "" {
			imgPath := strings.ReplaceAll(c.ImagePath, "\\", "/")
			text = imageRe.ReplaceAllString(text, fmt.Sprintf("![](file:///%s)", imgPath))
		}

		if _, cited := targets[c.ChunkID]; cited {
			md = append(md, fmt.Sprintf("<div class=\"highlight\">\n\n%s\n\n</div>\n", text))
		} else {
			md = append(md, text+"\n")
		}
	}

	return strings.Join(md, "\n")
}
