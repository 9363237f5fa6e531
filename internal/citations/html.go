package citations

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	ghtml "github.com/yuin/goldmark/renderer/html"
)

var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
		),
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		ghtml.WithUnsafe(),
	),
)

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>%s</title>

  <script src="https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-mml-chtml.js"></script>

  <style>
    body {
      font-family: Georgia, serif;
      line-height: 1.65;
      margin: 40px;
      max-width: 900px;
    }

    h1 { font-size: 28px; }
    h2 { font-size: 22px; }
    h3 { font-size: 18px; }

    .source-page {
      font-size: 12px;
      color: #555;
      margin: 10px 0;
    }

    .highlight {
      background: #fff59d;
      padding: 12px;
      border-radius: 4px;
      margin: 12px 0;
    }

    img {
      max-width: 100%%;
      display: block;
      margin: 16px auto;
    }

    table {
      border-collapse: collapse;
      margin: 16px 0;
      width: 100%%;
    }

    th, td {
      border: 1px solid #ccc;
      padding: 6px 10px;
    }

    .page-break {
      margin: 40px 0;
      border-top: 1px dashed #aaa;
    }
  </style>
</head>
<body>

%s

</body>
</html>
`

// renderHTML converts section markdown to a standalone HTML page with the
// fixed citation stylesheet and MathJax.
func renderHTML(markdown, title string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return fmt.Sprintf(pageTemplate, html.EscapeString(title), buf.String()), nil
}
