package extract

import (
	"context"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/yhilem/distill/mimetype"
)

// MarkdownExtractor passes markdown content through while mining the AST
// for metadata: the first top-level heading becomes the title, and pipe
// tables are lifted into structured Tables.
type MarkdownExtractor struct{}

func (e *MarkdownExtractor) Name() string { return "markdown" }

func (e *MarkdownExtractor) Supports(mime string) bool {
	return mime == mimetype.Markdown || mime == "text/x-markdown"
}

func (e *MarkdownExtractor) Extract(ctx context.Context, content []byte, mime string, cfg *Config) (*Result, error) {
	result := &Result{
		Content:  safeDecode(content),
		MimeType: mime,
	}

	source := []byte(result.Content)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	headings := 0
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			headings++
			if _, seen := result.Metadata["title"]; !seen && h.Level == 1 {
				result.SetMeta("title", string(headingText(h, source)))
			}
		}
		return ast.WalkContinue, nil
	})
	if headings > 0 {
		result.SetMeta("heading_count", strconv.Itoa(headings))
	}

	if tables := pipeTables(result.Content); len(tables) > 0 {
		result.Tables = tables
	}
	return result, nil
}

func headingText(h *ast.Heading, source []byte) []byte {
	var sb strings.Builder
	for c := h.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
		}
	}
	return []byte(strings.TrimSpace(sb.String()))
}

// pipeTables scans for GFM pipe tables (goldmark's core parser does not
// build table nodes without the GFM extension, and the raw rows are what
// the Table type wants anyway).
func pipeTables(content string) []Table {
	var tables []Table
	var rows [][]string

	flush := func() {
		// A pipe table needs a header row and a separator row.
		if len(rows) >= 2 && isSeparatorRow(rows[1]) {
			cells := append([][]string{rows[0]}, rows[2:]...)
			tables = append(tables, Table{Cells: cells, Markdown: rowsToMarkdown(cells)})
		}
		rows = nil
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|") && len(trimmed) > 1 {
			inner := strings.Trim(trimmed, "|")
			parts := strings.Split(inner, "|")
			cells := make([]string, len(parts))
			for i, p := range parts {
				cells[i] = strings.TrimSpace(p)
			}
			rows = append(rows, cells)
			continue
		}
		flush()
	}
	flush()
	return tables
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			return false
		}
		for _, r := range c {
			if r != '-' && r != ':' {
				return false
			}
		}
	}
	return len(cells) > 0
}
