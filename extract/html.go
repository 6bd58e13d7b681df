package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/yhilem/distill/mimetype"
)

// HTMLExtractor sanitizes markup and converts it to markdown. Document
// metadata (title, description, author) comes from the head element.
type HTMLExtractor struct{}

func (e *HTMLExtractor) Name() string { return "html" }

func (e *HTMLExtractor) Supports(mime string) bool { return mime == mimetype.HTML }

func (e *HTMLExtractor) Extract(ctx context.Context, content []byte, mime string, cfg *Config) (*Result, error) {
	result := &Result{MimeType: mime}
	htmlMetadata(content, result)

	sanitized := bluemonday.UGCPolicy().SanitizeBytes(content)
	if cfg != nil && cfg.HTML != nil && !cfg.HTML.KeepLinks {
		sanitized = dropLinkTargets(sanitized)
	}

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	markdown, err := conv.ConvertString(string(sanitized))
	if err != nil {
		return nil, fmt.Errorf("converting HTML: %w", err)
	}

	result.Content = strings.TrimSpace(markdown)
	return result, nil
}

// dropLinkTargets removes href attributes so links collapse to their
// text in the markdown output.
func dropLinkTargets(markup []byte) []byte {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return markup
	}
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		s.RemoveAttr("href")
	})
	out, err := doc.Html()
	if err != nil {
		return markup
	}
	return []byte(out)
}

// htmlMetadata reads title and meta tags from the unsanitized document
// (sanitization strips the head).
func htmlMetadata(content []byte, result *Result) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		result.SetMeta("title", title)
	}
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		value, _ := s.Attr("content")
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		switch strings.ToLower(name) {
		case "description", "author", "keywords":
			result.SetMeta(strings.ToLower(name), value)
		}
	})
}
