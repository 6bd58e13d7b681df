package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/yhilem/distill/mimetype"
)

// ODTExtractor parses OpenDocument Text: content.xml carries the body,
// meta.xml the document metadata.
type ODTExtractor struct{}

func (e *ODTExtractor) Name() string { return "odt" }

func (e *ODTExtractor) Supports(mime string) bool { return mime == mimetype.ODT }

func (e *ODTExtractor) Extract(ctx context.Context, content []byte, mime string, cfg *Config) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("opening ODT: %w", err)
	}
	index := zipIndex(zr)

	contentFile := index["content.xml"]
	if contentFile == nil {
		return nil, fmt.Errorf("content.xml not found in ODT")
	}
	data, err := readAllZip(contentFile)
	if err != nil {
		return nil, fmt.Errorf("reading content.xml: %w", err)
	}

	result := &Result{
		Content:  odtBodyText(data),
		MimeType: mime,
	}
	odtMetadata(index, result)
	return result, nil
}

// odtBodyText walks the content XML token stream collecting text. ODF
// interleaves text:p and text:h elements; headings render as markdown
// headings using their outline level.
func odtBodyText(data []byte) string {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	var sb strings.Builder
	var cur strings.Builder
	var inPara, isHeading bool
	level := 1

	flush := func() {
		text := strings.TrimSpace(cur.String())
		cur.Reset()
		if text == "" {
			return
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		if isHeading {
			sb.WriteString(strings.Repeat("#", level) + " ")
		}
		sb.WriteString(text)
	}

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inPara, isHeading = true, false
			case "h":
				inPara, isHeading = true, true
				level = 1
				for _, attr := range t.Attr {
					if attr.Name.Local == "outline-level" {
						if n := attr.Value; len(n) == 1 && n[0] >= '1' && n[0] <= '6' {
							level = int(n[0] - '0')
						}
					}
				}
			case "tab":
				if inPara {
					cur.WriteByte('\t')
				}
			case "line-break":
				if inPara {
					cur.WriteByte('\n')
				}
			case "s": // text:s encodes runs of spaces
				if inPara {
					cur.WriteByte(' ')
				}
			}
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "h" {
				flush()
				inPara = false
			}
		case xml.CharData:
			if inPara {
				cur.Write(t)
			}
		}
	}
	return sb.String()
}

func odtMetadata(index map[string]*zip.File, result *Result) {
	f := index["meta.xml"]
	if f == nil {
		return
	}
	data, err := readAllZip(f)
	if err != nil {
		return
	}
	var meta struct {
		Title   string `xml:"meta>title"`
		Creator string `xml:"meta>creator"`
	}
	if err := xml.Unmarshal(data, &meta); err != nil {
		return
	}
	if meta.Title != "" {
		result.SetMeta("title", meta.Title)
	}
	if meta.Creator != "" {
		result.SetMeta("author", meta.Creator)
	}
}
