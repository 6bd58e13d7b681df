package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/yhilem/distill/mimetype"
)

// DOCXExtractor parses the modern Word container: word/document.xml for
// paragraphs and tables, docProps/core.xml for metadata, word/media/ for
// embedded images when image extraction is enabled.
type DOCXExtractor struct{}

func (e *DOCXExtractor) Name() string { return "docx" }

func (e *DOCXExtractor) Supports(mime string) bool { return mime == mimetype.DOCX }

func (e *DOCXExtractor) Extract(ctx context.Context, content []byte, mime string, cfg *Config) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("opening DOCX: %w", err)
	}

	index := zipIndex(zr)
	docFile := index["word/document.xml"]
	if docFile == nil {
		return nil, fmt.Errorf("word/document.xml not found in DOCX")
	}
	data, err := readAllZip(docFile)
	if err != nil {
		return nil, fmt.Errorf("reading document.xml: %w", err)
	}

	var doc docxDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing DOCX XML: %w", err)
	}

	result := &Result{MimeType: mime}

	var sb strings.Builder
	for _, para := range doc.Body.Paras {
		text := docxParaText(para)
		if text == "" {
			continue
		}
		if level := docxHeadingLevel(para); level > 0 {
			if sb.Len() > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(strings.Repeat("#", level) + " " + text)
		} else {
			if sb.Len() > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(text)
		}
	}

	for _, tbl := range doc.Body.Tables {
		rows := make([][]string, 0, len(tbl.Rows))
		for _, row := range tbl.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				var cellText strings.Builder
				for _, p := range cell.Paras {
					if t := docxParaText(p); t != "" {
						if cellText.Len() > 0 {
							cellText.WriteByte(' ')
						}
						cellText.WriteString(t)
					}
				}
				cells = append(cells, cellText.String())
			}
			rows = append(rows, cells)
		}
		if len(rows) == 0 {
			continue
		}
		table := Table{Cells: rows, Markdown: rowsToMarkdown(rows)}
		result.Tables = append(result.Tables, table)
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(table.Markdown)
	}

	result.Content = sb.String()
	docxCoreProperties(index, result)

	if cfg != nil && cfg.Images != nil {
		result.Images = docxImages(data, index, cfg.Images.MaxImages)
	}
	return result, nil
}

// docxDocument mirrors the subset of WordprocessingML the extractor reads.
type docxDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    docxBody `xml:"body"`
}

type docxBody struct {
	Paras  []docxPara  `xml:"p"`
	Tables []docxTable `xml:"tbl"`
}

type docxPara struct {
	PPr  *docxPPr  `xml:"pPr"`
	Runs []docxRun `xml:"r"`
}

type docxPPr struct {
	PStyle *docxPStyle `xml:"pStyle"`
}

type docxPStyle struct {
	Val string `xml:"val,attr"`
}

type docxRun struct {
	Text  string `xml:"t"`
	Tab   *struct{} `xml:"tab"`
	Break *struct{} `xml:"br"`
}

type docxTable struct {
	Rows []docxRow `xml:"tr"`
}

type docxRow struct {
	Cells []docxCell `xml:"tc"`
}

type docxCell struct {
	Paras []docxPara `xml:"p"`
}

func docxParaText(p docxPara) string {
	var sb strings.Builder
	for _, r := range p.Runs {
		if r.Tab != nil {
			sb.WriteByte('\t')
		}
		if r.Break != nil {
			sb.WriteByte('\n')
		}
		sb.WriteString(r.Text)
	}
	return strings.TrimSpace(sb.String())
}

// docxHeadingLevel maps a paragraph style like "Heading2" or "Title" to
// a heading level, or 0 for body text.
func docxHeadingLevel(p docxPara) int {
	if p.PPr == nil || p.PPr.PStyle == nil {
		return 0
	}
	style := strings.ToLower(p.PPr.PStyle.Val)
	switch {
	case style == "title":
		return 1
	case strings.HasPrefix(style, "heading"):
		if n := style[len("heading"):]; len(n) == 1 && n[0] >= '1' && n[0] <= '6' {
			return int(n[0] - '0')
		}
		return 1
	}
	return 0
}

// docxCoreProperties reads docProps/core.xml into result metadata.
func docxCoreProperties(index map[string]*zip.File, result *Result) {
	f := index["docProps/core.xml"]
	if f == nil {
		return
	}
	data, err := readAllZip(f)
	if err != nil {
		return
	}
	var props struct {
		Title   string `xml:"title"`
		Creator string `xml:"creator"`
		Subject string `xml:"subject"`
	}
	if err := xml.Unmarshal(data, &props); err != nil {
		return
	}
	if props.Title != "" {
		result.SetMeta("title", props.Title)
	}
	if props.Creator != "" {
		result.SetMeta("author", props.Creator)
	}
	if props.Subject != "" {
		result.SetMeta("subject", props.Subject)
	}
}

// docxImages resolves a:blip embed references through the relationship
// table to media entries and returns their bytes.
func docxImages(docXML []byte, index map[string]*zip.File, maxImages int) []Image {
	rels := ooxmlRels(index, "word/_rels/document.xml.rels")
	if rels == nil {
		return nil
	}

	var images []Image
	decoder := xml.NewDecoder(bytes.NewReader(docXML))
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "blip" {
			continue
		}
		var embedID string
		for _, attr := range se.Attr {
			if attr.Name.Local == "embed" {
				embedID = attr.Value
				break
			}
		}
		target, ok := rels[embedID]
		if embedID == "" || !ok {
			continue
		}
		mediaPath := path.Clean("word/" + strings.ReplaceAll(target, "\\", "/"))
		zf := index[mediaPath]
		if zf == nil {
			continue
		}
		data, err := readAllZip(zf)
		if err != nil {
			continue
		}
		images = append(images, Image{
			Index:  len(images),
			Format: imageMimeFromPath(mediaPath),
			Data:   data,
		})
		if maxImages > 0 && len(images) >= maxImages {
			break
		}
	}
	return images
}

// ooxmlRels parses a .rels part into an rId -> target map.
func ooxmlRels(index map[string]*zip.File, relsPath string) map[string]string {
	f := index[relsPath]
	if f == nil {
		return nil
	}
	data, err := readAllZip(f)
	if err != nil {
		return nil
	}
	var rels struct {
		XMLName xml.Name `xml:"Relationships"`
		Rels    []struct {
			ID     string `xml:"Id,attr"`
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil
	}
	out := make(map[string]string, len(rels.Rels))
	for _, rel := range rels.Rels {
		out[rel.ID] = rel.Target
	}
	return out
}

func imageMimeFromPath(p string) string {
	if m := mimetype.FromExtension(path.Ext(p)); m != "" {
		return m
	}
	return mimetype.Binary
}

func zipIndex(zr *zip.Reader) map[string]*zip.File {
	index := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		index[f.Name] = f
	}
	return index
}

func readAllZip(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
