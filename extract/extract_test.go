package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"github.com/yhilem/distill/mimetype"
)

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("writing zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

func TestTextExtractorPlain(t *testing.T) {
	e := &TextExtractor{}
	result, err := e.Extract(context.Background(), []byte("hello world"), mimetype.PlainText, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Content != "hello world" {
		t.Errorf("content = %q, want hello world", result.Content)
	}
	if result.MimeType != mimetype.PlainText {
		t.Errorf("mime = %q, want %q", result.MimeType, mimetype.PlainText)
	}
}

func TestTextExtractorUTF16(t *testing.T) {
	// "hi" as UTF-16 LE with BOM.
	le := []byte{0xFF, 0xFE, 'h', 0x00, 'i', 0x00}
	e := &TextExtractor{}
	result, err := e.Extract(context.Background(), le, mimetype.PlainText, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Content != "hi" {
		t.Errorf("UTF-16 LE content = %q, want hi", result.Content)
	}

	be := []byte{0xFE, 0xFF, 0x00, 'h', 0x00, 'i'}
	result, err = e.Extract(context.Background(), be, mimetype.PlainText, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Content != "hi" {
		t.Errorf("UTF-16 BE content = %q, want hi", result.Content)
	}
}

func TestTextExtractorStripsUTF8BOM(t *testing.T) {
	e := &TextExtractor{}
	result, err := e.Extract(context.Background(), []byte("\xEF\xBB\xBFhello"), mimetype.PlainText, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Content != "hello" {
		t.Errorf("content = %q, want hello without BOM", result.Content)
	}
}

func TestCSVExtractor(t *testing.T) {
	data := []byte("name,age\nalice,30\nbob,25\n")
	e := &CSVExtractor{}
	result, err := e.Extract(context.Background(), data, mimetype.CSV, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.Tables) != 1 {
		t.Fatalf("tables = %d, want 1", len(result.Tables))
	}
	tbl := result.Tables[0]
	if len(tbl.Cells) != 3 {
		t.Errorf("rows = %d, want 3", len(tbl.Cells))
	}
	if tbl.Cells[1][0] != "alice" {
		t.Errorf("cell[1][0] = %q, want alice", tbl.Cells[1][0])
	}
	if !strings.Contains(result.Content, "| alice | 30 |") {
		t.Errorf("content missing markdown row: %q", result.Content)
	}
}

func TestStructuredExtractorJSON(t *testing.T) {
	data := []byte(`{"title":"report","tags":["a","b"],"meta":{"pages":3}}`)
	e := &StructuredExtractor{}
	result, err := e.Extract(context.Background(), data, mimetype.JSON, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, want := range []string{"title: report", "tags[0]: a", "tags[1]: b", "meta.pages: 3"} {
		if !strings.Contains(result.Content, want) {
			t.Errorf("content missing %q:\n%s", want, result.Content)
		}
	}
}

func TestStructuredExtractorYAML(t *testing.T) {
	data := []byte("server:\n  host: localhost\n  port: 8080\n")
	e := &StructuredExtractor{}
	result, err := e.Extract(context.Background(), data, mimetype.YAML, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(result.Content, "server.host: localhost") {
		t.Errorf("content missing flattened host line:\n%s", result.Content)
	}
	if !strings.Contains(result.Content, "server.port: 8080") {
		t.Errorf("content missing flattened port line:\n%s", result.Content)
	}
}

func TestStructuredExtractorBadJSON(t *testing.T) {
	e := &StructuredExtractor{}
	if _, err := e.Extract(context.Background(), []byte("{not json"), mimetype.JSON, nil); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestMarkdownExtractor(t *testing.T) {
	src := "# Quarterly Report\n\nSome intro.\n\n## Numbers\n\n| q | revenue |\n| --- | --- |\n| q1 | 100 |\n"
	e := &MarkdownExtractor{}
	result, err := e.Extract(context.Background(), []byte(src), mimetype.Markdown, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Metadata["title"] != "Quarterly Report" {
		t.Errorf("title = %q, want Quarterly Report", result.Metadata["title"])
	}
	if len(result.Tables) != 1 {
		t.Fatalf("tables = %d, want 1", len(result.Tables))
	}
	if result.Tables[0].Cells[1][1] != "100" {
		t.Errorf("table cell = %q, want 100", result.Tables[0].Cells[1][1])
	}
	if result.Content != src {
		t.Error("markdown content should pass through unchanged")
	}
}

func TestHTMLExtractor(t *testing.T) {
	src := `<html><head><title>Page Title</title>
<meta name="author" content="Jo Writer">
<script>alert("gone")</script></head>
<body><h1>Welcome</h1><p>Body <b>text</b>.</p></body></html>`
	e := &HTMLExtractor{}
	result, err := e.Extract(context.Background(), []byte(src), mimetype.HTML, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Metadata["title"] != "Page Title" {
		t.Errorf("title = %q, want Page Title", result.Metadata["title"])
	}
	if result.Metadata["author"] != "Jo Writer" {
		t.Errorf("author = %q, want Jo Writer", result.Metadata["author"])
	}
	if !strings.Contains(result.Content, "Welcome") {
		t.Errorf("content missing heading text:\n%s", result.Content)
	}
	if strings.Contains(result.Content, "alert") {
		t.Errorf("script content survived sanitization:\n%s", result.Content)
	}
}

func TestEmailExtractor(t *testing.T) {
	msg := "From: alice@example.com\r\n" +
		"To: bob@example.com\r\n" +
		"Subject: Meeting notes\r\n" +
		"Date: Mon, 02 Jan 2006 15:04:05 -0700\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"See attached notes.\r\n"
	e := &EmailExtractor{}
	result, err := e.Extract(context.Background(), []byte(msg), mimetype.EML, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Metadata["subject"] != "Meeting notes" {
		t.Errorf("subject = %q, want Meeting notes", result.Metadata["subject"])
	}
	if !strings.Contains(result.Metadata["from"], "alice@example.com") {
		t.Errorf("from = %q, want alice@example.com", result.Metadata["from"])
	}
	if !strings.Contains(result.Content, "See attached notes.") {
		t.Errorf("content = %q", result.Content)
	}
}

func TestEmailExtractorMultipartPrefersPlain(t *testing.T) {
	msg := "From: a@example.com\r\n" +
		"Subject: multi\r\n" +
		"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>html body</p>\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"plain body\r\n" +
		"--XYZ--\r\n"
	e := &EmailExtractor{}
	result, err := e.Extract(context.Background(), []byte(msg), mimetype.EML, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(result.Content, "plain body") {
		t.Errorf("content = %q, want the text/plain part", result.Content)
	}
}

func TestDOCXExtractor(t *testing.T) {
	docXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Intro</w:t></w:r></w:p>
<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
<w:tbl>
  <w:tr><w:tc><w:p><w:r><w:t>h1</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>h2</w:t></w:r></w:p></w:tc></w:tr>
  <w:tr><w:tc><w:p><w:r><w:t>a</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>b</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
</w:body>
</w:document>`
	coreXML := `<?xml version="1.0"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
 xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>Test Doc</dc:title><dc:creator>Jo Writer</dc:creator>
</cp:coreProperties>`

	data := buildZip(t, map[string]string{
		"word/document.xml":  docXML,
		"docProps/core.xml":  coreXML,
		"[Content_Types].xml": "<Types/>",
	})

	e := &DOCXExtractor{}
	result, err := e.Extract(context.Background(), data, mimetype.DOCX, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(result.Content, "# Intro") {
		t.Errorf("content missing heading:\n%s", result.Content)
	}
	if !strings.Contains(result.Content, "First paragraph.") {
		t.Errorf("content missing paragraph:\n%s", result.Content)
	}
	if len(result.Tables) != 1 {
		t.Fatalf("tables = %d, want 1", len(result.Tables))
	}
	if result.Tables[0].Cells[1][1] != "b" {
		t.Errorf("table cell = %q, want b", result.Tables[0].Cells[1][1])
	}
	if result.Metadata["title"] != "Test Doc" {
		t.Errorf("title = %q, want Test Doc", result.Metadata["title"])
	}
	if result.Metadata["author"] != "Jo Writer" {
		t.Errorf("author = %q, want Jo Writer", result.Metadata["author"])
	}
}

func TestDOCXExtractorRejectsMissingDocument(t *testing.T) {
	data := buildZip(t, map[string]string{"other.xml": "<x/>"})
	e := &DOCXExtractor{}
	if _, err := e.Extract(context.Background(), data, mimetype.DOCX, nil); err == nil {
		t.Error("expected error for zip without word/document.xml")
	}
}

func TestPPTXExtractor(t *testing.T) {
	slide := func(text string) string {
		return `<?xml version="1.0"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
 xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
<p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld>
</p:sld>`
	}
	data := buildZip(t, map[string]string{
		"ppt/slides/slide2.xml": slide("Second slide"),
		"ppt/slides/slide1.xml": slide("First slide"),
	})

	e := &PPTXExtractor{}
	result, err := e.Extract(context.Background(), data, mimetype.PPTX, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Metadata["slide_count"] != "2" {
		t.Errorf("slide_count = %q, want 2", result.Metadata["slide_count"])
	}
	first := strings.Index(result.Content, "First slide")
	second := strings.Index(result.Content, "Second slide")
	if first == -1 || second == -1 || first > second {
		t.Errorf("slides out of order:\n%s", result.Content)
	}
	if !strings.Contains(result.Content, "## Slide 1") {
		t.Errorf("content missing slide heading:\n%s", result.Content)
	}
}

func TestODTExtractor(t *testing.T) {
	contentXML := `<?xml version="1.0"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
 xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0">
<office:body><office:text>
<text:h text:outline-level="2">Section</text:h>
<text:p>Body text here.</text:p>
</office:text></office:body>
</office:document-content>`
	metaXML := `<?xml version="1.0"?>
<office:document-meta xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
 xmlns:dc="http://purl.org/dc/elements/1.1/">
<office:meta><dc:title>ODT Title</dc:title><dc:creator>Sam Author</dc:creator></office:meta>
</office:document-meta>`

	data := buildZip(t, map[string]string{
		"mimetype":    mimetype.ODT,
		"content.xml": contentXML,
		"meta.xml":    metaXML,
	})

	e := &ODTExtractor{}
	result, err := e.Extract(context.Background(), data, mimetype.ODT, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(result.Content, "## Section") {
		t.Errorf("content missing heading:\n%s", result.Content)
	}
	if !strings.Contains(result.Content, "Body text here.") {
		t.Errorf("content missing paragraph:\n%s", result.Content)
	}
	if result.Metadata["title"] != "ODT Title" {
		t.Errorf("title = %q, want ODT Title", result.Metadata["title"])
	}
}

func TestSpreadsheetExtractor(t *testing.T) {
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "name")
	f.SetCellValue("Sheet1", "B1", "score")
	f.SetCellValue("Sheet1", "A2", "alice")
	f.SetCellValue("Sheet1", "B2", 42)
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("building xlsx: %v", err)
	}

	e := &SpreadsheetExtractor{}
	result, err := e.Extract(context.Background(), buf.Bytes(), mimetype.XLSX, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Metadata["sheet_count"] != "1" {
		t.Errorf("sheet_count = %q, want 1", result.Metadata["sheet_count"])
	}
	if len(result.Tables) != 1 {
		t.Fatalf("tables = %d, want 1", len(result.Tables))
	}
	if result.Tables[0].Name != "Sheet1" {
		t.Errorf("table name = %q, want Sheet1", result.Tables[0].Name)
	}
	if !strings.Contains(result.Content, "alice") {
		t.Errorf("content missing cell value:\n%s", result.Content)
	}
}

func TestSpreadsheetExtractorSheetFilter(t *testing.T) {
	f := excelize.NewFile()
	f.NewSheet("Other")
	f.SetCellValue("Sheet1", "A1", "keep")
	f.SetCellValue("Other", "A1", "drop")
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("building xlsx: %v", err)
	}

	cfg := &Config{Spreadsheet: &SpreadsheetConfig{Sheets: []string{"Sheet1"}}}
	e := &SpreadsheetExtractor{}
	result, err := e.Extract(context.Background(), buf.Bytes(), mimetype.XLSX, cfg)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.Tables) != 1 || result.Tables[0].Name != "Sheet1" {
		t.Errorf("sheet filter not applied, tables = %+v", result.Tables)
	}
	if strings.Contains(result.Content, "drop") {
		t.Errorf("filtered sheet leaked into content:\n%s", result.Content)
	}
}

// 1x1 PNG.
const tinyPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

func TestImageExtractor(t *testing.T) {
	data, err := base64.StdEncoding.DecodeString(tinyPNG)
	if err != nil {
		t.Fatal(err)
	}
	e := &ImageExtractor{}
	result, err := e.Extract(context.Background(), data, mimetype.PNG, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Content != "" {
		t.Errorf("image extraction should produce no text, got %q", result.Content)
	}
	if len(result.Images) != 1 {
		t.Fatalf("images = %d, want 1 passthrough for OCR", len(result.Images))
	}
	if result.Metadata["width"] != "1" || result.Metadata["height"] != "1" {
		t.Errorf("dimensions = %sx%s, want 1x1", result.Metadata["width"], result.Metadata["height"])
	}
}

func TestIsLegacyOffice(t *testing.T) {
	if !IsLegacyOffice(mimetype.LegacyWord) {
		t.Error("msword should be legacy")
	}
	if IsLegacyOffice(mimetype.DOCX) {
		t.Error("docx is not legacy")
	}
}

func TestConvertLegacyOfficeRejectsModernTypes(t *testing.T) {
	_, _, err := ConvertLegacyOffice(context.Background(), nil, mimetype.DOCX)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestConfigFingerprint(t *testing.T) {
	a := &Config{UseCache: true}
	b := &Config{UseCache: true}
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("equal configs must share a fingerprint")
	}

	c := &Config{UseCache: true, ForceOCR: true}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("differing configs must differ in fingerprint")
	}

	d := &Config{UseCache: true, Chunking: &ChunkingConfig{MaxChars: 500}}
	if a.Fingerprint() == d.Fingerprint() {
		t.Error("nested config changes must change the fingerprint")
	}
}

func TestBuiltinsCoverCoreTypes(t *testing.T) {
	covered := func(mime string) bool {
		for _, b := range Builtins() {
			if b.Supports(mime) {
				return true
			}
		}
		return false
	}
	for _, mime := range []string{
		mimetype.PDF, mimetype.DOCX, mimetype.XLSX, mimetype.PPTX,
		mimetype.ODT, mimetype.HTML, mimetype.Markdown, mimetype.CSV,
		mimetype.JSON, mimetype.PlainText, mimetype.PNG, mimetype.EML,
	} {
		if !covered(mime) {
			t.Errorf("no built-in extractor supports %s", mime)
		}
	}
}

// buildPDF assembles a minimal single-page PDF showing text, computing
// the cross-reference offsets as it writes.
func buildPDF(t *testing.T, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	offsets := make([]int, 6)
	writeObj := func(n int, body string) {
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, body)
	}

	buf.WriteString("%PDF-1.4\n")
	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	writeObj(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>")
	stream := fmt.Sprintf("BT\n/F1 12 Tf\n72 720 Td\n(%s) Tj\nET", text)
	writeObj(4, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	writeObj(5, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	xref := buf.Len()
	buf.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for n := 1; n <= 5; n++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[n])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

func TestPDFExtractor(t *testing.T) {
	content := buildPDF(t, "Hello from the text layer")
	e := &PDFExtractor{}
	result, err := e.Extract(context.Background(), content, mimetype.PDF, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(result.Content, "Hello") || !strings.Contains(result.Content, "layer") {
		t.Errorf("content missing page text:\n%s", result.Content)
	}
	if result.Metadata["page_count"] != "1" {
		t.Errorf("page_count = %q, want 1", result.Metadata["page_count"])
	}
	if result.Metadata["text_pages"] != "1" {
		t.Errorf("text_pages = %q, want 1", result.Metadata["text_pages"])
	}
}

func TestPDFExtractorPasswordOnPlainDocument(t *testing.T) {
	content := buildPDF(t, "open sesame")
	cfg := &Config{PDF: &PDFConfig{Password: "unused"}}
	result, err := (&PDFExtractor{}).Extract(context.Background(), content, mimetype.PDF, cfg)
	if err != nil {
		t.Fatalf("Extract with password on unencrypted document: %v", err)
	}
	if !strings.Contains(result.Content, "sesame") {
		t.Errorf("content missing page text:\n%s", result.Content)
	}
}

func TestPDFExtractorRejectsGarbage(t *testing.T) {
	if _, err := (&PDFExtractor{}).Extract(context.Background(), []byte("%PDF-1.4 not a document"), mimetype.PDF, nil); err == nil {
		t.Error("malformed PDF did not error")
	}
}

func TestPDFStreamExtractor(t *testing.T) {
	content := buildPDF(t, "Recovered by the fallback engine")
	e := &PDFStreamExtractor{}
	result, err := e.Extract(context.Background(), content, mimetype.PDF, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(result.Content, "Recovered by the fallback engine") {
		t.Errorf("content missing scraped literal:\n%s", result.Content)
	}
	if result.Metadata["page_count"] != "1" {
		t.Errorf("page_count = %q, want 1", result.Metadata["page_count"])
	}
}

func TestHTMLExtractorLinkHandling(t *testing.T) {
	src := `<html><body><p>See <a href="https://example.com/doc">the docs</a> now.</p></body></html>`
	e := &HTMLExtractor{}

	kept, err := e.Extract(context.Background(), []byte(src), mimetype.HTML, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(kept.Content, "https://example.com/doc") {
		t.Errorf("link target dropped without an HTML config:\n%s", kept.Content)
	}

	cfg := &Config{HTML: &HTMLConfig{}}
	stripped, err := e.Extract(context.Background(), []byte(src), mimetype.HTML, cfg)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if strings.Contains(stripped.Content, "example.com") {
		t.Errorf("link target survived KeepLinks=false:\n%s", stripped.Content)
	}
	if !strings.Contains(stripped.Content, "the docs") {
		t.Errorf("link text lost with KeepLinks=false:\n%s", stripped.Content)
	}

	cfg.HTML.KeepLinks = true
	explicit, err := e.Extract(context.Background(), []byte(src), mimetype.HTML, cfg)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(explicit.Content, "https://example.com/doc") {
		t.Errorf("link target dropped with KeepLinks=true:\n%s", explicit.Content)
	}
}
