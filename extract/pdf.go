package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpulib "github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/yhilem/distill/mimetype"
)

// PDFExtractor extracts the text layer of a PDF page by page.
type PDFExtractor struct{}

func (e *PDFExtractor) Name() string { return "pdf" }

func (e *PDFExtractor) Supports(mime string) bool { return mime == mimetype.PDF }

func (e *PDFExtractor) Extract(ctx context.Context, content []byte, mime string, cfg *Config) (*Result, error) {
	reader, err := openPDFReader(content, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}

	totalPages := reader.NumPage()
	var sb strings.Builder
	textPages := 0

	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Pages that fail to decode are skipped, not fatal.
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		textPages++
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}

	result := &Result{
		Content:  sb.String(),
		MimeType: mime,
		Metadata: map[string]string{
			"page_count": strconv.Itoa(totalPages),
			"text_pages": strconv.Itoa(textPages),
		},
	}
	annotatePDFImageStreams(content, result)
	return result, nil
}

// openPDFReader opens the document, decrypting with the configured
// password when one is set. Unencrypted documents ignore the password.
func openPDFReader(content []byte, cfg *Config) (*pdf.Reader, error) {
	if cfg != nil && cfg.PDF != nil && cfg.PDF.Password != "" {
		password := cfg.PDF.Password
		tried := false
		// The password callback is polled until it returns ""; a wrong
		// password must not be offered twice.
		return pdf.NewReaderEncrypted(bytes.NewReader(content), int64(len(content)), func() string {
			if tried {
				return ""
			}
			tried = true
			return password
		})
	}
	return pdf.NewReader(bytes.NewReader(content), int64(len(content)))
}

// annotatePDFImageStreams records whether the document carries image
// XObjects. The OCR decision reads this to recognize scanned documents
// whose text layer is empty or garbage.
func annotatePDFImageStreams(content []byte, result *Result) {
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(content), model.NewDefaultConfiguration())
	if err != nil {
		return
	}
	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		if len(pdfcpulib.ImageObjNrs(pctx, pageNr)) > 0 {
			result.SetMeta("has_image_streams", "true")
			return
		}
	}
}

// PDFStreamExtractor is the fallback PDF engine: it decodes page content
// streams directly and scrapes text-showing operators. It recovers text
// from documents the primary engine rejects, at lower fidelity.
type PDFStreamExtractor struct{}

func (e *PDFStreamExtractor) Name() string { return "pdf-stream" }

func (e *PDFStreamExtractor) Supports(mime string) bool { return mime == mimetype.PDF }

func (e *PDFStreamExtractor) Extract(ctx context.Context, content []byte, mime string, cfg *Config) (*Result, error) {
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(content), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	var sb strings.Builder
	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := pdfcpulib.ExtractPageContent(pctx, pageNr)
		if err != nil || r == nil {
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil || len(data) == 0 {
			continue
		}
		pageText := textFromContentStream(data)
		if pageText == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(pageText)
	}

	return &Result{
		Content:  sb.String(),
		MimeType: mime,
		Metadata: map[string]string{"page_count": strconv.Itoa(pctx.PageCount)},
	}, nil
}

// textFromContentStream scrapes string literals shown by Tj/TJ operators.
func textFromContentStream(data []byte) string {
	var sb strings.Builder
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !bytes.HasSuffix(line, []byte("Tj")) && !bytes.HasSuffix(line, []byte("TJ")) {
			continue
		}
		for _, part := range extractParenLiterals(line) {
			if part == "" {
				continue
			}
			sb.WriteString(part)
			sb.WriteByte(' ')
		}
	}
	return strings.TrimSpace(sb.String())
}

// extractParenLiterals pulls (string) literals out of a content-stream
// line, honoring backslash escapes.
func extractParenLiterals(line []byte) []string {
	var out []string
	var cur strings.Builder
	depth := 0
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\\' && i+1 < len(line) && depth > 0:
			i++
			switch line[i] {
			case 'n':
				cur.WriteByte('\n')
			case 't':
				cur.WriteByte('\t')
			case '(', ')', '\\':
				cur.WriteByte(line[i])
			}
		case c == '(':
			depth++
			if depth == 1 {
				cur.Reset()
			} else {
				cur.WriteByte(c)
			}
		case c == ')':
			depth--
			if depth == 0 {
				out = append(out, cur.String())
			} else if depth > 0 {
				cur.WriteByte(c)
			}
		case depth > 0:
			cur.WriteByte(c)
		}
	}
	return out
}
