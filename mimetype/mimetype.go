// Package mimetype identifies a byte stream's media type from magic bytes,
// container structure, and an optional filename hint.
//
// Detection is best-effort and never fails: bytes that match no signature
// are classified as text/plain when they decode as UTF-8 and as
// application/octet-stream otherwise.
package mimetype

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// Well-known media types used across the pipeline.
const (
	PDF         = "application/pdf"
	PlainText   = "text/plain"
	Markdown    = "text/markdown"
	HTML        = "text/html"
	CSV         = "text/csv"
	TSV         = "text/tab-separated-values"
	JSON        = "application/json"
	YAML        = "application/x-yaml"
	XML         = "application/xml"
	RTF         = "application/rtf"
	EML         = "message/rfc822"
	ZIP         = "application/zip"
	GZIP        = "application/gzip"
	SevenZip    = "application/x-7z-compressed"
	TAR         = "application/x-tar"
	Binary      = "application/octet-stream"
	DOCX        = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	XLSX        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	PPTX        = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	ODT         = "application/vnd.oasis.opendocument.text"
	ODS         = "application/vnd.oasis.opendocument.spreadsheet"
	ODP         = "application/vnd.oasis.opendocument.presentation"
	EPUB        = "application/epub+zip"
	LegacyWord  = "application/msword"
	LegacyPPT   = "application/vnd.ms-powerpoint"
	LegacyExcel = "application/vnd.ms-excel"
	PNG         = "image/png"
	JPEG        = "image/jpeg"
	GIF         = "image/gif"
	BMP         = "image/bmp"
	TIFF        = "image/tiff"
	WEBP        = "image/webp"
)

// signature maps a leading byte pattern to a media type.
type signature struct {
	prefix []byte
	offset int
	mime   string
}

var signatures = []signature{
	{prefix: []byte("%PDF"), mime: PDF},
	{prefix: []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, mime: PNG},
	{prefix: []byte{0xFF, 0xD8, 0xFF}, mime: JPEG},
	{prefix: []byte("GIF87a"), mime: GIF},
	{prefix: []byte("GIF89a"), mime: GIF},
	{prefix: []byte("BM"), mime: BMP},
	{prefix: []byte{0x49, 0x49, 0x2A, 0x00}, mime: TIFF},
	{prefix: []byte{0x4D, 0x4D, 0x00, 0x2A}, mime: TIFF},
	{prefix: []byte("WEBP"), offset: 8, mime: WEBP},
	{prefix: []byte("{\\rtf"), mime: RTF},
	// OLE compound file: legacy .doc/.ppt/.xls share this container.
	{prefix: []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, mime: LegacyWord},
	{prefix: []byte{0x1F, 0x8B}, mime: GZIP},
	{prefix: []byte("7z\xBC\xAF\x27\x1C"), mime: SevenZip},
	// POSIX tar magic sits at the end of the first header block.
	{prefix: []byte("ustar"), offset: 257, mime: TAR},
}

// zipLocalHeader is the ZIP local-file-header signature shared by every
// ZIP-based container (docx, xlsx, pptx, odt, ods, odp, epub, plain zip).
var zipLocalHeader = []byte{'P', 'K', 0x03, 0x04}

// Detect identifies the media type of data from its content alone.
func Detect(data []byte) string {
	if len(data) == 0 {
		return PlainText
	}

	if bytes.HasPrefix(data, zipLocalHeader) {
		return detectZipContainer(data)
	}

	for _, sig := range signatures {
		end := sig.offset + len(sig.prefix)
		if len(data) >= end && bytes.Equal(data[sig.offset:end], sig.prefix) {
			return sig.mime
		}
	}

	if mime, ok := detectTextual(data); ok {
		return mime
	}
	return Binary
}

// DetectFromPath identifies the media type of the file at path. The file
// extension serves as a hint only; content is ground truth. The hint
// refines content-level detection where the bytes are ambiguous (e.g.
// an OLE container could be legacy Word, PowerPoint, or Excel; textual
// content could be markdown, CSV, or HTML).
func DetectFromPath(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	// 8 KiB covers every signature plus enough context for the textual
	// heuristics; ZIP disambiguation re-reads the whole file.
	head := make([]byte, 8192)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	head = head[:n]

	if bytes.HasPrefix(head, zipLocalHeader) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		return detectZipContainer(data), nil
	}

	detected := Detect(head)
	return refineWithExtension(detected, filepath.Ext(path)), nil
}

// refineWithExtension narrows an ambiguous content-level type using the
// filename extension. The extension never overrides an unambiguous
// content detection.
func refineWithExtension(detected, ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	switch detected {
	case LegacyWord:
		// All OLE compound files detect as LegacyWord; the extension
		// distinguishes the legacy office family.
		switch ext {
		case "ppt", "pps":
			return LegacyPPT
		case "xls", "xlt", "xla":
			return LegacyExcel
		}
	case PlainText:
		if byExt := FromExtension(ext); byExt != "" && isTextualMime(byExt) {
			return byExt
		}
	}
	return detected
}

// detectZipContainer opens the ZIP directory and inspects distinguishing
// internal entries: the ODF "mimetype" file, the OOXML
// "[Content_Types].xml" declaration, or a characteristic internal path.
func detectZipContainer(data []byte) string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ZIP
	}

	names := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		names[f.Name] = f
	}

	// ODF and EPUB declare their type in an uncompressed "mimetype" entry.
	if f, ok := names["mimetype"]; ok {
		if declared := readZipEntry(f, 256); declared != "" {
			switch strings.TrimSpace(declared) {
			case ODT, ODS, ODP, EPUB:
				return strings.TrimSpace(declared)
			}
		}
	}

	// OOXML declares content types for its parts.
	if f, ok := names["[Content_Types].xml"]; ok {
		decl := readZipEntry(f, 1<<16)
		switch {
		case strings.Contains(decl, "wordprocessingml"):
			return DOCX
		case strings.Contains(decl, "spreadsheetml"):
			return XLSX
		case strings.Contains(decl, "presentationml"):
			return PPTX
		}
	}

	// Fall back to characteristic internal paths.
	for name := range names {
		switch {
		case strings.HasPrefix(name, "word/"):
			return DOCX
		case strings.HasPrefix(name, "xl/"):
			return XLSX
		case strings.HasPrefix(name, "ppt/"):
			return PPTX
		}
	}
	return ZIP
}

// readZipEntry reads at most limit bytes of a single archive entry.
func readZipEntry(f *zip.File, limit int64) string {
	rc, err := f.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, limit))
	if err != nil {
		return ""
	}
	return string(data)
}

// detectTextual classifies byte streams with no binary signature.
func detectTextual(data []byte) (string, bool) {
	if !utf8.Valid(data) {
		return "", false
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n\xef\xbb\xbf")
	lower := bytes.ToLower(trimmed)
	switch {
	case bytes.HasPrefix(lower, []byte("<?xml")):
		if bytes.Contains(lower, []byte("<svg")) {
			return "image/svg+xml", true
		}
		return XML, true
	case bytes.HasPrefix(lower, []byte("<!doctype html")), bytes.HasPrefix(lower, []byte("<html")):
		return HTML, true
	case looksLikeJSON(trimmed):
		return JSON, true
	}
	return PlainText, true
}

// looksLikeJSON reports whether data opens like a JSON document.
func looksLikeJSON(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if data[0] != '{' && data[0] != '[' {
		return false
	}
	return bytes.ContainsAny(data[:min(len(data), 512)], "\":]}")
}

// extToMime maps filename extensions to media types.
var extToMime = map[string]string{
	"txt": PlainText, "text": PlainText, "log": PlainText,
	"md": Markdown, "markdown": Markdown,
	"pdf":  PDF,
	"html": HTML, "htm": HTML,
	"csv": CSV, "tsv": TSV,
	"json": JSON, "ipynb": "application/x-ipynb+json",
	"yaml": YAML, "yml": YAML,
	"xml": XML, "svg": "image/svg+xml",
	"rtf":  RTF,
	"eml":  EML,
	"docx": DOCX, "doc": LegacyWord,
	"xlsx": XLSX, "xlsm": XLSX, "xls": LegacyExcel,
	"pptx": PPTX, "ppt": LegacyPPT,
	"odt": ODT, "ods": ODS, "odp": ODP,
	"epub": EPUB,
	"png":  PNG, "jpg": JPEG, "jpeg": JPEG, "gif": GIF,
	"bmp": BMP, "tiff": TIFF, "tif": TIFF, "webp": WEBP,
	"zip": ZIP, "gz": GZIP, "7z": SevenZip, "tar": TAR,
	"rst": "text/x-rst", "org": "text/x-org", "tex": "application/x-latex",
}

// FromExtension returns the media type for a filename extension (with or
// without the leading dot), or "" when the extension is unknown.
func FromExtension(ext string) string {
	return extToMime[strings.ToLower(strings.TrimPrefix(ext, "."))]
}

// ExtensionsFor returns every known extension for a media type, sorted.
func ExtensionsFor(mime string) []string {
	var exts []string
	for ext, m := range extToMime {
		if m == mime {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return exts
}

// IsImage reports whether mime identifies an image format.
func IsImage(mime string) bool {
	return strings.HasPrefix(mime, "image/")
}

func isTextualMime(mime string) bool {
	return strings.HasPrefix(mime, "text/") ||
		mime == JSON || mime == YAML || mime == XML ||
		mime == "application/x-ipynb+json" || mime == "application/x-latex"
}
