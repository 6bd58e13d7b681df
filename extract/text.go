package extract

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/yhilem/distill/mimetype"
)

// TextExtractor handles plain text and text-like types that need no
// structural parsing. It is the terminal fallback for anything textual.
type TextExtractor struct{}

func (e *TextExtractor) Name() string { return "text" }

func (e *TextExtractor) Supports(mime string) bool {
	switch mime {
	case mimetype.PlainText, mimetype.XML, "text/x-rst", "text/x-org", "application/x-latex":
		return true
	}
	return strings.HasPrefix(mime, "text/")
}

func (e *TextExtractor) Extract(ctx context.Context, content []byte, mime string, cfg *Config) (*Result, error) {
	return &Result{
		Content:  safeDecode(content),
		MimeType: mime,
	}, nil
}

// safeDecode converts bytes to a string, replacing invalid UTF-8
// sequences rather than failing. Handles a UTF-8 BOM and, heuristically,
// UTF-16 with a BOM.
func safeDecode(data []byte) string {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	if len(data) >= 2 {
		if data[0] == 0xFF && data[1] == 0xFE {
			return decodeUTF16(data[2:], false)
		}
		if data[0] == 0xFE && data[1] == 0xFF {
			return decodeUTF16(data[2:], true)
		}
	}

	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}

func decodeUTF16(data []byte, bigEndian bool) string {
	var sb strings.Builder
	for i := 0; i+1 < len(data); i += 2 {
		var u uint16
		if bigEndian {
			u = uint16(data[i])<<8 | uint16(data[i+1])
		} else {
			u = uint16(data[i]) | uint16(data[i+1])<<8
		}
		// Surrogate pairs.
		if u >= 0xD800 && u <= 0xDBFF && i+3 < len(data) {
			var lo uint16
			if bigEndian {
				lo = uint16(data[i+2])<<8 | uint16(data[i+3])
			} else {
				lo = uint16(data[i+2]) | uint16(data[i+3])<<8
			}
			if lo >= 0xDC00 && lo <= 0xDFFF {
				sb.WriteRune(rune(u-0xD800)<<10 | rune(lo-0xDC00) + 0x10000)
				i += 2
				continue
			}
		}
		sb.WriteRune(rune(u))
	}
	return sb.String()
}
